// Package main provides the batonlint command.
package main

import (
	"os"

	"github.com/leapstack-labs/batonlint/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
