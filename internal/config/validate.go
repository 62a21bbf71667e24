package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	_ "github.com/leapstack-labs/batonlint/pkg/lint/rules" // rule names are checked against the registry
	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(sqlast.Backends(), c.Parser) {
		errs = append(errs, fmt.Errorf("unknown parser %q (available: %s)", c.Parser, strings.Join(sqlast.Backends(), ", ")))
	}
	if c.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("debounce must be positive, got %s", c.Debounce))
	}
	if !slices.Contains(validOutputs, c.Output) {
		errs = append(errs, fmt.Errorf("unknown output %q (available: %s)", c.Output, strings.Join(validOutputs, ", ")))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for _, name := range c.Lint.Disabled {
		if _, ok := lint.GetByName(name); !ok {
			errs = append(errs, fmt.Errorf("lint.disabled: unknown rule %q", name))
		}
	}
	for name := range c.Lint.Severity {
		if _, ok := lint.GetByName(name); !ok {
			errs = append(errs, fmt.Errorf("lint.severity: unknown rule %q", name))
		}
	}
	for name := range c.Lint.Rules {
		if _, ok := lint.GetByName(name); !ok {
			errs = append(errs, fmt.Errorf("lint.rules: unknown rule %q", name))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
