// Package main provides tests for the batonlint CLI.
package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/batonlint/internal/cli"
	"github.com/leapstack-labs/batonlint/internal/cli/commands"
	"github.com/leapstack-labs/batonlint/internal/cli/output"
	"github.com/leapstack-labs/batonlint/internal/cli/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "batonlint v")
}

func TestHelpCommand(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, expected := range []string{"lint", "rules", "lsp", "version", "completion"} {
		assert.Contains(t, out, expected)
	}
}

func TestLintCommand_UsesProjectConfig(t *testing.T) {
	root := testutil.SetupTestProject(t)
	cfgPath := testutil.WriteConfig(t, root, `output: json
lint:
  severity:
    missing-comma: warning
`)

	out, err := execute(t, "--config", cfgPath, "lint", root, "--rule", "missing-comma")
	require.ErrorIs(t, err, commands.ErrLintIssues)

	var got output.LintOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Summary.Warnings)
	assert.Equal(t, 0, got.Summary.Errors)
}

func TestLintCommand_ConfigDisablesRule(t *testing.T) {
	root := testutil.SetupTestProject(t)
	cfgPath := testutil.WriteConfig(t, root, "lint:\n  disabled: [missing-comma]\n")

	out, err := execute(t, "--config", cfgPath, "-o", "markdown", "lint", root, "--rule", "missing-comma")
	require.NoError(t, err)
	assert.Contains(t, out, "No lint issues found")
}

func TestLintCommand_FlagOverridesConfig(t *testing.T) {
	root := testutil.SetupTestProject(t)
	cfgPath := testutil.WriteConfig(t, root, "output: markdown\n")

	out, err := execute(t, "--config", cfgPath, "--output", "json", "lint", filepath.Join(root, "connectors", "clean.yaml"), "--rule", "missing-comma")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"), out)
}

func TestInvalidConfig(t *testing.T) {
	root := t.TempDir()
	cfgPath := testutil.WriteConfig(t, root, "parser: sqlite\n")

	_, err := execute(t, "--config", cfgPath, "rules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = execute(t, "--config", filepath.Join(root, "batonlint.yaml"), "--parser", "nope", "rules")
	assert.Error(t, err)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, "completion", shell)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}

	_, err := execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	assert.Error(t, err)
}
