package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/batonlint/internal/cli/output"
	"github.com/leapstack-labs/batonlint/internal/cli/testutil"
	"github.com/leapstack-labs/batonlint/pkg/lint"
)

func runRules(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRulesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestNewRulesCommand(t *testing.T) {
	cmd := NewRulesCommand()

	assert.Equal(t, "rules [rule-name]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Example)

	for _, flag := range []string{"group", "verbose", "format"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRulesCommand_ListJSON(t *testing.T) {
	out, err := runRules(t, "--format", "json")
	require.NoError(t, err)

	var got output.RulesOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, lint.Count(), got.Count)
	require.NotEmpty(t, got.Rules)
	assert.Equal(t, lint.GetAll()[0].Name, got.Rules[0].Name)

	names := make(map[string]bool)
	for _, r := range got.Rules {
		names[r.Name] = true
		assert.NotEmpty(t, r.Group, r.Name)
		assert.Contains(t, r.Scopes, "query", r.Name)
	}
	for _, name := range []string{"missing-comma", "vars-query-mismatch", "property-name-typos"} {
		assert.True(t, names[name], name)
	}
}

func TestRulesCommand_ListMarkdown(t *testing.T) {
	out, err := runRules(t, "--format", "markdown", "--verbose")
	require.NoError(t, err)

	assert.Contains(t, out, "# Lint Rules")
	assert.Contains(t, out, "## Syntax")
	assert.Contains(t, out, "## Baton")
	assert.Contains(t, out, "**missing-comma**")
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
}

func TestRulesCommand_ListText(t *testing.T) {
	out, err := runRules(t, "--format", "text")
	require.NoError(t, err)

	assert.Contains(t, out, "Lint Rules")
	assert.Contains(t, out, "missing-comma")
	assert.Contains(t, out, "Use 'batonlint rules <rule-name>'")
}

func TestRulesCommand_Group(t *testing.T) {
	out, err := runRules(t, "--format", "json", "--group", "baton")
	require.NoError(t, err)

	var got output.RulesOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got.Rules)
	for _, r := range got.Rules {
		assert.Equal(t, "baton", r.Group)
	}

	_, err = runRules(t, "--group", "nope")
	assert.Error(t, err)
}

func TestRulesCommand_Show(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		out, err := runRules(t, "missing-comma", "--format", "markdown")
		require.NoError(t, err)
		assert.Contains(t, out, "# missing-comma")
		assert.Contains(t, out, "## Bad Example")
		testutil.AssertValidMarkdown(t, out)
	})

	t.Run("json", func(t *testing.T) {
		out, err := runRules(t, "keyword-spelling", "--format", "json")
		require.NoError(t, err)

		var info output.RuleInfo
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Equal(t, "keyword-spelling", info.Name)
		assert.Equal(t, "error", info.Severity)
	})

	t.Run("text", func(t *testing.T) {
		out, err := runRules(t, "property-name-typos", "--format", "text")
		require.NoError(t, err)
		assert.Contains(t, out, "property-name-typos")
		assert.Contains(t, out, "query|document")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := runRules(t, "no-such-rule")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestTruncateOneLine(t *testing.T) {
	assert.Equal(t, "short", truncateOneLine("short", 10))
	assert.Equal(t, "a b", truncateOneLine("a\nb", 10))
	assert.Equal(t, "abcdefg...", truncateOneLine("abcdefghijklmnop", 10))
}
