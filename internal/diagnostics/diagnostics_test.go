package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/batonlint/internal/diagnostics"
	"github.com/leapstack-labs/batonlint/internal/discovery"
	"github.com/leapstack-labs/batonlint/pkg/lint"
	_ "github.com/leapstack-labs/batonlint/pkg/lint/rules"
)

const blockDoc = `resource_types:
  user:
    list:
      query: |
        SELECT
          id,
          name
          email
        FROM users
`

func blockQuery() (discovery.SQLQueryInfo, []string) {
	q := discovery.SQLQueryInfo{
		Query:       "SELECT\n  id,\n  name\n  email\nFROM users\n",
		YAMLPath:    []string{"resource_types", "user", "list", "query"},
		StartLine:   4,
		StartColumn: 8,
		Indent:      8,
		EndLine:     8,
		EndColumn:   18,
	}
	return q, strings.Split(blockDoc, "\n")
}

func pos(line, char int) lint.Position {
	return lint.Position{Line: line, Character: char}
}

func TestPosition_LineNumber(t *testing.T) {
	q, lines := blockQuery()
	d := diagnostics.Position(lint.Invalid("bad").AtLine(2), q, lines)

	assert.Equal(t, pos(6, 0), d.Range.Start)
	assert.Equal(t, pos(6, len(lines[6])), d.Range.End)
	assert.Equal(t, "resource_types.user.list.query", d.Path)
}

func TestPosition_LineNumberClampedToQuery(t *testing.T) {
	q, lines := blockQuery()
	d := diagnostics.Position(lint.Invalid("bad").AtLine(40), q, lines)
	assert.Equal(t, 8, d.Range.Start.Line)
}

func TestPosition_Offset(t *testing.T) {
	q, lines := blockQuery()
	d := diagnostics.Position(lint.Invalid("bad").AtPosition(strings.Index(q.Query, "name")), q, lines)

	assert.Equal(t, pos(6, 10), d.Range.Start)
	assert.Equal(t, pos(6, 20), d.Range.End)
	assert.Equal(t, "name", lines[6][10:14])
}

func TestPosition_OffsetAfterNamedParameter(t *testing.T) {
	doc := "query: SELECT ?<user_id>, b FROM t"
	q := discovery.SQLQueryInfo{
		Query:       "SELECT ?<user_id>, b FROM t",
		StartColumn: 7,
		Indent:      7,
		EndColumn:   len(doc),
	}
	normalized := lint.Normalize(q.Query)
	d := diagnostics.Position(lint.Invalid("bad").AtPosition(strings.Index(normalized, "b")), q, []string{doc})

	assert.Equal(t, strings.Index(doc, "b FROM"), d.Range.Start.Character)
}

func TestPosition_WholeQuery(t *testing.T) {
	q, lines := blockQuery()
	d := diagnostics.Position(lint.Invalid("bad"), q, lines)
	assert.Equal(t, lint.Range{Start: pos(4, 8), End: pos(8, 18)}, d.Range)
}

func TestPosition_TranslatesFix(t *testing.T) {
	q, lines := blockQuery()
	res := lint.Invalid("bad").AtLine(2).WithFix(lint.InsertAt(2, 6, ","))
	d := diagnostics.Position(res, q, lines)

	require.NotNil(t, d.Fix)
	assert.Equal(t, pos(6, 14), d.Fix.Range.Start)
	assert.Equal(t, pos(6, 14), d.Fix.Range.End)
	assert.Equal(t, ",", d.Fix.NewText)

	first := diagnostics.Position(lint.Invalid("bad").WithFix(lint.ReplaceOnLine(0, 0, 6, "SELECT")), q, lines)
	require.NotNil(t, first.Fix)
	assert.Equal(t, lint.Range{Start: pos(4, 8), End: pos(4, 14)}, first.Fix.Range)
}

func TestDedup(t *testing.T) {
	a := diagnostics.Diagnostic{Message: "m", Range: lint.Range{Start: pos(1, 2)}}
	b := diagnostics.Diagnostic{Message: "m", Range: lint.Range{Start: pos(1, 3)}}
	c := diagnostics.Diagnostic{Message: "other", Range: lint.Range{Start: pos(1, 2)}}

	got := diagnostics.Dedup([]diagnostics.Diagnostic{a, b, a, c, b})
	assert.Equal(t, []diagnostics.Diagnostic{a, b, c}, got)
}

func TestFromYAMLError(t *testing.T) {
	lines := []string{"a: 1", "b: [", ""}
	d := diagnostics.FromYAMLError(&discovery.YAMLError{Line: 2, Message: "did not find expected node content"}, lines)

	assert.Equal(t, diagnostics.YAMLSyntaxRule, d.Rule)
	assert.Equal(t, lint.SeverityError, d.Severity)
	assert.Equal(t, lint.Range{Start: pos(1, 0), End: pos(1, 4)}, d.Range)
	assert.Contains(t, d.Message, "did not find expected node content")
}

func findRule(diags []diagnostics.Diagnostic, rule string) []diagnostics.Diagnostic {
	var out []diagnostics.Diagnostic
	for _, d := range diags {
		if d.Rule == rule {
			out = append(out, d)
		}
	}
	return out
}

func TestCollect_MissingComma(t *testing.T) {
	engine := lint.NewEngine()
	diags := diagnostics.Collect(engine, blockDoc, nil)

	found := findRule(diags, "missing-comma")
	require.Len(t, found, 1)
	assert.Equal(t, 6, found[0].Range.Start.Line)
	require.NotNil(t, found[0].Fix)
	assert.Equal(t, pos(6, 14), found[0].Fix.Range.Start)
	assert.Empty(t, findRule(diags, diagnostics.YAMLSyntaxRule))
}

func TestCollect_YAMLError(t *testing.T) {
	diags := diagnostics.Collect(lint.NewEngine(), "query: [unclosed\n", nil)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.YAMLSyntaxRule, diags[0].Rule)
}

func TestCollect_BlockScope(t *testing.T) {
	doc := `resource_types:
  user:
    list:
      vars:
        user: principal.ID
      query: SELECT id FROM users WHERE id = ?<user_id>
`
	diags := diagnostics.Collect(lint.NewEngine(), doc, nil)

	found := findRule(diags, "vars-query-mismatch")
	require.Len(t, found, 1)
	assert.Equal(t, 4, found[0].Range.Start.Line)
	assert.Contains(t, found[0].Message, "user")
	assert.Equal(t, "resource_types.user.list.query", found[0].Path)
}

func TestCollect_DocumentScope(t *testing.T) {
	doc := `resource_types:
  group:
    static_entitlement:
      - id: member
`
	diags := diagnostics.Collect(lint.NewEngine(), doc, nil)

	found := findRule(diags, "property-name-typos")
	require.Len(t, found, 1)
	require.NotNil(t, found[0].Fix)
	assert.Equal(t, lint.Range{Start: pos(2, 4), End: pos(2, 22)}, found[0].Fix.Range)
	assert.Equal(t, "static_entitlements", found[0].Fix.NewText)
}

func TestCollect_SortedAndDeduplicated(t *testing.T) {
	doc := `a:
  query: SELECT id FROM users ORDER BY 1
b:
  query: SELECT id FROM users ORDER BY 1
`
	diags := diagnostics.Collect(lint.NewEngine(), doc, nil)

	found := findRule(diags, "invalid-order-by")
	require.Len(t, found, 2)
	assert.Equal(t, 1, found[0].Range.Start.Line)
	assert.Equal(t, 3, found[1].Range.Start.Line)
	for i := 1; i < len(diags); i++ {
		assert.LessOrEqual(t, diags[i-1].Range.Start.Line, diags[i].Range.Start.Line)
	}
}
