package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `app_name: Example
resource_types:
  user:
    name: User
    list:
      vars:
        limit: 100
      query: |
        SELECT id,
          name
        FROM users
        LIMIT ?<limit>
    entitlements:
      - id: member
        grants_query: "SELECT user_id FROM memberships"
`

func TestDiscover_BlockScalar(t *testing.T) {
	queries, err := Discover(sample, nil)
	require.NoError(t, err)
	require.Len(t, queries, 2)

	q := queries[0]
	assert.Equal(t, "resource_types.user.list.query", q.Path())
	assert.True(t, strings.HasPrefix(q.Query, "SELECT id,\n  name\n"))
	assert.Equal(t, 8, q.StartLine)
	assert.Equal(t, 8, q.StartColumn)
	assert.Equal(t, 8, q.Indent)
	assert.Equal(t, 11, q.EndLine)

	lines := strings.Split(sample, "\n")
	assert.Equal(t, "SELECT id,", sample[q.StartPosition:q.StartPosition+len("SELECT id,")])
	assert.Equal(t, len(lines[11]), q.EndColumn)

	assert.Equal(t, 5, q.BlockStartLine)
	assert.True(t, strings.HasPrefix(q.Block, "      vars:\n"))
	assert.True(t, strings.HasSuffix(q.Block, "LIMIT ?<limit>"))
}

func TestDiscover_QuotedScalarInSequence(t *testing.T) {
	queries, err := Discover(sample, nil)
	require.NoError(t, err)
	q := queries[1]

	assert.Equal(t, []string{"resource_types", "user", "entitlements", "0", "grants_query"}, q.YAMLPath)
	assert.Equal(t, "SELECT user_id FROM memberships", q.Query)
	assert.Equal(t, 14, q.StartLine)
	assert.Equal(t, "SELECT", sample[q.StartPosition:q.StartPosition+6])
	assert.Equal(t, 13, q.BlockStartLine)
	assert.Equal(t, "      - id: member\n        grants_query: \"SELECT user_id FROM memberships\"", q.Block)
}

func TestDiscover_MatchesBySQLVerb(t *testing.T) {
	doc := "custom:\n  lookup: SELECT 1 FROM t\n  label: selection\n"
	queries, err := Discover(doc, nil)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "custom.lookup", queries[0].Path())
	assert.Equal(t, 1, queries[0].StartLine)
	assert.Equal(t, 10, queries[0].StartColumn)
}

func TestDiscover_FieldSequence(t *testing.T) {
	doc := "queries:\n  - SELECT 1\n  - |\n    SELECT 2\n"
	queries, err := Discover(doc, nil)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "queries.0", queries[0].Path())
	assert.Equal(t, 3, queries[1].StartLine)
	assert.Equal(t, 4, queries[1].StartColumn)
}

func TestDiscover_CustomFields(t *testing.T) {
	doc := "statement: DROP TABLE x\nquery: nothing here\n"
	queries, err := Discover(doc, []string{"statement"})
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "DROP TABLE x", queries[0].Query)
}

func TestDiscover_MultipleDocuments(t *testing.T) {
	doc := "query: SELECT 1\n---\nquery: SELECT 2\n"
	queries, err := Discover(doc, nil)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, 2, queries[1].StartLine)
}

func TestDiscover_SyntaxError(t *testing.T) {
	_, err := Discover("query: [unclosed\n", nil)
	require.Error(t, err)
	var yerr *YAMLError
	require.ErrorAs(t, err, &yerr)
	assert.NotEmpty(t, yerr.Message)
}

func TestDiscover_Empty(t *testing.T) {
	queries, err := Discover("", nil)
	require.NoError(t, err)
	assert.Empty(t, queries)
}
