package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/rules"
)

// runRule validates sql with a single registered rule.
func runRule(t *testing.T, sql, name string) []lint.ValidationResult {
	t.Helper()
	return runScoped(t, lint.ScopeQuery, sql, sql, name)
}

func runScoped(t *testing.T, scope lint.Scope, sql, original, name string) []lint.ValidationResult {
	t.Helper()
	rule, ok := lint.GetByName(name)
	require.True(t, ok, "rule %s not registered", name)
	return lint.NewEngine(lint.WithRules(rule)).ValidateScoped(scope, sql, original)
}

func requireLine(t *testing.T, res lint.ValidationResult, want int) {
	t.Helper()
	line, ok := res.Line()
	require.True(t, ok, "expected a line number")
	assert.Equal(t, want, line)
}

type ruleCase struct {
	name     string
	sql      string
	wantDiag bool
	wantLine int
}

func runCases(t *testing.T, rule string, tests []ruleCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := runRule(t, tt.sql, rule)
			if !tt.wantDiag {
				assert.Empty(t, results, "unexpected %s finding for %q", rule, tt.sql)
				return
			}
			require.Len(t, results, 1, "expected one %s finding for %q", rule, tt.sql)
			assert.Equal(t, rule, results[0].Rule)
			requireLine(t, results[0], tt.wantLine)
		})
	}
}

func TestRegistry_Order(t *testing.T) {
	all := lint.GetAll()
	require.Len(t, all, 15)
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name
	}
	assert.Equal(t, []string{
		"missing-comma", "missing-from", "unclosed-parentheses", "invalid-join",
		"ambiguous-columns", "invalid-group-by", "invalid-order-by", "duplicate-aliases",
		"keyword-spelling", "property-name-typos", "baton-parameter-validation",
		"credential-mutual-exclusion", "vars-query-mismatch", "trailing-comma",
		"unconventional-sql-syntax",
	}, names)
	for _, r := range rules.All {
		assert.NotEmpty(t, r.Description, r.Name)
		assert.NotNil(t, r.Check, r.Name)
		assert.NotEmpty(t, r.BadExample, r.Name)
	}
}

func TestMissingComma(t *testing.T) {
	runCases(t, "missing-comma", []ruleCase{
		{name: "select list", sql: "SELECT\n  id,\n  name\n  email\nFROM users", wantDiag: true, wantLine: 2},
		{name: "commas present", sql: "SELECT\n  id,\n  name,\n  email\nFROM users"},
		{name: "single line", sql: "SELECT id, name FROM users"},
		{name: "insert columns", sql: "INSERT INTO users (\n  id,\n  name\n  email\n) VALUES (1, 2, 3)", wantDiag: true, wantLine: 2},
		{name: "update set", sql: "UPDATE users\nSET name = 'a'\n  email = 'b'\nWHERE id = 1", wantDiag: true, wantLine: 1},
		{name: "values tuples", sql: "INSERT INTO t (a, b)\nVALUES\n  (1, 2)\n  (3, 4)", wantDiag: true, wantLine: 2},
		{name: "case expression", sql: "SELECT\n  id,\n  CASE\n    WHEN a = 1 THEN 'x'\n    ELSE 'y'\n  END AS label,\n  name\nFROM t"},
		{name: "case expression unparsed", sql: "SELECT\n  id,\n  CASE\n    WHEN a = 1 THEN 'x'\n    ELSE 'y'\n  END AS label,\n  name\nFROM t WHERE"},
		{name: "multi-line call", sql: "SELECT\n  id,\n  COALESCE(\n    a,\n    b\n  ) AS c\nFROM t WHERE"},
		{name: "trailing comma is not missing", sql: "SELECT id, name,\nFROM users"},
	})
}

func TestMissingComma_Fix(t *testing.T) {
	results := runRule(t, "SELECT\n  id,\n  name\n  email\nFROM users", "missing-comma")
	require.Len(t, results, 1)
	require.NotNil(t, results[0].SuggestedFix)
	assert.Equal(t, lint.InsertAt(2, 6, ","), *results[0].SuggestedFix)
	assert.Contains(t, results[0].Message, "name")
}

func TestMissingFrom(t *testing.T) {
	runCases(t, "missing-from", []ruleCase{
		{name: "column without from", sql: "SELECT id", wantDiag: true},
		{name: "timestamp", sql: "SELECT CURRENT_TIMESTAMP"},
		{name: "arithmetic", sql: "SELECT 1+1"},
		{name: "literal with alias", sql: "SELECT 'ok' AS status"},
		{name: "function", sql: "SELECT NOW()"},
		{name: "with from", sql: "SELECT id FROM users"},
		{name: "multi-line", sql: "SELECT\n  id,\n  name", wantDiag: true},
		{name: "unparsed with from", sql: "SELECT id,\nFROM users"},
		{name: "not a select", sql: "DELETE FROM users WHERE id = 1"},
	})
}

func TestUnclosedParentheses(t *testing.T) {
	results := runRule(t, "SELECT COUNT(id\nFROM users", "unclosed-parentheses")
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message, "Unclosed parenthesis")
	_, ok := results[0].Line()
	assert.True(t, ok)

	assert.Empty(t, runRule(t, "SELECT COUNT(id) FROM users", "unclosed-parentheses"))
	assert.Empty(t, runRule(t, "SELECT FROM WHERE", "unclosed-parentheses"))
}

func TestInvalidJoin(t *testing.T) {
	runCases(t, "invalid-join", []ruleCase{
		{name: "join without on", sql: "SELECT u.id\nFROM users u\nJOIN orders o\nWHERE o.total > 0", wantDiag: true, wantLine: 2},
		{name: "left join without on", sql: "SELECT u.id\nFROM users u\nLEFT JOIN orders o\nWHERE o.total > 0", wantDiag: true, wantLine: 2},
		{name: "join with on", sql: "SELECT u.id\nFROM users u\nJOIN orders o ON o.user_id = u.id"},
		{name: "on on next line", sql: "SELECT u.id\nFROM users u\nLEFT JOIN orders o\n  ON o.user_id = u.id"},
		{name: "using", sql: "SELECT id FROM users JOIN orders USING (id)"},
		{name: "cross join", sql: "SELECT *\nFROM a\nCROSS JOIN b"},
		{name: "natural join", sql: "SELECT * FROM a NATURAL JOIN b"},
		{name: "derived table with on", sql: "SELECT u.id\nFROM users u\nJOIN (\n  SELECT user_id FROM orders\n) o ON o.user_id = u.id\nWHERE u.name ILIKE 'a%'"},
		{name: "derived table on next line", sql: "SELECT u.id\nFROM users u\nJOIN (\n  SELECT user_id\n  FROM orders\n  WHERE total > 0\n) o\n  ON o.user_id = u.id\nWHERE u.name ILIKE 'a%'"},
		{name: "inline derived table with on", sql: "SELECT u.id\nFROM users u\nJOIN (SELECT user_id FROM orders) o ON o.user_id = u.id\nWHERE u.name ILIKE 'a%'"},
		{name: "derived table without on", sql: "SELECT u.id\nFROM users u\nJOIN (\n  SELECT user_id FROM orders\n) o\nWHERE u.name ILIKE 'a%'", wantDiag: true, wantLine: 2},
	})
}

func TestInvalidJoin_MissingOnKeyword(t *testing.T) {
	results := runRule(t, "SELECT *\nFROM users u\nJOIN orders o o.user_id = u.id", "invalid-join")
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message, "ON keyword")
	require.NotNil(t, results[0].SuggestedFix)
	assert.Equal(t, lint.InsertAt(2, 14, "ON "), *results[0].SuggestedFix)
}

func TestAmbiguousColumns(t *testing.T) {
	runCases(t, "ambiguous-columns", []ruleCase{
		{name: "star with join", sql: "SELECT *\nFROM users u\nJOIN orders o ON o.user_id = u.id", wantDiag: true},
		{name: "comma tables", sql: "SELECT * FROM users, orders", wantDiag: true},
		{name: "qualified star", sql: "SELECT u.* FROM users u JOIN orders o ON o.user_id = u.id"},
		{name: "single table", sql: "SELECT * FROM users"},
		{name: "join inside derived table", sql: "SELECT * FROM (SELECT a.x FROM a JOIN b ON a.id = b.id) s", wantDiag: true},
		{name: "derived table over one table", sql: "SELECT * FROM (SELECT id FROM users) s"},
		{name: "table joined to derived table", sql: "SELECT * FROM users u JOIN (SELECT user_id FROM orders) o ON o.user_id = u.id", wantDiag: true},
	})
	results := runRule(t, "SELECT * FROM (SELECT a.x FROM a JOIN b ON a.id = b.id) s", "ambiguous-columns")
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message, "2 tables")
}

func TestInvalidGroupBy(t *testing.T) {
	runCases(t, "invalid-group-by", []ruleCase{
		{name: "mixed without group by", sql: "SELECT department, COUNT(*) FROM employees", wantDiag: true},
		{name: "grouped", sql: "SELECT department, COUNT(*) FROM employees GROUP BY department"},
		{name: "count star alone", sql: "SELECT COUNT(*) FROM employees"},
		{name: "plain only", sql: "SELECT id, name FROM employees"},
		{name: "unparsed mixed", sql: "SELECT department, SUM(salary) FROM employees WHERE", wantDiag: true},
	})
}

func TestInvalidOrderBy(t *testing.T) {
	runCases(t, "invalid-order-by", []ruleCase{
		{name: "position", sql: "SELECT id, name\nFROM users\nORDER BY 1", wantDiag: true, wantLine: 2},
		{name: "named", sql: "SELECT id FROM users ORDER BY id"},
	})
}

func TestDuplicateAliases(t *testing.T) {
	results := runRule(t, "FROM users u JOIN orders u ON u.id = u.id", "duplicate-aliases")
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message, "'u'")
	requireLine(t, results[0], 0)

	runCases(t, "duplicate-aliases", []ruleCase{
		{name: "parsed", sql: "SELECT u.id\nFROM users u\nJOIN orders u ON u.id = u.user_id", wantDiag: true, wantLine: 2},
		{name: "distinct aliases", sql: "SELECT u.id FROM users u JOIN orders o ON u.id = o.user_id"},
	})
}

func TestKeywordSpelling(t *testing.T) {
	results := runRule(t, "SELCT *\nFROM t", "keyword-spelling")
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message, "SELECT")
	requireLine(t, results[0], 0)
	require.NotNil(t, results[0].SuggestedFix)
	assert.Equal(t, lint.ReplaceOnLine(0, 0, 5, "SELECT"), *results[0].SuggestedFix)

	runCases(t, "keyword-spelling", []ruleCase{
		{name: "fuzzy first word", sql: "SELECT id\nFROM users\nWHEREE id = 1", wantDiag: true, wantLine: 2},
		{name: "single line is skipped", sql: "SELCT * FROM t"},
		{name: "correct", sql: "SELECT id\nFROM users\nWHERE id = 1"},
		{name: "qualified column", sql: "SELECT\n  orders.id\nFROM orders"},
	})
}

func TestKeywordSpelling_MaxDistance(t *testing.T) {
	rule, _ := lint.GetByName("keyword-spelling")
	cfg := lint.NewConfig().SetRuleOptions("keyword-spelling", map[string]any{"max_distance": 0})
	engine := lint.NewEngine(lint.WithRules(rule), lint.WithConfig(cfg))
	assert.Empty(t, engine.Validate("SELECT id\nFROM users\nWHEREE id = 1", "SELECT id\nFROM users\nWHEREE id = 1"))
}

func TestPropertyNameTypos(t *testing.T) {
	doc := "resources:\n  static_entitlement:\n    - id: member"
	results := runScoped(t, lint.ScopeDocument, "", doc, "property-name-typos")
	require.Len(t, results, 1)
	requireLine(t, results[0], 1)
	assert.Equal(t, lint.ReplaceOnLine(1, 2, 20, "static_entitlements"), *results[0].SuggestedFix)

	assert.Empty(t, runScoped(t, lint.ScopeDocument, "", "static_entitlements:\n  - id: member", "property-name-typos"))
}

func TestBatonParameterValidation(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantMsg string
	}{
		{"invalid identifier", "SELECT id FROM t WHERE id = ?<1bad>", "Invalid parameter name '1bad'"},
		{"empty", "SELECT id FROM t WHERE id = ?<>", "Empty parameter name"},
		{"keyword", "SELECT id FROM t WHERE id = ?<select>", "reserved SQL keyword"},
		{"too short", "SELECT id FROM t WHERE id = ?<x>", "too short"},
		{"typo", "SELECT id FROM t LIMIT ?<limt>", "typo of '?<limit>'"},
		{"valid", "SELECT id FROM t WHERE id = ?<user_id> LIMIT ?<Limit>", ""},
		{"custom name", "SELECT id FROM t WHERE org = ?<org_slug>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := runRule(t, tt.sql, "baton-parameter-validation")
			if tt.wantMsg == "" {
				assert.Empty(t, results)
				return
			}
			require.Len(t, results, 1)
			assert.Contains(t, results[0].Message, tt.wantMsg)
			requireLine(t, results[0], 0)
		})
	}
}

func TestCredentialMutualExclusion(t *testing.T) {
	doc := `resource_types:
  user:
    account_provisioning:
      credentials:
        no_password:
          preferred: true
        random_password:
          max_length: 12`
	results := runScoped(t, lint.ScopeDocument, "", doc, "credential-mutual-exclusion")
	require.Len(t, results, 1)
	requireLine(t, results[0], 6)
	assert.Contains(t, results[0].Message, "'no_password' and 'random_password'")

	single := "credentials:\n  random_password:\n    max_length: 12\nother:\n  no_password: {}"
	assert.Empty(t, runScoped(t, lint.ScopeDocument, "", single, "credential-mutual-exclusion"))
}

func TestVarsQueryMismatch(t *testing.T) {
	query := "SELECT id FROM users WHERE id = ?<user_id>"
	tests := []struct {
		name     string
		block    string
		wantMsg  string
		wantLine int
	}{
		{
			name:     "unused var",
			block:    "vars:\n  user_id: principal.ID\n  extra: resource.ID\nquery: |\n  " + query,
			wantMsg:  "not used in the query: extra",
			wantLine: 2,
		},
		{
			name:     "undeclared parameter",
			block:    "vars:\n  user_id: principal.ID\nquery: |\n  " + query + " AND g = ?<group_id>",
			wantMsg:  "not declared in vars: group_id",
			wantLine: 3,
		},
		{
			name:  "matching",
			block: "vars:\n  user_id: principal.ID\nquery: |\n  " + query + " LIMIT ?<Limit>",
		},
		{
			name:  "no vars block",
			block: "query: |\n  " + query,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := runScoped(t, lint.ScopeBlock, query, tt.block, "vars-query-mismatch")
			if tt.wantMsg == "" {
				assert.Empty(t, results)
				return
			}
			require.Len(t, results, 1)
			assert.Contains(t, results[0].Message, tt.wantMsg)
			requireLine(t, results[0], tt.wantLine)
		})
	}
}

func TestTrailingComma(t *testing.T) {
	runCases(t, "trailing-comma", []ruleCase{
		{name: "before from", sql: "SELECT id, name,\nFROM users", wantDiag: true, wantLine: 0},
		{name: "same line", sql: "SELECT id, name, FROM users", wantDiag: true, wantLine: 0},
		{name: "multi-line", sql: "SELECT\n  id,\n  name,\nFROM users", wantDiag: true, wantLine: 2},
		{name: "clean", sql: "SELECT\n  id,\n  name\nFROM users"},
		{name: "comma inside string literal", sql: "SELECT id FROM users WHERE note = 'a, from b'"},
		{name: "comma after the select list", sql: "SELECT id FROM users WHERE id IN (1, 2) ORDER BY id"},
		{name: "quoted identifier", sql: `SELECT "a,", id, FROM users`, wantDiag: true, wantLine: 0},
	})

	results := runRule(t, "SELECT id, name,\nFROM users", "trailing-comma")
	require.Len(t, results, 1)
	assert.Equal(t, lint.ReplaceOnLine(0, 15, 16, ""), *results[0].SuggestedFix)
}

func TestUnconventionalSQLSyntax(t *testing.T) {
	runCases(t, "unconventional-sql-syntax", []ruleCase{
		{name: "on conflict without do", sql: "INSERT INTO t (id) VALUES (1)\nON CONFLICT (id)", wantDiag: true, wantLine: 1},
		{name: "on conflict do nothing", sql: "INSERT INTO t (id) VALUES (1) ON CONFLICT (id) DO NOTHING"},
		{name: "bare returning", sql: "DELETE FROM t WHERE id = 1 RETURNING", wantDiag: true},
		{name: "single coalesce", sql: "SELECT COALESCE(a) FROM t", wantDiag: true},
		{name: "coalesce", sql: "SELECT COALESCE(a, b) FROM t"},
		{name: "date literal", sql: "SELECT * FROM t WHERE d > DATE '2024/01/01'", wantDiag: true},
		{name: "iso date", sql: "SELECT * FROM t WHERE d > DATE '2024-01-01'"},
		{name: "interval without unit", sql: "SELECT NOW() - INTERVAL '5'", wantDiag: true},
		{name: "interval with unit", sql: "SELECT NOW() - INTERVAL '5' DAY"},
		{name: "gen_salt without algorithm", sql: "SELECT crypt(?<pw>, gen_salt())", wantDiag: true},
		{name: "crypt arity", sql: "SELECT crypt(?<pw>)", wantDiag: true},
		{name: "crypt", sql: "SELECT crypt(?<pw>, gen_salt('bf'))"},
	})
}

func TestEngine_AllRules(t *testing.T) {
	engine := lint.NewEngine()
	sql := "SELECT\n  id,\n  name\n  email\nFROM users"

	first := engine.Validate(sql, sql)
	assert.Equal(t, first, engine.Validate(sql, sql))

	var commas []lint.ValidationResult
	for _, r := range first {
		if r.Rule == "missing-comma" {
			commas = append(commas, r)
		}
	}
	require.Len(t, commas, 1)
	requireLine(t, commas[0], 2)
}

func TestEngine_NamedParametersDoNotChangeFindings(t *testing.T) {
	paramRules := map[string]bool{"baton-parameter-validation": true, "vars-query-mismatch": true}
	withoutParamRules := func(results []lint.ValidationResult) []lint.ValidationResult {
		var out []lint.ValidationResult
		for _, r := range results {
			if !paramRules[r.Rule] {
				out = append(out, r)
			}
		}
		return out
	}

	tests := []struct {
		name string
		sql  string
	}{
		{"param in select list", "SELECT\n  id,\n  ?<tenant_id> AS tenant,\n  name\n  email\nFROM users\nWHERE org_id = ?<org_id>"},
		{"param in join condition", "SELECT u.id, o.total\nFROM users u\nJOIN orders o ON o.user_id = u.id AND o.tenant = ?<tenant_id>\nWHERE u.id = ?<user_id>\nORDER BY 1"},
		{"star with param join", "SELECT *\nFROM users u\nJOIN orders o ON o.user_id = ?<user_id>"},
		{"aggregate with param filter", "SELECT department, COUNT(*)\nFROM employees\nWHERE hired_at > ?<since>"},
		{"misspelled keyword", "SELCT id, ?<label>\nFROM users"},
		{"trailing comma", "SELECT id, name,\nFROM users\nWHERE id = ?<user_id>"},
		{"crypt arity", "SELECT crypt(?<password>) FROM accounts"},
		{"clean", "SELECT id\nFROM users\nWHERE id = ?<user_id>\n  AND org_id = ?<org_id>"},
	}
	engine := lint.NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized := lint.Normalize(tt.sql)
			require.NotEqual(t, tt.sql, normalized)
			assert.Equal(t,
				withoutParamRules(engine.Validate(normalized, normalized)),
				withoutParamRules(engine.Validate(tt.sql, tt.sql)))
		})
	}
}

func TestEngine_NeverPanics(t *testing.T) {
	engine := lint.NewEngine()
	for _, sql := range []string{"", "   ", "(((", ")))", "'unterminated", "?<", "SELECT\x00", "\n\n\n", "JOIN", "credentials:\nvars:"} {
		assert.NotPanics(t, func() { engine.Validate(sql, sql) }, "%q", sql)
		assert.NotPanics(t, func() { engine.ValidateScoped(lint.ScopeDocument, "", sql) }, "%q", sql)
	}
}
