package rules

import (
	"regexp"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

// AmbiguousColumns flags SELECT * when more than one table is in scope.
var AmbiguousColumns = lint.RuleDef{
	Name:        "ambiguous-columns",
	Group:       "ambiguous",
	Description: "SELECT * over several tables returns duplicate and ambiguous column names.",
	Severity:    lint.SeverityWarning,
	Check:       checkAmbiguousColumns,

	Rationale: `With joins, SELECT * returns every column of every table. Columns such as
id appear more than once and the connector may map the wrong one.`,

	BadExample: `SELECT *
FROM users u
JOIN memberships m ON m.user_id = u.id`,

	GoodExample: `SELECT u.id, u.email, m.group_id
FROM users u
JOIN memberships m ON m.user_id = u.id`,

	Fix: "List the needed columns explicitly, qualified by table alias.",
}

var (
	selectStarRe  = regexp.MustCompile(`(?i)\bselect\s+\*`)
	selectStarAny = regexp.MustCompile(`(?is)\bselect\s+\*.*\bfrom\b.*\bjoin\b`)
)

func checkAmbiguousColumns(in *lint.Input) lint.ValidationResult {
	if res := in.Parse(); res.OK() {
		sel := res.Select()
		if sel == nil || !hasBareStar(sel.Columns) {
			return lint.Valid()
		}
		tables := countSources(sel)
		if tables < 2 {
			return lint.Valid()
		}
		return ambiguousColumnsAt(in.Lines(), tables)
	}
	if !selectStarAny.MatchString(in.SQL) {
		return lint.Valid()
	}
	return ambiguousColumnsAt(in.Lines(), 0)
}

// countSources counts the tables behind a FROM clause. A derived table
// contributes the tables of its own FROM clause, or one when it has none.
func countSources(sel *sqlast.Select) int {
	n := 0
	for _, item := range sel.From {
		if item.Subquery != nil && len(item.Subquery.From) > 0 {
			n += countSources(item.Subquery)
			continue
		}
		n++
	}
	return n
}

func hasBareStar(columns []sqlast.Column) bool {
	for _, c := range columns {
		if c.Kind == sqlast.ColumnStar && c.Qualifier == "" {
			return true
		}
	}
	return false
}

func ambiguousColumnsAt(lines []string, tables int) lint.ValidationResult {
	line := lexical.FindLine(lines, selectStarRe)
	if line < 0 {
		line = max(lexical.FindLine(lines, selectWordRe), 0)
	}
	if tables > 0 {
		return lint.Invalid("SELECT * across %d tables makes column names ambiguous; list the columns explicitly", tables).AtLine(line)
	}
	return lint.Invalid("SELECT * with JOIN makes column names ambiguous; list the columns explicitly").AtLine(line)
}
