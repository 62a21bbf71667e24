package rules

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

// InvalidGroupBy flags aggregates mixed with plain columns and no GROUP BY.
var InvalidGroupBy = lint.RuleDef{
	Name:        "invalid-group-by",
	Group:       "ambiguous",
	Description: "Mixing aggregate functions with plain columns requires GROUP BY.",
	Severity:    lint.SeverityWarning,
	Check:       checkInvalidGroupBy,

	Rationale: `Most databases reject a plain column next to an aggregate unless it is
grouped. MySQL without ONLY_FULL_GROUP_BY accepts it and returns an arbitrary
row's value instead.`,

	BadExample:  `SELECT department, COUNT(*) FROM employees`,
	GoodExample: `SELECT department, COUNT(*) FROM employees GROUP BY department`,
	Fix:         "Add GROUP BY listing every non-aggregated column.",
}

var (
	groupByRe    = regexp.MustCompile(`(?i)\bgroup\s+by\b`)
	aggregateRe  = regexp.MustCompile(`(?i)^(count|sum|avg|min|max|group_concat|string_agg|array_agg|json_agg|bool_and|bool_or)\s*\(`)
	plainColRe   = regexp.MustCompile(`^[A-Za-z_][\w]*(\.[A-Za-z_][\w]*)?(\s+(?i:as\s+)?[A-Za-z_]\w*)?$`)
	selectListRe = regexp.MustCompile(`(?is)\bselect\s+(.*?)\s+\bfrom\b`)
)

func checkInvalidGroupBy(in *lint.Input) lint.ValidationResult {
	if res := in.Parse(); res.OK() {
		sel := res.Select()
		if sel == nil || sel.HasGroupBy {
			return lint.Valid()
		}
		if len(sel.Columns) == 1 && sel.Columns[0].CountStar {
			return lint.Valid()
		}
		var plain []string
		hasAgg := false
		for _, c := range sel.Columns {
			switch c.Kind {
			case sqlast.ColumnAggregate:
				hasAgg = true
			case sqlast.ColumnRef:
				plain = append(plain, c.Name)
			}
		}
		if !hasAgg || len(plain) == 0 {
			return lint.Valid()
		}
		return invalidGroupByAt(in.Lines(), plain)
	}

	m := selectListRe.FindStringSubmatch(in.SQL)
	if m == nil || groupByRe.MatchString(in.SQL) {
		return lint.Valid()
	}
	var plain []string
	hasAgg := false
	for _, item := range lexical.SplitTopLevel(m[1]) {
		switch {
		case aggregateRe.MatchString(item):
			hasAgg = true
		case plainColRe.MatchString(item) && !lexical.IsKeyword(lexical.Words(item)[0].Text):
			plain = append(plain, strings.Fields(item)[0])
		}
	}
	if !hasAgg || len(plain) == 0 {
		return lint.Valid()
	}
	return invalidGroupByAt(in.Lines(), plain)
}

func invalidGroupByAt(lines []string, plain []string) lint.ValidationResult {
	line := max(lexical.FindLine(lines, selectWordRe), 0)
	return lint.Invalid("Aggregate functions are mixed with non-aggregated columns (%s) without GROUP BY", strings.Join(plain, ", ")).AtLine(line)
}
