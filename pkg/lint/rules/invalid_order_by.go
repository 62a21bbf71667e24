package rules

import (
	"regexp"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
)

// InvalidOrderBy discourages ordering by column position.
var InvalidOrderBy = lint.RuleDef{
	Name:        "invalid-order-by",
	Group:       "convention",
	Description: "ORDER BY should name columns rather than use their position.",
	Severity:    lint.SeverityInfo,
	Check:       checkInvalidOrderBy,

	Rationale: `ORDER BY 1 depends on the select-list order. Adding or reordering a
column silently changes the sort, which breaks pagination.`,

	BadExample:  `SELECT id, name FROM users ORDER BY 1`,
	GoodExample: `SELECT id, name FROM users ORDER BY id`,
}

var orderByPositionRe = regexp.MustCompile(`(?i)\border\s+by\s+(\d+)\b`)

func checkInvalidOrderBy(in *lint.Input) lint.ValidationResult {
	m := orderByPositionRe.FindStringSubmatchIndex(in.Original)
	if m == nil {
		return lint.Valid()
	}
	return lint.Invalid("ORDER BY uses column position %s; name the column instead", in.Original[m[2]:m[3]]).
		AtLine(lexical.LineOfOffset(in.Original, m[0]))
}
