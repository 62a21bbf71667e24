package rules

import (
	"github.com/leapstack-labs/batonlint/pkg/lint"
)

// UnclosedParentheses surfaces parser errors about unbalanced parentheses.
var UnclosedParentheses = lint.RuleDef{
	Name:        "unclosed-parentheses",
	Group:       "syntax",
	Description: "Every opening parenthesis needs a matching closing one.",
	Severity:    lint.SeverityError,
	Check:       checkUnclosedParentheses,

	Rationale: `An unbalanced parenthesis makes the whole statement unparseable, and the
database error usually points at the end of the query rather than the
opening parenthesis.`,

	BadExample:  `SELECT COUNT(id FROM users`,
	GoodExample: `SELECT COUNT(id) FROM users`,
}

func checkUnclosedParentheses(in *lint.Input) lint.ValidationResult {
	res := in.Parse()
	if res.OK() || res.Err == nil || !res.Err.Mentions("parenthesis") {
		return lint.Valid()
	}
	lines := in.Lines()
	line := len(lines) - 1
	if res.Err.HasLocation && res.Err.Line-1 < len(lines) {
		line = res.Err.Line - 1
	}
	return lint.Invalid("%s", res.Err.Message).AtLine(line)
}
