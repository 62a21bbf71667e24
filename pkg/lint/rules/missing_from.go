package rules

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
)

// MissingFrom flags SELECT statements that read columns without a FROM.
var MissingFrom = lint.RuleDef{
	Name:        "missing-from",
	Group:       "syntax",
	Description: "A SELECT that references columns needs a FROM clause.",
	Severity:    lint.SeverityError,
	Check:       checkMissingFrom,

	Rationale: `SELECT without FROM is only meaningful for constants, arithmetic and
system functions. Anything else usually means the FROM line was lost while
editing.`,

	BadExample:  `SELECT id, name`,
	GoodExample: `SELECT id, name FROM users`,
	Fix:         "Add the FROM clause naming the table the columns come from.",
}

var (
	selectWordRe = regexp.MustCompile(`(?i)\bselect\b`)
	fromWordRe   = regexp.MustCompile(`(?i)\bfrom\b`)
	aliasSuffix  = `(\s+(?i:as\s+)?[A-Za-z_]\w*)?`

	fromlessItems = []*regexp.Regexp{
		// literals and placeholders
		regexp.MustCompile(`^(?i:'([^']|'')*'|-?\d+(\.\d+)?|true|false|null|\?)` + aliasSuffix + `$`),
		// arithmetic on numbers
		regexp.MustCompile(`^[\d\s+\-*/%().]+` + aliasSuffix + `$`),
		// date and session builtins written without parentheses
		regexp.MustCompile(`^(?i:current_timestamp|current_date|current_time|localtimestamp|localtime|current_user|session_user|current_schema|user)` + aliasSuffix + `$`),
		// function calls
		regexp.MustCompile(`^[A-Za-z_][\w.]*\s*\(.*\)` + aliasSuffix + `$`),
		// session variables
		regexp.MustCompile(`^@@?[\w.]+` + aliasSuffix + `$`),
	}
)

func checkMissingFrom(in *lint.Input) lint.ValidationResult {
	if res := in.Parse(); res.OK() {
		sel := res.Select()
		if sel == nil || len(sel.From) > 0 || fromlessSelect(in.SQL) {
			return lint.Valid()
		}
		return missingFromResult(in)
	}

	trimmed := strings.TrimSpace(in.SQL)
	if !strings.HasPrefix(strings.ToLower(trimmed), "select") || fromWordRe.MatchString(trimmed) {
		return lint.Valid()
	}
	if fromlessSelect(trimmed) {
		return lint.Valid()
	}
	return missingFromResult(in)
}

// fromlessSelect reports whether every select-list item is something that
// can be evaluated without a table.
func fromlessSelect(sql string) bool {
	loc := selectWordRe.FindStringIndex(sql)
	if loc == nil {
		return false
	}
	list := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql[loc[1]:]), ";"))
	if list == "" {
		return false
	}
	for _, item := range lexical.SplitTopLevel(list) {
		if !matchesAny(fromlessItems, item) {
			return false
		}
	}
	return true
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func missingFromResult(in *lint.Input) lint.ValidationResult {
	lines := in.Lines()
	line := lexical.FindLine(lines, selectWordRe)
	if line < 0 {
		line = 0
	}
	last := len(lines) - 1
	return lint.Invalid("SELECT statement is missing a FROM clause").
		AtLine(line).
		WithFix(lint.InsertAt(last, lexical.TrimmedEnd(lines[last]), "\nFROM table_name"))
}
