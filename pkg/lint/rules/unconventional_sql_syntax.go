package rules

import (
	"regexp"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
)

// UnconventionalSQLSyntax probes for constructs that parse in some dialects
// but rarely do what was meant.
var UnconventionalSQLSyntax = lint.RuleDef{
	Name:        "unconventional-sql-syntax",
	Group:       "convention",
	Description: "Flags incomplete or suspicious clauses and function calls.",
	Severity:    lint.SeverityInfo,
	Check:       checkUnconventionalSyntax,

	Rationale: `These constructs are either incomplete (ON CONFLICT without DO) or
legal but pointless (COALESCE with one argument) and usually point at an
editing mistake.`,

	BadExample:  `INSERT INTO users (id) VALUES (?<id>) ON CONFLICT (id)`,
	GoodExample: `INSERT INTO users (id) VALUES (?<id>) ON CONFLICT (id) DO NOTHING`,
}

var (
	onConflictRe    = regexp.MustCompile(`(?i)\bon\s+conflict\b`)
	conflictDoRe    = regexp.MustCompile(`(?i)\bdo\s+(nothing|update)\b`)
	bareReturningRe = regexp.MustCompile(`(?i)\breturning\s*;?\s*$`)
	coalesceRe      = regexp.MustCompile(`(?i)\bcoalesce\s*\(`)
	dateLiteralRe   = regexp.MustCompile(`(?i)\bdate\s+'([^']*)'`)
	isoDateRe       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	intervalRe      = regexp.MustCompile(`(?i)\binterval\s+('\s*[\d.]+\s*'|\d+)`)
	intervalUnitRe  = regexp.MustCompile(`(?i)^\s+(year|month|week|day|hour|minute|second|microsecond)s?\b`)
	genSaltRe       = regexp.MustCompile(`(?i)\bgen_salt\s*\(\s*\)`)
	cryptRe         = regexp.MustCompile(`(?i)\bcrypt\s*\(`)
)

// syntaxProbe returns the offset of a problem in text and its message.
type syntaxProbe func(text string) (offset int, msg string, ok bool)

var syntaxProbes = []syntaxProbe{
	func(text string) (int, string, bool) {
		loc := onConflictRe.FindStringIndex(text)
		if loc == nil || conflictDoRe.MatchString(text[loc[1]:]) {
			return 0, "", false
		}
		return loc[0], "ON CONFLICT needs DO NOTHING or DO UPDATE", true
	},
	func(text string) (int, string, bool) {
		loc := bareReturningRe.FindStringIndex(text)
		if loc == nil {
			return 0, "", false
		}
		return loc[0], "RETURNING must list at least one column or *", true
	},
	func(text string) (int, string, bool) {
		for _, loc := range coalesceRe.FindAllStringIndex(text, -1) {
			if n, closed := lexical.CallArgs(text, loc[1]-1); closed && n == 1 {
				return loc[0], "COALESCE with a single argument has no effect", true
			}
		}
		return 0, "", false
	},
	func(text string) (int, string, bool) {
		for _, m := range dateLiteralRe.FindAllStringSubmatchIndex(text, -1) {
			if !isoDateRe.MatchString(text[m[2]:m[3]]) {
				return m[0], "DATE literal '" + text[m[2]:m[3]] + "' should use the YYYY-MM-DD format", true
			}
		}
		return 0, "", false
	},
	func(text string) (int, string, bool) {
		for _, loc := range intervalRe.FindAllStringIndex(text, -1) {
			if !intervalUnitRe.MatchString(text[loc[1]:]) {
				return loc[0], "INTERVAL value has no unit", true
			}
		}
		return 0, "", false
	},
	func(text string) (int, string, bool) {
		loc := genSaltRe.FindStringIndex(text)
		if loc == nil {
			return 0, "", false
		}
		return loc[0], "gen_salt() needs an algorithm such as 'bf'", true
	},
	func(text string) (int, string, bool) {
		for _, loc := range cryptRe.FindAllStringIndex(text, -1) {
			if n, closed := lexical.CallArgs(text, loc[1]-1); closed && n != 2 {
				return loc[0], "crypt() takes exactly two arguments: password and salt", true
			}
		}
		return 0, "", false
	},
}

func checkUnconventionalSyntax(in *lint.Input) lint.ValidationResult {
	for _, probe := range syntaxProbes {
		if offset, msg, ok := probe(in.Original); ok {
			return lint.Invalid("%s", msg).AtLine(lexical.LineOfOffset(in.Original, offset))
		}
	}
	return lint.Valid()
}
