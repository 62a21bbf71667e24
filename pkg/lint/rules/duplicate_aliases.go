package rules

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
)

// DuplicateAliases flags one alias bound to two tables.
var DuplicateAliases = lint.RuleDef{
	Name:        "duplicate-aliases",
	Group:       "ambiguous",
	Description: "Table aliases must be unique within a FROM clause.",
	Severity:    lint.SeverityError,
	Check:       checkDuplicateAliases,

	Rationale: `Reusing an alias makes every reference through it ambiguous. Most
databases reject the query outright.`,

	BadExample:  `SELECT u.id FROM users u JOIN orders u ON u.id = u.user_id`,
	GoodExample: `SELECT u.id FROM users u JOIN orders o ON u.id = o.user_id`,
	Fix:         "Give each table its own alias.",
}

var aliasBindingRe = regexp.MustCompile(`(?i)\b(?:from|join)\s+([\w.]+)\s+(?:as\s+)?([A-Za-z_]\w*)`)

func checkDuplicateAliases(in *lint.Input) lint.ValidationResult {
	if res := in.Parse(); res.OK() {
		sel := res.Select()
		if sel == nil {
			return lint.Valid()
		}
		seen := make(map[string]string)
		for _, item := range sel.From {
			if item.Alias == "" {
				continue
			}
			key := strings.ToLower(item.Alias)
			if first, dup := seen[key]; dup {
				return duplicateAliasAt(in, item.Alias, first, item.Table)
			}
			seen[key] = item.Table
		}
		return lint.Valid()
	}

	seen := make(map[string]string)
	for _, m := range aliasBindingRe.FindAllStringSubmatch(in.SQL, -1) {
		table, alias := m[1], m[2]
		if lexical.IsKeyword(alias) {
			continue
		}
		key := strings.ToLower(alias)
		if first, dup := seen[key]; dup {
			return duplicateAliasAt(in, alias, first, table)
		}
		seen[key] = table
	}
	return lint.Valid()
}

// duplicateAliasAt reports on the line of the second binding of alias.
func duplicateAliasAt(in *lint.Input, alias, first, second string) lint.ValidationResult {
	line := 0
	count := 0
	for _, loc := range aliasBindingRe.FindAllStringSubmatchIndex(in.Original, -1) {
		if !strings.EqualFold(in.Original[loc[4]:loc[5]], alias) {
			continue
		}
		count++
		if count == 2 {
			line = lexical.LineOfOffset(in.Original, loc[0])
			break
		}
	}
	return lint.Invalid("Alias '%s' is used for both '%s' and '%s'", alias, first, second).AtLine(line)
}
