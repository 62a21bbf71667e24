package rules

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
)

// VarsQueryMismatch compares a block's vars with the parameters its query
// uses.
var VarsQueryMismatch = lint.RuleDef{
	Name:        "vars-query-mismatch",
	Group:       "baton",
	Description: "Every declared var should be used by the query and every parameter declared.",
	Severity:    lint.SeverityWarning,
	Scopes:      lint.ScopeBlock,
	Check:       checkVarsQueryMismatch,

	Rationale: `An undeclared parameter is sent to the database as literal text. An
unused var usually means the query was edited and the filter it fed is gone.`,

	BadExample: `vars:
  user_id: principal.ID
query: |
  SELECT id FROM grants WHERE group_id = ?<group_id>`,

	GoodExample: `vars:
  group_id: resource.ID
query: |
  SELECT id FROM grants WHERE group_id = ?<group_id>`,
}

// builtinParams are filled in by the pagination layer, not vars.
var builtinParams = map[string]bool{"limit": true, "offset": true, "cursor": true}

var usedParamRe = regexp.MustCompile(`\?<([A-Za-z_][A-Za-z0-9_]*)>`)

func checkVarsQueryMismatch(in *lint.Input) lint.ValidationResult {
	type use struct {
		name string
		line int
	}
	var used []use
	usedSet := make(map[string]bool)
	for _, m := range usedParamRe.FindAllStringSubmatchIndex(in.Original, -1) {
		name := in.Original[m[2]:m[3]]
		if usedSet[name] {
			continue
		}
		usedSet[name] = true
		used = append(used, use{name: name, line: lexical.LineOfOffset(in.Original, m[0])})
	}
	if len(used) == 0 {
		return lint.Valid()
	}

	blocks := lexical.BlockKeys(in.Lines(), "vars:")
	if len(blocks) == 0 {
		return lint.Valid()
	}
	declared := make(map[string]bool)
	var unused []lexical.BlockEntry
	for _, block := range blocks {
		for _, entry := range block {
			declared[entry.Key] = true
			if !usedSet[entry.Key] {
				unused = append(unused, entry)
			}
		}
	}

	if len(unused) > 0 {
		names := make([]string, len(unused))
		for i, u := range unused {
			names[i] = u.Key
		}
		return lint.Invalid("Vars declared but not used in the query: %s", strings.Join(names, ", ")).
			AtLine(unused[0].Line)
	}

	var undefined []string
	line := -1
	for _, u := range used {
		if declared[u.name] || builtinParams[strings.ToLower(u.name)] {
			continue
		}
		undefined = append(undefined, u.name)
		if line < 0 {
			line = u.line
		}
	}
	if len(undefined) > 0 {
		return lint.Invalid("Parameters used in the query but not declared in vars: %s", strings.Join(undefined, ", ")).
			AtLine(line)
	}
	return lint.Valid()
}
