package rules

import (
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
)

// PropertyNameTypos catches misspellings of baton-sql configuration keys.
var PropertyNameTypos = lint.RuleDef{
	Name:        "property-name-typos",
	Group:       "baton",
	Description: "Configuration keys must match the names baton-sql expects.",
	Severity:    lint.SeverityError,
	Scopes:      lint.ScopeDocument,
	Check:       checkPropertyNameTypos,

	Rationale: `Unknown keys are ignored by the YAML decoder, so a misspelled section
silently disappears from the connector configuration.`,

	BadExample: `static_entitlement:
  - id: member`,
	GoodExample: `static_entitlements:
  - id: member`,
	Fix: "Rename the key to the suggested spelling.",
}

// propertyTypos maps known misspellings, including the colon, to the
// correct key.
var propertyTypos = []struct {
	typo, fix string
}{
	{"static_entitlement:", "static_entitlements:"},
	{"staticentitlements:", "static_entitlements:"},
	{"static-entitlements:", "static_entitlements:"},
	{"staticEntitlements:", "static_entitlements:"},
	{"static_entitlments:", "static_entitlements:"},
	{"static_entitelments:", "static_entitlements:"},
	{"static_entitlemnts:", "static_entitlements:"},
	{"statc_entitlements:", "static_entitlements:"},
}

func checkPropertyNameTypos(in *lint.Input) lint.ValidationResult {
	for i, line := range in.Lines() {
		for _, p := range propertyTypos {
			col := strings.Index(line, p.typo)
			if col < 0 || (col > 0 && isKeyChar(line[col-1])) {
				continue
			}
			typo := strings.TrimSuffix(p.typo, ":")
			fix := strings.TrimSuffix(p.fix, ":")
			return lint.Invalid("Unknown property '%s'; did you mean '%s'?", typo, fix).
				AtLine(i).
				WithFix(lint.ReplaceOnLine(i, col, col+len(typo), fix))
		}
	}
	return lint.Valid()
}

func isKeyChar(c byte) bool {
	return c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
