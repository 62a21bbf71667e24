package rules

import (
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
)

// CredentialMutualExclusion flags credential blocks that enable two
// options that cannot be combined.
var CredentialMutualExclusion = lint.RuleDef{
	Name:        "credential-mutual-exclusion",
	Group:       "baton",
	Description: "A credentials block may set only one of a set of mutually exclusive options.",
	Severity:    lint.SeverityError,
	Scopes:      lint.ScopeDocument,
	Check:       checkCredentialExclusion,
	ConfigKeys:  []string{"exclusive_keys"},

	Rationale: `Account provisioning either creates the account without a password or
generates a random one. Declaring both makes the behavior depend on decoder
order.`,

	BadExample: `credentials:
  no_password:
    preferred: true
  random_password:
    min_length: 12`,

	GoodExample: `credentials:
  random_password:
    min_length: 12`,

	Fix: "Remove all but one of the exclusive options.",
}

var defaultExclusiveCredentials = []string{"no_password", "random_password"}

func checkCredentialExclusion(in *lint.Input) lint.ValidationResult {
	exclusive := lint.GetStringSliceOption(in.Options, "exclusive_keys", defaultExclusiveCredentials)
	if len(exclusive) < 2 {
		return lint.Valid()
	}
	for _, block := range lexical.BlockKeys(in.Lines(), "credentials:") {
		var found []lexical.BlockEntry
		for _, entry := range block {
			for _, key := range exclusive {
				if entry.Key == key {
					found = append(found, entry)
				}
			}
		}
		if len(found) > 1 {
			keys := make([]string, len(found))
			for i, f := range found {
				keys[i] = "'" + f.Key + "'"
			}
			return lint.Invalid("Credential options %s are mutually exclusive; keep only one", strings.Join(keys, " and ")).
				AtLine(found[1].Line)
		}
	}
	return lint.Valid()
}
