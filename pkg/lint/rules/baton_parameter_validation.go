package rules

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
)

// BatonParameterValidation checks the names of ?<name> parameters.
var BatonParameterValidation = lint.RuleDef{
	Name:        "baton-parameter-validation",
	Group:       "baton",
	Description: "Named parameters must be valid identifiers and should not shadow keywords.",
	Severity:    lint.SeverityError,
	Check:       checkBatonParameters,
	ConfigKeys:  []string{"common_parameters"},

	Rationale: `baton-sql substitutes ?<name> from vars and pagination state. A name that
is not an identifier is never substituted and reaches the database verbatim.`,

	BadExample:  `SELECT id FROM users WHERE id = ?<1user>`,
	GoodExample: `SELECT id FROM users WHERE id = ?<user_id>`,
	Fix:         "Use a descriptive name made of letters, digits and underscores.",
}

// defaultCommonParameters are parameter names that typos are checked
// against.
var defaultCommonParameters = []string{
	"limit", "offset", "cursor", "resource_id", "user_id", "group_id", "role_id",
	"account_id", "entitlement_id", "principal_id", "email", "username", "login",
}

var (
	paramRe      = regexp.MustCompile(`\?<([^<>]*)>`)
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func checkBatonParameters(in *lint.Input) lint.ValidationResult {
	common := lint.GetStringSliceOption(in.Options, "common_parameters", defaultCommonParameters)
	for _, m := range paramRe.FindAllStringSubmatchIndex(in.Original, -1) {
		name := in.Original[m[2]:m[3]]
		line := lexical.LineOfOffset(in.Original, m[2])
		col := lexical.ColumnOfOffset(in.Original, m[2])

		switch {
		case name == "":
			return lint.Invalid("Empty parameter name in '?<>'").AtLine(line)
		case !identifierRe.MatchString(name):
			return lint.Invalid("Invalid parameter name '%s': names must start with a letter or underscore and contain only letters, digits and underscores", name).AtLine(line)
		case lexical.IsKeyword(name):
			rename := strings.ToLower(name) + "_value"
			return lint.Invalid("Parameter name '%s' is a reserved SQL keyword; consider '%s'", name, rename).
				AtLine(line).
				WithFix(lint.ReplaceOnLine(line, col, col+len(name), rename))
		case len(name) < 2:
			return lint.Invalid("Parameter name '%s' is too short; use a descriptive name", name).AtLine(line)
		}

		if isCommon(name, common) {
			continue
		}
		if want, ok := lexical.Closest(name, common, 1); ok {
			return lint.Invalid("Parameter '?<%s>' looks like a typo of '?<%s>'", name, want).
				AtLine(line).
				WithFix(lint.ReplaceOnLine(line, col, col+len(name), want))
		}
	}
	return lint.Valid()
}

func isCommon(name string, common []string) bool {
	for _, c := range common {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}
