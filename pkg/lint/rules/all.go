package rules

import "github.com/leapstack-labs/batonlint/pkg/lint"

// All lists every rule in execution order.
var All = []lint.RuleDef{
	MissingComma,
	MissingFrom,
	UnclosedParentheses,
	InvalidJoin,
	AmbiguousColumns,
	InvalidGroupBy,
	InvalidOrderBy,
	DuplicateAliases,
	KeywordSpelling,
	PropertyNameTypos,
	BatonParameterValidation,
	CredentialMutualExclusion,
	VarsQueryMismatch,
	TrailingComma,
	UnconventionalSQLSyntax,
}

func init() {
	lint.Register(All...)
}
