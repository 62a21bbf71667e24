// Package rules provides the batonlint rule implementations.
//
// Rules are organized by group:
//   - syntax: statements that will not parse or parse into something else
//   - ambiguous: constructs whose result depends on the database
//   - convention: legal SQL that is fragile or pointless
//   - baton: baton-sql configuration, parameters and vars
//
// To register all rules with the global lint registry, import this package
// with a blank identifier:
//
//	import _ "github.com/leapstack-labs/batonlint/pkg/lint/rules"
package rules
