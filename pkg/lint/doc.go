// Package lint provides the heuristic SQL rule engine behind batonlint.
//
// # Architecture
//
// The package has three layers:
//
//  1. Root package (pkg/lint/): result types, the ordered rule registry,
//     configuration and the caching Engine
//  2. Rules (pkg/lint/rules/): one file per rule, registered from init
//  3. Lexical helpers (pkg/lint/internal/lexical/): line scanning and fuzzy
//     matching shared by rules
//
// # Rule Registration
//
// Rules are registered when their package is imported:
//
//	import _ "github.com/leapstack-labs/batonlint/pkg/lint/rules"
//
// Registration order is execution order, and results keep that order.
//
// # Validating
//
//	engine := lint.NewEngine()
//	for _, r := range engine.Validate(sql, sql) {
//		fmt.Println(r.Rule, r.Message)
//	}
//
// Every rule runs on every call: findings are collected, never
// short-circuited. Rules that need more than the query text declare extra
// scopes and run through ValidateScoped with the enclosing YAML block or
// the whole document as the original text.
//
// # Configuration
//
//	config := lint.NewConfig()
//	config.Disable("invalid-order-by")
//	config.SetSeverity("ambiguous-columns", lint.SeverityError)
//	config.SetRuleOptions("keyword-spelling", map[string]any{"max_distance": 2})
//	engine.SetConfig(config)
package lint
