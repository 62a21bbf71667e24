package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/batonlint/internal/config"
	"github.com/leapstack-labs/batonlint/pkg/lint"
	_ "github.com/leapstack-labs/batonlint/pkg/lint/rules"
)

// groupDescriptions provides human-readable descriptions for rule groups.
var groupDescriptions = map[string]string{
	"syntax":     "Rules that catch SQL which will not parse or run.",
	"ambiguous":  "Rules about queries that parse but are likely wrong.",
	"convention": "Rules about spelling and SQL conventions.",
	"baton":      "Rules about baton-sql configuration such as parameters, credentials and property names.",
}

// generateLintDocs generates all lint documentation files.
func generateLintDocs(outDir string) error {
	log.Printf("Generating lint docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rules := lint.GetAll()

	if err := generateLintIndex(outDir, rules); err != nil {
		return err
	}
	log.Printf("  Generated index.md")

	if err := generateRulesPage(outDir, rules); err != nil {
		return err
	}
	log.Printf("  Generated rules.md")

	if err := generateConfigPage(outDir); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")

	return nil
}

// generateLintIndex generates the main linting overview page.
func generateLintIndex(outDir string, rules []lint.RuleDef) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Linting", "Lint rules for SQL embedded in baton-sql configs")
	w.GeneratedMarker()

	w.Header(1, "Linting")
	w.Paragraph(fmt.Sprintf("batonlint ships %s. Each rule runs against every SQL query discovered in a connector YAML file; some also inspect the surrounding mapping or the whole document.", Bold(fmt.Sprintf("%d rules", len(rules)))))

	w.Header(2, "Rule Groups")
	var rows [][]string
	for _, g := range groupRules(rules) {
		rows = append(rows, []string{Bold(g.name), fmt.Sprintf("%d", len(g.rules)), groupDescriptions[g.name]})
	}
	w.Table([]string{"Group", "Rules", "Description"}, rows)

	w.Header(2, "Running the Linter")
	w.CodeBlock("bash", `# Lint every YAML file under the current directory
batonlint lint

# Only report errors, as JSON
batonlint lint --severity error -o json connectors/

# Run a single rule
batonlint lint --rule missing-comma`)

	w.Header(2, "Editor Integration")
	w.Paragraph("Run " + InlineCode("batonlint lsp") + " as a language server over stdio. Diagnostics are published as you type and rules with a fix offer a quick fix code action.")

	w.Header(2, "Documentation")
	w.BulletList([]string{
		"[Rules](/linting/rules) - Every rule with examples",
		"[Configuration](/linting/configuration) - Disabling rules and changing severities",
	})

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

// generateRulesPage documents every rule, grouped.
func generateRulesPage(outDir string, rules []lint.RuleDef) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Rules", "Reference for every batonlint rule")
	w.GeneratedMarker()

	w.Header(1, "Rules")

	groups := groupRules(rules)
	for _, g := range groups {
		w.Header(2, Title(g.name))
		if desc := groupDescriptions[g.name]; desc != "" {
			w.Paragraph(desc)
		}

		var rows [][]string
		for _, r := range g.rules {
			rows = append(rows, []string{
				fmt.Sprintf("[%s](#%s)", InlineCode(r.Name), r.Name),
				r.Severity.String(),
				cleanDescription(r.Description),
			})
		}
		w.Table([]string{"Rule", "Severity", "Description"}, rows)

		for _, r := range g.rules {
			writeRuleDoc(w, r)
		}
	}

	return os.WriteFile(filepath.Join(outDir, "rules.md"), w.Bytes(), 0600)
}

// writeRuleDoc writes the section for one rule.
func writeRuleDoc(w *MarkdownWriter, r lint.RuleDef) {
	w.Header(3, r.Name)
	w.Paragraph(r.Description)

	w.BulletList([]string{
		Bold("Severity:") + " " + r.Severity.String(),
		Bold("Scope:") + " " + (r.Scopes | lint.ScopeQuery).String(),
	})

	if r.Rationale != "" {
		w.Header(4, "Why")
		w.Paragraph(r.Rationale)
	}
	if r.BadExample != "" {
		w.Header(4, "Bad")
		w.CodeBlock("yaml", r.BadExample)
	}
	if r.GoodExample != "" {
		w.Header(4, "Good")
		w.CodeBlock("yaml", r.GoodExample)
	}
	if r.Fix != "" {
		w.Header(4, "Fix")
		w.Paragraph(r.Fix)
	}
	if len(r.ConfigKeys) > 0 {
		w.Header(4, "Options")
		var keys []string
		for _, k := range r.ConfigKeys {
			keys = append(keys, InlineCode(fmt.Sprintf("lint.rules.%s.%s", r.Name, k)))
		}
		w.BulletList(keys)
	}
}

// generateConfigPage documents batonlint.yaml with the built-in defaults.
func generateConfigPage(outDir string) error {
	w := NewMarkdownWriter()
	def := config.Default()

	w.Frontmatter("Configuration", "The batonlint.yaml project file")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("batonlint looks for %s (or %s) in the working directory and its parents.", InlineCode(config.ConfigFileName), InlineCode(config.ConfigFileNameAlt)))

	w.Header(2, "Keys")
	w.Table([]string{"Key", "Default", "Description"}, [][]string{
		{InlineCode("parser"), InlineCode(def.Parser), "SQL parser backend"},
		{InlineCode("debounce"), InlineCode(def.Debounce.String()), "Delay before the language server re-lints a changed document"},
		{InlineCode("log_level"), InlineCode(def.LogLevel), "debug, info, warn or error"},
		{InlineCode("output"), InlineCode(def.Output), "auto, text, markdown or json"},
		{InlineCode("lint.disabled"), "", "Rule names to skip"},
		{InlineCode("lint.severity"), "", "Map of rule name to error, warning, info or hint"},
		{InlineCode("lint.rules"), "", "Map of rule name to rule options"},
		{InlineCode("discovery.fields"), InlineCode(strings.Join(def.Discovery.Fields, ", ")), "YAML keys whose values are SQL"},
	})

	w.Header(2, "Example")
	w.CodeBlock("yaml", `parser: postgres
lint:
  disabled:
    - unconventional-sql-syntax
  severity:
    keyword-spelling: warning
discovery:
  fields: [query, list_query, grants_query, sql]`)

	names := make([]string, 0, lint.Count())
	for _, r := range lint.GetAll() {
		names = append(names, r.Name)
	}
	slices.Sort(names)
	w.Header(2, "Rule Names")
	w.Paragraph(strings.Join(mapStrings(names, InlineCode), ", "))

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

type ruleGroup struct {
	name  string
	rules []lint.RuleDef
}

// groupRules groups rules in order of first appearance.
func groupRules(rules []lint.RuleDef) []ruleGroup {
	var groups []ruleGroup
	index := map[string]int{}
	for _, r := range rules {
		i, ok := index[r.Group]
		if !ok {
			i = len(groups)
			index[r.Group] = i
			groups = append(groups, ruleGroup{name: r.Group})
		}
		groups[i].rules = append(groups[i].rules, r)
	}
	return groups
}

// Title capitalizes a group name for use as a heading.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

func mapStrings(in []string, f func(string) string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = f(s)
	}
	return out
}
