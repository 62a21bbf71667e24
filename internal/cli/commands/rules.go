package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/batonlint/internal/cli/output"
	"github.com/leapstack-labs/batonlint/pkg/lint"
	_ "github.com/leapstack-labs/batonlint/pkg/lint/rules" // register rules
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Group   string // Filter by group
	Verbose bool   // Show full documentation
	Format  string // Output format
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-name]",
		Short: "List available lint rules",
		Long: `List all available lint rules with their documentation.

Rules are listed in execution order and grouped by category (syntax,
ambiguous, convention, baton). Use --verbose to see the rationale for
each rule, or pass a rule name for its full documentation.`,
		Example: `  # List all rules
  batonlint rules

  # Show details for a specific rule
  batonlint rules missing-comma

  # List rules in the baton group
  batonlint rules --group baton

  # Output as JSON
  batonlint rules --format json`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeRuleNames(cmd, args, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0], opts)
			}
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Filter by group")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Show full documentation")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")

	return cmd
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	cmdCtx, err := NewCommandContext(cmd, opts.Format)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	rules := lint.GetAll()
	if opts.Group != "" {
		rules = lint.GetByGroup(opts.Group)
		if len(rules) == 0 {
			return fmt.Errorf("no rules in group %q", opts.Group)
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return listRulesJSON(r, rules)
	case output.ModeMarkdown:
		listRulesMarkdown(r, rules, opts.Verbose)
	default:
		listRulesText(r, rules, opts.Verbose)
	}
	return nil
}

func showRule(cmd *cobra.Command, name string, opts *RulesOptions) error {
	cmdCtx, err := NewCommandContext(cmd, opts.Format)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	rule, ok := lint.GetByName(name)
	if !ok {
		return fmt.Errorf("rule %q not found", name)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(ruleInfo(rule))
	case output.ModeMarkdown:
		showRuleMarkdown(r, rule)
	default:
		showRuleText(r, rule)
	}
	return nil
}

// groupRules splits rules by group, keeping first-appearance order.
func groupRules(rules []lint.RuleDef) (groups []string, byGroup map[string][]lint.RuleDef) {
	byGroup = make(map[string][]lint.RuleDef)
	for _, rule := range rules {
		if _, ok := byGroup[rule.Group]; !ok {
			groups = append(groups, rule.Group)
		}
		byGroup[rule.Group] = append(byGroup[rule.Group], rule)
	}
	return groups, byGroup
}

// listRulesText outputs rules as a table per group.
func listRulesText(r *output.Renderer, rules []lint.RuleDef, verbose bool) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Lint Rules (%d)", len(rules))))
	r.Println("")

	groups, byGroup := groupRules(rules)
	for _, group := range groups {
		r.Println(styles.Header2.Render(output.Title(group)))

		header := []string{"Rule", "Severity", "Description"}
		if verbose {
			header = append(header, "Why")
		}
		var rows [][]string
		for _, rule := range byGroup[group] {
			row := []string{rule.Name, rule.Severity.String(), rule.Description}
			if verbose {
				row = append(row, truncateOneLine(rule.Rationale, 60))
			}
			rows = append(rows, row)
		}
		r.Table(header, rows)
		r.Println("")
	}

	r.Println(styles.Muted.Render("Use 'batonlint rules <rule-name>' for detailed documentation"))
}

// listRulesMarkdown outputs rules in markdown format.
func listRulesMarkdown(r *output.Renderer, rules []lint.RuleDef, verbose bool) {
	r.Println(output.FormatHeader(1, "Lint Rules"))
	r.Println("")

	groups, byGroup := groupRules(rules)
	for _, group := range groups {
		r.Println(output.FormatHeader(2, output.Title(group)))
		r.Println("")
		for _, rule := range byGroup[group] {
			r.Printf("- **%s** - %s (`%s`)\n", rule.Name, rule.Description, rule.Severity)
			if verbose && rule.Rationale != "" {
				r.Println("  > " + rule.Rationale)
			}
		}
		r.Println("")
	}
}

// listRulesJSON outputs rules in JSON format.
func listRulesJSON(r *output.Renderer, rules []lint.RuleDef) error {
	out := output.RulesOutput{Rules: make([]output.RuleInfo, 0, len(rules))}
	for _, rule := range rules {
		out.Rules = append(out.Rules, ruleInfo(rule))
	}
	out.Count = len(out.Rules)
	return r.JSON(out)
}

func ruleInfo(rule lint.RuleDef) output.RuleInfo {
	return output.RuleInfo{
		Name:        rule.Name,
		Group:       rule.Group,
		Description: rule.Description,
		Severity:    rule.Severity.String(),
		Scopes:      (rule.Scopes | lint.ScopeQuery).String(),
		Rationale:   rule.Rationale,
		BadExample:  rule.BadExample,
		GoodExample: rule.GoodExample,
		Fix:         rule.Fix,
		ConfigKeys:  rule.ConfigKeys,
	}
}

// showRuleText displays detailed rule info in text format.
func showRuleText(r *output.Renderer, rule lint.RuleDef) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(rule.Name))
	r.Println("")

	r.Printf("  %s: %s\n", styles.Bold.Render("Group"), rule.Group)
	r.Printf("  %s: %s\n", styles.Bold.Render("Severity"), getSeverityStyle(styles, rule.Severity).Render(rule.Severity.String()))
	r.Printf("  %s: %s\n", styles.Bold.Render("Scopes"), (rule.Scopes | lint.ScopeQuery).String())
	r.Println("")

	r.Println(styles.Bold.Render("Description"))
	r.Println("  " + rule.Description)
	r.Println("")

	if rule.Rationale != "" {
		r.Println(styles.Bold.Render("Why This Matters"))
		r.Println("  " + rule.Rationale)
		r.Println("")
	}

	if rule.BadExample != "" {
		r.Println(styles.Bold.Render("Bad Example"))
		for _, line := range strings.Split(rule.BadExample, "\n") {
			r.Println(styles.Muted.Render("  " + line))
		}
		r.Println("")
	}

	if rule.GoodExample != "" {
		r.Println(styles.Bold.Render("Good Example"))
		for _, line := range strings.Split(rule.GoodExample, "\n") {
			r.Println(styles.Success.Render("  " + line))
		}
		r.Println("")
	}

	if rule.Fix != "" {
		r.Println(styles.Bold.Render("How to Fix"))
		r.Println("  " + rule.Fix)
		r.Println("")
	}

	if len(rule.ConfigKeys) > 0 {
		r.Println(styles.Bold.Render("Configuration"))
		r.Printf("  lint.rules.%s: %s\n", rule.Name, strings.Join(rule.ConfigKeys, ", "))
		r.Println("")
	}
}

// showRuleMarkdown displays detailed rule info in markdown format.
func showRuleMarkdown(r *output.Renderer, rule lint.RuleDef) {
	r.Println(output.FormatHeader(1, rule.Name))
	r.Println("")
	r.Println(output.FormatKeyValue("Group", rule.Group))
	r.Println(output.FormatKeyValue("Severity", "`"+rule.Severity.String()+"`"))
	r.Println("")
	r.Println(rule.Description)
	r.Println("")

	if rule.Rationale != "" {
		r.Println(output.FormatHeader(2, "Why This Matters"))
		r.Println("")
		r.Println(rule.Rationale)
		r.Println("")
	}

	for _, ex := range []struct{ title, body string }{
		{"Bad Example", rule.BadExample},
		{"Good Example", rule.GoodExample},
	} {
		if ex.body == "" {
			continue
		}
		r.Println(output.FormatHeader(2, ex.title))
		r.Println("")
		r.Println("```yaml")
		r.Println(ex.body)
		r.Println("```")
		r.Println("")
	}

	if rule.Fix != "" {
		r.Println(output.FormatHeader(2, "How to Fix"))
		r.Println("")
		r.Println(rule.Fix)
		r.Println("")
	}

	if len(rule.ConfigKeys) > 0 {
		r.Println(output.FormatHeader(2, "Configuration"))
		r.Println("")
		r.Printf("Options under `lint.rules.%s`: `%s`\n", rule.Name, strings.Join(rule.ConfigKeys, "`, `"))
		r.Println("")
	}
}

func getSeverityStyle(styles *output.Styles, sev lint.Severity) lipgloss.Style {
	switch sev {
	case lint.SeverityError:
		return styles.Error
	case lint.SeverityWarning:
		return styles.Warning
	case lint.SeverityInfo:
		return styles.Info
	default:
		return styles.Muted
	}
}

func truncateOneLine(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
