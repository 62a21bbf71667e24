package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/batonlint/internal/cli/output"
	"github.com/leapstack-labs/batonlint/internal/config"
	"github.com/leapstack-labs/batonlint/internal/diagnostics"
	"github.com/leapstack-labs/batonlint/pkg/lint"
	_ "github.com/leapstack-labs/batonlint/pkg/lint/rules" // register rules
)

// ErrLintIssues is returned by the lint command when findings remain after
// severity filtering.
var ErrLintIssues = errors.New("lint issues found")

// LintOptions holds options for the lint command.
type LintOptions struct {
	Paths    []string // Files or directories
	Format   string   // Output format: text, markdown, json
	Disable  []string // Rule names to disable
	Severity string   // Minimum severity: error, warning, info, hint
	Rules    []string // Run only these rules
	Jobs     int      // Files linted concurrently
	Watch    bool     // Re-lint on change
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [path...]",
		Short: "Lint SQL embedded in baton-sql YAML files",
		Long: `Find SQL queries in baton-sql connector configuration and check them.

Paths may be files or directories; directories are searched for *.yaml and
*.yml files. Rules can be configured in batonlint.yaml.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Lint every YAML file under the current directory
  batonlint lint

  # Lint one connector config
  batonlint lint ./baton-sql.yaml

  # Output as JSON
  batonlint lint --format json

  # Disable specific rules
  batonlint lint --disable unconventional-sql-syntax,invalid-order-by

  # Only report errors
  batonlint lint --severity error

  # Re-lint whenever a file changes
  batonlint lint --watch ./connectors`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Paths = args
			return runLint(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rule names to disable")
	cmd.Flags().StringVar(&opts.Severity, "severity", "hint", "Minimum severity: error, warning, info, hint")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Run only specific rules")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.NumCPU(), "Files linted concurrently")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-lint when files change")

	_ = cmd.RegisterFlagCompletionFunc("severity", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warning", "info", "hint"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("rule", completeRuleNames)
	_ = cmd.RegisterFlagCompletionFunc("disable", completeRuleNames)

	return cmd
}

func completeRuleNames(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, rule := range lint.GetAll() {
		names = append(names, rule.Name+"\t"+rule.Description)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func runLint(cmd *cobra.Command, opts *LintOptions) error {
	cmdCtx, err := NewCommandContext(cmd, opts.Format)
	if err != nil {
		return err
	}

	threshold, err := lint.ParseSeverity(opts.Severity)
	if err != nil {
		return err
	}

	lintCfg, err := buildLintConfig(cmdCtx.Cfg, opts)
	if err != nil {
		return err
	}

	eng, err := newEngine(cmdCtx.Cfg, lintCfg, cmdCtx.Logger)
	if err != nil {
		return err
	}

	run := func(ctx context.Context) error {
		files, err := collectFiles(opts.Paths)
		if err != nil {
			return err
		}
		results, err := lintFiles(ctx, eng, files, cmdCtx.Cfg.Discovery.Fields, opts.Jobs)
		if err != nil {
			return err
		}
		results = filterBySeverity(results, threshold)
		if renderLintResults(cmdCtx.Renderer, results, len(files)) {
			return ErrLintIssues
		}
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Watch {
		return watchLint(ctx, cmdCtx, opts.Paths, run)
	}
	return run(ctx)
}

// buildLintConfig merges CLI overrides into the project configuration.
func buildLintConfig(cfg *config.Config, opts *LintOptions) (*lint.Config, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	lintCfg := cfg.ToLintConfig()

	for _, name := range opts.Disable {
		name = strings.TrimSpace(name)
		if _, ok := lint.GetByName(name); !ok {
			return nil, fmt.Errorf("unknown rule %q", name)
		}
		lintCfg.Disable(name)
	}

	// If --rule specified, disable all others
	if len(opts.Rules) > 0 {
		enabled := make(map[string]bool, len(opts.Rules))
		for _, name := range opts.Rules {
			name = strings.TrimSpace(name)
			if _, ok := lint.GetByName(name); !ok {
				return nil, fmt.Errorf("unknown rule %q", name)
			}
			enabled[name] = true
		}
		for _, rule := range lint.GetAll() {
			if !enabled[rule.Name] {
				lintCfg.Disable(rule.Name)
			}
		}
	}

	return lintCfg, nil
}

// lintFileResult holds lint results for a single file.
type lintFileResult struct {
	Path        string
	Diagnostics []diagnostics.Diagnostic
}

// collectFiles expands paths into the YAML files to lint. Files named
// explicitly are kept whatever their extension.
func collectFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if isYAMLFile(path) && !config.IsConfigFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor"
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// lintFiles lints files concurrently, at most jobs at a time. Results keep
// the order of files.
func lintFiles(ctx context.Context, eng *lint.Engine, files, fields []string, jobs int) ([]lintFileResult, error) {
	results := make([]lintFileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, jobs))
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path) //nolint:gosec // G304: paths come from the command line
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			results[i] = lintFileResult{
				Path:        path,
				Diagnostics: diagnostics.Collect(eng, string(data), fields),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func filterBySeverity(results []lintFileResult, threshold lint.Severity) []lintFileResult {
	var filtered []lintFileResult
	for _, r := range results {
		var diags []diagnostics.Diagnostic
		for _, d := range r.Diagnostics {
			if d.Severity <= threshold {
				diags = append(diags, d)
			}
		}
		if len(diags) > 0 {
			filtered = append(filtered, lintFileResult{
				Path:        r.Path,
				Diagnostics: diags,
			})
		}
	}
	return filtered
}

// renderLintResults writes results and reports whether any were found.
func renderLintResults(r *output.Renderer, results []lintFileResult, filesAnalyzed int) bool {
	summary := output.LintSummary{
		FilesAnalyzed:   filesAnalyzed,
		FilesWithIssues: len(results),
	}
	for _, res := range results {
		summary.TotalIssues += len(res.Diagnostics)
		for _, d := range res.Diagnostics {
			switch d.Severity {
			case lint.SeverityError:
				summary.Errors++
			case lint.SeverityWarning:
				summary.Warnings++
			case lint.SeverityInfo:
				summary.Info++
			case lint.SeverityHint:
				summary.Hints++
			}
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		jsonOutput := output.LintOutput{
			Summary: summary,
			Files:   []output.LintFileResult{},
		}
		for _, res := range results {
			fileResult := output.LintFileResult{Path: res.Path}
			for _, d := range res.Diagnostics {
				fileResult.Diagnostics = append(fileResult.Diagnostics, toLintDiagnostic(d))
			}
			jsonOutput.Files = append(jsonOutput.Files, fileResult)
		}
		_ = r.JSON(jsonOutput)
		return summary.TotalIssues > 0
	}

	if len(results) == 0 {
		r.Success(fmt.Sprintf("No lint issues found in %d files", filesAnalyzed))
		return false
	}

	// Text/Markdown output
	styles := r.Styles()
	for _, res := range results {
		r.Println(styles.FilePath.Render(res.Path))
		for _, d := range res.Diagnostics {
			loc := fmt.Sprintf("%d:%d", d.Range.Start.Line+1, d.Range.Start.Character+1)
			r.Printf("  %s  %s  %s  %s\n",
				styles.Muted.Render(fmt.Sprintf("%-7s", loc)),
				severityStyle(r, d.Severity),
				styles.Bold.Render(d.Rule),
				d.Message,
			)
		}
		r.Println("")
	}

	// Print summary
	summaryParts := []string{fmt.Sprintf("%d issues", summary.TotalIssues)}
	if summary.Errors > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d errors", summary.Errors))
	}
	if summary.Warnings > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d warnings", summary.Warnings))
	}
	if summary.Info > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d info", summary.Info))
	}
	if summary.Hints > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d hints", summary.Hints))
	}
	r.Printf("Summary: %s in %d of %d files\n", strings.Join(summaryParts, ", "), summary.FilesWithIssues, summary.FilesAnalyzed)

	return true
}

// toLintDiagnostic converts a finding to one-based JSON output.
func toLintDiagnostic(d diagnostics.Diagnostic) output.LintDiagnostic {
	out := output.LintDiagnostic{
		Rule:      d.Rule,
		Severity:  d.Severity.String(),
		Message:   d.Message,
		Line:      d.Range.Start.Line + 1,
		Column:    d.Range.Start.Character + 1,
		EndLine:   d.Range.End.Line + 1,
		EndColumn: d.Range.End.Character + 1,
		YAMLPath:  d.Path,
	}
	if d.Fix != nil {
		out.Fix = &output.LintFix{
			Line:      d.Fix.Range.Start.Line + 1,
			Column:    d.Fix.Range.Start.Character + 1,
			EndLine:   d.Fix.Range.End.Line + 1,
			EndColumn: d.Fix.Range.End.Character + 1,
			NewText:   d.Fix.NewText,
		}
	}
	return out
}

func severityStyle(r *output.Renderer, sev lint.Severity) string {
	switch sev {
	case lint.SeverityError:
		return r.Styles().Error.Render("error  ")
	case lint.SeverityWarning:
		return r.Styles().Warning.Render("warning")
	case lint.SeverityInfo:
		return r.Styles().Info.Render("info   ")
	case lint.SeverityHint:
		return r.Styles().Muted.Render("hint   ")
	default:
		return r.Styles().Muted.Render("unknown")
	}
}
