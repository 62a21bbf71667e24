package output

// LintSummary counts findings across a lint run.
type LintSummary struct {
	FilesAnalyzed   int `json:"files_analyzed"`
	FilesWithIssues int `json:"files_with_issues"`
	TotalIssues     int `json:"total_issues"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
	Hints           int `json:"hints"`
}

// LintOutput is the JSON document written by `batonlint lint`.
type LintOutput struct {
	Summary LintSummary      `json:"summary"`
	Files   []LintFileResult `json:"files"`
}

// LintFileResult groups the findings for one file.
type LintFileResult struct {
	Path        string           `json:"path"`
	Diagnostics []LintDiagnostic `json:"diagnostics"`
}

// LintDiagnostic is one finding. Line and Column are one-based.
type LintDiagnostic struct {
	Rule      string   `json:"rule"`
	Severity  string   `json:"severity"`
	Message   string   `json:"message"`
	Line      int      `json:"line"`
	Column    int      `json:"column"`
	EndLine   int      `json:"end_line"`
	EndColumn int      `json:"end_column"`
	YAMLPath  string   `json:"yaml_path,omitempty"`
	Fix       *LintFix `json:"fix,omitempty"`
}

// LintFix is a suggested replacement, positioned like LintDiagnostic.
type LintFix struct {
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
	NewText   string `json:"new_text"`
}

// RuleInfo describes a lint rule for `batonlint rules`.
type RuleInfo struct {
	Name        string   `json:"name"`
	Group       string   `json:"group"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Scopes      string   `json:"scopes"`
	Rationale   string   `json:"rationale,omitempty"`
	BadExample  string   `json:"bad_example,omitempty"`
	GoodExample string   `json:"good_example,omitempty"`
	Fix         string   `json:"fix,omitempty"`
	ConfigKeys  []string `json:"config_keys,omitempty"`
}

// RulesOutput is the JSON document written by `batonlint rules`.
type RulesOutput struct {
	Rules []RuleInfo `json:"rules"`
	Count int        `json:"count"`
}
