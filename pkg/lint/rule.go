package lint

import (
	"strings"
	"sync"

	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

// Scope selects which text a rule sees as the original query.
type Scope uint8

// Scopes. Every rule runs at ScopeQuery; the others are opt-in.
const (
	// ScopeQuery is the extracted SQL string.
	ScopeQuery Scope = 1 << iota
	// ScopeBlock is the YAML mapping enclosing a query.
	ScopeBlock
	// ScopeDocument is the whole YAML document.
	ScopeDocument
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeQuery:
		return "query"
	case ScopeBlock:
		return "block"
	case ScopeDocument:
		return "document"
	}
	var parts []string
	for _, one := range []Scope{ScopeQuery, ScopeBlock, ScopeDocument} {
		if s&one != 0 {
			parts = append(parts, one.String())
		}
	}
	return strings.Join(parts, "|")
}

// RuleDef is a data-driven rule definition.
// Rules are stateless: all context arrives through Input.
type RuleDef struct {
	Name        string    // Unique identifier, e.g. "missing-comma"
	Group       string    // Category, e.g. "syntax", "baton"
	Description string    // One-line description
	Severity    Severity  // Default severity
	Scopes      Scope     // Extra scopes beyond ScopeQuery
	Check       CheckFunc // The check function
	ConfigKeys  []string  // Option keys read from Input.Options

	// Documentation fields
	Rationale   string
	BadExample  string
	GoodExample string
	Fix         string
}

// AppliesTo reports whether the rule runs at scope.
func (r RuleDef) AppliesTo(scope Scope) bool {
	if scope == ScopeQuery {
		return true
	}
	return r.Scopes&scope != 0
}

// CheckFunc inspects the input and returns a single result.
type CheckFunc func(in *Input) ValidationResult

// Input is what a rule sees. SQL is the normalized query text; Original is
// the text at the rule's scope, used for line numbers.
type Input struct {
	SQL      string
	Original string
	Options  map[string]any

	parser    *sqlast.Parser
	parseOnce sync.Once
	parsed    sqlast.Result
	lines     []string
}

// NewInput builds an input for sql and original. A nil parser selects the
// default backend.
func NewInput(sql, original string, parser *sqlast.Parser) *Input {
	if parser == nil {
		parser = sqlast.Default()
	}
	return &Input{SQL: sql, Original: original, parser: parser}
}

// Parse parses SQL once per input and returns the shared result.
func (in *Input) Parse() sqlast.Result {
	in.parseOnce.Do(func() {
		in.parsed = in.parser.Parse(in.SQL)
	})
	return in.parsed
}

// Lines returns Original split on newlines with carriage returns removed.
func (in *Input) Lines() []string {
	if in.lines == nil {
		in.lines = strings.Split(strings.ReplaceAll(in.Original, "\r\n", "\n"), "\n")
	}
	return in.lines
}

// MultiLine reports whether Original spans more than one line.
func (in *Input) MultiLine() bool {
	return strings.Contains(in.Original, "\n")
}
