package lint

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

// Engine runs the registered rules and memoizes results by content hash.
// The cache is unbounded and lives until ClearCache or SetConfig.
type Engine struct {
	mu      sync.Mutex
	parser  *sqlast.Parser
	config  *Config
	rules   []RuleDef
	results map[uint64][]ValidationResult
	digests map[string]uint64
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithParser selects the parser backend.
func WithParser(p *sqlast.Parser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithConfig sets the initial configuration.
func WithConfig(c *Config) Option {
	return func(e *Engine) { e.config = c }
}

// WithRules pins the rule list instead of reading the global registry.
func WithRules(rules ...RuleDef) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithLogger sets the logger used for rule failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine. Without options it uses the default parser,
// an empty config and the global registry.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		config:  NewConfig(),
		results: make(map[uint64][]ValidationResult),
		digests: make(map[string]uint64),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parser == nil {
		e.parser = sqlast.Default()
	}
	return e
}

// Validate runs every rule at ScopeQuery. sql may contain named parameters;
// original is the text line numbers refer to.
func (e *Engine) Validate(sql, original string) []ValidationResult {
	return e.ValidateScoped(ScopeQuery, sql, original)
}

// ValidateScoped runs the rules that apply to scope. Results are returned
// in rule order. A rule that panics is logged and contributes nothing.
func (e *Engine) ValidateScoped(scope Scope, sql, original string) []ValidationResult {
	normalized := Normalize(sql)
	key := cacheKey(scope, normalized, original)

	e.mu.Lock()
	defer e.mu.Unlock()

	if cached, ok := e.results[key]; ok {
		return cloneResults(cached)
	}

	rules := e.rules
	if rules == nil {
		rules = GetAll()
	}

	in := NewInput(normalized, original, e.parser)
	results := make([]ValidationResult, 0)
	for _, rule := range rules {
		if e.config.IsDisabled(rule.Name) || !rule.AppliesTo(scope) {
			continue
		}
		in.Options = e.config.GetRuleOptions(rule.Name)
		res, ok := e.runRule(rule, in)
		if !ok || res.Valid {
			continue
		}
		if res.Message == "" {
			res.Message = fmt.Sprintf("Validation failed for rule: %s", rule.Name)
		}
		res.Rule = rule.Name
		res.Severity = e.config.GetSeverity(rule.Name, rule.Severity)
		results = append(results, res)
	}

	e.results[key] = results
	return cloneResults(results)
}

func (e *Engine) runRule(rule RuleDef, in *Input) (res ValidationResult, ok bool) {
	if rule.Check == nil {
		return res, false
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("rule failed", "rule", rule.Name, "panic", r)
			ok = false
		}
	}()
	return rule.Check(in), true
}

// SetConfig replaces the configuration and drops cached results.
func (e *Engine) SetConfig(c *Config) {
	if c == nil {
		c = NewConfig()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = c
	e.results = make(map[uint64][]ValidationResult)
	e.digests = make(map[string]uint64)
}

// Config returns the active configuration.
func (e *Engine) Config() *Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Parser returns the parser rules use.
func (e *Engine) Parser() *sqlast.Parser {
	return e.parser
}

// ClearCache drops all cached results.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = make(map[uint64][]ValidationResult)
}

// CacheSize returns the number of cached result lists.
func (e *Engine) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.results)
}

// DocumentChanged records the digest of text for uri and reports whether it
// differs from the previous one.
func (e *Engine) DocumentChanged(uri, text string) bool {
	sum := xxhash.Sum64String(text)
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.digests[uri]; ok && prev == sum {
		return false
	}
	e.digests[uri] = sum
	return true
}

// ForgetDocument drops the digest for uri.
func (e *Engine) ForgetDocument(uri string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.digests, uri)
}

func cacheKey(scope Scope, normalized, original string) uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte{byte(scope)})
	_, _ = d.WriteString(normalized)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(original)
	return d.Sum64()
}

// cloneResults copies results including the values behind their pointer
// fields, so callers cannot change what later cache hits return.
func cloneResults(in []ValidationResult) []ValidationResult {
	out := make([]ValidationResult, len(in))
	for i, r := range in {
		if r.Position != nil {
			pos := *r.Position
			r.Position = &pos
		}
		if r.LineNumber != nil {
			line := *r.LineNumber
			r.LineNumber = &line
		}
		if r.SuggestedFix != nil {
			fix := *r.SuggestedFix
			r.SuggestedFix = &fix
		}
		out[i] = r
	}
	return out
}
