package sqlast

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Backend names.
const (
	BackendVitess   = "vitess"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"

	// DefaultBackend is used when no backend is configured.
	DefaultBackend = BackendVitess
)

// backend converts SQL text into a Statement.
type backend interface {
	parse(sql string) (*Statement, *ParseError)
}

// Result is the outcome of parsing: exactly one of Stmt and Err is set.
type Result struct {
	Stmt *Statement
	Err  *ParseError
}

// OK reports whether parsing succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.Stmt != nil
}

// Select returns the top-level select, or nil when the statement is not a
// successfully parsed SELECT.
func (r Result) Select() *Select {
	if !r.OK() || r.Stmt.Kind != StatementSelect {
		return nil
	}
	return r.Stmt.Select
}

// Parser parses SQL with a single backend. It is safe for concurrent use.
type Parser struct {
	name    string
	backend backend
}

// Name returns the backend name.
func (p *Parser) Name() string {
	return p.name
}

// Parse parses sql. It never panics: backend panics become parse errors.
func (p *Parser) Parse(sql string) (res Result) {
	if strings.TrimSpace(sql) == "" {
		return Result{Err: &ParseError{Message: "empty statement"}}
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &ParseError{Message: fmt.Sprintf("parser panic: %v", r)}}
		}
	}()
	stmt, perr := p.backend.parse(sql)
	if perr != nil {
		return Result{Err: perr}
	}
	if stmt == nil {
		return Result{Err: &ParseError{Message: "empty statement"}}
	}
	return Result{Stmt: stmt}
}

type registration struct {
	once   sync.Once
	ctor   func() backend
	parser *Parser
}

var (
	registryMu sync.Mutex
	registry   = map[string]*registration{}
)

func register(name string, ctor func() backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = &registration{ctor: ctor}
}

// Get returns the process-wide parser for a backend, constructing it on
// first use.
func Get(name string) (*Parser, error) {
	if name == "" {
		name = DefaultBackend
	}
	registryMu.Lock()
	reg, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown parser backend %q (available: %s)", name, strings.Join(Backends(), ", "))
	}
	reg.once.Do(func() {
		reg.parser = &Parser{name: name, backend: reg.ctor()}
	})
	return reg.parser, nil
}

// Default returns the parser for DefaultBackend.
func Default() *Parser {
	p, err := Get(DefaultBackend)
	if err != nil {
		panic(err)
	}
	return p
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var crossJoinRe = regexp.MustCompile(`(?i)\bcross\s+join\b`)

// markCrossJoins retags condition-less inner joins as cross joins. Some
// parsers fold CROSS JOIN into a plain JOIN, so the first n such joins are
// taken to be the n CROSS JOINs written in the text.
func markCrossJoins(sql string, stmt *Statement) {
	n := len(crossJoinRe.FindAllStringIndex(sql, -1))
	if n == 0 || stmt == nil || stmt.Select == nil {
		return
	}
	Walk(stmt.Select, func(s *Select) bool {
		for i := range s.From {
			if n == 0 {
				return false
			}
			if s.From[i].Join == JoinInner && !s.From[i].HasCondition {
				s.From[i].Join = JoinCross
				n--
			}
		}
		return true
	})
}
