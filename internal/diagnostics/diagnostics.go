// Package diagnostics turns rule results into document positioned
// findings. It is shared by the lint command and the language server.
package diagnostics

import (
	"cmp"
	"errors"
	"slices"
	"strings"

	"github.com/leapstack-labs/batonlint/internal/discovery"
	"github.com/leapstack-labs/batonlint/pkg/lint"
)

// YAMLSyntaxRule is the rule name attached to YAML parse failures.
const YAMLSyntaxRule = "yaml-syntax"

// positionSpan is the width highlighted for offset based results.
const positionSpan = 10

// Diagnostic is a finding located in document coordinates.
type Diagnostic struct {
	Rule     string         `json:"rule"`
	Severity lint.Severity  `json:"severity"`
	Message  string         `json:"message"`
	Range    lint.Range     `json:"range"`
	Fix      *lint.TextEdit `json:"fix,omitempty"`
	Path     string         `json:"path,omitempty"`
}

// origin describes where a validated text sits in the document.
type origin struct {
	text   string
	line   int
	column int
	indent int
	end    lint.Position
}

func queryOrigin(q discovery.SQLQueryInfo) origin {
	return origin{
		text:   q.Query,
		line:   q.StartLine,
		column: q.StartColumn,
		indent: q.Indent,
		end:    lint.Position{Line: q.EndLine, Character: q.EndColumn},
	}
}

func textOrigin(text string, line int) origin {
	lines := strings.Split(text, "\n")
	last := len(lines) - 1
	return origin{
		text: text,
		line: line,
		end:  lint.Position{Line: line + last, Character: len(lines[last])},
	}
}

// at converts a line and character relative to the origin text.
func (o origin) at(line, char int) lint.Position {
	if line == 0 {
		return lint.Position{Line: o.line, Character: o.column + char}
	}
	return lint.Position{Line: o.line + line, Character: o.indent + char}
}

// Position places a query scoped result in the document.
func Position(res lint.ValidationResult, q discovery.SQLQueryInfo, lines []string) Diagnostic {
	d := place(res, queryOrigin(q), lines)
	d.Path = q.Path()
	return d
}

func place(res lint.ValidationResult, o origin, lines []string) Diagnostic {
	d := Diagnostic{Rule: res.Rule, Severity: res.Severity, Message: res.Message}

	if n, ok := res.Line(); ok {
		line := min(o.line+max(n, 0), o.end.Line, len(lines)-1)
		d.Range = lint.Range{
			Start: lint.Position{Line: line},
			End:   lint.Position{Line: line, Character: len(lines[line])},
		}
	} else if off, ok := res.Offset(); ok {
		off = lint.OriginalOffset(o.text, max(off, 0))
		head := o.text[:off]
		l := strings.Count(head, "\n")
		c := len(head) - strings.LastIndex(head, "\n") - 1
		start := o.at(l, c)
		d.Range = lint.Range{
			Start: start,
			End:   lint.Position{Line: start.Line, Character: start.Character + positionSpan},
		}
	} else {
		d.Range = lint.Range{Start: o.at(0, 0), End: o.end}
	}

	if res.SuggestedFix != nil {
		fix := lint.TextEdit{
			Range: lint.Range{
				Start: o.at(res.SuggestedFix.Range.Start.Line, res.SuggestedFix.Range.Start.Character),
				End:   o.at(res.SuggestedFix.Range.End.Line, res.SuggestedFix.Range.End.Character),
			},
			NewText: res.SuggestedFix.NewText,
		}
		d.Fix = &fix
	}
	return d
}

// FromYAMLError reports a YAML syntax error on its line.
func FromYAMLError(err *discovery.YAMLError, lines []string) Diagnostic {
	line := 0
	if err.Line > 0 {
		line = min(err.Line-1, len(lines)-1)
	}
	return Diagnostic{
		Rule:     YAMLSyntaxRule,
		Severity: lint.SeverityError,
		Message:  "YAML syntax error: " + err.Message,
		Range: lint.Range{
			Start: lint.Position{Line: line},
			End:   lint.Position{Line: line, Character: len(lines[line])},
		},
	}
}

// Dedup drops diagnostics whose message and start position repeat an
// earlier one.
func Dedup(diags []Diagnostic) []Diagnostic {
	type key struct {
		message string
		line    int
		char    int
	}
	seen := make(map[key]bool, len(diags))
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		k := key{d.Message, d.Range.Start.Line, d.Range.Start.Character}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}

// Collect lints every query in a YAML document. Each query is validated on
// its own, its enclosing mapping at block scope and the document at
// document scope. A document that is not valid YAML yields only the syntax
// error.
func Collect(engine *lint.Engine, text string, fields []string) []Diagnostic {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	queries, err := discovery.Discover(text, fields)
	if err != nil {
		var yerr *discovery.YAMLError
		if errors.As(err, &yerr) {
			return []Diagnostic{FromYAMLError(yerr, lines)}
		}
		return []Diagnostic{FromYAMLError(&discovery.YAMLError{Message: err.Error()}, lines)}
	}

	var out []Diagnostic
	for _, q := range queries {
		for _, res := range engine.Validate(q.Query, q.Query) {
			out = append(out, Position(res, q, lines))
		}
		if q.Block == "" {
			continue
		}
		for _, res := range engine.ValidateScoped(lint.ScopeBlock, q.Query, q.Block) {
			d := place(res, textOrigin(q.Block, q.BlockStartLine), lines)
			d.Path = q.Path()
			out = append(out, d)
		}
	}
	for _, res := range engine.ValidateScoped(lint.ScopeDocument, "", text) {
		out = append(out, place(res, textOrigin(text, 0), lines))
	}

	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Range.Start.Line, b.Range.Start.Line),
			cmp.Compare(a.Range.Start.Character, b.Range.Start.Character),
		)
	})
	return Dedup(out)
}
