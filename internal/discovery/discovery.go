// Package discovery finds SQL queries embedded in baton-sql YAML
// configuration and records where each one sits in the document.
package discovery

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFields are the keys whose string values are always treated as SQL.
var DefaultFields = []string{"query", "sql", "queries", "list_query", "grants_query"}

// SQLQueryInfo locates one query in a YAML document. Lines and columns are
// zero-based; positions are byte offsets into the document.
type SQLQueryInfo struct {
	Query    string
	YAMLPath []string

	StartPosition int
	EndPosition   int
	StartLine     int
	StartColumn   int
	EndLine       int
	EndColumn     int

	// Indent is the column where query lines after the first start. For
	// block scalars it equals StartColumn.
	Indent int

	// Block is the text of the mapping that contains the query, starting
	// at document line BlockStartLine.
	Block          string
	BlockStartLine int
}

// Path returns the YAML path joined with dots.
func (q SQLQueryInfo) Path() string {
	return strings.Join(q.YAMLPath, ".")
}

// YAMLError is a YAML syntax error. Line is one-based; zero means the
// decoder gave no location.
type YAMLError struct {
	Line    int
	Column  int
	Message string
}

func (e *YAMLError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("yaml: line %d: %s", e.Line, e.Message)
	}
	return "yaml: " + e.Message
}

var (
	yamlLineRe = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)
	sqlVerbRe  = regexp.MustCompile(`(?is)^\s*(select|with|insert|update|delete)\s`)
)

// Discover parses text and returns every query found, in document order.
// Values of keys listed in fields (or ending in _query) are queries; so are
// string values that start with a SQL verb. A syntax error is returned as
// a *YAMLError together with the queries found in earlier documents.
func Discover(text string, fields []string) ([]SQLQueryInfo, error) {
	if fields == nil {
		fields = DefaultFields
	}
	w := &walker{
		lines:  strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"),
		fields: make(map[string]bool, len(fields)),
	}
	for _, f := range fields {
		w.fields[strings.ToLower(f)] = true
	}
	w.offsets = make([]int, len(w.lines)+1)
	for i, line := range w.lines {
		w.offsets[i+1] = w.offsets[i] + len(line) + 1
	}

	dec := yaml.NewDecoder(strings.NewReader(text))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return w.out, toYAMLError(err)
		}
		w.walk(&doc, nil, nil)
	}
	return w.out, nil
}

func toYAMLError(err error) *YAMLError {
	msg := err.Error()
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		msg = typeErr.Errors[0]
	}
	if m := yamlLineRe.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &YAMLError{Line: line, Message: m[2]}
	}
	return &YAMLError{Message: strings.TrimPrefix(msg, "yaml: ")}
}

type walker struct {
	lines   []string
	offsets []int
	fields  map[string]bool
	out     []SQLQueryInfo
}

func (w *walker) isField(key string) bool {
	key = strings.ToLower(key)
	return w.fields[key] || strings.HasSuffix(key, "_query")
}

func (w *walker) walk(node *yaml.Node, path []string, parent *yaml.Node) {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, c := range node.Content {
			w.walk(c, path, nil)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			p := append(slices.Clone(path), key.Value)
			switch val.Kind {
			case yaml.ScalarNode:
				if isString(val) && (w.isField(key.Value) || sqlVerbRe.MatchString(val.Value)) {
					w.emit(val, p, node)
				}
			case yaml.SequenceNode:
				if w.isField(key.Value) {
					for j, item := range val.Content {
						if item.Kind == yaml.ScalarNode && isString(item) {
							w.emit(item, append(slices.Clone(p), strconv.Itoa(j)), node)
						}
					}
					continue
				}
				w.walk(val, p, node)
			case yaml.MappingNode:
				w.walk(val, p, node)
			}
		}
	case yaml.SequenceNode:
		for j, c := range node.Content {
			p := append(slices.Clone(path), strconv.Itoa(j))
			if c.Kind == yaml.ScalarNode {
				if isString(c) && sqlVerbRe.MatchString(c.Value) {
					w.emit(c, p, parent)
				}
				continue
			}
			w.walk(c, p, parent)
		}
	}
}

func isString(n *yaml.Node) bool {
	return n.ShortTag() == "!!str"
}

func (w *walker) emit(val *yaml.Node, path []string, mapping *yaml.Node) {
	if strings.TrimSpace(val.Value) == "" {
		return
	}
	info := SQLQueryInfo{Query: val.Value, YAMLPath: path}

	if val.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		// Content starts on the line after the | or > indicator.
		info.StartLine = min(val.Line, len(w.lines)-1)
		for l := info.StartLine; l < len(w.lines); l++ {
			if strings.TrimSpace(w.lines[l]) != "" {
				info.Indent = indentOf(w.lines[l])
				break
			}
		}
		info.StartColumn = info.Indent
		n := strings.Count(strings.TrimRight(val.Value, "\n"), "\n")
		info.EndLine = min(info.StartLine+n, len(w.lines)-1)
		info.EndColumn = len(w.lines[info.EndLine])
	} else {
		info.StartLine = val.Line - 1
		info.StartColumn = val.Column - 1
		if val.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			info.StartColumn++
		}
		info.Indent = info.StartColumn
		info.EndLine = info.StartLine
		info.EndColumn = min(info.StartColumn+len(val.Value), len(w.lines[info.StartLine]))
	}
	info.StartPosition = w.offsets[info.StartLine] + info.StartColumn
	info.EndPosition = w.offsets[info.EndLine] + info.EndColumn

	if mapping != nil {
		start := mapping.Line - 1
		end := min(lastLine(mapping), len(w.lines)-1)
		info.Block = strings.Join(w.lines[start:end+1], "\n")
		info.BlockStartLine = start
	}
	w.out = append(w.out, info)
}

// lastLine returns the zero-based last document line covered by node.
func lastLine(node *yaml.Node) int {
	last := node.Line - 1
	if node.Kind == yaml.ScalarNode && node.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		last += 1 + strings.Count(strings.TrimRight(node.Value, "\n"), "\n")
	}
	for _, c := range node.Content {
		last = max(last, lastLine(c))
	}
	return last
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
