package rules

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

// MissingComma flags list items that run into each other.
var MissingComma = lint.RuleDef{
	Name:        "missing-comma",
	Group:       "syntax",
	Description: "Items in a SELECT, INSERT or UPDATE list must be separated by commas.",
	Severity:    lint.SeverityError,
	Check:       checkMissingComma,

	Rationale: `A missing comma between two select-list columns is often still valid SQL:
the second column silently becomes an alias of the first. The query runs but
returns the wrong columns.`,

	BadExample: `SELECT
  id,
  name
  email
FROM users`,

	GoodExample: `SELECT
  id,
  name,
  email
FROM users`,

	Fix: "Add a comma at the end of the reported line.",
}

func checkMissingComma(in *lint.Input) lint.ValidationResult {
	if res := in.Parse(); res.OK() {
		if sel := res.Select(); sel != nil {
			return implicitAliasOnNewLine(in, sel.Columns)
		}
		return lint.Valid()
	}
	return scanMissingComma(in.Lines())
}

// implicitAliasOnNewLine catches "name\n  email", which parses as
// "name AS email".
func implicitAliasOnNewLine(in *lint.Input, columns []sqlast.Column) lint.ValidationResult {
	lines := in.Lines()
	for _, col := range columns {
		if col.Alias == "" {
			continue
		}
		for i, line := range lines {
			if i == 0 || !strings.EqualFold(lexical.FirstWord(line), col.Alias) {
				continue
			}
			if !strings.EqualFold(strings.TrimSuffix(lexical.Clean(line), ","), col.Alias) {
				continue
			}
			prev := previousNonBlank(lines, i)
			if prev < 0 {
				continue
			}
			text := lexical.Clean(lines[prev])
			if text == "" || strings.HasSuffix(text, ",") || endsWithKeyword(text) || strings.HasSuffix(strings.ToUpper(text), " AS") {
				continue
			}
			return missingCommaAt(lines, prev)
		}
	}
	return lint.Valid()
}

type listKind int

const (
	listNone listKind = iota
	listSelect
	listInsert
	listValues
	listSet
)

var (
	selectTerminators = map[string]bool{
		"FROM": true, "WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true,
		"LIMIT": true, "OFFSET": true, "UNION": true, "EXCEPT": true, "INTERSECT": true, "INTO": true,
	}
	continuationWords = map[string]bool{
		"AND": true, "OR": true, "ON": true, "AS": true, "WHEN": true, "THEN": true,
		"ELSE": true, "END": true, "OVER": true, "FILTER": true, "NOT": true, "IS": true,
		"IN": true, "LIKE": true, "BETWEEN": true,
	}
	operatorEndRe   = regexp.MustCompile(`(\|\||[-+*/%=<>(]|\b(?i:and|or|as|not|in|like|case|when|then|else|distinct))$`)
	operatorStartRe = regexp.MustCompile(`^(\|\||[-+*/%=<>)]|::)`)
	caseRe          = regexp.MustCompile(`(?i)\bcase\b`)
	endRe           = regexp.MustCompile(`(?i)\bend\b`)
)

// scanMissingComma walks the raw lines tracking which list it is in.
func scanMissingComma(lines []string) lint.ValidationResult {
	kind := listNone
	baseDepth, depth, caseDepth := 0, 0, 0
	prev := -1

	begin := func(k listKind, i int, rest string) {
		kind = k
		caseDepth = 0
		baseDepth = depth
		prev = -1
		rest = strings.TrimSpace(rest)
		if rest != "" && !strings.HasSuffix(rest, "(") && !strings.EqualFold(rest, "DISTINCT") {
			prev = i
		}
	}

	for i, raw := range lines {
		line := lexical.Clean(raw)
		if line == "" || lexical.IsYAMLKey(raw) {
			continue
		}
		first := lexical.FirstWord(line)
		startDepth := depth
		depth += strings.Count(line, "(") - strings.Count(line, ")")

		if kind != listNone && endsList(kind, first, line, startDepth, depth, baseDepth) {
			kind = listNone
		}

		if kind == listNone {
			upper := strings.ToUpper(line)
			switch first {
			case "SELECT":
				begin(listSelect, i, line[len("SELECT"):])
			case "INSERT":
				if idx := strings.Index(upper, "VALUES"); idx >= 0 {
					begin(listValues, i, line[idx+len("VALUES"):])
				} else if strings.Contains(line, "(") && depth > 0 {
					begin(listInsert, i, line[strings.LastIndex(line, "(")+1:])
				}
			case "VALUES":
				begin(listValues, i, line[len("VALUES"):])
			case "SET":
				begin(listSet, i, line[len("SET"):])
			case "UPDATE":
				if idx := strings.Index(upper, " SET "); idx >= 0 {
					begin(listSet, i, line[idx+len(" SET "):])
				}
			}
			continue
		}

		// Lines inside a multi-line call or tuple belong to the item
		// that opened it.
		if startDepth > baseDepth {
			if depth <= baseDepth {
				prev = i
			}
			continue
		}

		wasInCase := caseDepth > 0
		if caseRe.MatchString(line) {
			caseDepth++
		}
		if endRe.MatchString(line) && caseDepth > 0 {
			caseDepth--
		}
		if wasInCase {
			if caseDepth == 0 {
				prev = i
			}
			continue
		}

		if continuationWords[first] || operatorStartRe.MatchString(line) {
			prev = i
			continue
		}

		if prev >= 0 {
			text := lexical.Clean(lines[prev])
			if !strings.HasSuffix(text, ",") && !operatorEndRe.MatchString(text) && !endsWithKeyword(text) {
				return missingCommaAt(lines, prev)
			}
		}
		prev = i
	}
	return lint.Valid()
}

func endsList(kind listKind, first, line string, startDepth, depth, baseDepth int) bool {
	switch kind {
	case listSelect:
		if selectTerminators[first] || isNearFrom(first, line) {
			return true
		}
	case listInsert:
		if depth < baseDepth || first == "VALUES" || first == "SELECT" {
			return true
		}
	case listValues:
		if depth < baseDepth || first == "ON" || first == "RETURNING" || first == "SELECT" {
			return true
		}
	case listSet:
		if first == "WHERE" || first == "FROM" || first == "RETURNING" {
			return true
		}
	}
	if startDepth != baseDepth {
		return false
	}
	return strings.HasPrefix(line, ";") || (first == "SELECT" && kind != listSelect)
}

// isNearFrom treats misspellings of FROM as the end of a select list, as
// long as the line reads like "FROM table".
func isNearFrom(first, line string) bool {
	if len(first) < 3 || len(first) > 5 || strings.HasSuffix(line, ",") {
		return false
	}
	return lexical.Distance(first, "FROM") <= 2 && len(lexical.Words(line)) > 1 && !lexical.IsKeyword(first)
}

func endsWithKeyword(text string) bool {
	words := lexical.Words(text)
	if len(words) == 0 || words[len(words)-1].End() != len(text) {
		return false
	}
	last := strings.ToUpper(words[len(words)-1].Text)
	return last == "SELECT" || last == "DISTINCT" || last == "SET" || last == "VALUES" || last == "CASE"
}

func previousNonBlank(lines []string, i int) int {
	for j := i - 1; j >= 0; j-- {
		if lexical.Clean(lines[j]) != "" {
			return j
		}
	}
	return -1
}

func missingCommaAt(lines []string, line int) lint.ValidationResult {
	text := lexical.Clean(lines[line])
	end := lexical.TrimmedEnd(lexical.StripComment(lines[line]))
	return lint.Invalid("Missing comma after %q", text).
		AtLine(line).
		WithFix(lint.InsertAt(line, end, ","))
}
