// Package lexical holds the line-oriented text helpers shared by rules.
package lexical

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Distance returns the case-insensitive edit distance between a and b.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(strings.ToUpper(a), strings.ToUpper(b))
}

// Closest returns the candidate nearest to word within maxDist. Exact
// matches are not suggestions, so a distance of zero never matches.
func Closest(word string, candidates []string, maxDist int) (string, bool) {
	best, bestDist := "", maxDist+1
	for _, c := range candidates {
		d := Distance(word, c)
		if d > 0 && d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}

// StripComment removes a trailing -- comment that is not inside quotes.
func StripComment(line string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '-' && strings.HasPrefix(line[i:], "--"):
			return line[:i]
		}
	}
	return line
}

// MaskQuotes replaces the contents of quoted strings with spaces so that
// offsets are preserved and nothing inside quotes matches a pattern.
func MaskQuotes(line string) string {
	b := []byte(line)
	var quote byte
	for i, c := range b {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				b[i] = ' '
			}
		case c == '\'' || c == '"':
			quote = c
		}
	}
	return string(b)
}

// ParenDepth scans s outside quotes starting at depth and returns the new
// depth. closed is the offset just past the parenthesis that first brought
// a positive depth back to zero, or -1. Depth never goes below zero.
func ParenDepth(s string, depth int) (newDepth, closed int) {
	closed = -1
	for i, c := range MaskQuotes(s) {
		switch c {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && closed < 0 {
				closed = i + 1
			}
		}
	}
	return depth, closed
}

// Clean returns the line without comments or surrounding whitespace.
func Clean(line string) string {
	return strings.TrimSpace(StripComment(line))
}

// Token is a word and its byte offset within a line.
type Token struct {
	Text  string
	Start int
}

// End returns the offset just past the token.
func (t Token) End() int {
	return t.Start + len(t.Text)
}

// Words splits a line into identifier-like words.
func Words(line string) []Token {
	var tokens []Token
	start := -1
	for i, r := range line {
		word := r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			tokens = append(tokens, Token{Text: line[start:i], Start: start})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: line[start:], Start: start})
	}
	return tokens
}

// FirstWord returns the first word of a line in upper case.
func FirstWord(line string) string {
	words := Words(strings.TrimSpace(line))
	if len(words) == 0 || words[0].Start != 0 {
		return ""
	}
	return strings.ToUpper(words[0].Text)
}

// Indent returns the number of leading spaces or tabs.
func Indent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// LineOfOffset returns the zero-based line containing a byte offset.
func LineOfOffset(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		return 0
	}
	return strings.Count(text[:offset], "\n")
}

// ColumnOfOffset returns the byte column of offset within its line.
func ColumnOfOffset(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return offset - (strings.LastIndex(text[:offset], "\n") + 1)
}

// FindLine returns the first line index matching re, or -1.
func FindLine(lines []string, re *regexp.Regexp) int {
	for i, line := range lines {
		if re.MatchString(line) {
			return i
		}
	}
	return -1
}

// TrimmedEnd returns the length of line without trailing whitespace.
func TrimmedEnd(line string) int {
	return len(strings.TrimRight(line, " \t\r"))
}

var yamlKeyRe = regexp.MustCompile(`^\s*-?\s*[A-Za-z_][\w.-]*:(\s|$)`)

// IsYAMLKey reports whether a line looks like a YAML "key:" entry.
func IsYAMLKey(line string) bool {
	return yamlKeyRe.MatchString(line)
}

// BlockEntry is a direct child key of a YAML block.
type BlockEntry struct {
	Key  string
	Line int
}

// BlockKeys finds every line whose trimmed text is exactly header (for
// example "vars:") and returns the keys directly below it, one slice per
// block. A block ends at the first non-blank line indented no deeper than
// the header.
func BlockKeys(lines []string, header string) [][]BlockEntry {
	var blocks [][]BlockEntry
	for i := 0; i < len(lines); i++ {
		if Clean(lines[i]) != header {
			continue
		}
		headerIndent := Indent(lines[i])
		childIndent := -1
		var entries []BlockEntry
		j := i + 1
		for ; j < len(lines); j++ {
			text := Clean(lines[j])
			if text == "" {
				continue
			}
			ind := Indent(lines[j])
			if ind <= headerIndent {
				break
			}
			if childIndent < 0 {
				childIndent = ind
			}
			if ind != childIndent {
				continue
			}
			if key, _, ok := strings.Cut(strings.TrimPrefix(text, "- "), ":"); ok {
				entries = append(entries, BlockEntry{Key: strings.Trim(strings.TrimSpace(key), `"'`), Line: j})
			}
		}
		blocks = append(blocks, entries)
		i = j - 1
	}
	return blocks
}

// CallArgs counts the top-level arguments of the call whose opening
// parenthesis is at open. It returns false when the call is not closed.
func CallArgs(text string, open int) (int, bool) {
	depth := 0
	args := 0
	nonEmpty := false
	var quote byte
	for i := open; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			nonEmpty = true
		case '(':
			depth++
			if depth > 1 {
				nonEmpty = true
			}
		case ')':
			depth--
			if depth == 0 {
				if nonEmpty {
					args++
				}
				return args, true
			}
		case ',':
			if depth == 1 {
				args++
				nonEmpty = false
				continue
			}
		case ' ', '\t', '\n', '\r':
		default:
			nonEmpty = true
		}
	}
	return args, false
}

// SplitTopLevel splits s on commas outside parentheses and quotes.
func SplitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
