package sqlast

import (
	"fmt"
	"strings"
)

// ParseError is a parser failure converted to 1-based query coordinates.
type ParseError struct {
	Message     string
	Line        int
	Column      int
	HasLocation bool
}

func (e *ParseError) Error() string {
	if e.HasLocation {
		return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Line, e.Column)
	}
	return e.Message
}

// Mentions reports whether the message contains substr, ignoring case.
func (e *ParseError) Mentions(substr string) bool {
	return strings.Contains(strings.ToLower(e.Message), strings.ToLower(substr))
}

// newParseError builds a ParseError for sql from a byte offset. A negative
// offset means the parser gave no location.
func newParseError(sql, msg string, offset int) *ParseError {
	perr := &ParseError{Message: classify(sql, msg)}
	if offset < 0 {
		return perr
	}
	if offset > len(sql) {
		offset = len(sql)
	}
	perr.Line, perr.Column = lineColumn(sql, offset)
	perr.HasLocation = true
	return perr
}

// lineColumn converts a byte offset into 1-based line and column.
func lineColumn(sql string, offset int) (line, column int) {
	line = 1 + strings.Count(sql[:offset], "\n")
	start := strings.LastIndex(sql[:offset], "\n") + 1
	return line, offset - start + 1
}

// offsetOf converts a 1-based line and column back to a byte offset.
func offsetOf(sql string, line, column int) int {
	offset := 0
	for l := 1; l < line; l++ {
		i := strings.IndexByte(sql[offset:], '\n')
		if i < 0 {
			return len(sql)
		}
		offset += i + 1
	}
	offset += column - 1
	if offset > len(sql) {
		return len(sql)
	}
	if offset < 0 {
		return 0
	}
	return offset
}

// classify prefixes parser messages when the text has unbalanced
// parentheses, which none of the backends report directly.
func classify(sql, msg string) string {
	switch depth := parenDepth(sql); {
	case depth > 0:
		return "Unclosed parenthesis: " + msg
	case depth < 0:
		return "Unexpected closing parenthesis: " + msg
	}
	return msg
}

// parenDepth returns the net parenthesis depth of sql, ignoring quoted
// text and comments. A negative value means a ')' appeared with no
// matching '('.
func parenDepth(sql string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '-':
			if i+1 < len(sql) && sql[i+1] == '-' {
				for i < len(sql) && sql[i] != '\n' {
					i++
				}
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return depth
			}
		}
	}
	return depth
}
