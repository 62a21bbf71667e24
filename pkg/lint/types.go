package lint

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a finding.
type Severity int

// Severity levels, ordered from most to least severe.
const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityHint
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity converts a name such as "warning" into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info", "information":
		return SeverityInfo, nil
	case "hint":
		return SeverityHint, nil
	}
	return SeverityError, fmt.Errorf("unknown severity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Position is a zero-based line and character.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// TextEdit replaces Range with NewText.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// ValidationResult is a single rule outcome. A result with Valid set carries
// nothing else. Invalid results locate the problem by LineNumber (a
// zero-based line of the original query), Position (an offset into the
// normalized SQL) or neither, meaning the whole query.
type ValidationResult struct {
	Valid        bool      `json:"valid"`
	Message      string    `json:"message,omitempty"`
	Position     *int      `json:"position,omitempty"`
	LineNumber   *int      `json:"lineNumber,omitempty"`
	SuggestedFix *TextEdit `json:"suggestedFix,omitempty"`
	Rule         string    `json:"rule,omitempty"`
	Severity     Severity  `json:"severity"`
}

// Valid returns a passing result.
func Valid() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid returns a failing result with a message.
func Invalid(format string, args ...any) ValidationResult {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return ValidationResult{Message: msg}
}

// AtLine locates the result on a zero-based line of the original query.
func (r ValidationResult) AtLine(line int) ValidationResult {
	r.LineNumber = &line
	return r
}

// AtPosition locates the result at an offset into the normalized SQL.
func (r ValidationResult) AtPosition(offset int) ValidationResult {
	r.Position = &offset
	return r
}

// WithFix attaches a suggested edit.
func (r ValidationResult) WithFix(edit TextEdit) ValidationResult {
	r.SuggestedFix = &edit
	return r
}

// Line returns the line number if set.
func (r ValidationResult) Line() (int, bool) {
	if r.LineNumber == nil {
		return 0, false
	}
	return *r.LineNumber, true
}

// Offset returns the position if set.
func (r ValidationResult) Offset() (int, bool) {
	if r.Position == nil {
		return 0, false
	}
	return *r.Position, true
}

// InsertAt returns an edit inserting text at a position.
func InsertAt(line, character int, text string) TextEdit {
	pos := Position{Line: line, Character: character}
	return TextEdit{Range: Range{Start: pos, End: pos}, NewText: text}
}

// ReplaceOnLine returns an edit replacing [start, end) on a line.
func ReplaceOnLine(line, start, end int, text string) TextEdit {
	return TextEdit{
		Range: Range{
			Start: Position{Line: line, Character: start},
			End:   Position{Line: line, Character: end},
		},
		NewText: text,
	}
}
