package rules

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
)

// TrailingComma flags a comma after the last select-list item.
var TrailingComma = lint.RuleDef{
	Name:        "trailing-comma",
	Group:       "syntax",
	Description: "The last item of a SELECT list must not be followed by a comma.",
	Severity:    lint.SeverityError,
	Check:       checkTrailingComma,

	Rationale: `Trailing commas are a common leftover from removing the last column and
are rejected by every supported database.`,

	BadExample: `SELECT id, name,
FROM users`,
	GoodExample: `SELECT id, name
FROM users`,
	Fix: "Remove the comma at the end of the reported line.",
}

var (
	listEndRe    = regexp.MustCompile(`(?i)\b(from|where|group\s+by|order\s+by|having|limit|union)\b`)
	listEndWords = map[string]bool{
		"FROM": true, "WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true,
		"LIMIT": true, "OFFSET": true, "UNION": true, "EXCEPT": true, "INTERSECT": true,
	}
)

func checkTrailingComma(in *lint.Input) lint.ValidationResult {
	lines := in.Lines()
	inSelect := false
	last := -1
	for i, raw := range lines {
		line := lexical.StripComment(raw)
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if col, ok := sameLineTrailing(line); ok {
			return trailingCommaAt(i, col)
		}
		first := lexical.FirstWord(text)
		switch {
		case first == "SELECT":
			inSelect = true
		case inSelect && listEndWords[first]:
			if last >= 0 && strings.HasSuffix(lexical.Clean(lines[last]), ",") {
				return trailingCommaAt(last, strings.LastIndex(lexical.StripComment(lines[last]), ","))
			}
			inSelect = false
		}
		last = i
	}
	if inSelect && last >= 0 && strings.HasSuffix(lexical.Clean(lines[last]), ",") {
		return trailingCommaAt(last, strings.LastIndex(lexical.StripComment(lines[last]), ","))
	}
	return lint.Valid()
}

// sameLineTrailing finds "SELECT a, b, FROM" on one line. Only the text
// between SELECT and the first list-ending keyword outside quotes counts.
func sameLineTrailing(line string) (int, bool) {
	masked := lexical.MaskQuotes(line)
	sel := selectWordRe.FindStringIndex(masked)
	if sel == nil {
		return 0, false
	}
	end := listEndRe.FindStringIndex(masked[sel[1]:])
	if end == nil {
		return 0, false
	}
	head := strings.TrimRight(masked[:sel[1]+end[0]], " \t")
	if !strings.HasSuffix(head, ",") {
		return 0, false
	}
	return len(head) - 1, true
}

func trailingCommaAt(line, col int) lint.ValidationResult {
	return lint.Invalid("Trailing comma before the end of the SELECT list").
		AtLine(line).
		WithFix(lint.ReplaceOnLine(line, col, col+1, ""))
}
