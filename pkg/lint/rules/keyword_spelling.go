package rules

import (
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
)

// KeywordSpelling flags misspelled SQL keywords.
var KeywordSpelling = lint.RuleDef{
	Name:        "keyword-spelling",
	Group:       "syntax",
	Description: "SQL keywords must be spelled correctly.",
	Severity:    lint.SeverityError,
	Check:       checkKeywordSpelling,
	ConfigKeys:  []string{"max_distance"},

	Rationale: `A misspelled keyword produces a parser error far from the typo, or
worse, is read as an alias.`,

	BadExample: `SELCT id
FROM users`,
	GoodExample: `SELECT id
FROM users`,
	Fix: "Replace the word with the suggested keyword.",
}

// maxKeywordDistance is the default edit distance for fuzzy matches.
const maxKeywordDistance = 1

// commonTypos maps frequent misspellings to the intended keyword.
var commonTypos = map[string]string{
	"SELCT": "SELECT", "SLECT": "SELECT", "SELET": "SELECT", "SEELCT": "SELECT",
	"SELECCT": "SELECT", "SLEECT": "SELECT", "SELEC": "SELECT",
	"FORM": "FROM", "FRMO": "FROM", "FRM": "FROM", "FOM": "FROM", "FROMM": "FROM",
	"WHER": "WHERE", "WHRE": "WHERE", "WEHRE": "WHERE", "WHEER": "WHERE", "WHERR": "WHERE",
	"GROPU": "GROUP", "GRUOP": "GROUP", "GORUP": "GROUP", "GROUPP": "GROUP",
	"ODER": "ORDER", "ORDR": "ORDER", "OREDR": "ORDER", "ORDRE": "ORDER",
	"JION": "JOIN", "JOINN": "JOIN", "JIONS": "JOIN",
	"HAVNG": "HAVING", "HAIVNG": "HAVING", "HAVIGN": "HAVING",
	"LIMT": "LIMIT", "LIMTI": "LIMIT", "LIIMT": "LIMIT",
	"INSRET": "INSERT", "ISNERT": "INSERT", "INSERTT": "INSERT",
	"UPDTE": "UPDATE", "UDPATE": "UPDATE", "UPADTE": "UPDATE",
	"DELTE": "DELETE", "DELEET": "DELETE", "DEELTE": "DELETE",
	"VALEUS": "VALUES", "VLAUES": "VALUES",
	"DISTICT": "DISTINCT", "DISTINT": "DISTINCT",
	"RETURNIGN": "RETURNING",
}

func checkKeywordSpelling(in *lint.Input) lint.ValidationResult {
	if !in.MultiLine() {
		return lint.Valid()
	}
	maxDist := lint.GetIntOption(in.Options, "max_distance", maxKeywordDistance)
	for i, raw := range in.Lines() {
		if lexical.IsYAMLKey(raw) {
			continue
		}
		line := lexical.StripComment(raw)
		words := lexical.Words(line)
		for _, w := range words {
			if fix, ok := commonTypos[strings.ToUpper(w.Text)]; ok {
				return misspelledKeyword(i, w, fix)
			}
		}
		if len(words) == 0 || strings.TrimSpace(line[:words[0].Start]) != "" {
			continue
		}
		first := words[0]
		if len(first.Text) < 3 || lexical.IsKeyword(first.Text) || !isLetters(first.Text) || isReference(line, first) {
			continue
		}
		if fix, ok := lexical.Closest(first.Text, lexical.ClauseKeywords, maxDist); ok {
			return misspelledKeyword(i, first, fix)
		}
	}
	return lint.Valid()
}

func misspelledKeyword(line int, w lexical.Token, fix string) lint.ValidationResult {
	return lint.Invalid("Possible misspelled keyword '%s'; did you mean '%s'?", w.Text, fix).
		AtLine(line).
		WithFix(lint.ReplaceOnLine(line, w.Start, w.End(), fix))
}

// isReference reports whether w is a table-qualified name, a call or a
// plural such as "orders" rather than a keyword.
func isReference(line string, w lexical.Token) bool {
	if rest := strings.TrimLeft(line[w.End():], " "); strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, "(") {
		return true
	}
	upper := strings.ToUpper(w.Text)
	return strings.HasSuffix(upper, "S") && lexical.IsKeyword(strings.TrimSuffix(upper, "S"))
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
