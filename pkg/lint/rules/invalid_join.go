package rules

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/lint/internal/lexical"
	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

// InvalidJoin flags joins that have no join condition.
var InvalidJoin = lint.RuleDef{
	Name:        "invalid-join",
	Group:       "syntax",
	Description: "JOIN needs an ON or USING condition unless it is a CROSS or NATURAL join.",
	Severity:    lint.SeverityError,
	Check:       checkInvalidJoin,

	Rationale: `A JOIN without a condition either fails to parse or silently becomes a
cartesian product, multiplying rows.`,

	BadExample: `SELECT u.id, o.total
FROM users u
JOIN orders o
WHERE o.total > 0`,

	GoodExample: `SELECT u.id, o.total
FROM users u
JOIN orders o ON o.user_id = u.id
WHERE o.total > 0`,

	Fix: "Add ON <condition> after the joined table, or write CROSS JOIN if a cartesian product is intended.",
}

const joinLookahead = 4

var (
	joinWordRe      = regexp.MustCompile(`(?i)\bjoin\b`)
	onOrUsingRe     = regexp.MustCompile(`(?i)\b(on|using)\b`)
	onShapedRe      = regexp.MustCompile(`[A-Za-z_]\w*\.[A-Za-z_]\w*\s*=\s*[A-Za-z_]\w*\.[A-Za-z_]\w*`)
	joinModifiers   = map[string]bool{"LEFT": true, "RIGHT": true, "INNER": true, "OUTER": true, "FULL": true}
	joinStopClauses = map[string]bool{
		"WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true, "LIMIT": true, "OFFSET": true,
		"UNION": true, "SELECT": true, "FROM": true, "RETURNING": true, "JOIN": true, "LEFT": true,
		"RIGHT": true, "INNER": true, "FULL": true, "CROSS": true, "NATURAL": true,
	}
)

func checkInvalidJoin(in *lint.Input) lint.ValidationResult {
	if res := in.Parse(); res.OK() {
		var bad *sqlast.FromItem
		sqlast.Walk(res.Select(), func(s *sqlast.Select) bool {
			for i := range s.From {
				if s.From[i].Join.RequiresCondition() && !s.From[i].HasCondition {
					bad = &s.From[i]
					return false
				}
			}
			return true
		})
		if bad == nil {
			return lint.Valid()
		}
		lines := in.Lines()
		line := lexical.FindLine(lines, regexp.MustCompile(`(?i)\bjoin\s+`+regexp.QuoteMeta(bad.Table)+`\b`))
		if line < 0 {
			line = max(lexical.FindLine(lines, joinWordRe), 0)
		}
		target := bad.Table
		if target == "" {
			target = bad.Name()
		}
		return lint.Invalid("%s %s is missing an ON clause", bad.Join, target).AtLine(line)
	}
	return scanInvalidJoin(in.Lines())
}

func scanInvalidJoin(lines []string) lint.ValidationResult {
	for i, raw := range lines {
		line := lexical.Clean(raw)
		words := lexical.Words(line)
		at := joinWordIndex(words)
		if at < 0 {
			continue
		}
		rest := line[words[at].End():]
		depth, closed := lexical.ParenDepth(rest, 0)
		if depth == 0 && closed >= 0 && strings.HasPrefix(strings.TrimSpace(rest), "(") {
			// A derived table that opens and closes on the JOIN line.
			rest = rest[closed:]
		}
		if depth == 0 {
			if onOrUsingRe.MatchString(rest) {
				continue
			}
			if loc := onShapedRe.FindStringIndex(rest); loc != nil {
				return missingOnKeyword(i, lexical.Indent(raw)+len(line)-len(rest)+loc[0])
			}
		}

		satisfied := false
		seen := 0
		for j := i + 1; j < len(lines) && seen < joinLookahead; j++ {
			next := lexical.Clean(lines[j])
			if next == "" {
				continue
			}
			if depth > 0 {
				// Inside the joined subquery: only the text after its
				// closing parenthesis belongs to this join.
				depth, closed = lexical.ParenDepth(next, depth)
				if depth > 0 {
					continue
				}
				tail := next[closed:]
				if onOrUsingRe.MatchString(tail) {
					satisfied = true
					break
				}
				if loc := onShapedRe.FindStringIndex(tail); loc != nil {
					return missingOnKeyword(j, lexical.Indent(lines[j])+closed+loc[0])
				}
				continue
			}
			seen++
			first := lexical.FirstWord(next)
			if first == "ON" || first == "USING" || (onOrUsingRe.MatchString(next) && !joinStopClauses[first]) {
				satisfied = true
				break
			}
			if joinStopClauses[first] {
				break
			}
			if loc := onShapedRe.FindStringIndex(next); loc != nil && loc[0] == 0 {
				return missingOnKeyword(j, lexical.Indent(lines[j]))
			}
			depth, _ = lexical.ParenDepth(next, 0)
		}
		if depth > 0 {
			// The subquery never closes; unclosed-parentheses reports that.
			continue
		}
		if !satisfied {
			target := "JOIN"
			if at+1 < len(words) {
				target += " " + words[at+1].Text
			}
			return lint.Invalid("%s is missing an ON clause", target).AtLine(i)
		}
	}
	return lint.Valid()
}

// joinWordIndex returns the index of the JOIN word on a line, or -1 when
// the line has none or the join is CROSS or NATURAL. Near-misspellings
// count when they sit where JOIN would.
func joinWordIndex(words []lexical.Token) int {
	for k, w := range words {
		upper := strings.ToUpper(w.Text)
		isJoin := upper == "JOIN"
		if !isJoin && len(upper) >= 3 && len(upper) <= 5 && !lexical.IsKeyword(upper) && lexical.Distance(upper, "JOIN") == 1 {
			isJoin = k == 0 || joinModifiers[strings.ToUpper(words[k-1].Text)]
		}
		if !isJoin {
			continue
		}
		for p := k - 1; p >= 0; p-- {
			u := strings.ToUpper(words[p].Text)
			if u == "CROSS" || u == "NATURAL" {
				return -1
			}
			if !joinModifiers[u] {
				break
			}
		}
		return k
	}
	return -1
}

func missingOnKeyword(line, col int) lint.ValidationResult {
	return lint.Invalid("JOIN condition on line %d is missing the ON keyword", line+1).
		AtLine(line).
		WithFix(lint.InsertAt(line, col, "ON "))
}
