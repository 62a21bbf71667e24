package lexical

import "strings"

var keywords = toSet(`
ADD ALL ALTER AND ANY AS ASC BEGIN BETWEEN BY CASE CAST CHECK COLUMN COMMIT
CONFLICT CONSTRAINT CREATE CROSS CURRENT_DATE CURRENT_TIME CURRENT_TIMESTAMP
CURRENT_USER DEFAULT DELETE DESC DISTINCT DO DROP ELSE END EXCEPT EXISTS
FALSE FETCH FOR FOREIGN FROM FULL GRANT GROUP HAVING IF ILIKE IN INDEX INNER
INSERT INTERSECT INTERVAL INTO IS JOIN KEY LATERAL LEFT LIKE LIMIT NATURAL
NOT NOTHING NULL OFFSET ON OR ORDER OUTER OVER PARTITION PRIMARY REFERENCES
RETURNING RIGHT ROLLBACK ROW ROWS SELECT SET SOME TABLE THEN TO TRUE TRUNCATE
UNION UNIQUE UPDATE USER USING VALUES VIEW WHEN WHERE WINDOW WITH
`)

// ClauseKeywords are the keywords that open the main clauses of a query.
var ClauseKeywords = []string{"SELECT", "FROM", "WHERE", "GROUP", "ORDER", "HAVING", "JOIN"}

// IsKeyword reports whether word is a reserved SQL keyword.
func IsKeyword(word string) bool {
	return keywords[strings.ToUpper(word)]
}

func toSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}
