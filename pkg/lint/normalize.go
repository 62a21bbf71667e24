package lint

import "regexp"

// namedParamRe matches a named parameter such as ?<user_id>.
var namedParamRe = regexp.MustCompile(`\?<[^<>]*>`)

// Normalize replaces named parameters with a bare ? placeholder so the SQL
// can be handed to a parser. Normalize(Normalize(s)) == Normalize(s).
func Normalize(sql string) string {
	return namedParamRe.ReplaceAllLiteralString(sql, "?")
}

// OriginalOffset maps an offset into Normalize(original) back to the
// matching offset in original.
func OriginalOffset(original string, offset int) int {
	shift := 0
	for _, m := range namedParamRe.FindAllStringIndex(original, -1) {
		if m[0]-shift >= offset {
			break
		}
		shift += m[1] - m[0] - 1
	}
	return min(offset+shift, len(original))
}
