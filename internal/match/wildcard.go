package match

import "strings"

// HasWildcard reports whether a request value uses '*' or '?'.
func HasWildcard(v string) bool {
	return strings.ContainsAny(v, "*?")
}

// IsUniversal reports whether v matches everything: empty, or only '*'.
func IsUniversal(v string) bool {
	return strings.Trim(v, "*") == ""
}

// LikePattern translates a DICOM wildcard value into a LIKE pattern for
// use with ESCAPE '\'. The escape character and the SQL wildcards '%' and
// '_' are escaped first so they match literally; then '*' becomes '%' and
// '?' becomes '_'.
func LikePattern(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 4)
	for _, r := range v {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
