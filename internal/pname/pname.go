// Package pname derives the search forms stored beside person-name columns:
// a canonical form (accent-free, upper case, caret-delimited) and a phonetic
// form (Soundex per name component).
package pname

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ComponentSeparator separates family, given, middle, prefix and suffix.
const ComponentSeparator = "^"

// groupSeparator separates the alphabetic, ideographic and phonetic groups.
const groupSeparator = "="

var upper = cases.Upper(language.Und)

// stripMarks decomposes, removes combining marks and recomposes.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Canonical returns the canonical search form of a PN value.
//
// Only the alphabetic group is kept. "Family, Given" is read as
// "Family^Given". Accents are removed, letters upper-cased, internal
// whitespace collapsed and trailing empty components dropped. The '*' and
// '?' wildcards survive, so query values can be canonicalised too.
func Canonical(v string) string {
	v = strings.Trim(v, " \x00")
	if i := strings.Index(v, groupSeparator); i >= 0 {
		v = v[:i]
	}
	if !strings.Contains(v, ComponentSeparator) && strings.Contains(v, ",") {
		family, given, _ := strings.Cut(v, ",")
		v = family + ComponentSeparator + given
	}
	v = upper.String(stripMarks(v))

	comps := strings.Split(v, ComponentSeparator)
	for i, c := range comps {
		comps[i] = cleanComponent(c)
	}
	return joinTrimmed(comps)
}

func cleanComponent(c string) string {
	var b strings.Builder
	space := false
	for _, r := range c {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '*' || r == '?' || r == '-' || r == '\'':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}

func joinTrimmed(comps []string) string {
	end := len(comps)
	for end > 0 && comps[end-1] == "" {
		end--
	}
	return strings.Join(comps[:end], ComponentSeparator)
}

// Phonetic returns the phonetic search form: the Soundex code of each
// canonical component, caret-delimited. Returns "" when no component
// has letters.
func Phonetic(v string) string {
	comps := strings.Split(Canonical(v), ComponentSeparator)
	codes := make([]string, len(comps))
	for i, c := range comps {
		codes[i] = Soundex(c)
	}
	return joinTrimmed(codes)
}

// Swap exchanges the family and given components of a canonical or
// phonetic form. ok is false when there is nothing to swap.
func Swap(v string) (string, bool) {
	comps := strings.Split(v, ComponentSeparator)
	if len(comps) < 2 || comps[0] == "" || comps[1] == "" {
		return "", false
	}
	comps[0], comps[1] = comps[1], comps[0]
	return joinTrimmed(comps), true
}

// HasWildcard reports whether v carries a '*' or '?' wildcard.
func HasWildcard(v string) bool {
	return strings.ContainsAny(v, "*?")
}
