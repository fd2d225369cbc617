package pname

import "strings"

var soundexCodes = map[rune]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Soundex returns the American Soundex code of word (letter + three
// digits), ignoring anything that is not an ASCII letter. Returns "" for
// words without letters.
func Soundex(word string) string {
	word = strings.ToUpper(word)

	var out []byte
	var last byte
	for _, r := range word {
		if r < 'A' || r > 'Z' {
			continue
		}
		code := soundexCodes[r]
		if len(out) == 0 {
			out = append(out, byte(r))
			last = code
			continue
		}
		switch {
		case code == 0:
			// Vowels separate equal codes; H and W do not.
			if r != 'H' && r != 'W' {
				last = 0
			}
		case code != last:
			out = append(out, code)
			last = code
		}
		if len(out) == 4 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	for len(out) < 4 {
		out = append(out, '0')
	}
	return string(out[:4])
}
