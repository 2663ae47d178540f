package cps

import (
	"strconv"
	"strings"
)

// splitLead splits a line into its first whitespace-delimited token and the
// rest of the line after that token. ok is false for blank lines.
func splitLead(line string) (name, rest string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t\r\v\f")
	if trimmed == "" {
		return "", "", false
	}
	end := strings.IndexAny(trimmed, " \t\r\v\f")
	if end < 0 {
		return trimmed, "", true
	}
	return trimmed[:end], trimmed[end:], true
}

// hasDigit reports whether s contains an ASCII decimal digit.
func hasDigit(s string) bool {
	return strings.IndexAny(s, "0123456789") >= 0
}

// NumericTokens returns every maximal run of ASCII digits in s, in order.
// Signs, decimal points and separators are not part of a run, so "1-15"
// yields [1 15] and "2.5" yields [2 5].
func NumericTokens(s string) []int {
	var out []int
	for i := 0; i < len(s); {
		if !isDigit(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		n, err := strconv.Atoi(s[i:j])
		if err != nil {
			// Only possible on overflow; such a run is not a position.
			i = j
			continue
		}
		out = append(out, n)
		i = j
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
