package logparse

import (
	"strconv"
	"strings"
)

// ParseCount parses a non-negative integer count. Only a non-empty run of
// ASCII digits (after trimming surrounding whitespace) is accepted; signs,
// decimals, and text report ok=false.
func ParseCount(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Positive reports whether raw parses as a count greater than zero.
func Positive(raw string) bool {
	n, ok := ParseCount(raw)
	return ok && n > 0
}
