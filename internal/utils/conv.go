package utils

import (
	"strconv"
	"strings"
)

// IntOr parses s, falling back to def when s is empty, invalid or below floor
func IntOr(s string, def, floor int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < floor {
		return def
	}
	return i
}
