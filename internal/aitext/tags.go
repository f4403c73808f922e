package aitext

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTagRunes bounds the length of an accepted tag name
const MaxTagRunes = 50

// bullets and "1." or "2)" numbering; digits that start a name such as 5G stay
var tagPrefixRe = regexp.MustCompile(`^(?:(?:[-•*]+|\d+[.)])\s*)+`)

// ParseTags reads one tag per line, dropping list markers and bold
// wrappers. Order is preserved and duplicates removed.
func ParseTags(raw string) []string {
	tags := make([]string, 0)
	seen := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		name := strings.TrimSpace(line)
		name = tagPrefixRe.ReplaceAllString(name, "")
		name = strings.TrimSpace(strings.Trim(name, "*"))
		n := utf8.RuneCountInString(name)
		if n == 0 || n >= MaxTagRunes {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}
	return tags
}

// MergeTags is the ordered union of suggested then vocabulary, capped at limit
func MergeTags(suggested, vocabulary []string, limit int) []string {
	merged := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, list := range [][]string{suggested, vocabulary} {
		for _, name := range list {
			if len(merged) >= limit {
				return merged
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			merged = append(merged, name)
		}
	}
	return merged
}
