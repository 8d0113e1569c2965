package command

import (
	"sort"
	"strings"
	"unicode"
)

// Prefixes returns the configured prefixes plus the bot mention forms,
// longest first so that "!!" wins over "!".
func Prefixes(configured []string, botID string) []string {
	out := make([]string, 0, len(configured)+2)
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range configured {
		add(p)
	}
	if botID != "" {
		add("<@" + botID + ">")
		add("<@!" + botID + ">")
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// ParseMessage splits content into prefix, command name and the raw rest.
// ok is false when content does not start with one of prefixes or carries
// no command name.
func ParseMessage(content string, prefixes []string) (prefix, name, raw string, ok bool) {
	for _, p := range prefixes {
		if !strings.HasPrefix(content, p) {
			continue
		}
		rest := strings.TrimLeftFunc(content[len(p):], unicode.IsSpace)
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			end = len(rest)
		}
		if end == 0 {
			return "", "", "", false
		}
		name = strings.ToLower(rest[:end])
		raw = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
		return p, name, raw, true
	}
	return "", "", "", false
}

// ShiftArg splits the first whitespace-delimited token off raw and returns
// the remainder with its line breaks intact.
func ShiftArg(raw string) (arg, rest string) {
	raw = strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := strings.IndexFunc(raw, unicode.IsSpace)
	if end < 0 {
		return raw, ""
	}
	return raw[:end], strings.TrimLeftFunc(raw[end:], unicode.IsSpace)
}
