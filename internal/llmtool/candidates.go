package llmtool

import (
	"regexp"
	"strings"
)

var (
	jsonFenceRe = regexp.MustCompile("(?is)```[ \t]*json[ \t]*\r?\n?(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")
)

// JSONCandidates lists substrings of a model reply that may hold the JSON
// answer, most specific first: json-labelled fences, any fence, the span
// from the first '{' to the last '}', then the whole reply. Empty and
// duplicate candidates are dropped.
func JSONCandidates(raw string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, m := range jsonFenceRe.FindAllStringSubmatch(raw, -1) {
		add(m[1])
	}
	for _, m := range anyFenceRe.FindAllStringSubmatch(raw, -1) {
		add(m[1])
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			add(raw[start : end+1])
		}
	}
	add(raw)
	return out
}
