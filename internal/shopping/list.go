package shopping

import "strings"

// Dedupe removes repeated items (compared case-insensitively, ignoring
// surrounding whitespace) while keeping the first-seen order and spelling.
// Blank items are dropped.
func Dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
