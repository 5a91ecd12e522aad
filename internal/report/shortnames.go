package report

import "strings"

// ShortNames returns display names for models, truncated at the first ":".
// Models whose short form would collide with another distinct model keep
// their full identifier.
func ShortNames(models []string) []string {
	short := make([]string, len(models))
	owners := map[string]map[string]struct{}{}
	for i, m := range models {
		s := m
		if idx := strings.Index(m, ":"); idx > 0 {
			s = m[:idx]
		}
		short[i] = s
		if owners[s] == nil {
			owners[s] = map[string]struct{}{}
		}
		owners[s][m] = struct{}{}
	}
	for i, m := range models {
		if len(owners[short[i]]) > 1 {
			short[i] = m
		}
	}
	return short
}
