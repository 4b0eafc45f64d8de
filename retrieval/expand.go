package retrieval

import "strings"

// ExpandQuery generates query variations meant to improve recall: the
// original query, question-form variants when the query isn't already a
// question, and a term-only sub-query for longer queries.
func ExpandQuery(query string) []string {
	expanded := []string{query}

	if !strings.HasSuffix(query, "?") {
		expanded = append(expanded, "What is "+query+"?", "How does "+query+" work?")
	}

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) > 3 {
		var important []string
		for _, t := range tokens {
			if len(t) > 3 {
				important = append(important, t)
			}
		}
		if len(important) >= 2 {
			expanded = append(expanded, strings.Join(important, " "))
		}
	}

	return expanded
}

// ReformulateQuery prefixes query with prior-turn context when present.
func ReformulateQuery(query, context string) string {
	if context == "" {
		return query
	}
	return context + " " + query
}
