package schema

import "strings"

// Suggest returns the candidate closest to query, or "" when none is close enough
// to be a plausible typo. The allowed edit distance grows with the query length.
func Suggest(query string, candidates []string) string {
	if query == "" {
		return ""
	}

	queryLower := strings.ToLower(query)

	// Shorter queries get stricter matching
	maxDistance := len(queryLower) / 3
	if maxDistance < 1 {
		maxDistance = 1
	}
	if maxDistance > 3 {
		maxDistance = 3
	}

	best := ""
	bestDistance := maxDistance + 1
	for _, candidate := range candidates {
		d := levenshteinDistance(queryLower, strings.ToLower(candidate))
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}

// levenshteinDistance calculates the minimum number of single-character edits
// (insertions, deletions, or substitutions) required to change s1 into s2.
func levenshteinDistance(s1, s2 string) int {
	len1, len2 := len(s1), len(s2)

	// Two rolling rows are enough for the dynamic programming table
	prev := make([]int, len2+1)
	curr := make([]int, len2+1)
	for j := 0; j <= len2; j++ {
		prev[j] = j
	}

	for i := 1; i <= len1; i++ {
		curr[0] = i
		for j := 1; j <= len2; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}

			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len2]
}
