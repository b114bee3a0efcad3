package tabql

import (
	"sort"
	"strings"
)

const maxCandidates = 3

// suggest ranks existing column names by similarity to the missing one.
// Case-insensitive containment wins outright; otherwise normalized edit
// distance decides. Up to three names are returned.
func suggest(missing string, available []string) []string {
	type scored struct {
		name  string
		score float64
	}

	lowerMissing := strings.ToLower(missing)
	candidates := make([]scored, 0, len(available))
	for _, name := range available {
		lowerName := strings.ToLower(name)
		var s float64
		switch {
		case strings.Contains(lowerName, lowerMissing) || strings.Contains(lowerMissing, lowerName):
			s = 1.0
		default:
			s = similarity(lowerMissing, lowerName)
		}
		candidates = append(candidates, scored{name: name, score: s})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	n := min(maxCandidates, len(candidates))
	out := make([]string, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, c.name)
	}
	return out
}

// similarity is 1 - normalized Levenshtein distance.
func similarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
