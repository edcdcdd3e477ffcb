package diag

import (
	"strings"

	"golang.org/x/exp/slices"
)

// levenshtein computes the case-insensitive (ASCII-folded) edit distance
// between a and b.
func levenshtein(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			cur[j] = min3(del, ins, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// Suggestion is a single "did you mean" candidate with its distance and
// whether it's a same-spelling-different-case match.
type Suggestion struct {
	Name       string
	Distance   int
	CaseOnly   bool // zero-distance-ignoring-case match: same word, wrong case
}

// Suggest ranks candidates against name, keeping only those within
// len(name)/2 edits (spec.md §4.F), sorted by increasing distance then
// lexically. A distance-0 case-insensitive match (but not an exact match)
// is flagged CaseOnly so the caller can print the case-sensitivity hint.
func Suggest(name string, candidates []string) []Suggestion {
	threshold := len(name) / 2

	var out []Suggestion
	for _, c := range candidates {
		if c == name {
			continue
		}
		d := levenshtein(name, c)
		if d > threshold {
			continue
		}
		caseOnly := d == 0 && c != name
		out = append(out, Suggestion{Name: c, Distance: d, CaseOnly: caseOnly})
	}
	slices.SortFunc(out, func(a, b Suggestion) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
