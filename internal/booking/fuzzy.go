package booking

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// matchThreshold is the minimum similarity percentage for two names to
// be considered the same caller. Speech recognition mangles names often
// enough that exact matching would strand most lookups.
const matchThreshold = 75

// cleanName lowercases a name and strips spaces and periods, so that
// "R a g. I" and "Ragi" compare equal.
func cleanName(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

func levenshtein(a, b string) int {
	dmp := diffmatchpatch.New()
	return dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
}

// similarity returns a 0-100 score from the normalized Levenshtein
// distance between two already-cleaned strings.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein(a, b)
	if dist >= longest {
		return 0
	}
	return (longest - dist) * 100 / longest
}

// partialSimilarity slides the shorter string over the longer one and
// returns the best window score, so "Rag" still matches "Ragi".
func partialSimilarity(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return 0
	}
	best := 0
	for i := 0; i+len(ra) <= len(rb); i++ {
		if s := similarity(string(ra), string(rb[i:i+len(ra)])); s > best {
			best = s
		}
	}
	return best
}

// nameScore returns the best of full and partial similarity between two
// raw names after cleaning.
func nameScore(searchName, storedName string) int {
	a, b := cleanName(searchName), cleanName(storedName)
	full := similarity(a, b)
	partial := partialSimilarity(a, b)
	if partial > full {
		return partial
	}
	return full
}

// MatchName reports whether a spoken name is close enough to a stored
// reservation name.
func MatchName(searchName, storedName string) bool {
	return nameScore(searchName, storedName) >= matchThreshold
}
