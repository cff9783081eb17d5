// Copyright © 2025 The MON authors

package analysis

import (
	"github.com/hbollon/go-edlib"
)

// suggestThreshold is the minimum Jaro-Winkler similarity for a name to be
// offered as a correction.
const suggestThreshold = 0.8

// Suggest returns the candidate most similar to name, if any candidate is
// similar enough to be a likely typo. Ties go to the earlier candidate.
func Suggest(name string, candidates []string) (string, bool) {
	best, bestScore := "", float32(0)
	for _, c := range candidates {
		if c == name {
			continue
		}
		score, err := edlib.StringsSimilarity(name, c, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < suggestThreshold {
		return "", false
	}
	return best, true
}
