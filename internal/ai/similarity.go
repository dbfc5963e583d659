package ai

import "github.com/agnivade/levenshtein"

// Similarity scores how close the corrected text stayed to the original,
// 1.0 for identical strings, 0.0 for a complete rewrite. The score is kept
// per item so reviewers can sort heavy edits first.
func Similarity(original, corrected string) float64 {
	if original == corrected {
		return 1.0
	}
	longest := len([]rune(original))
	if l := len([]rune(corrected)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(original, corrected)
	score := 1.0 - float64(dist)/float64(longest)
	if score < 0 {
		return 0
	}
	return score
}
