package textutil

import "strings"

// Similarity metric anchor points
const (
	prefixScore   = 0.82
	initialsScore = 0.94
)

// Similarity computes a symmetric lexical similarity in [0,1] between two
// strings after normalization. Exact match scores 1, prefix containment in
// either direction scores 0.82, a single token matching the initials of a
// multi-token name scores 0.94, and anything else falls through to a
// Dice-style token overlap coefficient.
func Similarity(a, b string) float64 {
	left := Normalize(a)
	right := Normalize(b)
	if left == "" || right == "" {
		return 0
	}
	if left == right {
		return 1
	}
	if strings.HasPrefix(left, right) || strings.HasPrefix(right, left) {
		return prefixScore
	}

	leftTokens := strings.Fields(left)
	rightTokens := strings.Fields(right)
	if initialsMatch(leftTokens, rightTokens) || initialsMatch(rightTokens, leftTokens) {
		return initialsScore
	}

	return diceOverlap(leftTokens, rightTokens)
}

// initialsMatch reports whether a lone token abbreviates a multi-token
// name: either it spells the per-word initials ("copd" against "chronic
// obstructive pulmonary disease") or it compresses the leading word
// ("cv" against "cardiovascular disease").
func initialsMatch(single, multi []string) bool {
	if len(single) != 1 || len(multi) < 2 {
		return false
	}
	token := single[0]
	if len(token) < 2 || len(token) > 6 {
		return false
	}
	if spellsInitials(token, multi) {
		return true
	}
	return compressesWord(token, multi[0])
}

func spellsInitials(token string, words []string) bool {
	if len(token) != len(words) {
		return false
	}
	for i, word := range words {
		if word == "" || token[i] != word[0] {
			return false
		}
	}
	return true
}

// compressesWord reports whether the token's letters occur in order
// within the word, starting at its first letter.
func compressesWord(token, word string) bool {
	if word == "" || token[0] != word[0] {
		return false
	}
	i := 1
	for j := 1; j < len(word) && i < len(token); j++ {
		if word[j] == token[i] {
			i++
		}
	}
	return i == len(token)
}

// diceOverlap is the harmonic mean of token precision and recall:
// 2*shared / (len(left) + len(right)). No shared tokens scores 0.
func diceOverlap(left, right []string) float64 {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(left))
	for _, t := range left {
		seen[t] = true
	}
	shared := 0
	counted := make(map[string]bool, len(right))
	for _, t := range right {
		if seen[t] && !counted[t] {
			shared++
			counted[t] = true
		}
	}
	if shared == 0 {
		return 0
	}
	return 2 * float64(shared) / float64(len(left)+len(right))
}
