// Package textutil provides the lexical primitives shared across the
// resolution pipeline: text normalization, token helpers, and the
// similarity metric used throughout candidate ranking.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

// geneSymbolPattern matches short symbol-like tokens such as "tp53" or "cd4l"
var geneSymbolPattern = regexp.MustCompile(`^[a-z]{1,6}[0-9]{1,3}[a-z]?$`)

// diseaseCueWords are substrings that strongly suggest a disease mention
var diseaseCueWords = []string{
	"syndrome", "cancer", "disease", "disorder", "tumor", "tumour",
	"carcinoma", "lymphoma", "leukemia", "leukaemia", "infection",
	"deficiency", "sclerosis", "arthritis",
}

// diseaseCueSuffixes catch inflammation/condition word forms ("-itis" etc.)
var diseaseCueSuffixes = []string{"itis", "osis", "emia", "pathy"}

// Normalize lowercases, strips punctuation except hyphen, and collapses
// whitespace. It is idempotent.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens returns the whitespace-separated tokens of the normalized form
func Tokens(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}

// Compact reduces a string to its canonical compact form: alphanumerics
// only, with a trailing plural "s" stripped. Used for loose containment
// checks between mentions and anchor names.
func Compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 3 && strings.HasSuffix(out, "s") {
		out = strings.TrimSuffix(out, "s")
	}
	return out
}

// IsGeneSymbolLike reports whether a token reads like a gene or protein
// symbol: carries a digit or hyphen, or is a short letters+digits form
// such as "tp53" or "il6".
func IsGeneSymbolLike(token string) bool {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return false
	}
	if strings.ContainsAny(t, "-0123456789") {
		if strings.ContainsRune(t, '-') {
			return true
		}
		for _, r := range t {
			if unicode.IsDigit(r) {
				return true
			}
		}
	}
	return geneSymbolPattern.MatchString(t)
}

// IsSignalToken reports whether a raw (pre-normalization) token carries an
// entity signal: a digit, an uppercase letter, or a hyphen/plus.
func IsSignalToken(raw string) bool {
	for _, r := range raw {
		if unicode.IsDigit(r) || unicode.IsUpper(r) || r == '-' || r == '+' {
			return true
		}
	}
	return false
}

// HasDiseaseCue reports whether text carries an explicit disease cue such
// as "syndrome", "cancer", or an "-itis" style suffix.
func HasDiseaseCue(s string) bool {
	n := Normalize(s)
	for _, w := range diseaseCueWords {
		if strings.Contains(n, w) {
			return true
		}
	}
	for _, tok := range strings.Fields(n) {
		for _, suf := range diseaseCueSuffixes {
			if len(tok) > len(suf)+2 && strings.HasSuffix(tok, suf) {
				return true
			}
		}
	}
	return false
}
