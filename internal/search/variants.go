package search

import (
	"regexp"
	"strings"

	"github.com/lighteternal/dendrite/internal/textutil"
)

// letterDigitPattern matches symbol-shaped mentions like "il6" or "il-6"
var letterDigitPattern = regexp.MustCompile(`^([a-z]+)[- ]?([0-9]+[a-z]?)$`)

// geneFamilyExpansions maps well-known symbol prefixes to the spelled-out
// family name, used for gene-hint generation ("il6" -> "interleukin 6").
var geneFamilyExpansions = map[string]string{
	"il":   "interleukin",
	"tnf":  "tumor necrosis factor",
	"ifn":  "interferon",
	"tgf":  "transforming growth factor",
	"cxcl": "c-x-c motif chemokine ligand",
	"ccl":  "c-c motif chemokine ligand",
}

// Variants generates up to max lexical variants of a mention, starting with
// its normalized form: hyphen/space flips, apostrophe-remnant collapsing,
// letter+digit reshaping, and an uppercase form for short symbol tokens.
func Variants(mention string, max int) []string {
	base := textutil.Normalize(mention)
	if base == "" {
		return nil
	}
	if max <= 0 {
		max = 1
	}

	candidates := []string{base}

	if strings.Contains(base, "-") {
		candidates = append(candidates, strings.ReplaceAll(base, "-", " "))
		candidates = append(candidates, strings.ReplaceAll(base, "-", ""))
	} else if strings.Contains(base, " ") {
		candidates = append(candidates, strings.ReplaceAll(base, " ", "-"))
	}

	// "crohn s disease" (apostrophe stripped to a lone s) -> "crohns disease"
	if strings.Contains(base, " s ") || strings.HasSuffix(base, " s") {
		collapsed := strings.ReplaceAll(base+" ", " s ", "s ")
		candidates = append(candidates, strings.TrimSpace(collapsed))
	}

	if m := letterDigitPattern.FindStringSubmatch(base); m != nil {
		candidates = append(candidates,
			m[1]+m[2],
			m[1]+"-"+m[2],
			m[1]+" "+m[2],
		)
	}

	if !strings.ContainsRune(base, ' ') && len(base) <= 6 {
		candidates = append(candidates, strings.ToUpper(base))
	}

	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) >= max {
			break
		}
	}
	return out
}

// GeneHints derives spelled-out hint phrases for a symbol-shaped mention.
// The hints are matched against candidate names and descriptions to rescue
// and boost rows the raw lexical similarity would miss.
func GeneHints(mention string) []string {
	base := textutil.Normalize(mention)
	m := letterDigitPattern.FindStringSubmatch(base)
	if m == nil || !textutil.IsGeneSymbolLike(base) {
		return nil
	}

	hints := []string{m[1] + "-" + m[2], m[1] + " " + m[2]}
	if family, ok := geneFamilyExpansions[m[1]]; ok {
		hints = append(hints, family+" "+m[2], family+"-"+m[2])
	}
	return hints
}
