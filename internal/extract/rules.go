package extract

import (
	"regexp"
	"strings"

	"github.com/lighteternal/dendrite/internal/textutil"
)

// relationRule captures one structured relational pattern. Rules run against
// the normalized query; every capture group yields a candidate mention side.
type relationRule struct {
	name string
	re   *regexp.Regexp
}

// relationRules is the ordered rule table for structured relation
// extraction. Order matters only for the heuristic attribution; all matching
// rules contribute sides.
var relationRules = []relationRule{
	{
		name: "between",
		re:   regexp.MustCompile(`\bbetween\s+(.+?)\s+and\s+(.+)$`),
	},
	{
		name: "connection",
		re:   regexp.MustCompile(`\b(?:connection|relationship|link|linkage|association|interplay)\s+(?:of\s+|between\s+)?(.+?)\s+(?:to|and|with)\s+(.+)$`),
	},
	{
		name: "connect-verb",
		re:   regexp.MustCompile(`\b(?:connect|connects|relate|relates|related|linked|links)\s+(.+?)\s+(?:to|and|with)\s+(.+)$`),
	},
	{
		name: "versus",
		re:   regexp.MustCompile(`^(.+?)\s+(?:vs|versus)\s+(.+)$`),
	},
	{
		name: "causal",
		re:   regexp.MustCompile(`^(.+?)\s+(?:leads?\s+to|causes?|caused\s+by|drives?|driving|results?\s+in|contributes?\s+to|is\s+associated\s+with|associated\s+with|implicated\s+in)\s+(.+)$`),
	},
}

// quotedPattern extracts quoted substrings from the raw query, before
// normalization strips the quote characters.
var quotedPattern = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// leadingStopwords are question/causal lead-ins stripped from mention sides
var leadingStopwords = map[string]bool{
	"how": true, "does": true, "do": true, "did": true, "what": true,
	"whats": true, "is": true, "are": true, "was": true, "were": true,
	"why": true, "can": true, "could": true, "will": true, "would": true,
	"should": true, "might": true, "may": true, "the": true, "a": true,
	"an": true, "tell": true, "me": true, "explain": true, "about": true,
	"s": true,
}

// trailingTails are bare prepositions/articles dropped from mention ends
var trailingTails = map[string]bool{
	"in": true, "of": true, "for": true, "to": true, "with": true,
	"by": true, "on": true, "at": true, "the": true, "a": true, "an": true,
	"and": true, "or": true,
}

// genericTailNouns are generic population words; "in <noun>" tails built
// from them are stripped ("arthritis in adults" -> "arthritis").
var genericTailNouns = map[string]bool{
	"patients": true, "humans": true, "adults": true, "children": true,
	"people": true, "mice": true, "models": true, "general": true,
}

// mechanismTokens are process words that do not name an entity on their own
var mechanismTokens = map[string]bool{
	"signaling": true, "signalling": true, "pathway": true, "pathways": true,
	"mechanism": true, "mechanisms": true, "cascade": true, "cascades": true,
	"axis": true, "process": true, "processes": true, "regulation": true,
	"activation": true, "expression": true, "role": true, "function": true,
}

// relationSides runs the rule table against a normalized query and returns
// every captured side, uncleaned.
func relationSides(normalized string) []string {
	var sides []string
	for _, rule := range relationRules {
		m := rule.re.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		for _, side := range m[1:] {
			if side != "" {
				sides = append(sides, side)
			}
		}
	}
	return sides
}

// quotedSides extracts quoted phrases from the raw query text
func quotedSides(raw string) []string {
	var sides []string
	for _, m := range quotedPattern.FindAllStringSubmatch(raw, -1) {
		for _, g := range m[1:] {
			if g != "" {
				sides = append(sides, g)
			}
		}
	}
	return sides
}

// splitSide breaks a captured side on commas and "and" conjunctions
func splitSide(side string) []string {
	var halves []string
	for _, chunk := range strings.Split(side, ",") {
		for _, half := range strings.Split(" "+chunk+" ", " and ") {
			half = strings.TrimSpace(half)
			if half != "" {
				halves = append(halves, half)
			}
		}
	}
	return halves
}

// cleanMention normalizes a mention half, stripping leading question verbs
// and trailing prepositional tails. Returns "" when nothing survives.
func cleanMention(half string) string {
	tokens := textutil.Tokens(half)

	for len(tokens) > 0 && leadingStopwords[tokens[0]] {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && trailingTails[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	// Drop "in <population>" style tails
	if len(tokens) >= 3 && tokens[len(tokens)-2] == "in" && genericTailNouns[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-2]
	}

	return strings.Join(tokens, " ")
}

// isGenericMechanismPhrase reports whether a mention is composed almost
// entirely of mechanism words while lacking both a disease cue and a
// gene-symbol-like token. Such mentions never resolve to entities.
func isGenericMechanismPhrase(mention string) bool {
	tokens := textutil.Tokens(mention)
	if len(tokens) == 0 {
		return true
	}
	mech := 0
	for _, tok := range tokens {
		if mechanismTokens[tok] {
			mech++
			continue
		}
		if textutil.IsGeneSymbolLike(tok) {
			return false
		}
	}
	if textutil.HasDiseaseCue(mention) {
		return false
	}
	nonMech := len(tokens) - mech
	return mech > 0 && nonMech <= 1 && mech >= nonMech
}
