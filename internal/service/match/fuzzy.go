package match

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

const unbaseScale = 0.95

// Process lowercases s, turns every non alphanumeric rune into a space and trims the result.
func Process(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.TrimSpace(mapped)
}

// Ratio is the indel similarity of two strings on a 0-100 scale.
func Ratio(a, b string) int {
	return int(intr(ratio(a, b)))
}

func ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return 100 * levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

// PartialRatio scores the shorter string against the best aligned window of the longer one.
func PartialRatio(a, b string) int {
	return int(intr(partialRatio(a, b)))
}

func partialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0.0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		r := levenshtein.RatioForStrings(shorter, longer[start:start+len(shorter)], levenshtein.DefaultOptions)
		if r > 0.995 {
			return 100
		}
		if r > best {
			best = r
		}
	}
	return 100 * best
}

// TokenSortRatio compares strings after sorting their tokens.
func TokenSortRatio(a, b string) int {
	return int(intr(ratio(sortedTokens(Process(a)), sortedTokens(Process(b)))))
}

// TokenSetRatio compares the shared tokens against each side's remainder.
func TokenSetRatio(a, b string) int {
	return int(intr(tokenSet(Process(a), Process(b), ratio)))
}

// WRatio combines full, partial and token based ratios, weighting each by how
// different the two string lengths are.
func WRatio(a, b string) int {
	p1, p2 := Process(a), Process(b)
	if p1 == "" || p2 == "" {
		return 0
	}

	tryPartial := true
	partialScale := 0.90

	base := ratio(p1, p2)
	l1, l2 := float64(len([]rune(p1))), float64(len([]rune(p2)))
	lenRatio := math.Max(l1, l2) / math.Min(l1, l2)
	if lenRatio < 1.5 {
		tryPartial = false
	}
	if lenRatio > 8 {
		partialScale = 0.6
	}

	if tryPartial {
		partial := intr(partialRatio(p1, p2)) * partialScale
		ptsor := intr(partialRatio(sortedTokens(p1), sortedTokens(p2))) * unbaseScale * partialScale
		ptser := intr(tokenSet(p1, p2, partialRatio)) * unbaseScale * partialScale
		return int(intr(math.Max(math.Max(intr(base), partial), math.Max(ptsor, ptser))))
	}

	tsor := intr(ratio(sortedTokens(p1), sortedTokens(p2))) * unbaseScale
	tser := intr(tokenSet(p1, p2, ratio)) * unbaseScale
	return int(intr(math.Max(intr(base), math.Max(tsor, tser))))
}

func tokenSet(p1, p2 string, scorer func(a, b string) float64) float64 {
	if p1 == "" || p2 == "" {
		return 0
	}
	t1 := tokenSetOf(p1)
	t2 := tokenSetOf(p2)

	var inter, diff1, diff2 []string
	for tok := range t1 {
		if _, ok := t2[tok]; ok {
			inter = append(inter, tok)
		} else {
			diff1 = append(diff1, tok)
		}
	}
	for tok := range t2 {
		if _, ok := t1[tok]; !ok {
			diff2 = append(diff2, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(diff1)
	sort.Strings(diff2)

	sect := strings.Join(inter, " ")
	combined1 := strings.TrimSpace(sect + " " + strings.Join(diff1, " "))
	combined2 := strings.TrimSpace(sect + " " + strings.Join(diff2, " "))

	return math.Max(
		math.Max(scorer(sect, combined1), scorer(sect, combined2)),
		scorer(combined1, combined2),
	)
}

func tokenSetOf(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		out[tok] = struct{}{}
	}
	return out
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// intr rounds half to even.
func intr(f float64) float64 {
	return math.RoundToEven(f)
}
