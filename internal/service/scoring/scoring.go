package scoring

import "strings"

const (
	categoryPosition   = "search_position"
	categoryFirstTier  = "first_tier_title"
	categorySecondTier = "second_tier_title"

	baseScore       = 1000
	firstTierBonus  = 50
	secondTierBonus = 25
)

// Keywords are checked in order and only the first hit per tier counts.
var (
	firstTierKeywords  = []string{"owner", "ceo", "chief", "principal", "founder"}
	secondTierKeywords = []string{"director", "md", "manager", "admin", "exec", "president"}
)

// ScoreResult reports the aggregate score and the per-category breakdown.
type ScoreResult struct {
	Total     int
	Breakdown map[string]int
	// Matched lists the keyword that earned each tier bonus.
	Matched []string
}

// ComputeRank scores how likely a person is to be a senior decision maker from
// their search rank and position text.
func ComputeRank(searchRank int, position string) ScoreResult {
	breakdown := map[string]int{
		categoryPosition: baseScore - searchRank,
	}
	var matched []string

	lowered := strings.ToLower(position)
	if kw, ok := firstMatch(lowered, firstTierKeywords); ok {
		breakdown[categoryFirstTier] = firstTierBonus
		matched = append(matched, kw)
	}
	if kw, ok := firstMatch(lowered, secondTierKeywords); ok {
		breakdown[categorySecondTier] = secondTierBonus
		matched = append(matched, kw)
	}

	total := 0
	for _, value := range breakdown {
		total += value
	}

	return ScoreResult{
		Total:     total,
		Breakdown: breakdown,
		Matched:   matched,
	}
}

// RankScore returns only the total of ComputeRank.
func RankScore(searchRank int, position string) int {
	return ComputeRank(searchRank, position).Total
}

func firstMatch(text string, keywords []string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}
