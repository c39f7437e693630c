package match

// DefaultThreshold is the minimum WRatio score for a candidate to be accepted.
const DefaultThreshold = 70

// Result is the best scoring candidate for a target name.
type Result struct {
	Candidate string
	Score     int
}

// Best returns the highest scoring candidate by WRatio. Ties keep the earliest
// candidate. ok is false when there are no candidates.
func Best(target string, candidates []string) (Result, bool) {
	if len(candidates) == 0 {
		return Result{}, false
	}
	best := Result{Candidate: candidates[0], Score: -1}
	for _, candidate := range candidates {
		score := WRatio(target, candidate)
		if score > best.Score {
			best = Result{Candidate: candidate, Score: score}
		}
	}
	return best, true
}

// Matcher decides which extracted affiliation, if any, refers to a target company.
type Matcher struct {
	threshold int
}

// New builds a matcher. A non-positive threshold falls back to DefaultThreshold.
func New(threshold int) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the configured cut-off.
func (m *Matcher) Threshold() int {
	return m.threshold
}

// Select returns the winning candidate when its score reaches the threshold.
// The score of the best candidate is returned either way for logging.
func (m *Matcher) Select(target string, candidates []string) (Result, bool) {
	best, ok := Best(target, Distinct(candidates))
	if !ok || best.Score < m.threshold {
		return best, false
	}
	return best, true
}

// Distinct removes repeated strings, keeping first occurrences in order.
func Distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
