package enrich

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
)

// Run carries the state owned by a single Enrich call. It is safe for
// concurrent use by the per-company workers.
type Run struct {
	Query *entity.Query

	mu   sync.Mutex
	seen map[string]struct{}

	searchExhausted atomic.Bool
	emailExhausted  atomic.Bool
}

func newRun(q *entity.Query) *Run {
	return &Run{Query: q, seen: make(map[string]struct{})}
}

// Claim records domain as handled for this run. It returns false when the
// domain was already claimed.
func (r *Run) Claim(domain string) bool {
	key := strings.ToLower(strings.TrimSpace(domain))
	if key == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	return true
}

// SeenDomains returns the number of claimed domains.
func (r *Run) SeenDomains() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// SearchExhausted reports whether text search quota ran out during the run.
func (r *Run) SearchExhausted() bool { return r.searchExhausted.Load() }

// EmailExhausted reports whether mailbox validation quota ran out during the run.
func (r *Run) EmailExhausted() bool { return r.emailExhausted.Load() }
