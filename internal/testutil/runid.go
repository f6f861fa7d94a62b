package testutil

import "sync"

// FixedRunIDs returns predetermined run ids, then repeats the last one.
//
// This enables deterministic test execution and golden snapshot comparison.
//
// Thread-safety: FixedRunIDs is safe for concurrent use via internal mutex.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs creates a generator over ids. With no ids, Generate
// returns "test-run-default".
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	if len(ids) == 0 {
		ids = []string{"test-run-default"}
	}
	return &FixedRunIDs{ids: ids}
}

// Generate returns the next run id.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
