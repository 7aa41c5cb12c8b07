// Package taskhistory implements the Task History Provider (component B):
// a bounded, cache-coherent recent-task summary with provenance, per
// spec.md §4.B. Three Provider implementations exist — direct (in-process
// TaskSource), HTTP, and null — behind one interface, the same
// pattern internal/acquisition uses for its Reasoner port.
package taskhistory

import "time"

// RecentTaskItem is one summarized task entry, bounded per spec.md §6
// (title ≤ 120 chars, summary ≤ 200 chars).
type RecentTaskItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	Status        string    `json:"status"`
	BestUpdatedAt time.Time `json:"bestUpdatedAt"`
}

// Snapshot is the result of a getRecent(limit) call, always carrying
// provenance even on failure.
type Snapshot struct {
	OK        bool             `json:"ok"`
	Source    string           `json:"source"`
	Tasks     []RecentTaskItem `json:"tasks"`
	Error     string           `json:"error,omitempty"`
	CacheHit  bool             `json:"cacheHit"`
	FetchedAt time.Time        `json:"fetchedAt"`
}

// Source identifiers recorded in Snapshot.Source, reflecting the attempted
// provider even when the attempt failed.
const (
	SourceDirect = "planning_direct"
	SourceHTTP   = "planning_http"
	SourceNull   = "planning_null"
)

// Config bounds the provider, per spec.md §6's TaskHistory.* knobs.
type Config struct {
	TTLMs      int64
	MaxLimit   int
	MaxTitle   int
	MaxSummary int
}

// DefaultConfig mirrors spec.md's own example figures.
func DefaultConfig() Config {
	return Config{
		TTLMs:      5_000,
		MaxLimit:   50,
		MaxTitle:   120,
		MaxSummary: 200,
	}
}
