package taskhistory

import (
	"context"
	"sort"
	"time"

	"agentcore/internal/logging"
)

// nowFn is overridable in tests for deterministic TTL arithmetic.
var nowFn = time.Now

// Provider is getRecent(limit) → Snapshot, with three implementations:
// direct (in-process TaskSource), HTTP, and null (safe default).
type Provider interface {
	GetRecent(ctx context.Context, limit int) Snapshot
}

// TaskSource is the in-process store a DirectProvider reads from — the
// embedding application's own task store, not owned by this package.
type TaskSource interface {
	RecentTasks(ctx context.Context) ([]RecentTaskItem, error)
}

// DirectProvider reads straight from an in-process TaskSource, with no
// network hop.
type DirectProvider struct {
	cfg    Config
	source TaskSource
}

// NewDirectProvider builds a DirectProvider over source.
func NewDirectProvider(cfg Config, source TaskSource) *DirectProvider {
	return &DirectProvider{cfg: cfg, source: source}
}

func (p *DirectProvider) GetRecent(ctx context.Context, limit int) Snapshot {
	now := nowFn()
	items, err := p.source.RecentTasks(ctx)
	if err != nil {
		logging.TaskHistoryDebug("direct provider failed: %v", err)
		return Snapshot{OK: false, Source: SourceDirect, Error: truncate(err.Error(), 200), FetchedAt: now}
	}
	return Snapshot{
		OK:        true,
		Source:    SourceDirect,
		Tasks:     boundAndSort(items, p.cfg, limit),
		FetchedAt: now,
	}
}

// NullProvider is the safe default: always returns an empty, successful
// snapshot, matching the teacher's convention of a null backend that never
// blocks a tick on an absent dependency.
type NullProvider struct{}

func (NullProvider) GetRecent(ctx context.Context, limit int) Snapshot {
	return Snapshot{OK: true, Source: SourceNull, Tasks: nil, FetchedAt: nowFn()}
}

// boundAndSort applies spec.md §4.B's invariants: limit clamped to
// cfg.MaxLimit, title/summary truncated, stable sort by
// bestUpdatedAt desc, id desc tie-break.
func boundAndSort(items []RecentTaskItem, cfg Config, limit int) []RecentTaskItem {
	if limit <= 0 || limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}

	out := make([]RecentTaskItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].Title = truncate(out[i].Title, cfg.MaxTitle)
		out[i].Summary = truncate(out[i].Summary, cfg.MaxSummary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].BestUpdatedAt.Equal(out[j].BestUpdatedAt) {
			return out[i].BestUpdatedAt.After(out[j].BestUpdatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
