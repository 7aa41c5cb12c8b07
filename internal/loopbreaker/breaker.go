package loopbreaker

import (
	"container/list"
	"sort"
	"sync"
	"time"

	"agentcore/internal/logging"
)

type signatureState struct {
	signatureID     string
	windowStart     time.Time
	taskIDs         map[string]bool
	taskOrder       []string
	runIDs          map[string]bool
	runOrder        []string
	suppressedUntil time.Time
	lruElem         *list.Element
}

// Breaker is the Failure Signature & Loop Breaker. recordFailure dedups by
// (signatureId, taskId) within a sliding window and emits an Episode at
// threshold, per spec.md §4.A.
type Breaker struct {
	mu    sync.Mutex
	cfg   Config
	now   func() time.Time
	state map[string]*signatureState

	// lru is an eviction order list, most-recently-used at the front.
	// container/list (stdlib) is used here rather than a third-party LRU
	// library: the only pack repo importing one (hashicorp/golang-lru in
	// AKJUS-bsc-erigon) pulls it in transitively with no direct call site
	// in the retrieved source to ground a usage pattern on.
	lru *list.List
}

// New constructs a Breaker. nowFn defaults to time.Now; tests may override
// it for deterministic window arithmetic.
func New(cfg Config, nowFn func() time.Time) *Breaker {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Breaker{
		cfg:   cfg,
		now:   nowFn,
		state: make(map[string]*signatureState),
		lru:   list.New(),
	}
}

// RecordFailure is recordFailure(sig, {taskId, runId}). It returns the
// emitted Episode (or nil if threshold not yet reached).
func (b *Breaker) RecordFailure(sig FailureSignature, occ FailureOccurrence) *Episode {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	st, ok := b.state[sig.SignatureID]
	if !ok || now.Sub(st.windowStart) > time.Duration(b.cfg.WindowMs)*time.Millisecond {
		if ok {
			b.lru.Remove(st.lruElem)
		}
		st = &signatureState{
			signatureID: sig.SignatureID,
			windowStart: now,
			taskIDs:     make(map[string]bool),
			runIDs:      make(map[string]bool),
		}
		b.state[sig.SignatureID] = st
		st.lruElem = b.lru.PushFront(sig.SignatureID)
		b.evictOverCapacityLocked()
	} else {
		b.lru.MoveToFront(st.lruElem)
	}

	if !st.taskIDs[occ.TaskID] {
		st.taskIDs[occ.TaskID] = true
		st.taskOrder = append(st.taskOrder, occ.TaskID)
	}
	if occ.RunID != "" && !st.runIDs[occ.RunID] {
		st.runIDs[occ.RunID] = true
		st.runOrder = append(st.runOrder, occ.RunID)
	}

	if len(st.taskOrder) < b.cfg.Threshold {
		return nil
	}

	episode := &Episode{
		Version:             "loop_detected_episode_v1",
		SignatureID:         sig.SignatureID,
		Occurrences:         len(st.taskOrder),
		ContributingTaskIDs: append([]string(nil), st.taskOrder...),
		ContributingRunIDs:  append([]string(nil), st.runOrder...),
		DetectedAt:          now,
		ShadowMode:          b.cfg.ShadowMode,
	}

	if !b.cfg.ShadowMode {
		st.suppressedUntil = now.Add(time.Duration(b.cfg.SuppressionTtlMs) * time.Millisecond)
		episode.SuppressedUntil = st.suppressedUntil
	}

	logging.LoopBreakerDebug("loopbreaker: episode emitted signature=%s occurrences=%d shadow=%t", sig.SignatureID, episode.Occurrences, b.cfg.ShadowMode)

	// Reset the window so detection does not re-fire immediately, per
	// spec.md §4.A.
	st.windowStart = now
	st.taskIDs = make(map[string]bool)
	st.taskOrder = nil
	st.runIDs = make(map[string]bool)
	st.runOrder = nil

	return episode
}

// IsSuppressed reports whether signatureID is currently suppressed. Always
// false in shadow mode, even immediately after an episode is emitted.
func (b *Breaker) IsSuppressed(signatureID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.state[signatureID]
	if !ok {
		return false
	}
	if st.suppressedUntil.IsZero() {
		return false
	}
	return b.now().Before(st.suppressedUntil)
}

// ClearSuppression lifts an active suppression before its TTL elapses.
func (b *Breaker) ClearSuppression(signatureID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.state[signatureID]; ok {
		st.suppressedUntil = time.Time{}
	}
}

// evictOverCapacityLocked drops the least-recently-used signature once the
// tracked set exceeds MaxSignatures. Caller must hold b.mu.
func (b *Breaker) evictOverCapacityLocked() {
	for len(b.state) > b.cfg.MaxSignatures && b.lru.Len() > 0 {
		back := b.lru.Back()
		if back == nil {
			return
		}
		signatureID := back.Value.(string)
		b.lru.Remove(back)
		delete(b.state, signatureID)
	}
}

// TrackedSignatures returns the currently tracked signature IDs, sorted,
// for diagnostics and tests.
func (b *Breaker) TrackedSignatures() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.state))
	for id := range b.state {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
