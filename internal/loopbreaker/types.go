// Package loopbreaker implements the Failure Signature & Loop Breaker
// (component A): dedup of recurring failures by (signatureId, taskId)
// within a sliding window, loop_detected_episode_v1 emission at threshold,
// shadow-vs-active suppression, and LRU eviction bounded by maxSignatures.
// Per-signature bookkeeping is grounded on internal/belief.Bus's own
// map-plus-explicit-eviction shape (ageUnseenTracks/evictTrack), the
// nearest in-repo precedent for a bounded, ticked collection of per-key
// state.
package loopbreaker

import "time"

// FailureSignature identifies a recurring failure shape, independent of
// which task or run produced it.
type FailureSignature struct {
	SignatureID string
	Kind        string
	Detail      string
}

// FailureOccurrence is one recordFailure call's identifying context.
type FailureOccurrence struct {
	TaskID string
	RunID  string
}

// Episode is the loop_detected_episode_v1 payload emitted at threshold.
type Episode struct {
	Version             string    `json:"version"`
	SignatureID         string    `json:"signatureId"`
	Occurrences         int       `json:"occurrences"`
	ContributingTaskIDs []string  `json:"contributingTaskIds"`
	ContributingRunIDs  []string  `json:"contributingRunIds"`
	DetectedAt          time.Time `json:"detectedAt"`
	SuppressedUntil     time.Time `json:"suppressedUntil"`
	ShadowMode          bool      `json:"shadowMode"`
}

// Config bounds the loop breaker, per spec.md §6.
type Config struct {
	Threshold        int
	WindowMs         int64
	SuppressionTtlMs int64
	ShadowMode       bool
	MaxSignatures    int
}

// DefaultConfig mirrors spec.md's own example figures.
func DefaultConfig() Config {
	return Config{
		Threshold:        3,
		WindowMs:         60_000,
		SuppressionTtlMs: 120_000,
		ShadowMode:       false,
		MaxSignatures:    1000,
	}
}
