// Package reflex implements the Reflex Arbitrator & Safety Reader
// (component D): a pure threat-assessment function plus a priority-override
// state machine that preempts higher-level planning on critical threats.
// Event dispatch follows the teacher's fire-and-forget, panic-isolated
// handler pattern (cf. cmd/nerd/chat/process.go's recover()-wrapped
// goroutines), adapted here to synchronous handler calls since the tick
// loop is single-threaded cooperative (spec.md §5).
package reflex

import (
	"agentcore/internal/belief"
	"agentcore/internal/logging"
)

// RecommendedAction is the Safety Reader's output action.
type RecommendedAction string

const (
	ActionNone  RecommendedAction = "none"
	ActionShield RecommendedAction = "shield"
	ActionEvade RecommendedAction = "evade"
	ActionFlee  RecommendedAction = "flee"
)

// Severity classifies a reflex trigger for override-duration lookup.
type Severity string

const (
	SeverityDefault  Severity = "default"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Assessment is the output of assessReflexThreats.
type Assessment struct {
	HasCriticalThreat bool
	Threats           []belief.Track
	RecommendedAction RecommendedAction
}

// AssessReflexThreats is a pure function deriving a threat assessment from a
// belief snapshot. Tracks with visibility=lost or threatLevel=none are
// excluded. Per spec.md §4.D.
func AssessReflexThreats(snapshot belief.Snapshot) Assessment {
	var threats []belief.Track
	hasCritical := false
	hasHigh := false
	hasLowOrAbove := false

	for _, track := range snapshot.Tracks {
		if track.Visibility == belief.VisibilityLost || track.ThreatLevel == belief.ThreatNone {
			continue
		}
		threats = append(threats, track)
		switch track.ThreatLevel {
		case belief.ThreatCritical:
			hasCritical = true
		case belief.ThreatHigh:
			hasHigh = true
		case belief.ThreatLow, belief.ThreatMedium:
			hasLowOrAbove = true
		}
	}

	action := ActionNone
	switch {
	case hasCritical:
		action = ActionFlee
	case hasHigh:
		action = ActionEvade
	case hasLowOrAbove:
		action = ActionShield
	}

	return Assessment{
		HasCriticalThreat: hasCritical,
		Threats:           threats,
		RecommendedAction: action,
	}
}

// overrideDuration returns D(severity) per spec.md §4.D: critical -> 15
// ticks, high|default -> 10 ticks (~5 Hz tick rate).
func overrideDuration(severity Severity, defaultTicks, highTicks, criticalTicks int64) int64 {
	switch severity {
	case SeverityCritical:
		return criticalTicks
	case SeverityHigh:
		return highTicks
	default:
		return defaultTicks
	}
}

// EventKind discriminates Arbitrator lifecycle events.
type EventKind string

const (
	EventReflexEnter EventKind = "reflex_enter"
	EventReflexTick  EventKind = "reflex_tick"
	EventReflexExit  EventKind = "reflex_exit"
)

// Event is emitted on reflex lifecycle transitions.
type Event struct {
	Kind           EventKind
	Reason         string
	Severity       Severity
	CurrentTick    int64
	OverrideEndTick int64
	RemainingTicks int64
}

// Handler receives Arbitrator events. Handlers are called synchronously and
// exceptions (panics) are isolated per handler: spec.md §4.D / §9.
type Handler func(Event)

// Config configures override durations per severity.
type Config struct {
	OverrideDurationDefaultTicks  int64
	OverrideDurationHighTicks     int64
	OverrideDurationCriticalTicks int64
}

// Arbitrator owns the priority-override lifecycle exclusively. Not safe for
// concurrent use; the control core is single-threaded cooperative.
type Arbitrator struct {
	cfg      Config
	handlers []Handler

	active         bool
	overrideEndTick int64
	reason         string
	severity       Severity
}

// NewArbitrator constructs an Arbitrator.
func NewArbitrator(cfg Config) *Arbitrator {
	return &Arbitrator{cfg: cfg}
}

// Subscribe registers an event handler.
func (a *Arbitrator) Subscribe(h Handler) {
	a.handlers = append(a.handlers, h)
}

func (a *Arbitrator) emit(evt Event) {
	for _, h := range a.handlers {
		a.dispatchSafely(h, evt)
	}
}

// dispatchSafely isolates a handler's panic so it never aborts the tick
// loop, per spec.md §4.D failure semantics.
func (a *Arbitrator) dispatchSafely(h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.ReflexDebug("recovered panic in reflex event handler: kind=%s recover=%v", evt.Kind, r)
		}
	}()
	h(evt)
}

// EnterReflexMode sets overrideEndTick = currentTick + D(severity). If the
// Arbitrator was not previously active, it emits reflex_enter. Re-entering
// while already active refreshes the window but does not re-emit
// reflex_enter (spec.md §4.D: "if not previously active").
func (a *Arbitrator) EnterReflexMode(reason string, currentTick int64, severity Severity) {
	duration := overrideDuration(severity, a.cfg.OverrideDurationDefaultTicks, a.cfg.OverrideDurationHighTicks, a.cfg.OverrideDurationCriticalTicks)
	wasActive := a.active

	a.active = true
	a.overrideEndTick = currentTick + duration
	a.reason = reason
	a.severity = severity

	if !wasActive {
		a.emit(Event{
			Kind:            EventReflexEnter,
			Reason:          reason,
			Severity:        severity,
			CurrentTick:     currentTick,
			OverrideEndTick: a.overrideEndTick,
			RemainingTicks:  duration,
		})
	}
}

// TickUpdate advances the override lifecycle for the current tick. No-op if
// not active; emits reflex_exit once the window elapses, else reflex_tick
// with the remaining ticks. Per spec.md §4.D.
func (a *Arbitrator) TickUpdate(currentTick int64) {
	if !a.active {
		return
	}
	if currentTick >= a.overrideEndTick {
		a.clearAndEmitExit(currentTick)
		return
	}
	a.emit(Event{
		Kind:            EventReflexTick,
		Reason:          a.reason,
		Severity:        a.severity,
		CurrentTick:     currentTick,
		OverrideEndTick: a.overrideEndTick,
		RemainingTicks:  a.overrideEndTick - currentTick,
	})
}

// ExitReflexModeEarly emits reflex_exit immediately if active, without
// waiting for overrideEndTick, and never emits a trailing reflex_tick.
func (a *Arbitrator) ExitReflexModeEarly(currentTick int64) {
	if !a.active {
		return
	}
	a.clearAndEmitExit(currentTick)
}

func (a *Arbitrator) clearAndEmitExit(currentTick int64) {
	evt := Event{
		Kind:            EventReflexExit,
		Reason:          a.reason,
		Severity:        a.severity,
		CurrentTick:     currentTick,
		OverrideEndTick: a.overrideEndTick,
		RemainingTicks:  0,
	}
	a.active = false
	a.overrideEndTick = 0
	a.reason = ""
	a.severity = ""
	a.emit(evt)
}

// IsPlannerBlocked reports whether the override is active. Per spec.md
// §4.D this is exactly the Arbitrator's active flag; TickUpdate is
// responsible for clearing it once overrideEndTick is reached.
func (a *Arbitrator) IsPlannerBlocked(currentTick int64) bool {
	return a.active
}
