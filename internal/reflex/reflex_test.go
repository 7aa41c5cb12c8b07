package reflex

import (
	"testing"

	"agentcore/internal/belief"
)

func testArbitratorConfig() Config {
	return Config{
		OverrideDurationDefaultTicks:  10,
		OverrideDurationHighTicks:     10,
		OverrideDurationCriticalTicks: 15,
	}
}

// S2: Reflex assessment.
func TestAssessReflexThreatsCriticalYieldsFlee(t *testing.T) {
	snapshot := belief.Snapshot{
		TickID: 1,
		Tracks: []belief.Track{
			{ClassLabel: "creeper", DistBucket: 1, ThreatLevel: belief.ThreatCritical, Visibility: belief.VisibilityVisible},
		},
	}

	got := AssessReflexThreats(snapshot)
	if got.RecommendedAction != ActionFlee {
		t.Fatalf("expected flee, got %s", got.RecommendedAction)
	}
	if !got.HasCriticalThreat {
		t.Fatalf("expected HasCriticalThreat=true")
	}
}

func TestAssessReflexThreatsDecisionRule(t *testing.T) {
	cases := []struct {
		name   string
		level  belief.ThreatLevel
		vis    belief.Visibility
		want   RecommendedAction
	}{
		{"critical", belief.ThreatCritical, belief.VisibilityVisible, ActionFlee},
		{"high", belief.ThreatHigh, belief.VisibilityVisible, ActionEvade},
		{"medium", belief.ThreatMedium, belief.VisibilityVisible, ActionShield},
		{"low", belief.ThreatLow, belief.VisibilityVisible, ActionShield},
		{"none", belief.ThreatNone, belief.VisibilityVisible, ActionNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snapshot := belief.Snapshot{Tracks: []belief.Track{{ThreatLevel: tc.level, Visibility: tc.vis}}}
			got := AssessReflexThreats(snapshot)
			if got.RecommendedAction != tc.want {
				t.Fatalf("threatLevel=%s: expected %s, got %s", tc.level, tc.want, got.RecommendedAction)
			}
		})
	}
}

func TestAssessReflexThreatsExcludesLostAndNone(t *testing.T) {
	snapshot := belief.Snapshot{
		Tracks: []belief.Track{
			{ThreatLevel: belief.ThreatCritical, Visibility: belief.VisibilityLost},
			{ThreatLevel: belief.ThreatNone, Visibility: belief.VisibilityVisible},
		},
	}
	got := AssessReflexThreats(snapshot)
	if len(got.Threats) != 0 {
		t.Fatalf("expected excluded tracks to yield zero threats, got %d", len(got.Threats))
	}
	if got.RecommendedAction != ActionNone {
		t.Fatalf("expected none, got %s", got.RecommendedAction)
	}
}

// S3: Reflex lifecycle.
func TestArbitratorLifecycleS3(t *testing.T) {
	a := NewArbitrator(testArbitratorConfig())
	var events []EventKind
	a.Subscribe(func(e Event) { events = append(events, e.Kind) })

	a.EnterReflexMode("critical_threat", 100, SeverityCritical)
	a.TickUpdate(114)
	if a.IsPlannerBlocked(114) != true {
		t.Fatalf("expected planner blocked at tick 114")
	}

	a.TickUpdate(115)
	if a.IsPlannerBlocked(115) != false {
		t.Fatalf("expected planner unblocked at tick 115")
	}

	want := []EventKind{EventReflexEnter, EventReflexTick, EventReflexExit}
	if len(events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	for i, k := range want {
		if events[i] != k {
			t.Fatalf("event[%d]: expected %s, got %s", i, k, events[i])
		}
	}
}

// Property 5: reflex monotonicity — durations, and early-exit truncation.
func TestOverrideDurationBySeverity(t *testing.T) {
	cfg := testArbitratorConfig()

	t.Run("default", func(t *testing.T) {
		a := NewArbitrator(cfg)
		a.EnterReflexMode("r", 0, SeverityDefault)
		if !a.IsPlannerBlocked(9) {
			t.Fatalf("expected blocked through tick 9")
		}
		a.TickUpdate(10)
		if a.IsPlannerBlocked(10) {
			t.Fatalf("expected unblocked exactly at tick 10")
		}
	})

	t.Run("critical", func(t *testing.T) {
		a := NewArbitrator(cfg)
		a.EnterReflexMode("r", 0, SeverityCritical)
		a.TickUpdate(14)
		if !a.IsPlannerBlocked(14) {
			t.Fatalf("expected blocked through tick 14")
		}
		a.TickUpdate(15)
		if a.IsPlannerBlocked(15) {
			t.Fatalf("expected unblocked exactly at tick 15")
		}
	})
}

func TestExitReflexModeEarlyTruncatesWithoutTrailingTick(t *testing.T) {
	a := NewArbitrator(testArbitratorConfig())
	var events []EventKind
	a.Subscribe(func(e Event) { events = append(events, e.Kind) })

	a.EnterReflexMode("r", 0, SeverityDefault)
	a.ExitReflexModeEarly(3)

	if a.IsPlannerBlocked(3) {
		t.Fatalf("expected unblocked after early exit")
	}
	for _, k := range events {
		if k == EventReflexTick {
			t.Fatalf("expected no reflex_tick after early exit, got events=%v", events)
		}
	}
	if len(events) != 2 || events[0] != EventReflexEnter || events[1] != EventReflexExit {
		t.Fatalf("expected [enter, exit], got %v", events)
	}
}

func TestHandlerPanicIsIsolated(t *testing.T) {
	a := NewArbitrator(testArbitratorConfig())
	called := false
	a.Subscribe(func(Event) { panic("boom") })
	a.Subscribe(func(Event) { called = true })

	a.EnterReflexMode("r", 0, SeverityDefault)

	if !called {
		t.Fatalf("expected second handler to run despite first handler panicking")
	}
}

func TestReflexExitEmittedExactlyOncePerEntry(t *testing.T) {
	a := NewArbitrator(testArbitratorConfig())
	exits := 0
	a.Subscribe(func(e Event) {
		if e.Kind == EventReflexExit {
			exits++
		}
	})

	a.EnterReflexMode("r", 0, SeverityDefault)
	for tick := int64(1); tick <= 12; tick++ {
		a.TickUpdate(tick)
	}

	if exits != 1 {
		t.Fatalf("expected exactly 1 reflex_exit, got %d", exits)
	}
}
