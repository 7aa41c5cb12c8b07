package loopbreaker

import (
	"testing"
	"time"
)

func fixedClock(start time.Time) (*time.Time, func() time.Time) {
	cur := start
	return &cur, func() time.Time { return cur }
}

// TestThreeDistinctTaskIdsEmitExactlyOneEpisode is property 11.
func TestThreeDistinctTaskIdsEmitExactlyOneEpisode(t *testing.T) {
	clock, nowFn := fixedClock(time.Unix(0, 0))
	b := New(Config{Threshold: 3, WindowMs: 60_000, SuppressionTtlMs: 120_000, MaxSignatures: 10}, nowFn)
	sig := FailureSignature{SignatureID: "sig-a"}

	var episodes int
	for i, taskID := range []string{"t1", "t2", "t3"} {
		*clock = clock.Add(time.Duration(i) * time.Second)
		if ep := b.RecordFailure(sig, FailureOccurrence{TaskID: taskID}); ep != nil {
			episodes++
			if ep.Occurrences != 3 {
				t.Fatalf("expected 3 occurrences, got %d", ep.Occurrences)
			}
		}
	}
	if episodes != 1 {
		t.Fatalf("expected exactly 1 episode, got %d", episodes)
	}
}

func TestFourthTaskIdAfterWindowResetStartsNewWindow(t *testing.T) {
	_, nowFn := fixedClock(time.Unix(0, 0))
	b := New(Config{Threshold: 3, WindowMs: 60_000, SuppressionTtlMs: 120_000, MaxSignatures: 10}, nowFn)
	sig := FailureSignature{SignatureID: "sig-a"}

	b.RecordFailure(sig, FailureOccurrence{TaskID: "t1"})
	b.RecordFailure(sig, FailureOccurrence{TaskID: "t2"})
	ep := b.RecordFailure(sig, FailureOccurrence{TaskID: "t3"})
	if ep == nil {
		t.Fatal("expected episode on third distinct taskId")
	}

	// Window was reset by the episode; a fourth taskId starts fresh and
	// should not immediately emit another episode.
	ep2 := b.RecordFailure(sig, FailureOccurrence{TaskID: "t4"})
	if ep2 != nil {
		t.Fatal("expected no immediate second episode after window reset")
	}
}

func TestDuplicateTaskIdWithinWindowDoesNotDoubleCount(t *testing.T) {
	_, nowFn := fixedClock(time.Unix(0, 0))
	b := New(Config{Threshold: 3, WindowMs: 60_000, SuppressionTtlMs: 120_000, MaxSignatures: 10}, nowFn)
	sig := FailureSignature{SignatureID: "sig-a"}

	b.RecordFailure(sig, FailureOccurrence{TaskID: "t1"})
	b.RecordFailure(sig, FailureOccurrence{TaskID: "t1"})
	ep := b.RecordFailure(sig, FailureOccurrence{TaskID: "t1"})
	if ep != nil {
		t.Fatal("expected no episode: only one distinct taskId observed")
	}
}

func TestShadowModeEmitsEpisodeButNeverSuppresses(t *testing.T) {
	_, nowFn := fixedClock(time.Unix(0, 0))
	b := New(Config{Threshold: 2, WindowMs: 60_000, SuppressionTtlMs: 120_000, ShadowMode: true, MaxSignatures: 10}, nowFn)
	sig := FailureSignature{SignatureID: "sig-a"}

	b.RecordFailure(sig, FailureOccurrence{TaskID: "t1"})
	ep := b.RecordFailure(sig, FailureOccurrence{TaskID: "t2"})
	if ep == nil {
		t.Fatal("expected episode even in shadow mode")
	}
	if !ep.ShadowMode {
		t.Fatal("expected ShadowMode flag set on episode")
	}
	if b.IsSuppressed(sig.SignatureID) {
		t.Fatal("shadow mode must never suppress")
	}
}

func TestActiveModeSuppressesUntilTtlElapses(t *testing.T) {
	clock, nowFn := fixedClock(time.Unix(0, 0))
	b := New(Config{Threshold: 2, WindowMs: 60_000, SuppressionTtlMs: 5_000, MaxSignatures: 10}, nowFn)
	sig := FailureSignature{SignatureID: "sig-a"}

	b.RecordFailure(sig, FailureOccurrence{TaskID: "t1"})
	b.RecordFailure(sig, FailureOccurrence{TaskID: "t2"})
	if !b.IsSuppressed(sig.SignatureID) {
		t.Fatal("expected suppression active immediately after threshold episode")
	}

	*clock = clock.Add(6 * time.Second)
	if b.IsSuppressed(sig.SignatureID) {
		t.Fatal("expected suppression to lapse after TTL")
	}
}

func TestClearSuppressionLiftsEarly(t *testing.T) {
	_, nowFn := fixedClock(time.Unix(0, 0))
	b := New(Config{Threshold: 2, WindowMs: 60_000, SuppressionTtlMs: 120_000, MaxSignatures: 10}, nowFn)
	sig := FailureSignature{SignatureID: "sig-a"}

	b.RecordFailure(sig, FailureOccurrence{TaskID: "t1"})
	b.RecordFailure(sig, FailureOccurrence{TaskID: "t2"})
	if !b.IsSuppressed(sig.SignatureID) {
		t.Fatal("expected suppression active")
	}
	b.ClearSuppression(sig.SignatureID)
	if b.IsSuppressed(sig.SignatureID) {
		t.Fatal("expected ClearSuppression to lift suppression immediately")
	}
}

func TestLRUEvictsLeastRecentlyUsedSignatureOverCapacity(t *testing.T) {
	_, nowFn := fixedClock(time.Unix(0, 0))
	b := New(Config{Threshold: 10, WindowMs: 60_000, SuppressionTtlMs: 120_000, MaxSignatures: 2}, nowFn)

	b.RecordFailure(FailureSignature{SignatureID: "sig-1"}, FailureOccurrence{TaskID: "t1"})
	b.RecordFailure(FailureSignature{SignatureID: "sig-2"}, FailureOccurrence{TaskID: "t1"})
	b.RecordFailure(FailureSignature{SignatureID: "sig-3"}, FailureOccurrence{TaskID: "t1"})

	tracked := b.TrackedSignatures()
	if len(tracked) != 2 {
		t.Fatalf("expected capacity-bounded to 2 signatures, got %v", tracked)
	}
	for _, id := range tracked {
		if id == "sig-1" {
			t.Fatal("expected least-recently-used sig-1 to be evicted")
		}
	}
}
