package belief

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"agentcore/internal/logging"
)

// Config configures a Bus instance. Injected at construction, per spec.md
// §9's "Controller owns one Bus" design note.
type Config struct {
	BotID                        string
	StreamID                     string
	MaxSaliencyEventsPerEmission int
	SnapshotIntervalTicks        int64
	AgingK1Ticks                 int64 // ticks missed before visible -> inferred
	AgingK2Ticks                 int64 // ticks missed before inferred -> lost (eviction-eligible)
}

// Bus is the Entity Belief Bus: the sole mutator of the track set. Snapshots
// handed to consumers are immutable value copies.
type Bus struct {
	cfg Config

	tracks map[string]*Track // trackId -> track
	byKey  map[string]string // association key -> trackId

	pendingDeltas []Delta

	lastSnapshotTick int64
	snapshotEmitted  bool
	forcedSnapshot   bool

	droppedNewThreatCount int64
}

// NewBus constructs a Bus. The first buildEnvelope call always carries a
// forced snapshot (construction-time force), per spec.md §4.C.
func NewBus(cfg Config) *Bus {
	return &Bus{
		cfg:            cfg,
		tracks:         make(map[string]*Track),
		byKey:          make(map[string]string),
		forcedSnapshot: true,
	}
}

// associationKey builds the (kindEnum, posBucket, distBucket) proximity key
// used to associate an evidence item with an existing track.
func associationKey(kindEnum int, pos PosBucket, distBucket int) string {
	return fmt.Sprintf("%d:%d:%d:%d:%d", kindEnum, pos.X, pos.Y, pos.Z, distBucket)
}

// trackIDFor derives a deterministic track identity from the association
// key and the tick a track is first observed on, so two Bus instances fed
// the identical evidence stream assign the identical trackId to the same
// logical entity (spec.md §4.C's determinism contract, Testable Property
// 1) — a random identity (e.g. uuid.New()) would break byte-identical
// envelope reproduction across instances.
func trackIDFor(key string, firstSeenTick int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s@%d", key, firstSeenTick)))
	return hex.EncodeToString(sum[:])[:16]
}

// ingest associates EvidenceBatch items to existing tracks, ages tracks that
// went unobserved this tick, recomputes threat levels, and appends deltas to
// the pending buffer. Per spec.md §4.C.
func (b *Bus) Ingest(batch EvidenceBatch) {
	seenThisTick := make(map[string]bool, len(batch.Items))

	for _, item := range batch.Items {
		key := associationKey(item.KindEnum, item.PosBucket, item.DistBucket)
		visible := item.LOS == "visible"

		trackID, existed := b.byKey[key]
		if !existed {
			trackID = trackIDFor(key, batch.TickID)
			b.tracks[trackID] = &Track{
				TrackID:       trackID,
				ClassLabel:    item.Kind,
				KindEnum:      item.KindEnum,
				PosBucket:     item.PosBucket,
				DistBucket:    item.DistBucket,
				Visibility:    VisibilityVisible,
				Confidence:    0,
				PUnknown:      1,
				FirstSeenTick: batch.TickID,
				LastSeenTick:  batch.TickID,
				observationCount: 1,
			}
			b.byKey[key] = trackID
			seenThisTick[trackID] = true
			if visible {
				b.tracks[trackID].Visibility = VisibilityVisible
			} else {
				b.tracks[trackID].Visibility = VisibilityInferred
			}
			// No delta: a track is only "warmed up" after a second
			// consistent observation (spec.md §4.C warmup rule).
			continue
		}

		track := b.tracks[trackID]
		wasWarm := track.observationCount >= 1
		track.observationCount++
		track.PosBucket = item.PosBucket
		track.DistBucket = item.DistBucket
		track.LastSeenTick = batch.TickID
		prevVisibility := track.Visibility
		if visible {
			track.Visibility = VisibilityVisible
		} else if track.Visibility != VisibilityLost {
			track.Visibility = VisibilityInferred
		}
		track.Confidence = minFloat(1, track.Confidence+0.25)
		track.PUnknown = maxFloat(0, track.PUnknown-0.25)
		track.ThreatLevel = threatLevel(track.ClassLabel, track.DistBucket, track.Visibility)
		seenThisTick[trackID] = true

		if track.observationCount == 2 {
			b.emitDelta(Delta{Kind: DeltaNewThreat, TrackID: trackID, Track: trackPtr(track.clone())})
		} else if wasWarm && prevVisibility != track.Visibility {
			b.emitDelta(Delta{Kind: DeltaUpdated, TrackID: trackID})
		}
	}

	b.ageUnseenTracks(batch.TickID, seenThisTick)
}

// ageUnseenTracks downgrades visibility for tracks not re-observed this
// tick and evicts tracks that cross the K2 (lost) threshold, emitting a
// DeltaLost in the same tick's flush (spec.md §4.C aging policy). Tracks are
// visited in trackId order so the deltas it emits are deterministic.
func (b *Bus) ageUnseenTracks(currentTick int64, seenThisTick map[string]bool) {
	var evict []string

	ids := make([]string, 0, len(b.tracks))
	for trackID := range b.tracks {
		ids = append(ids, trackID)
	}
	sort.Strings(ids)

	for _, trackID := range ids {
		track := b.tracks[trackID]
		if seenThisTick[trackID] {
			continue
		}
		missed := currentTick - track.LastSeenTick
		prevVisibility := track.Visibility

		switch {
		case missed >= b.cfg.AgingK2Ticks:
			track.Visibility = VisibilityLost
		case missed >= b.cfg.AgingK1Ticks:
			if track.Visibility == VisibilityVisible {
				track.Visibility = VisibilityInferred
			}
		}
		track.ThreatLevel = threatLevel(track.ClassLabel, track.DistBucket, track.Visibility)

		if track.Visibility == VisibilityLost {
			if prevVisibility != VisibilityLost {
				b.emitDelta(Delta{Kind: DeltaLost, TrackID: trackID})
			}
			evict = append(evict, trackID)
		} else if prevVisibility != track.Visibility {
			b.emitDelta(Delta{Kind: DeltaUpdated, TrackID: trackID})
		}
	}

	for _, trackID := range evict {
		b.evictTrack(trackID)
	}
}

func (b *Bus) evictTrack(trackID string) {
	track, ok := b.tracks[trackID]
	if !ok {
		return
	}
	key := associationKey(track.KindEnum, track.PosBucket, track.DistBucket)
	if b.byKey[key] == trackID {
		delete(b.byKey, key)
	}
	delete(b.tracks, trackID)
}

// emitDelta enforces the new_threat invariant: a new_threat delta without an
// embedded Track payload is dropped and droppedNewThreatCount is
// incremented, per spec.md §4.C producer-side invariant enforcement.
func (b *Bus) emitDelta(d Delta) {
	if d.Kind == DeltaNewThreat && d.Track == nil {
		b.droppedNewThreatCount++
		logging.BeliefError("invariant.violation: dropped new_threat delta without track payload, trackId=%s droppedNewThreatCount=%d", d.TrackID, b.droppedNewThreatCount)
		return
	}
	b.pendingDeltas = append(b.pendingDeltas, d)
}

// flushPendingDeltas returns up to MaxSaliencyEventsPerEmission deltas in
// insertion order and retains the overflow for the next flush.
func (b *Bus) FlushPendingDeltas() []Delta {
	limit := b.cfg.MaxSaliencyEventsPerEmission
	if limit <= 0 || len(b.pendingDeltas) <= limit {
		out := b.pendingDeltas
		b.pendingDeltas = nil
		return out
	}
	out := make([]Delta, limit)
	copy(out, b.pendingDeltas[:limit])
	b.pendingDeltas = b.pendingDeltas[limit:]
	return out
}

// forceSnapshot marks the next buildEnvelope call as snapshot-due.
func (b *Bus) ForceSnapshot() {
	b.forcedSnapshot = true
}

// shouldEmitSnapshot reports whether the next buildEnvelope call is due to
// include a snapshot, per spec.md §4.C.
func (b *Bus) ShouldEmitSnapshot(currentTick int64) bool {
	if b.forcedSnapshot {
		return true
	}
	if !b.snapshotEmitted {
		return true
	}
	interval := b.cfg.SnapshotIntervalTicks
	if interval <= 0 {
		return false
	}
	return currentTick-b.lastSnapshotTick >= interval
}

// hasContent reports whether buildEnvelope would produce a non-empty
// envelope: pending deltas or a due snapshot.
func (b *Bus) HasContent(currentTick int64) bool {
	return len(b.pendingDeltas) > 0 || b.ShouldEmitSnapshot(currentTick)
}

// buildEnvelope consumes pending deltas (capped) and, when due, a snapshot,
// producing the canonical wire envelope. Per spec.md §4.C / §6.
func (b *Bus) BuildEnvelope(seq int64, currentTick int64) Envelope {
	deltas := b.FlushPendingDeltas()
	if deltas == nil {
		deltas = []Delta{}
	}

	env := Envelope{
		RequestVersion: requestVersionSaliencyDelta,
		Type:           envelopeTypeAwareness,
		BotID:          b.cfg.BotID,
		StreamID:       b.cfg.StreamID,
		Seq:            seq,
		TickID:         currentTick,
		SaliencyEvents: deltas,
	}

	if b.ShouldEmitSnapshot(currentTick) {
		env.Snapshot = b.BuildSnapshot(currentTick)
		b.lastSnapshotTick = currentTick
		b.snapshotEmitted = true
		b.forcedSnapshot = false
	}

	return env
}

// BuildSnapshot returns an order-canonical, immutable copy of the current track
// set: tracks are sorted by trackId (stable sort) per the determinism
// contract in spec.md §4.C.
func (b *Bus) BuildSnapshot(currentTick int64) *Snapshot {
	tracks := make([]Track, 0, len(b.tracks))
	for _, t := range b.tracks {
		tracks = append(tracks, t.clone())
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].TrackID < tracks[j].TrackID
	})
	return &Snapshot{TickID: currentTick, Tracks: tracks}
}

// DroppedNewThreatCount returns the number of new_threat deltas dropped by
// the invariant enforced in emitDelta.
func (b *Bus) DroppedNewThreatCount() int64 {
	return b.droppedNewThreatCount
}

func trackPtr(t Track) *Track { return &t }

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
