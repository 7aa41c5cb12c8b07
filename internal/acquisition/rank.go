package acquisition

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// neutralPriorSuccessRate is used when no prior is known for a
// (strategy, contextKey) pair.
const neutralPriorSuccessRate = 0.5

// tieBias nudges scores by a strategy-specific epsilon so that equal
// cost*prior products across strategies still resolve deterministically
// before the explicit lexicographic tie-break is applied. Values are
// ordered to match alphabetical strategy order (loot < mine < salvage <
// trade) for readability; the explicit tie-break in Rank is the real
// guarantee.
var tieBias = map[Strategy]float64{
	StrategyLoot:    0,
	StrategyMine:    1e-6,
	StrategySalvage: 2e-6,
	StrategyTrade:   3e-6,
}

// PriorLookup resolves the historical success rate for a (strategy,
// contextKey) pair. Implementations should return (0, false) for unknown
// pairs; Rank substitutes neutralPriorSuccessRate in that case.
type PriorLookup func(strategy Strategy, contextKey string) (rate float64, known bool)

// NoPriors is a PriorLookup that always reports unknown, for callers with
// no prior history store.
func NoPriors(Strategy, string) (float64, bool) { return 0, false }

// Rank scores and deterministically sorts candidates, per spec.md §4.F:
// score = estimatedCost * (1 - priorSuccessRate) + tieBias; ties break
// lexicographically by strategy name. The input slice is not mutated.
func Rank(candidates []StrategyCandidate, contextKey string, lookup PriorLookup) []StrategyCandidate {
	if lookup == nil {
		lookup = NoPriors
	}

	ranked := make([]StrategyCandidate, len(candidates))
	copy(ranked, candidates)

	for i := range ranked {
		rate, known := lookup(ranked[i].Strategy, contextKey)
		if !known {
			rate = neutralPriorSuccessRate
		}
		ranked[i].score = ranked[i].EstimatedCost*(1-rate) + tieBias[ranked[i].Strategy]
		ranked[i].tieBias = tieBias[ranked[i].Strategy]
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].Strategy < ranked[j].Strategy
	})

	return ranked
}

// canonicalCandidate strips computed ranking fields so the digest input is
// a pure function of enumeration + context, never of score/tieBias
// floating-point jitter.
type canonicalCandidate struct {
	Strategy        Strategy           `json:"strategy"`
	Item            string             `json:"item"`
	EstimatedCost   float64            `json:"estimatedCost"`
	Feasibility     Feasibility        `json:"feasibility"`
	Requires        []string           `json:"requires,omitempty"`
	ContextSnapshot AcquisitionContext `json:"contextSnapshot"`
}

// CandidateSetDigest hashes the ranked, canonicalized candidate list into a
// 16-hex digest. Identical world state yields an identical digest
// regardless of the order candidates were originally produced in, per
// spec.md §4.F.
func CandidateSetDigest(ranked []StrategyCandidate) string {
	canonical := make([]canonicalCandidate, len(ranked))
	for i, c := range ranked {
		canonical[i] = canonicalCandidate{
			Strategy:        c.Strategy,
			Item:            c.Item,
			EstimatedCost:   c.EstimatedCost,
			Feasibility:     c.Feasibility,
			Requires:        c.Requires,
			ContextSnapshot: c.ContextSnapshot,
		}
	}
	raw, err := json.Marshal(canonical)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}
