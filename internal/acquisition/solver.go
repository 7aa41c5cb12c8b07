package acquisition

import (
	"context"
	"time"

	"agentcore/internal/logging"
)

// Config governs the Solve orchestration: whether the external reasoner is
// consulted at all, and what to do when it cannot be reached in time.
type Config struct {
	Domain                         string
	SolveTimeout                   time.Duration
	FallbackOnReasonerUnavailable  bool
}

// DefaultConfig returns sane defaults: a short solve budget and fallback
// enabled, so a missing reasoner degrades the solver to ranked enumeration
// rather than stalling the tick loop.
func DefaultConfig() Config {
	return Config{
		Domain:                        "item-acquisition",
		SolveTimeout:                  150 * time.Millisecond,
		FallbackOnReasonerUnavailable: true,
	}
}

// Solution is the Acquisition Solver's final output for one Solve call.
type Solution struct {
	BundleID           string
	ContextKey         string
	CandidateSetDigest string
	Ranked             []StrategyCandidate
	Chosen             *StrategyCandidate
	ReasonerConsulted  bool
	ReasonerResult     *SolveResult
}

// Solver ties context bucketing, candidate enumeration, prior-weighted
// ranking, bundle hashing, and the external reasoner port into one
// deterministic entry point, per spec.md §4.F.
type Solver struct {
	cfg      Config
	reasoner Reasoner
	priors   PriorLookup
}

// NewSolver constructs a Solver. A nil reasoner is treated as NullReasoner;
// a nil priors lookup is treated as NoPriors.
func NewSolver(cfg Config, reasoner Reasoner, priors PriorLookup) *Solver {
	if reasoner == nil {
		reasoner = NullReasoner{}
	}
	if priors == nil {
		priors = NoPriors
	}
	return &Solver{cfg: cfg, reasoner: reasoner, priors: priors}
}

// Solve buckets world, enumerates and ranks candidates, computes the bundle
// identity, and — when the reasoner is available — consults it before
// falling back to the highest-ranked feasible candidate.
//
// Two calls with an identical (targetItem, inventory, nearbyBlocks,
// nearbyEntities) always yield identical BundleID and CandidateSetDigest,
// regardless of whether the reasoner was reachable.
func (s *Solver) Solve(ctx context.Context, world WorldState) (Solution, error) {
	acqCtx := BuildContext(world)
	contextKey := ContextKey(acqCtx)

	candidates := EnumerateCandidates(acqCtx, world)
	ranked := Rank(candidates, contextKey, s.priors)
	digest := CandidateSetDigest(ranked)

	payload := BuildPayload(world)
	bundleID, err := BundleID(payload)
	if err != nil {
		return Solution{}, err
	}

	sol := Solution{
		BundleID:           bundleID,
		ContextKey:         contextKey,
		CandidateSetDigest: digest,
		Ranked:             ranked,
	}

	solveCtx, cancel := context.WithTimeout(ctx, s.cfg.SolveTimeout)
	defer cancel()

	if s.reasoner.IsAvailable(solveCtx) {
		sol.ReasonerConsulted = true
		result, err := s.reasoner.Solve(solveCtx, s.cfg.Domain, payload)
		if err == nil {
			sol.ReasonerResult = &result
			if result.SolutionFound {
				sol.Chosen = chosenFromReasoner(ranked, result)
				return sol, nil
			}
		} else {
			logging.AcquisitionDebug("reasoner solve error, falling back: %v", err)
		}
	}

	if !s.cfg.FallbackOnReasonerUnavailable && sol.Chosen == nil {
		return sol, nil
	}

	sol.Chosen = firstFeasible(ranked)
	return sol, nil
}

// chosenFromReasoner maps the reasoner's chosen item back onto the ranked
// candidate set by strategy name encoded as the first path element; if the
// path doesn't resolve to a known candidate, it falls back to the top rank.
func chosenFromReasoner(ranked []StrategyCandidate, result SolveResult) *StrategyCandidate {
	if len(result.SolutionPath) == 0 {
		return firstFeasible(ranked)
	}
	want := Strategy(result.SolutionPath[0])
	for i := range ranked {
		if ranked[i].Strategy == want {
			return &ranked[i]
		}
	}
	return firstFeasible(ranked)
}

// firstFeasible returns the highest-ranked available candidate, or the
// highest-ranked candidate of any feasibility if none are known available,
// or nil if there are no candidates at all.
func firstFeasible(ranked []StrategyCandidate) *StrategyCandidate {
	for i := range ranked {
		if ranked[i].Feasibility == FeasibilityAvailable {
			return &ranked[i]
		}
	}
	if len(ranked) > 0 {
		return &ranked[0]
	}
	return nil
}
