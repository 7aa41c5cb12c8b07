package goap

import (
	"testing"
	"time"
)

func moveAction(id string, delta [3]float64, cost float64) Action {
	return Action{
		ID:       id,
		BaseCost: cost,
		Apply: func(s State) State {
			ns := s.Clone()
			ns.Pos[0] += delta[0]
			ns.Pos[1] += delta[1]
			ns.Pos[2] += delta[2]
			return ns
		},
	}
}

func TestPlanToReachesDistanceGoal(t *testing.T) {
	actions := []Action{
		moveAction("step_x", [3]float64{1, 0, 0}, 1),
		moveAction("step_z", [3]float64{0, 0, 1}, 1),
	}
	planner := NewPlanner(actions)

	goal := Goal{ID: "reach-origin-plus-3", Kind: GoalDistance, Pos: [3]float64{3, 0, 0}}
	start := State{Pos: [3]float64{0, 0, 0}, Inventory: map[string]int{}, Properties: map[string]float64{}}

	plan := planner.PlanTo(goal, start, Context{}, 500)
	if !plan.Reached {
		t.Fatalf("expected plan to reach goal, expanded=%d", plan.ExpandedN)
	}
	if len(plan.Steps) == 0 {
		t.Fatal("expected non-empty plan steps")
	}
}

func TestPlanToReachesItemPossessionGoal(t *testing.T) {
	mine := Action{
		ID:       "mine_ore",
		BaseCost: 2,
		Apply: func(s State) State {
			ns := s.Clone()
			ns.Inventory["ore"]++
			return ns
		},
	}
	planner := NewPlanner([]Action{mine})
	goal := Goal{ID: "need-3-ore", Kind: GoalItemPossession, Item: "ore", Count: 3}
	start := State{Inventory: map[string]int{}, Properties: map[string]float64{}}

	plan := planner.PlanTo(goal, start, Context{}, 500)
	if !plan.Reached {
		t.Fatal("expected item possession goal to be reached")
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("expected exactly 3 mine_ore steps, got %d", len(plan.Steps))
	}
}

func TestPlanToUnreachableGoalReturnsNotReached(t *testing.T) {
	planner := NewPlanner(nil)
	goal := Goal{ID: "impossible", Kind: GoalItemPossession, Item: "diamond", Count: 1}
	start := State{Inventory: map[string]int{}, Properties: map[string]float64{}}

	plan := planner.PlanTo(goal, start, Context{}, 50)
	if plan.Reached {
		t.Fatal("expected unreachable goal with no actions to report not reached")
	}
}

func TestPlanCacheHitsOnIdenticalGoalAndStateDigest(t *testing.T) {
	mine := Action{
		ID:       "mine_ore",
		BaseCost: 2,
		Apply: func(s State) State {
			ns := s.Clone()
			ns.Inventory["ore"]++
			return ns
		},
	}
	planner := NewPlanner([]Action{mine})
	goal := Goal{ID: "need-1-ore", Kind: GoalItemPossession, Item: "ore", Count: 1}
	start := State{Inventory: map[string]int{}, Properties: map[string]float64{}}

	first := planner.PlanTo(goal, start, Context{}, 500)
	second := planner.PlanTo(goal, start, Context{}, 500)

	if !first.Reached || !second.Reached {
		t.Fatal("expected both calls to reach the goal")
	}
	if len(first.Steps) != len(second.Steps) {
		t.Fatalf("expected cached plan to match original: %d vs %d steps", len(first.Steps), len(second.Steps))
	}
}

func TestDynamicCostFnIncreasesWithHungerAndThreat(t *testing.T) {
	action := Action{ID: "a", BaseCost: 10}
	state := State{}

	base := dynamicCostFn(action, state, Context{})
	urgent := dynamicCostFn(action, state, Context{Hunger: 1, ThreatLevel: 1})

	if urgent <= base {
		t.Fatalf("expected urgency to raise cost: base=%.2f urgent=%.2f", base, urgent)
	}
}

func TestDynamicCostFnDetourValueLowersCost(t *testing.T) {
	action := Action{ID: "a", BaseCost: 10}
	state := State{}
	ctx := Context{DetourValue: func(Action, State) float64 { return 5 }}

	cost := dynamicCostFn(action, state, ctx)
	if cost >= 10 {
		t.Fatalf("expected detour value to lower cost below base, got %.2f", cost)
	}
}

func TestCheckSafetyReflexesOrdersByPriority(t *testing.T) {
	state := State{
		Inventory:  map[string]int{"food": 1},
		Properties: map[string]float64{"health": 5, "lava_distance": 1, "air": 5, "threat_level": 0.9},
	}
	actions := CheckSafetyReflexes(state, DefaultSafetyThresholds())
	if len(actions) < 3 {
		t.Fatalf("expected multiple safety actions triggered, got %d", len(actions))
	}
	if actions[0].Kind != SafetyRetreatLava {
		t.Fatalf("expected lava retreat to be highest priority, got %s first", actions[0].Kind)
	}
}

func TestCheckSafetyReflexesNoneWhenSafe(t *testing.T) {
	state := State{
		Inventory:  map[string]int{},
		Properties: map[string]float64{"health": 20, "lava_distance": 50, "air": 300, "threat_level": 0},
	}
	actions := CheckSafetyReflexes(state, DefaultSafetyThresholds())
	if len(actions) != 0 {
		t.Fatalf("expected no safety actions when safe, got %+v", actions)
	}
}

func TestStateDigestDeterministic(t *testing.T) {
	s1 := State{Pos: [3]float64{1, 2, 3}, Inventory: map[string]int{"ore": 2}, Properties: map[string]float64{"health": 20}}
	s2 := State{Pos: [3]float64{1, 2, 3}, Inventory: map[string]int{"ore": 2}, Properties: map[string]float64{"health": 20}}
	if StateDigest(s1) != StateDigest(s2) {
		t.Fatal("expected identical states to produce identical digests")
	}
}

func TestPlanRepairReusesApplicableStalePlan(t *testing.T) {
	mine := Action{
		ID:       "mine_ore",
		BaseCost: 2,
		Apply: func(s State) State {
			ns := s.Clone()
			ns.Inventory["ore"]++
			return ns
		},
	}
	planner := NewPlanner([]Action{mine})
	goal := Goal{ID: "need-1-ore", Kind: GoalItemPossession, Item: "ore", Count: 1}
	start := State{Inventory: map[string]int{}, Properties: map[string]float64{}}

	first := planner.PlanTo(goal, start, Context{}, 500)
	if !first.Reached {
		t.Fatal("expected first plan to reach goal")
	}

	// Expire the exact-digest cache entry, and file the same plan (marked)
	// under a different prior state digest, so only anyForGoal's goal-keyed
	// lookup can still find it.
	planner.cache.entries[cacheKey(goal.ID, StateDigest(start))] = cacheEntry{
		plan:      first,
		expiresAt: time.Now().Add(-time.Second),
	}
	stale := first
	stale.ExpandedN = -1
	planner.cache.put(goal.ID, "prior-digest", stale)

	second := planner.PlanTo(goal, start, Context{}, 500)
	if !second.Reached {
		t.Fatal("expected repaired plan to still report reached")
	}
	if second.ExpandedN != -1 {
		t.Fatalf("expected the stale plan to be reused by repair, got a fresh search (expanded=%d)", second.ExpandedN)
	}
}
