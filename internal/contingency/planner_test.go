package contingency

import (
	"testing"
)

func idleAction() ActionDef {
	return ActionDef{
		ID:            "idle",
		Cost:          1,
		DurationTicks: 1,
		Apply:         func(s State) State { return s },
	}
}

func newTestPlanner(t *testing.T, cfg Config, actions []ActionDef, triggers []Trigger, invariants []SafetyInvariant, goal GoalPredicate) *Planner {
	t.Helper()
	p, err := NewPlanner(cfg, actions, triggers, invariants, goal)
	if err != nil {
		t.Fatalf("NewPlanner() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// Property 6: P09 bounded plan.
func TestPlanIsBoundedByPolicyNodeCap(t *testing.T) {
	cfg := Config{MaxHorizon: 1000, MaxBranchFactor: 2, MaxPolicyNodes: 50}
	actions := []ActionDef{
		idleAction(),
		{ID: "alt", Cost: 2, DurationTicks: 1, Apply: func(s State) State { return s }},
	}
	p := newTestPlanner(t, cfg, actions, nil, nil, func(State) bool { return false })

	policy := p.Plan(State{Tick: 0, Properties: map[string]float64{"health": 20}})

	if policy.TotalNodes > cfg.MaxPolicyNodes {
		t.Fatalf("totalNodes %d exceeds MaxPolicyNodes %d", policy.TotalNodes, cfg.MaxPolicyNodes)
	}
	if policy.MaxDepthTicks > cfg.MaxHorizon {
		t.Fatalf("maxDepth %d exceeds horizon %d", policy.MaxDepthTicks, cfg.MaxHorizon)
	}
}

func TestAllTerminalsSafeImpliesNoUnsafeTerminal(t *testing.T) {
	cfg := Config{MaxHorizon: 20, MaxBranchFactor: 1, MaxPolicyNodes: 200}
	invariants := []SafetyInvariant{{ID: "health_min", Property: "health", Min: 0}}
	p := newTestPlanner(t, cfg, []ActionDef{idleAction()}, nil, invariants, func(State) bool { return false })

	policy := p.Plan(State{Tick: 0, Properties: map[string]float64{"health": 20}})

	for _, n := range policy.Nodes {
		if n.IsTerminal && !n.IsSafe {
			t.Fatalf("node %s is an unsafe terminal, contradicts allTerminalsSafe", n.NodeID)
		}
	}
}

// Property 7: P09 forced-transition inescapability.
func TestForcedTransitionAppliedWithinActionSpan(t *testing.T) {
	cfg := Config{MaxHorizon: 10, MaxBranchFactor: 1, MaxPolicyNodes: 200}
	hungerEvery3 := Trigger{
		ID:       "hunger",
		Mode:     TriggerTickInterval,
		Offset:   3,
		Interval: 3,
		Apply: func(s State) State {
			s.Properties["food"] = s.Properties["food"] - 1
			return s
		},
	}
	longAction := ActionDef{ID: "travel", Cost: 1, DurationTicks: 5, Apply: func(s State) State { return s }}
	p := newTestPlanner(t, cfg, []ActionDef{longAction}, []Trigger{hungerEvery3}, nil, func(State) bool { return false })

	policy := p.Plan(State{Tick: 0, Properties: map[string]float64{"food": 20}})

	var foundSpanningNode bool
	for _, n := range policy.Nodes {
		for _, tick := range n.ForcedAppliedAtTick {
			if tick == 3 {
				foundSpanningNode = true
			}
		}
	}
	if !foundSpanningNode {
		t.Fatalf("expected a node recording the forced transition fired at tick 3 (mid-span of a 5-tick action), got nodes=%+v", policy.Nodes)
	}
}

// Property 8: trigger determinism.
func TestEvaluateTriggersDeterministic(t *testing.T) {
	triggers := []Trigger{
		{ID: "z_trigger", Mode: TriggerTickInterval, Offset: 0, Interval: 10},
		{ID: "a_trigger", Mode: TriggerThreshold, WatchProperty: "light_level", ThresholdValue: 0},
	}
	state := State{Tick: 10, Properties: map[string]float64{"light_level": 0}}

	first := EvaluateTriggers(state, triggers)
	second := EvaluateTriggers(state, triggers)

	if len(first) != len(second) {
		t.Fatalf("expected deterministic trigger sets, got %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected identical ordering, got %v vs %v", first, second)
		}
	}
	// Lexicographic order: a_trigger before z_trigger.
	if first[0] != "a_trigger" {
		t.Fatalf("expected sorted-lexicographic fired ids, got %v", first)
	}
}

// S4: mining scenario — nightfall + shelterlessness must be followed by
// mob_damage being applied.
func TestS4MiningScenarioNightfallAppliesMobDamage(t *testing.T) {
	triggers := []Trigger{
		{
			ID: "hunger", Mode: TriggerTickInterval, Offset: 80, Interval: 80,
			Apply: func(s State) State {
				food := s.Properties["food"] - 5
				if food < 0 {
					food = 0
				}
				s.Properties["food"] = food
				return s
			},
		},
		{
			ID: "nightfall", Mode: TriggerTickInterval, Offset: 200, Interval: 1000,
			Apply: func(s State) State {
				s.Properties["light_level"] = 0
				return s
			},
		},
		{
			ID: "mob_damage", Mode: TriggerThreshold, WatchProperty: "light_level", ThresholdValue: 0,
			Apply: func(s State) State {
				if s.Properties["has_shelter"] == 0 {
					s.Properties["health"] = s.Properties["health"] - 2
				}
				return s
			},
		},
	}

	cfg := Config{MaxHorizon: 300, MaxBranchFactor: 1, MaxPolicyNodes: 5000}
	invariants := []SafetyInvariant{{ID: "health_min", Property: "health", Min: 0}}
	p := newTestPlanner(t, cfg, []ActionDef{idleAction()}, triggers, invariants, func(State) bool { return false })

	root := State{Tick: 0, Properties: map[string]float64{
		"health": 20, "food": 20, "ore": 0, "light_level": 15, "has_shelter": 0,
	}}
	policy := p.Plan(root)

	byID := make(map[string]*PolicyNode, len(policy.Nodes))
	for _, n := range policy.Nodes {
		byID[n.NodeID] = n
	}

	appliesMobDamage := func(nodeID string) bool {
		for _, e := range policy.Edges {
			if e.Kind == ForcedTransitionEdge && e.From == nodeID {
				for _, tid := range e.TriggerIDs {
					if tid == "mob_damage" {
						return true
					}
				}
			}
		}
		return false
	}

	// Every node at light_level=0 & has_shelter=0 must be followed by a
	// mob_damage forced transition: either it is the source of that
	// ForcedTransitionEdge itself, or (a post-force node, which expands chosen
	// actions without re-evaluating triggers) one of its chosen-action
	// children is.
	for _, n := range policy.Nodes {
		if n.State.Properties["light_level"] != 0 || n.State.Properties["has_shelter"] != 0 {
			continue
		}
		appliedMobDamage := appliesMobDamage(n.NodeID)
		for _, e := range policy.Edges {
			if e.Kind == ChosenActionEdge && e.From == n.NodeID && appliesMobDamage(e.To) {
				appliedMobDamage = true
			}
		}
		if !appliedMobDamage && !n.IsTerminal {
			t.Fatalf("node %s (light_level=0, has_shelter=0) was not followed by a mob_damage forced transition", n.NodeID)
		}
	}
}
