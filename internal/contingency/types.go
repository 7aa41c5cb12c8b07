// Package contingency implements the P09 Contingency Planner (component E):
// a bounded BFS policy-tree search interleaving chosen actions with forced
// exogenous transitions, checked against safety invariants at every
// reachable node. The BFS shape is original (spec-driven, no single teacher
// file owns a policy-tree search); safety-invariant evaluation is routed
// through internal/rules, adapting the teacher's Mangle engine wrapper as a
// deterministic fact/rule substrate.
package contingency

// State is a canonical planner state: a tick and a bag of named numeric
// properties (health, food, ore, light_level, has_shelter, ...).
type State struct {
	Tick       int64
	Properties map[string]float64
}

// Clone returns a deep copy of the state so simulation never mutates a
// shared map across branches.
func (s State) Clone() State {
	props := make(map[string]float64, len(s.Properties))
	for k, v := range s.Properties {
		props[k] = v
	}
	return State{Tick: s.Tick, Properties: props}
}

// TriggerMode discriminates how a Trigger's firing condition is evaluated.
type TriggerMode string

const (
	TriggerTickInterval TriggerMode = "tick_interval"
	TriggerThreshold    TriggerMode = "threshold"
)

// Trigger is a forced exogenous transition the planner cannot decline.
// tick_interval fires when (tick - offset) >= 0 and (tick - offset) mod
// interval == 0; threshold fires when properties[watchProperty] <=
// thresholdValue. Per spec.md §4.E.
type Trigger struct {
	ID             string
	Mode           TriggerMode
	Offset         int64
	Interval       int64
	WatchProperty  string
	ThresholdValue float64
	// Apply produces the post-transition state. Must not mutate its input.
	Apply func(State) State
}

// Fires reports whether this trigger's condition holds at state.
func (t Trigger) Fires(state State) bool {
	switch t.Mode {
	case TriggerTickInterval:
		if t.Interval <= 0 {
			return false
		}
		delta := state.Tick - t.Offset
		return delta >= 0 && delta%t.Interval == 0
	case TriggerThreshold:
		v, ok := state.Properties[t.WatchProperty]
		if !ok {
			return false
		}
		return v <= t.ThresholdValue
	default:
		return false
	}
}

// SafetyInvariant requires Property to remain at or above Min at every
// reachable node.
type SafetyInvariant struct {
	ID       string
	Property string
	Min      float64
}

// ActionDef is a chosen action the agent may select at a node.
type ActionDef struct {
	ID            string
	Cost          float64
	DurationTicks int64
	// Precondition gates candidacy; nil means always applicable.
	Precondition func(State) bool
	// Apply produces the end-tick state after the action's own effects.
	// Must not mutate its input.
	Apply func(State) State
}

// EdgeKind structurally distinguishes ChosenActionEdge from
// ForcedTransitionEdge (EdgeV1 in spec.md §3).
type EdgeKind string

const (
	ChosenActionEdge     EdgeKind = "chosen_action"
	ForcedTransitionEdge EdgeKind = "forced_transition"
)

// Edge connects two PolicyNodes. For ChosenActionEdge, ActionID is set; for
// ForcedTransitionEdge, TriggerIDs lists every trigger applied en route to
// the single post-force child (spec.md §4.E: "a single post-force child
// node").
type Edge struct {
	Kind       EdgeKind
	From       string
	To         string
	ActionID   string
	TriggerIDs []string
}

// PolicyNode is one reachable state in the policy tree.
type PolicyNode struct {
	NodeID              string
	State               State
	PrescribedActionID  string // "" means no safe candidate was prescribed
	IsTerminal          bool
	IsGoalReached       bool
	IsSafe              bool
	ForcedAppliedAtTick []int64
}

// Policy is the bounded result of a Plan call.
type Policy struct {
	Nodes              []*PolicyNode
	Edges              []Edge
	ViolatedInvariants []string
	TotalNodes         int
	MaxDepthTicks       int64
}

// Config bounds the search, per spec.md §4.E / §6.
type Config struct {
	MaxHorizon      int64
	MaxBranchFactor int
	MaxPolicyNodes  int
}
