// Package goap implements the Enhanced GOAP Reactive Planner (component H):
// a bounded A* search in action space with dynamic, urgency-weighted costs,
// a short-lived plan cache, and the safety-reflex escape hatch spec.md §4.H
// requires ahead of any planned action. The open-set priority queue is
// grounded on another pack repo's container/heap-based deterministic
// scheduler (Mindburn-Labs-helm/core/pkg/kernel/scheduler.go): same
// container/heap.Interface shape, generalized from event scheduling to
// state-space search.
package goap

import "agentcore/internal/gateway"

// GoalKind selects the heuristic A* uses to estimate remaining cost.
type GoalKind string

const (
	GoalDistance        GoalKind = "distance"
	GoalItemPossession  GoalKind = "item_possession"
	GoalThreatLevel     GoalKind = "threat_level"
)

// Goal is the target state A* searches toward.
type Goal struct {
	ID    string
	Kind  GoalKind
	Item  string  // for GoalItemPossession
	Count int     // for GoalItemPossession
	Pos   [3]float64 // for GoalDistance
}

// State is the planner's action-space state: position, inventory, and a bag
// of named scalar properties (health, food, threat level, ...).
type State struct {
	Pos        [3]float64
	Inventory  map[string]int
	Properties map[string]float64
}

// Clone deep-copies State so A* expansion never aliases a parent's maps.
func (s State) Clone() State {
	inv := make(map[string]int, len(s.Inventory))
	for k, v := range s.Inventory {
		inv[k] = v
	}
	props := make(map[string]float64, len(s.Properties))
	for k, v := range s.Properties {
		props[k] = v
	}
	return State{Pos: s.Pos, Inventory: inv, Properties: props}
}

// Context carries the urgency signals dynamicCostFn reads: hunger and
// threat level raise the effective cost of any action that doesn't address
// them; detour value lowers it for actions that pass near a known
// opportunity.
type Context struct {
	Hunger      float64 // 0 (sated) .. 1 (starving)
	ThreatLevel float64 // 0 (safe) .. 1 (critical)
	DetourValue func(action Action, state State) float64
}

// Action is one GOAP action-space operator.
type Action struct {
	ID            string
	BaseCost      float64
	GatewayAction gateway.Action
	// Precondition gates candidacy; nil means always applicable.
	Precondition func(State) bool
	// Apply produces the resulting state. Must not mutate its input.
	Apply func(State) State
}

// PlanStep is one edge in a returned Plan.
type PlanStep struct {
	ActionID string
	Cost     float64
	State    State
}

// Plan is a bounded A* result: an ordered sequence of actions from the
// start state to a state satisfying Goal. When no solution is found within
// budget, Reached is false and Steps is empty.
type Plan struct {
	GoalID    string
	Steps     []PlanStep
	Reached   bool
	ExpandedN int
}

// SafetyActionKind enumerates the emergency reflex actions
// checkSafetyReflexes can recommend. Their priority comes from
// safetyPriority, not from declaration order.
type SafetyActionKind string

const (
	SafetyEatFood      SafetyActionKind = "eat_food"
	SafetyRetreatLava  SafetyActionKind = "retreat_from_lava"
	SafetySurface      SafetyActionKind = "surface_for_air"
	SafetyFlee         SafetyActionKind = "flee"
)

// safetyPriority orders SafetyActionKind by urgency; lower is more urgent.
var safetyPriority = map[SafetyActionKind]int{
	SafetyRetreatLava: 0,
	SafetySurface:     1,
	SafetyFlee:        2,
	SafetyEatFood:      3,
}

// SafetyAction is an emergency action checkSafetyReflexes recommends,
// dispatched directly through the Execution Gateway rather than by the A*
// plan loop.
type SafetyAction struct {
	Kind     SafetyActionKind
	Priority int
	Action   gateway.Action
}
