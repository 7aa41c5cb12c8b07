package contingency

import (
	"fmt"
	"sort"

	"agentcore/internal/logging"
)

// GoalPredicate reports whether state satisfies the planner's goal.
type GoalPredicate func(State) bool

// Planner runs the bounded P09 BFS policy-tree search.
type Planner struct {
	cfg         Config
	actions     []ActionDef
	triggers    []Trigger
	triggerByID map[string]Trigger
	invariants  []SafetyInvariant
	goal        GoalPredicate
	safety      *safetyChecker
}

// NewPlanner constructs a Planner. Trigger ids must be unique.
func NewPlanner(cfg Config, actions []ActionDef, triggers []Trigger, invariants []SafetyInvariant, goal GoalPredicate) (*Planner, error) {
	triggerByID := make(map[string]Trigger, len(triggers))
	for _, t := range triggers {
		if _, dup := triggerByID[t.ID]; dup {
			return nil, fmt.Errorf("contingency: duplicate trigger id %q", t.ID)
		}
		triggerByID[t.ID] = t
	}

	safety, err := newSafetyChecker()
	if err != nil {
		return nil, err
	}

	return &Planner{
		cfg:         cfg,
		actions:     actions,
		triggers:    triggers,
		triggerByID: triggerByID,
		invariants:  invariants,
		goal:        goal,
		safety:      safety,
	}, nil
}

// Close releases the planner's safety-checking resources.
func (p *Planner) Close() error {
	return p.safety.Close()
}

// EvaluateTriggers returns the sorted ids of triggers that fire at state.
// Deterministic: same (tick, properties) -> same sorted list, per spec.md
// §4.E property 8.
func EvaluateTriggers(state State, triggers []Trigger) []string {
	var fired []string
	for _, t := range triggers {
		if t.Fires(state) {
			fired = append(fired, t.ID)
		}
	}
	sort.Strings(fired)
	return fired
}

// Plan runs the bounded BFS from root and returns the resulting policy,
// per spec.md §4.E.
func (p *Planner) Plan(root State) *Policy {
	policy := &Policy{}
	rootTick := root.Tick
	nodeCounter := 0
	violatedAgg := make(map[string]bool)

	newNode := func(state State, forcedTicks []int64) *PolicyNode {
		n := &PolicyNode{
			NodeID:              fmt.Sprintf("n%d", nodeCounter),
			State:               state,
			ForcedAppliedAtTick: forcedTicks,
		}
		nodeCounter++
		policy.Nodes = append(policy.Nodes, n)
		return n
	}

	recordViolations := func(ids []string) {
		for _, id := range ids {
			violatedAgg[id] = true
		}
	}

	rootNode := newNode(root.Clone(), nil)
	queue := []*PolicyNode{rootNode}

	// postForceNodes marks nodes that were just produced by applying forced
	// transitions. Trigger-fire conditions are evaluated at the tick level,
	// so without this guard a still-firing tick_interval/threshold trigger
	// would re-apply against its own post-force child forever. A post-force
	// node proceeds straight to chosen-action expansion for its tick.
	postForceNodes := make(map[string]bool)

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		violated := p.safety.CheckAll(n.State, p.invariants)
		recordViolations(violated)
		n.IsSafe = len(violated) == 0

		switch {
		case p.goal != nil && p.goal(n.State):
			n.IsGoalReached = true
			n.IsTerminal = true
			continue
		case n.State.Tick-rootTick >= p.cfg.MaxHorizon:
			n.IsTerminal = true
			continue
		case !n.IsSafe:
			n.IsTerminal = true
			continue
		case len(policy.Nodes) >= p.cfg.MaxPolicyNodes:
			n.IsTerminal = true
			continue
		}

		if !postForceNodes[n.NodeID] {
			fired := EvaluateTriggers(n.State, p.triggers)
			if len(fired) > 0 {
				nextState := n.State.Clone()
				for _, tid := range fired {
					trig := p.triggerByID[tid]
					nextState = trig.Apply(nextState)
				}
				if len(policy.Nodes) >= p.cfg.MaxPolicyNodes {
					n.IsTerminal = true
					continue
				}
				forcedTicks := append(append([]int64{}, n.ForcedAppliedAtTick...), n.State.Tick)
				child := newNode(nextState, forcedTicks)
				postForceNodes[child.NodeID] = true
				policy.Edges = append(policy.Edges, Edge{
					Kind:       ForcedTransitionEdge,
					From:       n.NodeID,
					To:         child.NodeID,
					TriggerIDs: fired,
				})
				queue = append(queue, child)
				// No chosen-action edges may originate from the pre-force node.
				continue
			}
		}

		candidates := p.candidateActions(n.State)
		if len(candidates) == 0 {
			n.IsTerminal = true
			continue
		}

		type childRef struct {
			actionID string
			cost     float64
			safe     bool
		}
		var children []childRef

		for _, action := range candidates {
			if len(policy.Nodes) >= p.cfg.MaxPolicyNodes {
				logging.ContingencyDebug("contingency: node cap %d reached while expanding %s", p.cfg.MaxPolicyNodes, n.NodeID)
				break
			}
			finalState, forcedTicksFired := p.simulate(n.State, action)
			forcedTicks := append(append([]int64{}, n.ForcedAppliedAtTick...), forcedTicksFired...)
			child := newNode(finalState, forcedTicks)

			childViolated := p.safety.CheckAll(child.State, p.invariants)
			recordViolations(childViolated)
			child.IsSafe = len(childViolated) == 0

			policy.Edges = append(policy.Edges, Edge{
				Kind:     ChosenActionEdge,
				From:     n.NodeID,
				To:       child.NodeID,
				ActionID: action.ID,
			})
			queue = append(queue, child)
			children = append(children, childRef{actionID: action.ID, cost: action.Cost, safe: child.IsSafe})
		}

		sort.SliceStable(children, func(i, j int) bool {
			if children[i].cost != children[j].cost {
				return children[i].cost < children[j].cost
			}
			return children[i].actionID < children[j].actionID
		})
		for _, c := range children {
			if c.safe {
				n.PrescribedActionID = c.actionID
				break
			}
		}
	}

	policy.TotalNodes = len(policy.Nodes)
	for _, n := range policy.Nodes {
		if depth := n.State.Tick - rootTick; depth > policy.MaxDepthTicks {
			policy.MaxDepthTicks = depth
		}
	}
	for id := range violatedAgg {
		policy.ViolatedInvariants = append(policy.ViolatedInvariants, id)
	}
	sort.Strings(policy.ViolatedInvariants)

	return policy
}

// candidateActions returns applicable actions sorted by (cost asc, id asc)
// and capped at MaxBranchFactor, per spec.md §4.E.
func (p *Planner) candidateActions(state State) []ActionDef {
	candidates := make([]ActionDef, 0, len(p.actions))
	for _, a := range p.actions {
		if a.Precondition == nil || a.Precondition(state) {
			candidates = append(candidates, a)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Cost != candidates[j].Cost {
			return candidates[i].Cost < candidates[j].Cost
		}
		return candidates[i].ID < candidates[j].ID
	})
	if p.cfg.MaxBranchFactor > 0 && len(candidates) > p.cfg.MaxBranchFactor {
		candidates = candidates[:p.cfg.MaxBranchFactor]
	}
	return candidates
}

// simulate runs an action tick-by-tick for action.DurationTicks: at every
// intermediate tick it evaluates triggers and applies all fired forced
// transitions to a running state, then applies the action's own effects at
// the end tick. Returns the final state and the ticks at which forced
// transitions fired during simulation. Per spec.md §4.E.
func (p *Planner) simulate(state State, action ActionDef) (State, []int64) {
	running := state.Clone()
	var forcedTicks []int64

	for i := int64(1); i < action.DurationTicks; i++ {
		running.Tick = state.Tick + i
		fired := EvaluateTriggers(running, p.triggers)
		if len(fired) == 0 {
			continue
		}
		for _, tid := range fired {
			trig := p.triggerByID[tid]
			running = trig.Apply(running)
		}
		forcedTicks = append(forcedTicks, running.Tick)
	}

	running.Tick = state.Tick + action.DurationTicks
	if action.Apply != nil {
		running = action.Apply(running)
	}
	return running, forcedTicks
}
