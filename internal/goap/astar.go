package goap

import (
	"container/heap"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"agentcore/internal/logging"
)

// StateDigest is a deterministic content hash of a State, used both as the
// open/closed-set key and as half of the plan-cache key
// (goalId, stateDigest).
func StateDigest(state State) string {
	type canonical struct {
		Pos        [3]float64        `json:"pos"`
		Inventory  map[string]int    `json:"inventory"`
		Properties map[string]float64 `json:"properties"`
	}
	raw, err := json.Marshal(canonical{Pos: state.Pos, Inventory: state.Inventory, Properties: state.Properties})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

type searchNode struct {
	state    State
	digest   string
	gScore   float64
	fScore   float64
	parent   *searchNode
	actionID string
	cost     float64
	index    int // heap bookkeeping
}

// openHeap implements heap.Interface, ordered by fScore with a digest
// tie-break so two runs over an identical frontier always pop in the same
// order.
type openHeap []*searchNode

func (h openHeap) Len() int { return len(h) }

func (h openHeap) Less(i, j int) bool {
	if h[i].fScore != h[j].fScore {
		return h[i].fScore < h[j].fScore
	}
	return h[i].digest < h[j].digest
}

func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *openHeap) Push(x interface{}) {
	n := *h
	node := x.(*searchNode)
	node.index = len(n)
	*h = append(n, node)
}

func (h *openHeap) Pop() interface{} {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// Planner runs bounded A* searches over an Action set, with a short-lived
// plan cache and running latency/hit-rate metrics.
type Planner struct {
	actions []Action
	cache   *planCache
	metrics *Metrics
}

// NewPlanner builds a Planner over the given action-space operators.
func NewPlanner(actions []Action) *Planner {
	return &Planner{
		actions: actions,
		cache:   newPlanCache(),
		metrics: NewMetrics(nil),
	}
}

// MaxExpansions bounds A* node expansion per call, independent of budgetMs,
// so a slow environment can't turn an unreachable goal into an unbounded
// search.
const MaxExpansions = 20000

// PlanTo is planTo(subgoal, state, context, budgetMs): returns a Plan, or an
// unreached Plan with no steps (GoalID and ExpandedN still set) if no
// solution is found within budget or the expansion cap.
func (p *Planner) PlanTo(goal Goal, start State, goapCtx Context, budgetMs int64) Plan {
	callStart := time.Now()
	defer func() {
		p.metrics.RecordLatency(time.Since(callStart))
	}()

	startDigest := StateDigest(start)
	if cached, ok := p.cache.get(goal.ID, startDigest); ok {
		p.metrics.RecordCacheHit()
		return cached
	}
	p.metrics.RecordCacheMiss()

	if stale, ok := p.cache.anyForGoal(goal.ID); ok && planRepairable(stale, start, p.actions) {
		p.metrics.RecordRepair()
		p.cache.put(goal.ID, startDigest, stale)
		return stale
	}
	p.metrics.RecordReplan()

	deadline := callStart.Add(time.Duration(budgetMs) * time.Millisecond)

	open := &openHeap{}
	heap.Init(open)
	closed := make(map[string]bool)
	best := make(map[string]*searchNode)

	root := &searchNode{state: start, digest: startDigest, gScore: 0, fScore: heuristic(goal, start)}
	heap.Push(open, root)
	best[startDigest] = root

	expanded := 0
	for open.Len() > 0 {
		if expanded >= MaxExpansions || time.Now().After(deadline) {
			logging.GOAPDebug("goap: planTo bounds.exceeded goal=%s expanded=%d", goal.ID, expanded)
			break
		}
		current := heap.Pop(open).(*searchNode)
		if closed[current.digest] {
			continue
		}
		closed[current.digest] = true
		expanded++

		if satisfiesGoal(goal, current.state) {
			plan := reconstructPlan(goal.ID, current, expanded, true)
			p.cache.put(goal.ID, startDigest, plan)
			return plan
		}

		for _, action := range p.actions {
			if action.Precondition != nil && !action.Precondition(current.state) {
				continue
			}
			nextState := action.Apply(current.state.Clone())
			nextDigest := StateDigest(nextState)
			if closed[nextDigest] {
				continue
			}

			cost := dynamicCostFn(action, current.state, goapCtx)
			tentativeG := current.gScore + cost

			existing, known := best[nextDigest]
			if known && tentativeG >= existing.gScore {
				continue
			}

			node := &searchNode{
				state:    nextState,
				digest:   nextDigest,
				gScore:   tentativeG,
				fScore:   tentativeG + heuristic(goal, nextState),
				parent:   current,
				actionID: action.ID,
				cost:     cost,
			}
			best[nextDigest] = node
			heap.Push(open, node)
		}
	}

	plan := Plan{GoalID: goal.ID, Reached: false, ExpandedN: expanded}
	return plan
}

// dynamicCostFn combines an action's baseCost with urgency (hunger, threat)
// and opportunity (detour value), per spec.md §4.H.
func dynamicCostFn(action Action, state State, ctx Context) float64 {
	cost := action.BaseCost
	cost *= 1 + ctx.Hunger*0.5
	cost *= 1 + ctx.ThreatLevel*0.75
	if ctx.DetourValue != nil {
		cost -= ctx.DetourValue(action, state)
	}
	if cost < 0.01 {
		cost = 0.01
	}
	return cost
}

// heuristic selects an admissible-ish estimator by goal kind, per spec.md
// §4.H ("heuristic selected by goal kind").
func heuristic(goal Goal, state State) float64 {
	switch goal.Kind {
	case GoalDistance:
		dx := state.Pos[0] - goal.Pos[0]
		dy := state.Pos[1] - goal.Pos[1]
		dz := state.Pos[2] - goal.Pos[2]
		return math.Sqrt(dx*dx + dy*dy + dz*dz)
	case GoalItemPossession:
		held := state.Inventory[goal.Item]
		missing := goal.Count - held
		if missing <= 0 {
			return 0
		}
		return float64(missing) * 5
	case GoalThreatLevel:
		return state.Properties["threat_level"] * 10
	default:
		return 0
	}
}

func satisfiesGoal(goal Goal, state State) bool {
	switch goal.Kind {
	case GoalDistance:
		return heuristic(goal, state) < 1.5
	case GoalItemPossession:
		return state.Inventory[goal.Item] >= goal.Count
	case GoalThreatLevel:
		return state.Properties["threat_level"] <= 0
	default:
		return false
	}
}

func reconstructPlan(goalID string, node *searchNode, expanded int, reached bool) Plan {
	var steps []PlanStep
	for n := node; n != nil && n.parent != nil; n = n.parent {
		steps = append(steps, PlanStep{ActionID: n.actionID, Cost: n.cost, State: n.state})
	}
	reversed := make([]PlanStep, len(steps))
	for i, s := range steps {
		reversed[len(steps)-1-i] = s
	}
	return Plan{GoalID: goalID, Steps: reversed, Reached: reached, ExpandedN: expanded}
}

// planRepairable reports whether a stale plan's next unexecuted step is
// still applicable from start: its action's precondition holds, so the
// cached remainder can be reused instead of triggering a full replan.
func planRepairable(stale Plan, start State, actions []Action) bool {
	if !stale.Reached || len(stale.Steps) == 0 {
		return false
	}
	firstActionID := stale.Steps[0].ActionID
	for _, action := range actions {
		if action.ID != firstActionID {
			continue
		}
		return action.Precondition == nil || action.Precondition(start)
	}
	return false
}
