// Package controller wires the eight components into the single-threaded
// cooperative tick loop described in spec.md §5. Controller is the one
// global singleton the design note in spec.md §9 calls for: it owns one
// Bus, one Arbitrator, one Contingency Planner, one GOAP Planner, one
// Acquisition Solver, and one Gateway, and drives them through Tick in the
// fixed five-phase order.
package controller

import (
	"context"
	"strconv"
	"time"

	"agentcore/internal/acquisition"
	"agentcore/internal/belief"
	"agentcore/internal/contingency"
	"agentcore/internal/gateway"
	"agentcore/internal/goap"
	"agentcore/internal/logging"
	"agentcore/internal/loopbreaker"
	"agentcore/internal/reflex"
	"agentcore/internal/taskhistory"
)

// Config bundles the construction-time configuration for every owned
// component. Field values are sourced from internal/config.Config at
// wiring time (cmd/agentcore).
type Config struct {
	Belief            belief.Config
	Reflex            reflex.Config
	AcquisitionSolver acquisition.Config
	LoopBreaker       loopbreaker.Config
	TaskHistory       taskhistory.Config

	// AcquisitionCadenceTicks: the Acquisition Solver runs once every N
	// ticks rather than every tick, per spec.md §5 ("independently... at
	// lower cadence").
	AcquisitionCadenceTicks int64
	// ContingencyCadenceTicks: the P09 policy is recomputed once every N
	// ticks; it runs "in parallel" with H per spec.md §2's data-flow line,
	// not gating dispatch, so it need not run every tick.
	ContingencyCadenceTicks int64
	// GatewayDispatchTimeout bounds a single Gateway.Dispatch call.
	GatewayDispatchTimeout time.Duration
	// ReasonerTimeout bounds a single Acquisition Solver external-reasoner
	// round trip within Solver.Solve.
	ReasonerTimeout time.Duration
}

// EvidenceSource supplies the current tick's evidence batch. In production
// this is the game-protocol adapter; cmd/agentcore's `run` subcommand backs
// it with a recorded/synthetic stream (spec.md §6 scope note).
type EvidenceSource interface {
	NextBatch(ctx context.Context, tickID int64) (belief.EvidenceBatch, error)
}

// WorldObserver supplies the current world state each planning component
// needs, translated into that component's own state shape.
type WorldObserver interface {
	ObserveGOAPState(ctx context.Context) goap.State
	ObserveWorldState(ctx context.Context) acquisition.WorldState
	ObserveContingencyState(ctx context.Context) contingency.State
}

// Controller owns the tick loop and every per-component singleton it
// drives. Not safe for concurrent Tick calls: the control core is
// single-threaded cooperative, per spec.md §5.
type Controller struct {
	cfg Config

	bus         *belief.Bus
	arbitrator  *reflex.Arbitrator
	contingency *contingency.Planner
	goapPlan    *goap.Planner
	solver      *acquisition.Solver
	gw          *gateway.Gateway
	leases      *gateway.LeaseTracker
	breaker     *loopbreaker.Breaker
	history     taskhistory.Provider

	actionsByID map[string]goap.Action

	executorW *gateway.ExecutorWrapper
	reactiveW *gateway.ReactiveWrapper
	reflexW   *gateway.ReflexWrapper
	plannerW  *gateway.PlannerWrapper

	evidence EvidenceSource
	world    WorldObserver

	tickID int64
	seq    int64

	currentGoal       *goap.Goal
	lastAcquisitionAt int64
	lastContingencyAt int64
	lastPolicy        *contingency.Policy
}

// New constructs a Controller with all owned components wired together.
// executor is the game-protocol sink the Execution Gateway ultimately
// dispatches mutating actions to.
func New(
	cfg Config,
	executor gateway.Executor,
	contingencyPlanner *contingency.Planner,
	goapActions []goap.Action,
	reasoner acquisition.Reasoner,
	priors acquisition.PriorLookup,
	history taskhistory.Provider,
	evidence EvidenceSource,
	world WorldObserver,
) *Controller {
	gw := gateway.New(executor)
	leases := gateway.NewLeaseTracker()
	arbitrator := reflex.NewArbitrator(cfg.Reflex)

	actionsByID := make(map[string]goap.Action, len(goapActions))
	for _, a := range goapActions {
		actionsByID[a.ID] = a
	}

	c := &Controller{
		cfg:         cfg,
		bus:         belief.NewBus(cfg.Belief),
		arbitrator:  arbitrator,
		contingency: contingencyPlanner,
		goapPlan:    goap.NewPlanner(goapActions),
		solver:      acquisition.NewSolver(cfg.AcquisitionSolver, reasoner, priors),
		gw:          gw,
		leases:      leases,
		breaker:     loopbreaker.New(cfg.LoopBreaker, nil),
		history:     history,
		actionsByID: actionsByID,
		evidence:    evidence,
		world:       world,
	}

	c.executorW = gateway.NewExecutorWrapper(gw, c.plannerBlocked)
	c.reactiveW = gateway.NewReactiveWrapper(gw, c.plannerBlocked)
	c.reflexW = gateway.NewReflexWrapper(gw)
	c.plannerW = gateway.NewPlannerWrapper(gw, c.plannerBlocked)

	return c
}

func (c *Controller) plannerBlocked() bool {
	return c.arbitrator.IsPlannerBlocked(c.tickID)
}

// SetGoal assigns the GOAP planner's current subgoal. Wiring ultimately
// delegates goal selection to the embedding application; Controller only
// drives the plan-and-dispatch loop around whatever goal is active.
func (c *Controller) SetGoal(goal goap.Goal) {
	c.currentGoal = &goal
}

// LastPolicy returns the most recently computed P09 contingency policy, or
// nil if none has been computed yet.
func (c *Controller) LastPolicy() *contingency.Policy {
	return c.lastPolicy
}

// Executor exposes the sole executor-origin gateway call site for the
// embedding application's own non-tick-driven action requests (e.g. a
// player-issued command). Reactive and planner-origin calls work the same
// way via Reactive and the internal plannerW used by Tick.
func (c *Controller) Executor() *gateway.ExecutorWrapper { return c.executorW }

// Reactive exposes the sole reactive-origin gateway call site.
func (c *Controller) Reactive() *gateway.ReactiveWrapper { return c.reactiveW }

// Leases exposes the shared LeaseTracker so navigation-action callers can
// acquire/release leases around Executor/Reactive/Planner dispatches.
func (c *Controller) Leases() *gateway.LeaseTracker { return c.leases }

// Tick runs one iteration of the five-phase loop from spec.md §5.
func (c *Controller) Tick(ctx context.Context) error {
	c.tickID++
	c.seq++

	// Phase 1: Bus.ingest(latest batch) + track aging.
	batch, err := c.evidence.NextBatch(ctx, c.tickID)
	if err != nil {
		logging.ControllerDebug("tick %d: evidence source failed: %v", c.tickID, err)
		batch = belief.EvidenceBatch{TickID: c.tickID}
	}
	c.bus.Ingest(batch)
	snapshot := c.bus.BuildSnapshot(c.tickID)

	// Phase 2: Safety Reader derives assessment; Arbitrator updates
	// override state; tickUpdate emits lifecycle events.
	assessment := reflex.AssessReflexThreats(*snapshot)
	switch {
	case assessment.HasCriticalThreat:
		c.arbitrator.EnterReflexMode("critical_threat", c.tickID, reflex.SeverityCritical)
	case assessment.RecommendedAction == reflex.ActionEvade:
		c.arbitrator.EnterReflexMode("high_threat", c.tickID, reflex.SeverityHigh)
	}
	c.arbitrator.TickUpdate(c.tickID)

	blocked := c.plannerBlocked()

	// Phase 3: GOAP.planTo for the current subgoal unless blocked; the
	// Contingency Planner and Acquisition Solver run independently, at
	// their own lower cadences, per spec.md §2/§5.
	var plan *goap.Plan
	if !blocked && c.currentGoal != nil {
		state := c.world.ObserveGOAPState(ctx)
		goapCtx := goap.Context{ThreatLevel: threatScore(assessment)}
		p := c.goapPlan.PlanTo(*c.currentGoal, state, goapCtx, c.cfg.GatewayDispatchTimeout.Milliseconds())
		plan = &p
	}

	if c.contingency != nil && c.cfg.ContingencyCadenceTicks > 0 && c.tickID-c.lastContingencyAt >= c.cfg.ContingencyCadenceTicks {
		c.lastContingencyAt = c.tickID
		cState := c.world.ObserveContingencyState(ctx)
		policy := c.contingency.Plan(cState)
		c.lastPolicy = policy
		logging.ContingencyDebug("tick %d: policy totalNodes=%d maxDepthTicks=%d", c.tickID, policy.TotalNodes, policy.MaxDepthTicks)
	}

	if c.cfg.AcquisitionCadenceTicks > 0 && c.tickID-c.lastAcquisitionAt >= c.cfg.AcquisitionCadenceTicks {
		c.lastAcquisitionAt = c.tickID
		world := c.world.ObserveWorldState(ctx)
		solveCtx, cancel := context.WithTimeout(ctx, c.cfg.ReasonerTimeout)
		if _, err := c.solver.Solve(solveCtx, world); err != nil {
			logging.ControllerDebug("tick %d: acquisition solve failed: %v", c.tickID, err)
		}
		cancel()
	}

	// Phase 4: Execution Gateway dispatches at most one world-mutating
	// action. Safety reflexes preempt the planned step.
	if safety := c.checkSafety(ctx); safety != nil {
		goap.ExecuteSafetyReflex(ctx, c.reflexW, *safety, c.cfg.GatewayDispatchTimeout)
	} else if plan != nil && plan.Reached && len(plan.Steps) > 0 {
		if action, ok := c.actionsByID[plan.Steps[0].ActionID]; ok && c.currentGoal != nil && !c.IsGoalSuppressed(*c.currentGoal, action) {
			result := c.plannerW.Run(ctx, action.GatewayAction, c.cfg.GatewayDispatchTimeout)
			c.recordDispatchOutcome(*c.currentGoal, action, result)
		}
	}

	// Phase 5: Bus.buildEnvelope(seq) emits to the external observer stream.
	_ = c.bus.BuildEnvelope(c.seq, c.tickID)

	return nil
}

func (c *Controller) checkSafety(ctx context.Context) *goap.SafetyAction {
	state := c.world.ObserveGOAPState(ctx)
	reflexes := goap.CheckSafetyReflexes(state, goap.DefaultSafetyThresholds())
	if len(reflexes) == 0 {
		return nil
	}
	return &reflexes[0]
}

// recordDispatchOutcome feeds a dispatch failure into the Loop Breaker,
// keyed on (goal, action) so a recurring stuck action against the same
// subgoal trips loop detection rather than being retried indefinitely.
func (c *Controller) recordDispatchOutcome(goal goap.Goal, action goap.Action, result gateway.Result) {
	if result.Success {
		return
	}
	sig := loopbreaker.FailureSignature{
		SignatureID: goal.ID + ":" + action.ID,
		Kind:        "gateway_dispatch_failure",
		Detail:      result.Error,
	}
	// taskId is the tick at which the failure occurred: each tick is a
	// distinct attempt, so repeated failures across distinct ticks are what
	// the loop breaker's distinct-taskId threshold counts.
	occ := loopbreaker.FailureOccurrence{TaskID: strconv.FormatInt(c.tickID, 10), RunID: action.ID}
	if episode := c.breaker.RecordFailure(sig, occ); episode != nil {
		logging.ControllerDebug("tick %d: loop episode for goal=%s action=%s occurrences=%d", c.tickID, goal.ID, action.ID, episode.Occurrences)
	}
}

// RecentTasks surfaces the Task History Provider's getRecent(limit) to
// embedding-application status surfaces.
func (c *Controller) RecentTasks(ctx context.Context, limit int) taskhistory.Snapshot {
	return c.history.GetRecent(ctx, limit)
}

// IsGoalSuppressed reports whether the loop breaker currently suppresses
// further attempts at goal via its dispatch-failure signature.
func (c *Controller) IsGoalSuppressed(goal goap.Goal, action goap.Action) bool {
	return c.breaker.IsSuppressed(goal.ID + ":" + action.ID)
}

func threatScore(a reflex.Assessment) float64 {
	switch {
	case a.HasCriticalThreat:
		return 1.0
	case a.RecommendedAction == reflex.ActionEvade:
		return 0.6
	case a.RecommendedAction == reflex.ActionShield:
		return 0.3
	default:
		return 0.0
	}
}
