package controller

import (
	"context"
	"testing"
	"time"

	"agentcore/internal/acquisition"
	"agentcore/internal/belief"
	"agentcore/internal/contingency"
	"agentcore/internal/gateway"
	"agentcore/internal/goap"
	"agentcore/internal/loopbreaker"
	"agentcore/internal/reflex"
	"agentcore/internal/taskhistory"
)

type emptyEvidence struct{}

func (emptyEvidence) NextBatch(ctx context.Context, tickID int64) (belief.EvidenceBatch, error) {
	return belief.EvidenceBatch{TickID: tickID}, nil
}

type staticWorld struct {
	goapState goap.State
}

func (w staticWorld) ObserveGOAPState(ctx context.Context) goap.State { return w.goapState }
func (w staticWorld) ObserveWorldState(ctx context.Context) acquisition.WorldState {
	return acquisition.WorldState{Inventory: map[string]int{}}
}
func (w staticWorld) ObserveContingencyState(ctx context.Context) contingency.State {
	return contingency.State{Tick: 0, Properties: map[string]float64{"health": 20, "food": 20}}
}

type recordingExecutor struct {
	calls []gateway.Action
}

func (e *recordingExecutor) Execute(ctx context.Context, action gateway.Action) (map[string]interface{}, error) {
	e.calls = append(e.calls, action)
	return map[string]interface{}{"ok": true}, nil
}

func testConfig() Config {
	return Config{
		Belief:            belief.Config{BotID: "b1", StreamID: "s1", MaxSaliencyEventsPerEmission: 32, SnapshotIntervalTicks: 20},
		Reflex:            reflex.Config{OverrideDurationDefaultTicks: 10, OverrideDurationHighTicks: 10, OverrideDurationCriticalTicks: 15},
		AcquisitionSolver: acquisition.DefaultConfig(),
		LoopBreaker:       loopbreaker.DefaultConfig(),
		TaskHistory:       taskhistory.DefaultConfig(),
		GatewayDispatchTimeout: 50 * time.Millisecond,
		ReasonerTimeout:        50 * time.Millisecond,
	}
}

func newTestController(t *testing.T, executor gateway.Executor, world WorldObserver) *Controller {
	t.Helper()
	moveAction := goap.Action{
		ID:       "move_to_goal",
		BaseCost: 1,
		GatewayAction: gateway.Action{Type: "move_to", Parameters: map[string]interface{}{}},
		Precondition: func(s goap.State) bool { return true },
		Apply: func(s goap.State) goap.State {
			s = s.Clone()
			s.Pos = [3]float64{10, 0, 0}
			return s
		},
	}
	return New(
		testConfig(),
		executor,
		nil, // contingency planner optional in this test
		[]goap.Action{moveAction},
		acquisition.NullReasoner{},
		acquisition.NoPriors,
		taskhistory.NullProvider{},
		emptyEvidence{},
		world,
	)
}

func TestTickRunsWithoutErrorWhenNoGoalSet(t *testing.T) {
	executor := &recordingExecutor{}
	world := staticWorld{goapState: goap.State{Pos: [3]float64{0, 0, 0}, Inventory: map[string]int{}, Properties: map[string]float64{"health": 20, "food": 20}}}
	c := newTestController(t, executor, world)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if len(executor.calls) != 0 {
		t.Fatalf("expected no dispatch without an active goal, got %d", len(executor.calls))
	}
}

func TestTickDispatchesPlannedActionTowardGoal(t *testing.T) {
	executor := &recordingExecutor{}
	world := staticWorld{goapState: goap.State{Pos: [3]float64{0, 0, 0}, Inventory: map[string]int{}, Properties: map[string]float64{"health": 20, "food": 20}}}
	c := newTestController(t, executor, world)
	c.SetGoal(goap.Goal{ID: "reach-origin-plus-10", Kind: goap.GoalDistance, Pos: [3]float64{10, 0, 0}})

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if len(executor.calls) != 1 {
		t.Fatalf("expected exactly one dispatched action, got %d", len(executor.calls))
	}
	if executor.calls[0].Type != "move_to" {
		t.Fatalf("unexpected dispatched action type: %q", executor.calls[0].Type)
	}
}

func TestTickSkipsPlannerWhenReflexBlocked(t *testing.T) {
	executor := &recordingExecutor{}
	world := staticWorld{goapState: goap.State{Pos: [3]float64{0, 0, 0}, Inventory: map[string]int{}, Properties: map[string]float64{"health": 20, "food": 20}}}
	c := newTestController(t, executor, world)
	c.SetGoal(goap.Goal{ID: "reach-origin-plus-10", Kind: goap.GoalDistance, Pos: [3]float64{10, 0, 0}})

	// Force the override active ahead of the tick, as phase 2 would on a
	// critical threat, and confirm phase 3/4 skip planning and dispatch.
	c.arbitrator.EnterReflexMode("forced_for_test", c.tickID, reflex.SeverityCritical)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if len(executor.calls) != 0 {
		t.Fatalf("expected no planner dispatch while reflex-blocked, got %d calls", len(executor.calls))
	}
}

func TestRecentTasksDelegatesToHistoryProvider(t *testing.T) {
	executor := &recordingExecutor{}
	world := staticWorld{goapState: goap.State{Pos: [3]float64{0, 0, 0}, Inventory: map[string]int{}}}
	c := newTestController(t, executor, world)

	snap := c.RecentTasks(context.Background(), 10)
	if !snap.OK || snap.Source != taskhistory.SourceNull {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestIsGoalSuppressedFollowsLoopBreaker(t *testing.T) {
	executor := &recordingExecutor{}
	world := staticWorld{}
	c := newTestController(t, executor, world)
	goal := goap.Goal{ID: "g1"}
	action := goap.Action{ID: "a1"}

	if c.IsGoalSuppressed(goal, action) {
		t.Fatal("expected not suppressed before any failures recorded")
	}

	for i := 0; i < 3; i++ {
		c.tickID++
		c.recordDispatchOutcome(goal, action, gateway.Result{Success: false, Error: "boom"})
	}

	if !c.IsGoalSuppressed(goal, action) {
		t.Fatal("expected suppression active after threshold dispatch failures")
	}
}
