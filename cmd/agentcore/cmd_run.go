package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"agentcore/internal/acquisition"
	"agentcore/internal/belief"
	"agentcore/internal/config"
	"agentcore/internal/contingency"
	"agentcore/internal/controller"
	"agentcore/internal/gateway"
	"agentcore/internal/goap"
	"agentcore/internal/logging"
	"agentcore/internal/loopbreaker"
	"agentcore/internal/reflex"
	"agentcore/internal/taskhistory"
)

var (
	configPath string
	goalKind   string
)

// runCmd drives the tick loop against a synthetic evidence/world stream.
// This is a soak-test and demonstration harness, not a production
// game-protocol adapter: a real deployment supplies its own EvidenceSource
// and WorldObserver wired to the engine's own network layer.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the control core's tick loop against a synthetic world",
	RunE:  runTickLoop,
}

func runTickLoop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctrlCfg := controllerConfigFromAppConfig(cfg)
	actions := demoActions()

	goal, err := demoGoal(goalKind)
	if err != nil {
		return err
	}

	var history taskhistory.Provider
	if cfg.TaskHistory.EndpointBase != "" {
		history = taskhistory.NewCachedProvider(
			ctrlCfg.TaskHistory,
			taskhistory.NewHTTPProvider(ctrlCfg.TaskHistory, cfg.TaskHistory.EndpointBase, 500*time.Millisecond),
		)
	} else {
		history = taskhistory.NullProvider{}
	}

	c := controller.New(
		ctrlCfg,
		loggingExecutor{},
		nil,
		actions,
		acquisition.NullReasoner{},
		acquisition.NoPriors,
		history,
		demoEvidenceSource{},
		demoWorldObserver{},
	)
	c.SetGoal(goal)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	logging.Controller("agentcore run: starting tick loop at %dHz, goal=%s", cfg.TickRateHz, goal.ID)
	for {
		select {
		case <-ctx.Done():
			logging.Controller("agentcore run: stopping (%v)", ctx.Err())
			return nil
		case <-ticker.C:
			if err := c.Tick(ctx); err != nil {
				logging.ControllerDebug("tick error: %v", err)
			}
		}
	}
}

// demoGoal builds a small, self-contained goal for soak-testing the tick
// loop without a live game connection.
func demoGoal(kind string) (goap.Goal, error) {
	switch kind {
	case "distance":
		return goap.Goal{ID: "reach-waypoint", Kind: goap.GoalDistance, Pos: [3]float64{10, 0, 0}}, nil
	case "item":
		return goap.Goal{ID: "acquire-demo-item", Kind: goap.GoalItemPossession, Item: "stick", Count: 1}, nil
	case "threat":
		return goap.Goal{ID: "clear-threat", Kind: goap.GoalThreatLevel}, nil
	default:
		return goap.Goal{}, fmt.Errorf("unknown --goal kind %q (want distance, item, or threat)", kind)
	}
}

// demoActions is the synthetic action space the demo planner searches over:
// one action per goal kind the run subcommand supports.
func demoActions() []goap.Action {
	return []goap.Action{
		{
			ID:            "move_to_waypoint",
			BaseCost:      1,
			GatewayAction: gateway.Action{Type: "move_to", Parameters: map[string]interface{}{"x": 10.0, "y": 0.0, "z": 0.0}},
			Precondition:  func(goap.State) bool { return true },
			Apply: func(s goap.State) goap.State {
				s = s.Clone()
				s.Pos = [3]float64{10, 0, 0}
				return s
			},
		},
		{
			ID:            "pick_up_stick",
			BaseCost:      1,
			GatewayAction: gateway.Action{Type: "pick_up", Parameters: map[string]interface{}{"item": "stick"}},
			Precondition:  func(goap.State) bool { return true },
			Apply: func(s goap.State) goap.State {
				s = s.Clone()
				s.Inventory["stick"]++
				return s
			},
		},
		{
			ID:            "retreat_from_threat",
			BaseCost:      1,
			GatewayAction: gateway.Action{Type: "move_to", Parameters: map[string]interface{}{"x": -10.0, "y": 0.0, "z": 0.0}},
			Precondition:  func(goap.State) bool { return true },
			Apply: func(s goap.State) goap.State {
				s = s.Clone()
				s.Properties["threat_level"] = 0
				return s
			},
		},
	}
}

// demoEvidenceSource yields an empty batch every tick: the run subcommand
// demonstrates the control loop's phase structure without a live perception
// feed wired in.
type demoEvidenceSource struct{}

func (demoEvidenceSource) NextBatch(ctx context.Context, tickID int64) (belief.EvidenceBatch, error) {
	return belief.EvidenceBatch{TickID: tickID}, nil
}

// demoWorldObserver reports a fixed, benign world: no threats, empty
// inventory, starting at the origin. It exists to exercise every Tick phase
// end to end, not to model a real game world.
type demoWorldObserver struct{}

func (demoWorldObserver) ObserveGOAPState(ctx context.Context) goap.State {
	return goap.State{
		Pos:        [3]float64{0, 0, 0},
		Inventory:  map[string]int{},
		Properties: map[string]float64{"threat_level": 0},
	}
}

func (demoWorldObserver) ObserveWorldState(ctx context.Context) acquisition.WorldState {
	return acquisition.WorldState{Inventory: map[string]int{}}
}

func (demoWorldObserver) ObserveContingencyState(ctx context.Context) contingency.State {
	return contingency.State{Properties: map[string]float64{"health": 20, "food": 20}}
}

// loggingExecutor is the run subcommand's world-mutation sink: it performs
// no real side effects, only records the dispatch for operator visibility.
type loggingExecutor struct{}

func (loggingExecutor) Execute(ctx context.Context, action gateway.Action) (map[string]interface{}, error) {
	logging.Gateway("executed %s %v", action.Type, action.Parameters)
	return map[string]interface{}{"ok": true}, nil
}

// controllerConfigFromAppConfig adapts the on-disk config.Config surface to
// internal/controller's narrower per-component Config shape: the two live
// in separate packages (config is the serializable root; controller.Config
// is what the tick loop actually consumes) so the field-by-field mapping
// lives here, at the boot boundary, rather than in either package.
func controllerConfigFromAppConfig(cfg *config.Config) controller.Config {
	return controller.Config{
		Belief: belief.Config{
			BotID:                        "agentcore",
			StreamID:                     cfg.Name,
			MaxSaliencyEventsPerEmission: cfg.Belief.MaxSaliencyEventsPerEmission,
			SnapshotIntervalTicks:        int64(cfg.Belief.SnapshotIntervalTicks),
			AgingK1Ticks:                 int64(cfg.Belief.AgingK1Ticks),
			AgingK2Ticks:                 int64(cfg.Belief.AgingK2Ticks),
		},
		Reflex: reflex.Config{
			OverrideDurationDefaultTicks:  int64(cfg.Reflex.OverrideDurationDefaultTicks),
			OverrideDurationHighTicks:     int64(cfg.Reflex.OverrideDurationHighTicks),
			OverrideDurationCriticalTicks: int64(cfg.Reflex.OverrideDurationCriticalTicks),
		},
		AcquisitionSolver: acquisition.Config{
			Domain:                        "item-acquisition",
			SolveTimeout:                  cfg.GetReasonerTimeout(),
			FallbackOnReasonerUnavailable: cfg.Acquisition.FallbackOnReasonerUnavailable,
		},
		LoopBreaker: loopbreaker.Config{
			Threshold:        cfg.LoopBreaker.Threshold,
			WindowMs:         cfg.LoopBreaker.WindowMs,
			SuppressionTtlMs: cfg.LoopBreaker.SuppressionTTLMs,
			ShadowMode:       cfg.LoopBreaker.ShadowMode,
			MaxSignatures:    cfg.LoopBreaker.MaxSignatures,
		},
		TaskHistory: taskhistory.Config{
			TTLMs:      cfg.TaskHistory.TTLMs,
			MaxLimit:   cfg.TaskHistory.MaxLimit,
			MaxTitle:   cfg.TaskHistory.MaxTitle,
			MaxSummary: cfg.TaskHistory.MaxSummary,
		},
		AcquisitionCadenceTicks: 5,
		ContingencyCadenceTicks: 10,
		GatewayDispatchTimeout:  500 * time.Millisecond,
		ReasonerTimeout:         cfg.GetReasonerTimeout(),
	}
}
