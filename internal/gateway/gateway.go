// Package gateway implements the Execution Gateway (component G): the
// single chokepoint every world-mutating action must flow through, tagged
// with its calling origin, per spec.md §4.G (invariant E0). Structural
// enforcement of the surrounding drift-guard rules (no raw calls outside
// the canonical wrappers, no bypass of the navigation-lease scope) lives in
// internal/driftguard as a source-scanning check, run by
// cmd/agentcore/driftguard and the drift-check subcommand, mirrored on the
// teacher's own action_linter/verify_taxonomy tools.
package gateway

import (
	"context"
	"fmt"
	"time"

	"agentcore/internal/logging"
)

// Origin identifies which caller family issued a gateway call.
type Origin string

const (
	OriginExecutor Origin = "executor"
	OriginReactive Origin = "reactive"
	OriginReflex   Origin = "reflex"
	OriginPlanner  Origin = "planner"
)

func (o Origin) valid() bool {
	switch o {
	case OriginExecutor, OriginReactive, OriginReflex, OriginPlanner:
		return true
	default:
		return false
	}
}

// Action is a typed action envelope dispatched through the gateway.
type Action struct {
	Type       string
	Parameters map[string]interface{}
}

// Result is the outcome of a single executeViaGateway call.
type Result struct {
	Success bool
	Result  map[string]interface{}
	Error   string
}

// Executor performs the actual world mutation once the gateway has cleared
// an action for dispatch. Implementations are the only code permitted to
// touch world-mutation primitives directly.
type Executor interface {
	Execute(ctx context.Context, action Action) (map[string]interface{}, error)
}

// Gateway is the sole mutator of the world: every other path is expected to
// call Dispatch rather than an Executor directly.
type Gateway struct {
	executor Executor
	leases   *LeaseTracker
}

// New constructs a Gateway around executor, with a fresh navigation-lease
// tracker.
func New(executor Executor) *Gateway {
	return &Gateway{
		executor: executor,
		leases:   NewLeaseTracker(),
	}
}

// Dispatch is executeViaGateway: the single chokepoint for world-mutating
// actions. A reflex override active for any origin other than OriginReflex
// itself refuses the call with gateway.blocked, per spec.md §4.G/§7.
func (g *Gateway) Dispatch(ctx context.Context, origin Origin, action Action, blocked func() bool, timeout time.Duration) Result {
	if !origin.valid() {
		return Result{Success: false, Error: fmt.Sprintf("gateway: invalid origin %q", origin)}
	}

	if blocked != nil && blocked() && origin != OriginReflex {
		logging.GatewayDebug("gateway.blocked: origin=%s action=%s refused, reflex override active", origin, action.Type)
		return Result{Success: false, Error: "gateway.blocked: reflex override active"}
	}

	if isNavigationAction(action.Type) && !g.leases.HasActiveLease() {
		return Result{Success: false, Error: "precondition.unmet: navigation primitive requires an active lease scope"}
	}

	dispatchCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		dispatchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resCh := make(chan Result, 1)
	go func() {
		out, err := g.executor.Execute(dispatchCtx, action)
		if err != nil {
			resCh <- Result{Success: false, Error: truncateErr(err)}
			return
		}
		resCh <- Result{Success: true, Result: out}
	}()

	select {
	case res := <-resCh:
		logging.GatewayDebug("gateway dispatch: origin=%s action=%s success=%t", origin, action.Type, res.Success)
		return res
	case <-dispatchCtx.Done():
		return Result{Success: false, Error: "deadline.exceeded: gateway dispatch timed out"}
	}
}

func isNavigationAction(actionType string) bool {
	switch actionType {
	case "move_to", "pathfind", "navigate", "walk_to":
		return true
	default:
		return false
	}
}

func truncateErr(err error) string {
	msg := err.Error()
	const max = 200
	if len(msg) > max {
		msg = msg[:max]
	}
	return msg
}
