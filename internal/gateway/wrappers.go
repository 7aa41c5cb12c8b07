package gateway

import (
	"context"
	"time"
)

// ExecutorWrapper is the single tolerated call site for origin: executor
// dispatch. Drift-guard rule: no other source file may construct a Dispatch
// call tagged OriginExecutor.
type ExecutorWrapper struct {
	gw      *Gateway
	blocked func() bool
}

// NewExecutorWrapper binds a Gateway and the Arbitrator's block predicate.
func NewExecutorWrapper(gw *Gateway, blocked func() bool) *ExecutorWrapper {
	return &ExecutorWrapper{gw: gw, blocked: blocked}
}

// Run dispatches an executor-originated action.
func (w *ExecutorWrapper) Run(ctx context.Context, action Action, timeout time.Duration) Result {
	return w.gw.Dispatch(ctx, OriginExecutor, action, w.blocked, timeout)
}

// ReactiveWrapper is the single tolerated call site for origin: reactive
// dispatch (opportunistic GOAP expansions outside the primary plan).
type ReactiveWrapper struct {
	gw      *Gateway
	blocked func() bool
}

// NewReactiveWrapper binds a Gateway and the Arbitrator's block predicate.
func NewReactiveWrapper(gw *Gateway, blocked func() bool) *ReactiveWrapper {
	return &ReactiveWrapper{gw: gw, blocked: blocked}
}

// Run dispatches a reactive-executor-originated action.
func (w *ReactiveWrapper) Run(ctx context.Context, action Action, timeout time.Duration) Result {
	return w.gw.Dispatch(ctx, OriginReactive, action, w.blocked, timeout)
}

// ReflexWrapper is the call site executeSafetyReflex (spec.md §4.H) uses to
// dispatch an emergency SafetyAction. Reflex-origin calls bypass the
// blocked() check inside Dispatch itself (a reflex is what sets blocked()
// in the first place), so this wrapper exists only to keep the origin tag
// centralized like its executor/reactive counterparts.
type ReflexWrapper struct {
	gw *Gateway
}

// NewReflexWrapper binds a Gateway.
func NewReflexWrapper(gw *Gateway) *ReflexWrapper {
	return &ReflexWrapper{gw: gw}
}

// Run dispatches a reflex-originated action.
func (w *ReflexWrapper) Run(ctx context.Context, action Action, timeout time.Duration) Result {
	return w.gw.Dispatch(ctx, OriginReflex, action, nil, timeout)
}

// PlannerWrapper is the call site for planner-origin dispatch; the
// controller's Tick uses it for the GOAP plan's next step.
type PlannerWrapper struct {
	gw      *Gateway
	blocked func() bool
}

// NewPlannerWrapper binds a Gateway and the Arbitrator's block predicate.
func NewPlannerWrapper(gw *Gateway, blocked func() bool) *PlannerWrapper {
	return &PlannerWrapper{gw: gw, blocked: blocked}
}

// Run dispatches a planner-originated action.
func (w *PlannerWrapper) Run(ctx context.Context, action Action, timeout time.Duration) Result {
	return w.gw.Dispatch(ctx, OriginPlanner, action, w.blocked, timeout)
}
