package contingency

import (
	"context"
	"fmt"
	"sort"

	"agentcore/internal/logging"
	"agentcore/internal/rules"
)

const safetySchema = `
Decl invariant_min(Id, Min).
Decl property_value(Id, Value).
Decl invariant_violated(Id)
  descr [mode("+")].

invariant_violated(Id) :-
  invariant_min(Id, Min),
  property_value(Id, Value),
  :lt(Value, Min).
`

// safetyChecker evaluates SafetyInvariants against a State via the shared
// Mangle fact/rule substrate (internal/rules), rather than a hand-rolled
// comparison loop, so the planner's safety evaluation is grounded on the
// same deterministic engine used elsewhere in the control core.
type safetyChecker struct {
	engine *rules.Engine
}

func newSafetyChecker() (*safetyChecker, error) {
	cfg := rules.DefaultConfig()
	cfg.AutoEval = true
	engine, err := rules.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("contingency: failed to create rules engine: %w", err)
	}
	if err := engine.LoadSchemaString(safetySchema); err != nil {
		return nil, fmt.Errorf("contingency: failed to load safety schema: %w", err)
	}
	return &safetyChecker{engine: engine}, nil
}

// CheckAll returns the sorted list of violated invariant ids for state,
// per spec.md §4.E checkAllSafety(state, invariants).
func (c *safetyChecker) CheckAll(state State, invariants []SafetyInvariant) []string {
	if len(invariants) == 0 {
		return nil
	}

	c.engine.Clear()

	facts := make([]rules.Fact, 0, len(invariants)*2)
	for _, inv := range invariants {
		value, ok := state.Properties[inv.Property]
		if !ok {
			// An undeclared property cannot be evaluated as violated; skip.
			continue
		}
		facts = append(facts,
			rules.Fact{Predicate: "invariant_min", Args: []interface{}{inv.ID, inv.Min}},
			rules.Fact{Predicate: "property_value", Args: []interface{}{inv.ID, value}},
		)
	}
	if len(facts) == 0 {
		return nil
	}
	if err := c.engine.AddFacts(facts); err != nil {
		logging.ContingencyDebug("safety check: AddFacts failed, treating as no violations: %v", err)
		return nil
	}

	result, err := c.engine.Query(context.Background(), "invariant_violated(X)")
	if err != nil {
		logging.ContingencyDebug("safety check: query failed, treating as no violations: %v", err)
		return nil
	}

	violated := make([]string, 0, len(result.Bindings))
	for _, binding := range result.Bindings {
		if id, ok := binding["X"].(string); ok {
			violated = append(violated, id)
		}
	}
	sort.Strings(violated)
	return violated
}

func (c *safetyChecker) Close() error {
	return c.engine.Close()
}
