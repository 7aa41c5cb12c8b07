package goap

import (
	"context"
	"sort"
	"time"

	"agentcore/internal/gateway"
)

// SafetyThresholds configures when checkSafetyReflexes recommends each
// emergency action, per spec.md §4.H ("health < 20 with food, lava
// proximity, low air, etc.").
type SafetyThresholds struct {
	LowHealth      float64
	LowFood        float64
	LavaProximity  float64
	LowAir         float64
	ThreatFleeMin  float64
}

// DefaultSafetyThresholds mirrors the spec's own example figures.
func DefaultSafetyThresholds() SafetyThresholds {
	return SafetyThresholds{
		LowHealth:     20,
		LowFood:       6,
		LavaProximity: 3,
		LowAir:        20,
		ThreatFleeMin: 0.8,
	}
}

// CheckSafetyReflexes returns every emergency SafetyAction whose threshold
// is crossed in state, priority ordered (most urgent first).
func CheckSafetyReflexes(state State, thresholds SafetyThresholds) []SafetyAction {
	var actions []SafetyAction

	if state.Properties["lava_distance"] > 0 && state.Properties["lava_distance"] < thresholds.LavaProximity {
		actions = append(actions, SafetyAction{
			Kind:   SafetyRetreatLava,
			Action: gateway.Action{Type: "retreat", Parameters: map[string]interface{}{"away_from": "lava"}},
		})
	}

	if state.Properties["air"] > 0 && state.Properties["air"] < thresholds.LowAir {
		actions = append(actions, SafetyAction{
			Kind:   SafetySurface,
			Action: gateway.Action{Type: "surface", Parameters: map[string]interface{}{}},
		})
	}

	if state.Properties["threat_level"] >= thresholds.ThreatFleeMin {
		actions = append(actions, SafetyAction{
			Kind:   SafetyFlee,
			Action: gateway.Action{Type: "flee", Parameters: map[string]interface{}{}},
		})
	}

	if state.Properties["health"] < thresholds.LowHealth && state.Inventory["food"] > 0 {
		actions = append(actions, SafetyAction{
			Kind:   SafetyEatFood,
			Action: gateway.Action{Type: "eat", Parameters: map[string]interface{}{"item": "food"}},
		})
	}

	for i := range actions {
		actions[i].Priority = safetyPriority[actions[i].Kind]
	}
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Priority < actions[j].Priority })

	return actions
}

// ExecuteSafetyReflex is executeSafetyReflex(reflex, mcp): dispatches the
// chosen SafetyAction to the Execution Gateway tagged origin: reflex, per
// spec.md §4.H.
func ExecuteSafetyReflex(ctx context.Context, wrapper *gateway.ReflexWrapper, reflex SafetyAction, timeout time.Duration) gateway.Result {
	return wrapper.Run(ctx, reflex.Action, timeout)
}
