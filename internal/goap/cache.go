package goap

import (
	"sync"
	"time"
)

// planCacheTTL bounds how long a cached plan is considered still
// applicable before PlanTo re-searches from scratch.
const planCacheTTL = 2 * time.Second

type cacheEntry struct {
	plan      Plan
	expiresAt time.Time
}

// planCache is the short-lived cache keyed on (goalId, stateDigest) spec.md
// §4.H calls for.
type planCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newPlanCache() *planCache {
	return &planCache{entries: make(map[string]cacheEntry)}
}

func cacheKey(goalID, stateDigest string) string {
	return goalID + "|" + stateDigest
}

func (c *planCache) get(goalID, stateDigest string) (Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey(goalID, stateDigest)]
	if !ok || time.Now().After(entry.expiresAt) {
		return Plan{}, false
	}
	return entry.plan, true
}

func (c *planCache) put(goalID, stateDigest string, plan Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(goalID, stateDigest)] = cacheEntry{
		plan:      plan,
		expiresAt: time.Now().Add(planCacheTTL),
	}
}

// anyForGoal returns an unexpired cached plan for goalID under any prior
// stateDigest, used to decide whether a cache miss on the exact digest can
// still be repaired (first step's precondition still holds) rather than
// triggering a full replan.
func (c *planCache) anyForGoal(goalID string) (Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := goalID + "|"
	now := time.Now()
	for key, entry := range c.entries {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && now.Before(entry.expiresAt) {
			return entry.plan, true
		}
	}
	return Plan{}, false
}
