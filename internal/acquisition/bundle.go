package acquisition

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// ReasonerPayload is the canonicalized wire payload sent to the external
// reasoning service, per spec.md §6. Field order is fixed; slices are
// sorted before marshaling so two calls with the same logical world state
// produce byte-identical payloads regardless of observation order.
type ReasonerPayload struct {
	TargetItem     string         `json:"targetItem"`
	Inventory      map[string]int `json:"inventory"`
	NearbyBlocks   []string       `json:"nearbyBlocks"`
	NearbyEntities []NearbyEntity `json:"nearbyEntities"`
}

// BuildPayload canonicalizes a WorldState into a ReasonerPayload: blocks
// sorted lexicographically, entities sorted by (kind, distance).
func BuildPayload(world WorldState) ReasonerPayload {
	blocks := make([]string, len(world.NearbyBlocks))
	copy(blocks, world.NearbyBlocks)
	sort.Strings(blocks)

	entities := make([]NearbyEntity, len(world.NearbyEntities))
	copy(entities, world.NearbyEntities)
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Kind != entities[j].Kind {
			return entities[i].Kind < entities[j].Kind
		}
		return entities[i].Distance < entities[j].Distance
	})

	inventory := world.Inventory
	if inventory == nil {
		inventory = map[string]int{}
	}

	return ReasonerPayload{
		TargetItem:     world.TargetItem,
		Inventory:      inventory,
		NearbyBlocks:   blocks,
		NearbyEntities: entities,
	}
}

// BundleID is the content hash of the canonicalized reasoner payload,
// truncated to 16 hex chars to match CandidateSetDigest's digest length.
// Identical (targetItem, inventory, nearbyBlocks, nearbyEntities) yields an
// identical bundleId across calls, per spec.md §4.F.
func BundleID(payload ReasonerPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16], nil
}
