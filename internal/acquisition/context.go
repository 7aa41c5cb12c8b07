package acquisition

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// BuildContext buckets a raw WorldState into the coarse AcquisitionContext
// used for both candidate feasibility checks and prior lookup, per
// spec.md §4.F.
func BuildContext(world WorldState) AcquisitionContext {
	var villagerDist, chestDist, oreDist NearbyEntity
	var villagerSeen, chestSeen bool
	chestCount := 0
	villagerTradeAvailable := false

	for _, e := range world.NearbyEntities {
		switch e.Kind {
		case "villager":
			villagerTradeAvailable = true
			if !villagerSeen || e.Distance < villagerDist.Distance {
				villagerDist = e
				villagerSeen = true
			}
		case "chest":
			chestCount++
			if !chestSeen || e.Distance < chestDist.Distance {
				chestDist = e
				chestSeen = true
			}
		}
	}

	oreNearby := false
	for _, b := range world.NearbyBlocks {
		if isOreBlock(b) {
			oreNearby = true
			if !oreDist.Defined || oreDist.Distance == 0 {
				oreDist = NearbyEntity{Kind: "ore", Distance: 0, Defined: true}
			}
		}
	}

	return AcquisitionContext{
		TargetItem:             world.TargetItem,
		OreNearby:              oreNearby,
		VillagerTradeAvailable: villagerTradeAvailable,
		KnownChestCountBucket:  chestCountBucket(chestCount),
		DistBucketVillager:     DistanceToBucket(villagerDist.Distance, villagerSeen),
		DistBucketChest:        DistanceToBucket(chestDist.Distance, chestSeen),
		DistBucketOre:          DistanceToBucket(oreDist.Distance, oreNearby),
		InventoryHash:          InventoryHash(world.Inventory),
		ToolTierCap:            world.ToolTierCap,
	}
}

func isOreBlock(block string) bool {
	switch block {
	case "iron_ore", "gold_ore", "coal_ore", "diamond_ore", "copper_ore":
		return true
	default:
		return false
	}
}

// chestCountBucket coarsens a raw chest count: 0 -> 0, 1-2 -> 1, 3-5 -> 2,
// >5 -> 3. An implementation choice.
func chestCountBucket(count int) int {
	switch {
	case count <= 0:
		return 0
	case count <= 2:
		return 1
	case count <= 5:
		return 2
	default:
		return 3
	}
}

// InventoryHash is a deterministic content hash over the inventory map.
// encoding/json sorts map keys, so two calls with the same contents
// produce byte-identical input to the hash regardless of map iteration
// order.
func InventoryHash(inventory map[string]int) string {
	if len(inventory) == 0 {
		return "empty"
	}
	raw, err := json.Marshal(inventory)
	if err != nil {
		// Inventory values are always int; Marshal cannot fail here.
		return "invalid"
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

// ContextKey builds the deterministic prior-lookup key: two observations
// with identical buckets yield the same key regardless of raw entity
// identity, per spec.md §4.F.
func ContextKey(ctx AcquisitionContext) string {
	return fmt.Sprintf(
		"targetItem=%s|oreNearby=%t|villagerTradeAvailable=%t|knownChestCountBucket=%d|distBucket_villager=%d|distBucket_chest=%d|distBucket_ore=%d|inventoryHash=%s|toolTierCap=%s",
		ctx.TargetItem, ctx.OreNearby, ctx.VillagerTradeAvailable, ctx.KnownChestCountBucket,
		ctx.DistBucketVillager, ctx.DistBucketChest, ctx.DistBucketOre, ctx.InventoryHash, ctx.ToolTierCap,
	)
}

// sortedInventoryKeys returns inventory keys in sorted order, for
// deterministic iteration over held items. It currently has no caller.
func sortedInventoryKeys(inventory map[string]int) []string {
	keys := make([]string, 0, len(inventory))
	for k := range inventory {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
