package acquisition

// toolRequirementFor returns the inventory capability flag (a "cap:" key)
// required to mine targetItem's ore. Unknown items require no capability
// flag beyond ore presence.
func toolRequirementFor(targetItem string) string {
	switch targetItem {
	case "iron_ingot", "iron_ore":
		return "cap:has_stone_pickaxe"
	case "gold_ingot", "gold_ore", "diamond":
		return "cap:has_iron_pickaxe"
	default:
		return ""
	}
}

func hasCapability(inventory map[string]int, cap string) bool {
	if cap == "" {
		return true
	}
	return inventory[cap] >= 1
}

// enumerateMine produces 0 or 1 mine candidates: feasible when ore is
// nearby and the required tool capability is held.
func enumerateMine(ctx AcquisitionContext, world WorldState) *StrategyCandidate {
	if !ctx.OreNearby {
		return nil
	}
	requirement := toolRequirementFor(ctx.TargetItem)
	feasibility := FeasibilityUnknown
	if hasCapability(world.Inventory, requirement) {
		feasibility = FeasibilityAvailable
	}

	cost := 10.0
	cost += float64(ctx.DistBucketOre) * 2

	var requires []string
	if requirement != "" {
		requires = []string{requirement}
	}

	return &StrategyCandidate{
		Strategy:        StrategyMine,
		Item:            ctx.TargetItem,
		EstimatedCost:   cost,
		Feasibility:     feasibility,
		Requires:        requires,
		ContextSnapshot: ctx,
	}
}

// tradeCostFor returns the emerald price a villager trade demands for
// targetItem. Unknown items are not tradeable.
func tradeCostFor(targetItem string) (emeralds int, tradeable bool) {
	switch targetItem {
	case "iron_ingot":
		return 4, true
	case "bread":
		return 1, true
	case "arrow":
		return 2, true
	default:
		return 0, false
	}
}

// enumerateTrade produces 0 or 1 trade candidates: feasible when a villager
// is nearby, the item is tradeable, and the agent holds enough emeralds.
func enumerateTrade(ctx AcquisitionContext, world WorldState) *StrategyCandidate {
	if !ctx.VillagerTradeAvailable {
		return nil
	}
	price, tradeable := tradeCostFor(ctx.TargetItem)
	if !tradeable {
		return nil
	}

	feasibility := FeasibilityUnknown
	if world.Inventory["emerald"] >= price && ctx.DistBucketVillager <= 2 {
		feasibility = FeasibilityAvailable
	}

	cost := 8.0 + float64(ctx.DistBucketVillager)

	return &StrategyCandidate{
		Strategy:        StrategyTrade,
		Item:            ctx.TargetItem,
		EstimatedCost:   cost,
		Feasibility:     feasibility,
		Requires:        []string{"emerald"},
		ContextSnapshot: ctx,
	}
}

// enumerateLoot produces 0 or 1 loot candidates: feasible when known chests
// exist within a reasonable distance bucket.
func enumerateLoot(ctx AcquisitionContext) *StrategyCandidate {
	if ctx.KnownChestCountBucket == 0 {
		return nil
	}

	feasibility := FeasibilityUnknown
	if ctx.DistBucketChest <= 2 {
		feasibility = FeasibilityAvailable
	}

	cost := 6.0 + float64(ctx.DistBucketChest) - float64(ctx.KnownChestCountBucket)*0.5

	return &StrategyCandidate{
		Strategy:        StrategyLoot,
		Item:            ctx.TargetItem,
		EstimatedCost:   cost,
		Feasibility:     feasibility,
		ContextSnapshot: ctx,
	}
}

// hasSalvageableSource is the inventory-aware helper spec.md §4.F calls
// for: a salvage candidate consumes an inventory item, so feasibility
// depends on holding a "salvage:<item>" marker placed by the caller (e.g. a
// broken tool known to yield targetItem on salvage).
func hasSalvageableSource(inventory map[string]int, targetItem string) bool {
	return inventory["salvage:"+targetItem] >= 1
}

// enumerateSalvage produces 0 or 1 salvage candidates: feasible when the
// agent holds a salvageable source item for targetItem.
func enumerateSalvage(ctx AcquisitionContext, world WorldState) *StrategyCandidate {
	sourceKey := "salvage:" + ctx.TargetItem
	if world.Inventory[sourceKey] == 0 {
		return nil // no evidence of a salvageable source item at all
	}

	feasibility := FeasibilityUnknown
	if hasSalvageableSource(world.Inventory, ctx.TargetItem) {
		feasibility = FeasibilityAvailable
	}

	return &StrategyCandidate{
		Strategy:        StrategySalvage,
		Item:            ctx.TargetItem,
		EstimatedCost:   4.0,
		Feasibility:     feasibility,
		Requires:        []string{sourceKey},
		ContextSnapshot: ctx,
	}
}

// EnumerateCandidates produces the candidate set across all four strategy
// families, per spec.md §4.F. Order is family-declaration order
// (mine, trade, loot, salvage); ranking re-sorts deterministically
// downstream.
func EnumerateCandidates(ctx AcquisitionContext, world WorldState) []StrategyCandidate {
	var candidates []StrategyCandidate
	if c := enumerateMine(ctx, world); c != nil {
		candidates = append(candidates, *c)
	}
	if c := enumerateTrade(ctx, world); c != nil {
		candidates = append(candidates, *c)
	}
	if c := enumerateLoot(ctx); c != nil {
		candidates = append(candidates, *c)
	}
	if c := enumerateSalvage(ctx, world); c != nil {
		candidates = append(candidates, *c)
	}
	return candidates
}
