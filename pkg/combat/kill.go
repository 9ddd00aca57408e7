package combat

import (
	"sort"

	"chainrealm/pkg/config"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/model"
	"chainrealm/pkg/rng"
	"chainrealm/pkg/store"
	"chainrealm/pkg/validate"
)

// ProcessKills removes every fighter named in dead (already sorted by
// the adopted (type,id) tie-break) and disposes of its state per
// spec.md §4.9's "Kill processing": characters drop their inventory
// and roll their fitments; buildings fold their own stored inventory
// together with the vehicle/fitments/inventory of every character
// caught inside, refund standing trade-order bidders, then drop the
// combined pile with one drop-percent roll per item name in ascending
// order (spec.md §8 Scenario 6).
func ProcessKills(tx *store.Tx, cfg *config.RoConfig, oracle mapdata.Oracle, stream *rng.Stream, dead []fighterRef) {
	for _, ref := range dead {
		switch ref.Type {
		case model.TargetCharacter:
			killCharacter(tx, cfg, oracle, stream, ref.ID)
		case model.TargetBuilding:
			killBuilding(tx, cfg, stream, ref.ID)
		default:
			validate.Fatalf("combat: unknown target type %q for id %d", ref.Type, ref.ID)
		}
	}
}

func killCharacter(tx *store.Tx, cfg *config.RoConfig, oracle mapdata.Oracle, stream *rng.Stream, id int64) {
	ch, ok, err := tx.Character(id)
	validate.Require(err == nil, "combat: load dying character %d: %v", id, err)
	if !ok {
		return
	}
	validate.Require(ch.C.OnMap(), "combat: dying character %d has no map position", id)
	pos := *ch.C.Pos

	if ch.C.Blob.OngoingOpID != nil {
		op, ok, err := tx.OngoingOp(*ch.C.Blob.OngoingOpID)
		validate.Require(err == nil, "combat: load ongoing op for dying character %d: %v", id, err)
		if ok {
			if op.Op.Variant.Kind == model.OngoingProspection {
				regionID := oracle.RegionID(pos)
				region, err := tx.Region(regionID, 0)
				validate.Require(err == nil, "combat: load region %d: %v", regionID, err)
				region.R.Blob.ProspectingCharacter = nil
				region.MarkDirty()
				validate.Require(region.Commit() == nil, "combat: commit region %d", regionID)
			}
			op.Discard()
		}
	}

	if len(ch.C.Inventory) > 0 {
		validate.Require(tx.MergeGroundLoot(pos.X, pos.Y, ch.C.Inventory) == nil, "combat: drop inventory for character %d", id)
	}

	fitments := append([]string(nil), ch.C.Blob.Fitments...)
	sort.Strings(fitments)
	for _, name := range fitments {
		if stream.ProbabilityRoll(cfg.Combat.EquippedFitmentDropPercent, 100) {
			validate.Require(tx.MergeGroundLoot(pos.X, pos.Y, map[string]int64{name: 1}) == nil,
				"combat: drop fitment for character %d", id)
		}
	}

	ch.Discard()
	validate.Require(tx.DeleteCharacter(id) == nil, "combat: delete character %d", id)
}

func killBuilding(tx *store.Tx, cfg *config.RoConfig, stream *rng.Stream, id int64) {
	b, ok, err := tx.Building(id)
	validate.Require(err == nil, "combat: load dying building %d: %v", id, err)
	if !ok {
		return
	}
	center := b.B.Center

	combined := map[string]int64{}
	for k, v := range b.B.Blob.ConstructionInventory {
		combined[k] += v
	}
	stashes, err := tx.AllBuildingInventories(id)
	validate.Require(err == nil, "combat: load building inventories %d: %v", id, err)
	for _, inv := range stashes {
		for k, v := range inv {
			combined[k] += v
		}
	}

	// Characters caught inside a destroyed building are killed with it;
	// their vehicle, fitments and inventory join the building's own
	// combined pool rather than dropping under their own per-fitment
	// roll, so the whole pile shares one set of ascending-name drop
	// decisions (spec.md §8 Scenario 6).
	inside, err := tx.CharactersInBuilding(id)
	validate.Require(err == nil, "combat: list characters in building %d: %v", id, err)
	for _, ch := range inside {
		for k, v := range ch.C.Inventory {
			combined[k] += v
		}
		for _, fitment := range ch.C.Blob.Fitments {
			combined[fitment]++
		}
		if ch.C.Blob.VehicleType != "" {
			combined[ch.C.Blob.VehicleType]++
		}
		ch.Discard()
		validate.Require(tx.DeleteCharacter(ch.C.ID) == nil, "combat: delete character %d in destroyed building %d", ch.C.ID, id)
	}

	orders, err := tx.TradeOrdersForBuilding(id)
	validate.Require(err == nil, "combat: load trade orders for building %d: %v", id, err)
	for _, o := range orders {
		acc, ok, err := tx.Account(o.Account)
		validate.Require(err == nil, "combat: load account %s for refund: %v", o.Account, err)
		if !ok {
			continue
		}
		acc.A.Coin += o.ReservedCoin
		acc.MarkDirty()
		validate.Require(acc.Commit() == nil, "combat: commit refund to %s", o.Account)
	}
	validate.Require(tx.DeleteTradeOrdersForBuilding(id) == nil, "combat: delete trade orders for building %d", id)

	names := make([]string, 0, len(combined))
	for name := range combined {
		names = append(names, name)
	}
	sort.Strings(names)
	drop := map[string]int64{}
	for _, name := range names {
		if combined[name] <= 0 {
			continue
		}
		if stream.ProbabilityRoll(cfg.Combat.BuildingInventoryDropPercent, 100) {
			drop[name] = combined[name]
		}
	}
	if len(drop) > 0 {
		validate.Require(tx.MergeGroundLoot(center.X, center.Y, drop) == nil, "combat: drop building inventory %d", id)
	}

	b.Discard()
	validate.Require(tx.DeleteBuilding(id) == nil, "combat: delete building %d", id)
}
