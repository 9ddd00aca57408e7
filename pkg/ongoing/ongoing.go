// Package ongoing implements the ongoing-operations scheduler
// (spec.md §4.6): counting down busy characters and finalising
// whichever tagged operation variant comes due.
package ongoing

import (
	"chainrealm/pkg/config"
	"chainrealm/pkg/gamelog"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/model"
	"chainrealm/pkg/rng"
	"chainrealm/pkg/store"
	"chainrealm/pkg/validate"
)

// Scheduler finalises due ongoing operations.
type Scheduler struct {
	Cfg    *config.RoConfig
	Oracle mapdata.Oracle
}

// Process decrements busy_blocks on every busy character and finalises
// every op that reaches zero, in ascending character-id order.
func (s *Scheduler) Process(tx *store.Tx, stream *rng.Stream, height uint64) {
	chars, err := tx.AllCharacters()
	validate.Require(err == nil, "ongoing: list characters: %v", err)

	var busy []*store.CharacterHandle
	for _, ch := range chars {
		if ch.C.BusyBlocks <= 0 {
			ch.Discard()
			continue
		}
		busy = append(busy, ch)
	}

	for _, ch := range busy {
		ch.C.BusyBlocks--
		ch.MarkDirty()
		if ch.C.BusyBlocks > 0 {
			validate.Require(ch.Commit() == nil, "ongoing: commit character %d", ch.C.ID)
			continue
		}
		validate.Require(ch.C.Blob.OngoingOpID != nil, "ongoing: character %d busy_blocks reached zero without an op", ch.C.ID)
		opID := *ch.C.Blob.OngoingOpID
		op, ok, err := tx.OngoingOp(opID)
		validate.Require(err == nil, "ongoing: load op %d: %v", opID, err)
		validate.Require(ok, "ongoing: dangling ongoing_op_id %d on character %d", opID, ch.C.ID)

		s.finaliseForCharacter(tx, stream, height, ch, op)
	}

	dueBuildingOps, err := tx.DueOngoingOps(height)
	validate.Require(err == nil, "ongoing: list due ops: %v", err)
	for _, op := range dueBuildingOps {
		if op.Op.BuildingID == nil {
			op.Discard()
			continue
		}
		s.finaliseForBuilding(tx, op)
	}
}

func (s *Scheduler) finaliseForCharacter(tx *store.Tx, stream *rng.Stream, height uint64, ch *store.CharacterHandle, op *store.OngoingOpHandle) {
	switch op.Op.Variant.Kind {
	case model.OngoingProspection:
		s.finaliseProspection(tx, stream, height, ch)
	case model.OngoingArmourRepair:
		ch.C.HP.Armour = ch.C.HP.MaxArmour
	case model.OngoingBlueprintCopy:
		v := op.Op.Variant.BlueprintCopy
		acc, ok, err := tx.Account(ch.C.Owner)
		validate.Require(err == nil && ok, "ongoing: blueprint copy owner lookup for character %d", ch.C.ID)
		acc.A.Goods[v.BlueprintName] += int64(1 + v.Copies)
		acc.MarkDirty()
		validate.Require(acc.Commit() == nil, "ongoing: commit account %s", acc.A.Name)
	case model.OngoingItemConstruction:
		v := op.Op.Variant.ItemConstruction
		if v.FromCopies {
			ch.C.Inventory[v.ItemName] += v.Amount
		} else {
			ch.C.Inventory[v.ItemName]++
		}
	default:
		validate.Fatalf("ongoing: unexpected character-owned variant kind %q", op.Op.Variant.Kind)
	}

	ch.C.Blob.OngoingOpID = nil
	ch.MarkDirty()
	validate.Require(ch.Commit() == nil, "ongoing: commit character %d", ch.C.ID)
	validate.Require(tx.DeleteOngoingOp(op.Op.ID) == nil, "ongoing: delete op %d", op.Op.ID)
	op.Discard()
}

func (s *Scheduler) finaliseProspection(tx *store.Tx, stream *rng.Stream, height uint64, ch *store.CharacterHandle) {
	regionID := s.Oracle.RegionID(*ch.C.Pos)
	region, err := tx.Region(regionID, 0)
	validate.Require(err == nil, "ongoing: load region %d: %v", regionID, err)
	region.R.Blob.ProspectingCharacter = nil

	resourceTypes := []string{"gold", "silver", "bronze"}
	resourceType := rng.Pick(stream, resourceTypes)
	region.R.Blob.Prospection = &model.ProspectionResult{ResourceType: resourceType, Height: height}
	region.MarkDirty()

	for _, tier := range s.Cfg.Prizes {
		found, err := tx.PrizeCounterFound(tier.Name)
		validate.Require(err == nil, "ongoing: prize counter %s: %v", tier.Name, err)
		if int(found) >= tier.Cap {
			continue
		}
		if !stream.ProbabilityRoll(tier.Chance1000, 1000) {
			continue
		}
		if _, err := tx.IncrementPrizeCounter(tier.Name); err != nil {
			validate.Fatalf("ongoing: increment prize counter %s: %v", tier.Name, err)
		}
		awardItem(ch, tx, tier.Name)
		gamelog.Debug("prize awarded", gamelog.ID("character", ch.C.ID), gamelog.String("tier", tier.Name))
		break
	}

	validate.Require(region.Commit() == nil, "ongoing: commit region %d", regionID)
}

func awardItem(ch *store.CharacterHandle, tx *store.Tx, item string) {
	used := int64(0)
	for _, v := range ch.C.Inventory {
		used += v
	}
	free := ch.C.Blob.CargoSpace - used
	if free > 0 {
		ch.C.Inventory[item]++
		return
	}
	if err := tx.MergeGroundLoot(ch.C.Pos.X, ch.C.Pos.Y, map[string]int64{item: 1}); err != nil {
		validate.Fatalf("ongoing: drop overflow prize on ground: %v", err)
	}
}

func (s *Scheduler) finaliseForBuilding(tx *store.Tx, op *store.OngoingOpHandle) {
	b, ok, err := tx.Building(*op.Op.BuildingID)
	validate.Require(err == nil, "ongoing: load building %d: %v", *op.Op.BuildingID, err)
	validate.Require(ok, "ongoing: dangling ongoing_op building_id %d", *op.Op.BuildingID)

	switch op.Op.Variant.Kind {
	case model.OngoingBuildingConstruction:
		b.B.Blob.Foundation = false
		b.B.HP.Armour = b.B.HP.MaxArmour
		b.B.CanRegen = true
	case model.OngoingBuildingConfigUpdate:
		b.B.Blob.Config = op.Op.Variant.BuildingConfigUpdate.NewConfig
	default:
		validate.Fatalf("ongoing: unexpected building-owned variant kind %q", op.Op.Variant.Kind)
	}

	b.B.Blob.OngoingConstructionID = nil
	b.MarkDirty()
	validate.Require(b.Commit() == nil, "ongoing: commit building %d", b.B.ID)
	validate.Require(tx.DeleteOngoingOp(op.Op.ID) == nil, "ongoing: delete op %d", op.Op.ID)
	op.Discard()
}
