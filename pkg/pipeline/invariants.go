package pipeline

import (
	"chainrealm/pkg/config"
	"chainrealm/pkg/store"
	"chainrealm/pkg/validate"
)

// CheckInvariants walks every entity and re-asserts the properties
// spec.md §3 requires to hold after every block. It only runs when
// debug.validate_invariants is set, since a full scan adds O(entities)
// work per block that production nodes don't need once the state
// machine is trusted.
func CheckInvariants(tx *store.Tx, cfg *config.RoConfig) {
	chars, err := tx.AllCharacters()
	validate.Require(err == nil, "pipeline: invariants: list characters: %v", err)
	defer func() {
		for _, ch := range chars {
			ch.Discard()
		}
	}()

	perOwner := map[string]int{}
	accountFactions := map[string]string{}

	for _, ch := range chars {
		c := ch.C

		onMap := c.Pos != nil
		inBuilding := c.BuildingID != nil
		validate.Require(onMap != inBuilding, "pipeline: character %d is on-map=%v in-building=%v, exactly one must hold", c.ID, onMap, inBuilding)

		validate.Require((c.BusyBlocks > 0) == (c.Blob.OngoingOpID != nil),
			"pipeline: character %d busy_blocks=%d but ongoing_op_id set=%v", c.ID, c.BusyBlocks, c.Blob.OngoingOpID != nil)

		if c.Blob.OngoingOpID != nil {
			op, ok, err := tx.OngoingOp(*c.Blob.OngoingOpID)
			validate.Require(err == nil, "pipeline: invariants: load op %d: %v", *c.Blob.OngoingOpID, err)
			validate.Require(ok, "pipeline: character %d references missing ongoing op %d", c.ID, *c.Blob.OngoingOpID)
			if ok {
				validate.Require(op.Op.CharacterID != nil && *op.Op.CharacterID == c.ID,
					"pipeline: ongoing op %d does not point back to character %d", op.Op.ID, c.ID)
				op.Discard()
			}
		}

		for name, qty := range c.Inventory {
			validate.Require(qty >= 0 && qty <= 1_000_000_000, "pipeline: character %d inventory %q=%d out of bounds", c.ID, name, qty)
		}

		if inBuilding {
			b, ok, err := tx.Building(*c.BuildingID)
			validate.Require(err == nil, "pipeline: invariants: load building %d: %v", *c.BuildingID, err)
			validate.Require(ok, "pipeline: character %d sits in missing building %d", c.ID, *c.BuildingID)
			if ok {
				ancient := b.B.Owner == nil
				validate.Require(ancient || b.B.Faction == c.Faction,
					"pipeline: character %d (faction %s) sits in incompatible building %d (faction %s)", c.ID, c.Faction, b.B.ID, b.B.Faction)
				b.Discard()
			}
		}

		perOwner[c.Owner]++
		if f, ok := accountFactions[c.Owner]; ok {
			validate.Require(f == c.Faction, "pipeline: character %d faction %s disagrees with account %s faction %s", c.ID, c.Faction, c.Owner, f)
		} else {
			acc, ok, err := tx.Account(c.Owner)
			validate.Require(err == nil, "pipeline: invariants: load account %s: %v", c.Owner, err)
			validate.Require(ok, "pipeline: character %d owner account %s does not exist", c.ID, c.Owner)
			if ok {
				validate.Require(acc.A.Faction == c.Faction, "pipeline: character %d faction %s disagrees with account %s faction %s", c.ID, c.Faction, c.Owner, acc.A.Faction)
				accountFactions[c.Owner] = acc.A.Faction
				acc.Discard()
			}
		}
	}

	for owner, count := range perOwner {
		validate.Require(count <= cfg.CharacterLimitPerAccount, "pipeline: account %s has %d characters, over the %d limit", owner, count, cfg.CharacterLimitPerAccount)
	}

	buildings, err := tx.AllBuildings()
	validate.Require(err == nil, "pipeline: invariants: list buildings: %v", err)
	for _, b := range buildings {
		if b.B.Owner != nil {
			acc, ok, err := tx.Account(*b.B.Owner)
			validate.Require(err == nil, "pipeline: invariants: load account %s: %v", *b.B.Owner, err)
			validate.Require(ok, "pipeline: building %d owner account %s does not exist", b.B.ID, *b.B.Owner)
			if ok {
				validate.Require(acc.A.Faction == b.B.Faction, "pipeline: building %d faction %s disagrees with account %s faction %s", b.B.ID, b.B.Faction, *b.B.Owner, acc.A.Faction)
				acc.Discard()
			}
		}
		if b.B.Blob.OngoingConstructionID != nil {
			op, ok, err := tx.OngoingOp(*b.B.Blob.OngoingConstructionID)
			validate.Require(err == nil, "pipeline: invariants: load op %d: %v", *b.B.Blob.OngoingConstructionID, err)
			validate.Require(ok, "pipeline: building %d references missing ongoing op %d", b.B.ID, *b.B.Blob.OngoingConstructionID)
			if ok {
				validate.Require(op.Op.BuildingID != nil && *op.Op.BuildingID == b.B.ID,
					"pipeline: ongoing op %d does not point back to building %d", op.Op.ID, b.B.ID)
				op.Discard()
			}
		}
		for name, qty := range b.B.Blob.ConstructionInventory {
			validate.Require(qty >= 0 && qty <= 1_000_000_000, "pipeline: building %d construction inventory %q=%d out of bounds", b.B.ID, name, qty)
		}
		b.Discard()
	}
}
