package moves

import (
	"encoding/json"

	"chainrealm/pkg/config"
	"chainrealm/pkg/gamelog"
	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/model"
	"chainrealm/pkg/obstacles"
	"chainrealm/pkg/store"
)

// Processor applies semantically-validated moves against the entity
// store. Rejections are input-class errors: they never panic and never
// affect any other move in the batch (spec.md §4.5, §7).
type Processor struct {
	Cfg    *config.RoConfig
	Oracle mapdata.Oracle
	Ix     *obstacles.Index
	Height uint64
}

// Apply dispatches a single command by name. It returns whether the
// move was accepted; a rejection is logged by the caller at Debug.
func (p *Processor) Apply(tx *store.Tx, owner, name string, payload json.RawMessage) (accepted bool, reason string) {
	switch name {
	case CmdRegisterAccount:
		return p.registerAccount(tx, owner, payload)
	case CmdCreateCharacter:
		return p.createCharacter(tx, owner, payload)
	case CmdSetWaypoints:
		return p.setWaypoints(tx, owner, payload)
	case CmdPickupLoot:
		return p.pickupLoot(tx, owner, payload)
	case CmdDropLoot:
		return p.dropLoot(tx, owner, payload)
	case CmdConfigureFitments:
		return p.configureFitments(tx, owner, payload)
	case CmdStartProspection:
		return p.startProspection(tx, owner, payload)
	case CmdStartConstruction:
		return p.startConstruction(tx, owner, payload)
	case CmdEnterBuilding:
		return p.enterBuilding(tx, owner, payload)
	case CmdExitBuilding:
		return p.exitBuilding(tx, owner, payload)
	case CmdConfigureBuilding:
		return p.configureBuilding(tx, owner, payload)
	case CmdPlaceTradeOrder:
		return p.placeTradeOrder(tx, owner, payload)
	case CmdCancelTradeOrder:
		return p.cancelTradeOrder(tx, owner, payload)
	default:
		return false, "unrecognised command: " + name
	}
}

// ApplyAdmin dispatches one admin-channel command. Commands reserved
// for the admin channel (spec.md §4.5, "single special channel") are
// checked first; anything else falls through to the ordinary player
// dispatch so ApplyBatch can route both arrays through one method.
func (p *Processor) ApplyAdmin(tx *store.Tx, owner, name string, payload json.RawMessage) (accepted bool, reason string) {
	switch name {
	case CmdGodBuildAncientBuilding:
		return p.godBuildAncientBuilding(tx, payload)
	default:
		return p.Apply(tx, owner, name, payload)
	}
}

// ApplyBatch runs admin envelopes then player envelopes, in array
// order, per spec.md §4.5.
func (p *Processor) ApplyBatch(tx *store.Tx, admin, players []json.RawMessage) {
	for _, raw := range admin {
		p.applyOne(tx, raw, true)
	}
	for _, raw := range players {
		p.applyOne(tx, raw, false)
	}
}

func (p *Processor) applyOne(tx *store.Tx, raw json.RawMessage, isAdmin bool) {
	env, ok, reason := ParseEnvelope(raw)
	if !ok {
		gamelog.Debug("move rejected", gamelog.Reason(reason))
		return
	}
	name, payload, ok := env.Command()
	if !ok {
		gamelog.Debug("move rejected", gamelog.Reason("ambiguous or empty command"))
		return
	}
	var accepted bool
	if isAdmin {
		accepted, reason = p.ApplyAdmin(tx, env.Owner, name, payload)
	} else {
		accepted, reason = p.Apply(tx, env.Owner, name, payload)
	}
	if !accepted {
		gamelog.Debug("move rejected", gamelog.String("command", name), gamelog.String("owner", env.Owner), gamelog.Reason(reason))
	}
}

func (p *Processor) registerAccount(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd RegisterAccountCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	if cmd.Faction == "" {
		return false, "missing faction"
	}
	existing, exists, err := tx.Account(owner)
	if err != nil {
		return false, "store error"
	}
	if exists {
		existing.Discard()
		return false, "account already registered"
	}
	h := tx.NewAccount(owner, cmd.Faction)
	if err := h.Commit(); err != nil {
		return false, "store error"
	}
	return true, ""
}

func (p *Processor) createCharacter(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd CreateCharacterCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	acc, ok, err := tx.Account(owner)
	if err != nil {
		return false, "store error"
	}
	if !ok {
		return false, "unregistered account"
	}
	acc.Discard()
	count, err := tx.CharacterCount(owner)
	if err != nil {
		return false, "store error"
	}
	if count >= p.Cfg.CharacterLimitPerAccount {
		return false, "character limit reached"
	}
	spawn, ok := p.findSpawnTile(acc.A.Faction)
	if !ok {
		return false, "no free spawn tile in starter zone"
	}
	h := tx.NewCharacter(owner, acc.A.Faction)
	h.C.Pos = &spawn
	h.C.Blob.VehicleType = cmd.VehicleType
	if vc, ok := p.Cfg.Vehicles[cmd.VehicleType]; ok {
		h.C.Blob.Speed = int64(vc.Speed)
		h.C.Blob.CargoSpace = int64(vc.CargoSpace)
		h.C.AttackRange = vc.AttackRange
	}
	h.C.HP.MaxArmour, h.C.HP.Armour = 100, 100
	h.C.CanRegen = true
	if err := h.Commit(); err != nil {
		return false, "store error"
	}
	p.Ix.AddVehicle(spawn, acc.A.Faction)
	return true, ""
}

// findSpawnTile scans a faction's starter zones in lexicographic
// coordinate order for the first free tile.
func (p *Processor) findSpawnTile(faction string) (hexgrid.Coord, bool) {
	for _, z := range p.Cfg.StarterZones {
		if z.Faction != faction {
			continue
		}
		for x := z.MinX; x <= z.MaxX; x++ {
			for y := z.MinY; y <= z.MaxY; y++ {
				c := hexgrid.Coord{X: x, Y: y}
				if p.Oracle.IsPassable(c) && p.Ix.IsFree(c) {
					return c, true
				}
			}
		}
	}
	return hexgrid.Coord{}, false
}

func (p *Processor) setWaypoints(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd SetWaypointsCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	ch, ok, err := tx.Character(cmd.CharacterID)
	if err != nil {
		return false, "store error"
	}
	if !ok {
		return false, "no such character"
	}
	if ch.C.Owner != owner {
		ch.Discard()
		return false, "not owner"
	}
	if !ch.C.OnMap() {
		ch.Discard()
		return false, "character not on map"
	}
	if ch.C.BusyBlocks > 0 {
		ch.Discard()
		return false, "character busy"
	}
	if ch.C.Blob.Movement == nil {
		ch.C.Blob.Movement = &model.MovementState{}
	}
	ch.C.Blob.Movement.Waypoints = cmd.Waypoints
	ch.C.Blob.Movement.Steps = nil
	ch.C.IsMoving = len(cmd.Waypoints) > 0
	ch.MarkDirty()
	if err := ch.Commit(); err != nil {
		return false, "store error"
	}
	return true, ""
}

func (p *Processor) pickupLoot(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd PickupLootCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	ch, ok, err := tx.Character(cmd.CharacterID)
	if err != nil {
		return false, "store error"
	}
	if !ok || ch.C.Owner != owner || !ch.C.OnMap() {
		if ok {
			ch.Discard()
		}
		return false, "invalid character"
	}
	ground, err := tx.GroundLoot(ch.C.Pos.X, ch.C.Pos.Y)
	if err != nil {
		ch.Discard()
		return false, "store error"
	}
	used := cargoUsed(ch.C.Inventory)
	cap := ch.C.Blob.CargoSpace
	for item, want := range cmd.Items {
		have := ground[item]
		take := want
		if take > have {
			take = have
		}
		if used+take > cap {
			take = cap - used
		}
		if take <= 0 {
			continue
		}
		ch.C.Inventory[item] += take
		ground[item] -= take
		used += take
	}
	ch.MarkDirty()
	if err := ch.Commit(); err != nil {
		return false, "store error"
	}
	if err := tx.SetGroundLoot(ch.C.Pos.X, ch.C.Pos.Y, ground); err != nil {
		return false, "store error"
	}
	return true, ""
}

func (p *Processor) dropLoot(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd DropLootCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	ch, ok, err := tx.Character(cmd.CharacterID)
	if err != nil {
		return false, "store error"
	}
	if !ok || ch.C.Owner != owner || !ch.C.OnMap() {
		if ok {
			ch.Discard()
		}
		return false, "invalid character"
	}
	drop := map[string]int64{}
	for item, want := range cmd.Items {
		have := ch.C.Inventory[item]
		take := want
		if take > have {
			take = have
		}
		if take <= 0 {
			continue
		}
		ch.C.Inventory[item] -= take
		if ch.C.Inventory[item] == 0 {
			delete(ch.C.Inventory, item)
		}
		drop[item] = take
	}
	ch.MarkDirty()
	if err := ch.Commit(); err != nil {
		return false, "store error"
	}
	if err := tx.MergeGroundLoot(ch.C.Pos.X, ch.C.Pos.Y, drop); err != nil {
		return false, "store error"
	}
	return true, ""
}

func (p *Processor) configureFitments(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd ConfigureFitmentsCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	ch, ok, err := tx.Character(cmd.CharacterID)
	if err != nil {
		return false, "store error"
	}
	if !ok || ch.C.Owner != owner {
		if ok {
			ch.Discard()
		}
		return false, "invalid character"
	}
	for _, f := range cmd.Fitments {
		if _, known := p.Cfg.Fitments[f]; !known {
			ch.Discard()
			return false, "unknown fitment: " + f
		}
	}
	ch.C.Blob.Fitments = cmd.Fitments
	ch.MarkDirty()
	if err := ch.Commit(); err != nil {
		return false, "store error"
	}
	return true, ""
}

func (p *Processor) startProspection(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd StartProspectionCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	ch, ok, err := tx.Character(cmd.CharacterID)
	if err != nil {
		return false, "store error"
	}
	if !ok || ch.C.Owner != owner || !ch.C.OnMap() || ch.C.BusyBlocks > 0 {
		if ok {
			ch.Discard()
		}
		return false, "invalid character state"
	}
	regionID := p.Oracle.RegionID(*ch.C.Pos)
	region, err := tx.Region(regionID, 1000)
	if err != nil {
		ch.Discard()
		return false, "store error"
	}
	if region.R.Blob.ProspectingCharacter != nil {
		ch.Discard()
		region.Discard()
		return false, "region already being prospected"
	}
	region.R.Blob.ProspectingCharacter = &ch.C.ID
	region.MarkDirty()
	if err := region.Commit(); err != nil {
		return false, "store error"
	}
	op := tx.NewOngoingOp(p.Height+uint64(p.Cfg.ProspectingBlocks), model.OngoingVariant{
		Kind:        model.OngoingProspection,
		Prospection: &model.ProspectionOp{},
	})
	op.Op.CharacterID = &ch.C.ID
	if err := op.Commit(); err != nil {
		ch.Discard()
		return false, "store error"
	}
	ch.C.BusyBlocks = p.Cfg.ProspectingBlocks
	ch.C.Blob.OngoingOpID = &op.Op.ID
	ch.MarkDirty()
	if err := ch.Commit(); err != nil {
		return false, "store error"
	}
	return true, ""
}

func (p *Processor) startConstruction(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd StartConstructionCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	ch, ok, err := tx.Character(cmd.CharacterID)
	if err != nil {
		return false, "store error"
	}
	if !ok || ch.C.Owner != owner || !ch.C.OnMap() || ch.C.BusyBlocks > 0 {
		if ok {
			ch.Discard()
		}
		return false, "invalid character state"
	}
	bc, known := p.Cfg.Buildings[cmd.BuildingType]
	if !known {
		ch.Discard()
		return false, "unknown building type"
	}
	if !p.Ix.IsFree(*ch.C.Pos) {
		ch.Discard()
		return false, "tile occupied"
	}
	b := tx.NewBuilding(cmd.BuildingType, ch.C.Faction, *ch.C.Pos)
	b.B.Owner = &owner
	b.B.Blob.Foundation = true
	b.B.HP.MaxArmour = int64(bc.MaxHP)
	if err := b.Commit(); err != nil {
		ch.Discard()
		return false, "store error"
	}
	op := tx.NewOngoingOp(p.Height+1, model.OngoingVariant{
		Kind:                 model.OngoingBuildingConstruction,
		BuildingConstruction: &model.BuildingConstructionOp{},
	})
	op.Op.BuildingID = &b.B.ID
	if err := op.Commit(); err != nil {
		return false, "store error"
	}
	ch.C.BusyBlocks = 1
	ch.C.Blob.OngoingOpID = &op.Op.ID
	ch.MarkDirty()
	if err := ch.Commit(); err != nil {
		return false, "store error"
	}
	p.Ix.AddBuilding(b.B.Center, b.B.ID)
	return true, ""
}

// godBuildAncientBuilding seeds a neutral building with no owner,
// already complete (no foundation, no construction op), per spec.md's
// Building data model "Created initialised (map seed) or by
// construction". Grounded on the original game's admin "build"
// command, which likewise places a faction-less or admin-chosen
// building directly onto the map outside the player construction flow.
func (p *Processor) godBuildAncientBuilding(tx *store.Tx, payload json.RawMessage) (bool, string) {
	var cmd GodBuildAncientBuildingCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	bc, known := p.Cfg.Buildings[cmd.BuildingType]
	if !known {
		return false, "unknown building type"
	}
	if !p.Oracle.IsOnMap(cmd.Center) || !p.Oracle.IsPassable(cmd.Center) {
		return false, "tile not buildable"
	}
	if !p.Ix.IsFree(cmd.Center) {
		return false, "tile occupied"
	}
	b := tx.NewBuilding(cmd.BuildingType, model.FactionAncient, cmd.Center)
	b.B.HP.MaxArmour = int64(bc.MaxHP)
	b.B.HP.Armour = int64(bc.MaxHP)
	if err := b.Commit(); err != nil {
		return false, "store error"
	}
	p.Ix.AddBuilding(b.B.Center, b.B.ID)
	return true, ""
}

func (p *Processor) enterBuilding(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd EnterBuildingCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	ch, ok, err := tx.Character(cmd.CharacterID)
	if err != nil {
		return false, "store error"
	}
	if !ok || ch.C.Owner != owner || !ch.C.OnMap() {
		if ok {
			ch.Discard()
		}
		return false, "invalid character state"
	}
	b, ok, err := tx.Building(cmd.BuildingID)
	if err != nil {
		ch.Discard()
		return false, "store error"
	}
	if !ok {
		ch.Discard()
		return false, "no such building"
	}
	if b.B.Owner != nil && b.B.Faction != ch.C.Faction {
		ch.Discard()
		b.Discard()
		return false, "faction mismatch"
	}
	if hexgrid.Distance(*ch.C.Pos, b.B.Center) > 1 {
		ch.Discard()
		b.Discard()
		return false, "too far from building"
	}
	b.Discard()
	ch.C.EnterBuildingID = &cmd.BuildingID
	ch.MarkDirty()
	if err := ch.Commit(); err != nil {
		return false, "store error"
	}
	return true, ""
}

func (p *Processor) exitBuilding(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd ExitBuildingCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	ch, ok, err := tx.Character(cmd.CharacterID)
	if err != nil {
		return false, "store error"
	}
	if !ok || ch.C.Owner != owner || ch.C.BuildingID == nil {
		if ok {
			ch.Discard()
		}
		return false, "character not inside a building"
	}
	b, ok, err := tx.Building(*ch.C.BuildingID)
	if err != nil {
		ch.Discard()
		return false, "store error"
	}
	if !ok {
		ch.Discard()
		return false, "dangling building reference"
	}
	spot := b.B.Center
	b.Discard()
	ch.C.BuildingID = nil
	ch.C.Pos = &spot
	ch.MarkDirty()
	if err := ch.Commit(); err != nil {
		return false, "store error"
	}
	p.Ix.AddVehicle(spot, ch.C.Faction)
	return true, ""
}

func (p *Processor) configureBuilding(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd ConfigureBuildingCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	b, ok, err := tx.Building(cmd.BuildingID)
	if err != nil {
		return false, "store error"
	}
	if !ok || b.B.Owner == nil || *b.B.Owner != owner {
		if ok {
			b.Discard()
		}
		return false, "not owner"
	}
	if b.B.Blob.OngoingConstructionID != nil {
		b.Discard()
		return false, "building busy"
	}
	op := tx.NewOngoingOp(p.Height+1, model.OngoingVariant{
		Kind:                 model.OngoingBuildingConfigUpdate,
		BuildingConfigUpdate: &model.BuildingConfigUpdateOp{NewConfig: cmd.Config},
	})
	op.Op.BuildingID = &cmd.BuildingID
	if err := op.Commit(); err != nil {
		b.Discard()
		return false, "store error"
	}
	b.B.Blob.OngoingConstructionID = &op.Op.ID
	b.MarkDirty()
	if err := b.Commit(); err != nil {
		return false, "store error"
	}
	return true, ""
}

func (p *Processor) placeTradeOrder(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd PlaceTradeOrderCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	if !boundsOK(cmd.Amount, cmd.Coin) || cmd.Amount <= 0 || cmd.Coin < 0 {
		return false, "invalid amounts"
	}
	acc, ok, err := tx.Account(owner)
	if err != nil {
		return false, "store error"
	}
	if !ok {
		return false, "unregistered account"
	}
	if acc.A.Coin < cmd.Coin {
		acc.Discard()
		return false, "insufficient coin"
	}
	acc.A.Coin -= cmd.Coin
	acc.MarkDirty()
	if err := acc.Commit(); err != nil {
		return false, "store error"
	}
	if _, err := tx.PlaceTradeOrder(model.TradeOrder{
		BuildingID: cmd.BuildingID, Account: owner, Item: cmd.Item, Amount: cmd.Amount, ReservedCoin: cmd.Coin,
	}); err != nil {
		return false, "store error"
	}
	return true, ""
}

func (p *Processor) cancelTradeOrder(tx *store.Tx, owner string, payload json.RawMessage) (bool, string) {
	var cmd CancelTradeOrderCmd
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, "decode: " + err.Error()
	}
	order, ok, err := tx.CancelTradeOrder(cmd.OrderID, owner)
	if err != nil {
		return false, "store error"
	}
	if !ok {
		return false, "no such order"
	}
	acc, ok, err := tx.Account(owner)
	if err != nil || !ok {
		return false, "store error"
	}
	acc.A.Coin += order.ReservedCoin
	acc.MarkDirty()
	if err := acc.Commit(); err != nil {
		return false, "store error"
	}
	return true, ""
}

func cargoUsed(inv map[string]int64) int64 {
	var total int64
	for _, v := range inv {
		total += v
	}
	return total
}
