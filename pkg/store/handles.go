package store

import (
	"database/sql"
	"encoding/json"

	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/model"
	"chainrealm/pkg/validate"
)

// CharacterHandle is a dirty-on-drop handle to one character row.
// Mutate C directly, call MarkDirty, then Commit or Discard before the
// owning Tx commits.
type CharacterHandle struct {
	tx      *Tx
	id      int64
	isNew   bool
	dirty   bool
	handled bool
	C       *model.Character
}

func (h *CharacterHandle) closed() bool { return h.handled }

// MarkDirty flags the handle for write-back at Commit.
func (h *CharacterHandle) MarkDirty() { h.dirty = true }

// Commit writes the character back to the store if dirty or newly
// created, then marks the handle closed.
func (h *CharacterHandle) Commit() error {
	defer func() { h.handled = true }()
	if !h.dirty && !h.isNew {
		return nil
	}
	hpJSON, err := json.Marshal(h.C.HP)
	if err != nil {
		return err
	}
	var targetJSON []byte
	if h.C.Target != nil {
		targetJSON, err = json.Marshal(h.C.Target)
		if err != nil {
			return err
		}
	}
	invJSON, err := json.Marshal(h.C.Inventory)
	if err != nil {
		return err
	}
	blobJSON, err := json.Marshal(h.C.Blob)
	if err != nil {
		return err
	}
	var x, y, buildingID, enterBuildingID sql.NullInt64
	if h.C.Pos != nil {
		x = sql.NullInt64{Int64: int64(h.C.Pos.X), Valid: true}
		y = sql.NullInt64{Int64: int64(h.C.Pos.Y), Valid: true}
	}
	if h.C.BuildingID != nil {
		buildingID = sql.NullInt64{Int64: *h.C.BuildingID, Valid: true}
	}
	if h.C.EnterBuildingID != nil {
		enterBuildingID = sql.NullInt64{Int64: *h.C.EnterBuildingID, Valid: true}
	}
	_, err = h.tx.sqlTx.Exec(`INSERT INTO characters
		(id, owner, faction, x, y, building_id, enter_building_id, busy_blocks, is_moving, is_mining, attack_range, can_regen, hp_json, target_json, inventory_json, blob_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			owner=excluded.owner, faction=excluded.faction, x=excluded.x, y=excluded.y,
			building_id=excluded.building_id, enter_building_id=excluded.enter_building_id,
			busy_blocks=excluded.busy_blocks, is_moving=excluded.is_moving, is_mining=excluded.is_mining,
			attack_range=excluded.attack_range, can_regen=excluded.can_regen, hp_json=excluded.hp_json,
			target_json=excluded.target_json, inventory_json=excluded.inventory_json, blob_json=excluded.blob_json`,
		h.C.ID, h.C.Owner, h.C.Faction, x, y, buildingID, enterBuildingID,
		h.C.BusyBlocks, h.C.IsMoving, h.C.IsMining, h.C.AttackRange, h.C.CanRegen,
		string(hpJSON), nullableString(targetJSON), string(invJSON), string(blobJSON))
	return err
}

// Discard releases the handle without writing back; used after reading
// a character only to inspect it.
func (h *CharacterHandle) Discard() { h.handled = true }

func nullableString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// NewCharacter allocates a new character id and returns a dirty,
// uncommitted handle the caller must populate and Commit.
func (tx *Tx) NewCharacter(owner, faction string) *CharacterHandle {
	id, err := tx.NewID("characters")
	validate.Require(err == nil, "store: allocate character id: %v", err)
	h := &CharacterHandle{tx: tx, id: id, isNew: true, C: &model.Character{
		ID: id, Owner: owner, Faction: faction,
		Inventory: map[string]int64{},
	}}
	tx.trackHandle(h)
	return h
}

// Character loads a character by id. ok is false when no such row
// exists (a routine case for move validation, never an invariant
// failure on its own).
func (tx *Tx) Character(id int64) (h *CharacterHandle, ok bool, err error) {
	row := tx.sqlTx.QueryRow(`SELECT id, owner, faction, x, y, building_id, enter_building_id,
		busy_blocks, is_moving, is_mining, attack_range, can_regen, hp_json, target_json, inventory_json, blob_json
		FROM characters WHERE id=?`, id)
	c := &model.Character{}
	var x, y, buildingID, enterBuildingID sql.NullInt64
	var hpJSON, invJSON, blobJSON string
	var targetJSON sql.NullString
	err = row.Scan(&c.ID, &c.Owner, &c.Faction, &x, &y, &buildingID, &enterBuildingID,
		&c.BusyBlocks, &c.IsMoving, &c.IsMining, &c.AttackRange, &c.CanRegen,
		&hpJSON, &targetJSON, &invJSON, &blobJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if x.Valid && y.Valid {
		c.Pos = &hexgrid.Coord{X: int(x.Int64), Y: int(y.Int64)}
	}
	if buildingID.Valid {
		v := buildingID.Int64
		c.BuildingID = &v
	}
	if enterBuildingID.Valid {
		v := enterBuildingID.Int64
		c.EnterBuildingID = &v
	}
	if err := json.Unmarshal([]byte(hpJSON), &c.HP); err != nil {
		return nil, false, err
	}
	if targetJSON.Valid {
		c.Target = &model.TargetRef{}
		if err := json.Unmarshal([]byte(targetJSON.String), c.Target); err != nil {
			return nil, false, err
		}
	}
	if err := json.Unmarshal([]byte(invJSON), &c.Inventory); err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(blobJSON), &c.Blob); err != nil {
		return nil, false, err
	}
	h = &CharacterHandle{tx: tx, id: id, C: c}
	tx.trackHandle(h)
	return h, true, nil
}

// DeleteCharacter removes a character row and its dependent rows
// (damage-list entries, ongoing op). Callers are responsible for any
// further cleanup (loot drops etc.) before calling this.
func (tx *Tx) DeleteCharacter(id int64) error {
	if _, err := tx.sqlTx.Exec(`DELETE FROM characters WHERE id=?`, id); err != nil {
		return err
	}
	if _, err := tx.sqlTx.Exec(`DELETE FROM damage_list WHERE victim_id=? OR attacker_id=?`, id, id); err != nil {
		return err
	}
	_, err := tx.sqlTx.Exec(`DELETE FROM ongoing_ops WHERE character_id=?`, id)
	return err
}

// AllCharacters returns every character, ordered by ascending id, per
// the ambient "map iteration determinism" rule.
func (tx *Tx) AllCharacters() ([]*CharacterHandle, error) {
	rows, err := tx.sqlTx.Query(`SELECT id FROM characters ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	out := make([]*CharacterHandle, 0, len(ids))
	for _, id := range ids {
		h, ok, err := tx.Character(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}
