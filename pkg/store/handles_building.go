package store

import (
	"database/sql"
	"encoding/json"

	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/model"
	"chainrealm/pkg/validate"
)

// BuildingHandle is a dirty-on-drop handle to one building row.
type BuildingHandle struct {
	tx      *Tx
	isNew   bool
	dirty   bool
	handled bool
	B       *model.Building
}

func (h *BuildingHandle) closed() bool  { return h.handled }
func (h *BuildingHandle) MarkDirty()    { h.dirty = true }
func (h *BuildingHandle) Discard()      { h.handled = true }

func (h *BuildingHandle) Commit() error {
	defer func() { h.handled = true }()
	if !h.dirty && !h.isNew {
		return nil
	}
	hpJSON, err := json.Marshal(h.B.HP)
	if err != nil {
		return err
	}
	var targetJSON []byte
	if h.B.Target != nil {
		targetJSON, err = json.Marshal(h.B.Target)
		if err != nil {
			return err
		}
	}
	combatJSON, err := json.Marshal(h.B.Combat)
	if err != nil {
		return err
	}
	blobJSON, err := json.Marshal(h.B.Blob)
	if err != nil {
		return err
	}
	var owner sql.NullString
	if h.B.Owner != nil {
		owner = sql.NullString{String: *h.B.Owner, Valid: true}
	}
	_, err = h.tx.sqlTx.Exec(`INSERT INTO buildings
		(id, type, owner, faction, cx, cy, hp_json, target_json, attack_range, can_regen, combat_json, blob_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			type=excluded.type, owner=excluded.owner, faction=excluded.faction, cx=excluded.cx, cy=excluded.cy,
			hp_json=excluded.hp_json, target_json=excluded.target_json, attack_range=excluded.attack_range,
			can_regen=excluded.can_regen, combat_json=excluded.combat_json, blob_json=excluded.blob_json`,
		h.B.ID, h.B.Type, owner, h.B.Faction, h.B.Center.X, h.B.Center.Y,
		string(hpJSON), nullableString(targetJSON), h.B.AttackRange, h.B.CanRegen,
		string(combatJSON), string(blobJSON))
	return err
}

// NewBuilding allocates a new building id.
func (tx *Tx) NewBuilding(buildingType, faction string, center hexgrid.Coord) *BuildingHandle {
	id, err := tx.NewID("buildings")
	validate.Require(err == nil, "store: allocate building id: %v", err)
	h := &BuildingHandle{tx: tx, isNew: true, B: &model.Building{
		ID: id, Type: buildingType, Faction: faction, Center: center,
	}}
	tx.trackHandle(h)
	return h
}

// Building loads a building by id.
func (tx *Tx) Building(id int64) (*BuildingHandle, bool, error) {
	row := tx.sqlTx.QueryRow(`SELECT id, type, owner, faction, cx, cy, hp_json, target_json, attack_range, can_regen, combat_json, blob_json
		FROM buildings WHERE id=?`, id)
	b := &model.Building{}
	var owner sql.NullString
	var hpJSON, combatJSON, blobJSON string
	var targetJSON sql.NullString
	err := row.Scan(&b.ID, &b.Type, &owner, &b.Faction, &b.Center.X, &b.Center.Y,
		&hpJSON, &targetJSON, &b.AttackRange, &b.CanRegen, &combatJSON, &blobJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if owner.Valid {
		v := owner.String
		b.Owner = &v
	}
	if err := json.Unmarshal([]byte(hpJSON), &b.HP); err != nil {
		return nil, false, err
	}
	if targetJSON.Valid {
		b.Target = &model.TargetRef{}
		if err := json.Unmarshal([]byte(targetJSON.String), b.Target); err != nil {
			return nil, false, err
		}
	}
	if err := json.Unmarshal([]byte(combatJSON), &b.Combat); err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(blobJSON), &b.Blob); err != nil {
		return nil, false, err
	}
	h := &BuildingHandle{tx: tx, B: b}
	tx.trackHandle(h)
	return h, true, nil
}

// BuildingAtCoord looks up the building whose centre matches c, if any.
func (tx *Tx) BuildingAtCoord(c hexgrid.Coord) (*BuildingHandle, bool, error) {
	var id int64
	err := tx.sqlTx.QueryRow(`SELECT id FROM buildings WHERE cx=? AND cy=?`, c.X, c.Y).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return tx.Building(id)
}

// DeleteBuilding removes a building row and its dependent state.
func (tx *Tx) DeleteBuilding(id int64) error {
	if _, err := tx.sqlTx.Exec(`DELETE FROM buildings WHERE id=?`, id); err != nil {
		return err
	}
	if _, err := tx.sqlTx.Exec(`DELETE FROM ongoing_ops WHERE building_id=?`, id); err != nil {
		return err
	}
	_, err := tx.sqlTx.Exec(`DELETE FROM building_inventory WHERE building_id=?`, id)
	return err
}

// AllBuildings returns every building ordered by ascending id.
func (tx *Tx) AllBuildings() ([]*BuildingHandle, error) {
	rows, err := tx.sqlTx.Query(`SELECT id FROM buildings ORDER BY id ASC`)
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
	out := make([]*BuildingHandle, 0, len(ids))
	for _, id := range ids {
		h, ok, err := tx.Building(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// CharactersInBuilding returns characters currently inside a building,
// ordered by ascending id.
func (tx *Tx) CharactersInBuilding(buildingID int64) ([]*CharacterHandle, error) {
	rows, err := tx.sqlTx.Query(`SELECT id FROM characters WHERE building_id=? ORDER BY id ASC`, buildingID)
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
