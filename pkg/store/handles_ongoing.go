package store

import (
	"database/sql"
	"encoding/json"

	"chainrealm/pkg/model"
	"chainrealm/pkg/validate"
)

// OngoingOpHandle is a dirty-on-drop handle to one ongoing-operation
// row.
type OngoingOpHandle struct {
	tx      *Tx
	isNew   bool
	dirty   bool
	handled bool
	Op      *model.OngoingOp
}

func (h *OngoingOpHandle) closed() bool { return h.handled }
func (h *OngoingOpHandle) MarkDirty()   { h.dirty = true }
func (h *OngoingOpHandle) Discard()     { h.handled = true }

func (h *OngoingOpHandle) Commit() error {
	defer func() { h.handled = true }()
	if !h.dirty && !h.isNew {
		return nil
	}
	variantJSON, err := json.Marshal(h.Op.Variant)
	if err != nil {
		return err
	}
	var charID, buildingID sql.NullInt64
	if h.Op.CharacterID != nil {
		charID = sql.NullInt64{Int64: *h.Op.CharacterID, Valid: true}
	}
	if h.Op.BuildingID != nil {
		buildingID = sql.NullInt64{Int64: *h.Op.BuildingID, Valid: true}
	}
	_, err = h.tx.sqlTx.Exec(`INSERT INTO ongoing_ops (id, ready_height, character_id, building_id, variant_json)
		VALUES (?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			ready_height=excluded.ready_height, character_id=excluded.character_id,
			building_id=excluded.building_id, variant_json=excluded.variant_json`,
		h.Op.ID, h.Op.ReadyHeight, charID, buildingID, string(variantJSON))
	return err
}

// NewOngoingOp allocates a new ongoing-operation id.
func (tx *Tx) NewOngoingOp(readyHeight uint64, variant model.OngoingVariant) *OngoingOpHandle {
	id, err := tx.NewID("ongoing_ops")
	validate.Require(err == nil, "store: allocate ongoing op id: %v", err)
	h := &OngoingOpHandle{tx: tx, isNew: true, Op: &model.OngoingOp{
		ID: id, ReadyHeight: readyHeight, Variant: variant,
	}}
	tx.trackHandle(h)
	return h
}

// OngoingOp loads an ongoing operation by id.
func (tx *Tx) OngoingOp(id int64) (*OngoingOpHandle, bool, error) {
	row := tx.sqlTx.QueryRow(`SELECT id, ready_height, character_id, building_id, variant_json FROM ongoing_ops WHERE id=?`, id)
	op := &model.OngoingOp{}
	var charID, buildingID sql.NullInt64
	var variantJSON string
	err := row.Scan(&op.ID, &op.ReadyHeight, &charID, &buildingID, &variantJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if charID.Valid {
		v := charID.Int64
		op.CharacterID = &v
	}
	if buildingID.Valid {
		v := buildingID.Int64
		op.BuildingID = &v
	}
	if err := json.Unmarshal([]byte(variantJSON), &op.Variant); err != nil {
		return nil, false, err
	}
	h := &OngoingOpHandle{tx: tx, Op: op}
	tx.trackHandle(h)
	return h, true, nil
}

// DeleteOngoingOp removes an ongoing-operation row.
func (tx *Tx) DeleteOngoingOp(id int64) error {
	_, err := tx.sqlTx.Exec(`DELETE FROM ongoing_ops WHERE id=?`, id)
	return err
}

// DueOngoingOps returns every op with ready_height<=height, ordered by
// ascending id.
func (tx *Tx) DueOngoingOps(height uint64) ([]*OngoingOpHandle, error) {
	rows, err := tx.sqlTx.Query(`SELECT id FROM ongoing_ops WHERE ready_height<=? ORDER BY id ASC`, height)
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
	out := make([]*OngoingOpHandle, 0, len(ids))
	for _, id := range ids {
		h, ok, err := tx.OngoingOp(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}
