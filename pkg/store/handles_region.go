package store

import (
	"database/sql"
	"encoding/json"

	"chainrealm/pkg/model"
)

// RegionHandle is a dirty-on-drop handle to one region row. Regions
// are materialised lazily on first non-trivial change (spec.md §3).
type RegionHandle struct {
	tx      *Tx
	isNew   bool
	dirty   bool
	handled bool
	R       *model.Region
}

func (h *RegionHandle) closed() bool { return h.handled }
func (h *RegionHandle) MarkDirty()   { h.dirty = true }
func (h *RegionHandle) Discard()     { h.handled = true }

func (h *RegionHandle) Commit() error {
	defer func() { h.handled = true }()
	if !h.dirty && !h.isNew {
		return nil
	}
	blobJSON, err := json.Marshal(h.R.Blob)
	if err != nil {
		return err
	}
	_, err = h.tx.sqlTx.Exec(`INSERT INTO regions (id, modified_height, resource_left, blob_json)
		VALUES (?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			modified_height=excluded.modified_height, resource_left=excluded.resource_left, blob_json=excluded.blob_json`,
		h.R.ID, h.R.ModifiedHeight, h.R.ResourceLeft, string(blobJSON))
	return err
}

// Region loads a region by id, materialising a fresh in-memory (not
// yet persisted) row with the given initial resource amount if none
// exists yet — callers decide the initial amount since it comes from
// the map oracle, which this package does not depend on.
func (tx *Tx) Region(id int64, initialResource int64) (*RegionHandle, error) {
	row := tx.sqlTx.QueryRow(`SELECT id, modified_height, resource_left, blob_json FROM regions WHERE id=?`, id)
	r := &model.Region{}
	var blobJSON string
	err := row.Scan(&r.ID, &r.ModifiedHeight, &r.ResourceLeft, &blobJSON)
	if err == sql.ErrNoRows {
		h := &RegionHandle{tx: tx, isNew: true, R: &model.Region{ID: id, ResourceLeft: initialResource}}
		tx.trackHandle(h)
		return h, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(blobJSON), &r.Blob); err != nil {
		return nil, err
	}
	h := &RegionHandle{tx: tx, R: r}
	tx.trackHandle(h)
	return h, nil
}
