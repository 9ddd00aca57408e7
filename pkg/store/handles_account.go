package store

import (
	"database/sql"
	"encoding/json"

	"chainrealm/pkg/model"
)

// AccountHandle is a dirty-on-drop handle to one account row.
type AccountHandle struct {
	tx      *Tx
	isNew   bool
	dirty   bool
	handled bool
	A       *model.Account
}

func (h *AccountHandle) closed() bool { return h.handled }
func (h *AccountHandle) MarkDirty()   { h.dirty = true }
func (h *AccountHandle) Discard()     { h.handled = true }

func (h *AccountHandle) Commit() error {
	defer func() { h.handled = true }()
	if !h.dirty && !h.isNew {
		return nil
	}
	blobJSON, err := json.Marshal(h.A)
	if err != nil {
		return err
	}
	_, err = h.tx.sqlTx.Exec(`INSERT INTO accounts (name, faction, kills, fame, coin, blob_json)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET
			faction=excluded.faction, kills=excluded.kills, fame=excluded.fame, coin=excluded.coin, blob_json=excluded.blob_json`,
		h.A.Name, h.A.Faction, h.A.Kills, h.A.Fame, h.A.Coin, string(blobJSON))
	return err
}

// NewAccount creates an uncommitted handle for a not-yet-existing
// account. Callers must check Account first to avoid clobbering an
// existing registration.
func (tx *Tx) NewAccount(name, faction string) *AccountHandle {
	h := &AccountHandle{tx: tx, isNew: true, A: &model.Account{
		Name: name, Faction: faction, Goods: map[string]int64{},
	}}
	tx.trackHandle(h)
	return h
}

// Account loads an account by name.
func (tx *Tx) Account(name string) (*AccountHandle, bool, error) {
	row := tx.sqlTx.QueryRow(`SELECT name, faction, kills, fame, coin, blob_json FROM accounts WHERE name=?`, name)
	a := &model.Account{}
	var blobJSON string
	err := row.Scan(&a.Name, &a.Faction, &a.Kills, &a.Fame, &a.Coin, &blobJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(blobJSON), a); err != nil {
		return nil, false, err
	}
	h := &AccountHandle{tx: tx, A: a}
	tx.trackHandle(h)
	return h, true, nil
}

// CharacterCount returns the number of characters owned by name.
func (tx *Tx) CharacterCount(owner string) (int, error) {
	var n int
	err := tx.sqlTx.QueryRow(`SELECT count(*) FROM characters WHERE owner=?`, owner).Scan(&n)
	return n, err
}

// AccountStanding is the read-only slice of an account's row the
// reporting leaderboard needs; it carries no handle and cannot be
// committed back.
type AccountStanding struct {
	Name    string
	Faction string
	Kills   int64
	Fame    int64
}

// AllAccountStandings lists every account's kill/fame tally, ordered
// by name, for the reporting package's leaderboard rebuild.
func (tx *Tx) AllAccountStandings() ([]AccountStanding, error) {
	rows, err := tx.sqlTx.Query(`SELECT name, faction, kills, fame FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountStanding
	for rows.Next() {
		var a AccountStanding
		if err := rows.Scan(&a.Name, &a.Faction, &a.Kills, &a.Fame); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// BuildingCountsByFaction tallies how many buildings each faction
// currently controls, for the reporting package's leaderboard rebuild.
func (tx *Tx) BuildingCountsByFaction() (map[string]int64, error) {
	rows, err := tx.sqlTx.Query(`SELECT faction, count(*) FROM buildings GROUP BY faction ORDER BY faction`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var faction string
		var count int64
		if err := rows.Scan(&faction, &count); err != nil {
			return nil, err
		}
		out[faction] = count
	}
	return out, rows.Err()
}
