// Package store implements the transactional entity store: SQLite
// schema setup, a per-block transaction wrapper, and dirty-on-drop
// entity handles (spec.md §3, "Ownership"). Grounded on db.go's
// initDB (WAL-mode schema setup) and on the "dirty-on-drop write-back"
// design note: in a language without destructors, a handle's write-back
// obligation is discharged by an explicit Commit()/Discard() pair that
// Tx.Commit asserts was called.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if absent) the SQLite database at path in
// WAL mode, mirroring db.go's initDB pragma sequence.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// SetupSchema creates every table this package uses if it does not
// already exist. Safe to call on every process start.
func SetupSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seq (
			name TEXT PRIMARY KEY,
			next INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			name TEXT PRIMARY KEY,
			faction TEXT NOT NULL,
			kills INTEGER NOT NULL DEFAULT 0,
			fame INTEGER NOT NULL DEFAULT 0,
			coin INTEGER NOT NULL DEFAULT 0,
			blob_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS characters (
			id INTEGER PRIMARY KEY,
			owner TEXT NOT NULL,
			faction TEXT NOT NULL,
			x INTEGER,
			y INTEGER,
			building_id INTEGER,
			enter_building_id INTEGER,
			busy_blocks INTEGER NOT NULL DEFAULT 0,
			is_moving INTEGER NOT NULL DEFAULT 0,
			is_mining INTEGER NOT NULL DEFAULT 0,
			attack_range INTEGER NOT NULL DEFAULT 0,
			can_regen INTEGER NOT NULL DEFAULT 0,
			hp_json TEXT NOT NULL DEFAULT '{}',
			target_json TEXT,
			inventory_json TEXT NOT NULL DEFAULT '{}',
			blob_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_characters_pos ON characters(x,y)`,
		`CREATE INDEX IF NOT EXISTS idx_characters_owner ON characters(owner)`,
		`CREATE TABLE IF NOT EXISTS buildings (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			owner TEXT,
			faction TEXT NOT NULL,
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			hp_json TEXT NOT NULL DEFAULT '{}',
			target_json TEXT,
			attack_range INTEGER NOT NULL DEFAULT 0,
			can_regen INTEGER NOT NULL DEFAULT 0,
			combat_json TEXT NOT NULL DEFAULT '{}',
			blob_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_buildings_pos ON buildings(cx,cy)`,
		`CREATE TABLE IF NOT EXISTS regions (
			id INTEGER PRIMARY KEY,
			modified_height INTEGER NOT NULL DEFAULT 0,
			resource_left INTEGER NOT NULL DEFAULT 0,
			blob_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS ongoing_ops (
			id INTEGER PRIMARY KEY,
			ready_height INTEGER NOT NULL,
			character_id INTEGER,
			building_id INTEGER,
			variant_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ongoing_ready ON ongoing_ops(ready_height)`,
		`CREATE TABLE IF NOT EXISTS damage_list (
			victim_id INTEGER NOT NULL,
			attacker_id INTEGER NOT NULL,
			height INTEGER NOT NULL,
			PRIMARY KEY (victim_id, attacker_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ground_loot (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			inventory_json TEXT NOT NULL,
			PRIMARY KEY (x, y)
		)`,
		`CREATE TABLE IF NOT EXISTS building_inventory (
			building_id INTEGER NOT NULL,
			account TEXT NOT NULL,
			inventory_json TEXT NOT NULL,
			PRIMARY KEY (building_id, account)
		)`,
		`CREATE TABLE IF NOT EXISTS prize_counters (
			name TEXT PRIMARY KEY,
			found INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS system_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("store: setup schema: %w", err)
		}
	}
	return nil
}

// Tx wraps one block's database/sql.Tx. A block either commits fully or
// rolls back fully (spec.md §5): there is no partial-state recovery.
type Tx struct {
	sqlTx   *sql.Tx
	dirty   []interface{ closed() bool }
	closed  bool
}

// Begin starts the transaction a single block runs inside.
func Begin(db *sql.DB) (*Tx, error) {
	sqlTx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	return &Tx{sqlTx: sqlTx}, nil
}

// Commit commits the underlying transaction, first asserting that every
// handle taken from it was committed or discarded.
func (tx *Tx) Commit() error {
	tx.assertAllHandlesClosed()
	tx.closed = true
	return tx.sqlTx.Commit()
}

// Rollback discards the underlying transaction, used when an invariant
// failure aborts the block.
func (tx *Tx) Rollback() error {
	tx.closed = true
	return tx.sqlTx.Rollback()
}

// trackHandle registers a handle for the dirty-on-drop assertion: every
// handle obtained from this Tx must be explicitly Commit()'d or
// Discard()'d before the Tx itself commits.
func (tx *Tx) trackHandle(h interface{ closed() bool }) {
	tx.dirty = append(tx.dirty, h)
}

func (tx *Tx) assertAllHandlesClosed() {
	for _, h := range tx.dirty {
		if !h.closed() {
			panic("store: handle committed or discarded before Tx.Commit — dirty-on-drop violation")
		}
	}
}
