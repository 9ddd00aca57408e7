// Package glue implements the host-chain callback surface (spec.md
// §6): the handful of plain functions a driving chain process calls to
// set up, seed, advance and read back this game's state. Every
// function takes its `*sql.DB` and `*config.RoConfig` explicitly,
// following the "no module-level globals" design note even though the
// teacher keeps a package-level `db *sql.DB` (db.go, start_world.go).
package glue

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"lukechampine.com/blake3"

	"chainrealm/pkg/config"
	"chainrealm/pkg/gamelog"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/pipeline"
	"chainrealm/pkg/store"
)

// SetupSchema creates every table the entity store needs. Safe to call
// on every process start; grounded on db.go's initDB.
func SetupSchema(db *sql.DB) error {
	return store.SetupSchema(db)
}

// InitialStateBlock returns the height and block-hash a chain profile
// starts state processing from. Grounded on db.go's initIdentity,
// which derives a deterministic identity from a blake3 digest rather
// than reading it from an external source.
func InitialStateBlock(chain config.Chain) (height uint64, hashHex string) {
	digest := blake3.Sum256([]byte("chainrealm-genesis-" + string(chain)))
	return 0, hex.EncodeToString(digest[:])
}

// InitialiseState prepares a freshly created database for its first
// block: schema, genesis hash bookkeeping. No entities exist at
// genesis — accounts are created on first registration move, and
// neutral/ancient buildings (spec.md's Building data model's other
// creation path, "map seed") are seeded later by an admin
// god_build_ancient_building move rather than hardcoded at genesis,
// since the map oracle itself is procedural and has no fixed building
// layout to seed from.
func InitialiseState(db *sql.DB, cfg *config.RoConfig) error {
	if err := store.SetupSchema(db); err != nil {
		return err
	}
	_, hashHex := InitialStateBlock(cfg.Chain)
	_, err := db.Exec(`INSERT INTO system_meta(key, value) VALUES ('genesis_hash', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, hashHex)
	if err != nil {
		return fmt.Errorf("glue: stamp genesis hash: %w", err)
	}
	gamelog.Info("state initialised", gamelog.String("chain", string(cfg.Chain)), gamelog.String("genesis_hash", hashHex))
	return nil
}

// UpdateState runs one block's state transition (spec.md §4.10) to
// completion. It is the sole write path into the entity store. The map
// oracle is procedural and fully determined by the chain's genesis
// hash plus its configured starter zones, so it never needs its own
// persisted state.
func UpdateState(db *sql.DB, cfg *config.RoConfig, blockJSON []byte) error {
	_, genesisHash := InitialStateBlock(cfg.Chain)
	seed, err := hex.DecodeString(genesisHash)
	if err != nil {
		return fmt.Errorf("glue: decode genesis hash: %w", err)
	}
	oracle := mapdata.NewProceduralOracle(seed, cfg.StarterZones)
	d := &pipeline.Driver{Cfg: cfg, Chain: cfg.Chain, Oracle: oracle}
	return d.ProcessBlock(context.Background(), db, blockJSON)
}

// dump is the wire shape GetStateAsJSON emits: the six tables below,
// each row already carrying its own blob_json as an opaque string so a
// reader that doesn't understand a newer field set still round-trips
// it untouched (spec.md §6, "readers must tolerate unknown fields").
type dump struct {
	Accounts   []json.RawMessage `json:"accounts"`
	Characters []json.RawMessage `json:"characters"`
	Buildings  []json.RawMessage `json:"buildings"`
	Regions    []json.RawMessage `json:"regions"`
	OngoingOps []json.RawMessage `json:"ongoing_ops"`
	GroundLoot []json.RawMessage `json:"ground_loot"`
}

// GetStateAsJSON serialises the accounts, characters, buildings,
// regions, ongoing_ops and ground_loot tables as one JSON document,
// table by table, in each table's natural key order so two nodes with
// identical state produce byte-identical output. The damage_list,
// building_inventory, prize_counters, trade_orders, seq and system_meta
// tables are not included.
func GetStateAsJSON(db *sql.DB) ([]byte, error) {
	var out dump
	queries := []struct {
		sql  string
		dest *[]json.RawMessage
	}{
		{`SELECT name, faction, kills, fame, coin, blob_json FROM accounts ORDER BY name`, &out.Accounts},
		{`SELECT id, owner, faction, x, y, building_id, enter_building_id, busy_blocks, is_moving, is_mining, attack_range, can_regen, hp_json, target_json, inventory_json, blob_json FROM characters ORDER BY id`, &out.Characters},
		{`SELECT id, type, owner, faction, cx, cy, hp_json, target_json, attack_range, can_regen, combat_json, blob_json FROM buildings ORDER BY id`, &out.Buildings},
		{`SELECT id, modified_height, resource_left, blob_json FROM regions ORDER BY id`, &out.Regions},
		{`SELECT id, ready_height, character_id, building_id, variant_json FROM ongoing_ops ORDER BY id`, &out.OngoingOps},
		{`SELECT x, y, inventory_json FROM ground_loot ORDER BY x, y`, &out.GroundLoot},
	}
	for _, q := range queries {
		rows, err := rowsAsJSON(db, q.sql)
		if err != nil {
			return nil, err
		}
		*q.dest = rows
	}
	return json.Marshal(out)
}

// rowsAsJSON runs query and re-encodes each result row as one JSON
// object keyed by column name, without needing a Go struct per table.
func rowsAsJSON(db *sql.DB, query string) ([]json.RawMessage, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("glue: query %q: %w", query, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []json.RawMessage
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		obj := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			obj[c] = normalizeSQLValue(vals[i])
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// normalizeSQLValue converts database/sql's driver-returned []byte
// (used for TEXT columns by mattn/go-sqlite3) into a string so it
// serialises as JSON text rather than a base64 blob.
func normalizeSQLValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
