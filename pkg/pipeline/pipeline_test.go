package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"chainrealm/pkg/config"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/store"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.SetupSchema(db); err != nil {
		t.Fatalf("setup schema: %v", err)
	}
	return db
}

func testDriver() *Driver {
	cfg := config.Default(config.ChainRegtest)
	cfg.StarterZones = []config.StarterZone{
		{Faction: "red", MinX: 0, MinY: 0, MaxX: 5, MaxY: 5},
	}
	cfg.Vehicles = map[string]config.VehicleConfig{
		"basic": {Speed: 100, CargoSpace: 50, AttackRange: 3},
	}
	cfg.Debug.ValidateInvariants = true
	return &Driver{
		Cfg:    cfg,
		Chain:  config.ChainRegtest,
		Oracle: mapdata.NewProceduralOracle([]byte("pipeline-test-seed"), cfg.StarterZones),
	}
}

func envelope(t *testing.T, owner, command string, payload any) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(map[string]any{
		"owner": owner,
		"move": map[string]any{
			"g": map[string]any{
				"chainrealm": map[string]json.RawMessage{command: body},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func TestProcessBlockRegistersAccountAndSpawnsCharacter(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	d := testDriver()

	regEnv := envelope(t, "alice", "register_account", map[string]string{"faction": "red"})
	block, err := json.Marshal(map[string]any{
		"block": map[string]any{"height": 1, "timestamp": 1000},
		"admin": []json.RawMessage{},
		"moves": []json.RawMessage{regEnv},
	})
	if err != nil {
		t.Fatalf("marshal block: %v", err)
	}
	if err := d.ProcessBlock(context.Background(), db, block); err != nil {
		t.Fatalf("process block 1: %v", err)
	}

	spawnEnv := envelope(t, "alice", "create_character", map[string]string{"vehicle_type": "basic"})
	block2, err := json.Marshal(map[string]any{
		"block": map[string]any{"height": 2, "timestamp": 2000},
		"admin": []json.RawMessage{},
		"moves": []json.RawMessage{spawnEnv},
	})
	if err != nil {
		t.Fatalf("marshal block 2: %v", err)
	}
	if err := d.ProcessBlock(context.Background(), db, block2); err != nil {
		t.Fatalf("process block 2: %v", err)
	}

	tx, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	chars, err := tx.AllCharacters()
	if err != nil {
		t.Fatalf("list characters: %v", err)
	}
	if len(chars) != 1 {
		t.Fatalf("expected 1 character after spawn, got %d", len(chars))
	}
	if chars[0].C.Owner != "alice" || chars[0].C.Faction != "red" {
		t.Fatalf("unexpected character: %+v", chars[0].C)
	}
	for _, ch := range chars {
		ch.Discard()
	}
}

func TestProcessBlockEmptyBatchIsANoop(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	d := testDriver()

	block, err := json.Marshal(map[string]any{
		"block": map[string]any{"height": 1, "timestamp": 1000},
		"admin": []json.RawMessage{},
		"moves": []json.RawMessage{},
	})
	if err != nil {
		t.Fatalf("marshal block: %v", err)
	}
	if err := d.ProcessBlock(context.Background(), db, block); err != nil {
		t.Fatalf("process empty block: %v", err)
	}
}
