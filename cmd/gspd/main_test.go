package main

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"chainrealm/pkg/config"
	"chainrealm/pkg/glue"
	"chainrealm/pkg/reporting"
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

func testConfig() *config.RoConfig {
	cfg := config.Default(config.ChainRegtest)
	cfg.StarterZones = []config.StarterZone{
		{Faction: "red", MinX: 0, MinY: 0, MaxX: 5, MaxY: 5},
	}
	cfg.Vehicles = map[string]config.VehicleConfig{
		"basic": {Speed: 100, CargoSpace: 50, AttackRange: 3},
	}
	return cfg
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

func TestRunBlockFeedAppliesEachLineAndRefreshesReporting(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cfg := testConfig()
	if err := glue.InitialiseState(db, cfg); err != nil {
		t.Fatalf("initialise: %v", err)
	}

	reportStore, err := reporting.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open reporting: %v", err)
	}

	regEnv := envelope(t, "alice", "register_account", map[string]string{"faction": "red"})
	block1, err := json.Marshal(map[string]any{
		"block": map[string]any{"height": 1, "timestamp": 1000},
		"admin": []json.RawMessage{},
		"moves": []json.RawMessage{regEnv},
	})
	if err != nil {
		t.Fatalf("marshal block 1: %v", err)
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

	feed := strings.NewReader(string(block1) + "\n" + string(block2) + "\n")
	if err := runBlockFeed(feed, db, cfg, reportStore, nil); err != nil {
		t.Fatalf("run block feed: %v", err)
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
		t.Fatalf("expected 1 character, got %d", len(chars))
	}
	for _, ch := range chars {
		ch.Discard()
	}
}

func TestRunBlockFeedSkipsUnparsableLine(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cfg := testConfig()
	if err := glue.InitialiseState(db, cfg); err != nil {
		t.Fatalf("initialise: %v", err)
	}
	reportStore, err := reporting.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open reporting: %v", err)
	}

	feed := strings.NewReader("not valid json at all\n")
	// An unparsable line is skipped rather than treated as a rejection,
	// so this should complete without error.
	if err := runBlockFeed(feed, db, cfg, reportStore, nil); err != nil {
		t.Fatalf("expected malformed line to be skipped, got: %v", err)
	}
}
