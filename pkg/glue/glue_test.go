package glue

import (
	"database/sql"
	"encoding/json"
	"testing"

	"chainrealm/pkg/config"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
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

func TestInitialStateBlockIsDeterministicPerChain(t *testing.T) {
	h1, hash1 := InitialStateBlock(config.ChainRegtest)
	h2, hash2 := InitialStateBlock(config.ChainRegtest)
	if h1 != 0 || h2 != 0 {
		t.Fatalf("expected genesis height 0, got %d and %d", h1, h2)
	}
	if hash1 != hash2 {
		t.Fatalf("expected deterministic genesis hash, got %q and %q", hash1, hash2)
	}
	_, mainHash := InitialStateBlock(config.ChainMain)
	if mainHash == hash1 {
		t.Fatal("expected distinct genesis hashes per chain")
	}
}

func TestInitialiseStateAndUpdateStateRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cfg := testConfig()

	if err := InitialiseState(db, cfg); err != nil {
		t.Fatalf("initialise: %v", err)
	}

	regEnv, _ := json.Marshal(map[string]any{
		"owner": "alice",
		"move": map[string]any{
			"g": map[string]any{
				"chainrealm": map[string]json.RawMessage{
					"register_account": mustJSON(t, map[string]string{"faction": "red"}),
				},
			},
		},
	})
	block, _ := json.Marshal(map[string]any{
		"block": map[string]any{"height": 1, "timestamp": 1000},
		"admin": []json.RawMessage{},
		"moves": []json.RawMessage{regEnv},
	})
	if err := UpdateState(db, cfg, block); err != nil {
		t.Fatalf("update state: %v", err)
	}

	raw, err := QueryState(db, mustJSON(t, map[string]string{"kind": "account", "owner": "alice"}))
	if err != nil {
		t.Fatalf("query state: %v", err)
	}
	var acc struct {
		Name    string `json:"name"`
		Faction string `json:"faction"`
	}
	if err := json.Unmarshal(raw, &acc); err != nil {
		t.Fatalf("decode query response: %v", err)
	}
	if acc.Name != "alice" || acc.Faction != "red" {
		t.Fatalf("unexpected account query result: %+v", acc)
	}

	stateJSON, err := GetStateAsJSON(db)
	if err != nil {
		t.Fatalf("get state as json: %v", err)
	}
	if len(stateJSON) == 0 {
		t.Fatal("expected non-empty state dump")
	}
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
