package store

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"chainrealm/pkg/hexgrid"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	if err := SetupSchema(db); err != nil {
		t.Fatalf("setup schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewCharacterRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	tx, err := Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	h := tx.NewCharacter("alice", "RED")
	pos := hexgrid.Coord{X: 1, Y: 2}
	h.C.Pos = &pos
	h.C.HP.Armour = 100
	h.C.HP.MaxArmour = 100
	if err := h.Commit(); err != nil {
		t.Fatalf("commit character: %v", err)
	}
	id := h.C.ID
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	tx2, err := Begin(db)
	if err != nil {
		t.Fatalf("begin 2: %v", err)
	}
	loaded, ok, err := tx2.Character(id)
	if err != nil || !ok {
		t.Fatalf("load character: ok=%v err=%v", ok, err)
	}
	if loaded.C.Owner != "alice" || loaded.C.Faction != "RED" {
		t.Fatalf("unexpected character: %+v", loaded.C)
	}
	if loaded.C.Pos == nil || *loaded.C.Pos != pos {
		t.Fatalf("position not round-tripped: %+v", loaded.C.Pos)
	}
	if loaded.C.HP.Armour != 100 {
		t.Fatalf("hp not round-tripped: %+v", loaded.C.HP)
	}
	loaded.Discard()
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit tx2: %v", err)
	}
}

func TestSeqMonotonic(t *testing.T) {
	db := setupTestDB(t)
	tx, err := Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	a, err := tx.NewID("characters")
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	b, err := tx.NewID("characters")
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	if b != a+1 {
		t.Fatalf("expected monotonic ids, got %d then %d", a, b)
	}
	tx.Rollback()
}

func TestGroundLootMergeAndEmpty(t *testing.T) {
	db := setupTestDB(t)
	tx, err := Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.MergeGroundLoot(5, 5, map[string]int64{"ore": 10}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := tx.MergeGroundLoot(5, 5, map[string]int64{"ore": 5, "wood": 2}); err != nil {
		t.Fatalf("merge 2: %v", err)
	}
	inv, err := tx.GroundLoot(5, 5)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if inv["ore"] != 15 || inv["wood"] != 2 {
		t.Fatalf("unexpected merged inventory: %+v", inv)
	}
	if err := tx.SetGroundLoot(5, 5, map[string]int64{}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	inv, err = tx.GroundLoot(5, 5)
	if err != nil {
		t.Fatalf("read after clear: %v", err)
	}
	if len(inv) != 0 {
		t.Fatalf("expected empty inventory after clearing, got %+v", inv)
	}
	tx.Rollback()
}

func TestDamageListPrune(t *testing.T) {
	db := setupTestDB(t)
	tx, err := Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.RecordDamage(1, 2, 5); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := tx.RecordDamage(1, 3, 50); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := tx.PruneDamageList(100, 50); err != nil {
		t.Fatalf("prune: %v", err)
	}
	attackers, err := tx.AttackersOf(1)
	if err != nil {
		t.Fatalf("attackers: %v", err)
	}
	if len(attackers) != 1 || attackers[0] != 3 {
		t.Fatalf("expected only attacker 3 to survive prune, got %v", attackers)
	}
	tx.Rollback()
}
