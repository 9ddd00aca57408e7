package ongoing

import (
	"database/sql"
	"testing"

	"chainrealm/pkg/config"
	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/model"
	"chainrealm/pkg/rng"
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

func TestArmourRepairFinalises(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tx, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	ch := tx.NewCharacter("alice", "red")
	ch.C.Pos = &hexgrid.Coord{X: 0, Y: 0}
	ch.C.HP.MaxArmour = 100
	ch.C.HP.Armour = 40
	ch.C.BusyBlocks = 1
	if err := ch.Commit(); err != nil {
		t.Fatalf("commit character: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	tx2, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin 2: %v", err)
	}
	loaded, ok, err := tx2.Character(1)
	if err != nil || !ok {
		t.Fatalf("load character: ok=%v err=%v", ok, err)
	}
	op := tx2.NewOngoingOp(1, model.OngoingVariant{Kind: model.OngoingArmourRepair, ArmourRepair: &model.ArmourRepairOp{}})
	loaded.C.Blob.OngoingOpID = &op.Op.ID
	op.Op.CharacterID = &loaded.C.ID
	if err := op.Commit(); err != nil {
		t.Fatalf("commit op: %v", err)
	}
	loaded.MarkDirty()
	if err := loaded.Commit(); err != nil {
		t.Fatalf("commit character: %v", err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit tx2: %v", err)
	}

	tx3, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin 3: %v", err)
	}
	cfg := config.Default(config.ChainRegtest)
	oracle := mapdata.NewProceduralOracle([]byte("seed"), cfg.StarterZones)
	sched := &Scheduler{Cfg: cfg, Oracle: oracle}
	stream := rng.NewStream([]byte("test"))
	sched.Process(tx3, stream, 1)
	if err := tx3.Commit(); err != nil {
		t.Fatalf("commit tx3: %v", err)
	}

	tx4, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin 4: %v", err)
	}
	final, ok, err := tx4.Character(1)
	if err != nil || !ok {
		t.Fatalf("load final character: ok=%v err=%v", ok, err)
	}
	if final.C.HP.Armour != final.C.HP.MaxArmour {
		t.Fatalf("expected armour repaired to max, got %d/%d", final.C.HP.Armour, final.C.HP.MaxArmour)
	}
	if final.C.Blob.OngoingOpID != nil {
		t.Fatal("expected ongoing_op_id cleared")
	}
	if final.C.BusyBlocks != 0 {
		t.Fatalf("expected busy_blocks 0, got %d", final.C.BusyBlocks)
	}
	final.Discard()
	if err := tx4.Commit(); err != nil {
		t.Fatalf("commit tx4: %v", err)
	}
}
