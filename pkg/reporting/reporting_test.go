package reporting

import (
	"database/sql"
	"testing"

	"chainrealm/pkg/hexgrid"
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

func TestRefreshRebuildsLeaderboard(t *testing.T) {
	consensusDB := setupTestDB(t)
	defer consensusDB.Close()

	tx, err := store.Begin(consensusDB)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	alice := tx.NewAccount("alice", "red")
	alice.A.Kills, alice.A.Fame = 3, 300
	if err := alice.Commit(); err != nil {
		t.Fatalf("commit alice: %v", err)
	}
	bob := tx.NewAccount("bob", "blue")
	bob.A.Kills, bob.A.Fame = 1, 100
	if err := bob.Commit(); err != nil {
		t.Fatalf("commit bob: %v", err)
	}
	b := tx.NewBuilding("depot", "red", hexgrid.Coord{X: 1, Y: 1})
	if err := b.Commit(); err != nil {
		t.Fatalf("commit building: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	rep, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open reporting: %v", err)
	}

	tx2, err := store.Begin(consensusDB)
	if err != nil {
		t.Fatalf("begin2: %v", err)
	}
	defer tx2.Rollback()
	if err := rep.Refresh(tx2, 5); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	top, err := rep.TopByFame(10)
	if err != nil {
		t.Fatalf("top by fame: %v", err)
	}
	if len(top) != 2 || top[0].Name != "alice" || top[0].Fame != 300 {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}

	counts, err := rep.BuildingCounts()
	if err != nil {
		t.Fatalf("building counts: %v", err)
	}
	if len(counts) != 1 || counts[0].Faction != "red" || counts[0].Count != 1 {
		t.Fatalf("unexpected building counts: %+v", counts)
	}
}
