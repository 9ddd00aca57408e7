package combat

import (
	"database/sql"
	"testing"

	"chainrealm/pkg/config"
	"chainrealm/pkg/forks"
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

func meleeAttack(min, max int64) model.Attack {
	return model.Attack{Name: "strike", Min: min, Max: max, Range: 1, HitChance: 100, ShieldPct: 100, ArmourPct: 100, Size: 1}
}

func TestDealCombatDamageKillsLowHPTarget(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tx, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	attacker := tx.NewCharacter("alice", "red")
	attacker.C.Pos = &hexgrid.Coord{X: 0, Y: 0}
	attacker.C.HP = model.HP{Armour: 100, MaxArmour: 100}
	attacker.C.Blob.Combat = model.CombatData{Attacks: []model.Attack{meleeAttack(50, 50)}, Size: 1}
	attacker.C.Target = &model.TargetRef{Type: model.TargetCharacter, ID: 2}
	if err := attacker.Commit(); err != nil {
		t.Fatalf("commit attacker: %v", err)
	}

	victim := tx.NewCharacter("bob", "blue")
	victim.C.Pos = &hexgrid.Coord{X: 1, Y: 0}
	victim.C.HP = model.HP{Armour: 10, MaxArmour: 100}
	victim.C.Blob.Combat = model.CombatData{Size: 1}
	if err := victim.Commit(); err != nil {
		t.Fatalf("commit victim: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	tx2, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin2: %v", err)
	}
	cfg := config.Default(config.ChainRegtest)
	stream := rng.NewStream([]byte("combat-fixed"))
	dead := DealCombatDamage(tx2, cfg, stream, 1)
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit tx2: %v", err)
	}

	if len(dead) != 1 || dead[0].ID != 2 {
		t.Fatalf("expected character 2 dead, got %v", dead)
	}
}

func TestFameAttributionSplitsAcrossAttackers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tx, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	for _, owner := range []string{"alice", "carl"} {
		acc := tx.NewAccount(owner, "red")
		if err := acc.Commit(); err != nil {
			t.Fatalf("commit account %s: %v", owner, err)
		}
	}

	alice := tx.NewCharacter("alice", "red")
	alice.C.Pos = &hexgrid.Coord{X: 0, Y: 0}
	if err := alice.Commit(); err != nil {
		t.Fatalf("commit alice char: %v", err)
	}
	carl := tx.NewCharacter("carl", "red")
	carl.C.Pos = &hexgrid.Coord{X: 1, Y: 0}
	if err := carl.Commit(); err != nil {
		t.Fatalf("commit carl char: %v", err)
	}
	victim := tx.NewCharacter("dana", "blue")
	victim.C.Pos = &hexgrid.Coord{X: 2, Y: 0}
	if err := victim.Commit(); err != nil {
		t.Fatalf("commit victim: %v", err)
	}

	if err := tx.RecordDamage(99, alice.C.ID, 5); err != nil {
		t.Fatalf("record damage 1: %v", err)
	}
	if err := tx.RecordDamage(99, carl.C.ID, 5); err != nil {
		t.Fatalf("record damage 2: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	tx2, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin2: %v", err)
	}
	cfg := config.Default(config.ChainRegtest)
	cfg.Combat.FamePointsPerKill = 100
	fh := forks.NewHandler(cfg, config.ChainRegtest, 10)
	AttributeFame(tx2, cfg, fh, 10, []fighterRef{{Type: model.TargetCharacter, ID: 99}})
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit tx2: %v", err)
	}

	tx3, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin3: %v", err)
	}
	aliceAcc, ok, err := tx3.Account("alice")
	if err != nil || !ok {
		t.Fatalf("load alice: ok=%v err=%v", ok, err)
	}
	if aliceAcc.A.Fame != 50 {
		t.Fatalf("expected alice fame 50, got %d", aliceAcc.A.Fame)
	}
	aliceAcc.Discard()
	tx3.Commit()
}

func TestProcessKillsDropsInventoryAndFitments(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tx, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ch := tx.NewCharacter("alice", "red")
	ch.C.Pos = &hexgrid.Coord{X: 5, Y: 5}
	ch.C.Inventory = map[string]int64{"gold": 12}
	ch.C.Blob.Fitments = []string{"plow"}
	if err := ch.Commit(); err != nil {
		t.Fatalf("commit character: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	tx2, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin2: %v", err)
	}
	cfg := config.Default(config.ChainRegtest)
	cfg.Combat.EquippedFitmentDropPercent = 100
	oracle := mapdata.NewProceduralOracle([]byte("kill-fixed"), nil)
	stream := rng.NewStream([]byte("kill-fixed"))
	ProcessKills(tx2, cfg, oracle, stream, []fighterRef{{Type: model.TargetCharacter, ID: ch.C.ID}})
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit tx2: %v", err)
	}

	tx3, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin3: %v", err)
	}
	_, ok, err := tx3.Character(ch.C.ID)
	if err != nil || ok {
		t.Fatalf("expected character deleted, ok=%v err=%v", ok, err)
	}
	loot, err := tx3.GroundLoot(5, 5)
	if err != nil {
		t.Fatalf("ground loot: %v", err)
	}
	if loot["gold"] != 12 || loot["plow"] != 1 {
		t.Fatalf("unexpected ground loot: %v", loot)
	}
	tx3.Commit()
}

func TestProcessKillsBuildingRefundsAndDropsCombinedPile(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tx, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	b := tx.NewBuilding("depot", "red", hexgrid.Coord{X: 4, Y: 4})
	if err := b.Commit(); err != nil {
		t.Fatalf("commit building: %v", err)
	}
	if err := tx.SetBuildingInventory(b.B.ID, "playerX", map[string]int64{"ore": 100}); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	if _, err := tx.PlaceTradeOrder(model.TradeOrder{BuildingID: b.B.ID, Account: "playerX", Item: "ore", Amount: 10, ReservedCoin: 50}); err != nil {
		t.Fatalf("place order: %v", err)
	}
	accX := tx.NewAccount("playerX", "red")
	if err := accX.Commit(); err != nil {
		t.Fatalf("commit accX: %v", err)
	}
	inside := tx.NewCharacter("playerY", "red")
	inside.C.BuildingID = &b.B.ID
	inside.C.Inventory = map[string]int64{"scrap": 3}
	inside.C.Blob.Fitments = []string{"plow"}
	inside.C.Blob.VehicleType = "buggy"
	if err := inside.Commit(); err != nil {
		t.Fatalf("commit inside character: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	tx2, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin2: %v", err)
	}
	cfg := config.Default(config.ChainRegtest)
	cfg.Combat.BuildingInventoryDropPercent = 100
	oracle := mapdata.NewProceduralOracle([]byte("build-kill-fixed"), nil)
	stream := rng.NewStream([]byte("build-kill-fixed"))
	ProcessKills(tx2, cfg, oracle, stream, []fighterRef{{Type: model.TargetBuilding, ID: b.B.ID}})
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit tx2: %v", err)
	}

	tx3, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin3: %v", err)
	}
	accXReload, ok, err := tx3.Account("playerX")
	if err != nil || !ok {
		t.Fatalf("load accX: ok=%v err=%v", ok, err)
	}
	if accXReload.A.Coin != 50 {
		t.Fatalf("expected playerX refunded 50 coin, got %d", accXReload.A.Coin)
	}
	accXReload.Discard()

	_, ok, err = tx3.Character(inside.C.ID)
	if err != nil || ok {
		t.Fatalf("expected character inside building deleted, ok=%v err=%v", ok, err)
	}
	loot, err := tx3.GroundLoot(4, 4)
	if err != nil {
		t.Fatalf("ground loot: %v", err)
	}
	if loot["ore"] != 100 || loot["scrap"] != 3 || loot["plow"] != 1 || loot["buggy"] != 1 {
		t.Fatalf("unexpected combined drop pile: %v", loot)
	}
	tx3.Commit()
}

func gainHPAttack(dmg int64) model.Attack {
	return model.Attack{Name: "syphon", Min: dmg, Max: dmg, GainHP: true, Range: 1, ShieldPct: 100, ArmourPct: 0, Size: 1}
}

func TestGainHPSingleAttackerRecoversEvenWhenTargetShieldHitsZero(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tx, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	victim := tx.NewCharacter("bob", "blue")
	victim.C.Pos = &hexgrid.Coord{X: 1, Y: 0}
	victim.C.HP = model.HP{Shield: 10, MaxShield: 100, Armour: 100, MaxArmour: 100}
	victim.C.Blob.Combat = model.CombatData{Size: 1}
	if err := victim.Commit(); err != nil {
		t.Fatalf("commit victim: %v", err)
	}

	attacker := tx.NewCharacter("alice", "red")
	attacker.C.Pos = &hexgrid.Coord{X: 0, Y: 0}
	attacker.C.HP = model.HP{Shield: 0, MaxShield: 50, Armour: 50, MaxArmour: 100}
	attacker.C.Blob.Combat = model.CombatData{Attacks: []model.Attack{gainHPAttack(10)}, Size: 1}
	attacker.C.Target = &model.TargetRef{Type: model.TargetCharacter, ID: victim.C.ID}
	if err := attacker.Commit(); err != nil {
		t.Fatalf("commit attacker: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	tx2, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin2: %v", err)
	}
	cfg := config.Default(config.ChainRegtest)
	stream := rng.NewStream([]byte("gain-hp-fixed"))
	DealCombatDamage(tx2, cfg, stream, 1)
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit tx2: %v", err)
	}

	tx3, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin3: %v", err)
	}
	reloadedAttacker, ok, err := tx3.Character(attacker.C.ID)
	if err != nil || !ok {
		t.Fatalf("load attacker: ok=%v err=%v", ok, err)
	}
	if reloadedAttacker.C.HP.Shield != 10 {
		t.Fatalf("expected sole syphon attacker to recover 10 shield, got %d", reloadedAttacker.C.HP.Shield)
	}
	if reloadedAttacker.C.HP.Armour != 50 {
		t.Fatalf("expected armour untouched by a shield-only syphon, got %d", reloadedAttacker.C.HP.Armour)
	}
	reloadedAttacker.Discard()

	reloadedVictim, ok, err := tx3.Character(victim.C.ID)
	if err != nil || !ok {
		t.Fatalf("load victim: ok=%v err=%v", ok, err)
	}
	if reloadedVictim.C.HP.Shield != 0 {
		t.Fatalf("expected victim shield drained to 0, got %d", reloadedVictim.C.HP.Shield)
	}
	reloadedVictim.Discard()
	tx3.Commit()
}

func TestGainHPTwoSimultaneousAttackersDrainingExactShieldNeitherRecovers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tx, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	victim := tx.NewCharacter("bob", "blue")
	victim.C.Pos = &hexgrid.Coord{X: 1, Y: 0}
	victim.C.HP = model.HP{Shield: 20, MaxShield: 100, Armour: 100, MaxArmour: 100}
	victim.C.Blob.Combat = model.CombatData{Size: 1}
	if err := victim.Commit(); err != nil {
		t.Fatalf("commit victim: %v", err)
	}

	carl := tx.NewCharacter("carl", "red")
	carl.C.Pos = &hexgrid.Coord{X: 0, Y: 0}
	carl.C.HP = model.HP{Shield: 0, MaxShield: 50, Armour: 50, MaxArmour: 100}
	carl.C.Blob.Combat = model.CombatData{Attacks: []model.Attack{gainHPAttack(10)}, Size: 1}
	carl.C.Target = &model.TargetRef{Type: model.TargetCharacter, ID: victim.C.ID}
	if err := carl.Commit(); err != nil {
		t.Fatalf("commit carl: %v", err)
	}

	dave := tx.NewCharacter("dave", "red")
	dave.C.Pos = &hexgrid.Coord{X: 2, Y: 0}
	dave.C.HP = model.HP{Shield: 0, MaxShield: 50, Armour: 50, MaxArmour: 100}
	dave.C.Blob.Combat = model.CombatData{Attacks: []model.Attack{gainHPAttack(10)}, Size: 1}
	dave.C.Target = &model.TargetRef{Type: model.TargetCharacter, ID: victim.C.ID}
	if err := dave.Commit(); err != nil {
		t.Fatalf("commit dave: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	tx2, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin2: %v", err)
	}
	cfg := config.Default(config.ChainRegtest)
	stream := rng.NewStream([]byte("gain-hp-split-fixed"))
	DealCombatDamage(tx2, cfg, stream, 1)
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit tx2: %v", err)
	}

	tx3, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin3: %v", err)
	}
	for _, id := range []int64{carl.C.ID, dave.C.ID} {
		reloaded, ok, err := tx3.Character(id)
		if err != nil || !ok {
			t.Fatalf("load attacker %d: ok=%v err=%v", id, ok, err)
		}
		if reloaded.C.HP.Shield != 0 {
			t.Fatalf("expected attacker %d not to recover any shield when the pair drained it to exactly zero, got %d", id, reloaded.C.HP.Shield)
		}
		reloaded.Discard()
	}
	reloadedVictim, ok, err := tx3.Character(victim.C.ID)
	if err != nil || !ok {
		t.Fatalf("load victim: ok=%v err=%v", ok, err)
	}
	if reloadedVictim.C.HP.Shield != 0 {
		t.Fatalf("expected victim shield drained to 0, got %d", reloadedVictim.C.HP.Shield)
	}
	reloadedVictim.Discard()
	tx3.Commit()
}

func TestRegenerateHPAdvancesArmour(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tx, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ch := tx.NewCharacter("alice", "red")
	ch.C.Pos = &hexgrid.Coord{X: 0, Y: 0}
	ch.C.CanRegen = true
	ch.C.HP = model.HP{Armour: 50, MaxArmour: 100, MilliArmour: 800}
	if err := ch.Commit(); err != nil {
		t.Fatalf("commit character: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit tx: %v", err)
	}

	tx2, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin2: %v", err)
	}
	cfg := config.Default(config.ChainRegtest)
	cfg.Combat.ArmourRegenMilliPerBlock = 500
	RegenerateHP(tx2, cfg)
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit tx2: %v", err)
	}

	tx3, err := store.Begin(db)
	if err != nil {
		t.Fatalf("begin3: %v", err)
	}
	final, ok, err := tx3.Character(ch.C.ID)
	if err != nil || !ok {
		t.Fatalf("load final: ok=%v err=%v", ok, err)
	}
	if final.C.HP.Armour != 51 || final.C.HP.MilliArmour != 300 {
		t.Fatalf("unexpected regen result: %+v", final.C.HP)
	}
	final.Discard()
	tx3.Commit()
}
