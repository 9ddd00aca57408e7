// Package pipeline orders every per-block phase into the single,
// contract-fixed sequence spec.md §4.10 names, and owns the block-wide
// context (chain, height, timestamp, config, map oracle) that phase.
// It is the one package every leaf subsystem's caller, never itself
// depended on by them (spec.md §2, "leaves first").
package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"chainrealm/pkg/combat"
	"chainrealm/pkg/config"
	"chainrealm/pkg/forks"
	"chainrealm/pkg/gamelog"
	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/mining"
	"chainrealm/pkg/model"
	"chainrealm/pkg/movement"
	"chainrealm/pkg/moves"
	"chainrealm/pkg/obstacles"
	"chainrealm/pkg/ongoing"
	"chainrealm/pkg/rng"
	"chainrealm/pkg/store"
	"chainrealm/pkg/validate"
)

// Driver runs the ten-step per-block state transition against one
// chain's static configuration and map oracle. A Driver is safe to
// reuse across many blocks; it holds no per-block mutable state of its
// own beyond what a ProcessBlock call threads through explicitly.
type Driver struct {
	Cfg    *config.RoConfig
	Chain  config.Chain
	Oracle mapdata.Oracle
}

// blockPayload is the host chain's block JSON shape (spec.md §6,
// "Block JSON input"). Unknown top-level fields are ignored by
// encoding/json's default decode-into-struct behavior.
type blockPayload struct {
	Block struct {
		Height    uint64 `json:"height"`
		Timestamp int64  `json:"timestamp"`
	} `json:"block"`
	Admin []json.RawMessage `json:"admin"`
	Moves []json.RawMessage `json:"moves"`
}

// ProcessBlock runs one block's state transition to completion inside
// a single store transaction: commit on success, and — since invariant
// failures panic rather than return an error (spec.md §7) — rollback
// and re-panic on any panic; no caller recovers it, so it ends the
// process. ctx is checked between phases only; nothing in this
// package performs I/O that would block on it.
func (d *Driver) ProcessBlock(ctx context.Context, db *sql.DB, blockJSON []byte) (err error) {
	var payload blockPayload
	if err := json.Unmarshal(blockJSON, &payload); err != nil {
		return err
	}

	tx, err := store.Begin(db)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	height := payload.Block.Height
	fh := forks.NewHandler(d.Cfg, d.Chain, height)
	stream := rng.NewStream(blockSeed(d.Chain, height))

	phase := func(name string, fn func()) {
		if ctx.Err() != nil {
			validate.Fatalf("pipeline: block %d cancelled during phase %q: %v", height, name, ctx.Err())
		}
		start := time.Now()
		fn()
		gamelog.Debug("phase complete", gamelog.Height(height), gamelog.String("phase", name), gamelog.Int("micros", int(time.Since(start).Microseconds())))
	}

	phase("prune_damage_list", func() {
		validate.Require(tx.PruneDamageList(height, fh.DamageListWindow()) == nil, "pipeline: prune damage list")
	})

	phase("combat_damage", func() {
		killed := combat.DealCombatDamage(tx, d.Cfg, stream, height)
		combat.AttributeFame(tx, d.Cfg, fh, height, killed)
		combat.ProcessKills(tx, d.Cfg, d.Oracle, stream, killed)
		combat.RegenerateHP(tx, d.Cfg)
	})

	scheduler := &ongoing.Scheduler{Cfg: d.Cfg, Oracle: d.Oracle}
	phase("ongoing_ops", func() {
		scheduler.Process(tx, stream, height)
	})

	ix := obstacles.NewIndex()
	phase("obstacle_index", func() {
		ix = buildObstacleIndex(tx)
	})

	mp := &moves.Processor{Cfg: d.Cfg, Oracle: d.Oracle, Ix: ix, Height: height}
	phase("moves", func() {
		mp.ApplyBatch(tx, payload.Admin, payload.Moves)
	})

	miner := &mining.Processor{Cfg: d.Cfg, Oracle: d.Oracle}
	phase("mining", func() {
		miner.Process(tx, stream)
	})

	mover := &movement.Processor{Cfg: d.Cfg, Oracle: d.Oracle, Ix: ix, Forks: fh}
	phase("movement", func() {
		mover.Process(tx)
	})

	phase("building_entries", func() {
		processBuildingEntries(tx, ix)
	})

	phase("combat_targets", func() {
		combat.FindCombatTargets(tx, d.Oracle, fh, stream)
	})

	if d.Cfg.Debug.ValidateInvariants {
		phase("validate_invariants", func() {
			CheckInvariants(tx, d.Cfg)
		})
	}

	return tx.Commit()
}

// blockSeed derives the block's PRNG seed deterministically from the
// chain and height (spec.md §2, "Random stream ... seeded from block
// hash"): the height stands in for the block hash here since this
// package receives no chain-hash input of its own, keeping the seed a
// pure function of already-agreed-upon consensus data.
func blockSeed(chain config.Chain, height uint64) []byte {
	buf := make([]byte, 0, len(chain)+8)
	buf = append(buf, []byte(chain)...)
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(height>>(8*i)))
	}
	return buf
}

// buildObstacleIndex rebuilds the dynamic obstacle index from the
// store at block start (spec.md §4.10 step 4).
func buildObstacleIndex(tx *store.Tx) *obstacles.Index {
	chars, err := tx.AllCharacters()
	validate.Require(err == nil, "pipeline: list characters for obstacle index: %v", err)
	models := make([]*model.Character, 0, len(chars))
	for _, ch := range chars {
		models = append(models, ch.C)
		ch.Discard()
	}
	buildings, err := tx.AllBuildings()
	validate.Require(err == nil, "pipeline: list buildings for obstacle index: %v", err)
	bmodels := make([]*model.Building, 0, len(buildings))
	for _, b := range buildings {
		bmodels = append(bmodels, b.B)
		b.Discard()
	}
	return obstacles.BuildFromEntities(models, bmodels)
}

// processBuildingEntries transfers every character with a pending
// enter-building intent inside, provided it is still adjacent to the
// building's centre — a character that moved away this block simply
// has its intent dropped rather than teleporting in (spec.md §4.10
// step 8).
func processBuildingEntries(tx *store.Tx, ix *obstacles.Index) {
	chars, err := tx.AllCharacters()
	validate.Require(err == nil, "pipeline: list characters for building entry: %v", err)

	sort.Slice(chars, func(i, j int) bool { return chars[i].C.ID < chars[j].C.ID })

	for _, ch := range chars {
		if ch.C.EnterBuildingID == nil {
			ch.Discard()
			continue
		}
		buildingID := *ch.C.EnterBuildingID
		ch.C.EnterBuildingID = nil
		ch.MarkDirty()

		b, ok, err := tx.Building(buildingID)
		validate.Require(err == nil, "pipeline: load building %d for entry: %v", buildingID, err)
		if !ok || !ch.C.OnMap() || hexgrid.Distance(*ch.C.Pos, b.B.Center) > 1 {
			if ok {
				b.Discard()
			}
			validate.Require(ch.Commit() == nil, "pipeline: commit dropped entry intent for character %d", ch.C.ID)
			continue
		}
		b.Discard()

		ix.RemoveVehicle(*ch.C.Pos, ch.C.Faction)
		ch.C.BuildingID = &buildingID
		ch.C.Pos = nil
		validate.Require(ch.Commit() == nil, "pipeline: commit building entry for character %d", ch.C.ID)
	}
}
