// Package movement implements the movement processor (spec.md §4.8):
// stepped A*-style pathing over the hex grid, integer partial-step
// accumulation, and dynamic-obstacle interaction.
package movement

import (
	"sort"

	"chainrealm/pkg/config"
	"chainrealm/pkg/forks"
	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/model"
	"chainrealm/pkg/obstacles"
	"chainrealm/pkg/pathfind"
	"chainrealm/pkg/store"
	"chainrealm/pkg/validate"
)

// Processor advances every moving character by one block's worth of
// steps.
type Processor struct {
	Cfg    *config.RoConfig
	Oracle mapdata.Oracle
	Ix     *obstacles.Index
	Forks  forks.Handler
}

// Process advances every character with an active movement state, in
// ascending id order.
func (p *Processor) Process(tx *store.Tx) {
	chars, err := tx.AllCharacters()
	validate.Require(err == nil, "movement: list characters: %v", err)

	sort.Slice(chars, func(i, j int) bool { return chars[i].C.ID < chars[j].C.ID })

	for _, ch := range chars {
		if !ch.C.IsMoving || ch.C.Blob.Movement == nil || !ch.C.OnMap() {
			ch.Discard()
			continue
		}
		p.advance(tx, ch)
	}
}

func (p *Processor) advance(tx *store.Tx, ch *store.CharacterHandle) {
	m := ch.C.Blob.Movement

	for {
		if len(m.Steps) == 0 {
			if len(m.Waypoints) == 0 {
				ch.C.IsMoving = false
				break
			}
			if !p.computeSteps(ch, m) {
				// No path to the next waypoint: drop it and try the
				// following one next block rather than getting stuck.
				m.Waypoints = m.Waypoints[1:]
				break
			}
		}

		next := m.Steps[0]
		weight := mapdata.MovementWeight(p.Oracle, ch.C.Faction, *ch.C.Pos, next)
		if weight == mapdata.NoConnection {
			m.Steps = nil
			break
		}

		m.PartialStep += ch.C.Blob.Speed
		if m.PartialStep < weight {
			break
		}

		if !p.tryStep(ch, m, next, weight) {
			break
		}
	}

	ch.MarkDirty()
	validate.Require(ch.Commit() == nil, "movement: commit character %d", ch.C.ID)
}

// computeSteps lazily (re)populates m.Steps toward the next waypoint.
// Returns false when no path exists at all.
func (p *Processor) computeSteps(ch *store.CharacterHandle, m *model.MovementState) bool {
	goal := m.Waypoints[0]
	weight := func(from, to hexgrid.Coord) (int64, bool) {
		if !p.Oracle.IsPassable(to) {
			return 0, false
		}
		if p.Ix.IsBuilding(to) && to != goal {
			return 0, false
		}
		w := mapdata.MovementWeight(p.Oracle, ch.C.Faction, from, to)
		if w == mapdata.NoConnection {
			return 0, false
		}
		return w, true
	}
	result := pathfind.FindPath(*ch.C.Pos, goal, weight, func(c hexgrid.Coord) int64 {
		return int64(hexgrid.Distance(c, goal))
	}, p.Cfg.Pathfinding.MaxSearchNodes)
	if !result.Found {
		return false
	}
	if len(result.Steps) > 1 {
		m.Steps = result.Steps[1:]
	} else {
		m.Steps = nil
		m.Waypoints = m.Waypoints[1:]
	}
	return true
}

// tryStep attempts to move onto next, honoring obstacle and fork rules
// (spec.md §4.4, Scenario 1). Returns whether the step succeeded.
func (p *Processor) tryStep(ch *store.CharacterHandle, m *model.MovementState, next hexgrid.Coord, weight int64) bool {
	if p.Ix.IsBuilding(next) {
		m.BlockedTurns++
		p.maybeInvalidate(m)
		return false
	}

	enemy := p.Ix.AnyEnemyVehicle(next, ch.C.Faction)
	sameFaction := p.Ix.HasVehicle(next, ch.C.Faction)

	if enemy && !p.Forks.IsActive(forks.UnblockSpawns) {
		m.BlockedTurns++
		p.maybeInvalidate(m)
		return false
	}

	m.PartialStep -= weight
	p.Ix.RemoveVehicle(*ch.C.Pos, ch.C.Faction)
	ch.C.Pos = &hexgrid.Coord{X: next.X, Y: next.Y}
	p.Ix.AddVehicle(next, ch.C.Faction)
	m.Steps = m.Steps[1:]
	if len(m.Steps) == 0 && len(m.Waypoints) > 0 {
		m.Waypoints = m.Waypoints[1:]
	}

	if enemy || sameFaction {
		m.BlockedTurns += p.Cfg.Movement.PostForkEnemyPenalty
		p.maybeInvalidate(m)
	} else {
		m.BlockedTurns = 0
	}
	return true
}

func (p *Processor) maybeInvalidate(m *model.MovementState) {
	if m.BlockedTurns > p.Cfg.Movement.BlockedTurnsThreshold {
		m.Steps = nil
		m.BlockedTurns = 0
	}
}
