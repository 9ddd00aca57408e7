// Package mapdata implements the read-only map oracle: passability,
// edge weights, region ids, and safe/starter zones. It is pure and
// read-only per spec.md §4.1 — nothing in this package ever mutates
// game state.
package mapdata

import (
	"chainrealm/pkg/config"
	"chainrealm/pkg/hexgrid"
)

// NoConnection is returned by EdgeWeight when the two coordinates are
// not connected (impassable target, or a cross-faction starter-zone
// step). Callers must compare against this sentinel before using an
// edge weight arithmetically.
const NoConnection int64 = -1

// Faction is a plain string; "" (FactionInvalid) means "no
// faction" — used both for ancient buildings and for StarterFor's
// not-a-starter-tile answer.
type Faction = string

// FactionInvalid is the sentinel faction meaning "not applicable".
const FactionInvalid Faction = ""

// SafeZones answers no-combat and starter-zone questions for a coord.
type SafeZones interface {
	IsNoCombat(c hexgrid.Coord) bool
	StarterFor(c hexgrid.Coord) Faction
}

// Oracle is the full read-only map contract every phase depends on.
type Oracle interface {
	IsOnMap(c hexgrid.Coord) bool
	IsPassable(c hexgrid.Coord) bool
	EdgeWeight(from, to hexgrid.Coord) int64
	RegionID(c hexgrid.Coord) int64
	SafeZones() SafeZones
}

// configStarterZones answers starter-zone questions from RoConfig's
// rectangular zone list. No-combat zones default to "every starter
// zone is also no-combat", matching the intuition that a faction's
// spawn area is protected; a StaticOracle fixture may extend this
// with an explicit no-combat tile list.
type configStarterZones struct {
	zones     []config.StarterZone
	noCombat  map[hexgrid.Coord]bool
}

func newConfigStarterZones(zones []config.StarterZone, noCombat []hexgrid.Coord) *configStarterZones {
	nc := make(map[hexgrid.Coord]bool, len(noCombat))
	for _, c := range noCombat {
		nc[c] = true
	}
	return &configStarterZones{zones: zones, noCombat: nc}
}

func (s *configStarterZones) StarterFor(c hexgrid.Coord) Faction {
	for _, z := range s.zones {
		if c.X >= z.MinX && c.X <= z.MaxX && c.Y >= z.MinY && c.Y <= z.MaxY {
			return z.Faction
		}
	}
	return FactionInvalid
}

func (s *configStarterZones) IsNoCombat(c hexgrid.Coord) bool {
	if s.noCombat[c] {
		return true
	}
	return s.StarterFor(c) != FactionInvalid
}

// MovementWeight implements spec.md §4.2: base edge weight, adjusted
// for starter-zone fast-transit / blocking.
func MovementWeight(o Oracle, faction Faction, from, to hexgrid.Coord) int64 {
	w := o.EdgeWeight(from, to)
	if w == NoConnection {
		return NoConnection
	}
	g := o.SafeZones().StarterFor(to)
	if g == FactionInvalid {
		return w
	}
	if g == faction {
		return w / 3
	}
	return NoConnection
}
