// Package obstacles implements the in-memory dynamic obstacle index:
// vehicles-by-faction and building-occupied tiles, rebuilt at the
// start of every block from the entity store (spec.md §4.4).
package obstacles

import (
	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/model"
)

// Index is a per-block snapshot. It is rebuilt from scratch each block
// and updated incrementally as movement/spawn/construction moves are
// applied within the block — mirroring the teacher's "rebuild a read
// snapshot, mutate only the live copy" pattern (globals.go's
// mapSnapshot atomic.Value), generalized from a flat peer list to a
// coordinate-keyed index.
type Index struct {
	vehicles  map[hexgrid.Coord]map[string]int // faction -> count of vehicles at coord
	buildings map[hexgrid.Coord]int64          // coord -> building id
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		vehicles:  make(map[hexgrid.Coord]map[string]int),
		buildings: make(map[hexgrid.Coord]int64),
	}
}

// BuildFromEntities populates a fresh index from the current set of
// on-map characters and buildings. Characters are expected pre-sorted
// by id per the ambient "map iteration determinism" rule, though this
// function itself is order-independent since it only counts presence.
func BuildFromEntities(characters []*model.Character, buildings []*model.Building) *Index {
	ix := NewIndex()
	for _, c := range characters {
		if c.Pos != nil {
			ix.AddVehicle(*c.Pos, c.Faction)
		}
	}
	for _, b := range buildings {
		ix.AddBuilding(b.Center, b.ID)
	}
	return ix
}

// AddVehicle records a vehicle of the given faction at coord.
func (ix *Index) AddVehicle(c hexgrid.Coord, faction string) {
	m := ix.vehicles[c]
	if m == nil {
		m = make(map[string]int)
		ix.vehicles[c] = m
	}
	m[faction]++
}

// RemoveVehicle removes one vehicle of the given faction from coord.
func (ix *Index) RemoveVehicle(c hexgrid.Coord, faction string) {
	m := ix.vehicles[c]
	if m == nil {
		return
	}
	if m[faction] <= 1 {
		delete(m, faction)
	} else {
		m[faction]--
	}
	if len(m) == 0 {
		delete(ix.vehicles, c)
	}
}

// AddBuilding records a building occupying coord.
func (ix *Index) AddBuilding(c hexgrid.Coord, buildingID int64) {
	ix.buildings[c] = buildingID
}

// RemoveBuilding clears a destroyed building's tile.
func (ix *Index) RemoveBuilding(c hexgrid.Coord) {
	delete(ix.buildings, c)
}

// HasVehicle reports whether a vehicle sits at coord. If faction is
// non-empty, only vehicles of that faction count; an empty faction
// means "any faction".
func (ix *Index) HasVehicle(c hexgrid.Coord, faction string) bool {
	m, ok := ix.vehicles[c]
	if !ok {
		return false
	}
	if faction == "" {
		return len(m) > 0
	}
	return m[faction] > 0
}

// AnyEnemyVehicle reports whether a vehicle of a faction other than
// ownFaction sits at coord.
func (ix *Index) AnyEnemyVehicle(c hexgrid.Coord, ownFaction string) bool {
	m, ok := ix.vehicles[c]
	if !ok {
		return false
	}
	for f, n := range m {
		if f != ownFaction && n > 0 {
			return true
		}
	}
	return false
}

// IsBuilding reports whether a building occupies coord.
func (ix *Index) IsBuilding(c hexgrid.Coord) bool {
	_, ok := ix.buildings[c]
	return ok
}

// BuildingAt returns the building id occupying coord, if any.
func (ix *Index) BuildingAt(c hexgrid.Coord) (int64, bool) {
	id, ok := ix.buildings[c]
	return id, ok
}

// IsFree reports whether coord has no building and no vehicle of any
// faction.
func (ix *Index) IsFree(c hexgrid.Coord) bool {
	return !ix.IsBuilding(c) && !ix.HasVehicle(c, "")
}
