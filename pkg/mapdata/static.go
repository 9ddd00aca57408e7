package mapdata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"chainrealm/pkg/config"
	"chainrealm/pkg/hexgrid"
)

// staticTile is one row of a fixture's tile list.
type staticTile struct {
	X         int  `yaml:"x"`
	Y         int  `yaml:"y"`
	Passable  bool `yaml:"passable"`
	Weight    int64 `yaml:"weight"`
	RegionID  int64 `yaml:"region_id"`
}

// staticFixture is the on-disk shape of a StaticOracle map file: a
// small, explicit row-oriented tile list, used for tests and small
// fixed maps rather than the unbounded ProceduralOracle.
type staticFixture struct {
	DefaultWeight int64            `yaml:"default_weight"`
	Tiles         []staticTile     `yaml:"tiles"`
	NoCombat      []hexgrid.Coord  `yaml:"no_combat"`
	StarterZones  []config.StarterZone `yaml:"starter_zones"`
}

// StaticOracle answers map queries from an explicit, finite tile table
// loaded from a YAML fixture file. Coordinates absent from the table
// are off-map.
type StaticOracle struct {
	defaultWeight int64
	tiles         map[hexgrid.Coord]staticTile
	zones         *configStarterZones
}

// LoadStaticOracle reads a fixture file in the row-oriented format
// documented above.
func LoadStaticOracle(path string) (*StaticOracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapdata: read %s: %w", path, err)
	}
	var fx staticFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("mapdata: parse %s: %w", path, err)
	}
	return NewStaticOracle(fx), nil
}

// NewStaticOracle builds a StaticOracle directly from a parsed
// fixture, letting tests construct one without a file on disk.
func NewStaticOracle(fx staticFixture) *StaticOracle {
	tiles := make(map[hexgrid.Coord]staticTile, len(fx.Tiles))
	for _, t := range fx.Tiles {
		tiles[hexgrid.Coord{X: t.X, Y: t.Y}] = t
	}
	weight := fx.DefaultWeight
	if weight == 0 {
		weight = 10
	}
	return &StaticOracle{
		defaultWeight: weight,
		tiles:         tiles,
		zones:         newConfigStarterZones(fx.StarterZones, fx.NoCombat),
	}
}

func (s *StaticOracle) IsOnMap(c hexgrid.Coord) bool {
	_, ok := s.tiles[c]
	return ok
}

func (s *StaticOracle) IsPassable(c hexgrid.Coord) bool {
	t, ok := s.tiles[c]
	return ok && t.Passable
}

func (s *StaticOracle) EdgeWeight(from, to hexgrid.Coord) int64 {
	if hexgrid.Distance(from, to) != 1 {
		return NoConnection
	}
	if !s.IsPassable(to) {
		return NoConnection
	}
	t := s.tiles[to]
	if t.Weight > 0 {
		return t.Weight
	}
	return s.defaultWeight
}

func (s *StaticOracle) RegionID(c hexgrid.Coord) int64 {
	if t, ok := s.tiles[c]; ok && t.RegionID != 0 {
		return t.RegionID
	}
	return 0
}

func (s *StaticOracle) SafeZones() SafeZones { return s.zones }
