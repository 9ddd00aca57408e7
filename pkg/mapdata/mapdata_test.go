package mapdata

import (
	"testing"

	"chainrealm/pkg/config"
	"chainrealm/pkg/hexgrid"
)

func flatFixture() *StaticOracle {
	fx := staticFixture{
		DefaultWeight: 30,
		Tiles: []staticTile{
			{X: 0, Y: 0, Passable: true},
			{X: 1, Y: 0, Passable: true},
			{X: 2, Y: 0, Passable: true},
		},
		StarterZones: []config.StarterZone{
			{Faction: "RED", MinX: 0, MaxX: 1, MinY: 0, MaxY: 0},
		},
	}
	return NewStaticOracle(fx)
}

func TestStaticOracleBasic(t *testing.T) {
	o := flatFixture()
	if !o.IsOnMap(hexgrid.Coord{X: 0, Y: 0}) {
		t.Fatal("expected (0,0) on map")
	}
	if o.IsOnMap(hexgrid.Coord{X: 9, Y: 9}) {
		t.Fatal("expected (9,9) off map")
	}
	w := o.EdgeWeight(hexgrid.Coord{X: 0, Y: 0}, hexgrid.Coord{X: 1, Y: 0})
	if w != 30 {
		t.Fatalf("EdgeWeight = %d, want 30", w)
	}
}

func TestMovementWeightStarterZone(t *testing.T) {
	o := flatFixture()
	red := MovementWeight(o, "RED", hexgrid.Coord{X: 2, Y: 0}, hexgrid.Coord{X: 1, Y: 0})
	if red != 10 {
		t.Fatalf("RED movement into own starter tile = %d, want floor(30/3)=10", red)
	}
	green := MovementWeight(o, "GREEN", hexgrid.Coord{X: 2, Y: 0}, hexgrid.Coord{X: 1, Y: 0})
	if green != NoConnection {
		t.Fatalf("GREEN movement into RED starter tile = %d, want NoConnection", green)
	}
}

func TestMovementWeightNonStarter(t *testing.T) {
	o := flatFixture()
	w := MovementWeight(o, "GREEN", hexgrid.Coord{X: 1, Y: 0}, hexgrid.Coord{X: 2, Y: 0})
	if w != 30 {
		t.Fatalf("non-starter move weight = %d, want 30", w)
	}
}

func TestProceduralOracleDeterministic(t *testing.T) {
	a := NewProceduralOracle([]byte("genesis"), nil)
	b := NewProceduralOracle([]byte("genesis"), nil)
	c := hexgrid.Coord{X: 42, Y: -17}
	if a.IsPassable(c) != b.IsPassable(c) {
		t.Fatal("procedural oracle not deterministic across instances")
	}
	if a.RegionID(c) != b.RegionID(c) {
		t.Fatal("procedural region id not deterministic")
	}
}
