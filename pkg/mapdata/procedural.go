package mapdata

import (
	"encoding/binary"
	"strconv"

	"lukechampine.com/blake3"

	"chainrealm/pkg/config"
	"chainrealm/pkg/hexgrid"
)

// ProceduralOracle derives passability, edge weights and region ids
// from a chain-wide seed hashed together with coordinates, directly
// grounded on the teacher's GetSectorData deterministic world
// generation (ownworld.go/simulation.go): every tile's properties come
// from blake3(seed ‖ x ‖ y) rather than being stored anywhere, so the
// map is reproducible and unbounded without a data file.
type ProceduralOracle struct {
	seed       []byte
	zones      *configStarterZones
	baseWeight int64
}

// NewProceduralOracle builds an oracle seeded by chainSeed (typically
// the chain's genesis hash) with the starter zones from RoConfig.
func NewProceduralOracle(chainSeed []byte, zones []config.StarterZone) *ProceduralOracle {
	return &ProceduralOracle{
		seed:       chainSeed,
		zones:      newConfigStarterZones(zones, nil),
		baseWeight: 10,
	}
}

// tileHash reproduces the teacher's "hash(seed-x-y-z)" pattern: the
// seed followed by the decimal x and y joined by '-' (the separator
// keeps e.g. x=1,y=23 and x=12,y=3 apart).
func (p *ProceduralOracle) tileHash(c hexgrid.Coord) [32]byte {
	var buf []byte
	buf = append(buf, p.seed...)
	buf = append(buf, []byte(strconv.Itoa(c.X))...)
	buf = append(buf, '-')
	buf = append(buf, []byte(strconv.Itoa(c.Y))...)
	return blake3.Sum256(buf)
}

// IsOnMap is always true: the procedural oracle covers every integer
// coordinate.
func (p *ProceduralOracle) IsOnMap(c hexgrid.Coord) bool { return true }

// IsPassable derives passability from one byte of the tile hash: a
// tile is an obstacle roughly one time in sixteen.
func (p *ProceduralOracle) IsPassable(c hexgrid.Coord) bool {
	h := p.tileHash(c)
	return h[0]%16 != 0
}

// EdgeWeight returns the base weight scaled by the destination tile's
// terrain roughness, or NoConnection if the destination is impassable
// or not adjacent.
func (p *ProceduralOracle) EdgeWeight(from, to hexgrid.Coord) int64 {
	if hexgrid.Distance(from, to) != 1 {
		return NoConnection
	}
	if !p.IsPassable(to) {
		return NoConnection
	}
	h := p.tileHash(to)
	roughness := int64(h[1]%5) + 1
	return p.baseWeight * roughness
}

// RegionID buckets coordinates into fixed-size square regions so
// nearby tiles share a prospectable/mineable region row.
func (p *ProceduralOracle) RegionID(c hexgrid.Coord) int64 {
	const regionSize = 16
	rx := floorDiv(c.X, regionSize)
	ry := floorDiv(c.Y, regionSize)
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(int64(rx)))
	binary.BigEndian.PutUint64(buf[8:16], uint64(int64(ry)))
	h := blake3.Sum256(append(append([]byte{}, p.seed...), buf[:]...))
	return int64(binary.BigEndian.Uint64(h[:8]) & 0x7fffffffffffffff)
}

func (p *ProceduralOracle) SafeZones() SafeZones { return p.zones }

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
