// Package hexgrid implements the axial hex-coordinate primitives shared
// by the map oracle, path-finder and combat target search.
package hexgrid

import "sort"

// Coord is an axial hex coordinate. The third cube coordinate (z=-x-y)
// is never stored; it is derived where the distance formula needs it.
type Coord struct {
	X, Y int
}

// neighborOffsets is the fixed six-direction offset table for axial
// coordinates, ordered starting east and proceeding clockwise.
var neighborOffsets = [6]Coord{
	{X: 1, Y: 0},
	{X: 1, Y: -1},
	{X: 0, Y: -1},
	{X: -1, Y: 0},
	{X: -1, Y: 1},
	{X: 0, Y: 1},
}

// Neighbors returns the six hexes adjacent to c, in the fixed table
// order above. The order matters for anything that needs a stable
// iteration (obstacle scans, movement candidate evaluation).
func (c Coord) Neighbors() [6]Coord {
	var out [6]Coord
	for i, off := range neighborOffsets {
		out[i] = Coord{X: c.X + off.X, Y: c.Y + off.Y}
	}
	return out
}

// Distance returns the L1 hex-grid distance between a and b.
func Distance(a, b Coord) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return (abs(dx) + abs(dy) + abs(dx+dy)) / 2
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Less implements the tie-break coordinate ordering adopted in
// SPEC_FULL.md: lexicographic on (X, Y).
func Less(a, b Coord) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

// Ball returns every coordinate within L1 distance radius of center,
// including center itself, sorted by the lexicographic tie-break order
// so callers get deterministic iteration without a further sort.
func Ball(center Coord, radius int) []Coord {
	if radius < 0 {
		return nil
	}
	out := make([]Coord, 0, 3*radius*radius+3*radius+1)
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			c := Coord{X: center.X + dx, Y: center.Y + dy}
			if Distance(center, c) <= radius {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}
