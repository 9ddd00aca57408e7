// Package rng implements the deterministic, seedable random stream the
// pipeline draws from. Every draw is a pure function of the seed and a
// monotonic counter, never of wall-clock time or goroutine scheduling,
// so independent nodes replaying the same block produce the identical
// sequence of draws.
package rng

import (
	"encoding/binary"
	"fmt"

	"lukechampine.com/blake3"
)

// Stream is a counter-mode deterministic byte generator. Each draw
// hashes seed‖counter with blake3 and consumes the digest; when a draw
// needs more entropy than one digest provides, the counter advances
// again and the digests are concatenated.
//
// Stream is not safe for concurrent use; the pipeline driver advances a
// single Stream strictly in phase order (spec.md §5, "Shared
// resources").
type Stream struct {
	seed    [32]byte
	counter uint64
	buf     []byte
	pos     int
}

// NewStream derives a stream from a block hash (or any other seed
// bytes, e.g. in tests). The seed is hashed once up front so streams
// seeded from short or long inputs behave identically.
func NewStream(seed []byte) *Stream {
	s := &Stream{seed: blake3.Sum256(seed)}
	return s
}

// draw returns the next n pseudo-random bytes.
func (s *Stream) draw(n int) []byte {
	out := make([]byte, 0, n)
	for len(out) < n {
		if s.pos >= len(s.buf) {
			s.refill()
		}
		take := len(s.buf) - s.pos
		if need := n - len(out); take > need {
			take = need
		}
		out = append(out, s.buf[s.pos:s.pos+take]...)
		s.pos += take
	}
	return out
}

func (s *Stream) refill() {
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], s.counter)
	s.counter++
	h := blake3.New(64, nil)
	h.Write(s.seed[:])
	h.Write(ctr[:])
	s.buf = h.Sum(nil)
	s.pos = 0
}

// NextUint64 draws the next 8 bytes as a big-endian uint64.
func (s *Stream) NextUint64() uint64 {
	return binary.BigEndian.Uint64(s.draw(8))
}

// NextInt draws a uniform integer in [0, n). Panics if n <= 0: callers
// must validate the range before drawing, since an empty range is
// always a programmer error, not an input-rejection case.
func (s *Stream) NextInt(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("rng: NextInt called with non-positive n=%d", n))
	}
	// Rejection sampling to avoid modulo bias.
	max := ^uint64(0) - (^uint64(0) % uint64(n))
	for {
		v := s.NextUint64()
		if v < max {
			return int(v % uint64(n))
		}
	}
}

// NextIntRange draws a uniform integer in [min, max] inclusive.
func (s *Stream) NextIntRange(min, max int) int {
	if max < min {
		panic(fmt.Sprintf("rng: NextIntRange(%d,%d) has max<min", min, max))
	}
	return min + s.NextInt(max-min+1)
}

// ProbabilityRoll reports whether a num/den chance succeeded, drawn as
// a uniform integer in [0,den) compared against num.
func (s *Stream) ProbabilityRoll(num, den int) bool {
	if den <= 0 {
		panic(fmt.Sprintf("rng: ProbabilityRoll called with non-positive den=%d", den))
	}
	return s.NextInt(den) < num
}

// Pick returns a uniformly random element of a non-empty slice. Callers
// must pass elements in a deterministic order (e.g. a pre-sorted
// slice) so the draw itself is the only source of choice.
func Pick[T any](s *Stream, items []T) T {
	if len(items) == 0 {
		panic("rng: Pick called with empty slice")
	}
	return items[s.NextInt(len(items))]
}
