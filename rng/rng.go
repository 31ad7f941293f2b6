// Package rng provides the per-path deterministic random streams used by the
// generators.
//
// A Stream is keyed by (seed, canonical path): the initial state is
// seed XOR FNV1a32(path) and the state advances with the 32-bit xorshift
// transform. Streams carry no shared state, so two streams never interfere
// and the same key always replays the same sequence.
package rng

import "math"

const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619

	two32 = 4294967296.0
	two53 = 9007199254740992.0
)

// FNV1a32 hashes s (UTF-8 bytes) with 32-bit FNV-1a.
func FNV1a32(s string) uint32 {
	h := fnvOffset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// Stream is a xorshift32 generator bound to one (seed, path) key.
type Stream struct {
	state uint32
	draws uint64
}

// New returns the stream for (seed, path).
//
// Zero is the only fixed point of xorshift; a key that hashes to a zero state
// starts from the FNV offset basis instead.
func New(seed uint32, path string) *Stream {
	s0 := seed ^ FNV1a32(path)
	if s0 == 0 {
		s0 = fnvOffset32
	}
	return &Stream{state: s0}
}

// Next advances the stream and returns the next uint32.
func (s *Stream) Next() uint32 {
	x := s.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.state = x
	s.draws++
	return x
}

// Float64 returns Next()/2^32, always in [0,1).
func (s *Stream) Float64() float64 {
	return float64(s.Next()) / two32
}

// Float53 combines two draws into a 53-bit uniform in [0,1). Wide numeric
// ranges use it so that more than 2^32 distinct values are reachable.
func (s *Stream) Float53() float64 {
	a := uint64(s.Next() >> 5) // 27 bits
	b := uint64(s.Next() >> 6) // 26 bits
	return float64(a<<26|b) / two53
}

// Intn returns a uniform int in [0,n). n <= 0 yields 0.
func (s *Stream) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	if uint64(n) <= math.MaxUint32 {
		return int(uint64(s.Next()) * uint64(n) >> 32)
	}
	return int(s.Float53() * float64(n))
}

// Int63n returns a uniform int64 in [0,n). n <= 0 yields 0.
func (s *Stream) Int63n(n int64) int64 {
	if n <= 1 {
		return 0
	}
	if n <= math.MaxUint32 {
		return int64(uint64(s.Next()) * uint64(n) >> 32)
	}
	v := int64(s.Float53() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Bool returns true with probability 1/2.
func (s *Stream) Bool() bool { return s.Float64() < 0.5 }

// Read fills p with stream bytes (little-endian per draw). It never fails,
// which makes a Stream usable as an io.Reader for byte-oriented consumers.
func (s *Stream) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 4 {
		v := s.Next()
		for j := 0; j < 4 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}

// Draws reports how many values were produced so far.
func (s *Stream) Draws() uint64 { return s.draws }
