// Package seedrand provides reproducible unit-interval streams.
//
// The generator is Mulberry32 and string seeds are mixed with 32-bit FNV-1a,
// so a given seed yields the same sequence on every platform and in every
// process. Nothing in here reads the clock or global state.
package seedrand

import (
	"hash/fnv"
	"iter"
)

// Source is a restartable Mulberry32 stream.
type Source struct {
	seed  uint32
	state uint32
}

func New(seed uint32) *Source {
	return &Source{seed: seed, state: seed}
}

// ForPair derives an independent sub-stream for one (day, user) pair.
func ForPair(base uint32, day, user string) *Source {
	return New(base ^ Hash32(day+"::"+user))
}

// Float64 returns the next value in [0, 1).
func (s *Source) Float64() float64 {
	s.state += 0x6d2b79f5
	t := s.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Reset rewinds the stream to its seed.
func (s *Source) Reset() {
	s.state = s.seed
}

func (s *Source) Seed() uint32 {
	return s.seed
}

// Stream returns a lazy, infinite sequence starting from seed. Each range
// over the returned sequence starts again from the beginning.
func Stream(seed uint32) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		src := New(seed)
		for {
			if !yield(src.Float64()) {
				return
			}
		}
	}
}

// Hash32 is 32-bit FNV-1a over the UTF-8 bytes of s.
func Hash32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
