// Package rng derives deterministic, per-stream random number generators
// from a master seed. Each stream's seed is the first 8 bytes of
// SHA-256("<master_seed>:<stream_name>"), so the derived seed is specified
// bit-for-bit rather than left to a hash implementation's internal
// details, and every stream is backed by a from-scratch MT19937 generator
// whose full state round-trips through save/load.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// SimStream and WorldgenStream are the two mandatory named streams.
// rng_sim is advanced only by simulation logic; rng_worldgen is advanced
// only by world generation. Drawing from one must never change
// the next draw of the other, which holds automatically here because each
// stream owns an independently seeded generator.
const (
	SimStream      = "rng_sim"
	WorldgenStream = "rng_worldgen"
)

// DeriveSeed implements derive_stream_seed: the first 8 bytes of
// SHA-256("<master_seed>:<stream_name>") interpreted as a big-endian
// unsigned integer.
func DeriveSeed(masterSeed string, streamName string) uint64 {
	sum := sha256.Sum256([]byte(masterSeed + ":" + streamName))
	return binary.BigEndian.Uint64(sum[:8])
}

// Stream wraps a MT19937 generator seeded deterministically from a master
// seed and stream name. Its full state round-trips through save/load via
// State/Restore so that a restored save reproduces the exact same sequence
// of future draws.
type Stream struct {
	name string
	mt   *mt19937
}

// NewStream derives a fresh stream's seed from masterSeed and name and
// constructs its generator.
func NewStream(masterSeed, name string) *Stream {
	return &Stream{name: name, mt: newMT19937(DeriveSeed(masterSeed, name))}
}

// Name returns the stream's identifier (e.g. "rng_sim", "encounter_selection").
func (s *Stream) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Uint32 draws the next 32-bit value from the stream.
func (s *Stream) Uint32() uint32 {
	return s.mt.next()
}

// Float64 draws a value in [0, 1) using 53 bits of entropy, matching the
// common MT19937 double-precision extraction recipe.
func (s *Stream) Float64() float64 {
	a := uint64(s.Uint32() >> 5)
	b := uint64(s.Uint32() >> 6)
	return (float64(a)*67108864.0 + float64(b)) / 9007199254740992.0
}

// Intn draws a uniform value in [0, n) for n > 0. Matches Python-style
// randrange semantics used by the encounter-selection stream.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("rng: Intn called with non-positive bound %d", n))
	}
	// Rejection sampling against the largest multiple of n to avoid modulo bias.
	limit := uint32(n)
	bound := (^uint32(0) / limit) * limit
	for {
		v := s.Uint32()
		if v < bound {
			return int(v % limit)
		}
	}
}

// State captures the generator's full internal state for serialization.
type State struct {
	Name  string   `json:"name"`
	Index int      `json:"index"`
	MT    []uint32 `json:"mt"`
}

// Snapshot returns the stream's serializable state.
func (s *Stream) Snapshot() State {
	st := State{Name: s.name, Index: s.mt.index, MT: make([]uint32, len(s.mt.state))}
	copy(st.MT, s.mt.state[:])
	return st
}

// Restore rebuilds a stream from a previously captured State.
func Restore(st State) *Stream {
	mt := &mt19937{index: st.Index}
	copy(mt.state[:], st.MT)
	return &Stream{name: st.Name, mt: mt}
}

// --- MT19937 --------------------------------------------------------------

const (
	mtN          = 624
	mtM          = 397
	mtMatrixA    = 0x9908b0df
	mtUpperMask  = 0x80000000
	mtLowerMask  = 0x7fffffff
	mtInitMult   = 1812433253
)

// mt19937 is a from-scratch, fully specified Mersenne Twister generator.
// Its state is plain data (no hidden OS entropy), so it reproduces the
// exact same draw sequence on every platform given the same seed.
type mt19937 struct {
	state [mtN]uint32
	index int
}

func newMT19937(seed uint64) *mt19937 {
	mt := &mt19937{}
	mt.seedFrom(uint32(seed ^ (seed >> 32)))
	return mt
}

func (m *mt19937) seedFrom(seed uint32) {
	m.state[0] = seed
	for i := 1; i < mtN; i++ {
		prev := m.state[i-1]
		m.state[i] = mtInitMult*(prev^(prev>>30)) + uint32(i)
	}
	m.index = mtN
}

func (m *mt19937) generate() {
	for i := 0; i < mtN; i++ {
		y := (m.state[i] & mtUpperMask) | (m.state[(i+1)%mtN] & mtLowerMask)
		next := m.state[(i+mtM)%mtN] ^ (y >> 1)
		if y&1 != 0 {
			next ^= mtMatrixA
		}
		m.state[i] = next
	}
	m.index = 0
}

func (m *mt19937) next() uint32 {
	if m.index >= mtN {
		m.generate()
	}
	y := m.state[m.index]
	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	m.index++
	return y
}

// Registry holds every derived stream keyed by name, including on-demand
// per-module streams derived the first time a module asks for one.
type Registry struct {
	masterSeed string
	streams    map[string]*Stream
	order      []string
}

// NewRegistry constructs a registry seeded from masterSeed with the two
// mandatory streams pre-derived.
func NewRegistry(masterSeed string) *Registry {
	r := &Registry{masterSeed: masterSeed, streams: make(map[string]*Stream)}
	r.Stream(SimStream)
	r.Stream(WorldgenStream)
	return r
}

// Stream returns the named stream, deriving and caching it on first use.
func (r *Registry) Stream(name string) *Stream {
	if s, ok := r.streams[name]; ok {
		return s
	}
	s := NewStream(r.masterSeed, name)
	r.streams[name] = s
	r.order = append(r.order, name)
	return s
}

// MasterSeed returns the registry's root seed string.
func (r *Registry) MasterSeed() string { return r.masterSeed }

// Snapshot returns every stream's state, in first-derived order, for
// inclusion in a save payload.
func (r *Registry) Snapshot() []State {
	out := make([]State, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.streams[name].Snapshot())
	}
	return out
}

// RestoreRegistry rebuilds a Registry from a master seed and a slice of
// previously captured stream states, restoring every stream bit-exactly.
func RestoreRegistry(masterSeed string, states []State) *Registry {
	r := &Registry{masterSeed: masterSeed, streams: make(map[string]*Stream)}
	for _, st := range states {
		r.streams[st.Name] = Restore(st)
		r.order = append(r.order, st.Name)
	}
	// Guarantee the two mandatory streams exist even for saves captured
	// before a module first touched them.
	r.Stream(SimStream)
	r.Stream(WorldgenStream)
	return r
}
