package generator

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

const (
	// SubsystemCeilings is the name of the random stream used to draw per-session resource ceilings.
	SubsystemCeilings = "ceilings"
	// SubsystemSimulation is the name of the random stream used by stand-alone Poisson simulations.
	SubsystemSimulation = "simulation"
)

// SeedDeriver derives independent, reproducible random streams from a single master seed.
//
// Each stream is identified by name. The stream for a given name depends only on the master
// seed and the name, so the output of a generation run does not depend on how sessions are
// distributed across workers. SeedDeriver holds no mutable state and is safe for concurrent use.
type SeedDeriver struct {
	seed uint64
}

func NewSeedDeriver(seed int64) *SeedDeriver {
	return &SeedDeriver{seed: uint64(seed)}
}

// Seed returns the master seed.
func (d *SeedDeriver) Seed() int64 {
	return int64(d.seed)
}

// ForSubsystem returns a new random stream for the named subsystem.
// Two calls with the same name return streams that produce identical sequences.
func (d *SeedDeriver) ForSubsystem(name string) *rand.Rand {
	return rand.New(rand.NewPCG(d.seed, fnv1a64(name)))
}

// ForSession returns a new random stream for the session with the given index.
func (d *SeedDeriver) ForSession(index int) *rand.Rand {
	return d.ForSubsystem(fmt.Sprintf("session_%d", index))
}

func fnv1a64(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// randReader adapts a random stream to an io.Reader.
type randReader struct {
	src *rand.Rand
	buf [8]byte
	off int
}

func (r *randReader) Read(p []byte) (int, error) {
	for i := range p {
		if r.off == 0 {
			binary.LittleEndian.PutUint64(r.buf[:], r.src.Uint64())
		}

		p[i] = r.buf[r.off]
		r.off = (r.off + 1) % len(r.buf)
	}

	return len(p), nil
}
