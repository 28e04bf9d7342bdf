// Package rng is the single seeded random source stochastic ops would draw
// from. It exists so checkpoint snapshotting can capture "the RNG state"
// as an opaque blob and recompute can restore it, per the engine's
// reproducible-recompute contract; today's op set has no stochastic op,
// so this is exercised only by the blob capture/restore path itself.
package rng

import (
	"encoding/binary"
	"math/rand"
	"sync"
	"time"
)

var (
	mu    sync.Mutex
	seed  int64
	source *rand.Rand
)

func init() {
	Reseed(time.Now().UnixNano())
}

// Reseed replaces the global source with one seeded by s.
func Reseed(s int64) {
	mu.Lock()
	defer mu.Unlock()

	seed = s
	source = rand.New(rand.NewSource(s)) //nolint:gosec // reproducible sampling, not security sensitive
}

// Source returns the current global *rand.Rand.
func Source() *rand.Rand {
	mu.Lock()
	defer mu.Unlock()

	return source
}

// Snapshot returns an opaque blob holding the seed passed to the most
// recent Reseed. Restoring it replays the draw sequence from that Reseed,
// not from the moment Snapshot was taken: draws made between the Reseed
// and the Snapshot are not captured.
func Snapshot() []byte {
	mu.Lock()
	defer mu.Unlock()

	blob := make([]byte, 8)
	binary.LittleEndian.PutUint64(blob, uint64(seed))

	return blob
}

// Restore reseeds the global source from a blob produced by Snapshot.
func Restore(blob []byte) {
	if len(blob) != 8 {
		return
	}

	Reseed(int64(binary.LittleEndian.Uint64(blob)))
}
