// Package luck provides deterministic pseudo-random values keyed by strings.
// The same key and seed always produce the same value, across runs and machines,
// which is what makes cache placement reproducible without storing it.
package luck

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Source returns a value in [0, 1) for an arbitrary key.
type Source interface {
	Luck(key string) float64
}

// Func adapts a plain function to a Source.
type Func func(key string) float64

// Luck calls f(key).
func (f Func) Luck(key string) float64 {
	return f(key)
}

// Source kinds accepted by New.
const (
	KindHash  = "hash"
	KindNoise = "noise"
)

// New returns the Source named by kind.
func New(kind string, seed int64) (Source, error) {
	switch kind {
	case "", KindHash:
		return NewHash(seed), nil
	case KindNoise:
		return NewNoise(seed), nil
	default:
		return nil, fmt.Errorf("unknown luck source %q", kind)
	}
}

// Hash derives luck from an xxhash of the seeded key.
type Hash struct {
	prefix string
}

// NewHash creates a hash source. Seed 0 hashes keys as-is.
func NewHash(seed int64) *Hash {
	h := &Hash{}
	if seed != 0 {
		h.prefix = strconv.FormatInt(seed, 10) + ":"
	}
	return h
}

// Luck returns a uniform value in [0, 1).
func (h *Hash) Luck(key string) float64 {
	return unitFloat(xxhash.Sum64String(h.prefix + key))
}

// Noise samples simplex noise at a point derived from the key hash.
// Values cluster around 0.5, so spawns are rarer than with Hash at the same threshold.
type Noise struct {
	noise opensimplex.Noise
}

// NewNoise creates a noise source for the given seed.
func NewNoise(seed int64) *Noise {
	return &Noise{noise: opensimplex.NewNormalized(seed)}
}

// Luck returns a value in [0, 1).
func (n *Noise) Luck(key string) float64 {
	sum := xxhash.Sum64String(key)
	// Spread the two 32-bit halves over a wide sampling plane.
	x := float64(uint32(sum>>32)) / 1024
	y := float64(uint32(sum)) / 1024
	v := n.noise.Eval2(x, y)
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return maxBelowOne
	}
	return v
}

const maxBelowOne = float64((1<<53)-1) / float64(1<<53)

// unitFloat uses the top 53 bits for a uniform float64 in [0, 1).
func unitFloat(n uint64) float64 {
	return float64(n>>11) / float64(1<<53)
}

// CellKey is the spawn key for grid cell (i, j).
func CellKey(i, j int) string {
	return strconv.Itoa(i) + "," + strconv.Itoa(j)
}

// MintKey is the initial coin count key for grid cell (i, j).
func MintKey(i, j int) string {
	return CellKey(i, j) + ",initialVal"
}
