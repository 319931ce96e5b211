// Cache generation: a deterministic grid scan that decides per cell whether a
// cache exists, plus lazy coin minting on first access.
package world

import (
	"fmt"
	"math"

	"github.com/talgya/geocoin/internal/luck"
)

// GenConfig holds cache generation parameters.
type GenConfig struct {
	SpawnProbability float64 // Luck threshold below which a cell holds a cache
	Radius           int     // Half-width of the scanned square, in cells
	MintScale        float64 // Initial coins = floor(luck * MintScale)
}

// DefaultGenConfig returns the stock tuning: 10% spawn chance over a 16x16 scan.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		SpawnProbability: 0.1,
		Radius:           8,
		MintScale:        10,
	}
}

// Validate reports configuration values that would make generation meaningless.
func (cfg GenConfig) Validate() error {
	if cfg.SpawnProbability < 0 || cfg.SpawnProbability > 1 {
		return fmt.Errorf("spawn probability %v outside [0, 1]", cfg.SpawnProbability)
	}
	if cfg.Radius <= 0 {
		return fmt.Errorf("generation radius must be positive, got %d", cfg.Radius)
	}
	if cfg.MintScale < 0 {
		return fmt.Errorf("mint scale must not be negative, got %v", cfg.MintScale)
	}
	return nil
}

// Generator populates a Registry from a luck source.
type Generator struct {
	cfg      GenConfig
	luck     luck.Source
	registry *Registry
}

// NewGenerator creates a generator writing into registry.
func NewGenerator(cfg GenConfig, src luck.Source, registry *Registry) *Generator {
	return &Generator{cfg: cfg, luck: src, registry: registry}
}

// Spawns reports whether a cache exists at coord.
func (g *Generator) Spawns(coord GridCoord) bool {
	return g.luck.Luck(luck.CellKey(coord.I, coord.J)) < g.cfg.SpawnProbability
}

// ScanRegion registers every spawning cell in the square
// [center-radius, center+radius) on both axes. Already registered cells are
// left untouched. Returns the newly registered coordinates.
func (g *Generator) ScanRegion(center GridCoord, radius int) []GridCoord {
	return g.scan(
		center.I-radius, center.I+radius,
		center.J-radius, center.J+radius,
	)
}

// ScanFrontier scans only the band of cells exposed by moving step cells in
// dir to arrive at center. Cells covered by the previous square are skipped.
func (g *Generator) ScanFrontier(center GridCoord, dir Direction, step, radius int) []GridCoord {
	if step <= 0 {
		return nil
	}
	d := dir.Offset()
	prev := GridCoord{I: center.I - d.I*step, J: center.J - d.J*step}

	iLo, iHi := center.I-radius, center.I+radius
	jLo, jHi := center.J-radius, center.J+radius

	switch {
	case d.I > 0:
		iLo = max(iLo, prev.I+radius)
	case d.I < 0:
		iHi = min(iHi, prev.I-radius)
	case d.J > 0:
		jLo = max(jLo, prev.J+radius)
	case d.J < 0:
		jHi = min(jHi, prev.J-radius)
	}
	return g.scan(iLo, iHi, jLo, jHi)
}

func (g *Generator) scan(iLo, iHi, jLo, jHi int) []GridCoord {
	var spawned []GridCoord
	for i := iLo; i < iHi; i++ {
		for j := jLo; j < jHi; j++ {
			coord := GridCoord{I: i, J: j}
			if g.registry.Has(coord) || !g.Spawns(coord) {
				continue
			}
			g.registry.GetOrCreate(coord)
			spawned = append(spawned, coord)
		}
	}
	return spawned
}

// EnsureMinted fills an unpopulated cache with its deterministic initial
// coins. A populated cache is never minted again, even when emptied.
// Returns the number of coins minted.
func (g *Generator) EnsureMinted(c *Cache) int {
	if c.Populated() {
		return 0
	}
	count := g.InitialCoins(c.Coord)
	c.mint(count)
	return count
}

// InitialCoins returns how many coins a cache at coord starts with.
func (g *Generator) InitialCoins(coord GridCoord) int {
	v := g.luck.Luck(luck.MintKey(coord.I, coord.J))
	return int(math.Floor(v * g.cfg.MintScale))
}
