// Package game ties the cache registry, the player inventory, generation and
// persistence into one session a transport can drive.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/geocoin/internal/luck"
	"github.com/talgya/geocoin/internal/metrics"
	"github.com/talgya/geocoin/internal/persistence"
	"github.com/talgya/geocoin/internal/player"
	"github.com/talgya/geocoin/internal/world"
)

var (
	// ErrNoCache is returned when acting on a cell that holds no cache.
	ErrNoCache = errors.New("no cache at coordinate")
	// ErrOutOfView is returned when acting on a cache outside the viewport.
	ErrOutOfView = errors.New("cache is out of view")
	// ErrInvalidPosition is returned for positions off the globe.
	ErrInvalidPosition = errors.New("invalid position")
)

// Config holds session tuning.
type Config struct {
	Gen             world.GenConfig
	Projection      world.Projection
	ViewRadius      float64      // Metres
	StepCells       int          // Cells moved per directional step
	Origin          world.LatLng // Start and reset position
	HibernateOnMove bool         // Evict out-of-view caches after every move
}

// DefaultConfig returns the stock game settings starting at Null Island.
func DefaultConfig() Config {
	return Config{
		Gen:             world.DefaultGenConfig(),
		Projection:      world.DefaultProjection(),
		ViewRadius:      world.DefaultViewRadius,
		StepCells:       1,
		Origin:          world.NullIsland,
		HibernateOnMove: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Gen.Validate(); err != nil {
		return err
	}
	if c.Projection.TileDegrees <= 0 || c.Projection.Scale <= 0 {
		return fmt.Errorf("tile size and scale must be positive")
	}
	if c.ViewRadius <= 0 {
		return fmt.Errorf("view radius must be positive, got %v", c.ViewRadius)
	}
	if c.StepCells <= 0 {
		return fmt.Errorf("step must be at least one cell, got %d", c.StepCells)
	}
	if !validPosition(c.Origin) {
		return fmt.Errorf("origin %v: %w", c.Origin, ErrInvalidPosition)
	}
	return nil
}

func validPosition(p world.LatLng) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Session is one player's game: registry, inventory and position, plus the
// collaborators that generate and persist them. A Session is not safe for
// concurrent use; callers serialize access.
type Session struct {
	id  uuid.UUID
	cfg Config

	registry  *world.Registry
	inventory *player.Inventory
	generator *world.Generator
	viewport  world.Viewport
	memento   *persistence.Manager
	metrics   *metrics.Metrics

	position world.LatLng
	trail    []world.LatLng
}

// NewSession creates a session. Call Start before use.
func NewSession(cfg Config, src luck.Source, memento *persistence.Manager, m *metrics.Metrics) *Session {
	registry := world.NewRegistry()
	return &Session{
		id:        uuid.New(),
		cfg:       cfg,
		registry:  registry,
		inventory: player.NewInventory(),
		generator: world.NewGenerator(cfg.Gen, src, registry),
		viewport:  world.NewViewport(cfg.Projection, cfg.ViewRadius),
		memento:   memento,
		metrics:   m,
		position:  cfg.Origin,
		trail:     []world.LatLng{cfg.Origin},
	}
}

// ID identifies the session instance.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Start restores saved state, generates caches around the player and saves.
// A corrupt save is moved aside and the game starts from defaults.
func (s *Session) Start(ctx context.Context) error {
	pos, found, err := s.memento.RestoreState(ctx, s.inventory, s.registry)
	switch {
	case errors.Is(err, persistence.ErrCorruptState):
		slog.Error("saved game rejected, starting fresh", "session", s.id, "error", err)
		s.metrics.RestoreFailed("corrupt")
		if qerr := s.memento.Quarantine(ctx, persistence.StateKey); qerr != nil {
			return fmt.Errorf("quarantine saved state: %w", qerr)
		}
	case err != nil:
		return fmt.Errorf("restore: %w", err)
	case found:
		s.position = pos
	}
	s.trail = []world.LatLng{s.position}

	slog.Info("session started",
		"session", s.id,
		"restored", found,
		"caches", s.registry.Len(),
		"coins", s.registry.CoinCount(),
		"inventory", s.inventory.Len(),
	)
	return s.Generate(ctx)
}

// settle runs after every position change: hibernated caches come back,
// scan registers new caches around the player, then out-of-view caches are
// hibernated (or the state is simply saved).
func (s *Session) settle(ctx context.Context, scan func(center world.GridCoord) []world.GridCoord) error {
	if _, err := s.dehibernate(ctx); err != nil {
		return err
	}

	spawned := scan(s.cfg.Projection.ToGrid(s.position))
	s.metrics.Generated(len(spawned))
	if len(spawned) > 0 {
		slog.Debug("caches generated", "session", s.id, "count", len(spawned))
	}

	if s.cfg.HibernateOnMove {
		_, err := s.Hibernate(ctx)
		return err
	}
	// The hibernation slot was just drained.
	s.metrics.Caches(s.registry.Len(), 0)
	return s.Save(ctx)
}

// dehibernate is FromMemento with corrupt slots moved aside.
func (s *Session) dehibernate(ctx context.Context) (int, error) {
	n, err := s.memento.FromMemento(ctx, s.registry)
	if errors.Is(err, persistence.ErrCorruptState) {
		return 0, s.quarantineHibernation(ctx, err)
	}
	return n, err
}

func (s *Session) quarantineHibernation(ctx context.Context, cause error) error {
	slog.Error("hibernated caches rejected", "session", s.id, "error", cause)
	s.metrics.RestoreFailed("corrupt_hibernation")
	return s.memento.Quarantine(ctx, persistence.HibernationKey)
}

// Save writes the full-state snapshot.
func (s *Session) Save(ctx context.Context) error {
	if err := s.memento.SaveState(ctx, s.position, s.inventory, s.registry); err != nil {
		return err
	}
	s.metrics.Saved()
	return nil
}

// Hibernate evicts out-of-view caches into the hibernation slot and saves.
// A corrupt hibernation slot is moved aside and replaced by the evicted
// caches. Returns the number of caches evicted.
func (s *Session) Hibernate(ctx context.Context) (int, error) {
	n, err := s.memento.ToMemento(ctx, s.registry, s.viewport, s.position, s.inventory)
	if errors.Is(err, persistence.ErrCorruptState) {
		if qerr := s.quarantineHibernation(ctx, err); qerr != nil {
			return 0, qerr
		}
		n, err = s.memento.ToMemento(ctx, s.registry, s.viewport, s.position, s.inventory)
	}
	if err != nil {
		return n, err
	}
	s.metrics.Saved()
	hibernated, err := s.HibernatedCount(ctx)
	if err != nil {
		return n, err
	}
	s.metrics.Caches(s.registry.Len(), hibernated)
	return n, nil
}

// Dehibernate brings every hibernated cache back into the registry.
func (s *Session) Dehibernate(ctx context.Context) (int, error) {
	n, err := s.dehibernate(ctx)
	if err != nil {
		return n, err
	}
	s.metrics.Caches(s.registry.Len(), 0)
	return n, nil
}

// HibernatedCount returns how many caches wait in the hibernation slot.
func (s *Session) HibernatedCount(ctx context.Context) (int, error) {
	entries, err := s.memento.Hibernated(ctx)
	return len(entries), err
}

// Move steps the player in dir and generates the newly exposed frontier.
func (s *Session) Move(ctx context.Context, dir world.Direction) error {
	prev := s.cfg.Projection.ToGrid(s.position)
	s.position = s.cfg.Projection.Step(s.position, dir, s.cfg.StepCells)
	s.trail = append(s.trail, s.position)
	s.metrics.Moved(dir.String())

	step := s.cfg.StepCells
	off := dir.Offset()
	want := prev.Add(world.GridCoord{I: off.I * step, J: off.J * step})

	return s.settle(ctx, func(center world.GridCoord) []world.GridCoord {
		if center != want {
			// Rounding put us in an unexpected cell; fall back to a full scan.
			return s.generator.ScanRegion(center, s.cfg.Gen.Radius)
		}
		return s.generator.ScanFrontier(center, dir, step, s.cfg.Gen.Radius)
	})
}

// MoveTo places the player at an absolute position, as a geolocation update
// does, and generates the whole region around it.
func (s *Session) MoveTo(ctx context.Context, pos world.LatLng) error {
	if !validPosition(pos) {
		return fmt.Errorf("%v: %w", pos, ErrInvalidPosition)
	}
	s.position = pos
	s.trail = append(s.trail, pos)
	s.metrics.Moved("position")

	return s.settle(ctx, func(center world.GridCoord) []world.GridCoord {
		return s.generator.ScanRegion(center, s.cfg.Gen.Radius)
	})
}

// Open returns the cache at coord, minting its coins on first access.
func (s *Session) Open(coord world.GridCoord) (*world.Cache, error) {
	c := s.registry.Get(coord)
	if c == nil {
		return nil, fmt.Errorf("%v: %w", coord, ErrNoCache)
	}
	if n := s.generator.EnsureMinted(c); n > 0 {
		s.metrics.Minted(n)
	}
	return c, nil
}

func (s *Session) openInView(coord world.GridCoord) (*world.Cache, error) {
	c, err := s.Open(coord)
	if err != nil {
		return nil, err
	}
	if !s.viewport.IsVisible(c, s.position) {
		return nil, fmt.Errorf("%v: %w", coord, ErrOutOfView)
	}
	return c, nil
}

// Collect moves the top coin of the cache at coord into the inventory.
// Returns false when the cache is empty.
func (s *Session) Collect(ctx context.Context, coord world.GridCoord) (bool, error) {
	c, err := s.openInView(coord)
	if err != nil {
		return false, err
	}
	if !s.inventory.Collect(c) {
		return false, nil
	}
	s.metrics.Collected()
	return true, s.Save(ctx)
}

// Deposit moves the top inventory coin into the cache at coord.
// Returns false when the inventory is empty.
func (s *Session) Deposit(ctx context.Context, coord world.GridCoord) (bool, error) {
	c, err := s.openInView(coord)
	if err != nil {
		return false, err
	}
	if !s.inventory.Deposit(c) {
		return false, nil
	}
	s.metrics.Deposited()
	return true, s.Save(ctx)
}

// Reset wipes all saved and in-memory state after the confirmer agrees and
// returns the player to the origin. The registry stays empty until Generate.
// Returns whether the reset happened.
func (s *Session) Reset(ctx context.Context, confirmer Confirmer) (bool, error) {
	ok, err := confirmer.Confirm(ctx, ResetPrompt)
	if err != nil {
		return false, fmt.Errorf("confirm reset: %w", err)
	}
	if !ok {
		slog.Info("reset declined", "session", s.id)
		return false, nil
	}

	if err := s.memento.Clear(ctx); err != nil {
		return false, err
	}
	s.registry.RemoveAll()
	s.inventory.Clear()
	s.position = s.cfg.Origin
	s.trail = []world.LatLng{s.position}

	s.metrics.Caches(0, 0)

	slog.Info("game reset", "session", s.id)
	return true, nil
}

// Generate scans the full region around the player and saves.
func (s *Session) Generate(ctx context.Context) error {
	return s.settle(ctx, func(center world.GridCoord) []world.GridCoord {
		return s.generator.ScanRegion(center, s.cfg.Gen.Radius)
	})
}

// VisibleCaches returns the caches in view of the player, in registry order.
func (s *Session) VisibleCaches() []*world.Cache {
	return s.viewport.Visible(s.registry, s.position)
}

// Caches returns every resident cache.
func (s *Session) Caches() []*world.Cache {
	return s.registry.All()
}

// Resident returns the number of caches in the registry.
func (s *Session) Resident() int {
	return s.registry.Len()
}

// Inventory returns the carried coins, oldest first.
func (s *Session) Inventory() []world.Coin {
	return s.inventory.Coins()
}

// InventoryText lists the carried coins as the status panel shows them.
func (s *Session) InventoryText() string {
	return s.inventory.String()
}

// ResidentCoins returns the number of coins held by resident caches.
func (s *Session) ResidentCoins() int {
	return s.registry.CoinCount()
}

// Position returns the player position.
func (s *Session) Position() world.LatLng {
	return s.position
}

// Trail returns the positions visited since start or the last reset.
func (s *Session) Trail() []world.LatLng {
	return append([]world.LatLng(nil), s.trail...)
}

// Projection returns the grid projection, for cell centres and bounds.
func (s *Session) Projection() world.Projection {
	return s.cfg.Projection
}

// Viewport returns the visibility filter.
func (s *Session) Viewport() world.Viewport {
	return s.viewport
}
