package world

// Viewport decides which caches are close enough to the player to be shown
// and kept resident.
type Viewport struct {
	Projection Projection
	Radius     float64 // Visibility threshold in metres, inclusive
}

// DefaultViewRadius is grid radius 8 times a factor of 15, in metres.
const DefaultViewRadius = 8 * 15.0

// NewViewport creates a viewport over the given projection.
func NewViewport(p Projection, radius float64) Viewport {
	return Viewport{Projection: p, Radius: radius}
}

// IsVisible reports whether the cache's cell centre is within Radius of player.
func (v Viewport) IsVisible(c *Cache, player LatLng) bool {
	return v.Contains(c.Coord, player)
}

// Contains reports whether the centre of coord is within Radius of player.
func (v Viewport) Contains(coord GridCoord, player LatLng) bool {
	return Distance(player, v.Projection.CellCenter(coord)) <= v.Radius
}

// Partition splits caches into those in view and those out of view,
// preserving order.
func (v Viewport) Partition(caches []*Cache, player LatLng) (in, out []*Cache) {
	for _, c := range caches {
		if v.IsVisible(c, player) {
			in = append(in, c)
		} else {
			out = append(out, c)
		}
	}
	return in, out
}

// Visible returns the registered caches in view, in registry order.
func (v Viewport) Visible(r *Registry, player LatLng) []*Cache {
	in, _ := v.Partition(r.All(), player)
	return in
}
