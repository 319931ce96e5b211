package world

// Registry is the flyweight store of caches: at most one *Cache per coordinate.
// It is not safe for concurrent use.
type Registry struct {
	caches map[GridCoord]*Cache
	order  []GridCoord // Insertion order for stable enumeration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		caches: make(map[GridCoord]*Cache),
	}
}

// GetOrCreate returns the cache at coord, creating an empty one on a miss.
// Repeated calls with the same coordinate return the same instance.
func (r *Registry) GetOrCreate(coord GridCoord) *Cache {
	if c, ok := r.caches[coord]; ok {
		return c
	}
	c := NewCache(coord)
	r.caches[coord] = c
	r.order = append(r.order, coord)
	return c
}

// Get returns the cache at coord, or nil if none is registered.
func (r *Registry) Get(coord GridCoord) *Cache {
	return r.caches[coord]
}

// Has reports whether a cache is registered at coord.
func (r *Registry) Has(coord GridCoord) bool {
	_, ok := r.caches[coord]
	return ok
}

// All returns a snapshot of the registered caches in insertion order.
func (r *Registry) All() []*Cache {
	out := make([]*Cache, 0, len(r.order))
	for _, coord := range r.order {
		out = append(out, r.caches[coord])
	}
	return out
}

// Remove drops the cache at coord. Returns false if none was registered.
func (r *Registry) Remove(coord GridCoord) bool {
	if _, ok := r.caches[coord]; !ok {
		return false
	}
	delete(r.caches, coord)
	for i, c := range r.order {
		if c == coord {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveAll clears the registry.
func (r *Registry) RemoveAll() {
	r.caches = make(map[GridCoord]*Cache)
	r.order = nil
}

// Len returns the number of registered caches.
func (r *Registry) Len() int {
	return len(r.caches)
}

// CoinCount returns the total number of coins held by registered caches.
func (r *Registry) CoinCount() int {
	total := 0
	for _, c := range r.caches {
		total += c.Len()
	}
	return total
}
