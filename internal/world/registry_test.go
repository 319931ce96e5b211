package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreateIsIdempotent(t *testing.T) {
	r := NewRegistry()

	coords := []GridCoord{{0, 0}, {-5, 3}, {1 << 40, -(1 << 40)}, {2, -3}}
	for _, coord := range coords {
		first := r.GetOrCreate(coord)
		second := r.GetOrCreate(coord)
		assert.Same(t, first, second, "coord %v", coord)
	}
	assert.Equal(t, len(coords), r.Len())
}

func TestRegistryNewCacheIsEmptyAndUnpopulated(t *testing.T) {
	r := NewRegistry()
	c := r.GetOrCreate(GridCoord{I: 4, J: 9})

	assert.Equal(t, GridCoord{I: 4, J: 9}, c.Coord)
	assert.Zero(t, c.Len())
	assert.False(t, c.Populated())
}

func TestRegistryHasAndGet(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has(GridCoord{1, 1}))
	assert.Nil(t, r.Get(GridCoord{1, 1}))

	c := r.GetOrCreate(GridCoord{1, 1})
	assert.True(t, r.Has(GridCoord{1, 1}))
	assert.Same(t, c, r.Get(GridCoord{1, 1}))
	// Negative and positive neighbours must not collide.
	assert.False(t, r.Has(GridCoord{-1, 1}))
	assert.False(t, r.Has(GridCoord{11, 0}))
}

func TestRegistryAllKeepsInsertionOrder(t *testing.T) {
	r := NewRegistry()
	want := []GridCoord{{3, 3}, {-1, 0}, {0, 7}}
	for _, coord := range want {
		r.GetOrCreate(coord)
	}
	r.GetOrCreate(GridCoord{-1, 0})

	var got []GridCoord
	for _, c := range r.All() {
		got = append(got, c.Coord)
	}
	assert.Equal(t, want, got)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate(GridCoord{0, 0})
	r.GetOrCreate(GridCoord{0, 1})
	r.GetOrCreate(GridCoord{0, 2})

	require.True(t, r.Remove(GridCoord{0, 1}))
	assert.False(t, r.Remove(GridCoord{0, 1}))
	assert.Equal(t, 2, r.Len())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, GridCoord{0, 0}, all[0].Coord)
	assert.Equal(t, GridCoord{0, 2}, all[1].Coord)
}

func TestRegistryRemoveAll(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate(GridCoord{0, 0})
	r.GetOrCreate(GridCoord{5, 5}).Restore([]Coin{{I: 5, J: 5, Serial: 0}})

	r.RemoveAll()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.All())
	assert.Zero(t, r.CoinCount())
}

func TestCacheTakePut(t *testing.T) {
	c := NewCache(GridCoord{1, 2})
	_, ok := c.Take()
	assert.False(t, ok)

	c.Restore([]Coin{{1, 2, 0}, {1, 2, 1}})
	coin, ok := c.Take()
	require.True(t, ok)
	assert.Equal(t, Coin{1, 2, 1}, coin)

	c.Put(Coin{9, 9, 4})
	assert.Equal(t, []Coin{{1, 2, 0}, {9, 9, 4}}, c.Coins())
}

func TestCacheCoinsReturnsCopy(t *testing.T) {
	c := NewCache(GridCoord{0, 0})
	c.Restore([]Coin{{0, 0, 0}})

	coins := c.Coins()
	coins[0].Serial = 99
	assert.Equal(t, 0, c.Coins()[0].Serial)
}

func TestCoinString(t *testing.T) {
	assert.Equal(t, "2:-3#1", Coin{I: 2, J: -3, Serial: 1}.String())
	assert.Equal(t, GridCoord{2, -3}, Coin{I: 2, J: -3, Serial: 1}.Origin())
}
