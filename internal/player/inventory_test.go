package player

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/geocoin/internal/world"
)

func mintedCache(coord world.GridCoord, n int) *world.Cache {
	c := world.NewCache(coord)
	coins := make([]world.Coin, n)
	for i := range coins {
		coins[i] = world.Coin{I: coord.I, J: coord.J, Serial: i}
	}
	c.Restore(coins)
	return c
}

func TestCollectMovesTopCoin(t *testing.T) {
	inv := NewInventory()
	cache := mintedCache(world.GridCoord{I: 1, J: 2}, 3)

	require.True(t, inv.Collect(cache))
	assert.Equal(t, []world.Coin{{I: 1, J: 2, Serial: 2}}, inv.Coins())
	assert.Equal(t, 2, cache.Len())
}

func TestCollectFromEmptyCacheIsNoop(t *testing.T) {
	inv := NewInventory()
	cache := world.NewCache(world.GridCoord{})

	assert.False(t, inv.Collect(cache))
	assert.Zero(t, inv.Len())
}

func TestDepositIsLastInFirstOut(t *testing.T) {
	inv := NewInventory()
	a := mintedCache(world.GridCoord{I: 0, J: 0}, 1)
	b := mintedCache(world.GridCoord{I: 5, J: 5}, 1)
	target := mintedCache(world.GridCoord{I: 9, J: 9}, 0)

	inv.Collect(a)
	inv.Collect(b)
	require.True(t, inv.Deposit(target))

	assert.Equal(t, []world.Coin{{I: 5, J: 5, Serial: 0}}, target.Coins())
	assert.Equal(t, []world.Coin{{I: 0, J: 0, Serial: 0}}, inv.Coins())
}

func TestDepositFromEmptyInventoryIsNoop(t *testing.T) {
	inv := NewInventory()
	cache := mintedCache(world.GridCoord{}, 2)

	assert.False(t, inv.Deposit(cache))
	assert.Equal(t, 2, cache.Len())
}

func TestDepositRefusesUnmintedCache(t *testing.T) {
	inv := NewInventory()
	inv.Replace([]world.Coin{{I: 0, J: 0, Serial: 3}})
	cache := world.NewCache(world.GridCoord{I: 1, J: 1})

	assert.False(t, inv.Deposit(cache))
	assert.False(t, cache.Populated())
	assert.Zero(t, cache.Len())
	assert.Equal(t, 1, inv.Len())
}

func TestTransfersConserveCoins(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	caches := []*world.Cache{
		mintedCache(world.GridCoord{I: 0, J: 0}, 4),
		mintedCache(world.GridCoord{I: 1, J: -1}, 0),
		mintedCache(world.GridCoord{I: -3, J: 2}, 9),
	}
	inv := NewInventory()

	total := func() int {
		n := inv.Len()
		for _, c := range caches {
			n += c.Len()
		}
		return n
	}
	want := total()

	for step := 0; step < 500; step++ {
		c := caches[rng.Intn(len(caches))]
		if rng.Intn(2) == 0 {
			inv.Collect(c)
		} else {
			inv.Deposit(c)
		}
		require.Equal(t, want, total(), "step %d", step)
	}

	// Every coin identity is still held exactly once.
	seen := map[world.Coin]int{}
	for _, coin := range inv.Coins() {
		seen[coin]++
	}
	for _, c := range caches {
		for _, coin := range c.Coins() {
			seen[coin]++
		}
	}
	assert.Len(t, seen, want)
	for coin, n := range seen {
		assert.Equal(t, 1, n, "coin %v", coin)
	}
}

func TestReplaceAndClear(t *testing.T) {
	inv := NewInventory()
	coins := []world.Coin{{I: 1, J: 1, Serial: 0}, {I: 2, J: 2, Serial: 3}}
	inv.Replace(coins)
	coins[0].Serial = 42

	assert.Equal(t, 0, inv.Coins()[0].Serial)
	assert.Equal(t, "1:1#0, 2:2#3", inv.String())

	inv.Clear()
	assert.Zero(t, inv.Len())
	assert.Equal(t, "", inv.String())
}
