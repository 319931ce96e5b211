// Package player holds the coins a player carries.
package player

import (
	"strings"

	"github.com/talgya/geocoin/internal/world"
)

// Inventory is a stack of coins: the last coin collected is the first deposited.
type Inventory struct {
	coins []world.Coin
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{}
}

// Coins returns a copy of the carried coins, oldest first.
func (inv *Inventory) Coins() []world.Coin {
	out := make([]world.Coin, len(inv.coins))
	copy(out, inv.coins)
	return out
}

// Len returns the number of carried coins.
func (inv *Inventory) Len() int {
	return len(inv.coins)
}

// Clear empties the inventory.
func (inv *Inventory) Clear() {
	inv.coins = nil
}

// Replace overwrites the inventory with a restored coin list.
func (inv *Inventory) Replace(coins []world.Coin) {
	inv.coins = append([]world.Coin(nil), coins...)
}

// Collect moves the top coin of cache onto the inventory.
// Returns false when the cache is empty.
func (inv *Inventory) Collect(cache *world.Cache) bool {
	coin, ok := cache.Take()
	if !ok {
		return false
	}
	inv.coins = append(inv.coins, coin)
	return true
}

// Deposit moves the top inventory coin into cache.
// Returns false when the inventory is empty or the cache has not been minted
// yet; minting later would stack fresh coins on top of the deposit.
func (inv *Inventory) Deposit(cache *world.Cache) bool {
	n := len(inv.coins)
	if n == 0 || !cache.Populated() {
		return false
	}
	coin := inv.coins[n-1]
	inv.coins = inv.coins[:n-1]
	cache.Put(coin)
	return true
}

// String lists the carried coins as the status panel shows them.
func (inv *Inventory) String() string {
	parts := make([]string, len(inv.coins))
	for i, c := range inv.coins {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
