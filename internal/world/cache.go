package world

import "fmt"

// Coin is a collectible minted in a cache cell. Its identity is the
// (I, J, Serial) tuple and never changes as it moves between owners.
type Coin struct {
	I      int `json:"i"`
	J      int `json:"j"`
	Serial int `json:"serial"`
}

// Origin returns the cell the coin was minted in.
func (c Coin) Origin() GridCoord {
	return GridCoord{I: c.I, J: c.J}
}

// String returns the display form "i:j#serial".
func (c Coin) String() string {
	return fmt.Sprintf("%d:%d#%d", c.I, c.J, c.Serial)
}

// Cache is a grid cell holding coins. It is created empty and populated
// once, either by minting or by restoring a saved coin list.
type Cache struct {
	Coord GridCoord

	coins     []Coin
	populated bool
}

// NewCache returns an empty, unpopulated cache.
func NewCache(coord GridCoord) *Cache {
	return &Cache{Coord: coord}
}

// Populated reports whether the coin list has been minted or restored.
func (c *Cache) Populated() bool {
	return c.populated
}

// Coins returns a copy of the coin list, bottom of the stack first.
func (c *Cache) Coins() []Coin {
	out := make([]Coin, len(c.coins))
	copy(out, c.coins)
	return out
}

// Len returns the number of coins held.
func (c *Cache) Len() int {
	return len(c.coins)
}

// Restore replaces the coin list and marks the cache populated.
func (c *Cache) Restore(coins []Coin) {
	c.coins = append([]Coin(nil), coins...)
	c.populated = true
}

// mint appends coins with serials 0..count-1 and marks the cache populated.
func (c *Cache) mint(count int) {
	for serial := 0; serial < count; serial++ {
		c.coins = append(c.coins, Coin{I: c.Coord.I, J: c.Coord.J, Serial: serial})
	}
	c.populated = true
}

// Take pops the top coin. Only inventory transfers call this.
func (c *Cache) Take() (Coin, bool) {
	n := len(c.coins)
	if n == 0 {
		return Coin{}, false
	}
	coin := c.coins[n-1]
	c.coins = c.coins[:n-1]
	return coin, true
}

// Put pushes a coin onto the cache. Only inventory transfers call this.
func (c *Cache) Put(coin Coin) {
	c.coins = append(c.coins, coin)
}
