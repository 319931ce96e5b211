package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectionRoundTrip(t *testing.T) {
	p := DefaultProjection()
	coords := []GridCoord{{0, 0}, {-1, -1}, {2, -3}, {1234, -5678}, {-90000, 17}}

	for _, c := range coords {
		assert.Equal(t, c, p.ToGrid(p.CellCenter(c)), "coord %v", c)
	}
}

func TestProjectionCellCenter(t *testing.T) {
	p := DefaultProjection()
	center := p.CellCenter(GridCoord{})
	assert.InDelta(t, 0.00005, center.Lat, 1e-12)
	assert.InDelta(t, 0.00005, center.Lng, 1e-12)

	center = p.CellCenter(GridCoord{I: -1, J: 10})
	assert.InDelta(t, -0.00005, center.Lat, 1e-12)
	assert.InDelta(t, 0.00105, center.Lng, 1e-12)
}

func TestProjectionCellBounds(t *testing.T) {
	p := DefaultProjection()
	sw, ne := p.CellBounds(GridCoord{I: 1, J: 1})
	assert.InDelta(t, 0.0001, sw.Lat, 1e-12)
	assert.InDelta(t, 0.0002, ne.Lng, 1e-12)
}

func TestProjectionStep(t *testing.T) {
	p := DefaultProjection()
	pos := p.Step(NullIsland, DirUp, 1)
	assert.InDelta(t, 0.0001, pos.Lat, 1e-12)
	pos = p.Step(pos, DirLeft, 3)
	assert.InDelta(t, -0.0003, pos.Lng, 1e-12)
}

func TestDistance(t *testing.T) {
	d := Distance(NullIsland, LatLng{Lat: 0.0001})
	assert.InDelta(t, 11.1195, d, 0.001)
	assert.Zero(t, Distance(LatLng{Lat: 12, Lng: 34}, LatLng{Lat: 12, Lng: 34}))
	assert.InDelta(t, Distance(LatLng{1, 2}, LatLng{3, 4}), Distance(LatLng{3, 4}, LatLng{1, 2}), 1e-9)
}

func TestViewportBoundaryIsInclusiveAndStable(t *testing.T) {
	p := DefaultProjection()
	player := LatLng{Lat: 0.00012, Lng: -0.00031}
	c := NewCache(GridCoord{I: 5, J: 4})

	exact := Distance(player, p.CellCenter(c.Coord))
	v := NewViewport(p, exact)

	for i := 0; i < 5; i++ {
		require.True(t, v.IsVisible(c, player))
	}

	tighter := NewViewport(p, exact*(1-1e-9))
	assert.False(t, tighter.IsVisible(c, player))
}

func TestViewportDefaultRadius(t *testing.T) {
	v := NewViewport(DefaultProjection(), DefaultViewRadius)

	// About 11.1 m per cell: 10 cells is in view, 11 is not.
	assert.True(t, v.Contains(GridCoord{I: 10}, NullIsland))
	assert.False(t, v.Contains(GridCoord{I: 11}, NullIsland))
	assert.False(t, v.Contains(GridCoord{I: 8, J: 8}, NullIsland))
}

func TestViewportPartitionAndVisible(t *testing.T) {
	r := NewRegistry()
	near := r.GetOrCreate(GridCoord{I: 1, J: 1})
	far := r.GetOrCreate(GridCoord{I: 100, J: 0})
	near2 := r.GetOrCreate(GridCoord{I: -2, J: 0})

	v := NewViewport(DefaultProjection(), DefaultViewRadius)
	in, out := v.Partition(r.All(), NullIsland)

	assert.Equal(t, []*Cache{near, near2}, in)
	assert.Equal(t, []*Cache{far}, out)
	assert.Equal(t, in, v.Visible(r, NullIsland))
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{
		"up": DirUp, "North": DirUp, " down ": DirDown, "w": DirLeft, "RIGHT": DirRight,
	} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
	assert.Equal(t, "left", DirLeft.String())
}
