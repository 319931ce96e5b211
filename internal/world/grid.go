// Package world provides the cache grid, coin caches, and the spatial helpers
// that relate grid cells to geographic positions.
package world

import (
	"fmt"
	"math"
	"strings"
)

// GridCoord identifies a cell in the unbounded integer lattice.
// I follows latitude, J follows longitude.
type GridCoord struct {
	I int `json:"i"`
	J int `json:"j"`
}

// String returns "(i, j)".
func (c GridCoord) String() string {
	return fmt.Sprintf("(%d, %d)", c.I, c.J)
}

// Add returns c offset by d.
func (c GridCoord) Add(d GridCoord) GridCoord {
	return GridCoord{I: c.I + d.I, J: c.J + d.J}
}

// LatLng is a geographic position in degrees.
type LatLng struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// NullIsland is the world origin.
var NullIsland = LatLng{}

// Projection converts between grid cells and world positions.
// Grid indices are stored in units scaled by Scale so they stay integral
// while world coordinates are fractional.
type Projection struct {
	OriginLat   float64
	OriginLng   float64
	TileDegrees float64 // Cell edge length in degrees
	Scale       float64
}

// DefaultProjection uses 0.0001 degree cells at scale 1000.
func DefaultProjection() Projection {
	return Projection{
		TileDegrees: 0.0001,
		Scale:       1000,
	}
}

func (p Projection) cellSize() float64 {
	return p.TileDegrees * p.Scale
}

// CellCenter returns the world position of the centre of a cell.
func (p Projection) CellCenter(c GridCoord) LatLng {
	size := p.cellSize()
	return LatLng{
		Lat: (p.OriginLat + (float64(c.I)+0.5)*size) / p.Scale,
		Lng: (p.OriginLng + (float64(c.J)+0.5)*size) / p.Scale,
	}
}

// CellBounds returns the south-west and north-east corners of a cell.
func (p Projection) CellBounds(c GridCoord) (sw, ne LatLng) {
	center := p.CellCenter(c)
	half := p.TileDegrees / 2
	return LatLng{Lat: center.Lat - half, Lng: center.Lng - half},
		LatLng{Lat: center.Lat + half, Lng: center.Lng + half}
}

// ToGrid returns the cell containing a world position.
func (p Projection) ToGrid(pos LatLng) GridCoord {
	size := p.cellSize()
	return GridCoord{
		I: int(math.Floor((pos.Lat*p.Scale - p.OriginLat) / size)),
		J: int(math.Floor((pos.Lng*p.Scale - p.OriginLng) / size)),
	}
}

// Step moves a position by n tiles in the given direction.
func (p Projection) Step(pos LatLng, dir Direction, n int) LatLng {
	d := dir.Offset()
	return LatLng{
		Lat: pos.Lat + float64(d.I*n)*p.TileDegrees,
		Lng: pos.Lng + float64(d.J*n)*p.TileDegrees,
	}
}

const earthRadius = 6371000.0 // metres

// Distance returns the great-circle distance in metres between two positions.
func Distance(a, b LatLng) float64 {
	const rad = math.Pi / 180
	lat1 := a.Lat * rad
	lat2 := b.Lat * rad
	sinDLat := math.Sin((b.Lat - a.Lat) * rad / 2)
	sinDLng := math.Sin((b.Lng - a.Lng) * rad / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Direction is a cardinal movement direction.
type Direction uint8

const (
	DirUp    Direction = iota // North, +I
	DirDown                   // South, -I
	DirLeft                   // West, -J
	DirRight                  // East, +J
)

var directionNames = [...]string{"up", "down", "left", "right"}

// String returns the lowercase direction name.
func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "unknown"
}

// Offset returns the unit grid offset for the direction.
func (d Direction) Offset() GridCoord {
	switch d {
	case DirUp:
		return GridCoord{I: 1}
	case DirDown:
		return GridCoord{I: -1}
	case DirLeft:
		return GridCoord{J: -1}
	case DirRight:
		return GridCoord{J: 1}
	}
	return GridCoord{}
}

// ParseDirection accepts up/down/left/right and the compass names.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "north", "n":
		return DirUp, nil
	case "down", "south", "s":
		return DirDown, nil
	case "left", "west", "w":
		return DirLeft, nil
	case "right", "east", "e":
		return DirRight, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}
