package elevation

import (
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/NERVsystems/osmterrain/pkg/geo"
)

// DefaultZoom is the slippy-map zoom used for elevation tiles
const DefaultZoom maptile.Zoom = 14

// TileRange is an inclusive block of slippy tiles at one zoom level
type TileRange struct {
	Zoom maptile.Zoom `json:"zoom"`
	MinX uint32       `json:"min_x"`
	MinY uint32       `json:"min_y"`
	MaxX uint32       `json:"max_x"`
	MaxY uint32       `json:"max_y"`
}

// Width returns the number of tile columns
func (r TileRange) Width() int { return int(r.MaxX-r.MinX) + 1 }

// Height returns the number of tile rows
func (r TileRange) Height() int { return int(r.MaxY-r.MinY) + 1 }

// Count returns the number of tiles in the range
func (r TileRange) Count() int { return r.Width() * r.Height() }

// Tiles lists the range row by row, north to south, west to east
func (r TileRange) Tiles() []maptile.Tile {
	tiles := make([]maptile.Tile, 0, r.Count())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			tiles = append(tiles, maptile.New(x, y, r.Zoom))
		}
	}
	return tiles
}

// Contains reports whether a tile belongs to the range
func (r TileRange) Contains(t maptile.Tile) bool {
	return t.Z == r.Zoom && t.X >= r.MinX && t.X <= r.MaxX && t.Y >= r.MinY && t.Y <= r.MaxY
}

// Window locates a world bounding box inside a tile range. The edges are
// fractional tile coordinates at the range's zoom, y growing southward.
type Window struct {
	Bound orb.Bound // local meters

	West, North float64
	East, South float64
}

// TilesFor returns the tiles covering a square world bbox around the
// projector's anchor, and the bbox's position within them.
func TilesFor(bound orb.Bound, proj geo.Projector, zoom maptile.Zoom) (TileRange, Window) {
	// upper-left and lower-right corners
	latUL, lonUL := proj.Unproject(orb.Point{bound.Min[0], bound.Max[1]})
	latLR, lonLR := proj.Unproject(orb.Point{bound.Max[0], bound.Min[1]})

	ul := maptile.Fraction(orb.Point{lonUL, latUL}, zoom)
	lr := maptile.Fraction(orb.Point{lonLR, latLR}, zoom)

	w := Window{
		Bound: bound,
		West:  math.Min(ul[0], lr[0]),
		East:  math.Max(ul[0], lr[0]),
		North: math.Min(ul[1], lr[1]),
		South: math.Max(ul[1], lr[1]),
	}

	r := TileRange{
		Zoom: zoom,
		MinX: clampTile(w.West, zoom),
		MaxX: clampTile(w.East, zoom),
		MinY: clampTile(w.North, zoom),
		MaxY: clampTile(w.South, zoom),
	}
	return r, w
}

// clampTile keeps a fractional tile coordinate within the zoom's index range
func clampTile(f float64, zoom maptile.Zoom) uint32 {
	maxIndex := math.Exp2(float64(zoom)) - 1
	return uint32(math.Max(0, math.Min(maxIndex, math.Floor(f))))
}

// TileInfo describes one tile of a range
type TileInfo struct {
	Zoom      int     `json:"zoom"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	NorthLat  float64 `json:"north_lat"`
	SouthLat  float64 `json:"south_lat"`
	EastLon   float64 `json:"east_lon"`
	WestLon   float64 `json:"west_lon"`
	PixelSize float64 `json:"pixel_size_meters"` // approximate meters per pixel at the tile center
	MapScale  string  `json:"map_scale"`
}

// Info returns bounds and approximate resolution for every tile of the range
func (r TileRange) Info() []TileInfo {
	tiles := r.Tiles()
	infos := make([]TileInfo, 0, len(tiles))
	for _, t := range tiles {
		b := t.Bound()
		centerLat := (b.Min[1] + b.Max[1]) / 2

		// 256 px tiles, 96 DPI
		metersPerPixel := 156543.03 * math.Cos(centerLat*math.Pi/180) / math.Exp2(float64(t.Z))
		mapScale := metersPerPixel / 0.00026

		infos = append(infos, TileInfo{
			Zoom:      int(t.Z),
			X:         int(t.X),
			Y:         int(t.Y),
			NorthLat:  b.Max[1],
			SouthLat:  b.Min[1],
			EastLon:   b.Max[0],
			WestLon:   b.Min[0],
			PixelSize: metersPerPixel,
			MapScale:  "1:" + strconv.FormatInt(int64(math.Round(mapScale)), 10),
		})
	}
	return infos
}

// TileKey formats a tile as z/x/y
func TileKey(t maptile.Tile) string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}
