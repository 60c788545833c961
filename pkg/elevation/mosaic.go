package elevation

import (
	"errors"
	"fmt"
	"image"

	"github.com/paulmach/orb/maptile"
	"golang.org/x/image/draw"
)

var (
	// ErrNoTiles is returned when a mosaic is requested from an empty tile set
	ErrNoTiles = errors.New("no elevation tiles")

	// ErrMissingTile is returned when a tile of the range was not supplied
	ErrMissingTile = errors.New("missing elevation tile")

	// ErrTileSize is returned when tiles of one range differ in size
	ErrTileSize = errors.New("elevation tiles differ in size")
)

// Mosaic pastes the decoded tiles of a range into one raster, row-major,
// the north-west tile at the origin. All tiles must share one size.
func Mosaic(tiles map[maptile.Tile]image.Image, rng TileRange) (*image.RGBA, error) {
	if len(tiles) == 0 {
		return nil, ErrNoTiles
	}

	first, ok := tiles[maptile.New(rng.MinX, rng.MinY, rng.Zoom)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTile, TileKey(maptile.New(rng.MinX, rng.MinY, rng.Zoom)))
	}
	tw, th := first.Bounds().Dx(), first.Bounds().Dy()
	if tw == 0 || th == 0 {
		return nil, fmt.Errorf("%w: empty first tile", ErrTileSize)
	}

	dst := image.NewRGBA(image.Rect(0, 0, rng.Width()*tw, rng.Height()*th))
	for _, t := range rng.Tiles() {
		img, ok := tiles[t]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingTile, TileKey(t))
		}
		b := img.Bounds()
		if b.Dx() != tw || b.Dy() != th {
			return nil, fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrTileSize, TileKey(t), b.Dx(), b.Dy(), tw, th)
		}

		col, row := int(t.X-rng.MinX), int(t.Y-rng.MinY)
		r := image.Rect(col*tw, row*th, (col+1)*tw, (row+1)*th)
		draw.Draw(dst, r, img, b.Min, draw.Src)
	}
	return dst, nil
}
