package elevation

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// Decode converts a tile mosaic into an N×N height grid covering the
// window's world bbox. Every mosaic pixel is decoded to meters first and
// the heights are then bilinearly resampled, so interpolation never
// mixes encoded channels. Grid corners land on the window corners.
func Decode(mosaic image.Image, rng TileRange, window Window, enc Encoding, resolution int) (*Grid, error) {
	if enc == nil {
		return nil, errors.New("elevation encoding is required")
	}
	if resolution < 2 {
		return nil, fmt.Errorf("terrain resolution must be at least 2, got %d", resolution)
	}
	b := mosaic.Bounds()
	if b.Empty() {
		return nil, ErrNoTiles
	}

	heights := decodePixels(mosaic, enc)
	w, h := b.Dx(), b.Dy()

	// window edges in mosaic pixels
	tileW := float64(w) / float64(rng.Width())
	tileH := float64(h) / float64(rng.Height())
	west := (window.West - float64(rng.MinX)) * tileW
	east := (window.East - float64(rng.MinX)) * tileW
	north := (window.North - float64(rng.MinY)) * tileH
	south := (window.South - float64(rng.MinY)) * tileH

	grid := make([][]float64, resolution)
	last := float64(resolution - 1)
	for j := range grid {
		row := make([]float64, resolution)
		// row 0 is the south edge; raster rows grow southward
		py := south - float64(j)/last*(south-north)
		for i := range row {
			px := west + float64(i)/last*(east-west)
			row[i] = bilinear(heights, w, h, px, py)
		}
		grid[j] = row
	}

	return NewGrid(grid, window.Bound, enc.Name())
}

// decodePixels returns row-major heights, raster row 0 north
func decodePixels(img image.Image, enc Encoding) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)

	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := rgba.RGBAAt(b.Min.X+x, b.Min.Y+y)
				out[y*w+x] = enc.Height(c.R, c.G, c.B)
			}
		}
		return out
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			out[y*w+x] = enc.Height(c.R, c.G, c.B)
		}
	}
	return out
}

// bilinear samples a height raster at continuous pixel coordinates,
// pixel centres at +0.5, clamped at the raster edge
func bilinear(heights []float64, w, h int, px, py float64) float64 {
	fx := clamp(px-0.5, 0, float64(w-1))
	fy := clamp(py-0.5, 0, float64(h-1))

	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	tx, ty := fx-float64(x0), fy-float64(y0)

	e0 := heights[y0*w+x0]*(1-tx) + heights[y0*w+x1]*tx
	e1 := heights[y1*w+x0]*(1-tx) + heights[y1*w+x1]*tx
	return e0*(1-ty) + e1*ty
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
