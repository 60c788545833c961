// Package elevation decodes raster elevation tiles into a height grid and
// samples it in local projected meters.
package elevation

import (
	"fmt"
	"strings"
)

// Encoding converts one RGB raster pixel into meters above sea level
type Encoding interface {
	Name() string
	Height(r, g, b uint8) float64
}

// Encoding names accepted by ParseEncoding
const (
	EncodingMapbox    = "MAPBOX"
	EncodingTerrarium = "TERRARIUM"
)

// Mapbox is the Mapbox Terrain-RGB encoding
type Mapbox struct{}

// Name implements Encoding
func (Mapbox) Name() string { return EncodingMapbox }

// Height implements Encoding
func (Mapbox) Height(r, g, b uint8) float64 {
	return -10000.0 + (float64(r)*65536+float64(g)*256+float64(b))*0.1
}

// Terrarium is the AWS open terrain tile encoding
type Terrarium struct{}

// Name implements Encoding
func (Terrarium) Name() string { return EncodingTerrarium }

// Height implements Encoding
func (Terrarium) Height(r, g, b uint8) float64 {
	return float64(r)*256 + float64(g) + float64(b)/256.0 - 32768.0
}

// ParseEncoding selects an encoding by its configuration name
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case EncodingMapbox:
		return Mapbox{}, nil
	case EncodingTerrarium, "":
		return Terrarium{}, nil
	}
	return nil, fmt.Errorf("unknown elevation encoding %q (expected %s or %s)", name, EncodingMapbox, EncodingTerrarium)
}
