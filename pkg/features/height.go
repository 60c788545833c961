package features

import (
	"strconv"
	"strings"
)

// ParseHeight returns a building's extrusion height in meters. The
// height tag is read keeping only digits and dots, so "12 m" and "12m"
// both give 12. Without a usable positive height it falls back to
// building:levels times the level height, then to the default height.
func (o Options) ParseHeight(tags map[string]string) float64 {
	if v, ok := tags["height"]; ok {
		digits := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' {
				return r
			}
			return -1
		}, v)
		if h, err := strconv.ParseFloat(digits, 64); err == nil && h > 0 {
			return h
		}
	}
	if v, ok := tags["building:levels"]; ok {
		if levels, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			if h := levels * o.LevelHeight; h != 0 {
				return h
			}
		}
	}
	return o.DefaultHeight
}
