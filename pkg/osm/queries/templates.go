// Package queries builds Overpass QL queries for scene layers.
package queries

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTimeout is the Overpass server-side timeout in seconds
const DefaultTimeout = 120

// OverpassBuilder provides a fluent interface for building Overpass
// queries that select elements around a point. The result recurses down
// to member nodes so ways and relations can be resolved.
type OverpassBuilder struct {
	timeout  int
	around   string
	elements []string
}

// NewOverpassBuilder creates a builder selecting within radius meters of lat/lon
func NewOverpassBuilder(lat, lon, radius float64) *OverpassBuilder {
	return &OverpassBuilder{
		timeout: DefaultTimeout,
		around:  fmt.Sprintf("(around:%s,%s,%s)", num(radius), num(lat), num(lon)),
	}
}

// WithTimeout sets the server-side timeout
func (b *OverpassBuilder) WithTimeout(seconds int) *OverpassBuilder {
	b.timeout = seconds
	return b
}

// WithNode adds a node filter
func (b *OverpassBuilder) WithNode(key, value string) *OverpassBuilder {
	return b.add("node", key, value)
}

// WithWay adds a way filter
func (b *OverpassBuilder) WithWay(key, value string) *OverpassBuilder {
	return b.add("way", key, value)
}

// WithRelation adds a relation filter
func (b *OverpassBuilder) WithRelation(key, value string) *OverpassBuilder {
	return b.add("relation", key, value)
}

// Empty reports whether no filter was added
func (b *OverpassBuilder) Empty() bool {
	return len(b.elements) == 0
}

// Build returns the complete Overpass query string
func (b *OverpassBuilder) Build() string {
	var q strings.Builder
	fmt.Fprintf(&q, "[out:json][timeout:%d];(", b.timeout)
	for _, e := range b.elements {
		q.WriteString(e)
	}
	q.WriteString(");out body; >; out skel qt;")
	return q.String()
}

func (b *OverpassBuilder) add(kind, key, value string) *OverpassBuilder {
	filter := fmt.Sprintf("[%q]", key)
	if value != "" {
		filter = fmt.Sprintf("[%q=%q]", key, value)
	}
	b.elements = append(b.elements, kind+filter+b.around+";")
	return b
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Layers selects which feature groups a scene query fetches
type Layers struct {
	Water     bool
	Landuse   bool
	Roads     bool
	Rail      bool
	Buildings bool
	Crossings bool
}

// SceneQuery builds the query for the enabled layers. It returns false
// when no layer is enabled.
func SceneQuery(lat, lon, radius float64, layers Layers) (string, bool) {
	b := NewOverpassBuilder(lat, lon, radius)
	if layers.Water {
		b.WithWay("natural", "water").
			WithRelation("natural", "water").
			WithWay("waterway", "riverbank").
			WithRelation("waterway", "riverbank")
	}
	if layers.Landuse {
		b.WithWay("leisure", "park").
			WithWay("landuse", "grass").
			WithWay("landuse", "forest").
			WithWay("natural", "wood").
			WithWay("leisure", "pitch")
	}
	if layers.Roads {
		b.WithWay("highway", "")
	}
	if layers.Rail {
		b.WithWay("railway", "")
	}
	if layers.Buildings {
		b.WithWay("building", "").WithRelation("building", "")
	}
	if layers.Crossings {
		b.WithNode("highway", "crossing")
	}
	if b.Empty() {
		return "", false
	}
	return b.Build(), true
}
