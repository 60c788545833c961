// Package osm turns raw OpenStreetMap elements into classified,
// projected features ready for mesh generation.
package osm

import "strings"

// Element types
const (
	TypeNode     = "node"
	TypeWay      = "way"
	TypeRelation = "relation"
)

// Element is one node, way or relation in Overpass JSON form
type Element struct {
	ID      int64             `json:"id"`
	Type    string            `json:"type"`
	Lat     float64           `json:"lat,omitempty"`
	Lon     float64           `json:"lon,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
	Nodes   []int64           `json:"nodes,omitempty"`   // For ways, list of node IDs
	Members []Member          `json:"members,omitempty"` // For relations
}

// Member is a relation member reference
type Member struct {
	Type string `json:"type"`
	Ref  int64  `json:"ref"`
	Role string `json:"role"`
}

// Response is the top-level Overpass JSON document
type Response struct {
	Version   float64   `json:"version,omitempty"`
	Generator string    `json:"generator,omitempty"`
	Elements  []Element `json:"elements"`
}

// Tag returns the value of a tag, or "" when absent
func (e Element) Tag(key string) string {
	return e.Tags[key]
}

// HasTag reports whether the tag key is present
func (e Element) HasTag(key string) bool {
	_, ok := e.Tags[key]
	return ok
}

// truthy matches the OSM conventions for yes-valued boolean tags
func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "true", "1":
		return true
	}
	return false
}
