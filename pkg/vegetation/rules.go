// Package vegetation scatters trees over land-use areas and along
// streets, and synthesises simple tree meshes for them.
package vegetation

import "github.com/NERVsystems/osmterrain/pkg/osm"

// Species names a tree model
type Species string

const (
	Oak   Species = "oak"
	Pine  Species = "pine"
	Birch Species = "birch"
	Palm  Species = "palm"
)

// Rule controls placement inside one area type
type Rule struct {
	Density float64   `yaml:"density" json:"density"`
	Species []Species `yaml:"species" json:"species"`
	Spacing float64   `yaml:"spacing" json:"spacing"` // grid cell size in meters
}

// DefaultRules returns the placement rules per area type
func DefaultRules() map[osm.AreaType]Rule {
	return map[osm.AreaType]Rule{
		osm.AreaForest:      {Density: 0.8, Species: []Species{Oak, Pine, Birch}, Spacing: 3},
		osm.AreaPark:        {Density: 0.3, Species: []Species{Oak, Birch}, Spacing: 8},
		osm.AreaResidential: {Density: 0.1, Species: []Species{Oak, Birch}, Spacing: 12},
		osm.AreaWaterEdge:   {Density: 0.4, Species: []Species{Birch}, Spacing: 4},
		osm.AreaTropical:    {Density: 0.6, Species: []Species{Palm}, Spacing: 5},
	}
}

// FallbackArea is the rule used for area types without their own rule
const FallbackArea = osm.AreaPark
