// Package mesh defines the descriptors handed to an external scene consumer.
//
// A Mesh is a plain vertex + face-index container. The builder packages
// never own or name host objects; a consumer turns each descriptor into
// whatever its host needs.
package mesh

import "fmt"

// Category classifies a mesh for the consumer
type Category string

const (
	CategoryTerrain    Category = "terrain"
	CategoryContour    Category = "contour"
	CategoryGround     Category = "ground"
	CategoryRoad       Category = "road"
	CategoryRoadCasing Category = "road_casing"
	CategoryRail       Category = "rail"
	CategoryBuilding   Category = "building"
	CategoryWater      Category = "water"
	CategoryLanduse    Category = "landuse"
	CategoryCrosswalk  Category = "crosswalk"
	CategoryPier       Category = "pier"
	CategoryTree       Category = "tree"
)

// Vec3 is a vertex position in local meters
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Mesh is a polygon soup with an identity
type Mesh struct {
	Category Category `json:"category"`
	SourceID string   `json:"source_id"`
	Vertices []Vec3   `json:"vertices"`
	Faces    [][]int  `json:"faces"`
	// Edges holds loose two-vertex edges (contour lines)
	Edges [][2]int `json:"edges,omitempty"`
}

// New creates an empty mesh
func New(category Category, sourceID string) *Mesh {
	return &Mesh{Category: category, SourceID: sourceID}
}

// SourceID formats a source identifier like "way/123"
func SourceID(kind string, id int64) string {
	return fmt.Sprintf("%s/%d", kind, id)
}

// AddVertex appends a vertex and returns its index
func (m *Mesh) AddVertex(x, y, z float64) int {
	m.Vertices = append(m.Vertices, Vec3{x, y, z})
	return len(m.Vertices) - 1
}

// AddFace appends a face made of existing vertex indices
func (m *Mesh) AddFace(idx ...int) {
	face := make([]int, len(idx))
	copy(face, idx)
	m.Faces = append(m.Faces, face)
}

// AddEdge appends a loose edge
func (m *Mesh) AddEdge(a, b int) {
	m.Edges = append(m.Edges, [2]int{a, b})
}

// Append merges another mesh's geometry into m, reindexing its faces
func (m *Mesh) Append(o *Mesh) {
	if o == nil {
		return
	}
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, o.Vertices...)
	for _, f := range o.Faces {
		nf := make([]int, len(f))
		for i, v := range f {
			nf[i] = v + base
		}
		m.Faces = append(m.Faces, nf)
	}
	for _, e := range o.Edges {
		m.Edges = append(m.Edges, [2]int{e[0] + base, e[1] + base})
	}
}

// Empty reports whether the mesh has no geometry
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Vertices) == 0
}

// Bounds returns the axis-aligned bounds of the vertices
func (m *Mesh) Bounds() (min, max Vec3) {
	if m.Empty() {
		return Vec3{}, Vec3{}
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		min.X, max.X = minf(min.X, v.X), maxf(max.X, v.X)
		min.Y, max.Y = minf(min.Y, v.Y), maxf(max.Y, v.Y)
		min.Z, max.Z = minf(min.Z, v.Z), maxf(max.Z, v.Z)
	}
	return min, max
}

// Validate checks that every face and edge references an existing vertex
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		if len(f) < 3 {
			return fmt.Errorf("face %d has %d vertices", i, len(f))
		}
		for _, v := range f {
			if v < 0 || v >= n {
				return fmt.Errorf("face %d references vertex %d of %d", i, v, n)
			}
		}
	}
	for i, e := range m.Edges {
		if e[0] < 0 || e[0] >= n || e[1] < 0 || e[1] >= n {
			return fmt.Errorf("edge %d references vertex outside 0..%d", i, n-1)
		}
	}
	return nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
