package vegetation

import (
	"math"
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/NERVsystems/osmterrain/pkg/mesh"
)

// Span is a closed [Min, Max] parameter range
type Span struct{ Min, Max float64 }

// Model holds the size ranges of one species, in meters at scale 1
type Model struct {
	TrunkHeight Span
	TrunkRadius Span
	CrownRadius Span
	CrownHeight Span
	Branches    Span // crown subdivisions: fronds for palms, facets otherwise
}

// DefaultModels returns the stock size ranges per species
func DefaultModels() map[Species]Model {
	return map[Species]Model{
		Oak: {
			TrunkHeight: Span{8, 15}, TrunkRadius: Span{0.3, 0.6},
			CrownRadius: Span{4, 8}, CrownHeight: Span{6, 12}, Branches: Span{5, 8},
		},
		Pine: {
			TrunkHeight: Span{12, 25}, TrunkRadius: Span{0.2, 0.4},
			CrownRadius: Span{2, 4}, CrownHeight: Span{8, 18}, Branches: Span{8, 12},
		},
		Birch: {
			TrunkHeight: Span{6, 12}, TrunkRadius: Span{0.15, 0.25},
			CrownRadius: Span{3, 6}, CrownHeight: Span{4, 8}, Branches: Span{6, 10},
		},
		Palm: {
			TrunkHeight: Span{8, 18}, TrunkRadius: Span{0.3, 0.5},
			CrownRadius: Span{3, 6}, CrownHeight: Span{2, 4}, Branches: Span{6, 12},
		},
	}
}

const (
	trunkSides = 8
	crownRings = 4
	crownSides = 8
	coneTip    = 0.1
)

// Synthesizer turns placed objects into tree meshes
type Synthesizer struct {
	Models map[Species]Model
	// Variation is the relative random spread applied to every dimension
	Variation float64
}

// NewSynthesizer returns a synthesizer with the stock models
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{Models: DefaultModels(), Variation: 0.2}
}

// Tree builds one tree: a trunk cylinder standing on the object's
// position and a species-shaped crown on top (a flattened sphere for
// broadleaf trees, a cone for pines, a ring of fronds for palms).
// Unknown species are drawn as oaks.
func (s *Synthesizer) Tree(obj PlacedObject, rng *rand.Rand) *mesh.Mesh {
	model, ok := s.Models[obj.Species]
	if !ok {
		model = s.Models[Oak]
	}
	vary := func(sp Span) float32 {
		base := uniform(rng, sp.Min, sp.Max)
		return float32(base * (1 + uniform(rng, -s.Variation, s.Variation)) * obj.Scale)
	}

	trunkHeight := vary(model.TrunkHeight)
	trunkRadius := vary(model.TrunkRadius)
	crownRadius := vary(model.CrownRadius)
	crownHeight := vary(model.CrownHeight)
	branches := max(int(vary(model.Branches)), 3)

	base := vec(obj.Position)
	m := mesh.New(mesh.CategoryTree, obj.Source)
	m.Append(frustum(base, trunkRadius, trunkRadius, trunkHeight, trunkSides))

	top := base
	top.z += trunkHeight
	switch obj.Species {
	case Pine:
		m.Append(frustum(top, crownRadius, coneTip, crownHeight, branches))
	case Palm:
		m.Append(fronds(top, crownRadius, branches, rng))
	default:
		centre := top
		centre.z += crownHeight / 3
		m.Append(spheroid(centre, crownRadius, crownHeight/2, crownRings, max(branches, crownSides)))
	}
	return m
}

// Trees synthesises a mesh for every object
func (s *Synthesizer) Trees(objs []PlacedObject, rng *rand.Rand) []*mesh.Mesh {
	out := make([]*mesh.Mesh, 0, len(objs))
	for _, o := range objs {
		out = append(out, s.Tree(o, rng))
	}
	return out
}

type v3 struct{ x, y, z float32 }

func vec(p mesh.Vec3) v3 { return v3{float32(p.X), float32(p.Y), float32(p.Z)} }

func add(m *mesh.Mesh, p v3) int {
	return m.AddVertex(float64(p.x), float64(p.y), float64(p.z))
}

// frustum is a closed truncated cone from r0 at base to r1 at base+h
func frustum(base v3, r0, r1, h float32, sides int) *mesh.Mesh {
	m := &mesh.Mesh{}
	bottom := make([]int, sides)
	top := make([]int, sides)
	for i := 0; i < sides; i++ {
		sin, cos := math32.Sincos(2 * math.Pi * float32(i) / float32(sides))
		bottom[sides-1-i] = add(m, v3{base.x + r0*cos, base.y + r0*sin, base.z})
		top[i] = add(m, v3{base.x + r1*cos, base.y + r1*sin, base.z + h})
	}
	for i := 0; i < sides; i++ {
		k := (i + 1) % sides
		m.AddFace(2*i, 2*k, 2*k+1, 2*i+1)
	}
	m.AddFace(bottom...)
	m.AddFace(top...)
	return m
}

// spheroid is a UV sphere of horizontal radius r and vertical radius rz
func spheroid(c v3, r, rz float32, rings, sides int) *mesh.Mesh {
	m := &mesh.Mesh{}
	south := add(m, v3{c.x, c.y, c.z - rz})
	for ring := 1; ring < rings; ring++ {
		sinPhi, cosPhi := math32.Sincos(math.Pi * float32(ring) / float32(rings))
		for i := 0; i < sides; i++ {
			sin, cos := math32.Sincos(2 * math.Pi * float32(i) / float32(sides))
			add(m, v3{c.x + r*sinPhi*cos, c.y + r*sinPhi*sin, c.z - rz*cosPhi})
		}
	}
	north := add(m, v3{c.x, c.y, c.z + rz})

	at := func(ring, i int) int { return 1 + (ring-1)*sides + i%sides }
	for i := 0; i < sides; i++ {
		m.AddFace(south, at(1, i+1), at(1, i))
		for ring := 1; ring < rings-1; ring++ {
			m.AddFace(at(ring, i), at(ring, i+1), at(ring+1, i+1), at(ring+1, i))
		}
		m.AddFace(at(rings-1, i), at(rings-1, i+1), north)
	}
	return m
}

// fronds is a fan of flat leaves radiating from the trunk top
func fronds(top v3, r float32, n int, rng *rand.Rand) *mesh.Mesh {
	const halfWidth = 0.15
	m := &mesh.Mesh{}
	for i := 0; i < n; i++ {
		angle := 2*math.Pi*float32(i)/float32(n) + float32(uniform(rng, -0.3, 0.3))
		length := r * float32(uniform(rng, 0.8, 1.2))
		sin, cos := math32.Sincos(angle)
		// tangent across the frond
		tx, ty := -sin*halfWidth, cos*halfWidth
		tip := v3{top.x + cos*length, top.y + sin*length, top.z - length*0.25}

		a := add(m, v3{top.x + tx, top.y + ty, top.z})
		b := add(m, v3{tip.x + tx, tip.y + ty, tip.z})
		c := add(m, v3{tip.x - tx, tip.y - ty, tip.z})
		d := add(m, v3{top.x - tx, top.y - ty, top.z})
		m.AddFace(a, d, c, b)
	}
	return m
}
