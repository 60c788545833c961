package vegetation

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"

	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/features"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
	"github.com/NERVsystems/osmterrain/pkg/osm"
)

// PlacedObject is one tree instance in local meters
type PlacedObject struct {
	Species  Species   `json:"species"`
	Position mesh.Vec3 `json:"position"`
	Scale    float64   `json:"scale"`
	Source   string    `json:"source,omitempty"`
}

// Placer scatters trees over areas and along roads. All randomness comes
// from the generator passed to each call, so identical inputs and seed
// give identical output.
type Placer struct {
	Rules map[osm.AreaType]Rule

	// Density scales every rule's density
	Density float64
	// SlopeLimit rejects candidates on steeper ground. The limit itself is
	// inclusive: a slope equal to it is accepted. +Inf disables the test.
	SlopeLimit float64
	// ZOffset is added to the sampled ground height
	ZOffset float64

	ScaleMin, ScaleMax float64

	Street StreetOptions

	Logger *slog.Logger
}

// StreetOptions controls street-tree placement
type StreetOptions struct {
	Classes            []string  // highway values that get street trees
	Species            []Species // chosen uniformly
	Spacing            float64
	Setback            float64 // distance beyond the road edge
	ScaleMin, ScaleMax float64
}

// NewPlacer returns a placer with the stock rules
func NewPlacer() *Placer {
	return &Placer{
		Rules:      DefaultRules(),
		Density:    0.5,
		SlopeLimit: 0.3,
		ScaleMin:   0.7,
		ScaleMax:   1.3,
		Street: StreetOptions{
			Classes:  []string{"residential", "tertiary", "secondary"},
			Species:  []Species{Oak, Birch},
			Spacing:  15,
			Setback:  2,
			ScaleMin: 0.8,
			ScaleMax: 1.2,
		},
	}
}

func (p *Placer) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Placer) rule(t osm.AreaType) Rule {
	if r, ok := p.Rules[t]; ok {
		return r
	}
	return p.Rules[FallbackArea]
}

// PlaceInAreas scatters trees over each area using its type's rule. Each
// ring's bounding box is cut into cells of the rule spacing; every cell
// yields one jittered candidate, kept when it lies inside the ring, wins
// the density draw and stands on ground no steeper than the slope limit.
func (p *Placer) PlaceInAreas(areas []osm.Area, field elevation.Field, rng *rand.Rand) []PlacedObject {
	var out []PlacedObject
	for _, a := range areas {
		placed := p.placeInRing(a.Ring, p.rule(a.Type), field, rng)
		for i := range placed {
			placed[i].Source = a.SourceID()
		}
		out = append(out, placed...)
	}
	p.logger().Debug("trees placed in areas", "areas", len(areas), "trees", len(out))
	return out
}

func (p *Placer) placeInRing(ring orb.Ring, rule Rule, field elevation.Field, rng *rand.Rand) []PlacedObject {
	if len(ring) < 4 || !(rule.Spacing > 0) || len(rule.Species) == 0 {
		return nil
	}

	b := orb.MultiPoint(osm.OpenRing(ring)).Bound()
	spacing := rule.Spacing
	nx := int((b.Max[0]-b.Min[0])/spacing) + 1
	ny := int((b.Max[1]-b.Min[1])/spacing) + 1
	density := rule.Density * p.Density

	var out []PlacedObject
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			x := b.Min[0] + (float64(i)+uniform(rng, 0.2, 0.8))*spacing
			y := b.Min[1] + (float64(j)+uniform(rng, 0.2, 0.8))*spacing

			if !PointInRing(orb.Point{x, y}, ring) {
				continue
			}
			if rng.Float64() >= density {
				continue
			}
			if field.Slope(x, y) > p.SlopeLimit {
				continue
			}

			out = append(out, PlacedObject{
				Species:  rule.Species[rng.IntN(len(rule.Species))],
				Position: mesh.Vec3{X: x, Y: y, Z: field.Sample(x, y) + p.ZOffset},
				Scale:    uniform(rng, p.ScaleMin, p.ScaleMax),
			})
		}
	}
	return out
}

// PlaceAlongRoads lines both sides of qualifying roads with trees every
// Street.Spacing meters, set back from the road edge. Positions advance
// along each segment and the leftover distance carries to the next one.
func (p *Placer) PlaceAlongRoads(roads []osm.Line, field elevation.Field, rng *rand.Rand) []PlacedObject {
	opts := p.Street
	if !(opts.Spacing > 0) || len(opts.Species) == 0 {
		return nil
	}
	classes := make(map[string]bool, len(opts.Classes))
	for _, c := range opts.Classes {
		classes[c] = true
	}

	var out []PlacedObject
	for _, road := range roads {
		if !classes[road.Kind] || len(road.Points) < 2 {
			continue
		}
		pts := road.Points
		norms := features.Normals(pts)
		offset := road.HalfWidth + opts.Setback

		for _, side := range []float64{-1, 1} {
			acc := 0.0
			for i := 0; i < len(pts)-1; i++ {
				a, b := pts[i], pts[i+1]
				za, zb := field.Sample(a[0], a[1]), field.Sample(b[0], b[1])
				n := norms[i]
				seg := math.Hypot(b[0]-a[0], b[1]-a[1])

				for acc < seg {
					t := acc / seg
					out = append(out, PlacedObject{
						Species: opts.Species[rng.IntN(len(opts.Species))],
						Position: mesh.Vec3{
							X: a[0] + t*(b[0]-a[0]) + side*offset*n[0],
							Y: a[1] + t*(b[1]-a[1]) + side*offset*n[1],
							Z: za + t*(zb-za) + p.ZOffset,
						},
						Scale:  uniform(rng, opts.ScaleMin, opts.ScaleMax),
						Source: mesh.SourceID(osm.TypeWay, road.ID),
					})
					acc += opts.Spacing
				}
				acc -= seg
			}
		}
	}
	p.logger().Debug("street trees placed", "roads", len(roads), "trees", len(out))
	return out
}

// PointInRing is an odd-even ray cast. The ring's closing point is not
// visited twice. Points exactly on an edge may fall either way.
func PointInRing(pt orb.Point, ring orb.Ring) bool {
	pts := osm.OpenRing(ring)
	n := len(pts)
	if n < 3 {
		return false
	}
	x, y := pt[0], pt[1]
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := pts[i][0], pts[i][1]
		xj, yj := pts[j][0], pts[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}
