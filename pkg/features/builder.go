package features

import (
	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
	"github.com/NERVsystems/osmterrain/pkg/osm"
)

// Builder turns resolved features into categorised meshes
type Builder struct {
	Options Options
	Field   elevation.Field
}

// NewBuilder creates a builder sampling heights from field
func NewBuilder(opts Options, field elevation.Field) *Builder {
	if field == nil {
		field = elevation.Unavailable(nil)
	}
	return &Builder{Options: opts, Field: field}
}

func tag(m *mesh.Mesh, cat mesh.Category, sourceID string) *mesh.Mesh {
	if m == nil {
		return nil
	}
	m.Category = cat
	m.SourceID = sourceID
	return m
}

// Road returns the casing (when enabled) and the road fill
func (b *Builder) Road(l osm.Line) []*mesh.Mesh {
	pts := Simplify(l.Points, b.Options.SimplifyTolerance)
	zExtra := b.Options.VerticalOffset(l.Structure)
	id := mesh.SourceID(osm.TypeWay, l.ID)

	var out []*mesh.Mesh
	if b.Options.Casing {
		half := l.HalfWidth * (1 + b.Options.CasingScale)
		if m := tag(Strip(pts, half, zExtra-CasingDrop, b.Field), mesh.CategoryRoadCasing, id); m != nil {
			out = append(out, m)
		}
	}
	if m := tag(Strip(pts, l.HalfWidth, zExtra, b.Field), mesh.CategoryRoad, id); m != nil {
		out = append(out, m)
	}
	return out
}

// Rail returns the track bed strip. Rails are lifted by bridge and
// tunnel tags but ignore layer.
func (b *Builder) Rail(l osm.Line) *mesh.Mesh {
	s := l.Structure
	s.Layer = 0
	pts := Simplify(l.Points, b.Options.SimplifyTolerance)
	return tag(Strip(pts, l.HalfWidth, b.Options.VerticalOffset(s), b.Field), mesh.CategoryRail, mesh.SourceID(osm.TypeWay, l.ID))
}

// Building extrudes a footprint by its tagged height
func (b *Builder) Building(a osm.Area) *mesh.Mesh {
	h := b.Options.ParseHeight(a.Tags)
	return tag(Polygon(a.Ring, h, 0, b.Field), mesh.CategoryBuilding, a.SourceID())
}

// Water returns a flat face at the mean shoreline height
func (b *Builder) Water(a osm.Area) *mesh.Mesh {
	return tag(Polygon(a.Ring, 0, 0, b.Field), mesh.CategoryWater, a.SourceID())
}

// Landuse returns a flat face lifted just above the ground
func (b *Builder) Landuse(a osm.Area) *mesh.Mesh {
	return tag(Polygon(a.Ring, 0, LanduseLift, b.Field), mesh.CategoryLanduse, a.SourceID())
}

// Crosswalk snaps a crossing node to the nearest road and lays stripes
// across it at the road's deck height. It reports false when there is
// no road to snap to.
func (b *Builder) Crosswalk(p osm.Point, roads []osm.Line) (*mesh.Mesh, bool) {
	match, ok := NearestRoad(p.Position, roads)
	if !ok {
		return nil, false
	}
	pos := p.Position
	z := b.Field.Sample(pos[0], pos[1]) + b.Options.VerticalOffset(match.Road.Structure) + CrosswalkLift
	m := Crosswalk(pos, match.Tangent, 2*match.Road.HalfWidth, z, b.Options.Crosswalk)
	return tag(m, mesh.CategoryCrosswalk, mesh.SourceID(osm.TypeNode, p.ID)), true
}

// Piers returns the piers under a bridge road, or nil for other roads
// and when piers are disabled
func (b *Builder) Piers(l osm.Line) *mesh.Mesh {
	if !b.Options.Piers || !l.Structure.Bridge {
		return nil
	}
	pts := Simplify(l.Points, b.Options.SimplifyTolerance)
	m := Piers(pts, b.Options.VerticalOffset(l.Structure), b.Options.PierSpacing, b.Options.PierRadius, b.Field)
	return tag(m, mesh.CategoryPier, mesh.SourceID(osm.TypeWay, l.ID))
}
