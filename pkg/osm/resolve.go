package osm

import (
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/NERVsystems/osmterrain/pkg/geo"
)

// Line is a projected linear feature (road or railway centreline)
type Line struct {
	ID        int64
	Class     Class
	Kind      string // highway or railway value
	Points    orb.LineString
	HalfWidth float64
	Structure Structure
	Tags      map[string]string
}

// Area is a projected closed ring (building, water or land-use)
type Area struct {
	ID     int64
	Source string // TypeWay or TypeRelation
	Index  int    // ring index within a relation
	Class  Class
	Type   AreaType
	Ring   orb.Ring
	Tags   map[string]string
}

// SourceID identifies the area for mesh descriptors
func (a Area) SourceID() string {
	if a.Source == TypeRelation {
		return fmt.Sprintf("relation/%d/%d", a.ID, a.Index)
	}
	return fmt.Sprintf("way/%d", a.ID)
}

// Point is a projected node feature
type Point struct {
	ID       int64
	Position orb.Point
	Tags     map[string]string
}

// Skip records a feature that was dropped without failing the build
type Skip struct {
	Type   string
	ID     int64
	Class  Class
	Reason string
}

// Features is the classified, projected output of Resolve
type Features struct {
	Roads     []Line
	Rails     []Line
	Buildings []Area
	Water     []Area
	Landuse   []Area
	Crossings []Point
	Skipped   []Skip
}

// Areas returns land-use areas grouped by area type
func (f *Features) Areas() map[AreaType][]Area {
	out := make(map[AreaType][]Area)
	for _, a := range f.Landuse {
		out[a.Type] = append(out[a.Type], a)
	}
	return out
}

// ResolveOptions configures feature resolution
type ResolveOptions struct {
	RoadHalfWidths map[string]float64
	RailHalfWidths map[string]float64
	Logger         *slog.Logger
}

// DefaultResolveOptions returns the built-in width tables
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{
		RoadHalfWidths: DefaultRoadHalfWidths(),
		RailHalfWidths: DefaultRailHalfWidths(),
	}
}

// Skip reasons
const (
	ReasonUnknownHighway = "highway class not in width table"
	ReasonTooFewPoints   = "too few resolved points"
	ReasonNoOuterRings   = "relation has no usable outer ring"
	ReasonNoAreaGeometry = "relation class has no area geometry"
)

// Resolve indexes nodes, assembles ways and relations into projected
// geometry and classifies them. Resolution is independent of element
// order. Missing node references are dropped; features that end up with
// too few points are recorded in Skipped. Inner relation members are
// ignored, so holes are never cut from outer rings.
func Resolve(elements []Element, proj geo.Projector, opts ResolveOptions) *Features {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "feature_resolver")

	if opts.RoadHalfWidths == nil {
		opts.RoadHalfWidths = DefaultRoadHalfWidths()
	}
	if opts.RailHalfWidths == nil {
		opts.RailHalfWidths = DefaultRailHalfWidths()
	}

	nodes := make(map[int64]orb.Point)
	ways := make(map[int64]*Element)
	for i := range elements {
		el := &elements[i]
		switch el.Type {
		case TypeNode:
			nodes[el.ID] = proj.Project(el.Lat, el.Lon)
		case TypeWay:
			ways[el.ID] = el
		}
	}

	r := &resolver{
		nodes:      nodes,
		ways:       ways,
		classifier: Classifier{RoadHalfWidths: opts.RoadHalfWidths},
		opts:       opts,
		out:        &Features{},
	}

	for i := range elements {
		el := &elements[i]
		switch el.Type {
		case TypeNode:
			if IsCrossing(el.Tags) {
				r.out.Crossings = append(r.out.Crossings, Point{
					ID:       el.ID,
					Position: nodes[el.ID],
					Tags:     el.Tags,
				})
			}
		case TypeWay:
			r.way(el)
		case TypeRelation:
			r.relation(el)
		}
	}

	logger.Debug("features resolved",
		"nodes", len(nodes),
		"roads", len(r.out.Roads),
		"rails", len(r.out.Rails),
		"buildings", len(r.out.Buildings),
		"water", len(r.out.Water),
		"landuse", len(r.out.Landuse),
		"crossings", len(r.out.Crossings),
		"skipped", len(r.out.Skipped))

	return r.out
}

type resolver struct {
	nodes      map[int64]orb.Point
	ways       map[int64]*Element
	classifier Classifier
	opts       ResolveOptions
	out        *Features
}

func (r *resolver) skip(el *Element, class Class, reason string) {
	r.out.Skipped = append(r.out.Skipped, Skip{Type: el.Type, ID: el.ID, Class: class, Reason: reason})
}

func (r *resolver) way(el *Element) {
	if len(el.Tags) == 0 {
		return
	}
	class, areaType, matched := r.classifier.Classify(el.Tags)
	if !matched {
		r.skip(el, ClassRoad, ReasonUnknownHighway)
		return
	}

	switch class {
	case ClassRoad, ClassRail:
		pts := r.points(el.Nodes)
		if len(pts) < 2 {
			r.skip(el, class, ReasonTooFewPoints)
			return
		}
		line := Line{
			ID:        el.ID,
			Class:     class,
			Points:    orb.LineString(pts),
			Structure: ParseStructure(el.Tags),
			Tags:      el.Tags,
		}
		if class == ClassRoad {
			line.Kind = el.Tags["highway"]
			line.HalfWidth = r.opts.RoadHalfWidths[line.Kind]
			r.out.Roads = append(r.out.Roads, line)
		} else {
			line.Kind = el.Tags["railway"]
			line.HalfWidth = railHalfWidth(r.opts.RailHalfWidths, line.Kind)
			r.out.Rails = append(r.out.Rails, line)
		}

	case ClassBuilding, ClassWater, ClassLanduse:
		ring, ok := RingFromPoints(r.points(el.Nodes))
		if !ok {
			r.skip(el, class, ReasonTooFewPoints)
			return
		}
		r.addArea(Area{ID: el.ID, Source: TypeWay, Class: class, Type: areaType, Ring: ring, Tags: el.Tags})
	}
}

func (r *resolver) relation(el *Element) {
	if len(el.Tags) == 0 {
		return
	}
	class, areaType, matched := r.classifier.Classify(el.Tags)
	if !matched {
		r.skip(el, ClassRoad, ReasonUnknownHighway)
		return
	}

	switch class {
	case ClassNone:
		return
	case ClassRoad, ClassRail:
		r.skip(el, class, ReasonNoAreaGeometry)
		return
	}

	index := 0
	for _, m := range el.Members {
		if m.Type != TypeWay || (m.Role != "outer" && m.Role != "") {
			continue
		}
		w, ok := r.ways[m.Ref]
		if !ok {
			continue
		}
		ring, ok := RingFromPoints(r.points(w.Nodes))
		if !ok {
			continue
		}
		r.addArea(Area{
			ID:     el.ID,
			Source: TypeRelation,
			Index:  index,
			Class:  class,
			Type:   areaType,
			Ring:   ring,
			Tags:   el.Tags,
		})
		index++
	}
	if index == 0 {
		r.skip(el, class, ReasonNoOuterRings)
	}
}

func (r *resolver) addArea(a Area) {
	switch a.Class {
	case ClassBuilding:
		r.out.Buildings = append(r.out.Buildings, a)
	case ClassWater:
		r.out.Water = append(r.out.Water, a)
	case ClassLanduse:
		r.out.Landuse = append(r.out.Landuse, a)
	}
}

// points resolves node references, silently dropping missing ones
func (r *resolver) points(ids []int64) []orb.Point {
	pts := make([]orb.Point, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.nodes[id]; ok {
			pts = append(pts, p)
		}
	}
	return pts
}

func railHalfWidth(table map[string]float64, kind string) float64 {
	if w, ok := table[kind]; ok {
		return w
	}
	return DefaultRailHalfWidth
}

// RingFromPoints closes a point sequence into a ring. It fails when the
// sequence has fewer than three distinct points.
func RingFromPoints(pts []orb.Point) (orb.Ring, bool) {
	if DistinctPoints(pts) < 3 {
		return nil, false
	}
	ring := make(orb.Ring, len(pts), len(pts)+1)
	copy(ring, pts)
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring, true
}

// DistinctPoints counts unique points in a sequence
func DistinctPoints(pts []orb.Point) int {
	seen := make(map[orb.Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// OpenRing returns the ring vertices without the duplicated closing point
func OpenRing(ring orb.Ring) []orb.Point {
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		return ring[:len(ring)-1]
	}
	return ring
}
