package vegetation

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/NERVsystems/osmterrain/pkg/geo"
)

// FeatureCollection converts placed objects back to lon/lat points with
// species, scale and ground height as properties
func FeatureCollection(objs []PlacedObject, proj geo.Projector) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, o := range objs {
		lat, lon := proj.Unproject(orb.Point{o.Position.X, o.Position.Y})
		f := geojson.NewFeature(orb.Point{lon, lat})
		f.Properties["species"] = string(o.Species)
		f.Properties["scale"] = o.Scale
		f.Properties["elevation"] = o.Position.Z
		if o.Source != "" {
			f.Properties["source"] = o.Source
		}
		fc.Append(f)
	}
	return fc
}
