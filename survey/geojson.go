package survey

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SolutionToFeatureCollection projects a solved map top-down onto the XY
// plane and builds a GeoJSON FeatureCollection: one MultiPoint feature
// carrying every distinct landmark, plus a Point feature per sensor origin
// with its recovered pose in the properties. The Z coordinate is preserved
// per point in an "elevations" property since GeoJSON geometry here is 2D.
func SolutionToFeatureCollection(sol *Solution) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if sol == nil || sol.Map == nil {
		return fc
	}

	landmarks := sol.Map.Landmarks()
	pts := make(orb.MultiPoint, len(landmarks))
	elevations := make([]int64, len(landmarks))
	for i, l := range landmarks {
		pts[i] = orb.Point{float64(l.X), float64(l.Y)}
		elevations[i] = l.Z
	}

	lf := geojson.NewFeature(pts)
	lf.Properties["featureType"] = "landmarks"
	lf.Properties["count"] = len(landmarks)
	lf.Properties["elevations"] = elevations
	fc.Append(lf)

	origins := sol.Map.Origins()
	for _, id := range sortedKeys(origins) {
		o := origins[id]
		f := geojson.NewFeature(orb.Point{float64(o.X), float64(o.Y)})
		f.Properties["featureType"] = "sensor"
		f.Properties["sensorId"] = id
		f.Properties["z"] = o.Z
		if pose, ok := sol.Poses[id]; ok {
			f.Properties["orientation"] = pose.Orientation
		}
		fc.Append(f)
	}

	return fc
}

// SolutionGeoJSON renders the feature collection as GeoJSON bytes.
func SolutionGeoJSON(sol *Solution) ([]byte, error) {
	return json.Marshal(SolutionToFeatureCollection(sol))
}
