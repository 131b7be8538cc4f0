package scene

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// FootprintArea returns the planar area covered by the box footprint
func FootprintArea(ring orb.Ring) float64 {
	if len(ring) < 4 {
		return 0
	}
	return math.Abs(planar.Area(orb.Polygon{ring}))
}

// CountInside returns how many points of the cloud project inside the ring
func CountInside(ring orb.Ring, pc *PointCloud) int {
	if len(ring) < 4 {
		return 0
	}
	bound := ring.Bound()
	count := 0
	for _, p := range pc.Points {
		xy := p.XY()
		if bound.Contains(xy) && planar.RingContains(ring, xy) {
			count++
		}
	}
	return count
}

// SceneFeatureCollection describes a scene as GeoJSON: the box footprint and
// the extent of the merged cloud, in scene metres rather than lon/lat
func SceneFeatureCollection(s *Scene, runID string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	footprint := geojson.NewFeature(orb.Polygon{s.FootprintRing})
	footprint.Properties["layer"] = "footprint"
	footprint.Properties["runId"] = runID
	footprint.Properties["x"] = s.Pose.X
	footprint.Properties["y"] = s.Pose.Y
	footprint.Properties["yaw"] = s.Pose.Yaw
	footprint.Properties["area"] = FootprintArea(s.FootprintRing)
	footprint.Properties["removed"] = s.Removed
	fc.Append(footprint)

	if s.Merged.Len() > 0 {
		extent := geojson.NewFeature(s.Merged.XYBound().ToPolygon())
		extent.Properties["layer"] = "extent"
		extent.Properties["points"] = s.Merged.Len()
		fc.Append(extent)
	}

	return fc
}
