package scene

import "sort"

// heightTolerance widens pass-through bounds so grid layers that land on a
// bound through float rounding stay on the inclusive side
const heightTolerance = 1e-9

// MergeResult is the output of merging the box into the plane
type MergeResult struct {
	Cloud     *PointCloud // walls and top, then the surviving plane points
	Walls     *PointCloud // box points inside the kept height range
	Footprint *PointCloud // box points diverted to the footprint ring
	Removed   []int       // sorted, unique plane indices subtracted
}

// PassThrough splits a cloud on z. Points with minZ <= z <= maxZ go to kept,
// everything else to rejected. Both outputs preserve input order.
func PassThrough(pc *PointCloud, minZ, maxZ float64) (kept, rejected *PointCloud) {
	kept = NewPointCloud(pc.FrameID, pc.Len())
	rejected = NewPointCloud(pc.FrameID, 0)
	kept.Stamp, rejected.Stamp = pc.Stamp, pc.Stamp

	lo, hi := minZ-heightTolerance, maxZ+heightTolerance
	for _, p := range pc.Points {
		if p.Z >= lo && p.Z <= hi {
			kept.Append(p)
		} else {
			rejected.Append(p)
		}
	}
	return kept, rejected
}

// Merge subtracts the box footprint from the plane with the default
// merge settings and a k-d tree index
func Merge(plane, box *PointCloud) MergeResult {
	return MergeWith(DefaultMergeConfig(), plane, box, BuildIndex)
}

// MergeWith splits the box into walls and footprint, removes every plane
// point within cfg.Radius of a footprint point, and concatenates the walls
// with what is left of the plane. A nil builder falls back to BuildIndex.
func MergeWith(cfg MergeConfig, plane, box *PointCloud, build IndexBuilder) MergeResult {
	if build == nil {
		build = BuildIndex
	}

	walls, footprint := PassThrough(box, cfg.MinHeight, cfg.MaxHeight)
	removed := occludedIndices(build(plane), footprint, cfg.Radius)

	out := NewPointCloud(plane.FrameID, walls.Len()+plane.Len()-len(removed))
	out.Stamp = box.Stamp
	out.Append(walls.Points...)

	next := 0
	for i, p := range plane.Points {
		if next < len(removed) && removed[next] == i {
			next++
			continue
		}
		out.Append(p)
	}

	return MergeResult{
		Cloud:     out,
		Walls:     walls,
		Footprint: footprint,
		Removed:   removed,
	}
}

// occludedIndices unions the radius query results of every footprint point
func occludedIndices(idx SpatialIndex, footprint *PointCloud, radius float64) []int {
	if idx.Len() == 0 || footprint.Len() == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	for _, p := range footprint.Points {
		for _, i := range idx.RadiusQuery(p, radius) {
			seen[i] = struct{}{}
		}
	}

	removed := make([]int, 0, len(seen))
	for i := range seen {
		removed = append(removed, i)
	}
	sort.Ints(removed)
	return removed
}
