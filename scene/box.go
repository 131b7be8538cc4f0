package scene

import "github.com/paulmach/orb"

// GenerateBox builds the surface of a unit cube anchored at (x, y) and
// rotated by yaw radians about that corner
func GenerateBox(x, y, yaw float64) *PointCloud {
	return GenerateBoxWith(DefaultBoxGeometry(), Pose{X: x, Y: y, Yaw: yaw})
}

// GenerateBoxWith samples the six faces of a hollow cube on the geometry's
// grid. Face membership is decided on integer grid indices: a sample is
// kept when any of its indices sits on the first or last layer.
func GenerateBoxWith(g BoxGeometry, pose Pose) *PointCloud {
	n := g.Cells()
	pc := NewPointCloud(DefaultFrameID, g.SurfacePoints())
	m := BoxTransform(pose)

	coord := func(i int) float64 {
		if n == 0 {
			return 0
		}
		return g.Size * float64(i) / float64(n)
	}

	for k := 0; k <= n; k++ {
		z := coord(k)
		for i := 0; i <= n; i++ {
			for j := 0; j <= n; j++ {
				if !onSurface(i, j, k, n) {
					continue
				}
				pc.Append(m.Apply(Point{X: coord(i), Y: coord(j), Z: z}))
			}
		}
	}
	return pc
}

func onSurface(i, j, k, last int) bool {
	return i == 0 || i == last || j == 0 || j == last || k == 0 || k == last
}

// BoxCorners returns the closed footprint ring of the rotated box,
// counter-clockwise starting at the anchor corner
func BoxCorners(g BoxGeometry, pose Pose) orb.Ring {
	m := BoxTransform(pose)
	local := []Point{{}, {X: g.Size}, {X: g.Size, Y: g.Size}, {Y: g.Size}}

	ring := make(orb.Ring, 0, len(local)+1)
	for _, p := range local {
		ring = append(ring, m.Apply(p).XY())
	}
	return append(ring, ring[0])
}
