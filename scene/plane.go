package scene

// GeneratePlane builds the stock ground grid: 101 x 101 points over
// [-5, 5] x [-5, 5] at z = 0.
func GeneratePlane() *PointCloud {
	return GeneratePlaneWith(DefaultPlaneGeometry())
}

// GeneratePlaneWith samples a square grid at z = 0. Coordinates come from
// integer indices so the boundary samples are exact and never duplicated.
func GeneratePlaneWith(g PlaneGeometry) *PointCloud {
	n := g.Samples()
	pc := NewPointCloud(DefaultFrameID, n*n)
	if n == 1 {
		pc.Append(Point{X: g.Min, Y: g.Min})
		return pc
	}

	span := g.Max - g.Min
	cells := float64(n - 1)
	for i := 0; i < n; i++ {
		x := g.Min + span*float64(i)/cells
		for j := 0; j < n; j++ {
			y := g.Min + span*float64(j)/cells
			pc.Append(Point{X: x, Y: y, Z: 0})
		}
	}
	return pc
}
