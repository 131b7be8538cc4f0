package scene

import "math"

// Rigid2D is a planar transform x' = ax + by + tx, y' = cx + dy + ty.
// Heights pass through unchanged: the box only ever turns about z.
type Rigid2D struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Tx float64 `json:"tx"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Ty float64 `json:"ty"`
}

// Identity leaves points where they are
func Identity() Rigid2D {
	return Rigid2D{A: 1, D: 1}
}

// Translation shifts points by (tx, ty)
func Translation(tx, ty float64) Rigid2D {
	return Rigid2D{A: 1, D: 1, Tx: tx, Ty: ty}
}

// Rotation turns points counter-clockwise about the origin (radians)
func Rotation(yaw float64) Rigid2D {
	sin, cos := math.Sincos(yaw)
	return Rigid2D{A: cos, B: -sin, C: sin, D: cos}
}

// RotationAbout turns points by yaw around the pivot (cx, cy)
func RotationAbout(cx, cy, yaw float64) Rigid2D {
	return Translation(-cx, -cy).Then(Rotation(yaw)).Then(Translation(cx, cy))
}

// BoxTransform places box-local coordinates at a pose
func BoxTransform(pose Pose) Rigid2D {
	return Rotation(pose.Yaw).Then(Translation(pose.X, pose.Y))
}

// Apply transforms one point
func (m Rigid2D) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.Tx,
		Y: m.C*p.X + m.D*p.Y + m.Ty,
		Z: p.Z,
	}
}

// ApplyCloud returns a transformed copy of pc with the same header
func (m Rigid2D) ApplyCloud(pc *PointCloud) *PointCloud {
	out := NewPointCloud(pc.FrameID, pc.Len())
	out.Stamp = pc.Stamp
	out.Seq = pc.Seq
	for _, p := range pc.Points {
		out.Points = append(out.Points, m.Apply(p))
	}
	return out
}

// Then returns the transform that applies m first and next second
func (m Rigid2D) Then(next Rigid2D) Rigid2D {
	return Rigid2D{
		A:  next.A*m.A + next.B*m.C,
		B:  next.A*m.B + next.B*m.D,
		Tx: next.A*m.Tx + next.B*m.Ty + next.Tx,
		C:  next.C*m.A + next.D*m.C,
		D:  next.C*m.B + next.D*m.D,
		Ty: next.C*m.Tx + next.D*m.Ty + next.Ty,
	}
}

// Determinant is 1 for any rigid motion
func (m Rigid2D) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// Inverse undoes m. A singular m yields Identity.
func (m Rigid2D) Inverse() Rigid2D {
	det := m.Determinant()
	if math.Abs(det) < 1e-10 {
		return Identity()
	}
	return Rigid2D{
		A:  m.D / det,
		B:  -m.B / det,
		Tx: (m.B*m.Ty - m.D*m.Tx) / det,
		C:  -m.C / det,
		D:  m.A / det,
		Ty: (m.C*m.Tx - m.A*m.Ty) / det,
	}
}
