package scene

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBox_PointCount(t *testing.T) {
	box := GenerateBox(0, 0, 0)

	assert.Equal(t, 11*11*11-9*9*9, box.Len())
	assert.Equal(t, 602, DefaultBoxGeometry().SurfacePoints())
	assert.Equal(t, "world", box.FrameID)
}

func TestGenerateBox_AxisAlignedBounds(t *testing.T) {
	box := GenerateBox(0, 0, 0)

	b := box.XYBound()
	assert.InDelta(t, 0.0, b.Min[0], 1e-12)
	assert.InDelta(t, 0.0, b.Min[1], 1e-12)
	assert.InDelta(t, 1.0, b.Max[0], 1e-12)
	assert.InDelta(t, 1.0, b.Max[1], 1e-12)

	minZ, maxZ := box.HeightRange()
	assert.Equal(t, 0.0, minZ)
	assert.Equal(t, 1.0, maxZ)
}

func TestGenerateBox_HollowSurface(t *testing.T) {
	box := GenerateBox(0, 0, 0)

	for _, p := range box.Points {
		onFace := func(v float64) bool {
			return math.Abs(v) < 1e-9 || math.Abs(v-1) < 1e-9
		}
		assert.True(t, onFace(p.X) || onFace(p.Y) || onFace(p.Z),
			"point (%f, %f, %f) is inside the cube", p.X, p.Y, p.Z)
	}
}

func TestGenerateBox_Layers(t *testing.T) {
	box := GenerateBox(3, -2, 0)

	counts := make(map[int]int)
	for _, p := range box.Points {
		counts[int(math.Round(p.Z*10))]++
	}

	// Top and bottom are full 11x11 faces, every other layer is the 40-point perimeter
	assert.Equal(t, 121, counts[0])
	assert.Equal(t, 121, counts[10])
	for k := 1; k <= 9; k++ {
		assert.Equal(t, 40, counts[k], "layer %d", k)
	}
}

func TestGenerateBox_RotationAboutAnchor(t *testing.T) {
	tests := []struct {
		name string
		pose Pose
	}{
		{"quarter turn at origin", Pose{X: 0, Y: 0, Yaw: math.Pi / 2}},
		{"eighth turn offset", Pose{X: 1.5, Y: -0.7, Yaw: math.Pi / 4}},
		{"small yaw", Pose{X: -2, Y: 2, Yaw: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rotated := GenerateBox(tt.pose.X, tt.pose.Y, tt.pose.Yaw)
			straight := GenerateBox(tt.pose.X, tt.pose.Y, 0)

			undo := RotationAbout(tt.pose.X, tt.pose.Y, -tt.pose.Yaw)
			back := undo.ApplyCloud(rotated)

			if diff := cmp.Diff(straight.Points, back.Points, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("rotating back does not reproduce the axis-aligned box (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateBox_YawKeepsHeights(t *testing.T) {
	straight := GenerateBox(1, 1, 0)
	rotated := GenerateBox(1, 1, 1.2)

	require.Equal(t, straight.Len(), rotated.Len())
	for i := range straight.Points {
		assert.Equal(t, straight.Points[i].Z, rotated.Points[i].Z)
	}
	// The anchor corner is the rotation pivot
	assert.InDelta(t, 1.0, rotated.Points[0].X, 1e-12)
	assert.InDelta(t, 1.0, rotated.Points[0].Y, 1e-12)
}

// approxPoint compares orb points with a tolerance. orb.Point has an exact
// Equal method, which cmp prefers over cmpopts.EquateApprox.
func approxPoint(tol float64) cmp.Option {
	return cmp.Comparer(func(a, b orb.Point) bool {
		return math.Abs(a[0]-b[0]) <= tol && math.Abs(a[1]-b[1]) <= tol
	})
}

func TestBoxCorners(t *testing.T) {
	ring := BoxCorners(DefaultBoxGeometry(), Pose{X: 1, Y: 1, Yaw: 0})

	want := orb.Ring{{1, 1}, {2, 1}, {2, 2}, {1, 2}, {1, 1}}
	if diff := cmp.Diff(want, ring, approxPoint(1e-12)); diff != "" {
		t.Errorf("BoxCorners mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, ring.Closed())
	assert.Equal(t, orb.CCW, ring.Orientation())
}

func TestBoxCorners_Rotated(t *testing.T) {
	ring := BoxCorners(DefaultBoxGeometry(), Pose{X: 0, Y: 0, Yaw: math.Pi / 2})

	want := orb.Ring{{0, 0}, {0, 1}, {-1, 1}, {-1, 0}, {0, 0}}
	if diff := cmp.Diff(want, ring, approxPoint(1e-12)); diff != "" {
		t.Errorf("BoxCorners mismatch (-want +got):\n%s", diff)
	}
}

func TestBoxCorners_RotatedNotExact(t *testing.T) {
	ring := BoxCorners(DefaultBoxGeometry(), Pose{X: 0, Y: 0, Yaw: math.Pi / 2})

	// cos(pi/2) is not exactly zero, so exact comparison must not be relied on
	assert.NotEqual(t, 0.0, ring[1][0])
	assert.InDelta(t, 0.0, ring[1][0], 1e-12)
	assert.True(t, cmp.Equal(orb.Point{0, 1}, ring[1], approxPoint(1e-12)))
	assert.False(t, cmp.Equal(orb.Point{0, 1.1}, ring[1], approxPoint(1e-12)))
}
