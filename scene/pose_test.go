package scene

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomPoseSource_Ranges(t *testing.T) {
	src := NewRandomPoseSource(DefaultPoseConfig(), rand.NewPCG(7, 11))

	var sawNegX, sawPosX bool
	for i := 0; i < 1000; i++ {
		p := src.NextPose()
		assert.GreaterOrEqual(t, p.X, -2.0)
		assert.LessOrEqual(t, p.X, 2.0)
		assert.GreaterOrEqual(t, p.Y, -2.0)
		assert.LessOrEqual(t, p.Y, 2.0)
		assert.GreaterOrEqual(t, p.Yaw, 0.0)
		assert.Less(t, p.Yaw, math.Pi/2)
		sawNegX = sawNegX || p.X < 0
		sawPosX = sawPosX || p.X > 0
	}
	assert.True(t, sawNegX && sawPosX, "x should cover both signs")
}

func TestRandomPoseSource_Deterministic(t *testing.T) {
	a := NewRandomPoseSource(DefaultPoseConfig(), NewSource(42))
	b := NewRandomPoseSource(DefaultPoseConfig(), NewSource(42))

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.NextPose(), b.NextPose())
	}
}

func TestRandomPoseSource_ZeroRange(t *testing.T) {
	src := NewRandomPoseSource(PoseConfig{}, rand.NewPCG(1, 1))
	assert.Equal(t, Pose{}, src.NextPose())
}

func TestPoseFunc(t *testing.T) {
	var src PoseSource = PoseFunc(func() Pose { return Pose{X: 1, Y: 2, Yaw: 0.5} })
	assert.Equal(t, Pose{X: 1, Y: 2, Yaw: 0.5}, src.NextPose())
}

func TestPose_YawDegrees(t *testing.T) {
	assert.InDelta(t, 90.0, Pose{Yaw: math.Pi / 2}.YawDegrees(), 1e-12)
}
