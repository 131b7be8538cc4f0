package scene

import (
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// PoseSource yields one box pose per slow tick
type PoseSource interface {
	NextPose() Pose
}

// PoseFunc adapts a function to PoseSource
type PoseFunc func() Pose

// NextPose calls f
func (f PoseFunc) NextPose() Pose { return f() }

// RandomPoseSource draws x and y uniformly in [-R, R] and yaw in [0, YawMax)
type RandomPoseSource struct {
	mu  sync.Mutex
	xy  distuv.Uniform
	yaw distuv.Uniform
}

// NewRandomPoseSource builds a pose source over the configured ranges
func NewRandomPoseSource(cfg PoseConfig, src rand.Source) *RandomPoseSource {
	return &RandomPoseSource{
		xy:  distuv.Uniform{Min: -cfg.PositionRange, Max: cfg.PositionRange, Src: src},
		yaw: distuv.Uniform{Min: 0, Max: cfg.YawMax, Src: src},
	}
}

// NextPose draws x, y, then yaw
func (s *RandomPoseSource) NextPose() Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	x := s.xy.Rand()
	y := s.xy.Rand()
	return Pose{X: x, Y: y, Yaw: s.yaw.Rand()}
}

// NewSource returns a PCG source for the seed. Seed 0 seeds from the clock.
func NewSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}
