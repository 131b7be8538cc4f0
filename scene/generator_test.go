package scene

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func newTestGenerator(t *testing.T, opts ...Option) *Generator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 1234
	g, err := NewGenerator(cfg, append([]Option{WithClock(fixedClock())}, opts...)...)
	require.NoError(t, err)
	return g
}

func TestNewGenerator_BuildsPlaneOnce(t *testing.T) {
	g := newTestGenerator(t)

	assert.Equal(t, 10201, g.Plane().Len())
	assert.Equal(t, "world", g.Plane().FrameID)
	assert.Nil(t, g.Current())
	assert.Zero(t, g.SceneCount())

	_, err := uuid.Parse(g.RunID())
	assert.NoError(t, err)
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Plane.Step = 0

	_, err := NewGenerator(cfg)
	assert.Error(t, err)
}

func TestGenerator_NoFrameBeforeFirstScene(t *testing.T) {
	g := newTestGenerator(t)

	frame, ok := g.NextFrame()
	assert.False(t, ok)
	assert.Nil(t, frame)
}

func TestGenerator_EndToEnd(t *testing.T) {
	g := newTestGenerator(t, WithPoseSource(PoseFunc(func() Pose { return Pose{X: 1, Y: 1} })))

	s := g.Regenerate()
	require.NotNil(t, s)
	assert.Equal(t, Pose{X: 1, Y: 1}, s.Pose)
	assert.Equal(t, 602, s.Box.Len())
	assert.Equal(t, 121, s.Removed)
	assert.Equal(t, 10561, s.Merged.Len())
	assert.InDelta(t, 1.0, FootprintArea(s.FootprintRing), 1e-9)
	assert.Same(t, s, g.Current())

	frame, ok := g.NextFrame()
	require.True(t, ok)
	assert.Equal(t, "world", frame.FrameID)
	assert.Equal(t, uint64(1), frame.Seq)
	assert.Equal(t, fixedClock()(), frame.Stamp)
	require.Equal(t, s.Merged.Len(), frame.Len())

	amp := g.Config().Noise.Amplitude + 1e-12
	for i, p := range frame.Points {
		q := s.Merged.Points[i]
		assert.LessOrEqual(t, math.Abs(p.X-q.X), amp)
		assert.LessOrEqual(t, math.Abs(p.Y-q.Y), amp)
		assert.LessOrEqual(t, math.Abs(p.Z-q.Z), amp)
	}
}

func TestGenerator_SequenceIsMonotonic(t *testing.T) {
	g := newTestGenerator(t)
	g.Regenerate()

	for want := uint64(1); want <= 5; want++ {
		frame, ok := g.NextFrame()
		require.True(t, ok)
		assert.Equal(t, want, frame.Seq)
	}

	// A new scene does not reset the sequence
	g.Regenerate()
	frame, _ := g.NextFrame()
	assert.Equal(t, uint64(6), frame.Seq)
}

func TestGenerator_FramesDoNotShareMergedCloud(t *testing.T) {
	g := newTestGenerator(t)
	s := g.RegenerateAt(Pose{X: 0, Y: 0})
	before := s.Merged.Clone()

	frame, _ := g.NextFrame()
	frame.Points[0].X = 99

	assert.Equal(t, before.Points, s.Merged.Points)
}

func TestGenerator_SetNextPose(t *testing.T) {
	calls := 0
	random := PoseFunc(func() Pose {
		calls++
		return Pose{X: -1, Y: -1}
	})
	g := newTestGenerator(t, WithPoseSource(random))

	g.SetNextPose(Pose{X: 1.5, Y: 0.5, Yaw: 0.2})
	s := g.Regenerate()
	assert.Equal(t, Pose{X: 1.5, Y: 0.5, Yaw: 0.2}, s.Pose)

	// The override is consumed once
	s = g.Regenerate()
	assert.Equal(t, Pose{X: -1, Y: -1}, s.Pose)
	assert.Equal(t, 1, calls, "an overridden tick does not draw a random pose")
	assert.Equal(t, uint64(2), g.SceneCount())
}

func TestGenerator_OverrideKeepsSeededSequence(t *testing.T) {
	plain := newTestGenerator(t)
	overridden := newTestGenerator(t)

	overridden.SetNextPose(Pose{X: 0.5, Y: 0.5})
	overridden.Regenerate()

	for i := 0; i < 3; i++ {
		assert.Equal(t, plain.Regenerate().Pose, overridden.Regenerate().Pose, "draw %d", i)
	}
}

func TestGenerator_RandomPosesInRange(t *testing.T) {
	g := newTestGenerator(t)

	for i := 0; i < 20; i++ {
		p := g.Regenerate().Pose
		assert.True(t, p.X >= -2 && p.X <= 2 && p.Y >= -2 && p.Y <= 2, "pose %+v", p)
		assert.True(t, p.Yaw >= 0 && p.Yaw < math.Pi/2, "yaw %f", p.Yaw)
	}
}

func TestGenerator_SeedReproducesPoses(t *testing.T) {
	a := newTestGenerator(t)
	b := newTestGenerator(t)

	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Regenerate().Pose, b.Regenerate().Pose)
	}
}

func TestGenerator_WithIndexBuilder(t *testing.T) {
	builds := 0
	counting := func(pc *PointCloud) SpatialIndex {
		builds++
		return BuildBruteIndex(pc)
	}
	g := newTestGenerator(t, WithIndexBuilder(counting))

	s := g.RegenerateAt(Pose{X: 1, Y: 1})
	assert.Equal(t, 1, builds)
	assert.Equal(t, 121, s.Removed)
}

func TestGenerator_WithNoiseSource(t *testing.T) {
	a := newTestGenerator(t, WithNoiseSource(rand.NewPCG(9, 9)))
	b := newTestGenerator(t, WithNoiseSource(rand.NewPCG(9, 9)))
	a.RegenerateAt(Pose{})
	b.RegenerateAt(Pose{})

	fa, _ := a.NextFrame()
	fb, _ := b.NextFrame()
	assert.Equal(t, fa.Points, fb.Points)
}

func TestGenerator_ConcurrentTicks(t *testing.T) {
	g := newTestGenerator(t)
	g.Regenerate()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			g.Regenerate()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			frame, ok := g.NextFrame()
			if assert.True(t, ok) {
				// A complete merge always carries more points than the bare plane
				assert.Greater(t, frame.Len(), 10201)
			}
		}
	}()
	wg.Wait()
}
