package scene

import (
	"fmt"
	"log"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator owns the plane and produces scenes (slow tick) and noisy
// frames (fast tick). The latest scene is swapped in atomically, so a fast
// tick always sees a complete merge even if ticks run on different goroutines.
type Generator struct {
	cfg   Config
	runID string
	plane *PointCloud

	poses    PoseSource
	noise    *NoiseInjector
	buildIdx IndexBuilder
	now      func() time.Time

	current  atomic.Pointer[Scene]
	override atomic.Pointer[Pose]
	seq      atomic.Uint64
	scenes   atomic.Uint64
}

// Option customizes a Generator
type Option func(*Generator)

// WithPoseSource replaces the random pose source
func WithPoseSource(src PoseSource) Option {
	return func(g *Generator) { g.poses = src }
}

// WithClock replaces time.Now for frame stamps
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithIndexBuilder replaces the k-d tree used for footprint subtraction
func WithIndexBuilder(build IndexBuilder) Option {
	return func(g *Generator) { g.buildIdx = build }
}

// WithNoiseSource seeds the noise injector from src
func WithNoiseSource(src rand.Source) Option {
	return func(g *Generator) { g.noise = NewNoiseInjector(g.cfg.Noise.Amplitude, src) }
}

// NewGenerator validates the config and builds the plane once
func NewGenerator(cfg Config, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene config: %w", err)
	}

	root := rand.New(NewSource(cfg.Seed))
	g := &Generator{
		cfg:      cfg,
		runID:    uuid.NewString(),
		poses:    NewRandomPoseSource(cfg.Pose, rand.NewPCG(root.Uint64(), root.Uint64())),
		noise:    NewNoiseInjector(cfg.Noise.Amplitude, rand.NewPCG(root.Uint64(), root.Uint64())),
		buildIdx: BuildIndex,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.plane = GeneratePlaneWith(cfg.Plane)
	g.plane.FrameID = cfg.FrameID
	g.plane.Stamp = g.now()
	log.Printf("[SCENE] Plane ready: %d points over [%.2f, %.2f] step %.3f (run %s)",
		g.plane.Len(), cfg.Plane.Min, cfg.Plane.Max, cfg.Plane.Step, g.runID)
	return g, nil
}

// RunID identifies this generator instance in emitted frames
func (g *Generator) RunID() string {
	return g.runID
}

// Config returns the generator configuration
func (g *Generator) Config() Config {
	return g.cfg
}

// Plane returns the ground grid. Callers must not modify it.
func (g *Generator) Plane() *PointCloud {
	return g.plane
}

// Current returns the latest scene, or nil before the first slow tick
func (g *Generator) Current() *Scene {
	return g.current.Load()
}

// SceneCount returns how many scenes have been generated
func (g *Generator) SceneCount() uint64 {
	return g.scenes.Load()
}

// SetNextPose queues a pose for the next slow tick. The random pose
// sequence is not advanced by an overridden tick.
func (g *Generator) SetNextPose(p Pose) {
	g.override.Store(&p)
}

// Regenerate runs one slow tick: draw a pose, rebuild the box, merge it
// into the plane and publish the resulting scene
func (g *Generator) Regenerate() *Scene {
	if queued := g.override.Swap(nil); queued != nil {
		return g.RegenerateAt(*queued)
	}
	return g.RegenerateAt(g.poses.NextPose())
}

// RegenerateAt runs one slow tick with a fixed pose
func (g *Generator) RegenerateAt(pose Pose) *Scene {
	stamp := g.now()

	box := GenerateBoxWith(g.cfg.Box, pose)
	box.FrameID = g.cfg.FrameID
	box.Stamp = stamp

	merged := MergeWith(g.cfg.Merge, g.plane, box, g.buildIdx)
	merged.Cloud.FrameID = g.cfg.FrameID
	merged.Cloud.Stamp = stamp

	s := &Scene{
		Pose:          pose,
		Box:           box,
		Footprint:     merged.Footprint,
		Merged:        merged.Cloud,
		Removed:       len(merged.Removed),
		FootprintRing: BoxCorners(g.cfg.Box, pose),
		GeneratedAt:   stamp,
	}
	g.current.Store(s)
	n := g.scenes.Add(1)

	log.Printf("[SCENE] Box #%d at (%.3f, %.3f) yaw=%.1f°: %d box points, %d plane points removed, %d merged",
		n, pose.X, pose.Y, pose.YawDegrees(), box.Len(), s.Removed, s.Merged.Len())
	return s
}

// NextFrame runs one fast tick: jitter the latest merged cloud and stamp it.
// It reports false until the first scene exists.
func (g *Generator) NextFrame() (*PointCloud, bool) {
	s := g.current.Load()
	if s == nil {
		return nil, false
	}

	frame := g.noise.AddNoise(s.Merged)
	frame.FrameID = g.cfg.FrameID
	frame.Stamp = g.now()
	frame.Seq = g.seq.Add(1)
	return frame, true
}
