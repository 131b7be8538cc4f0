package scene

import (
	"context"
	"errors"
	"log"
	"time"
)

// FrameSink consumes emitted frames
type FrameSink interface {
	PublishFrame(frame *PointCloud) error
}

// SceneObserver is implemented by sinks that also want each new scene
type SceneObserver interface {
	ObserveScene(s *Scene)
}

// FrameSinkFunc adapts a function to FrameSink
type FrameSinkFunc func(frame *PointCloud) error

// PublishFrame calls f
func (f FrameSinkFunc) PublishFrame(frame *PointCloud) error { return f(frame) }

// MultiSink fans frames and scenes out to several sinks. Every sink is
// called even if an earlier one fails; the errors are joined.
type MultiSink []FrameSink

// PublishFrame forwards the frame to every sink
func (m MultiSink) PublishFrame(frame *PointCloud) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.PublishFrame(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ObserveScene forwards the scene to every sink that observes scenes
func (m MultiSink) ObserveScene(s *Scene) {
	for _, sink := range m {
		if obs, ok := sink.(SceneObserver); ok {
			obs.ObserveScene(s)
		}
	}
}

// Run drives both ticks from a single goroutine until ctx is cancelled.
// One slow tick runs before the loop so the first fast tick has a scene.
// Each tick runs to completion before the next one is selected.
func (g *Generator) Run(ctx context.Context, sink FrameSink) error {
	boxTicker := time.NewTicker(g.cfg.Timing.BoxInterval)
	defer boxTicker.Stop()
	pubTicker := time.NewTicker(g.cfg.Timing.PublishInterval)
	defer pubTicker.Stop()

	g.slowTick(sink)

	var published, failed uint64
	lastStats := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SCENE] Generator stopped after %d frames (%d failed)", published, failed)
			return nil
		case <-boxTicker.C:
			g.slowTick(sink)
		case <-pubTicker.C:
			frame, ok := g.NextFrame()
			if !ok {
				continue
			}
			if err := sink.PublishFrame(frame); err != nil {
				failed++
				log.Printf("[SCENE] Frame %d not delivered: %v", frame.Seq, err)
			} else {
				published++
			}
			if time.Since(lastStats) >= 10*time.Second {
				log.Printf("[SCENE] Stats: frames=%d failed=%d scenes=%d points=%d",
					published, failed, g.SceneCount(), frame.Len())
				lastStats = time.Now()
			}
		}
	}
}

func (g *Generator) slowTick(sink FrameSink) {
	s := g.Regenerate()
	if obs, ok := sink.(SceneObserver); ok {
		obs.ObserveScene(s)
	}
}
