package scene

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseInjector adds independent uniform jitter to each coordinate
type NoiseInjector struct {
	mu        sync.Mutex
	dist      distuv.Uniform
	amplitude float64
}

// NewNoiseInjector jitters each axis by up to +/- amplitude using src.
// A nil src draws from the global math/rand/v2 source.
func NewNoiseInjector(amplitude float64, src rand.Source) *NoiseInjector {
	return &NoiseInjector{
		dist:      distuv.Uniform{Min: -amplitude, Max: amplitude, Src: src},
		amplitude: amplitude,
	}
}

// Amplitude returns the jitter bound
func (n *NoiseInjector) Amplitude() float64 {
	return n.amplitude
}

// AddNoise returns a jittered copy of the cloud. The input is left untouched
// and the header, point count, and order are preserved.
func (n *NoiseInjector) AddNoise(pc *PointCloud) *PointCloud {
	if n.amplitude == 0 {
		return pc.Clone()
	}

	out := NewPointCloud(pc.FrameID, pc.Len())
	out.Stamp = pc.Stamp
	out.Seq = pc.Seq

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range pc.Points {
		out.Append(Point{
			X: p.X + n.dist.Rand(),
			Y: p.Y + n.dist.Rand(),
			Z: p.Z + n.dist.Rand(),
		})
	}
	return out
}
