package scene

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultFrameID is the spatial reference label stamped on every cloud
const DefaultFrameID = "world"

// Point is a 3D sample in metres
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec returns the point as a gonum vector
func (p Point) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// XY drops the height component
func (p Point) XY() orb.Point {
	return orb.Point{p.X, p.Y}
}

// PointCloud is an ordered, append-only set of points with a frame header.
// Duplicates are allowed and order carries no meaning beyond iteration.
type PointCloud struct {
	FrameID string    `json:"frameId"`
	Stamp   time.Time `json:"stamp"`
	Seq     uint64    `json:"seq"`
	Points  []Point   `json:"points"`
}

// NewPointCloud creates an empty cloud with room for n points
func NewPointCloud(frameID string, n int) *PointCloud {
	return &PointCloud{
		FrameID: frameID,
		Points:  make([]Point, 0, n),
	}
}

// Len returns the number of points
func (pc *PointCloud) Len() int {
	if pc == nil {
		return 0
	}
	return len(pc.Points)
}

// Append adds points to the end of the cloud
func (pc *PointCloud) Append(points ...Point) {
	pc.Points = append(pc.Points, points...)
}

// Vec3At returns the i-th point as a vector
func (pc *PointCloud) Vec3At(i int) r3.Vec {
	return pc.Points[i].Vec()
}

// Clone returns a deep copy of the cloud
func (pc *PointCloud) Clone() *PointCloud {
	if pc == nil {
		return nil
	}
	out := *pc
	out.Points = make([]Point, len(pc.Points))
	copy(out.Points, pc.Points)
	return &out
}

// XYBound returns the planar extent of the cloud.
// An empty cloud yields the zero bound.
func (pc *PointCloud) XYBound() orb.Bound {
	if pc.Len() == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: pc.Points[0].XY(), Max: pc.Points[0].XY()}
	for _, p := range pc.Points[1:] {
		b = b.Extend(p.XY())
	}
	return b
}

// HeightRange returns the min and max z of the cloud
func (pc *PointCloud) HeightRange() (minZ, maxZ float64) {
	if pc.Len() == 0 {
		return 0, 0
	}
	minZ, maxZ = math.Inf(1), math.Inf(-1)
	for _, p := range pc.Points {
		minZ = math.Min(minZ, p.Z)
		maxZ = math.Max(maxZ, p.Z)
	}
	return minZ, maxZ
}

// Pose places the box: (X, Y) is the anchor corner, Yaw rotates about it (radians)
type Pose struct {
	X   float64 `json:"x" yaml:"x"`
	Y   float64 `json:"y" yaml:"y"`
	Yaw float64 `json:"yaw" yaml:"yaw"`
}

// YawDegrees returns the yaw in degrees
func (p Pose) YawDegrees() float64 {
	return p.Yaw * 180 / math.Pi
}

// Scene is the product of one slow tick. It is never mutated after
// the generator publishes it.
type Scene struct {
	Pose          Pose        `json:"pose"`
	Box           *PointCloud `json:"-"`
	Footprint     *PointCloud `json:"-"`
	Merged        *PointCloud `json:"-"`
	Removed       int         `json:"removed"`
	FootprintRing orb.Ring    `json:"footprint"`
	GeneratedAt   time.Time   `json:"generatedAt"`
}

// SceneSummary is the JSON view of a scene used by HTTP and MQTT
type SceneSummary struct {
	RunID        string      `json:"runId,omitempty"`
	Pose         Pose        `json:"pose"`
	YawDegrees   float64     `json:"yawDegrees"`
	BoxPoints    int         `json:"boxPoints"`
	MergedPoints int         `json:"mergedPoints"`
	Removed      int         `json:"removed"`
	Footprint    [][]float64 `json:"footprint"`
	GeneratedAt  int64       `json:"generatedAt"`
}

// Summarize builds the JSON view of the scene
func (s *Scene) Summarize(runID string) SceneSummary {
	corners := make([][]float64, len(s.FootprintRing))
	for i, p := range s.FootprintRing {
		corners[i] = []float64{p[0], p[1]}
	}
	return SceneSummary{
		RunID:        runID,
		Pose:         s.Pose,
		YawDegrees:   s.Pose.YawDegrees(),
		BoxPoints:    s.Box.Len(),
		MergedPoints: s.Merged.Len(),
		Removed:      s.Removed,
		Footprint:    corners,
		GeneratedAt:  s.GeneratedAt.UnixNano(),
	}
}

// PlaneGeometry describes the ground grid
type PlaneGeometry struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step" json:"step"`
}

// DefaultPlaneGeometry covers [-5, 5] x [-5, 5] at 0.1 resolution
func DefaultPlaneGeometry() PlaneGeometry {
	return PlaneGeometry{Min: -5.0, Max: 5.0, Step: 0.1}
}

// Samples returns the number of grid samples along one axis
func (g PlaneGeometry) Samples() int {
	return gridCells(g.Max-g.Min, g.Step) + 1
}

// BoxGeometry describes the hollow cube
type BoxGeometry struct {
	Size float64 `yaml:"size" json:"size"`
	Step float64 `yaml:"step" json:"step"`
}

// DefaultBoxGeometry is a unit cube sampled at 0.1
func DefaultBoxGeometry() BoxGeometry {
	return BoxGeometry{Size: 1.0, Step: 0.1}
}

// Cells returns the number of grid cells along one edge
func (g BoxGeometry) Cells() int {
	return gridCells(g.Size, g.Step)
}

// SurfacePoints returns how many samples lie on the six faces
func (g BoxGeometry) SurfacePoints() int {
	n := g.Cells() + 1
	if n <= 2 {
		return n * n * n
	}
	inner := n - 2
	return n*n*n - inner*inner*inner
}

// MergeConfig controls footprint subtraction
type MergeConfig struct {
	Radius    float64 `yaml:"radius" json:"radius"`
	MinHeight float64 `yaml:"minHeight" json:"minHeight"`
	MaxHeight float64 `yaml:"maxHeight" json:"maxHeight"`
}

// DefaultMergeConfig removes plane points within 0.09 of the box bottom
// and keeps box points with z in [0.1, 1.0]
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{Radius: 0.09, MinHeight: 0.1, MaxHeight: 1.0}
}

// NoiseConfig controls per-axis jitter
type NoiseConfig struct {
	Amplitude float64 `yaml:"amplitude" json:"amplitude"`
}

// DefaultNoiseConfig jitters each axis by up to 0.0002
func DefaultNoiseConfig() NoiseConfig {
	return NoiseConfig{Amplitude: 0.0002}
}

// PoseConfig bounds the random box pose
type PoseConfig struct {
	PositionRange float64 `yaml:"positionRange" json:"positionRange"`
	YawMax        float64 `yaml:"yawMax" json:"yawMax"`
}

// DefaultPoseConfig draws x, y in [-2, 2] and yaw in [0, pi/2)
func DefaultPoseConfig() PoseConfig {
	return PoseConfig{PositionRange: 2.0, YawMax: math.Pi / 2}
}

// TimingConfig holds the two tick periods
type TimingConfig struct {
	BoxInterval     time.Duration `yaml:"boxInterval" json:"boxInterval"`
	PublishInterval time.Duration `yaml:"publishInterval" json:"publishInterval"`
}

// DefaultTimingConfig regenerates the box at 1 Hz and publishes at 5 Hz
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{BoxInterval: time.Second, PublishInterval: 200 * time.Millisecond}
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	CloudTopic    string `yaml:"cloudTopic,omitempty" json:"cloudTopic,omitempty"`       // default "cloud"
	ControlTopic  string `yaml:"controlTopic,omitempty" json:"controlTopic,omitempty"`   // optional pose override topic
	Encoding      string `yaml:"encoding,omitempty" json:"encoding,omitempty"`           // "json" or "binary"
	QoS           byte   `yaml:"qos,omitempty" json:"qos,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	FrameID string        `yaml:"frameId" json:"frameId"`
	Seed    uint64        `yaml:"seed,omitempty" json:"seed,omitempty"` // 0 seeds from the clock
	Plane   PlaneGeometry `yaml:"plane" json:"plane"`
	Box     BoxGeometry   `yaml:"box" json:"box"`
	Merge   MergeConfig   `yaml:"merge" json:"merge"`
	Noise   NoiseConfig   `yaml:"noise" json:"noise"`
	Pose    PoseConfig    `yaml:"pose" json:"pose"`
	Timing  TimingConfig  `yaml:"timing" json:"timing"`
	MQTT    MQTTConfig    `yaml:"mqtt" json:"mqtt"`
}

// DefaultConfig returns the stock scene: 10 m plane, unit box, 1 Hz / 5 Hz
func DefaultConfig() Config {
	return Config{
		FrameID: DefaultFrameID,
		Plane:   DefaultPlaneGeometry(),
		Box:     DefaultBoxGeometry(),
		Merge:   DefaultMergeConfig(),
		Noise:   DefaultNoiseConfig(),
		Pose:    DefaultPoseConfig(),
		Timing:  DefaultTimingConfig(),
		MQTT: MQTTConfig{
			PublishPrefix: "planebox",
			ClientID:      "planebox",
			CloudTopic:    "cloud",
			Encoding:      EncodingJSON,
		},
	}
}

// gridCells converts a length into a whole number of steps
func gridCells(length, step float64) int {
	if step <= 0 || length <= 0 {
		return 0
	}
	return int(math.Round(length / step))
}
