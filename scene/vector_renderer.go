package scene

import (
	"image/png"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// VectorRenderer draws a top-down scene with tdewolff/canvas. Canvas units
// are millimetres, so one scene metre is 1000 units.
type VectorRenderer struct {
	Padding     float64 // mm
	PointRadius float64 // mm
	GridSpacing float64 // mm, 0 disables the grid
	WallHeight  float64 // m
	Palette     Palette
	Resolution  canvas.Resolution
}

const mmPerMetre = 1000.0

// NewVectorRenderer creates a vector renderer with default settings
func NewVectorRenderer() *VectorRenderer {
	return &VectorRenderer{
		Padding:     250,
		PointRadius: 8,
		GridSpacing: 1000,
		WallHeight:  DefaultMergeConfig().MinHeight,
		Palette:     DefaultPalette(),
		Resolution:  canvas.DPMM(0.2),
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the scene as SVG
func (r *VectorRenderer) RenderToSVG(w io.Writer, pc *PointCloud, s *Scene) error {
	bound := r.worldBound(pc, s)
	width, height := r.size(bound)

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, bound, width, height, pc, s)
	return svgRenderer.Close()
}

// RenderToPNG rasterizes the scene and writes it as PNG
func (r *VectorRenderer) RenderToPNG(w io.Writer, pc *PointCloud, s *Scene) error {
	bound := r.worldBound(pc, s)
	width, height := r.size(bound)

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, bound, width, height, pc, s)
	return png.Encode(w, rast)
}

func (r *VectorRenderer) worldBound(pc *PointCloud, s *Scene) orb.Bound {
	bound := pc.XYBound()
	if s != nil && len(s.FootprintRing) > 0 {
		bound = bound.Union(s.FootprintRing.Bound())
	}
	return bound
}

func (r *VectorRenderer) size(bound orb.Bound) (float64, float64) {
	width := (bound.Max[0]-bound.Min[0])*mmPerMetre + 2*r.Padding
	height := (bound.Max[1]-bound.Min[1])*mmPerMetre + 2*r.Padding
	return width, height
}

func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, bound orb.Bound, width, height float64, pc *PointCloud, s *Scene) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	// Canvas y already points up, matching the scene
	toCanvas := func(x, y float64) (float64, float64) {
		return (x-bound.Min[0])*mmPerMetre + r.Padding, (y-bound.Min[1])*mmPerMetre + r.Padding
	}

	if r.GridSpacing > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		gridStyle.StrokeWidth = 2
		gridStyle.Dashes = []float64{10, 10}

		step := r.GridSpacing / mmPerMetre
		for x := math.Ceil(bound.Min[0]/step) * step; x <= bound.Max[0]; x += step {
			grid := &canvas.Path{}
			grid.MoveTo(toCanvas(x, bound.Min[1]))
			grid.LineTo(toCanvas(x, bound.Max[1]))
			renderer.RenderPath(grid, gridStyle, canvas.Identity)
		}
		for y := math.Ceil(bound.Min[1]/step) * step; y <= bound.Max[1]; y += step {
			grid := &canvas.Path{}
			grid.MoveTo(toCanvas(bound.Min[0], y))
			grid.LineTo(toCanvas(bound.Max[0], y))
			renderer.RenderPath(grid, gridStyle, canvas.Identity)
		}
	}

	// One compound path per layer keeps the SVG small
	floor := &canvas.Path{}
	walls := &canvas.Path{}
	dot := canvas.Circle(r.PointRadius)
	for _, p := range pc.Points {
		cx, cy := toCanvas(p.X, p.Y)
		if p.Z >= r.WallHeight-heightTolerance {
			walls = walls.Append(dot.Translate(cx, cy))
		} else {
			floor = floor.Append(dot.Translate(cx, cy))
		}
	}

	floorStyle := canvas.DefaultStyle
	floorStyle.Fill = canvas.Paint{Color: toRGBA(r.Palette.Floor)}
	floorStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	renderer.RenderPath(floor, floorStyle, canvas.Identity)

	wallStyle := floorStyle
	wallStyle.Fill = canvas.Paint{Color: toRGBA(r.Palette.Wall)}
	renderer.RenderPath(walls, wallStyle, canvas.Identity)

	if s != nil && len(s.FootprintRing) > 1 {
		outline := &canvas.Path{}
		for i, pt := range s.FootprintRing {
			cx, cy := toCanvas(pt[0], pt[1])
			if i == 0 {
				outline.MoveTo(cx, cy)
			} else {
				outline.LineTo(cx, cy)
			}
		}
		outline.Close()

		outlineStyle := canvas.DefaultStyle
		outlineStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		outlineStyle.Stroke = canvas.Paint{Color: toRGBA(r.Palette.Footprint)}
		outlineStyle.StrokeWidth = 15
		renderer.RenderPath(outline, outlineStyle, canvas.Identity)
	}
}
