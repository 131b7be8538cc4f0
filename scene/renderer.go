package scene

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Palette holds the colors used by both preview renderers
type Palette struct {
	Background color.RGBA
	Floor      color.NRGBA
	Wall       color.NRGBA
	Footprint  color.NRGBA
	Text       color.RGBA
}

// DefaultPalette returns the preview colors
func DefaultPalette() Palette {
	return Palette{
		Background: color.RGBA{240, 240, 240, 255},
		Floor:      color.NRGBA{100, 149, 237, 180}, // Cornflower blue
		Wall:       color.NRGBA{139, 0, 0, 255},     // Dark red
		Footprint:  color.NRGBA{255, 215, 0, 255},   // Gold
		Text:       color.RGBA{0, 0, 0, 255},
	}
}

// TopDownRenderer rasterizes a scene viewed from above. Points at or above
// WallHeight are drawn in the wall color, the rest in the floor color.
type TopDownRenderer struct {
	Scale      float64 // Pixels per metre
	Padding    int
	WallHeight float64
	Palette    Palette
	MaxSize    int
}

// NewTopDownRenderer creates a renderer with default settings
func NewTopDownRenderer() *TopDownRenderer {
	return &TopDownRenderer{
		Scale:      100,
		Padding:    30,
		WallHeight: DefaultMergeConfig().MinHeight,
		Palette:    DefaultPalette(),
		MaxSize:    4000,
	}
}

// Render draws the cloud and, when s is non-nil, the box footprint and a caption
func (r *TopDownRenderer) Render(pc *PointCloud, s *Scene) *image.RGBA {
	bound := pc.XYBound()
	if s != nil && len(s.FootprintRing) > 0 {
		bound = bound.Union(s.FootprintRing.Bound())
	}

	scale := r.Scale
	spanX := bound.Max[0] - bound.Min[0]
	spanY := bound.Max[1] - bound.Min[1]
	if r.MaxSize > 0 {
		if span := math.Max(spanX, spanY) * scale; span > float64(r.MaxSize) {
			scale *= float64(r.MaxSize) / span
		}
	}

	width := int(spanX*scale) + 2*r.Padding + 1
	height := int(spanY*scale) + 2*r.Padding + 1

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: r.Palette.Background}, image.Point{}, draw.Src)

	// y grows upward in the scene and downward in the image
	toImage := func(x, y float64) (int, int) {
		ix := int((x-bound.Min[0])*scale) + r.Padding
		iy := height - 1 - (int((y-bound.Min[1])*scale) + r.Padding)
		return ix, iy
	}

	// Floor first, walls on top
	for pass := 0; pass < 2; pass++ {
		for _, p := range pc.Points {
			isWall := p.Z >= r.WallHeight-heightTolerance
			if (pass == 0) == isWall {
				continue
			}
			ix, iy := toImage(p.X, p.Y)
			if pass == 0 {
				if image.Pt(ix, iy).In(img.Bounds()) {
					img.Set(ix, iy, blendColors(img.RGBAAt(ix, iy), r.Palette.Floor))
				}
				continue
			}
			fillBlock(img, ix, iy, 1, toRGBA(r.Palette.Wall))
		}
	}

	if s != nil {
		ring := s.FootprintRing
		for i := 1; i < len(ring); i++ {
			x0, y0 := toImage(ring[i-1][0], ring[i-1][1])
			x1, y1 := toImage(ring[i][0], ring[i][1])
			drawLine(img, x0, y0, x1, y1, toRGBA(r.Palette.Footprint))
		}
		caption := fmt.Sprintf("box (%.2f, %.2f) yaw %.1f  removed %d  points %d",
			s.Pose.X, s.Pose.Y, s.Pose.YawDegrees(), s.Removed, pc.Len())
		drawText(img, 5, 15, caption, r.Palette.Text)
	}

	return img
}

// WritePNG renders and encodes the preview as PNG
func (r *TopDownRenderer) WritePNG(w io.Writer, pc *PointCloud, s *Scene) error {
	return png.Encode(w, r.Render(pc, s))
}

// SavePNG renders the preview to a file
func (r *TopDownRenderer) SavePNG(path string, pc *PointCloud, s *Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return r.WritePNG(f, pc, s)
}

// drawText writes a single line using the fixed 7x13 face
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// fillBlock fills a (2*half+1) pixel square centred on (cx, cy)
func fillBlock(img *image.RGBA, cx, cy, half int, c color.RGBA) {
	b := img.Bounds()
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			if image.Pt(cx+dx, cy+dy).In(b) {
				img.Set(cx+dx, cy+dy, c)
			}
		}
	}
}

// drawLine draws a line with Bresenham's algorithm
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	b := img.Bounds()
	for {
		if image.Pt(x0, y0).In(b) {
			img.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// blendColors alpha-blends a non-premultiplied color over an opaque one
func blendColors(dst color.RGBA, src color.NRGBA) color.RGBA {
	a := float64(src.A) / 255
	mix := func(d, s uint8) uint8 {
		return uint8(float64(s)*a + float64(d)*(1-a))
	}
	return color.RGBA{
		R: mix(dst.R, src.R),
		G: mix(dst.G, src.G),
		B: mix(dst.B, src.B),
		A: 255,
	}
}

// toRGBA premultiplies alpha
func toRGBA(c color.NRGBA) color.RGBA {
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	a := uint32(c.A)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: c.A,
	}
}
