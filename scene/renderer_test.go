package scene

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderedScene(t *testing.T) (*PointCloud, *Scene) {
	t.Helper()
	g := newTestGenerator(t)
	s := g.RegenerateAt(Pose{X: 1, Y: 1, Yaw: 0.3})
	return s.Merged, s
}

func TestTopDownRenderer_Dimensions(t *testing.T) {
	r := NewTopDownRenderer()
	img := r.Render(GeneratePlane(), nil)

	// 10 m at 100 px/m plus padding on both sides
	want := 1000 + 2*r.Padding + 1
	assert.InDelta(t, want, img.Bounds().Dx(), 1)
	assert.InDelta(t, want, img.Bounds().Dy(), 1)
}

func TestTopDownRenderer_MaxSize(t *testing.T) {
	r := NewTopDownRenderer()
	r.MaxSize = 200
	img := r.Render(GeneratePlane(), nil)

	assert.LessOrEqual(t, img.Bounds().Dx(), 200+2*r.Padding+1)
}

func TestTopDownRenderer_DrawsLayers(t *testing.T) {
	pc, s := renderedScene(t)
	r := NewTopDownRenderer()
	img := r.Render(pc, s)

	bg := r.Palette.Background
	wall := toRGBA(r.Palette.Wall)
	var painted, walls int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c != bg {
				painted++
			}
			if c == wall {
				walls++
			}
		}
	}
	assert.Greater(t, painted, pc.Len()/2, "floor and walls should cover many pixels")
	assert.Greater(t, walls, 0, "box walls should be visible")
}

func TestTopDownRenderer_NilScene(t *testing.T) {
	pc := NewPointCloud("world", 0)
	pc.Append(Point{X: 0, Y: 0}, Point{X: 1, Y: 1, Z: 0.5})

	assert.NotPanics(t, func() {
		NewTopDownRenderer().Render(pc, nil)
	})
}

func TestTopDownRenderer_WritePNG(t *testing.T) {
	pc, s := renderedScene(t)
	r := NewTopDownRenderer()

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf, pc, s))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, r.Render(pc, s).Bounds(), img.Bounds())
}

func TestTopDownRenderer_SavePNG(t *testing.T) {
	pc, s := renderedScene(t)
	path := filepath.Join(t.TempDir(), "preview.png")

	require.NoError(t, NewTopDownRenderer().SavePNG(path, pc, s))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err)

	assert.Error(t, NewTopDownRenderer().SavePNG(filepath.Join(t.TempDir(), "missing", "x.png"), pc, s))
}
