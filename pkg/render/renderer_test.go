package render

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/menta2k/reframe/pkg/types"
)

// gradientFrame creates a test frame with a horizontal red gradient so crop
// position is observable in the output pixels.
func gradientFrame(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / width), 100, 100, 255})
		}
	}
	return img
}

func assertSize(t *testing.T, img image.Image, w, h int) {
	t.Helper()
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("output is %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), w, h)
	}
}

func TestNewRendererRejectsBadDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 1920}, {1080, 0}, {-1, 1920}} {
		_, err := NewRenderer(dims[0], dims[1])
		if !errors.Is(err, types.ErrConfiguration) {
			t.Errorf("NewRenderer(%d, %d): expected ErrConfiguration, got %v", dims[0], dims[1], err)
		}
	}
}

func TestRenderAlwaysExactResolution(t *testing.T) {
	r, err := NewRenderer(1080, 1920)
	if err != nil {
		t.Fatal(err)
	}

	frame := gradientFrame(1920, 1080)
	decisions := []types.CropDecision{
		{Center: types.Point{X: 960, Y: 540}, Zoom: 1.4},
		{Center: types.Point{X: 0, Y: 0}, Zoom: 2.5},       // off-frame center
		{Center: types.Point{X: 5000, Y: 5000}, Zoom: 1.0}, // far off-frame
		{Center: types.Point{X: 960, Y: 540}, Zoom: 0.5},   // letterbox path
		{Center: types.Point{X: math.NaN(), Y: 540}, Zoom: 1.0},
		{Center: types.Point{X: 960, Y: 540}, Zoom: math.NaN()},
		{Center: types.Point{X: 960, Y: 540}, Zoom: -1},
	}
	for i, d := range decisions {
		out := r.Render(frame, d)
		if out.Bounds().Dx() != 1080 || out.Bounds().Dy() != 1920 {
			t.Errorf("decision %d: output %dx%d, want 1080x1920", i, out.Bounds().Dx(), out.Bounds().Dy())
		}
	}
}

func TestRenderCropFollowsCenter(t *testing.T) {
	r, err := NewRenderer(100, 100)
	if err != nil {
		t.Fatal(err)
	}
	frame := gradientFrame(1000, 500)

	left := r.Render(frame, types.CropDecision{Center: types.Point{X: 250, Y: 250}, Zoom: 1.0})
	right := r.Render(frame, types.CropDecision{Center: types.Point{X: 750, Y: 250}, Zoom: 1.0})

	lr, _, _, _ := left.At(50, 50).RGBA()
	rr, _, _, _ := right.At(50, 50).RGBA()
	if lr >= rr {
		t.Errorf("left crop red %d >= right crop red %d; crop did not follow the center", lr, rr)
	}
}

func TestRenderZoomOutLetterboxes(t *testing.T) {
	r, err := NewRenderer(100, 200)
	if err != nil {
		t.Fatal(err)
	}
	// Wide source into a tall target at zoom < 1: the crop would exceed the
	// frame, so the renderer letterboxes with black bars instead.
	frame := gradientFrame(400, 100)
	out := r.Render(frame, types.CropDecision{Center: types.Point{X: 200, Y: 50}, Zoom: 0.5})
	assertSize(t, out, 100, 200)

	_, topG, _, _ := out.At(50, 2).RGBA()
	_, midG, _, _ := out.At(50, 100).RGBA()
	if topG != 0 {
		t.Errorf("expected black padding at top, got green %d", topG)
	}
	if midG == 0 {
		t.Error("expected image content at center, got black")
	}
}

func TestRenderClampsByShiftingNotScaling(t *testing.T) {
	r, err := NewRenderer(100, 100)
	if err != nil {
		t.Fatal(err)
	}
	frame := gradientFrame(1000, 500)

	// Center at the far right edge: the crop shifts inside bounds, so the
	// output right edge matches the source right edge (brightest red).
	out := r.Render(frame, types.CropDecision{Center: types.Point{X: 999, Y: 250}, Zoom: 1.0})
	assertSize(t, out, 100, 100)

	rRight, _, _, _ := out.At(99, 50).RGBA()
	rLeft, _, _, _ := out.At(0, 50).RGBA()
	if rRight <= rLeft {
		t.Errorf("right edge red %d <= left edge red %d; crop was not shifted to the frame edge", rRight, rLeft)
	}
}

func TestRenderSplitLayout(t *testing.T) {
	r, err := NewRenderer(100, 200)
	if err != nil {
		t.Fatal(err)
	}
	frame := gradientFrame(1000, 500)

	out := r.Render(frame, types.CropDecision{
		Layout: types.SplitLayout{
			Top:    types.Point{X: 200, Y: 250},
			Bottom: types.Point{X: 800, Y: 250},
			Zoom:   1.2,
		},
	})
	assertSize(t, out, 100, 200)

	// Top panel follows the left subject, bottom panel the right one.
	topR, _, _, _ := out.At(50, 50).RGBA()
	bottomR, _, _, _ := out.At(50, 150).RGBA()
	if topR >= bottomR {
		t.Errorf("top panel red %d >= bottom panel red %d; panels not framed per subject", topR, bottomR)
	}
}

func TestLetterboxNarrowSourcePadsTopAndBottom(t *testing.T) {
	r, err := NewRenderer(100, 400)
	if err != nil {
		t.Fatal(err)
	}
	// 2:1 source scaled to width 100 is 50 tall; the rest is padding.
	out := r.Letterbox(gradientFrame(200, 100))
	assertSize(t, out, 100, 400)

	_, g, _, _ := out.At(50, 10).RGBA()
	if g != 0 {
		t.Errorf("expected black padding, got green %d", g)
	}
	_, g, _, _ = out.At(50, 200).RGBA()
	if g == 0 {
		t.Error("expected image content at vertical center, got black")
	}
}

func TestLetterboxNilFrameYieldsBlackCanvas(t *testing.T) {
	r, err := NewRenderer(100, 100)
	if err != nil {
		t.Fatal(err)
	}
	out := r.Letterbox(nil)
	assertSize(t, out, 100, 100)
}

func TestRenderNilFrameLetterboxes(t *testing.T) {
	r, err := NewRenderer(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	out := r.Render(nil, types.CropDecision{Center: types.Point{X: 10, Y: 10}, Zoom: 1.0})
	assertSize(t, out, 64, 64)
}
