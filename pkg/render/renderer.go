package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/reframe/pkg/types"
)

// Renderer converts crop decisions into output frames at exactly the
// configured resolution. Source pixels are never stretched anisotropically:
// when the ideal crop cannot fit the source frame the renderer letterboxes
// instead, and any internal failure degrades to a full-frame fit.
type Renderer struct {
	targetW int
	targetH int
	padColor color.NRGBA
}

// NewRenderer creates a Renderer for the given output resolution.
func NewRenderer(targetW, targetH int) (*Renderer, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("%w: target resolution must be positive, got %dx%d",
			types.ErrConfiguration, targetW, targetH)
	}
	return &Renderer{
		targetW:  targetW,
		targetH:  targetH,
		padColor: color.NRGBA{0, 0, 0, 255},
	}, nil
}

// TargetSize returns the configured output dimensions.
func (r *Renderer) TargetSize() (int, int) {
	return r.targetW, r.targetH
}

// Render produces the output frame for one crop decision. It never fails:
// invalid crop math falls back to a letterboxed full frame, and the result
// is always exactly the target resolution.
func (r *Renderer) Render(frame image.Image, decision types.CropDecision) image.Image {
	switch layout := decision.Layout.(type) {
	case types.SplitLayout:
		return r.renderSplit(frame, layout)
	case types.SingleLayout:
		return r.renderSingle(frame, layout.Center, layout.Zoom)
	default:
		return r.renderSingle(frame, decision.Center, decision.Zoom)
	}
}

// Letterbox renders the full frame scaled to fit the target width, centered
// vertically on a padded canvas. It is the distortion-free fallback.
func (r *Renderer) Letterbox(frame image.Image) image.Image {
	if frame == nil || frame.Bounds().Dx() == 0 || frame.Bounds().Dy() == 0 {
		return imaging.New(r.targetW, r.targetH, r.padColor)
	}

	scaled := imaging.Resize(frame, r.targetW, 0, imaging.Lanczos)
	if scaled.Bounds().Dy() >= r.targetH {
		return imaging.CropCenter(scaled, r.targetW, r.targetH)
	}

	canvas := imaging.New(r.targetW, r.targetH, r.padColor)
	y := (r.targetH - scaled.Bounds().Dy()) / 2
	return imaging.Paste(canvas, scaled, image.Pt(0, y))
}

// renderSingle crops around center at the given zoom and resizes to the
// output resolution.
func (r *Renderer) renderSingle(frame image.Image, center types.Point, zoom float64) image.Image {
	rect, ok := r.cropRect(frame, center, zoom, r.targetW, r.targetH)
	if !ok {
		return r.Letterbox(frame)
	}
	cropped := imaging.Crop(frame, rect)
	if cropped.Bounds().Dx() == 0 || cropped.Bounds().Dy() == 0 {
		return r.Letterbox(frame)
	}
	return imaging.Resize(cropped, r.targetW, r.targetH, imaging.Lanczos)
}

// renderSplit stacks two half-height crops vertically, one per subject.
func (r *Renderer) renderSplit(frame image.Image, layout types.SplitLayout) image.Image {
	panelH := r.targetH / 2

	top := r.renderPanel(frame, layout.Top, layout.Zoom, panelH)
	bottom := r.renderPanel(frame, layout.Bottom, layout.Zoom, r.targetH-panelH)

	canvas := imaging.New(r.targetW, r.targetH, r.padColor)
	canvas = imaging.Paste(canvas, top, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, bottom, image.Pt(0, panelH))
	return canvas
}

func (r *Renderer) renderPanel(frame image.Image, center types.Point, zoom float64, panelH int) image.Image {
	rect, ok := r.cropRect(frame, center, zoom, r.targetW, panelH)
	if !ok {
		scaled := imaging.Resize(frame, r.targetW, 0, imaging.Lanczos)
		if scaled.Bounds().Dy() >= panelH {
			return imaging.CropCenter(scaled, r.targetW, panelH)
		}
		canvas := imaging.New(r.targetW, panelH, r.padColor)
		return imaging.Paste(canvas, scaled, image.Pt(0, (panelH-scaled.Bounds().Dy())/2))
	}
	cropped := imaging.Crop(frame, rect)
	if cropped.Bounds().Dx() == 0 || cropped.Bounds().Dy() == 0 {
		return imaging.New(r.targetW, panelH, r.padColor)
	}
	return imaging.Resize(cropped, r.targetW, panelH, imaging.Lanczos)
}

// cropRect computes the source crop for the given output aspect at the
// requested zoom, clamped fully inside frame bounds by shifting. ok is
// false when the crop cannot cover the frame uniformly (zoomed out past
// the source) or the math degenerates; callers letterbox instead.
func (r *Renderer) cropRect(frame image.Image, center types.Point, zoom float64, outW, outH int) (image.Rectangle, bool) {
	if frame == nil {
		return image.Rectangle{}, false
	}
	bounds := frame.Bounds()
	frameW := float64(bounds.Dx())
	frameH := float64(bounds.Dy())
	if frameW == 0 || frameH == 0 || outH == 0 {
		return image.Rectangle{}, false
	}

	if math.IsNaN(center.X) || math.IsNaN(center.Y) || math.IsNaN(zoom) || zoom <= 0 {
		return image.Rectangle{}, false
	}

	aspect := float64(outW) / float64(outH)

	// Largest rect with the output aspect that fits the frame, shrunk by
	// zoom. zoom < 1 asks for more than the frame has.
	var cropW, cropH float64
	if frameW/frameH > aspect {
		cropH = frameH / zoom
		cropW = cropH * aspect
	} else {
		cropW = frameW / zoom
		cropH = cropW / aspect
	}

	const eps = 1e-6
	if cropW > frameW+eps || cropH > frameH+eps {
		return image.Rectangle{}, false
	}
	if cropW < 1 || cropH < 1 {
		return image.Rectangle{}, false
	}

	// Shift into bounds; never scale to fit.
	x0 := clampF(center.X-cropW/2, 0, frameW-cropW)
	y0 := clampF(center.Y-cropH/2, 0, frameH-cropH)

	rect := image.Rect(
		bounds.Min.X+int(x0+0.5),
		bounds.Min.Y+int(y0+0.5),
		bounds.Min.X+int(x0+cropW+0.5),
		bounds.Min.Y+int(y0+cropH+0.5),
	).Intersect(bounds)

	if rect.Empty() {
		return image.Rectangle{}, false
	}
	return rect, true
}

func clampF(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
