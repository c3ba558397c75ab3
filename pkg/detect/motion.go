package detect

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/reframe/pkg/types"
)

// MotionConfig holds tuning for frame-differencing blob detection.
type MotionConfig struct {
	BlurSigma     float64 // gaussian blur before differencing
	DiffThreshold uint8   // per-pixel absolute difference cutoff
	DilateSteps   int     // 3x3 dilation passes to join fragments
	MinAreaRatio  float64 // blobs below this fraction of the frame are noise
	AnalysisDim   int     // frames are downscaled to this width first
}

// DefaultMotionConfig returns the motion detector defaults.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		BlurSigma:     1.5,
		DiffThreshold: 25,
		DilateSteps:   2,
		MinAreaRatio:  0.005,
		AnalysisDim:   320,
	}
}

// MotionDetector finds gross motion regions by differencing consecutive
// frames. It is a pure function of (frame, previous frame); the caller owns
// the previous-frame buffer.
type MotionDetector struct {
	config MotionConfig
}

// NewMotionDetector creates a MotionDetector with default configuration.
func NewMotionDetector() *MotionDetector {
	return &MotionDetector{config: DefaultMotionConfig()}
}

// NewMotionDetectorWithConfig creates a MotionDetector with custom tuning.
func NewMotionDetectorWithConfig(config MotionConfig) *MotionDetector {
	if config.AnalysisDim <= 0 {
		config.AnalysisDim = 320
	}
	return &MotionDetector{config: config}
}

// Detect returns motion blobs between prev and cur, in cur's pixel
// coordinates. Blobs smaller than the configured area ratio are dropped.
func (d *MotionDetector) Detect(cur, prev image.Image) ([]types.MotionRegion, error) {
	if cur == nil || prev == nil {
		return nil, fmt.Errorf("%w: missing frame for differencing", types.ErrDetection)
	}

	srcW := cur.Bounds().Dx()
	srcH := cur.Bounds().Dy()
	if srcW == 0 || srcH == 0 {
		return nil, fmt.Errorf("%w: empty frame", types.ErrDetection)
	}

	curLuma, w, h := d.analysisLuma(cur)
	prevLuma, pw, ph := d.analysisLuma(prev)
	if w != pw || h != ph {
		return nil, fmt.Errorf("%w: frame size changed mid-clip (%dx%d vs %dx%d)", types.ErrDetection, w, h, pw, ph)
	}

	// Absolute difference, thresholded into a binary mask.
	mask := make([]uint8, w*h)
	for i := range mask {
		diff := int(curLuma[i]) - int(prevLuma[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > int(d.config.DiffThreshold) {
			mask[i] = 1
		}
	}

	for i := 0; i < d.config.DilateSteps; i++ {
		mask = dilate(mask, w, h)
	}

	blobs := labelBlobs(mask, w, h)

	scale := float64(srcW) / float64(w)
	minArea := d.config.MinAreaRatio * float64(w*h)

	var regions []types.MotionRegion
	for _, b := range blobs {
		if float64(b.area) < minArea {
			continue
		}
		regions = append(regions, types.MotionRegion{
			Box: types.Rect{
				X:      float64(b.minX) * scale,
				Y:      float64(b.minY) * scale,
				Width:  float64(b.maxX-b.minX+1) * scale,
				Height: float64(b.maxY-b.minY+1) * scale,
			},
			Area: float64(b.area) * scale * scale,
		})
	}
	return regions, nil
}

// analysisLuma downscales, blurs, and converts a frame to packed luma.
func (d *MotionDetector) analysisLuma(img image.Image) ([]uint8, int, int) {
	work := img
	if img.Bounds().Dx() > d.config.AnalysisDim {
		work = imaging.Resize(img, d.config.AnalysisDim, 0, imaging.Box)
	}
	if d.config.BlurSigma > 0 {
		work = imaging.Blur(work, d.config.BlurSigma)
	}

	gray := imaging.Grayscale(work)
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	luma := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			luma[y*w+x] = row[x*4]
		}
	}
	return luma, w, h
}

// dilate grows the binary mask by one pixel in each direction.
func dilate(mask []uint8, w, h int) []uint8 {
	out := make([]uint8, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask[y*w+x] == 0 {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					out[ny*w+nx] = 1
				}
			}
		}
	}
	return out
}

type blob struct {
	minX, minY, maxX, maxY int
	area                   int
}

// labelBlobs extracts connected components from the binary mask with an
// iterative flood fill.
func labelBlobs(mask []uint8, w, h int) []blob {
	visited := make([]bool, len(mask))
	var blobs []blob
	var stack []int

	for start := range mask {
		if mask[start] == 0 || visited[start] {
			continue
		}

		b := blob{minX: w, minY: h, maxX: -1, maxY: -1}
		stack = append(stack[:0], start)
		visited[start] = true

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			x, y := i%w, i/w
			b.area++
			if x < b.minX {
				b.minX = x
			}
			if x > b.maxX {
				b.maxX = x
			}
			if y < b.minY {
				b.minY = y
			}
			if y > b.maxY {
				b.maxY = y
			}

			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				if n < 0 || n >= len(mask) {
					continue
				}
				// Guard the horizontal neighbors against row wrap.
				if (n == i-1 && x == 0) || (n == i+1 && x == w-1) {
					continue
				}
				if mask[n] == 1 && !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}

		blobs = append(blobs, b)
	}
	return blobs
}
