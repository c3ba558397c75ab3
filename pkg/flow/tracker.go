package flow

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Tracker estimates sparse optical flow between consecutive frames. It
// tracks a set of corner features with block matching and reports the mean
// displacement as a normalized motion intensity plus a dominant direction.
//
// A Tracker owns all of its inter-frame state. Clips processed concurrently
// must each use their own instance; Reset prepares an instance for a new
// clip.
type Tracker struct {
	config Config

	prevGray []uint8
	width    int
	height   int
	scale    float64 // analysis px -> source px
	points   []point
}

// Config holds tuning for feature tracking.
type Config struct {
	MaxPoints    int     // features to seed
	MinPoints    int     // re-detect when fewer survive
	SearchRadius int     // block-match search radius in analysis pixels
	BlockSize    int     // block-match window side
	AnalysisDim  int     // frames are downscaled to this width before analysis
	NormScale    float64 // source-pixel displacement mapped to intensity 1.0
}

type point struct {
	x, y int
}

// Result is one frame's flow estimate. Intensity is in [0,1]; DX and DY are
// the mean displacement in source pixels.
type Result struct {
	Intensity float64
	DX        float64
	DY        float64
}

// New creates a Tracker with default configuration.
func New() *Tracker {
	return NewWithConfig(Config{
		MaxPoints:    120,
		MinPoints:    30,
		SearchRadius: 12,
		BlockSize:    8,
		AnalysisDim:  320,
		NormScale:    20,
	})
}

// NewWithConfig creates a Tracker with custom configuration.
func NewWithConfig(config Config) *Tracker {
	if config.AnalysisDim <= 0 {
		config.AnalysisDim = 320
	}
	if config.BlockSize < 3 {
		config.BlockSize = 3
	}
	return &Tracker{config: config}
}

// Reset clears all inter-frame state for a new clip.
func (t *Tracker) Reset() {
	t.prevGray = nil
	t.points = nil
	t.width = 0
	t.height = 0
}

// Track estimates motion between the previous frame and img. On the first
// call, or whenever too few features survive tracking, it returns zero
// motion and re-seeds feature points. Track never fails; degenerate input
// yields a zero result.
func (t *Tracker) Track(img image.Image) Result {
	gray, w, h, scale := t.toAnalysisGray(img)
	if len(gray) == 0 {
		return Result{}
	}

	defer func() {
		t.prevGray = gray
		t.width = w
		t.height = h
		t.scale = scale
	}()

	if t.prevGray == nil || t.width != w || t.height != h {
		t.points = detectCorners(gray, w, h, t.config.MaxPoints)
		return Result{}
	}

	var sumDX, sumDY, sumMag float64
	survivors := t.points[:0]

	for _, p := range t.points {
		dx, dy, ok := t.matchBlock(t.prevGray, gray, w, h, p)
		if !ok {
			continue
		}
		np := point{p.x + dx, p.y + dy}
		if np.x < 0 || np.y < 0 || np.x >= w || np.y >= h {
			continue
		}
		sumDX += float64(dx)
		sumDY += float64(dy)
		sumMag += math.Hypot(float64(dx), float64(dy))
		survivors = append(survivors, np)
	}

	t.points = survivors

	if len(survivors) < t.config.MinPoints {
		// Tracking collapsed: re-seed and report no motion rather than a
		// spurious estimate from a handful of points.
		t.points = detectCorners(gray, w, h, t.config.MaxPoints)
		return Result{}
	}

	n := float64(len(survivors))
	intensity := (sumMag / n) * t.scale / t.config.NormScale
	if intensity > 1.0 {
		intensity = 1.0
	}

	return Result{
		Intensity: intensity,
		DX:        (sumDX / n) * t.scale,
		DY:        (sumDY / n) * t.scale,
	}
}

// toAnalysisGray downscales the frame to the analysis width and converts it
// to a packed luma buffer.
func (t *Tracker) toAnalysisGray(img image.Image) ([]uint8, int, int, float64) {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	if srcW == 0 || bounds.Dy() == 0 {
		return nil, 0, 0, 1
	}

	scale := 1.0
	work := img
	if srcW > t.config.AnalysisDim {
		work = imaging.Resize(img, t.config.AnalysisDim, 0, imaging.Box)
		scale = float64(srcW) / float64(t.config.AnalysisDim)
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
	return luma, w, h, scale
}

// matchBlock finds the displacement of the block around p from prev to cur
// by exhaustive SSD search within the configured radius.
func (t *Tracker) matchBlock(prev, cur []uint8, w, h int, p point) (int, int, bool) {
	half := t.config.BlockSize / 2
	if p.x-half < 0 || p.y-half < 0 || p.x+half >= w || p.y+half >= h {
		return 0, 0, false
	}

	r := t.config.SearchRadius
	bestSSD := math.MaxFloat64
	bestDX, bestDY := 0, 0

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			nx, ny := p.x+dx, p.y+dy
			if nx-half < 0 || ny-half < 0 || nx+half >= w || ny+half >= h {
				continue
			}
			ssd := blockSSD(prev, cur, w, p.x, p.y, nx, ny, half)
			if ssd < bestSSD {
				bestSSD = ssd
				bestDX, bestDY = dx, dy
			}
		}
	}

	// Reject matches where even the best block differs wildly; the feature
	// was likely occluded or left the frame.
	side := float64(2*half + 1)
	if bestSSD/(side*side) > 900 { // mean squared pixel error > 30^2
		return 0, 0, false
	}
	return bestDX, bestDY, true
}

func blockSSD(prev, cur []uint8, w, px, py, cx, cy, half int) float64 {
	var ssd float64
	for dy := -half; dy <= half; dy++ {
		prow := (py + dy) * w
		crow := (cy + dy) * w
		for dx := -half; dx <= half; dx++ {
			d := float64(prev[prow+px+dx]) - float64(cur[crow+cx+dx])
			ssd += d * d
		}
	}
	return ssd
}

// detectCorners seeds feature points with a Shi-Tomasi style minimum
// eigenvalue response, keeping at most one point per grid cell so features
// spread across the frame instead of clustering on the strongest texture.
func detectCorners(gray []uint8, w, h, maxPoints int) []point {
	if maxPoints <= 0 || w < 8 || h < 8 {
		return nil
	}

	// Grid sized so a full grid roughly matches the requested point count.
	cells := int(math.Ceil(math.Sqrt(float64(maxPoints))))
	cellW := (w + cells - 1) / cells
	cellH := (h + cells - 1) / cells

	type candidate struct {
		p        point
		response float64
	}
	best := make(map[int]candidate)

	for y := 2; y < h-2; y++ {
		for x := 2; x < w-2; x++ {
			resp := cornerResponse(gray, w, x, y)
			if resp <= 0 {
				continue
			}
			cell := (y/cellH)*cells + x/cellW
			if cur, ok := best[cell]; !ok || resp > cur.response {
				best[cell] = candidate{p: point{x, y}, response: resp}
			}
		}
	}

	points := make([]point, 0, len(best))
	for _, c := range best {
		points = append(points, c.p)
		if len(points) == maxPoints {
			break
		}
	}
	return points
}

// cornerResponse computes the minimum eigenvalue of the 3x3 structure
// tensor at (x, y).
func cornerResponse(gray []uint8, w, x, y int) float64 {
	var sxx, syy, sxy float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			i := (y+dy)*w + x + dx
			ix := float64(gray[i+1]) - float64(gray[i-1])
			iy := float64(gray[i+w]) - float64(gray[i-w])
			sxx += ix * ix
			syy += iy * iy
			sxy += ix * iy
		}
	}
	tr := (sxx + syy) / 2
	det := math.Sqrt(((sxx-syy)/2)*((sxx-syy)/2) + sxy*sxy)
	lambdaMin := tr - det

	// Ignore flat regions and simple edges.
	if lambdaMin < 500 {
		return 0
	}
	return lambdaMin
}
