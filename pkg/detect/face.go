package detect

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"

	"github.com/menta2k/reframe/pkg/types"
)

// FaceFinder locates faces in a single frame. Implementations must be safe
// to call sequentially per clip; a returned error is a recoverable
// DetectionFailure, never fatal.
type FaceFinder interface {
	DetectFaces(ctx context.Context, img image.Image) ([]types.FaceDetection, error)
}

// CascadeConfig holds tuning for the pigo cascade detector.
type CascadeConfig struct {
	MinSize       int
	MaxSize       int
	ShiftFactor   float64
	ScaleFactor   float64
	MinConfidence float64
}

// DefaultCascadeConfig returns the detector defaults.
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		MinSize:       40,
		MaxSize:       1200,
		ShiftFactor:   0.1,
		ScaleFactor:   1.1,
		MinConfidence: 5.0,
	}
}

// CascadeDetector wraps a pigo binary cascade classifier. It is the default
// face backend: fully local, no model server required.
type CascadeDetector struct {
	classifier *pigo.Pigo
	config     CascadeConfig
}

// NewCascadeDetector loads a pigo facefinder cascade from disk. A missing
// or malformed cascade is a configuration error and fails construction.
func NewCascadeDetector(cascadePath string, config CascadeConfig) (*CascadeDetector, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading cascade %s: %v", types.ErrConfiguration, cascadePath, err)
	}
	return NewCascadeDetectorFromBytes(data, config)
}

// NewCascadeDetectorFromBytes builds the detector from cascade bytes.
func NewCascadeDetectorFromBytes(data []byte, config CascadeConfig) (*CascadeDetector, error) {
	if config.ScaleFactor <= 1 {
		return nil, fmt.Errorf("%w: cascade scale_factor must exceed 1", types.ErrConfiguration)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: unpacking cascade: %v", types.ErrConfiguration, err)
	}
	return &CascadeDetector{classifier: classifier, config: config}, nil
}

// DetectFaces runs the cascade over the frame and returns clustered face
// boxes above the configured confidence.
func (d *CascadeDetector) DetectFaces(_ context.Context, img image.Image) ([]types.FaceDetection, error) {
	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols == 0 || rows == 0 {
		return nil, fmt.Errorf("%w: empty frame", types.ErrDetection)
	}

	pixels := frameLuma(img)

	maxSize := d.config.MaxSize
	if m := minInt(cols, rows); maxSize > m {
		maxSize = m
	}

	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	var faces []types.FaceDetection
	for _, det := range dets {
		if float64(det.Q) < d.config.MinConfidence {
			continue
		}
		side := float64(det.Scale)
		// Cluster quality is an open-ended score; fold it into [0,1] so
		// downstream scoring can mix it with normalized signals.
		conf := float64(det.Q) / 100
		if conf > 1 {
			conf = 1
		}
		faces = append(faces, types.FaceDetection{
			Box: types.Rect{
				X:      float64(det.Col) - side/2,
				Y:      float64(det.Row) - side/2,
				Width:  side,
				Height: side,
			},
			Confidence: conf,
		})
	}
	return faces, nil
}

// frameLuma converts a frame to the packed 8-bit grayscale buffer the
// cascade expects.
func frameLuma(img image.Image) []uint8 {
	gray := imaging.Grayscale(img)
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	luma := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			luma[y*w+x] = row[x*4]
		}
	}
	return luma
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
