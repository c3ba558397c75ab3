package camera

import (
	"math"

	"github.com/menta2k/reframe/pkg/types"
)

// Target is the ideal pan position and zoom for one frame, in source-frame
// pixels.
type Target struct {
	X    float64
	Y    float64
	Zoom float64
}

// ResolverConfig holds framing tuning.
type ResolverConfig struct {
	HeadroomRatio         float64 // upward shift for a single face, as fraction of face height
	ShowcaseDropRatio     float64 // vertical anchor for product showcases, as fraction of frame height
	MotionZoomAttenuation float64 // zoom-out per unit of motion intensity
	ZoomMin               float64
	ZoomMax               float64
}

// DefaultResolverConfig returns the resolver defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		HeadroomRatio:         0.10,
		ShowcaseDropRatio:     0.65,
		MotionZoomAttenuation: 0.4,
		ZoomMin:               0.4,
		ZoomMax:               2.5,
	}
}

// Per-context base zoom. Tighter on a lone speaker, wider on groups and
// fast action.
var baseZoom = map[types.SceneContext]float64{
	types.ContextSingleSpeaker:   1.4,
	types.ContextConversation:    1.1,
	types.ContextProductShowcase: 1.2,
	types.ContextGroupShot:       0.9,
	types.ContextAction:          0.8,
	types.ContextStatic:          1.0,
	types.ContextTransition:      1.0,
	types.ContextUnknown:         1.0,
}

// Resolver maps (detections, context) to an ideal camera target. It is a
// pure function of its inputs and carries no per-clip state.
type Resolver struct {
	config ResolverConfig
}

// NewResolver creates a Resolver with default configuration.
func NewResolver() *Resolver {
	return NewResolverWithConfig(DefaultResolverConfig())
}

// NewResolverWithConfig creates a Resolver with custom tuning.
func NewResolverWithConfig(config ResolverConfig) *Resolver {
	return &Resolver{config: config}
}

// Resolve computes the pan target and zoom for one frame.
func (r *Resolver) Resolve(obs types.FrameObservation, context types.SceneContext, isShowcase bool, frameW, frameH float64) Target {
	center := types.Point{X: frameW / 2, Y: frameH / 2}

	var pos types.Point
	switch {
	case context == types.ContextSingleSpeaker && len(obs.Faces) > 0:
		primary := SelectPrimaryFace(obs.Faces, frameW, frameH)
		pos = primary.Center()
		// Headroom: keep some space above the head instead of centering
		// the face exactly.
		pos.Y -= primary.Box.Height * r.config.HeadroomRatio

	case context == types.ContextProductShowcase && len(obs.Faces) > 0:
		centroid := faceCentroid(obs.Faces)
		anchor := types.Point{X: centroid.X, Y: frameH * r.config.ShowcaseDropRatio}
		pos = types.Point{
			X: (centroid.X + anchor.X) / 2,
			Y: (centroid.Y + anchor.Y) / 2,
		}

	case len(obs.Faces) > 0:
		// CONVERSATION, GROUP_SHOT, and anything else with faces frames
		// the centroid of all face centers.
		pos = faceCentroid(obs.Faces)

	case len(obs.MotionRegions) > 0:
		pos = motionCentroid(obs.MotionRegions)

	default:
		pos = center
	}

	zoom := baseZoom[context]
	if zoom == 0 {
		zoom = 1.0
	}
	// Back off when motion is high so fast action isn't over-cropped.
	zoom -= r.config.MotionZoomAttenuation * obs.FlowIntensity
	zoom = clamp(zoom, r.config.ZoomMin, r.config.ZoomMax)

	return Target{X: pos.X, Y: pos.Y, Zoom: zoom}
}

// Primary-face scoring weights.
const (
	sizeWeight       = 0.4
	positionWeight   = 0.3
	confidenceWeight = 0.2
	verticalWeight   = 0.1
)

// SelectPrimaryFace picks the most prominent face by a weighted score of
// size, centrality, confidence, and vertical position.
func SelectPrimaryFace(faces []types.FaceDetection, frameW, frameH float64) types.FaceDetection {
	best := faces[0]
	best.Score = ScoreFace(best, frameW, frameH)
	for _, f := range faces[1:] {
		f.Score = ScoreFace(f, frameW, frameH)
		if f.Score > best.Score {
			best = f
		}
	}
	return best
}

// ScoreFace computes the weighted prominence score for face selection.
func ScoreFace(face types.FaceDetection, frameW, frameH float64) float64 {
	sizeScore := face.Box.Area() / (frameW * frameH)

	frameCenter := types.Point{X: frameW / 2, Y: frameH / 2}
	maxDist := math.Hypot(frameW/2, frameH/2)
	positionScore := 1.0 - face.Center().Distance(frameCenter)/maxDist

	// Faces in the lower third are usually reflections, screens, or
	// audience; prefer the upper two thirds.
	verticalBias := 1.0
	if face.Center().Y > frameH*0.66 {
		verticalBias = 0.7
	}

	return sizeScore*sizeWeight +
		positionScore*positionWeight +
		face.Confidence*confidenceWeight +
		verticalBias*verticalWeight
}

func faceCentroid(faces []types.FaceDetection) types.Point {
	var sx, sy float64
	for _, f := range faces {
		c := f.Center()
		sx += c.X
		sy += c.Y
	}
	n := float64(len(faces))
	return types.Point{X: sx / n, Y: sy / n}
}

// motionCentroid weights region centers by area so one large moving object
// dominates scattered noise blobs.
func motionCentroid(regions []types.MotionRegion) types.Point {
	var sx, sy, total float64
	for _, r := range regions {
		w := r.Area
		if w <= 0 {
			w = 1
		}
		c := r.Box.Center()
		sx += c.X * w
		sy += c.Y * w
		total += w
	}
	return types.Point{X: sx / total, Y: sy / total}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
