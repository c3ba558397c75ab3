package types

import "math"

// Point is a 2D coordinate in source-frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Rect is an axis-aligned rectangle in source-frame pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Area returns the rectangle area.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Overlaps reports whether two rectangles intersect.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// FaceDetection is a detected face with its bounding box and confidence.
type FaceDetection struct {
	Box        Rect    `json:"box"`
	Confidence float64 `json:"confidence"`
	// Score is the primary-face selection score, filled in by the resolver.
	Score float64 `json:"score,omitempty"`
}

// Center returns the center of the face bounding box.
func (f FaceDetection) Center() Point {
	return f.Box.Center()
}

// MotionRegion is a blob of gross inter-frame motion.
type MotionRegion struct {
	Box  Rect    `json:"box"`
	Area float64 `json:"area"`
}

// FrameObservation bundles the raw per-frame analysis signals. It is built
// once per sampled frame and discarded after classification.
type FrameObservation struct {
	Timestamp     float64
	FrameIndex    int
	Faces         []FaceDetection
	MotionRegions []MotionRegion
	FlowIntensity float64 // mean tracked-point displacement, normalized to [0,1]
	FlowDX        float64
	FlowDY        float64
	Brightness    float64 // mean luma, 0..255
	Contrast      float64 // luma standard deviation
	HasSubtitles  bool
	SubtitleBox   *Rect
}

// SceneContext is the stable classification of what the frame shows.
type SceneContext int

const (
	ContextUnknown SceneContext = iota
	ContextSingleSpeaker
	ContextConversation
	ContextProductShowcase
	ContextGroupShot
	ContextAction
	ContextStatic
	ContextTransition
)

var contextNames = map[SceneContext]string{
	ContextUnknown:         "unknown",
	ContextSingleSpeaker:   "single_speaker",
	ContextConversation:    "conversation",
	ContextProductShowcase: "product_showcase",
	ContextGroupShot:       "group_shot",
	ContextAction:          "action",
	ContextStatic:          "static",
	ContextTransition:      "transition",
}

func (c SceneContext) String() string {
	if name, ok := contextNames[c]; ok {
		return name
	}
	return "unknown"
}

// CropDecision is the output of one frame's reframing decision.
type CropDecision struct {
	Center        Point        `json:"center"`
	Zoom          float64      `json:"zoom"`
	Context       SceneContext `json:"context"`
	Confidence    float64      `json:"confidence"`
	ActiveRegions []Rect       `json:"active_regions,omitempty"`
	Layout        CropLayout   `json:"-"`
}

// CropStrategy is the macro strategy a ProcessingSegment is rendered with.
type CropStrategy int

const (
	StrategyCenterCrop CropStrategy = iota
	StrategyFaceFocus
	StrategyMultiFace
	StrategyLetterbox
	StrategyContentAware
)

var strategyNames = map[CropStrategy]string{
	StrategyCenterCrop:   "center_crop",
	StrategyFaceFocus:    "face_focus",
	StrategyMultiFace:    "multi_face",
	StrategyLetterbox:    "letterbox",
	StrategyContentAware: "content_aware",
}

func (s CropStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "center_crop"
}

// ProcessingSegment is a contiguous span of frames sharing one macro crop
// strategy, produced by the segment aggregator from a full analysis pass.
type ProcessingSegment struct {
	StartTime      float64      `json:"start_time"`
	EndTime        float64      `json:"end_time"`
	Strategy       CropStrategy `json:"strategy"`
	CropCenters    []Point      `json:"crop_centers"`
	CropSizes      []float64    `json:"crop_sizes"`
	NeedsSubtitle  bool         `json:"needs_subtitle"`
	NeedsNarration bool         `json:"needs_narration"`
}

// Duration returns the segment span in seconds.
func (s ProcessingSegment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// AudioActivity is an externally computed speech-activity sample.
type AudioActivity struct {
	Timestamp float64 `json:"timestamp"`
	Speaking  bool    `json:"speaking"`
}
