// Package reframe reframes arbitrary-aspect source video into a fixed
// target aspect (typically vertical 9:16) by steering a virtual camera:
// deciding per frame where to point it and how much to zoom, then rendering
// that crop without distortion.
//
// The pipeline for each frame is:
//
//  1. Analysis: face detection (pkg/detect), frame-differencing motion
//     blobs (pkg/detect), and sparse optical flow (pkg/flow) produce a
//     FrameObservation.
//  2. Classification: pkg/classify fuses the signals into a stable scene
//     context through a majority-vote hysteresis window.
//  3. Targeting: pkg/camera resolves the context and detections into an
//     ideal pan target and zoom, then the virtual camera controller turns
//     the noisy target stream into smooth motion with tripod, pan, and cut
//     regimes.
//  4. Rendering: pkg/render crops and resizes to exactly the configured
//     resolution, letterboxing when the ideal crop cannot fit the source.
//
// Frames within one clip are processed strictly in order on one goroutine;
// independent clips are embarrassingly parallel (pkg/pipeline.RunClips).
//
// Basic usage:
//
//	engine, err := reframe.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	source, err := frameio.NewDirectorySource("frames/", 30)
//	if err != nil {
//		log.Fatal(err)
//	}
//	sink, err := frameio.NewDirectorySink("out/", "jpg", 90, false)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := engine.Run(context.Background(), source, sink); err != nil {
//		log.Fatal(err)
//	}
//
//	for _, seg := range engine.Segments() {
//		fmt.Printf("%.2f-%.2fs %s\n", seg.StartTime, seg.EndTime, seg.Strategy)
//	}
//
// Video demux, transcription, caption rendering, and upload are external
// collaborators; the engine consumes extracted frames and optional
// precomputed signals (audio activity, subtitle regions) and emits rendered
// frames or ProcessingSegments.
package reframe

import (
	"context"
	"image"

	"github.com/menta2k/reframe/pkg/pipeline"
	"github.com/menta2k/reframe/pkg/types"
)

// Version of the reframe library.
const Version = "1.0.0"

// Target is a named output resolution.
type Target struct {
	Width  int
	Height int
	Name   string
}

// Common output targets.
var (
	Vertical  = Target{1080, 1920, "vertical"}
	Square    = Target{1080, 1080, "square"}
	Landscape = Target{1920, 1080, "landscape"}
)

// Engine is the high-level interface to the reframing pipeline for one
// clip. It is not safe for concurrent use; create one Engine per clip or
// call Reset between clips.
type Engine struct {
	proc *pipeline.Processor
}

// New creates an Engine with default options (vertical 1080x1920 target,
// no face backend).
func New() (*Engine, error) {
	return NewWithOptions(pipeline.DefaultOptions())
}

// NewWithOptions creates an Engine with custom options. Invalid target
// dimensions fail construction; every later error is absorbed per frame.
func NewWithOptions(opts pipeline.Options) (*Engine, error) {
	proc, err := pipeline.NewProcessor(opts)
	if err != nil {
		return nil, err
	}
	return &Engine{proc: proc}, nil
}

// Run processes a whole clip from source to sink, one rendered frame per
// input frame.
func (e *Engine) Run(ctx context.Context, source pipeline.FrameSource, sink pipeline.FrameSink) error {
	return e.proc.Run(ctx, source, sink)
}

// Decide runs analysis and the virtual camera for a single frame without
// rendering it.
func (e *Engine) Decide(ctx context.Context, frame pipeline.Frame) types.CropDecision {
	return e.proc.Decide(ctx, frame)
}

// Segments returns the aggregated macro-strategy spans for everything
// processed so far, for batch rendering by a downstream exporter.
func (e *Engine) Segments() []types.ProcessingSegment {
	return e.proc.Segments()
}

// Reset reinitializes all per-clip state for a new video.
func (e *Engine) Reset() {
	e.proc.Reset()
}

// ProcessFrame decides and renders one frame.
func (e *Engine) ProcessFrame(ctx context.Context, frame pipeline.Frame) (types.CropDecision, image.Image) {
	return e.proc.ProcessFrame(ctx, frame)
}
