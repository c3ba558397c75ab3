package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/reframe/pkg/camera"
	"github.com/menta2k/reframe/pkg/classify"
	"github.com/menta2k/reframe/pkg/detect"
	"github.com/menta2k/reframe/pkg/flow"
	"github.com/menta2k/reframe/pkg/render"
	"github.com/menta2k/reframe/pkg/segment"
	"github.com/menta2k/reframe/pkg/types"
)

// Frame is one sampled input frame. SubtitleBox is an optional externally
// detected subtitle region; when set, the frame is never cropped over it.
type Frame struct {
	Timestamp   float64
	Index       int
	Image       image.Image
	SubtitleBox *types.Rect
}

// FrameSource yields ordered frames for one clip. Next returns io.EOF when
// the clip is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// FrameSink consumes rendered output frames.
type FrameSink interface {
	Write(ctx context.Context, frame Frame, rendered image.Image, decision types.CropDecision) error
}

// Options configures a clip Processor.
type Options struct {
	TargetWidth  int
	TargetHeight int

	// Faces is the face detection backend. Optional: without it the
	// pipeline runs on motion and flow signals alone.
	Faces detect.FaceFinder

	// SplitConversations renders two-face conversations as stacked
	// panels instead of a single wide crop.
	SplitConversations bool

	// Audio is the externally computed speech-activity signal, sorted by
	// timestamp. Optional.
	Audio []types.AudioActivity

	Flow       flow.Config
	Motion     detect.MotionConfig
	Classifier classify.Config
	Resolver   camera.ResolverConfig
	Controller camera.ControllerConfig
	Segments   segment.Config
}

// DefaultOptions returns options with every component at its defaults and a
// 1080x1920 vertical target.
func DefaultOptions() Options {
	return Options{
		TargetWidth:  1080,
		TargetHeight: 1920,
		Flow: flow.Config{
			MaxPoints:    120,
			MinPoints:    30,
			SearchRadius: 12,
			BlockSize:    8,
			AnalysisDim:  320,
			NormScale:    20,
		},
		Motion:     detect.DefaultMotionConfig(),
		Classifier: classify.DefaultConfig(),
		Resolver:   camera.DefaultResolverConfig(),
		Controller: camera.DefaultControllerConfig(),
		Segments:   segment.DefaultConfig(),
	}
}

// Processor runs the full reframing pipeline for one clip, strictly in
// frame order: each frame's flow estimate depends on the previous frame.
// Independent clips each need their own Processor; nothing is shared.
//
// Detector failures never abort the stream. A failed frame holds the last
// known observation and the camera keeps its state, so the output always
// has exactly one frame per input frame.
type Processor struct {
	opts       Options
	tracker    *flow.Tracker
	motion     *detect.MotionDetector
	classifier *classify.Classifier
	resolver   *camera.Resolver
	controller *camera.Controller
	renderer   *render.Renderer
	aggregator *segment.Aggregator

	prevFrame image.Image
	lastObs   types.FrameObservation
	hasObs    bool
	decisions []segment.FrameDecision
}

// NewProcessor creates a clip processor. Invalid target dimensions are the
// only fatal error.
func NewProcessor(opts Options) (*Processor, error) {
	renderer, err := render.NewRenderer(opts.TargetWidth, opts.TargetHeight)
	if err != nil {
		return nil, err
	}
	return &Processor{
		opts:       opts,
		tracker:    flow.NewWithConfig(opts.Flow),
		motion:     detect.NewMotionDetectorWithConfig(opts.Motion),
		classifier: classify.NewWithConfig(opts.Classifier),
		resolver:   camera.NewResolverWithConfig(opts.Resolver),
		controller: camera.NewControllerWithConfig(opts.Controller),
		renderer:   renderer,
		aggregator: segment.NewWithConfig(opts.Segments),
	}, nil
}

// Reset prepares the processor for a new clip.
func (p *Processor) Reset() {
	p.tracker.Reset()
	p.classifier.Reset()
	p.controller.Reset()
	p.prevFrame = nil
	p.hasObs = false
	p.lastObs = types.FrameObservation{}
	p.decisions = nil
}

// Run walks the clip sequentially, rendering one output frame per input
// frame. Cancellation is cooperative: the context is checked between
// frames. Sink errors abort; detector errors do not.
func (p *Processor) Run(ctx context.Context, source FrameSource, sink FrameSink) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame source: %w", err)
		}

		decision := p.Decide(ctx, frame)
		rendered := p.renderer.Render(frame.Image, decision)

		if sink != nil {
			if err := sink.Write(ctx, frame, rendered, decision); err != nil {
				return fmt.Errorf("frame sink: %w", err)
			}
		}
	}
}

// Decide runs analysis and the virtual camera for one frame and records the
// decision for later segment aggregation.
func (p *Processor) Decide(ctx context.Context, frame Frame) types.CropDecision {
	obs := p.observe(ctx, frame)

	bounds := frame.Image.Bounds()
	frameW := float64(bounds.Dx())
	frameH := float64(bounds.Dy())

	result := p.classifier.Classify(obs, frameW, frameH)
	target := p.resolver.Resolve(obs, result.Context, result.IsShowcase, frameW, frameH)
	regime := p.controller.Update(target, frame.Index)
	if regime == camera.RegimeCut {
		log.Printf("[CAMERA] cut at frame %d (t=%.2fs)", frame.Index, frame.Timestamp)
	}

	state := p.controller.State()
	decision := types.CropDecision{
		Center:     state.Position(),
		Zoom:       state.Zoom,
		Context:    result.Context,
		Confidence: result.Confidence,
		Layout:     p.layoutFor(obs, result.Context, state),
	}
	for _, f := range obs.Faces {
		decision.ActiveRegions = append(decision.ActiveRegions, f.Box)
	}
	if obs.SubtitleBox != nil {
		decision.ActiveRegions = append(decision.ActiveRegions, *obs.SubtitleBox)
	}

	p.decisions = append(p.decisions, segment.FrameDecision{
		Timestamp:    frame.Timestamp,
		Context:      result.Context,
		FaceCount:    len(obs.Faces),
		Center:       decision.Center,
		Zoom:         decision.Zoom,
		HasSubtitles: obs.HasSubtitles,
		Speaking:     segment.SpeakingAt(p.opts.Audio, frame.Timestamp),
	})

	return decision
}

// ProcessFrame decides and renders one frame. Rendering never fails; the
// output is always exactly the target resolution.
func (p *Processor) ProcessFrame(ctx context.Context, frame Frame) (types.CropDecision, image.Image) {
	decision := p.Decide(ctx, frame)
	return decision, p.renderer.Render(frame.Image, decision)
}

// Segments aggregates every decision made so far into the macro segment
// list for batch rendering.
func (p *Processor) Segments() []types.ProcessingSegment {
	return p.aggregator.Aggregate(p.decisions)
}

// observe builds the per-frame signal bundle, degrading to the previous
// observation's detections when a detector fails.
func (p *Processor) observe(ctx context.Context, frame Frame) types.FrameObservation {
	obs := types.FrameObservation{
		Timestamp:    frame.Timestamp,
		FrameIndex:   frame.Index,
		HasSubtitles: frame.SubtitleBox != nil,
		SubtitleBox:  frame.SubtitleBox,
	}

	flowResult := p.tracker.Track(frame.Image)
	obs.FlowIntensity = flowResult.Intensity
	obs.FlowDX = flowResult.DX
	obs.FlowDY = flowResult.DY

	obs.Brightness, obs.Contrast = lumaStats(frame.Image)

	if p.prevFrame != nil {
		regions, err := p.motion.Detect(frame.Image, p.prevFrame)
		if err != nil {
			log.Printf("[PIPELINE] motion detection failed at frame %d: %v", frame.Index, err)
			if p.hasObs {
				regions = p.lastObs.MotionRegions
			}
		}
		obs.MotionRegions = regions
	}
	p.prevFrame = frame.Image

	if p.opts.Faces != nil {
		faces, err := p.opts.Faces.DetectFaces(ctx, frame.Image)
		if err != nil {
			log.Printf("[PIPELINE] face detection failed at frame %d: %v", frame.Index, err)
			if p.hasObs {
				faces = p.lastObs.Faces
			}
		}
		obs.Faces = faces
	}

	p.lastObs = obs
	p.hasObs = true
	return obs
}

// layoutFor picks the crop layout variant for the frame. Two-face
// conversations optionally render as stacked panels.
func (p *Processor) layoutFor(obs types.FrameObservation, context types.SceneContext, state camera.TrackingState) types.CropLayout {
	if p.opts.SplitConversations && context == types.ContextConversation && len(obs.Faces) == 2 {
		a := obs.Faces[0].Center()
		b := obs.Faces[1].Center()
		top, bottom := a, b
		if b.X < a.X {
			top, bottom = b, a
		}
		return types.SplitLayout{Top: top, Bottom: bottom, Zoom: state.Zoom}
	}
	return types.SingleLayout{Center: state.Position(), Zoom: state.Zoom}
}

// lumaStats computes mean brightness and contrast (luma standard
// deviation) on a downsampled copy of the frame.
func lumaStats(img image.Image) (float64, float64) {
	work := img
	if img.Bounds().Dx() > 160 {
		work = imaging.Resize(img, 160, 0, imaging.Box)
	}
	gray := imaging.Grayscale(work)

	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	if w == 0 || h == 0 {
		return 0, 0
	}

	var sum, sumSq float64
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			v := float64(row[x*4])
			sum += v
			sumSq += v * v
		}
	}
	n := float64(w * h)
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
