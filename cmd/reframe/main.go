package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/menta2k/reframe/internal/config"
	"github.com/menta2k/reframe/pkg/camera"
	"github.com/menta2k/reframe/pkg/classify"
	"github.com/menta2k/reframe/pkg/client"
	"github.com/menta2k/reframe/pkg/detect"
	"github.com/menta2k/reframe/pkg/flow"
	"github.com/menta2k/reframe/pkg/frameio"
	"github.com/menta2k/reframe/pkg/llamacpp"
	"github.com/menta2k/reframe/pkg/ollama"
	"github.com/menta2k/reframe/pkg/pipeline"
	"github.com/menta2k/reframe/pkg/segment"
	"github.com/menta2k/reframe/pkg/types"
)

func main() {
	var in, outDir, cfgPath, segmentsOut, audioPath string
	var backend, cascade, model, url string
	var ext string
	var quality int
	var lossless bool
	var fps float64
	var split bool

	flag.StringVar(&in, "in", "", "directory of extracted frames (jpg/png/webp), in filename order")
	flag.StringVar(&outDir, "out", "out", "output directory for reframed frames")
	flag.StringVar(&cfgPath, "config", "", "config file (json or yaml); defaults apply when empty")
	flag.StringVar(&segmentsOut, "segments", "", "write the aggregated segment list to this JSON file")
	flag.StringVar(&audioPath, "audio", "", "JSON file of {timestamp, speaking} audio-activity samples")

	flag.StringVar(&backend, "backend", "cascade", "face backend: cascade|ollama|llamacpp|none")
	flag.StringVar(&cascade, "cascade", "cascade/facefinder", "pigo cascade file (cascade backend)")
	flag.StringVar(&model, "model", "openbmb/minicpm-v4.5", "vision model name (ollama/llamacpp backends)")
	flag.StringVar(&url, "url", "", "vision server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")

	flag.StringVar(&ext, "ext", "jpg", "output frame format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP lossless mode")
	flag.Float64Var(&fps, "fps", 30, "sampling rate the frames were extracted at")
	flag.BoolVar(&split, "split", false, "render two-face conversations as stacked panels")

	flag.Parse()
	if in == "" {
		log.Fatalf("usage: %s -in frames_dir [-out outdir] [-backend cascade|ollama|llamacpp|none] [-segments out.json]", filepath.Base(os.Args[0]))
	}

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.LoadFromFile(cfgPath)
		if err != nil {
			log.Fatal(err)
		}
	}
	if cascade != "" {
		cfg.Face.CascadePath = cascade
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	faces, err := buildFaceBackend(backend, cfg, model, url)
	if err != nil {
		log.Fatal(err)
	}

	opts := optionsFromConfig(cfg)
	opts.Faces = faces
	opts.SplitConversations = split

	if audioPath != "" {
		activity, err := loadAudioActivity(audioPath)
		if err != nil {
			log.Fatal(err)
		}
		opts.Audio = activity
		log.Printf("[MAIN] loaded %d audio-activity samples", len(activity))
	}

	proc, err := pipeline.NewProcessor(opts)
	if err != nil {
		log.Fatal(err)
	}

	source, err := frameio.NewDirectorySource(in, fps)
	if err != nil {
		log.Fatal(err)
	}
	sink, err := frameio.NewDirectorySink(outDir, ext, quality, lossless)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("[MAIN] reframing %d frames to %dx%d", source.Len(), cfg.Target.Width, cfg.Target.Height)
	if err := proc.Run(ctx, source, sink); err != nil {
		log.Fatal(err)
	}

	segs := proc.Segments()
	log.Printf("[MAIN] done: %d segments", len(segs))
	for _, s := range segs {
		log.Printf("[MAIN]   %.2f-%.2fs %s (subtitle=%v)", s.StartTime, s.EndTime, s.Strategy, s.NeedsSubtitle)
	}

	if segmentsOut != "" {
		if err := writeSegments(segmentsOut, segs); err != nil {
			log.Fatal(err)
		}
	}
}

func buildFaceBackend(backend string, cfg *config.Config, model, url string) (detect.FaceFinder, error) {
	switch backend {
	case "none":
		return nil, nil

	case "cascade":
		return detect.NewCascadeDetector(cfg.Face.CascadePath, detect.CascadeConfig{
			MinSize:       cfg.Face.MinSize,
			MaxSize:       cfg.Face.MaxSize,
			ShiftFactor:   cfg.Face.ShiftFactor,
			ScaleFactor:   cfg.Face.ScaleFactor,
			MinConfidence: cfg.Face.MinConfidence,
		})

	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		var c client.VisionClient
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, err
		}
		return detect.NewVisionDetector(c, model), nil

	case "llamacpp":
		if url == "" {
			url = "http://localhost:8080"
		}
		var c client.VisionClient
		c, err := llamacpp.NewClient(url)
		if err != nil {
			return nil, err
		}
		return detect.NewVisionDetector(c, model), nil

	default:
		return nil, fmt.Errorf("unknown face backend %q", backend)
	}
}

func optionsFromConfig(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		TargetWidth:  cfg.Target.Width,
		TargetHeight: cfg.Target.Height,
		Flow: flow.Config{
			MaxPoints:    cfg.Flow.MaxPoints,
			MinPoints:    cfg.Flow.MinPoints,
			SearchRadius: cfg.Flow.SearchRadius,
			BlockSize:    cfg.Flow.BlockSize,
			AnalysisDim:  cfg.Flow.AnalysisDim,
			NormScale:    cfg.Flow.NormScale,
		},
		Motion: detect.MotionConfig{
			BlurSigma:     cfg.Motion.BlurSigma,
			DiffThreshold: cfg.Motion.DiffThreshold,
			DilateSteps:   cfg.Motion.DilateSteps,
			MinAreaRatio:  cfg.Motion.MinAreaRatio,
			AnalysisDim:   cfg.Motion.AnalysisDim,
		},
		Classifier: classify.Config{
			BufferSize:           cfg.Classifier.BufferSize,
			ActionMotionLevel:    cfg.Classifier.ActionMotionLevel,
			StaticMotionLevel:    cfg.Classifier.StaticMotionLevel,
			TransitionLumaDelta:  cfg.Classifier.TransitionLumaDelta,
			ShowcaseMinAreaRatio: cfg.Classifier.ShowcaseMinAreaRatio,
		},
		Resolver: camera.ResolverConfig{
			HeadroomRatio:         0.10,
			ShowcaseDropRatio:     0.65,
			MotionZoomAttenuation: 0.4,
			ZoomMin:               cfg.Camera.ZoomMin,
			ZoomMax:               cfg.Camera.ZoomMax,
		},
		Controller: camera.ControllerConfig{
			Deadzone:          cfg.Camera.Deadzone,
			CutThreshold:      cfg.Camera.CutThreshold,
			MinCutInterval:    cfg.Camera.MinCutInterval,
			PositionSmoothing: cfg.Camera.PositionSmoothing,
			ZoomSmoothing:     cfg.Camera.ZoomSmoothing,
			ZoomMin:           cfg.Camera.ZoomMin,
			ZoomMax:           cfg.Camera.ZoomMax,
		},
		Segments: segment.Config{
			MaxSpan:        cfg.Segment.MaxSpan,
			MinSpan:        cfg.Segment.MinSpan,
			SampleInterval: cfg.Segment.SampleInterval,
		},
	}
}

func loadAudioActivity(path string) ([]types.AudioActivity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading audio activity: %w", err)
	}
	var activity []types.AudioActivity
	if err := json.Unmarshal(data, &activity); err != nil {
		return nil, fmt.Errorf("parsing audio activity: %w", err)
	}
	return activity, nil
}

func writeSegments(path string, segs []types.ProcessingSegment) error {
	out := make([]map[string]interface{}, 0, len(segs))
	for _, s := range segs {
		out = append(out, map[string]interface{}{
			"start_time":      s.StartTime,
			"end_time":        s.EndTime,
			"strategy":        s.Strategy.String(),
			"crop_centers":    s.CropCenters,
			"crop_sizes":      s.CropSizes,
			"needs_subtitle":  s.NeedsSubtitle,
			"needs_narration": s.NeedsNarration,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
