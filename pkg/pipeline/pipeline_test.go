package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"

	"github.com/menta2k/reframe/pkg/types"
)

// testFrame renders a gray frame with a white square marking the subject.
func testFrame(width, height, x, y, size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			if px >= x && px < x+size && py >= y && py < y+size {
				img.Set(px, py, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(px, py, color.RGBA{80, 80, 80, 255})
			}
		}
	}
	return img
}

// sliceSource replays a fixed frame list.
type sliceSource struct {
	frames []Frame
	pos    int
}

func newSliceSource(n int) *sliceSource {
	s := &sliceSource{}
	for i := 0; i < n; i++ {
		s.frames = append(s.frames, Frame{
			Timestamp: float64(i) / 30.0,
			Index:     i,
			Image:     testFrame(640, 360, 100+i*4, 120, 60),
		})
	}
	return s
}

func (s *sliceSource) Next(ctx context.Context) (Frame, error) {
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// collectSink records every rendered frame.
type collectSink struct {
	mu        sync.Mutex
	rendered  []image.Image
	decisions []types.CropDecision
	failAfter int // fail on the Nth write when > 0
}

func (s *collectSink) Write(ctx context.Context, frame Frame, rendered image.Image, decision types.CropDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.rendered)+1 >= s.failAfter {
		return errors.New("disk full")
	}
	s.rendered = append(s.rendered, rendered)
	s.decisions = append(s.decisions, decision)
	return nil
}

// stubFaces returns a fixed detection, or an error every frame.
type stubFaces struct {
	faces []types.FaceDetection
	err   error
	calls int
}

func (s *stubFaces) DetectFaces(ctx context.Context, img image.Image) ([]types.FaceDetection, error) {
	s.calls++
	return s.faces, s.err
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.TargetWidth = 90
	opts.TargetHeight = 160
	return opts
}

func TestRunOneOutputPerInput(t *testing.T) {
	proc, err := NewProcessor(smallOptions())
	if err != nil {
		t.Fatal(err)
	}
	source := newSliceSource(12)
	sink := &collectSink{}

	if err := proc.Run(context.Background(), source, sink); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sink.rendered) != 12 {
		t.Fatalf("expected 12 output frames, got %d", len(sink.rendered))
	}
	for i, img := range sink.rendered {
		if img.Bounds().Dx() != 90 || img.Bounds().Dy() != 160 {
			t.Errorf("frame %d is %dx%d, want 90x160", i, img.Bounds().Dx(), img.Bounds().Dy())
		}
	}
}

func TestRunSurvivesFailingFaceBackend(t *testing.T) {
	opts := smallOptions()
	faces := &stubFaces{err: errors.New("model offline")}
	opts.Faces = faces

	proc, err := NewProcessor(opts)
	if err != nil {
		t.Fatal(err)
	}
	sink := &collectSink{}
	if err := proc.Run(context.Background(), newSliceSource(10), sink); err != nil {
		t.Fatalf("Run must absorb detector errors, got %v", err)
	}
	if len(sink.rendered) != 10 {
		t.Errorf("expected 10 frames despite detector failures, got %d", len(sink.rendered))
	}
	if faces.calls != 10 {
		t.Errorf("detector called %d times, want 10", faces.calls)
	}
}

func TestRunSinkErrorAborts(t *testing.T) {
	proc, err := NewProcessor(smallOptions())
	if err != nil {
		t.Fatal(err)
	}
	sink := &collectSink{failAfter: 3}
	err = proc.Run(context.Background(), newSliceSource(10), sink)
	if err == nil {
		t.Fatal("expected sink error to abort the run")
	}
	if len(sink.rendered) >= 10 {
		t.Error("run did not stop after sink failure")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	proc, err := NewProcessor(smallOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = proc.Run(ctx, newSliceSource(10), &collectSink{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDecideUsesFaceBackend(t *testing.T) {
	opts := smallOptions()
	opts.Faces = &stubFaces{
		faces: []types.FaceDetection{
			{Box: types.Rect{X: 400, Y: 100, Width: 80, Height: 80}, Confidence: 0.9},
		},
	}
	proc, err := NewProcessor(opts)
	if err != nil {
		t.Fatal(err)
	}

	frame := Frame{Timestamp: 0, Index: 0, Image: testFrame(640, 360, 400, 100, 80)}
	decision := proc.Decide(context.Background(), frame)

	// First frame snaps the camera to the face target, with headroom.
	if decision.Center.X != 440 {
		t.Errorf("center X = %f, want 440 (face center)", decision.Center.X)
	}
	if decision.Center.Y >= 140 {
		t.Errorf("center Y = %f, want below face center from headroom", decision.Center.Y)
	}
	if len(decision.ActiveRegions) != 1 {
		t.Errorf("expected the face in ActiveRegions, got %d regions", len(decision.ActiveRegions))
	}
}

func TestDecideSubtitleFrameFlagsLetterboxSegments(t *testing.T) {
	proc, err := NewProcessor(smallOptions())
	if err != nil {
		t.Fatal(err)
	}

	box := &types.Rect{X: 100, Y: 300, Width: 400, Height: 40}
	for i := 0; i < 5; i++ {
		proc.Decide(context.Background(), Frame{
			Timestamp:   float64(i) / 30.0,
			Index:       i,
			Image:       testFrame(640, 360, 100, 120, 60),
			SubtitleBox: box,
		})
	}

	segs := proc.Segments()
	if len(segs) == 0 {
		t.Fatal("expected at least one segment")
	}
	for _, seg := range segs {
		if seg.Strategy != types.StrategyLetterbox {
			t.Errorf("subtitled frames produced strategy %v, want LETTERBOX", seg.Strategy)
		}
	}
}

func TestSplitConversationsLayout(t *testing.T) {
	opts := smallOptions()
	opts.SplitConversations = true
	faces := &stubFaces{
		faces: []types.FaceDetection{
			{Box: types.Rect{X: 420, Y: 100, Width: 80, Height: 80}, Confidence: 0.9},
			{Box: types.Rect{X: 120, Y: 100, Width: 80, Height: 80}, Confidence: 0.9},
		},
	}
	opts.Faces = faces
	proc, err := NewProcessor(opts)
	if err != nil {
		t.Fatal(err)
	}

	// Fill the hysteresis window so CONVERSATION becomes the stable label.
	var decision types.CropDecision
	for i := 0; i < 15; i++ {
		decision = proc.Decide(context.Background(), Frame{
			Timestamp: float64(i) / 30.0,
			Index:     i,
			Image:     testFrame(640, 360, 120, 100, 80),
		})
	}

	split, ok := decision.Layout.(types.SplitLayout)
	if !ok {
		t.Fatalf("layout = %T, want SplitLayout", decision.Layout)
	}
	// Panels ordered left to right regardless of detection order.
	if split.Top.X >= split.Bottom.X {
		t.Errorf("top panel X %f >= bottom panel X %f", split.Top.X, split.Bottom.X)
	}
}

func TestResetStartsFreshClip(t *testing.T) {
	proc, err := NewProcessor(smallOptions())
	if err != nil {
		t.Fatal(err)
	}

	if err := proc.Run(context.Background(), newSliceSource(8), &collectSink{}); err != nil {
		t.Fatal(err)
	}
	if len(proc.Segments()) == 0 {
		t.Fatal("expected segments from the first clip")
	}

	proc.Reset()
	if got := proc.Segments(); got != nil {
		t.Errorf("expected no segments after reset, got %v", got)
	}
}

func TestProcessFrameRendersExactTarget(t *testing.T) {
	proc, err := NewProcessor(smallOptions())
	if err != nil {
		t.Fatal(err)
	}
	_, out := proc.ProcessFrame(context.Background(), Frame{
		Image: testFrame(640, 360, 100, 100, 60),
	})
	if out.Bounds().Dx() != 90 || out.Bounds().Dy() != 160 {
		t.Errorf("output %dx%d, want 90x160", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestNewProcessorRejectsBadTarget(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetWidth = 0
	if _, err := NewProcessor(opts); !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestAnalysisCache(t *testing.T) {
	cache := NewAnalysisCache()

	if _, ok := cache.Get("a"); ok {
		t.Error("empty cache must miss")
	}

	segs := []types.ProcessingSegment{{StartTime: 0, EndTime: 2, Strategy: types.StrategyFaceFocus}}
	cache.Put("a", segs)
	got, ok := cache.Get("a")
	if !ok || len(got) != 1 {
		t.Fatalf("expected cached entry, got ok=%v len=%d", ok, len(got))
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}

	cache.Invalidate("a")
	if _, ok := cache.Get("a"); ok {
		t.Error("entry survived invalidation")
	}

	cache.Put("a", segs)
	cache.Put("b", segs)
	cache.Reset()
	if cache.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", cache.Len())
	}
}

func TestRunClipsProcessesAll(t *testing.T) {
	cache := NewAnalysisCache()
	sinks := map[string]*collectSink{
		"a": {}, "b": {}, "c": {},
	}
	clips := []Clip{
		{ID: "a", Source: newSliceSource(6), Sink: sinks["a"]},
		{ID: "b", Source: newSliceSource(6), Sink: sinks["b"]},
		{ID: "c", Source: newSliceSource(6), Sink: sinks["c"]},
	}

	err := RunClips(context.Background(), clips, 2, func() (*Processor, error) {
		return NewProcessor(smallOptions())
	}, cache)
	if err != nil {
		t.Fatalf("RunClips failed: %v", err)
	}

	for id, sink := range sinks {
		if len(sink.rendered) != 6 {
			t.Errorf("clip %s: %d frames, want 6", id, len(sink.rendered))
		}
	}
	if cache.Len() != 3 {
		t.Errorf("cache has %d entries, want 3", cache.Len())
	}
}

func TestRunClipsSkipsCachedClips(t *testing.T) {
	cache := NewAnalysisCache()
	cache.Put("done", []types.ProcessingSegment{{StartTime: 0, EndTime: 1}})

	sink := &collectSink{}
	clips := []Clip{{ID: "done", Source: newSliceSource(6), Sink: sink}}

	err := RunClips(context.Background(), clips, 1, func() (*Processor, error) {
		return NewProcessor(smallOptions())
	}, cache)
	if err != nil {
		t.Fatalf("RunClips failed: %v", err)
	}
	if len(sink.rendered) != 0 {
		t.Errorf("cached clip was reprocessed: %d frames written", len(sink.rendered))
	}
}
