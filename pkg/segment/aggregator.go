package segment

import (
	"sort"

	"github.com/menta2k/reframe/pkg/types"
)

// FrameDecision is one frame's reframing outcome as the aggregator sees it.
type FrameDecision struct {
	Timestamp    float64
	Context      types.SceneContext
	FaceCount    int
	Center       types.Point
	Zoom         float64
	HasSubtitles bool
	Speaking     bool
}

// Config holds segment aggregation tuning.
type Config struct {
	MaxSpan        float64 // segments are split past this duration
	MinSpan        float64 // shorter segments are merged into a neighbor
	SampleInterval float64 // spacing of frame decisions, closes the final segment
}

// DefaultConfig returns the aggregation defaults (~3s macro spans, 1s
// anti-flicker floor, 30fps sampling).
func DefaultConfig() Config {
	return Config{
		MaxSpan:        3.0,
		MinSpan:        1.0,
		SampleInterval: 1.0 / 30.0,
	}
}

// Aggregator batches per-frame decisions into contiguous ProcessingSegments
// sharing one macro crop strategy, for segment-based batch rendering.
type Aggregator struct {
	config Config
}

// New creates an Aggregator with default configuration.
func New() *Aggregator {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an Aggregator with custom tuning.
func NewWithConfig(config Config) *Aggregator {
	if config.SampleInterval <= 0 {
		config.SampleInterval = 1.0 / 30.0
	}
	return &Aggregator{config: config}
}

// StrategyFor maps one frame's decision to its macro crop strategy.
// In-frame subtitles always force letterbox: cropping over legible text is
// worse than pillarboxing.
func StrategyFor(d FrameDecision) types.CropStrategy {
	if d.HasSubtitles {
		return types.StrategyLetterbox
	}

	switch d.Context {
	case types.ContextSingleSpeaker:
		return types.StrategyFaceFocus
	case types.ContextConversation, types.ContextGroupShot:
		return types.StrategyMultiFace
	case types.ContextProductShowcase, types.ContextAction:
		return types.StrategyContentAware
	default:
		if d.FaceCount == 1 {
			return types.StrategyFaceFocus
		}
		if d.FaceCount > 1 {
			return types.StrategyMultiFace
		}
		return types.StrategyCenterCrop
	}
}

// Aggregate walks ordered frame decisions and emits the final segment list.
// A new segment starts when the strategy changes or the current one hits
// MaxSpan; a post-pass merges sub-MinSpan segments into their longer
// neighbor so strategies never flicker.
func (a *Aggregator) Aggregate(decisions []FrameDecision) []types.ProcessingSegment {
	if len(decisions) == 0 {
		return nil
	}

	segments := a.build(decisions)
	segments = a.mergeShort(segments)
	segments = a.coalesce(segments)
	return segments
}

func (a *Aggregator) build(decisions []FrameDecision) []types.ProcessingSegment {
	var segments []types.ProcessingSegment

	cur := a.newSegment(decisions[0])
	for _, d := range decisions[1:] {
		strategy := StrategyFor(d)
		if strategy != cur.Strategy || d.Timestamp-cur.StartTime >= a.config.MaxSpan {
			cur.EndTime = d.Timestamp
			segments = append(segments, cur)
			cur = a.newSegment(d)
			continue
		}
		a.extend(&cur, d)
	}
	cur.EndTime = decisions[len(decisions)-1].Timestamp + a.config.SampleInterval
	segments = append(segments, cur)

	return segments
}

func (a *Aggregator) newSegment(d FrameDecision) types.ProcessingSegment {
	seg := types.ProcessingSegment{
		StartTime:      d.Timestamp,
		Strategy:       StrategyFor(d),
		NeedsNarration: true,
	}
	a.extend(&seg, d)
	return seg
}

func (a *Aggregator) extend(seg *types.ProcessingSegment, d FrameDecision) {
	seg.CropCenters = append(seg.CropCenters, d.Center)
	seg.CropSizes = append(seg.CropSizes, d.Zoom)
	if d.Speaking {
		seg.NeedsSubtitle = true
		seg.NeedsNarration = false
	}
}

// mergeShort folds every non-final segment shorter than MinSpan into its
// longer neighbor, which keeps its strategy.
func (a *Aggregator) mergeShort(segments []types.ProcessingSegment) []types.ProcessingSegment {
	for {
		idx := -1
		for i := 0; i < len(segments)-1; i++ { // final segment may stay short
			if segments[i].Duration() < a.config.MinSpan {
				idx = i
				break
			}
		}
		if idx < 0 || len(segments) == 1 {
			return segments
		}

		// Prefer the longer neighbor's strategy.
		into := idx + 1
		if idx > 0 && segments[idx-1].Duration() >= segments[idx+1].Duration() {
			into = idx - 1
		}

		if into < idx {
			segments[into] = fuse(segments[into], segments[idx], segments[into].Strategy)
			segments = append(segments[:idx], segments[idx+1:]...)
		} else {
			segments[into] = fuse(segments[idx], segments[into], segments[into].Strategy)
			segments = append(segments[:idx], segments[idx+1:]...)
		}
	}
}

// coalesce merges adjacent segments left with identical strategies, as long
// as the result stays within MaxSpan or one side is below the anti-flicker
// floor anyway.
func (a *Aggregator) coalesce(segments []types.ProcessingSegment) []types.ProcessingSegment {
	if len(segments) < 2 {
		return segments
	}

	out := segments[:1]
	for _, seg := range segments[1:] {
		last := &out[len(out)-1]
		if seg.Strategy == last.Strategy {
			merged := seg.EndTime - last.StartTime
			if merged <= a.config.MaxSpan ||
				last.Duration() < a.config.MinSpan ||
				seg.Duration() < a.config.MinSpan {
				*last = fuse(*last, seg, last.Strategy)
				continue
			}
		}
		out = append(out, seg)
	}
	return out
}

// fuse joins two time-ordered segments under one strategy.
func fuse(first, second types.ProcessingSegment, strategy types.CropStrategy) types.ProcessingSegment {
	return types.ProcessingSegment{
		StartTime:      first.StartTime,
		EndTime:        second.EndTime,
		Strategy:       strategy,
		CropCenters:    append(append([]types.Point{}, first.CropCenters...), second.CropCenters...),
		CropSizes:      append(append([]float64{}, first.CropSizes...), second.CropSizes...),
		NeedsSubtitle:  first.NeedsSubtitle || second.NeedsSubtitle,
		NeedsNarration: first.NeedsNarration && second.NeedsNarration,
	}
}

// SpeakingAt reports whether the most recent audio-activity sample at or
// before t marks speech. Samples must be sorted by timestamp.
func SpeakingAt(activity []types.AudioActivity, t float64) bool {
	if len(activity) == 0 {
		return false
	}
	idx := sort.Search(len(activity), func(i int) bool {
		return activity[i].Timestamp > t
	})
	if idx == 0 {
		return false
	}
	return activity[idx-1].Speaking
}
