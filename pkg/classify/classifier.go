package classify

import (
	"github.com/menta2k/reframe/pkg/types"
)

// Config holds scene classification tuning.
type Config struct {
	BufferSize           int     // hysteresis window, ~0.5s at typical sampling
	ActionMotionLevel    float64 // flow intensity above this forces ACTION
	StaticMotionLevel    float64 // flow intensity below this with no faces is STATIC
	TransitionLumaDelta  float64 // brightness jump that marks a hard scene change
	ShowcaseMinAreaRatio float64 // minimum object size for the showcase heuristic
}

// DefaultConfig returns the classifier defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:           15,
		ActionMotionLevel:    0.6,
		StaticMotionLevel:    0.15,
		TransitionLumaDelta:  60,
		ShowcaseMinAreaRatio: 0.02,
	}
}

// Result is one frame's classification outcome.
type Result struct {
	Context    types.SceneContext // majority-vote stable label
	Raw        types.SceneContext // this frame's raw label before hysteresis
	Confidence float64            // fraction of the window agreeing with Context
	IsShowcase bool
}

// Classifier fuses face, motion, and flow signals into a stable scene
// context. Raw per-frame labels go into a fixed-capacity ring buffer and
// the stable output is the majority vote over that window, so a single
// noisy detector frame cannot flip the macro strategy.
type Classifier struct {
	config Config

	ring  []types.SceneContext
	head  int
	count int

	prevBrightness float64
	hasPrev        bool
	stable         types.SceneContext
}

// New creates a Classifier with default configuration.
func New() *Classifier {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Classifier with custom tuning.
func NewWithConfig(config Config) *Classifier {
	if config.BufferSize < 1 {
		config.BufferSize = 1
	}
	return &Classifier{
		config: config,
		ring:   make([]types.SceneContext, config.BufferSize),
		stable: types.ContextUnknown,
	}
}

// Reset clears the hysteresis window for a new clip.
func (c *Classifier) Reset() {
	c.head = 0
	c.count = 0
	c.hasPrev = false
	c.stable = types.ContextUnknown
}

// Stable returns the current majority-vote context without pushing a new
// sample, for callers holding state across a failed detection frame.
func (c *Classifier) Stable() types.SceneContext {
	return c.stable
}

// Classify pushes one frame's observation into the window and returns the
// stable context. frameW/frameH are the source dimensions used by the
// showcase heuristic.
func (c *Classifier) Classify(obs types.FrameObservation, frameW, frameH float64) Result {
	isShowcase := c.detectShowcase(obs, frameW, frameH)
	raw := c.rawContext(obs, isShowcase)

	c.push(raw)
	stable, confidence := c.vote()
	c.stable = stable

	c.prevBrightness = obs.Brightness
	c.hasPrev = true

	return Result{
		Context:    stable,
		Raw:        raw,
		Confidence: confidence,
		IsShowcase: isShowcase,
	}
}

// rawContext derives the per-frame label from face count and motion, then
// applies the hard overrides.
func (c *Classifier) rawContext(obs types.FrameObservation, isShowcase bool) types.SceneContext {
	if c.hasPrev {
		delta := obs.Brightness - c.prevBrightness
		if delta < 0 {
			delta = -delta
		}
		if delta > c.config.TransitionLumaDelta {
			return types.ContextTransition
		}
	}

	var raw types.SceneContext
	switch n := len(obs.Faces); {
	case n == 0:
		if obs.FlowIntensity <= c.config.StaticMotionLevel {
			raw = types.ContextStatic
		} else {
			raw = types.ContextUnknown
		}
	case n == 1:
		raw = types.ContextSingleSpeaker
	case n == 2:
		raw = types.ContextConversation
	default:
		raw = types.ContextGroupShot
	}

	if obs.FlowIntensity > c.config.ActionMotionLevel {
		raw = types.ContextAction
	}
	if isShowcase && len(obs.Faces) > 0 {
		raw = types.ContextProductShowcase
	}
	return raw
}

// detectShowcase looks for an object-sized motion region in the lower half
// of the frame that does not overlap any detected face.
func (c *Classifier) detectShowcase(obs types.FrameObservation, frameW, frameH float64) bool {
	if frameW <= 0 || frameH <= 0 {
		return false
	}
	minArea := c.config.ShowcaseMinAreaRatio * frameW * frameH

	for _, region := range obs.MotionRegions {
		if region.Box.Center().Y < frameH/2 {
			continue
		}
		if region.Box.Area() < minArea {
			continue
		}
		overlapsFace := false
		for _, face := range obs.Faces {
			if region.Box.Overlaps(face.Box) {
				overlapsFace = true
				break
			}
		}
		if !overlapsFace {
			return true
		}
	}
	return false
}

// push adds a raw label to the ring, evicting the oldest when full.
func (c *Classifier) push(raw types.SceneContext) {
	c.ring[c.head] = raw
	c.head = (c.head + 1) % len(c.ring)
	if c.count < len(c.ring) {
		c.count++
	}
}

// vote returns the majority label in the window. Ties keep the previous
// stable label so the output never flaps between equally common contexts.
func (c *Classifier) vote() (types.SceneContext, float64) {
	if c.count == 0 {
		return types.ContextUnknown, 0
	}

	counts := make(map[types.SceneContext]int)
	for i := 0; i < c.count; i++ {
		counts[c.ring[i]]++
	}

	best := c.stable
	bestCount := counts[c.stable]
	for ctx, n := range counts {
		if n > bestCount {
			best = ctx
			bestCount = n
		}
	}
	return best, float64(bestCount) / float64(c.count)
}
