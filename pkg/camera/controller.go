package camera

import (
	"math"

	"github.com/menta2k/reframe/pkg/types"
)

// ControllerConfig holds the virtual camera tuning constants. Deadzone and
// CutThreshold are absolute pixel distances; see the package docs for why
// they are not scaled by frame size.
type ControllerConfig struct {
	Deadzone          float64
	CutThreshold      float64
	MinCutInterval    int // frames between editorial cuts
	PositionSmoothing float64
	ZoomSmoothing     float64
	ZoomMin           float64
	ZoomMax           float64
}

// DefaultControllerConfig returns the camera defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Deadzone:          50,
		CutThreshold:      250,
		MinCutInterval:    30,
		PositionSmoothing: 0.15,
		ZoomSmoothing:     0.08,
		ZoomMin:           0.4,
		ZoomMax:           2.5,
	}
}

// Regime is the motion regime the camera applied on a frame.
type Regime int

const (
	RegimePan Regime = iota
	RegimeTripod
	RegimeCut
)

func (r Regime) String() string {
	switch r {
	case RegimeTripod:
		return "tripod"
	case RegimeCut:
		return "cut"
	default:
		return "pan"
	}
}

// TrackingState is the camera's continuous position and zoom. It is owned
// exclusively by one Controller and mutated every frame.
type TrackingState struct {
	X            float64
	Y            float64
	Zoom         float64
	TargetX      float64
	TargetY      float64
	TargetZoom   float64
	LastCutFrame int

	// prevRaw remembers the previous frame's resolved target before any
	// deadzone filtering. Deadzone and cut distances are measured against
	// it, so a subject drifting slower than the deadzone per frame never
	// accumulates into camera motion.
	prevRawX    float64
	prevRawY    float64
	initialized bool
}

// Position returns the current camera center.
func (s TrackingState) Position() types.Point {
	return types.Point{X: s.X, Y: s.Y}
}

// Controller is the stateful filter that turns noisy per-frame targets into
// smooth camera motion. Three regimes are evaluated each frame:
//
//   - CUT: the target jumped farther than CutThreshold and the cut cooldown
//     elapsed. Position and zoom snap instantly, modeling an editorial cut.
//   - TRIPOD: the target moved less than Deadzone. The committed target is
//     held exactly, suppressing micro-jitter from detector noise.
//   - PAN: everything else. The state blends exponentially toward the
//     target. No velocity term: inertia overshoots on direction changes.
type Controller struct {
	config ControllerConfig
	state  TrackingState
}

// NewController creates a Controller with default configuration.
func NewController() *Controller {
	return NewControllerWithConfig(DefaultControllerConfig())
}

// NewControllerWithConfig creates a Controller with custom tuning.
func NewControllerWithConfig(config ControllerConfig) *Controller {
	return &Controller{config: config}
}

// State returns a copy of the current tracking state.
func (c *Controller) State() TrackingState {
	return c.state
}

// Reset reinitializes the camera for a new clip. The next Update snaps
// directly to its target.
func (c *Controller) Reset() {
	c.state = TrackingState{}
}

// Update advances the camera by one frame toward the resolved target and
// returns the applied regime.
func (c *Controller) Update(target Target, frameIdx int) Regime {
	s := &c.state
	targetZoom := clamp(target.Zoom, c.config.ZoomMin, c.config.ZoomMax)

	if !s.initialized {
		s.X, s.Y, s.Zoom = target.X, target.Y, targetZoom
		s.TargetX, s.TargetY, s.TargetZoom = target.X, target.Y, targetZoom
		s.prevRawX, s.prevRawY = target.X, target.Y
		s.LastCutFrame = frameIdx
		s.initialized = true
		return RegimeCut
	}

	dist := math.Hypot(target.X-s.prevRawX, target.Y-s.prevRawY)
	s.prevRawX, s.prevRawY = target.X, target.Y

	regime := RegimePan
	switch {
	case dist > c.config.CutThreshold && frameIdx-s.LastCutFrame > c.config.MinCutInterval:
		// Subject changed: jump, don't chase.
		s.TargetX, s.TargetY, s.TargetZoom = target.X, target.Y, targetZoom
		s.X, s.Y, s.Zoom = target.X, target.Y, targetZoom
		s.LastCutFrame = frameIdx
		return RegimeCut

	case dist < c.config.Deadzone:
		// Hold the committed target; the camera stays on its tripod.
		regime = RegimeTripod

	default:
		s.TargetX, s.TargetY, s.TargetZoom = target.X, target.Y, targetZoom
	}

	s.X += (s.TargetX - s.X) * c.config.PositionSmoothing
	s.Y += (s.TargetY - s.Y) * c.config.PositionSmoothing
	s.Zoom += (s.TargetZoom - s.Zoom) * c.config.ZoomSmoothing
	s.Zoom = clamp(s.Zoom, c.config.ZoomMin, c.config.ZoomMax)

	return regime
}
