package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full reframing engine configuration.
type Config struct {
	Target     TargetConfig     `json:"target" yaml:"target"`
	Camera     CameraConfig     `json:"camera" yaml:"camera"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`
	Flow       FlowConfig       `json:"flow" yaml:"flow"`
	Motion     MotionConfig     `json:"motion" yaml:"motion"`
	Face       FaceConfig       `json:"face" yaml:"face"`
	Segment    SegmentConfig    `json:"segment" yaml:"segment"`
}

// TargetConfig describes the fixed output resolution/aspect.
type TargetConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// AspectRatio returns width/height of the target.
func (t TargetConfig) AspectRatio() float64 {
	return float64(t.Width) / float64(t.Height)
}

// CameraConfig holds the virtual camera tuning constants. Deadzone and
// CutThreshold are absolute pixel distances tuned against 1080p-class
// source material; they are intentionally not scaled by frame diagonal.
type CameraConfig struct {
	Deadzone          float64 `json:"deadzone" yaml:"deadzone"`
	CutThreshold      float64 `json:"cut_threshold" yaml:"cut_threshold"`
	MinCutInterval    int     `json:"min_cut_interval" yaml:"min_cut_interval"`
	PositionSmoothing float64 `json:"position_smoothing" yaml:"position_smoothing"`
	ZoomSmoothing     float64 `json:"zoom_smoothing" yaml:"zoom_smoothing"`
	ZoomMin           float64 `json:"zoom_min" yaml:"zoom_min"`
	ZoomMax           float64 `json:"zoom_max" yaml:"zoom_max"`
}

// ClassifierConfig holds scene-context classification tuning.
type ClassifierConfig struct {
	BufferSize           int     `json:"buffer_size" yaml:"buffer_size"`
	ActionMotionLevel    float64 `json:"action_motion_level" yaml:"action_motion_level"`
	StaticMotionLevel    float64 `json:"static_motion_level" yaml:"static_motion_level"`
	TransitionLumaDelta  float64 `json:"transition_luma_delta" yaml:"transition_luma_delta"`
	ShowcaseMinAreaRatio float64 `json:"showcase_min_area_ratio" yaml:"showcase_min_area_ratio"`
}

// FlowConfig holds sparse optical-flow tracking tuning.
type FlowConfig struct {
	MaxPoints    int     `json:"max_points" yaml:"max_points"`
	MinPoints    int     `json:"min_points" yaml:"min_points"`
	SearchRadius int     `json:"search_radius" yaml:"search_radius"`
	BlockSize    int     `json:"block_size" yaml:"block_size"`
	AnalysisDim  int     `json:"analysis_dim" yaml:"analysis_dim"`
	NormScale    float64 `json:"norm_scale" yaml:"norm_scale"`
}

// MotionConfig holds frame-differencing blob detection tuning.
type MotionConfig struct {
	BlurSigma    float64 `json:"blur_sigma" yaml:"blur_sigma"`
	DiffThreshold uint8  `json:"diff_threshold" yaml:"diff_threshold"`
	DilateSteps  int     `json:"dilate_steps" yaml:"dilate_steps"`
	MinAreaRatio float64 `json:"min_area_ratio" yaml:"min_area_ratio"`
	AnalysisDim  int     `json:"analysis_dim" yaml:"analysis_dim"`
}

// FaceConfig holds face detector tuning. CascadePath points at a pigo
// facefinder cascade; when empty the engine runs without the cascade
// backend and a vision-model client must be supplied instead.
type FaceConfig struct {
	CascadePath   string  `json:"cascade_path" yaml:"cascade_path"`
	MinSize       int     `json:"min_size" yaml:"min_size"`
	MaxSize       int     `json:"max_size" yaml:"max_size"`
	ShiftFactor   float64 `json:"shift_factor" yaml:"shift_factor"`
	ScaleFactor   float64 `json:"scale_factor" yaml:"scale_factor"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

// SegmentConfig holds segment aggregation tuning.
type SegmentConfig struct {
	MaxSpan        float64 `json:"max_span" yaml:"max_span"`
	MinSpan        float64 `json:"min_span" yaml:"min_span"`
	SampleInterval float64 `json:"sample_interval" yaml:"sample_interval"`
}

// Default returns a configuration with default values tuned for a 9:16
// vertical target from 1080p-class landscape sources.
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			Width:  1080,
			Height: 1920,
		},
		Camera: CameraConfig{
			Deadzone:          50,
			CutThreshold:      250,
			MinCutInterval:    30,
			PositionSmoothing: 0.15,
			ZoomSmoothing:     0.08,
			ZoomMin:           0.4,
			ZoomMax:           2.5,
		},
		Classifier: ClassifierConfig{
			BufferSize:           15,
			ActionMotionLevel:    0.6,
			StaticMotionLevel:    0.15,
			TransitionLumaDelta:  60,
			ShowcaseMinAreaRatio: 0.02,
		},
		Flow: FlowConfig{
			MaxPoints:    120,
			MinPoints:    30,
			SearchRadius: 12,
			BlockSize:    8,
			AnalysisDim:  320,
			NormScale:    20,
		},
		Motion: MotionConfig{
			BlurSigma:     1.5,
			DiffThreshold: 25,
			DilateSteps:   2,
			MinAreaRatio:  0.005,
			AnalysisDim:   320,
		},
		Face: FaceConfig{
			MinSize:       40,
			MaxSize:       1200,
			ShiftFactor:   0.1,
			ScaleFactor:   1.1,
			MinConfidence: 5.0,
		},
		Segment: SegmentConfig{
			MaxSpan:        3.0,
			MinSpan:        1.0,
			SampleInterval: 1.0 / 30.0,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file, depending on
// the file extension. Unset sections keep their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file.
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration. A failed validation is the engine's
// only fatal error path; everything after construction degrades locally.
func (c *Config) Validate() error {
	if c.Target.Width <= 0 || c.Target.Height <= 0 {
		return fmt.Errorf("target resolution must be positive, got %dx%d", c.Target.Width, c.Target.Height)
	}

	if c.Camera.Deadzone < 0 {
		return fmt.Errorf("camera.deadzone must be non-negative")
	}

	if c.Camera.CutThreshold <= c.Camera.Deadzone {
		return fmt.Errorf("camera.cut_threshold must exceed camera.deadzone")
	}

	if c.Camera.MinCutInterval < 0 {
		return fmt.Errorf("camera.min_cut_interval must be non-negative")
	}

	if c.Camera.PositionSmoothing <= 0 || c.Camera.PositionSmoothing > 1 {
		return fmt.Errorf("camera.position_smoothing must be in (0, 1]")
	}

	if c.Camera.ZoomSmoothing <= 0 || c.Camera.ZoomSmoothing > 1 {
		return fmt.Errorf("camera.zoom_smoothing must be in (0, 1]")
	}

	if c.Camera.ZoomMin <= 0 || c.Camera.ZoomMax <= c.Camera.ZoomMin {
		return fmt.Errorf("camera zoom bounds invalid: [%f, %f]", c.Camera.ZoomMin, c.Camera.ZoomMax)
	}

	if c.Classifier.BufferSize < 1 {
		return fmt.Errorf("classifier.buffer_size must be at least 1")
	}

	if c.Classifier.ActionMotionLevel <= c.Classifier.StaticMotionLevel {
		return fmt.Errorf("classifier.action_motion_level must exceed static_motion_level")
	}

	if c.Flow.MaxPoints < c.Flow.MinPoints || c.Flow.MinPoints < 1 {
		return fmt.Errorf("flow point counts invalid: min=%d max=%d", c.Flow.MinPoints, c.Flow.MaxPoints)
	}

	if c.Flow.NormScale <= 0 {
		return fmt.Errorf("flow.norm_scale must be positive")
	}

	if c.Motion.MinAreaRatio < 0 || c.Motion.MinAreaRatio > 1 {
		return fmt.Errorf("motion.min_area_ratio must be between 0 and 1")
	}

	if c.Segment.MaxSpan <= 0 || c.Segment.MinSpan <= 0 {
		return fmt.Errorf("segment spans must be positive")
	}

	if c.Segment.MinSpan > c.Segment.MaxSpan {
		return fmt.Errorf("segment.min_span must not exceed max_span")
	}

	if c.Segment.SampleInterval <= 0 {
		return fmt.Errorf("segment.sample_interval must be positive")
	}

	return nil
}
