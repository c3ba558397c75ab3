package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target width", func(c *Config) { c.Target.Width = 0 }},
		{"negative target height", func(c *Config) { c.Target.Height = -1 }},
		{"negative deadzone", func(c *Config) { c.Camera.Deadzone = -1 }},
		{"cut threshold below deadzone", func(c *Config) { c.Camera.CutThreshold = 10 }},
		{"negative cut interval", func(c *Config) { c.Camera.MinCutInterval = -1 }},
		{"zero position smoothing", func(c *Config) { c.Camera.PositionSmoothing = 0 }},
		{"smoothing above one", func(c *Config) { c.Camera.ZoomSmoothing = 1.5 }},
		{"inverted zoom bounds", func(c *Config) { c.Camera.ZoomMin = 3.0 }},
		{"zero buffer size", func(c *Config) { c.Classifier.BufferSize = 0 }},
		{"action below static", func(c *Config) { c.Classifier.ActionMotionLevel = 0.1 }},
		{"min points above max", func(c *Config) { c.Flow.MinPoints = 500 }},
		{"zero norm scale", func(c *Config) { c.Flow.NormScale = 0 }},
		{"area ratio above one", func(c *Config) { c.Motion.MinAreaRatio = 1.5 }},
		{"zero max span", func(c *Config) { c.Segment.MaxSpan = 0 }},
		{"min span above max", func(c *Config) { c.Segment.MinSpan = 5 }},
		{"zero sample interval", func(c *Config) { c.Segment.SampleInterval = 0 }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadFromJSONOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "target": {"width": 1080, "height": 1080},
  "camera": {
    "deadzone": 40,
    "cut_threshold": 200,
    "min_cut_interval": 20,
    "position_smoothing": 0.2,
    "zoom_smoothing": 0.1,
    "zoom_min": 0.5,
    "zoom_max": 2.0
  }
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Target.Height != 1080 {
		t.Errorf("target height = %d, want 1080", cfg.Target.Height)
	}
	if cfg.Camera.Deadzone != 40 {
		t.Errorf("deadzone = %f, want 40", cfg.Camera.Deadzone)
	}
	// Untouched sections keep their defaults.
	if cfg.Classifier.BufferSize != 15 {
		t.Errorf("buffer size = %d, want default 15", cfg.Classifier.BufferSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
target:
  width: 1920
  height: 1080
segment:
  max_span: 4.0
  min_span: 1.5
  sample_interval: 0.04
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Target.Width != 1920 || cfg.Target.Height != 1080 {
		t.Errorf("target = %dx%d, want 1920x1080", cfg.Target.Width, cfg.Target.Height)
	}
	if cfg.Segment.MaxSpan != 4.0 {
		t.Errorf("max span = %f, want 4.0", cfg.Segment.MaxSpan)
	}
	if cfg.Camera.Deadzone != 50 {
		t.Errorf("deadzone = %f, want default 50", cfg.Camera.Deadzone)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Target.Width = 720
	cfg.Target.Height = 1280
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Target.Width != 720 || loaded.Target.Height != 1280 {
		t.Errorf("reloaded target = %dx%d, want 720x1280", loaded.Target.Width, loaded.Target.Height)
	}
}

func TestAspectRatio(t *testing.T) {
	target := TargetConfig{Width: 1080, Height: 1920}
	if ratio := target.AspectRatio(); ratio != 0.5625 {
		t.Errorf("aspect ratio = %f, want 0.5625", ratio)
	}
}
