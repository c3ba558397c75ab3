package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestPointDistance(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}
	if d := a.Distance(b); d != 5 {
		t.Errorf("Distance = %f, want 5", d)
	}
	if d := a.Distance(a); d != 0 {
		t.Errorf("Distance to self = %f, want 0", d)
	}
}

func TestRectCenterAndArea(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 100, Height: 40}
	c := r.Center()
	if c.X != 60 || c.Y != 40 {
		t.Errorf("Center = %+v, want (60, 40)", c)
	}
	if r.Area() != 4000 {
		t.Errorf("Area = %f, want 4000", r.Area())
	}
}

func TestRectOverlaps(t *testing.T) {
	base := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	cases := []struct {
		name string
		o    Rect
		want bool
	}{
		{"contained", Rect{X: 10, Y: 10, Width: 20, Height: 20}, true},
		{"partial", Rect{X: 90, Y: 90, Width: 50, Height: 50}, true},
		{"touching edge", Rect{X: 100, Y: 0, Width: 50, Height: 50}, false},
		{"disjoint", Rect{X: 200, Y: 200, Width: 10, Height: 10}, false},
	}
	for _, tc := range cases {
		if got := base.Overlaps(tc.o); got != tc.want {
			t.Errorf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
		if got := tc.o.Overlaps(base); got != tc.want {
			t.Errorf("%s: Overlaps not symmetric", tc.name)
		}
	}
}

func TestSceneContextStrings(t *testing.T) {
	if ContextSingleSpeaker.String() != "single_speaker" {
		t.Errorf("got %q", ContextSingleSpeaker.String())
	}
	if SceneContext(99).String() != "unknown" {
		t.Errorf("out-of-range context = %q, want unknown", SceneContext(99).String())
	}
}

func TestCropStrategyStrings(t *testing.T) {
	if StrategyFaceFocus.String() != "face_focus" {
		t.Errorf("got %q", StrategyFaceFocus.String())
	}
	if CropStrategy(99).String() != "center_crop" {
		t.Errorf("out-of-range strategy = %q, want center_crop", CropStrategy(99).String())
	}
}

func TestSegmentDuration(t *testing.T) {
	seg := ProcessingSegment{StartTime: 1.5, EndTime: 4.0}
	if seg.Duration() != 2.5 {
		t.Errorf("Duration = %f, want 2.5", seg.Duration())
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(fmt.Errorf("backend: %w", ErrDetection)) {
		t.Error("wrapped detection error must be recoverable")
	}
	if !IsRecoverable(ErrRender) {
		t.Error("render error must be recoverable")
	}
	if IsRecoverable(ErrConfiguration) {
		t.Error("configuration error must not be recoverable")
	}
	if IsRecoverable(errors.New("unrelated")) {
		t.Error("unrelated error must not be recoverable")
	}
}

func TestCropLayoutVariants(t *testing.T) {
	var layout CropLayout

	layout = SingleLayout{Center: Point{X: 100, Y: 200}, Zoom: 1.4}
	if single, ok := layout.(SingleLayout); !ok || single.Zoom != 1.4 {
		t.Errorf("SingleLayout round trip failed: %+v", layout)
	}

	layout = SplitLayout{Top: Point{X: 100}, Bottom: Point{X: 500}, Zoom: 1.1}
	if split, ok := layout.(SplitLayout); !ok || split.Bottom.X != 500 {
		t.Errorf("SplitLayout round trip failed: %+v", layout)
	}
}
