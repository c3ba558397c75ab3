package ollama

import (
	"testing"
)

func TestParseVisionResultCleanJSON(t *testing.T) {
	raw := `{"faces": [{"box": {"x": 0.1, "y": 0.2, "w": 0.3, "h": 0.4}, "confidence": 0.95}], "description": "one person"}`
	result := parseVisionResult(raw)

	if len(result.Faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(result.Faces))
	}
	face := result.Faces[0]
	if face.Box.X != 0.1 || face.Box.W != 0.3 {
		t.Errorf("unexpected box: %+v", face.Box)
	}
	if face.Confidence != 0.95 {
		t.Errorf("confidence = %f, want 0.95", face.Confidence)
	}
}

func TestParseVisionResultCodeFence(t *testing.T) {
	raw := "```json\n{\"faces\": [{\"box\": {\"x\": 0.5, \"y\": 0.5, \"w\": 0.1, \"h\": 0.1}, \"confidence\": 0.8}]}\n```"
	result := parseVisionResult(raw)
	if len(result.Faces) != 1 {
		t.Errorf("expected 1 face from fenced JSON, got %d", len(result.Faces))
	}
}

func TestParseVisionResultTrailingCommasAndComments(t *testing.T) {
	raw := `{
  // the model likes to annotate
  "faces": [
    {"box": {"x": 0.1, "y": 0.1, "w": 0.2, "h": 0.2}, "confidence": 0.7},
  ],
}`
	result := parseVisionResult(raw)
	if len(result.Faces) != 1 {
		t.Errorf("expected 1 face after sanitizing, got %d", len(result.Faces))
	}
}

func TestParseVisionResultProseAroundJSON(t *testing.T) {
	raw := `Sure! Here is the result: {"faces": []} Hope that helps.`
	result := parseVisionResult(raw)
	if result.Faces == nil && result.Description != "" {
		t.Errorf("expected the embedded JSON to parse, got %+v", result)
	}
	if len(result.Faces) != 0 {
		t.Errorf("expected empty face list, got %d", len(result.Faces))
	}
}

func TestParseVisionResultGarbageDegradesGracefully(t *testing.T) {
	for _, raw := range []string{
		"I could not find any faces in this image.",
		"",
		"{{{{",
	} {
		result := parseVisionResult(raw)
		if result == nil {
			t.Fatalf("parseVisionResult(%q) returned nil", raw)
		}
		if len(result.Faces) != 0 {
			t.Errorf("parseVisionResult(%q) invented %d faces", raw, len(result.Faces))
		}
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"trailing comma", `{"a": [1, 2,],}`, `{"a": [1, 2]}`},
		{"block comment", `{"a": /* note */ 1}`, `{"a":  1}`},
		{"prose wrapper", `answer: {"a": 1} done`, `{"a": 1}`},
	}
	for _, tc := range cases {
		if got := sanitizeModelJSON(tc.in); got != tc.want {
			t.Errorf("%s: sanitizeModelJSON(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestNewClientRejectsInvalidURL(t *testing.T) {
	if _, err := NewClient("http://bad url with spaces"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
