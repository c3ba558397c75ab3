package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"

	"github.com/menta2k/reframe/pkg/client"
	"github.com/menta2k/reframe/pkg/types"
)

// DefaultFacePrompt asks a vision model for every visible face as JSON.
const DefaultFacePrompt = `You are a face locator.

Return JSON only:
{
  "faces": [
    {"box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}, "confidence": 0.0}
  ],
  "description": "short neutral sentence"
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- Include every clearly visible human face, tightly boxed.
- Confidence in [0,1]. Do not guess real identities.
- If no face is visible, return {"faces": [], "description": "no faces"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// VisionDetector is a FaceFinder backed by a remote vision model (Ollama or
// an OpenAI-compatible llama.cpp server). It is slower than the cascade
// detector but handles profiles and partial occlusion far better.
type VisionDetector struct {
	client  client.VisionClient
	model   string
	prompt  string
	maxDim  int
	quality int
}

// NewVisionDetector creates a vision-model face detector.
func NewVisionDetector(c client.VisionClient, model string) *VisionDetector {
	return &VisionDetector{
		client:  c,
		model:   model,
		prompt:  DefaultFacePrompt,
		maxDim:  1024,
		quality: 85,
	}
}

// SetPrompt overrides the detection prompt.
func (d *VisionDetector) SetPrompt(prompt string) {
	d.prompt = prompt
}

// DetectFaces sends the frame to the vision model and scales the returned
// normalized boxes back into source-frame pixels.
func (d *VisionDetector) DetectFaces(ctx context.Context, img image.Image) ([]types.FaceDetection, error) {
	b64, err := d.encodeFrame(img)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding frame: %v", types.ErrDetection, err)
	}

	result, err := d.client.DetectFaces(ctx, d.model, d.prompt, b64)
	if err != nil {
		return nil, fmt.Errorf("%w: vision query: %v", types.ErrDetection, err)
	}

	bounds := img.Bounds()
	fw := float64(bounds.Dx())
	fh := float64(bounds.Dy())

	var faces []types.FaceDetection
	for _, vf := range result.Faces {
		box := clampBox(vf.Box)
		if box.W <= 0 || box.H <= 0 {
			continue
		}
		faces = append(faces, types.FaceDetection{
			Box: types.Rect{
				X:      box.X * fw,
				Y:      box.Y * fh,
				Width:  box.W * fw,
				Height: box.H * fh,
			},
			Confidence: clamp01(vf.Confidence),
		})
	}
	return faces, nil
}

// encodeFrame downsizes the frame for transfer and encodes it as base64
// JPEG.
func (d *VisionDetector) encodeFrame(img image.Image) (string, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if d.maxDim > 0 && (w > d.maxDim || h > d.maxDim) {
		if w >= h {
			img = imaging.Resize(img, d.maxDim, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, d.maxDim, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.quality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func clampBox(b types.Box) types.Box {
	return types.Box{
		X: clamp01(b.X),
		Y: clamp01(b.Y),
		W: clamp01(b.W),
		H: clamp01(b.H),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
