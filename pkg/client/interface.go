package client

import (
	"context"

	"github.com/menta2k/reframe/pkg/types"
)

// VisionClient is a backend that can answer face-detection queries about a
// single frame image (base64-encoded JPEG or PNG).
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectFaces(ctx context.Context, model, prompt, imgB64 string) (*types.VisionResult, error)
}
