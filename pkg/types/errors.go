package types

import "errors"

// Error kinds for the per-frame decision path. DetectionFailure and
// RenderFailure are recoverable: callers hold the last known state or fall
// back to a full-frame resize. ConfigurationError is fatal and only raised
// at construction time.
var (
	ErrDetection     = errors.New("detection failed")
	ErrRender        = errors.New("render failed")
	ErrConfiguration = errors.New("invalid configuration")
)

// IsRecoverable reports whether an error may be absorbed by the per-frame
// decision path rather than aborting the stream.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDetection) || errors.Is(err, ErrRender)
}
