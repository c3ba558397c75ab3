package types

// VisionFace is one face reported by a vision model, with its bounding box
// normalized to [0,1] frame coordinates.
type VisionFace struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Box is a normalized bounding box with coordinates in [0,1] range.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// VisionResult is the parsed response of a face-detection query against a
// vision model.
type VisionResult struct {
	Faces       []VisionFace `json:"faces"`
	Description string       `json:"description"`
}
