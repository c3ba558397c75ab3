package types

// CropLayout describes how a crop decision maps onto the output canvas.
// It is a closed set: SingleLayout renders one region over the full canvas,
// SplitLayout stacks two half-height regions vertically (used for
// two-person conversations). The unexported method keeps the set closed so
// renderers can switch over the variants exhaustively.
type CropLayout interface {
	cropLayout()
}

// SingleLayout renders one source region onto the whole output canvas.
type SingleLayout struct {
	Center Point
	Zoom   float64
}

func (SingleLayout) cropLayout() {}

// SplitLayout renders two source regions stacked vertically, each filling
// half the output canvas. Top and Bottom are the crop centers for the two
// panels; Zoom applies to both.
type SplitLayout struct {
	Top    Point
	Bottom Point
	Zoom   float64
}

func (SplitLayout) cropLayout() {}
