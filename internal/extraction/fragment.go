package extraction

// Point is a pixel coordinate in the source image
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Fragment is one OCR-recognized text region
type Fragment struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	BBox       [4]Point `json:"bbox"` // top-left, top-right, bottom-right, bottom-left
	CenterX    float64  `json:"center_x"`
	CenterY    float64  `json:"center_y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
}

// NewFragment builds a Fragment and derives its center and size from the
// top-left/bottom-right diagonal of bbox
func NewFragment(text string, confidence float64, bbox [4]Point) Fragment {
	tl, br := bbox[0], bbox[2]
	return Fragment{
		Text:       text,
		Confidence: confidence,
		BBox:       bbox,
		CenterX:    (tl.X + br.X) / 2,
		CenterY:    (tl.Y + br.Y) / 2,
		Width:      br.X - tl.X,
		Height:     br.Y - tl.Y,
	}
}
