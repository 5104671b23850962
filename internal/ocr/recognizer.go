package ocr

import (
	"context"
	"image"
	"strings"

	"github.com/zombor/cheque-ocr/internal/extraction"
)

// Recognizer defines the interface for text recognition on cheque images
type Recognizer interface {
	// Recognize returns the text regions found in an image. An empty slice
	// with a nil error means the image held no readable text.
	Recognize(ctx context.Context, imageData []byte, contentType string) ([]extraction.Fragment, error)
	// Close releases recognizer resources
	Close() error
}

// boxFragment converts a recognized rectangle into a fragment. Confidence
// is given on a 0-100 scale and clamped into [0, 1]. The second return is
// false for text that is empty after trimming.
func boxFragment(text string, confidence float64, box image.Rectangle) (extraction.Fragment, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return extraction.Fragment{}, false
	}

	confidence /= 100
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	minX, minY := float64(box.Min.X), float64(box.Min.Y)
	maxX, maxY := float64(box.Max.X), float64(box.Max.Y)
	return extraction.NewFragment(text, confidence, [4]extraction.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}), true
}
