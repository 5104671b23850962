package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/zombor/cheque-ocr/internal/extraction"
)

// Tesseract implements the Recognizer interface using a local Tesseract
// install. Text is read one line at a time so each fragment keeps the
// layout of the printed cheque.
type Tesseract struct {
	language string
}

// NewTesseract creates a new Tesseract Recognizer instance
func NewTesseract(language string) (*Tesseract, error) {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{language: language}, nil
}

// Recognize runs Tesseract over the image and returns one fragment per text line
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte, contentType string) ([]extraction.Fragment, error) {
	pngData, converted, err := normalizeImage(imageData, contentType)
	if err != nil {
		return nil, err
	}
	if converted {
		slog.Debug("Converted cheque image to PNG", "content_type", contentType)
	}

	// gosseract clients wrap a C handle that is not safe to share, so
	// every call gets its own
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return nil, fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	fragments := make([]extraction.Fragment, 0, len(boxes))
	for _, b := range boxes {
		if f, ok := boxFragment(b.Word, b.Confidence, b.Box); ok {
			fragments = append(fragments, f)
		}
	}
	return fragments, nil
}

// Close releases recognizer resources (no-op, clients are per call)
func (t *Tesseract) Close() error {
	return nil
}
