package cheque

import (
	"time"

	"github.com/zombor/cheque-ocr/internal/extraction"
)

// Cheque is a processed cheque image and the fields extracted from it
type Cheque struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`      // stored file name
	Original    string            `json:"original_name"` // name as uploaded
	ContentType string            `json:"content_type"`
	Fields      extraction.Result `json:"fields"`
	Source      extraction.Source `json:"source"`
	CreatedAt   time.Time         `json:"created_at"`
}

// BatchItem is the outcome of one file in a batch upload
type BatchItem struct {
	Filename string  `json:"filename"`
	Success  bool    `json:"success"`
	Cheque   *Cheque `json:"cheque,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Upload is one file submitted for processing
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
