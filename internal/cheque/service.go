package cheque

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/cheque-ocr/internal/extraction"
	"github.com/zombor/cheque-ocr/internal/ocr"
)

// ErrNoText is returned when OCR finds no readable text in an image. It
// is an OCR failure, unlike a cheque whose fields are all empty.
var ErrNoText = errors.New("no text detected in image")

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// Extractor resolves cheque fields from OCR fragments
type Extractor interface {
	ExtractWithSource(ctx context.Context, fragments []extraction.Fragment) (extraction.Result, extraction.Source)
}

// IDGenerator generates unique IDs for cheques
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles cheque operations
type Service struct {
	db          DB
	recognizer  ocr.Recognizer
	extractor   Extractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	concurrency int
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, recognizer ocr.Recognizer, extractor Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, recognizer, extractor, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer ocr.Recognizer, extractor Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		recognizer:  recognizer,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
		concurrency: defaultBatchConcurrency,
	}
}

// sanitizeFilename strips special characters and truncates the base name
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "cheque"
	}

	return base + ext
}

// ProcessCheque stores a cheque image, runs OCR and field extraction on it
// and saves the result
func (s *Service) ProcessCheque(ctx context.Context, filename string, data []byte, contentType string) (*Cheque, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	fragments, err := s.recognizer.Recognize(ctx, data, contentType)
	if err == nil && len(fragments) == 0 {
		err = ErrNoText
	}
	if err != nil {
		slog.Error("Failed to recognize cheque",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("recognizing cheque: %w", err)
	}

	fields, source := s.extractor.ExtractWithSource(ctx, fragments)

	cheque := &Cheque{
		ID:          id,
		Filename:    savedPath,
		Original:    filename,
		ContentType: contentType,
		Fields:      fields,
		Source:      source,
		CreatedAt:   now,
	}

	if err := s.db.SaveCheque(cheque); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving cheque to database: %w", err)
	}

	slog.Info("Processed cheque",
		"id", id,
		"filename", filename,
		"fragments", len(fragments),
		"source", source,
	)
	return cheque, nil
}

// GetCheque retrieves a cheque by ID
func (s *Service) GetCheque(id string) (*Cheque, error) {
	cheque, err := s.db.GetCheque(id)
	if err != nil {
		return nil, fmt.Errorf("getting cheque: %w", err)
	}
	return cheque, nil
}

// ListCheques returns all cheques
func (s *Service) ListCheques() ([]*Cheque, error) {
	cheques, err := s.db.ListCheques()
	if err != nil {
		return nil, fmt.Errorf("listing cheques: %w", err)
	}
	return cheques, nil
}

// DeleteCheque removes a cheque and its file
func (s *Service) DeleteCheque(id string) error {
	cheque, err := s.db.GetCheque(id)
	if err != nil {
		return fmt.Errorf("getting cheque for deletion: %w", err)
	}

	if err := s.storage.Delete(cheque.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", cheque.Filename, "error", err)
	}

	if err := s.db.DeleteCheque(id); err != nil {
		return fmt.Errorf("deleting cheque from database: %w", err)
	}
	return nil
}

// GetChequeFile retrieves the image data for a cheque
func (s *Service) GetChequeFile(id string) ([]byte, string, error) {
	cheque, err := s.db.GetCheque(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting cheque: %w", err)
	}

	data, err := s.storage.Get(cheque.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting cheque file: %w", err)
	}

	return data, cheque.ContentType, nil
}
