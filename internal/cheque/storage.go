package cheque

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// Storage defines the interface for cheque image storage
type Storage interface {
	// Save stores a cheque image and returns the name to read it back by
	Save(filename string, data []byte) (string, error)

	// Get retrieves a stored cheque image
	Get(name string) ([]byte, error)

	// Delete removes a stored cheque image
	Delete(name string) error
}

// LocalStorage keeps cheque images flat in one directory. Names never
// carry directories, so a stored name cannot escape the base path.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the image directory if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// imageExtension maps sniffed image content to a file extension
func imageExtension(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}

// Save writes the image under filename. A name without an extension gets
// one from the image content so the stored file opens in a viewer. The
// file is written to a temporary name first and renamed into place, so a
// concurrent Get never sees a partial image.
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	name := filepath.Base(filename)
	if filepath.Ext(name) == "" {
		name += imageExtension(data)
	}

	tmp, err := os.CreateTemp(l.basePath, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.basePath, name)); err != nil {
		return "", fmt.Errorf("storing file: %w", err)
	}
	return name, nil
}

// Get reads a stored image
func (l *LocalStorage) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a stored image
func (l *LocalStorage) Delete(name string) error {
	if err := os.Remove(filepath.Join(l.basePath, filepath.Base(name))); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
