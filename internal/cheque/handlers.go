package cheque

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// ContentTypeForName guesses a content type from a file extension
func ContentTypeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// detectContentType falls back to the file extension when the part has no type
func detectContentType(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeForName(header.Filename)
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// readUpload reads a multipart file part into an Upload
func readUpload(header *multipart.FileHeader) (Upload, error) {
	f, err := header.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, fmt.Errorf("reading upload: %w", err)
	}

	return Upload{
		Filename:    header.Filename,
		ContentType: detectContentType(header),
		Data:        data,
	}, nil
}

// parseUploadForm parses a multipart request within the server's size limit
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("Upload is too large. Maximum size is %dMB.", s.maxUploadSize>>20), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return false
	}
	return true
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleListCheques returns a list of all cheques
func (s *Server) handleListCheques(w http.ResponseWriter, r *http.Request) {
	cheques, err := s.service.ListCheques()
	if err != nil {
		slog.Error("Error listing cheques", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cheques); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleUploadCheque processes a single uploaded cheque image
func (s *Server) handleUploadCheque(w http.ResponseWriter, r *http.Request) {
	if !s.parseUploadForm(w, r) {
		return
	}

	_, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a cheque image to upload.", http.StatusBadRequest)
		return
	}

	upload, err := readUpload(header)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	cheque, err := s.service.ProcessCheque(r.Context(), upload.Filename, upload.Data, upload.ContentType)
	if err != nil {
		slog.Error("Error processing cheque", "filename", upload.Filename, "error", err)
		code := http.StatusInternalServerError
		if errors.Is(err, ErrNoText) {
			code = http.StatusUnprocessableEntity
		}
		jsonError(w, err.Error(), code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(cheque); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleBatchUpload processes every file in the "files" form field. With
// ?format=csv the batch summary is returned as CSV.
func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	if !s.parseUploadForm(w, r) {
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "No files were selected. Please choose cheque images to upload.", http.StatusBadRequest)
		return
	}

	uploads := make([]Upload, 0, len(headers))
	for _, header := range headers {
		upload, err := readUpload(header)
		if err != nil {
			slog.Error("Error reading file data", "error", err, "filename", header.Filename)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		uploads = append(uploads, upload)
	}

	items := s.service.ProcessBatch(r.Context(), uploads)

	if r.URL.Query().Get("format") == "csv" {
		var buf bytes.Buffer
		if err := WriteBatchCSV(&buf, items); err != nil {
			slog.Error("Error writing batch csv", "error", err)
			corsError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="batch_cheque_data.csv"`)
		w.Write(buf.Bytes())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(items); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetCheque returns a single cheque
func (s *Server) handleGetCheque(w http.ResponseWriter, r *http.Request) {
	cheque, err := s.service.GetCheque(r.PathValue("id"))
	if err != nil {
		corsError(w, "Cheque not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cheque); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetChequeCSV returns the extracted fields of a cheque as CSV
func (s *Server) handleGetChequeCSV(w http.ResponseWriter, r *http.Request) {
	cheque, err := s.service.GetCheque(r.PathValue("id"))
	if err != nil {
		corsError(w, "Cheque not found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := WriteChequeCSV(&buf, cheque); err != nil {
		slog.Error("Error writing cheque csv", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="cheque_data.csv"`)
	w.Write(buf.Bytes())
}

// handleGetChequeFile returns the image for a cheque
func (s *Server) handleGetChequeFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetChequeFile(r.PathValue("id"))
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteCheque deletes a cheque
func (s *Server) handleDeleteCheque(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteCheque(r.PathValue("id")); err != nil {
		corsError(w, "Error deleting cheque", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
