package cheque

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// defaultMaxUploadSize caps a single upload request at 10MB
const defaultMaxUploadSize = int64(10 << 20)

// Server handles HTTP requests for cheques
type Server struct {
	service       *Service
	basicAuth     BasicAuth
	mux           *http.ServeMux
	maxUploadSize int64
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:       service,
		basicAuth:     basicAuth,
		mux:           mux,
		maxUploadSize: defaultMaxUploadSize,
	}
	s.registerRoutes()
	return s
}

// SetMaxUploadSize sets the largest accepted upload request in bytes
func (s *Server) SetMaxUploadSize(n int64) {
	if n > 0 {
		s.maxUploadSize = n
	}
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Cheque OCR"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/cheques/batch", s.requireAuth(s.handleBatchUpload))
	s.mux.HandleFunc("GET /api/cheques/{id}/file", s.requireAuth(s.handleGetChequeFile))
	s.mux.HandleFunc("GET /api/cheques/{id}/csv", s.requireAuth(s.handleGetChequeCSV))
	s.mux.HandleFunc("GET /api/cheques/{id}", s.requireAuth(s.handleGetCheque))
	s.mux.HandleFunc("DELETE /api/cheques/{id}", s.requireAuth(s.handleDeleteCheque))
	s.mux.HandleFunc("GET /api/cheques", s.requireAuth(s.handleListCheques))
	s.mux.HandleFunc("POST /api/cheques", s.requireAuth(s.handleUploadCheque))

	// Static HTML interface (register last as it's the catch-all)
	s.mux.HandleFunc("GET /index.html", s.requireAuth(s.handleIndex))
	s.mux.HandleFunc("GET /", s.requireAuth(s.handleIndex))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
