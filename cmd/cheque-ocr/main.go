package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/cheque-ocr/internal/cheque"
	"github.com/zombor/cheque-ocr/internal/extraction"
	"github.com/zombor/cheque-ocr/internal/llm"
	"github.com/zombor/cheque-ocr/internal/ocr"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env is fine; flags and the environment still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	defaults := extraction.DefaultConfig()

	flags := ff.NewFlagSet("cheque-ocr")
	var (
		port             = flags.IntLong("port", 8080, "HTTP server port")
		dbPath           = flags.StringLong("db", "cheque-ocr.db", "Database file path")
		storagePath      = flags.StringLong("storage", "./cheques", "Storage directory path")
		modelType        = flags.StringLong("model", "gemini", "Fallback model: 'gemini', 'ollama', 'replicate' or 'none'")
		geminiKey        = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel      = flags.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL        = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel      = flags.StringLong("ollama-model", "llama3", "Ollama model name")
		replicateURL     = flags.StringLong("replicate-url", "https://api.replicate.com", "Replicate API base URL")
		replicateToken   = flags.StringLong("replicate-token", "", "Replicate API token (or set REPLICATE_API_TOKEN env var)")
		replicateModel   = flags.StringLong("replicate-model", "meta/meta-llama-3-70b-instruct", "Replicate model name")
		minConfidence    = flags.Float64Long("min-confidence", defaults.MinConfidence, "Minimum OCR confidence for fragments sent to the model")
		tesseractLang    = flags.StringLong("tesseract-lang", "eng", "Tesseract language")
		maxUpload        = flags.IntLong("max-upload", 10<<20, "Maximum upload request size in bytes")
		batchConcurrency = flags.IntLong("batch-concurrency", 4, "Number of cheques processed at once in a batch")
		batchDir         = flags.StringLong("batch", "", "Process every image in this directory, write CSV to stdout and exit")
		authUser         = flags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass         = flags.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion      = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("CHEQUE_OCR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := cheque.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize fallback model based on type. The resolver only calls the
	// model when it has a credential, so a missing key degrades to the local
	// heuristic instead of failing startup.
	cfg := defaults
	cfg.MinConfidence = *minConfidence
	var model llm.Model
	switch *modelType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Warn("No Gemini API key, missing fields will use the local heuristic. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			break
		}
		slog.Info("Initializing Gemini model...", "model", *geminiModel)
		model, err = llm.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		cfg.Credential = apiKey
	case "ollama":
		slog.Info("Initializing Ollama model...", "url", *ollamaURL, "model", *ollamaModel)
		model, err = llm.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
		// Ollama has no key; the endpoint stands in for one.
		cfg.Credential = *ollamaURL
	case "replicate":
		token := *replicateToken
		if token == "" {
			token = os.Getenv("REPLICATE_API_TOKEN")
		}
		if token == "" {
			slog.Warn("No Replicate API token, missing fields will use the local heuristic. Set --replicate-token flag or REPLICATE_API_TOKEN environment variable")
			break
		}
		slog.Info("Initializing Replicate model...", "model", *replicateModel)
		model, err = llm.NewReplicate(*replicateURL, token, *replicateModel)
		if err != nil {
			slog.Error("Failed to initialize Replicate", "error", err)
			os.Exit(1)
		}
		cfg.Credential = token
	case "none":
		slog.Info("No fallback model configured, missing fields will use the local heuristic")
	default:
		slog.Error("Invalid model type", "type", *modelType, "valid", "gemini, ollama, replicate or none")
		os.Exit(1)
	}
	if model != nil {
		defer model.Close()
	}

	engine := extraction.NewEngine(extraction.NewResolver(cfg, model))

	// Initialize recognizer
	slog.Info("Initializing Tesseract...", "language", *tesseractLang)
	recognizer, err := ocr.NewTesseract(*tesseractLang)
	if err != nil {
		slog.Error("Failed to initialize Tesseract", "error", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := cheque.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	chequeService := cheque.NewService(db, recognizer, engine, store)
	chequeService.SetBatchConcurrency(*batchConcurrency)

	if *batchDir != "" {
		if err := runBatch(chequeService, *batchDir); err != nil {
			slog.Error("Batch failed", "dir", *batchDir, "error", err)
			os.Exit(1)
		}
		return
	}

	// Initialize server
	basicAuth := cheque.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := cheque.NewServer(chequeService, basicAuth)
	server.SetMaxUploadSize(int64(*maxUpload))

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// runBatch processes every supported file in dir and writes the batch CSV
// to stdout
func runBatch(service *cheque.Service, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading batch directory: %w", err)
	}

	var uploads []cheque.Upload
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contentType := cheque.ContentTypeForName(entry.Name())
		if contentType == "application/octet-stream" {
			slog.Warn("Skipping unsupported file", "filename", entry.Name())
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		uploads = append(uploads, cheque.Upload{
			Filename:    entry.Name(),
			ContentType: contentType,
			Data:        data,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Processing batch", "dir", dir, "files", len(uploads))
	items := service.ProcessBatch(ctx, uploads)
	return cheque.WriteBatchCSV(os.Stdout, items)
}
