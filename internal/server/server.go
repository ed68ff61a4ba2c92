// Package server implements the askpdf HTTP API: document upload, questions,
// the document list, question history, health and readiness checks, and
// Prometheus metrics. It is started by the `askpdf serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/askpdf-go/internal/audit"
	"github.com/54b3r/askpdf-go/internal/ingestion"
	"github.com/54b3r/askpdf-go/internal/logging"
	"github.com/54b3r/askpdf-go/internal/qa"
	"github.com/54b3r/askpdf-go/internal/rag"
	"github.com/54b3r/askpdf-go/internal/store"
)

const (
	// uploadField is the multipart form field carrying the document.
	uploadField = "pdf"
	// maxChatBody caps the JSON body of POST /api/chat.
	maxChatBody = 1 << 20
	// defaultHistoryLimit and maxHistoryLimit bound GET /api/history.
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// New constructs a Server from the domain services and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Asker == nil {
		return nil, fmt.Errorf("server: asker must not be nil")
	}
	if deps.Ingester == nil {
		return nil, fmt.Errorf("server: ingester must not be nil")
	}
	if deps.Documents == nil {
		return nil, fmt.Errorf("server: document lister must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	applyDefaults(cfg)

	s := &Server{
		asker:     deps.Asker,
		ingester:  deps.Ingester,
		documents: deps.Documents,
		history:   deps.History,
		cfg:       cfg,
		log:       cfg.Logger,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stop

	mux := http.NewServeMux()
	s.route(mux, "POST /api/upload", "upload", rl.middleware(http.HandlerFunc(s.handleUpload)))
	s.route(mux, "POST /api/chat", "chat", rl.middleware(http.HandlerFunc(s.handleChat)))
	s.route(mux, "GET /api/documents", "documents", http.HandlerFunc(s.handleDocuments))
	s.route(mux, "GET /api/history", "history", http.HandlerFunc(s.handleHistory))
	s.route(mux, "GET /api/health", "health", http.HandlerFunc(s.handleHealth))
	s.route(mux, "GET /api/ready", "ready", http.HandlerFunc(s.handleReady))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(cfg.Logger, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// applyDefaults fills zero-valued Config fields.
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 2 * time.Minute
	}
	if cfg.ChatTimeout == 0 {
		cfg.ChatTimeout = 2 * time.Minute
	}
	if cfg.IngestTimeout == 0 {
		cfg.IngestTimeout = 10 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		// Uploads are answered only after every chunk is embedded.
		cfg.WriteTimeout = cfg.IngestTimeout + 30*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
}

// route registers h under pattern, instrumented with the handler label.
func (s *Server) route(mux *http.ServeMux, pattern, label string, h http.Handler) {
	mux.Handle(pattern, s.metrics.instrument(label, h))
}

// Handler returns the root handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("askpdf server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		s.log.Info("askpdf server stopped")
		return nil
	}
}

// handleChat handles POST /api/chat. It answers one question, optionally
// scoped to a single document, and responds with {answer, sources}.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, qa.ErrEmptyQuestion.Error())
		return
	}
	documentID := req.DocumentID
	if documentID == "" {
		documentID = req.PdfID
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	s.metrics.chatInFlight.Inc()
	start := time.Now()
	resp, err := s.asker.Ask(ctx, req.Question, documentID)
	s.metrics.chatInFlight.Dec()

	outcome := outcomeOf(ctx, err)
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		status := statusFor(err)
		log.Error("chat: question failed",
			slog.String("document_id", documentID),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		writeFailure(w, status, err, "failed to generate answer")
		return
	}
	if resp.Answer == qa.NoInformationAnswer {
		s.metrics.chatEmptyRetrievals.Inc()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleUpload handles POST /api/upload. The document arrives in the "pdf"
// multipart field, is spooled to a temporary file, ingested and removed.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %d byte upload limit", s.cfg.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	name := ingestion.DisplayName(header.Filename)
	path, err := s.spool(file, name)
	if err != nil {
		log.Error("upload: spool failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("upload: failed to remove spooled file", slog.String("path", path), slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.IngestTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.ingester.IngestFile(ctx, path, name)
	outcome := outcomeOf(ctx, err)
	s.metrics.ingestRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.ingestDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		status := statusFor(err)
		log.Error("upload: ingestion failed",
			slog.String("name", name),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		writeFailure(w, status, err, "failed to process document")
		return
	}

	s.metrics.ingestChunksTotal.Add(float64(res.ChunkCount))
	audit.LogDataChange(r.Context(), log, audit.ActionIngest, res.Document.ID, res.Document.DisplayName)

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:  "PDF processed successfully",
		Chunks:   res.ChunkCount,
		Document: res.Document,
	})
}

// spool copies src into a new temporary file that keeps name's extension,
// so format detection still works, and returns its path.
func (s *Server) spool(src io.Reader, name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	f, err := os.CreateTemp(s.cfg.UploadDir, "askpdf-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

// handleDocuments handles GET /api/documents, newest first.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("documents: list failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: docs})
}

// handleHistory handles GET /api/history?documentId=&limit=. Messages are
// returned oldest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	msgs := []store.Message{}
	if s.history != nil {
		got, err := s.history.Recent(r.Context(), r.URL.Query().Get("documentId"), limit)
		if err != nil {
			logging.FromContext(r.Context()).Error("history: read failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "failed to read history")
			return
		}
		msgs = append(msgs, got...)
	}
	writeJSON(w, http.StatusOK, historyResponse{Messages: msgs})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps a pipeline error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, qa.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrPDFToolNotFound):
		return http.StatusInternalServerError
	case errors.Is(err, ingestion.ErrEmptyDocument), errors.Is(err, rag.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, rag.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, rag.ErrEmbedding), errors.Is(err, rag.ErrAnswerGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the error text shown to clients. 4xx errors describe
// the caller's mistake. 5xx errors get the generic message, naming the
// ingestion stage when there is one.
func publicMessage(status int, err error, generic string) string {
	var se *ingestion.StageError
	staged := errors.As(err, &se)
	switch {
	case status >= 400 && status < 500 && staged:
		return se.Err.Error()
	case status >= 400 && status < 500:
		return err.Error()
	case staged:
		return fmt.Sprintf("%s: %s stage failed", generic, se.Stage)
	default:
		return generic
	}
}

// writeFailure writes the public error body for err, with the failed
// ingestion stage in its own field.
func writeFailure(w http.ResponseWriter, status int, err error, generic string) {
	resp := errorResponse{Error: publicMessage(status, err, generic)}
	var se *ingestion.StageError
	if errors.As(err, &se) {
		resp.Stage = string(se.Stage)
	}
	writeJSON(w, status, resp)
}

// outcomeOf labels a request for metrics: ok, timeout or error.
func outcomeOf(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
