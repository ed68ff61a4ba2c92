package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/askpdf-go/internal/ingestion"
	"github.com/54b3r/askpdf-go/internal/qa"
	"github.com/54b3r/askpdf-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request, including
	// the upload body.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds one question end to end. Defaults to 2 minutes.
	ChatTimeout time.Duration
	// IngestTimeout bounds one upload end to end. Defaults to 10 minutes.
	IngestTimeout time.Duration
	// MaxUploadBytes caps the multipart body of POST /api/upload.
	// Defaults to 10 MiB.
	MaxUploadBytes int64
	// UploadDir is where uploads are spooled before extraction. Defaults to
	// the OS temp dir. Spooled files are removed after ingestion.
	UploadDir string
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency checks run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks.
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on the chat and
	// upload endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// MetricsRegistry receives the server metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// asker answers questions. *qa.Pipeline satisfies it; tests inject a fake.
type asker interface {
	Ask(ctx context.Context, question, documentID string) (*qa.Response, error)
}

// ingester indexes an uploaded file. *ingestion.Pipeline satisfies it.
type ingester interface {
	IngestFile(ctx context.Context, path, displayName string) (*ingestion.Result, error)
}

// documentLister lists registered documents. *store.SQLiteStore satisfies it.
type documentLister interface {
	List(ctx context.Context) ([]store.Document, error)
}

// historyReader reads recent conversation turns. *store.SQLiteStore satisfies it.
type historyReader interface {
	Recent(ctx context.Context, documentID string, n int) ([]store.Message, error)
}

// Deps are the domain services the HTTP handlers call.
type Deps struct {
	Asker     asker
	Ingester  ingester
	Documents documentLister
	// History is optional; without it GET /api/history returns an empty list.
	History historyReader
}

// Server is the HTTP front end over the ingestion and query pipelines.
type Server struct {
	asker     asker
	ingester  ingester
	documents documentLister
	history   historyReader
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency checks for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
	// DocumentID optionally restricts retrieval to one document.
	DocumentID string `json:"documentId"`
	// PdfID is accepted as an alias of DocumentID for older clients.
	PdfID string `json:"pdfId"`
}

// uploadResponse is the JSON body returned by POST /api/upload.
type uploadResponse struct {
	Message  string         `json:"message"`
	Chunks   int            `json:"chunks"`
	Document store.Document `json:"document"`
}

// documentsResponse is the JSON body returned by GET /api/documents.
type documentsResponse struct {
	Documents []store.Document `json:"documents"`
}

// historyResponse is the JSON body returned by GET /api/history.
type historyResponse struct {
	Messages []store.Message `json:"messages"`
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
	// Stage names the ingestion step that failed; upload errors only.
	Stage string `json:"stage,omitempty"`
}
