// Package tracing wires the optional Langfuse exporter into eino's global
// callback chain so every answer-generation call is traced.
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is used when LANGFUSE_HOST is unset.
const defaultHost = "http://localhost:3000"

// Settings holds the Langfuse connection parameters.
type Settings struct {
	Host      string
	PublicKey string
	SecretKey string
}

// SettingsFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY. ok is false when either key is missing.
func SettingsFromEnv() (s Settings, ok bool) {
	s = Settings{
		Host:      os.Getenv("LANGFUSE_HOST"),
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
	if s.PublicKey == "" || s.SecretKey == "" {
		return s, false
	}
	if s.Host == "" {
		s.Host = defaultHost
	}
	return s, true
}

// Setup registers a Langfuse handler globally when credentials are present.
// The returned flush function must be called before process exit; it is a
// no-op when tracing is disabled.
func Setup(log *slog.Logger) func() {
	s, ok := SettingsFromEnv()
	if !ok {
		log.Debug("tracing: langfuse disabled, keys not set")
		return func() {}
	}

	handler, flush := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      s.Host,
		PublicKey: s.PublicKey,
		SecretKey: s.SecretKey,
		Name:      "askpdf",
	})
	callbacks.AppendGlobalHandlers(handler)
	log.Info("tracing: langfuse enabled", slog.String("host", s.Host))
	return flush
}
