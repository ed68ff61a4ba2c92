package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrument_RecordsStatus(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := newServerMetrics(reg)
	h := m.instrument("documents", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "documents", "418"))
	if got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}
}

func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.New("x"), "error"},
		{context.DeadlineExceeded, "timeout"},
	}
	for _, tt := range tests {
		if got := outcomeOf(ctx, tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
