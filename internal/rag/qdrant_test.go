package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	live := context.Background()
	expired, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name            string
		ctx             context.Context
		err             error
		wantUnavailable bool
	}{
		{"unavailable", live, status.Error(codes.Unavailable, "connection refused"), true},
		{"unavailable wrapped", live, fmt.Errorf("error upserting points: %w", status.Error(codes.Unavailable, "no route")), true},
		{"deadline with live context", live, status.Error(codes.DeadlineExceeded, "server slow"), true},
		{"deadline wrapped with live context", live, fmt.Errorf("search: %w", status.Error(codes.DeadlineExceeded, "slow")), true},
		{"deadline after caller gave up", expired, status.Error(codes.DeadlineExceeded, "slow"), false},
		{"invalid argument", live, status.Error(codes.InvalidArgument, "wrong vector size"), false},
		{"not found", live, status.Error(codes.NotFound, "collection missing"), false},
		{"plain error", live, errors.New("boom"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := classify(tc.ctx, "upsert", tc.err)
			if errors.Is(got, ErrStoreUnavailable) != tc.wantUnavailable {
				t.Errorf("classify(%v): unavailable = %v, want %v", tc.err, !tc.wantUnavailable, tc.wantUnavailable)
			}
			if !errors.Is(got, tc.err) {
				t.Errorf("classify dropped the cause: %v", got)
			}
		})
	}
}

func TestClassify_DrivesFallbackSwitch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	primary := &fakeStore{err: classify(ctx, "upsert", status.Error(codes.Unavailable, "connection refused"))}
	fallback := &fakeStore{}
	s, err := NewFallbackStore(primary, fallback, nil)
	if err != nil {
		t.Fatalf("NewFallbackStore: %v", err)
	}
	if err := s.AddRecords(ctx, []Record{{ID: "a", Text: "x"}}, "doc-1"); err != nil {
		t.Fatalf("AddRecords: %v", err)
	}
	if !s.Degraded() || len(fallback.added) != 1 {
		t.Errorf("degraded=%v fallback records=%d, want switch to fallback", s.Degraded(), len(fallback.added))
	}

	bad := &fakeStore{err: classify(ctx, "upsert", status.Error(codes.InvalidArgument, "wrong vector size"))}
	s2, _ := NewFallbackStore(bad, &fakeStore{}, nil)
	if err := s2.AddRecords(ctx, []Record{{ID: "a"}}, ""); err == nil || s2.Degraded() {
		t.Errorf("invalid argument must surface without switching: err=%v degraded=%v", err, s2.Degraded())
	}
}
