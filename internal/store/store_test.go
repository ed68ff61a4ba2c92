package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_AppendAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "doc-a", RoleUser, "hello"); err != nil {
		t.Fatalf("append user: %v", err)
	}
	if err := s.Append(ctx, "doc-a", RoleAssistant, "world"); err != nil {
		t.Fatalf("append assistant: %v", err)
	}

	msgs, err := s.Recent(ctx, "doc-a", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "hello" {
		t.Errorf("msg[0]: want user/hello, got %s/%s", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "world" {
		t.Errorf("msg[1]: want assistant/world, got %s/%s", msgs[1].Role, msgs[1].Content)
	}
	if msgs[0].DocumentID != "doc-a" {
		t.Errorf("DocumentID = %q, want doc-a", msgs[0].DocumentID)
	}
}

func Test_Store_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := range 6 {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if err := s.Append(ctx, "doc-b", role, "msg"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := s.Recent(ctx, "doc-b", 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 4 {
		t.Errorf("want 4 messages, got %d", len(msgs))
	}
}

func Test_Store_DocumentIsolation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "doc-x", RoleUser, "from x"); err != nil {
		t.Fatalf("append x: %v", err)
	}
	if err := s.Append(ctx, "", RoleUser, "unscoped"); err != nil {
		t.Fatalf("append unscoped: %v", err)
	}

	msgsX, err := s.Recent(ctx, "doc-x", 10)
	if err != nil {
		t.Fatalf("recent x: %v", err)
	}
	msgsAll, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent unscoped: %v", err)
	}

	if len(msgsX) != 1 || msgsX[0].Content != "from x" {
		t.Errorf("document x isolation failed: got %v", msgsX)
	}
	if len(msgsAll) != 1 || msgsAll[0].Content != "unscoped" {
		t.Errorf("unscoped isolation failed: got %v", msgsAll)
	}
}

func Test_Store_OldestFirstOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		if err := s.Append(ctx, "doc-order", RoleUser, c); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := s.Recent(ctx, "doc-order", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	for i, want := range contents {
		if msgs[i].Content != want {
			t.Errorf("msg[%d]: want %q, got %q", i, want, msgs[i].Content)
		}
	}
}

func Test_Registry_AddGetList(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	older := Document{ID: "doc-1", DisplayName: "a.pdf", ChunkCount: 3, UploadedAt: time.UnixMilli(1_700_000_000_000)}
	newer := Document{ID: "doc-2", DisplayName: "b.pdf", ChunkCount: 5, UploadedAt: time.UnixMilli(1_700_000_100_000)}
	for _, d := range []Document{older, newer} {
		if err := s.Add(ctx, d); err != nil {
			t.Fatalf("add %s: %v", d.ID, err)
		}
	}

	got, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DisplayName != "a.pdf" || got.ChunkCount != 3 || !got.UploadedAt.Equal(older.UploadedAt) {
		t.Errorf("get = %+v, want %+v", got, older)
	}

	docs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "doc-2" || docs[1].ID != "doc-1" {
		t.Errorf("list not newest first: %+v", docs)
	}
}

func Test_Registry_NotFound(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("get: want ErrDocumentNotFound, got %v", err)
	}
	if err := s.Remove(ctx, "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("remove: want ErrDocumentNotFound, got %v", err)
	}
}

func Test_Registry_RemoveAndReset(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, Document{ID: "doc-1", DisplayName: "a.pdf"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(ctx, Document{ID: "doc-1", DisplayName: "dup.pdf"}); err == nil {
		t.Error("duplicate id should fail")
	}
	if err := s.Remove(ctx, "doc-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := s.Add(ctx, Document{ID: "doc-2", DisplayName: "b.pdf"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Append(ctx, "doc-2", RoleUser, "q"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	docs, _ := s.List(ctx)
	msgs, _ := s.Recent(ctx, "doc-2", 10)
	if len(docs) != 0 || len(msgs) != 0 {
		t.Errorf("reset left %d documents and %d messages", len(docs), len(msgs))
	}
}

func Test_Registry_EmptyIDRejected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	if err := s.Add(context.Background(), Document{DisplayName: "x"}); err == nil {
		t.Error("want error for empty id")
	}
}

func Test_Store_FileBacked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path, err := DBPath(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("DBPath: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Add(ctx, Document{ID: "doc-1", DisplayName: "a.pdf"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	_ = s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(ctx, "doc-1"); err != nil {
		t.Errorf("document not persisted: %v", err)
	}
}
