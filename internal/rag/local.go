package rag

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// LocalConfig holds the settings for a LocalStore.
type LocalConfig struct {
	// Path is the JSON file holding every collection.
	Path string

	// Collection is the collection name within the file.
	// Defaults to DefaultCollection if empty.
	Collection string

	// Logger receives warnings about unreadable store files.
	// Defaults to slog.Default() if nil.
	Logger *slog.Logger
}

// localFile is the on-disk layout of the local vector store.
type localFile struct {
	Collections map[string][]Record `json:"collections"`
}

// LocalStore implements VectorStore as a linear scan over a JSON file. The
// whole file is loaded for every operation and rewritten for every mutation,
// which is adequate for the handful of documents a single user uploads.
// A mutex serialises the read-modify-write cycle within one process; separate
// processes sharing the same file are not coordinated.
type LocalStore struct {
	// path is the JSON file location.
	path string

	// collection is the key under which records are stored.
	collection string

	// log receives warnings about corrupt files.
	log *slog.Logger

	// mu guards the file.
	mu sync.Mutex
}

// NewLocalStore creates the parent directory and an empty store file when
// none exists yet.
func NewLocalStore(cfg *LocalConfig) (*LocalStore, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("local store: %w: path must not be empty", ErrInvalidConfiguration)
	}
	s := &LocalStore{
		path:       cfg.Path,
		collection: cfg.Collection,
		log:        cfg.Logger,
	}
	if s.collection == "" {
		s.collection = DefaultCollection
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if err := s.save(&localFile{Collections: map[string][]Record{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *LocalStore) Path() string {
	return s.path
}

// load reads the store file. A missing or unparseable file is treated as an
// empty store; the next save overwrites it.
func (s *LocalStore) load() *localFile {
	empty := &localFile{Collections: map[string][]Record{}}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("local store: unreadable file, starting empty",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
		return empty
	}

	var f localFile
	if err := json.Unmarshal(raw, &f); err != nil {
		s.log.Warn("local store: corrupt file, starting empty",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return empty
	}
	if f.Collections == nil {
		f.Collections = map[string][]Record{}
	}
	return &f
}

// save writes the store to a temporary file in the same directory and
// renames it over the original.
func (s *LocalStore) save(f *localFile) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("local store: create data dir: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("local store: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("local store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("local store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("local store: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("local store: replace store file: %w", err)
	}
	return nil
}

// AddRecords appends records to the collection and rewrites the file.
func (s *LocalStore) AddRecords(_ context.Context, records []Record, documentID string) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	list := f.Collections[s.collection]
	for _, r := range records {
		if documentID != "" {
			r.Metadata.DocumentID = documentID
		}
		if r.Metadata.Source == "" {
			r.Metadata.Source = DefaultSource
		}
		list = append(list, r)
	}
	f.Collections[s.collection] = list

	return s.save(f)
}

// Query scores every candidate against vector and returns the k best.
// Records with equal scores keep their insertion order.
func (s *LocalStore) Query(_ context.Context, vector []float32, k int, documentID string) (*QueryResult, error) {
	result := &QueryResult{}
	if k <= 0 {
		return result, nil
	}

	s.mu.Lock()
	f := s.load()
	s.mu.Unlock()

	type scored struct {
		rec   Record
		score float64
	}

	candidates := make([]scored, 0, len(f.Collections[s.collection]))
	for _, r := range f.Collections[s.collection] {
		if documentID != "" && r.Metadata.DocumentID != documentID {
			continue
		}
		candidates = append(candidates, scored{rec: r, score: Cosine(vector, r.Vector)})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	for _, c := range candidates[:min(k, len(candidates))] {
		result.append(c.rec.ID, c.rec.Text, c.rec.Metadata, float32(c.score))
	}
	return result, nil
}

// Clear empties the collection, leaving other collections in the file intact.
func (s *LocalStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	f.Collections[s.collection] = []Record{}
	return s.save(f)
}

// Count returns the number of records in the collection.
func (s *LocalStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load().Collections[s.collection])
}

// Close is a no-op; the file is not held open between operations.
func (s *LocalStore) Close() error {
	return nil
}
