package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Payload keys written next to every Qdrant point.
const (
	payloadRecordID   = "record_id"
	payloadContent    = "content"
	payloadSource     = "source"
	payloadDocumentID = "document_id"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	// Defaults to DefaultCollection if empty.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection. Zero means the size of the first written vector.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance. The
// collection is created on the first write.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig

	// mu guards ready.
	mu sync.Mutex

	// ready is true once the collection is known to exist.
	ready bool
}

// NewQdrantStore creates a client for the configured instance. It does not
// contact the server; use Ping to check reachability.
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantStore{client: client, cfg: cfg}, nil
}

// Ping performs a Qdrant health check.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return classify(ctx, "health check", err)
	}
	return nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return classify(ctx, "check collection existence", err)
	}
	if !exists {
		if s.cfg.VectorSize > 0 {
			size = s.cfg.VectorSize
		}
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     size,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return classify(ctx, fmt.Sprintf("create collection %q", s.cfg.Collection), err)
		}
	}

	s.ready = true
	return nil
}

// pointID maps an arbitrary record id onto the UUID space Qdrant accepts.
// The mapping is deterministic so re-adding a record overwrites its point.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

// AddRecords upserts records as points carrying their vector and payload.
func (s *QdrantStore) AddRecords(ctx context.Context, records []Record, documentID string) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, uint64(len(records[0].Vector))); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		docID := r.Metadata.DocumentID
		if documentID != "" {
			docID = documentID
		}
		source := r.Metadata.Source
		if source == "" {
			source = DefaultSource
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadRecordID:   r.ID,
				payloadContent:    r.Text,
				payloadSource:     source,
				payloadDocumentID: docID,
			}),
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return classify(ctx, "upsert", err)
	}

	return nil
}

// Query performs a cosine similarity search and returns the top-k results.
// A collection that does not exist yet yields an empty result.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int, documentID string) (*QueryResult, error) {
	result := &QueryResult{}
	if k <= 0 {
		return result, nil
	}

	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return nil, classify(ctx, "check collection existence", err)
	}
	if !exists {
		return result, nil
	}

	limit := uint64(k)
	req := &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if documentID != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadDocumentID, documentID),
			},
		}
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, classify(ctx, "query", err)
	}

	for _, p := range points {
		id := p.GetId().GetUuid()
		var text string
		var meta Metadata
		if payload := p.GetPayload(); payload != nil {
			if v, ok := payload[payloadRecordID]; ok {
				id = v.GetStringValue()
			}
			text = payload[payloadContent].GetStringValue()
			meta.Source = payload[payloadSource].GetStringValue()
			meta.DocumentID = payload[payloadDocumentID].GetStringValue()
		}
		result.append(id, text, meta, p.GetScore())
	}

	return result, nil
}

// Clear drops the collection. The next write recreates it.
func (s *QdrantStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return classify(ctx, "check collection existence", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.cfg.Collection); err != nil {
			return classify(ctx, fmt.Sprintf("delete collection %q", s.cfg.Collection), err)
		}
	}
	s.ready = false
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// classify wraps a Qdrant error, marking transport failures with
// ErrStoreUnavailable. A deadline hit because the caller's own context
// expired is not a transport failure.
func classify(ctx context.Context, op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable:
		return fmt.Errorf("qdrant: %s: %w: %w", op, ErrStoreUnavailable, err)
	case codes.DeadlineExceeded:
		if ctx.Err() == nil {
			return fmt.Errorf("qdrant: %s: %w: %w", op, ErrStoreUnavailable, err)
		}
	}
	return fmt.Errorf("qdrant: %s failed: %w", op, err)
}
