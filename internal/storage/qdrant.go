package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

const (
	// DefaultGRPCPort is Qdrant's gRPC port.
	DefaultGRPCPort = 6334

	// restPort is Qdrant's HTTP port; URLs naming it are redirected to gRPC.
	restPort = 6333
)

// QdrantIndex implements Index on a Qdrant server over gRPC.
type QdrantIndex struct {
	client    *qdrant.Client
	host      string
	port      int
	batchSize int
	logger    *slog.Logger

	dims *dimCache
}

// QdrantOption configures a QdrantIndex.
type QdrantOption func(*QdrantIndex)

// WithUpsertBatchSize sets the number of points written per request.
func WithUpsertBatchSize(n int) QdrantOption {
	return func(q *QdrantIndex) {
		if n > 0 {
			q.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) QdrantOption {
	return func(q *QdrantIndex) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// ParseURL splits a Qdrant URL into gRPC host, port and TLS flag.
// A URL without a port uses DefaultGRPCPort; the REST port 6333 is mapped to it.
func ParseURL(raw string) (host string, port int, useTLS bool, err error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("parse qdrant url: %w", err)
	}

	host = u.Hostname()
	if host == "" {
		return "", 0, false, fmt.Errorf("parse qdrant url: missing host in %q", raw)
	}

	port = DefaultGRPCPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("parse qdrant url: invalid port %q", p)
		}
		if port == restPort {
			port = DefaultGRPCPort
		}
	}
	return host, port, u.Scheme == "https", nil
}

// NewQdrantIndex connects to Qdrant at rawURL and waits until it answers health checks.
// It fails with ErrIndexUnavailable if the server stays unreachable.
func NewQdrantIndex(ctx context.Context, rawURL, apiKey string, opts ...QdrantOption) (*QdrantIndex, error) {
	host, port, useTLS, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	q := &QdrantIndex{
		client:    client,
		host:      host,
		port:      port,
		batchSize: DefaultUpsertBatchSize,
		logger:    slog.Default(),
	}
	q.dims = newDimCache(func(ctx context.Context, collection string) (int, error) {
		info, err := q.Info(ctx, collection)
		if err != nil {
			return 0, err
		}
		return info.Dimension, nil
	})
	for _, opt := range opts {
		opt(q)
	}

	if err := q.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s:%d: %v", ErrIndexUnavailable, host, port, err)
	}
	return q, nil
}

// newBackOff returns the retry policy shared by health checks and upserts:
// initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

func (q *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	return backoff.RetryNotify(func() error {
		return q.Health(ctx)
	}, newBackOff(ctx), func(err error, wait time.Duration) {
		q.logger.Warn("qdrant not ready, retrying", "error", err, "wait", wait)
	})
}

// Health performs a single health check.
func (q *QdrantIndex) Health(ctx context.Context) error {
	result, err := q.client.HealthCheck(ctx)
	if err != nil {
		return classify("health check", err)
	}
	if result == nil || result.GetTitle() == "" {
		return fmt.Errorf("%w: health check returned invalid response", ErrIndexUnavailable)
	}
	return nil
}

// EnsureCollection creates the collection with a cosine "content" vector and
// payload indexes on source_id and page. An existing collection is kept unless
// recreate is set, but must have the requested dimension.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, name string, dimension int, recreate bool) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}

	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return classify("check collection", err)
	}

	if exists && recreate {
		q.logger.Info("dropping collection", "collection", name)
		if err := q.client.DeleteCollection(ctx, name); err != nil {
			return classify("delete collection", err)
		}
		q.dims.forget(name)
		exists = false
	}

	if exists {
		info, err := q.Info(ctx, name)
		if err != nil {
			return err
		}
		if info.Dimension != dimension {
			return fmt.Errorf("%w: collection %q has %d dimensions, expected %d",
				ErrDimensionMismatch, name, info.Dimension, dimension)
		}
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			VectorName: {
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return classify("create collection", err)
	}
	if err := q.createPayloadIndexes(ctx, name); err != nil {
		return err
	}

	q.dims.remember(name, dimension)
	q.logger.Info("collection created", "collection", name, "dimension", dimension)
	return nil
}

// createPayloadIndexes indexes the fields citations are built from.
func (q *QdrantIndex) createPayloadIndexes(ctx context.Context, name string) error {
	fields := map[string]qdrant.FieldType{
		fieldSourceID: qdrant.FieldType_FieldTypeKeyword,
		fieldPage:     qdrant.FieldType_FieldTypeInteger,
	}
	for field, fieldType := range fields {
		_, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
		})
		if err != nil {
			return classify("create index for field "+field, err)
		}
	}
	return nil
}

// Upsert writes records in batches with wait=true so that committed records are
// immediately visible to Count and Query. Transport errors are retried per batch.
func (q *QdrantIndex) Upsert(ctx context.Context, collection string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	dim := len(records[0].Vector)
	for i, r := range records {
		if len(r.Vector) != dim {
			return 0, fmt.Errorf("%w: record %d has %d dimensions, record 0 has %d",
				ErrDimensionMismatch, i, len(r.Vector), dim)
		}
	}
	if err := q.dims.check(ctx, collection, dim, "record"); err != nil {
		return 0, err
	}

	committed := 0
	for i := 0; i < len(records); i += q.batchSize {
		end := min(i+q.batchSize, len(records))
		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, r := range records[i:end] {
			points = append(points, toPoint(r))
		}

		if err := q.upsertWithRetry(ctx, collection, points); err != nil {
			return committed, fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
		committed = end
	}
	return committed, nil
}

func (q *QdrantIndex) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(operation, newBackOff(ctx)); err != nil {
		return classify("upsert", err)
	}
	return nil
}

func toPoint(r Record) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(r.ID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			VectorName: qdrant.NewVector(r.Vector...),
		}),
		Payload: qdrant.NewValueMap(map[string]any{
			fieldText:       r.Text,
			fieldSourceID:   r.Metadata.SourceID,
			fieldPage:       r.Metadata.Page,
			fieldStartIndex: r.Metadata.StartIndex,
			fieldSeq:        r.Seq,
		}),
	}
}

// Query performs a cosine similarity search on the "content" vector.
func (q *QdrantIndex) Query(ctx context.Context, collection string, vector []float32, k int) ([]RetrievedChunk, error) {
	if k <= 0 {
		return []RetrievedChunk{}, nil
	}

	if err := q.dims.check(ctx, collection, len(vector), "query"); err != nil {
		return nil, err
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          qdrant.PtrOf(VectorName),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		err = classify("query", err)
		if errors.Is(err, ErrCollectionNotFound) {
			q.dims.forget(collection)
		}
		return nil, err
	}

	results := make([]RetrievedChunk, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		results = append(results, RetrievedChunk{
			Record: Record{
				ID:   p.GetId().GetUuid(),
				Text: payload[fieldText].GetStringValue(),
				Metadata: Metadata{
					SourceID:   payload[fieldSourceID].GetStringValue(),
					Page:       int(payload[fieldPage].GetIntegerValue()),
					StartIndex: int(payload[fieldStartIndex].GetIntegerValue()),
				},
				Seq: int(payload[fieldSeq].GetIntegerValue()),
			},
			Score: float64(p.GetScore()),
		})
	}
	rank(results)
	return results, nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context, collection string) (uint64, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, classify("count", err)
	}
	return n, nil
}

// Info returns the collection's vector size and approximate point count.
func (q *QdrantIndex) Info(ctx context.Context, collection string) (*CollectionInfo, error) {
	info, err := q.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, classify("get collection", err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParamsMap().GetMap()[VectorName]
	if params == nil {
		return nil, fmt.Errorf("%w: collection %q has no %q vector",
			ErrDimensionMismatch, collection, VectorName)
	}

	dim := int(params.GetSize())
	q.dims.remember(collection, dim)
	return &CollectionInfo{
		Name:        collection,
		Dimension:   dim,
		PointsCount: info.GetPointsCount(),
	}, nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

var _ Index = (*QdrantIndex)(nil)
