package index

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/qdrant/go-client/qdrant"
)

// Payload keys stored on every Qdrant point.
const (
	payloadPosition = "position"
	payloadContent  = "content"
	payloadModel    = "model"
)

// upsertBatch is the number of points sent per Upsert call.
const upsertBatch = 256

// QdrantConfig holds connection parameters for a Qdrant instance that stores
// one collection per role.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string
	// Port is the Qdrant gRPC port (default: 6334).
	Port int
	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string
	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
	// CollectionPrefix is prepended to the role to form the collection name
	// (default: "rolerag_").
	CollectionPrefix string
}

// NewQdrantClient applies defaults to cfg and dials Qdrant.
func NewQdrantClient(cfg *QdrantConfig) (*qdrant.Client, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = "rolerag_"
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
	return client, nil
}

// QdrantLoader loads role partitions from Qdrant collections named
// {prefix}{role}. Document text is read once into the Handle; searches are
// delegated to Qdrant.
type QdrantLoader struct {
	// client is the shared Qdrant gRPC client.
	client *qdrant.Client
	// prefix is the collection name prefix.
	prefix string
	// model is the running embedder's model tag.
	model string
}

// NewQdrantLoader returns a loader over client using cfg.CollectionPrefix.
func NewQdrantLoader(client *qdrant.Client, cfg *QdrantConfig, model string) *QdrantLoader {
	return &QdrantLoader{client: client, prefix: cfg.CollectionPrefix, model: model}
}

// Load reads every point of the role's collection and rebuilds the
// positional document list from the payload.
func (l *QdrantLoader) Load(ctx context.Context, role string) (*Handle, error) {
	if err := ValidateRole(role); err != nil {
		return nil, err
	}
	name := l.prefix + role

	exists, err := l.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: qdrant collection %q", ErrPartitionNotFound, name)
	}

	info, err := l.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("qdrant: collection info %q: %w", name, err)
	}
	dim := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())

	count, err := l.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: count %q: %w", name, err)
	}

	docs := make([]string, count)
	var tag string
	if count > 0 {
		points, err := l.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Limit:          qdrant.PtrOf(uint32(count)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: scroll %q: %w", name, err)
		}
		if uint64(len(points)) != count {
			return nil, fmt.Errorf("%w: collection %q counted %d points, scrolled %d", ErrIndexCorrupt, name, count, len(points))
		}

		seen := make([]bool, count)
		for _, p := range points {
			pos := payloadPos(p.GetPayload())
			if pos < 0 || uint64(pos) >= count || seen[pos] {
				return nil, fmt.Errorf("%w: collection %q has bad or duplicate position %d", ErrIndexCorrupt, name, pos)
			}
			seen[pos] = true
			docs[pos] = p.GetPayload()[payloadContent].GetStringValue()

			m := p.GetPayload()[payloadModel].GetStringValue()
			if tag == "" {
				tag = m
			} else if m != tag {
				return nil, fmt.Errorf("%w: collection %q mixes models %q and %q", ErrIndexCorrupt, name, tag, m)
			}
		}
	}

	if err := checkModel(role, tag, l.model); err != nil {
		return nil, err
	}

	return &Handle{
		Role:      role,
		Model:     tag,
		Index:     &qdrantIndex{client: l.client, collection: name, size: len(docs), dim: dim},
		Documents: docs,
	}, nil
}

// Ping calls the Qdrant HealthCheck RPC.
func (l *QdrantLoader) Ping(ctx context.Context) error {
	if _, err := l.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Name returns the readiness label.
func (l *QdrantLoader) Name() string { return "qdrant" }

// qdrantIndex implements Searcher against a single Qdrant collection.
type qdrantIndex struct {
	// client is the shared Qdrant gRPC client.
	client *qdrant.Client
	// collection is the role's collection name.
	collection string
	// size is the point count observed at load time.
	size int
	// dim is the collection's vector size.
	dim int
}

// Search runs a Euclidean nearest-neighbour query. Qdrant reports plain
// Euclidean distance; it is squared here to match FlatIndex.
func (q *qdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 || q.size == 0 {
		return nil, nil
	}
	limit := uint64(k)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayloadInclude(payloadPosition),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Position: int(payloadPos(r.GetPayload())),
			Distance: r.GetScore() * r.GetScore(),
		})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	return hits, nil
}

// Len returns the point count observed at load time.
func (q *qdrantIndex) Len() int { return q.size }

// payloadPos returns the document position stored in a point payload, or -1
// when the key is absent or not an integer.
func payloadPos(payload map[string]*qdrant.Value) int64 {
	v, ok := payload[payloadPosition]
	if !ok {
		return -1
	}
	n, ok := v.GetKind().(*qdrant.Value_IntegerValue)
	if !ok {
		return -1
	}
	return n.IntegerValue
}

// Dim returns the collection's vector size.
func (q *qdrantIndex) Dim() int { return q.dim }

// QdrantWriter publishes partitions into Qdrant for QdrantLoader to read.
type QdrantWriter struct {
	// client is the Qdrant gRPC client.
	client *qdrant.Client
	// prefix is the collection name prefix.
	prefix string
}

// NewQdrantWriter returns a writer over client using cfg.CollectionPrefix.
func NewQdrantWriter(client *qdrant.Client, cfg *QdrantConfig) *QdrantWriter {
	return &QdrantWriter{client: client, prefix: cfg.CollectionPrefix}
}

// WritePartition replaces the role's collection with docs and vectors.
// vectors[i] must be the embedding of docs[i]; point IDs equal positions.
func (w *QdrantWriter) WritePartition(ctx context.Context, role, model string, docs []string, vectors [][]float32) error {
	if err := ValidateRole(role); err != nil {
		return err
	}
	if len(docs) != len(vectors) {
		return fmt.Errorf("index: %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(vectors) == 0 {
		return fmt.Errorf("qdrant: refusing to publish empty partition %q", role)
	}
	name := w.prefix + role

	exists, err := w.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		if err := w.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("qdrant: failed to drop collection %q: %w", name, err)
		}
	}

	err = w.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(len(vectors[0])),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
	}

	for start := 0; start < len(docs); start += upsertBatch {
		end := min(start+upsertBatch, len(docs))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(i)),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					payloadPosition: int64(i),
					payloadContent:  docs[i],
					payloadModel:    model,
				}),
			})
		}
		if _, err := w.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		}); err != nil {
			return fmt.Errorf("qdrant: upsert failed: %w", err)
		}
	}
	return nil
}
