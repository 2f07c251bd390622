package recall

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantBackend is a remote VectorBackend for genomes large enough to
// outgrow an embedded index.
type QdrantBackend struct {
	client     *qdrant.Client
	collection string
}

// QdrantConfig configures a QdrantBackend.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// NewQdrantBackend dials a Qdrant instance.
func NewQdrantBackend(cfg QdrantConfig) (*QdrantBackend, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "sprout_memories"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("recall: dial qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &QdrantBackend{client: client, collection: cfg.Collection}, nil
}

func (b *QdrantBackend) Name() string { return "qdrant" }

func (b *QdrantBackend) Upsert(ctx context.Context, id string, embedding []float32, metadata map[string]any) error {
	exists, err := b.client.CollectionExists(ctx, b.collection)
	if err != nil {
		return fmt.Errorf("recall: qdrant collection exists: %w", err)
	}
	if !exists {
		err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: b.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(len(embedding)),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("recall: qdrant create collection: %w", err)
		}
	}

	payload := make(map[string]*qdrant.Value, len(metadata))
	for k, v := range metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			return fmt.Errorf("recall: qdrant payload value %s: %w", k, err)
		}
		payload[k] = val
	}

	_, err = b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: b.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("recall: qdrant upsert: %w", err)
	}
	return nil
}

func (b *QdrantBackend) Search(ctx context.Context, embedding []float32, topK int) ([]VectorMatch, error) {
	result, err := b.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: b.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
	})
	if err != nil {
		return nil, fmt.Errorf("recall: qdrant search: %w", err)
	}

	out := make([]VectorMatch, 0, len(result.Result))
	for _, p := range result.Result {
		out = append(out, VectorMatch{ID: p.Id.GetUuid(), Score: float64(p.Score)})
	}
	return out, nil
}
