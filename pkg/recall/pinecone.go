package recall

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

// PineconeBackend is a managed-cloud VectorBackend.
type PineconeBackend struct {
	client    *pinecone.Client
	indexName string
}

// PineconeConfig configures a PineconeBackend.
type PineconeConfig struct {
	APIKey    string
	Host      string
	IndexName string
}

// NewPineconeBackend authenticates against the Pinecone API.
func NewPineconeBackend(cfg PineconeConfig) (*PineconeBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("recall: pinecone api key is required")
	}

	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}

	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("recall: create pinecone client: %w", err)
	}

	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "sprout-memories"
	}

	return &PineconeBackend{client: client, indexName: indexName}, nil
}

func (b *PineconeBackend) Name() string { return "pinecone" }

func (b *PineconeBackend) index(ctx context.Context) (*pinecone.IndexConnection, error) {
	idx, err := b.client.DescribeIndex(ctx, b.indexName)
	if err != nil {
		return nil, fmt.Errorf("recall: describe pinecone index %s: %w", b.indexName, err)
	}
	return b.client.Index(pinecone.NewIndexConnParams{Host: idx.Host})
}

func (b *PineconeBackend) Upsert(ctx context.Context, id string, embedding []float32, metadata map[string]any) error {
	conn, err := b.index(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.UpsertVectors(ctx, []*pinecone.Vector{{Id: id, Values: embedding}})
	if err != nil {
		return fmt.Errorf("recall: pinecone upsert: %w", err)
	}
	return nil
}

func (b *PineconeBackend) Search(ctx context.Context, embedding []float32, topK int) ([]VectorMatch, error) {
	conn, err := b.index(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector: embedding,
		TopK:   uint32(topK),
	})
	if err != nil {
		return nil, fmt.Errorf("recall: pinecone query: %w", err)
	}

	out := make([]VectorMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		out = append(out, VectorMatch{ID: m.Vector.Id, Score: float64(m.Score)})
	}
	return out, nil
}
