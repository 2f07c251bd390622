package recall

import (
	"context"
	"fmt"
	"os"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemBackend is an embedded, zero-dependency VectorBackend for
// single-process genomes. It optionally persists to disk.
type ChromemBackend struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
}

// ChromemConfig configures a ChromemBackend.
type ChromemConfig struct {
	// PersistPath, if set, stores vectors on disk across restarts.
	PersistPath string
	Collection  string
}

// NewChromemBackend opens (or creates) a local chromem-go vector index.
func NewChromemBackend(cfg ChromemConfig) (*ChromemBackend, error) {
	collection := cfg.Collection
	if collection == "" {
		collection = "sprout_memories"
	}

	var db *chromem.DB
	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("recall: create chromem persist dir: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("recall: open chromem db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are precomputed by an Embedder and passed straight through.
	identity := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("recall: chromem backend expects precomputed vectors")
	}

	col, err := db.GetOrCreateCollection(collection, nil, identity)
	if err != nil {
		return nil, fmt.Errorf("recall: get chromem collection: %w", err)
	}

	return &ChromemBackend{db: db, collection: col}, nil
}

func (b *ChromemBackend) Name() string { return "chromem" }

func (b *ChromemBackend) Upsert(ctx context.Context, id string, embedding []float32, metadata map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = fmt.Sprintf("%v", v)
	}

	return b.collection.AddDocument(ctx, chromem.Document{
		ID:        id,
		Embedding: embedding,
		Metadata:  meta,
	})
}

func (b *ChromemBackend) Search(ctx context.Context, embedding []float32, topK int) ([]VectorMatch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if topK <= 0 {
		topK = DefaultTopK
	}
	if n := b.collection.Count(); n < topK {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := b.collection.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("recall: chromem query: %w", err)
	}

	out := make([]VectorMatch, 0, len(results))
	for _, r := range results {
		out = append(out, VectorMatch{ID: r.ID, Score: float64(r.Similarity)})
	}
	return out, nil
}
