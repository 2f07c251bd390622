// Package recall implements keyword-rank retrieval of memories and routing
// hints for inclusion in an agent's system prompt, with an optional
// vector-backed semantic blend layered on top of the required algorithm.
package recall

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
)

// DefaultTopK is the number of memories returned when K is unspecified.
const DefaultTopK = 5

// Result is what a Recall call returns for inclusion in a system prompt.
type Result struct {
	Agents       []string
	Memories     []genome.Memory
	RoutingHints []genome.RoutingRule
}

// VectorBackend is the optional semantic-similarity collaborator. When one
// is configured, Recall blends its score with the required keyword score;
// with none configured, Recall is exactly the keyword-rank algorithm.
type VectorBackend interface {
	Name() string
	// Upsert indexes or reindexes the embedding for a memory id.
	Upsert(ctx context.Context, id string, embedding []float32, metadata map[string]any) error
	// Search returns, for the query embedding, up to topK (id, score) pairs
	// with higher score meaning more similar.
	Search(ctx context.Context, embedding []float32, topK int) ([]VectorMatch, error)
}

// VectorMatch is one semantic search hit.
type VectorMatch struct {
	ID    string
	Score float64
}

// Embedder turns text into an embedding vector for VectorBackend use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Recall ranks a Genome's memories and rules against a goal string.
type Recall struct {
	store *genome.Store

	vector   VectorBackend
	embedder Embedder
}

// New creates a Recall bound to store, with keyword-only ranking.
func New(store *genome.Store) *Recall {
	return &Recall{store: store}
}

// WithVectorBackend returns a copy of r that additionally blends semantic
// similarity from backend/embedder into its ranking.
func (r *Recall) WithVectorBackend(backend VectorBackend, embedder Embedder) *Recall {
	clone := *r
	clone.vector = backend
	clone.embedder = embedder
	return &clone
}

// tokenize lower-cases and whitespace-splits a goal string.
func tokenize(goal string) []string {
	return strings.Fields(strings.ToLower(goal))
}

// keywordScore counts token occurrences in a memory's content or tags, as
// whole words tokenized the same way as the goal, multiplied by its
// effective confidence.
func keywordScore(tokens []string, m genome.Memory, now time.Time) float64 {
	words := tokenize(m.Content + " " + strings.Join(m.Tags, " "))
	count := 0
	for _, tok := range tokens {
		for _, w := range words {
			if w == tok {
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return float64(count) * m.EffectiveConfidence(now)
}

// Recall returns the top-K ranked memories and routing hints for goal. When
// no vector backend is configured this is exactly the required
// keyword-rank algorithm; otherwise keyword and semantic scores are
// min-max normalized over the candidate set and blended 0.6/0.4.
func (r *Recall) Recall(ctx context.Context, goal string, topK int) (Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	now := time.Now()
	tokens := tokenize(goal)
	mems := r.store.Memories()

	type scored struct {
		mem genome.Memory
		kw  float64
		vec float64
	}
	candidates := make([]scored, 0, len(mems))
	for _, m := range mems {
		candidates = append(candidates, scored{mem: m, kw: keywordScore(tokens, m, now)})
	}

	if r.vector != nil && r.embedder != nil {
		if embedding, err := r.embedder.Embed(ctx, goal); err == nil {
			matches, err := r.vector.Search(ctx, embedding, len(candidates))
			if err == nil {
				byID := make(map[string]float64, len(matches))
				for _, m := range matches {
					byID[m.ID] = m.Score
				}
				for i := range candidates {
					candidates[i].vec = byID[candidates[i].mem.ID]
				}
			}
		}
	}

	hasVector := r.vector != nil && r.embedder != nil
	var final []scored
	if hasVector {
		kwMax, vecMax := maxOf(candidates, func(s scored) float64 { return s.kw }), maxOf(candidates, func(s scored) float64 { return s.vec })
		for _, c := range candidates {
			blended := 0.6*normalize(c.kw, kwMax) + 0.4*normalize(c.vec, vecMax)
			c.kw = blended
			final = append(final, c)
		}
	} else {
		final = candidates
	}

	sort.SliceStable(final, func(i, j int) bool { return final[i].kw > final[j].kw })

	var usedIDs []string
	out := make([]genome.Memory, 0, topK)
	for i := 0; i < len(final) && i < topK; i++ {
		if final[i].kw <= 0 {
			break
		}
		out = append(out, final[i].mem)
		usedIDs = append(usedIDs, final[i].mem.ID)
	}

	if len(usedIDs) > 0 {
		_ = r.store.MarkMemoriesUsed(usedIDs)
	}

	agentNames := make([]string, 0, len(r.store.ListAgents()))
	for _, a := range r.store.ListAgents() {
		agentNames = append(agentNames, a.Name)
	}

	return Result{
		Agents:       agentNames,
		Memories:     out,
		RoutingHints: r.store.MatchRoutingRules(goal),
	}, nil
}

func maxOf[T any](items []T, f func(T) float64) float64 {
	max := 0.0
	for _, it := range items {
		if v := f(it); v > max {
			max = v
		}
	}
	return max
}

func normalize(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return math.Max(0, v/max)
}
