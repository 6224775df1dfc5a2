package knowledge

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// MemoryStore keeps embeddings in memory and ranks by cosine similarity.
type MemoryStore struct {
	embedder Embedder

	mu   sync.RWMutex
	docs []memoryDoc
}

type memoryDoc struct {
	content   string
	embedding []float32
}

var (
	_ Searcher = (*MemoryStore)(nil)
	_ Indexer  = (*MemoryStore)(nil)
)

func NewMemoryStore(embedder Embedder) *MemoryStore {
	if embedder == nil {
		panic("knowledge: embedder cannot be nil")
	}
	return &MemoryStore{embedder: embedder}
}

func (s *MemoryStore) Add(ctx context.Context, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(texts) {
		return errors.New("knowledge: embedding response size mismatch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range vecs {
		s.docs = append(s.docs, memoryDoc{content: texts[i], embedding: v})
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	s.mu.RLock()
	empty := len(s.docs) == 0
	s.mu.RUnlock()
	if empty {
		return nil, nil
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	queryVec := vecs[0]

	type scored struct {
		score   float64
		content string
	}
	s.mu.RLock()
	results := make([]scored, 0, len(s.docs))
	for _, doc := range s.docs {
		results = append(results, scored{score: cosineSimilarity(queryVec, doc.embedding), content: doc.content})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > k {
		results = results[:k]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.content
	}
	return out, nil
}

// Len reports how many chunks are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
