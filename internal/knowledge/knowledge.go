// Package knowledge retrieves passages from the vector index that backs
// generated answers, and fills that index from source documents.
package knowledge

import (
	"context"
	"fmt"
	"strings"
)

// DefaultTopK is the number of passages fetched per query.
const DefaultTopK = 3

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher returns the top-k passage texts for a query, best first.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Indexer stores chunk texts in the index.
type Indexer interface {
	Add(ctx context.Context, texts []string) error
}

// Retriever is the read-only boundary used by the chat router.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (string, bool, error)
}

// SearchRetriever joins the passages returned by a Searcher.
type SearchRetriever struct {
	searcher Searcher
}

var _ Retriever = (*SearchRetriever)(nil)

func NewRetriever(searcher Searcher) *SearchRetriever {
	if searcher == nil {
		panic("knowledge: searcher cannot be nil")
	}
	return &SearchRetriever{searcher: searcher}
}

// Retrieve joins the top-k passages with newlines. ok is false when nothing
// came back or every passage is blank.
func (r *SearchRetriever) Retrieve(ctx context.Context, query string, k int) (string, bool, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	passages, err := r.searcher.Search(ctx, query, k)
	if err != nil {
		return "", false, fmt.Errorf("knowledge: search: %w", err)
	}
	if len(passages) > k {
		passages = passages[:k]
	}
	blank := true
	for _, p := range passages {
		if strings.TrimSpace(p) != "" {
			blank = false
			break
		}
	}
	if blank {
		return "", false, nil
	}
	return strings.Join(passages, "\n"), true, nil
}
