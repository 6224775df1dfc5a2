package knowledge

import (
	"context"
	"fmt"

	"github.com/wolfman30/supportchat/pkg/logging"
)

// Ingestor splits documents and writes the chunks to an index in batches.
type Ingestor struct {
	index     Indexer
	splitter  Splitter
	batchSize int
	logger    *logging.Logger
}

func NewIngestor(index Indexer, splitter Splitter, logger *logging.Logger) *Ingestor {
	if index == nil {
		panic("knowledge: indexer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ingestor{index: index, splitter: splitter, batchSize: 64, logger: logger}
}

// Ingest returns the number of chunks written.
func (i *Ingestor) Ingest(ctx context.Context, docs []Document) (int, error) {
	var chunks []string
	for _, doc := range docs {
		chunks = append(chunks, doc.Chunks...)
		if doc.Text != "" {
			chunks = append(chunks, i.splitter.Split(doc.Text)...)
		}
	}
	i.logger.Info("knowledge: ingesting", "documents", len(docs), "chunks", len(chunks))

	for start := 0; start < len(chunks); start += i.batchSize {
		end := start + i.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := i.index.Add(ctx, chunks[start:end]); err != nil {
			return start, fmt.Errorf("knowledge: index batch at %d: %w", start, err)
		}
	}
	return len(chunks), nil
}

// IngestSources loads every source and ingests the combined documents.
func (i *Ingestor) IngestSources(ctx context.Context, sources ...Source) (int, error) {
	var docs []Document
	for _, src := range sources {
		loaded, err := src.Load(ctx)
		if err != nil {
			return 0, err
		}
		docs = append(docs, loaded...)
	}
	return i.Ingest(ctx, docs)
}
