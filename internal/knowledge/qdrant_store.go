package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/wolfman30/supportchat/pkg/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// payloadText is the payload field holding the chunk text.
const payloadText = "text"

type pointsAPI interface {
	Search(ctx context.Context, in *qdrant.SearchPoints, opts ...grpc.CallOption) (*qdrant.SearchResponse, error)
	Upsert(ctx context.Context, in *qdrant.UpsertPoints, opts ...grpc.CallOption) (*qdrant.PointsOperationResponse, error)
}

type collectionsAPI interface {
	List(ctx context.Context, in *qdrant.ListCollectionsRequest, opts ...grpc.CallOption) (*qdrant.ListCollectionsResponse, error)
	Create(ctx context.Context, in *qdrant.CreateCollection, opts ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error)
}

// QdrantStore searches and fills a Qdrant collection over gRPC.
type QdrantStore struct {
	points      pointsAPI
	collections collectionsAPI
	collection  string
	embedder    Embedder
	conn        *grpc.ClientConn
	logger      *logging.Logger
}

var (
	_ Searcher = (*QdrantStore)(nil)
	_ Indexer  = (*QdrantStore)(nil)
)

// DialQdrant connects to a Qdrant gRPC endpoint (default port 6334).
func DialQdrant(host string, port int, collection string, embedder Embedder, logger *logging.Logger) (*QdrantStore, error) {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 6334
	}
	conn, err := grpc.NewClient(fmt.Sprintf("%s:%d", host, port), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("knowledge: connect qdrant: %w", err)
	}
	store := NewQdrantStore(qdrant.NewPointsClient(conn), qdrant.NewCollectionsClient(conn), collection, embedder, logger)
	store.conn = conn
	return store, nil
}

func NewQdrantStore(points pointsAPI, collections collectionsAPI, collection string, embedder Embedder, logger *logging.Logger) *QdrantStore {
	if points == nil || collections == nil {
		panic("knowledge: qdrant clients cannot be nil")
	}
	if embedder == nil {
		panic("knowledge: embedder cannot be nil")
	}
	if collection == "" {
		collection = "support_knowledge"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &QdrantStore{
		points:      points,
		collections: collections,
		collection:  collection,
		embedder:    embedder,
		logger:      logger,
	}
}

func (s *QdrantStore) Search(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}

	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vecs[0],
		Limit:          uint64(k),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: qdrant search: %w", err)
	}

	out := make([]string, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		out = append(out, hit.GetPayload()[payloadText].GetStringValue())
	}
	return out, nil
}

// Add embeds texts and upserts them as new points, creating the collection
// on first use.
func (s *QdrantStore) Add(ctx context.Context, texts []string) error {
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
	if err := s.ensureCollection(ctx, len(vecs[0])); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(texts))
	for i, text := range texts {
		points[i] = &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: uuid.NewString()},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: vecs[i]}},
			},
			Payload: map[string]*qdrant.Value{
				payloadText: {Kind: &qdrant.Value_StringValue{StringValue: text}},
			},
		}
	}
	if _, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("knowledge: qdrant upsert: %w", err)
	}
	return nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, size int) error {
	list, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("knowledge: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(size),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("knowledge: create collection: %w", err)
	}
	s.logger.Info("knowledge: created qdrant collection", "collection", s.collection, "size", size)
	return nil
}

// Close releases the gRPC connection when the store dialed it.
func (s *QdrantStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
