package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	qdrant "github.com/qdrant/go-client/qdrant"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

type stubSearcher struct {
	results []string
	err     error
	gotK    int
}

func (s *stubSearcher) Search(_ context.Context, _ string, k int) ([]string, error) {
	s.gotK = k
	return s.results, s.err
}

func TestRetrieve(t *testing.T) {
	tests := []struct {
		name    string
		results []string
		want    string
		ok      bool
	}{
		{"joins passages", []string{"alpha", "beta", "gamma"}, "alpha\nbeta\ngamma", true},
		{"no results", nil, "", false},
		{"all blank", []string{"  ", "\n"}, "", false},
		{"keeps blank among real", []string{"alpha", " "}, "alpha\n ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubSearcher{results: tt.results}
			got, ok, err := NewRetriever(s).Retrieve(context.Background(), "q", 3)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetrieve_DefaultKAndErrors(t *testing.T) {
	s := &stubSearcher{err: errors.New("index down")}
	_, ok, err := NewRetriever(s).Retrieve(context.Background(), "q", 0)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, DefaultTopK, s.gotK)
}

// keywordEmbedder maps texts onto a fixed keyword axis so similarity is predictable.
type keywordEmbedder struct {
	calls int
	err   error
}

var axis = []string{"branding", "pricing", "hosting"}

func (k *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	k.calls++
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(axis))
		for j, word := range axis {
			vec[j] = float32(strings.Count(strings.ToLower(text), word))
		}
		out[i] = vec
	}
	return out, nil
}

func TestMemoryStore_SearchRanksByCosine(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(&keywordEmbedder{})

	empty, err := store.Search(ctx, "branding", 3)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Add(ctx, []string{
		"We host sites. hosting hosting",
		"Branding packages and branding strategy",
		"Pricing depends on scope; pricing is flexible",
	}))
	assert.Equal(t, 3, store.Len())

	got, err := store.Search(ctx, "tell me about branding", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Branding packages and branding strategy", got[0])
}

func TestMemoryStore_EmbedError(t *testing.T) {
	store := NewMemoryStore(&keywordEmbedder{err: errors.New("boom")})
	assert.Error(t, store.Add(context.Background(), []string{"x"}))
}

type fakeEmbeddingClient struct {
	req openai.EmbeddingRequest
	err error
}

func (f *fakeEmbeddingClient) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.req = conv.Convert()
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	inputs := f.req.Input.([]string)
	resp := openai.EmbeddingResponse{}
	// Return out of order to exercise index mapping.
	for i := len(inputs) - 1; i >= 0; i-- {
		resp.Data = append(resp.Data, openai.Embedding{Index: i, Embedding: []float32{float32(i)}})
	}
	return resp, nil
}

func TestOpenAIEmbedder(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e := NewOpenAIEmbedder(client, "")
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0}, {1}}, vecs)
	assert.Equal(t, openai.EmbeddingModel("nomic-embed-text"), client.req.Model)

	client.err = errors.New("unreachable")
	_, err = e.Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "unreachable")
}

type fakeBedrock struct {
	body []byte
	in   *bedrockruntime.InvokeModelInput
}

func (f *fakeBedrock) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.in = in
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockEmbedder(t *testing.T) {
	api := &fakeBedrock{body: []byte(`{"embedding":[0.5,1.5]}`)}
	vecs, err := NewBedrockEmbedder(api, "amazon.titan-embed-text-v2:0").Embed(context.Background(), []string{"hi"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 1.5}}, vecs)
	assert.Equal(t, "amazon.titan-embed-text-v2:0", aws.ToString(api.in.ModelId))

	_, err = NewBedrockEmbedder(api, "").Embed(context.Background(), []string{"hi"})
	assert.Error(t, err)

	api.body = []byte(`{"embedding":[]}`)
	_, err = NewBedrockEmbedder(api, "m").Embed(context.Background(), []string{"hi"})
	assert.Error(t, err)
}

type fakePoints struct {
	search   *qdrant.SearchPoints
	upserted *qdrant.UpsertPoints
	hits     []*qdrant.ScoredPoint
}

func (f *fakePoints) Search(_ context.Context, in *qdrant.SearchPoints, _ ...grpc.CallOption) (*qdrant.SearchResponse, error) {
	f.search = in
	return &qdrant.SearchResponse{Result: f.hits}, nil
}

func (f *fakePoints) Upsert(_ context.Context, in *qdrant.UpsertPoints, _ ...grpc.CallOption) (*qdrant.PointsOperationResponse, error) {
	f.upserted = in
	return &qdrant.PointsOperationResponse{}, nil
}

type fakeCollections struct {
	existing []string
	created  *qdrant.CreateCollection
}

func (f *fakeCollections) List(context.Context, *qdrant.ListCollectionsRequest, ...grpc.CallOption) (*qdrant.ListCollectionsResponse, error) {
	resp := &qdrant.ListCollectionsResponse{}
	for _, name := range f.existing {
		resp.Collections = append(resp.Collections, &qdrant.CollectionDescription{Name: name})
	}
	return resp, nil
}

func (f *fakeCollections) Create(_ context.Context, in *qdrant.CreateCollection, _ ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error) {
	f.created = in
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}

func textPoint(text string) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{Payload: map[string]*qdrant.Value{
		payloadText: {Kind: &qdrant.Value_StringValue{StringValue: text}},
	}}
}

func TestQdrantStore_Search(t *testing.T) {
	points := &fakePoints{hits: []*qdrant.ScoredPoint{textPoint("first"), textPoint("second"), {}}}
	store := NewQdrantStore(points, &fakeCollections{}, "kb", &keywordEmbedder{}, nil)

	got, err := store.Search(context.Background(), "pricing", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", ""}, got)
	assert.Equal(t, "kb", points.search.CollectionName)
	assert.Equal(t, uint64(3), points.search.Limit)
	assert.Equal(t, []float32{0, 1, 0}, points.search.Vector)
}

func TestQdrantStore_AddCreatesCollectionOnce(t *testing.T) {
	points := &fakePoints{}
	collections := &fakeCollections{}
	store := NewQdrantStore(points, collections, "kb", &keywordEmbedder{}, nil)

	require.NoError(t, store.Add(context.Background(), []string{"branding", "hosting"}))
	require.NotNil(t, collections.created)
	assert.Equal(t, uint64(len(axis)), collections.created.GetVectorsConfig().GetParams().GetSize())
	require.Len(t, points.upserted.Points, 2)
	assert.Equal(t, "hosting", points.upserted.Points[1].Payload[payloadText].GetStringValue())

	collections.created = nil
	collections.existing = []string{"kb"}
	require.NoError(t, store.Add(context.Background(), []string{"pricing"}))
	assert.Nil(t, collections.created)
}

func words(from, to int) []string {
	var out []string
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("w%03d", i))
	}
	return out
}

func TestSplitter_WordsWithOverlap(t *testing.T) {
	chunks := SplitText(strings.Join(words(0, 200), " "))
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Join(words(0, 100), " "), chunks[0])
	assert.Equal(t, strings.Join(words(90, 190), " "), chunks[1])
	assert.Equal(t, strings.Join(words(180, 200), " "), chunks[2])
}

func TestSplitter_Paragraphs(t *testing.T) {
	para := strings.Repeat("a", 300)
	chunks := SplitText(para + "\n\n" + para + "\n\n" + para)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, para, c)
	}
}

func TestSplitter_UnbrokenRun(t *testing.T) {
	chunks := SplitText(strings.Repeat("x", 1200))
	require.Len(t, chunks, 3)
	assert.Equal(t, 500, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 500, utf8.RuneCountInString(chunks[1]))
	assert.Equal(t, 300, utf8.RuneCountInString(chunks[2]))
}

func TestSplitter_ShortTextAndBounds(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, SplitText("  hello world \n"))
	assert.Empty(t, SplitText(""))

	s := NewSplitter(0, 900)
	assert.Equal(t, DefaultChunkSize, s.Size)
	assert.Zero(t, s.Overlap)
}

func TestLoadConversationJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"input":" Do you build apps? ","output":"Yes we do."}`,
		`not json`,
		`{"input":"only input"}`,
		``,
		`{"input":"Hi","output":"Hello!"}`,
	}, "\n")
	chunks, skipped, err := LoadConversationJSONL(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []string{"User: Do you build apps?\nBot: Yes we do.", "User: Hi\nBot: Hello!"}, chunks)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "about.txt"), []byte("We are an agency."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "convo.jsonl"), []byte(`{"input":"a","output":"b"}`+"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte{0x89}, 0o600))

	docs, err := DirSource{Dir: dir}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var text, chunks int
	for _, d := range docs {
		if d.Text != "" {
			text++
		}
		chunks += len(d.Chunks)
	}
	assert.Equal(t, 1, text)
	assert.Equal(t, 1, chunks)
}

type fakeS3 struct {
	objects map[string]string
	pages   [][]string
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	page := 0
	if in.ContinuationToken != nil {
		page = 1
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(page+1 < len(f.pages))}
	for _, key := range f.pages[page] {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key)})
	}
	if aws.ToBool(out.IsTruncated) {
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.objects[aws.ToString(in.Key)]))}, nil
}

func TestS3Source_Paginates(t *testing.T) {
	client := &fakeS3{
		objects: map[string]string{"kb/a.md": "# About", "kb/b.txt": "Contact us"},
		pages:   [][]string{{"kb/a.md", "kb/skip.pdf"}, {"kb/b.txt"}},
	}
	docs, err := S3Source{Client: client, Bucket: "bucket", Prefix: "kb/"}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "s3://bucket/kb/a.md", docs[0].Source)
	assert.Equal(t, "Contact us", docs[1].Text)
}

func TestWebSource_ExtractsVisibleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><style>body{}</style><script>var x=1;</script></head>
<body><h1>About   us</h1><p>We design brands.</p></body></html>`)
	}))
	defer srv.Close()

	docs, err := WebSource{URLs: []string{srv.URL}}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "About us\nWe design brands.", docs[0].Text)
}

type recordingIndex struct {
	batches [][]string
	failAt  int
}

func (r *recordingIndex) Add(_ context.Context, texts []string) error {
	if r.failAt > 0 && len(r.batches)+1 == r.failAt {
		return errors.New("index full")
	}
	r.batches = append(r.batches, append([]string(nil), texts...))
	return nil
}

func TestIngestor(t *testing.T) {
	idx := &recordingIndex{}
	ing := NewIngestor(idx, NewSplitter(500, 50), nil)
	ing.batchSize = 2

	n, err := ing.Ingest(context.Background(), []Document{
		{Source: "convo", Chunks: []string{"User: a\nBot: b"}},
		{Source: "txt", Text: "short text"},
		{Source: "txt2", Text: "another"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, idx.batches, 2)
	assert.Equal(t, []string{"User: a\nBot: b", "short text"}, idx.batches[0])

	failing := &recordingIndex{failAt: 2}
	ing = NewIngestor(failing, NewSplitter(500, 50), nil)
	ing.batchSize = 1
	n, err = ing.IngestSources(context.Background(), staticSource{{Text: "one"}, {Text: "two"}})
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

type staticSource []Document

func (s staticSource) Load(context.Context) ([]Document, error) { return s, nil }
