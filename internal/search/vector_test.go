package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikivec/wikivec/internal/astra"
	"github.com/wikivec/wikivec/internal/embed"
)

// findCall is one recorded Data API find command.
type findCall struct {
	Filter     map[string]any
	Sorted     bool
	Projection map[string]int
	Limit      int
}

// fakeStore answers Data API find commands from a handler function.
type fakeStore struct {
	server *httptest.Server
	client *astra.Client

	mu    sync.Mutex
	calls []findCall
}

func (fs *fakeStore) call(i int) findCall {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.calls[i]
}

func (fs *fakeStore) callCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.calls)
}

func newFakeStore(t *testing.T, respond func(call findCall) []map[string]any) *fakeStore {
	t.Helper()
	fs := &fakeStore{}

	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Find struct {
				Filter     map[string]any `json:"filter"`
				Sort       map[string]any `json:"sort"`
				Projection map[string]int `json:"projection"`
				Options    struct {
					Limit int `json:"limit"`
				} `json:"options"`
			} `json:"find"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		call := findCall{
			Filter:     body.Find.Filter,
			Sorted:     body.Find.Sort != nil,
			Projection: body.Find.Projection,
			Limit:      body.Find.Options.Limit,
		}
		fs.mu.Lock()
		fs.calls = append(fs.calls, call)
		fs.mu.Unlock()

		docs := respond(call)
		resp := map[string]any{"data": map[string]any{"documents": docs}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(fs.server.Close)

	client, err := astra.NewClient(astra.Config{
		Endpoint:   fs.server.URL,
		Token:      "token",
		Keyspace:   "default_keyspace",
		Collection: "wikidata",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	fs.client = client
	return fs
}

type fakeEmbedder struct {
	mu       sync.Mutex
	lastText string
	lastTask embed.Task
	calls    int
}

var _ embed.Embedder = (*fakeEmbedder)(nil)

func (f *fakeEmbedder) Embed(_ context.Context, text string, task embed.Task) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = text
	f.lastTask = task
	f.calls++
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, task embed.Task) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, _ := f.Embed(ctx, text, task)
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int   { return 3 }
func (f *fakeEmbedder) ModelName() string { return "fake" }
func (f *fakeEmbedder) Close() error      { return nil }

type fakeTexts struct {
	mu    sync.Mutex
	texts map[string]string
	calls int
}

func (f *fakeTexts) EntityText(_ context.Context, id, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if text, ok := f.texts[id]; ok {
		return text, nil
	}
	return "", errors.New("entity not found")
}

type fakeTranslator struct {
	out   string
	err   error
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.out == "" {
		return text, nil
	}
	return f.out, nil
}

func qDoc(qid string, sim float64) map[string]any {
	return map[string]any{
		"metadata":    map[string]any{"QID": qid, "Language": "en"},
		"$similarity": sim,
	}
}

func TestVectorSearchTextQuery(t *testing.T) {
	store := newFakeStore(t, func(call findCall) []map[string]any {
		return []map[string]any{qDoc("Q42", 0.95), qDoc("Q5", 0.9)}
	})
	emb := &fakeEmbedder{}
	vs := NewVectorSearch(store.client, emb, nil, &fakeTexts{}, []string{"en", "fr", "ar"})

	got, err := vs.Search(context.Background(), "douglas adams", VectorOptions{Lang: "en", K: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Candidate{ID: "Q42", Similarity: 0.95}, got[0])

	assert.Equal(t, "douglas adams", emb.lastText)
	assert.Equal(t, embed.TaskQuery, emb.lastTask)

	// Native language restricts the store to that language's vectors.
	require.Equal(t, 1, store.callCount())
	assert.Equal(t, "en", store.call(0).Filter["metadata.Language"])
	assert.True(t, store.call(0).Sorted)
	assert.Equal(t, vectorQueryLimit, store.call(0).Limit)
}

func TestVectorSearchWildcardLangSkipsFilter(t *testing.T) {
	store := newFakeStore(t, func(call findCall) []map[string]any { return nil })
	vs := NewVectorSearch(store.client, &fakeEmbedder{}, nil, &fakeTexts{}, []string{"en"})

	_, err := vs.Search(context.Background(), "anything", VectorOptions{Lang: "all", K: 10})
	require.NoError(t, err)
	_, hasLang := store.call(0).Filter["metadata.Language"]
	assert.False(t, hasLang)
}

func TestVectorSearchEntityIDHit(t *testing.T) {
	store := newFakeStore(t, func(call findCall) []map[string]any {
		if !call.Sorted {
			// Direct lookup by identifier.
			return []map[string]any{{
				"metadata": map[string]any{"QID": "Q42"},
				"$vector":  []float32{1, 0, 0},
			}}
		}
		// Neighbors of the stored vector; Q42 itself comes back too.
		return []map[string]any{qDoc("Q42", 1.0), qDoc("Q5", 0.9)}
	})
	emb := &fakeEmbedder{}
	vs := NewVectorSearch(store.client, emb, nil, &fakeTexts{}, []string{"en"})

	got, err := vs.Search(context.Background(), "Q42", VectorOptions{Lang: "all", K: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// The entity itself leads with a pinned similarity of 1.
	assert.Equal(t, Candidate{ID: "Q42", Similarity: 1.0}, got[0])
	assert.Equal(t, Candidate{ID: "Q5", Similarity: 0.9}, got[1])

	// The stored vector was reused; no embedding call happened.
	assert.Equal(t, 0, emb.calls)
	assert.Equal(t, "Q42", store.call(0).Filter["metadata.QID"])
}

func TestVectorSearchEntityIDMissFallsBackToText(t *testing.T) {
	store := newFakeStore(t, func(call findCall) []map[string]any {
		if !call.Sorted {
			return nil
		}
		return []map[string]any{qDoc("Q99", 0.8)}
	})
	emb := &fakeEmbedder{}
	texts := &fakeTexts{texts: map[string]string{"Q123456": "some obscure thing, a thing."}}
	vs := NewVectorSearch(store.client, emb, nil, texts, []string{"en"})

	got, err := vs.Search(context.Background(), "Q123456", VectorOptions{Lang: "all", K: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Q99", got[0].ID)

	// The rendered text became the query.
	assert.Equal(t, "some obscure thing, a thing.", emb.lastText)
}

func TestVectorSearchEntityIDUnrenderable(t *testing.T) {
	store := newFakeStore(t, func(call findCall) []map[string]any { return nil })
	vs := NewVectorSearch(store.client, &fakeEmbedder{}, nil, &fakeTexts{}, []string{"en"})

	got, err := vs.Search(context.Background(), "Q999999999", VectorOptions{Lang: "all", K: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVectorSearchTranslatesForeignQuery(t *testing.T) {
	store := newFakeStore(t, func(call findCall) []map[string]any { return nil })
	emb := &fakeEmbedder{}
	tr := &fakeTranslator{out: "hello world"}
	vs := NewVectorSearch(store.client, emb, tr, &fakeTexts{}, []string{"en", "fr", "ar"})

	_, err := vs.Search(context.Background(), "hallo welt", VectorOptions{Lang: "de", K: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, "hello world", emb.lastText)

	// Languages covered by the store are not translated.
	_, err = vs.Search(context.Background(), "bonjour", VectorOptions{Lang: "fr", K: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls)
}

func TestVectorSearchTranslationFailureKeepsQuery(t *testing.T) {
	store := newFakeStore(t, func(call findCall) []map[string]any { return nil })
	emb := &fakeEmbedder{}
	tr := &fakeTranslator{err: errors.New("mint unavailable")}
	vs := NewVectorSearch(store.client, emb, tr, &fakeTexts{}, []string{"en"})

	_, err := vs.Search(context.Background(), "hallo welt", VectorOptions{Lang: "de", K: 10})
	require.NoError(t, err)
	assert.Equal(t, "hallo welt", emb.lastText)
}

func TestVectorSearchDeduplicatesAndTruncates(t *testing.T) {
	store := newFakeStore(t, func(call findCall) []map[string]any {
		return []map[string]any{
			qDoc("Q1", 0.9), qDoc("Q1", 0.89), qDoc("Q2", 0.8), qDoc("Q3", 0.7),
		}
	})
	vs := NewVectorSearch(store.client, &fakeEmbedder{}, nil, &fakeTexts{}, nil)

	got, err := vs.Search(context.Background(), "dupes", VectorOptions{Lang: "all", K: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Q1", got[0].ID)
	assert.InDelta(t, 0.9, got[0].Similarity, 1e-9)
	assert.Equal(t, "Q2", got[1].ID)
}

func TestSimilarityScoresNarrowingRetry(t *testing.T) {
	sorted := 0
	store := newFakeStore(t, func(call findCall) []map[string]any {
		if !call.Sorted {
			return nil
		}
		sorted++
		switch sorted {
		case 1:
			return []map[string]any{qDoc("Q1", 0.5)}
		case 2:
			// The retry filter names only the missing IDs.
			return []map[string]any{qDoc("Q2", 0.9)}
		default:
			return nil
		}
	})
	vs := NewVectorSearch(store.client, &fakeEmbedder{}, nil, &fakeTexts{}, nil)

	got, err := vs.SimilarityScores(context.Background(), "query", []string{"Q1", "Q2", "P31"}, VectorOptions{Lang: "all"})
	require.NoError(t, err)

	// A round that returns nothing new ends the loop even though P31
	// was never found.
	require.Len(t, got, 2)
	assert.Equal(t, "Q2", got[0].ID)
	assert.Equal(t, "Q1", got[1].ID)
}

func TestSimilarityScoresEmptyInput(t *testing.T) {
	store := newFakeStore(t, func(call findCall) []map[string]any {
		t.Error("store should not be queried")
		return nil
	})
	vs := NewVectorSearch(store.client, &fakeEmbedder{}, nil, &fakeTexts{}, nil)

	got, err := vs.SimilarityScores(context.Background(), "query", nil, VectorOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIDFilter(t *testing.T) {
	f := idFilter([]string{"Q42", "P31", "Q5"})
	or, ok := f["$or"].([]astra.Filter)
	require.True(t, ok)
	require.Len(t, or, 2)
	assert.Equal(t, astra.Filter{"$in": []string{"Q42", "Q5"}}, or[0]["metadata.QID"])
	assert.Equal(t, astra.Filter{"$in": []string{"P31"}}, or[1]["metadata.PID"])
}
