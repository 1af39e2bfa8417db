package embed

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeVector(vec []float32) string {
	raw := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestJinaClientEmbed(t *testing.T) {
	var gotReq embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": encodeVector([]float32{0.5, -1.25, 2.0})},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewJinaClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer client.Close()

	vec, err := client.Embed(context.Background(), "Douglas Adams", TaskQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1.25, 2.0}, vec)

	assert.Equal(t, DefaultModel, gotReq.Model)
	assert.Equal(t, DefaultDimensions, gotReq.Dimensions)
	assert.Equal(t, "base64", gotReq.EmbeddingType)
	assert.Equal(t, string(TaskQuery), gotReq.Task)
	assert.False(t, gotReq.LateChunking)
	assert.Equal(t, []string{"Douglas Adams"}, gotReq.Input)
}

func TestJinaClientEmbedBatchOrdering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Return artifacts out of input order; the client places by index.
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": encodeVector([]float32{2})},
				{"index": 0, "embedding": encodeVector([]float32{1})},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewJinaClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	defer client.Close()

	vecs, err := client.EmbedBatch(context.Background(), []string{"a", "b"}, TaskPassage)
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1}, vecs[0])
	assert.Equal(t, []float32{2}, vecs[1])
}

func TestJinaClientRerank(t *testing.T) {
	var gotReq rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/rerank", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"results": []map[string]any{
				{"index": 2, "relevance_score": 0.91},
				{"index": 0, "relevance_score": 0.4},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewJinaClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	defer client.Close()

	scores, err := client.Rerank(context.Background(), "query", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, RerankScore{Index: 2, Score: 0.91}, scores[0])
	assert.Equal(t, RerankScore{Index: 0, Score: 0.4}, scores[1])

	assert.Equal(t, DefaultRerankModel, gotReq.Model)
	assert.Equal(t, "query", gotReq.Query)
	assert.False(t, gotReq.ReturnDocuments)
	assert.Equal(t, []string{"a", "b", "c"}, gotReq.Documents)
}

func TestJinaClientRetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": encodeVector([]float32{1})},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewJinaClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	defer client.Close()

	vec, err := client.Embed(context.Background(), "x", TaskQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, 3, attempts)
}

func TestJinaClientRequiresAPIKey(t *testing.T) {
	_, err := NewJinaClient(Config{})
	require.Error(t, err)
}

func TestDecodeBase64Vector(t *testing.T) {
	vec, err := decodeBase64Vector(encodeVector([]float32{0, 1.5, -3.25}))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1.5, -3.25}, vec)

	_, err = decodeBase64Vector("not-base64!!!")
	assert.Error(t, err)

	_, err = decodeBase64Vector(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	assert.Error(t, err)
}
