package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikivec/wikivec/internal/astra"
)

func cirrusHandler(t *testing.T, titles []string, gotParams *map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gotParams != nil {
			params := make(map[string]string)
			for k, v := range r.URL.Query() {
				params[k] = v[0]
			}
			*gotParams = params
		}
		hits := make([]map[string]any, len(titles))
		for i, title := range titles {
			hits[i] = map[string]any{"_source": map[string]any{"title": title}}
		}
		resp := map[string]any{
			"__main__": map[string]any{
				"result": map[string]any{
					"hits": map[string]any{"hits": hits},
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestKeywordSearch(t *testing.T) {
	var params map[string]string
	server := httptest.NewServer(cirrusHandler(t, []string{"Q42", "Q5"}, &params))
	defer server.Close()

	ks := NewKeywordSearch(server.URL, time.Second)
	ids, err := ks.Search(context.Background(), "the Douglas Adams", KeywordOptions{Lang: "en", K: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q42", "Q5"}, ids)

	assert.Equal(t, "Douglas OR Adams", params["search"])
	assert.Equal(t, "5", params["srlimit"])
	_, ok := params["cirrusDumpResult"]
	assert.True(t, ok)
	_, ok = params["ns0"]
	assert.False(t, ok)
}

func TestKeywordSearchNamespaceFilters(t *testing.T) {
	var params map[string]string
	server := httptest.NewServer(cirrusHandler(t, nil, &params))
	defer server.Close()

	ks := NewKeywordSearch(server.URL, time.Second)
	_, err := ks.Search(context.Background(), "instance of", KeywordOptions{
		Filter: astra.Filter{"metadata.IsProperty": true},
		Lang:   "en",
		K:      5,
	})
	require.NoError(t, err)
	assert.Equal(t, "1", params["ns120"])
	_, ok := params["ns0"]
	assert.False(t, ok)
}

func TestKeywordSearchEntityIDShortCircuit(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	ks := NewKeywordSearch(server.URL, time.Second)
	ids, err := ks.Search(context.Background(), "Q42", KeywordOptions{K: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q42"}, ids)
	assert.False(t, called)
}

func TestKeywordSearchTruncatesToK(t *testing.T) {
	server := httptest.NewServer(cirrusHandler(t, []string{"Q1", "Q2", "Q3"}, nil))
	defer server.Close()

	ks := NewKeywordSearch(server.URL, time.Second)
	ids, err := ks.Search(context.Background(), "numbers", KeywordOptions{K: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, ids)
}

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		lang  string
		want  string
	}{
		{"stopwords removed, case kept", "the capital of France", "en", "capital OR France"},
		{"punctuation stripped", "what's a \"black hole\"?", "en", "whats OR black OR hole"},
		{"stopword check ignores case", "The Moon", "en", "Moon"},
		{"wildcard lang uses english", "the moon", "all", "moon"},
		{"empty lang uses english", "the moon", "", "moon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanQuery(tt.query, tt.lang))
		})
	}
}

func TestCleanQueryAllStopwordsFallsBack(t *testing.T) {
	// Every term is a stopword; the stripped query is kept so the
	// search still has something to match.
	got := cleanQuery("to be or not to be", "en")
	assert.Equal(t, "to be or not to be", got)
}

func TestCleanQueryLengthCap(t *testing.T) {
	long := strings.Repeat("wikidata ", 100)
	got := cleanQuery(long, "en")
	assert.LessOrEqual(t, len(got), maxKeywordQueryLen)
}

func TestCleanQueryLengthCapCountsRunes(t *testing.T) {
	// Multi-byte terms: the cap is 300 characters, not bytes.
	long := strings.Repeat("αστεροειδής ", 60)
	got := cleanQuery(long, "en")
	assert.Equal(t, maxKeywordQueryLen, utf8.RuneCountInString(got))
	assert.Greater(t, len(got), maxKeywordQueryLen)
	assert.True(t, utf8.ValidString(got))
}
