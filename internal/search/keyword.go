package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bbalet/stopwords"

	"github.com/wikivec/wikivec/internal/astra"
)

const (
	// DefaultKeywordEndpoint is the Wikidata search index endpoint.
	DefaultKeywordEndpoint = "https://www.wikidata.org/w/index.php"

	keywordUserAgent = "Wikidata Vector Database"

	// maxKeywordQueryLen is the query length ceiling imposed by the API.
	maxKeywordQueryLen = 300
)

var punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// KeywordOptions tunes one keyword channel query.
type KeywordOptions struct {
	Filter astra.Filter
	Lang   string
	K      int
}

// KeywordSearch retrieves entity IDs by exact term matching against the
// Wikidata search index.
type KeywordSearch struct {
	client   *http.Client
	endpoint string
	log      *slog.Logger
}

// NewKeywordSearch creates the keyword retrieval channel. An empty
// endpoint uses the public Wikidata index.
func NewKeywordSearch(endpoint string, timeout time.Duration) *KeywordSearch {
	if endpoint == "" {
		endpoint = DefaultKeywordEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &KeywordSearch{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		log:      slog.Default().With(slog.String("channel", KeywordChannel)),
	}
}

type cirrusResponse struct {
	Main struct {
		Result struct {
			Hits struct {
				Hits []struct {
					Source struct {
						Title string `json:"title"`
					} `json:"_source"`
				} `json:"hits"`
			} `json:"hits"`
		} `json:"result"`
	} `json:"__main__"`
}

// Search returns up to opts.K entity IDs matching the query. A query that
// is itself an entity ID is returned as-is without calling the index.
func (s *KeywordSearch) Search(ctx context.Context, query string, opts KeywordOptions) ([]string, error) {
	if IsEntityID(query) {
		return []string{query}, nil
	}

	cleaned := cleanQuery(query, opts.Lang)

	params := url.Values{}
	params.Set("cirrusDumpResult", "")
	params.Set("search", cleaned)
	params.Set("srlimit", strconv.Itoa(opts.K))
	if isTruthy(opts.Filter["metadata.IsItem"]) {
		params.Set("ns0", "1")
	}
	if isTruthy(opts.Filter["metadata.IsProperty"]) {
		params.Set("ns120", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", keywordUserAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("keyword search: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed cirrusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("keyword search: decode response: %w", err)
	}

	hits := parsed.Main.Result.Hits.Hits
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.Source.Title)
		if len(ids) >= opts.K {
			break
		}
	}

	s.log.Debug("keyword_search_done",
		slog.String("query", cleaned),
		slog.Int("hits", len(ids)),
		slog.Duration("duration", time.Since(start)))
	return ids, nil
}

// cleanQuery strips punctuation, drops stopwords and joins the remaining
// terms with OR for the search index. Kept terms preserve their original
// case; the stopword check itself is case-insensitive. An unknown or
// wildcard language falls back to English stopwords. When every term is
// a stopword the punctuation-stripped query is returned unchanged.
func cleanQuery(query, lang string) string {
	if lang == "" || lang == "all" {
		lang = "en"
	}

	stripped := punctuationPattern.ReplaceAllString(query, "")
	var terms []string
	for _, term := range strings.Fields(stripped) {
		if strings.TrimSpace(stopwords.CleanString(term, lang, false)) == "" {
			continue
		}
		terms = append(terms, term)
	}
	cleaned := strings.Join(terms, " OR ")
	if cleaned == "" {
		return stripped
	}
	return truncateRunes(cleaned, maxKeywordQueryLen)
}

// truncateRunes caps s at n characters, not bytes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func isTruthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
