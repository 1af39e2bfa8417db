package embed

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// JinaClient calls the Jina AI embeddings and rerank APIs.
type JinaClient struct {
	client *http.Client
	cfg    Config
}

// Verify interface implementations at compile time.
var (
	_ Embedder = (*JinaClient)(nil)
	_ Reranker = (*JinaClient)(nil)
)

// NewJinaClient creates a client for the Jina AI API.
func NewJinaClient(cfg Config) (*JinaClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embed: API key is required")
	}
	cfg = cfg.withDefaults()

	transport := &http.Transport{
		MaxIdleConns:        DefaultPoolSize,
		MaxIdleConnsPerHost: DefaultPoolSize,
		IdleConnTimeout:     90 * time.Second,
	}

	return &JinaClient{
		client: &http.Client{Transport: transport},
		cfg:    cfg,
	}, nil
}

// embedRequest is the wire shape of an embeddings call. Embeddings are
// requested base64-encoded: the payload is a packed little-endian float32
// array, roughly a third smaller than the JSON number form.
type embedRequest struct {
	Model         string   `json:"model"`
	Dimensions    int      `json:"dimensions"`
	EmbeddingType string   `json:"embedding_type"`
	Task          string   `json:"task"`
	LateChunking  bool     `json:"late_chunking"`
	Input         []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int    `json:"index"`
		Embedding string `json:"embedding"`
	} `json:"data"`
}

// Embed generates an embedding for a single text.
func (j *JinaClient) Embed(ctx context.Context, text string, task Task) ([]float32, error) {
	vecs, err := j.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed: no embedding returned")
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (j *JinaClient) EmbedBatch(ctx context.Context, texts []string, task Task) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	reqBody := embedRequest{
		Model:         j.cfg.Model,
		Dimensions:    j.cfg.Dimensions,
		EmbeddingType: "base64",
		Task:          string(task),
		Input:         texts,
	}

	var resp embedResponse
	if err := j.doWithRetry(ctx, "/v1/embeddings", reqBody, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embed: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// Responses may arrive out of input order; place by index.
	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vecs) {
			return nil, fmt.Errorf("embed: embedding index %d out of range", item.Index)
		}
		vec, err := decodeBase64Vector(item.Embedding)
		if err != nil {
			return nil, fmt.Errorf("embed: decode embedding: %w", err)
		}
		vecs[item.Index] = vec
	}
	return vecs, nil
}

// decodeBase64Vector unpacks a base64 little-endian float32 array.
func decodeBase64Vector(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("payload length %d is not a multiple of 4", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

// rerankRequest is the wire shape of a rerank call. Documents are not
// echoed back; only (index, relevance_score) pairs are needed.
type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	ReturnDocuments bool     `json:"return_documents"`
	Documents       []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores every document against the query with the cross-encoder
// model. Results come back sorted by relevance descending.
func (j *JinaClient) Rerank(ctx context.Context, query string, documents []string) ([]RerankScore, error) {
	if len(documents) == 0 {
		return []RerankScore{}, nil
	}

	reqBody := rerankRequest{
		Model:     j.cfg.RerankModel,
		Query:     query,
		Documents: documents,
	}

	var resp rerankResponse
	if err := j.doWithRetry(ctx, "/v1/rerank", reqBody, &resp); err != nil {
		return nil, err
	}

	scores := make([]RerankScore, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			slog.Warn("rerank_index_out_of_range", slog.Int("index", r.Index))
			continue
		}
		scores = append(scores, RerankScore{Index: r.Index, Score: r.RelevanceScore})
	}
	return scores, nil
}

// doWithRetry posts a JSON body with exponential backoff on failure.
func (j *JinaClient) doWithRetry(ctx context.Context, path string, body any, out any) error {
	var lastErr error

	for attempt := 0; attempt < j.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100<<attempt) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := j.do(ctx, path, body, out); err != nil {
			lastErr = err
			slog.Debug("embed_attempt_failed",
				slog.String("path", path),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("embed: failed after %d attempts: %w", j.cfg.MaxRetries, lastErr)
}

func (j *JinaClient) do(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(j.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.cfg.APIKey)

	resp, err := j.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Dimensions returns the embedding dimension.
func (j *JinaClient) Dimensions() int {
	return j.cfg.Dimensions
}

// ModelName returns the embedding model identifier.
func (j *JinaClient) ModelName() string {
	return j.cfg.Model
}

// Close releases idle connections.
func (j *JinaClient) Close() error {
	if t, ok := j.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
