package astra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	wverrors "github.com/wikivec/wikivec/internal/errors"
)

// Default client settings. The Data API is a single HTTPS endpoint, so a
// modest connection pool is enough even with several in-flight requests.
const (
	DefaultTimeout  = 100 * time.Second
	DefaultPoolSize = 8
)

// Config holds the connection settings for one Astra collection.
type Config struct {
	// Endpoint is the database API endpoint, e.g.
	// https://<db-id>-<region>.apps.astra.datastax.com
	Endpoint string
	// Token is the application token sent on every request.
	Token string
	// Keyspace is the keyspace containing the collection.
	Keyspace string
	// Collection is the collection name.
	Collection string
	// Timeout is the per-request timeout (default: 100s).
	Timeout time.Duration
}

// Client talks to a single Astra DB collection over the JSON Data API.
// It is safe for concurrent use by multiple in-flight requests.
type Client struct {
	client  *http.Client
	cfg     Config
	url     string
	timeout time.Duration
}

// NewClient creates a Data API client for the configured collection.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("astra: endpoint is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("astra: application token is required")
	}
	if cfg.Keyspace == "" {
		return nil, fmt.Errorf("astra: keyspace is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("astra: collection is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        DefaultPoolSize,
		MaxIdleConnsPerHost: DefaultPoolSize,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{Transport: transport},
		cfg:    cfg,
		url: fmt.Sprintf("%s/api/json/v1/%s/%s",
			strings.TrimRight(cfg.Endpoint, "/"), cfg.Keyspace, cfg.Collection),
		timeout: cfg.Timeout,
	}, nil
}

// findCommand is the wire shape of a Data API find command.
type findCommand struct {
	Find findBody `json:"find"`
}

type findBody struct {
	Filter     Filter         `json:"filter,omitempty"`
	Sort       map[string]any `json:"sort,omitempty"`
	Projection map[string]int `json:"projection,omitempty"`
	Options    *findOptions   `json:"options,omitempty"`
}

type findOptions struct {
	Limit             int  `json:"limit,omitempty"`
	IncludeSimilarity bool `json:"includeSimilarity,omitempty"`
}

type findResponse struct {
	Data struct {
		Documents []Document `json:"documents"`
	} `json:"data"`
	Errors []apiError `json:"errors,omitempty"`
}

type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// Find runs a find command and returns the matching documents in store
// order (similarity-descending when SortVector is set).
func (c *Client) Find(ctx context.Context, q FindQuery) ([]Document, error) {
	body := findBody{
		Filter:     q.Filter,
		Projection: q.Projection,
	}
	if q.SortVector != nil {
		body.Sort = map[string]any{"$vector": q.SortVector}
	}
	if q.Limit > 0 || q.IncludeSimilarity {
		body.Options = &findOptions{
			Limit:             q.Limit,
			IncludeSimilarity: q.IncludeSimilarity,
		}
	}

	var resp findResponse
	if err := c.do(ctx, findCommand{Find: body}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, wverrors.New(wverrors.ErrCodeVectorStoreFailed,
			fmt.Sprintf("find failed: %s (%s)",
				resp.Errors[0].Message, resp.Errors[0].ErrorCode), nil)
	}
	return resp.Data.Documents, nil
}

// FindOne returns the first document matching the query, or nil when there
// is no match.
func (c *Client) FindOne(ctx context.Context, q FindQuery) (*Document, error) {
	q.Limit = 1
	docs, err := c.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

// retryConfig keeps transient Data API hiccups from failing a search.
// The store is the critical path, so attempts stay short and few.
var retryConfig = wverrors.RetryConfig{
	MaxRetries:   2,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

func (c *Client) do(ctx context.Context, command any, out any) error {
	payload, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("astra: marshal command: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err = wverrors.Retry(ctx, retryConfig, func() error {
		return c.doOnce(ctx, payload, out)
	})
	if err != nil {
		return err
	}

	slog.Debug("astra_find",
		slog.String("collection", c.cfg.Collection),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (c *Client) doOnce(ctx context.Context, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("astra: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.cfg.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return wverrors.NetworkError("astra request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return wverrors.New(wverrors.ErrCodeVectorStoreFailed,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wverrors.DataError("decode astra response", err)
	}

	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	if t, ok := c.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
