package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIEndpoint is the Wikidata action API.
	DefaultAPIEndpoint = "https://www.wikidata.org/w/api.php"

	userAgent = "Wikidata Vector Database"

	// maxIDsPerRequest is the wbgetentities ceiling on IDs per call.
	maxIDsPerRequest = 50

	// AllProps fetches everything needed to render an entity.
	AllProps = "labels|descriptions|aliases|claims"
	// LabelProps fetches labels only, used to resolve referenced IDs.
	LabelProps = "labels"
)

// Client fetches entities from the Wikidata action API.
type Client struct {
	client   *http.Client
	endpoint string
	log      *slog.Logger
}

// NewClient creates an action API client. An empty endpoint uses the
// public Wikidata API.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		log:      slog.Default().With(slog.String("component", "wikidata")),
	}
}

type entitiesResponse struct {
	Entities map[string]Entity `json:"entities"`
	Error    *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

// GetEntities fetches the given entity IDs, requesting terms in lang
// plus the language-neutral "mul". IDs are deduplicated and fetched in
// chunks of at most 50 per API call.
func (c *Client) GetEntities(ctx context.Context, ids []string, props, lang string) (map[string]Entity, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[string]Entity{}, nil
	}

	entities := make(map[string]Entity, len(unique))
	for start := 0; start < len(unique); start += maxIDsPerRequest {
		end := start + maxIDsPerRequest
		if end > len(unique) {
			end = len(unique)
		}
		chunk, err := c.getChunk(ctx, unique[start:end], props, lang)
		if err != nil {
			return nil, err
		}
		for id, entity := range chunk {
			entities[id] = entity
		}
	}
	return entities, nil
}

func (c *Client) getChunk(ctx context.Context, ids []string, props, lang string) (map[string]Entity, error) {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", strings.Join(ids, "|"))
	params.Set("props", props)
	params.Set("languages", lang+"|mul")
	params.Set("format", "json")
	params.Set("origin", "*")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("wikidata: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed entitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("wikidata: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("wikidata: %s: %s", parsed.Error.Code, parsed.Error.Info)
	}

	c.log.Debug("entities_fetched",
		slog.Int("requested", len(ids)),
		slog.Int("returned", len(parsed.Entities)),
		slog.Duration("duration", time.Since(start)))
	return parsed.Entities, nil
}
