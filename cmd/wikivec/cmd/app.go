package cmd

import (
	"log/slog"
	"strings"
	"time"

	"github.com/wikivec/wikivec/internal/astra"
	"github.com/wikivec/wikivec/internal/config"
	"github.com/wikivec/wikivec/internal/embed"
	wverrors "github.com/wikivec/wikivec/internal/errors"
	"github.com/wikivec/wikivec/internal/search"
	"github.com/wikivec/wikivec/internal/telemetry"
	"github.com/wikivec/wikivec/internal/translate"
	"github.com/wikivec/wikivec/internal/wikidata"
)

// app bundles the wired components behind one search invocation.
type app struct {
	cfg     *config.Config
	store   *astra.Client
	jina    *embed.JinaClient
	vector  *search.VectorSearch
	engine  *search.Engine
	texts   *wikidata.Textifier
	metrics *telemetry.QueryMetrics
}

// newApp loads configuration and builds the full retrieval stack.
// Commands that only render entities should use newTextifier instead,
// since this path requires store and embedding credentials.
func newApp() (*app, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}

	store, err := astra.NewClient(astra.Config{
		Endpoint:   cfg.Store.Endpoint,
		Token:      cfg.Store.Token,
		Keyspace:   cfg.Store.Keyspace,
		Collection: cfg.Store.Collection,
		Timeout:    cfg.Store.TimeoutDuration(),
	})
	if err != nil {
		return nil, err
	}

	jina, err := embed.NewJinaClient(embed.Config{
		APIKey:      cfg.Embeddings.APIKey,
		BaseURL:     cfg.Embeddings.BaseURL,
		Model:       cfg.Embeddings.Model,
		RerankModel: cfg.Embeddings.RerankModel,
		Dimensions:  cfg.Embeddings.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	embedder := embed.NewCachedEmbedder(jina, cfg.Embeddings.CacheSize)

	texts := wikidata.NewTextifier(
		wikidata.NewClient(cfg.Wikidata.APIEndpoint, 30*time.Second))

	router, err := translate.NewRouter(translate.Config{
		Endpoint:    cfg.Languages.TranslateEndpoint,
		DestLang:    cfg.Languages.Dest,
		NativeLangs: cfg.Languages.Native,
		Detector:    translate.NewLinguaDetector(),
	})
	if err != nil {
		return nil, err
	}

	vector := search.NewVectorSearch(store, embedder, router, texts, cfg.Languages.Native)
	keyword := search.NewKeywordSearch(cfg.Search.KeywordEndpoint, 30*time.Second)
	metrics := telemetry.NewQueryMetrics(telemetry.Config{})

	engine := search.NewEngine(vector, keyword, texts,
		search.WithReranker(jina),
		search.WithMetrics(metrics),
		search.WithRRFK(cfg.Search.RRFConstant),
		search.WithDefaultLimit(cfg.Search.MaxResults))

	return &app{
		cfg:     cfg,
		store:   store,
		jina:    jina,
		vector:  vector,
		engine:  engine,
		texts:   texts,
		metrics: metrics,
	}, nil
}

// Close releases connections held by the stack.
func (a *app) Close() {
	_ = a.jina.Close()
	_ = a.store.Close()
}

// newTextifier builds just the knowledge-base rendering path.
func newTextifier() (*wikidata.Textifier, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	return wikidata.NewTextifier(
		wikidata.NewClient(cfg.Wikidata.APIEndpoint, 30*time.Second)), nil
}

// entityFilter builds a metadata filter from the shared CLI flags.
func entityFilter(items, properties bool, instanceOf []string) astra.Filter {
	filter := astra.Filter{}
	if items {
		filter["metadata.IsItem"] = true
	}
	if properties {
		filter["metadata.IsProperty"] = true
	}
	if len(instanceOf) > 0 {
		ids := make([]any, 0, len(instanceOf))
		for _, id := range instanceOf {
			ids = append(ids, strings.ToUpper(strings.TrimSpace(id)))
		}
		filter["metadata.InstanceOf"] = map[string]any{"$in": ids}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

// logQueryMetrics emits the collected query telemetry at debug level so
// one-shot invocations still surface what they recorded.
func logQueryMetrics(log *slog.Logger, snap telemetry.Snapshot) {
	if snap.TotalQueries == 0 {
		return
	}
	attrs := []any{
		slog.Int64("total_queries", snap.TotalQueries),
		slog.Int64("zero_results", snap.ZeroResultCount),
		slog.Int64("reranked", snap.RerankCount),
		slog.Int64("exact_repeats", snap.ExactRepeatCount),
	}
	for bucket, count := range snap.LatencyDistribution {
		attrs = append(attrs, slog.Int64("latency_"+string(bucket), count))
	}
	log.Debug("query_metrics", attrs...)
}

func formatError(err error) string {
	return strings.TrimRight(wverrors.FormatForCLI(err), "\n")
}
