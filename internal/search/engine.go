package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wikivec/wikivec/internal/astra"
	"github.com/wikivec/wikivec/internal/embed"
	"github.com/wikivec/wikivec/internal/telemetry"
)

// Engine defaults.
const (
	DefaultLimit = 50

	// rerankTextWorkers caps the pool fetching entity texts for rerank.
	rerankTextWorkers = 4
)

// Options tunes one hybrid search. Zero values select the defaults.
type Options struct {
	// Filter restricts candidate documents in both channels.
	Filter astra.Filter
	// Lang is the query language ("all" searches every language).
	Lang string
	// Limit caps the final result list. Zero uses the engine's
	// configured default.
	Limit int
	// VectorK is the vector channel depth (default Limit).
	VectorK int
	// KeywordK is the keyword channel depth (default Limit/10, at
	// least 1).
	KeywordK int
	// Rerank applies the cross-encoder pass over the fused results.
	Rerank bool
	// ReturnVectors includes stored embeddings in the results.
	ReturnVectors bool
}

func (o Options) withDefaults(limit int) Options {
	if o.Lang == "" {
		o.Lang = "all"
	}
	if o.Limit <= 0 {
		o.Limit = limit
	}
	if o.VectorK <= 0 {
		o.VectorK = o.Limit
	}
	if o.KeywordK <= 0 {
		o.KeywordK = (o.Limit + 9) / 10
		if o.KeywordK < 1 {
			o.KeywordK = 1
		}
	}
	return o
}

// Engine runs the vector and keyword channels concurrently and fuses
// their outputs. The vector channel is required; a keyword channel
// failure degrades to vector-only results.
type Engine struct {
	vector   *VectorSearch
	keyword  *KeywordSearch
	reranker embed.Reranker
	texts    TextProvider
	metrics  *telemetry.QueryMetrics
	rrfK     int
	limit    int
	log      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithReranker enables the cross-encoder rerank pass.
func WithReranker(r embed.Reranker) EngineOption {
	return func(e *Engine) { e.reranker = r }
}

// WithMetrics records per-query telemetry.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithRRFK sets the reciprocal rank fusion smoothing factor.
func WithRRFK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.rrfK = k
		}
	}
}

// WithDefaultLimit sets the result cap used when Options.Limit is zero.
func WithDefaultLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// NewEngine creates a hybrid search engine. texts renders entities for
// the rerank pass and for entity-ID queries missing from the store.
func NewEngine(vector *VectorSearch, keyword *KeywordSearch, texts TextProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		vector:  vector,
		keyword: keyword,
		texts:   texts,
		rrfK:    DefaultRRFK,
		limit:   DefaultLimit,
		log:     slog.Default().With(slog.String("component", "search")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs both retrieval channels for the query and returns the
// fused results, reranked when requested, truncated to opts.Limit.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	opts = opts.withDefaults(e.limit)
	start := time.Now()

	var vectorResults, keywordResults []Candidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorResults, err = e.vector.Search(gctx, query, VectorOptions{
			Filter:      opts.Filter,
			Lang:        opts.Lang,
			K:           opts.VectorK,
			WithVectors: opts.ReturnVectors,
			WithText:    opts.Rerank,
		})
		return err
	})
	g.Go(func() error {
		ids, err := e.keyword.Search(gctx, query, KeywordOptions{
			Filter: opts.Filter,
			Lang:   opts.Lang,
			K:      opts.KeywordK,
		})
		if err != nil {
			e.log.Warn("keyword_channel_failed", slog.String("error", err.Error()))
			return nil
		}
		scored, err := e.vector.SimilarityScores(gctx, query, ids, VectorOptions{
			Lang:        opts.Lang,
			WithVectors: opts.ReturnVectors,
			WithText:    opts.Rerank,
		})
		if err != nil {
			e.log.Warn("keyword_scoring_failed", slog.String("error", err.Error()))
			return nil
		}
		keywordResults = scored
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := Fuse([]ChannelResult{
		{Name: VectorChannel, Candidates: vectorResults},
		{Name: KeywordChannel, Candidates: keywordResults},
	}, e.rrfK)

	if opts.Rerank && e.reranker != nil {
		var err error
		results, err = e.rerank(ctx, query, results, opts.Lang)
		if err != nil {
			return nil, err
		}
	}

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.Record(telemetry.Query{
			Query:    query,
			Lang:     opts.Lang,
			Rerank:   opts.Rerank,
			Results:  len(results),
			Duration: elapsed,
		})
	}
	e.log.Info("search_done",
		slog.String("lang", opts.Lang),
		slog.Bool("rerank", opts.Rerank),
		slog.Int("results", len(results)),
		slog.Duration("duration", elapsed))

	return results, nil
}

// rerank refreshes each result's text from live entity data and scores
// it against the query with the cross-encoder. Results whose text cannot
// be obtained at all are dropped; text is stripped from the output.
func (e *Engine) rerank(ctx context.Context, query string, results []Result, lang string) ([]Result, error) {
	workers := len(results)
	if workers > rerankTextWorkers {
		workers = rerankTextWorkers
	}
	if workers > 0 && e.texts != nil {
		pool, err := ants.NewPool(workers)
		if err != nil {
			return nil, err
		}
		defer pool.Release()

		var wg sync.WaitGroup
		for i := range results {
			i := i
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				text, err := e.texts.EntityText(ctx, results[i].ID, lang)
				if err != nil {
					// Keep the stored text fetched by the channel.
					e.log.Warn("rerank_text_fetch_failed",
						slog.String("id", results[i].ID),
						slog.String("error", err.Error()))
					return
				}
				results[i].Text = text
			}); err != nil {
				wg.Done()
			}
		}
		wg.Wait()
	}

	withText := results[:0]
	for _, r := range results {
		if r.Text != "" {
			withText = append(withText, r)
		}
	}
	results = withText
	if len(results) == 0 {
		return results, nil
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	scores, err := e.reranker.Rerank(ctx, query, texts)
	if err != nil {
		return nil, err
	}

	for _, s := range scores {
		score := s.Score
		results[s.Index].RerankerScore = &score
	}
	sort.SliceStable(results, func(i, j int) bool {
		si, sj := results[i].RerankerScore, results[j].RerankerScore
		if si == nil || sj == nil {
			return sj == nil && si != nil
		}
		return *si > *sj
	})

	for i := range results {
		results[i].Text = ""
	}
	return results, nil
}
