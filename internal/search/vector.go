package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/wikivec/wikivec/internal/astra"
	"github.com/wikivec/wikivec/internal/embed"
)

// vectorQueryLimit caps every nearest-neighbor query against the store.
// Callers asking for fewer results are truncated after deduplication.
const vectorQueryLimit = 50

// VectorOptions tunes one vector channel query.
type VectorOptions struct {
	// Filter restricts the candidate documents.
	Filter astra.Filter
	// Lang is the query language ("all" disables language handling).
	Lang string
	// K is the number of distinct entities to return.
	K int
	// WithVectors includes the stored embedding on each candidate.
	WithVectors bool
	// WithText includes the stored text on each candidate.
	WithText bool
}

// VectorSearch retrieves entities by embedding similarity. Queries that
// name an entity directly resolve to that entity's stored vector; other
// queries are embedded, translating first when the query language is not
// covered by the store.
type VectorSearch struct {
	store       *astra.Client
	embedder    embed.Embedder
	translator  Translator
	texts       TextProvider
	nativeLangs []string
	log         *slog.Logger
}

// NewVectorSearch creates the vector retrieval channel. nativeLangs lists
// the languages present in the store; queries in those languages skip
// translation and filter on their language.
func NewVectorSearch(store *astra.Client, embedder embed.Embedder, translator Translator, texts TextProvider, nativeLangs []string) *VectorSearch {
	return &VectorSearch{
		store:       store,
		embedder:    embedder,
		translator:  translator,
		texts:       texts,
		nativeLangs: nativeLangs,
		log:         slog.Default().With(slog.String("channel", VectorChannel)),
	}
}

func (v *VectorSearch) isNative(lang string) bool {
	for _, l := range v.nativeLangs {
		if l == lang {
			return true
		}
	}
	return false
}

// Search returns up to opts.K distinct entities ranked by similarity to
// the query.
func (v *VectorSearch) Search(ctx context.Context, query string, opts VectorOptions) ([]Candidate, error) {
	if opts.K <= 0 {
		opts.K = vectorQueryLimit
	}

	out := []Candidate{}
	seen := make(map[string]struct{})
	var embedding []float32

	if IsEntityID(query) {
		doc, err := v.embeddingByID(ctx, query, opts.Lang, opts.WithText)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			// Not in the store. Render the entity as text and search
			// with that instead; an entity we cannot render yields no
			// results.
			text, err := v.texts.EntityText(ctx, query, opts.Lang)
			if err != nil {
				v.log.Debug("entity_text_unavailable",
					slog.String("id", query),
					slog.String("error", err.Error()))
				return []Candidate{}, nil
			}
			query = text
		} else {
			cand := Candidate{ID: query, Similarity: 1.0}
			if opts.WithVectors {
				cand.Vector = doc.Vector
			}
			if opts.WithText {
				cand.Text = doc.Content
			}
			out = append(out, cand)
			seen[query] = struct{}{}
			embedding = doc.Vector
		}
	}

	if embedding == nil {
		query = v.maybeTranslate(ctx, query, opts.Lang)

		var err error
		embedding, err = v.embedder.Embed(ctx, query, embed.TaskQuery)
		if err != nil {
			return nil, err
		}
	}

	filter := opts.Filter.Clone()
	if filter == nil {
		filter = astra.Filter{}
	}
	if v.isNative(opts.Lang) {
		filter["metadata.Language"] = opts.Lang
	}

	projection := map[string]int{"metadata": 1}
	if opts.WithText {
		projection["content"] = 1
	}
	if opts.WithVectors {
		projection["$vector"] = 1
	}

	docs, err := v.store.Find(ctx, astra.FindQuery{
		Filter:            filter,
		SortVector:        embedding,
		Projection:        projection,
		Limit:             vectorQueryLimit,
		IncludeSimilarity: true,
	})
	if err != nil {
		return nil, err
	}

	for _, doc := range docs {
		id := doc.Metadata.EntityID()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		cand := Candidate{ID: id, Similarity: doc.Similarity}
		if opts.WithVectors {
			cand.Vector = doc.Vector
		}
		if opts.WithText {
			cand.Text = doc.Content
		}
		out = append(out, cand)
		seen[id] = struct{}{}
		if len(seen) >= opts.K {
			break
		}
	}

	return out, nil
}

// maybeTranslate translates the query when its language is known and not
// covered by the store. On failure the original query is kept.
func (v *VectorSearch) maybeTranslate(ctx context.Context, query, lang string) string {
	if lang == "" || lang == "all" || v.isNative(lang) || v.translator == nil {
		return query
	}
	translated, err := v.translator.Translate(ctx, query, lang)
	if err != nil {
		v.log.Warn("query_translation_failed",
			slog.String("lang", lang),
			slog.String("error", err.Error()))
		return query
	}
	return translated
}

// SimilarityScores scores the given entities against the query. The store
// only returns nearest neighbors, so entities outside the first batch are
// fetched by retrying with the filter narrowed to the still-missing IDs
// until a retry yields nothing new.
func (v *VectorSearch) SimilarityScores(ctx context.Context, query string, ids []string, opts VectorOptions) ([]Candidate, error) {
	if len(ids) == 0 {
		return []Candidate{}, nil
	}

	results, err := v.Search(ctx, query, VectorOptions{
		Filter:      idFilter(ids),
		Lang:        opts.Lang,
		K:           vectorQueryLimit,
		WithVectors: opts.WithVectors,
		WithText:    opts.WithText,
	})
	if err != nil {
		return nil, err
	}

	for len(results) < len(ids) {
		found := make(map[string]struct{}, len(results))
		for _, r := range results {
			found[r.ID] = struct{}{}
		}
		remaining := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) == 0 {
			break
		}

		more, err := v.Search(ctx, query, VectorOptions{
			Filter:      idFilter(remaining),
			Lang:        opts.Lang,
			K:           vectorQueryLimit,
			WithVectors: opts.WithVectors,
			WithText:    opts.WithText,
		})
		if err != nil {
			return nil, err
		}
		if len(more) == 0 {
			break
		}
		results = append(results, more...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}

// idFilter matches documents whose QID or PID is in ids.
func idFilter(ids []string) astra.Filter {
	qids := make([]string, 0, len(ids))
	pids := make([]string, 0, len(ids))
	for _, id := range ids {
		if len(id) > 0 && id[0] == 'P' {
			pids = append(pids, id)
		} else {
			qids = append(qids, id)
		}
	}
	return astra.Filter{"$or": []astra.Filter{
		{"metadata.QID": astra.Filter{"$in": qids}},
		{"metadata.PID": astra.Filter{"$in": pids}},
	}}
}

// embeddingByID looks an entity up by its identifier, returning nil when
// it is not stored.
func (v *VectorSearch) embeddingByID(ctx context.Context, id, lang string, withText bool) (*astra.Document, error) {
	key := "metadata.QID"
	if len(id) > 0 && id[0] == 'P' {
		key = "metadata.PID"
	}
	filter := astra.Filter{key: id}
	if v.isNative(lang) {
		filter["metadata.Language"] = lang
	}

	projection := map[string]int{"metadata": 1, "$vector": 1}
	if withText {
		projection["content"] = 1
	}

	return v.store.FindOne(ctx, astra.FindQuery{
		Filter:     filter,
		Projection: projection,
	})
}
