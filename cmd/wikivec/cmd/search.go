package cmd

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wikivec/wikivec/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit      int
	lang       string
	vectorK    int
	keywordK   int
	rerank     bool
	vectors    bool
	items      bool
	properties bool
	instanceOf []string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search over the entity vector store",
		Long: `Run vector and keyword retrieval concurrently for the query,
fuse both ranked lists with Reciprocal Rank Fusion, and print the
results as JSON.

A query matching an entity ID (Q42, P31) is treated as a direct
lookup of that entity's stored vector.

Examples:
  wikivec search "douglas adams"
  wikivec search "capital of france" --lang en --limit 10
  wikivec search "programming language" --items --rerank
  wikivec search Q42`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default 50)")
	cmd.Flags().StringVarP(&opts.lang, "lang", "l", "all", "Query language, or 'all'")
	cmd.Flags().IntVar(&opts.vectorK, "vector-k", 0, "Vector channel depth (default: limit)")
	cmd.Flags().IntVar(&opts.keywordK, "keyword-k", 0, "Keyword channel depth (default: limit/10)")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Rerank fused results with the cross-encoder")
	cmd.Flags().BoolVar(&opts.vectors, "vectors", false, "Include stored embeddings in the output")
	cmd.Flags().BoolVar(&opts.items, "items", false, "Restrict to items (Q-entities)")
	cmd.Flags().BoolVar(&opts.properties, "properties", false, "Restrict to properties (P-entities)")
	cmd.Flags().StringSliceVar(&opts.instanceOf, "instance-of", nil,
		"Restrict to entities that are instances of the given QIDs (repeatable)")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	slog.Debug("search_started",
		slog.String("query", query),
		slog.String("lang", opts.lang),
		slog.Bool("rerank", opts.rerank))

	results, err := app.engine.Search(cmd.Context(), query, search.Options{
		Filter:        entityFilter(opts.items, opts.properties, opts.instanceOf),
		Lang:          opts.lang,
		Limit:         opts.limit,
		VectorK:       opts.vectorK,
		KeywordK:      opts.keywordK,
		Rerank:        opts.rerank,
		ReturnVectors: opts.vectors,
	})
	if err != nil {
		return err
	}
	logQueryMetrics(slog.Default(), app.metrics.Snapshot())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
