package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wikivec/wikivec/internal/search"
)

func newSimilarCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "similar <query> <id>...",
		Short: "Score entities against a query",
		Long: `Embed the query and print the cosine similarity of each given
entity, ordered best first. Entities missing from the vector store
are omitted.

Example:
  wikivec similar "science fiction author" Q42 Q3107329 P800`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			ids := make([]string, 0, len(args)-1)
			for _, id := range args[1:] {
				id = strings.ToUpper(strings.TrimSpace(id))
				if !search.IsEntityID(id) {
					return fmt.Errorf("not an entity ID: %s", id)
				}
				ids = append(ids, id)
			}
			return runSimilar(cmd, query, ids, lang)
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "all", "Query language, or 'all'")

	return cmd
}

func runSimilar(cmd *cobra.Command, query string, ids []string, lang string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	scores, err := app.vector.SimilarityScores(cmd.Context(), query, ids, search.VectorOptions{
		Lang: lang,
	})
	if err != nil {
		return err
	}

	type scoredEntity struct {
		ID         string  `json:"id"`
		Similarity float64 `json:"similarity_score"`
	}
	out := make([]scoredEntity, 0, len(scores))
	for _, s := range scores {
		out = append(out, scoredEntity{ID: s.ID, Similarity: s.Similarity})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
