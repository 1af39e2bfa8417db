package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wikivec/wikivec/internal/search"
)

func newRenderCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "render <id>",
		Short: "Render an entity as readable text",
		Long: `Fetch an entity from the knowledge base and print its label,
description, aliases and claims as a single text blob, the same
rendering used for embedding and reranking.

Examples:
  wikivec render Q42
  wikivec render P31 --lang fr`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToUpper(strings.TrimSpace(args[0]))
			if !search.IsEntityID(id) {
				return fmt.Errorf("not an entity ID: %s", args[0])
			}
			return runRender(cmd, id, lang)
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "Label language")

	return cmd
}

func runRender(cmd *cobra.Command, id, lang string) error {
	texts, err := newTextifier()
	if err != nil {
		return err
	}

	text, err := texts.EntityText(cmd.Context(), id, lang)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("entity not found: %s", id)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
