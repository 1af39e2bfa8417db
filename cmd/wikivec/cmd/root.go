// Package cmd provides the CLI commands for wikivec.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wikivec/wikivec/internal/logging"
	"github.com/wikivec/wikivec/pkg/version"
)

var (
	debugMode      bool
	logLevel       string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the wikivec CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikivec",
		Short: "Hybrid semantic and keyword search over Wikidata",
		Long: `wikivec searches a vector database of embedded Wikidata entities.

Vector and keyword retrieval run concurrently and are fused with
Reciprocal Rank Fusion; results can optionally be reranked by a
cross-encoder. Entities can also be rendered as readable text.

Credentials come from the environment:
  ASTRA_DB_APPLICATION_TOKEN, ASTRA_DB_API_ENDPOINT, JINA_API_KEY`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("wikivec version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false,
		"Enable debug logging to ~/.wikivec/logs/")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = teardownLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSimilarCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	if debugMode {
		cleanup, err := logging.SetupDefault()
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.Info("debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()))
		return nil
	}

	slog.SetDefault(logging.NewCLILogger(logLevel))
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), formatError(err))
		return err
	}
	return nil
}
