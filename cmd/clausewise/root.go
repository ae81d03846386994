package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/clausewise/clausewise/version"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "clausewise",
	Short: "Structured data extraction from compliance documents via a local LLM",
	Long: `Clausewise extracts structured, schema-conformant records (entities,
clauses, obligations) from unstructured compliance documents by prompting an
LLM behind an OpenAI-compatible inference endpoint and validating its output
against a declared schema.

Malformed or schema-violating model output is repaired through a bounded
retry loop that feeds prior failures back into the next prompt.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.clausewise/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn, error",
	)

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger from the --log-level flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
