package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clausewise/clausewise/internal/chunk"
	"github.com/clausewise/clausewise/internal/config"
	"github.com/clausewise/clausewise/internal/extract"
	"github.com/clausewise/clausewise/internal/output"
	"github.com/clausewise/clausewise/internal/schema"
	"github.com/clausewise/clausewise/internal/segment"
	"github.com/clausewise/clausewise/internal/types"
)

var (
	inputFile    string
	outputFile   string
	documentName string
	schemaName   string
	chunked      bool
	modelFlag    string
	tempFlag     float64
	attemptsFlag int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a structured record from a document",
	Long: `Extract reads a text document, prompts the configured inference endpoint,
validates the response against the selected schema, and writes the result as
JSON. Exits non-zero if any extraction ends in failure.

With --chunked the document is segmented (prose/list/table), split into
model-sized chunks, and each chunk is extracted concurrently; the output is
a JSON array with one result per chunk.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&inputFile, "input-file", "", "path to the input text file (required)")
	extractCmd.Flags().StringVar(&outputFile, "output-file", "", "path for the output JSON file (required)")
	extractCmd.Flags().StringVar(&documentName, "document-name", "", "label for the source document (default: input file name)")
	extractCmd.Flags().StringVar(&schemaName, "schema", "", "target schema name (required, see 'clausewise schemas')")
	extractCmd.Flags().BoolVar(&chunked, "chunked", false, "segment and chunk the document, extracting per chunk")
	extractCmd.Flags().StringVar(&modelFlag, "model", "", "override the configured model")
	extractCmd.Flags().Float64Var(&tempFlag, "temperature", 0, "inference temperature")
	extractCmd.Flags().IntVar(&attemptsFlag, "max-attempts", 0, "override the repair loop attempt budget")

	_ = extractCmd.MarkFlagRequired("input-file")
	_ = extractCmd.MarkFlagRequired("output-file")
	_ = extractCmd.MarkFlagRequired("schema")
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return err
	}
	cfg := cm.Get()
	if modelFlag != "" {
		cfg.Endpoint.Model = modelFlag
	}
	if cmd.Flags().Changed("temperature") {
		cfg.Extraction.Temperature = tempFlag
	}
	if attemptsFlag > 0 {
		cfg.Extraction.MaxAttempts = attemptsFlag
	}

	registry, err := schema.Load()
	if err != nil {
		return err
	}

	text, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	name := documentName
	if name == "" {
		name = filepath.Base(inputFile)
	}

	extractor := extract.New(registry, cfg.NewClient(), cfg.ExtractorConfig(), logger)
	ctx := cmd.Context()

	if chunked {
		segments := segment.Split(string(text))
		chunks := chunk.Split(segments, cfg.Extraction.MaxChunkWords)
		if len(chunks) == 0 {
			return fmt.Errorf("document %s produced no chunks", name)
		}

		docs := make([]types.Document, len(chunks))
		for i, c := range chunks {
			docs[i] = types.Document{Name: fmt.Sprintf("%s#%d", name, i), Text: c}
		}

		logger.Info("extracting chunked document",
			"document", name, "schema", schemaName, "chunks", len(docs))

		results, err := extractor.ExtractBatch(ctx, docs, schemaName)
		if err != nil {
			return err
		}
		if err := output.WriteAll(outputFile, results); err != nil {
			return err
		}

		failed := 0
		for _, r := range results {
			if !r.Succeeded() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d chunk extractions failed", failed, len(results))
		}
		return nil
	}

	result, err := extractor.Extract(ctx, types.Document{Name: name, Text: string(text)}, schemaName)
	if err != nil {
		return err
	}
	if err := output.Write(outputFile, result); err != nil {
		return err
	}

	if !result.Succeeded() {
		return fmt.Errorf("extraction of %s did not converge: %s", name, result.Error)
	}
	logger.Info("result written", "path", outputFile, "document", name)
	return nil
}
