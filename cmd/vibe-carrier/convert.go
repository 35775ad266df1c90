package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-carrier/internal/duckdb"
	"github.com/inodb/vibe-carrier/internal/progress"
)

func newConvertCmd(a *app) *cobra.Command {
	var inputPath, outputPath string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a JSON index to DuckDB format or back",
		Long: `Convert an index artifact between the JSON (optionally gzipped) and DuckDB
formats. The direction follows the file extensions.`,
		Example: `  # JSON to DuckDB
  vibe-carrier convert -i clinvar_index.json.gz -o clinvar.duckdb

  # DuckDB back to gzipped JSON
  vibe-carrier convert -i clinvar.duckdb -o clinvar_index.json.gz`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(a, inputPath, outputPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input index artifact")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output index artifact")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runConvert(a *app, inputPath, outputPath string) error {
	if filepath.Clean(inputPath) == filepath.Clean(outputPath) {
		return usageError{fmt.Errorf("input and output are the same file: %s", inputPath)}
	}

	// Ensure a JSON input lands in DuckDB unless told otherwise.
	if !duckdb.IsArtifact(inputPath) && filepath.Ext(outputPath) == "" {
		outputPath += ".duckdb"
	}

	obs := progress.Throttle(progress.NewLogger(a.logger), 500000)
	idx, err := loadIndex(inputPath, false, obs, a.logger)
	if err != nil {
		return err
	}
	if len(idx) == 0 {
		a.logger.Warn("index is empty", zap.String("path", inputPath))
	}

	if err := writeIndex(idx, outputPath); err != nil {
		return err
	}

	p, l := idx.Counts()
	a.logger.Info("conversion complete",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Int("records", len(idx)),
		zap.Int("pathogenic", p),
		zap.Int("likely_pathogenic", l),
		zap.String("size", fileSize(outputPath)))
	return nil
}
