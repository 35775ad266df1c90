package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-carrier/internal/clinvar"
	"github.com/inodb/vibe-carrier/internal/duckdb"
	"github.com/inodb/vibe-carrier/internal/progress"
	"github.com/inodb/vibe-carrier/internal/vcf"
)

func newBuildIndexCmd(a *app) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "build-index <clinvar.vcf[.gz]>",
		Short: "Build the pathogenic variant index from a ClinVar VCF",
		Long: `Read a ClinVar VCF release and keep the pathogenic and likely pathogenic
single-nucleotide records that carry an rsID. The index is written as
JSON (.json), gzipped JSON (.json.gz) or DuckDB (.duckdb/.db) depending
on the output extension.`,
		Example: `  vibe-carrier build-index clinvar.vcf.gz
  vibe-carrier build-index -o clinvar.duckdb clinvar.vcf.gz`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputPath == "" {
				outputPath = defaultIndexPath()
			}
			_, err := buildIndex(a, args[0], outputPath)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output index (default: ~/.vibe-carrier/clinvar_index.json.gz)")

	return cmd
}

// buildIndex converts the ClinVar VCF at vcfPath into an index artifact.
func buildIndex(a *app, vcfPath, outputPath string) (clinvar.BuildStats, error) {
	parser, err := vcf.NewParser(vcfPath)
	if err != nil {
		return clinvar.BuildStats{}, fmt.Errorf("open ClinVar VCF: %w", err)
	}
	defer parser.Close()

	b := clinvar.NewBuilder(progress.Throttle(progress.NewLogger(a.logger), 500000))
	b.SetLogger(a.logger)
	idx, stats, err := b.Build(parser)
	if err != nil {
		return stats, err
	}

	if err := writeIndex(idx, outputPath); err != nil {
		return stats, err
	}

	a.logger.Info("wrote clinvar index",
		zap.String("path", outputPath),
		zap.Int("keys", stats.Keys),
		zap.String("size", fileSize(outputPath)))
	return stats, nil
}

// writeIndex writes idx to path in the format implied by its extension.
func writeIndex(idx clinvar.Index, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if duckdb.IsArtifact(path) {
		return writeDuckDBIndex(idx, path)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	err = clinvar.WriteJSON(w, idx)
	if gz != nil {
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

func writeDuckDBIndex(idx clinvar.Index, path string) error {
	// Start from an empty database file.
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove existing index: %w", err)
		}
	}

	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	if err := store.WriteIndex(idx); err != nil {
		store.Close()
		return fmt.Errorf("write duckdb index: %w", err)
	}
	return store.Close()
}
