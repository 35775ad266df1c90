package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-carrier/internal/clinvar"
	"github.com/inodb/vibe-carrier/internal/duckdb"
	"github.com/inodb/vibe-carrier/internal/genotype"
	"github.com/inodb/vibe-carrier/internal/match"
	"github.com/inodb/vibe-carrier/internal/output"
	"github.com/inodb/vibe-carrier/internal/progress"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		outputFile string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "scan <genotype-file>",
		Short: "Report pathogenic variants carried in a genotype file",
		Long: `Match a consumer genotype file against the ClinVar index and report every
call consistent with carrying a pathogenic or likely pathogenic allele.

The index may be a JSON artifact (optionally gzipped) or a DuckDB artifact
(.duckdb/.db). Decoded JSON indexes are cached next to the artifact and
reused until the artifact changes.`,
		Example: `  vibe-carrier scan genome.txt
  vibe-carrier scan --format json -o findings.json genome.txt
  vibe-carrier scan --index clinvar.duckdb --workers 8 genome.txt.gz
  cat genome.txt | vibe-carrier scan -`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(a, args[0], outputFile, !noCache)
		},
	}

	cmd.Flags().String("index", "", "ClinVar index artifact (default: ~/.vibe-carrier/clinvar_index.json.gz)")
	cmd.Flags().StringP("format", "f", "tab", "Output format: tab, json")
	cmd.Flags().Int("workers", 0, "Matching goroutines (0 = number of CPUs)")
	cmd.Flags().Int("progress-every", 100000, "Records between progress log lines")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not read or write the decoded index cache")

	// Flags are bound when the command runs so that only the executing
	// command's flags override config and environment values.
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		for key, flag := range map[string]string{
			"index":          "index",
			"format":         "format",
			"workers":        "workers",
			"progress_every": "progress-every",
		} {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
		}
		return nil
	}

	return cmd
}

func runScan(a *app, genotypePath, outputFile string, useCache bool) error {
	indexPath := viper.GetString("index")
	format := viper.GetString("format")
	workers := viper.GetInt("workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Validate the format before doing any work.
	if output.NewSummaryWriter(format, io.Discard) == nil {
		return usageError{fmt.Errorf("unknown output format %q (use tab or json)", format)}
	}

	obs := progress.Throttle(progress.NewLogger(a.logger), viper.GetInt("progress_every"))

	var (
		idx clinvar.Index
		gts genotype.Genotypes
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		idx, err = loadIndex(indexPath, useCache, obs, a.logger)
		return err
	})
	g.Go(func() error {
		p := genotype.NewParser(obs)
		p.SetLogger(a.logger)
		var err error
		gts, err = p.ParseFile(genotypePath)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	findings := match.NewMatcher(
		match.WithWorkers(workers),
		match.WithObserver(obs),
		match.WithLogger(a.logger),
	).Match(idx, gts)
	summary := match.Summarize(findings)

	out := a.stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w := output.NewSummaryWriter(format, out)
	if err := w.WriteSummary(summary); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	a.logger.Info("scan complete",
		zap.Int("findings", summary.Total),
		zap.Int("pathogenic", summary.Pathogenic),
		zap.Int("likely_pathogenic", summary.LikelyPathogenic))
	return nil
}

// loadIndex loads a DuckDB or JSON index artifact. Decoded JSON artifacts
// are cached as gob next to the source and reused while the source
// fingerprint is unchanged.
func loadIndex(path string, useCache bool, obs progress.Observer, logger *zap.Logger) (clinvar.Index, error) {
	if duckdb.IsArtifact(path) {
		idx, err := duckdb.LoadFile(path, obs)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded clinvar index", zap.String("path", path), zap.Int("records", len(idx)))
		return idx, nil
	}

	loader := clinvar.NewLoader(obs)
	loader.SetLogger(logger)
	if !useCache || path == "-" {
		return loader.LoadFile(path)
	}

	fp, err := duckdb.StatFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clinvar.ErrIndexUnavailable, err)
	}

	ic := duckdb.NewIndexCache(path)
	if ic.Valid(fp) {
		idx, err := ic.Load()
		if err == nil {
			obs.Progress(progress.StageIndex, len(idx), true)
			logger.Info("loaded cached clinvar index", zap.String("path", path), zap.Int("records", len(idx)))
			return idx, nil
		}
		logger.Warn("index cache unreadable, reloading", zap.Error(err))
	}

	idx, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ic.Write(idx, fp); err != nil {
		logger.Warn("could not write index cache", zap.Error(err))
	}
	return idx, nil
}
