package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ClinVar FTP URLs
const clinvarBaseURL = "https://ftp.ncbi.nlm.nih.gov/pub/clinvar"

// clinvarVCFURL returns the weekly ClinVar VCF URL for the given assembly.
func clinvarVCFURL(assembly string) string {
	switch strings.ToUpper(assembly) {
	case "GRCH37":
		return clinvarBaseURL + "/vcf_GRCh37/clinvar.vcf.gz"
	default:
		return clinvarBaseURL + "/vcf_GRCh38/clinvar.vcf.gz"
	}
}

func newDownloadCmd(a *app) *cobra.Command {
	var (
		assembly  string
		outputDir string
		build     bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the ClinVar VCF release",
		Long: `Download the current ClinVar VCF release from NCBI into ~/.vibe-carrier/
and optionally build the index from it.`,
		Example: `  # Download GRCh38 ClinVar and build the default index
  vibe-carrier download --build

  # Download GRCh37 ClinVar to a custom directory
  vibe-carrier download --assembly GRCh37 --output /data/clinvar`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), a, assembly, outputDir, build, force)
		},
	}

	cmd.Flags().StringVar(&assembly, "assembly", "GRCh38", "Genome assembly: GRCh37 or GRCh38")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: ~/.vibe-carrier/)")
	cmd.Flags().BoolVar(&build, "build", false, "Build the index after downloading")
	cmd.Flags().BoolVar(&force, "force", false, "Download even if the file already exists")

	return cmd
}

func runDownload(ctx context.Context, a *app, assembly, outputDir string, build, force bool) error {
	switch strings.ToUpper(assembly) {
	case "GRCH37", "GRCH38":
	default:
		return usageError{fmt.Errorf("unknown assembly %q (use GRCh37 or GRCh38)", assembly)}
	}

	if outputDir == "" {
		outputDir = dataDir()
		if outputDir == "" {
			return fmt.Errorf("cannot determine home directory; pass --output")
		}
	}
	destDir := filepath.Join(outputDir, strings.ToLower(assembly))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", destDir, err)
	}

	url := clinvarVCFURL(assembly)
	vcfPath := filepath.Join(destDir, filepath.Base(url))
	if force {
		os.Remove(vcfPath)
	}

	a.logger.Info("downloading ClinVar", zap.String("assembly", assembly), zap.String("destination", destDir))
	if err := downloadFile(ctx, a.logger, url, vcfPath); err != nil {
		return fmt.Errorf("download ClinVar VCF: %w", err)
	}

	if !build {
		fmt.Fprintf(a.stdout, "Downloaded %s\n", vcfPath)
		fmt.Fprintf(a.stdout, "To build the index, run:\n  vibe-carrier build-index %s\n", vcfPath)
		return nil
	}

	indexPath := viper.GetString("index")
	if indexPath == "" {
		indexPath = defaultIndexPath()
	}
	stats, err := buildIndex(a, vcfPath, indexPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Built %s: %d identifiers from %d ClinVar records\n", indexPath, stats.Keys, stats.Variants)
	return nil
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(ctx context.Context, logger *zap.Logger, url, destPath string) error {
	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil {
		logger.Info("file already exists, skipping",
			zap.String("file", filepath.Base(destPath)),
			zap.String("size", formatSize(info.Size())))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	client := &http.Client{
		Timeout: 30 * time.Minute, // ClinVar releases are large
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{
		logger:    logger,
		total:     resp.ContentLength,
		lastPrint: time.Now(),
	}
	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	logger.Info("download complete",
		zap.String("file", filepath.Base(destPath)),
		zap.String("size", formatSize(pw.downloaded)))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	logger     *zap.Logger
	total      int64
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > 5*time.Second {
		fields := []zap.Field{zap.String("downloaded", formatSize(pw.downloaded))}
		if pw.total > 0 {
			fields = append(fields,
				zap.String("total", formatSize(pw.total)),
				zap.String("percent", fmt.Sprintf("%.1f", float64(pw.downloaded)/float64(pw.total)*100)))
		}
		pw.logger.Info("downloading", fields...)
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// fileSize returns the formatted size of path, or "unknown".
func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown"
	}
	return formatSize(info.Size())
}
