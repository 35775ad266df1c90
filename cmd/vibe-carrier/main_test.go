package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// runCLI runs the command line in an isolated home directory.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"INDEX", "FORMAT", "WORKERS", "PROGRESS_EVERY"} {
		t.Setenv("VIBE_CARRIER_"+k, "")
		os.Unsetenv("VIBE_CARRIER_" + k)
	}
	return home
}

func testdataPath(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

// buildSampleIndex builds an index from the sample ClinVar VCF.
func buildSampleIndex(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	code, _, stderr := runCLI(t, "build-index", "-o", path, testdataPath("clinvar_sample.vcf"))
	require.Equal(t, ExitSuccess, code, stderr)
	return path
}

func TestScan_TabOutput(t *testing.T) {
	setupHome(t)
	index := buildSampleIndex(t, "clinvar_index.json.gz")

	code, stdout, stderr := runCLI(t, "scan", "--index", index, testdataPath("genome_sample.txt"))
	require.Equal(t, ExitSuccess, code, stderr)

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#rsid\t"))
	assert.True(t, strings.HasPrefix(lines[1], "rs4988235\tAG\t2:136608646\tMCM6\tLactose intolerance\tPathogenic\t"))
	assert.True(t, strings.HasPrefix(lines[2], "rs113993960\tGT\t7:117559590\tCFTR\tCystic fibrosis\tLikely pathogenic\t"))
	assert.Contains(t, lines[2], "Alt/Alt")

	// Decoded index is cached next to the artifact.
	_, err := os.Stat(index + ".gob")
	assert.NoError(t, err)
}

func TestScan_CachedIndexGivesSameOutput(t *testing.T) {
	setupHome(t)
	index := buildSampleIndex(t, "clinvar_index.json")

	_, first, _ := runCLI(t, "scan", "--index", index, testdataPath("genome_sample.txt"))
	code, second, stderr := runCLI(t, "scan", "--index", index, testdataPath("genome_sample.txt"))
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, first, second)
	assert.Contains(t, stderr, "loaded cached clinvar index")
}

func TestScan_JSONOutput(t *testing.T) {
	setupHome(t)
	index := buildSampleIndex(t, "clinvar_index.json.gz")
	out := filepath.Join(t.TempDir(), "findings.json")

	code, _, stderr := runCLI(t, "scan", "--index", index, "--format", "json", "--workers", "4", "-o", out, testdataPath("genome_sample.txt"))
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var got struct {
		Total            int `json:"total"`
		Pathogenic       int `json:"pathogenic"`
		LikelyPathogenic int `json:"likely_pathogenic"`
		Findings         []struct {
			RSID     string `json:"rsid"`
			Zygosity string `json:"zygosity"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Pathogenic)
	assert.Equal(t, 1, got.LikelyPathogenic)
	require.Len(t, got.Findings, 2)
	assert.Equal(t, "rs4988235", got.Findings[0].RSID)
	assert.Equal(t, "Ref/Alt", got.Findings[0].Zygosity)
}

func TestScan_DuckDBIndex(t *testing.T) {
	setupHome(t)
	jsonIndex := buildSampleIndex(t, "clinvar_index.json.gz")
	duckIndex := buildSampleIndex(t, "clinvar.duckdb")

	_, fromJSON, _ := runCLI(t, "scan", "--no-cache", "--index", jsonIndex, testdataPath("genome_sample.txt"))
	code, fromDuck, stderr := runCLI(t, "scan", "--index", duckIndex, testdataPath("genome_sample.txt"))
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, fromJSON, fromDuck)
}

func TestScan_ConfigFromEnvironment(t *testing.T) {
	setupHome(t)
	index := buildSampleIndex(t, "clinvar_index.json.gz")
	t.Setenv("VIBE_CARRIER_INDEX", index)
	t.Setenv("VIBE_CARRIER_FORMAT", "json")

	code, stdout, stderr := runCLI(t, "scan", testdataPath("genome_sample.txt"))
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, `"total": 2`)
}

func TestScan_MissingIndex(t *testing.T) {
	setupHome(t)

	code, _, stderr := runCLI(t, "scan", "--index", filepath.Join(t.TempDir(), "missing.json"), testdataPath("genome_sample.txt"))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "clinvar index unavailable")
	assert.Contains(t, stderr, "Hint: Build an index")
}

func TestScan_GenotypeErrors(t *testing.T) {
	setupHome(t)
	index := buildSampleIndex(t, "clinvar_index.json.gz")
	dir := t.TempDir()

	noHeader := filepath.Join(dir, "no_header.txt")
	require.NoError(t, os.WriteFile(noHeader, []byte("rs1\t1\t100\tAG\n"), 0644))

	noGenotype := filepath.Join(dir, "no_genotype.txt")
	require.NoError(t, os.WriteFile(noGenotype, []byte("rsid\tchromosome\tposition\nrs1\t1\t100\n"), 0644))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"no header", noHeader, "header line starting with rsid"},
		{"missing columns", noGenotype, "genotype column"},
		{"missing file", filepath.Join(dir, "missing.txt"), "Check that the file path is correct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, "scan", "--index", index, tt.path)
			assert.Equal(t, ExitError, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestScan_UsageErrors(t *testing.T) {
	setupHome(t)

	code, _, _ := runCLI(t, "scan")
	assert.Equal(t, ExitUsage, code)

	code, _, stderr := runCLI(t, "scan", "--format", "html", testdataPath("genome_sample.txt"))
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "unknown output format")

	code, _, _ = runCLI(t, "scan", "--no-such-flag", "x")
	assert.Equal(t, ExitUsage, code)
}

func TestConvert_JSONToDuckDB(t *testing.T) {
	setupHome(t)
	index := buildSampleIndex(t, "clinvar_index.json.gz")
	out := filepath.Join(t.TempDir(), "clinvar")

	code, _, stderr := runCLI(t, "convert", "-i", index, "-o", out)
	require.Equal(t, ExitSuccess, code, stderr)

	_, err := os.Stat(out + ".duckdb")
	require.NoError(t, err)

	code, stdout, stderr := runCLI(t, "scan", "--index", out+".duckdb", testdataPath("genome_sample.txt"))
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "rs4988235")
}

func TestConfig_SetAndGet(t *testing.T) {
	home := setupHome(t)

	code, stdout, stderr := runCLI(t, "config", "set", "workers", "3")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Set workers = 3")

	_, err := os.Stat(filepath.Join(home, ".vibe-carrier.yaml"))
	require.NoError(t, err)

	code, stdout, stderr = runCLI(t, "config", "get", "workers")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "3\n", stdout)

	code, _, _ = runCLI(t, "config", "set", "format", "html")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = runCLI(t, "config", "set", "colour", "blue")
	assert.Equal(t, ExitUsage, code)
}

func TestConfig_Show(t *testing.T) {
	home := setupHome(t)

	code, stdout, stderr := runCLI(t, "config", "show")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "# No config file found, showing defaults.")
	assert.Contains(t, stdout, "format: tab")

	code, _, stderr = runCLI(t, "config", "set", "format", "json")
	require.Equal(t, ExitSuccess, code, stderr)

	code, stdout, stderr = runCLI(t, "config", "show")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "# Config file: "+home)
	assert.Contains(t, stdout, "format: json")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}

func TestClinvarVCFURL(t *testing.T) {
	assert.Equal(t, "https://ftp.ncbi.nlm.nih.gov/pub/clinvar/vcf_GRCh38/clinvar.vcf.gz", clinvarVCFURL("GRCh38"))
	assert.Equal(t, "https://ftp.ncbi.nlm.nih.gov/pub/clinvar/vcf_GRCh37/clinvar.vcf.gz", clinvarVCFURL("grch37"))
}

func TestDownloadFile(t *testing.T) {
	body := []byte("##fileformat=VCFv4.1\n")
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/clinvar.vcf.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "clinvar.vcf.gz")
	require.NoError(t, downloadFile(context.Background(), zap.NewNop(), srv.URL+"/clinvar.vcf.gz", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	// Existing files are not fetched again.
	require.NoError(t, downloadFile(context.Background(), zap.NewNop(), srv.URL+"/clinvar.vcf.gz", dest))
	assert.Equal(t, 1, requests)

	err = downloadFile(context.Background(), zap.NewNop(), srv.URL+"/missing", filepath.Join(t.TempDir(), "x"))
	assert.ErrorContains(t, err, "404")
}
