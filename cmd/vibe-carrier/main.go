// Package main provides the vibe-carrier command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-carrier/internal/clinvar"
	"github.com/inodb/vibe-carrier/internal/genotype"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	envPrefix      = "VIBE_CARRIER"
	configFileName = ".vibe-carrier"
	dataDirName    = ".vibe-carrier"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return reportError(stderr, err)
	}
	return ExitSuccess
}

// app holds state shared by subcommands.
type app struct {
	cfgFile string
	verbose bool
	logger  *zap.Logger
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{logger: zap.NewNop(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "vibe-carrier",
		Short: "Pathogenic variant screening for consumer genotype files",
		Long: `vibe-carrier matches a consumer genotype file (23andMe, AncestryDNA and
similar exports) against an index of ClinVar pathogenic and likely
pathogenic variants and reports the calls consistent with carrying them.`,
		Example: `  # Fetch ClinVar and build the index (one-time setup)
  vibe-carrier download --build

  # Screen a genotype file
  vibe-carrier scan genome.txt

  # JSON output with an explicit index
  vibe-carrier scan --index clinvar_index.json.gz --format json genome.txt`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.cfgFile); err != nil {
				return err
			}
			a.logger = newLogger(a.stderr, a.verbose)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.vibe-carrier.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log progress at debug level")

	root.AddCommand(newScanCmd(a))
	root.AddCommand(newBuildIndexCmd(a))
	root.AddCommand(newConvertCmd(a))
	root.AddCommand(newDownloadCmd(a))
	root.AddCommand(newConfigCmd(a))

	return root
}

// initConfig wires viper to the config file and VIBE_CARRIER_* environment
// variables. A missing config file is not an error.
func initConfig(cfgFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("index", defaultIndexPath())
	viper.SetDefault("format", "tab")
	viper.SetDefault("workers", 0)
	viper.SetDefault("progress_every", 100000)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if cfgFile == "" && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds the console logger used by all commands. Logs go to
// stderr so that stdout carries only the report.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return zap.New(core)
}

// dataDir returns ~/.vibe-carrier, or "" when the home directory is unknown.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, dataDirName)
}

func defaultIndexPath() string {
	dir := dataDir()
	if dir == "" {
		return "clinvar_index.json.gz"
	}
	return filepath.Join(dir, "clinvar_index.json.gz")
}

// usageError marks errors caused by invalid invocation.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// usageArgs wraps a cobra argument validator so its failures exit with
// ExitUsage.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// reportError prints one message for err, plus a hint for the failure kinds
// a user can act on, and returns the exit code.
func reportError(w io.Writer, err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(w, "Error: %v\n", err)
		fmt.Fprintf(w, "Hint: Run 'vibe-carrier --help' for usage\n")
		return ExitUsage
	}

	switch {
	case errors.Is(err, clinvar.ErrIndexUnavailable):
		fmt.Fprintf(w, "Error: %v\n", err)
		fmt.Fprintf(w, "Hint: Build an index with: vibe-carrier download --build (or pass --index)\n")
	case errors.Is(err, genotype.ErrNoHeaderFound):
		fmt.Fprintf(w, "Error: %v\n", err)
		fmt.Fprintf(w, "Hint: The genotype file needs a header line starting with rsid, e.g. '# rsid chromosome position genotype'\n")
	case errors.Is(err, genotype.ErrMissingRequiredColumns):
		fmt.Fprintf(w, "Error: %v\n", err)
		fmt.Fprintf(w, "Hint: The header must name a genotype column or allele1 and allele2 columns\n")
	case errors.Is(err, genotype.ErrIO):
		fmt.Fprintf(w, "Error: cannot read genotype file: %v\n", err)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(w, "Hint: Check that the file path is correct\n")
		}
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return ExitError
}
