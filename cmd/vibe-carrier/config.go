package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKeys lists the settings vibe-carrier reads.
var configKeys = map[string]string{
	"index":          "ClinVar index artifact used by scan",
	"format":         "Default scan output format (tab or json)",
	"workers":        "Matching goroutines (0 = number of CPUs)",
	"progress_every": "Records between progress log lines",
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-carrier configuration",
		Long: `Show, get, or set configuration values. Config is stored in ~/.vibe-carrier.yaml.
Every key can also be set through a VIBE_CARRIER_<KEY> environment variable.`,
		Example: `  vibe-carrier config                          # show all config
  vibe-carrier config set index ~/clinvar.duckdb  # use a DuckDB index
  vibe-carrier config get workers                 # get a value`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(a)
		},
	}

	cmd.AddCommand(newConfigSetCmd(a))
	cmd.AddCommand(newConfigGetCmd(a))

	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(a, args[0], args[1])
		},
	}
}

func newConfigGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(a, args[0])
		},
	}
}

func runConfigShow(a *app) error {
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(a.stdout, "# Config file: %s\n", used)
	} else {
		fmt.Fprintln(a.stdout, "# No config file found, showing defaults. Config file: ~/.vibe-carrier.yaml")
	}

	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(a.stdout, string(out))
	return nil
}

func runConfigSet(a *app, key, value string) error {
	if _, ok := configKeys[key]; !ok {
		return usageError{fmt.Errorf("unknown config key %q", key)}
	}

	switch key {
	case "workers", "progress_every":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return usageError{fmt.Errorf("%s must be a non-negative integer, got %q", key, value)}
		}
		viper.Set(key, n)
	case "format":
		if value != "tab" && value != "json" {
			return usageError{fmt.Errorf("format must be tab or json, got %q", value)}
		}
		viper.Set(key, value)
	default:
		viper.Set(key, value)
	}

	// Ensure config file exists
	cfgFile := a.cfgFile
	if cfgFile == "" {
		cfgFile = viper.ConfigFileUsed()
	}
	if cfgFile == "" {
		dir := filepath.Dir(dataDir())
		if dataDir() == "" {
			return fmt.Errorf("cannot determine home directory")
		}
		cfgFile = filepath.Join(dir, configFileName+".yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(a.stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(a *app, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(a.stdout, val)
	return nil
}
