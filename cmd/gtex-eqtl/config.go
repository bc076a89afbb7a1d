package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/gtex-eqtl/internal/eqtl"
)

const (
	defaultAssembly   = eqtl.DefaultAssembly
	defaultRsIDColumn = eqtl.DefaultRsIDColumn
)

type configKey struct {
	key   string
	value any
	help  string
}

// configKeys lists the settable keys with their defaults.
var configKeys = []configKey{
	{"assembly", defaultAssembly, "assembly label used in coordinate dcids"},
	{"columns.egenes_rsid", defaultRsIDColumn, "egenes column holding comma-separated rsIDs"},
	{"cache.rsid_db", "", "DuckDB file reused across runs for the rsID lookup"},
	{"cache.gene_snapshot", "", "file keeping the parsed gene lookup between runs"},
	{"log.level", "info", "debug, info, warn or error"},
	{"log.format", "console", "console or json"},
	{"workers", 0, "batch worker count (0: number of CPUs)"},
}

func setDefaults() {
	for _, k := range configKeys {
		viper.SetDefault(k.key, k.value)
	}
}

func isConfigKey(key string) bool {
	return slices.ContainsFunc(configKeys, func(k configKey) bool { return k.key == key })
}

func configKeyHelp() string {
	var b strings.Builder
	for _, k := range configKeys {
		fmt.Fprintf(&b, "  %-22s %s\n", k.key, k.help)
	}
	return b.String()
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gtex-eqtl configuration",
		Long: "Show, get, or set configuration values. Config is stored in ~/" + configName + ".yaml.\n" +
			"Every key can also be set with a GTEX_EQTL_ environment variable (e.g. GTEX_EQTL_CACHE_RSID_DB).\n\n" +
			"Keys:\n" + configKeyHelp(),
		Example: `  gtex-eqtl config                                  # show effective config
  gtex-eqtl config set cache.rsid_db ~/gtex/rsids.duckdb  # keep the rsID lookup between runs
  gtex-eqtl config get assembly                       # get a value`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	settings := make(map[string]any, len(configKeys))
	for _, k := range configKeys {
		settings[k.key] = viper.Get(k.key)
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", f)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	if !isConfigKey(key) {
		return &usageError{fmt.Errorf("unknown config key %q", key)}
	}
	if key == "workers" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return &usageError{fmt.Errorf("workers must be a non-negative integer, got %q", value)}
		}
		viper.Set(key, n)
	} else {
		viper.Set(key, value)
	}

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		var err error
		if cfgFile, err = defaultConfigPath(); err != nil {
			return err
		}
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}
