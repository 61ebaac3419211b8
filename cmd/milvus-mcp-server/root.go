package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/radutopala/milvus-mcp/internal/config"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)

	cmd := &cobra.Command{
		Use:          "milvus-mcp-server",
		Short:        "MCP server exposing Milvus collection tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(v, v.GetString("config"))
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug|info|warn|error.")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text|json.")
	cmd.PersistentFlags().String("log-file", "", "Log file path (default: stderr).")
	cmd.PersistentFlags().String("milvus-address", "localhost:19530", "Milvus address.")
	bindFlags(v, cmd, map[string]string{
		"config":         "config",
		"log-level":      "logging.level",
		"log-format":     "logging.format",
		"log-file":       "logging.file",
		"milvus-address": "milvus.address",
	}, true)

	cmd.AddCommand(newServeCmd(v))
	cmd.AddCommand(newToolsCmd(v))
	cmd.AddCommand(newCallCmd(v))

	return cmd
}

// bindFlags binds flag names to config keys. Unset flags fall through to the
// file, environment and defaults.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for flag, key := range keys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}
