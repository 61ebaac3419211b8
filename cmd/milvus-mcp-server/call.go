package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/radutopala/milvus-mcp/internal/config"
	"github.com/radutopala/milvus-mcp/internal/dispatch"
	"github.com/radutopala/milvus-mcp/internal/logging"
	"github.com/radutopala/milvus-mcp/internal/mcpclient"
)

func newCallCmd(v *viper.Viper) *cobra.Command {
	var (
		toolName string
		rawArgs  string
		command  string
		url      string
	)

	cmd := &cobra.Command{
		Use:   "call --tool NAME [--args JSON] (--command BIN | --url URL) [-- BIN_ARGS...]",
		Short: "Call a tool on a running or spawned server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger, closer, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			arguments := map[string]any{}
			if strings.TrimSpace(rawArgs) != "" {
				if err := json.Unmarshal([]byte(rawArgs), &arguments); err != nil {
					return fmt.Errorf("--args must be a JSON object: %w", err)
				}
			}

			if command == "" && url == "" {
				return fmt.Errorf("one of --command or --url is required")
			}
			client, err := mcpclient.NewMCPClient(cmd.Context(), "milvus-mcp", mcpclient.ServerConfig{
				Command: command,
				Args:    args,
				URL:     url,
			}, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.CallTool(cmd.Context(), toolName, arguments)
			var derr *dispatch.Error
			if errors.As(err, &derr) {
				body, _ := json.Marshal(map[string]any{"error": derr})
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return derr
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&toolName, "tool", "", "Tool name.")
	cmd.Flags().StringVar(&rawArgs, "args", "", "Tool arguments as a JSON object.")
	cmd.Flags().StringVar(&command, "command", "", "Server binary to spawn over stdio.")
	cmd.Flags().StringVar(&url, "url", "", "Streamable HTTP endpoint of a running server.")
	_ = cmd.MarkFlagRequired("tool")

	return cmd
}
