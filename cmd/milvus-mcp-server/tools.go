package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/radutopala/milvus-mcp/internal/tools"
)

func newToolsCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools and their parameters",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := newApp(cmd.Context(), v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			var list []tools.Metadata
			for _, t := range a.dispatcher.Tools().List() {
				list = append(list, t.Metadata())
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			return printTools(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table.")

	return cmd
}

func printTools(w io.Writer, list []tools.Metadata) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, md := range list {
		fmt.Fprintf(tw, "%s\t%s\n", md.Name, md.Description)
		for _, p := range md.Parameters {
			var flags []string
			if p.Required {
				flags = append(flags, "required")
			}
			if p.Default != nil {
				flags = append(flags, fmt.Sprintf("default=%v", p.Default))
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", p.Name, p.Type, strings.Join(flags, " "))
		}
	}
	return tw.Flush()
}
