package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"chatd/internal/assets"
	"chatd/internal/client"
	"chatd/internal/config"
	"chatd/pkg/types"
)

func newModelsCmd(g *globalFlags) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the selectable models",
		RunE: func(cmd *cobra.Command, args []string) error {
			var models []types.ModelDescriptor
			if remote != "" {
				m, err := client.FetchModels(cmd.Context(), remote)
				if err != nil {
					return err
				}
				models = m
			} else {
				cfg, err := loadConfig(g, config.Config{})
				if err != nil {
					return err
				}
				cat, err := buildCatalog(cfg, newLogger(cmd.ErrOrStderr(), cfg.LogLevel))
				if err != nil {
					return err
				}
				models = cat.Models()
			}
			return printModels(cmd.OutOrStdout(), models)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "list the models of a chatd server instead")
	return cmd
}

func printModels(w io.Writer, models []types.ModelDescriptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCONTEXT\tREASONING\tSOURCE\tURL")
	for _, m := range models {
		ctx := "-"
		if m.ContextSize > 0 {
			ctx = fmt.Sprint(m.ContextSize)
		}
		reasoning := ""
		if m.HasReasoningBlocks {
			reasoning = "yes"
		}
		source := "local"
		if assets.IsRemote(m.URL) {
			source = "remote"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, ctx, reasoning, source, m.URL)
	}
	return tw.Flush()
}
