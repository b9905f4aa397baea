package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	catalog    string
	modelsDir  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "chatd",
		Short:         "Local chat with on-device language models",
		Long:          "chatd loads GGUF chat models locally and streams replies to a terminal or WebSocket client.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", os.Getenv("CHATD_CONFIG"), "path to a YAML, JSON or TOML config file")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&g.catalog, "catalog", "", "extra catalog file of model descriptors")
	pf.StringVar(&g.modelsDir, "models-dir", "", "directory to scan for *.gguf model files")

	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newChatCmd(g))
	cmd.AddCommand(newModelsCmd(g))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatd %s (commit: %s)\n", Version, Commit)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
