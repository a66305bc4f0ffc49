// Package main provides the entry point for the segtree CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/segtree/cmd/segtree/commands"
	"github.com/Sumatoshi-tech/segtree/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "segtree",
		Short: "Segment tree toolkit - range folds and searches over monoids",
		Long: `segtree builds array-backed segment trees over a choice of monoids and
answers range folds, point updates and monotone searches.

Commands:
  run       Execute a YAML/JSON tree script
  validate  Check scripts against the script schema
  query     Fold or search an inline tree
  plot      Chart a script's final tree as HTML
  mcp       Serve a tree workspace over the Model Context Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(commands.FlagConfig, "", "config file (default: ./segtree.yaml)")
	rootCmd.PersistentFlags().BoolP(commands.FlagVerbose, "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP(commands.FlagQuiet, "q", false, "suppress progress output")

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "segtree %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
