// Package main is the entry point for the deltime CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/flemzord/deltime/pkg/app"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deltime",
		Short:         "Delete files and directories on a schedule",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(
		versionCmd(),
		runCmd(),
		onceCmd(),
		configCmd(),
		serviceCmd(),
		mcpCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deltime %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler with the configured tasks (default)",
		Args:  cobra.NoArgs,
		RunE:  runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	return app.Run(cmd.Context(), baseParams(cmd))
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP protocol on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := baseParams(cmd)
			params.MCP = true
			params.Stdin = cmd.InOrStdin()
			params.Stdout = cmd.OutOrStdout()
			return app.Run(cmd.Context(), params)
		},
	}
}

// baseParams reads the persistent flags shared by every command that runs
// the scheduler.
func baseParams(cmd *cobra.Command) app.Params {
	cfgPath, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")
	return app.Params{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
		LogLevel:   level,
		Stderr:     cmd.ErrOrStderr(),
	}
}
