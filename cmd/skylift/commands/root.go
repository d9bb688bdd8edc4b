package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "skylift",
		Short: "Skylift - Cloud Foundry deployment adapter",
		Long: `Skylift deploys long-running applications, launches one-off tasks, and
manages recurring schedules on Cloud Foundry.

Features:
  - Declarative app push via space manifests
  - Package staging and task execution against the v3 API
  - Cron schedules through the scheduler service
  - Status queries with bounded retry and state aggregation`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "skylift.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newUndeployCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newTaskCommand())
	rootCmd.AddCommand(newScheduleCommand())

	return rootCmd
}
