package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skylift/skylift/pkg/deployer"
)

func newTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "One-off task execution",
		Long: `Launch, cancel, and inspect one-off tasks.

A task runs the staged droplet's start command to completion on a fresh
container. Repeated launches of the same definition reuse the staged
application.`,
	}

	cmd.AddCommand(newTaskLaunchCommand())
	cmd.AddCommand(newTaskCancelCommand())
	cmd.AddCommand(newTaskStatusCommand())

	return cmd
}

func newTaskLaunchCommand() *cobra.Command {
	var (
		name       string
		bitsPath   string
		properties []string
		taskArgs   []string
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch a one-off task",
		Example: `  # Launch a batch job
  skylift task launch --name report-task --bits ./report.jar --arg --batch.size=100

  # Launch with bound services
  skylift task launch --name report-task --bits ./report.jar \
    --property cf.services=postgres`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			props, err := parseProperties(properties)
			if err != nil {
				return err
			}
			req := &deployer.Request{
				Definition:           deployer.Definition{Name: name},
				DeploymentProperties: props,
				Args:                 taskArgs,
			}
			if bitsPath != "" {
				f, err := os.Open(bitsPath)
				if err != nil {
					return fmt.Errorf("opening artifact: %w", err)
				}
				defer f.Close()
				req.Bits = f
			}

			taskID, err := rt.launcher.Launch(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResult(map[string]string{"task_id": taskID}, taskID)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "task definition name")
	cmd.Flags().StringVar(&bitsPath, "bits", "", "path to the source archive")
	cmd.Flags().StringSliceVarP(&properties, "property", "p", nil, "deployment property key=value")
	cmd.Flags().StringSliceVar(&taskArgs, "arg", nil, "command-line argument for the task")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newTaskCancelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.launcher.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printResult(map[string]string{"task_id": args[0]}, "cancelled "+args[0])
		},
	}

	return cmd
}

func newTaskStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Query the state of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			status, err := rt.launcher.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(status, fmt.Sprintf("%s: %s", args[0], status.State))
		},
	}

	return cmd
}
