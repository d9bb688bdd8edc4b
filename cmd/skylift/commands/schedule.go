package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skylift/skylift/pkg/deployer"
)

func newScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Recurring task schedules",
		Long: `Create, delete, and list cron schedules for task definitions.

Schedules run through the platform's scheduler service; the cron
expression is validated locally before any remote call.`,
	}

	cmd.AddCommand(newScheduleCreateCommand())
	cmd.AddCommand(newScheduleDeleteCommand())
	cmd.AddCommand(newScheduleListCommand())

	return cmd
}

func newScheduleCreateCommand() *cobra.Command {
	var (
		scheduleName string
		taskName     string
		cronExpr     string
		bitsPath     string
		properties   []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cron schedule for a task",
		Example: `  # Run the report task every night at 03:00
  skylift schedule create --name nightly-report --task report-task \
    --cron "0 3 * * *" --bits ./report.jar`,
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
			req := &deployer.ScheduleRequest{
				ScheduleName:   scheduleName,
				CronExpression: cronExpr,
				Request: &deployer.Request{
					Definition:           deployer.Definition{Name: taskName},
					DeploymentProperties: props,
				},
			}
			if bitsPath != "" {
				f, err := os.Open(bitsPath)
				if err != nil {
					return fmt.Errorf("opening artifact: %w", err)
				}
				defer f.Close()
				req.Request.Bits = f
			}

			if err := rt.schedule.Schedule(cmd.Context(), req); err != nil {
				return err
			}
			return printResult(map[string]string{"schedule_name": scheduleName}, "scheduled "+scheduleName)
		},
	}

	cmd.Flags().StringVarP(&scheduleName, "name", "n", "", "schedule name")
	cmd.Flags().StringVarP(&taskName, "task", "t", "", "task definition name")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression")
	cmd.Flags().StringVar(&bitsPath, "bits", "", "path to the source archive")
	cmd.Flags().StringSliceVarP(&properties, "property", "p", nil, "deployment property key=value")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("task")
	cmd.MarkFlagRequired("cron")

	return cmd
}

func newScheduleDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <schedule-name>",
		Short: "Remove a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.schedule.Unschedule(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printResult(map[string]string{"schedule_name": args[0]}, "unscheduled "+args[0])
		},
	}

	return cmd
}

func newScheduleListCommand() *cobra.Command {
	var taskFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules in the space",
		Example: `  # List every schedule
  skylift schedule list

  # List schedules of one task definition
  skylift schedule list --task report-task`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			infos, err := rt.schedule.List(cmd.Context(), taskFilter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(infos, "")
			}
			for _, info := range infos {
				fmt.Printf("%s\t%s\t%s\n", info.ScheduleName, info.TaskDefinitionName, info.CronExpression)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&taskFilter, "task", "t", "", "filter by task definition name")

	return cmd
}
