package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skylift/skylift/pkg/deployer"
)

func newDeployCommand() *cobra.Command {
	var (
		name       string
		group      string
		image      string
		bitsPath   string
		properties []string
		appArgs    []string
		wait       bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a long-running application",
		Long: `Deploy an application to the target space.

The application artifact is either a droplet source archive (--bits) or a
container image (--docker-image), never both. Deployment properties
override the configured defaults per request.`,
		Example: `  # Deploy a container image
  skylift deploy --name time --group ticktock --docker-image springcloud/timestamp

  # Deploy an archive with overrides
  skylift deploy --name http --group ticktock --bits ./http-source.jar \
    --property cf.memory=2048 --property cf.services=postgres

  # Fire and forget
  skylift deploy --name time --docker-image springcloud/timestamp --wait=false`,
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
				Definition:           deployer.Definition{Name: name, Group: group},
				DockerImage:          image,
				DeploymentProperties: props,
				Args:                 appArgs,
			}
			if bitsPath != "" {
				f, err := os.Open(bitsPath)
				if err != nil {
					return fmt.Errorf("opening artifact: %w", err)
				}
				defer f.Close()
				req.Bits = f
			}

			id, result, err := rt.deployer.Deploy(cmd.Context(), req)
			if err != nil {
				return err
			}
			if wait {
				if err, ok := <-result; ok && err != nil {
					return fmt.Errorf("deployment %s failed: %w", id, err)
				}
			}
			return printResult(map[string]string{"deployment_id": id}, id)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "application name")
	cmd.Flags().StringVarP(&group, "group", "g", "", "deployment group")
	cmd.Flags().StringVar(&image, "docker-image", "", "container image reference")
	cmd.Flags().StringVar(&bitsPath, "bits", "", "path to the source archive")
	cmd.Flags().StringSliceVarP(&properties, "property", "p", nil, "deployment property key=value")
	cmd.Flags().StringSliceVar(&appArgs, "arg", nil, "command-line argument for the application")
	cmd.Flags().BoolVar(&wait, "wait", true, "wait for the push to finish")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newUndeployCommand() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "undeploy <deployment-id>",
		Short: "Remove a deployed application",
		Args:  cobra.ExactArgs(1),
		Example: `  # Remove a deployment and wait for completion
  skylift undeploy dataflow-server-ticktock-time`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			id := args[0]
			result, err := rt.deployer.Undeploy(cmd.Context(), id)
			if err != nil {
				return err
			}
			if wait {
				if err, ok := <-result; ok && err != nil {
					return fmt.Errorf("undeploy of %s failed: %w", id, err)
				}
			}
			return printResult(map[string]string{"deployment_id": id}, "undeployed "+id)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "wait for the deletion to finish")

	return cmd
}

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <deployment-id>",
		Short: "Query the state of a deployment",
		Long: `Query the aggregate and per-instance state of a deployment.

Remote failures inside the retry budget never fail the command; the
status answers with the error state instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			status, err := rt.deployer.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(status, fmt.Sprintf("%s: %s", args[0], status.State))
		},
	}

	return cmd
}
