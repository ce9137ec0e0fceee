package cmd

import (
	"github.com/spf13/cobra"

	"github.com/melih/redeploy/internal/render"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the managed container, image, log volume and last cycle",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

// psCmd is the last step of a cycle on its own.
var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List all containers, running and stopped",
	Args:  cobra.NoArgs,
	RunE:  runPs,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(psCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	st, err := svc.Status(cmd.Context())
	if err != nil {
		return err
	}
	return render.Status(cmd.OutOrStdout(), format, st)
}

func runPs(cmd *cobra.Command, _ []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	containers, err := svc.Containers(cmd.Context())
	if err != nil {
		return err
	}
	return render.Containers(cmd.OutOrStdout(), format, containers)
}
