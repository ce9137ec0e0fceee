package cmd

import (
	"github.com/spf13/cobra"

	"github.com/melih/redeploy/internal/logging"
	"github.com/melih/redeploy/internal/render"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Stop, remove, rebuild and restart the container",
	Long: `Run one full cycle: stop and remove the current container (a missing container
is not an error), build the image (a failed build aborts before anything is
started), run a new container with the env file and log volume, and list all
containers.

Exit codes: 0 ok, 1 internal, 2 config or env file, 3 build, 4 run, 5 locked.`,
	Args: cobra.NoArgs,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
	addCycleFlags(cycleCmd)
}

func addCycleFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-cache", false, "build the image without the layer cache")
	cmd.Flags().String("dockerfile", "", "use this Dockerfile from the source instead of the recipe")
	cmd.Flags().String("env-file", "", "env file passed to the container (default .env)")
	cmd.Flags().String("name", "", "container name (default five-letters-bot)")
	cmd.Flags().String("tag", "", "image tag (default five-letters-bot)")
}

func runCycle(cmd *cobra.Command, _ []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	if format == render.FormatTable {
		svc.BuildOutput = cmd.ErrOrStderr()
	}
	rep, runErr := svc.Run(cmd.Context())
	if rep != nil {
		if err := render.Report(cmd.OutOrStdout(), format, rep); err != nil {
			logging.FromContext(cmd.Context()).Sugar().Warnf("render report: %v", err)
		}
	}
	return runErr
}
