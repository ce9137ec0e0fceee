package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melih/redeploy/internal/render"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the image without touching the running container",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().Bool("no-cache", false, "build the image without the layer cache")
	buildCmd.Flags().String("dockerfile", "", "use this Dockerfile from the source instead of the recipe")
	buildCmd.Flags().String("tag", "", "image tag (default five-letters-bot)")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	svc.BuildOutput = cmd.ErrOrStderr()
	res, err := svc.Build(cmd.Context())
	if err != nil {
		return err
	}

	if format != render.FormatTable {
		return render.Value(cmd.OutOrStdout(), format, res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Built %s as %s", res.ImageID, res.Tag)
	if res.Revision != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " from %s", res.Revision)
		if res.Dirty {
			fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
		}
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
