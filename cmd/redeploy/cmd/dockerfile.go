package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melih/redeploy/internal/core/domain"
)

var dockerfileCmd = &cobra.Command{
	Use:   "dockerfile",
	Short: "Print the Dockerfile rendered from the build recipe",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Dockerfile != "" {
			return configError(fmt.Errorf("a custom Dockerfile is configured (%s); the recipe is not used", cfg.Dockerfile))
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), cfg.Recipe.Dockerfile(map[string]string{domain.LabelManaged: "true"}))
		return err
	},
}

func init() {
	rootCmd.AddCommand(dockerfileCmd)
}
