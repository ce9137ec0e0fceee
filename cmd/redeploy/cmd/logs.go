package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/melih/redeploy/internal/core/domain"
)

var (
	logsTail       string
	logsFollow     bool
	logsTimestamps bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the bot container's output",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().StringVar(&logsTail, "tail", "all", "number of lines to show from the end, or \"all\"")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().BoolVarP(&logsTimestamps, "timestamps", "t", false, "show timestamps")
}

func runLogs(cmd *cobra.Command, _ []string) error {
	if logsTail != "all" {
		if n, err := strconv.Atoi(logsTail); err != nil || n < 0 {
			return configError(fmt.Errorf("--tail must be a non-negative number or \"all\", got %q", logsTail))
		}
	}

	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	return svc.Logs(cmd.Context(), domain.LogsOptions{
		Tail:       logsTail,
		Follow:     logsFollow,
		Timestamps: logsTimestamps,
	}, cmd.OutOrStdout(), cmd.ErrOrStderr())
}
