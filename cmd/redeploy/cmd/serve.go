package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	api "github.com/melih/redeploy/internal/adapters/http"
	"github.com/melih/redeploy/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the control API and metrics",
	Long: `Serve a small HTTP API for the deployment:

  GET  /api/v1/status      managed objects and the last cycle
  GET  /api/v1/containers  all containers
  POST /api/v1/cycle       run one cycle (409 while another runs)
  GET  /api/v1/logs?tail=N container output
  GET  /metrics            Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default :3000)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	logger := logging.FromContext(cmd.Context())
	app := api.NewApp(api.NewContainerHandler(svc.Cycle, logger.Named("http")), svc.registry)

	go func() {
		<-cmd.Context().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("control API listening", zap.String("addr", cfg.Serve.Addr))
	return app.Listen(cfg.Serve.Addr)
}
