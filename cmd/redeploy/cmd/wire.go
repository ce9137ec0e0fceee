package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"

	"github.com/melih/redeploy/internal/adapters/builder"
	"github.com/melih/redeploy/internal/adapters/docker"
	"github.com/melih/redeploy/internal/adapters/envfile"
	"github.com/melih/redeploy/internal/adapters/journal"
	"github.com/melih/redeploy/internal/adapters/lock"
	"github.com/melih/redeploy/internal/core/services/lifecycle"
	"github.com/melih/redeploy/internal/logging"
)

// service bundles a lifecycle service with the engine connection it uses.
type service struct {
	*lifecycle.Cycle
	registry *prometheus.Registry
	api      docker.API
}

func (s *service) Close() error {
	return s.api.Close()
}

// newService connects to the engine and wires the adapters.
func newService(ctx context.Context) (*service, error) {
	api, err := docker.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to docker: %w", err)
	}

	logger := logging.FromContext(ctx)
	fs := afero.NewOsFs()
	engine := docker.NewAdapter(api, logger.Named("docker"), docker.WithStopTimeout(cfg.StopTimeout))
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cycle := lifecycle.New(cfg.Options(), lifecycle.Deps{
		Containers: engine,
		Volumes:    engine,
		Images:     engine,
		Builder:    builder.NewBuilderAdapter(api, fs, logger.Named("builder")),
		Locker:     lock.NewFileLocker(cfg.StateDir, cfg.LockWait),
		Journal:    journal.NewStore(fs, cfg.StateDir),
		Env:        envfile.NewLoader(fs),
		Metrics:    lifecycle.NewMetrics(reg),
		Logger:     logger.Named("lifecycle"),
	})
	return &service{Cycle: cycle, registry: reg, api: api}, nil
}
