package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/melih/redeploy/internal/core/domain"
	"github.com/melih/redeploy/internal/core/services/lifecycle"
)

// Lifecycle is the part of the lifecycle service exposed over HTTP.
type Lifecycle interface {
	Run(ctx context.Context) (*lifecycle.Report, error)
	Status(ctx context.Context) (*lifecycle.Status, error)
	Containers(ctx context.Context) ([]domain.Container, error)
	Logs(ctx context.Context, opts domain.LogsOptions, stdout, stderr io.Writer) error
}

var _ Lifecycle = (*lifecycle.Cycle)(nil)

type ContainerHandler struct {
	service Lifecycle
	logger  *zap.Logger
}

func NewContainerHandler(service Lifecycle, logger *zap.Logger) *ContainerHandler {
	return &ContainerHandler{service: service, logger: logger}
}

// NewApp wires the control API routes. Metrics are served from gatherer
// when it is non-nil.
func NewApp(h *ContainerHandler, gatherer prometheus.Gatherer) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())

	v1 := app.Group("/api/v1")
	v1.Get("/status", h.GetStatus)
	v1.Get("/containers", h.ListContainers)
	v1.Post("/cycle", h.RunCycle)
	v1.Get("/logs", h.GetContainerLogs)

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return app
}

func (h *ContainerHandler) GetStatus(c *fiber.Ctx) error {
	st, err := h.service.Status(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(st)
}

func (h *ContainerHandler) ListContainers(c *fiber.Ctx) error {
	containers, err := h.service.Containers(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(containers)
}

// RunCycle runs one full cycle synchronously and returns its report.
func (h *ContainerHandler) RunCycle(c *fiber.Ctx) error {
	rep, err := h.service.Run(c.UserContext())
	if err == nil {
		return c.Status(fiber.StatusOK).JSON(rep)
	}

	h.logger.Warn("cycle requested over http failed", zap.Error(err))
	status := cycleStatus(err)
	if rep == nil {
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(status).JSON(rep)
}

func cycleStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrLocked):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrBuildFailed):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPreflight):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// GetContainerLogs returns the last lines of the container output as text.
func (h *ContainerHandler) GetContainerLogs(c *fiber.Ctx) error {
	tail := c.Query("tail", "100")
	if tail != "all" {
		if n, err := strconv.Atoi(tail); err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "tail must be a non-negative number or \"all\"",
			})
		}
	}

	var buf bytes.Buffer
	err := h.service.Logs(c.UserContext(), domain.LogsOptions{
		Tail:       tail,
		Timestamps: c.QueryBool("timestamps", false),
	}, &buf, &buf)
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(buf.Bytes())
}
