// Package lifecycle brings the managed container to a known running state:
// stop, remove, build, run, report. Each step runs strictly after the
// previous one; a failed build aborts the cycle before anything is started.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melih/redeploy/internal/core/domain"
	"github.com/melih/redeploy/internal/core/ports"
)

// Options holds the names and settings of one managed deployment.
type Options struct {
	ContainerName string
	ImageTag      string
	VolumeName    string
	EnvFile       string
	LogMountPath  string
	RequiredEnv   []string
	RestartPolicy string
	Ports         []string
	Memory        string
	CPUs          float64

	Recipe     domain.Recipe
	Source     ports.Source
	Dockerfile string
	NoCache    bool
}

// Deps are the collaborators of a Cycle.
type Deps struct {
	Containers ports.ContainerService
	Volumes    ports.VolumeService
	Images     ports.ImageService
	Builder    ports.BuilderService
	Locker     ports.Locker
	Journal    ports.JournalStore
	Env        ports.EnvSource
	Metrics    *Metrics
	Logger     *zap.Logger
}

// Cycle runs lifecycle operations for one deployment.
type Cycle struct {
	opts Options
	deps Deps

	// BuildOutput receives the engine's build progress.
	BuildOutput io.Writer

	now   func() time.Time
	newID func() string
}

// New creates a Cycle.
func New(opts Options, deps Deps) *Cycle {
	if opts.LogMountPath == "" {
		opts.LogMountPath = opts.Recipe.LogDir
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Cycle{
		opts:  opts,
		deps:  deps,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Options returns the deployment settings.
func (c *Cycle) Options() Options {
	return c.opts
}

// Run executes one full cycle. The returned report is non-nil whenever the
// lock was acquired, including on failure.
func (c *Cycle) Run(ctx context.Context) (*Report, error) {
	name := c.opts.ContainerName
	release, err := c.deps.Locker.Acquire(ctx, name)
	if err != nil {
		c.deps.Metrics.cycleDone("locked", c.now())
		return nil, err
	}
	defer release()

	r := &runner{
		Cycle: c,
		log:   c.deps.Logger.With(zap.String("container", name)),
		report: &Report{
			CycleID:   c.newID(),
			Container: name,
			StartedAt: c.now(),
		},
	}
	r.log = r.log.With(zap.String("cycle", r.report.CycleID))

	err = r.run(ctx)
	r.finish(ctx, err)
	return r.report, err
}

// runner carries the state of a single cycle.
type runner struct {
	*Cycle
	log     *zap.Logger
	report  *Report
	journal domain.Journal
	entered time.Time
}

func (r *runner) run(ctx context.Context) error {
	env, err := r.preflight()
	if err != nil {
		r.step("preflight", StepFailed, err.Error(), 0)
		return err
	}

	r.reconcile()
	current := r.observe(ctx)

	// 1. Stop
	if err := r.advance(domain.PhaseStopping); err != nil {
		return err
	}
	r.stop(ctx, current)

	// 2. Remove
	if err := r.advance(domain.PhaseRemoving); err != nil {
		return err
	}
	r.remove(ctx, current)

	// 3. Build
	if err := r.advance(domain.PhaseBuilding); err != nil {
		return err
	}
	res, err := r.build(ctx)
	if err != nil {
		return err
	}

	// 4. Run
	if err := r.advance(domain.PhaseStarting); err != nil {
		return err
	}
	if err := r.start(ctx, res, env); err != nil {
		return err
	}

	return r.advance(domain.PhaseRunning)
}

// preflight validates everything that can be checked without touching the
// engine, so a bad env file never leaves the bot stopped.
func (r *runner) preflight() ([]string, error) {
	if r.opts.ContainerName == "" || r.opts.ImageTag == "" {
		return nil, fmt.Errorf("%w: container name and image tag are required", domain.ErrPreflight)
	}
	if r.opts.VolumeName != "" && r.opts.LogMountPath == "" {
		return nil, fmt.Errorf("%w: log mount path is required with a log volume", domain.ErrPreflight)
	}
	if r.opts.EnvFile == "" {
		return nil, nil
	}

	env, err := r.deps.Env.Load(r.opts.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPreflight, err)
	}
	if missing := missingKeys(env, r.opts.RequiredEnv); len(missing) > 0 {
		return nil, fmt.Errorf("%w: env file %s lacks required keys: %s",
			domain.ErrPreflight, r.opts.EnvFile, strings.Join(missing, ", "))
	}
	return env, nil
}

// reconcile loads the previous journal and picks the phase this cycle
// starts from. A cycle interrupted mid-way resumes from failed.
func (r *runner) reconcile() {
	prev, err := r.deps.Journal.Load(r.opts.ContainerName)
	if err != nil {
		r.log.Warn("ignoring unreadable journal", zap.Error(err))
	}

	var last domain.Phase
	if prev != nil {
		last = prev.Phase
	}
	entry := last.Entry()
	if prev != nil && !last.IsTerminal() {
		r.report.Recovered = last
		r.log.Warn("previous cycle was interrupted, reconciling",
			zap.String("previous_cycle", prev.CycleID),
			zap.String("phase", string(last)),
		)
	}

	r.journal = domain.Journal{
		CycleID:   r.report.CycleID,
		Container: r.opts.ContainerName,
		Phase:     entry,
		StartedAt: r.report.StartedAt,
		UpdatedAt: r.report.StartedAt,
	}
	r.report.Phase = entry
	r.entered = r.now()
}

// observe inspects the container before acting. nil means absent; on an
// inspect error the steps fall back to blind, tolerant stop and remove.
func (r *runner) observe(ctx context.Context) *domain.Container {
	cur, err := r.deps.Containers.InspectContainer(ctx, r.opts.ContainerName)
	switch {
	case err == nil:
		r.log.Info("found existing container", zap.String("id", cur.ID), zap.String("state", cur.State))
		return cur
	case errors.Is(err, domain.ErrNotFound):
		r.log.Info("no existing container")
		return nil
	default:
		r.log.Warn("could not inspect container, continuing", zap.Error(err))
		return &domain.Container{Name: r.opts.ContainerName, State: "unknown"}
	}
}

// advance validates and records a phase transition.
func (r *runner) advance(to domain.Phase) error {
	from := r.journal.Phase
	if err := domain.ValidateTransition(from, to); err != nil {
		return err
	}
	now := r.now()
	r.deps.Metrics.observePhase(from, now.Sub(r.entered))
	r.entered = now

	r.journal.Phase = to
	r.journal.UpdatedAt = now
	r.report.Phase = to
	if err := r.deps.Journal.Save(&r.journal); err != nil {
		r.log.Warn("failed to write journal", zap.Error(err))
	}
	r.log.Debug("phase", zap.String("from", string(from)), zap.String("to", string(to)))
	return nil
}

func (r *runner) stop(ctx context.Context, cur *domain.Container) {
	start := r.now()
	if cur == nil {
		r.step("stop", StepSkipped, "container absent", 0)
		return
	}
	if cur.State != "unknown" && !cur.Running() {
		r.step("stop", StepSkipped, "container "+cur.State, 0)
		return
	}

	err := r.deps.Containers.StopContainer(ctx, r.opts.ContainerName)
	switch {
	case err == nil:
		r.step("stop", StepDone, "", r.now().Sub(start))
	case errors.Is(err, domain.ErrNotFound):
		r.step("stop", StepSkipped, "container absent", r.now().Sub(start))
	default:
		r.log.Warn("stop failed, continuing", zap.Error(err))
		r.step("stop", StepTolerated, err.Error(), r.now().Sub(start))
	}
}

func (r *runner) remove(ctx context.Context, cur *domain.Container) {
	start := r.now()
	if cur == nil {
		r.step("remove", StepSkipped, "container absent", 0)
		return
	}

	err := r.deps.Containers.RemoveContainer(ctx, r.opts.ContainerName)
	switch {
	case err == nil:
		r.step("remove", StepDone, "", r.now().Sub(start))
	case errors.Is(err, domain.ErrNotFound):
		r.step("remove", StepSkipped, "container absent", r.now().Sub(start))
	default:
		// a leftover container surfaces as a name conflict in the run step
		r.log.Warn("remove failed, continuing", zap.Error(err))
		r.step("remove", StepTolerated, err.Error(), r.now().Sub(start))
	}
}

func (r *runner) build(ctx context.Context) (*ports.BuildResult, error) {
	start := r.now()
	res, err := r.deps.Builder.BuildImage(ctx, r.buildRequest())
	if err != nil {
		r.step("build", StepFailed, err.Error(), r.now().Sub(start))
		if !errors.Is(err, domain.ErrBuildFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrBuildFailed, err)
		}
		return nil, err
	}

	r.report.ImageID = res.ImageID
	r.report.Revision = res.Revision
	r.journal.ImageID = res.ImageID
	r.journal.Revision = res.Revision
	r.step("build", StepDone, res.ImageID, r.now().Sub(start))
	return res, nil
}

func (r *runner) buildRequest() ports.BuildRequest {
	return ports.BuildRequest{
		Tag:        r.opts.ImageTag,
		Recipe:     r.opts.Recipe,
		Source:     r.opts.Source,
		Dockerfile: r.opts.Dockerfile,
		NoCache:    r.opts.NoCache,
		Labels:     map[string]string{domain.LabelCycle: r.report.CycleID},
		Output:     r.BuildOutput,
	}
}

func (r *runner) start(ctx context.Context, res *ports.BuildResult, env []string) error {
	start := r.now()
	if r.opts.VolumeName != "" {
		created, err := r.deps.Volumes.EnsureVolume(ctx, r.opts.VolumeName)
		if err != nil {
			r.step("run", StepFailed, err.Error(), r.now().Sub(start))
			return fmt.Errorf("%w: %w", domain.ErrRunFailed, err)
		}
		r.report.VolumeCreated = created
	}

	labels := map[string]string{
		domain.LabelManaged: "true",
		domain.LabelCycle:   r.report.CycleID,
	}
	if res.Revision != "" {
		labels[domain.LabelRevision] = res.Revision
	}

	// run by the fresh image ID so a concurrent retag cannot swap it
	image := res.ImageID
	if image == "" {
		image = r.opts.ImageTag
	}

	id, err := r.deps.Containers.RunContainer(ctx, domain.RunSpec{
		Name:          r.opts.ContainerName,
		Image:         image,
		Env:           env,
		VolumeName:    r.opts.VolumeName,
		MountPath:     r.opts.LogMountPath,
		Labels:        labels,
		Ports:         r.opts.Ports,
		Memory:        r.opts.Memory,
		CPUs:          r.opts.CPUs,
		RestartPolicy: r.opts.RestartPolicy,
	})
	r.report.ContainerID = id
	r.journal.ContainerID = id
	if err != nil {
		r.step("run", StepFailed, err.Error(), r.now().Sub(start))
		return fmt.Errorf("%w: %w", domain.ErrRunFailed, err)
	}
	r.step("run", StepDone, id, r.now().Sub(start))
	return nil
}

// finish records the outcome and lists containers for the operator, also
// after a failure.
func (r *runner) finish(ctx context.Context, err error) {
	now := r.now()
	r.report.FinishedAt = now

	if err != nil {
		r.report.Error = err.Error()
		if r.journal.Container != "" {
			if r.journal.Phase != domain.PhaseFailed && domain.ValidateTransition(r.journal.Phase, domain.PhaseFailed) == nil {
				r.journal.Error = err.Error()
				_ = r.advance(domain.PhaseFailed)
			}
		}
		r.log.Error("cycle failed", zap.String("phase", string(r.report.Phase)), zap.Error(err))
	} else {
		r.log.Info("cycle completed",
			zap.String("image", r.report.ImageID),
			zap.String("container_id", r.report.ContainerID),
			zap.Duration("took", now.Sub(r.report.StartedAt)),
		)
	}
	r.deps.Metrics.cycleDone(resultLabel(err), now)

	start := r.now()
	containers, listErr := r.deps.Containers.ListContainers(ctx, true)
	if listErr != nil {
		r.log.Warn("failed to list containers", zap.Error(listErr))
		r.step("report", StepTolerated, listErr.Error(), r.now().Sub(start))
		return
	}
	r.report.Containers = containers
	r.step("report", StepDone, fmt.Sprintf("%d containers", len(containers)), r.now().Sub(start))
}

func (r *runner) step(name string, status StepStatus, detail string, d time.Duration) {
	r.report.Steps = append(r.report.Steps, Step{Name: name, Status: status, Detail: detail, Duration: d})
	r.log.Info("step", zap.String("step", name), zap.String("status", string(status)), zap.String("detail", detail))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrPreflight):
		return "preflight"
	case errors.Is(err, domain.ErrBuildFailed):
		return "build"
	case errors.Is(err, domain.ErrRunFailed):
		return "run"
	case errors.Is(err, domain.ErrLocked):
		return "locked"
	}
	return "error"
}

func missingKeys(pairs, required []string) []string {
	present := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		k, _, _ := strings.Cut(p, "=")
		present[k] = true
	}
	var missing []string
	for _, k := range required {
		if !present[k] {
			missing = append(missing, k)
		}
	}
	return missing
}

// Build builds the image without touching the running container.
func (c *Cycle) Build(ctx context.Context) (*ports.BuildResult, error) {
	release, err := c.deps.Locker.Acquire(ctx, c.opts.ContainerName)
	if err != nil {
		return nil, err
	}
	defer release()

	r := &runner{Cycle: c, log: c.deps.Logger, report: &Report{CycleID: c.newID()}}
	return r.build(ctx)
}

// Status reports the managed container, image, volume and last journal.
// Missing objects are left nil.
func (c *Cycle) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	cur, err := c.deps.Containers.InspectContainer(ctx, c.opts.ContainerName)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	st.Container = cur

	img, err := c.deps.Images.InspectImage(ctx, c.opts.ImageTag)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	st.Image = img

	if c.opts.VolumeName != "" {
		vol, err := c.deps.Volumes.InspectVolume(ctx, c.opts.VolumeName)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		st.Volume = vol
	}

	j, err := c.deps.Journal.Load(c.opts.ContainerName)
	if err != nil {
		c.deps.Logger.Warn("ignoring unreadable journal", zap.Error(err))
	}
	st.Journal = j
	return st, nil
}

// Containers lists all containers, running and stopped.
func (c *Cycle) Containers(ctx context.Context) ([]domain.Container, error) {
	return c.deps.Containers.ListContainers(ctx, true)
}

// Logs copies the container's stdout and stderr to the given writers.
func (c *Cycle) Logs(ctx context.Context, opts domain.LogsOptions, stdout, stderr io.Writer) error {
	rc, err := c.deps.Containers.GetContainerLogs(ctx, c.opts.ContainerName, opts)
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err := stdcopy.StdCopy(stdout, stderr, rc); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("read logs: %w", err)
	}
	return nil
}
