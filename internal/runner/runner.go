// Package runner schedules poll cycles and drives each new alert
// through composition, rendering and delivery.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
	"github.com/wxvisuals/warnmap/internal/observability"
)

// maxConsecutiveFailures is the threshold past which the scheduler is
// torn down and rebuilt instead of limping along.
const maxConsecutiveFailures = 5

// failureBackoff spaces retries out a little after a failed cycle while
// staying below the reset threshold.
const failureBackoff = 5 * time.Second

type Config struct {
	PollInterval  time.Duration
	CleanupHour   int
	CleanupMinute int
	CleanupMaxAge time.Duration
	OutputDir     string
	GeoBuffer     float64
}

// Runner owns the scheduler and the per-alert pipeline. All pipeline
// stages are injected so cycles can run against fakes.
type Runner struct {
	cfg      Config
	poller   alert.Poller
	store    alert.Store
	counties alert.CountyProvider
	composer alert.Composer
	renderer alert.Renderer
	sink     alert.Sink
	clock    clockwork.Clock
	logger   *zap.Logger
	sleep    func(time.Duration)

	mu        sync.Mutex
	scheduler gocron.Scheduler
	jobs      []gocron.Job
	failures  int
}

func New(
	cfg Config,
	poller alert.Poller,
	store alert.Store,
	counties alert.CountyProvider,
	composer alert.Composer,
	renderer alert.Renderer,
	sink alert.Sink,
	clock clockwork.Clock,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		cfg:      cfg,
		poller:   poller,
		store:    store,
		counties: counties,
		composer: composer,
		renderer: renderer,
		sink:     sink,
		clock:    clock,
		logger:   logger,
		sleep:    clock.Sleep,
	}
}

// Start loads the dedup store, registers the poll and cleanup jobs and
// starts the scheduler. It returns once the scheduler is running.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.store.Load(); err != nil {
		return fmt.Errorf("loading dedup store: %w", err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithClock(r.clock))
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	r.mu.Lock()
	r.scheduler = scheduler
	r.mu.Unlock()

	if err := r.registerJobs(ctx); err != nil {
		return err
	}
	scheduler.Start()

	// The first detection must not wait a full interval: one cycle runs
	// immediately, then the scheduler owns the cadence.
	r.scheduledCycle(ctx)

	r.logger.Info("runner started",
		zap.Duration("poll_interval", r.cfg.PollInterval),
		zap.Int("cleanup_hour", r.cfg.CleanupHour),
		zap.Int("cleanup_minute", r.cfg.CleanupMinute))
	return nil
}

// Stop shuts the scheduler down and persists the dedup store.
func (r *Runner) Stop() error {
	r.mu.Lock()
	scheduler := r.scheduler
	r.scheduler = nil
	r.jobs = nil
	r.mu.Unlock()

	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			r.logger.Warn("scheduler shutdown", zap.Error(err))
		}
	}
	if err := r.store.Persist(); err != nil {
		return fmt.Errorf("persisting dedup store: %w", err)
	}
	return nil
}

// RunOnce executes a single poll cycle outside the scheduler.
func (r *Runner) RunOnce(ctx context.Context) error {
	if err := r.store.Load(); err != nil {
		return fmt.Errorf("loading dedup store: %w", err)
	}
	cycleErr := r.Cycle(ctx)
	if err := r.store.Persist(); err != nil {
		r.logger.Warn("persisting dedup store", zap.Error(err))
	}
	return cycleErr
}

func (r *Runner) registerJobs(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pollJob, err := r.scheduler.NewJob(
		gocron.DurationJob(r.cfg.PollInterval),
		gocron.NewTask(func() { r.scheduledCycle(ctx) }),
	)
	if err != nil {
		return fmt.Errorf("registering poll job: %w", err)
	}

	cleanupJob, err := r.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(r.cfg.CleanupHour), uint(r.cfg.CleanupMinute), 0),
		)),
		gocron.NewTask(func() { r.Cleanup() }),
	)
	if err != nil {
		return fmt.Errorf("registering cleanup job: %w", err)
	}

	r.jobs = []gocron.Job{pollJob, cleanupJob}
	return nil
}

// scheduledCycle wraps Cycle with the consecutive-failure accounting
// that drives the self-healing reset.
func (r *Runner) scheduledCycle(ctx context.Context) {
	if err := r.Cycle(ctx); err != nil {
		r.logger.Error("poll cycle failed", zap.Error(err))
		r.noteFailure(ctx)
		return
	}
	r.noteSuccess()
}

func (r *Runner) noteSuccess() {
	r.mu.Lock()
	r.failures = 0
	r.mu.Unlock()
}

func (r *Runner) noteFailure(ctx context.Context) {
	r.mu.Lock()
	r.failures++
	failures := r.failures
	r.mu.Unlock()

	if failures < maxConsecutiveFailures {
		r.logger.Warn("consecutive cycle failures",
			zap.Int("count", failures),
			zap.Int("threshold", maxConsecutiveFailures))
		r.sleep(failureBackoff)
		return
	}
	r.reset(ctx)
}

// reset tears every job out of the scheduler and registers them afresh.
// The failure counter restarts from zero, so another full run of
// failures is required before the next reset.
func (r *Runner) reset(ctx context.Context) {
	r.logger.Error("failure threshold reached, resetting scheduler",
		zap.Int("threshold", maxConsecutiveFailures))

	r.mu.Lock()
	scheduler := r.scheduler
	jobs := r.jobs
	r.jobs = nil
	r.failures = 0
	r.mu.Unlock()

	if scheduler == nil {
		return
	}
	for _, job := range jobs {
		if err := scheduler.RemoveJob(job.ID()); err != nil {
			r.logger.Warn("removing job during reset", zap.Error(err))
		}
	}
	if err := r.registerJobs(ctx); err != nil {
		r.logger.Error("re-registering jobs after reset", zap.Error(err))
		return
	}
	observability.SchedulerResetsTotal.Inc()
}

// Cycle polls the feed once and processes every returned alert. A poll
// failure fails the cycle; per-alert failures are logged and the cycle
// moves on to the next alert.
func (r *Runner) Cycle(ctx context.Context) error {
	observability.CyclesTotal.Inc()

	alerts, err := r.poller.Poll(ctx)
	if err != nil {
		observability.CycleFailuresTotal.Inc()
		return err
	}
	for _, a := range alerts {
		r.processAlert(ctx, a)
	}
	return nil
}

func (r *Runner) processAlert(ctx context.Context, a alert.Alert) {
	if !a.Polygon.Valid() {
		r.logger.Info("skipping alert without polygon",
			zap.String("alert_id", a.ID),
			zap.String("event", a.Event))
		return
	}

	counties := r.counties.Nearby(a.Polygon, r.cfg.GeoBuffer)
	doc, err := r.composer.Compose(a, counties)
	if err != nil {
		r.logger.Error("composing map document",
			zap.String("alert_id", a.ID),
			zap.Error(err))
		return
	}

	artifact, err := r.renderer.Render(ctx, doc)
	if err != nil {
		observability.RenderFailuresTotal.Inc()
		r.logger.Error("rendering map document",
			zap.String("alert_id", a.ID),
			zap.String("document", doc.Path),
			zap.Bool("degraded", artifact.Degraded),
			zap.Error(err))
		// The preserved document still goes downstream as a degraded
		// artifact.
		if artifact.ImagePath == "" {
			return
		}
	}

	if err := r.sink.Deliver(ctx, a, artifact.ImagePath); err != nil {
		observability.DeliveryFailuresTotal.Inc()
		r.logger.Error("delivering artifact",
			zap.String("alert_id", a.ID),
			zap.Error(err))
		return
	}
	observability.DeliveriesTotal.Inc()
	observability.AlertsProcessedTotal.Inc()
	r.logger.Info("alert processed",
		zap.String("alert_id", a.ID),
		zap.String("event", a.Event),
		zap.String("image", artifact.ImagePath))
}

// Cleanup removes artifacts in the output directory older than the
// configured age, keyed on modification time.
func (r *Runner) Cleanup() {
	cutoff := r.clock.Now().Add(-r.cfg.CleanupMaxAge)

	entries, err := os.ReadDir(r.cfg.OutputDir)
	if err != nil {
		r.logger.Warn("reading output directory", zap.Error(err))
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(r.cfg.OutputDir, entry.Name())
		if err := os.Remove(path); err != nil {
			r.logger.Warn("removing aged artifact",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		removed++
		observability.CleanupRemovalsTotal.Inc()
	}
	if removed > 0 {
		r.logger.Info("cleanup removed aged artifacts", zap.Int("count", removed))
	}
}
