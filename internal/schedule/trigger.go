// Package schedule owns the periodic sync job: it reacts to settings changes
// and API connectivity to register or deregister the recurring reconciliation
// run.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/openlms/edflex-connector/internal/cache"
	"github.com/openlms/edflex-connector/internal/edflex"
	"github.com/openlms/edflex-connector/internal/engine"
	"github.com/openlms/edflex-connector/internal/metrics"
)

const syncJobName = "edflex_sync"

// Trigger reacts to configuration changes and connectivity state, keeping at
// most one scheduled sync job alive. The scheduler runs jobs one at a time,
// so two sync passes never overlap.
type Trigger struct {
	scheduler gocron.Scheduler
	provider  edflex.Provider
	engine    *engine.Engine
	store     *cache.Store
	logger    *slog.Logger

	interval time.Duration
	maxAge   time.Duration

	mu  sync.Mutex
	job gocron.Job
}

// New creates a stopped trigger. Call Start to run the scheduler loop.
func New(provider edflex.Provider, eng *engine.Engine, store *cache.Store, interval, maxAge time.Duration, logger *slog.Logger) (*Trigger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return &Trigger{
		scheduler: scheduler,
		provider:  provider,
		engine:    eng,
		store:     store,
		logger:    logger,
		interval:  interval,
		maxAge:    maxAge,
	}, nil
}

// Start runs the scheduler loop.
func (t *Trigger) Start() {
	t.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running job to finish.
func (t *Trigger) Stop() error {
	return t.scheduler.Shutdown()
}

// SettingsChanged must be called whenever the connector configuration
// changes. Any cached token is untrustworthy at that point (credentials may
// have changed), so the token cache entry is purged first. The periodic sync
// job is then scheduled or rescheduled when the API is reachable with the
// current credentials, and unscheduled when it is not.
func (t *Trigger) SettingsChanged(ctx context.Context) {
	t.store.Delete(cache.KeyAccessToken)

	client, err := t.provider(ctx)
	if err != nil {
		t.logger.Warn("connector not configured, unscheduling sync job", "error", err)
		t.unschedule()
		return
	}

	if client.CanConnect(ctx) {
		t.scheduleOrReschedule()
		return
	}

	t.logger.Warn("api unreachable, unscheduling sync job")
	t.unschedule()
}

// Scheduled reports whether the periodic job is currently registered.
func (t *Trigger) Scheduled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job != nil
}

func (t *Trigger) scheduleOrReschedule() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.job != nil {
		if err := t.scheduler.RemoveJob(t.job.ID()); err != nil {
			t.logger.Warn("failed to remove previous sync job", "error", err)
		}
		t.job = nil
	}

	job, err := t.scheduler.NewJob(
		gocron.DurationJob(t.interval),
		gocron.NewTask(func() {
			t.runScheduledSync()
		}),
		gocron.WithName(syncJobName),
	)
	if err != nil {
		t.logger.Error("failed to schedule sync job", "error", err)
		return
	}

	t.job = job
	t.logger.Info("sync job scheduled", "interval", t.interval)
}

func (t *Trigger) unschedule() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.job == nil {
		return
	}

	if err := t.scheduler.RemoveJob(t.job.ID()); err != nil {
		t.logger.Warn("failed to unschedule sync job", "error", err)
	}
	t.job = nil
}

func (t *Trigger) runScheduledSync() {
	if err := t.RunSync(context.Background()); err != nil {
		t.logger.Error("scheduled sync failed", "error", err)
	}
}

// RunSync executes one full reconciliation pass: walk stale external ids in
// chunks, fetch their fresh remote state batch by batch, apply updates, then
// clean up orphaned records.
func (t *Trigger) RunSync(ctx context.Context) error {
	start := time.Now()
	threshold := start.Add(-t.maxAge)

	client, err := t.provider(ctx)
	if err != nil {
		metrics.RecordSyncRun("error")
		return err
	}

	for chunk, err := range t.engine.StaleContentIDChunks(ctx, threshold, 0, engine.DefaultChunkSize) {
		if err != nil {
			metrics.RecordSyncRun("error")
			return err
		}

		fresh := make(map[string]edflex.Content, len(chunk))
		for content, err := range client.ContentsByIDs(ctx, chunk) {
			if err != nil {
				metrics.RecordSyncRun("error")
				return err
			}
			fresh[content.ExternalID] = content
		}

		if err := t.engine.UpdateFromContents(ctx, fresh, engine.DefaultCommitBatch); err != nil {
			metrics.RecordSyncRun("error")
			return err
		}
	}

	if _, err := t.engine.DeleteOrphans(ctx); err != nil {
		metrics.RecordSyncRun("error")
		return err
	}

	metrics.RecordSyncRun("success")
	t.logger.Info("sync pass complete", "duration", time.Since(start))

	return nil
}
