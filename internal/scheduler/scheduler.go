// Package scheduler drives the recurring inventory jobs off cron schedules
// and exposes manual triggering for the API layer.
package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/cluster"
	"github.com/jsteinberg1/cucm-phone-info/internal/config"
	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// ClusterSource supplies the active cluster set. *cluster.Registry satisfies
// it.
type ClusterSource interface {
	Names() []string
	Get(name string) (*cluster.Cluster, bool)
}

// SyncRunner runs one cluster's inventory sync.
type SyncRunner interface {
	Run(ctx context.Context, clusterName string, metadata inventory.MetadataAPI, registration inventory.RegistrationAPI) error
}

// FanoutRunner runs one scrape fan-out pass.
type FanoutRunner interface {
	Run(ctx context.Context, clusterFilter string) error
}

// Scheduler owns the two cron entries: the hourly cluster sync and the daily
// scrape fan-out. While any job runs, scheduled triggering is suspended so
// the jobs never overlap.
type Scheduler struct {
	registry ClusterSource
	syncJob  SyncRunner
	fanout   FanoutRunner
	logger   *zap.Logger

	mu         sync.Mutex
	cron       *cron.Cron
	syncSpec   string
	scrapeSpec string
	syncID     cron.EntryID
	scrapeID   cron.EntryID
	running    bool
	parent     context.Context

	busyMu sync.Mutex
	busy   bool

	manualWG sync.WaitGroup
}

// New builds a scheduler from configuration. Cron specs come from the sync
// minute and the daily scrape time.
func New(registry ClusterSource, syncJob SyncRunner, fanout FanoutRunner, cfg config.Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		registry:   registry,
		syncJob:    syncJob,
		fanout:     fanout,
		logger:     logger,
		syncSpec:   cfg.SyncCronSpec(),
		scrapeSpec: cfg.ScrapeCronSpec(),
	}
}

// Start registers the cron entries and begins scheduling. Calling Start on a
// running scheduler is a no-op.
func (s *Scheduler) Start(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	syncID, err := c.AddFunc(s.syncSpec, func() { s.scheduledRun(inventory.JobClusterSync) })
	if err != nil {
		return err
	}
	scrapeID, err := c.AddFunc(s.scrapeSpec, func() { s.scheduledRun(inventory.JobPhoneScrape) })
	if err != nil {
		return err
	}

	s.cron = c
	s.syncID = syncID
	s.scrapeID = scrapeID
	s.parent = parent
	s.running = true
	c.Start()

	s.logger.Info("scheduler started",
		zap.String("sync_spec", s.syncSpec),
		zap.String("scrape_spec", s.scrapeSpec),
	)
	return nil
}

// Stop halts scheduling and waits for in-flight jobs, both scheduled and
// manually triggered, to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	<-c.Stop().Done()
	s.manualWG.Wait()
	s.logger.Info("scheduler stopped")
}

// Running reports whether the scheduler has been started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerManual launches a job outside its schedule. It reports false when
// the scheduler is not running, the kind is unknown, or another job is
// already in flight.
func (s *Scheduler) TriggerManual(kind inventory.JobKind) bool {
	if kind != inventory.JobClusterSync && kind != inventory.JobPhoneScrape {
		return false
	}
	if !s.Running() {
		return false
	}
	if !s.tryAcquire() {
		return false
	}
	s.manualWG.Add(1)
	go func() {
		defer s.manualWG.Done()
		defer s.release()
		s.execute(kind, "manual")
	}()
	return true
}

// Reschedule swaps both cron specs from current settings. Entries are
// replaced in place; an in-flight job keeps running and the new schedule
// takes effect from the next trigger.
func (s *Scheduler) Reschedule(cfg config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	syncSpec := cfg.SyncCronSpec()
	scrapeSpec := cfg.ScrapeCronSpec()

	if s.cron != nil {
		s.cron.Remove(s.syncID)
		s.cron.Remove(s.scrapeID)
		syncID, err := s.cron.AddFunc(syncSpec, func() { s.scheduledRun(inventory.JobClusterSync) })
		if err != nil {
			return err
		}
		scrapeID, err := s.cron.AddFunc(scrapeSpec, func() { s.scheduledRun(inventory.JobPhoneScrape) })
		if err != nil {
			return err
		}
		s.syncID = syncID
		s.scrapeID = scrapeID
	}

	s.syncSpec = syncSpec
	s.scrapeSpec = scrapeSpec
	s.logger.Info("jobs rescheduled",
		zap.String("sync_spec", syncSpec),
		zap.String("scrape_spec", scrapeSpec),
	)
	return nil
}

func (s *Scheduler) scheduledRun(kind inventory.JobKind) {
	if !s.tryAcquire() {
		s.logger.Warn("previous job still running, skipping scheduled trigger",
			zap.String("kind", string(kind)),
		)
		return
	}
	defer s.release()
	s.execute(kind, "scheduled")
}

// execute runs one job with scheduled triggering suspended for the duration.
// A panicking job is recovered so triggering always resumes.
func (s *Scheduler) execute(kind inventory.JobKind, trigger string) {
	s.pauseTriggers()
	defer s.resumeTriggers()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				zap.String("kind", string(kind)),
				zap.Any("panic", r),
			)
		}
	}()

	s.logger.Info("job triggered",
		zap.String("kind", string(kind)),
		zap.String("trigger", trigger),
	)

	ctx := s.jobContext()
	switch kind {
	case inventory.JobClusterSync:
		for _, name := range s.registry.Names() {
			cl, ok := s.registry.Get(name)
			if !ok {
				continue
			}
			if err := s.syncJob.Run(ctx, cl.Name, cl.Metadata, cl.Registration); err != nil {
				s.logger.Error("cluster sync failed",
					zap.String("cluster", cl.Name),
					zap.Error(err),
				)
			}
		}
	case inventory.JobPhoneScrape:
		if err := s.fanout.Run(ctx, ""); err != nil {
			s.logger.Error("scrape fan-out failed", zap.Error(err))
		}
	}
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parent != nil {
		return s.parent
	}
	return context.Background()
}

func (s *Scheduler) tryAcquire() bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Scheduler) release() {
	s.busyMu.Lock()
	s.busy = false
	s.busyMu.Unlock()
}

// pauseTriggers stops the cron loop without waiting for jobs; the caller may
// itself be a cron job.
func (s *Scheduler) pauseTriggers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.cron.Stop()
	}
}

// resumeTriggers restarts the cron loop unless the scheduler was stopped
// while the job ran.
func (s *Scheduler) resumeTriggers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.cron != nil {
		s.cron.Start()
	}
}
