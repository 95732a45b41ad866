package syncjob

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/config"
	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
	"github.com/jsteinberg1/cucm-phone-info/internal/metrics"
)

// fanoutJobName is the job status row shared by every fan-out run.
const fanoutJobName = "phone scraper"

// Fanout selects recently-registered phones and queues one scrape unit per
// device, then waits for the worker pool to drain the queue.
type Fanout struct {
	store         inventory.Store
	queue         inventory.Queue
	clock         inventory.Clock
	logger        *zap.Logger
	freshness     time.Duration
	warnThreshold int
	pollInterval  time.Duration
}

// NewFanout builds the fan-out coordinator from configuration.
func NewFanout(store inventory.Store, queue inventory.Queue, clock inventory.Clock, cfg config.ScrapeConfig, logger *zap.Logger) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fanout{
		store:         store,
		queue:         queue,
		clock:         clock,
		logger:        logger,
		freshness:     time.Duration(cfg.FreshnessHours) * time.Hour,
		warnThreshold: cfg.BacklogWarnThreshold,
		pollInterval:  time.Duration(cfg.DrainPollSeconds) * time.Second,
	}
	if f.freshness <= 0 {
		f.freshness = 24 * time.Hour
	}
	if f.warnThreshold <= 0 {
		f.warnThreshold = 25
	}
	if f.pollInterval <= 0 {
		f.pollInterval = 30 * time.Second
	}
	return f
}

// Run executes one fan-out pass. An empty clusterFilter covers every
// cluster. The run blocks until the queue drains, which can take hours on a
// large estate, so callers hand in a cancelable context.
func (f *Fanout) Run(ctx context.Context, clusterFilter string) error {
	if err := f.store.MarkJobStart(ctx, fanoutJobName); err != nil {
		f.logger.Error("mark job start", zap.Error(err))
	}

	runErr := f.fanout(ctx, clusterFilter)

	result := "finished"
	if runErr != nil {
		result = runErr.Error()
	}
	if err := f.store.MarkJobEnd(ctx, fanoutJobName, result); err != nil {
		f.logger.Error("mark job end", zap.Error(err))
	}
	return runErr
}

func (f *Fanout) fanout(ctx context.Context, clusterFilter string) error {
	phones, err := f.store.GetPhones(ctx, clusterFilter)
	if err != nil {
		return fmt.Errorf("load phones: %w", err)
	}

	// Only phones seen registered inside the freshness window are worth
	// scraping; anything older is likely unreachable.
	now := f.clock.Now()
	cutoff := now.Add(-f.freshness)
	var due []inventory.Phone
	for _, phone := range phones {
		if phone.LastSeen.Before(cutoff) || phone.LastSeen.After(now) {
			continue
		}
		due = append(due, phone)
	}

	// A deep backlog means the previous run never drained. Warn and
	// continue; duplicate scrape units are harmless.
	if backlog := f.queue.Len(); backlog > f.warnThreshold {
		f.logger.Warn("scrape queue still has backlog from previous run", zap.Int("backlog", backlog))
	}

	enqueued := 0
	for _, phone := range due {
		if phone.IPv4 == "" {
			f.logger.Debug("skipping device without ip", zap.String("devicename", phone.DeviceName))
			continue
		}
		unit := inventory.ScrapeUnit{IP: phone.IPv4, Model: phone.Model}
		if err := f.queue.Enqueue(ctx, unit); err != nil {
			f.logger.Error("enqueue scrape unit",
				zap.String("devicename", phone.DeviceName),
				zap.Error(err),
			)
			continue
		}
		enqueued++
	}
	f.logger.Info("scrape fan-out queued devices",
		zap.Int("eligible", len(due)),
		zap.Int("queued", enqueued),
	)

	// Poll until the workers drain the queue. No upper bound; the job
	// status row stays "running" for the duration.
	for {
		backlog := f.queue.Len()
		metrics.SetQueueBacklog(backlog)
		if backlog == 0 {
			return nil
		}
		f.logger.Debug("scrape queue draining", zap.Int("backlog", backlog))
		if err := sleepCtx(ctx, f.pollInterval); err != nil {
			return fmt.Errorf("drain wait: %w", err)
		}
	}
}
