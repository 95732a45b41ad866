// Package worker implements the scrape execution pool.
package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
	"github.com/jsteinberg1/cucm-phone-info/internal/metrics"
	"github.com/jsteinberg1/cucm-phone-info/internal/scraper"
)

// Pool consumes scrape units from the queue and persists results. Every
// failure is isolated to its device; a bad phone never takes down a worker.
type Pool struct {
	queue   inventory.Queue
	store   inventory.Store
	scraper *scraper.Scraper
	clock   inventory.Clock
	size    int
	logger  *zap.Logger
}

// NewPool constructs a worker pool of the given size.
func NewPool(queue inventory.Queue, store inventory.Store, s *scraper.Scraper, clock inventory.Clock, size int, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 1
	}
	return &Pool{
		queue:   queue,
		store:   store,
		scraper: s,
		clock:   clock,
		size:    size,
		logger:  logger,
	}
}

// Run starts the workers and blocks until the context finishes and every
// worker has returned.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	logger := p.logger.With(zap.Int("worker", id))
	logger.Debug("scrape worker started")
	for {
		unit, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("scrape worker stopping")
				return
			}
			logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		p.process(ctx, unit, logger)
	}
}

// process scrapes one device and persists the result. Results without a
// serial number are dropped; partially-reachable phones produce records too
// sparse to be useful.
func (p *Pool) process(ctx context.Context, unit inventory.ScrapeUnit, logger *zap.Logger) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	started := p.clock.Now()
	record, err := p.scraper.Scrape(ctx, unit.IP, unit.Model)
	if err != nil {
		if errors.Is(err, scraper.ErrNoHostname) {
			logger.Error("unable to find hostname", zap.String("ip", unit.IP))
			metrics.ObserveScrape("no_hostname", p.clock.Now().Sub(started))
			return
		}
		logger.Error("error scraping device",
			zap.String("ip", unit.IP),
			zap.String("model", unit.Model),
			zap.Error(err),
		)
		metrics.ObserveScrape("error", p.clock.Now().Sub(started))
		return
	}

	if record.SerialNumber == "" {
		logger.Debug("skipping device without serial number", zap.String("ip", unit.IP))
		metrics.ObserveScrape("no_serial", p.clock.Now().Sub(started))
		return
	}

	record.DateModified = p.clock.Now()
	if err := p.store.UpsertScrape(ctx, record); err != nil {
		logger.Error("error saving scrape to db",
			zap.String("ip", unit.IP),
			zap.String("devicename", record.DeviceName),
			zap.Error(err),
		)
		metrics.ObserveScrape("store_error", p.clock.Now().Sub(started))
		return
	}

	metrics.ObserveScrape("ok", p.clock.Now().Sub(started))
	logger.Debug("scrape stored",
		zap.String("ip", unit.IP),
		zap.String("devicename", record.DeviceName),
	)
}
