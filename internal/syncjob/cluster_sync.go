// Package syncjob implements the per-cluster inventory sync and the scrape
// fan-out coordinator.
package syncjob

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/batch"
	"github.com/jsteinberg1/cucm-phone-info/internal/config"
	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
	"github.com/jsteinberg1/cucm-phone-info/internal/metrics"
)

// Sentinel errors distinguishing which upstream leg of a sync run failed.
var (
	ErrMetadataUnavailable     = errors.New("metadata api unavailable")
	ErrRegistrationUnavailable = errors.New("registration api unavailable")
	ErrEmptyMetadata           = errors.New("metadata listing returned no phones")
)

// ClusterSync reconciles one cluster's metadata and registration state into
// the phone table.
type ClusterSync struct {
	store      inventory.Store
	clock      inventory.Clock
	logger     *zap.Logger
	pageSize   int
	pageLimit  int
	batchSize  int
	batchDelay time.Duration
}

// NewClusterSync builds the sync job from configuration.
func NewClusterSync(store inventory.Store, clock inventory.Clock, cfg config.SyncConfig, logger *zap.Logger) *ClusterSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ClusterSync{
		store:      store,
		clock:      clock,
		logger:     logger,
		pageSize:   cfg.PageSize,
		pageLimit:  cfg.PageLimit,
		batchSize:  cfg.BatchSize,
		batchDelay: time.Duration(cfg.BatchDelaySeconds) * time.Second,
	}
	if s.pageSize <= 0 {
		s.pageSize = 1000
	}
	if s.pageLimit <= 0 {
		s.pageLimit = 100
	}
	if s.batchSize <= 0 {
		s.batchSize = 1000
	}
	return s
}

// Run executes one sync pass for a cluster. The job status row is marked
// started before any upstream call and marked ended no matter how the run
// finishes; on an aborted run the result text carries the error.
func (s *ClusterSync) Run(ctx context.Context, clusterName string, metadata inventory.MetadataAPI, registration inventory.RegistrationAPI) error {
	jobName := fmt.Sprintf("%s cucm phone sync", clusterName)
	logger := s.logger.With(zap.String("cluster", clusterName))

	if err := s.store.MarkJobStart(ctx, jobName); err != nil {
		logger.Error("mark job start", zap.Error(err))
	}

	runErr := s.sync(ctx, clusterName, metadata, registration, logger)

	result := "finished"
	outcome := "ok"
	if runErr != nil {
		result = runErr.Error()
		outcome = "error"
	}
	metrics.ObserveSyncRun(clusterName, outcome)
	if err := s.store.MarkJobEnd(ctx, jobName, result); err != nil {
		logger.Error("mark job end", zap.Error(err))
	}
	return runErr
}

func (s *ClusterSync) sync(ctx context.Context, clusterName string, metadata inventory.MetadataAPI, registration inventory.RegistrationAPI, logger *zap.Logger) error {
	entries, err := s.listAllPhones(ctx, metadata)
	if err != nil {
		logger.Error("metadata retrieval failed", zap.Error(err))
		return err
	}
	if len(entries) == 0 {
		return ErrEmptyMetadata
	}
	logger.Info("retrieved phones from metadata api", zap.Int("phones", len(entries)))

	// Index metadata by normalized device name. The same name list drives
	// the registration query so both views cover the same devices.
	index := make(map[string]inventory.MetadataEntry, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := inventory.NormalizeDeviceName(entry.Name)
		if name == "" {
			continue
		}
		if _, dup := index[name]; !dup {
			names = append(names, name)
		}
		index[name] = entry
	}

	registered, err := s.queryRegistration(ctx, registration, names, logger)
	if err != nil {
		logger.Error("registration retrieval failed", zap.Error(err))
		return err
	}
	logger.Info("retrieved phones from registration api", zap.Int("phones", len(registered)))

	phones := s.merge(clusterName, registered, index)

	// A persistence failure is logged but does not fail the run; the next
	// cycle retries with fresh upstream data anyway.
	if err := s.store.UpsertPhones(ctx, phones); err != nil {
		logger.Error("store phones", zap.Error(err))
	} else {
		metrics.ObservePhonesUpserted(clusterName, len(phones))
		logger.Info("stored phones", zap.Int("phones", len(phones)))
	}
	return nil
}

// listAllPhones pages through the metadata listing until a short or empty
// page. The page cap bounds runaway listings on a misbehaving cluster.
func (s *ClusterSync) listAllPhones(ctx context.Context, metadata inventory.MetadataAPI) ([]inventory.MetadataEntry, error) {
	var entries []inventory.MetadataEntry
	for page := 0; page < s.pageLimit; page++ {
		pageEntries, err := metadata.ListPhonesPage(ctx, s.pageSize, page*s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrMetadataUnavailable, page+1, err)
		}
		entries = append(entries, pageEntries...)
		if len(pageEntries) < s.pageSize {
			break
		}
	}
	return entries, nil
}

// queryRegistration fetches live state for the device names in fixed-size
// batches, pausing between batches so the realtime service is not flooded.
// Any batch failure aborts the whole run; nothing partial is persisted.
func (s *ClusterSync) queryRegistration(ctx context.Context, registration inventory.RegistrationAPI, names []string, logger *zap.Logger) ([]inventory.RegistrationEntry, error) {
	batches := batch.Split(names, s.batchSize)

	var registered []inventory.RegistrationEntry
	for i, chunk := range batches {
		logger.Info("registration query batch",
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
		)
		results, err := registration.GetRegisteredPhones(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d: %v", ErrRegistrationUnavailable, i+1, err)
		}
		metrics.ObserveRegistrationBatch()
		for _, entry := range results {
			if entry.Status == "Registered" {
				registered = append(registered, entry)
			}
		}
		if i < len(batches)-1 {
			if err := sleepCtx(ctx, s.batchDelay); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRegistrationUnavailable, err)
			}
		}
	}
	return registered, nil
}

// merge joins registration state with the metadata index into phone records.
// Registration is authoritative for presence; a device without a metadata
// entry keeps empty metadata fields.
func (s *ClusterSync) merge(clusterName string, registered []inventory.RegistrationEntry, index map[string]inventory.MetadataEntry) []inventory.Phone {
	now := s.clock.Now()

	phones := make([]inventory.Phone, 0, len(registered))
	for _, reg := range registered {
		name := inventory.NormalizeDeviceName(reg.Name)
		phone := inventory.Phone{
			DeviceName: name,
			Firmware:   reg.ActiveLoadID,
			IPv4:       validIP(reg.IPAddress),
			LastSeen:   now,
			Cluster:    clusterName,
			Protocol:   reg.Protocol,
			Model:      inventory.ModelName(reg.ModelCode),
		}
		if reg.RegistrationUnix > 0 {
			phone.RegistrationTime = time.Unix(reg.RegistrationUnix, 0)
		}
		if meta, ok := index[name]; ok {
			phone.DevicePool = meta.DevicePool
			phone.DeviceCSS = meta.DeviceCSS
			phone.Description = meta.Description
			phone.EMProfile = meta.EMProfile
			if meta.EMProfile != "" && meta.EMLoginEpoch > 0 {
				login := time.Unix(meta.EMLoginEpoch, 0)
				phone.EMLoginTime = &login
			}
		}
		phones = append(phones, phone)
	}
	return phones
}

// validIP returns the address unchanged when parseable, empty otherwise.
func validIP(addr string) string {
	if net.ParseIP(addr) == nil {
		return ""
	}
	return addr
}

// sleepCtx waits for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
