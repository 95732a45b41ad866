// Package memory provides an in-memory Store for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// Store keeps phones, scrapes, and job statuses in process memory. It is safe
// for concurrent use and mirrors the upsert-by-key, never-delete semantics of
// the Postgres store.
type Store struct {
	mu       sync.RWMutex
	phones   map[string]inventory.Phone
	scrapes  map[string]inventory.PhoneScrape
	jobs     map[string]inventory.JobStatus
	now      func() time.Time
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		phones:  make(map[string]inventory.Phone),
		scrapes: make(map[string]inventory.PhoneScrape),
		jobs:    make(map[string]inventory.JobStatus),
		now:     time.Now,
	}
}

// GetPhones returns all phones, optionally filtered to one cluster, ordered
// by device name.
func (s *Store) GetPhones(_ context.Context, clusterFilter string) ([]inventory.Phone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	phones := make([]inventory.Phone, 0, len(s.phones))
	for _, phone := range s.phones {
		if clusterFilter != "" && phone.Cluster != clusterFilter {
			continue
		}
		phones = append(phones, phone)
	}
	sort.Slice(phones, func(i, j int) bool {
		return phones[i].DeviceName < phones[j].DeviceName
	})
	return phones, nil
}

// UpsertPhones inserts or replaces phones keyed by device name. An existing
// record keeps its original FirstSeen.
func (s *Store) UpsertPhones(_ context.Context, phones []inventory.Phone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, phone := range phones {
		key := inventory.NormalizeDeviceName(phone.DeviceName)
		phone.DeviceName = key
		if existing, ok := s.phones[key]; ok {
			phone.FirstSeen = existing.FirstSeen
		} else if phone.FirstSeen.IsZero() {
			phone.FirstSeen = s.now()
		}
		s.phones[key] = phone
	}
	return nil
}

// UpsertScrape inserts or replaces a scrape record keyed by device name.
func (s *Store) UpsertScrape(_ context.Context, scrape inventory.PhoneScrape) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inventory.NormalizeDeviceName(scrape.DeviceName)
	scrape.DeviceName = key
	s.scrapes[key] = scrape
	return nil
}

// GetScrape looks up the scrape record for a device name.
func (s *Store) GetScrape(_ context.Context, deviceName string) (inventory.PhoneScrape, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scrape, ok := s.scrapes[inventory.NormalizeDeviceName(deviceName)]
	return scrape, ok, nil
}

// ScrapeCount reports how many scrape records exist.
func (s *Store) ScrapeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scrapes)
}

// MarkJobStart overwrites the job's status record with a running sentinel.
func (s *Store) MarkJobStart(_ context.Context, jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[jobName] = inventory.JobStatus{
		JobName:       jobName,
		LastStartTime: s.now(),
		Result:        "running job..",
	}
	return nil
}

// MarkJobEnd overwrites the job's result text, keeping the last start time.
func (s *Store) MarkJobEnd(_ context.Context, jobName string, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.jobs[jobName]
	status.JobName = jobName
	status.Result = result
	s.jobs[jobName] = status
	return nil
}

// GetJobStatuses returns every job status record, ordered by job name.
func (s *Store) GetJobStatuses(_ context.Context) ([]inventory.JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]inventory.JobStatus, 0, len(s.jobs))
	for _, status := range s.jobs {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].JobName < statuses[j].JobName
	})
	return statuses, nil
}
