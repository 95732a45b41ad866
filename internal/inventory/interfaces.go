package inventory

import (
	"context"
	"time"
)

// Store persists phones, scrape results, and job statuses. Upserts are keyed
// by device name (or job name) and never delete; UpsertPhones must preserve an
// existing record's FirstSeen.
type Store interface {
	GetPhones(ctx context.Context, clusterFilter string) ([]Phone, error)
	UpsertPhones(ctx context.Context, phones []Phone) error
	UpsertScrape(ctx context.Context, scrape PhoneScrape) error
	GetScrape(ctx context.Context, deviceName string) (PhoneScrape, bool, error)
	MarkJobStart(ctx context.Context, jobName string) error
	MarkJobEnd(ctx context.Context, jobName string, result string) error
	GetJobStatuses(ctx context.Context) ([]JobStatus, error)
}

// MetadataAPI pages through bulk phone configuration (AXL listPhone).
// A page smaller than pageSize, or empty, terminates retrieval.
type MetadataAPI interface {
	ListPhonesPage(ctx context.Context, pageSize, skip int) ([]MetadataEntry, error)
}

// RegistrationAPI queries live registration state (RisPort SelectCmDeviceExt).
// Callers are responsible for capping the size of names per call.
type RegistrationAPI interface {
	GetRegisteredPhones(ctx context.Context, names []string) ([]RegistrationEntry, error)
}

// Queue carries scrape units from the fan-out coordinator to the worker pool.
// Len reports the current backlog so the coordinator can poll for drain.
type Queue interface {
	Enqueue(ctx context.Context, unit ScrapeUnit) error
	Dequeue(ctx context.Context) (ScrapeUnit, error)
	Len() int
}

// PageFetcher retrieves one device web page as raw bytes.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
