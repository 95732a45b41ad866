package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/cluster"
	"github.com/jsteinberg1/cucm-phone-info/internal/config"
	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

type fakeClusterSource struct {
	clusters []*cluster.Cluster
}

func (f *fakeClusterSource) Names() []string {
	names := make([]string, len(f.clusters))
	for i, c := range f.clusters {
		names[i] = c.Name
	}
	return names
}

func (f *fakeClusterSource) Get(name string) (*cluster.Cluster, bool) {
	for _, c := range f.clusters {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

type fakeSyncRunner struct {
	mu   sync.Mutex
	runs []string
}

func (f *fakeSyncRunner) Run(_ context.Context, clusterName string, _ inventory.MetadataAPI, _ inventory.RegistrationAPI) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, clusterName)
	return nil
}

func (f *fakeSyncRunner) clusters() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

type fakeFanoutRunner struct {
	mu      sync.Mutex
	runs    int
	filters []string
	block   chan struct{}
}

func (f *fakeFanoutRunner) Run(_ context.Context, clusterFilter string) error {
	f.mu.Lock()
	f.runs++
	f.filters = append(f.filters, clusterFilter)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return nil
}

func (f *fakeFanoutRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func schedulerConfig() config.Config {
	return config.Config{
		Sync:   config.SyncConfig{Minute: 15},
		Scrape: config.ScrapeConfig{DailyAt: "02:30"},
	}
}

func newTestScheduler(source ClusterSource, syncRunner SyncRunner, fanout FanoutRunner) *Scheduler {
	return New(source, syncRunner, fanout, schedulerConfig(), zap.NewNop())
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(&fakeClusterSource{}, &fakeSyncRunner{}, &fakeFanoutRunner{})
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.True(t, s.Running())
}

func TestStartRejectsBadSpec(t *testing.T) {
	t.Parallel()

	cfg := schedulerConfig()
	cfg.Sync.Minute = 99
	s := New(&fakeClusterSource{}, &fakeSyncRunner{}, &fakeFanoutRunner{}, cfg, zap.NewNop())
	require.Error(t, s.Start(context.Background()))
	require.False(t, s.Running())
}

func TestTriggerManualRequiresRunningScheduler(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(&fakeClusterSource{}, &fakeSyncRunner{}, &fakeFanoutRunner{})
	require.False(t, s.TriggerManual(inventory.JobClusterSync))
}

func TestTriggerManualRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(&fakeClusterSource{}, &fakeSyncRunner{}, &fakeFanoutRunner{})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.False(t, s.TriggerManual(inventory.JobKind("defrag")))
}

func TestTriggerManualRunsSyncForEveryCluster(t *testing.T) {
	t.Parallel()

	source := &fakeClusterSource{clusters: []*cluster.Cluster{
		{Name: "hq"},
		{Name: "branch"},
	}}
	syncRunner := &fakeSyncRunner{}

	s := newTestScheduler(source, syncRunner, &fakeFanoutRunner{})
	require.NoError(t, s.Start(context.Background()))

	require.True(t, s.TriggerManual(inventory.JobClusterSync))
	require.Eventually(t, func() bool {
		return len(syncRunner.clusters()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"hq", "branch"}, syncRunner.clusters())

	s.Stop()
}

func TestTriggerManualRefusedWhileJobInFlight(t *testing.T) {
	t.Parallel()

	fanout := &fakeFanoutRunner{block: make(chan struct{})}
	s := newTestScheduler(&fakeClusterSource{}, &fakeSyncRunner{}, fanout)
	require.NoError(t, s.Start(context.Background()))

	require.True(t, s.TriggerManual(inventory.JobPhoneScrape))
	require.Eventually(t, func() bool {
		return fanout.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Both kinds are excluded while the fan-out runs.
	require.False(t, s.TriggerManual(inventory.JobPhoneScrape))
	require.False(t, s.TriggerManual(inventory.JobClusterSync))

	close(fanout.block)
	require.Eventually(t, func() bool {
		return s.TriggerManual(inventory.JobClusterSync)
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
}

func TestStopWaitsForManualJob(t *testing.T) {
	t.Parallel()

	fanout := &fakeFanoutRunner{block: make(chan struct{})}
	s := newTestScheduler(&fakeClusterSource{}, &fakeSyncRunner{}, fanout)
	require.NoError(t, s.Start(context.Background()))

	require.True(t, s.TriggerManual(inventory.JobPhoneScrape))
	require.Eventually(t, func() bool {
		return fanout.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(fanout.block)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the job finished")
	}
	require.False(t, s.Running())
}

func TestRescheduleSwapsSpecs(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(&fakeClusterSource{}, &fakeSyncRunner{}, &fakeFanoutRunner{})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	cfg := schedulerConfig()
	cfg.Sync.Minute = 45
	cfg.Scrape.DailyAt = "23:05"
	require.NoError(t, s.Reschedule(cfg))

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Equal(t, "45 * * * *", s.syncSpec)
	require.Equal(t, "5 23 * * *", s.scrapeSpec)
}

func TestRescheduleBeforeStart(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(&fakeClusterSource{}, &fakeSyncRunner{}, &fakeFanoutRunner{})

	cfg := schedulerConfig()
	cfg.Sync.Minute = 5
	require.NoError(t, s.Reschedule(cfg))

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
