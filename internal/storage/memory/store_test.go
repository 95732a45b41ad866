package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

func TestUpsertPhonesPreservesFirstSeen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()

	firstSeen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.UpsertPhones(ctx, []inventory.Phone{{
		DeviceName: "SEP001122334455",
		Cluster:    "main",
		FirstSeen:  firstSeen,
		LastSeen:   firstSeen,
	}}))

	later := firstSeen.Add(48 * time.Hour)
	require.NoError(t, store.UpsertPhones(ctx, []inventory.Phone{{
		DeviceName: "sep001122334455", // same identity, different case
		Cluster:    "main",
		FirstSeen:  later,
		LastSeen:   later,
	}}))

	phones, err := store.GetPhones(ctx, "")
	require.NoError(t, err)
	require.Len(t, phones, 1)
	require.Equal(t, "SEP001122334455", phones[0].DeviceName)
	require.Equal(t, firstSeen, phones[0].FirstSeen)
	require.Equal(t, later, phones[0].LastSeen)
}

func TestUpsertPhonesStampsFirstSeenOnCreate(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.UpsertPhones(context.Background(), []inventory.Phone{{
		DeviceName: "SEPAAAA11112222",
	}}))

	phones, err := store.GetPhones(context.Background(), "")
	require.NoError(t, err)
	require.False(t, phones[0].FirstSeen.IsZero())
}

func TestGetPhonesClusterFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.UpsertPhones(ctx, []inventory.Phone{
		{DeviceName: "SEPA", Cluster: "east"},
		{DeviceName: "SEPB", Cluster: "west"},
		{DeviceName: "SEPC", Cluster: "east"},
	}))

	east, err := store.GetPhones(ctx, "east")
	require.NoError(t, err)
	require.Len(t, east, 2)
	require.Equal(t, "SEPA", east[0].DeviceName)
	require.Equal(t, "SEPC", east[1].DeviceName)

	all, err := store.GetPhones(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestUpsertScrapeOverwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.UpsertScrape(ctx, inventory.PhoneScrape{
		DeviceName:   "SEP001122334455",
		SerialNumber: "FCH1111AAAA",
	}))
	require.NoError(t, store.UpsertScrape(ctx, inventory.PhoneScrape{
		DeviceName:   "SEP001122334455",
		SerialNumber: "FCH2222BBBB",
	}))

	scrape, ok, err := store.GetScrape(ctx, "SEP001122334455")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "FCH2222BBBB", scrape.SerialNumber)
	require.Equal(t, 1, store.ScrapeCount())
}

func TestJobStatusLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.MarkJobStart(ctx, "main cucm phone sync"))

	statuses, err := store.GetJobStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	require.Equal(t, "running job..", statuses[0].Result)
	started := statuses[0].LastStartTime
	require.False(t, started.IsZero())

	require.NoError(t, store.MarkJobEnd(ctx, "main cucm phone sync", "Finished at 2026-08-30 02:31:00"))

	statuses, err = store.GetJobStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	require.Contains(t, statuses[0].Result, "Finished")
	require.Equal(t, started, statuses[0].LastStartTime)
}
