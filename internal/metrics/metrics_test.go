package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	require.NotPanics(t, Init)
}

func TestObserversDoNotPanic(t *testing.T) {
	Init()

	require.NotPanics(t, func() {
		ObserveSyncRun("main", "finished")
		ObservePhonesUpserted("main", 42)
		ObservePhonesUpserted("main", 0)
		ObserveRegistrationBatch()
		ObserveScrape("success", 1200*time.Millisecond)
		ObserveScrape("parse_error", 0)
		SetQueueBacklog(17)
		IncActiveWorkers()
		DecActiveWorkers()
	})
}

func TestHandlerServesRegistry(t *testing.T) {
	Init()
	require.NotNil(t, Handler())
}
