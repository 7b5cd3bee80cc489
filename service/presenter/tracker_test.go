package presenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_NoPaymentIsNoop(t *testing.T) {
	tr := NewPaymentTracker()
	tr.Record(time.Now(), false, false)

	exact, any, recent := tr.Snapshot()
	assert.Zero(t, exact)
	assert.Zero(t, any)
	assert.Empty(t, recent)
}

func TestTracker_ExactIncrementsBoth(t *testing.T) {
	tr := NewPaymentTracker()
	tr.Record(time.Now(), true, true)

	exact, any, _ := tr.Snapshot()
	assert.Equal(t, 1, exact)
	assert.Equal(t, 1, any)
}

func TestTracker_AnyOnly(t *testing.T) {
	tr := NewPaymentTracker()
	tr.Record(time.Now(), true, false)
	tr.Record(time.Now(), true, true)

	exact, any, recent := tr.Snapshot()
	assert.Equal(t, 1, exact)
	assert.Equal(t, 2, any)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].IsExact, "newest entry first")
	assert.False(t, recent[1].IsExact)
}

func TestTracker_HistoryCap(t *testing.T) {
	tr := NewPaymentTracker()
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		tr.Record(base.Add(time.Duration(i)*time.Second), true, false)
	}

	exact, any, recent := tr.Snapshot()
	assert.Zero(t, exact)
	assert.Equal(t, 15, any, "counters are not capped")
	require.Len(t, recent, 10, "history is capped")
	assert.Equal(t, "12:00:14", recent[0].Time, "newest survives")
	assert.Equal(t, "12:00:05", recent[9].Time, "oldest five evicted")
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tr := NewPaymentTracker()
	tr.Record(time.Now(), true, false)

	_, _, recent := tr.Snapshot()
	require.Len(t, recent, 1)
	recent[0].Time = "mutated"

	_, _, again := tr.Snapshot()
	assert.NotEqual(t, "mutated", again[0].Time)
}

func TestTracker_RecordFormat(t *testing.T) {
	tr := NewPaymentTracker()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.Record(at, true, true)

	_, _, recent := tr.Snapshot()
	require.Len(t, recent, 1)
	assert.Equal(t, "2026-01-02", recent[0].Date)
	assert.Equal(t, "03:04:05", recent[0].Time)
}

func TestTracker_ConcurrentRecords(t *testing.T) {
	tr := NewPaymentTracker()
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				tr.Record(time.Now(), true, j%2 == 0)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	exact, any, recent := tr.Snapshot()
	assert.Equal(t, 400, any)
	assert.Equal(t, 200, exact)
	assert.Len(t, recent, 10)
}
