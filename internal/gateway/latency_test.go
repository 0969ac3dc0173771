package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyTracker_Empty(t *testing.T) {
	snap := NewLatencyTracker(100).Snapshot()
	assert.Equal(t, LatencySnapshot{}, snap)
}

func TestLatencyTracker_SingleSample(t *testing.T) {
	lt := NewLatencyTracker(100)
	lt.Observe(42500 * time.Microsecond)

	snap := lt.Snapshot()
	assert.Equal(t, 42.5, snap.P50Ms)
	assert.Equal(t, 42.5, snap.P99Ms)
	assert.Equal(t, uint64(1), snap.Requests)
}

func TestLatencyTracker_Percentiles(t *testing.T) {
	lt := NewLatencyTracker(1000)
	for i := 1; i <= 100; i++ {
		lt.Observe(time.Duration(i) * time.Millisecond)
	}

	snap := lt.Snapshot()
	assert.InDelta(t, 50.5, snap.P50Ms, 1e-9)
	assert.InDelta(t, 95.05, snap.P95Ms, 1e-9)
	assert.InDelta(t, 99.01, snap.P99Ms, 1e-9)
	assert.Equal(t, 100, snap.Window)
}

func TestLatencyTracker_Wraps(t *testing.T) {
	lt := NewLatencyTracker(10)
	for i := 0; i < 25; i++ {
		lt.Observe(time.Millisecond)
	}
	lt.Observe(time.Second)

	snap := lt.Snapshot()
	assert.Equal(t, 10, snap.Window)
	assert.Equal(t, uint64(26), snap.Requests)
	assert.Equal(t, 1.0, snap.P50Ms)
	assert.InDelta(t, 910.09, snap.P99Ms, 1e-9)
}
