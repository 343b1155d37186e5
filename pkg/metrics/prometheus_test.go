package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordRefresh("fern", "ok")
	r.RecordRefresh("fern", "ok")
	r.RecordRefresh("fern", "network_failure")
	r.RecordPublished("kafka", "fern")
	r.RecordError("device_timeout")
	r.RecordLastWeight("fern", 1180.5)
	r.RecordLatency("refresh", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.refreshes.WithLabelValues("fern", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues("fern", "network_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.published.WithLabelValues("kafka", "fern")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("device_timeout")))
	assert.Equal(t, 1180.5, testutil.ToFloat64(r.lastWeight.WithLabelValues("fern")))

	n, err := testutil.GatherAndCount(reg, "plantdash_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
