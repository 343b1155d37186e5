package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := NewRenderMetrics(prometheus.NewRegistry())

	m.Observe("png", 2048, 20*time.Millisecond, nil)
	m.Observe("png", 1024, 10*time.Millisecond, errors.New("encode"))

	assert.Equal(t, 3072.0, testutil.ToFloat64(m.bytes.WithLabelValues("png")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("png")))

	var nilMetrics *RenderMetrics
	assert.NotPanics(t, func() { nilMetrics.Observe("xlsx", 1, time.Millisecond, nil) })
}
