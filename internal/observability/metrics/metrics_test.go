package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, c.WithLabelValues(labels...).Write(&metric))
	return metric.GetCounter().GetValue()
}

func TestChatMetricsObserve(t *testing.T) {
	m := NewChatMetrics(prometheus.NewRegistry())
	m.ObserveTurn("faq")
	m.ObserveTurn("faq")
	m.ObserveTurn("rag")
	m.ObserveLeadNotification("sent")
	m.ObservePersistenceFailure("append")
	m.ObserveGeneration(2*time.Second, nil)
	m.ObserveGeneration(time.Second, errors.New("timeout"))
	m.ObserveHTTP("POST", "/chat", 500, 10*time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m.turnsTotal, "faq"))
	assert.Equal(t, 1.0, counterValue(t, m.turnsTotal, "rag"))
	assert.Equal(t, 1.0, counterValue(t, m.leadNotifications, "sent"))
	assert.Equal(t, 1.0, counterValue(t, m.persistenceFailures, "append"))
}

func TestChatMetricsGenerationHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveGeneration(3*time.Second, nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "supportchat_llm_generation_seconds" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, uint64(1), f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "4xx", statusClass(400))
	assert.Equal(t, "5xx", statusClass(503))
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("faq")
	m.ObserveGeneration(time.Second, nil)
	m.ObserveLeadNotification("failed")
	m.ObservePersistenceFailure("append")
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
}
