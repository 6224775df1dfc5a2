package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "supportchat"

// ChatMetrics exposes counters/histograms for chat turns and their side effects.
type ChatMetrics struct {
	turnsTotal          *prometheus.CounterVec
	generationLatency   *prometheus.HistogramVec
	leadNotifications   *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	httpLatency         *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by the cascade branch that answered them",
		}, []string{"branch"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "generation_seconds",
			Help:      "Latency of completion calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"status"}),
		leadNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "lead_notifications_total",
			Help:      "Lead notifications by delivery status",
		}, []string{"status"}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatlog",
			Name:      "persistence_failures_total",
			Help:      "Chat log writes that failed and were skipped",
		}, []string{"operation"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.generationLatency, m.leadNotifications, m.persistenceFailures, m.httpLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(branch string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(branch).Inc()
}

func (m *ChatMetrics) ObserveGeneration(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.generationLatency.WithLabelValues(status).Observe(d.Seconds())
}

func (m *ChatMetrics) ObserveLeadNotification(status string) {
	if m == nil {
		return
	}
	m.leadNotifications.WithLabelValues(status).Inc()
}

func (m *ChatMetrics) ObservePersistenceFailure(operation string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(operation).Inc()
}

func (m *ChatMetrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, statusClass(status)).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
