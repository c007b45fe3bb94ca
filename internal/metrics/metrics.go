package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 匹配引擎与通知投递的 Prometheus 指标。
type Metrics struct {
	registry      *prometheus.Registry
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	matches       prometheus.Counter
	notifications prometheus.Counter
	pruned        prometheus.Counter
	deliveries    *prometheus.CounterVec
	triggers      *prometheus.CounterVec
}

// New 在独立 registry 上注册全部指标。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matching_runs_total",
			Help: "Matching runs by scope and outcome.",
		}, []string{"kind", "status"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "matching_run_duration_seconds",
			Help:    "Duration of matching runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		matches: f.NewCounter(prometheus.CounterOpts{
			Name: "matching_matches_created_total",
			Help: "Match records written.",
		}),
		notifications: f.NewCounter(prometheus.CounterOpts{
			Name: "matching_notifications_total",
			Help: "New-match notifications handed to the sink.",
		}),
		pruned: f.NewCounter(prometheus.CounterOpts{
			Name: "matching_runs_pruned_total",
			Help: "Matching runs removed by retention cleanup.",
		}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Notification deliveries by channel and outcome.",
		}, []string{"channel", "status"}),
		triggers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matching_triggers_total",
			Help: "Matching triggers received by source.",
		}, []string{"source"}),
	}
}

// Handler 暴露 /metrics。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunFinished 记录一次批次结果。
func (m *Metrics) RunFinished(kind string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runs.WithLabelValues(kind, status).Inc()
	m.runDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// MatchesCreated 累计写入的匹配数。
func (m *Metrics) MatchesCreated(n int) {
	m.matches.Add(float64(n))
}

// NotificationSent 累计发送的通知。
func (m *Metrics) NotificationSent() {
	m.notifications.Inc()
}

// RunsPruned 累计清理的批次数。
func (m *Metrics) RunsPruned(n int64) {
	m.pruned.Add(float64(n))
}

// Delivery 记录通知投递结果。
func (m *Metrics) Delivery(channel string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.deliveries.WithLabelValues(channel, status).Inc()
}

// Trigger 记录触发来源。
func (m *Metrics) Trigger(source string) {
	m.triggers.WithLabelValues(source).Inc()
}
