package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/Stagehand/internal/domain"
)

// Metrics — Prometheus метрики запусков и HTTP API.
//
// Подключается к runner.Coordinator как наблюдатель.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	dryRunsTotal prometheus.Counter
	runDuration  *prometheus.HistogramVec
	queueDepth   prometheus.Gauge
	activeRuns   prometheus.Gauge
	httpRequests *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg.
// Для глобального реестра передайте prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_runs_total",
			Help: "Finished runs by status and origin",
		}, []string{"status", "origin"}),

		dryRunsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "stagehand_dry_runs_total",
			Help: "Dry runs (no record is produced)",
		}),

		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stagehand_run_duration_seconds",
			Help:    "Duration of finished runs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900},
		}, []string{"origin"}),

		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "stagehand_queue_depth",
			Help: "Pending run requests",
		}),

		activeRuns: f.NewGauge(prometheus.GaugeOpts{
			Name: "stagehand_active_runs",
			Help: "Runs occupying the slot (0 or 1)",
		}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_http_requests_total",
			Help: "HTTP requests handled by the API",
		}, []string{"method", "code"}),
	}
}

func (m *Metrics) RunStarted(domain.RunRequest, domain.ExecutionConfig) {
	m.activeRuns.Set(1)
}

func (m *Metrics) RunFinished(_ domain.RunRequest, rec *domain.RunRecord) {
	m.activeRuns.Set(0)

	if rec == nil {
		m.dryRunsTotal.Inc()
		return
	}

	origin := string(rec.Origin)
	m.runsTotal.WithLabelValues(string(rec.Status), origin).Inc()
	m.runDuration.WithLabelValues(origin).Observe(rec.Duration.Seconds())
}

func (m *Metrics) QueueChanged(pending int) {
	m.queueDepth.Set(float64(pending))
}

// ObserveHTTP учитывает один HTTP-запрос.
func (m *Metrics) ObserveHTTP(method string, code int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
