package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 指标管理器
type Metrics struct {
	jobsEnqueued  *prometheus.CounterVec
	jobsDequeued  *prometheus.CounterVec
	jobsProcessed *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	queueDepth    *prometheus.GaugeVec

	rateLimitAllow *prometheus.CounterVec
	rateLimitDeny  *prometheus.CounterVec

	tokensIssued   prometheus.Counter
	tokenVerifyErr *prometheus.CounterVec
}

// NewMetrics 创建指标管理器
func NewMetrics() *Metrics {
	return &Metrics{
		jobsEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of work items enqueued",
		}, []string{"queue", "type"}),

		jobsDequeued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_dequeued_total",
			Help: "Total number of work items dequeued",
		}, []string{"type"}),

		jobsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Processing outcomes by job type",
		}, []string{"type", "outcome"}),

		jobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Job processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"type"}),

		queueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Number of pending work items per queue",
		}, []string{"queue"}),

		rateLimitAllow: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_allow_total",
			Help: "Allowed requests by rate limiter",
		}, []string{"op"}),

		rateLimitDeny: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_deny_total",
			Help: "Denied requests by rate limiter",
		}, []string{"op"}),

		tokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audio_tokens_issued_total",
			Help: "Scoped audio access tokens issued",
		}),

		tokenVerifyErr: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audio_token_verify_failures_total",
			Help: "Scoped token verification failures",
		}, []string{"reason"}),
	}
}

func (m *Metrics) JobEnqueued(queueName, jobType string) {
	m.jobsEnqueued.WithLabelValues(queueName, jobType).Inc()
}

func (m *Metrics) JobDequeued(jobType string) {
	m.jobsDequeued.WithLabelValues(jobType).Inc()
}

func (m *Metrics) JobProcessed(jobType, outcome string, took time.Duration) {
	m.jobsProcessed.WithLabelValues(jobType, outcome).Inc()
	m.jobDuration.WithLabelValues(jobType).Observe(took.Seconds())
}

func (m *Metrics) SetQueueDepth(queueName string, depth int64) {
	m.queueDepth.WithLabelValues(queueName).Set(float64(depth))
}

func (m *Metrics) RateLimitAllow(op string) { m.rateLimitAllow.WithLabelValues(op).Inc() }
func (m *Metrics) RateLimitDeny(op string)  { m.rateLimitDeny.WithLabelValues(op).Inc() }

func (m *Metrics) TokenIssued() { m.tokensIssued.Inc() }
func (m *Metrics) TokenVerifyFailed(reason string) {
	m.tokenVerifyErr.WithLabelValues(reason).Inc()
}
