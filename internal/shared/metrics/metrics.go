package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes counters and histograms for gateway calls and submissions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatewayRequests   *prometheus.CounterVec
	gatewayLatency    *prometheus.HistogramVec
	uploadBytes       prometheus.Counter
	submissionsTotal  *prometheus.CounterVec
	submissionLatency prometheus.Histogram
	chatRepliesTotal  *prometheus.CounterVec
	gatherer          prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signaware",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Backend API calls by endpoint and status class",
		}, []string{"endpoint", "status"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "signaware",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of backend API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signaware",
			Subsystem: "gateway",
			Name:      "upload_bytes_total",
			Help:      "Bytes sent in document uploads",
		}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signaware",
			Subsystem: "workflow",
			Name:      "submissions_total",
			Help:      "Analysis submissions by outcome",
		}, []string{"kind", "outcome"}),
		submissionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signaware",
			Subsystem: "workflow",
			Name:      "submission_duration_seconds",
			Help:      "Time from submit to terminal state",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		chatRepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signaware",
			Subsystem: "results",
			Name:      "chat_replies_total",
			Help:      "Chat replies by matched topic",
		}, []string{"topic"}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.gatewayRequests,
		m.gatewayLatency,
		m.uploadBytes,
		m.submissionsTotal,
		m.submissionLatency,
		m.chatRepliesTotal,
	)
	return m
}

// ObserveGatewayCall records one backend call. status 0 means no response was received.
func (m *Metrics) ObserveGatewayCall(endpoint string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(endpoint, statusClass(status)).Inc()
	m.gatewayLatency.WithLabelValues(endpoint).Observe(seconds)
}

// AddUploadBytes records bytes sent in an upload body.
func (m *Metrics) AddUploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}

// ObserveSubmission records a workflow outcome (completed, processing, failed, superseded).
func (m *Metrics) ObserveSubmission(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(kind, outcome).Inc()
	m.submissionLatency.Observe(seconds)
}

// ObserveChatReply records which topic a chat reply answered.
func (m *Metrics) ObserveChatReply(topic string) {
	if m == nil {
		return
	}
	m.chatRepliesTotal.WithLabelValues(topic).Inc()
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		}
	}
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
