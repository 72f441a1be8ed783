package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kredmitra_worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kredmitra_worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "kredmitra_worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kredmitra_worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	// ScoringRuns counts scoring pipeline runs by channel (webapp|ussd) and outcome.
	ScoringRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kredmitra_scoring_runs_total",
			Help: "Scoring pipeline runs by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	ScoringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kredmitra_scoring_duration_seconds",
			Help:    "End-to-end scoring pipeline duration",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"channel"},
	)

	// TrustScores observes the final trust score handed back to applicants.
	TrustScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kredmitra_trust_score",
			Help:    "Distribution of final trust scores",
			Buckets: []float64{300, 400, 500, 600, 650, 700, 750, 800, 850},
		},
	)

	AICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kredmitra_ai_calls_total",
			Help: "Generative model calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "kredmitra_ai_call_duration_seconds",
			Help: "Generative model call latency",
		},
		[]string{"operation"},
	)

	// AIFallbacks counts calls answered with static fallback copy.
	AIFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kredmitra_ai_fallbacks_total",
			Help: "AI answers replaced by fallback copy",
		},
		[]string{"operation"},
	)

	USSDSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kredmitra_ussd_sessions_total",
			Help: "USSD sessions by terminal status",
		},
		[]string{"status"},
	)

	// OTPSends counts OTP requests by outcome (sent|failed|rate_limited).
	OTPSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kredmitra_otp_sends_total",
			Help: "OTP send requests by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kredmitra_notifications_total",
			Help: "Notifications by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)
)

var (
	// HTTPRequests is labelled with the matched route pattern, never the raw
	// path, so mobile numbers in URLs stay out of the series.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kredmitra_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kredmitra_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Outcome maps an error to the outcome label used by the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
