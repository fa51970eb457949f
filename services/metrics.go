package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the bot's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	announcements  *prometheus.CounterVec
	jobRuns        *prometheus.CounterVec
	leaderboardDur prometheus.Histogram
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clashbot",
			Name:      "announcements_total",
			Help:      "Announcement sink outcomes by event kind.",
		}, []string{"event", "sink", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clashbot",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by outcome.",
		}, []string{"job", "outcome"}),
		leaderboardDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clashbot",
			Name:      "leaderboard_build_seconds",
			Help:      "Time spent building a tournament leaderboard.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.announcements, m.jobRuns, m.leaderboardDur)
	return m
}

func (m *Metrics) SinkOutcome(event EventKind, out SinkOutcome) {
	if m == nil {
		return
	}
	m.announcements.WithLabelValues(string(event), out.Sink, out.Status()).Inc()
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

func (m *Metrics) ObserveLeaderboard(start time.Time) {
	if m == nil {
		return
	}
	m.leaderboardDur.Observe(time.Since(start).Seconds())
}
