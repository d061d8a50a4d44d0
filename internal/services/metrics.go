package services

import (
	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the lifecycle and reporting collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	sweepTransitions prometheus.Counter
	cacheRequests    *prometheus.CounterVec
	allocConflicts   prometheus.Counter
	membersByStatus  *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sweepTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gymdesk_sweep_transitions_total",
			Help: "Members moved to Expired by the expiry sweep.",
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gymdesk_summary_cache_requests_total",
			Help: "Dashboard summary lookups by cache result.",
		}, []string{"result"}),
		allocConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gymdesk_code_allocation_conflicts_total",
			Help: "Unique code collisions retried during registration.",
		}),
		membersByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gymdesk_members",
			Help: "Members by lifecycle status as of the last dashboard summary.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.sweepTransitions, m.cacheRequests, m.allocConflicts, m.membersByStatus)
	return m
}

func (m *Metrics) sweptMembers(n int) {
	if m == nil || n == 0 {
		return
	}
	m.sweepTransitions.Add(float64(n))
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) allocationConflict() {
	if m == nil {
		return
	}
	m.allocConflicts.Inc()
}

func (m *Metrics) observeStatuses(counts map[models.Status]int64) {
	if m == nil {
		return
	}
	for _, st := range models.Statuses {
		m.membersByStatus.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}
