package handlers

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsRegistry builds the registry served on /metrics: runtime,
// process and connection pool collectors. Domain collectors are added
// by services.NewMetrics.
func NewMetricsRegistry(sqlDB *sql.DB) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if sqlDB != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(sqlDB, "gymdesk"))
	}
	return reg
}

// Metrics serves the registry in the Prometheus text format.
func Metrics(reg *prometheus.Registry) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
}
