// Package observability exposes process metrics for the alert pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed scheduler cycles, successful or not.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnmap_cycles_total",
		Help: "The total number of poll cycles run.",
	})
	// CycleFailuresTotal counts cycles that ended with a fault.
	CycleFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnmap_cycle_failures_total",
		Help: "The total number of poll cycles that failed.",
	})
	// AlertsProcessedTotal counts alerts that produced an artifact.
	AlertsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnmap_alerts_processed_total",
		Help: "The total number of alerts rendered into artifacts.",
	})
	// RenderFailuresTotal counts renders that fell back to the document.
	RenderFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnmap_render_failures_total",
		Help: "The total number of failed raster renders.",
	})
	// DeliveriesTotal counts successful sink deliveries.
	DeliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnmap_deliveries_total",
		Help: "The total number of artifacts delivered to the sink.",
	})
	// DeliveryFailuresTotal counts failed sink deliveries.
	DeliveryFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnmap_delivery_failures_total",
		Help: "The total number of failed sink deliveries.",
	})
	// SchedulerResetsTotal counts coarse self-healing scheduler resets.
	SchedulerResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnmap_scheduler_resets_total",
		Help: "The total number of scheduler self-resets after repeated failures.",
	})
	// CleanupRemovalsTotal counts artifacts removed by the daily cleanup.
	CleanupRemovalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnmap_cleanup_removals_total",
		Help: "The total number of aged artifacts removed by cleanup.",
	})
)
