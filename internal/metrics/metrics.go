package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CommandsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_commands_rejected_total",
		Help: "Total malformed aggregation sub-commands skipped during parse.",
	})
	AggregationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_aggregation_failures_total",
		Help: "Total per-application aggregation failures (siblings proceed).",
	})
	RenderFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_render_fallback_total",
		Help: "Total renders that fell back to the secondary template.",
	})
	RenderFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_render_failures_total",
		Help: "Total content groups dropped after both render paths failed.",
	})
	GroupsDispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_groups_dispatched_total",
		Help: "Total content-group send requests handed to the connector.",
	})
	DispatchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_dispatch_failures_total",
		Help: "Total content-group send requests the connector rejected.",
	})
	RowsPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_rows_purged_total",
		Help: "Total pending payload rows deleted by the purge step.",
	})

	// Labelled by org id only: a batch may span bundles and applications,
	// so per-application labels would be misleading.
	AggregationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courier_aggregation_seconds",
		Help:    "Duration of one aggregation command, by org.",
		Buckets: prometheus.DefBuckets,
	}, []string{"org_id"})
)

func Register() {
	prometheus.MustRegister(
		CommandsRejected,
		AggregationFailures,
		RenderFallbacks,
		RenderFailures,
		GroupsDispatched,
		DispatchFailures,
		RowsPurged,
		AggregationSeconds,
	)
}
