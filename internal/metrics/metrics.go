package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Sync Metrics
var (
	SyncPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSyncPassesTotal,
			Help: HelpTextSyncPassesTotal,
		},
		[]string{LabelResult},
	)

	SyncPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameSyncPassDuration,
			Help:    HelpTextSyncPassDuration,
			Buckets: SyncLatencyBuckets,
		},
	)

	SyncEntriesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSyncEntriesApplied,
			Help: HelpTextSyncEntriesApplied,
		},
		[]string{LabelOperation},
	)

	SyncEntryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSyncEntryFailures,
			Help: HelpTextSyncEntryFailures,
		},
		[]string{LabelOperation},
	)

	SyncEntriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameSyncEntriesDropped,
			Help: HelpTextSyncEntriesDropped,
		},
	)

	SyncQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameSyncQueueDepth,
			Help: HelpTextSyncQueueDepth,
		},
	)

	SyncQueueUploads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameSyncQueueUploads,
			Help: HelpTextSyncQueueUploads,
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameCacheEvictions,
			Help: HelpTextCacheEvictions,
		},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)
