package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var postsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_posts_published_total",
	Help: "Number of statuses published, by kind",
}, []string{"kind"})

var publishFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_publish_failures_total",
	Help: "Number of publish attempts that failed",
})

var mediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_media_uploads_total",
	Help: "Media upload requests, by cache result",
}, []string{"cache"})

var fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_fetch_errors_total",
	Help: "Number of failed Source API fetches",
})

var mediaQueued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_media_queued_total",
	Help: "Number of media files admitted to the queue",
})

var threadsFlagged = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_threads_flagged_total",
	Help: "Number of threads skipped by the moderation filter",
})

var notificationsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_notifications_processed_total",
	Help: "Number of notifications applied to state",
})

var queueLength = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "relay_queue_length",
	Help: "Entries in the content queue",
})

var nextPostTime = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "relay_next_post_timestamp_seconds",
	Help: "Unix time of the next allowed publish",
})

var carriedOverDumps = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "relay_carried_over_dumps",
	Help: "Current carried_over_dumps value",
})

var noReacts = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "relay_no_reacts",
	Help: "Posts published since the last notification",
})

var tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "relay_tick_duration_seconds",
	Help:    "Duration of one scheduler tick",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
})
