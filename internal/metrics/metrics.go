package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarwall_scheduler_runs_total",
			Help: "Total scheduler passes by result",
		},
		[]string{"result"},
	)

	SchedulerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solarwall_scheduler_run_duration_seconds",
			Help:    "Scheduler pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	WakeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarwall_wake_events_total",
			Help: "Total wake events by source",
		},
		[]string{"source"},
	)

	WallpaperChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarwall_wallpaper_changes_total",
			Help: "Total wallpapers applied",
		},
		[]string{"theme"},
	)

	WallpaperApplyErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solarwall_wallpaper_apply_errors_total",
			Help: "Total failed wallpaper applications",
		},
	)

	NextUpdateTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "solarwall_next_update_timestamp_seconds",
			Help: "Unix time of the next scheduled wallpaper update, 0 when none is pending",
		},
	)

	CurrentSegment = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "solarwall_current_segment",
			Help: "Index of the active day segment",
		},
	)

	SunUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "solarwall_sun_up",
			Help: "1 when the sun is above the horizon",
		},
	)

	HookRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarwall_hook_runs_total",
			Help: "Total post-update hook executions by status",
		},
		[]string{"status"},
	)

	LocationLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarwall_location_lookups_total",
			Help: "Total automatic location lookups by status",
		},
		[]string{"status"},
	)

	LocationLookupLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solarwall_location_lookup_latency_seconds",
			Help:    "Location lookup latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
