package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 3000}

var (
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_geocode_requests_total",
		Help: "Total reverse geocode lookups",
	})
	GeocodeCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_geocode_cache_hits_total",
		Help: "Reverse geocode cache hits by tier",
	}, []string{"tier"})
	GeocodeEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_geocode_empty_total",
		Help: "Lookups that settled without an address",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_geocode_duration_ms",
		Help:    "Reverse geocode lookup duration in milliseconds",
		Buckets: durationBuckets,
	})
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_geocode_provider_requests_total",
		Help: "Reverse geocode provider calls",
	}, []string{"provider"})
	ProviderFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_geocode_provider_fail_total",
		Help: "Reverse geocode provider failures (error or empty)",
	}, []string{"provider"})
	ProviderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_geocode_provider_duration_ms",
		Help:    "Reverse geocode provider call duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"provider"})
	ProviderHeartbeatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_geocode_provider_heartbeat_total",
		Help: "Provider heartbeat count by status",
	}, []string{"provider", "status"})
	RegistryFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_registry_fetch_total",
		Help: "Asset registry fetches by result",
	}, []string{"result"})
	RegistryAssets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_registry_assets",
		Help: "Assets currently held by the registry",
	})
	SelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_selections_total",
		Help: "Selections by kind (tap, focus, no_location)",
	}, []string{"kind"})
	SelectionDiscardsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_selection_discards_total",
		Help: "Address results discarded because the selection moved on",
	})
	SelfLocationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_self_location_total",
		Help: "Self-location acquisitions by outcome",
	}, []string{"outcome"})
	ViewportCommandsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_viewport_commands_total",
		Help: "Camera centering commands issued to the map surface",
	})
)

func init() {
	prometheus.MustRegister(
		GeocodeRequestsTotal,
		GeocodeCacheHitsTotal,
		GeocodeEmptyTotal,
		GeocodeDurationMs,
		ProviderRequestsTotal,
		ProviderFailTotal,
		ProviderDurationMs,
		ProviderHeartbeatTotal,
		RegistryFetchTotal,
		RegistryAssets,
		SelectionsTotal,
		SelectionDiscardsTotal,
		SelfLocationTotal,
		ViewportCommandsTotal,
	)
}

// 文档注释：返回 Prometheus 抓取处理器
func Handler() http.Handler { return promhttp.Handler() }
