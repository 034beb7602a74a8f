package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all directory metrics
const namespace = "confdir"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo is a gauge that exposes application version information as labels
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// StorageStatus reports the active storage backend and its connection status.
// Exactly one status label carries 1 at a time.
var StorageStatus = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "storage_status",
		Help:      "Storage connection status (1 for the current status, 0 otherwise)",
	},
	[]string{"backend", "status"},
)

// CalendarLinksTotal counts calendar link builds by outcome
var CalendarLinksTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calendar_links_total",
		Help:      "Total number of calendar links requested",
	},
	[]string{"kind", "result"}, // kind: google|ics, result: built|skipped
)

// SubmissionsTotal counts public submissions by kind
var SubmissionsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Total number of public submissions accepted",
	},
	[]string{"kind"}, // kind: conference|event
)

// LoginAttemptsTotal counts admin login attempts by result
var LoginAttemptsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of admin login attempts",
	},
	[]string{"result"}, // result: success|invalid|inactive|error
)

var storageStatuses = []string{"connected", "demo", "missing_tables", "error"}

// SetStorageStatus flips the storage gauge to the given backend and status.
func SetStorageStatus(backend, status string) {
	StorageStatus.Reset()
	for _, s := range storageStatuses {
		value := 0.0
		if s == status {
			value = 1
		}
		StorageStatus.WithLabelValues(backend, s).Set(value)
	}
}

// RecordCalendarLink counts one calendar artifact request.
func RecordCalendarLink(kind string, built bool) {
	result := "built"
	if !built {
		result = "skipped"
	}
	CalendarLinksTotal.WithLabelValues(kind, result).Inc()
}

// Init registers the runtime collectors and sets version information.
// It is safe to call more than once.
func Init(version, commit, buildDate string) {
	registerOnce.Do(func() {
		// Register default Go metrics (memory, goroutines, GC, etc.)
		Registry.MustRegister(collectors.NewGoCollector())

		// Register process metrics (CPU, memory, file descriptors)
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})

	AppInfo.Reset()
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}

var registerOnce sync.Once
