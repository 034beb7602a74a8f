package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBQueryDuration records statement latency by operation.
	DBQueryDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			// Buckets: 1ms to 5s
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// DBErrors counts failed statements by operation and error type.
	DBErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_errors_total",
			Help:      "Total number of database errors",
		},
		[]string{"operation", "error_type"},
	)
)

// PoolSnapshot is one reading of connection pool statistics.
type PoolSnapshot struct {
	Open  int32
	InUse int32
	Idle  int32
	Max   int32
	Waits int64
}

// PoolSource reads pool statistics from a pgx pool.
func PoolSource(pool *pgxpool.Pool) func() PoolSnapshot {
	return func() PoolSnapshot {
		stat := pool.Stat()
		return PoolSnapshot{
			Open:  stat.TotalConns(),
			InUse: stat.AcquiredConns(),
			Idle:  stat.IdleConns(),
			Max:   stat.MaxConns(),
			Waits: stat.EmptyAcquireCount(),
		}
	}
}

// PoolCollector reports connection pool statistics at scrape time.
type PoolCollector struct {
	read func() PoolSnapshot

	open    *prometheus.Desc
	inUse   *prometheus.Desc
	idle    *prometheus.Desc
	maxOpen *prometheus.Desc
	waits   *prometheus.Desc
}

func NewPoolCollector(read func() PoolSnapshot) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", name), help, nil, nil)
	}
	return &PoolCollector{
		read:    read,
		open:    desc("connections_open", "Total number of open database connections"),
		inUse:   desc("connections_in_use", "Number of database connections currently acquired"),
		idle:    desc("connections_idle", "Number of idle database connections"),
		maxOpen: desc("connections_max_open", "Maximum number of open database connections allowed"),
		waits:   desc("connection_waits_total", "Acquires that had to wait for a free connection"),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.inUse
	ch <- c.idle
	ch <- c.maxOpen
	ch <- c.waits
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.read()
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(snap.Open))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(snap.InUse))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(snap.Idle))
	ch <- prometheus.MustNewConstMetric(c.maxOpen, prometheus.GaugeValue, float64(snap.Max))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(snap.Waits))
}

// RegisterPool exposes pool statistics on Registry until the returned
// function is called.
func RegisterPool(pool *pgxpool.Pool) (func(), error) {
	return register(NewPoolCollector(PoolSource(pool)))
}

func register(collector *PoolCollector) (func(), error) {
	if err := Registry.Register(collector); err != nil {
		return nil, err
	}
	return func() { Registry.Unregister(collector) }, nil
}

// RecordQuery records the duration and outcome of one statement.
func RecordQuery(operation string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return
	}

	errorType := "query_error"
	switch {
	case errors.Is(err, context.Canceled):
		errorType = "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		errorType = "timeout"
	}
	DBErrors.WithLabelValues(operation, errorType).Inc()
}

// QueryTracer is a pgx.QueryTracer feeding RecordQuery. Operations are
// labelled by the statement verb, which keeps label cardinality fixed.
type QueryTracer struct{}

type queryStartKey struct{}

type queryStart struct {
	operation string
	at        time.Time
}

func (QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{operation: statementVerb(data.SQL), at: time.Now()})
}

func (QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	RecordQuery(start.operation, start.at, data.Err)
}

func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "other"
	}
	switch verb := strings.ToLower(fields[0]); verb {
	case "select", "insert", "update", "delete", "with":
		return verb
	default:
		return "other"
	}
}
