package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	FetchErrorReasonDeadlineExceeded = "deadline_exceeded"
	FetchErrorReasonCanceled         = "canceled"
	FetchErrorReasonDBLockTimeout    = "db_lock_timeout"
	FetchErrorReasonQueryCanceled    = "query_canceled"
	FetchErrorReasonDB               = "db"
	FetchErrorReasonUnknown          = "unknown"
)

const (
	StageFetch = "fetch"
	StagePivot = "pivot"
)

// LedgerMetrics captures transaction feed health per source.
type LedgerMetrics struct {
	sourceFetchDuration *prometheus.HistogramVec
	sourceFetchErrors   *prometheus.CounterVec
	stalePivots         *prometheus.CounterVec
	skippedRecords      *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

// Ledger returns the process-wide instance registered on the default registerer.
func Ledger() *LedgerMetrics {
	return LedgerWithConfig(Config{})
}

func LedgerWithConfig(cfg Config) *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = NewLedgerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ledgerMetrics
}

// NewLedgerMetrics registers the ledger instruments on registerer.
func NewLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "billingledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	sourceFetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "billingledger_source_fetch_duration_ms",
		Help:        "Latency of one source query or pivot lookup in milliseconds.",
		ConstLabels: constLabels,
		Buckets:     []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"source", "stage"})
	sourceFetchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "billingledger_source_fetch_errors_total",
		Help:        "Failed source queries and pivot lookups by reason.",
		ConstLabels: constLabels,
	}, []string{"source", "reason"})
	stalePivots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "billingledger_stale_pivots_total",
		Help:        "Cursor fragments referencing records that no longer exist.",
		ConstLabels: constLabels,
	}, []string{"source"})
	skippedRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "billingledger_skipped_records_total",
		Help:        "Raw records that could not be projected into a transaction.",
		ConstLabels: constLabels,
	}, []string{"source"})

	registerer.MustRegister(
		sourceFetchDuration,
		sourceFetchErrors,
		stalePivots,
		skippedRecords,
	)

	return &LedgerMetrics{
		sourceFetchDuration: sourceFetchDuration,
		sourceFetchErrors:   sourceFetchErrors,
		stalePivots:         stalePivots,
		skippedRecords:      skippedRecords,
	}
}

// ObserveSourceFetch records the latency of a stage against source.
func (m *LedgerMetrics) ObserveSourceFetch(source, stage string, d time.Duration) {
	if m == nil || m.sourceFetchDuration == nil {
		return
	}
	m.sourceFetchDuration.WithLabelValues(source, stage).Observe(float64(d) / float64(time.Millisecond))
}

// IncSourceFetchError counts a failed stage against source.
func (m *LedgerMetrics) IncSourceFetchError(source string, err error) {
	if m == nil || m.sourceFetchErrors == nil {
		return
	}
	m.sourceFetchErrors.WithLabelValues(source, ClassifyFetchError(err)).Inc()
}

func (m *LedgerMetrics) IncStalePivot(source string) {
	if m == nil || m.stalePivots == nil {
		return
	}
	m.stalePivots.WithLabelValues(source).Inc()
}

func (m *LedgerMetrics) IncSkippedRecord(source string) {
	if m == nil || m.skippedRecords == nil {
		return
	}
	m.skippedRecords.WithLabelValues(source).Inc()
}

// ClassifyFetchError maps source errors to low-cardinality reasons.
func ClassifyFetchError(err error) string {
	switch {
	case err == nil:
		return FetchErrorReasonUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return FetchErrorReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return FetchErrorReasonCanceled
	case hasPGCode(err, "55P03"):
		return FetchErrorReasonDBLockTimeout
	case hasPGCode(err, "57014"):
		return FetchErrorReasonQueryCanceled
	case isDBError(err):
		return FetchErrorReasonDB
	default:
		return FetchErrorReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue) ||
		errors.Is(err, gorm.ErrNotImplemented) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
