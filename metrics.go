package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"github.com/eurotz/tzgate/pkg/log"
	"github.com/eurotz/tzgate/pkg/tzrpc"
)

const (
	lookupFound   = "found"
	lookupMissing = "missing"
	lookupError   = "error"
)

// Metrics contains all Prometheus metrics for the application
type Metrics struct {
	// HTTP API
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WSSubscribers       prometheus.Gauge

	// Signing
	SignaturesIssued *prometheus.CounterVec
	SigningFailures  *prometheus.CounterVec
	ExprKeysDerived  prometheus.Counter

	// Node
	LedgerLookups *prometheus.CounterVec

	// Audit log and signer account, refreshed periodically
	StoredSignatures *prometheus.GaugeVec
	SignerBalance    prometheus.Gauge
	SignerNonce      prometheus.Gauge
}

// NewMetrics initializes and registers Prometheus metrics
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry initializes and registers Prometheus metrics with a custom registry
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tzgate_http_requests_total",
				Help: "The total number of HTTP API requests by route and status code",
			},
			[]string{"route", "code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tzgate_http_request_duration_seconds",
				Help:    "Duration of HTTP API requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		WSSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tzgate_ws_subscribers",
			Help: "The current number of signature feed subscribers",
		}),
		SignaturesIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tzgate_signatures_issued_total",
				Help: "The total number of signatures issued by kind and purpose",
			},
			[]string{"kind", "purpose"},
		),
		SigningFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tzgate_signing_failures_total",
				Help: "The total number of rejected signing requests",
			},
			[]string{"purpose"},
		),
		ExprKeysDerived: factory.NewCounter(prometheus.CounterOpts{
			Name: "tzgate_expr_keys_derived_total",
			Help: "The total number of script expression keys derived",
		}),
		LedgerLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tzgate_ledger_lookups_total",
				Help: "The total number of ledger lookups by outcome (found, missing, error)",
			},
			[]string{"outcome"},
		),
		StoredSignatures: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tzgate_stored_signatures",
				Help: "The number of signatures in the audit log by purpose",
			},
			[]string{"purpose"},
		),
		SignerBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tzgate_signer_balance",
			Help: "The ledger balance of the configured signer account, in base units",
		}),
		SignerNonce: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tzgate_signer_nonce",
			Help: "The ledger nonce of the configured signer account",
		}),
	}
}

// RecordLookup counts a ledger lookup outcome.
func (m *Metrics) RecordLookup(acc tzrpc.Account, err error) {
	switch {
	case err != nil:
		m.LedgerLookups.WithLabelValues(lookupError).Inc()
	case acc.Exists:
		m.LedgerLookups.WithLabelValues(lookupFound).Inc()
	default:
		m.LedgerLookups.WithLabelValues(lookupMissing).Inc()
	}
}

// RecordMetricsPeriodically refreshes the database and ledger gauges until ctx
// is done. ledger may be nil, and so may signerAddress.
func (m *Metrics) RecordMetricsPeriodically(ctx context.Context, db *gorm.DB, ledger *tzrpc.Ledger, signerAddress string, logger log.Logger) {
	logger = logger.WithName("metrics")
	dbTicker := time.NewTicker(15 * time.Second)
	defer dbTicker.Stop()

	balanceTicker := time.NewTicker(30 * time.Second)
	defer balanceTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-dbTicker.C:
			if err := m.UpdateSignatureMetrics(db); err != nil {
				logger.Warn("failed to update signature metrics", "error", err)
			}
		case <-balanceTicker.C:
			if ledger == nil || signerAddress == "" {
				continue
			}
			m.UpdateSignerMetrics(log.SetContextLogger(ctx, logger), ledger, signerAddress)
		}
	}
}

// UpdateSignatureMetrics sets the audit log gauges from the database.
func (m *Metrics) UpdateSignatureMetrics(db *gorm.DB) error {
	type PurposeCount struct {
		Purpose string
		Count   int64
	}

	var results []PurposeCount
	err := db.Model(&SignatureRecord{}).
		Select("purpose, COUNT(*) as count").
		Group("purpose").
		Scan(&results).Error
	if err != nil {
		return err
	}

	m.StoredSignatures.Reset()
	for _, row := range results {
		m.StoredSignatures.WithLabelValues(row.Purpose).Set(float64(row.Count))
	}
	return nil
}

// UpdateSignerMetrics sets the signer balance and nonce gauges from the ledger.
func (m *Metrics) UpdateSignerMetrics(ctx context.Context, ledger *tzrpc.Ledger, address string) {
	acc, err := ledger.Account(ctx, address)
	m.RecordLookup(acc, err)
	if err != nil {
		log.FromContext(ctx).Warn("failed to read signer account", "address", address, "error", err)
		return
	}

	balance, _ := acc.Balance.Float64()
	m.SignerBalance.Set(balance)
	m.SignerNonce.Set(float64(acc.Nonce))
}
