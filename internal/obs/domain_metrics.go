package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SnapshotComputeTotal counts pricing snapshot computations by tax mode and outcome.
	SnapshotComputeTotal *prometheus.CounterVec
	// ReconciliationFailuresTotal counts pricing runs whose parts failed to sum to the whole.
	ReconciliationFailuresTotal prometheus.Counter
	// CheckoutTotal counts checkout outcomes.
	CheckoutTotal *prometheus.CounterVec
	// TenderTotal counts payment tenders by method and outcome.
	TenderTotal *prometheus.CounterVec
	// InvoiceSubmitTotal counts e-invoice submission outcomes.
	InvoiceSubmitTotal *prometheus.CounterVec
	// InvoiceSubmitLatency records e-invoice provider latency in milliseconds.
	InvoiceSubmitLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SnapshotComputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_snapshot_total",
			Help:      "Count of pricing snapshot computations by tax mode and result.",
		}, []string{"tax_mode", "result"})
		ReconciliationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_reconciliation_failures_total",
			Help:      "Pricing runs rejected because line amounts did not reconcile with totals.",
		})
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout outcomes.",
		}, []string{"result"})
		TenderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_tender_total",
			Help:      "Count of payment tenders by method and result.",
		}, []string{"method", "result"})
		InvoiceSubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_submit_total",
			Help:      "Count of e-invoice submission outcomes.",
		}, []string{"result"})
		InvoiceSubmitLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoice_submit_duration_ms",
			Help:      "Latency for e-invoice submission attempts in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})

		mustRegisterCollector(reg, SnapshotComputeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SnapshotComputeTotal = v
			}
		})
		mustRegisterCollector(reg, ReconciliationFailuresTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ReconciliationFailuresTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		mustRegisterCollector(reg, TenderTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TenderTotal = v
			}
		})
		mustRegisterCollector(reg, InvoiceSubmitTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InvoiceSubmitTotal = v
			}
		})
		mustRegisterCollector(reg, InvoiceSubmitLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				InvoiceSubmitLatency = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
