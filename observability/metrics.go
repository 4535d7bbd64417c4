package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics

	gatewayMetricsOnce sync.Once
	gatewayRegistry    *GatewayMetrics
)

// LedgerMetrics captures runtime activity: executed instructions, program
// error codes and the lamports moved by transfers.
type LedgerMetrics struct {
	instructions *prometheus.CounterVec
	programErrs  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	lamports     *prometheus.CounterVec
	slot         prometheus.Gauge
}

// Ledger returns the lazily-initialised runtime metrics registry.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "subledger",
				Subsystem: "runtime",
				Name:      "instructions_total",
				Help:      "Executed instructions segmented by program, instruction and outcome.",
			}, []string{"program", "instruction", "outcome"}),
			programErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "subledger",
				Subsystem: "runtime",
				Name:      "program_errors_total",
				Help:      "Program failures segmented by program and custom error code.",
			}, []string{"program", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "subledger",
				Subsystem: "runtime",
				Name:      "transaction_duration_seconds",
				Help:      "Latency distribution for transaction execution.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"outcome"}),
			lamports: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "subledger",
				Subsystem: "runtime",
				Name:      "lamports_transferred_total",
				Help:      "Lamports moved between accounts segmented by the invoking program.",
			}, []string{"program"}),
			slot: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "subledger",
				Subsystem: "runtime",
				Name:      "slot",
				Help:      "Last committed slot.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.instructions,
			ledgerRegistry.programErrs,
			ledgerRegistry.latency,
			ledgerRegistry.lamports,
			ledgerRegistry.slot,
		)
	})
	return ledgerRegistry
}

// ObserveInstruction records one executed instruction. code is the program's
// custom error code, or zero when the failure carried none.
func (m *LedgerMetrics) ObserveInstruction(program, instruction string, err error, code uint32) {
	if m == nil {
		return
	}
	if program == "" {
		program = "unknown"
	}
	if instruction == "" {
		instruction = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		label := "none"
		if code != 0 {
			label = fmt.Sprintf("%d", code)
		}
		m.programErrs.WithLabelValues(program, label).Inc()
	}
	m.instructions.WithLabelValues(program, instruction, outcome).Inc()
}

// ObserveTransaction records the execution latency of a whole transaction.
func (m *LedgerMetrics) ObserveTransaction(err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = "rejected"
	}
	m.latency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// AddTransferred accumulates lamports moved on behalf of program.
func (m *LedgerMetrics) AddTransferred(program string, lamports uint64) {
	if m == nil || lamports == 0 {
		return
	}
	m.lamports.WithLabelValues(program).Add(float64(lamports))
}

// SetSlot publishes the last committed slot.
func (m *LedgerMetrics) SetSlot(slot uint64) {
	if m == nil {
		return
	}
	m.slot.Set(float64(slot))
}

// GatewayMetrics captures REST facade activity.
type GatewayMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

// Gateway returns the lazily-initialised facade metrics registry.
func Gateway() *GatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayRegistry = &GatewayMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "subledger",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Facade requests segmented by route and status class.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "subledger",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for facade routes.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "subledger",
				Subsystem: "gateway",
				Name:      "throttles_total",
				Help:      "Facade requests rejected by the rate limiter.",
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			gatewayRegistry.requests,
			gatewayRegistry.latency,
			gatewayRegistry.throttles,
		)
	})
	return gatewayRegistry
}

// Observe records the outcome of a facade request.
func (m *GatewayMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.requests.WithLabelValues(route, fmt.Sprintf("%dxx", status/100)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for route.
func (m *GatewayMetrics) RecordThrottle(route string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.throttles.WithLabelValues(route).Inc()
}
