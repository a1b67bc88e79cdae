package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors for the platform's core flows.
type Metrics struct {
	payments     *prometheus.CounterVec
	interactions *prometheus.CounterVec
	takedowns    *prometheus.CounterVec
	refunds      *prometheus.CounterVec
	mintedTokens prometheus.Counter
	watchSeconds prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsRegistry *Metrics
)

// PlatformMetrics returns the lazily-initialised metrics registry.
func PlatformMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsRegistry = &Metrics{
			payments: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "str3am",
				Subsystem: "access",
				Name:      "payments_total",
				Help:      "Count of payment recordings segmented by outcome.",
			}, []string{"outcome"}),
			interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "str3am",
				Subsystem: "engagement",
				Name:      "interactions_total",
				Help:      "Count of interactions segmented by type and state transition.",
			}, []string{"type", "transition"}),
			takedowns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "str3am",
				Subsystem: "moderation",
				Name:      "takedowns_total",
				Help:      "Count of video takedowns segmented by reason.",
			}, []string{"reason"}),
			refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "str3am",
				Subsystem: "moderation",
				Name:      "refunds_total",
				Help:      "Count of refund credits segmented by outcome.",
			}, []string{"outcome"}),
			mintedTokens: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "str3am",
				Subsystem: "rewards",
				Name:      "minted_tokens_total",
				Help:      "Total reward tokens minted across all creators.",
			}),
			watchSeconds: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "str3am",
				Subsystem: "rewards",
				Name:      "watch_seconds_total",
				Help:      "Total watch seconds reported by viewers.",
			}),
		}
		prometheus.MustRegister(
			metricsRegistry.payments,
			metricsRegistry.interactions,
			metricsRegistry.takedowns,
			metricsRegistry.refunds,
			metricsRegistry.mintedTokens,
			metricsRegistry.watchSeconds,
		)
	})
	return metricsRegistry
}

// RecordPayment counts a payment recording outcome.
func (m *Metrics) RecordPayment(outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(outcome).Inc()
}

// RecordInteraction counts an interaction state transition.
func (m *Metrics) RecordInteraction(kind, transition string) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(kind, transition).Inc()
}

// RecordTakedown counts a takedown by reason.
func (m *Metrics) RecordTakedown(reason string) {
	if m == nil {
		return
	}
	m.takedowns.WithLabelValues(reason).Inc()
}

// RecordRefund counts refund credits by outcome.
func (m *Metrics) RecordRefund(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.refunds.WithLabelValues(outcome).Add(float64(n))
}

// RecordMint adds minted tokens to the running total.
func (m *Metrics) RecordMint(amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.mintedTokens.Add(float64(amount))
}

// RecordWatchSeconds adds reported watch seconds to the running total.
func (m *Metrics) RecordWatchSeconds(seconds int64) {
	if m == nil || seconds <= 0 {
		return
	}
	m.watchSeconds.Add(float64(seconds))
}
