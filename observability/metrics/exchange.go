package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ExchangeMetrics tracks kernel-level counters for every exchange instance in
// the process.
type ExchangeMetrics struct {
	offersEscrowed prometheus.Counter
	offersEjected  prometheus.Counter
	offersRejected *prometheus.CounterVec
	reallocations  prometheus.Counter
	liveOffers     prometheus.Gauge
}

var (
	exchangeOnce     sync.Once
	exchangeRegistry *ExchangeMetrics
)

// Exchange returns the process-wide exchange metrics, registering the
// collectors on first use.
func Exchange() *ExchangeMetrics {
	exchangeOnce.Do(func() {
		exchangeRegistry = &ExchangeMetrics{
			offersEscrowed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "exchange_offers_escrowed_total",
				Help: "Count of offers whose payments were escrowed and recorded.",
			}),
			offersEjected: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "exchange_offers_ejected_total",
				Help: "Count of offers paid out and removed from the ledger.",
			}),
			offersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "exchange_offers_rejected_total",
				Help: "Count of offers rejected with a user-correctable cause, by reason.",
			}, []string{"reason"}),
			reallocations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "exchange_reallocations_committed_total",
				Help: "Count of proposed reallocations that passed both safety checks.",
			}),
			liveOffers: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "exchange_live_offers",
				Help: "Number of live offers currently recorded in escrow ledgers.",
			}),
		}
		prometheus.MustRegister(
			exchangeRegistry.offersEscrowed,
			exchangeRegistry.offersEjected,
			exchangeRegistry.offersRejected,
			exchangeRegistry.reallocations,
			exchangeRegistry.liveOffers,
		)
	})
	return exchangeRegistry
}

// OfferEscrowed records a successful escrow.
func (m *ExchangeMetrics) OfferEscrowed() {
	if m == nil {
		return
	}
	m.offersEscrowed.Inc()
}

// OfferEjected records a payout.
func (m *ExchangeMetrics) OfferEjected() {
	if m == nil {
		return
	}
	m.offersEjected.Inc()
}

// OfferRejected records a rejection. The reason must come from a fixed label
// set; callers bucket unrecognized causes before reporting.
func (m *ExchangeMetrics) OfferRejected(reason string) {
	if m == nil {
		return
	}
	m.offersRejected.WithLabelValues(reason).Inc()
}

// ReallocationCommitted records a committed reallocation.
func (m *ExchangeMetrics) ReallocationCommitted() {
	if m == nil {
		return
	}
	m.reallocations.Inc()
}

// SetLiveOffers records the current number of live offers.
func (m *ExchangeMetrics) SetLiveOffers(n int) {
	if m == nil {
		return
	}
	m.liveOffers.Set(float64(n))
}
