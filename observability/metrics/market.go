package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type MarketMetrics struct {
	minted    prometheus.Gauge
	offers    prometheus.Counter
	sales     prometheus.Counter
	feeVolume prometheus.Counter
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			minted: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "market_collectibles_minted",
				Help: "Count of collectible ids minted so far.",
			}),
			offers: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_offers_total",
				Help: "Count of sale offers posted.",
			}),
			sales: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_sales_total",
				Help: "Count of settled marketplace sales.",
			}),
			feeVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_platform_fees_total",
				Help: "Cumulative platform fee volume from settled sales.",
			}),
		}
		prometheus.MustRegister(
			marketRegistry.minted,
			marketRegistry.offers,
			marketRegistry.sales,
			marketRegistry.feeVolume,
		)
	})
	return marketRegistry
}

func (m *MarketMetrics) ObserveMinted(count uint64) {
	if m == nil {
		return
	}
	m.minted.Set(float64(count))
}

func (m *MarketMetrics) ObserveOffer() {
	if m == nil {
		return
	}
	m.offers.Inc()
}

func (m *MarketMetrics) ObserveSale(fee *big.Int) {
	if m == nil {
		return
	}
	m.sales.Inc()
	if fee != nil {
		m.feeVolume.Add(approximate(fee))
	}
}
