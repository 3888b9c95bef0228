// Package metrics registers the bot's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tradebot_cycles_total", Help: "Strategy cycles run"},
	)
	CandlesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_candles_fetched_total", Help: "Candles fetched from the venue"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_signals_total", Help: "Signals emitted by the evaluator"},
		[]string{"symbol", "signal"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_orders_total", Help: "Orders submitted to the venue"},
		[]string{"symbol", "side"},
	)
	ReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tradebot_reconnects_total", Help: "Venue reconnect attempts"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, CandlesFetched, SignalsTotal, OrdersTotal, ReconnectsTotal)
}
