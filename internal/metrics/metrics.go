package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quotes_total", Help: "Count of market quotes published by the active provider"},
		[]string{"provider", "symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals emitted by strategies"},
		[]string{"strategy"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders by terminal status"},
		[]string{"symbol", "side", "status"},
	)
	ProviderSwitchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "provider_switches_total", Help: "Market data provider failovers and promotions"},
	)
	ProviderUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "provider_up", Help: "1 when the provider is connected"},
		[]string{"provider"},
	)
	BusDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bus_dropped_total", Help: "Events dropped because a topic buffer was full"},
		[]string{"topic"},
	)
	StrategyErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "strategy_errors_total", Help: "Strategy evaluations that panicked or errored"},
		[]string{"strategy"},
	)
	RiskVetoesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "risk_vetoes_total", Help: "Signals vetoed by the risk gate"},
		[]string{"code"},
	)
)

func init() {
	prometheus.MustRegister(
		QuotesTotal, SignalsTotal, OrdersTotal,
		ProviderSwitchesTotal, ProviderUp, BusDroppedTotal,
		StrategyErrorsTotal, RiskVetoesTotal,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
