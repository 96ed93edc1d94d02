package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	engineState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trader_engine_state",
		Help: "Current loop state (0 idle, 1 awaiting boundary, 2 evaluating, 3 confirming, 4 submitting, 5 polling, 6 resolved).",
	})
	tickOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_tick_outcomes_total",
		Help: "Decisions by outcome.",
	}, []string{"outcome"})
	ordersSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_orders_submitted_total",
		Help: "Orders sent to the broker.",
	}, []string{"side", "type"})
	ordersTerminal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_orders_terminal_total",
		Help: "Orders that reached a terminal status.",
	}, []string{"status"})
	statusPolls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trader_order_status_polls_total",
		Help: "Order status queries.",
	})
	confirmations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_entry_confirmations_total",
		Help: "Entry confirmation windows by result.",
	}, []string{"result"})
	positionQuantity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trader_position_quantity",
		Help: "Signed quantity of the open position, 0 when flat.",
	})
	lastTick = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trader_last_tick_timestamp_seconds",
		Help: "Unix time of the last resolved decision.",
	})
	loopRestarts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trader_loop_restarts_total",
		Help: "Loop restarts after a surfaced error.",
	})
)

func init() {
	prometheus.MustRegister(
		engineState,
		tickOutcomes,
		ordersSubmitted,
		ordersTerminal,
		statusPolls,
		confirmations,
		positionQuantity,
		lastTick,
		loopRestarts,
	)
}
