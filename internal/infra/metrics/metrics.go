package metrics

import (
	"math/big"
	"time"

	"balance-watch/internal/infra/units"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "balance_watch"

// Metrics holds the poll loop metrics
type Metrics struct {
	Cycles          prometheus.Counter
	CycleDuration   prometheus.Histogram
	FetchErrors     prometheus.Counter
	LogAppendErrors prometheus.Counter
	BalanceChanges  *prometheus.CounterVec
	Alerts          prometheus.Counter
	LastBalance     *prometheus.GaugeVec
	LastCycle       prometheus.Gauge
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of completed poll cycles",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full pass over the address list",
			Buckets:   prometheus.DefBuckets,
		}),
		FetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Balance fetches that failed and were skipped for the cycle",
		}),
		LogAppendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_append_errors_total",
			Help:      "Detected changes that could not be written to the balance log",
		}),
		BalanceChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "balance_changes_total",
				Help:      "Recorded balance changes by direction",
			},
			[]string{"direction"},
		),
		Alerts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Incoming funds alerts handed to the notifier",
		}),
		LastBalance: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "balance_ether",
				Help:      "Last recorded balance per address, in ether",
			},
			[]string{"address"},
		),
		LastCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last poll cycle finished",
		}),
	}
}

func (m *Metrics) ObserveCycle(started, finished time.Time) {
	m.Cycles.Inc()
	m.CycleDuration.Observe(finished.Sub(started).Seconds())
	m.LastCycle.Set(float64(finished.Unix()))
}

// ObserveChange counts a recorded change; direction is "increase" or "decrease".
func (m *Metrics) ObserveChange(address, direction string, wei *big.Int) {
	m.BalanceChanges.WithLabelValues(direction).Inc()
	m.SetBalance(address, wei)
}

// SetBalance exports wei as a float ether gauge. Precision loss is fine for dashboards.
func (m *Metrics) SetBalance(address string, wei *big.Int) {
	m.LastBalance.WithLabelValues(address).Set(units.WeiToEther(wei).InexactFloat64())
}
