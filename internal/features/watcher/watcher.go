package watcher

// Package watcher is the poll loop: fetch every address in order, diff against the
// last-known state, record changes and alert on increases.

import (
	"context"
	"math/big"
	"time"

	logging "balance-watch/internal/infra/log"
	"balance-watch/internal/infra/metrics"
	"balance-watch/internal/infra/units"

	"go.uber.org/zap"
)

type BalanceFetcher interface {
	GetBalance(ctx context.Context, address string) (*big.Int, error)
}

// Notifier delivers alerts best-effort. Its error is always discarded by the watcher.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Options struct {
	Interval time.Duration
	// Now and Sleep default to the wall clock; tests replace them to run cycles instantly.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

type CycleStats struct {
	Checked   int
	Failed    int
	Changed   int
	Increased int
	Decreased int
}

type Watcher struct {
	addresses []string
	state     *State
	fetcher   BalanceFetcher
	notifier  Notifier
	metrics   *metrics.Metrics
	interval  time.Duration
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// New builds a watcher. m may be nil.
func New(addresses []string, state *State, fetcher BalanceFetcher, notifier Notifier, m *metrics.Metrics, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Watcher{
		addresses: addresses,
		state:     state,
		fetcher:   fetcher,
		notifier:  notifier,
		metrics:   m,
		interval:  opts.Interval,
		now:       opts.Now,
		sleep:     opts.Sleep,
	}
}

// Run announces the monitor, then polls until ctx is cancelled. It always returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	_ = w.notifier.Notify(ctx, StartedMessage(len(w.addresses)))
	logging.LogSuccess("Balance monitor started",
		zap.Int("addresses", len(w.addresses)),
		zap.Duration("interval", w.interval))

	for cycle := 1; ; cycle++ {
		stats := w.RunCycle(ctx)
		if ctx.Err() != nil {
			break
		}
		logging.LogInfo("Poll cycle finished",
			zap.Int("cycle", cycle),
			zap.Int("checked", stats.Checked),
			zap.Int("failed", stats.Failed),
			zap.Int("changed", stats.Changed),
			zap.Int("increased", stats.Increased),
			zap.Int("decreased", stats.Decreased))

		if err := w.sleep(ctx, w.interval); err != nil {
			break
		}
	}

	logging.LogSuccess("Balance monitor stopped")
	return nil
}

// RunCycle makes one ordered pass over the address list. A failed fetch skips only that address.
func (w *Watcher) RunCycle(ctx context.Context) CycleStats {
	var stats CycleStats
	started := w.now()

	for _, address := range w.addresses {
		if ctx.Err() != nil {
			return stats
		}
		stats.Checked++

		current, err := w.fetcher.GetBalance(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return stats
			}
			stats.Failed++
			w.countFetchError()
			logging.LogWarn("Balance fetch failed, skipping address this cycle", zap.String("address", address), zap.Error(err))
			continue
		}

		previous := w.state.Get(address)
		cmp := current.Cmp(previous)
		if cmp == 0 {
			continue
		}

		if err := w.state.Record(w.now(), address, current); err != nil {
			w.countLogAppendError()
			logging.LogError("Balance change not recorded, will retry next cycle",
				zap.String("address", address),
				zap.String("wei", current.String()),
				zap.Error(err))
			continue
		}
		stats.Changed++

		if cmp > 0 {
			stats.Increased++
			w.observeChange(address, "increase", current)
			delta := new(big.Int).Sub(current, previous)
			logging.LogSuccess("Incoming funds",
				zap.String("address", address),
				zap.String("delta_eth", units.FormatEther(delta)),
				zap.String("balance_eth", units.FormatEther(current)))
			w.countAlert()
			_ = w.notifier.Notify(ctx, IncomingMessage(address, delta))
		} else {
			stats.Decreased++
			w.observeChange(address, "decrease", current)
			logging.LogInfo("Balance decreased",
				zap.String("address", address),
				zap.String("delta_eth", units.FormatEther(new(big.Int).Sub(previous, current))),
				zap.String("balance_eth", units.FormatEther(current)))
		}
	}

	if w.metrics != nil {
		w.metrics.ObserveCycle(started, w.now())
	}
	return stats
}

func (w *Watcher) countFetchError() {
	if w.metrics != nil {
		w.metrics.FetchErrors.Inc()
	}
}

func (w *Watcher) countLogAppendError() {
	if w.metrics != nil {
		w.metrics.LogAppendErrors.Inc()
	}
}

func (w *Watcher) countAlert() {
	if w.metrics != nil {
		w.metrics.Alerts.Inc()
	}
}

func (w *Watcher) observeChange(address, direction string, wei *big.Int) {
	if w.metrics != nil {
		w.metrics.ObserveChange(address, direction, wei)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
