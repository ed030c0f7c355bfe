package commands

// Command that runs the balance monitor until interrupted
// Fails fast when the address file is unreadable or the node is unreachable

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"balance-watch/internal/clients_api/ethrpc"
	"balance-watch/internal/clients_api/telegram"
	"balance-watch/internal/features/watcher"
	"balance-watch/internal/infra/fs"
	logging "balance-watch/internal/infra/log"
	"balance-watch/internal/infra/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll balances, log changes and alert on incoming funds",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	addresses, err := fs.LoadAddresses(cfg.App.AddressesFile)
	if err != nil {
		logging.LogError("Failed to load addresses", zap.Error(err))
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := ethrpc.Dial(ctx, ethrpc.Options{
		RPCURL:         cfg.Chain.RPCURL,
		RequestTimeout: cfg.Chain.Timeout(),
		MaxRetries:     cfg.Chain.MaxRetries,
		RateLimit:      cfg.Chain.RateLimit,
	})
	if err != nil {
		logging.LogError("Failed to connect to RPC node", zap.Error(err))
		return err
	}
	defer client.Close()

	chainID, err := client.Ping(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logging.LogError("RPC node unreachable", zap.Error(err))
		return err
	}
	logging.LogSuccess("Connected to RPC node", zap.String("chain_id", chainID.String()))

	balanceLog := fs.NewBalanceLog(cfg.App.LogFile)
	state, err := watcher.LoadState(balanceLog)
	if err != nil {
		logging.LogError("Failed to replay balance log", zap.Error(err))
		return fmt.Errorf("failed to replay %s: %w", cfg.App.LogFile, err)
	}
	logging.LogSuccess("Balance log replayed", zap.Int("addresses", state.Len()))

	notifier := telegram.New(telegram.Options{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		Timeout:  cfg.Telegram.SendTimeout(),
	})

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	for address, wei := range state.Snapshot() {
		m.SetBalance(address, wei)
	}
	if cfg.App.MetricsAddr != "" {
		server := metrics.NewServer(cfg.App.MetricsAddr, registry)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logging.LogWarn("Metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	w := watcher.New(addresses, state, client, notifier, m, watcher.Options{Interval: cfg.App.Interval()})
	return w.Run(ctx)
}
