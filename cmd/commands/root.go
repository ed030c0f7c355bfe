package commands

// Root command for the Cobra CLI
// Registers the shared configuration flags and the watch, replay and check subcommands

import (
	"fmt"

	"balance-watch/internal/infra/config"
	logging "balance-watch/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "balance-watch",
	Short: "Balance Watch - polls Ethereum balances and alerts on incoming funds",
	Long: `Balance Watch polls a fixed list of Ethereum addresses, appends every balance change
to a CSV log and sends a Telegram message when a balance increases.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	// bare invocation runs the monitor
	rootCmd.RunE = runWatch

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(checkCmd)
}

// bootstrap loads the configuration and starts file logging.
func bootstrap(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Init(cfg.App.LogsDir); err != nil {
		return nil, err
	}
	logging.LogDebug("Configuration loaded",
		zap.String("rpc_url", cfg.Chain.RPCURL),
		zap.String("addresses_file", cfg.App.AddressesFile),
		zap.String("log_file", cfg.App.LogFile),
		zap.Duration("poll_interval", cfg.App.Interval()),
		zap.Bool("telegram", cfg.Telegram.Enabled()))
	return cfg, nil
}
