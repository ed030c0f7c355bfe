package commands

// Command that validates the setup without polling: addresses file and node connectivity

import (
	"context"
	"fmt"

	"balance-watch/internal/clients_api/ethrpc"
	"balance-watch/internal/infra/fs"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the address list and verify the RPC node answers",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	addresses, err := fs.LoadAddresses(cfg.App.AddressesFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := ethrpc.Dial(ctx, ethrpc.Options{
		RPCURL:         cfg.Chain.RPCURL,
		RequestTimeout: cfg.Chain.Timeout(),
		MaxRetries:     cfg.Chain.MaxRetries,
		RateLimit:      cfg.Chain.RateLimit,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	chainID, err := client.Ping(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "rpc: %s (chain id %s)\n", cfg.Chain.RPCURL, chainID)
	fmt.Fprintf(cmd.OutOrStdout(), "addresses: %d from %s\n", len(addresses), cfg.App.AddressesFile)
	return nil
}
