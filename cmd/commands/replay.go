package commands

// Command that prints the last-known balances rebuilt from the CSV log

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"balance-watch/internal/features/watcher"
	"balance-watch/internal/infra/fs"
	"balance-watch/internal/infra/units"

	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Print the last-known balance of every logged address",
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	state, err := watcher.LoadState(fs.NewBalanceLog(cfg.App.LogFile))
	if err != nil {
		return err
	}
	snapshot := state.Snapshot()

	addresses := make([]string, 0, len(snapshot))
	for address := range snapshot {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(out, "ADDRESS\tWEI\tETH")
	for _, address := range addresses {
		wei := snapshot[address]
		fmt.Fprintf(out, "%s\t%s\t%s\n", address, wei.String(), units.FormatEther(wei))
	}
	return out.Flush()
}
