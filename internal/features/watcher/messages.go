package watcher

import (
	"fmt"
	"math/big"

	"balance-watch/internal/infra/units"
)

// StartedMessage is sent once before the first cycle.
func StartedMessage(count int) string {
	return fmt.Sprintf("Balance monitor started for %d addresses", count)
}

// IncomingMessage describes an inflow of delta wei to address.
func IncomingMessage(address string, delta *big.Int) string {
	return fmt.Sprintf("Incoming funds: +%s ETH to %s", units.FormatEther(delta), address)
}
