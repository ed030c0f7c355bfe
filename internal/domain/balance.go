package domain

import (
	"math/big"
	"time"
)

// TimestampLayout is the ISO 8601 UTC layout used for the ts column of the balance log.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// BalanceRecord is one observed balance change. Records are append-only.
type BalanceRecord struct {
	Timestamp time.Time
	Address   string   // checksummed
	Wei       *big.Int // smallest unit
}

// NewBalanceRecord copies wei so later mutation by the caller does not leak into the record.
func NewBalanceRecord(ts time.Time, address string, wei *big.Int) BalanceRecord {
	return BalanceRecord{
		Timestamp: ts.UTC(),
		Address:   address,
		Wei:       new(big.Int).Set(wei),
	}
}
