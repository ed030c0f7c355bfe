package watcher

import (
	"fmt"
	"math/big"
	"time"

	"balance-watch/internal/domain"
	logging "balance-watch/internal/infra/log"

	"go.uber.org/zap"
)

// RecordLog is the persisted history the state is derived from.
type RecordLog interface {
	ReadAll() ([]domain.BalanceRecord, error)
	Append(record domain.BalanceRecord) error
}

// State is the last-known balance per address. It is owned by a single poll loop and is not safe for concurrent use.
type State struct {
	log      RecordLog
	balances map[string]*big.Int
}

// LoadState replays the log in file order; later rows overwrite earlier ones.
func LoadState(log RecordLog) (*State, error) {
	records, err := log.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("replay balance log: %w", err)
	}

	s := &State{log: log, balances: make(map[string]*big.Int, len(records))}
	for _, record := range records {
		s.balances[record.Address] = new(big.Int).Set(record.Wei)
	}
	logging.LogDebug("Balance state replayed", zap.Int("records", len(records)), zap.Int("addresses", len(s.balances)))
	return s, nil
}

// Get returns a copy of the last-known balance, zero for unseen addresses.
func (s *State) Get(address string) *big.Int {
	if wei, ok := s.balances[address]; ok {
		return new(big.Int).Set(wei)
	}
	return new(big.Int)
}

// Record appends the observation and only then updates memory, so a failed append changes nothing.
func (s *State) Record(ts time.Time, address string, wei *big.Int) error {
	record := domain.NewBalanceRecord(ts, address, wei)
	if err := s.log.Append(record); err != nil {
		return err
	}
	s.balances[address] = record.Wei
	return nil
}

func (s *State) Len() int {
	return len(s.balances)
}

// Snapshot copies the whole mapping.
func (s *State) Snapshot() map[string]*big.Int {
	out := make(map[string]*big.Int, len(s.balances))
	for address, wei := range s.balances {
		out[address] = new(big.Int).Set(wei)
	}
	return out
}
