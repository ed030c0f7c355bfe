package fs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"balance-watch/internal/domain"
	logging "balance-watch/internal/infra/log"
	"balance-watch/internal/infra/units"

	"go.uber.org/zap"
)

// LogHeader is written once, when the log file is created.
var LogHeader = []string{"ts", "address", "wei", "eth"}

// legacy rows carry a naive UTC timestamp without zone
var timestampLayouts = []string{
	domain.TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// BalanceLog is the append-only CSV history of balance changes.
type BalanceLog struct {
	path string
}

func NewBalanceLog(path string) *BalanceLog {
	return &BalanceLog{path: path}
}

func (l *BalanceLog) Path() string { return l.path }

// ReadAll returns every readable record in file order. A missing file is an empty log.
// Rows that cannot be parsed are skipped with a warning.
func (l *BalanceLog) ReadAll() ([]domain.BalanceRecord, error) {
	file, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		logging.LogDebug("Balance log does not exist yet", zap.String("file", l.path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open balance log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read balance log header: %w", err)
	}
	columns, err := locateColumns(header)
	if err != nil {
		return nil, fmt.Errorf("balance log %s: %w", l.path, err)
	}

	var records []domain.BalanceRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logging.LogWarn("Skipping unreadable balance log row", zap.String("file", l.path), zap.Int("line", parseErr.StartLine), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("read balance log: %w", err)
		}
		line, _ := reader.FieldPos(0)

		record, err := columns.parse(row)
		if err != nil {
			logging.LogWarn("Skipping malformed balance log row", zap.String("file", l.path), zap.Int("line", line), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Append writes one row, creating the file (and header) if needed.
func (l *BalanceLog) Append(record domain.BalanceRecord) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", domain.ErrLogAppend, l.path, err)
		}
	}()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(LogHeader); err != nil {
			return err
		}
	} else if err := terminatePartialLine(file, info.Size()); err != nil {
		return err
	}

	if err := writer.Write(formatRow(record)); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// terminatePartialLine closes a row cut short by an interrupted write so the next row starts on its own line.
func terminatePartialLine(file *os.File, size int64) error {
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	logging.LogWarn("Balance log ends with a partial row, terminating it", zap.String("file", file.Name()))
	_, err := file.Write([]byte{'\n'})
	return err
}

func formatRow(record domain.BalanceRecord) []string {
	return []string{
		record.Timestamp.UTC().Format(domain.TimestampLayout),
		record.Address,
		record.Wei.String(),
		units.FormatEther(record.Wei),
	}
}

type logColumns struct {
	ts, address, wei int
	width            int
}

func locateColumns(header []string) (logColumns, error) {
	cols := logColumns{ts: -1, address: -1, wei: -1, width: len(header)}
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case "ts":
			cols.ts = i
		case "address":
			cols.address = i
		case "wei":
			cols.wei = i
		}
	}
	if cols.address < 0 || cols.wei < 0 {
		return cols, fmt.Errorf("unrecognized header %v", header)
	}
	return cols, nil
}

func (c logColumns) parse(row []string) (domain.BalanceRecord, error) {
	if len(row) != c.width {
		return domain.BalanceRecord{}, fmt.Errorf("expected %d fields, got %d", c.width, len(row))
	}
	address := strings.TrimSpace(row[c.address])
	if address == "" {
		return domain.BalanceRecord{}, fmt.Errorf("empty address")
	}
	wei, ok := new(big.Int).SetString(strings.TrimSpace(row[c.wei]), 10)
	if !ok {
		return domain.BalanceRecord{}, fmt.Errorf("invalid wei %q", row[c.wei])
	}

	record := domain.BalanceRecord{Address: address, Wei: wei}
	if c.ts >= 0 {
		record.Timestamp = parseTimestamp(row[c.ts])
	}
	return record, nil
}

// parseTimestamp returns the zero time for unparseable values; replay only needs address and wei.
func parseTimestamp(value string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
