package fs

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"balance-watch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	addrB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

var testTime = time.Date(2024, 3, 9, 12, 30, 15, 123456000, time.UTC)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestBalanceLogReadAllMissingFile(t *testing.T) {
	log := NewBalanceLog(filepath.Join(t.TempDir(), "balances.csv"))

	records, err := log.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBalanceLogAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "balances.csv")
	log := NewBalanceLog(path)

	require.NoError(t, log.Append(domain.NewBalanceRecord(testTime, addrA, big.NewInt(1000))))
	require.NoError(t, log.Append(domain.NewBalanceRecord(testTime.Add(time.Second), addrB, big.NewInt(0))))

	assert.Equal(t, []string{
		"ts,address,wei,eth",
		"2024-03-09T12:30:15.123456Z," + addrA + ",1000,0.000000000000001",
		"2024-03-09T12:30:16.123456Z," + addrB + ",0,0",
	}, readLines(t, path))
}

func TestBalanceLogRoundTripKeepsPrecision(t *testing.T) {
	log := NewBalanceLog(filepath.Join(t.TempDir(), "balances.csv"))
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)

	require.NoError(t, log.Append(domain.NewBalanceRecord(testTime, addrA, wei)))

	lines := readLines(t, log.Path())
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], ",1500000000000000000,1.5"), lines[1])

	records, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, addrA, records[0].Address)
	assert.Equal(t, 0, wei.Cmp(records[0].Wei))
	assert.True(t, testTime.Equal(records[0].Timestamp))
}

func TestBalanceLogReadAllSkipsMalformedRows(t *testing.T) {
	path := writeFile(t, "balances.csv", strings.Join([]string{
		"ts,address,wei,eth",
		"2024-01-01T00:00:00.000000," + addrA + ",100,0.0000000000000001",
		"2024-01-01T00:00:01.000000," + addrA + ",abc,0",
		"2024-01-01T00:00:02.000000," + addrB,
		"2024-01-01T00:00:03.000000,,5,0",
		"2024-01-01T00:00:04.000000," + addrB + ",7,7E-18",
	}, "\n")+"\n")

	records, err := NewBalanceLog(path).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, addrA, records[0].Address)
	assert.Equal(t, int64(100), records[0].Wei.Int64())
	assert.Equal(t, addrB, records[1].Address)
	assert.Equal(t, int64(7), records[1].Wei.Int64())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 4, 0, time.UTC), records[1].Timestamp)
}

func TestBalanceLogReadAllRejectsUnknownHeader(t *testing.T) {
	path := writeFile(t, "balances.csv", "when,who,amount\n1,2,3\n")

	_, err := NewBalanceLog(path).ReadAll()
	assert.Error(t, err)
}

func TestBalanceLogAppendRepairsPartialRow(t *testing.T) {
	path := writeFile(t, "balances.csv", "ts,address,wei,eth\n2024-01-01T00:00:00.000000Z,"+addrA+",10")
	log := NewBalanceLog(path)

	require.NoError(t, log.Append(domain.NewBalanceRecord(testTime, addrB, big.NewInt(20))))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "2024-01-01T00:00:00.000000Z,"+addrA+",10", lines[1])

	records, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, addrB, records[0].Address)
}

func TestBalanceLogAppendEmptyFileGetsHeader(t *testing.T) {
	path := writeFile(t, "balances.csv", "")
	log := NewBalanceLog(path)

	require.NoError(t, log.Append(domain.NewBalanceRecord(testTime, addrA, big.NewInt(1))))
	assert.Equal(t, "ts,address,wei,eth", readLines(t, path)[0])
}

func TestBalanceLogAppendFailure(t *testing.T) {
	dir := t.TempDir()
	log := NewBalanceLog(dir) // a directory cannot be opened for append

	err := log.Append(domain.NewBalanceRecord(testTime, addrA, big.NewInt(1)))
	assert.ErrorIs(t, err, domain.ErrLogAppend)
}
