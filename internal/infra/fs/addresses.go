package fs

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"balance-watch/internal/domain"
	logging "balance-watch/internal/infra/log"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const commentPrefix = "#"

// LoadAddresses reads one address per line, skipping blanks and # comments,
// and returns them in file order in EIP-55 checksummed form. Duplicates are kept.
func LoadAddresses(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open addresses file: %v", domain.ErrConfiguration, err)
	}
	defer file.Close()

	var addresses []string
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		address, err := ChecksumAddress(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", domain.ErrConfiguration, path, lineNo, err)
		}
		addresses = append(addresses, address)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read addresses file: %v", domain.ErrConfiguration, err)
	}

	logging.LogDebug("Loaded addresses", zap.String("file", path), zap.Int("count", len(addresses)))
	return addresses, nil
}

// ChecksumAddress validates a hex address (0x prefix optional) and returns its checksummed form.
func ChecksumAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s).Hex(), nil
}
