package units

// Conversion between wei (integer smallest unit) and ether (human-readable decimal)

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals - number of decimal places between wei and ether
const EtherDecimals = 18

// WeiToEther converts wei to an exact ether decimal.
func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}

// FormatEther renders wei as ether without trailing zeros or exponent ("1.5", "0.000000000000001").
func FormatEther(wei *big.Int) string {
	return WeiToEther(wei).String()
}
