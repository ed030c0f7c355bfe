package units

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad integer %q", s)
	}
	return v
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  string
		want string
	}{
		{"1500000000000000000", "1.5"},
		{"1000000000000000000", "1"},
		{"1000", "0.000000000000001"},
		{"0", "0"},
		{"123456789012345678901", "123.456789012345678901"},
	}

	for _, tt := range tests {
		t.Run(tt.wei, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEther(mustBig(t, tt.wei)))
		})
	}
}

func TestWeiToEtherNil(t *testing.T) {
	assert.True(t, WeiToEther(nil).IsZero())
}
