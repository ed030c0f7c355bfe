package ethrpc

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"balance-watch/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watched = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers eth_chainId and eth_getBalance from the balances map.
func fakeNode(t *testing.T, balances map[string]*big.Int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "eth_chainId":
			resp["result"] = "0x1"
		case "eth_getBalance":
			var address, block string
			require.NoError(t, json.Unmarshal(req.Params[0], &address))
			require.NoError(t, json.Unmarshal(req.Params[1], &block))
			assert.Equal(t, "latest", block)

			found := false
			for addr, wei := range balances {
				if strings.EqualFold(addr, address) {
					resp["result"] = hexutil.EncodeBig(wei)
					found = true
				}
			}
			if !found {
				resp["error"] = map[string]interface{}{"code": -32000, "message": "header not found"}
			}
		default:
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	client, err := Dial(context.Background(), Options{RPCURL: url, RequestTimeout: 2 * time.Second, MaxRetries: 2, RateLimit: 100})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestPingReturnsChainID(t *testing.T) {
	client := dial(t, fakeNode(t, nil).URL)

	chainID, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), chainID.Int64())
}

func TestGetBalance(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	client := dial(t, fakeNode(t, map[string]*big.Int{watched: wei}).URL)

	got, err := client.GetBalance(context.Background(), watched)
	require.NoError(t, err)
	assert.Equal(t, 0, wei.Cmp(got))
}

func TestGetBalanceNodeError(t *testing.T) {
	client := dial(t, fakeNode(t, nil).URL)

	_, err := client.GetBalance(context.Background(), watched)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Contains(t, err.Error(), "header not found")
}

func TestGetBalanceInvalidAddress(t *testing.T) {
	client := dial(t, fakeNode(t, nil).URL)

	_, err := client.GetBalance(context.Background(), "0x1234")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestPingRetriesServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	node := fakeNode(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		node.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	client := dial(t, srv.URL)
	chainID, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), chainID.Int64())
	assert.Equal(t, int32(2), calls.Load())
}

func TestPingUnreachableNode(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := dial(t, url)
	_, err := client.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}

func TestDialRejectsEmptyURL(t *testing.T) {
	_, err := Dial(context.Background(), Options{})
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}

type failingBackend struct {
	calls int
}

func (b *failingBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	b.calls++
	return nil, errors.New("connection refused")
}

func (b *failingBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (b *failingBackend) Close() {}

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	backend := &failingBackend{}
	client := newClient(Options{RPCURL: "fake", RateLimit: 1000}, backend)

	for i := 0; i < 6; i++ {
		_, err := client.GetBalance(context.Background(), watched)
		require.ErrorIs(t, err, domain.ErrNetwork)
	}
	assert.Equal(t, 6, backend.calls)

	_, err := client.GetBalance(context.Background(), watched)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, 6, backend.calls)
}
