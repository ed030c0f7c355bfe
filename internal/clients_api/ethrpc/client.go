package ethrpc

// Package ethrpc is the balance fetcher: a thin layer over go-ethereum's ethclient
// with rate limiting, a circuit breaker and request logging.

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"balance-watch/internal/domain"
	logging "balance-watch/internal/infra/log"
	"balance-watch/internal/infra/retry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// backend is the subset of *ethclient.Client the fetcher uses.
type backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

type Options struct {
	RPCURL         string
	RequestTimeout time.Duration
	MaxRetries     int
	RateLimit      float64
}

// Client fetches balances from a JSON-RPC node.
type Client struct {
	url            string
	backend        backend
	requestTimeout time.Duration
	maxRetries     int
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
}

// Dial connects to the node. It does not issue any request; call Ping for that.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.RPCURL == "" {
		return nil, fmt.Errorf("%w: empty rpc url", domain.ErrConnectivity)
	}
	ec, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrConnectivity, opts.RPCURL, err)
	}
	return newClient(opts, ec), nil
}

func newClient(opts Options, b backend) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	burst := int(opts.RateLimit)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		url:            opts.RPCURL,
		backend:        b,
		requestTimeout: opts.RequestTimeout,
		maxRetries:     opts.MaxRetries,
		rateLimiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "EthRPC",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.LogWarn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

// Ping checks the node answers eth_chainId and returns the chain id.
// HTTP 429/5xx responses are retried up to MaxRetries times.
func (c *Client) Ping(ctx context.Context) (*big.Int, error) {
	var chainID *big.Int
	err := retry.Do(ctx, retry.Options{
		MaxRetries: c.maxRetries,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logging.LogWarn("RPC node not ready, retrying",
				zap.String("rpc_url", c.url),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		},
	}, func() error {
		id, err := c.call(ctx, "eth_chainId", "", func(ctx context.Context) (*big.Int, error) {
			return c.backend.ChainID(ctx)
		})
		if err != nil {
			return asRetryable(err)
		}
		chainID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConnectivity, c.url, err)
	}
	return chainID, nil
}

// GetBalance returns the latest balance of address in wei. Failures are not retried.
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: invalid address %q", domain.ErrNetwork, address)
	}
	account := common.HexToAddress(address)

	wei, err := c.call(ctx, "eth_getBalance", address, func(ctx context.Context) (*big.Int, error) {
		return c.backend.BalanceAt(ctx, account, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get balance %s: %v", domain.ErrNetwork, address, err)
	}
	if wei == nil || wei.Sign() < 0 {
		return nil, fmt.Errorf("%w: get balance %s: malformed result", domain.ErrNetwork, address)
	}
	return wei, nil
}

func (c *Client) Close() {
	c.backend.Close()
}

// call runs one request through the limiter and breaker, bounded by the request timeout.
func (c *Client) call(ctx context.Context, method, address string, fn func(context.Context) (*big.Int, error)) (*big.Int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	requestID := logging.GenerateRequestID()
	var fields []zap.Field
	if address != "" {
		fields = append(fields, zap.String("address", address))
	}
	logging.LogRequest(requestID, method, c.url, fields...)
	started := time.Now()

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
		return fn(reqCtx)
	})
	logging.LogResponse(requestID, time.Since(started).Milliseconds(), err, fields...)
	if err != nil {
		return nil, err
	}
	value, _ := result.(*big.Int)
	return value, nil
}

// asRetryable maps a node HTTP error status onto retry.HTTPError so the retry policy can see it.
func asRetryable(err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return &retry.HTTPError{StatusCode: httpErr.StatusCode, Body: httpErr.Body}
	}
	return err
}
