package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoRetriesRetryableErrors(t *testing.T) {
	calls := 0
	var retried []int
	err := Do(context.Background(), Options{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		OnRetry:    func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
	}, func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: 503}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := &HTTPError{StatusCode: 400, Body: []byte("bad request")}
	err := Do(context.Background(), Options{MaxRetries: 5, BaseDelay: time.Millisecond}, func() error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "http error (400): bad request", err.Error())
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 2, BaseDelay: time.Millisecond}, func() error {
		calls++
		return &HTTPError{StatusCode: 429, RetryAfter: time.Millisecond}
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoCustomClassifier(t *testing.T) {
	flaky := errors.New("connection reset")
	calls := 0
	err := Do(context.Background(), Options{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		Retryable:  func(err error) bool { return errors.Is(err, flaky) },
	}, func() error {
		calls++
		return flaky
	})

	assert.ErrorIs(t, err, flaky)
	assert.Equal(t, 2, calls)
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Options{}, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFullJitterSleepBounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := FullJitterSleep(attempt, 10*time.Millisecond, 50*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 50*time.Millisecond)
	}
	assert.Zero(t, FullJitterSleep(1, 0, time.Second))
}
