// Copyright 2023-2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package retry

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// UpTo calls fn until it succeeds, fails with an error retryable rejects,
// attempts run out or ctx is done. fn receives the zero-based attempt number.
// The last error is returned when attempts run out.
func UpTo[T any](ctx context.Context, attempts int, delay time.Duration, retryable func(error) bool, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var err error
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		var got T
		got, err = fn(attempt)
		if err == nil {
			return got, nil
		}
		if !retryable(err) || attempt == attempts-1 {
			break
		}
		log.Debug("retrying after failure", "attempt", attempt, "err", err, "delay", delay)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, err
}
