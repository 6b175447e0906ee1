// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

// Batch concurrency bounds. Caller-supplied concurrency is clamped
// into [MinConcurrency, MaxConcurrency] regardless of input.
const (
	DefaultMinConcurrency = 1
	DefaultMaxConcurrency = 8
)

// BatchResult holds one item's outcome. Exactly one of Value or Err is
// meaningful. A failed item never aborts its siblings: partial failure
// is a first-class success mode of a batch call.
type BatchResult[R any] struct {
	Value R
	Err   error
}

// RunAll fans the worker out over items with bounded concurrency and
// returns results positionally: results[i] always corresponds to
// items[i], regardless of completion order.
//
// Workers share one atomic next-index counter; each claims the next
// unclaimed index until the list is exhausted. A worker panic is
// captured as that item's error, not propagated.
func RunAll[T, R any](ctx context.Context, items []T, concurrency int, worker func(context.Context, T) (R, error)) []BatchResult[R] {
	results := make([]BatchResult[R], len(items))
	if len(items) == 0 {
		return results
	}

	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	var (
		next int64 = -1
		wg   sync.WaitGroup
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				index := int(atomic.AddInt64(&next, 1))
				if index >= len(items) {
					return
				}
				results[index] = runOne(ctx, items[index], worker)
			}
		}()
	}
	wg.Wait()

	return results
}

// runOne executes the worker for a single item, converting a panic
// into an internal error so one bad target cannot take down the batch.
func runOne[T, R any](ctx context.Context, item T, worker func(context.Context, T) (R, error)) (result BatchResult[R]) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result.Err = wardenerr.Internal("collection worker panicked", fmt.Errorf("%v", recovered))
		}
	}()

	value, err := worker(ctx, item)
	if err != nil {
		return BatchResult[R]{Err: err}
	}
	return BatchResult[R]{Value: value}
}

// ClampConcurrency bounds a caller-supplied concurrency into the
// configured [minimum, maximum] range. Zero bounds fall back to the
// package defaults.
func ClampConcurrency(requested, minimum, maximum int) int {
	if minimum <= 0 {
		minimum = DefaultMinConcurrency
	}
	if maximum <= 0 {
		maximum = DefaultMaxConcurrency
	}
	if requested < minimum {
		return minimum
	}
	if requested > maximum {
		return maximum
	}
	return requested
}
