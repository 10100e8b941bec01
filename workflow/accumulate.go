package workflow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
)

var ErrTooManyRounds = errors.New("too many capture rounds")

var errShort = errors.New("round came up short")

// RoundFunc runs round n (1-based) given what has been gathered so far and
// returns the new items.
type RoundFunc[T any] func(ctx context.Context, n int, have []T) ([]T, error)

// Accumulate runs rounds until done reports true, waiting delay between
// rounds, for at most maxRounds rounds. A round that fails without adding
// anything stops the loop with its error; a failed round that did make
// progress is retried. On ErrTooManyRounds the partial result is returned.
func Accumulate[T any](ctx context.Context, maxRounds int, delay time.Duration, round RoundFunc[T], done func([]T) bool) ([]T, error) {
	if maxRounds < 1 {
		maxRounds = 1
	}
	if delay <= 0 {
		delay = time.Nanosecond
	}

	var acc []T
	n := 0
	backoff := retry.WithMaxRetries(uint64(maxRounds-1), retry.NewConstant(delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		n++
		got, err := round(ctx, n, acc)
		acc = append(acc, got...)
		if done(acc) {
			return nil
		}
		if err != nil && len(got) == 0 {
			return err
		}
		return retry.RetryableError(errShort)
	})

	if errors.Is(err, errShort) {
		return acc, ErrTooManyRounds
	}
	return acc, err
}
