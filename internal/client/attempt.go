package client

import "context"

// Attempt is one strategy in an ordered fallback chain.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// FirstSuccess runs attempts in order and returns the first result that
// succeeds. When all fail it returns an *AttemptsError naming each cause.
// A cancelled context stops the chain early.
func FirstSuccess[T any](ctx context.Context, op string, attempts ...Attempt[T]) (T, error) {
	var zero T
	failed := &AttemptsError{Op: op}
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			failed.Failures = append(failed.Failures, AttemptFailure{Name: attempt.Name, Err: err})
			return zero, failed
		}
		result, err := attempt.Run(ctx)
		if err == nil {
			return result, nil
		}
		failed.Failures = append(failed.Failures, AttemptFailure{Name: attempt.Name, Err: err})
	}
	return zero, failed
}
