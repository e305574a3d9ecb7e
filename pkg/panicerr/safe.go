package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Safe wraps a function that returns an error, catching any panics and returning them as an error.
func Safe(fn func() error) func() error {
	return func() error {
		_, err := Try(func() (struct{}, error) {
			return struct{}{}, fn()
		})
		return err
	}
}

// SafeContext wraps a function that takes a context and returns an error.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}

// Try runs fn and converts a panic into an error. The zero value of T is
// returned alongside a recovered panic.
func Try[T any](fn func() (T, error)) (T, error) {
	var (
		catcher panics.Catcher
		v       T
		err     error
	)
	catcher.Try(func() {
		v, err = fn()
	})
	if rerr := catcher.Recovered().AsError(); rerr != nil {
		var zero T
		return zero, rerr
	}
	return v, err
}
