package concurrent

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is used when a non-positive limit is passed.
const DefaultLimit = 4

// ForEach calls fn for every index in [0, n) with at most limit calls in
// flight. A failing call does not cancel its siblings; all errors are
// joined. Indices not yet started when ctx is done report ctx.Err().
func ForEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Map applies fn to every item, keeping results in input order.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	err := ForEach(ctx, len(items), limit, func(ctx context.Context, i int) error {
		r, err := fn(ctx, items[i])
		results[i] = r
		return err
	})
	return results, err
}
