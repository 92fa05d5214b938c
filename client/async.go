package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/sqlmap/dialect/sql"
)

// Future is the pending result of an operation run in the background.
type Future[T any] struct {
	eg  *errgroup.Group
	val T
}

// Go runs fn on a new goroutine and returns its future result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	eg, ctx := errgroup.WithContext(ctx)
	f := &Future[T]{eg: eg}
	eg.Go(func() error {
		v, err := fn(ctx)
		f.val = v
		return err
	})
	return f
}

// Wait blocks until the operation is done and returns its result.
func (f *Future[T]) Wait() (T, error) {
	err := f.eg.Wait()
	return f.val, err
}

// SelectAsync runs Select in the background.
func SelectAsync[T any](ctx context.Context, c *Client, sel *sql.Selector) *Future[[]*T] {
	return Go(ctx, func(ctx context.Context) ([]*T, error) {
		return Select[T](ctx, c, sel)
	})
}

// InsertAsync runs Insert in the background. The future holds the number
// of entities inserted.
func (c *Client) InsertAsync(ctx context.Context, values ...any) *Future[int] {
	return Go(ctx, func(ctx context.Context) (int, error) {
		if err := c.Insert(ctx, values...); err != nil {
			return 0, err
		}
		return len(values), nil
	})
}

// UpdateAsync runs UpdateWith in the background.
func (c *Client) UpdateAsync(ctx context.Context, b *sql.UpdateBuilder) *Future[int64] {
	return Go(ctx, func(ctx context.Context) (int64, error) {
		return c.UpdateWith(ctx, b)
	})
}

// DeleteAsync runs Delete in the background.
func (c *Client) DeleteAsync(ctx context.Context, b *sql.DeleteBuilder) *Future[int64] {
	return Go(ctx, func(ctx context.Context) (int64, error) {
		return c.Delete(ctx, b)
	})
}
