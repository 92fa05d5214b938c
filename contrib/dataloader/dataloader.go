// Package dataloader batches primary key lookups issued by concurrent
// callers into single queries.
//
//	people, err := dataloader.New[Person](c, dataloader.WithJoins(Pet{}))
//	if err != nil {
//	    return err
//	}
//	// Called from many goroutines, for instance one per resolver.
//	p, err := people.Load(ctx, id)
//
// Lookups arriving within the wait window of the first one share a
// SELECT ... WHERE key IN (...) statement. Keys without a row fail with a
// sqlmap.NotFoundError.
package dataloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/client"
	"github.com/syssam/sqlmap/dialect/sql"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema"
)

// Default batching parameters.
const (
	DefaultWait     = 2 * time.Millisecond
	DefaultMaxBatch = 100
)

// Option configures a Loader.
type Option func(*options)

type options struct {
	wait  time.Duration
	max   int
	joins []any
}

// WithWait sets how long the first lookup of a batch waits for others.
func WithWait(d time.Duration) Option {
	return func(o *options) {
		o.wait = d
	}
}

// WithMaxBatch bounds the keys of one statement. A full batch is sent
// without waiting.
func WithMaxBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.max = n
		}
	}
}

// WithJoins sets the relations loaded with every entity.
func WithJoins(joins ...any) Option {
	return func(o *options) {
		o.joins = joins
	}
}

// Loader loads entities of T by primary key.
type Loader[T any] struct {
	options
	client *client.Client
	desc   *schema.Descriptor

	mu      sync.Mutex
	pending *batch[T]
}

// batch is a set of keys read by one statement.
type batch[T any] struct {
	ctx   context.Context
	keys  []any
	done  chan struct{}
	found map[string]*T
	err   error
}

// New returns a loader of T over the client. T must have a primary key.
func New[T any](c *client.Client, opts ...Option) (*Loader[T], error) {
	desc, err := schema.For[T]()
	if err != nil {
		return nil, err
	}
	if desc.PrimaryKey == nil {
		return nil, &sqlmap.SchemaError{Type: desc.Name, Message: "batched loading requires a primary key"}
	}
	l := &Loader[T]{
		options: options{wait: DefaultWait, max: DefaultMaxBatch},
		client:  c,
		desc:    desc,
	}
	for _, opt := range opts {
		opt(&l.options)
	}
	return l, nil
}

// Load returns the entity with the given key.
func (l *Loader[T]) Load(ctx context.Context, key any) (*T, error) {
	b := l.add(ctx, key)
	select {
	case <-b.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if b.err != nil {
		return nil, b.err
	}
	v, ok := b.found[keyOf(key)]
	if !ok {
		return nil, sqlmap.NewNotFoundErrorWithID(l.desc.Name, key)
	}
	return v, nil
}

// LoadMany returns the entities with the given keys, in the order of the
// keys. Missing entities are nil and reported by a joined error.
func (l *Loader[T]) LoadMany(ctx context.Context, keys ...any) ([]*T, error) {
	out := make([]*T, len(keys))
	errs := make([]error, len(keys))
	var wg sync.WaitGroup
	for i, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i], errs[i] = l.Load(ctx, k)
		}()
	}
	wg.Wait()
	return out, errors.Join(errs...)
}

// add queues key in the open batch, opening one when there is none.
func (l *Loader[T]) add(ctx context.Context, key any) *batch[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.pending
	if b == nil {
		b = &batch[T]{ctx: context.WithoutCancel(ctx), done: make(chan struct{})}
		l.pending = b
		time.AfterFunc(l.wait, func() { l.dispatch(b) })
	}
	b.keys = append(b.keys, key)
	if len(b.keys) >= l.max {
		l.pending = nil
		go l.run(b)
	}
	return b
}

// dispatch sends b unless it was sent full.
func (l *Loader[T]) dispatch(b *batch[T]) {
	l.mu.Lock()
	if l.pending != b {
		l.mu.Unlock()
		return
	}
	l.pending = nil
	l.mu.Unlock()
	l.run(b)
}

func (l *Loader[T]) run(b *batch[T]) {
	defer close(b.done)
	seen := make(map[string]bool, len(b.keys))
	keys := make([]any, 0, len(b.keys))
	for _, k := range b.keys {
		if s := keyOf(k); !seen[s] {
			seen[s] = true
			keys = append(keys, k)
		}
	}
	pk := l.desc.PrimaryKey
	sel := sql.Select[T]().Join(l.joins...).Where(ql.In(ql.F(pk.Field), ql.List(keys...)))
	vs, err := client.Select[T](b.ctx, l.client, sel)
	if err != nil {
		b.err = err
		return
	}
	b.found = make(map[string]*T, len(vs))
	for _, v := range vs {
		k, err := pk.Get(v)
		if err != nil {
			b.err = err
			return
		}
		b.found[keyOf(k)] = v
	}
}

// keyOf returns the form keys are matched by, so that an int key finds
// the entity read back with an int64 or uint key.
func keyOf(k any) string {
	return fmt.Sprint(k)
}

// OrderByKeys reorders values to match keys. Keys without value get a nil
// entry and a NotFoundError labelled with the entity name.
func OrderByKeys[K comparable, V any](keys []K, values []*V, keyFn func(*V) K) ([]*V, []error) {
	lookup := make(map[K]*V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	label := fmt.Sprintf("%T", *new(V))
	if d, err := schema.For[V](); err == nil {
		label = d.Name
	}
	result := make([]*V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = sqlmap.NewNotFoundErrorWithID(label, key)
		}
	}
	return result, errs
}

// GroupByKey groups values by key, keeping their order. It serves the
// many side of a relation loaded for several owners at once.
func GroupByKey[K comparable, V any](values []V, keyFn func(V) K) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys returns the groups of keys, in the order of the keys.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}
