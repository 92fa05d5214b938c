// Package client runs the statements assembled by dialect/sql against a
// database and materializes their results.
//
//	c, err := client.Open(&client.Config{Dialect: "sqlite", DSN: "file:app.db"})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	people, err := client.Select[Person](ctx, c,
//	    sql.Select[Person]().Join(Pet{}).Where(ql.FieldEQ("Name", "Ann")))
//
// Insert, update and delete run in a transaction of their own unless the
// client is bound to one with Tx or InTx.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	"github.com/syssam/sqlmap/dialect/sql"
	"github.com/syssam/sqlmap/privacy"
)

// Client executes statements over a driver.
type Client struct {
	config
	driver dialect.Driver
	// conn runs the statements. It is the driver, or the transaction the
	// client is bound to.
	conn dialect.ExecQuerier
	tx   *Tx
}

// config holds the settings shared by a client and its transactions.
type config struct {
	log         *slog.Logger
	dialect     dialect.Dialect
	dialectName string
	dialectOpts []dialect.Option
	timeout     time.Duration
	policy      *privacy.Policy
}

// Option configures a Client.
type Option func(*config)

// WithLogger sets the logger of the client. The default logger is used
// otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDialect sets the dialect of the client. By default it is the
// dialect reported by the driver.
func WithDialect(name string, opts ...dialect.Option) Option {
	return func(c *config) {
		c.dialectName, c.dialectOpts = name, opts
	}
}

// WithAcquireTimeout bounds the wait for a connection on drivers limiting
// their connections.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithPolicy sets the privacy policy evaluated before every statement.
func WithPolicy(p privacy.Policy) Option {
	return func(c *config) {
		c.policy = &p
	}
}

func newConfig(opts []Option) config {
	c := config{log: slog.Default()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// New returns a client over the driver.
func New(drv dialect.Driver, opts ...Option) (*Client, error) {
	cfg := newConfig(opts)
	name := cfg.dialectName
	if name == "" {
		name = drv.Dialect()
	}
	d, err := dialect.Get(name, cfg.dialectOpts...)
	if err != nil {
		return nil, err
	}
	cfg.dialect = d
	return &Client{config: cfg, driver: drv, conn: drv}, nil
}

// Dialect returns the dialect statements are rendered for.
func (c *Client) Dialect() dialect.Dialect {
	return c.dialect
}

// Driver returns the underlying driver.
func (c *Client) Driver() dialect.Driver {
	return c.driver
}

// Close closes the underlying driver.
func (c *Client) Close() error {
	return c.driver.Close()
}

// acquirer is implemented by drivers bounding their connections.
type acquirer interface {
	Acquire(context.Context, time.Duration) (func(), error)
}

// acquire waits for a connection slot. Clients bound to a transaction
// already hold one.
func (c *Client) acquire(ctx context.Context) (func(), error) {
	a, ok := c.driver.(acquirer)
	if !ok || c.tx != nil {
		return func() {}, nil
	}
	return a.Acquire(ctx, c.timeout)
}

// Tx starts a transaction and returns a client bound to it. The
// connection slot is held until Commit or Rollback.
func (c *Client) Tx(ctx context.Context) (*Tx, error) {
	if c.tx != nil {
		return nil, fmt.Errorf("sqlmap/client: cannot start a transaction within a transaction")
	}
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	dtx, err := c.driver.Tx(ctx)
	if err != nil {
		release()
		return nil, fmt.Errorf("sqlmap/client: starting a transaction: %w", err)
	}
	tx := &Tx{ctx: ctx, tx: dtx, release: release}
	tx.Client = &Client{config: c.config, driver: c.driver, conn: dtx, tx: tx}
	return tx, nil
}

// InTx runs fn in a transaction, committing when fn succeeds and rolling
// back otherwise. Clients already bound to a transaction run fn in it.
func (c *Client) InTx(ctx context.Context, fn func(*Client) error) error {
	if c.tx != nil {
		return fn(c)
	}
	tx, err := c.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx.Client); err != nil {
		return tx.rollback(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlmap/client: committing transaction: %w", err)
	}
	return nil
}

// Exec runs a raw statement.
func (c *Client) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	var res sql.Result
	if err := c.conn.Exec(ctx, query, args, &res); err != nil {
		return nil, wrap(err)
	}
	return res, nil
}

// query runs a statement and hands its rows to scan.
func (c *Client) query(ctx context.Context, query string, scan func(sql.ColumnScanner) error) error {
	release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	var rows sql.Rows
	if err := c.conn.Query(ctx, query, []any{}, &rows); err != nil {
		return err
	}
	defer rows.Close()
	return scan(rows)
}

// write runs fn in the transaction of the client, or in a transaction
// of its own.
func (c *Client) write(ctx context.Context, fn func(dialect.ExecQuerier) error) error {
	if c.tx != nil {
		return fn(c.conn)
	}
	return c.InTx(ctx, func(tc *Client) error {
		return fn(tc.conn)
	})
}

// mutate evaluates the mutation policy of the client.
func (c *Client) mutate(ctx context.Context, m privacy.Mutation) error {
	if c.policy == nil {
		return nil
	}
	return c.policy.EvalMutation(ctx, m)
}

// Tx is a transaction. The embedded client runs its statements in it.
type Tx struct {
	*Client
	ctx     context.Context
	tx      dialect.Tx
	release func()
	done    bool

	onCommit   []CommitHook
	onRollback []RollbackHook
}

// Committer is the interface that wraps the Commit method.
type Committer interface {
	Commit(context.Context, *Tx) error
}

// CommitFunc is an adapter to allow the use of ordinary function as Committer.
type CommitFunc func(context.Context, *Tx) error

// Commit calls f(ctx, tx).
func (f CommitFunc) Commit(ctx context.Context, tx *Tx) error {
	return f(ctx, tx)
}

// CommitHook defines the "commit middleware". A function that gets a
// Committer and returns a Committer.
type CommitHook func(Committer) Committer

// Rollbacker is the interface that wraps the Rollback method.
type Rollbacker interface {
	Rollback(context.Context, *Tx) error
}

// RollbackFunc is an adapter to allow the use of ordinary function as Rollbacker.
type RollbackFunc func(context.Context, *Tx) error

// Rollback calls f(ctx, tx).
func (f RollbackFunc) Rollback(ctx context.Context, tx *Tx) error {
	return f(ctx, tx)
}

// RollbackHook defines the "rollback middleware". A function that gets a
// Rollbacker and returns a Rollbacker.
type RollbackHook func(Rollbacker) Rollbacker

// OnCommit adds a hook to call on commit.
func (tx *Tx) OnCommit(f CommitHook) {
	tx.onCommit = append(tx.onCommit, f)
}

// OnRollback adds a hook to call on rollback.
func (tx *Tx) OnRollback(f RollbackHook) {
	tx.onRollback = append(tx.onRollback, f)
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	var fn Committer = CommitFunc(func(context.Context, *Tx) error {
		return tx.tx.Commit()
	})
	for i := len(tx.onCommit) - 1; i >= 0; i-- {
		fn = tx.onCommit[i](fn)
	}
	defer tx.finish()
	return fn.Commit(tx.ctx, tx)
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	var fn Rollbacker = RollbackFunc(func(context.Context, *Tx) error {
		return tx.tx.Rollback()
	})
	for i := len(tx.onRollback) - 1; i >= 0; i-- {
		fn = tx.onRollback[i](fn)
	}
	defer tx.finish()
	return fn.Rollback(tx.ctx, tx)
}

// rollback rolls back the transaction after err and returns err, joined
// with the rollback failure if any.
func (tx *Tx) rollback(err error) error {
	tx.log.DebugContext(tx.ctx, "rolling back transaction", "error", err)
	if rerr := tx.Rollback(); rerr != nil {
		return fmt.Errorf("%w: %w", err, &sqlmap.RollbackError{Err: rerr})
	}
	return err
}

func (tx *Tx) finish() {
	if !tx.done {
		tx.done = true
		tx.release()
	}
}
