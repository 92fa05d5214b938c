package sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
)

// StatementKind is the kind of a statement, read from its leading keyword.
type StatementKind uint8

// Statement kinds.
const (
	OtherStatement StatementKind = iota
	SelectStatement
	InsertStatement
	UpdateStatement
	DeleteStatement
	numStatementKinds
)

var statementKeywords = [...]string{"OTHER", "SELECT", "INSERT", "UPDATE", "DELETE"}

func (k StatementKind) String() string {
	if k < numStatementKinds {
		return statementKeywords[k]
	}
	return fmt.Sprintf("StatementKind(%d)", k)
}

// KindOf returns the kind of the statement text. Paging wrappers such as
// "SELECT * FROM (SELECT ...)" and Oracle's "INSERT ALL" keep the kind of
// their leading keyword.
func KindOf(query string) StatementKind {
	q := strings.TrimLeft(query, " \t\r\n(")
	word, _, _ := strings.Cut(q, " ")
	switch strings.ToUpper(word) {
	case "SELECT", "WITH":
		return SelectStatement
	case "INSERT":
		return InsertStatement
	case "UPDATE":
		return UpdateStatement
	case "DELETE":
		return DeleteStatement
	}
	return OtherStatement
}

// Failure classifies a failed statement or connection acquisition.
type Failure uint8

// Failure classes.
const (
	// ExecutionFailure is any failure not classified otherwise.
	ExecutionFailure Failure = iota
	// ConstraintFailure is a violated constraint, as reported by the
	// classifier set with WithConstraintCheck.
	ConstraintFailure
	// TimeoutFailure is a connection slot not acquired in time.
	TimeoutFailure
	// CanceledFailure is a statement abandoned with its context.
	CanceledFailure
	numFailures
)

var failureNames = [...]string{"execution", "constraint", "timeout", "canceled"}

func (f Failure) String() string {
	if f < numFailures {
		return failureNames[f]
	}
	return fmt.Sprintf("Failure(%d)", f)
}

// Stats counts the statements run through a StatsDriver.
type Stats struct {
	statements [numStatementKinds]atomic.Int64
	failures   [numFailures]atomic.Int64
	slow       atomic.Int64
	elapsed    atomic.Int64
}

// Snapshot returns the counters at this point.
func (s *Stats) Snapshot() StatsSnapshot {
	var snap StatsSnapshot
	for k := range s.statements {
		snap.Statements[k] = s.statements[k].Load()
	}
	for f := range s.failures {
		snap.Failures[f] = s.failures[f].Load()
	}
	snap.Slow = s.slow.Load()
	snap.Elapsed = time.Duration(s.elapsed.Load())
	return snap
}

// Reset sets every counter to zero.
func (s *Stats) Reset() {
	for k := range s.statements {
		s.statements[k].Store(0)
	}
	for f := range s.failures {
		s.failures[f].Store(0)
	}
	s.slow.Store(0)
	s.elapsed.Store(0)
}

// StatsSnapshot is a copy of the counters of a Stats.
type StatsSnapshot struct {
	// Statements is indexed by StatementKind.
	Statements [numStatementKinds]int64
	// Failures is indexed by Failure.
	Failures [numFailures]int64
	Slow     int64
	Elapsed  time.Duration
}

// Count returns the number of statements of kind k.
func (s StatsSnapshot) Count(k StatementKind) int64 {
	if k >= numStatementKinds {
		return 0
	}
	return s.Statements[k]
}

// Failed returns the number of failures of class f.
func (s StatsSnapshot) Failed(f Failure) int64 {
	if f >= numFailures {
		return 0
	}
	return s.Failures[f]
}

// Total returns the number of statements of every kind.
func (s StatsSnapshot) Total() int64 {
	var n int64
	for _, c := range s.Statements {
		n += c
	}
	return n
}

// Mean returns the mean statement duration.
func (s StatsSnapshot) Mean() time.Duration {
	n := s.Total()
	if n == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(n)
}

// String lists the non-zero counters, e.g.
// "select=3 insert=1 constraint=1 slow=1 mean=2ms".
func (s StatsSnapshot) String() string {
	var b strings.Builder
	for k, n := range s.Statements {
		if n > 0 {
			fmt.Fprintf(&b, "%s=%d ", strings.ToLower(StatementKind(k).String()), n)
		}
	}
	for f, n := range s.Failures {
		if n > 0 {
			fmt.Fprintf(&b, "%s=%d ", Failure(f), n)
		}
	}
	if s.Slow > 0 {
		fmt.Fprintf(&b, "slow=%d ", s.Slow)
	}
	fmt.Fprintf(&b, "mean=%s", s.Mean())
	return b.String()
}

// SlowHook is called for every statement slower than the threshold.
type SlowHook func(ctx context.Context, kind StatementKind, query string, elapsed time.Duration)

// StatsDriver is a Driver counting statements by kind and failures by
// class.
type StatsDriver struct {
	*Driver
	stats      *Stats
	threshold  time.Duration
	slow       SlowHook
	constraint func(error) bool
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration past which a statement is slow.
// The default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold = d
	}
}

// WithSlowHook sets the function called for slow statements.
func WithSlowHook(hook SlowHook) StatsOption {
	return func(s *StatsDriver) {
		s.slow = hook
	}
}

// WithSlowLog logs slow statements at warning level. A nil logger logs to
// the default logger.
func WithSlowLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowHook(func(ctx context.Context, kind StatementKind, query string, elapsed time.Duration) {
		logger.WarnContext(ctx, "slow statement", "kind", kind, "elapsed", elapsed, "sql", query)
	})
}

// WithConstraintCheck sets the function telling constraint violations
// apart from other execution failures, usually sqlgraph.IsConstraintError.
func WithConstraintCheck(fn func(error) bool) StatsOption {
	return func(s *StatsDriver) {
		s.constraint = fn
	}
}

// NewStatsDriver returns drv counting its statements.
//
//	sd := sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowLog(logger),
//	    sql.WithConstraintCheck(sqlgraph.IsConstraintError),
//	)
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: &Stats{}, threshold: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the counters of the driver.
func (d *StatsDriver) Stats() *Stats {
	return d.stats
}

// Query runs a statement returning rows and counts it.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, start, err)
	return err
}

// Exec runs a statement and counts it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, start, err)
	return err
}

// Acquire waits for a connection slot, counting the waits that time out.
func (d *StatsDriver) Acquire(ctx context.Context, timeout time.Duration) (func(), error) {
	release, err := d.Driver.Acquire(ctx, timeout)
	if err != nil {
		d.stats.failures[d.classify(err)].Add(1)
	}
	return release, err
}

// Tx starts a transaction whose statements are counted with the driver's.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

func (d *StatsDriver) record(ctx context.Context, query string, start time.Time, err error) {
	elapsed := time.Since(start)
	kind := KindOf(query)
	d.stats.statements[kind].Add(1)
	d.stats.elapsed.Add(int64(elapsed))
	if err != nil {
		d.stats.failures[d.classify(err)].Add(1)
	}
	if elapsed > d.threshold {
		d.stats.slow.Add(1)
		if d.slow != nil {
			d.slow(ctx, kind, query, elapsed)
		}
	}
}

func (d *StatsDriver) classify(err error) Failure {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && !sqlmap.IsTimeout(err):
		return CanceledFailure
	case sqlmap.IsTimeout(err):
		return TimeoutFailure
	case sqlmap.IsConstraintError(err), d.constraint != nil && d.constraint(err):
		return ConstraintFailure
	}
	return ExecutionFailure
}

// StatsTx is a transaction counting its statements.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query runs a statement returning rows and counts it.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, start, err)
	return err
}

// Exec runs a statement and counts it.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, query, start, err)
	return err
}

// DebugDriver is a Driver logging every statement with its kind.
type DebugDriver struct {
	*Driver
	logger *slog.Logger
}

// NewDebugDriver returns drv logging its statements at debug level. A nil
// logger logs to the default logger.
func NewDebugDriver(drv *Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

// Query logs and runs a statement returning rows.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, d.logger, false, query, args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec logs and runs a statement.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, d.logger, false, query, args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction logging its statements and its outcome.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.logger.DebugContext(ctx, "begin")
	return &DebugTx{Tx: tx, ctx: ctx, logger: d.logger}, nil
}

// DebugTx is a transaction logging its statements.
type DebugTx struct {
	dialect.Tx
	ctx    context.Context
	logger *slog.Logger
}

// Query logs and runs a statement returning rows.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, tx.logger, true, query, args)
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec logs and runs a statement.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	logStatement(ctx, tx.logger, true, query, args)
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit commits the transaction and logs the outcome.
func (tx *DebugTx) Commit() error {
	err := tx.Tx.Commit()
	tx.logger.DebugContext(tx.ctx, "commit", "err", err)
	return err
}

// Rollback rolls back the transaction and logs the outcome.
func (tx *DebugTx) Rollback() error {
	err := tx.Tx.Rollback()
	tx.logger.DebugContext(tx.ctx, "rollback", "err", err)
	return err
}

func logStatement(ctx context.Context, logger *slog.Logger, tx bool, query string, args any) {
	attrs := []any{"kind", KindOf(query), "sql", query}
	if a, ok := args.([]any); ok && len(a) > 0 {
		attrs = append(attrs, "args", a)
	}
	if tx {
		attrs = append(attrs, "tx", true)
	}
	logger.DebugContext(ctx, "statement", attrs...)
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)
