package sql

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	"github.com/syssam/sqlmap/schema"
)

// InsertBuilder is a builder for INSERT statements of one entity type.
// Rows are batched up to the row limit of the dialect. Auto-increment and
// read-only columns are never written.
//
// The rendered statements are cached until the builder is mutated, so the
// entities are read once, at the first render.
type InsertBuilder struct {
	dialect dialect.Dialect
	desc    *schema.Descriptor
	values  []any
	from    *Selector
	batch   int
	err     error

	dirty   bool
	stmts   []Statement
	renders int
}

// Insert returns a builder inserting the given entities, all of the same
// type. Pass pointers to have generated keys assigned back.
func Insert(values ...any) *InsertBuilder {
	b := &InsertBuilder{values: values, dirty: true}
	b.desc, b.err = entities(values)
	return b
}

// InsertFrom returns a builder copying the rows selected by sel into the
// table of T. The projected columns are matched to the columns of T by name.
func InsertFrom[T any](sel *Selector) *InsertBuilder {
	b := &InsertBuilder{from: sel, dirty: true}
	b.desc, b.err = schema.For[T]()
	return b
}

// Dialect sets the dialect the statements are rendered for.
func (b *InsertBuilder) Dialect(d dialect.Dialect) *InsertBuilder {
	if b.dialect != d {
		b.dialect, b.dirty = d, true
	}
	return b
}

// Batch overrides the maximum rows per statement of the dialect.
func (b *InsertBuilder) Batch(n int) *InsertBuilder {
	if b.batch != n {
		b.batch, b.dirty = n, true
	}
	return b
}

// Entity returns the descriptor of the inserted entity.
func (b *InsertBuilder) Entity() *schema.Descriptor {
	return b.desc
}

// BatchSize returns the maximum rows per statement.
func (b *InsertBuilder) BatchSize() int {
	switch {
	case b.batch > 0:
		return b.batch
	case b.dialect != nil && b.dialect.MaxBatchRows() > 0:
		return b.dialect.MaxBatchRows()
	}
	return 1
}

// Columns returns the columns written by the statements.
func (b *InsertBuilder) Columns() []*schema.Column {
	if b.desc == nil {
		return nil
	}
	var cs []*schema.Column
	for _, c := range b.desc.Columns {
		if writable(c) {
			cs = append(cs, c)
		}
	}
	return cs
}

// Pending returns the entities holding optional relations to other entities
// of the same insert, and the names of those relations. The relations are
// inserted as NULL and must be written by an update once the keys of every
// entity are known.
func (b *InsertBuilder) Pending() ([]any, []string) {
	var (
		ents  []any
		names []string
	)
	for _, v := range b.values {
		cs := b.deferred(v)
		if len(cs) == 0 {
			continue
		}
		ents = append(ents, v)
		for _, c := range cs {
			if n := c.Edge.Name; !slices.Contains(names, n) {
				names = append(names, n)
			}
		}
	}
	return ents, names
}

// deferred returns the nullable relation columns of v referencing another
// entity of the insert.
func (b *InsertBuilder) deferred(v any) []*schema.Column {
	var cs []*schema.Column
	for _, c := range b.desc.Edges {
		if !c.Stored || !c.Nullable || c.Is(schema.FlagReadOnly) {
			continue
		}
		rel, err := c.Relation()
		if err != nil || rel.Foreign != b.desc {
			continue
		}
		obj, err := c.Related(v)
		if err != nil || obj.Kind() != reflect.Ptr || obj.IsNil() {
			continue
		}
		for _, o := range b.values {
			if p := reflect.ValueOf(o); p.Kind() == reflect.Ptr && p.Pointer() == obj.Pointer() {
				cs = append(cs, c)
				break
			}
		}
	}
	return cs
}

// Statements renders the batched statements.
func (b *InsertBuilder) Statements(ctx context.Context) ([]Statement, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.dialect == nil {
		return nil, errNoDialect
	}
	if !b.dirty {
		return slices.Clone(b.stmts), nil
	}
	b.renders++
	stmts, err := b.render(ctx)
	if err != nil {
		return nil, err
	}
	b.stmts, b.dirty = stmts, false
	return slices.Clone(stmts), nil
}

func (b *InsertBuilder) render(ctx context.Context) ([]Statement, error) {
	if b.from != nil {
		q, err := b.copy(ctx)
		if err != nil {
			return nil, err
		}
		return []Statement{{Query: q}}, nil
	}
	cols := b.Columns()
	size := b.BatchSize()
	if len(cols) == 0 {
		size = 1
	}
	stmts := make([]Statement, 0, (len(b.values)+size-1)/size)
	for start := 0; start < len(b.values); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ents := b.values[start:min(start+size, len(b.values))]
		stmt, err := b.statement(cols, ents)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (b *InsertBuilder) statement(cols []*schema.Column, ents []any) (Statement, error) {
	d := b.dialect
	table := d.QuoteTable(b.desc.Table)
	stmt := Statement{Entities: ents}
	if len(cols) == 0 {
		stmt.Query = "INSERT INTO " + table + " DEFAULT VALUES"
		if d.Name() == dialect.MySQL {
			stmt.Query = "INSERT INTO " + table + " () VALUES ()"
		}
		return b.returning(stmt), nil
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = d.QuoteIdent(c.Name)
	}
	into := table + " (" + strings.Join(names, ", ") + ")"
	rows := make([]string, len(ents))
	for i, e := range ents {
		row, err := b.row(cols, e)
		if err != nil {
			return Statement{}, err
		}
		rows[i] = "(" + row + ")"
	}
	if len(ents) > 1 && d.SupportsInsertAll() {
		var sb strings.Builder
		sb.WriteString("INSERT ALL")
		for _, r := range rows {
			sb.WriteString(" INTO " + into + " VALUES " + r)
		}
		sb.WriteString(" SELECT 1 FROM DUAL")
		stmt.Query = sb.String()
		return stmt, nil
	}
	stmt.Query = "INSERT INTO " + into + " VALUES " + strings.Join(rows, ", ")
	return b.returning(stmt), nil
}

func (b *InsertBuilder) row(cols []*schema.Column, e any) (string, error) {
	deferred := b.deferred(e)
	vs := make([]string, len(cols))
	for i, c := range cols {
		if slices.Contains(deferred, c) {
			vs[i] = "NULL"
			continue
		}
		v, err := valueLiteral(b.dialect, c, e)
		if err != nil {
			return "", err
		}
		vs[i] = v
	}
	return strings.Join(vs, ", "), nil
}

func (b *InsertBuilder) returning(stmt Statement) Statement {
	if ai := b.desc.AutoIncrement; ai != nil && b.dialect.SupportsReturning() {
		stmt.Query += " RETURNING " + b.dialect.QuoteIdent(ai.Name)
		stmt.Returning = true
	}
	return stmt
}

// copy renders INSERT INTO ... SELECT.
func (b *InsertBuilder) copy(ctx context.Context) (string, error) {
	b.from.inherit(b.dialect)
	p, err := b.from.Plan(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, len(p.Columns))
	for i, pc := range p.Columns {
		if pc.Column == nil {
			return "", &sqlmap.SchemaError{Type: b.desc.Name, Message: fmt.Sprintf("computed column %d has no target column", i+1)}
		}
		c, ok := b.desc.Column(pc.Column.Name)
		if !ok {
			return "", &sqlmap.SchemaError{Type: b.desc.Name, Field: pc.Column.Name, Message: "no such column in the target table"}
		}
		names[i] = b.dialect.QuoteIdent(c.Name)
	}
	return "INSERT INTO " + b.dialect.QuoteTable(b.desc.Table) + " (" + strings.Join(names, ", ") + ") " + p.Query, nil
}
