package sql

import (
	"context"

	"github.com/syssam/sqlmap/dialect"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema"
)

// DeleteBuilder is a builder for the DELETE statement. The rendered
// statement is cached until the builder is mutated.
type DeleteBuilder struct {
	dialect dialect.Dialect
	desc    *schema.Descriptor
	where   ql.P
	key     any
	byKey   bool
	err     error

	dirty   bool
	query   string
	renders int
}

// Delete returns a builder deleting rows of T.
func Delete[T any]() *DeleteBuilder {
	return DeleteFrom(schema.For[T]())
}

// DeleteByID returns a builder deleting the row of T with the given
// primary key.
func DeleteByID[T any](id any) *DeleteBuilder {
	b := Delete[T]()
	b.key, b.byKey = id, true
	return b
}

// DeleteFrom returns a builder deleting rows of the resolved entity.
func DeleteFrom(desc *schema.Descriptor, err error) *DeleteBuilder {
	return &DeleteBuilder{desc: desc, err: err, dirty: true}
}

// Dialect sets the dialect the statement is rendered for.
func (b *DeleteBuilder) Dialect(d dialect.Dialect) *DeleteBuilder {
	if b.dialect != d {
		b.dialect, b.dirty = d, true
	}
	return b
}

// Entity returns the descriptor of the entity deleted from.
func (b *DeleteBuilder) Entity() *schema.Descriptor {
	return b.desc
}

// Where sets the predicate matching the deleted rows. Repeated calls are
// joined with AND. Without predicate, every row is deleted.
func (b *DeleteBuilder) Where(p ql.P) *DeleteBuilder {
	if b.where == nil {
		b.where = p
	} else {
		b.where = ql.And(b.where, p)
	}
	b.dirty = true
	return b
}

// Query returns the statement text.
func (b *DeleteBuilder) Query() (string, error) {
	return b.QueryContext(context.Background())
}

// QueryContext returns the statement text.
func (b *DeleteBuilder) QueryContext(ctx context.Context) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.dialect == nil {
		return "", errNoDialect
	}
	if !b.dirty {
		return b.query, nil
	}
	b.renders++
	q, err := b.render(ctx)
	if err != nil {
		return "", err
	}
	b.query, b.dirty = q, false
	return q, nil
}

func (b *DeleteBuilder) render(ctx context.Context) (string, error) {
	q := "DELETE FROM " + b.dialect.QuoteTable(b.desc.Table)
	var conds []string
	if b.byKey {
		k, err := keyPredicate(b.dialect, b.desc, b.key)
		if err != nil {
			return "", err
		}
		conds = append(conds, k)
	}
	if b.where != nil {
		w, err := predicate(ctx, b.dialect, b.desc, b.where)
		if err != nil {
			return "", err
		}
		if len(conds) > 0 {
			w = "(" + w + ")"
		}
		conds = append(conds, w)
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	return q, nil
}
