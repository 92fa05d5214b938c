package sqlgraph

import (
	"context"
	stdsql "database/sql"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	"github.com/syssam/sqlmap/dialect/sql"
	"github.com/syssam/sqlmap/internal/entitytest"
	ql "github.com/syssam/sqlmap/querylanguage"
)

// query plans s and returns the rows produced by the mock for its text.
func query(t *testing.T, s *sql.Selector, header []string, rows ...[]any) (*stdsql.Rows, *sql.Plan) {
	t.Helper()
	p, err := s.Dialect(dialect.MustGet(dialect.SQLite)).Plan(context.Background())
	require.NoError(t, err)
	if header == nil {
		for _, c := range p.Columns {
			header = append(header, c.Label)
		}
	}
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mr := sqlmock.NewRows(header)
	for _, r := range rows {
		mr.AddRow(toDriver(r)...)
	}
	mock.ExpectQuery(p.Query).WillReturnRows(mr)
	rs, err := db.Query(p.Query)
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	return rs, p
}

func toDriver(vs []any) []driver.Value {
	out := make([]driver.Value, len(vs))
	for i, v := range vs {
		if n, ok := v.(int); ok {
			v = int64(n)
		}
		out[i] = v
	}
	return out
}

func TestMaterializeManyToMany(t *testing.T) {
	rows, plan := query(t, sql.Select[entitytest.Pet]().Join(entitytest.Tag{}), nil,
		[]any{1, "Rex", 1, nil, 10, 1, 100, 100, "cute"},
		[]any{1, "Rex", 1, nil, 11, 1, 101, 101, "loud"},
		// Repeated association row.
		[]any{1, "Rex", 1, nil, 10, 1, 100, 100, "cute"},
		[]any{2, "Tom", 0, nil, nil, nil, nil, nil, nil},
		[]any{3, "Max", 1, nil, 12, 3, 100, 100, "cute"},
	)
	pets, err := Scan[entitytest.Pet](context.Background(), rows, plan)
	require.NoError(t, err)
	require.Len(t, pets, 3)

	rex, tom, mx := pets[0], pets[1], pets[2]
	assert.Equal(t, "Rex", rex.Name)
	assert.Equal(t, entitytest.Dog, rex.Kind)
	require.Len(t, rex.Tags, 2)
	assert.Equal(t, "cute", rex.Tags[0].Label)
	assert.Equal(t, "loud", rex.Tags[1].Label)

	assert.Equal(t, entitytest.Cat, tom.Kind)
	assert.Nil(t, tom.Tags)

	require.Len(t, mx.Tags, 1)
	assert.Same(t, rex.Tags[0], mx.Tags[0])
}

func TestMaterializeOneToMany(t *testing.T) {
	rows, plan := query(t, sql.Select[entitytest.Person]().Join(entitytest.Pet{}), nil,
		[]any{1, "Ann", 5, "Rex", 1, 1},
		[]any{1, "Ann", 6, "Tom", 0, 1},
		[]any{2, "Bo", nil, nil, nil, nil},
	)
	people, err := Scan[entitytest.Person](context.Background(), rows, plan)
	require.NoError(t, err)
	require.Len(t, people, 2)

	ann, bo := people[0], people[1]
	require.Len(t, ann.Pets, 2)
	assert.Equal(t, "Rex", ann.Pets[0].Name)
	assert.Same(t, ann, ann.Pets[0].Owner)
	assert.Same(t, ann, ann.Pets[1].Owner)
	require.NotNil(t, ann.Pets[0].OwnerID)
	assert.Equal(t, 1, *ann.Pets[0].OwnerID)
	assert.Nil(t, bo.Pets)
}

func TestMaterializeOrphan(t *testing.T) {
	rows, plan := query(t, sql.Select[entitytest.Pet]().Join(entitytest.Person{}), nil,
		[]any{5, "Rex", 1, nil, nil, nil},
		[]any{6, "Tom", 0, 1, 1, "Ann"},
	)
	pets, err := Scan[entitytest.Pet](context.Background(), rows, plan)
	require.NoError(t, err)
	require.Len(t, pets, 2)
	assert.Nil(t, pets[0].Owner)
	assert.Nil(t, pets[0].OwnerID)
	require.NotNil(t, pets[1].Owner)
	assert.Equal(t, "Ann", pets[1].Owner.Name)
	// The owner is not selected as root, its collection stays unset.
	assert.Nil(t, pets[1].Owner.Pets)
}

func TestMaterializeSelf(t *testing.T) {
	t.Run("joined", func(t *testing.T) {
		rows, plan := query(t, sql.Select[entitytest.Employee]().Join(entitytest.Employee{}), nil,
			[]any{2, "Bo", 1, nil, 1, "Ann", nil, nil, nil, nil, nil, nil},
			[]any{1, "Ann", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil},
		)
		emps, err := Scan[entitytest.Employee](context.Background(), rows, plan)
		require.NoError(t, err)
		require.Len(t, emps, 2)
		bo, ann := emps[0], emps[1]
		assert.Equal(t, "Bo", bo.Name)
		assert.Same(t, ann, bo.Manager)
		assert.Nil(t, bo.Mentor)
		assert.Nil(t, ann.Manager)
	})

	t.Run("foreign_key_only", func(t *testing.T) {
		// Without the self join the relation is resolved from the foreign
		// key once Ann has been read.
		rows, plan := query(t, sql.Select[entitytest.Employee](), nil,
			[]any{2, "Bo", 1, nil},
			[]any{1, "Ann", nil, nil},
		)
		require.Len(t, plan.Columns, 4)
		emps, err := Scan[entitytest.Employee](context.Background(), rows, plan)
		require.NoError(t, err)
		require.Len(t, emps, 2)
		assert.Same(t, emps[1], emps[0].Manager)
	})

	t.Run("excluded", func(t *testing.T) {
		rows, plan := query(t, sql.Select[entitytest.Employee]().Join(entitytest.Employee{}).Exclude(ql.F("Manager")), nil,
			[]any{2, "Bo", 1, nil, 1, "Ann", nil, nil, nil, nil, nil, nil},
		)
		emps, err := Scan[entitytest.Employee](context.Background(), rows, plan)
		require.NoError(t, err)
		require.Len(t, emps, 1)
		assert.Nil(t, emps[0].Manager)
	})
}

func TestMaterializeHeader(t *testing.T) {
	s := func() *sql.Selector { return sql.Select[entitytest.Person]() }

	t.Run("by_name", func(t *testing.T) {
		rows, plan := query(t, s(), []string{"Name", "Extra", "Id"}, []any{"Ann", 7, 1})
		people, err := Scan[entitytest.Person](context.Background(), rows, plan)
		require.NoError(t, err)
		require.Len(t, people, 1)
		assert.Equal(t, 1, people[0].ID)
		assert.Equal(t, "Ann", people[0].Name)
	})

	t.Run("ambiguous", func(t *testing.T) {
		rows, plan := query(t, s(), []string{"Id", "Id", "Name"}, []any{1, 2, "Ann"})
		_, err := Scan[entitytest.Person](context.Background(), rows, plan)
		require.True(t, sqlmap.IsSchemaError(err))
	})

	t.Run("missing", func(t *testing.T) {
		rows, plan := query(t, s(), []string{"Id"}, []any{1})
		_, err := Scan[entitytest.Person](context.Background(), rows, plan)
		require.True(t, sqlmap.IsSchemaError(err))
	})
}

func TestMaterializeNullRoot(t *testing.T) {
	rows, plan := query(t, sql.Select[entitytest.Person](), nil,
		[]any{nil, "ghost"},
		[]any{1, "Ann"},
		[]any{1, "Ann"},
	)
	people, err := Scan[entitytest.Person](context.Background(), rows, plan)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Ann", people[0].Name)
}

func TestMaterializeNoKey(t *testing.T) {
	rows, plan := query(t, sql.Select[entitytest.Event](), nil,
		[]any{"boot", "2024-01-02 03:04:05"},
		[]any{"boot", "2024-01-02 03:04:05"},
	)
	events, err := Scan[entitytest.Event](context.Background(), rows, plan)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.NotSame(t, events[0], events[1])
	assert.Equal(t, 2024, events[0].At.Year())
}

func TestMaterializeErrors(t *testing.T) {
	t.Run("conversion", func(t *testing.T) {
		rows, plan := query(t, sql.Select[entitytest.Pet](), nil, []any{1, "Rex", "Bird", nil})
		_, err := Scan[entitytest.Pet](context.Background(), rows, plan)
		require.True(t, sqlmap.IsExecutionError(err), "got %v", err)
		var ee *sqlmap.ExecutionError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, plan.Query, ee.SQL)
	})

	t.Run("type", func(t *testing.T) {
		rows, plan := query(t, sql.Select[entitytest.Pet](), nil)
		_, err := Scan[entitytest.Person](context.Background(), rows, plan)
		require.True(t, sqlmap.IsSchemaError(err))
	})

	t.Run("canceled", func(t *testing.T) {
		rows, plan := query(t, sql.Select[entitytest.Person](), nil, []any{1, "Ann"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Materialize(ctx, rows, plan)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestValues(t *testing.T) {
	rows, _ := query(t, sql.Select[entitytest.Person]().Columns(ql.CountAll()), nil, []any{3})
	vs, err := Values(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, [][]any{{int64(3)}}, vs)
}
