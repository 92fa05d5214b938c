package client_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/client"
	"github.com/syssam/sqlmap/dialect/sql"
	"github.com/syssam/sqlmap/dialect/sql/sqlgraph"
	"github.com/syssam/sqlmap/internal/entitytest"
	ql "github.com/syssam/sqlmap/querylanguage"
)

var tables = []string{
	`CREATE TABLE "Person" ("Id" INTEGER PRIMARY KEY AUTOINCREMENT, "Name" TEXT NOT NULL UNIQUE)`,
	`CREATE TABLE "Pet" ("Id" INTEGER PRIMARY KEY AUTOINCREMENT, "Name" TEXT NOT NULL, "Kind" INTEGER NOT NULL, ` +
		`"OwnerId" INTEGER REFERENCES "Person" ("Id"))`,
	`CREATE TABLE "Employee" ("Id" INTEGER PRIMARY KEY, "Name" TEXT NOT NULL, "ManagerId" INTEGER, "MentorId" INTEGER)`,
}

func openSQLite(t *testing.T, cfg client.Config) *client.Client {
	t.Helper()
	cfg.Dialect = "sqlite"
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	cfg.MaxConns = 1
	c, err := client.Open(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	for _, q := range tables {
		_, err := c.Exec(context.Background(), q)
		require.NoError(t, err)
	}
	return c
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t, client.Config{})

	ann, bo := &entitytest.Person{Name: "Ann"}, &entitytest.Person{Name: "Bo"}
	require.NoError(t, c.Insert(ctx, ann, bo))
	assert.Equal(t, 1, ann.ID)
	assert.Equal(t, 2, bo.ID)

	require.NoError(t, c.Insert(ctx,
		&entitytest.Pet{Name: "Rex", Kind: entitytest.Dog, OwnerID: &ann.ID},
		&entitytest.Pet{Name: "Tom", Kind: entitytest.Cat, OwnerID: &ann.ID},
	))

	n, err := client.DeleteByID[entitytest.Person](ctx, c, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	people, err := client.Select[entitytest.Person](ctx, c, sql.Select[entitytest.Person]().Join(entitytest.Pet{}))
	require.NoError(t, err)
	got := make(map[string][]string)
	for _, p := range people {
		got[p.Name] = nil
		for _, pet := range p.Pets {
			require.Same(t, p, pet.Owner)
			got[p.Name] = append(got[p.Name], pet.Name)
		}
	}
	if diff := cmp.Diff(map[string][]string{"Ann": {"Rex", "Tom"}}, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("people mismatch (-want +got):\n%s", diff)
	}

	dogs, err := client.Select[entitytest.Pet](ctx, c, sql.Select[entitytest.Pet]().Where(entitytest.PetKind.EQ(entitytest.Dog)))
	require.NoError(t, err)
	require.Len(t, dogs, 1)
	assert.Equal(t, "Rex", dogs[0].Name)

	count, err := c.Count(ctx, sql.Select[entitytest.Pet]().Where(ql.FieldEQ("OwnerID", ann.ID)))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = client.SelectByID[entitytest.Person](ctx, c, 2)
	require.True(t, sqlmap.IsNotFound(err))
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t, client.Config{})
	require.NoError(t, c.Insert(ctx, &entitytest.Person{Name: "Ann"}, &entitytest.Person{Name: "Bo"}))

	people, err := client.SelectAll[entitytest.Person](ctx, c)
	require.NoError(t, err)
	want := []*entitytest.Person{{ID: 1, Name: "Ann"}, {ID: 2, Name: "Bo"}}
	if diff := cmp.Diff(want, people); diff != "" {
		t.Fatalf("people mismatch (-want +got):\n%s", diff)
	}
	for _, p := range people {
		again, err := client.SelectByID[entitytest.Person](ctx, c, p.ID)
		require.NoError(t, err)
		require.NotSame(t, p, again)
		if diff := cmp.Diff(p, again); diff != "" {
			t.Errorf("person %d mismatch (-first +again):\n%s", p.ID, diff)
		}
	}
}

func TestSQLiteConstraints(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t, client.Config{Debug: true})

	require.NoError(t, c.Insert(ctx, &entitytest.Person{Name: "Ann"}))
	err := c.Insert(ctx, &entitytest.Person{Name: "Ann"})
	require.True(t, sqlmap.IsConstraintError(err), "got %v", err)
	require.True(t, sqlgraph.IsUniqueConstraintError(err))

	missing := 42
	err = c.Insert(ctx, &entitytest.Pet{Name: "Rex", OwnerID: &missing})
	require.True(t, sqlgraph.IsForeignKeyConstraintError(err), "got %v", err)

	// The failed inserts were rolled back.
	n, err := c.Count(ctx, sql.Select[entitytest.Person]())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteSelfRelations(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t, client.Config{SlowThreshold: 1})

	boss := &entitytest.Employee{ID: 1, Name: "Ann"}
	worker := &entitytest.Employee{ID: 2, Name: "Bo", Manager: boss}
	require.NoError(t, c.Insert(ctx, worker, boss))

	emps, err := client.Select[entitytest.Employee](ctx, c, nil)
	require.NoError(t, err)
	byName := make(map[string]*entitytest.Employee)
	for _, e := range emps {
		byName[e.Name] = e
	}
	require.Len(t, byName, 2)
	assert.Same(t, byName["Ann"], byName["Bo"].Manager)
	assert.Nil(t, byName["Ann"].Manager)

	err = c.Insert(ctx, &entitytest.Employee{ID: 1, Name: "Cy"})
	require.True(t, sqlmap.IsConstraintError(err), "got %v", err)

	sd, ok := c.Driver().(*sql.StatsDriver)
	require.True(t, ok)
	s := sd.Stats().Snapshot()
	assert.GreaterOrEqual(t, s.Count(sql.InsertStatement), int64(2))
	assert.GreaterOrEqual(t, s.Count(sql.UpdateStatement), int64(1))
	assert.GreaterOrEqual(t, s.Count(sql.SelectStatement), int64(1))
	assert.Equal(t, int64(1), s.Failed(sql.ConstraintFailure))
	assert.Zero(t, s.Failed(sql.ExecutionFailure))
}

func TestSQLiteTx(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t, client.Config{})

	tx, err := c.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, &entitytest.Person{Name: "Ann"}))
	n, err := tx.Count(ctx, sql.Select[entitytest.Person]())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, tx.Rollback())

	n, err = c.Count(ctx, sql.Select[entitytest.Person]())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, c.InTx(ctx, func(tc *client.Client) error {
		return tc.Insert(ctx, &entitytest.Person{Name: "Bo"}, &entitytest.Person{Name: "Cy"})
	}))
	require.NoError(t, c.Clear(ctx, entitytest.Person{}, entitytest.Pet{}))
	n, err = c.Count(ctx, sql.Select[entitytest.Person]())
	require.NoError(t, err)
	assert.Zero(t, n)
}
