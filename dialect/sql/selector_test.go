package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	"github.com/syssam/sqlmap/internal/entitytest"
	ql "github.com/syssam/sqlmap/querylanguage"
)

func TestSelector(t *testing.T) {
	var (
		sqlite   = dialect.MustGet(dialect.SQLite)
		mysql    = dialect.MustGet(dialect.MySQL)
		postgres = dialect.MustGet(dialect.Postgres)
		mssql    = dialect.MustGet(dialect.MSSQL)
		oracle   = dialect.MustGet(dialect.Oracle)
		access   = dialect.MustGet(dialect.Access)
		fetch    = dialect.MustGet(dialect.MSSQL, dialect.WithPaging(dialect.PagingFetch))
	)
	tests := []struct {
		name  string
		input *Selector
		want  string
	}{
		{
			name:  "plain",
			input: Select[entitytest.Person]().Dialect(sqlite),
			want:  `SELECT "Id", "Name" FROM "Person"`,
		},
		{
			name:  "where",
			input: Select[entitytest.Person]().Dialect(sqlite).Where(ql.FieldNil("Name")),
			want:  `SELECT "Id", "Name" FROM "Person" WHERE "Person"."Name" IS NULL`,
		},
		{
			name: "where_and",
			input: Select[entitytest.Person]().Dialect(sqlite).
				Where(ql.FieldGT("ID", 1)).
				Where(ql.FieldHasPrefix("Name", "A")),
			want: `SELECT "Id", "Name" FROM "Person" WHERE "Person"."Id" > 1 AND "Person"."Name" LIKE 'A%'`,
		},
		{
			name: "where_or",
			input: Select[entitytest.Person]().Dialect(sqlite).
				Where(ql.FieldEQ("Name", "Ann")).
				Or(ql.FieldEQ("Name", "Bo")),
			want: `SELECT "Id", "Name" FROM "Person" WHERE "Person"."Name" = 'Ann' OR "Person"."Name" = 'Bo'`,
		},
		{
			name:  "limit",
			input: Select[entitytest.Person]().Dialect(mysql).Page(10, 5),
			want:  "SELECT `Id`, `Name` FROM `Person` LIMIT 10,5",
		},
		{
			name:  "limit_first_page",
			input: Select[entitytest.Person]().Dialect(mysql).Page(0, 5),
			want:  "SELECT `Id`, `Name` FROM `Person` LIMIT 5",
		},
		{
			name:  "no_paging",
			input: Select[entitytest.Person]().Dialect(mysql).Page(10, 0),
			want:  "SELECT `Id`, `Name` FROM `Person`",
		},
		{
			name:  "offset_limit",
			input: Select[entitytest.Person]().Dialect(postgres).Page(10, 5),
			want:  `SELECT "Id", "Name" FROM "Person" LIMIT 5 OFFSET 10`,
		},
		{
			name:  "top",
			input: Select[entitytest.Person]().Dialect(mssql).Page(0, 5),
			want:  `SELECT TOP 5 [Id], [Name] FROM [Person]`,
		},
		{
			name:  "top_distinct",
			input: Select[entitytest.Person]().Dialect(mssql).Columns(ql.F("Name")).Distinct().Page(0, 5),
			want:  `SELECT DISTINCT TOP 5 [Name] FROM [Person]`,
		},
		{
			name:  "top_offset",
			input: Select[entitytest.Person]().Dialect(mssql).Page(10, 5),
			want: `SELECT [Person.Id], [Person.Name] FROM (SELECT TOP 5 * FROM (` +
				`SELECT TOP 15 [Id] AS [Person.Id], [Name] AS [Person.Name] FROM [Person] ORDER BY [Person].[Id]` +
				`) AS q1 ORDER BY [Person.Id] DESC) AS q2 ORDER BY [Person.Id]`,
		},
		{
			name:  "top_offset_descending",
			input: Select[entitytest.Person]().Dialect(mssql).Page(10, 5).Descending(),
			want: `SELECT [Person.Id], [Person.Name] FROM (SELECT TOP 5 * FROM (` +
				`SELECT TOP 15 [Id] AS [Person.Id], [Name] AS [Person.Name] FROM [Person] ORDER BY [Person].[Id] DESC` +
				`) AS q1 ORDER BY [Person.Id]) AS q2 ORDER BY [Person.Id] DESC`,
		},
		{
			name:  "top_offset_order",
			input: Select[entitytest.Person]().Dialect(mssql).OrderBy(ql.F("Name")).Page(10, 5),
			want: `SELECT [Person.Id], [Person.Name] FROM (SELECT TOP 5 * FROM (` +
				`SELECT TOP 15 [Id] AS [Person.Id], [Name] AS [Person.Name] FROM [Person] ORDER BY [Person].[Name]` +
				`) AS q1 ORDER BY [Person.Name] DESC) AS q2 ORDER BY [Person.Name]`,
		},
		{
			name:  "fetch",
			input: Select[entitytest.Person]().Dialect(fetch).Page(10, 5),
			want:  `SELECT [Id], [Name] FROM [Person] ORDER BY [Person].[Id] OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY`,
		},
		{
			name:  "rownum",
			input: Select[entitytest.Person]().Dialect(oracle).Page(10, 5),
			want: `SELECT "Person.Id", "Person.Name" FROM (SELECT q.*, ROWNUM rn FROM (` +
				`SELECT "Id" AS "Person.Id", "Name" AS "Person.Name" FROM "Person"` +
				`) q WHERE ROWNUM <= 15) WHERE rn > 10`,
		},
		{
			name:  "rownum_ordered",
			input: Select[entitytest.Person]().Dialect(oracle).OrderByDesc(ql.F("Name")).Page(0, 3),
			want: `SELECT "Person.Id", "Person.Name" FROM (SELECT q.*, ROWNUM rn FROM (` +
				`SELECT "Id" AS "Person.Id", "Name" AS "Person.Name" FROM "Person" ORDER BY "Person"."Name" DESC` +
				`) q WHERE ROWNUM <= 3) WHERE rn > 0`,
		},
		{
			name:  "oracle_labels",
			input: Select[entitytest.Person]().Dialect(oracle),
			want:  `SELECT "Id" AS "Person.Id", "Name" AS "Person.Name" FROM "Person"`,
		},
		{
			name:  "oracle_computed",
			input: Select[entitytest.Person]().Dialect(oracle).Columns(ql.CountAll()),
			want:  `SELECT COUNT(1) AS "c0" FROM "Person"`,
		},
		{
			name:  "alias",
			input: Select[entitytest.Document]().Dialect(sqlite).Where(ql.FieldEQ("Title", "x")),
			want: `SELECT "Id", "Title", "Body", "Keywords", "Draft", "Score", "Edited", "Reading", "Reviewed" ` +
				`FROM "Documents" "doc" WHERE "doc"."Title" = 'x'`,
		},
		{
			name:  "join",
			input: Select[entitytest.Pet]().Dialect(sqlite).Join(entitytest.Person{}),
			want: `SELECT "Pet"."Id", "Pet"."Name", "Pet"."Kind", "Pet"."OwnerId", "Person"."Id", "Person"."Name" ` +
				`FROM "Pet" LEFT JOIN "Person" ON "Pet"."OwnerId" = "Person"."Id"`,
		},
		{
			name: "join_where",
			input: Select[entitytest.Pet]().Dialect(sqlite).
				Join(entitytest.Person{}).
				Columns(ql.F("Name"), ql.FieldOf[entitytest.Person]("Name")).
				Where(ql.EQ(ql.F("Name").Via("Owner"), ql.V("Ann"))),
			want: `SELECT "Pet"."Name", "Person"."Name" FROM "Pet" LEFT JOIN "Person" ON "Pet"."OwnerId" = "Person"."Id" ` +
				`WHERE "Person"."Name" = 'Ann'`,
		},
		{
			name: "access_parens",
			input: Select[entitytest.Pet]().Dialect(access).
				Join(entitytest.Tag{}).
				Columns(ql.F("Name"), ql.FieldOf[entitytest.Tag]("Label")),
			want: `SELECT [Pet].[Name], [Tag].[Label] FROM ([Pet] LEFT JOIN [PetTag] ON [Pet].[Id] = [PetTag].[PetId]) ` +
				`LEFT JOIN [Tag] ON [PetTag].[TagId] = [Tag].[Id]`,
		},
		{
			name: "self_join",
			input: Select[entitytest.Employee]().Dialect(sqlite).Join(entitytest.Employee{}).
				Columns(ql.F("Name"), ql.F("Name").Via("Manager")).
				Where(ql.EQ(ql.F("Name").Via("Mentor"), ql.V("Bo"))),
			want: `SELECT "Employee"."Name", "Employee1"."Name" FROM "Employee" ` +
				`LEFT JOIN "Employee" "Employee1" ON "Employee"."ManagerId" = "Employee1"."Id" ` +
				`LEFT JOIN "Employee" "Employee2" ON "Employee"."MentorId" = "Employee2"."Id" ` +
				`WHERE "Employee2"."Name" = 'Bo'`,
		},
		{
			name:  "self_root_only",
			input: Select[entitytest.Employee]().Dialect(sqlite),
			want:  `SELECT "Id", "Name", "ManagerId", "MentorId" FROM "Employee"`,
		},
		{
			name:  "shared_table",
			input: Select[entitytest.Hound]().Dialect(sqlite),
			want:  `SELECT "Id" AS "Animal.Id", "Name" AS "Animal.Name" FROM "Animal"`,
		},
		{
			name:  "count",
			input: Select[entitytest.Person]().Dialect(sqlite).Count().Page(10, 5),
			want:  `SELECT COUNT(1) FROM "Person"`,
		},
		{
			name:  "count_join",
			input: Select[entitytest.Person]().Dialect(sqlite).Join(entitytest.Pet{}).Count(),
			want:  `SELECT COUNT(DISTINCT "Person"."Id") FROM "Person" LEFT JOIN "Pet" ON "Person"."Id" = "Pet"."OwnerId"`,
		},
		{
			name:  "distinct",
			input: Select[entitytest.Person]().Dialect(sqlite).Columns(ql.F("Name")).Distinct(),
			want:  `SELECT DISTINCT "Name" FROM "Person"`,
		},
		{
			name: "group_having",
			input: Select[entitytest.Pet]().Dialect(sqlite).
				Columns(ql.New(ql.F("Kind"), ql.CountAll())).
				GroupBy(ql.F("Kind")).
				Having(ql.GT(ql.CountAll(), ql.V(1))).
				OrderBy(ql.F("Kind")),
			want: `SELECT "Kind", COUNT(1) FROM "Pet" GROUP BY "Pet"."Kind" HAVING COUNT(1) > 1 ORDER BY "Pet"."Kind"`,
		},
		{
			name:  "order_desc",
			input: Select[entitytest.Person]().Dialect(sqlite).OrderByDesc(ql.F("Name")).OrderBy(ql.F("ID")),
			want:  `SELECT "Id", "Name" FROM "Person" ORDER BY "Person"."Name" DESC, "Person"."Id"`,
		},
		{
			name:  "descending",
			input: Select[entitytest.Person]().Dialect(sqlite).Descending(),
			want:  `SELECT "Id", "Name" FROM "Person" ORDER BY "Person"."Id" DESC`,
		},
		{
			name:  "exclude",
			input: Select[entitytest.Person]().Dialect(sqlite).Exclude(ql.F("Name"), ql.F("ID")),
			want:  `SELECT "Id" FROM "Person"`,
		},
		{
			name:  "exclude_relation",
			input: Select[entitytest.Pet]().Dialect(sqlite).Exclude(ql.F("Owner"), ql.F("Kind")),
			want:  `SELECT "Id", "Name", "OwnerId" FROM "Pet"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := tt.input.Query()
			require.NoError(t, err)
			require.Equal(t, tt.want, query)
		})
	}
}

func TestSelectorErrors(t *testing.T) {
	mssql := dialect.MustGet(dialect.MSSQL)
	tests := []struct {
		name  string
		input *Selector
		check func(error) bool
	}{
		{
			name:  "top_without_key",
			input: Select[entitytest.Event]().Dialect(mssql).Page(10, 5),
			check: sqlmap.IsSchemaError,
		},
		{
			name:  "fetch_without_key",
			input: Select[entitytest.Event]().Dialect(dialect.MustGet(dialect.MSSQL, dialect.WithPaging(dialect.PagingFetch))).Page(0, 5),
			check: sqlmap.IsSchemaError,
		},
		{
			name:  "top_key_not_selected",
			input: Select[entitytest.Person]().Dialect(mssql).Columns(ql.F("Name")).OrderBy(ql.F("ID")).Page(10, 5),
			check: sqlmap.IsSchemaError,
		},
		{
			name:  "unknown_field",
			input: Select[entitytest.Person]().Dialect(mssql).Where(ql.FieldEQ("Age", 3)),
			check: sqlmap.IsSchemaError,
		},
		{
			name:  "exclude_expression",
			input: Select[entitytest.Person]().Dialect(mssql).Exclude(ql.V(1)),
			check: sqlmap.IsUnsupportedExpression,
		},
		{
			name:  "not_an_entity",
			input: SelectFrom(42).Dialect(mssql),
			check: sqlmap.IsSchemaError,
		},
		{
			name:  "unrelated_join",
			input: Select[entitytest.Person]().Dialect(mssql).Join(entitytest.Event{}),
			check: sqlmap.IsSchemaError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.input.Query()
			require.Error(t, err)
			require.True(t, tt.check(err), "got %v", err)
		})
	}

	t.Run("no_dialect", func(t *testing.T) {
		_, err := Select[entitytest.Person]().Query()
		require.ErrorIs(t, err, errNoDialect)
	})

	t.Run("descending_without_key", func(t *testing.T) {
		q, err := Select[entitytest.Event]().Dialect(dialect.MustGet(dialect.SQLite)).Descending().Query()
		require.NoError(t, err)
		require.Equal(t, `SELECT "Name", "At" FROM "Event"`, q)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Select[entitytest.Person]().Dialect(dialect.MustGet(dialect.SQLite)).QueryContext(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSelectorCache(t *testing.T) {
	s := Select[entitytest.Person]().Dialect(dialect.MustGet(dialect.SQLite))
	q1, err := s.Query()
	require.NoError(t, err)
	q2, err := s.Query()
	require.NoError(t, err)
	assert.Equal(t, q1, q2)
	assert.Equal(t, 1, s.renders)

	s.Where(ql.FieldEQ("Name", "Ann"))
	q3, err := s.Query()
	require.NoError(t, err)
	assert.NotEqual(t, q1, q3)
	assert.Equal(t, 2, s.renders)

	c := s.Clone().Page(0, 1)
	assert.NotEqual(t, q3, c.String())
	assert.Equal(t, q3, s.String())
	assert.Equal(t, 2, s.renders)
}

func TestSelectorLazyValue(t *testing.T) {
	name := "Ann"
	s := Select[entitytest.Person]().
		Dialect(dialect.MustGet(dialect.SQLite)).
		Where(ql.EQ(ql.F("Name"), ql.Lazy(func() any { return name })))
	assert.Equal(t, `SELECT "Id", "Name" FROM "Person" WHERE "Person"."Name" = 'Ann'`, s.String())
	name = "Bo"
	// The cached text is kept until the builder changes.
	assert.Equal(t, `SELECT "Id", "Name" FROM "Person" WHERE "Person"."Name" = 'Ann'`, s.String())
	assert.Equal(t, `SELECT "Id", "Name" FROM "Person" WHERE "Person"."Name" = 'Bo'`, s.Clone().String())
}

func TestSelectorPlan(t *testing.T) {
	s := Select[entitytest.Pet]().
		Dialect(dialect.MustGet(dialect.SQLite)).
		Join(entitytest.Person{}).
		Exclude(ql.FieldOf[entitytest.Person]("Pets"))
	p, err := s.Plan(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Columns, 6)
	assert.Equal(t, "Pet.Id", p.Columns[0].Label)
	assert.Equal(t, "Person.Name", p.Columns[5].Label)

	root := p.Graph.Root
	assert.Equal(t, 0, p.Ordinal(root, root.Desc.PrimaryKey))
	owner, ok := p.Graph.Follow([]string{"Owner"})
	require.True(t, ok)
	assert.Equal(t, 4, p.Ordinal(owner, owner.Desc.PrimaryKey))

	pets, ok := owner.Desc.Field("Pets")
	require.True(t, ok)
	assert.True(t, p.Excluded[pets])

	name, ok := root.Desc.Field("Name")
	require.True(t, ok)
	assert.Equal(t, -1, p.Ordinal(owner, name))
}
