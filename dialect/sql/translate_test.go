package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	"github.com/syssam/sqlmap/internal/entitytest"
	ql "github.com/syssam/sqlmap/querylanguage"
)

func translate(t *testing.T, d dialect.Dialect, e ql.Expr, types ...any) (string, error) {
	t.Helper()
	if len(types) == 0 {
		types = []any{entitytest.Person{}}
	}
	g, err := DeriveJoins(d, types...)
	require.NoError(t, err)
	return Translate(context.Background(), d, g, e, true)
}

func TestTranslate(t *testing.T) {
	var (
		sqlite = dialect.MustGet(dialect.SQLite)
		oracle = dialect.MustGet(dialect.Oracle)
		access = dialect.MustGet(dialect.Access)
		mysql  = dialect.MustGet(dialect.MySQL)
	)
	tests := []struct {
		name    string
		dialect dialect.Dialect
		expr    ql.Expr
		want    string
	}{
		{"is_null", sqlite, ql.FieldNil("Name"), `"Person"."Name" IS NULL`},
		{"is_not_null", sqlite, ql.FieldNotNil("Name"), `"Person"."Name" IS NOT NULL`},
		{"eq_nil_value", sqlite, ql.EQ(ql.F("Name"), ql.V(nil)), `"Person"."Name" IS NULL`},
		{"null_on_left", sqlite, ql.EQ(ql.Null, ql.F("Name")), `"Person"."Name" IS NULL`},
		{"eq", sqlite, ql.FieldEQ("Name", "Ann"), `"Person"."Name" = 'Ann'`},
		{"neq", mysql, ql.FieldNEQ("Name", "Ann"), "`Person`.`Name` <> 'Ann'"},
		{"gte", sqlite, ql.FieldGTE("ID", 3), `"Person"."Id" >= 3`},
		{"empty_string", sqlite, ql.FieldEQ("Name", ""), `"Person"."Name" = ''`},
		{"empty_string_oracle", oracle, ql.FieldEQ("Name", ""), `"Person"."Name" IS NULL`},
		{"empty_string_neq_oracle", oracle, ql.FieldNEQ("Name", ""), `"Person"."Name" IS NOT NULL`},
		{"has_prefix", sqlite, ql.FieldHasPrefix("Name", "Foo"), `"Person"."Name" LIKE 'Foo%'`},
		{"has_suffix", sqlite, ql.FieldHasSuffix("Name", "Foo"), `"Person"."Name" LIKE '%Foo'`},
		{"contains", sqlite, ql.FieldContains("Name", "Foo"), `"Person"."Name" LIKE '%Foo%'`},
		{"contains_quote", mysql, ql.FieldContains("Name", "O'Neil"), "`Person`.`Name` LIKE '%O''Neil%'"},
		{"equal_fold", sqlite, ql.FieldEqualFold("Name", "ann"), `"Person"."Name" = 'ann'`},
		{"equal_fold_access", access, ql.FieldEqualFold("Name", "ann"), `[Person].[Name] LIKE 'ann'`},
		{"eq_access", access, ql.FieldEQ("Name", "ann"), `[Person].[Name] = 'ann'`},
		{"is_null_or_empty", sqlite, ql.FieldIsNullOrEmpty("Name"), `("Person"."Name" IS NULL OR "Person"."Name" = '')`},
		{"is_null_or_empty_oracle", oracle, ql.FieldIsNullOrEmpty("Name"), `"Person"."Name" IS NULL`},
		{"in", sqlite, ql.FieldIn("ID", 1, 2, 3), `"Person"."Id" IN (1, 2, 3)`},
		{"in_value_slice", sqlite, ql.In(ql.F("ID"), ql.V([]int{4, 5})), `"Person"."Id" IN (4, 5)`},
		{"not_in", sqlite, ql.FieldNotIn("ID", 1, 2), `"Person"."Id" NOT IN (1, 2)`},
		{"not_of_in", sqlite, ql.Not(ql.FieldIn("ID", 1, 2)), `"Person"."Id" NOT IN (1, 2)`},
		{"in_empty", sqlite, ql.In(ql.F("ID"), ql.List[int]()), `1 = 0`},
		{"not_in_empty", sqlite, ql.NotIn(ql.F("ID"), ql.List[int]()), `1 = 1`},
		{"not", sqlite, ql.Not(ql.FieldEQ("Name", "Ann")), `NOT ("Person"."Name" = 'Ann')`},
		{
			"and_or",
			sqlite,
			ql.Or(ql.And(ql.FieldEQ("Name", "Ann"), ql.FieldGT("ID", 1)), ql.FieldNil("Name")),
			`("Person"."Name" = 'Ann' AND "Person"."Id" > 1) OR "Person"."Name" IS NULL`,
		},
		{
			"nary_and",
			sqlite,
			ql.And(ql.FieldGT("ID", 1), ql.FieldLT("ID", 9), ql.FieldNotNil("Name")),
			`"Person"."Id" > 1 AND "Person"."Id" < 9 AND "Person"."Name" IS NOT NULL`,
		},
		{"mod", sqlite, ql.EQ(ql.Mod(ql.F("ID"), ql.V(2)), ql.V(0)), `MOD("Person"."Id", 2) = 0`},
		{"power", sqlite, ql.GT(ql.Pow(ql.F("ID"), ql.V(2)), ql.V(10)), `POWER("Person"."Id", 2) > 10`},
		{"nested_arith", sqlite, ql.LT(ql.Mul(ql.Add(ql.F("ID"), ql.V(1)), ql.V(2)), ql.V(8)), `("Person"."Id" + 1) * 2 < 8`},
		{"shift", sqlite, ql.EQ(ql.Shl(ql.F("ID"), ql.V(1)), ql.V(4)), `"Person"."Id" << 1 = 4`},
		{"neg", sqlite, ql.EQ(ql.Neg(ql.F("ID")), ql.V(-1)), `-"Person"."Id" = -1`},
		{"count_all", sqlite, ql.CountAll(), `COUNT(1)`},
		{"count_const", sqlite, ql.Count(ql.V(1)), `COUNT(1)`},
		{"count_field", sqlite, ql.Count(ql.F("Name")), `COUNT("Person"."Name")`},
		{"distinct_count", sqlite, ql.DistinctCount(ql.F("Name")), `COUNT(DISTINCT "Person"."Name")`},
		{"max", sqlite, ql.Max(ql.F("ID")), `MAX("Person"."Id")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := translate(t, tt.dialect, tt.expr)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateUnqualified(t *testing.T) {
	d := dialect.MustGet(dialect.SQLite)
	g, err := DeriveJoins(d, entitytest.Person{})
	require.NoError(t, err)
	got, err := Translate(context.Background(), d, g, ql.FieldNil("Name"), false)
	require.NoError(t, err)
	require.Equal(t, `"Name" IS NULL`, got)

	// COUNT(DISTINCT) always qualifies its column.
	got, err = Translate(context.Background(), d, g, ql.DistinctCount(ql.F("Name")), false)
	require.NoError(t, err)
	require.Equal(t, `COUNT(DISTINCT "Person"."Name")`, got)
}

func TestTranslateEnum(t *testing.T) {
	tests := []struct {
		dialect string
		expr    ql.Expr
		want    string
	}{
		{dialect.SQLite, ql.FieldEQ("Kind", "Dog"), `"Pet"."Kind" = 1`},
		{dialect.SQLite, ql.FieldEQ("Kind", entitytest.Dog), `"Pet"."Kind" = 1`},
		{dialect.SQLite, ql.FieldIn("Kind", "Cat", "Dog"), `"Pet"."Kind" IN (0, 1)`},
		{dialect.Access, ql.FieldEQ("Kind", "Dog"), `[Pet].[Kind] = 'Dog'`},
		{dialect.Access, ql.FieldEQ("Kind", entitytest.Cat), `[Pet].[Kind] = 'Cat'`},
		{dialect.Access, ql.EQ(ql.V(entitytest.Dog), ql.F("Kind")), `'Dog' = [Pet].[Kind]`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.want, func(t *testing.T) {
			got, err := translate(t, dialect.MustGet(tt.dialect), tt.expr, entitytest.Pet{})
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := translate(t, dialect.MustGet(dialect.SQLite), ql.FieldEQ("Kind", "Bird"), entitytest.Pet{})
	require.True(t, sqlmap.IsUnsupportedExpression(err))
}

func TestTranslateTypedFields(t *testing.T) {
	d := dialect.MustGet(dialect.MySQL)
	got, err := translate(t, d, ql.And(
		entitytest.PetName.HasPrefix("Re"),
		entitytest.PetKind.EQ(entitytest.Dog),
	), entitytest.Pet{})
	require.NoError(t, err)
	require.Equal(t, "`Pet`.`Name` LIKE 'Re%' AND `Pet`.`Kind` = 1", got)
}

func TestTranslateRelationPath(t *testing.T) {
	d := dialect.MustGet(dialect.SQLite)
	got, err := translate(t, d, ql.EQ(ql.F("Name").Via("Owner"), ql.V("Ann")), entitytest.Pet{}, entitytest.Person{})
	require.NoError(t, err)
	require.Equal(t, `"Person"."Name" = 'Ann'`, got)

	got, err = translate(t, d, ql.EQ(ql.FieldOf[entitytest.Person]("Name"), ql.V("Ann")), entitytest.Pet{}, entitytest.Person{})
	require.NoError(t, err)
	require.Equal(t, `"Person"."Name" = 'Ann'`, got)

	// The owner key is addressed by the relation name.
	got, err = translate(t, d, ql.FieldNil("Owner"), entitytest.Pet{})
	require.NoError(t, err)
	require.Equal(t, `"Pet"."OwnerId" IS NULL`, got)

	_, err = translate(t, d, ql.EQ(ql.F("Name").Via("Tags"), ql.V("x")), entitytest.Pet{}, entitytest.Person{})
	require.True(t, sqlmap.IsSchemaError(err))
}

func TestTranslateSubquery(t *testing.T) {
	d := dialect.MustGet(dialect.SQLite)
	pets := Select[entitytest.Pet]().Columns(ql.F("OwnerID")).Where(ql.FieldEQ("Name", "Rex"))
	got, err := translate(t, d, ql.Exists(pets))
	require.NoError(t, err)
	require.Equal(t, `EXISTS (SELECT "OwnerId" FROM "Pet" WHERE "Pet"."Name" = 'Rex')`, got)

	got, err = translate(t, d, ql.Not(ql.Exists(pets)))
	require.NoError(t, err)
	require.Equal(t, `NOT EXISTS (SELECT "OwnerId" FROM "Pet" WHERE "Pet"."Name" = 'Rex')`, got)

	got, err = translate(t, d, ql.In(ql.F("ID"), ql.Select(pets)))
	require.NoError(t, err)
	require.Equal(t, `"Person"."Id" IN (SELECT "OwnerId" FROM "Pet" WHERE "Pet"."Name" = 'Rex')`, got)
}

func TestTranslateErrors(t *testing.T) {
	d := dialect.MustGet(dialect.SQLite)
	tests := []struct {
		name   string
		expr   ql.Expr
		schema bool
	}{
		{"unknown_field", ql.FieldEQ("Age", 1), true},
		{"collection", ql.FieldEQ("Pets", 1), false},
		{"unknown_func", &ql.CallExpr{Func: "soundex", Args: []ql.Expr{ql.F("Name")}}, false},
		{"order_null", ql.GT(ql.F("Name"), ql.Null), false},
		{"in_scalar", ql.In(ql.F("ID"), ql.V(1)), false},
		{"like_field", &ql.CallExpr{Func: ql.FuncHasPrefix, Args: []ql.Expr{ql.F("Name"), ql.F("Name")}}, false},
		{"exists_value", &ql.CallExpr{Func: ql.FuncExists, Args: []ql.Expr{ql.V(1)}}, false},
		{"nil", nil, false},
		{"unknown_entity", ql.EQ(ql.FieldOf[entitytest.Tag]("Label"), ql.V("x")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := translate(t, d, tt.expr)
			require.Error(t, err)
			if tt.schema {
				require.True(t, sqlmap.IsSchemaError(err), "got %v", err)
			} else {
				require.True(t, sqlmap.IsUnsupportedExpression(err), "got %v", err)
			}
		})
	}
}

func TestTranslateCanceled(t *testing.T) {
	d := dialect.MustGet(dialect.SQLite)
	g, err := DeriveJoins(d, entitytest.Person{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Translate(ctx, d, g, ql.FieldIn("ID", 1, 2, 3), true)
	require.ErrorIs(t, err, context.Canceled)
	_, err = Translate(ctx, d, g, ql.And(ql.FieldGT("ID", 1), ql.FieldLT("ID", 3)), true)
	require.ErrorIs(t, err, context.Canceled)
}
