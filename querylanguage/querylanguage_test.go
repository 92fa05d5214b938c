package querylanguage_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmap/internal/entitytest"
	"github.com/syssam/sqlmap/querylanguage"
)

func TestPString(t *testing.T) {
	tests := []struct {
		P querylanguage.P
		S string
	}{
		{
			P: querylanguage.And(
				querylanguage.FieldEQ("name", "a8m"),
				querylanguage.FieldIn("org", "fb", "ent"),
			),
			S: `name == "a8m" && org in ["fb","ent"]`,
		},
		{
			P: querylanguage.Or(
				querylanguage.Not(querylanguage.FieldEQ("name", "mashraki")),
				querylanguage.FieldIn("org", "fb", "ent"),
			),
			S: `!(name == "mashraki") || org in ["fb","ent"]`,
		},
		{
			P: querylanguage.And(
				querylanguage.FieldGT("age", 30),
				querylanguage.FieldContains("workplace", "fb"),
			),
			S: `age > 30 && contains(workplace, "fb")`,
		},
		{
			P: querylanguage.Not(querylanguage.FieldLT("score", 32.23)),
			S: `!(score < 32.23)`,
		},
		{
			P: querylanguage.And(
				querylanguage.FieldNil("active"),
				querylanguage.FieldNotNil("name"),
			),
			S: `active == nil && name != nil`,
		},
		{
			P: querylanguage.Or(
				querylanguage.FieldNotIn("id", 1, 2, 3),
				querylanguage.FieldHasSuffix("name", "admin"),
			),
			S: `id not in [1,2,3] || has_suffix(name, "admin")`,
		},
		{
			P: querylanguage.EQ(querylanguage.F("current"), querylanguage.F("total")).Negate(),
			S: `!(current == total)`,
		},
		{
			P: querylanguage.FieldIsNullOrEmpty("name"),
			S: `is_null_or_empty(name)`,
		},
		{
			P: querylanguage.FieldEqualFold("email", "TEST@EXAMPLE.COM"),
			S: `equal_fold(email, "TEST@EXAMPLE.COM")`,
		},
		{
			P: querylanguage.EQ(querylanguage.F("Name").Via("Manager"), querylanguage.V("Ann")),
			S: `Manager.Name == "Ann"`,
		},
	}
	for i := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tests[i].S, tests[i].P.String())
		})
	}
}

func TestNaryExpressions(t *testing.T) {
	t.Parallel()
	p := querylanguage.And(
		querylanguage.FieldEQ("a", 1),
		querylanguage.FieldEQ("b", 2),
		querylanguage.FieldEQ("c", 3),
	)
	assert.Equal(t, `(a == 1 && b == 2 && c == 3)`, p.String())

	p = querylanguage.Or(
		querylanguage.FieldEQ("x", 1),
		querylanguage.FieldEQ("y", 2),
		querylanguage.FieldEQ("z", 3),
	)
	assert.Equal(t, `(x == 1 || y == 2 || z == 3)`, p.String())
	assert.Equal(t, `!((x == 1 || y == 2 || z == 3))`, p.Negate().String())
}

func TestExprString(t *testing.T) {
	tests := []struct {
		name string
		E    querylanguage.Expr
		S    string
	}{
		{
			name: "Arithmetic",
			E:    querylanguage.Mod(querylanguage.Add(querylanguage.F("a"), querylanguage.V(1)), querylanguage.V(2)),
			S:    `a + 1 % 2`,
		},
		{
			name: "Pow",
			E:    querylanguage.Pow(querylanguage.F("a"), querylanguage.V(2)),
			S:    `a ** 2`,
		},
		{
			name: "Neg",
			E:    querylanguage.Neg(querylanguage.F("a")),
			S:    `-a`,
		},
		{
			name: "CountAll",
			E:    querylanguage.CountAll(),
			S:    `count()`,
		},
		{
			name: "DistinctCount",
			E:    querylanguage.DistinctCount(querylanguage.F("Name")),
			S:    `count_distinct(Name)`,
		},
		{
			name: "New",
			E:    querylanguage.New(querylanguage.F("ID"), querylanguage.Max(querylanguage.F("Score"))),
			S:    `new(ID, max(Score))`,
		},
		{
			name: "Bytes",
			E:    querylanguage.V([]byte("test")),
			S:    `"dGVzdA=="`,
		},
		{
			name: "Time",
			E:    querylanguage.V(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			S:    `"2024-01-01T00:00:00Z"`,
		},
		{
			name: "Lazy",
			E:    querylanguage.Lazy(func() any { return 42 }),
			S:    `42`,
		},
		{
			name: "Null",
			E:    querylanguage.Null,
			S:    `nil`,
		},
		{
			name: "Subquery",
			E:    querylanguage.Select(query("SELECT 1")),
			S:    `select(SELECT 1)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.S, tt.E.String())
		})
	}
}

type query string

func (q query) Query() (string, error) { return string(q), nil }

func TestLazyValue(t *testing.T) {
	t.Parallel()
	n := 1
	v := querylanguage.Lazy(func() any { return n })
	n = 2
	assert.Equal(t, 2, v.Eval())
	assert.Equal(t, 3, querylanguage.V(3).Eval())
}

func TestOp(t *testing.T) {
	t.Parallel()
	assert.True(t, querylanguage.OpEQ.Comparison())
	assert.True(t, querylanguage.OpLTE.Comparison())
	assert.False(t, querylanguage.OpIn.Comparison())
	assert.False(t, querylanguage.OpAnd.Comparison())
	assert.Equal(t, "<invalid>", querylanguage.Op(100).String())
	assert.True(t, querylanguage.FuncSum.Aggregate())
	assert.False(t, querylanguage.FuncContains.Aggregate())
}

func TestVia(t *testing.T) {
	t.Parallel()
	f := querylanguage.F("Name")
	m := f.Via("Manager")
	mm := m.Via("Mentor")
	assert.Empty(t, f.Path)
	assert.Equal(t, []string{"Manager"}, m.Path)
	assert.Equal(t, []string{"Manager", "Mentor"}, mm.Path)
	assert.Equal(t, "Manager.Mentor.Name", mm.String())
}

func TestTypedFields(t *testing.T) {
	var (
		name  = querylanguage.StringField[entitytest.Person]("Name")
		id    = querylanguage.IntField[entitytest.Pet]("ID")
		score = querylanguage.FloatField[entitytest.Document]("Score")
		draft = querylanguage.BoolField[entitytest.Document]("Draft")
		at    = querylanguage.TimeField[entitytest.Event]("At")
		kind  = querylanguage.EnumField[entitytest.Pet, entitytest.Kind]("Kind")
		docID = querylanguage.UUIDField[entitytest.Document]("ID")
		ts    = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		u     = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	)
	tests := []struct {
		name string
		P    querylanguage.P
		S    string
	}{
		{"StringEQ", name.EQ("a8m"), `Name == "a8m"`},
		{"StringIn", name.In("a", "b"), `Name in ["a","b"]`},
		{"StringHasPrefix", name.HasPrefix("Foo"), `has_prefix(Name, "Foo")`},
		{"StringIsNull", name.IsNull(), `Name == nil`},
		{"StringNullOrEmpty", name.IsNullOrEmpty(), `is_null_or_empty(Name)`},
		{"IntGT", id.GT(1), `ID > 1`},
		{"IntNotIn", id.NotIn(1, 2), `ID not in [1,2]`},
		{"FloatLTE", score.LTE(0.5), `Score <= 0.5`},
		{"BoolEQ", draft.EQ(true), `Draft == true`},
		{"TimeGTE", at.GTE(ts), `At >= "2024-01-01T00:00:00Z"`},
		{"EnumEQ", kind.EQ(entitytest.Dog), `Kind == "Dog"`},
		{"UUIDEQ", docID.EQ(u), `ID == "00000000-0000-0000-0000-000000000001"`},
		{"And", querylanguage.And(name.EQ("a"), id.LT(3)), `Name == "a" && ID < 3`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.S, tt.P.String())
		})
	}
}

func TestTypedFieldEntity(t *testing.T) {
	t.Parallel()
	p := querylanguage.StringField[entitytest.Person]("Name").EQ("a8m")
	b, ok := p.(*querylanguage.BinaryExpr)
	require.True(t, ok)
	f, ok := b.X.(*querylanguage.Field)
	require.True(t, ok)
	assert.Equal(t, "Person", f.Entity.Name())
	assert.Equal(t, "Name", f.Name)
	assert.Nil(t, querylanguage.F("Name").Entity)
}
