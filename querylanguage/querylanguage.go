// Package querylanguage provides the expression tree consumed by the SQL
// translator. Expressions are built with the constructors of this package or
// with the typed fields declared per entity:
//
//	var Name = querylanguage.StringField[Person]("Name")
//
//	p := querylanguage.And(
//	    Name.HasPrefix("Foo"),
//	    querylanguage.FieldIn("ID", 1, 2, 3),
//	)
//	p.String() // has_prefix(Name, "Foo") && ID in [1,2,3]
package querylanguage

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Expr represents a query expression.
type Expr interface {
	fmt.Stringer
	expr()
}

// P represents an expression that returns a boolean value.
type P interface {
	Expr
	Negate() P
}

// An Op represents an operator.
type Op int

// Operators.
const (
	OpAnd   Op = iota // logical and.
	OpOr              // logical or.
	OpNot             // logical negation.
	OpEQ              // =
	OpNEQ             // <>
	OpGT              // >
	OpGTE             // >=
	OpLT              // <
	OpLTE             // <=
	OpIn              // within
	OpNotIn           // without
	OpAdd             // +
	OpSub             // -
	OpMul             // *
	OpDiv             // /
	OpMod             // modulo
	OpPow             // power
	OpShl             // <<
	OpShr             // >>
	OpNeg             // arithmetic negation.
)

var ops = [...]string{
	OpAnd:   "&&",
	OpOr:    "||",
	OpNot:   "!",
	OpEQ:    "==",
	OpNEQ:   "!=",
	OpGT:    ">",
	OpGTE:   ">=",
	OpLT:    "<",
	OpLTE:   "<=",
	OpIn:    "in",
	OpNotIn: "not in",
	OpAdd:   "+",
	OpSub:   "-",
	OpMul:   "*",
	OpDiv:   "/",
	OpMod:   "%",
	OpPow:   "**",
	OpShl:   "<<",
	OpShr:   ">>",
	OpNeg:   "-",
}

// String returns the text representation of an operator.
func (o Op) String() string {
	if o >= 0 && int(o) < len(ops) {
		return ops[o]
	}
	return "<invalid>"
}

// Comparison reports whether the operator is a comparison.
func (o Op) Comparison() bool {
	return o >= OpEQ && o <= OpLTE
}

// A Func represents a function expression.
type Func string

// Functions.
const (
	FuncCount         Func = "count"
	FuncDistinctCount Func = "count_distinct"
	FuncSum           Func = "sum"
	FuncMin           Func = "min"
	FuncMax           Func = "max"
	FuncAvg           Func = "avg"
	FuncContains      Func = "contains"
	FuncHasPrefix     Func = "has_prefix"
	FuncHasSuffix     Func = "has_suffix"
	FuncEqualFold     Func = "equal_fold"
	FuncIsNullOrEmpty Func = "is_null_or_empty"
	FuncExists        Func = "exists"
)

// Aggregate reports whether the function aggregates rows.
func (f Func) Aggregate() bool {
	switch f {
	case FuncCount, FuncDistinctCount, FuncSum, FuncMin, FuncMax, FuncAvg:
		return true
	}
	return false
}

type (
	// Field represents a column of an entity. Entity may be nil, in which
	// case the column belongs to the root entity of the statement. Path
	// names the chain of relations leading from the root to the entity
	// occurrence the field is read from.
	Field struct {
		Entity reflect.Type
		Name   string
		Path   []string
	}

	// Value represents a literal captured at build time. A Value holding a
	// func() any is evaluated when the expression is translated.
	Value struct {
		V any
	}

	// NullExpr is the SQL NULL.
	NullExpr struct{}

	// ListExpr represents a list of expressions.
	ListExpr struct {
		X []Expr
	}

	// BinaryExpr represents a binary expression.
	BinaryExpr struct {
		Op   Op
		X, Y Expr
	}

	// UnaryExpr represents a unary expression.
	UnaryExpr struct {
		Op Op
		X  Expr
	}

	// NaryExpr represents an n-ary expression.
	NaryExpr struct {
		Op Op
		Xs []Expr
	}

	// CallExpr represents a function call with its arguments.
	CallExpr struct {
		Func Func
		Args []Expr
	}

	// NewExpr projects several expressions into one result row.
	NewExpr struct {
		Xs []Expr
	}

	// SubqueryExpr embeds a nested query.
	SubqueryExpr struct {
		Q Subquery
	}
)

// Subquery is implemented by statement builders that can be nested in an
// expression.
type Subquery interface {
	Query() (string, error)
}

// Null is the shared NULL expression.
var Null = &NullExpr{}

// F returns a field of the root entity.
func F(name string) *Field {
	return &Field{Name: name}
}

// FieldOf returns a field of the entity type T.
func FieldOf[T any](name string) *Field {
	return &Field{Entity: reflect.TypeOf((*T)(nil)).Elem(), Name: name}
}

// Via returns a copy of the field read through the given relations of the
// root entity, e.g. F("Name").Via("Manager") for the name of the manager.
func (f *Field) Via(relations ...string) *Field {
	c := *f
	c.Path = append(append([]string(nil), f.Path...), relations...)
	return &c
}

// V returns a literal value.
func V(v any) *Value {
	return &Value{V: v}
}

// Lazy returns a value evaluated at translation time.
func Lazy(fn func() any) *Value {
	return &Value{V: fn}
}

// Eval returns the captured value, calling it when lazy.
func (v *Value) Eval() any {
	if fn, ok := v.V.(func() any); ok {
		return fn()
	}
	return v.V
}

// List returns a list of literal values.
func List[T any](vs ...T) *ListExpr {
	l := &ListExpr{X: make([]Expr, len(vs))}
	for i := range vs {
		l.X[i] = V(vs[i])
	}
	return l
}

// And returns a composed predicate that represents the logical AND predicate.
func And(x, y P, z ...P) P {
	if len(z) == 0 {
		return &BinaryExpr{Op: OpAnd, X: x, Y: y}
	}
	return &NaryExpr{Op: OpAnd, Xs: append([]Expr{x, y}, p2expr(z)...)}
}

// Or returns a composed predicate that represents the logical OR predicate.
func Or(x, y P, z ...P) P {
	if len(z) == 0 {
		return &BinaryExpr{Op: OpOr, X: x, Y: y}
	}
	return &NaryExpr{Op: OpOr, Xs: append([]Expr{x, y}, p2expr(z)...)}
}

// Not returns a predicate that represents the logical negation of the given predicate.
func Not(x P) P {
	return &UnaryExpr{Op: OpNot, X: x}
}

// EQ returns a predicate to check if the expressions are equal.
func EQ(x, y Expr) P {
	return &BinaryExpr{Op: OpEQ, X: x, Y: y}
}

// NEQ returns a predicate to check if the expressions are not equal.
func NEQ(x, y Expr) P {
	return &BinaryExpr{Op: OpNEQ, X: x, Y: y}
}

// GT returns a predicate to check if the expression x > than expression y.
func GT(x, y Expr) P {
	return &BinaryExpr{Op: OpGT, X: x, Y: y}
}

// GTE returns a predicate to check if the expression x >= than expression y.
func GTE(x, y Expr) P {
	return &BinaryExpr{Op: OpGTE, X: x, Y: y}
}

// LT returns a predicate to check if the expression x < than expression y.
func LT(x, y Expr) P {
	return &BinaryExpr{Op: OpLT, X: x, Y: y}
}

// LTE returns a predicate to check if the expression x <= than expression y.
func LTE(x, y Expr) P {
	return &BinaryExpr{Op: OpLTE, X: x, Y: y}
}

// In returns a predicate to check if x is within y, a list or a subquery.
func In(x, y Expr) P {
	return &BinaryExpr{Op: OpIn, X: x, Y: y}
}

// NotIn returns a predicate to check if x is not within y.
func NotIn(x, y Expr) P {
	return &BinaryExpr{Op: OpNotIn, X: x, Y: y}
}

// Exists returns a predicate to check if the subquery returns any row.
func Exists(q Subquery) P {
	return &CallExpr{Func: FuncExists, Args: []Expr{&SubqueryExpr{Q: q}}}
}

// Contains returns a predicate to check if the string x contains the substring s.
func Contains(x Expr, s string) P {
	return &CallExpr{Func: FuncContains, Args: []Expr{x, V(s)}}
}

// HasPrefix returns a predicate to check if the string x starts with s.
func HasPrefix(x Expr, s string) P {
	return &CallExpr{Func: FuncHasPrefix, Args: []Expr{x, V(s)}}
}

// HasSuffix returns a predicate to check if the string x ends with s.
func HasSuffix(x Expr, s string) P {
	return &CallExpr{Func: FuncHasSuffix, Args: []Expr{x, V(s)}}
}

// EqualFold returns a predicate to check if the string x equals s under
// case-folding. Its SQL rendering is dialect-specific and differs from EQ.
func EqualFold(x Expr, s string) P {
	return &CallExpr{Func: FuncEqualFold, Args: []Expr{x, V(s)}}
}

// IsNullOrEmpty returns a predicate to check if the string x is NULL or empty.
func IsNullOrEmpty(x Expr) P {
	return &CallExpr{Func: FuncIsNullOrEmpty, Args: []Expr{x}}
}

// Add returns the sum of x and y.
func Add(x, y Expr) Expr { return &BinaryExpr{Op: OpAdd, X: x, Y: y} }

// Sub returns the difference of x and y.
func Sub(x, y Expr) Expr { return &BinaryExpr{Op: OpSub, X: x, Y: y} }

// Mul returns the product of x and y.
func Mul(x, y Expr) Expr { return &BinaryExpr{Op: OpMul, X: x, Y: y} }

// Div returns the quotient of x and y.
func Div(x, y Expr) Expr { return &BinaryExpr{Op: OpDiv, X: x, Y: y} }

// Mod returns the remainder of x divided by y.
func Mod(x, y Expr) Expr { return &BinaryExpr{Op: OpMod, X: x, Y: y} }

// Pow returns x raised to the power of y.
func Pow(x, y Expr) Expr { return &BinaryExpr{Op: OpPow, X: x, Y: y} }

// Shl returns x shifted left by y bits.
func Shl(x, y Expr) Expr { return &BinaryExpr{Op: OpShl, X: x, Y: y} }

// Shr returns x shifted right by y bits.
func Shr(x, y Expr) Expr { return &BinaryExpr{Op: OpShr, X: x, Y: y} }

// Neg returns the arithmetic negation of x.
func Neg(x Expr) Expr { return &UnaryExpr{Op: OpNeg, X: x} }

// Count returns the number of non-null values of x.
func Count(x Expr) Expr { return &CallExpr{Func: FuncCount, Args: []Expr{x}} }

// CountAll returns the number of rows.
func CountAll() Expr { return &CallExpr{Func: FuncCount} }

// DistinctCount returns the number of distinct values of x.
func DistinctCount(x Expr) Expr { return &CallExpr{Func: FuncDistinctCount, Args: []Expr{x}} }

// Sum returns the sum of x over the rows.
func Sum(x Expr) Expr { return &CallExpr{Func: FuncSum, Args: []Expr{x}} }

// Min returns the smallest value of x over the rows.
func Min(x Expr) Expr { return &CallExpr{Func: FuncMin, Args: []Expr{x}} }

// Max returns the largest value of x over the rows.
func Max(x Expr) Expr { return &CallExpr{Func: FuncMax, Args: []Expr{x}} }

// Avg returns the average of x over the rows.
func Avg(x Expr) Expr { return &CallExpr{Func: FuncAvg, Args: []Expr{x}} }

// New projects the given expressions into one result row.
func New(xs ...Expr) Expr { return &NewExpr{Xs: xs} }

// Select embeds a nested query, e.g. as the right side of In.
func Select(q Subquery) Expr { return &SubqueryExpr{Q: q} }

// FieldEQ returns a predicate to check if a field is equivalent to a given value.
func FieldEQ(name string, v any) P {
	return EQ(F(name), V(v))
}

// FieldNEQ returns a predicate to check if a field is not equivalent to a given value.
func FieldNEQ(name string, v any) P {
	return NEQ(F(name), V(v))
}

// FieldGT returns a predicate to check if a field is > than the given value.
func FieldGT(name string, v any) P {
	return GT(F(name), V(v))
}

// FieldGTE returns a predicate to check if a field is >= than the given value.
func FieldGTE(name string, v any) P {
	return GTE(F(name), V(v))
}

// FieldLT returns a predicate to check if a field is < than the given value.
func FieldLT(name string, v any) P {
	return LT(F(name), V(v))
}

// FieldLTE returns a predicate to check if a field is <= than the given value.
func FieldLTE(name string, v any) P {
	return LTE(F(name), V(v))
}

// FieldIn returns a predicate to check if the field value matches any value in the given list.
func FieldIn[T any](name string, vs ...T) P {
	return In(F(name), List(vs...))
}

// FieldNotIn returns a predicate to check if the field value doesn't match any value in the given list.
func FieldNotIn[T any](name string, vs ...T) P {
	return NotIn(F(name), List(vs...))
}

// FieldNil returns a predicate to check if a field is nil (null in databases).
func FieldNil(name string) P {
	return EQ(F(name), Null)
}

// FieldNotNil returns a predicate to check if a field is not nil (not null in databases).
func FieldNotNil(name string) P {
	return NEQ(F(name), Null)
}

// FieldContains returns a predicate to check if the field value contains a substr.
func FieldContains(name, substr string) P {
	return Contains(F(name), substr)
}

// FieldHasPrefix returns a predicate to check if the field starts with the given prefix.
func FieldHasPrefix(name, prefix string) P {
	return HasPrefix(F(name), prefix)
}

// FieldHasSuffix returns a predicate to check if the field ends with the given suffix.
func FieldHasSuffix(name, suffix string) P {
	return HasSuffix(F(name), suffix)
}

// FieldEqualFold returns a predicate to check if the field is equal to the given string under case-folding.
func FieldEqualFold(name, s string) P {
	return EqualFold(F(name), s)
}

// FieldIsNullOrEmpty returns a predicate to check if the field is NULL or the empty string.
func FieldIsNullOrEmpty(name string) P {
	return IsNullOrEmpty(F(name))
}

// Negate negates the predicate.
func (e *BinaryExpr) Negate() P {
	return Not(e)
}

// Negate negates the predicate.
func (e *NaryExpr) Negate() P {
	return Not(e)
}

// Negate negates the predicate.
func (e *CallExpr) Negate() P {
	return Not(e)
}

// Negate negates the predicate.
func (e *UnaryExpr) Negate() P {
	return Not(e)
}

// String returns the text representation of a field.
func (f *Field) String() string {
	if len(f.Path) == 0 {
		return f.Name
	}
	return strings.Join(f.Path, ".") + "." + f.Name
}

// String returns the text representation of a value.
func (v *Value) String() string {
	switch x := v.Eval().(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case []byte:
		return strconv.Quote(base64.StdEncoding.EncodeToString(x))
	case time.Time:
		return strconv.Quote(x.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return strconv.Quote(x.String())
	default:
		return fmt.Sprint(x)
	}
}

// String returns the text representation of NULL.
func (*NullExpr) String() string {
	return "nil"
}

// String returns the text representation of a list.
func (l *ListExpr) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := range l.X {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.X[i].String())
	}
	b.WriteByte(']')
	return b.String()
}

// String returns the text representation of a binary expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.X, e.Op, e.Y)
}

// String returns the text representation of a unary expression.
func (e *UnaryExpr) String() string {
	if e.Op == OpNeg {
		return fmt.Sprintf("-%s", e.X)
	}
	return fmt.Sprintf("%s(%s)", e.Op, e.X)
}

// String returns the text representation of an n-ary expression.
func (e *NaryExpr) String() string {
	var s strings.Builder
	s.WriteByte('(')
	for i, x := range e.Xs {
		if i > 0 {
			s.WriteByte(' ')
			s.WriteString(e.Op.String())
			s.WriteByte(' ')
		}
		s.WriteString(x.String())
	}
	s.WriteByte(')')
	return s.String()
}

// String returns the text representation of a call expression.
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Func, strings.Join(args, ", "))
}

// String returns the text representation of a projection.
func (e *NewExpr) String() string {
	xs := make([]string, len(e.Xs))
	for i, x := range e.Xs {
		xs[i] = x.String()
	}
	return fmt.Sprintf("new(%s)", strings.Join(xs, ", "))
}

// String returns the text representation of a subquery.
func (e *SubqueryExpr) String() string {
	q, err := e.Q.Query()
	if err != nil {
		return "select(<invalid>)"
	}
	return fmt.Sprintf("select(%s)", q)
}

func p2expr(ps []P) []Expr {
	expr := make([]Expr, len(ps))
	for i := range ps {
		expr[i] = ps[i]
	}
	return expr
}

func (*Field) expr()        {}
func (*Value) expr()        {}
func (*NullExpr) expr()     {}
func (*ListExpr) expr()     {}
func (*BinaryExpr) expr()   {}
func (*UnaryExpr) expr()    {}
func (*NaryExpr) expr()     {}
func (*CallExpr) expr()     {}
func (*NewExpr) expr()      {}
func (*SubqueryExpr) expr() {}
