package sql

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema"
	"github.com/syssam/sqlmap/schema/field"
)

// Translator renders querylanguage expressions as SQL fragments of one
// dialect. Fields are resolved against the nodes of a join graph.
type Translator struct {
	ctx     context.Context
	dialect dialect.Dialect
	graph   *JoinGraph
	qualify bool
}

// NewTranslator returns a translator resolving fields against g.
func NewTranslator(ctx context.Context, d dialect.Dialect, g *JoinGraph) *Translator {
	return &Translator{ctx: ctx, dialect: d, graph: g}
}

// Qualified returns a copy of the translator prefixing columns with the
// reference of their table when q is set.
func (t *Translator) Qualified(q bool) *Translator {
	c := *t
	c.qualify = q
	return &c
}

// Translate renders a querylanguage expression for the dialect d. Columns
// are resolved against the join graph g and qualified when qualify is set.
func Translate(ctx context.Context, d dialect.Dialect, g *JoinGraph, e ql.Expr, qualify bool) (string, error) {
	return NewTranslator(ctx, d, g).Qualified(qualify).Translate(e)
}

// Translate renders e.
func (t *Translator) Translate(e ql.Expr) (string, error) {
	if e == nil {
		return "", unsupported(e, "nil expression")
	}
	switch e := e.(type) {
	case *ql.Field:
		n, c, err := t.Resolve(e)
		if err != nil {
			return "", err
		}
		return t.column(n, c), nil
	case *ql.Value:
		return t.literal(nil, e.Eval())
	case *ql.NullExpr:
		return "NULL", nil
	case *ql.ListExpr:
		items, err := t.list(nil, e.X)
		if err != nil {
			return "", err
		}
		return "(" + strings.Join(items, ", ") + ")", nil
	case *ql.BinaryExpr:
		switch {
		case e.Op == ql.OpAnd || e.Op == ql.OpOr:
			return t.logical(e.Op, []ql.Expr{e.X, e.Y})
		case e.Op.Comparison():
			return t.compare(e)
		case e.Op == ql.OpIn || e.Op == ql.OpNotIn:
			return t.in(e.X, e.Y, e.Op == ql.OpNotIn)
		default:
			return t.arith(e)
		}
	case *ql.NaryExpr:
		if e.Op != ql.OpAnd && e.Op != ql.OpOr {
			return "", unsupported(e, "n-ary operator "+e.Op.String())
		}
		return t.logical(e.Op, e.Xs)
	case *ql.UnaryExpr:
		switch e.Op {
		case ql.OpNot:
			return t.not(e.X)
		case ql.OpNeg:
			x, err := t.operand(e.X)
			if err != nil {
				return "", err
			}
			return "-" + x, nil
		}
		return "", unsupported(e, "unary operator "+e.Op.String())
	case *ql.CallExpr:
		return t.call(e)
	case *ql.SubqueryExpr:
		if s, ok := e.Q.(interface{ inherit(dialect.Dialect) }); ok {
			s.inherit(t.dialect)
		}
		q, err := e.Q.Query()
		if err != nil {
			return "", err
		}
		return "(" + q + ")", nil
	}
	return "", unsupported(e, fmt.Sprintf("node %T", e))
}

// Resolve returns the node and the stored column a field refers to.
func (t *Translator) Resolve(f *ql.Field) (*Node, *schema.Column, error) {
	if t.graph == nil {
		return nil, nil, &sqlmap.SchemaError{Field: f.Name, Message: "no entity in scope"}
	}
	n := t.graph.Root
	switch {
	case len(f.Path) > 0:
		var ok bool
		if n, ok = t.graph.Follow(f.Path); !ok {
			return nil, nil, &sqlmap.SchemaError{Type: t.graph.Root.Desc.Name, Field: strings.Join(f.Path, "."), Message: "relation path is not joined"}
		}
		if f.Entity != nil && f.Entity != n.Desc.Type {
			return nil, nil, &sqlmap.SchemaError{Type: n.Desc.Name, Field: f.Name, Message: fmt.Sprintf("path leads to %s, not %s", n.Desc.Name, f.Entity.Name())}
		}
	case f.Entity != nil:
		if n = t.graph.Node(f.Entity); n == nil {
			return nil, nil, &sqlmap.SchemaError{Type: f.Entity.Name(), Field: f.Name, Message: "entity does not participate in the statement"}
		}
	}
	c, ok := n.Desc.Field(f.Name)
	if !ok {
		if c, ok = n.Desc.Column(f.Name); !ok {
			return nil, nil, &sqlmap.SchemaError{Type: n.Desc.Name, Field: f.Name, Message: "unknown field"}
		}
	}
	if !c.Stored {
		return nil, nil, unsupported(f, "collection relation has no column")
	}
	return n, c, nil
}

func (t *Translator) column(n *Node, c *schema.Column) string {
	if t.qualify {
		return t.dialect.QuoteTable(n.Ref) + "." + t.dialect.QuoteIdent(c.Name)
	}
	return t.dialect.QuoteIdent(c.Name)
}

// target returns the column a field operand refers to, if any.
func (t *Translator) target(e ql.Expr) *schema.Column {
	f, ok := e.(*ql.Field)
	if !ok {
		return nil
	}
	_, c, err := t.Resolve(f)
	if err != nil {
		return nil
	}
	return c
}

// value renders an operand compared against the column c.
func (t *Translator) value(c *schema.Column, e ql.Expr) (string, error) {
	if v, ok := e.(*ql.Value); ok {
		return t.literal(c, v.Eval())
	}
	return t.Translate(e)
}

func (t *Translator) literal(c *schema.Column, v any) (string, error) {
	if c != nil && c.Type == field.TypeEnum {
		var err error
		if v, err = t.enum(c, v); err != nil {
			return "", err
		}
	}
	s, err := t.dialect.Literal(v)
	if err != nil {
		return "", unsupported(ql.V(v), err.Error())
	}
	return s, nil
}

// enum converts an enum operand to the representation stored in c: the
// value name, or its position in the declared values.
func (t *Translator) enum(c *schema.Column, v any) (any, error) {
	names := c.Enums()
	gt := c.GoType
	if gt.Kind() == reflect.Ptr {
		gt = gt.Elem()
	}
	byName := t.dialect.EnumAsString() || gt.Kind() == reflect.String
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil
	}
	switch k := rv.Kind(); {
	case k == reflect.String:
		if byName {
			return rv.String(), nil
		}
		if i := slices.Index(names, rv.String()); i >= 0 {
			return int64(i), nil
		}
		return nil, unsupported(ql.V(v), fmt.Sprintf("unknown value for enum %s", c))
	case k >= reflect.Int && k <= reflect.Int64:
		if !byName {
			return rv.Int(), nil
		}
		if i := rv.Int(); i >= 0 && int(i) < len(names) {
			return names[i], nil
		}
		return nil, unsupported(ql.V(v), fmt.Sprintf("enum %s has no value at %d", c, rv.Int()))
	}
	return v, nil
}

// null reports whether e renders as SQL NULL on the dialect.
func (t *Translator) null(e ql.Expr) bool {
	switch e := e.(type) {
	case *ql.NullExpr:
		return true
	case *ql.Value:
		v := e.Eval()
		if v == nil {
			return true
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return true
		}
		// Oracle stores '' as NULL.
		s, ok := v.(string)
		return ok && s == "" && t.dialect.EmptyStringIsNull()
	}
	return false
}

var comparisons = map[ql.Op]string{
	ql.OpEQ:  "=",
	ql.OpNEQ: "<>",
	ql.OpGT:  ">",
	ql.OpGTE: ">=",
	ql.OpLT:  "<",
	ql.OpLTE: "<=",
}

func (t *Translator) compare(e *ql.BinaryExpr) (string, error) {
	x, y := e.X, e.Y
	if t.null(x) && !t.null(y) {
		x, y = y, x
	}
	if t.null(y) {
		lhs, err := t.Translate(x)
		if err != nil {
			return "", err
		}
		switch e.Op {
		case ql.OpEQ:
			return lhs + " IS NULL", nil
		case ql.OpNEQ:
			return lhs + " IS NOT NULL", nil
		}
		return "", unsupported(e, "ordering comparison with NULL")
	}
	var (
		lhs, rhs string
		err      error
	)
	if c := t.target(x); c != nil {
		lhs, err = t.Translate(x)
		if err == nil {
			rhs, err = t.value(c, y)
		}
	} else if c := t.target(y); c != nil {
		lhs, err = t.value(c, x)
		if err == nil {
			rhs, err = t.Translate(y)
		}
	} else {
		lhs, err = t.Translate(x)
		if err == nil {
			rhs, err = t.Translate(y)
		}
	}
	if err != nil {
		return "", err
	}
	return lhs + " " + comparisons[e.Op] + " " + rhs, nil
}

func (t *Translator) in(x, y ql.Expr, negate bool) (string, error) {
	lhs, err := t.Translate(x)
	if err != nil {
		return "", err
	}
	op := " IN "
	if negate {
		op = " NOT IN "
	}
	var items []ql.Expr
	switch y := y.(type) {
	case *ql.SubqueryExpr:
		q, err := t.Translate(y)
		if err != nil {
			return "", err
		}
		return lhs + op + q, nil
	case *ql.ListExpr:
		items = y.X
	case *ql.Value:
		rv := reflect.ValueOf(y.Eval())
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array || rv.Type().Elem().Kind() == reflect.Uint8 {
			return "", unsupported(y, "IN operand is not a collection")
		}
		items = make([]ql.Expr, rv.Len())
		for i := range items {
			items[i] = ql.V(rv.Index(i).Interface())
		}
	default:
		return "", unsupported(y, "IN operand is not a collection")
	}
	if len(items) == 0 {
		if negate {
			return "1 = 1", nil
		}
		return "1 = 0", nil
	}
	vs, err := t.list(t.target(x), items)
	if err != nil {
		return "", err
	}
	return lhs + op + "(" + strings.Join(vs, ", ") + ")", nil
}

// list renders the items of a collection, checking for cancellation
// before each one.
func (t *Translator) list(c *schema.Column, items []ql.Expr) ([]string, error) {
	vs := make([]string, len(items))
	for i, it := range items {
		if err := t.ctx.Err(); err != nil {
			return nil, err
		}
		v, err := t.value(c, it)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

func (t *Translator) logical(op ql.Op, xs []ql.Expr) (string, error) {
	sep := " AND "
	if op == ql.OpOr {
		sep = " OR "
	}
	parts := make([]string, 0, len(xs))
	for _, x := range xs {
		if err := t.ctx.Err(); err != nil {
			return "", err
		}
		s, err := t.Translate(x)
		if err != nil {
			return "", err
		}
		if o, ok := logicalOp(x); ok && o != op {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep), nil
}

// logicalOp returns the operator of an AND/OR expression.
func logicalOp(e ql.Expr) (ql.Op, bool) {
	switch e := e.(type) {
	case *ql.BinaryExpr:
		return e.Op, e.Op == ql.OpAnd || e.Op == ql.OpOr
	case *ql.NaryExpr:
		return e.Op, true
	}
	return 0, false
}

func (t *Translator) not(x ql.Expr) (string, error) {
	switch x := x.(type) {
	case *ql.BinaryExpr:
		if x.Op == ql.OpIn || x.Op == ql.OpNotIn {
			return t.in(x.X, x.Y, x.Op == ql.OpIn)
		}
	case *ql.CallExpr:
		if x.Func == ql.FuncExists {
			s, err := t.call(x)
			if err != nil {
				return "", err
			}
			return "NOT " + s, nil
		}
	}
	s, err := t.Translate(x)
	if err != nil {
		return "", err
	}
	return "NOT (" + s + ")", nil
}

var arithmetic = map[ql.Op]string{
	ql.OpAdd: "+",
	ql.OpSub: "-",
	ql.OpMul: "*",
	ql.OpDiv: "/",
	ql.OpShl: "<<",
	ql.OpShr: ">>",
}

func (t *Translator) arith(e *ql.BinaryExpr) (string, error) {
	var (
		x, y string
		err  error
	)
	if c := t.target(e.X); c != nil {
		if x, err = t.operand(e.X); err == nil {
			y, err = t.value(c, e.Y)
		}
	} else {
		if x, err = t.operand(e.X); err == nil {
			y, err = t.operand(e.Y)
		}
	}
	if err != nil {
		return "", err
	}
	switch e.Op {
	case ql.OpMod:
		return "MOD(" + x + ", " + y + ")", nil
	case ql.OpPow:
		return "POWER(" + x + ", " + y + ")", nil
	}
	op, ok := arithmetic[e.Op]
	if !ok {
		return "", unsupported(e, "operator "+e.Op.String())
	}
	return x + " " + op + " " + y, nil
}

// operand renders an arithmetic operand, parenthesizing infix operations.
func (t *Translator) operand(e ql.Expr) (string, error) {
	s, err := t.Translate(e)
	if err != nil {
		return "", err
	}
	if b, ok := e.(*ql.BinaryExpr); ok && arithmetic[b.Op] != "" {
		s = "(" + s + ")"
	}
	return s, nil
}

func (t *Translator) call(e *ql.CallExpr) (string, error) {
	switch e.Func {
	case ql.FuncContains, ql.FuncHasPrefix, ql.FuncHasSuffix, ql.FuncEqualFold:
		if len(e.Args) != 2 {
			return "", unsupported(e, "expect 2 arguments")
		}
		x, err := t.Translate(e.Args[0])
		if err != nil {
			return "", err
		}
		v, ok := e.Args[1].(*ql.Value)
		if !ok {
			return "", unsupported(e, "pattern is not a value")
		}
		s, ok := v.Eval().(string)
		if !ok {
			return "", unsupported(e, "pattern is not a string")
		}
		op := " LIKE "
		switch e.Func {
		case ql.FuncContains:
			s = "%" + s + "%"
		case ql.FuncHasPrefix:
			s += "%"
		case ql.FuncHasSuffix:
			s = "%" + s
		case ql.FuncEqualFold:
			if !t.dialect.EqualFoldLike() {
				op = " = "
			}
		}
		lit, err := t.literal(nil, s)
		if err != nil {
			return "", err
		}
		return x + op + lit, nil
	case ql.FuncIsNullOrEmpty:
		if len(e.Args) != 1 {
			return "", unsupported(e, "expect 1 argument")
		}
		x, err := t.Translate(e.Args[0])
		if err != nil {
			return "", err
		}
		if t.dialect.EmptyStringIsNull() {
			return x + " IS NULL", nil
		}
		return "(" + x + " IS NULL OR " + x + " = '')", nil
	case ql.FuncCount:
		if len(e.Args) == 0 {
			return "COUNT(1)", nil
		}
		if _, ok := e.Args[0].(*ql.Value); ok {
			return "COUNT(1)", nil
		}
		x, err := t.Translate(e.Args[0])
		if err != nil {
			return "", err
		}
		return "COUNT(" + x + ")", nil
	case ql.FuncDistinctCount:
		if len(e.Args) != 1 {
			return "", unsupported(e, "expect 1 argument")
		}
		x, err := t.Qualified(true).Translate(e.Args[0])
		if err != nil {
			return "", err
		}
		return "COUNT(DISTINCT " + x + ")", nil
	case ql.FuncSum, ql.FuncMin, ql.FuncMax, ql.FuncAvg:
		if len(e.Args) != 1 {
			return "", unsupported(e, "expect 1 argument")
		}
		x, err := t.Translate(e.Args[0])
		if err != nil {
			return "", err
		}
		return strings.ToUpper(string(e.Func)) + "(" + x + ")", nil
	case ql.FuncExists:
		if len(e.Args) != 1 {
			return "", unsupported(e, "expect 1 argument")
		}
		if _, ok := e.Args[0].(*ql.SubqueryExpr); !ok {
			return "", unsupported(e, "EXISTS requires a subquery")
		}
		q, err := t.Translate(e.Args[0])
		if err != nil {
			return "", err
		}
		return "EXISTS " + q, nil
	}
	return "", unsupported(e, "function "+string(e.Func))
}

func unsupported(e ql.Expr, reason string) error {
	s := "<nil>"
	if e != nil {
		s = e.String()
	}
	return sqlmap.NewUnsupportedExpressionError(s, reason)
}
