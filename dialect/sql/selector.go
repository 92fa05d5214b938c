package sql

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema"
)

var errNoDialect = errors.New("dialect/sql: no dialect set on builder")

// Selector is a builder for the SELECT statement of one root entity and
// the entities joined to it. It is not safe for concurrent use.
//
// The rendered statement is cached until the builder is mutated.
type Selector struct {
	dialect  dialect.Dialect
	root     reflect.Type
	joins    []any
	columns  []ql.Expr
	exclude  []*ql.Field
	where    ql.P
	order    []orderTerm
	group    []ql.Expr
	having   ql.P
	distinct bool
	count    bool
	desc     bool
	offset   int
	limit    int
	err      error

	dirty   bool
	plan    *Plan
	renders int
}

type orderTerm struct {
	expr ql.Expr
	desc bool
}

// Select returns a builder selecting entities of type T.
func Select[T any]() *Selector {
	return SelectFrom(reflect.TypeFor[T]())
}

// SelectFrom returns a builder selecting the entity type of v, which may be
// a value, a pointer, a slice or a reflect.Type.
func SelectFrom(v any) *Selector {
	s := &Selector{dirty: true}
	desc, err := schema.Of(v)
	if err != nil {
		s.err = err
		return s
	}
	s.root = desc.Type
	return s
}

// Dialect sets the dialect the statement is rendered for.
func (s *Selector) Dialect(d dialect.Dialect) *Selector {
	s.dialect = d
	s.dirty = true
	return s
}

func (s *Selector) inherit(d dialect.Dialect) {
	if s.dialect == nil {
		s.Dialect(d)
	}
}

// Columns restricts the projection to the given expressions. Fields are
// read back into entities, other expressions are returned as is.
func (s *Selector) Columns(exprs ...ql.Expr) *Selector {
	for _, e := range exprs {
		if n, ok := e.(*ql.NewExpr); ok {
			s.columns = append(s.columns, n.Xs...)
			continue
		}
		s.columns = append(s.columns, e)
	}
	s.dirty = true
	return s
}

// Exclude removes fields from the projection. Excluding a collection
// relation leaves it unpopulated. Primary keys are always selected.
func (s *Selector) Exclude(exprs ...ql.Expr) *Selector {
	for _, e := range exprs {
		f, ok := e.(*ql.Field)
		if !ok {
			s.err = unsupported(e, "only fields can be excluded")
			continue
		}
		s.exclude = append(s.exclude, f)
	}
	s.dirty = true
	return s
}

// Join adds entity types to the statement. They are joined through their
// declared relations.
func (s *Selector) Join(types ...any) *Selector {
	s.joins = append(s.joins, types...)
	s.dirty = true
	return s
}

// Where appends a predicate joined with AND.
func (s *Selector) Where(p ql.P) *Selector {
	if s.where == nil {
		s.where = p
	} else {
		s.where = ql.And(s.where, p)
	}
	s.dirty = true
	return s
}

// Or appends a predicate joined with OR.
func (s *Selector) Or(p ql.P) *Selector {
	if s.where == nil {
		s.where = p
	} else {
		s.where = ql.Or(s.where, p)
	}
	s.dirty = true
	return s
}

// OrderBy appends ascending order terms.
func (s *Selector) OrderBy(exprs ...ql.Expr) *Selector {
	for _, e := range exprs {
		s.order = append(s.order, orderTerm{expr: e})
	}
	s.dirty = true
	return s
}

// OrderByDesc appends descending order terms.
func (s *Selector) OrderByDesc(exprs ...ql.Expr) *Selector {
	for _, e := range exprs {
		s.order = append(s.order, orderTerm{expr: e, desc: true})
	}
	s.dirty = true
	return s
}

// GroupBy appends grouping terms.
func (s *Selector) GroupBy(exprs ...ql.Expr) *Selector {
	s.group = append(s.group, exprs...)
	s.dirty = true
	return s
}

// Having appends a predicate on groups joined with AND.
func (s *Selector) Having(p ql.P) *Selector {
	if s.having == nil {
		s.having = p
	} else {
		s.having = ql.And(s.having, p)
	}
	s.dirty = true
	return s
}

// Distinct removes duplicate rows.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	s.dirty = true
	return s
}

// Count replaces the projection with the number of root entities matched.
func (s *Selector) Count() *Selector {
	s.count = true
	s.dirty = true
	return s
}

// Page skips index rows and returns at most count rows. A count of zero
// or less disables paging.
func (s *Selector) Page(index, count int) *Selector {
	s.offset, s.limit = max(index, 0), count
	s.dirty = true
	return s
}

// Descending orders by the primary key of the root entity in descending
// order when no explicit order is given.
func (s *Selector) Descending() *Selector {
	s.desc = true
	s.dirty = true
	return s
}

// Clone returns a copy of the builder that can be mutated independently.
func (s *Selector) Clone() *Selector {
	c := *s
	c.joins = append([]any(nil), s.joins...)
	c.columns = append([]ql.Expr(nil), s.columns...)
	c.exclude = append([]*ql.Field(nil), s.exclude...)
	c.order = append([]orderTerm(nil), s.order...)
	c.group = append([]ql.Expr(nil), s.group...)
	c.dirty, c.plan, c.renders = true, nil, 0
	return &c
}

// Entity returns the root entity type.
func (s *Selector) Entity() reflect.Type {
	return s.root
}

// Query returns the statement text.
func (s *Selector) Query() (string, error) {
	return s.QueryContext(context.Background())
}

// QueryContext returns the statement text. The translation stops when ctx
// is done.
func (s *Selector) QueryContext(ctx context.Context) (string, error) {
	p, err := s.Plan(ctx)
	if err != nil {
		return "", err
	}
	return p.Query, nil
}

// String implements the fmt.Stringer interface. It returns an empty string
// when the statement cannot be rendered.
func (s *Selector) String() string {
	q, _ := s.Query()
	return q
}

// Plan renders the statement and describes the result columns. The plan
// is cached until the builder is mutated.
func (s *Selector) Plan(ctx context.Context) (*Plan, error) {
	if !s.dirty && s.plan != nil {
		return s.plan, nil
	}
	s.renders++
	p, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.plan, s.dirty = p, false
	return p, nil
}

// Plan is a rendered SELECT statement together with the mapping of its
// result columns to the entities of the join graph.
type Plan struct {
	Query   string
	Dialect dialect.Dialect
	Graph   *JoinGraph
	// Columns lists the result columns in order.
	Columns []PlanColumn
	// Excluded holds the relations left unpopulated.
	Excluded map[*schema.Column]bool
}

// PlanColumn is one result column. Node and Column are nil for computed
// expressions.
type PlanColumn struct {
	Node   *Node
	Column *schema.Column
	Label  string
}

// Ordinal returns the position of the column c of the node n in the
// result, or -1.
func (p *Plan) Ordinal(n *Node, c *schema.Column) int {
	for i, pc := range p.Columns {
		if pc.Node == n && pc.Column == c {
			return i
		}
	}
	return -1
}

type projection struct {
	items  []string
	labels []string
}

func (s *Selector) build(ctx context.Context) (*Plan, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.dialect == nil {
		return nil, errNoDialect
	}
	g, err := DeriveJoins(s.dialect, append([]any{s.root}, s.joins...)...)
	if err != nil {
		return nil, err
	}
	tr := NewTranslator(ctx, s.dialect, g)
	p := &Plan{Dialect: s.dialect, Graph: g, Excluded: make(map[*schema.Column]bool)}
	excluded, err := s.excluded(tr, p)
	if err != nil {
		return nil, err
	}
	paging := s.limit > 0 && !s.count
	strategy := s.dialect.Paging()
	nested := paging && (strategy == dialect.PagingRownum || strategy == dialect.PagingTop && s.offset > 0)
	labelled := s.dialect.SelectUsingAs() || nested
	for _, n := range g.Nodes {
		labelled = labelled || g.SharedTables(n)
	}
	var proj projection
	if s.count {
		proj.items = []string{s.countItem(g)}
	} else if proj, err = s.project(ctx, tr.Qualified(g.MultiTable()), p, excluded, labelled); err != nil {
		return nil, err
	}
	body, err := s.body(tr.Qualified(true), g)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if paging && strategy == dialect.PagingTop && s.offset == 0 {
		b.WriteString("TOP " + strconv.Itoa(s.limit) + " ")
	}
	b.WriteString(strings.Join(proj.items, ", "))
	b.WriteString(body)
	if s.count {
		p.Query = b.String()
		return p, nil
	}
	terms, err := s.orderTerms(tr.Qualified(true), g, strategy, paging)
	if err != nil {
		return nil, err
	}
	if !nested || strategy == dialect.PagingRownum {
		if len(terms) > 0 {
			b.WriteString(" ORDER BY " + joinTerms(terms, false, false))
		}
	}
	switch {
	case !paging:
	case strategy == dialect.PagingLimit:
		b.WriteString(" LIMIT ")
		if s.offset > 0 {
			b.WriteString(strconv.Itoa(s.offset) + ",")
		}
		b.WriteString(strconv.Itoa(s.limit))
	case strategy == dialect.PagingOffsetLimit:
		b.WriteString(" LIMIT " + strconv.Itoa(s.limit))
		if s.offset > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(s.offset))
		}
	case strategy == dialect.PagingFetch:
		fmt.Fprintf(&b, " OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", s.offset, s.limit)
	case strategy == dialect.PagingRownum:
		return p, s.rownum(p, b.String(), proj)
	case strategy == dialect.PagingTop && s.offset > 0:
		return p, s.top(p, b.String(), proj, terms)
	}
	p.Query = b.String()
	return p, nil
}

// excluded resolves the excluded fields to the stored columns of their
// nodes. Excluded relations are recorded on the plan.
func (s *Selector) excluded(tr *Translator, p *Plan) (map[*Node]map[*schema.Column]bool, error) {
	ex := make(map[*Node]map[*schema.Column]bool)
	for _, f := range s.exclude {
		n, c, err := tr.Resolve(f)
		if err != nil {
			if !sqlmap.IsUnsupportedExpression(err) {
				return nil, err
			}
			// A collection relation has no column.
			c, ok := nodeOf(tr.graph, f).Desc.Field(f.Name)
			if !ok {
				return nil, err
			}
			p.Excluded[c] = true
			continue
		}
		if c.Is(schema.FlagPrimaryKey) {
			continue
		}
		// Naming the relation leaves its foreign key selected.
		if c.Edge != nil && f.Name == c.Edge.Name {
			p.Excluded[c] = true
			continue
		}
		if ex[n] == nil {
			ex[n] = make(map[*schema.Column]bool)
		}
		ex[n][c] = true
	}
	return ex, nil
}

// nodeOf returns the node a field names without resolving the field.
func nodeOf(g *JoinGraph, f *ql.Field) *Node {
	if len(f.Path) > 0 {
		if n, ok := g.Follow(f.Path); ok {
			return n
		}
	}
	if f.Entity != nil {
		if n := g.Node(f.Entity); n != nil {
			return n
		}
	}
	return g.Root
}

func (s *Selector) project(ctx context.Context, tr *Translator, p *Plan, excluded map[*Node]map[*schema.Column]bool, labelled bool) (projection, error) {
	var proj projection
	add := func(n *Node, c *schema.Column, item string) {
		label := n.Label(c)
		if labelled {
			item += " AS " + s.dialect.QuoteIdent(label)
		}
		proj.items = append(proj.items, item)
		proj.labels = append(proj.labels, label)
		p.Columns = append(p.Columns, PlanColumn{Node: n, Column: c, Label: label})
	}
	if len(s.columns) == 0 {
		for _, n := range p.Graph.Nodes {
			for _, c := range n.Desc.Columns {
				if err := ctx.Err(); err != nil {
					return proj, err
				}
				if excluded[n][c] {
					continue
				}
				add(n, c, tr.column(n, c))
			}
		}
		return proj, nil
	}
	for i, e := range s.columns {
		if f, ok := e.(*ql.Field); ok {
			n, c, err := tr.Resolve(f)
			if err != nil {
				return proj, err
			}
			if !excluded[n][c] {
				add(n, c, tr.column(n, c))
			}
			continue
		}
		item, err := tr.Translate(e)
		if err != nil {
			return proj, err
		}
		label := "c" + strconv.Itoa(i)
		if labelled {
			item += " AS " + s.dialect.QuoteIdent(label)
		}
		proj.items = append(proj.items, item)
		proj.labels = append(proj.labels, label)
		p.Columns = append(p.Columns, PlanColumn{Label: label})
	}
	return proj, nil
}

// countItem counts root entities. Joined collections multiply rows, so
// the keys are counted distinctly.
func (s *Selector) countItem(g *JoinGraph) string {
	pk := g.Root.Desc.PrimaryKey
	if g.MultiTable() && pk != nil {
		return "COUNT(DISTINCT " + s.dialect.QuoteTable(g.Root.Ref) + "." + s.dialect.QuoteIdent(pk.Name) + ")"
	}
	return "COUNT(1)"
}

// body renders the FROM clause and the clauses following it, up to the
// ORDER BY clause.
func (s *Selector) body(tr *Translator, g *JoinGraph) (string, error) {
	var b strings.Builder
	b.WriteString(" FROM ")
	parens := s.dialect.ParenthesizeJoins() && len(g.Joins) > 1
	if parens {
		b.WriteString(strings.Repeat("(", len(g.Joins)-1))
	}
	b.WriteString(s.table(g.Root))
	for i, j := range g.Joins {
		fmt.Fprintf(&b, " %s %s ON %s.%s = %s.%s",
			j.Kind, s.table(j.Node),
			s.dialect.QuoteTable(j.LeftRef), s.dialect.QuoteIdent(j.LeftColumn.Name),
			s.dialect.QuoteTable(j.Ref()), s.dialect.QuoteIdent(j.RightColumn.Name),
		)
		if parens && i < len(g.Joins)-1 {
			b.WriteString(")")
		}
	}
	if s.where != nil {
		w, err := tr.Translate(s.where)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHERE " + w)
	}
	if len(s.group) > 0 {
		terms := make([]string, len(s.group))
		for i, e := range s.group {
			t, err := tr.Translate(e)
			if err != nil {
				return "", err
			}
			terms[i] = t
		}
		b.WriteString(" GROUP BY " + strings.Join(terms, ", "))
	}
	if s.having != nil {
		h, err := tr.Translate(s.having)
		if err != nil {
			return "", err
		}
		b.WriteString(" HAVING " + h)
	}
	return b.String(), nil
}

// table renders a table occurrence followed by its reference when the two
// differ.
func (s *Selector) table(n *Node) string {
	t := s.dialect.QuoteTable(n.Desc.Table)
	if n.Ref != n.Desc.Table {
		t += " " + s.dialect.QuoteTable(n.Ref)
	}
	return t
}

type renderedTerm struct {
	sql   string
	label string
	desc  bool
}

// orderTerms renders the ORDER BY terms. Without explicit terms, the
// primary key of the root orders the rows when Descending is set or the
// paging strategy needs a stable order.
func (s *Selector) orderTerms(tr *Translator, g *JoinGraph, strategy dialect.Paging, paging bool) ([]renderedTerm, error) {
	terms := make([]renderedTerm, 0, len(s.order))
	for _, o := range s.order {
		t := renderedTerm{desc: o.desc}
		if f, ok := o.expr.(*ql.Field); ok {
			n, c, err := tr.Resolve(f)
			if err != nil {
				return nil, err
			}
			t.sql, t.label = tr.column(n, c), n.Label(c)
		} else {
			sql, err := tr.Translate(o.expr)
			if err != nil {
				return nil, err
			}
			t.sql = sql
		}
		terms = append(terms, t)
	}
	if len(terms) > 0 {
		return terms, nil
	}
	needKey := paging && (strategy == dialect.PagingFetch || strategy == dialect.PagingTop && s.offset > 0)
	if !needKey && !s.desc {
		return nil, nil
	}
	root := g.Root
	pk := root.Desc.PrimaryKey
	if pk == nil {
		if !needKey {
			return nil, nil
		}
		return nil, &sqlmap.SchemaError{Type: root.Desc.Name, Message: fmt.Sprintf("%s paging requires a primary key to order by", strategy)}
	}
	return []renderedTerm{{sql: tr.column(root, pk), label: root.Label(pk), desc: s.desc}}, nil
}

// joinTerms renders order terms, by label when byLabel is set and with the
// directions swapped when flip is set.
func joinTerms(terms []renderedTerm, byLabel, flip bool, quote ...func(string) string) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		s := t.sql
		if byLabel {
			s = quote[0](t.label)
		}
		if t.desc != flip {
			s += " DESC"
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

// top renders offset paging for dialects limited to TOP: the first
// offset+count rows are selected, the last count of them are kept by
// reversing the order, and the result is put back in order.
func (s *Selector) top(p *Plan, inner string, proj projection, terms []renderedTerm) error {
	for _, t := range terms {
		if t.label == "" || !slices.Contains(proj.labels, t.label) {
			return &sqlmap.SchemaError{Type: p.Graph.Root.Desc.Name, Message: "TOP paging requires the order keys to be selected"}
		}
	}
	q := s.dialect.QuoteIdent
	total := strconv.Itoa(s.offset + s.limit)
	// SELECT [DISTINCT] TOP n: insert the row bound after the keywords.
	head := "SELECT "
	if s.distinct {
		head += "DISTINCT "
	}
	inner = head + "TOP " + total + " " + strings.TrimPrefix(inner, head) + " ORDER BY " + joinTerms(terms, false, false)
	middle := "SELECT TOP " + strconv.Itoa(s.limit) + " * FROM (" + inner + ") AS q1 ORDER BY " + joinTerms(terms, true, true, q)
	p.Query = "SELECT " + quoteAll(proj.labels, q) + " FROM (" + middle + ") AS q2 ORDER BY " + joinTerms(terms, true, false, q)
	return nil
}

// rownum renders paging for Oracle by numbering the ordered rows.
func (s *Selector) rownum(p *Plan, inner string, proj projection) error {
	p.Query = fmt.Sprintf("SELECT %s FROM (SELECT q.*, ROWNUM rn FROM (%s) q WHERE ROWNUM <= %d) WHERE rn > %d",
		quoteAll(proj.labels, s.dialect.QuoteIdent), inner, s.offset+s.limit, s.offset)
	return nil
}

func quoteAll(labels []string, quote func(string) string) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = quote(l)
	}
	return strings.Join(parts, ", ")
}
