package sqlgraph

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect/sql"
	"github.com/syssam/sqlmap/schema"
)

// Materialize reads the rows of the statement described by plan into
// entities of its root type, and returns pointers to them in the order
// their first row was read.
//
// An entity occurring in several rows is created once: objects are keyed
// by entity type and primary key, and relations between the objects of one
// row are linked as the rows are read. A joined entity whose key is NULL
// is absent from that row, and a row whose root key is NULL is skipped.
// Collections are assigned when every row has been read. Collections with
// no element are left nil.
//
// The caller owns rows and must close them.
func Materialize(ctx context.Context, rows sql.ColumnScanner, plan *sql.Plan) ([]any, error) {
	m, err := newMaterializer(rows, plan)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := rows.Scan(m.dest...); err != nil {
			return nil, sqlmap.NewExecutionError(plan.Query, err)
		}
		if err := m.row(); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, sqlmap.NewExecutionError(plan.Query, err)
	}
	if err := m.finish(); err != nil {
		return nil, err
	}
	out := make([]any, len(m.roots))
	for i, r := range m.roots {
		out[i] = r.Interface()
	}
	return out, nil
}

// Scan is the typed form of Materialize.
func Scan[T any](ctx context.Context, rows sql.ColumnScanner, plan *sql.Plan) ([]*T, error) {
	if want := reflect.TypeFor[T](); plan.Graph.Root.Desc.Type != want {
		return nil, &sqlmap.SchemaError{Type: want.Name(), Message: fmt.Sprintf("statement selects %s", plan.Graph.Root.Desc.Name)}
	}
	vs, err := Materialize(ctx, rows, plan)
	if err != nil {
		return nil, err
	}
	out := make([]*T, len(vs))
	for i, v := range vs {
		out[i] = v.(*T)
	}
	return out, nil
}

// Values reads every row as a slice of driver values. It serves
// projections of computed expressions, such as aggregates.
func Values(ctx context.Context, rows sql.ColumnScanner) ([][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vs := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range vs {
			dest[i] = &vs[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, vs)
	}
	return out, rows.Err()
}

type (
	// identity keys an object by entity type and primary key.
	identity struct {
		t   reflect.Type
		key any
	}

	// collection gathers the elements of one collection relation of one
	// owner.
	collection struct {
		owner reflect.Value
		col   *schema.Column
		items []reflect.Value
		seen  map[any]bool
	}

	collKey struct {
		owner any
		col   *schema.Column
	}

	// link is a single-valued relation resolved from a foreign key value
	// once every row has been read.
	link struct {
		owner  reflect.Value
		col    *schema.Column
		target identity
	}
)

type materializer struct {
	plan *sql.Plan
	// dest receives the scanned values, one pointer into values per
	// result column.
	dest   []any
	values []any
	// pos maps the plan columns to result columns.
	pos []int
	// columns lists the plan columns read by each node.
	columns [][]int

	objects map[identity]reflect.Value
	roots   []reflect.Value
	rooted  map[any]bool
	colls   map[collKey]*collection
	order   []*collection
	links   []link

	// Per row state, indexed by node.
	ents []reflect.Value
	keys []any
}

func newMaterializer(rows sql.ColumnScanner, plan *sql.Plan) (*materializer, error) {
	header, err := rows.Columns()
	if err != nil {
		return nil, sqlmap.NewExecutionError(plan.Query, err)
	}
	pos, err := positions(plan, header)
	if err != nil {
		return nil, err
	}
	m := &materializer{
		plan:    plan,
		dest:    make([]any, len(header)),
		values:  make([]any, len(header)),
		pos:     pos,
		columns: make([][]int, len(plan.Graph.Nodes)),
		objects: make(map[identity]reflect.Value),
		rooted:  make(map[any]bool),
		colls:   make(map[collKey]*collection),
		ents:    make([]reflect.Value, len(plan.Graph.Nodes)),
		keys:    make([]any, len(plan.Graph.Nodes)),
	}
	for i := range m.dest {
		m.dest[i] = &m.values[i]
	}
	for i, pc := range plan.Columns {
		if pc.Node != nil {
			m.columns[pc.Node.Index] = append(m.columns[pc.Node.Index], i)
		}
	}
	return m, nil
}

// positions maps the plan columns to the result header. Results with the
// planned number of columns are read positionally. Otherwise columns are
// matched by label, then by column name when the name is unambiguous.
func positions(plan *sql.Plan, header []string) ([]int, error) {
	pos := make([]int, len(plan.Columns))
	if len(header) == len(plan.Columns) {
		for i := range pos {
			pos[i] = i
		}
		return pos, nil
	}
	byName := make(map[string][]int, len(header))
	for i, h := range header {
		byName[h] = append(byName[h], i)
	}
	root := plan.Graph.Root.Desc.Name
	for i, pc := range plan.Columns {
		if idx := byName[pc.Label]; len(idx) == 1 {
			pos[i] = idx[0]
			continue
		}
		if pc.Column == nil {
			return nil, &sqlmap.SchemaError{Type: root, Field: pc.Label, Message: "result column not found"}
		}
		switch idx := byName[pc.Column.Name]; len(idx) {
		case 1:
			pos[i] = idx[0]
		case 0:
			return nil, &sqlmap.SchemaError{Type: root, Field: pc.Label, Message: "result column not found"}
		default:
			return nil, &sqlmap.SchemaError{Type: root, Field: pc.Label, Message: fmt.Sprintf("result column %q is ambiguous", pc.Column.Name)}
		}
	}
	return pos, nil
}

func (m *materializer) value(planCol int) any {
	return m.values[m.pos[planCol]]
}

func (m *materializer) row() error {
	g := m.plan.Graph
	for _, n := range g.Nodes {
		obj, err := m.entity(n)
		if err != nil {
			return err
		}
		m.ents[n.Index] = obj
	}
	root := m.ents[g.Root.Index]
	if !root.IsValid() {
		return nil
	}
	for _, n := range g.Nodes {
		if n == g.Root || n.Assoc || !m.ents[n.Index].IsValid() {
			continue
		}
		if err := m.relate(n); err != nil {
			return err
		}
	}
	return nil
}

// entity returns the object read by node n from the current row, creating
// it on first occurrence. The zero Value is returned when the node is
// absent from the row.
func (m *materializer) entity(n *sql.Node) (reflect.Value, error) {
	m.keys[n.Index] = nil
	cols := m.columns[n.Index]
	desc := n.Desc
	var id identity
	if pk := desc.PrimaryKey; pk != nil {
		if ord := m.plan.Ordinal(n, pk); ord >= 0 {
			key := m.value(ord)
			if key == nil {
				return reflect.Value{}, nil
			}
			id = identity{t: desc.Type, key: normalize(key)}
			m.keys[n.Index] = id
			if obj, ok := m.objects[id]; ok {
				m.root(n, obj)
				return obj, nil
			}
		}
	}
	if m.keys[n.Index] == nil && n != m.plan.Graph.Root {
		// Without a key, a joined entity is present when any of its
		// columns holds a value.
		present := false
		for _, i := range cols {
			present = present || m.value(i) != nil
		}
		if !present {
			return reflect.Value{}, nil
		}
	}
	obj := desc.New()
	for _, i := range cols {
		c, v := m.plan.Columns[i].Column, m.value(i)
		if err := c.Set(obj, v); err != nil {
			return reflect.Value{}, sqlmap.NewExecutionError(m.plan.Query, err)
		}
		m.pend(obj, c, v)
	}
	if m.keys[n.Index] != nil {
		m.objects[id] = obj
	}
	m.root(n, obj)
	return obj, nil
}

// root records obj as a result when n is the root node. An object first
// read through a self relation becomes a result when its own row is read.
func (m *materializer) root(n *sql.Node, obj reflect.Value) {
	if n != m.plan.Graph.Root {
		return
	}
	if k := obj.Interface(); !m.rooted[k] {
		m.rooted[k] = true
		m.roots = append(m.roots, obj)
	}
}

// pend records the single-valued relation c of obj for linking once every
// row has been read.
func (m *materializer) pend(obj reflect.Value, c *schema.Column, v any) {
	if c.Edge == nil || v == nil || m.plan.Excluded[c] {
		return
	}
	rel, err := c.Relation()
	if err != nil || rel == nil || rel.Collection() {
		return
	}
	m.links = append(m.links, link{owner: obj, col: c, target: identity{t: rel.Foreign.Type, key: normalize(v)}})
}

// relate links the object of node n to the object of the node it was
// joined from.
func (m *materializer) relate(n *sql.Node) error {
	parent := n.Parent
	var assocKey any
	if parent.Assoc {
		assocKey = m.keys[parent.Index]
		parent = parent.Parent
	}
	rel := n.Relation
	col := rel.Column
	if m.plan.Excluded[col] {
		return nil
	}
	owner, target := m.ents[parent.Index], m.ents[n.Index]
	if n.Reverse {
		owner, target = target, owner
	}
	if !owner.IsValid() || !target.IsValid() {
		return nil
	}
	if !rel.Collection() {
		return m.wrap(col.Link(owner, target))
	}
	k := collKey{owner: owner.Interface(), col: col}
	coll, ok := m.colls[k]
	if !ok {
		coll = &collection{owner: owner, col: col, seen: make(map[any]bool)}
		m.colls[k] = coll
		m.order = append(m.order, coll)
	}
	var dedup any = target.Interface()
	if assocKey != nil {
		dedup = assocKey
	}
	if coll.seen[dedup] {
		return nil
	}
	coll.seen[dedup] = true
	coll.items = append(coll.items, target)
	if rec := rel.Reciprocal; rec != nil && !m.plan.Excluded[rec] {
		return m.wrap(rec.Link(target, owner))
	}
	return nil
}

func (m *materializer) finish() error {
	for _, l := range m.links {
		target, ok := m.objects[l.target]
		if !ok {
			continue
		}
		fv, err := l.col.Related(l.owner)
		if err != nil {
			return m.wrap(err)
		}
		if fv.Kind() == reflect.Ptr && !fv.IsNil() {
			continue
		}
		if err := l.col.Link(l.owner, target); err != nil {
			return m.wrap(err)
		}
	}
	for _, c := range m.order {
		if err := c.col.Fill(c.owner, c.items); err != nil {
			return m.wrap(err)
		}
	}
	return nil
}

func (m *materializer) wrap(err error) error {
	if err == nil {
		return nil
	}
	return sqlmap.NewExecutionError(m.plan.Query, err)
}

// normalize returns a comparable form of a driver key value, so that keys
// read from primary and foreign key columns match.
func normalize(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case k >= reflect.Int && k <= reflect.Int64:
		return rv.Int()
	case k >= reflect.Uint && k <= reflect.Uint64:
		return int64(rv.Uint())
	case k == reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	return v
}
