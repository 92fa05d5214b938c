package sql

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	"github.com/syssam/sqlmap/schema"
)

// JoinKind is the kind of a SQL join.
type JoinKind uint8

// Join kinds.
const (
	InnerJoin JoinKind = iota + 1
	LeftJoin
	RightJoin
	FullJoin
)

// String returns the SQL keywords of the join kind.
func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "INNER JOIN"
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL OUTER JOIN"
	}
	return fmt.Sprintf("JoinKind(%d)", k)
}

// Node is one occurrence of an entity in the FROM clause of a statement.
// An entity type joined twice, e.g. through two relations to the same
// table, yields two nodes with distinct references.
type Node struct {
	Desc *schema.Descriptor
	// Ref is the name the table is referenced by in the statement.
	Ref string
	// Parent is the node this one was joined from. Nil for the root.
	Parent *Node
	// Relation links Parent and this node. It is owned by Parent, or by
	// this node when Reverse is set.
	Relation *schema.Relation
	Reverse  bool
	// Assoc marks the associative table of a many-to-many relation.
	Assoc bool
	// Path lists the relations followed from the root to reach the node.
	Path []string
	// Index is the position of the node in the graph.
	Index int
}

// Label returns the result label of a column read from the node.
func (n *Node) Label(c *schema.Column) string {
	return n.Ref + "." + c.Name
}

// Join is one edge of the join graph: Right is joined on
// LeftRef.LeftColumn = Right.RightColumn.
type Join struct {
	Kind          JoinKind
	Left, Right   *schema.Descriptor
	LeftColumn    *schema.Column
	RightColumn   *schema.Column
	LeftNullable  bool
	RightNullable bool
	// LeftRef references the left occurrence.
	LeftRef string
	// Index disambiguates a table joined more than once when the dialect
	// does not label result columns.
	Index int
	// Alias is minted instead of Index for dialects labelling result
	// columns with their source table.
	Alias string
	// Node is the occurrence of Right introduced by the join.
	Node *Node
}

// Ref returns the reference of the right occurrence.
func (j *Join) Ref() string {
	return j.Node.Ref
}

// JoinGraph is the FROM clause of a statement: a root node followed by
// the ordered joins introducing every other node.
type JoinGraph struct {
	Root  *Node
	Nodes []*Node
	Joins []*Join

	seen map[[2]string]bool
	refs map[string]int
}

// DeriveJoins computes the joins between the given entity types. The
// first type is the root of the statement. Relations are followed depth
// first in declaration order from each type in the order supplied. Each
// entity type is expanded once. Relations of an entity to itself are
// joined one level deep, and only for a type listed after the root: the
// root alone is never joined to itself. An edge connecting a pair of
// columns already joined is skipped.
func DeriveJoins(d dialect.Dialect, types ...any) (*JoinGraph, error) {
	if len(types) == 0 {
		return nil, &sqlmap.SchemaError{Message: "no entity to select from"}
	}
	descs := make([]*schema.Descriptor, 0, len(types))
	joined := make(map[*schema.Descriptor]bool)
	for i, t := range types {
		desc, err := schema.Of(t)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			joined[desc] = true
		}
		if !slices.Contains(descs, desc) {
			descs = append(descs, desc)
		}
	}
	g := &JoinGraph{
		seen: make(map[[2]string]bool),
		refs: make(map[string]int),
	}
	g.Root = g.add(&Node{Desc: descs[0], Ref: descs[0].Ref()})
	w := &walker{g: g, d: d, want: descs, joined: joined, expanded: make(map[reflect.Type]bool)}
	for i, desc := range descs {
		if i > 0 && g.Node(desc.Type) == nil {
			if err := w.attach(desc); err != nil {
				return nil, err
			}
		}
		if err := w.expand(g.Node(desc.Type)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Node returns the first occurrence of the entity type t.
func (g *JoinGraph) Node(t reflect.Type) *Node {
	for _, n := range g.Nodes {
		if n.Desc.Type == t {
			return n
		}
	}
	return nil
}

// Follow returns the node reached from the root by the given relation
// names. A relation joined in reverse is named by its owning entity.
func (g *JoinGraph) Follow(path []string) (*Node, bool) {
	for _, n := range g.Nodes {
		if !n.Assoc && slices.Equal(n.Path, path) {
			return n, true
		}
	}
	return nil, false
}

// MultiTable reports whether more than one table occurrence participates.
func (g *JoinGraph) MultiTable() bool {
	return len(g.Nodes) > 1
}

// SharedTables reports whether n shares its physical table with another
// entity type of the graph, or is stored in the table of another entity.
func (g *JoinGraph) SharedTables(n *Node) bool {
	if n.Desc.Shared {
		return true
	}
	for _, m := range g.Nodes {
		if m.Desc != n.Desc && m.Desc.Table == n.Desc.Table {
			return true
		}
	}
	return false
}

func (g *JoinGraph) add(n *Node) *Node {
	n.Index = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	g.refs[n.Desc.Ref()]++
	return n
}

// pair returns the unordered key of a join condition.
func pair(l, r *schema.Column) [2]string {
	a := l.Entity.Table + "." + l.Name
	b := r.Entity.Table + "." + r.Name
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

type walker struct {
	g        *JoinGraph
	d        dialect.Dialect
	want     []*schema.Descriptor
	joined   map[*schema.Descriptor]bool
	expanded map[reflect.Type]bool
}

func (w *walker) wanted(d *schema.Descriptor) bool {
	return slices.Contains(w.want, d)
}

// expand joins every wanted relation target of n, then expands the targets.
func (w *walker) expand(n *Node) error {
	if w.expanded[n.Desc.Type] {
		return nil
	}
	w.expanded[n.Desc.Type] = true
	for _, c := range n.Desc.Edges {
		rel, err := c.Relation()
		if err != nil {
			return err
		}
		if !w.wanted(rel.Foreign) || rel.Foreign == n.Desc && !w.joined[n.Desc] {
			continue
		}
		child, err := w.join(n, rel, false)
		if err != nil {
			return err
		}
		if child == nil {
			continue
		}
		if err := w.expand(child); err != nil {
			return err
		}
	}
	return nil
}

// attach joins a wanted entity not reachable from the nodes so far through
// one of its own relations to a joined node.
func (w *walker) attach(desc *schema.Descriptor) error {
	for _, c := range desc.Edges {
		rel, err := c.Relation()
		if err != nil {
			return err
		}
		parent := w.g.Node(rel.Foreign.Type)
		if parent == nil {
			continue
		}
		n, err := w.join(parent, rel, true)
		if err != nil {
			return err
		}
		if n != nil {
			return nil
		}
	}
	return &sqlmap.SchemaError{Type: desc.Name, Message: fmt.Sprintf("no relation joins %s to %s", desc.Name, w.g.Root.Desc.Name)}
}

// join adds the edges of rel starting at from and returns the node of the
// far side, or nil when the edges were already joined. For a reverse join
// rel is owned by the far side and targets from.
func (w *walker) join(from *Node, rel *schema.Relation, reverse bool) (*Node, error) {
	far := rel.Foreign
	if reverse {
		far = rel.Primary
	}
	if rel.Kind != schema.ManyToMany {
		l, r := rel.PrimaryID, rel.ForeignID
		if reverse {
			l, r = r, l
		}
		key := pair(l, r)
		if w.g.seen[key] {
			return nil, nil
		}
		w.g.seen[key] = true
		kind := LeftJoin
		if !reverse && rel.Kind == schema.OneToOne && !rel.Optional() {
			kind = InnerJoin
		}
		n := w.node(from, far, rel, reverse, false)
		w.edge(kind, from, n, l, r, rel, reverse)
		return n, nil
	}
	// Many-to-many: from -> associative table -> far side.
	fromID, farID := rel.PrimaryID, rel.ForeignID
	toFrom, toFar := rel.AssocPrimary, rel.AssocForeign
	if reverse {
		fromID, farID = farID, fromID
		toFrom, toFar = toFar, toFrom
	}
	key := pair(fromID, toFrom)
	if w.g.seen[key] {
		return nil, nil
	}
	w.g.seen[key] = true
	w.g.seen[pair(toFar, farID)] = true
	assoc := w.node(from, rel.Assoc, rel, reverse, true)
	w.edge(LeftJoin, from, assoc, fromID, toFrom, rel, reverse)
	n := w.node(assoc, far, rel, reverse, false)
	w.edge(LeftJoin, assoc, n, toFar, farID, rel, reverse)
	return n, nil
}

func (w *walker) node(parent *Node, desc *schema.Descriptor, rel *schema.Relation, reverse, assoc bool) *Node {
	path := slices.Clone(parent.Path)
	if !parent.Assoc {
		name := rel.Column.Field
		if rel.Column.Edge != nil {
			name = rel.Column.Edge.Name
		}
		if reverse {
			name = desc.Name
		}
		path = append(path, name)
	}
	return w.g.add(&Node{
		Desc:     desc,
		Ref:      desc.Ref(),
		Parent:   parent,
		Relation: rel,
		Reverse:  reverse,
		Assoc:    assoc,
		Path:     path,
	})
}

func (w *walker) edge(kind JoinKind, from, to *Node, l, r *schema.Column, rel *schema.Relation, reverse bool) {
	j := &Join{
		Kind:          kind,
		Left:          from.Desc,
		Right:         to.Desc,
		LeftColumn:    l,
		RightColumn:   r,
		LeftNullable:  l.Nullable,
		RightNullable: r.Nullable,
		LeftRef:       from.Ref,
		Node:          to,
	}
	if !reverse && rel.Kind != schema.ManyToMany {
		j.LeftNullable, j.RightNullable = rel.PrimaryNullable, rel.ForeignNullable
	}
	// The table is already bound to another occurrence.
	if uses := w.g.refs[to.Desc.Ref()]; uses > 1 {
		if w.d != nil && w.d.SelectUsingAs() {
			j.Alias = w.mint(to)
			to.Ref = j.Alias
		} else {
			j.Index = uses - 1
			to.Ref = to.Desc.Ref() + strconv.Itoa(j.Index)
		}
	}
	w.g.Joins = append(w.g.Joins, j)
}

// mint returns an unused alias derived from the path of n.
func (w *walker) mint(n *Node) string {
	base := n.Desc.Ref()
	if len(n.Path) > 0 {
		base += "_" + strings.Join(n.Path, "_")
	}
	alias := base
	for i := 2; w.used(alias); i++ {
		alias = base + strconv.Itoa(i)
	}
	return alias
}

func (w *walker) used(ref string) bool {
	for _, n := range w.g.Nodes {
		if n.Ref == ref {
			return true
		}
	}
	return false
}
