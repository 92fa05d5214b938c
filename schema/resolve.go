package schema

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-openapi/inflect"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/schema/edge"
)

var (
	// cache holds the resolved descriptors, keyed by entity type.
	cache sync.Map
	// group collapses concurrent first resolutions of one type.
	group singleflight.Group

	namingMu sync.RWMutex
	naming   = Identity
)

// Naming derives a table name from a Go type name.
type Naming func(typeName string) string

// Identity keeps the Go type name as the table name.
func Identity(name string) string { return name }

// Pluralize derives snake_case plural table names, e.g. Person -> people
// and OrderItem -> order_items.
func Pluralize(name string) string {
	return inflect.Pluralize(inflect.Underscore(name))
}

// SetNaming sets the naming strategy used for entities that do not implement
// sqlmap.Tabler. It drops the resolved descriptors.
func SetNaming(n Naming) {
	namingMu.Lock()
	naming = n
	namingMu.Unlock()
	Reset()
}

// Reset drops every resolved descriptor. Descriptors are otherwise cached for
// the lifetime of the process; Reset exists for tests.
func Reset() {
	cache.Clear()
}

var entityType = reflect.TypeOf((*sqlmap.Interface)(nil)).Elem()

// For returns the descriptor of the entity type T.
func For[T any]() (*Descriptor, error) {
	return Resolve(reflect.TypeOf((*T)(nil)).Elem())
}

// Of returns the descriptor of the entity type of v, which may be a value, a
// pointer, a slice of either or a reflect.Type.
func Of(v any) (*Descriptor, error) {
	rt, ok := v.(reflect.Type)
	if !ok {
		rt = reflect.TypeOf(v)
	}
	if rt == nil {
		return nil, &sqlmap.SchemaError{Message: "nil entity"}
	}
	for rt.Kind() == reflect.Ptr || rt.Kind() == reflect.Slice {
		rt = rt.Elem()
	}
	return Resolve(rt)
}

// Resolve returns the descriptor of the entity type t, resolving it on first
// use. Concurrent first calls for one type share a single resolution.
func Resolve(t reflect.Type) (*Descriptor, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if d, ok := cache.Load(t); ok {
		return d.(*Descriptor), nil
	}
	for {
		v, err, _ := group.Do(t.PkgPath()+"."+t.String(), func() (any, error) {
			if d, ok := cache.Load(t); ok {
				return d, nil
			}
			d, err := resolve(t)
			if err != nil {
				return nil, err
			}
			actual, _ := cache.LoadOrStore(t, d)
			return actual, nil
		})
		if err != nil {
			return nil, err
		}
		// Distinct local types may share a key. Retry until the flight
		// that ran was ours.
		if d := v.(*Descriptor); d.Type == t {
			return d, nil
		}
	}
}

// IsShared reports whether t is mapped onto the table of another entity.
func IsShared(t reflect.Type) bool {
	_, ok := instance(t).(sqlmap.Sharer)
	return ok
}

// HasAlias reports whether t declares an explicit table alias.
func HasAlias(t reflect.Type) bool {
	a, ok := instance(t).(sqlmap.Aliaser)
	return ok && a.Alias() != ""
}

// TableName returns the physical table of t, following shared tables to
// their base entity.
func TableName(t reflect.Type) (string, error) {
	table, _, err := physicalTable(t)
	return table, err
}

func instance(t reflect.Type) any {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}

// physicalTable returns the table of t and, for shared tables, the base type
// owning it.
func physicalTable(t reflect.Type) (string, reflect.Type, error) {
	var base reflect.Type
	seen := map[reflect.Type]bool{}
	for {
		if seen[t] {
			return "", nil, &sqlmap.SchemaError{Type: t.Name(), Message: "cyclic shared table declaration"}
		}
		seen[t] = true
		v := instance(t)
		s, ok := v.(sqlmap.Sharer)
		if !ok {
			if tb, ok := v.(sqlmap.Tabler); ok {
				return tb.Table(), base, nil
			}
			namingMu.RLock()
			n := naming
			namingMu.RUnlock()
			return n(t.Name()), base, nil
		}
		next := reflect.TypeOf(s.Shares())
		if next == nil {
			return "", nil, &sqlmap.SchemaError{Type: t.Name(), Message: "shared table base is nil"}
		}
		for next.Kind() == reflect.Ptr {
			next = next.Elem()
		}
		t, base = next, next
	}
}

func resolve(t reflect.Type) (*Descriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, &sqlmap.SchemaError{Type: t.String(), Message: "entity must be a struct type"}
	}
	v := instance(t)
	ent, ok := v.(sqlmap.Interface)
	if !ok {
		return nil, &sqlmap.SchemaError{Type: t.Name(), Message: "type does not implement sqlmap.Interface"}
	}
	d := &Descriptor{
		Type:     t,
		Name:     t.Name(),
		byField:  make(map[string]*Column),
		byColumn: make(map[string]*Column),
	}
	table, base, err := physicalTable(t)
	if err != nil {
		return nil, err
	}
	d.Table, d.Base, d.Shared = table, base, base != nil
	if a, ok := v.(sqlmap.Aliaser); ok {
		d.Alias = a.Alias()
	}
	var fields []sqlmap.Field
	if m, ok := v.(sqlmap.Mixer); ok {
		for _, mx := range m.Mixin() {
			fields = append(fields, mx.Fields()...)
		}
	}
	fields = append(fields, ent.Fields()...)
	for _, f := range fields {
		if err := d.addField(f); err != nil {
			return nil, err
		}
	}
	for _, e := range ent.Edges() {
		if err := d.addEdge(e.Descriptor()); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Descriptor) addField(f sqlmap.Field) error {
	fd := f.Descriptor()
	if fd.Err != nil {
		return &sqlmap.SchemaError{Type: d.Name, Field: fd.Name, Cause: fd.Err}
	}
	if fd.Ignore {
		return nil
	}
	sf, ok := d.Type.FieldByName(fd.Name)
	if !ok || !sf.IsExported() {
		return &sqlmap.SchemaError{Type: d.Name, Field: fd.Name, Message: "no exported struct field with this name"}
	}
	if !fd.Info.Type.Accepts(sf.Type) {
		return &sqlmap.SchemaError{Type: d.Name, Field: fd.Name, Message: fmt.Sprintf("struct field of type %s cannot hold %s", sf.Type, fd.Info.Type)}
	}
	c := &Column{
		Name:     fd.Column(),
		Field:    fd.Name,
		Type:     fd.Info.Type,
		GoType:   sf.Type,
		Nullable: fd.Optional || sf.Type.Kind() == reflect.Ptr,
		Stored:   true,
		Entity:   d,
		Desc:     fd,
		index:    sf.Index,
	}
	if fd.Unique {
		if d.PrimaryKey != nil {
			return &sqlmap.SchemaError{Type: d.Name, Field: fd.Name, Message: "composite primary keys are not supported"}
		}
		c.Flags |= FlagPrimaryKey
		d.PrimaryKey = c
	}
	if fd.AutoIncrement {
		c.Flags |= FlagAutoIncrement
		d.AutoIncrement = c
	}
	if fd.Indexed {
		c.Flags |= FlagIndexed
	}
	if fd.Filter {
		c.Flags |= FlagFilter
	}
	return d.add(c)
}

func (d *Descriptor) addEdge(ed *edge.Descriptor) error {
	if ed.Err != nil {
		return &sqlmap.SchemaError{Type: d.Name, Field: ed.Name, Cause: ed.Err}
	}
	sf, ok := d.Type.FieldByName(ed.Name)
	if !ok || !sf.IsExported() {
		return &sqlmap.SchemaError{Type: d.Name, Field: ed.Name, Message: "no exported struct field with this name"}
	}
	if err := d.checkTarget(ed, sf.Type); err != nil {
		return err
	}
	if ed.Many {
		c := &Column{
			Field:    ed.Name,
			GoType:   sf.Type,
			Flags:    FlagRelation,
			Entity:   d,
			Edge:     ed,
			refIndex: sf.Index,
		}
		if ed.Weak {
			c.Flags |= FlagReadOnly
		}
		if _, ok := d.byField[c.Field]; ok {
			return &sqlmap.SchemaError{Type: d.Name, Field: c.Field, Message: "duplicate field"}
		}
		d.byField[c.Field] = c
		d.Edges = append(d.Edges, c)
		return nil
	}
	flags := FlagRelation | FlagForeignKey
	if ed.Weak {
		flags = FlagRelation | FlagReadOnly
	}
	// The foreign key is bound to a declared field.
	if ed.Field != "" {
		c, ok := d.byField[ed.Field]
		if !ok || c.Edge != nil || !c.Stored {
			return &sqlmap.SchemaError{Type: d.Name, Field: ed.Name, Message: fmt.Sprintf("foreign key field %q is not declared", ed.Field)}
		}
		c.Flags |= flags
		c.Edge = ed
		c.refIndex = sf.Index
		c.Nullable = c.Nullable || ed.Optional
		d.byField[ed.Name] = c
		d.Edges = append(d.Edges, c)
		return nil
	}
	c := &Column{
		Name:     ed.Column(),
		Field:    ed.Name,
		GoType:   sf.Type,
		Nullable: ed.Optional,
		Flags:    flags,
		Stored:   true,
		Entity:   d,
		Edge:     ed,
		refIndex: sf.Index,
	}
	if err := d.add(c); err != nil {
		return err
	}
	d.Edges = append(d.Edges, c)
	return nil
}

// checkTarget validates the Go field of a relation against its declaration.
func (d *Descriptor) checkTarget(ed *edge.Descriptor, ft reflect.Type) error {
	want := ft
	if ed.Many {
		if ft.Kind() != reflect.Slice {
			return &sqlmap.SchemaError{Type: d.Name, Field: ed.Name, Message: "collection relation requires a slice field"}
		}
		want = ft.Elem()
	}
	if want.Kind() == reflect.Ptr {
		want = want.Elem()
	}
	if want != ed.Target {
		return &sqlmap.SchemaError{Type: d.Name, Field: ed.Name, Message: fmt.Sprintf("struct field of type %s does not hold %s", ft, ed.Type)}
	}
	if !reflect.PointerTo(ed.Target).Implements(entityType) {
		return &sqlmap.SchemaError{Type: d.Name, Field: ed.Name, Message: fmt.Sprintf("relation target %s is not an entity", ed.Type)}
	}
	if ed.Through != nil && !reflect.PointerTo(ed.Through).Implements(entityType) {
		return &sqlmap.SchemaError{Type: d.Name, Field: ed.Name, Message: fmt.Sprintf("associative type %s is not an entity", ed.Through.Name())}
	}
	return nil
}

func (d *Descriptor) add(c *Column) error {
	if _, ok := d.byField[c.Field]; ok {
		return &sqlmap.SchemaError{Type: d.Name, Field: c.Field, Message: "duplicate field"}
	}
	if _, ok := d.byColumn[c.Name]; ok {
		return &sqlmap.SchemaError{Type: d.Name, Field: c.Field, Message: fmt.Sprintf("duplicate column %q", c.Name)}
	}
	d.byField[c.Field] = c
	d.byColumn[c.Name] = c
	d.Columns = append(d.Columns, c)
	return nil
}
