package schema

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/syssam/sqlmap/schema/edge"
	"github.com/syssam/sqlmap/schema/field"
)

// Descriptor is the resolved mapping of one entity type. It is immutable once
// returned by Resolve.
type Descriptor struct {
	Type          reflect.Type // entity struct type.
	Name          string       // Go type name.
	Table         string       // physical table name.
	Alias         string       // explicit alias, if any.
	Shared        bool         // the table belongs to another entity type.
	Base          reflect.Type // owner of the shared table.
	Columns       []*Column    // stored columns, in declaration order.
	Edges         []*Column    // relation-bearing columns, in declaration order.
	PrimaryKey    *Column
	AutoIncrement *Column

	byField  map[string]*Column
	byColumn map[string]*Column
}

// String implements the fmt.Stringer interface.
func (d *Descriptor) String() string {
	return d.Name
}

// Ref returns the name used to reference the table in a statement: the
// explicit alias when one is declared, the table name otherwise.
func (d *Descriptor) Ref() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.Table
}

// Field returns the column or relation bound to the given Go field name.
func (d *Descriptor) Field(name string) (*Column, bool) {
	c, ok := d.byField[name]
	return c, ok
}

// Column returns the stored column with the given name.
func (d *Descriptor) Column(name string) (*Column, bool) {
	c, ok := d.byColumn[name]
	return c, ok
}

// Filters returns the columns flagged for query-by-example.
func (d *Descriptor) Filters() []*Column {
	var cs []*Column
	for _, c := range d.Columns {
		if c.Is(FlagFilter) {
			cs = append(cs, c)
		}
	}
	return cs
}

// New allocates a new entity and returns a pointer to it.
func (d *Descriptor) New() reflect.Value {
	return reflect.New(d.Type)
}

// Key returns the primary key value of the given entity.
func (d *Descriptor) Key(entity any) (any, error) {
	if d.PrimaryKey == nil {
		return nil, fmt.Errorf("%s has no primary key", d.Name)
	}
	return d.PrimaryKey.Get(entity)
}

// Value returns the addressable struct value behind entity, which must be
// a pointer to the entity type.
func (d *Descriptor) Value(entity any) (reflect.Value, error) {
	rv, ok := entity.(reflect.Value)
	if !ok {
		rv = reflect.ValueOf(entity)
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil %s", d.Name)
		}
		rv = rv.Elem()
	}
	if rv.Type() != d.Type {
		return reflect.Value{}, fmt.Errorf("expect %s, got %s", d.Type, rv.Type())
	}
	return rv, nil
}

// Flag describes a property of a column.
type Flag uint16

// Column flags.
const (
	FlagPrimaryKey Flag = 1 << iota
	FlagForeignKey
	FlagAutoIncrement
	FlagIndexed
	FlagRelation
	FlagFilter
	FlagReadOnly
)

// Column describes one mapped column or relation of an entity.
type Column struct {
	Name     string            // storage column name. Empty for collection relations.
	Field    string            // Go field name.
	Type     field.Type        // declared type. TypeInvalid for a hidden foreign key.
	GoType   reflect.Type      // Go type of the bound field.
	Nullable bool              // column accepts NULL.
	Flags    Flag              // column properties.
	Stored   bool              // a physical column of the table.
	Entity   *Descriptor       // owning entity.
	Desc     *field.Descriptor // declaration of a field column.
	Edge     *edge.Descriptor  // declaration of a relation.

	index    []int // scalar Go field, nil for a hidden foreign key.
	refIndex []int // object or collection Go field of a relation.

	once sync.Once
	rel  *Relation
	err  error
}

// String implements the fmt.Stringer interface.
func (c *Column) String() string {
	if c.Name == "" {
		return c.Entity.Name + "." + c.Field
	}
	return c.Entity.Name + "." + c.Name
}

// Is reports whether all of the given flags are set.
func (c *Column) Is(f Flag) bool {
	return c.Flags&f == f
}

// Default returns the insert default of the column.
func (c *Column) Default() (any, bool) {
	if c.Desc == nil {
		return nil, false
	}
	return c.Desc.DefaultValue()
}

// Enums returns the declared enum value names.
func (c *Column) Enums() []string {
	if c.Desc == nil {
		return nil
	}
	return c.Desc.Enums
}

// Relation returns the relation descriptor of a relation-bearing column.
// It is computed on first use and cached. Plain columns return nil.
func (c *Column) Relation() (*Relation, error) {
	if c.Edge == nil {
		return nil, nil
	}
	c.once.Do(func() {
		c.rel, c.err = newRelation(c)
	})
	return c.rel, c.err
}

// Get returns the column value of entity. Nil pointers and missing related
// objects yield nil. For a hidden foreign key, the value is read from the
// primary key of the related object.
func (c *Column) Get(entity any) (any, error) {
	rv, err := c.Entity.Value(entity)
	if err != nil {
		return nil, err
	}
	if c.index != nil {
		return indirect(rv.FieldByIndex(c.index)), nil
	}
	if c.refIndex == nil || c.Edge.Many {
		return nil, fmt.Errorf("column %s holds no value", c)
	}
	rel, err := c.Relation()
	if err != nil {
		return nil, err
	}
	obj := rv.FieldByIndex(c.refIndex)
	if obj.Kind() == reflect.Ptr && obj.IsNil() {
		return nil, nil
	}
	return rel.ForeignID.Get(obj)
}

// Set assigns v to the column of entity, converting driver values to the Go
// type of the field. Setting a hidden foreign key is a no-op; the related
// object is linked by the materializer instead.
func (c *Column) Set(entity, v any) error {
	rv, err := c.Entity.Value(entity)
	if err != nil {
		return err
	}
	if c.index == nil {
		return nil
	}
	if c.Type == field.TypeEnum {
		if v, err = c.enumValue(v); err != nil {
			return err
		}
	}
	fv := rv.FieldByIndex(c.index)
	if !fv.CanSet() {
		return fmt.Errorf("set %s: entity is not addressable", c)
	}
	if err := assign(fv, v); err != nil {
		return fmt.Errorf("set %s: %w", c, err)
	}
	return nil
}

// Related returns the object or collection value of a relation.
func (c *Column) Related(entity any) (reflect.Value, error) {
	rv, err := c.Entity.Value(entity)
	if err != nil {
		return reflect.Value{}, err
	}
	if c.refIndex == nil {
		return reflect.Value{}, fmt.Errorf("column %s is not a relation", c)
	}
	fv := rv.FieldByIndex(c.refIndex)
	if !fv.CanSet() {
		return reflect.Value{}, fmt.Errorf("relation %s: entity is not addressable", c)
	}
	return fv, nil
}

// Link sets a single-valued relation of entity to target, a pointer to the
// related entity. A zero target clears the relation.
func (c *Column) Link(entity any, target reflect.Value) error {
	fv, err := c.Related(entity)
	if err != nil {
		return err
	}
	if !target.IsValid() {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if fv.Kind() == reflect.Ptr {
		fv.Set(target)
	} else {
		fv.Set(target.Elem())
	}
	return nil
}

// Fill replaces the collection relation of entity with items, each a pointer
// to the related entity.
func (c *Column) Fill(entity any, items []reflect.Value) error {
	fv, err := c.Related(entity)
	if err != nil {
		return err
	}
	byPtr := fv.Type().Elem().Kind() == reflect.Ptr
	s := reflect.MakeSlice(fv.Type(), 0, len(items))
	for _, it := range items {
		if byPtr {
			s = reflect.Append(s, it)
		} else {
			s = reflect.Append(s, it.Elem())
		}
	}
	fv.Set(s)
	return nil
}

func indirect(fv reflect.Value) any {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	return fv.Interface()
}
