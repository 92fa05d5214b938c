package edge

import (
	"errors"
	"fmt"
	"reflect"
)

// Descriptor for edge configuration.
type Descriptor struct {
	Name       string       // Go struct field holding the related value(s).
	Type       string       // target type name.
	Target     reflect.Type // target entity type.
	Through    reflect.Type // associative entity of a many-to-many edge.
	Many       bool         // collection-valued edge.
	Weak       bool         // read-only relation.
	RefName    string       // reciprocal edge on the target.
	Field      string       // Go field bound to the foreign key, if any.
	StorageKey string       // foreign key column of a To edge.
	Optional   bool         // foreign key is nullable.
	Comment    string
	Err        error
}

// Column returns the foreign key column of a To edge.
func (d *Descriptor) Column() string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return d.Name + "Id"
}

// Builder for edges.
type Builder struct {
	desc *Descriptor
}

// To defines a single-valued relation whose foreign key is stored in the
// declaring table.
func To(name string, t any) *Builder {
	return newBuilder(name, t, false)
}

// Many defines a collection-valued relation. Without Through, the target
// must declare a To edge back to the declaring entity.
func Many(name string, t any) *Builder {
	return newBuilder(name, t, true)
}

func newBuilder(name string, t any, many bool) *Builder {
	d := &Descriptor{Name: name, Many: many}
	if name == "" {
		d.Err = errors.New("edge name cannot be empty")
	}
	rt, err := TypeOf(t)
	if err != nil {
		d.Err = fmt.Errorf("edge %q: %w", name, err)
	} else {
		d.Target, d.Type = rt, rt.Name()
	}
	return &Builder{desc: d}
}

// Through sets the associative entity of a many-to-many relation.
func (b *Builder) Through(t any) *Builder {
	if !b.desc.Many {
		b.desc.Err = fmt.Errorf("edge %q: Through requires a Many edge", b.desc.Name)
		return b
	}
	rt, err := TypeOf(t)
	if err != nil {
		b.desc.Err = fmt.Errorf("edge %q: through: %w", b.desc.Name, err)
		return b
	}
	b.desc.Through = rt
	return b
}

// Weak marks the relation as read-only. It is joined and loaded, but its
// foreign key is never written and no constraint is assumed.
func (b *Builder) Weak() *Builder {
	b.desc.Weak = true
	return b
}

// Ref names the reciprocal edge on the target entity.
func (b *Builder) Ref(name string) *Builder {
	b.desc.RefName = name
	return b
}

// Field binds the foreign key of a To edge to a declared field.
func (b *Builder) Field(name string) *Builder {
	if b.desc.Many {
		b.desc.Err = fmt.Errorf("edge %q: Field requires a To edge", b.desc.Name)
	}
	b.desc.Field = name
	return b
}

// StorageKey sets the foreign key column of a To edge.
func (b *Builder) StorageKey(key string) *Builder {
	if b.desc.Many {
		b.desc.Err = fmt.Errorf("edge %q: StorageKey requires a To edge", b.desc.Name)
	}
	b.desc.StorageKey = key
	return b
}

// Optional marks the foreign key as nullable.
func (b *Builder) Optional() *Builder {
	b.desc.Optional = true
	return b
}

// Comment sets the comment of the edge.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the sqlmap.Edge interface by returning its descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// TypeOf returns the struct type referenced by t. t is either a value of the
// type, a pointer to it, or a method expression such as Person.Type.
func TypeOf(t any) (reflect.Type, error) {
	rt := reflect.TypeOf(t)
	if rt == nil {
		return nil, errors.New("nil target type")
	}
	if rt.Kind() == reflect.Func {
		if rt.NumIn() == 0 {
			return nil, fmt.Errorf("method expression %s has no receiver", rt)
		}
		rt = rt.In(0)
	}
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("target %s is not a struct type", rt)
	}
	return rt, nil
}
