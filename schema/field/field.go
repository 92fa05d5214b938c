package field

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Descriptor for field configuration.
type Descriptor struct {
	Name          string    // Go struct field name.
	StorageKey    string    // column name, defaults to Name.
	Info          *TypeInfo // field type info.
	Unique        bool      // primary key column.
	AutoIncrement bool      // value assigned by the database.
	Optional      bool      // nullable column.
	Indexed       bool      // column has an index.
	Filter        bool      // column takes part in query-by-example.
	Ignore        bool      // declared but not mapped.
	Default       any       // default value or func() T applied on insert.
	Enums         []string  // enum value names, in declaration order.
	Comment       string    // column comment.
	Err           error
}

// Column returns the storage column name of the field.
func (d *Descriptor) Column() string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return d.Name
}

// DefaultValue returns the insert default, calling it when declared as a
// function. ok is false when no default was declared.
func (d *Descriptor) DefaultValue() (v any, ok bool) {
	if d.Default == nil {
		return nil, false
	}
	rv := reflect.ValueOf(d.Default)
	if rv.Kind() == reflect.Func {
		return rv.Call(nil)[0].Interface(), true
	}
	return d.Default, true
}

// Builder is the fluent builder shared by all scalar field types. T is the
// Go type accepted by Default.
type Builder[T any] struct {
	desc *Descriptor
}

func newBuilder[T any](name string, t Type) *Builder[T] {
	d := &Descriptor{Name: name, Info: &TypeInfo{Type: t}}
	if name == "" {
		d.Err = errors.New("field name cannot be empty")
	}
	return &Builder[T]{desc: d}
}

// Int returns a new Field with type int.
func Int(name string) *Builder[int] { return newBuilder[int](name, TypeInt) }

// Int32 returns a new Field with type int32.
func Int32(name string) *Builder[int32] { return newBuilder[int32](name, TypeInt32) }

// Int64 returns a new Field with type int64.
func Int64(name string) *Builder[int64] { return newBuilder[int64](name, TypeInt64) }

// Uint returns a new Field with type uint.
func Uint(name string) *Builder[uint] { return newBuilder[uint](name, TypeUint) }

// Uint32 returns a new Field with type uint32.
func Uint32(name string) *Builder[uint32] { return newBuilder[uint32](name, TypeUint32) }

// Uint64 returns a new Field with type uint64.
func Uint64(name string) *Builder[uint64] { return newBuilder[uint64](name, TypeUint64) }

// Float returns a new Field with type float64.
func Float(name string) *Builder[float64] { return newBuilder[float64](name, TypeFloat64) }

// Float32 returns a new Field with type float32.
func Float32(name string) *Builder[float32] { return newBuilder[float32](name, TypeFloat32) }

// String returns a new Field with type string.
func String(name string) *Builder[string] { return newBuilder[string](name, TypeString) }

// Bool returns a new Field with type bool.
func Bool(name string) *Builder[bool] { return newBuilder[bool](name, TypeBool) }

// Time returns a new Field with type time.Time.
func Time(name string) *Builder[time.Time] { return newBuilder[time.Time](name, TypeTime) }

// Duration returns a new Field with type time.Duration. Durations are
// stored as total milliseconds.
func Duration(name string) *Builder[time.Duration] {
	return newBuilder[time.Duration](name, TypeDuration)
}

// UUID returns a new Field with type uuid.UUID.
func UUID(name string) *Builder[uuid.UUID] { return newBuilder[uuid.UUID](name, TypeUUID) }

// Bytes returns a new Field with type []byte.
func Bytes(name string) *Builder[[]byte] { return newBuilder[[]byte](name, TypeBytes) }

// Strings returns a new Field with type []string. The values are stored in
// one column, joined by semicolons.
func Strings(name string) *Builder[[]string] { return newBuilder[[]string](name, TypeStrings) }

// StorageKey sets the column name of the field.
func (b *Builder[T]) StorageKey(key string) *Builder[T] {
	b.desc.StorageKey = key
	return b
}

// Unique marks the field as the primary key of the entity.
func (b *Builder[T]) Unique() *Builder[T] {
	b.desc.Unique = true
	return b
}

// AutoIncrement marks the field as assigned by the database on insert.
func (b *Builder[T]) AutoIncrement() *Builder[T] {
	if !b.desc.Info.Type.Integer() {
		b.desc.Err = fmt.Errorf("field %q: AutoIncrement requires an integer type, got %s", b.desc.Name, b.desc.Info.Type)
	}
	b.desc.AutoIncrement = true
	return b
}

// Optional marks the column as nullable.
func (b *Builder[T]) Optional() *Builder[T] {
	b.desc.Optional = true
	return b
}

// Indexed marks the column as indexed.
func (b *Builder[T]) Indexed() *Builder[T] {
	b.desc.Indexed = true
	return b
}

// Filter marks the column as a query-by-example filter.
func (b *Builder[T]) Filter() *Builder[T] {
	b.desc.Filter = true
	return b
}

// Ignore declares the field without mapping it to a column.
func (b *Builder[T]) Ignore() *Builder[T] {
	b.desc.Ignore = true
	return b
}

// Default sets the value used on insert when the field holds its zero value.
func (b *Builder[T]) Default(v T) *Builder[T] {
	b.desc.Default = v
	return b
}

// DefaultFunc sets a function producing the insert default.
func (b *Builder[T]) DefaultFunc(fn func() T) *Builder[T] {
	b.desc.Default = fn
	return b
}

// Comment sets the comment of the field.
func (b *Builder[T]) Comment(c string) *Builder[T] {
	b.desc.Comment = c
	return b
}

// Descriptor implements the sqlmap.Field interface by returning its descriptor.
func (b *Builder[T]) Descriptor() *Descriptor {
	return b.desc
}

// EnumBuilder is the builder for enum fields. The Go struct field may be a
// string type or an integer type.
type EnumBuilder struct {
	desc *Descriptor
}

// Enum returns a new Field with type enum.
func Enum(name string) *EnumBuilder {
	return &EnumBuilder{desc: newBuilder[string](name, TypeEnum).desc}
}

// Values sets the names of the enum values. For integer-backed enums the
// name at position i is the string form of the value i.
func (b *EnumBuilder) Values(names ...string) *EnumBuilder {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			b.desc.Err = fmt.Errorf("field %q: empty enum value", b.desc.Name)
		}
		if _, ok := seen[n]; ok {
			b.desc.Err = fmt.Errorf("field %q: duplicate enum value %q", b.desc.Name, n)
		}
		seen[n] = struct{}{}
	}
	b.desc.Enums = append(b.desc.Enums, names...)
	return b
}

// StorageKey sets the column name of the field.
func (b *EnumBuilder) StorageKey(key string) *EnumBuilder {
	b.desc.StorageKey = key
	return b
}

// Optional marks the column as nullable.
func (b *EnumBuilder) Optional() *EnumBuilder {
	b.desc.Optional = true
	return b
}

// Indexed marks the column as indexed.
func (b *EnumBuilder) Indexed() *EnumBuilder {
	b.desc.Indexed = true
	return b
}

// Filter marks the column as a query-by-example filter.
func (b *EnumBuilder) Filter() *EnumBuilder {
	b.desc.Filter = true
	return b
}

// Default sets the insert default of the field.
func (b *EnumBuilder) Default(v any) *EnumBuilder {
	b.desc.Default = v
	return b
}

// Comment sets the comment of the field.
func (b *EnumBuilder) Comment(c string) *EnumBuilder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the sqlmap.Field interface by returning its descriptor.
func (b *EnumBuilder) Descriptor() *Descriptor {
	return b.desc
}

// EnumName returns the declared name of the enum value v, or "" when v is not
// an integer in range of the declared values.
func (d *Descriptor) EnumName(v int64) string {
	if v < 0 || v >= int64(len(d.Enums)) {
		return ""
	}
	return d.Enums[v]
}
