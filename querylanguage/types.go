package querylanguage

import (
	"time"

	"github.com/google/uuid"
)

// Ordered is the set of value types that support range comparisons.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~string
}

// StringField is a string column of the entity T.
//
//	var PersonName = querylanguage.StringField[Person]("Name")
//	PersonName.HasPrefix("Foo")
type StringField[T any] string

// Field returns the column reference.
func (f StringField[T]) Field() *Field { return FieldOf[T](string(f)) }

// EQ returns a predicate to check if the field is equal to v.
func (f StringField[T]) EQ(v string) P { return EQ(f.Field(), V(v)) }

// NEQ returns a predicate to check if the field is not equal to v.
func (f StringField[T]) NEQ(v string) P { return NEQ(f.Field(), V(v)) }

// In returns a predicate to check if the field is one of vs.
func (f StringField[T]) In(vs ...string) P { return In(f.Field(), List(vs...)) }

// NotIn returns a predicate to check if the field is none of vs.
func (f StringField[T]) NotIn(vs ...string) P { return NotIn(f.Field(), List(vs...)) }

// GT returns a predicate to check if the field sorts after v.
func (f StringField[T]) GT(v string) P { return GT(f.Field(), V(v)) }

// GTE returns a predicate to check if the field sorts after or equal to v.
func (f StringField[T]) GTE(v string) P { return GTE(f.Field(), V(v)) }

// LT returns a predicate to check if the field sorts before v.
func (f StringField[T]) LT(v string) P { return LT(f.Field(), V(v)) }

// LTE returns a predicate to check if the field sorts before or equal to v.
func (f StringField[T]) LTE(v string) P { return LTE(f.Field(), V(v)) }

// Contains returns a predicate to check if the field contains s.
func (f StringField[T]) Contains(s string) P { return Contains(f.Field(), s) }

// HasPrefix returns a predicate to check if the field starts with s.
func (f StringField[T]) HasPrefix(s string) P { return HasPrefix(f.Field(), s) }

// HasSuffix returns a predicate to check if the field ends with s.
func (f StringField[T]) HasSuffix(s string) P { return HasSuffix(f.Field(), s) }

// EqualFold returns a predicate to check if the field equals s under case-folding.
func (f StringField[T]) EqualFold(s string) P { return EqualFold(f.Field(), s) }

// IsNullOrEmpty returns a predicate to check if the field is NULL or empty.
func (f StringField[T]) IsNullOrEmpty() P { return IsNullOrEmpty(f.Field()) }

// IsNull returns a predicate to check if the field is NULL.
func (f StringField[T]) IsNull() P { return EQ(f.Field(), Null) }

// NotNull returns a predicate to check if the field is not NULL.
func (f StringField[T]) NotNull() P { return NEQ(f.Field(), Null) }

// OrderedField is a numeric column of the entity T holding values of type E.
type OrderedField[T any, E Ordered] string

type (
	// IntField is an int column of the entity T.
	IntField[T any] = OrderedField[T, int]
	// Int64Field is an int64 column of the entity T.
	Int64Field[T any] = OrderedField[T, int64]
	// FloatField is a float64 column of the entity T.
	FloatField[T any] = OrderedField[T, float64]
)

// Field returns the column reference.
func (f OrderedField[T, E]) Field() *Field { return FieldOf[T](string(f)) }

// EQ returns a predicate to check if the field is equal to v.
func (f OrderedField[T, E]) EQ(v E) P { return EQ(f.Field(), V(v)) }

// NEQ returns a predicate to check if the field is not equal to v.
func (f OrderedField[T, E]) NEQ(v E) P { return NEQ(f.Field(), V(v)) }

// GT returns a predicate to check if the field is greater than v.
func (f OrderedField[T, E]) GT(v E) P { return GT(f.Field(), V(v)) }

// GTE returns a predicate to check if the field is greater than or equal to v.
func (f OrderedField[T, E]) GTE(v E) P { return GTE(f.Field(), V(v)) }

// LT returns a predicate to check if the field is less than v.
func (f OrderedField[T, E]) LT(v E) P { return LT(f.Field(), V(v)) }

// LTE returns a predicate to check if the field is less than or equal to v.
func (f OrderedField[T, E]) LTE(v E) P { return LTE(f.Field(), V(v)) }

// In returns a predicate to check if the field is one of vs.
func (f OrderedField[T, E]) In(vs ...E) P { return In(f.Field(), List(vs...)) }

// NotIn returns a predicate to check if the field is none of vs.
func (f OrderedField[T, E]) NotIn(vs ...E) P { return NotIn(f.Field(), List(vs...)) }

// IsNull returns a predicate to check if the field is NULL.
func (f OrderedField[T, E]) IsNull() P { return EQ(f.Field(), Null) }

// NotNull returns a predicate to check if the field is not NULL.
func (f OrderedField[T, E]) NotNull() P { return NEQ(f.Field(), Null) }

// Add returns the field plus v.
func (f OrderedField[T, E]) Add(v E) Expr { return Add(f.Field(), V(v)) }

// Sub returns the field minus v.
func (f OrderedField[T, E]) Sub(v E) Expr { return Sub(f.Field(), V(v)) }

// Mod returns the field modulo v.
func (f OrderedField[T, E]) Mod(v E) Expr { return Mod(f.Field(), V(v)) }

// Sum returns the aggregated sum of the field.
func (f OrderedField[T, E]) Sum() Expr { return Sum(f.Field()) }

// BoolField is a bool column of the entity T.
type BoolField[T any] string

// Field returns the column reference.
func (f BoolField[T]) Field() *Field { return FieldOf[T](string(f)) }

// EQ returns a predicate to check if the field is equal to v.
func (f BoolField[T]) EQ(v bool) P { return EQ(f.Field(), V(v)) }

// NEQ returns a predicate to check if the field is not equal to v.
func (f BoolField[T]) NEQ(v bool) P { return NEQ(f.Field(), V(v)) }

// IsNull returns a predicate to check if the field is NULL.
func (f BoolField[T]) IsNull() P { return EQ(f.Field(), Null) }

// NotNull returns a predicate to check if the field is not NULL.
func (f BoolField[T]) NotNull() P { return NEQ(f.Field(), Null) }

// TimeField is a time column of the entity T.
type TimeField[T any] string

// Field returns the column reference.
func (f TimeField[T]) Field() *Field { return FieldOf[T](string(f)) }

// EQ returns a predicate to check if the field is equal to v.
func (f TimeField[T]) EQ(v time.Time) P { return EQ(f.Field(), V(v)) }

// NEQ returns a predicate to check if the field is not equal to v.
func (f TimeField[T]) NEQ(v time.Time) P { return NEQ(f.Field(), V(v)) }

// GT returns a predicate to check if the field is after v.
func (f TimeField[T]) GT(v time.Time) P { return GT(f.Field(), V(v)) }

// GTE returns a predicate to check if the field is v or after.
func (f TimeField[T]) GTE(v time.Time) P { return GTE(f.Field(), V(v)) }

// LT returns a predicate to check if the field is before v.
func (f TimeField[T]) LT(v time.Time) P { return LT(f.Field(), V(v)) }

// LTE returns a predicate to check if the field is v or before.
func (f TimeField[T]) LTE(v time.Time) P { return LTE(f.Field(), V(v)) }

// IsNull returns a predicate to check if the field is NULL.
func (f TimeField[T]) IsNull() P { return EQ(f.Field(), Null) }

// NotNull returns a predicate to check if the field is not NULL.
func (f TimeField[T]) NotNull() P { return NEQ(f.Field(), Null) }

// EnumField is an enum column of the entity T with Go values of type E.
// Values are rendered by name or by their underlying integer depending
// on the dialect.
type EnumField[T any, E comparable] string

// Field returns the column reference.
func (f EnumField[T, E]) Field() *Field { return FieldOf[T](string(f)) }

// EQ returns a predicate to check if the field is equal to v.
func (f EnumField[T, E]) EQ(v E) P { return EQ(f.Field(), V(v)) }

// NEQ returns a predicate to check if the field is not equal to v.
func (f EnumField[T, E]) NEQ(v E) P { return NEQ(f.Field(), V(v)) }

// In returns a predicate to check if the field is one of vs.
func (f EnumField[T, E]) In(vs ...E) P { return In(f.Field(), List(vs...)) }

// NotIn returns a predicate to check if the field is none of vs.
func (f EnumField[T, E]) NotIn(vs ...E) P { return NotIn(f.Field(), List(vs...)) }

// UUIDField is a uuid column of the entity T.
type UUIDField[T any] string

// Field returns the column reference.
func (f UUIDField[T]) Field() *Field { return FieldOf[T](string(f)) }

// EQ returns a predicate to check if the field is equal to v.
func (f UUIDField[T]) EQ(v uuid.UUID) P { return EQ(f.Field(), V(v)) }

// NEQ returns a predicate to check if the field is not equal to v.
func (f UUIDField[T]) NEQ(v uuid.UUID) P { return NEQ(f.Field(), V(v)) }

// In returns a predicate to check if the field is one of vs.
func (f UUIDField[T]) In(vs ...uuid.UUID) P { return In(f.Field(), List(vs...)) }

// NotIn returns a predicate to check if the field is none of vs.
func (f UUIDField[T]) NotIn(vs ...uuid.UUID) P { return NotIn(f.Field(), List(vs...)) }

// IsNull returns a predicate to check if the field is NULL.
func (f UUIDField[T]) IsNull() P { return EQ(f.Field(), Null) }

// NotNull returns a predicate to check if the field is not NULL.
func (f UUIDField[T]) NotNull() P { return NEQ(f.Field(), Null) }
