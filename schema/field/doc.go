// Package field provides fluent builders for declaring the columns of an
// entity.
//
// The builder name is the Go struct field the column is bound to. The column
// name defaults to that name and can be changed with StorageKey:
//
//	field.Int("ID").StorageKey("Id").Unique().AutoIncrement()
//	field.String("Name").Filter()
//	field.Time("Born").Optional()
//	field.Enum("Kind").Values("Cat", "Dog")
//
// # Nullability
//
// Optional marks the column nullable. The Go field is then usually a pointer,
// but any type is accepted and NULL reads leave the zero value.
//
// # Defaults
//
// Defaults are applied on insert when the Go field holds its zero value:
//
//	field.String("Status").Default("active")
//	field.Time("Created").DefaultFunc(time.Now)
package field
