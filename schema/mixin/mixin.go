// Package mixin provides reusable field sets for entity schemas.
//
// A mixin contributes fields ahead of the entity's own fields:
//
//	type Person struct {
//	    sqlmap.Schema
//	    ID      int
//	    Created time.Time
//	    Updated time.Time
//	    Name    string
//	}
//
//	func (Person) Mixin() []sqlmap.Mixin {
//	    return []sqlmap.Mixin{
//	        mixin.ID{},
//	        mixin.Time{},
//	    }
//	}
//
// The Go struct must declare the fields the mixins bind to.
package mixin

import (
	"time"

	"github.com/google/uuid"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/schema/field"
)

// Schema is the default implementation for the sqlmap.Mixin interface.
// It should be embedded in all custom mixin definitions.
type Schema struct{}

// Fields returns the fields of the mixin.
func (Schema) Fields() []sqlmap.Field { return nil }

// schema mixin must implement `Mixin` interface.
var _ sqlmap.Mixin = (*Schema)(nil)

// ID adds an auto-increment integer primary key bound to the Go field ID
// and stored in the column Id.
type ID struct {
	Schema
}

// Fields returns the primary key field.
func (ID) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.Int("ID").
			StorageKey("Id").
			Unique().
			AutoIncrement(),
	}
}

// UUID adds a UUID primary key bound to the Go field ID and stored in the
// column Id. Zero keys are replaced by a random UUID on insert.
type UUID struct {
	Schema
}

// Fields returns the primary key field.
func (UUID) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.UUID("ID").
			StorageKey("Id").
			Unique().
			DefaultFunc(uuid.New),
	}
}

// Tenant adds the TenantID column that privacy.TenantRule and
// privacy.TenantQueryRule compare with the viewer's tenant.
type Tenant struct {
	Schema
}

// Fields returns the tenant field.
func (Tenant) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.String("TenantID").
			StorageKey("TenantId").
			Indexed().
			Filter(),
	}
}

// Time adds Created and Updated timestamps, both defaulting to the insert
// time.
type Time struct {
	Schema
}

// Fields returns the time tracking fields.
func (Time) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.Time("Created").
			DefaultFunc(time.Now).
			Comment("Timestamp when the entity was created"),
		field.Time("Updated").
			DefaultFunc(time.Now).
			Comment("Timestamp when the entity was last written"),
	}
}

// SoftDelete adds a nullable Deleted timestamp.
type SoftDelete struct {
	Schema
}

// Fields returns the soft delete field.
func (SoftDelete) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.Time("Deleted").
			Optional().
			Filter().
			Comment("Timestamp when the entity was soft deleted (nil means not deleted)"),
	}
}

// RenameColumns wraps a mixin and rewrites the storage key of each of its
// fields with fn, which receives the current column name.
//
//	mixin.RenameColumns(mixin.Time{}, strings.ToLower)
func RenameColumns(m sqlmap.Mixin, fn func(string) string) sqlmap.Mixin {
	return columnRenamer{Mixin: m, fn: fn}
}

type columnRenamer struct {
	sqlmap.Mixin
	fn func(string) string
}

func (r columnRenamer) Fields() []sqlmap.Field {
	fields := r.Mixin.Fields()
	for i := range fields {
		desc := fields[i].Descriptor()
		desc.StorageKey = r.fn(desc.Column())
	}
	return fields
}
