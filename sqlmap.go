// Package sqlmap maps Go structs to relational tables and back.
//
// A mapped type declares its columns and relations by implementing
// Interface, usually by embedding Schema and overriding Fields and Edges:
//
//	type Person struct {
//	    sqlmap.Schema
//	    ID   int
//	    Name string
//	    Pets []*Pet
//	}
//
//	func (Person) Fields() []sqlmap.Field {
//	    return []sqlmap.Field{
//	        field.Int("ID").StorageKey("Id").Unique().AutoIncrement(),
//	        field.String("Name"),
//	    }
//	}
//
//	func (Person) Edges() []sqlmap.Edge {
//	    return []sqlmap.Edge{
//	        edge.Many("Pets", Pet{}),
//	    }
//	}
//
// Queries are assembled by package dialect/sql, results are stitched back
// into object graphs by dialect/sql/sqlgraph and package client runs both
// against a database.
package sqlmap

import (
	"fmt"

	"github.com/syssam/sqlmap/schema/edge"
	"github.com/syssam/sqlmap/schema/field"
)

type (
	// Interface is implemented by every mapped entity type.
	Interface interface {
		// Fields returns the column declarations of the entity.
		Fields() []Field
		// Edges returns the relation declarations of the entity.
		Edges() []Edge
	}

	// Field is the interface implemented by the schema/field builders.
	Field interface {
		Descriptor() *field.Descriptor
	}

	// Edge is the interface implemented by the schema/edge builders.
	Edge interface {
		Descriptor() *edge.Descriptor
	}

	// Mixin is a reusable set of fields shared by several entities.
	Mixin interface {
		Fields() []Field
	}

	// Schema is the default implementation of Interface. Embed it in
	// entity structs and override only what is needed.
	Schema struct{}
)

// Fields of the entity.
func (Schema) Fields() []Field { return nil }

// Edges of the entity.
func (Schema) Edges() []Edge { return nil }

// Type is used as a type reference in edge declarations, as in
// edge.To("Owner", Person.Type).
func (Schema) Type() {}

// Optional interfaces an entity may implement to adjust its mapping.
type (
	// Tabler renames the table an entity is stored in. The default name is
	// produced by the active naming strategy (see schema.SetNaming).
	Tabler interface {
		Table() string
	}

	// Aliaser gives the table an explicit SQL alias used wherever the table
	// is referenced in a statement.
	Aliaser interface {
		Alias() string
	}

	// Sharer maps an entity onto the physical table of another entity.
	// Several Go types may share one table this way.
	Sharer interface {
		Shares() Interface
	}

	// Mixer returns the mixins whose fields are prepended to the entity's own.
	Mixer interface {
		Mixin() []Mixin
	}
)

// Op is the operation a mutation performs.
type Op uint

// Mutation operations.
const (
	OpInsert Op = 1 << iota
	OpUpdate
	OpDelete
)

// Is reports whether o matches any of the given operations.
func (i Op) Is(o Op) bool { return i&o != 0 }

// String returns the operation name.
func (i Op) String() string {
	switch i {
	case OpInsert:
		return "OpInsert"
	case OpUpdate:
		return "OpUpdate"
	case OpDelete:
		return "OpDelete"
	}
	return fmt.Sprintf("Op(%d)", uint(i))
}
