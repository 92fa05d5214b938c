// Package edge provides fluent builders for declaring relations between
// entities.
//
// The builder name is the Go struct field holding the related object or
// collection. Targets are given as a method expression or a value of the
// target entity:
//
//	// One-to-one: the foreign key is stored in this table.
//	edge.To("Owner", Person.Type)
//
//	// One-to-many: Pet must declare a To edge back to Person.
//	edge.Many("Pets", Pet.Type)
//
//	// Many-to-many through an associative entity.
//	edge.Many("Tags", Tag.Type).Through(PostTag.Type)
//
//	// Read-only relation: joined and loaded, never written.
//	edge.To("Manager", Person.Type).Weak()
//
// # Foreign Keys
//
// A To edge stores its key in the column named by StorageKey, which defaults
// to the edge name followed by "Id". The key can also be bound to a declared
// field so the raw value survives when the related row is not loaded:
//
//	field.Int("OwnerID").StorageKey("OwnerId").Optional()
//	edge.To("Owner", Person.Type).Field("OwnerID")
package edge
