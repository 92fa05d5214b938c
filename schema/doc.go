// Package schema resolves entity declarations into the descriptors used to
// build statements and materialize results.
//
// Resolve (or For) reads the fields, edges and mixins declared by an entity
// once and caches the resulting Descriptor for the lifetime of the process.
// Relation descriptors are derived lazily from relation-bearing columns:
//
//	d, err := schema.For[Person]()
//	pets, _ := d.Field("Pets")
//	rel, err := pets.Relation() // OneToMany, joined on Pet.OwnerId
//
// Table names default to the Go type name. Entities may rename their table
// (sqlmap.Tabler), declare an alias (sqlmap.Aliaser) or map onto the table of
// another entity (sqlmap.Sharer). SetNaming switches the default strategy:
//
//	schema.SetNaming(schema.Pluralize) // Person -> people
package schema
