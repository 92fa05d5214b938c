// Package entitytest declares the entities shared by the package tests.
package entitytest

import (
	"time"

	"github.com/google/uuid"

	"github.com/syssam/sqlmap"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema/edge"
	"github.com/syssam/sqlmap/schema/field"
	"github.com/syssam/sqlmap/schema/mixin"
)

// Person owns pets.
type Person struct {
	sqlmap.Schema
	ID   int
	Name string
	Pets []*Pet
}

// Mixin of the Person.
func (Person) Mixin() []sqlmap.Mixin {
	return []sqlmap.Mixin{mixin.ID{}}
}

// Fields of the Person.
func (Person) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.String("Name").Filter(),
	}
}

// Edges of the Person.
func (Person) Edges() []sqlmap.Edge {
	return []sqlmap.Edge{
		edge.Many("Pets", Pet.Type).Ref("Owner"),
	}
}

// Kind of a pet, stored by name or by value depending on the dialect.
type Kind int

// Pet kinds.
const (
	Cat Kind = iota
	Dog
)

func (k Kind) String() string {
	switch k {
	case Cat:
		return "Cat"
	case Dog:
		return "Dog"
	}
	return "Unknown"
}

// Pet belongs to an optional owner and carries tags.
type Pet struct {
	sqlmap.Schema
	ID      int
	Name    string
	Kind    Kind
	OwnerID *int
	Owner   *Person
	Tags    []*Tag
}

// Typed fields of the Pet.
var (
	PetName = ql.StringField[Pet]("Name")
	PetKind = ql.EnumField[Pet, Kind]("Kind")
)

// Fields of the Pet.
func (Pet) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.Int("ID").StorageKey("Id").Unique().AutoIncrement(),
		field.String("Name"),
		field.Enum("Kind").Values("Cat", "Dog"),
		field.Int("OwnerID").StorageKey("OwnerId").Optional(),
	}
}

// Edges of the Pet.
func (Pet) Edges() []sqlmap.Edge {
	return []sqlmap.Edge{
		edge.To("Owner", Person.Type).Field("OwnerID"),
		edge.Many("Tags", Tag.Type).Through(PetTag.Type),
	}
}

// Tag labels pets.
type Tag struct {
	sqlmap.Schema
	ID    int
	Label string
	Pets  []*Pet
}

// Fields of the Tag.
func (Tag) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.Int("ID").StorageKey("Id").Unique().AutoIncrement(),
		field.String("Label"),
	}
}

// Edges of the Tag.
func (Tag) Edges() []sqlmap.Edge {
	return []sqlmap.Edge{
		edge.Many("Pets", Pet.Type).Through(PetTag.Type),
	}
}

// PetTag associates pets and tags.
type PetTag struct {
	sqlmap.Schema
	ID  int
	Pet *Pet
	Tag *Tag
}

// Fields of the PetTag.
func (PetTag) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.Int("ID").StorageKey("Id").Unique().AutoIncrement(),
	}
}

// Edges of the PetTag.
func (PetTag) Edges() []sqlmap.Edge {
	return []sqlmap.Edge{
		edge.To("Pet", Pet.Type),
		edge.To("Tag", Tag.Type),
	}
}

// Employee references two other employees.
type Employee struct {
	sqlmap.Schema
	ID      int
	Name    string
	Manager *Employee
	Mentor  *Employee
}

// Fields of the Employee.
func (Employee) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.Int("ID").StorageKey("Id").Unique(),
		field.String("Name"),
	}
}

// Edges of the Employee.
func (Employee) Edges() []sqlmap.Edge {
	return []sqlmap.Edge{
		edge.To("Manager", Employee.Type).Optional(),
		edge.To("Mentor", Employee.Type).Optional(),
	}
}

// Animal is stored in a table shared with Hound.
type Animal struct {
	sqlmap.Schema
	ID    int
	Name  string
	Sound string
}

// Fields of the Animal.
func (Animal) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.Int("ID").StorageKey("Id").Unique(),
		field.String("Name"),
		field.String("Sound").Optional(),
	}
}

// Hound maps onto the Animal table.
type Hound struct {
	sqlmap.Schema
	ID   int
	Name string
}

// Shares the Animal table.
func (Hound) Shares() sqlmap.Interface { return Animal{} }

// Fields of the Hound.
func (Hound) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.Int("ID").StorageKey("Id").Unique(),
		field.String("Name"),
	}
}

// Document exercises every scalar column type.
type Document struct {
	sqlmap.Schema
	ID       uuid.UUID
	Title    string
	Body     []byte
	Keywords []string
	Draft    bool
	Score    float64
	Edited   time.Time
	Reading  time.Duration
	Reviewed *time.Time
}

// Table of the Document.
func (Document) Table() string { return "Documents" }

// Alias of the Document table.
func (Document) Alias() string { return "doc" }

// Fields of the Document.
func (Document) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.UUID("ID").StorageKey("Id").Unique(),
		field.String("Title").Filter(),
		field.Bytes("Body").Optional(),
		field.Strings("Keywords"),
		field.Bool("Draft").Default(true),
		field.Float("Score"),
		field.Time("Edited"),
		field.Duration("Reading"),
		field.Time("Reviewed").Optional(),
	}
}

// Event has no primary key.
type Event struct {
	sqlmap.Schema
	Name string
	At   time.Time
}

// Fields of the Event.
func (Event) Fields() []sqlmap.Field {
	return []sqlmap.Field{
		field.String("Name"),
		field.Time("At"),
	}
}
