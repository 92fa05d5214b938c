package schema

import (
	"fmt"

	"github.com/syssam/sqlmap"
)

// RelationKind is the kind of a relation.
type RelationKind uint8

// Relation kinds.
const (
	// OneToOne is a single-valued relation whose foreign key is stored in
	// the owning table.
	OneToOne RelationKind = iota + 1
	// OneToMany is a collection whose elements reference the owner through
	// a reciprocal OneToOne relation.
	OneToMany
	// ManyToMany is a collection linked through an associative entity.
	ManyToMany
	// Weak is a read-only single-valued relation. It is joined and loaded
	// like OneToOne, but never written.
	Weak
)

var kindNames = [...]string{
	OneToOne:   "OneToOne",
	OneToMany:  "OneToMany",
	ManyToMany: "ManyToMany",
	Weak:       "Relation",
}

// String returns the kind name.
func (k RelationKind) String() string {
	if k >= OneToOne && k <= Weak {
		return kindNames[k]
	}
	return fmt.Sprintf("RelationKind(%d)", k)
}

// Relation describes how the owner of a relation-bearing column joins its
// target.
//
// The join condition is Primary.PrimaryID = Foreign.ForeignID, except for
// ManyToMany relations which join through the associative entity:
// Primary.PrimaryID = Assoc.AssocPrimary and Assoc.AssocForeign =
// Foreign.ForeignID.
type Relation struct {
	Kind    RelationKind
	Column  *Column     // relation-bearing column of the owner.
	Primary *Descriptor // owner.
	Foreign *Descriptor // target.

	PrimaryID *Column // owner side of the join condition.
	ForeignID *Column // target side of the join condition.

	// Reciprocal is the OneToOne relation of the target pointing back to
	// the owner of a OneToMany relation.
	Reciprocal *Column

	Assoc        *Descriptor // associative entity of a ManyToMany relation.
	AssocPrimary *Column     // associative column referencing the owner.
	AssocForeign *Column     // associative column referencing the target.

	PrimaryNullable bool
	ForeignNullable bool
}

// Collection reports whether the relation is collection-valued.
func (r *Relation) Collection() bool {
	return r.Kind == OneToMany || r.Kind == ManyToMany
}

// Optional reports whether the owner may exist without a related row, in
// which case joins to the target must be outer joins.
func (r *Relation) Optional() bool {
	switch r.Kind {
	case OneToOne:
		return r.PrimaryNullable
	default:
		return true
	}
}

// Self reports whether the relation targets the physical table of its owner.
func (r *Relation) Self() bool {
	return r.Primary.Table == r.Foreign.Table
}

func newRelation(c *Column) (*Relation, error) {
	owner, ed := c.Entity, c.Edge
	target, err := Resolve(ed.Target)
	if err != nil {
		return nil, &sqlmap.SchemaError{Type: owner.Name, Field: ed.Name, Message: "unresolvable relation target", Cause: err}
	}
	r := &Relation{Column: c, Primary: owner, Foreign: target}
	switch {
	case ed.Through != nil:
		r.Kind = ManyToMany
		if err := r.bindAssoc(); err != nil {
			return nil, err
		}
	case ed.Many:
		r.Kind = OneToMany
		if err := r.bindReciprocal(); err != nil {
			return nil, err
		}
	default:
		r.Kind = OneToOne
		if ed.Weak {
			r.Kind = Weak
		}
		if target.PrimaryKey == nil {
			return nil, &sqlmap.SchemaError{Type: owner.Name, Field: ed.Name, Message: fmt.Sprintf("relation target %s has no primary key", target.Name)}
		}
		r.PrimaryID, r.ForeignID = c, target.PrimaryKey
	}
	r.PrimaryNullable = r.PrimaryID.Nullable && !owner.Shared
	r.ForeignNullable = r.ForeignID.Nullable
	return r, nil
}

// bindReciprocal locates the relation of the target that points back to the
// owner of a OneToMany relation.
func (r *Relation) bindReciprocal() error {
	owner, target, ed := r.Primary, r.Foreign, r.Column.Edge
	if owner.PrimaryKey == nil {
		return &sqlmap.SchemaError{Type: owner.Name, Field: ed.Name, Message: "one-to-many relation requires a primary key"}
	}
	var rec *Column
	if ed.RefName != "" {
		c, ok := target.Field(ed.RefName)
		if !ok || c.Edge == nil || c.Edge.Many || !r.pointsTo(c, owner) {
			return &sqlmap.RelationError{Type: owner.Name, Field: ed.Name, Target: target.Name, Message: fmt.Sprintf("reciprocal relation %q not found", ed.RefName)}
		}
		rec = c
	} else {
		for _, c := range target.Edges {
			if !c.Edge.Many && r.pointsTo(c, owner) {
				rec = c
				break
			}
		}
	}
	if rec == nil {
		return &sqlmap.RelationError{Type: owner.Name, Field: ed.Name, Target: target.Name, Message: "no reciprocal relation"}
	}
	r.PrimaryID, r.ForeignID, r.Reciprocal = owner.PrimaryKey, rec, rec
	return nil
}

// bindAssoc locates the two columns of the associative entity referencing
// each side of a ManyToMany relation. For relations of an entity to itself,
// the first matching column references the owner and the second the target.
func (r *Relation) bindAssoc() error {
	owner, target, ed := r.Primary, r.Foreign, r.Column.Edge
	assoc, err := Resolve(ed.Through)
	if err != nil {
		return &sqlmap.SchemaError{Type: owner.Name, Field: ed.Name, Message: "unresolvable associative entity", Cause: err}
	}
	if owner.PrimaryKey == nil || target.PrimaryKey == nil {
		return &sqlmap.SchemaError{Type: owner.Name, Field: ed.Name, Message: "many-to-many relation requires primary keys on both sides"}
	}
	r.Assoc = assoc
	for _, c := range assoc.Edges {
		if c.Edge.Many || !c.Stored {
			continue
		}
		switch {
		case r.AssocPrimary == nil && r.pointsTo(c, owner):
			r.AssocPrimary = c
		case r.AssocForeign == nil && r.pointsTo(c, target):
			r.AssocForeign = c
		}
	}
	if r.AssocPrimary == nil || r.AssocForeign == nil {
		return &sqlmap.RelationError{Type: owner.Name, Field: ed.Name, Target: target.Name, Message: fmt.Sprintf("associative entity %s must reference both %s and %s", assoc.Name, owner.Name, target.Name)}
	}
	r.PrimaryID, r.ForeignID = owner.PrimaryKey, target.PrimaryKey
	return nil
}

// pointsTo reports whether the single-valued relation c targets d, either
// directly or through the physical table d is stored in.
func (r *Relation) pointsTo(c *Column, d *Descriptor) bool {
	if c.Edge.Target == d.Type {
		return true
	}
	table, err := TableName(c.Edge.Target)
	return err == nil && table == d.Table
}
