package schema

import (
	"fmt"

	"github.com/syssam/sqlmap"
)

// DependencyOrder resolves the given entities and orders them so that every
// table precedes the tables holding foreign keys to it. This is the order in
// which tables are created or filled; reverse it for drops and deletes.
// Weak relations and references to entities outside the set are ignored.
// Ties keep the order of the arguments. A cycle between two or more tables
// fails with a ConsistencyError.
func DependencyOrder(entities ...any) ([]*Descriptor, error) {
	descs := make([]*Descriptor, 0, len(entities))
	tables := make(map[string][]*Descriptor)
	for _, e := range entities {
		d, err := Of(e)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
		tables[d.Table] = append(tables[d.Table], d)
	}
	const (
		visiting = iota + 1
		done
	)
	var (
		state = make(map[*Descriptor]int, len(descs))
		order = make([]*Descriptor, 0, len(descs))
		visit func(d *Descriptor, from *Descriptor) error
	)
	visit = func(d, from *Descriptor) error {
		switch state[d] {
		case done:
			return nil
		case visiting:
			return &sqlmap.ConsistencyError{Type: from.Name, Message: fmt.Sprintf("cyclic dependency between tables %s and %s", from.Table, d.Table)}
		}
		state[d] = visiting
		for _, c := range d.Edges {
			if !c.Is(FlagForeignKey) {
				continue
			}
			table, err := TableName(c.Edge.Target)
			if err != nil {
				return err
			}
			if table == d.Table {
				continue
			}
			for _, dep := range tables[table] {
				if err := visit(dep, d); err != nil {
					return err
				}
			}
		}
		state[d] = done
		order = append(order, d)
		return nil
	}
	for _, d := range descs {
		if err := visit(d, d); err != nil {
			return nil, err
		}
	}
	return order, nil
}
