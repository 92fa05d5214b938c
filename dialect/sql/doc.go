// Package sql renders typed queries as SQL text and executes them over
// database/sql.
//
// # Builders
//
// Statements are built for entity types resolved by package schema:
//
//   - Selector: SELECT with joins derived from declared relations, predicates,
//     grouping, ordering and dialect specific paging
//   - InsertBuilder: batched INSERT, INSERT ALL on Oracle and INSERT ... SELECT
//   - UpdateBuilder: one UPDATE per entity, or assignments over a predicate
//   - DeleteBuilder: DELETE with a predicate or a primary key
//
// Literals are inlined in the rendered text, formatted by the dialect:
//
//	s := sql.Select[Pet]().
//	    Dialect(dialect.MustGet(dialect.MySQL)).
//	    Join(Person{}).
//	    Where(querylanguage.HasPrefix(querylanguage.F("Name"), "Re")).
//	    Page(10, 5)
//	s.String()
//	// SELECT `Pet`.`Id`, ... FROM `Pet` LEFT JOIN `Person` ON `Pet`.`OwnerId` = `Person`.`Id`
//	// WHERE `Pet`.`Name` LIKE 'Re%' LIMIT 10,5
//
// The text of a Selector is cached until the builder is mutated.
//
// # Joins
//
// DeriveJoins walks the relations between the participating entity types
// depth first, joining optional and collection relations with LEFT JOIN and
// many-to-many relations through their associative table. A table joined
// more than once is referenced by a numbered or minted alias.
//
// # Expressions
//
// Translate renders querylanguage expressions. Comparisons with NULL become
// IS NULL and IS NOT NULL, string functions become LIKE patterns and enum
// values are converted to the stored representation of the column.
//
// # Drivers
//
// Driver wraps a *sql.DB. Statement failures carry the SQL text in a
// *sqlmap.ExecutionError. Acquire bounds the connections in use and fails
// with a *sqlmap.TimeoutError. StatsDriver and DebugDriver record and log
// the executed statements.
package sql
