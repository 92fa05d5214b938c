// Package dialect describes the database backends supported by sqlmap.
//
// It defines the driver interfaces consumed by the client and the Dialect
// capability consumed by the SQL assemblers: identifier quoting, literal
// formatting, the paging strategy and the batching limits of a backend.
//
// # Supported Dialects
//
//	dialect.MySQL    = "mysql"
//	dialect.MSSQL    = "sqlserver"
//	dialect.SQLite   = "sqlite"
//	dialect.Oracle   = "oracle"
//	dialect.Access   = "access"
//	dialect.Postgres = "postgres"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Usage
//
// Looking up the capabilities of a backend:
//
//	d, err := dialect.Get(dialect.MSSQL, dialect.WithPaging(dialect.PagingFetch))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	lit, _ := d.Literal("O'Brien") // 'O''Brien'
//
// # Sub-packages
//
//   - dialect/sql: driver, expression translator and statement builders
//   - dialect/sql/sqlgraph: result materialization and error classification
package dialect
