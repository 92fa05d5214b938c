// Command sqlmap checks database connections and lists the supported SQL
// dialects.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v3"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlmap/client"
	"github.com/syssam/sqlmap/dialect"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}
	if err := command().Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func command() *cli.Command {
	return &cli.Command{
		Name:  "sqlmap",
		Usage: "Inspect sqlmap connections and dialects",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file",
				Value:   "sqlmap.yaml",
				Sources: cli.EnvVars("SQLMAP_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "dialect",
				Usage:   "SQL dialect (overrides config)",
				Sources: cli.EnvVars("SQLMAP_DIALECT"),
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "data source name (overrides config)",
				Sources: cli.EnvVars("SQLMAP_DSN"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log every statement",
			},
		},
		Commands: []*cli.Command{
			pingCommand(),
			execCommand(),
			dialectsCommand(),
		},
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check that the configured database answers",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "give up after this long",
				Value: 5 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := open(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()
			q := "SELECT 1"
			if c.Dialect().Name() == dialect.Oracle {
				q = "SELECT 1 FROM DUAL"
			}
			start := time.Now()
			if _, err := c.Exec(ctx, q); err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "%s: ok (%s)\n", c.Dialect().Name(), time.Since(start).Round(time.Microsecond))
			return nil
		},
	}
}

func execCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Run statements in one transaction",
		ArgsUsage: "<statement>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			stmts := cmd.Args().Slice()
			if len(stmts) == 0 {
				return fmt.Errorf("no statement given")
			}
			c, err := open(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.InTx(ctx, func(tc *client.Client) error {
				for _, q := range stmts {
					res, err := tc.Exec(ctx, q)
					if err != nil {
						return err
					}
					n, err := res.RowsAffected()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.Root().Writer, "%d rows affected\n", n)
				}
				return nil
			})
		},
	}
}

func dialectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "dialects",
		Usage: "List the supported dialects and their capabilities",
		Action: func(_ context.Context, cmd *cli.Command) error {
			w := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPAGING\tBATCH\tKEYS\tFEATURES")
			for _, name := range []string{dialect.MySQL, dialect.Postgres, dialect.SQLite, dialect.MSSQL, dialect.Oracle, dialect.Access} {
				d := dialect.MustGet(name)
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", d.Name(), d.Paging(), d.MaxBatchRows(), keys(d), features(d))
			}
			return w.Flush()
		},
	}
}

// open returns a client for the configuration named by the flags.
func open(cmd *cli.Command) (*client.Client, error) {
	cfg, err := config(cmd)
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
		cfg.Debug = true
	}
	logger := slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level}))
	return client.Open(cfg, client.WithLogger(logger))
}

// config reads the configuration file, when present, and applies the
// flag overrides.
func config(cmd *cli.Command) (*client.Config, error) {
	cfg := &client.Config{}
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		loaded, err := client.LoadConfig(path)
		if loaded == nil {
			return nil, err
		}
		cfg = loaded
	} else if cmd.IsSet("config") {
		return nil, err
	}
	if v := cmd.String("dialect"); v != "" {
		cfg.Dialect = v
	}
	if v := cmd.String("dsn"); v != "" {
		cfg.DSN = v
	}
	return cfg, cfg.Validate()
}

func keys(d dialect.Dialect) string {
	switch {
	case d.SupportsReturning():
		return "RETURNING"
	case d.LastInsertIDQuery() != "":
		return d.LastInsertIDQuery()
	}
	return "-"
}

func features(d dialect.Dialect) string {
	var fs []string
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"insert-all", d.SupportsInsertAll()},
		{"enum-names", d.EnumAsString()},
		{"empty-is-null", d.EmptyStringIsNull()},
		{"like-equal-fold", d.EqualFoldLike()},
		{"nested-joins", d.ParenthesizeJoins()},
		{"labelled-columns", d.SelectUsingAs()},
	} {
		if f.on {
			fs = append(fs, f.name)
		}
	}
	if len(fs) == 0 {
		return "-"
	}
	return strings.Join(fs, ",")
}
