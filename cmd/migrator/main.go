package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const dsnEnv = "STOREFRONT_SQL_DB"

type options struct {
	dsn        string
	migrations string
	down       bool
	steps      int
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(parseFlags(os.Args[1:])); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(2)
	}
}

func parseFlags(args []string) options {
	var o options
	fs := pflag.NewFlagSet("migrator", pflag.ExitOnError)
	fs.StringVarP(&o.dsn, "storage-path", "s", os.Getenv(dsnEnv),
		"postgres url, defaults to $"+dsnEnv)
	fs.StringVarP(&o.migrations, "migrations-path", "m", "migrations",
		"directory with *.sql migrations")
	fs.BoolVar(&o.down, "down", false, "roll back every migration")
	fs.IntVar(&o.steps, "steps", 0,
		"apply n migrations, negative n rolls back; overrides --down")
	_ = fs.Parse(args)
	return o
}

func (o options) validate() error {
	var errs []error
	if o.dsn == "" {
		errs = append(errs, errors.New("--storage-path: required"))
	}
	if o.migrations == "" {
		errs = append(errs, errors.New("--migrations-path: required"))
	}
	return errors.Join(errs...)
}

func run(o options) error {
	if err := o.validate(); err != nil {
		return err
	}

	dsn := "pgx5://" + strings.TrimPrefix(o.dsn, "postgres://")
	m, err := migrate.New("file://"+o.migrations, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	m.Log = migrateLogger{slog.With("migrations", o.migrations)}

	switch {
	case o.steps != 0:
		err = m.Steps(o.steps)
	case o.down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("no migrations to apply")
		return nil
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.Info("all migrations rolled back")
	case err != nil:
		return err
	default:
		slog.Info("migrations applied", "version", version, "dirty", dirty)
	}
	return nil
}

// migrateLogger routes migrate's progress lines to slog.
type migrateLogger struct {
	log *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool { return true }
