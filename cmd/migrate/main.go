package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/migrations"
	"github.com/JaimeStill/foreman/pkg/database"
)

const usage = "usage: migrate [-config file] [-driver pgx|sqlite] [-path file] [-up|-down|-steps N|-version|-force N]"

type options struct {
	config  string
	driver  string
	path    string
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	forced  bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func parse(args []string, out io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&opts.config, "config", config.BaseConfigFile, "Config file supplying the [database] section")
	fs.StringVar(&opts.driver, "driver", "", "Database driver override (pgx or sqlite)")
	fs.StringVar(&opts.path, "path", "", "SQLite file override")
	fs.BoolVar(&opts.up, "up", false, "Apply all pending migrations")
	fs.BoolVar(&opts.down, "down", false, "Revert every migration")
	fs.IntVar(&opts.steps, "steps", 0, "Migrate N steps (negative reverts)")
	fs.BoolVar(&opts.version, "version", false, "Print the current schema version")
	fs.IntVar(&opts.force, "force", -1, "Force the recorded version without migrating")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		opts.forced = opts.forced || f.Name == "force"
	})
	return opts, nil
}

// action picks the single migration step the flags ask for. Precedence is
// version, force, up, down, steps. A nil action means print usage.
func (o *options) action() func(m *migrate.Migrate, out io.Writer) error {
	switch {
	case o.version:
		return func(m *migrate.Migrate, out io.Writer) error {
			v, dirty, err := m.Version()
			if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
				return fmt.Errorf("read version: %w", err)
			}
			fmt.Fprintf(out, "driver: %s, version: %d, dirty: %v\n", o.driver, v, dirty)
			return nil
		}
	case o.forced:
		return func(m *migrate.Migrate, out io.Writer) error {
			if err := m.Force(o.force); err != nil {
				return fmt.Errorf("force version %d: %w", o.force, err)
			}
			fmt.Fprintf(out, "forced to version %d\n", o.force)
			return nil
		}
	case o.up:
		return step("apply migrations", "migrations applied", (*migrate.Migrate).Up)
	case o.down:
		return step("revert migrations", "migrations reverted", (*migrate.Migrate).Down)
	case o.steps != 0:
		return step(
			fmt.Sprintf("migrate %d steps", o.steps),
			fmt.Sprintf("applied %d migration steps", o.steps),
			func(m *migrate.Migrate) error { return m.Steps(o.steps) },
		)
	}
	return nil
}

func step(what, done string, fn func(*migrate.Migrate) error) func(*migrate.Migrate, io.Writer) error {
	return func(m *migrate.Migrate, out io.Writer) error {
		if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("%s: %w", what, err)
		}
		fmt.Fprintln(out, done)
		return nil
	}
}

func run(args []string, out io.Writer) error {
	opts, err := parse(args, out)
	if err != nil {
		return err
	}

	act := opts.action()
	if act == nil {
		fmt.Fprintln(out, usage)
		return nil
	}

	base := &config.Config{}
	base.Database.Driver = opts.driver
	base.Database.Path = opts.path

	cfg, err := config.LoadFile(opts.config, base)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.driver != "" {
		cfg.Database.Driver = opts.driver
	}
	if opts.path != "" {
		cfg.Database.Path = opts.path
	}
	opts.driver = cfg.Database.Driver

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	m, err := migrations.New(db, cfg.Database.Driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	return act(m, out)
}
