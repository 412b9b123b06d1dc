package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands work on the migration files alone.
var offline = map[string]func(opts options) error{
	"create": func(opts options) error {
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	},
	"validate": func(opts options) error {
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	},
}

// online commands run against the configured database.
var online = map[string]func(ctx context.Context, runner *migrate.Runner, opts options) error{
	"up": func(ctx context.Context, runner *migrate.Runner, _ options) error {
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s)\n", len(applied))
		for _, v := range applied {
			fmt.Println("  ", v)
		}
		return nil
	},
	"down": func(ctx context.Context, runner *migrate.Runner, _ options) error {
		version, err := runner.Down(ctx)
		if err != nil {
			return err
		}
		fmt.Println("rolled back:", version)
		return nil
	},
	"status": func(ctx context.Context, runner *migrate.Runner, _ options) error {
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, st := range statuses {
			appliedAt := "-"
			if !st.AppliedAt.IsZero() {
				appliedAt = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, appliedAt, st.Source.Path)
		}
		return w.Flush()
	},
	"version": func(ctx context.Context, runner *migrate.Runner, opts options) error {
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return runner.MigrateTo(ctx, opts.version)
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: "+commandList())
	dir := flag.String("dir", "", "migrations directory (default: embedded for db commands, "+migrate.DefaultDir+" for create/validate)")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	opts := options{dir: *dir, name: *name, version: *version}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	if run, ok := offline[*cmd]; ok {
		if opts.dir == "" {
			opts.dir = migrate.DefaultDir
		}
		if err := run(opts); err != nil {
			fail(*cmd, err)
		}
		return
	}

	run, ok := online[*cmd]
	if !ok {
		fail(*cmd, fmt.Errorf("unknown -cmd value %q (want %s)", *cmd, commandList()))
	}
	if cfg.DB.Driver == db.DriverSQLite {
		fail(*cmd, errors.New("goose migrations target postgres; unset STOREFRONT_USE_SQLITE"))
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	var source fs.FS
	if opts.dir != "" {
		source = os.DirFS(opts.dir)
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	requireResource(ctx, logg, "migration runner", err)

	logg.Info(logg.WithField(ctx, "dir", opts.dir), "migrate ready")
	if err := run(ctx, runner, opts); err != nil {
		fail(*cmd, err)
	}
}

func commandList() string {
	names := make([]string, 0, len(offline)+len(online))
	for k := range offline {
		names = append(names, k)
	}
	for k := range online {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func fail(cmd string, err error) {
	fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", cmd, err)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
