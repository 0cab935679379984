package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/restaurant-backend/pkg/config"
	"github.com/angelmondragon/restaurant-backend/pkg/db"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
	force   bool
}

// fileCommand works on migration files and never opens the database.
type fileCommand func(opts options) error

// dbCommand runs against the configured postgres schema.
type dbCommand struct {
	destructive bool
	run         func(ctx context.Context, sqlDB *sql.DB, opts options) error
}

var fileCommands = map[string]fileCommand{
	"create": func(opts options) error {
		if opts.name == "" {
			return fmt.Errorf("missing -name for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	},
	"validate": func(opts options) error {
		var err error
		if opts.dir == "" {
			err = migrate.ValidateEmbedded()
		} else {
			err = migrate.ValidateDir(opts.dir)
		}
		if err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	},
}

var dbCommands = map[string]dbCommand{
	"up":     {run: gooseCommand("up")},
	"status": {run: gooseCommand("status")},
	"down":   {destructive: true, run: gooseCommand("down")},
	"redo":   {destructive: true, run: gooseCommand("redo")},
	"version": {destructive: true, run: func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		if opts.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	}},
}

func gooseCommand(name string) func(context.Context, *sql.DB, options) error {
	return func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		return migrate.Run(ctx, sqlDB, opts.dir, name)
	}
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	cmd := flag.String("cmd", "up", "migration command: "+strings.Join(commandNames(), "|"))
	flag.StringVar(&opts.dir, "dir", "", "migrations directory on disk; empty uses the schema embedded in the binary")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.BoolVar(&opts.force, "force", false, "allow down, redo and version outside local environments")
	flag.Parse()

	if run, ok := fileCommands[*cmd]; ok {
		if err := run(opts); err != nil {
			exitf("migrate %s: %v", *cmd, err)
		}
		return
	}
	command, ok := dbCommands[*cmd]
	if !ok {
		exitf("unknown -cmd value %q", *cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		exitf("load config: %v", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": opts.dir,
	})

	if cfg.FeatureFlags.UseSQLite {
		exitf("goose migrations target postgres; sqlite is auto-migrated at startup")
	}
	if command.destructive && !opts.force && !isLocalEnv(cfg.App.Env) {
		exitf("-cmd=%s rolls back schema in %q; rerun with -force", *cmd, cfg.App.Env)
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to obtain sql handle", err)
		os.Exit(1)
	}

	logg.Info(ctx, "running migrations")
	if err := command.run(ctx, sqlDB, opts); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrations finished")
}

func isLocalEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "local", "dev", "development", "test":
		return true
	}
	return false
}

func commandNames() []string {
	names := make([]string, 0, len(fileCommands)+len(dbCommands))
	for name := range fileCommands {
		names = append(names, name)
	}
	for name := range dbCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
