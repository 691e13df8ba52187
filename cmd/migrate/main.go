// Command migrate manages the schema: migrate [up|down|status|to <version>|create <name>|validate].
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/serialstock/pkg/bootstrap"
	"github.com/angelmondragon/serialstock/pkg/config"
	"github.com/angelmondragon/serialstock/pkg/db"
	"github.com/angelmondragon/serialstock/pkg/migrate"
)

var errUsage = errors.New("usage: migrate [-dir path] up|down|status|to <version>|create <name>|validate")

func main() {
	_ = godotenv.Load()
	dir := flag.String("dir", migrate.SourceDir, "migration source directory for create and validate")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dir, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, dir string, args []string) error {
	if len(args) == 0 {
		args = []string{"up"}
	}
	command, rest := args[0], args[1:]

	switch command {
	case "create":
		if len(rest) != 1 {
			return errUsage
		}
		path, err := migrate.Create(dir, rest[0], time.Now())
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "validate":
		return migrate.Validate(os.DirFS(dir))
	case "up", "down", "status", "to":
	default:
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := bootstrap.NewLogger("migrate", cfg.App)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "command": command})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}
	runner, err := migrate.NewRunner(sqlDB, cfg.DB.Driver, nil)
	if err != nil {
		return err
	}

	var steps []migrate.Step
	switch command {
	case "up":
		steps, err = runner.Up(ctx)
	case "down":
		steps, err = runner.Down(ctx)
	case "to":
		if len(rest) != 1 {
			return errUsage
		}
		steps, err = runner.To(ctx, rest[0])
	case "status":
		states, statusErr := runner.Status(ctx)
		if statusErr != nil {
			return statusErr
		}
		printStatus(states)
		return nil
	}

	for _, step := range steps {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     step.Version,
			"direction":   step.Direction,
			"duration_ms": step.Duration.Milliseconds(),
		}), step.Path)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		return err
	}
	logg.Info(logg.WithField(ctx, "steps", len(steps)), "migration complete")
	return nil
}

func printStatus(states []migrate.State) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED AT\tFILE")
	for _, s := range states {
		applied := "pending"
		if s.Applied {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, applied, s.Path)
	}
	_ = tw.Flush()
}
