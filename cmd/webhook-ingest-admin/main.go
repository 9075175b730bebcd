// Command webhook-ingest-admin is an operator CLI for inspecting the
// dead letter queue and running database migrations without starting
// the ingestion service.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/buddyhq/webhook-ingest/config"
	"github.com/buddyhq/webhook-ingest/internal/bootstrap"
	"github.com/buddyhq/webhook-ingest/internal/data"
	"github.com/buddyhq/webhook-ingest/internal/service"
	"github.com/buddyhq/webhook-ingest/internal/util"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultCommandTimeout = 2 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrate,
		},
		"dlq-stats": {
			name:        "dlq-stats",
			description: "Show dead letter queue depth by event type",
			run:         runDLQStats,
		},
		"dlq-list": {
			name:        "dlq-list",
			description: "List dead-lettered deliveries, oldest first",
			run:         runDLQList,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: webhook-ingest-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(os.Stdout, "  %-12s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "maximum time to wait for migrations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runDLQStats(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("dlq-stats", flag.ContinueOnError)
	rawJSON := fs.Bool("json", false, "emit raw JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	dlq := service.NewDLQService(service.DLQServiceOptions{
		Repo:   data.NewDLQRepo(db),
		Logger: cmdCtx.Logger,
	})
	stats, err := dlq.Stats(ctx)
	if err != nil {
		return err
	}

	if *rawJSON {
		return writeJSON(os.Stdout, stats)
	}

	if err := writef(os.Stdout, "\nDead Letter Queue\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Total entries: %d\n", stats.Count); err != nil {
		return err
	}
	if stats.OldestEntry != nil {
		age := util.FormatAge(*stats.OldestEntry, time.Now())
		if err := writef(os.Stdout, "Oldest entry:  %s (%s ago)\n",
			stats.OldestEntry.Format(time.RFC3339), age); err != nil {
			return err
		}
	}
	if len(stats.ByEventType) == 0 {
		return writeln(os.Stdout, "  (queue is empty)")
	}

	kinds := make([]string, 0, len(stats.ByEventType))
	for kind := range stats.ByEventType {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "\nEVENT TYPE\tCOUNT"); err != nil {
		return err
	}
	for _, kind := range kinds {
		if err := writef(tw, "%s\t%d\n", kind, stats.ByEventType[kind]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runDLQList(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("dlq-list", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "maximum entries to show")
	offset := fs.Int("offset", 0, "entries to skip")
	rawJSON := fs.Bool("json", false, "emit raw JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	dlq := service.NewDLQService(service.DLQServiceOptions{
		Repo:   data.NewDLQRepo(db),
		Logger: cmdCtx.Logger,
	})
	entries, err := dlq.List(ctx, *limit, *offset)
	if err != nil {
		return err
	}

	if *rawJSON {
		return writeJSON(os.Stdout, entries)
	}

	if len(entries) == 0 {
		return writeln(os.Stdout, "No dead-lettered deliveries.")
	}

	now := time.Now()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "DELIVERY ID\tEVENT TYPE\tCATEGORY\tRETRIES\tAGE\tERROR"); err != nil {
		return err
	}
	for i := range entries {
		e := &entries[i]
		if err := writef(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.DeliveryID,
			e.EventType,
			e.ErrorCategory,
			e.RetryCountAtFailure,
			util.FormatAge(e.EnqueuedAt, now),
			util.Truncate(e.ErrorMessage, 60),
		); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(os.Stdout, "\nShowing %d entries (offset %d); use --limit/--offset to page.\n",
		len(entries), *offset)
}

func connectDB(cmdCtx *commandContext) (*sql.DB, error) {
	return bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
}

func closeDB(logger *slog.Logger, db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.Warn("db close failed", "error", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, line string) error {
	_, err := fmt.Fprintln(w, line)
	return err
}
