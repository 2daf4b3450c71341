package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/banshee-data/lap-pace/internal/config"
	"github.com/banshee-data/lap-pace/internal/export"
	"github.com/banshee-data/lap-pace/internal/fsutil"
	"github.com/banshee-data/lap-pace/internal/lapstore"
	"github.com/banshee-data/lap-pace/internal/pipeline"
	"github.com/banshee-data/lap-pace/internal/timeutil"
)

func runImport(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDB, "Lap store path")
	session := fs.String("session", "", "Session name, e.g. FP1")
	startStr := fs.String("start", "", "Session start time (RFC3339)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *session == "" {
		return errors.New("-session is required")
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one CSV file")
	}

	var start time.Time
	if *startStr != "" {
		var err error
		if start, err = time.Parse(time.RFC3339Nano, *startStr); err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	db, err := lapstore.OpenMigrated(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.ImportCSV(ctx, *session, start, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d laps into session %s\n", n, *session)
	return nil
}

func runMigrate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDB, "Lap store path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: lap-pace migrate [-db F] up|down|status")
	}

	db, err := lapstore.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action := fs.Arg(0); action {
	case "up":
		if err := db.MigrateUp(); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
	case "down":
		if err := db.MigrateDown(); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	v, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d\nDirty: %v\n", v, dirty)
	return nil
}

func runSessions(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDB, "Lap store path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := lapstore.OpenMigrated(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := db.Sessions(ctx)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Session", "Start", "Laps", "Usable", "Drivers"})
	table.SetAutoFormatHeaders(false)
	for _, s := range sessions {
		table.Append([]string{
			s.Name, s.Start.Format(time.RFC3339),
			fmt.Sprint(s.LapCount), fmt.Sprint(s.Usable), fmt.Sprint(s.Drivers),
		})
	}
	table.Render()
	return nil
}

func runAnalysis(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDB, "Lap store path")
	configPath := fs.String("config", "", "Pace config JSON (defaults apply when empty)")
	outDir := fs.String("out", "out", "Output directory")
	save := fs.Bool("save", false, "Persist the run and its corrected laps in the lap store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.DefaultPaceConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadPaceConfig(*configPath); err != nil {
			return err
		}
	}

	db, err := lapstore.OpenMigrated(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	p := pipeline.New(db, cfg, timeutil.RealClock{})
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	written, err := export.New(fsutil.OSFileSystem{}, *outDir, cfg.GetRoster()).Write(res)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d files to %s\n\n", len(written), *outDir)

	if *save {
		if err := p.Save(ctx, db, res); err != nil {
			return err
		}
	}

	export.PrintSummary(out, res)
	return nil
}
