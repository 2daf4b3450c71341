// Command lap-pace imports practice-session lap timing into a SQLite lap
// store and compares rookies against their reference drivers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/lap-pace/internal/monitoring"
	"github.com/banshee-data/lap-pace/internal/version"
)

const defaultDB = "lap_pace.db"

var (
	showVersion = flag.Bool("version", false, "Print version information and exit")
	verbose     = flag.Bool("v", false, "Log per-stint and per-window decisions")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()
	os.Exit(run(flag.Args()))
}

// run dispatches one command and returns the process exit code. Errors are
// logged rather than fatal so deferred cleanup runs before exit.
func run(argv []string) int {
	if *showVersion {
		fmt.Println(version.String("lap-pace"))
		return 0
	}
	monitoring.SetVerbose(*verbose)

	if len(argv) < 1 {
		printUsage()
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command, args := argv[0], argv[1:]

	var err error
	switch command {
	case "import":
		err = runImport(ctx, args, os.Stdout)
	case "migrate":
		err = runMigrate(args, os.Stdout)
	case "sessions":
		err = runSessions(ctx, args, os.Stdout)
	case "run":
		err = runAnalysis(ctx, args, os.Stdout)
	case "version":
		fmt.Println(version.String("lap-pace"))
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		return 1
	}
	if err != nil {
		log.Printf("%s failed: %v", command, err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Println(`lap-pace - practice session pace comparison

Usage: lap-pace [-v] <command> [options]

Commands:
  import     Import a session's laps from CSV
               lap-pace import -db F -session FP1 -start 2025-12-05T09:30:00Z laps.csv
  migrate    Manage the lap store schema (up, down, status)
  sessions   List imported sessions
  run        Correct both sessions, compare rookies and write outputs
               lap-pace run -db F [-config pace.json] [-out DIR] [-save]
  version    Show version information
  help       Show this help message

Global Flags:
  -v         Log per-stint and per-window decisions
  -version   Print version information and exit`)
}
