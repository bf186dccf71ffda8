package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"jokefeed/internal/config"
	"jokefeed/internal/ledger"
)

var (
	flags  = flag.NewFlagSet("migrator", flag.ExitOnError)
	dbPath = flags.String("db", "", "path to the ledger database (defaults to the configured ledger path)")
)

func main() {
	flags.Usage = usage
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		flags.Usage()
		os.Exit(1)
	}

	path := *dbPath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			if errors.Is(err, config.ErrEmptyBotToken) || errors.Is(err, config.ErrEmptyOwnerID) {
				fmt.Println("Note: bot token and owner id not required for migration")
			} else {
				fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			}
		}
		if cfg != nil {
			path = cfg.Ledger.Path
		}
	}
	if path == "" {
		path = "data/ledger.db"
	}

	switch args[0] {
	case "up":
		db, err := ledger.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		fmt.Printf("Ledger at %s migrated to schema version %d\n", path, ledger.SchemaVersion)
	case "status", "version":
		db, err := ledger.OpenRaw(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		current, err := ledger.CurrentVersion(db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read schema version: %v\n", err)
			os.Exit(1)
		}

		if args[0] == "version" {
			fmt.Println(current)
			return
		}

		fmt.Printf("Stored schema version: %d\n", current)
		fmt.Printf("Supported schema version: %d\n", ledger.SchemaVersion)
		switch {
		case current == ledger.SchemaVersion:
			fmt.Println("Status: up to date")
		case current < ledger.SchemaVersion:
			fmt.Println("Status: pending migrations (run 'up')")
		default:
			fmt.Println("Status: database is newer than this build")
		}
	default:
		flags.Usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(usagePrefix)
	flags.PrintDefaults()
	fmt.Println(usageCommands)
}

var (
	usagePrefix = `Usage: migrator [OPTIONS] COMMAND

Options:
`

	usageCommands = `
Commands:
    up        Migrate the ledger to the most recent schema version
    status    Show stored vs supported schema version
    version   Print the stored schema version
`
)
