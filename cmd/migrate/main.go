// Package main provides a CLI for running schema migrations with goose.
// Usage: migrate up
//        migrate down
//        migrate status
package main

import (
	"fmt"
	"os"
	"os/exec"

	"tillpoint/internal/config"
)

const migrationsDir = "db/migrations"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "up", "down", "status", "redo", "version":
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		fmt.Println("Error: migrations require STORAGE_DRIVER=postgres")
		os.Exit(1)
	}

	fmt.Printf("Running goose %s on %s...\n", command, migrationsDir)
	cmd := exec.Command("goose", "-dir", migrationsDir, "postgres", cfg.Storage.DatabaseURL, command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Printf("  ✗ Failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("  ✓ Done")
}

func printUsage() {
	fmt.Println(`Till schema migration CLI (requires goose on PATH)

Usage:
  migrate <command>

Commands:
  up       Apply all pending migrations
  down     Roll back the latest migration
  redo     Roll back and reapply the latest migration
  status   Show applied and pending migrations
  version  Print the current schema version
  help     Show this help

Environment:
  DATABASE_URL     Postgres connection string
  STORAGE_DRIVER   must be postgres`)
}
