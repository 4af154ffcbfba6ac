package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"booktracker/internal/config"
	"booktracker/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// Optional .env for local development; environment always wins.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "import-goodreads":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s import-goodreads <export.csv>\n", os.Args[0])
			os.Exit(1)
		}
		cfg := config.NewConfig()
		entrypoint.RunGoodreadsImport(cfg, args[0])

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve             Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  import-goodreads  Import a Goodreads library export CSV\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
