// Package cmd implements the alexandria command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alexandria-ai/alexandria/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the entry point called from main. It dispatches to the
// subcommands; with no arguments it prints usage.
func Execute() error {
	if len(os.Args) < 2 {
		printHelp()
		return nil
	}

	switch os.Args[1] {
	case "version", "--version", "-v":
		printVersion()
		return nil
	case "help", "--help", "-h":
		printHelp()
		return nil
	}

	logger := initLogger()
	slog.SetDefault(logger)

	if err := checkRequiredEnv(); err != nil {
		return err
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		return runServe(logger, args)
	case "ask":
		return runAsk(logger, args)
	case "ingest":
		return runIngest(logger, args)
	case "docs":
		return runDocs(logger, args)
	case "sessions":
		return runSessions(logger, args)
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

// initLogger builds the process logger. DEBUG in the environment lowers
// the level; logs go to stderr so command output stays clean on stdout.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	return log.NewWithWriter(os.Stderr, cfg)
}

func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Alexandria requires a Gemini API key to function.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}

func printVersion() {
	fmt.Printf("alexandria v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

func printHelp() {
	fmt.Print(`alexandria - a RAG backend for your library

Usage:
  alexandria <command> [arguments]

Commands:
  serve                       start the HTTP API server
  ask [flags] <question>      ask a question from the command line
  ingest <file> [file...]     ingest text files into the index
  docs list                   list ingested documents
  docs get <hash>             show one document
  docs delete <hash>          delete a document and its chunks
  sessions list -user <id>    list a user's chat sessions
  sessions messages <id>      print a session transcript
  sessions delete <id>        delete a session
  version                     print version information
  help                        print this help

Environment:
  GEMINI_API_KEY              required, Gemini API access
  ALEXANDRIA_*                configuration overrides (see config.yaml)
  DEBUG                       enable debug logging
`)
}
