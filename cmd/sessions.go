package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/alexandria-ai/alexandria/internal/app"
	"github.com/alexandria-ai/alexandria/internal/config"
	"github.com/alexandria-ai/alexandria/internal/log"
)

// runSessions manages chat sessions from the command line.
func runSessions(logger log.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: alexandria sessions <list|messages|delete> [arguments]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close() //nolint:errcheck

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("sessions list", flag.ContinueOnError)
		userID := fs.String("user", "cli", "user id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		sessions, err := a.Sessions.ListByUser(ctx, *userID)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  updated %s\n", s.SessionID, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil

	case "messages":
		if len(args) < 2 {
			return fmt.Errorf("usage: alexandria sessions messages <session-id>")
		}
		msgs, err := a.Sessions.History(ctx, args[1], 0)
		if err != nil {
			return fmt.Errorf("loading transcript: %w", err)
		}
		for _, m := range msgs {
			fmt.Printf("[%d] %s: %s\n", m.SequenceNumber, m.Role, m.Content)
		}
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: alexandria sessions delete <session-id>")
		}
		if err := a.Sessions.Delete(ctx, args[1]); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
		fmt.Printf("deleted %s\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown sessions subcommand %q", args[0])
	}
}
