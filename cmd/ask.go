package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/alexandria-ai/alexandria/internal/app"
	"github.com/alexandria-ai/alexandria/internal/config"
	"github.com/alexandria-ai/alexandria/internal/log"
)

// runAsk answers a single question from the command line, rendering the
// answer as markdown in the terminal.
func runAsk(logger log.Logger, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	sessionID := fs.String("session", "", "session id to continue (default: new session)")
	userID := fs.String("user", "cli", "user id")
	docHash := fs.String("doc", "", "restrict retrieval to one document hash")
	plain := fs.Bool("plain", false, "print the raw answer without markdown rendering")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("usage: alexandria ask [flags] <question>")
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

	sid := *sessionID
	if sid == "" {
		sid = uuid.NewString()
	}

	reply, err := a.Chat.Respond(ctx, sid, *userID, question, *docHash)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	if *plain {
		fmt.Println(reply.Answer)
		return nil
	}

	rendered, err := glamour.Render(reply.Answer, "dark")
	if err != nil {
		// Rendering is cosmetic; fall back to the raw text.
		fmt.Println(reply.Answer)
		return nil
	}
	fmt.Print(rendered)
	fmt.Printf("session: %s\n", reply.SessionID)
	return nil
}
