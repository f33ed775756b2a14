// ABOUTME: Conversation and coaching CLI commands
// ABOUTME: Stores transcripts, runs analysis and prints coaching advice
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/coach"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
)

// stdin is swapped by tests.
var stdin io.Reader = os.Stdin

// LogConversationCommand stores a transcript against a deal. Without --file
// the transcript is read from stdin.
func LogConversationCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("log-conversation", flag.ExitOnError)
	channel := fs.String("channel", "call", "Where it happened: call, email, meeting")
	file := fs.String("file", "", "Read the transcript from a file")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: log-conversation [--channel c] [--file f] <deal-id>")
	}
	dealID, err := resolveDealID(ctx, database, fs.Arg(0), false)
	if err != nil {
		return err
	}
	if _, err := db.GetDeal(ctx, database, dealID); err != nil {
		return err
	}

	var raw []byte
	if *file != "" {
		raw, err = os.ReadFile(*file)
	} else {
		raw, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}

	conv := &models.Conversation{
		DealID:     dealID,
		Channel:    *channel,
		Transcript: strings.TrimSpace(string(raw)),
		CreatedBy:  "cli",
	}
	if err := db.CreateConversation(ctx, database, conv); err != nil {
		return err
	}

	done("Conversation stored (ID: %s)", conv.ID)
	return nil
}

// AnalyzeCommand runs the model over a stored conversation.
func AnalyzeCommand(ctx context.Context, analyzer *coach.Analyzer, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: analyze <conversation-id>")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid conversation ID: %w", err)
	}

	analysis, err := analyzer.AnalyzeConversation(ctx, id)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Summary: %s\n", analysis.Summary)
	if analysis.Sentiment != "" {
		_, _ = fmt.Fprintf(stdout, "Sentiment: %s\n", analysis.Sentiment)
	}
	printList("Key points", analysis.KeyPoints)
	printList("Objections", analysis.Objections)
	printList("Next steps", analysis.NextSteps)
	if analysis.RecommendedStage != "" {
		_, _ = fmt.Fprintf(stdout, "Recommended stage: %s (use move-deal to apply)\n", analysis.RecommendedStage)
	}
	if analysis.WinProbability != nil {
		_, _ = fmt.Fprintf(stdout, "Win probability: %d%%\n", *analysis.WinProbability)
	}
	return nil
}

// CoachCommand prints coaching advice for a deal.
func CoachCommand(ctx context.Context, database *sql.DB, analyzer *coach.Analyzer, args []string) error {
	fs := flag.NewFlagSet("coach", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: coach <deal-id>")
	}
	dealID, err := resolveDealID(ctx, database, fs.Arg(0), false)
	if err != nil {
		return err
	}

	advice, err := analyzer.CoachDeal(ctx, dealID)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(stdout, advice.Advice)
	return nil
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintf(stdout, "%s:\n", title)
	for _, item := range items {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", item)
	}
}
