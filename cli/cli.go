// ABOUTME: Shared helpers for the CLI commands
// ABOUTME: Output writer, terminal detection and language model wiring
package cli

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/harperreed/salescrm/coach"
	"github.com/harperreed/salescrm/config"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// stdout is swapped by tests.
var stdout io.Writer = os.Stdout

// isTerminal reports whether stdout is an interactive terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// done prints a success line, with a check mark when a person is watching.
func done(format string, args ...any) {
	prefix := ""
	if isTerminal() {
		prefix = "✓ "
	}
	_, _ = fmt.Fprintf(stdout, prefix+format+"\n", args...)
}

// NewAnalyzer builds the coaching analyzer. Without an API key the analyzer
// has no model and every call reports coach.ErrUnavailable.
func NewAnalyzer(database *sql.DB, cfg *config.Config, log zerolog.Logger) *coach.Analyzer {
	var llm coach.Completer
	if cfg.LLMEnabled() {
		llm = coach.NewMessagesClient(coach.ClientConfig{
			APIKey:    cfg.LLMAPIKey,
			BaseURL:   cfg.LLMBaseURL,
			Model:     cfg.LLMModel,
			MaxTokens: cfg.LLMMaxTokens,
		})
	} else {
		log.Debug().Msg("LLM_API_KEY not set; conversation analysis disabled")
	}
	return coach.NewAnalyzer(database, llm, log)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
