// ABOUTME: Interactive pipeline board command
// ABOUTME: Runs the bubbletea kanban over the local database or the REST API
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/salescrm/client"
	"github.com/harperreed/salescrm/config"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/harperreed/salescrm/tui"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// BoardCommand opens the kanban board. Moves made on the board go through
// the same pipeline controller as move-deal.
func BoardCommand(ctx context.Context, database *sql.DB, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("board", flag.ExitOnError)
	remote := fs.Bool("remote", false, "Work against the REST API instead of the local database")
	_ = fs.Parse(args)

	if !term.IsTerminal(int(os.Stdin.Fd())) || !isTerminal() {
		return fmt.Errorf("board needs an interactive terminal; use 'crm pipeline' instead")
	}

	var store pipeline.RemoteStore = db.NewDealStore(database)
	if *remote {
		store = client.New(client.Config{BaseURL: cfg.APIURL, Timeout: cfg.HTTPTimeout, Log: &log})
	}
	ctrl := pipeline.NewController(store, pipeline.NewCollection(nil), log)

	p := tea.NewProgram(tui.NewModel(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("board failed: %w", err)
	}
	return nil
}
