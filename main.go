// ABOUTME: Entry point for the sales CRM server, board and CLI
// ABOUTME: Routes to the REST server, MCP server, kanban board or CLI commands
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/salescrm/cli"
	"github.com/harperreed/salescrm/coach"
	"github.com/harperreed/salescrm/config"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/logging"
	"github.com/rs/zerolog"
)

const version = "0.2.0"

// app bundles what every command needs once startup has succeeded.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *sql.DB
	analyzer *coach.Analyzer
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: $SALESCRM_DB_PATH or ~/.local/share/salescrm/crm.db)")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("salescrm version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: os.Stderr})
	logging.SetGlobalLogger(logger)

	args := flag.Args()
	if len(args) == 0 && !*initOnly {
		printUsage()
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to open database")
	}
	logger.Debug().Str("path", cfg.DatabasePath).Msg("Database opened")

	if *initOnly {
		_ = database.Close()
		fmt.Printf("Database initialized at %s\n", cfg.DatabasePath)
		os.Exit(0)
	}

	a := &app{
		cfg:      cfg,
		log:      logger,
		db:       database,
		analyzer: cli.NewAnalyzer(database, cfg, logger),
	}

	err = a.run(ctx, args[0], args[1:])
	_ = database.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "serve":
		return cli.ServeCommand(ctx, a.db, a.analyzer, a.cfg, a.log, args)
	case "mcp":
		return cli.MCPCommand(ctx, a.db, a.analyzer, a.log)
	case "board":
		return cli.BoardCommand(ctx, a.db, a.cfg, a.log, args)
	case "crm":
		if len(args) == 0 {
			printUsage()
			return fmt.Errorf("crm requires a subcommand")
		}
		return a.runCRM(ctx, args[0], args[1:])
	case "viz":
		if len(args) == 0 {
			printUsage()
			return fmt.Errorf("viz requires a subcommand")
		}
		return a.runViz(ctx, args[0], args[1:])
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (a *app) runCRM(ctx context.Context, command string, args []string) error {
	switch command {
	// Contact commands
	case "add-contact":
		return cli.AddContactCommand(ctx, a.db, args)
	case "list-contacts":
		return cli.ListContactsCommand(ctx, a.db, args)
	case "update-contact":
		return cli.UpdateContactCommand(ctx, a.db, args)
	case "delete-contact":
		return cli.DeleteContactCommand(ctx, a.db, args)

	// Company commands
	case "add-company":
		return cli.AddCompanyCommand(ctx, a.db, args)
	case "list-companies":
		return cli.ListCompaniesCommand(ctx, a.db, args)
	case "delete-company":
		return cli.DeleteCompanyCommand(ctx, a.db, args)

	// Deal commands
	case "add-deal":
		return cli.AddDealCommand(ctx, a.db, args)
	case "list-deals":
		return cli.ListDealsCommand(ctx, a.db, args)
	case "move-deal":
		return cli.MoveDealCommand(ctx, a.db, a.cfg, a.log, args)
	case "delete-deal":
		return cli.DeleteDealCommand(ctx, a.db, args)
	case "pipeline":
		return cli.PipelineCommand(ctx, a.db, a.cfg, args)

	// Activities
	case "log-activity":
		return cli.LogActivityCommand(ctx, a.db, args)
	case "tasks":
		return cli.TasksCommand(ctx, a.db, args)
	case "complete-task":
		return cli.CompleteTaskCommand(ctx, a.db, args)

	// Conversations and coaching
	case "log-conversation":
		return cli.LogConversationCommand(ctx, a.db, args)
	case "analyze":
		return cli.AnalyzeCommand(ctx, a.analyzer, args)
	case "coach":
		return cli.CoachCommand(ctx, a.db, a.analyzer, args)

	default:
		printUsage()
		return fmt.Errorf("unknown crm command: %s", command)
	}
}

func (a *app) runViz(ctx context.Context, command string, args []string) error {
	switch command {
	case "dashboard":
		return cli.VizDashboardCommand(ctx, a.db, args)
	case "graph":
		if len(args) == 0 {
			return fmt.Errorf("viz graph requires a type (pipeline or company)")
		}
		switch args[0] {
		case "pipeline":
			return cli.VizGraphPipelineCommand(ctx, a.db, args[1:])
		case "company":
			return cli.VizGraphCompanyCommand(ctx, a.db, args[1:])
		default:
			return fmt.Errorf("unknown graph type: %s", args[0])
		}
	default:
		printUsage()
		return fmt.Errorf("unknown viz command: %s", command)
	}
}

func printUsage() {
	fmt.Printf(`salescrm v%s - Sales pipeline CRM

USAGE:
  salescrm [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/salescrm/crm.db)
  --init                 Initialize database and exit

COMMANDS:
  serve                  Start the REST API server
  mcp                    Start MCP server on stdio
  board                  Interactive pipeline board
  crm                    CRM management commands
  viz                    Visualization commands

SERVER:
  salescrm serve
    --port <n>                Listen port (default: $SALESCRM_PORT or 8080)
    --dev                     Allow any CORS origin

  salescrm board
    --remote                  Use the REST API at $SALESCRM_API_URL

CRM COMMANDS:
  salescrm crm add-contact     Add a new contact
    --name <name>             Contact name (required)
    --email <email>           Email address
    --phone <phone>           Phone number
    --company <company>       Company name
    --notes <notes>           Notes about contact

  salescrm crm list-contacts   List contacts
    --query <text>            Search by name or email
    --company <company>       Filter by company name
    --limit <n>               Max results (default: 50)

  salescrm crm update-contact [flags] <id>  Update an existing contact
  salescrm crm delete-contact <id>          Delete a contact

  salescrm crm add-company     Add a new company
    --name <name>             Company name (required)
    --domain <domain>         Company domain (e.g., acme.com)
    --industry <industry>     Industry
    --notes <notes>           Notes about company

  salescrm crm list-companies  List companies
  salescrm crm delete-company <id>

  salescrm crm add-deal        Add a new deal
    --name <name>             Deal name (required)
    --company <company>       Company name
    --contact <name>          Existing contact
    --amount <value>          Deal value, e.g. 12500.50
    --stage <stage>           Stage (default: lead)
    --probability <0-100>     Win probability (default depends on stage)
    --close <YYYY-MM-DD>      Expected close date
    --notes <notes>           Initial note

  salescrm crm list-deals      List deals
    --stage <stage>           Filter by stage
    --company <company>       Filter by company name
    --query <text>            Search names and descriptions
    --limit <n>               Max results (default: 50)

  salescrm crm move-deal [--remote] <id> <stage>  Move a deal to another stage
  salescrm crm delete-deal <id>                   Delete a deal
  salescrm crm pipeline [--remote]                Stage totals and conversion

  salescrm crm log-activity    Log a call, email, meeting, note or task
  salescrm crm tasks           List open tasks
  salescrm crm complete-task <id>

  salescrm crm log-conversation [--channel c] [--file <path>] <deal-id>  Store a transcript (stdin by default)
  salescrm crm analyze <conversation-id>                     Analyze with the language model
  salescrm crm coach <deal-id>                               Coaching advice for a deal

VIZ COMMANDS:
  salescrm viz graph pipeline    Generate deal pipeline graph
  salescrm viz graph company <id>
    --output <file>               Output file (default: stdout)
    --format <dot|svg>            Output format (default: dot)
  salescrm viz dashboard         Pipeline dashboard

STAGES:
  lead, qualified, proposal, negotiation, won, lost

EXAMPLES:
  # Add a deal
  salescrm crm add-deal --name "Enterprise License" --company "Acme Corp" --amount 50000

  # Move it forward
  salescrm crm move-deal 1a2b3c4d qualified

  # Run the API and work the board against it
  salescrm serve &
  salescrm board --remote

`, version)
}
