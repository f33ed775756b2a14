// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for managing deals and moving them through the pipeline
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/client"
	"github.com/harperreed/salescrm/config"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/harperreed/salescrm/viz"
	"github.com/rs/zerolog"
)

// AddDealCommand adds a new deal.
func AddDealCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add-deal", flag.ExitOnError)
	name := fs.String("name", "", "Deal name (required)")
	company := fs.String("company", "", "Company name (looked up or created)")
	contact := fs.String("contact", "", "Contact name (must already exist)")
	amount := fs.String("amount", "", "Deal value, e.g. 12500.50 (omit when unknown)")
	stage := fs.String("stage", string(models.StageLead), "Stage ("+models.StageNames()+")")
	probability := fs.String("probability", "", "Win probability 0-100 (defaults by stage)")
	closeDate := fs.String("close", "", "Expected close date (YYYY-MM-DD)")
	notes := fs.String("notes", "", "Initial note")
	_ = fs.Parse(args)

	input := models.DealInput{Name: name, Stage: stage, CreatedBy: "cli"}
	if *amount != "" {
		v, err := strconv.ParseFloat(*amount, 64)
		if err != nil {
			return models.NewValidationError("amount", "must be a number")
		}
		input.Amount = &v
	}
	if *probability != "" {
		p, err := strconv.Atoi(*probability)
		if err != nil {
			return models.NewValidationError("probability", "must be an integer")
		}
		input.Probability = &p
	}
	if *closeDate != "" {
		input.ExpectedCloseDate = closeDate
	}

	deal, err := models.ValidateForPersist(input)
	if err != nil {
		return err
	}

	if *company != "" {
		c, err := db.FindOrCreateCompany(ctx, database, *company)
		if err != nil {
			return fmt.Errorf("failed to lookup company: %w", err)
		}
		deal.CompanyID = &c.ID
	}
	if *contact != "" {
		contacts, err := db.FindContacts(ctx, database, *contact, nil, 1)
		if err != nil {
			return fmt.Errorf("failed to lookup contact: %w", err)
		}
		if len(contacts) == 0 {
			return fmt.Errorf("contact %q: %w", *contact, models.ErrNotFound)
		}
		deal.ContactID = &contacts[0].ID
	}

	if err := db.CreateDeal(ctx, database, deal); err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}

	done("Deal created: %s (ID: %s)", deal.Name, deal.ID)
	if *company != "" {
		_, _ = fmt.Fprintf(stdout, "  Company: %s\n", *company)
	}
	if deal.Amount != nil {
		_, _ = fmt.Fprintf(stdout, "  Amount: %s\n", viz.FormatMoney(*deal.Amount))
	}
	_, _ = fmt.Fprintf(stdout, "  Stage: %s (%d%%)\n", deal.Stage, deal.Probability)

	if *notes != "" {
		note := &models.Activity{
			Type:      models.ActivityNote,
			Subject:   "Initial note",
			Body:      *notes,
			DealID:    &deal.ID,
			ContactID: deal.ContactID,
			CreatedBy: "cli",
		}
		if err := db.LogActivity(ctx, database, note); err != nil {
			_, _ = fmt.Fprintf(stdout, "  Warning: Failed to add note: %v\n", err)
		} else {
			_, _ = fmt.Fprintln(stdout, "  Note added")
		}
	}

	return nil
}

// ListDealsCommand lists deals.
func ListDealsCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("list-deals", flag.ExitOnError)
	stage := fs.String("stage", "", "Filter by stage")
	company := fs.String("company", "", "Filter by company name")
	query := fs.String("query", "", "Search deal names and descriptions")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	filter := db.DealFilter{Stage: models.Stage(*stage), Query: *query, Limit: *limit}
	if *company != "" {
		c, err := db.FindCompanyByName(ctx, database, *company)
		if err != nil {
			return fmt.Errorf("failed to lookup company: %w", err)
		}
		filter.CompanyID = &c.ID
	}

	deals, total, err := db.ListDeals(ctx, database, filter)
	if err != nil {
		return fmt.Errorf("failed to find deals: %w", err)
	}

	if len(deals) == 0 {
		_, _ = fmt.Fprintln(stdout, "No deals found")
		return nil
	}

	companyNames := make(map[uuid.UUID]string)
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCOMPANY\tAMOUNT\tSTAGE\tPROB\tID")
	_, _ = fmt.Fprintln(w, "----\t-------\t------\t-----\t----\t--")

	var sum float64
	for _, deal := range deals {
		companyName := "-"
		if deal.CompanyID != nil {
			if name, ok := companyNames[*deal.CompanyID]; ok {
				companyName = name
			} else if c, err := db.GetCompany(ctx, database, *deal.CompanyID); err == nil {
				companyNames[c.ID] = c.Name
				companyName = c.Name
			}
		}

		amountStr := "-"
		if deal.Amount != nil {
			amountStr = viz.FormatMoney(*deal.Amount)
		}
		sum += deal.AmountValue()

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			deal.Name, companyName, amountStr, deal.Stage, deal.Probability, deal.ID.String()[:8])
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(stdout, "\nShowing %d of %d deal(s) - %s\n", len(deals), total, viz.FormatMoney(sum))
	return nil
}

// MoveDealCommand moves a deal to another stage through the pipeline
// controller. With --remote the move goes to the REST API at SALESCRM_API_URL.
func MoveDealCommand(ctx context.Context, database *sql.DB, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("move-deal", flag.ExitOnError)
	remote := fs.Bool("remote", false, "Move through the REST API instead of the local database")
	_ = fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: move-deal [--remote] <id> <stage>")
	}

	dealID, err := resolveDealID(ctx, database, fs.Arg(0), *remote)
	if err != nil {
		return err
	}

	var store pipeline.RemoteStore = db.NewDealStore(database)
	if *remote {
		store = client.New(client.Config{BaseURL: cfg.APIURL, Timeout: cfg.HTTPTimeout, Log: &log})
	}

	ctrl := pipeline.NewController(store, pipeline.NewCollection(nil), log)
	if err := ctrl.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load deals: %w", err)
	}

	outcome, err := ctrl.MoveDeal(ctx, dealID, models.Stage(strings.TrimSpace(fs.Arg(1))))
	if err != nil {
		return err
	}

	switch outcome.Status {
	case pipeline.OutcomeNoop:
		done("%s is already in %s", outcome.Deal.Name, outcome.Deal.Stage)
	default:
		done("Moved %s to %s", outcome.Deal.Name, outcome.Deal.Stage)
		if outcome.RefetchErr != nil {
			_, _ = fmt.Fprintf(stdout, "  Warning: saved, but reloading the pipeline failed: %v\n", outcome.RefetchErr)
		}
	}

	var sb strings.Builder
	viz.RenderPipeline(&sb, pipeline.Summarize(ctrl.Deals().Deals()))
	_, _ = fmt.Fprint(stdout, sb.String())
	return nil
}

// resolveDealID accepts a full id or, locally, the 8-character prefix that
// list-deals prints.
func resolveDealID(ctx context.Context, database *sql.DB, raw string, remote bool) (uuid.UUID, error) {
	if id, err := uuid.Parse(raw); err == nil {
		return id, nil
	}
	if remote || len(raw) < 8 {
		return uuid.Nil, fmt.Errorf("invalid deal ID: %s", raw)
	}

	deals, err := db.AllDeals(ctx, database)
	if err != nil {
		return uuid.Nil, err
	}
	var match *uuid.UUID
	for i := range deals {
		if strings.HasPrefix(deals[i].ID.String(), strings.ToLower(raw)) {
			if match != nil {
				return uuid.Nil, fmt.Errorf("deal ID prefix %s is ambiguous", raw)
			}
			match = &deals[i].ID
		}
	}
	if match == nil {
		return uuid.Nil, fmt.Errorf("deal %s: %w", raw, models.ErrNotFound)
	}
	return *match, nil
}

// DeleteDealCommand deletes a deal.
func DeleteDealCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("delete-deal", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) != 1 {
		return fmt.Errorf("usage: delete-deal <id>")
	}

	dealID, err := resolveDealID(ctx, database, fs.Arg(0), false)
	if err != nil {
		return err
	}

	if err := db.DeleteDeal(ctx, database, dealID); err != nil {
		return err
	}

	done("Deleted deal: %s", dealID)
	return nil
}

// PipelineCommand prints the stage summary. With --remote the deals are
// fetched from the REST API and summarized here.
func PipelineCommand(ctx context.Context, database *sql.DB, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("pipeline", flag.ExitOnError)
	remote := fs.Bool("remote", false, "Summarize deals fetched from the REST API")
	_ = fs.Parse(args)

	var deals []models.Deal
	var err error
	if *remote {
		deals, err = client.New(client.Config{BaseURL: cfg.APIURL, Timeout: cfg.HTTPTimeout}).ListDeals(ctx)
	} else {
		deals, err = db.AllDeals(ctx, database)
	}
	if err != nil {
		return fmt.Errorf("failed to load deals: %w", err)
	}

	snap := pipeline.Summarize(deals)

	var sb strings.Builder
	sb.WriteString("PIPELINE\n")
	viz.RenderPipeline(&sb, snap)
	if snap.Unrecognized.Count > 0 {
		fmt.Fprintf(&sb, "  %-12s %d deal(s) with stages: %s\n", "Unknown", snap.Unrecognized.Count, strings.Join(snap.UnrecognizedStages, ", "))
	}
	fmt.Fprintf(&sb, "\n  Deals: %d   Open pipeline: %s   Won: %s\n", snap.TotalDeals, viz.FormatMoney(snap.TotalPipelineValue), viz.FormatMoney(snap.WonValue))
	fmt.Fprintf(&sb, "  Conversion: %.1f%%   Average won deal: %s\n", snap.ConversionRate, viz.FormatMoney(snap.AverageDealSize))

	_, _ = fmt.Fprint(stdout, sb.String())
	return nil
}
