// ABOUTME: Company CLI commands
// ABOUTME: Human-friendly commands for managing companies
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
)

// AddCompanyCommand adds a new company
func AddCompanyCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add-company", flag.ExitOnError)
	name := fs.String("name", "", "Company name (required)")
	domain := fs.String("domain", "", "Company domain (e.g., acme.com)")
	industry := fs.String("industry", "", "Industry")
	notes := fs.String("notes", "", "Notes about the company")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	company := &models.Company{
		Name:     *name,
		Domain:   *domain,
		Industry: *industry,
		Notes:    *notes,
	}

	if err := db.CreateCompany(ctx, database, company); err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	done("Company created: %s (ID: %s)", company.Name, company.ID)
	if company.Domain != "" {
		_, _ = fmt.Fprintf(stdout, "  Domain: %s\n", company.Domain)
	}
	if company.Industry != "" {
		_, _ = fmt.Fprintf(stdout, "  Industry: %s\n", company.Industry)
	}

	return nil
}

// ListCompaniesCommand lists companies
func ListCompaniesCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("list-companies", flag.ExitOnError)
	query := fs.String("query", "", "Search by name or domain")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	companies, err := db.FindCompanies(ctx, database, *query, *limit)
	if err != nil {
		return fmt.Errorf("failed to find companies: %w", err)
	}

	if len(companies) == 0 {
		_, _ = fmt.Fprintln(stdout, "No companies found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tDOMAIN\tINDUSTRY\tID")
	_, _ = fmt.Fprintln(w, "----\t------\t--------\t--")

	for _, company := range companies {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			company.Name, orDash(company.Domain), orDash(company.Industry), company.ID.String()[:8])
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(stdout, "\nTotal: %d company(ies)\n", len(companies))
	return nil
}

// DeleteCompanyCommand deletes a company that no deal references.
func DeleteCompanyCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("delete-company", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("company ID is required")
	}

	companyID, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid company ID: %w", err)
	}

	if err := db.DeleteCompany(ctx, database, companyID); err != nil {
		return err
	}

	done("Company deleted: %s", companyID)
	return nil
}
