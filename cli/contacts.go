// ABOUTME: Contact CLI commands
// ABOUTME: Human-friendly commands for managing contacts
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

// AddContactCommand adds a new contact.
func AddContactCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add-contact", flag.ExitOnError)
	name := fs.String("name", "", "Contact name (required)")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	title := fs.String("title", "", "Job title")
	company := fs.String("company", "", "Company name")
	notes := fs.String("notes", "", "Notes about the contact")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	contact := &models.Contact{
		Name:  *name,
		Email: *email,
		Phone: *phone,
		Title: *title,
		Notes: *notes,
	}

	if *company != "" {
		c, err := db.FindOrCreateCompany(ctx, database, *company)
		if err != nil {
			return fmt.Errorf("failed to lookup company: %w", err)
		}
		contact.CompanyID = &c.ID
	}

	if err := db.CreateContact(ctx, database, contact); err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	done("Contact created: %s (ID: %s)", contact.Name, contact.ID)
	if contact.Email != "" {
		_, _ = fmt.Fprintf(stdout, "  Email: %s\n", contact.Email)
	}
	if contact.Phone != "" {
		_, _ = fmt.Fprintf(stdout, "  Phone: %s\n", contact.Phone)
	}
	if *company != "" {
		_, _ = fmt.Fprintf(stdout, "  Company: %s\n", *company)
	}

	return nil
}

// ListContactsCommand lists contacts.
func ListContactsCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("list-contacts", flag.ExitOnError)
	query := fs.String("query", "", "Search by name or email")
	company := fs.String("company", "", "Filter by company name")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	var companyID *uuid.UUID
	if *company != "" {
		c, err := db.FindCompanyByName(ctx, database, *company)
		if err != nil {
			return fmt.Errorf("failed to lookup company: %w", err)
		}
		companyID = &c.ID
	}

	contacts, err := db.FindContacts(ctx, database, *query, companyID, *limit)
	if err != nil {
		return fmt.Errorf("failed to find contacts: %w", err)
	}

	if len(contacts) == 0 {
		_, _ = fmt.Fprintln(stdout, "No contacts found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tEMAIL\tPHONE\tCOMPANY\tLAST CONTACT\tID")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----\t-------\t------------\t--")

	for _, contact := range contacts {
		companyName := "-"
		if contact.CompanyID != nil {
			if c, err := db.GetCompany(ctx, database, *contact.CompanyID); err == nil {
				companyName = c.Name
			}
		}
		lastContact := "-"
		if contact.LastContactedAt != nil {
			lastContact = contact.LastContactedAt.Format("2006-01-02")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			contact.Name, orDash(contact.Email), orDash(contact.Phone), companyName, lastContact, contact.ID.String()[:8])
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(stdout, "\nTotal: %d contact(s)\n", len(contacts))
	return nil
}

// UpdateContactCommand updates an existing contact.
func UpdateContactCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("update-contact", flag.ExitOnError)
	name := fs.String("name", "", "Contact name")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	title := fs.String("title", "", "Job title")
	company := fs.String("company", "", "Company name")
	notes := fs.String("notes", "", "Notes about the contact")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}

	contactID, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid contact ID: %w", err)
	}

	existing, err := db.GetContact(ctx, database, contactID)
	if err != nil {
		return err
	}

	if *name != "" {
		existing.Name = *name
	}
	if *email != "" {
		existing.Email = *email
	}
	if *phone != "" {
		existing.Phone = *phone
	}
	if *title != "" {
		existing.Title = *title
	}
	if *notes != "" {
		existing.Notes = *notes
	}
	if *company != "" {
		c, err := db.FindCompanyByName(ctx, database, *company)
		if err != nil {
			return fmt.Errorf("failed to lookup company: %w", err)
		}
		existing.CompanyID = &c.ID
	}

	if err := db.UpdateContact(ctx, database, existing); err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	done("Contact updated: %s (ID: %s)", existing.Name, contactID)
	return nil
}

// DeleteContactCommand deletes a contact.
func DeleteContactCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("delete-contact", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}

	contactID, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid contact ID: %w", err)
	}

	if err := db.DeleteContact(ctx, database, contactID); err != nil {
		return err
	}

	done("Contact deleted: %s", contactID)
	return nil
}
