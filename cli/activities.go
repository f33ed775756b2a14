// ABOUTME: Activity and task CLI commands
// ABOUTME: Logs interactions against deals and contacts and lists open tasks
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

// LogActivityCommand records a call, email, meeting, note or task.
func LogActivityCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("log-activity", flag.ExitOnError)
	kind := fs.String("type", models.ActivityNote, "Activity type (call, email, meeting, note, task)")
	subject := fs.String("subject", "", "Short subject (required)")
	body := fs.String("body", "", "Details")
	deal := fs.String("deal", "", "Deal ID or 8-character prefix")
	contact := fs.String("contact", "", "Contact ID")
	due := fs.String("due", "", "Due date for tasks (YYYY-MM-DD)")
	_ = fs.Parse(args)

	activity := &models.Activity{
		Type:      *kind,
		Subject:   *subject,
		Body:      *body,
		CreatedBy: "cli",
	}

	if *deal != "" {
		id, err := resolveDealID(ctx, database, *deal, false)
		if err != nil {
			return err
		}
		activity.DealID = &id
	}
	if *contact != "" {
		id, err := uuid.Parse(*contact)
		if err != nil {
			return fmt.Errorf("invalid contact ID: %w", err)
		}
		activity.ContactID = &id
	}
	if *due != "" {
		t, err := models.ParseDate(*due)
		if err != nil {
			return models.NewValidationError("due", "use YYYY-MM-DD or RFC3339")
		}
		activity.DueAt = &t
	}

	if err := db.LogActivity(ctx, database, activity); err != nil {
		return err
	}

	done("Logged %s: %s (ID: %s)", activity.Type, activity.Subject, activity.ID)
	return nil
}

// TasksCommand lists incomplete tasks, soonest due first.
func TasksCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum results")
	_ = fs.Parse(args)

	tasks, err := db.ListActivities(ctx, database, db.ActivityFilter{OpenTasks: true, Limit: *limit})
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(stdout, "No open tasks")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DUE\tSUBJECT\tDEAL\tID")
	_, _ = fmt.Fprintln(w, "---\t-------\t----\t--")
	for _, task := range tasks {
		due := "-"
		if task.DueAt != nil {
			due = task.DueAt.Format("2006-01-02")
		}
		deal := "-"
		if task.DealID != nil {
			deal = task.DealID.String()[:8]
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", due, task.Subject, deal, task.ID.String()[:8])
	}
	_ = w.Flush()

	return nil
}

// CompleteTaskCommand marks a task done.
func CompleteTaskCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("complete-task", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: complete-task <id>")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid task ID: %w", err)
	}

	task, err := db.CompleteActivity(ctx, database, id)
	if err != nil {
		return err
	}

	done("Completed: %s", task.Subject)
	return nil
}
