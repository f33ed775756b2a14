// ABOUTME: Database operations for activity tracking
// ABOUTME: Logs calls, emails, meetings, notes and tasks against deals and contacts
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
)

const activityColumns = `id, type, subject, body, deal_id, contact_id, company_id, due_at, completed, completed_at, created_by, created_at`

// ActivityFilter narrows ListActivities. Zero values mean no filter.
type ActivityFilter struct {
	DealID    *uuid.UUID
	ContactID *uuid.UUID
	OpenTasks bool
	Limit     int
}

// LogActivity records an activity. In the same transaction it stamps the
// contact's last_contacted_at and bumps the deal's updated_at.
func LogActivity(ctx context.Context, db *sql.DB, activity *models.Activity) error {
	if !models.IsValidActivityType(activity.Type) {
		return models.NewValidationError("type", "invalid activity type %q (valid: %s)", activity.Type, strings.Join(models.ActivityTypes, ", "))
	}
	if strings.TrimSpace(activity.Subject) == "" {
		return models.NewValidationError("subject", "is required")
	}

	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, activity.ID.String(), activity.Type, activity.Subject, activity.Body,
		nullableID(activity.DealID), nullableID(activity.ContactID), nullableID(activity.CompanyID),
		activity.DueAt, activity.Completed, activity.CompletedAt, activity.CreatedBy, activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", storeError(err))
	}

	// tasks are planned work, not contact
	if activity.ContactID != nil && activity.Type != models.ActivityTask {
		if err := updateContactLastContacted(ctx, tx, *activity.ContactID, activity.CreatedAt); err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}
	}

	if activity.DealID != nil {
		_, err = tx.ExecContext(ctx, `UPDATE deals SET updated_at = ? WHERE id = ?`, activity.CreatedAt, activity.DealID.String())
		if err != nil {
			return fmt.Errorf("failed to touch deal: %w", err)
		}
	}

	return tx.Commit()
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	a := &models.Activity{}
	var dealID, contactID, companyID sql.NullString

	err := row.Scan(&a.ID, &a.Type, &a.Subject, &a.Body, &dealID, &contactID, &companyID,
		&a.DueAt, &a.Completed, &a.CompletedAt, &a.CreatedBy, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.DealID = parseNullableID(dealID)
	a.ContactID = parseNullableID(contactID)
	a.CompanyID = parseNullableID(companyID)

	return a, nil
}

func GetActivity(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Activity, error) {
	row := db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id.String())
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %s: %w", id, models.ErrNotFound)
	}
	return a, err
}

// ListActivities returns activities newest first. OpenTasks restricts the
// result to incomplete tasks ordered by due date.
func ListActivities(ctx context.Context, db *sql.DB, filter ActivityFilter) ([]models.Activity, error) {
	var where []string
	var args []any

	if filter.DealID != nil {
		where = append(where, "deal_id = ?")
		args = append(args, filter.DealID.String())
	}
	if filter.ContactID != nil {
		where = append(where, "contact_id = ?")
		args = append(args, filter.ContactID.String())
	}

	order := "created_at DESC"
	if filter.OpenTasks {
		where = append(where, "type = 'task' AND completed = 0")
		order = "due_at IS NULL, due_at ASC, created_at DESC"
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, `SELECT `+activityColumns+` FROM activities`+clause+` ORDER BY `+order+` LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	activities := []models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}

	return activities, rows.Err()
}

// CompleteActivity marks an activity done and returns it.
func CompleteActivity(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Activity, error) {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		UPDATE activities SET completed = 1, completed_at = COALESCE(completed_at, ?)
		WHERE id = ?
	`, now, id.String())
	if err != nil {
		return nil, storeError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("activity %s: %w", id, models.ErrNotFound)
	}
	return GetActivity(ctx, db, id)
}

func DeleteActivity(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id.String())
	if err != nil {
		return storeError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("activity %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// StaleDeals returns open deals not updated since the cutoff, oldest first.
func StaleDeals(ctx context.Context, db *sql.DB, cutoff time.Time, limit int) ([]models.Deal, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+dealColumns+` FROM deals
		WHERE stage NOT IN (?, ?) AND updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?
	`, string(models.StageWon), string(models.StageLost), cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	deals := []models.Deal{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}

	return deals, rows.Err()
}
