// ABOUTME: Deal database operations
// ABOUTME: Handles deal CRUD, partial updates, filtered listing and stage totals
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

const dealColumns = `id, name, description, amount, stage, probability, expected_close_date, contact_id, company_id, created_by, created_at, updated_at`

// DealFilter narrows ListDeals. Zero values mean no filter.
type DealFilter struct {
	Stage     models.Stage
	CompanyID *uuid.UUID
	ContactID *uuid.UUID
	Query     string
	Limit     int
	Offset    int
	// AfterID switches to keyset paging: rows come back in id order starting
	// after this id, and Offset is ignored. Writes between pages cannot shift
	// rows across a cursor, so a full walk sees every deal exactly once.
	AfterID *uuid.UUID
}

func CreateDeal(ctx context.Context, db *sql.DB, deal *models.Deal) error {
	deal.ID = uuid.New()
	now := time.Now().UTC()
	deal.CreatedAt = now
	deal.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO deals (`+dealColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, deal.ID.String(), deal.Name, deal.Description, deal.Amount, string(deal.Stage), deal.Probability,
		deal.ExpectedCloseDate, nullableID(deal.ContactID), nullableID(deal.CompanyID), deal.CreatedBy,
		deal.CreatedAt, deal.UpdatedAt)

	return storeError(err)
}

func scanDeal(row rowScanner) (*models.Deal, error) {
	deal := &models.Deal{}
	var amount sql.NullFloat64
	var contactID, companyID sql.NullString

	err := row.Scan(
		&deal.ID,
		&deal.Name,
		&deal.Description,
		&amount,
		&deal.Stage,
		&deal.Probability,
		&deal.ExpectedCloseDate,
		&contactID,
		&companyID,
		&deal.CreatedBy,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if amount.Valid {
		v := amount.Float64
		deal.Amount = &v
	}
	deal.ContactID = parseNullableID(contactID)
	deal.CompanyID = parseNullableID(companyID)

	return deal, nil
}

// GetDeal returns models.ErrNotFound when no deal has id.
func GetDeal(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Deal, error) {
	row := db.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = ?`, id.String())
	deal, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deal %s: %w", id, models.ErrNotFound)
	}
	return deal, err
}

// UpdateDealFields writes only the columns present in patch and returns the
// stored deal. Columns the caller did not send are never rewritten.
func UpdateDealFields(ctx context.Context, db *sql.DB, id uuid.UUID, patch models.DealPatch) (*models.Deal, error) {
	var sets []string
	var args []any

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.ClearAmount {
		sets = append(sets, "amount = NULL")
	}
	if patch.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *patch.Amount)
	}
	if patch.Stage != nil {
		sets = append(sets, "stage = ?")
		args = append(args, string(*patch.Stage))
	}
	if patch.Probability != nil {
		sets = append(sets, "probability = ?")
		args = append(args, *patch.Probability)
	}
	if patch.ExpectedCloseDate != nil {
		sets = append(sets, "expected_close_date = ?")
		args = append(args, *patch.ExpectedCloseDate)
	}
	if patch.ContactID != nil {
		sets = append(sets, "contact_id = ?")
		args = append(args, patch.ContactID.String())
	}
	if patch.CompanyID != nil {
		sets = append(sets, "company_id = ?")
		args = append(args, patch.CompanyID.String())
	}

	if len(sets) == 0 {
		return GetDeal(ctx, db, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id.String())

	res, err := db.ExecContext(ctx, `UPDATE deals SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, storeError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("deal %s: %w", id, models.ErrNotFound)
	}

	return GetDeal(ctx, db, id)
}

// ListDeals returns one page of deals plus the total matching count.
func ListDeals(ctx context.Context, db *sql.DB, filter DealFilter) ([]models.Deal, int, error) {
	var where []string
	var args []any

	if filter.Stage != "" {
		where = append(where, "stage = ?")
		args = append(args, string(filter.Stage))
	}
	if filter.CompanyID != nil {
		where = append(where, "company_id = ?")
		args = append(args, filter.CompanyID.String())
	}
	if filter.ContactID != nil {
		where = append(where, "contact_id = ?")
		args = append(args, filter.ContactID.String())
	}
	if filter.Query != "" {
		where = append(where, `(LOWER(name) LIKE LOWER(?) ESCAPE '\' OR LOWER(description) LIKE LOWER(?) ESCAPE '\')`)
		pattern := "%" + escapeLike(filter.Query) + "%"
		args = append(args, pattern, pattern)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deals`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// created_at never changes, so offset pages stay put when deals are edited
	order := "created_at, id"
	if filter.AfterID != nil {
		where = append(where, "id > ?")
		args = append(args, filter.AfterID.String())
		clause = " WHERE " + strings.Join(where, " AND ")
		order = "id"
		filter.Offset = 0
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+dealColumns+` FROM deals`+clause+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, 0, err
		}
		deals = append(deals, *deal)
	}

	return deals, total, rows.Err()
}

// AllDeals returns every deal in one query; used by the dashboard, the graph
// generator and the local pipeline store.
func AllDeals(ctx context.Context, db *sql.DB) ([]models.Deal, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+dealColumns+` FROM deals ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}
	return deals, rows.Err()
}

// escapeLike makes % and _ in user text match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func DeleteDeal(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id.String())
	if err != nil {
		return storeError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deal %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// StageTotals groups deals by their raw stage value. Unset amounts count as 0.
func StageTotals(ctx context.Context, db *sql.DB) (map[models.Stage]StageTotal, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT stage, COUNT(*), COALESCE(SUM(COALESCE(amount, 0)), 0)
		FROM deals
		GROUP BY stage
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[models.Stage]StageTotal)
	for rows.Next() {
		var stage string
		var t StageTotal
		if err := rows.Scan(&stage, &t.Count, &t.Value); err != nil {
			return nil, err
		}
		totals[models.Stage(stage)] = t
	}

	return totals, rows.Err()
}

// StageTotal is one GROUP BY row.
type StageTotal struct {
	Count int
	Value float64
}
