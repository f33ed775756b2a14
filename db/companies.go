// ABOUTME: Company database operations
// ABOUTME: Handles CRUD operations and company lookups
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

const companyColumns = `id, name, domain, industry, notes, created_at, updated_at`

func CreateCompany(ctx context.Context, db *sql.DB, company *models.Company) error {
	if strings.TrimSpace(company.Name) == "" {
		return models.NewValidationError("name", "is required")
	}

	company.ID = uuid.New()
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO companies (`+companyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, company.ID.String(), company.Name, company.Domain, company.Industry, company.Notes, company.CreatedAt, company.UpdatedAt)

	return storeError(err)
}

func scanCompany(row rowScanner) (*models.Company, error) {
	c := &models.Company{}
	err := row.Scan(&c.ID, &c.Name, &c.Domain, &c.Industry, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func GetCompany(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Company, error) {
	row := db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id.String())
	company, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}

func FindCompanies(ctx context.Context, db *sql.DB, query string, limit int) ([]models.Company, error) {
	if limit <= 0 {
		limit = 10
	}

	searchPattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := db.QueryContext(ctx, `
		SELECT `+companyColumns+` FROM companies
		WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(domain) LIKE ? ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT ?
	`, searchPattern, searchPattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *c)
	}

	return companies, rows.Err()
}

// FindCompanyByName returns models.ErrNotFound when no company matches exactly
// (ignoring case).
func FindCompanyByName(ctx context.Context, db *sql.DB, name string) (*models.Company, error) {
	row := db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE LOWER(name) = LOWER(?)`, name)
	company, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %q: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}

// FindOrCreateCompany is used by the deal tools, which accept a company name.
func FindOrCreateCompany(ctx context.Context, db *sql.DB, name string) (*models.Company, error) {
	company, err := FindCompanyByName(ctx, db, name)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	company = &models.Company{Name: name}
	if err := CreateCompany(ctx, db, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}

func UpdateCompany(ctx context.Context, db *sql.DB, company *models.Company) error {
	if strings.TrimSpace(company.Name) == "" {
		return models.NewValidationError("name", "must not be empty")
	}
	company.UpdatedAt = time.Now().UTC()

	res, err := db.ExecContext(ctx, `
		UPDATE companies
		SET name = ?, domain = ?, industry = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, company.Name, company.Domain, company.Industry, company.Notes, company.UpdatedAt, company.ID.String())
	if err != nil {
		return storeError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("company %s: %w", company.ID, models.ErrNotFound)
	}
	return nil
}

// DeleteCompany refuses while deals still reference the company.
func DeleteCompany(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	var dealCount int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deals WHERE company_id = ?`, id.String()).Scan(&dealCount)
	if err != nil {
		return fmt.Errorf("failed to check deals: %w", err)
	}
	if dealCount > 0 {
		return &models.RejectedError{Message: fmt.Sprintf("cannot delete company with %d deals", dealCount)}
	}

	res, err := db.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id.String())
	if err != nil {
		return storeError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("company %s: %w", id, models.ErrNotFound)
	}
	return nil
}
