// ABOUTME: Contact database operations
// ABOUTME: Handles CRUD operations, contact lookups, and interaction tracking
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

const contactColumns = `id, name, email, phone, title, company_id, notes, last_contacted_at, created_at, updated_at`

func CreateContact(ctx context.Context, db *sql.DB, contact *models.Contact) error {
	if strings.TrimSpace(contact.Name) == "" {
		return models.NewValidationError("name", "is required")
	}

	contact.ID = uuid.New()
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, contact.ID.String(), contact.Name, contact.Email, contact.Phone, contact.Title,
		nullableID(contact.CompanyID), contact.Notes, contact.LastContactedAt, contact.CreatedAt, contact.UpdatedAt)

	return storeError(err)
}

func scanContact(row rowScanner) (*models.Contact, error) {
	c := &models.Contact{}
	var companyID sql.NullString

	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Title, &companyID, &c.Notes,
		&c.LastContactedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CompanyID = parseNullableID(companyID)

	return c, nil
}

func GetContact(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Contact, error) {
	row := db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id.String())
	contact, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %s: %w", id, models.ErrNotFound)
	}
	return contact, err
}

// FindContacts matches name or email case-insensitively. A company filter
// takes precedence over the query.
func FindContacts(ctx context.Context, db *sql.DB, query string, companyID *uuid.UUID, limit int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows *sql.Rows
	var err error

	if companyID != nil {
		rows, err = db.QueryContext(ctx, `
			SELECT `+contactColumns+` FROM contacts
			WHERE company_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		`, companyID.String(), limit)
	} else if query != "" {
		searchPattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		rows, err = db.QueryContext(ctx, `
			SELECT `+contactColumns+` FROM contacts
			WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'
			ORDER BY created_at DESC
			LIMIT ?
		`, searchPattern, searchPattern, limit)
	} else {
		rows, err = db.QueryContext(ctx, `
			SELECT `+contactColumns+` FROM contacts
			ORDER BY created_at DESC
			LIMIT ?
		`, limit)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}

	return contacts, rows.Err()
}

// UpdateContact rewrites the editable fields of an existing contact.
func UpdateContact(ctx context.Context, db *sql.DB, contact *models.Contact) error {
	if strings.TrimSpace(contact.Name) == "" {
		return models.NewValidationError("name", "must not be empty")
	}
	contact.UpdatedAt = time.Now().UTC()

	res, err := db.ExecContext(ctx, `
		UPDATE contacts
		SET name = ?, email = ?, phone = ?, title = ?, company_id = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, contact.Name, contact.Email, contact.Phone, contact.Title, nullableID(contact.CompanyID),
		contact.Notes, contact.UpdatedAt, contact.ID.String())
	if err != nil {
		return storeError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("contact %s: %w", contact.ID, models.ErrNotFound)
	}
	return nil
}

// DeleteContact removes the contact. Deals and activities keep their rows
// with the reference cleared.
func DeleteContact(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", storeError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("contact %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func updateContactLastContacted(ctx context.Context, tx *sql.Tx, contactID uuid.UUID, timestamp time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE contacts
		SET last_contacted_at = ?, updated_at = ?
		WHERE id = ?
	`, timestamp, time.Now().UTC(), contactID.String())

	return err
}
