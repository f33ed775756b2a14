// ABOUTME: Local deal store backed directly by SQLite
// ABOUTME: Lets the pipeline controller run without a REST server in between
package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
)

// DealStore adapts the database to the pipeline controller's store interface.
type DealStore struct {
	db *sql.DB
}

func NewDealStore(database *sql.DB) *DealStore {
	return &DealStore{db: database}
}

func (s *DealStore) ListDeals(ctx context.Context) ([]models.Deal, error) {
	return AllDeals(ctx, s.db)
}

// UpdateDealStage writes the stage column and nothing else.
func (s *DealStore) UpdateDealStage(ctx context.Context, id uuid.UUID, stage models.Stage) (*models.Deal, error) {
	return UpdateDealFields(ctx, s.db, id, models.DealPatch{Stage: &stage})
}
