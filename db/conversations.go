// ABOUTME: Database operations for sales conversations and their analyses
// ABOUTME: Analyses keep list fields as JSON arrays in text columns
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
)

const conversationColumns = `id, deal_id, channel, transcript, created_by, created_at`

const analysisColumns = `id, conversation_id, deal_id, summary, sentiment, key_points, objections, next_steps, recommended_stage, win_probability, raw_response, created_at`

func CreateConversation(ctx context.Context, db *sql.DB, conv *models.Conversation) error {
	if strings.TrimSpace(conv.Transcript) == "" {
		return models.NewValidationError("transcript", "is required")
	}

	conv.ID = uuid.New()
	conv.CreatedAt = time.Now().UTC()

	_, err := db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conv.ID.String(), conv.DealID.String(), conv.Channel, conv.Transcript, conv.CreatedBy, conv.CreatedAt)

	return storeError(err)
}

func GetConversation(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Conversation, error) {
	c := &models.Conversation{}
	err := db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id.String()).
		Scan(&c.ID, &c.DealID, &c.Channel, &c.Transcript, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversations returns a deal's conversations newest first, each with its
// latest analysis.
func ListConversations(ctx context.Context, db *sql.DB, dealID uuid.UUID) ([]models.ConversationWithAnalysis, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE deal_id = ?
		ORDER BY created_at DESC
	`, dealID.String())
	if err != nil {
		return nil, err
	}

	var convs []models.ConversationWithAnalysis
	for rows.Next() {
		var c models.ConversationWithAnalysis
		if err := rows.Scan(&c.ID, &c.DealID, &c.Channel, &c.Transcript, &c.CreatedBy, &c.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// single connection: the cursor must be closed before the next query
	out := make([]models.ConversationWithAnalysis, 0, len(convs))
	for _, c := range convs {
		analysis, err := LatestAnalysis(ctx, db, c.ID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		c.Analysis = analysis
		out = append(out, c)
	}

	return out, nil
}

func SaveAnalysis(ctx context.Context, db *sql.DB, a *models.ConversationAnalysis) error {
	keyPoints, err := encodeList(a.KeyPoints)
	if err != nil {
		return err
	}
	objections, err := encodeList(a.Objections)
	if err != nil {
		return err
	}
	nextSteps, err := encodeList(a.NextSteps)
	if err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO conversation_analyses (`+analysisColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ConversationID.String(), a.DealID.String(), a.Summary, a.Sentiment,
		keyPoints, objections, nextSteps, string(a.RecommendedStage), a.WinProbability, a.RawResponse, a.CreatedAt)

	return storeError(err)
}

// LatestAnalysis returns models.ErrNotFound when the conversation was never analyzed.
func LatestAnalysis(ctx context.Context, db *sql.DB, conversationID uuid.UUID) (*models.ConversationAnalysis, error) {
	a := &models.ConversationAnalysis{}
	var keyPoints, objections, nextSteps string
	var winProbability sql.NullInt64

	err := db.QueryRowContext(ctx, `
		SELECT `+analysisColumns+` FROM conversation_analyses
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, conversationID.String()).Scan(&a.ID, &a.ConversationID, &a.DealID, &a.Summary, &a.Sentiment,
		&keyPoints, &objections, &nextSteps, &a.RecommendedStage, &winProbability, &a.RawResponse, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis for %s: %w", conversationID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if a.KeyPoints, err = decodeList(keyPoints); err != nil {
		return nil, err
	}
	if a.Objections, err = decodeList(objections); err != nil {
		return nil, err
	}
	if a.NextSteps, err = decodeList(nextSteps); err != nil {
		return nil, err
	}
	if winProbability.Valid {
		v := int(winProbability.Int64)
		a.WinProbability = &v
	}

	return a, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	items := []string{}
	if s == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return items, nil
}
