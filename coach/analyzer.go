// ABOUTME: Conversation analysis and deal coaching backed by a language model
// ABOUTME: Loads deal context, prompts the model, parses and persists the result
package coach

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const analysisSystemPrompt = `You are a sales coach reviewing a conversation between a seller and a prospect.
Reply using exactly these headings, each followed by a colon:
SUMMARY: two or three sentences
SENTIMENT: positive, neutral or negative
KEY POINTS: bullet list
OBJECTIONS: bullet list, or "None"
NEXT STEPS: bullet list
RECOMMENDED STAGE: one of lead, qualified, proposal, negotiation, won, lost
WIN PROBABILITY: a percentage from 0 to 100`

const coachSystemPrompt = `You are an experienced B2B sales coach. Give concrete, prioritized advice
for advancing the deal described below. Keep it under 250 words.`

// Advice is one coaching reply for a deal.
type Advice struct {
	DealID    uuid.UUID `json:"deal_id"`
	Advice    string    `json:"advice"`
	CreatedAt time.Time `json:"created_at"`
}

// Analyzer runs conversation analysis and coaching. A nil Completer makes
// every call return ErrUnavailable.
type Analyzer struct {
	db  *sql.DB
	llm Completer
	log zerolog.Logger
}

func NewAnalyzer(database *sql.DB, llm Completer, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		db:  database,
		llm: llm,
		log: log.With().Str("component", "coach").Logger(),
	}
}

// Enabled reports whether a model is configured.
func (a *Analyzer) Enabled() bool {
	return a != nil && a.llm != nil
}

// AnalyzeConversation prompts the model about one conversation, stores the
// parsed analysis and returns it. The deal itself is never modified.
func (a *Analyzer) AnalyzeConversation(ctx context.Context, conversationID uuid.UUID) (*models.ConversationAnalysis, error) {
	if !a.Enabled() {
		return nil, ErrUnavailable
	}

	conv, err := db.GetConversation(ctx, a.db, conversationID)
	if err != nil {
		return nil, err
	}
	deal, err := db.GetDeal(ctx, a.db, conv.DealID)
	if err != nil {
		return nil, err
	}

	runID := ulid.Make().String()
	log := a.log.With().Str("analysis_id", runID).Str("conversation_id", conv.ID.String()).Logger()
	log.Info().Str("deal_id", deal.ID.String()).Msg("Analyzing conversation")

	reply, err := a.llm.Complete(ctx, analysisSystemPrompt, analysisPrompt(deal, conv))
	if err != nil {
		log.Error().Err(err).Msg("Model call failed")
		return nil, fmt.Errorf("failed to analyze conversation: %w", err)
	}

	parsed := ParseAnalysis(reply)
	analysis := &models.ConversationAnalysis{
		ID:               runID,
		ConversationID:   conv.ID,
		DealID:           deal.ID,
		Summary:          parsed.Summary,
		Sentiment:        parsed.Sentiment,
		KeyPoints:        parsed.KeyPoints,
		Objections:       parsed.Objections,
		NextSteps:        parsed.NextSteps,
		RecommendedStage: parsed.RecommendedStage,
		WinProbability:   parsed.WinProbability,
		RawResponse:      reply,
		CreatedAt:        time.Now().UTC(),
	}

	if err := db.SaveAnalysis(ctx, a.db, analysis); err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	log.Info().
		Str("sentiment", analysis.Sentiment).
		Str("recommended_stage", string(analysis.RecommendedStage)).
		Msg("Conversation analyzed")

	return analysis, nil
}

// CoachDeal asks the model for advice using the deal, its recent activities
// and the latest conversation analysis.
func (a *Analyzer) CoachDeal(ctx context.Context, dealID uuid.UUID) (*Advice, error) {
	if !a.Enabled() {
		return nil, ErrUnavailable
	}

	deal, err := db.GetDeal(ctx, a.db, dealID)
	if err != nil {
		return nil, err
	}

	activities, err := db.ListActivities(ctx, a.db, db.ActivityFilter{DealID: &dealID, Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}

	var latest *models.ConversationAnalysis
	convs, err := db.ListConversations(ctx, a.db, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	for _, c := range convs {
		if c.Analysis != nil {
			latest = c.Analysis
			break
		}
	}

	a.log.Info().Str("deal_id", dealID.String()).Int("activities", len(activities)).Msg("Coaching deal")

	reply, err := a.llm.Complete(ctx, coachSystemPrompt, coachPrompt(deal, activities, latest))
	if err != nil {
		return nil, fmt.Errorf("failed to coach deal: %w", err)
	}

	return &Advice{DealID: dealID, Advice: reply, CreatedAt: time.Now().UTC()}, nil
}

func describeDeal(sb *strings.Builder, deal *models.Deal) {
	fmt.Fprintf(sb, "Deal: %s\n", deal.Name)
	if info, ok := models.LookupStage(deal.Stage); ok {
		fmt.Fprintf(sb, "Stage: %s\n", info.Label)
	} else {
		fmt.Fprintf(sb, "Stage: %s\n", deal.Stage)
	}
	if deal.Amount != nil {
		fmt.Fprintf(sb, "Amount: %.2f\n", *deal.Amount)
	}
	fmt.Fprintf(sb, "Probability: %d%%\n", deal.Probability)
	if deal.ExpectedCloseDate != nil {
		fmt.Fprintf(sb, "Expected close: %s\n", deal.ExpectedCloseDate.Format("2006-01-02"))
	}
	if deal.Description != "" {
		fmt.Fprintf(sb, "Description: %s\n", deal.Description)
	}
}

func analysisPrompt(deal *models.Deal, conv *models.Conversation) string {
	var sb strings.Builder
	describeDeal(&sb, deal)
	if conv.Channel != "" {
		fmt.Fprintf(&sb, "Channel: %s\n", conv.Channel)
	}
	sb.WriteString("\nConversation:\n")
	sb.WriteString(conv.Transcript)
	return sb.String()
}

func coachPrompt(deal *models.Deal, activities []models.Activity, latest *models.ConversationAnalysis) string {
	var sb strings.Builder
	describeDeal(&sb, deal)

	if len(activities) > 0 {
		sb.WriteString("\nRecent activity:\n")
		for _, act := range activities {
			status := ""
			if act.Type == models.ActivityTask && !act.Completed {
				status = " (open)"
			}
			fmt.Fprintf(&sb, "- %s %s: %s%s\n", act.CreatedAt.Format("2006-01-02"), act.Type, act.Subject, status)
		}
	}

	if latest != nil {
		sb.WriteString("\nLatest conversation analysis:\n")
		fmt.Fprintf(&sb, "Summary: %s\n", latest.Summary)
		if len(latest.Objections) > 0 {
			fmt.Fprintf(&sb, "Objections: %s\n", strings.Join(latest.Objections, "; "))
		}
		if len(latest.NextSteps) > 0 {
			fmt.Fprintf(&sb, "Planned next steps: %s\n", strings.Join(latest.NextSteps, "; "))
		}
	}

	return sb.String()
}

// IsUnavailable reports whether err means no model is configured.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
