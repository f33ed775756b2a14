// ABOUTME: Conversation and coaching MCP tool handlers
// ABOUTME: Implements log_conversation, analyze_conversation and coach_deal tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/salescrm/coach"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type InsightHandlers struct {
	db       *sql.DB
	analyzer *coach.Analyzer
}

// NewInsightHandlers accepts a nil analyzer; the model-backed tools then
// report that no language model is configured.
func NewInsightHandlers(database *sql.DB, analyzer *coach.Analyzer) *InsightHandlers {
	return &InsightHandlers{db: database, analyzer: analyzer}
}

type LogConversationInput struct {
	DealID     string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Channel    string `json:"channel,omitempty" jsonschema:"Where it happened: call, email, meeting"`
	Transcript string `json:"transcript" jsonschema:"Transcript or notes of the conversation (required)"`
}

type ConversationOutput struct {
	ID        string `json:"id"`
	DealID    string `json:"deal_id"`
	Channel   string `json:"channel,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (h *InsightHandlers) LogConversation(ctx context.Context, request *mcp.CallToolRequest, input LogConversationInput) (*mcp.CallToolResult, ConversationOutput, error) {
	dealID, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, ConversationOutput{}, err
	}

	if _, err := db.GetDeal(ctx, h.db, dealID); err != nil {
		return nil, ConversationOutput{}, err
	}

	conv := &models.Conversation{
		DealID:     dealID,
		Channel:    input.Channel,
		Transcript: input.Transcript,
		CreatedBy:  "mcp",
	}
	if err := db.CreateConversation(ctx, h.db, conv); err != nil {
		return nil, ConversationOutput{}, fmt.Errorf("failed to log conversation: %w", err)
	}

	return nil, ConversationOutput{
		ID:        conv.ID.String(),
		DealID:    conv.DealID.String(),
		Channel:   conv.Channel,
		CreatedAt: conv.CreatedAt.Format(time.RFC3339),
	}, nil
}

type AnalyzeConversationInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"Conversation ID (required)"`
}

type AnalysisOutput struct {
	ID               string   `json:"id"`
	ConversationID   string   `json:"conversation_id"`
	DealID           string   `json:"deal_id"`
	Summary          string   `json:"summary"`
	Sentiment        string   `json:"sentiment,omitempty"`
	KeyPoints        []string `json:"key_points"`
	Objections       []string `json:"objections"`
	NextSteps        []string `json:"next_steps"`
	RecommendedStage string   `json:"recommended_stage,omitempty"`
	WinProbability   *int     `json:"win_probability,omitempty"`
}

// AnalyzeConversation stores a structured analysis. The recommended stage is
// advisory; use move_deal to act on it.
func (h *InsightHandlers) AnalyzeConversation(ctx context.Context, request *mcp.CallToolRequest, input AnalyzeConversationInput) (*mcp.CallToolResult, AnalysisOutput, error) {
	convID, err := parseID("conversation_id", input.ConversationID)
	if err != nil {
		return nil, AnalysisOutput{}, err
	}

	analysis, err := h.analyzer.AnalyzeConversation(ctx, convID)
	if err != nil {
		return nil, AnalysisOutput{}, err
	}

	return nil, AnalysisOutput{
		ID:               analysis.ID,
		ConversationID:   analysis.ConversationID.String(),
		DealID:           analysis.DealID.String(),
		Summary:          analysis.Summary,
		Sentiment:        analysis.Sentiment,
		KeyPoints:        nonNil(analysis.KeyPoints),
		Objections:       nonNil(analysis.Objections),
		NextSteps:        nonNil(analysis.NextSteps),
		RecommendedStage: string(analysis.RecommendedStage),
		WinProbability:   analysis.WinProbability,
	}, nil
}

type CoachDealInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
}

type CoachDealOutput struct {
	DealID string `json:"deal_id"`
	Advice string `json:"advice"`
}

func (h *InsightHandlers) CoachDeal(ctx context.Context, request *mcp.CallToolRequest, input CoachDealInput) (*mcp.CallToolResult, CoachDealOutput, error) {
	dealID, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, CoachDealOutput{}, err
	}

	advice, err := h.analyzer.CoachDeal(ctx, dealID)
	if err != nil {
		return nil, CoachDealOutput{}, err
	}

	return nil, CoachDealOutput{DealID: advice.DealID.String(), Advice: advice.Advice}, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
