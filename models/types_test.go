// ABOUTME: Tests for CRM data models
// ABOUTME: Validates the stage registry, deal cloning and error matching
package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestListStagesOrder(t *testing.T) {
	stages := ListStages()
	want := []Stage{StageLead, StageQualified, StageProposal, StageNegotiation, StageWon, StageLost}

	if len(stages) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(stages))
	}
	for i, s := range stages {
		if s.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], s.ID)
		}
		if s.Label == "" || s.ColorClass == "" {
			t.Errorf("stage %s is missing display metadata", s.ID)
		}
	}
}

func TestListStagesReturnsCopy(t *testing.T) {
	stages := ListStages()
	stages[0].Label = "mutated"

	if ListStages()[0].Label != "Lead" {
		t.Error("mutating the returned slice changed the registry")
	}
}

func TestIsValidStage(t *testing.T) {
	for _, s := range []Stage{"lead", "qualified", "proposal", "negotiation", "won", "lost"} {
		if !IsValidStage(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	for _, s := range []Stage{"", "Lead", "closed_won", "prospecting"} {
		if IsValidStage(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestStageIsOpen(t *testing.T) {
	if !StageNegotiation.IsOpen() {
		t.Error("negotiation should be open")
	}
	if StageWon.IsOpen() || StageLost.IsOpen() {
		t.Error("won and lost should not be open")
	}
	if Stage("mystery").IsOpen() {
		t.Error("unregistered stage should not be open")
	}
}

func TestDealCloneIsDeep(t *testing.T) {
	amount := 1200.0
	closeDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	contactID := uuid.New()
	deal := Deal{
		ID:                uuid.New(),
		Name:              "Renewal",
		Amount:            &amount,
		Stage:             StageQualified,
		ExpectedCloseDate: &closeDate,
		ContactID:         &contactID,
	}

	clone := deal.Clone()
	*clone.Amount = 5
	*clone.ContactID = uuid.New()

	if *deal.Amount != 1200 {
		t.Errorf("clone shares amount pointer with original")
	}
	if *deal.ContactID != contactID {
		t.Errorf("clone shares contact pointer with original")
	}
}

func TestAmountValue(t *testing.T) {
	var d Deal
	if d.AmountValue() != 0 {
		t.Errorf("unset amount should read as 0, got %v", d.AmountValue())
	}
	v := -50.0
	d.Amount = &v
	if d.AmountValue() != -50 {
		t.Errorf("negative amount should pass through, got %v", d.AmountValue())
	}
}

func TestRejectedErrorMatchesConflict(t *testing.T) {
	err := fmt.Errorf("failed to move deal: %w", &RejectedError{Status: 409, Message: "constraint failed"})

	if !errors.Is(err, ErrConflict) {
		t.Error("expected RejectedError to match ErrConflict")
	}
	if IsTransport(err) {
		t.Error("rejected error must not look like a transport error")
	}
}

func TestTransportErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Op: "update deal", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected TransportError to unwrap to its cause")
	}
	if !IsTransport(fmt.Errorf("wrapped: %w", err)) {
		t.Error("expected IsTransport to see through wrapping")
	}
}
