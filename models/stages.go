// ABOUTME: Fixed registry of pipeline stages and their display metadata
// ABOUTME: Provides ordered stage listing and membership checks
package models

import "strings"

// Stage is a pipeline stage identifier. Values outside the registry can still
// arrive from the store and are treated as unrecognized by consumers.
type Stage string

const (
	StageLead        Stage = "lead"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
)

// StageInfo is the display metadata for one stage.
type StageInfo struct {
	ID         Stage  `json:"id"`
	Label      string `json:"label"`
	ColorClass string `json:"color_class"`
}

var stageRegistry = [...]StageInfo{
	{ID: StageLead, Label: "Lead", ColorClass: "bg-gray-100 text-gray-800"},
	{ID: StageQualified, Label: "Qualified", ColorClass: "bg-blue-100 text-blue-800"},
	{ID: StageProposal, Label: "Proposal", ColorClass: "bg-yellow-100 text-yellow-800"},
	{ID: StageNegotiation, Label: "Negotiation", ColorClass: "bg-orange-100 text-orange-800"},
	{ID: StageWon, Label: "Won", ColorClass: "bg-green-100 text-green-800"},
	{ID: StageLost, Label: "Lost", ColorClass: "bg-red-100 text-red-800"},
}

// ListStages returns the six stages in kanban column order. The returned
// slice is a fresh copy.
func ListStages() []StageInfo {
	out := make([]StageInfo, len(stageRegistry))
	copy(out, stageRegistry[:])
	return out
}

// IsValidStage reports whether s is one of the registered stages.
func IsValidStage(s Stage) bool {
	for _, info := range stageRegistry {
		if info.ID == s {
			return true
		}
	}
	return false
}

// LookupStage returns the metadata for s.
func LookupStage(s Stage) (StageInfo, bool) {
	for _, info := range stageRegistry {
		if info.ID == s {
			return info, true
		}
	}
	return StageInfo{}, false
}

// StageIndex returns the column position of s, or -1 if unregistered.
func StageIndex(s Stage) int {
	for i, info := range stageRegistry {
		if info.ID == s {
			return i
		}
	}
	return -1
}

// IsOpen reports whether s counts toward the open pipeline.
func (s Stage) IsOpen() bool {
	switch s {
	case StageLead, StageQualified, StageProposal, StageNegotiation:
		return true
	}
	return false
}

// StageNames returns the stage ids joined for error messages.
func StageNames() string {
	names := make([]string, len(stageRegistry))
	for i, info := range stageRegistry {
		names[i] = string(info.ID)
	}
	return strings.Join(names, ", ")
}

// defaultProbability is applied on creation when probability is omitted.
var defaultProbability = map[Stage]int{
	StageLead:        10,
	StageQualified:   25,
	StageProposal:    50,
	StageNegotiation: 75,
	StageWon:         100,
	StageLost:        0,
}

// DefaultProbability returns the creation-time default probability for s.
func DefaultProbability(s Stage) int {
	return defaultProbability[s]
}
