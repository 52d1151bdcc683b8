// Package encounter publishes telemetry for the encounter pipeline
// (check -> roll -> result -> resolve -> select -> action -> execute -> outcome).
package encounter

import (
	"context"

	"hexkeep/logging"
)

const (
	// EventRolled is emitted when an eligibility roll is evaluated.
	EventRolled logging.EventType = "encounter.rolled"
	// EventSelected is emitted when the selection module draws a table entry.
	EventSelected logging.EventType = "encounter.selected"
	// EventActionOutcome is emitted once per executed action.
	EventActionOutcome logging.EventType = "encounter.action_outcome"
)

// RolledPayload describes an eligibility roll.
type RolledPayload struct {
	Roll     int    `json:"roll"`
	Eligible bool   `json:"eligible"`
	Category string `json:"category,omitempty"`
}

// SelectedPayload describes a drawn table entry.
type SelectedPayload struct {
	TableID string `json:"tableId"`
	EntryID string `json:"entryId"`
}

// ActionOutcomePayload describes a resolved encounter action.
type ActionOutcomePayload struct {
	ActionType string `json:"actionType"`
	ActionUID  string `json:"actionUid"`
	Outcome    string `json:"outcome"`
	Mutation   string `json:"mutation,omitempty"`
}

// Rolled publishes an eligibility-roll event.
func Rolled(ctx context.Context, pub logging.Publisher, tick uint64, payload RolledPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRolled,
		Tick:     tick,
		Severity: logging.SeverityDebug,
		Category: "encounter",
		Payload:  payload,
	})
}

// Selected publishes a table-selection event.
func Selected(ctx context.Context, pub logging.Publisher, tick uint64, payload SelectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSelected,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: "encounter",
		Payload:  payload,
	})
}

// ActionOutcome publishes an action-execution outcome event.
func ActionOutcome(ctx context.Context, pub logging.Publisher, tick uint64, payload ActionOutcomePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventActionOutcome,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: "encounter",
		Payload:  payload,
	})
}
