// Package economy publishes telemetry for inventory and supply-consumption outcomes.
package economy

import (
	"context"

	"hexkeep/logging"
)

const (
	// EventInventoryOutcome is emitted for every inventory_intent resolution.
	EventInventoryOutcome logging.EventType = "economy.inventory_outcome"
	// EventSupplyOutcome is emitted for every supply-consumption callback.
	EventSupplyOutcome logging.EventType = "economy.supply_outcome"
)

// InventoryOutcomePayload describes a resolved inventory_intent.
type InventoryOutcomePayload struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
	Outcome  string `json:"outcome"`
}

// SupplyOutcomePayload describes a resolved supply-consumption tick.
type SupplyOutcomePayload struct {
	ItemID  string `json:"itemId"`
	Outcome string `json:"outcome"`
}

// InventoryOutcome publishes the outcome of an inventory_intent.
func InventoryOutcome(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InventoryOutcomePayload) {
	if pub == nil {
		return
	}
	severity := logging.SeverityInfo
	if payload.Outcome != "applied" && payload.Outcome != "already_applied" {
		severity = logging.SeverityWarn
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInventoryOutcome,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: "economy",
		Payload:  payload,
	})
}

// SupplyOutcome publishes the outcome of a supply-consumption callback.
func SupplyOutcome(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SupplyOutcomePayload) {
	if pub == nil {
		return
	}
	severity := logging.SeverityInfo
	if payload.Outcome == "insufficient_supply" {
		severity = logging.SeverityWarn
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSupplyOutcome,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: "economy",
		Payload:  payload,
	})
}
