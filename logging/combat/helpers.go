// Package combat publishes structured telemetry for attack resolution.
package combat

import (
	"context"

	"hexkeep/logging"
)

const (
	// EventAttackResolved is emitted for every attack_intent outcome, accepted or rejected.
	EventAttackResolved logging.EventType = "combat.attack_resolved"
	// EventWoundInflicted is emitted once per wound appended to a target.
	EventWoundInflicted logging.EventType = "combat.wound_inflicted"
)

// AttackResolvedPayload mirrors the stable rejection-reason enum.
type AttackResolvedPayload struct {
	Mode   string `json:"mode"`
	Reason string `json:"reason"`
}

// WoundInflictedPayload captures a single wound record.
type WoundInflictedPayload struct {
	Region   string `json:"region"`
	Severity int    `json:"severity"`
}

// AttackResolved publishes the outcome of an attack_intent command.
func AttackResolved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AttackResolvedPayload) {
	if pub == nil {
		return
	}
	severity := logging.SeverityInfo
	if payload.Reason != "resolved" {
		severity = logging.SeverityDebug
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttackResolved,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: "combat",
		Payload:  payload,
	})
}

// WoundInflicted publishes a wound record for a resolved target.
func WoundInflicted(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload WoundInflictedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWoundInflicted,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: "combat",
		Payload:  payload,
	})
}
