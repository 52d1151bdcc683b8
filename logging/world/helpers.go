// Package world publishes telemetry for signal propagation, rumor
// propagation, spawn materialization, interaction, and local-encounter
// instancing.
package world

import (
	"context"

	"hexkeep/logging"
)

const (
	// EventSignalEmitted is emitted when a signal is appended to the world.
	EventSignalEmitted logging.EventType = "world.signal_emitted"
	// EventSignalPerceived is emitted once a perceive_signal_intent resolves.
	EventSignalPerceived logging.EventType = "world.signal_perceived"
	// EventRumorPropagated is emitted when a rumor spawns a child rumor.
	EventRumorPropagated logging.EventType = "world.rumor_propagated"
	// EventSpawnMaterialized is emitted once per entity created from a spawn descriptor.
	EventSpawnMaterialized logging.EventType = "world.spawn_materialized"
	// EventInteractionResolved is emitted for every interaction_execute outcome.
	EventInteractionResolved logging.EventType = "world.interaction_resolved"
	// EventLocalEncounterStarted is emitted when a local space is instanced.
	EventLocalEncounterStarted logging.EventType = "world.local_encounter_started"
	// EventLocalEncounterReturned is emitted when an entity returns from a local space.
	EventLocalEncounterReturned logging.EventType = "world.local_encounter_returned"
)

// SignalEmittedPayload describes a newly recorded signal.
type SignalEmittedPayload struct {
	SignalID  string  `json:"signalId"`
	Channel   string  `json:"channel"`
	Intensity float64 `json:"baseIntensity"`
}

// SignalPerceivedPayload describes a perception outcome.
type SignalPerceivedPayload struct {
	SignalID string  `json:"signalId"`
	Strength float64 `json:"strength"`
}

// RumorPropagatedPayload describes a propagated rumor.
type RumorPropagatedPayload struct {
	RumorID    string  `json:"rumorId"`
	Hop        int     `json:"hop"`
	Confidence float64 `json:"confidence"`
}

// SpawnMaterializedPayload describes a materialized entity.
type SpawnMaterializedPayload struct {
	EntityID   string `json:"entityId"`
	TemplateID string `json:"templateId"`
}

// InteractionResolvedPayload describes an interaction_execute outcome.
type InteractionResolvedPayload struct {
	Kind    string `json:"kind"`
	Outcome string `json:"outcome"`
}

// LocalEncounterStartedPayload describes a newly instanced local space.
type LocalEncounterStartedPayload struct {
	LocalSpaceID string `json:"localSpaceId"`
	OriginSpace  string `json:"originSpace"`
}

// LocalEncounterReturnedPayload describes a completed return.
type LocalEncounterReturnedPayload struct {
	LocalSpaceID string `json:"localSpaceId"`
	Applied      bool   `json:"applied"`
	Outcome      string `json:"outcome,omitempty"`
}

func publish(ctx context.Context, pub logging.Publisher, t uint64, actor logging.EntityRef, typ logging.EventType, sev logging.Severity, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Tick:     t,
		Actor:    actor,
		Severity: sev,
		Category: "world",
		Payload:  payload,
	})
}

// SignalEmitted publishes a signal-emission event.
func SignalEmitted(ctx context.Context, pub logging.Publisher, t uint64, actor logging.EntityRef, payload SignalEmittedPayload) {
	publish(ctx, pub, t, actor, EventSignalEmitted, logging.SeverityInfo, payload)
}

// SignalPerceived publishes a signal-perception event.
func SignalPerceived(ctx context.Context, pub logging.Publisher, t uint64, actor logging.EntityRef, payload SignalPerceivedPayload) {
	publish(ctx, pub, t, actor, EventSignalPerceived, logging.SeverityInfo, payload)
}

// RumorPropagated publishes a rumor-propagation event.
func RumorPropagated(ctx context.Context, pub logging.Publisher, t uint64, payload RumorPropagatedPayload) {
	publish(ctx, pub, t, logging.EntityRef{Kind: logging.KindWorld}, EventRumorPropagated, logging.SeverityDebug, payload)
}

// SpawnMaterialized publishes a spawn-materialization event.
func SpawnMaterialized(ctx context.Context, pub logging.Publisher, t uint64, payload SpawnMaterializedPayload) {
	publish(ctx, pub, t, logging.EntityRef{ID: payload.EntityID, Kind: logging.KindEntity}, EventSpawnMaterialized, logging.SeverityInfo, payload)
}

// InteractionResolved publishes an interaction outcome event.
func InteractionResolved(ctx context.Context, pub logging.Publisher, t uint64, actor logging.EntityRef, payload InteractionResolvedPayload) {
	publish(ctx, pub, t, actor, EventInteractionResolved, logging.SeverityInfo, payload)
}

// LocalEncounterStarted publishes a local-encounter instancing event.
func LocalEncounterStarted(ctx context.Context, pub logging.Publisher, t uint64, actor logging.EntityRef, payload LocalEncounterStartedPayload) {
	publish(ctx, pub, t, actor, EventLocalEncounterStarted, logging.SeverityInfo, payload)
}

// LocalEncounterReturned publishes a local-encounter return event.
func LocalEncounterReturned(ctx context.Context, pub logging.Publisher, t uint64, actor logging.EntityRef, payload LocalEncounterReturnedPayload) {
	publish(ctx, pub, t, actor, EventLocalEncounterReturned, logging.SeverityInfo, payload)
}
