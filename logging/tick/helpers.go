// Package tick publishes telemetry for the tick engine itself.
package tick

import (
	"context"

	"hexkeep/logging"
)

const (
	// EventCommandsDrained is emitted once per tick with the number of commands applied.
	EventCommandsDrained logging.EventType = "tick.commands_drained"
	// EventEventsDrained is emitted once per tick with the number of events executed.
	EventEventsDrained logging.EventType = "tick.events_drained"
	// EventFatalViolation is emitted immediately before a fatal engine error is raised.
	EventFatalViolation logging.EventType = "tick.fatal_violation"
)

// DrainPayload captures a per-tick drain count.
type DrainPayload struct {
	Count int `json:"count"`
}

// FatalViolationPayload describes a fatal cap breach.
type FatalViolationPayload struct {
	Reason string `json:"reason"`
	Limit  int    `json:"limit"`
}

// CommandsDrained publishes the number of commands applied this tick.
func CommandsDrained(ctx context.Context, pub logging.Publisher, t uint64, count int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandsDrained,
		Tick:     t,
		Severity: logging.SeverityDebug,
		Category: "tick",
		Payload:  DrainPayload{Count: count},
	})
}

// EventsDrained publishes the number of events executed this tick.
func EventsDrained(ctx context.Context, pub logging.Publisher, t uint64, count int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEventsDrained,
		Tick:     t,
		Severity: logging.SeverityDebug,
		Category: "tick",
		Payload:  DrainPayload{Count: count},
	})
}

// FatalViolation publishes a fatal cap breach before the engine panics. The
// actor is the tick engine itself, not any entity, so it is tagged
// KindRuleModule against the "engine" id.
func FatalViolation(ctx context.Context, pub logging.Publisher, t uint64, payload FatalViolationPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFatalViolation,
		Tick:     t,
		Actor:    logging.EntityRef{ID: "engine", Kind: logging.KindRuleModule},
		Severity: logging.SeverityError,
		Category: "tick",
		Payload:  payload,
	})
}
