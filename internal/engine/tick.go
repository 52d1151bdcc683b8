package engine

import (
	"context"

	"hexkeep/internal/events"
	"hexkeep/logging"
	tickevents "hexkeep/logging/tick"
)

// AdvanceTicks implements advance_ticks(n): the simulation's entire
// evolution happens here, one tick at a time, in the fixed five-step order
// below, via an ordered fan-out over every registered module followed by a
// bounded command/event drain.
//
// pub may be nil, in which case no tick telemetry is emitted.
func (s *Simulation) AdvanceTicks(ctx context.Context, n uint64, pub logging.Publisher) error {
	for i := uint64(0); i < n; i++ {
		if err := s.advanceOneTick(ctx, pub); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) advanceOneTick(ctx context.Context, pub logging.Publisher) error {
	tick := s.Clock.Tick

	// 1. on_tick_start fan-out, in registration order.
	for _, m := range s.reg.modules {
		if starter, ok := m.(TickStarter); ok {
			starter.OnTickStart(s, tick)
		}
	}

	// 2. Drain tick-scheduled commands, including same-tick re-entrant
	// commands appended mid-drain by rule modules, bounded by
	// MaxCommandsPerTick.
	drained := 0
	for s.NextCommandIndex < len(s.InputLog) && s.InputLog[s.NextCommandIndex].Tick <= tick {
		cmd := s.InputLog[s.NextCommandIndex]
		index := s.NextCommandIndex
		s.NextCommandIndex++
		drained++
		if drained > MaxCommandsPerTick {
			tickevents.FatalViolation(ctx, pub, tick, tickevents.FatalViolationPayload{
				Reason: "commands per tick exceeded",
				Limit:  MaxCommandsPerTick,
			})
			return &FatalError{Reason: "commands per tick exceeded", Detail: ActionUID(tick, index)}
		}
		s.dispatchCommand(cmd, index)
	}
	tickevents.CommandsDrained(ctx, pub, tick, drained)

	// 3. Drain due events via heap pop while tick <= current tick, bounded
	// by MaxEventsPerTick.
	executed := 0
	for {
		evt, ok := s.Events.PopDue(tick)
		if !ok {
			break
		}
		executed++
		if executed > MaxEventsPerTick {
			tickevents.FatalViolation(ctx, pub, tick, tickevents.FatalViolationPayload{
				Reason: "events per tick exceeded",
				Limit:  MaxEventsPerTick,
			})
			return &FatalError{Reason: "events per tick exceeded", Detail: evt.ID}
		}
		s.executeEvent(evt)
		s.Trace.Append(evt)
		for _, m := range s.reg.modules {
			if handler, ok := m.(EventHandler); ok {
				handler.OnEventExecuted(s, evt)
			}
		}
	}
	tickevents.EventsDrained(ctx, pub, tick, executed)

	// 4. on_tick_end fan-out, in registration order.
	for _, m := range s.reg.modules {
		if ender, ok := m.(TickEnder); ok {
			ender.OnTickEnd(s, tick)
		}
	}

	// 5. Advance the clock.
	s.Clock.Tick++
	return nil
}

// dispatchCommand offers cmd to every registered CommandHandler in
// registration order; the first to return true is considered to have
// handled it. If no module claims it, the built-in Router (if any) is
// tried as the final fallback.
func (s *Simulation) dispatchCommand(cmd Command, index int) {
	for _, m := range s.reg.modules {
		if handler, ok := m.(CommandHandler); ok {
			if handler.OnCommand(s, cmd, index) {
				return
			}
		}
	}
	if s.Router != nil {
		s.Router.Route(s, cmd, index)
	}
}

// executeEvent is the built-in event executor. The substrate itself defines
// no event semantics of its own; every concrete event type is interpreted by
// the rule module that scheduled it via OnEventExecuted. This hook exists so
// the engine package has a single seam to extend if a domain-agnostic event
// type is ever needed (e.g. a no-op heartbeat), without touching the drain
// loop above.
func (s *Simulation) executeEvent(evt events.Event) {
	_ = evt
}
