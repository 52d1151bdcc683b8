// Package inventory implements inventory_intent:
// spawn/consume/transfer/drop over world containers, with conservation and
// idempotence. A consume or transfer larger than the source quantity is
// rejected with insufficient_quantity, so quantities never go negative; the
// explicit src/dst-null cases cover spawn and consume, and drop targets a
// deterministically named world container.
package inventory

import (
	"context"
	"fmt"

	"hexkeep/internal/engine"
	"hexkeep/internal/rules"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
	economyevents "hexkeep/logging/economy"
)

// EventInventoryIntent is the command type for inventory_intent.
const EventInventoryIntent = "inventory_intent"

// Outcomes, stable strings.
const (
	OutcomeApplied             = "applied"
	OutcomeUnknownItem         = "unknown_item"
	OutcomeUnknownContainer    = "unknown_container"
	OutcomeInsufficientQty     = "insufficient_quantity"
	OutcomeAlreadyApplied      = "already_applied"
)

// Module implements inventory_intent.
type Module struct {
	Publisher logging.Publisher
	KnownItems map[string]bool

	ledger *rules.Ledger
}

// New constructs the inventory rule module. knownItems, when non-empty,
// restricts which item ids are considered valid; a nil/empty set accepts
// any item id (content registries populate this at startup).
func New(pub logging.Publisher, knownItems map[string]bool) *Module {
	return &Module{Publisher: pub, KnownItems: knownItems, ledger: rules.NewLedger(engine.MaxExecutedActionUIDs)}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "inventory" }

type moduleState struct {
	Ledger []string `json:"ledger"`
}

// OnSimulationStart rehydrates the executed-action ledger from a loaded save.
func (m *Module) OnSimulationStart(sim *engine.Simulation) {
	raw := sim.Rules.Get(m.Name())
	mm, _ := raw.(map[string]any)
	var entries []string
	if mm != nil {
		if arr, ok := mm["ledger"].([]any); ok {
			for _, e := range arr {
				if s, ok := e.(string); ok {
					entries = append(entries, s)
				}
			}
		}
	}
	m.ledger = rules.RestoreLedger(engine.MaxExecutedActionUIDs, entries)
}

// OnCommand applies inventory_intent synchronously (no scheduling delay).
func (m *Module) OnCommand(sim *engine.Simulation, cmd engine.Command, index int) bool {
	if cmd.Type != EventInventoryIntent {
		return false
	}
	uid, _ := cmd.Params["actionUid"].(string)
	if uid == "" {
		uid = engine.ActionUID(cmd.Tick, index)
	}

	itemID, _ := cmd.Params["itemId"].(string)
	quantity := int(paramUint(cmd.Params["quantity"]))
	reason, _ := cmd.Params["reason"].(string)
	srcID, _ := cmd.Params["srcContainerId"].(string)
	dstID, _ := cmd.Params["dstContainerId"].(string)

	outcome := m.apply(sim, uid, srcID, dstID, itemID, quantity)
	economyevents.InventoryOutcome(context.Background(), m.Publisher, cmd.Tick, logging.EntityRef{ID: cmd.EntityID, Kind: logging.KindEntity}, economyevents.InventoryOutcomePayload{
		ItemID:   itemID,
		Reason:   reason,
		Outcome:  outcome,
		Quantity: quantity,
	})
	_ = sim.Rules.Set(m.Name(), moduleState{Ledger: m.ledger.Entries})
	return true
}

// Apply performs an inventory mutation directly, for use by collaborating
// modules (e.g. supply consumption) that need the outcome string without
// going through the command dispatch path. actionUID must be unique per
// logical application for idempotence to hold.
func (m *Module) Apply(sim *engine.Simulation, actionUID, srcID, dstID, itemID string, quantity int) string {
	return m.apply(sim, actionUID, srcID, dstID, itemID, quantity)
}

func (m *Module) apply(sim *engine.Simulation, actionUID, srcID, dstID, itemID string, quantity int) string {
	if actionUID != "" && m.ledger.Contains(actionUID) {
		return OutcomeAlreadyApplied
	}
	if m.KnownItems != nil && len(m.KnownItems) > 0 && !m.KnownItems[itemID] {
		return OutcomeUnknownItem
	}

	var src, dst *worldstate.Container
	if srcID != "" {
		c, ok := sim.World.Container(srcID)
		if !ok {
			return OutcomeUnknownContainer
		}
		src = c
	}
	if dstID != "" {
		dst = sim.World.EnsureContainer(dstID)
	}

	switch {
	case src == nil && dst != nil: // spawn
		dst.SetItem(itemID, dst.Items[itemID]+quantity)
	case src != nil && dst == nil: // consume
		have := src.Items[itemID]
		if have < quantity {
			return OutcomeInsufficientQty
		}
		src.SetItem(itemID, have-quantity)
	case src != nil && dst != nil: // transfer (includes drop, dst = world_drop:<space>:<coord>)
		have := src.Items[itemID]
		if have < quantity {
			return OutcomeInsufficientQty
		}
		src.SetItem(itemID, have-quantity)
		dst.SetItem(itemID, dst.Items[itemID]+quantity)
	default:
		return OutcomeUnknownContainer
	}

	if actionUID != "" {
		m.ledger.Record(actionUID)
	}
	return OutcomeApplied
}

// DropContainerID derives the canonical world-drop container id for a
// location.
func DropContainerID(spaceID string, cell worldstate.Cell) string {
	return fmt.Sprintf("world_drop:%s:%d,%d", spaceID, cell.A, cell.B)
}

func paramUint(v any) uint64 {
	switch n := v.(type) {
	case float64:
		return uint64(n)
	case int:
		return uint64(n)
	default:
		return 0
	}
}

var _ engine.SimulationStarter = (*Module)(nil)
var _ engine.CommandHandler = (*Module)(nil)
