package localencounter

import (
	"testing"

	"hexkeep/internal/engine"
	"hexkeep/internal/hexgrid"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"

	. "github.com/smartystreets/goconvey/convey"
)

func defaultTemplates() map[string]ArenaTemplate {
	return map[string]ArenaTemplate{
		"default": {ID: "default", Width: 8, Height: 8, Entry: worldstate.Cell{A: 1, B: 1}},
		"minimal": {ID: "minimal", Width: 4, Height: 4},
	}
}

func TestLocalEncounterLifecycle(t *testing.T) {
	Convey("Given an entity in the default campaign space", t, func() {
		sim := engine.New("seed")
		ent := worldstate.NewEntity("e1", worldstate.DefaultSpaceID)
		sim.Entities.Add(ent)
		m := New(logging.NopPublisher{}, defaultTemplates())

		Convey("A local_encounter_request migrates the entity into a fresh local space", func() {
			handled := m.OnCommand(sim, engine.Command{Tick: 1, Type: CommandLocalEncounterRequest, Params: map[string]any{"entityId": "e1"}}, 0)
			So(handled, ShouldBeTrue)
			So(ent.SpaceID, ShouldNotEqual, worldstate.DefaultSpaceID)
			localSpace, ok := sim.World.Space(ent.SpaceID)
			So(ok, ShouldBeTrue)
			So(localSpace.Topology, ShouldEqual, hexgrid.TopologySquareGrid)
			So(localSpace.Role, ShouldEqual, worldstate.RoleLocal)
			So(len(m.active), ShouldEqual, 1)

			Convey("Replaying the same request_event_id is a no-op (processed_request_ids ledger)", func() {
				spaceBefore := ent.SpaceID
				m.OnCommand(sim, engine.Command{Tick: 1, Type: CommandLocalEncounterRequest, Params: map[string]any{"entityId": "e1"}}, 0)
				So(ent.SpaceID, ShouldEqual, spaceBefore)
				So(len(m.active), ShouldEqual, 1)
			})

			Convey("Ending the encounter returns the entity to its origin space", func() {
				localSpaceID := ent.SpaceID
				handled := m.OnCommand(sim, engine.Command{Tick: 2, EntityID: "e1", Type: CommandEndLocalEncounter}, 0)
				So(handled, ShouldBeTrue)
				So(ent.SpaceID, ShouldEqual, worldstate.DefaultSpaceID)
				_, stillActive := m.active[localSpaceID]
				So(stillActive, ShouldBeFalse)

				Convey("A second end request for the same action_uid is rejected by processed_end_action_uids", func() {
					ent.SpaceID = localSpaceID // simulate a racing replay before any other mutation
					m.OnCommand(sim, engine.Command{Tick: 2, EntityID: "e1", Type: CommandEndLocalEncounter}, 0)
					So(ent.SpaceID, ShouldEqual, localSpaceID) // untouched: the ledger already recorded this action_uid
				})
			})

			Convey("A concurrent second end request for the same local space is flagged already_returning", func() {
				localSpaceID := ent.SpaceID
				m.returnInProgress[localSpaceID] = true
				m.OnCommand(sim, engine.Command{Tick: 2, EntityID: "e1", Type: CommandEndLocalEncounter, Params: map[string]any{"actionUid": "distinct-uid"}}, 0)
				So(ent.SpaceID, ShouldEqual, localSpaceID) // return-in-progress blocks a second concurrent return
			})
		})
	})
}

func TestStartRejectsAtCapacity(t *testing.T) {
	Convey("Given the active set already at MaxActiveLocalEncounters", t, func() {
		sim := engine.New("seed")
		m := New(logging.NopPublisher{}, defaultTemplates())
		for i := 0; i < engine.MaxActiveLocalEncounters; i++ {
			m.active["slot-"+string(rune('a'+i))] = activeEncounter{}
		}
		ent := worldstate.NewEntity("e1", worldstate.DefaultSpaceID)
		sim.Entities.Add(ent)

		Convey("A new request is rejected and the entity is left in place", func() {
			m.OnCommand(sim, engine.Command{Tick: 1, Type: CommandLocalEncounterRequest, Params: map[string]any{"entityId": "e1"}}, 0)
			So(ent.SpaceID, ShouldEqual, worldstate.DefaultSpaceID)
			So(len(m.active), ShouldEqual, engine.MaxActiveLocalEncounters)
		})
	})
}

func TestStartRejectsNonCampaignOrigin(t *testing.T) {
	Convey("Given an entity already inside a local space", t, func() {
		sim := engine.New("seed")
		sim.World.AddSpace("already-local", hexgrid.TopologySquareGrid, worldstate.TopologyParams{Width: 4, Height: 4}, worldstate.RoleLocal)
		ent := worldstate.NewEntity("e1", "already-local")
		sim.Entities.Add(ent)
		m := New(logging.NopPublisher{}, defaultTemplates())

		Convey("A local_encounter_request for it is rejected", func() {
			m.OnCommand(sim, engine.Command{Tick: 1, Type: CommandLocalEncounterRequest, Params: map[string]any{"entityId": "e1"}}, 0)
			So(len(m.active), ShouldEqual, 0)
			So(ent.SpaceID, ShouldEqual, "already-local")
		})
	})
}

func TestOnCommandIgnoresOtherTypes(t *testing.T) {
	m := New(logging.NopPublisher{}, defaultTemplates())
	sim := engine.New("seed")
	if m.OnCommand(sim, engine.Command{Type: "move_intent"}, 0) {
		t.Fatalf("localencounter module must not claim unrelated command types")
	}
}

func TestOnSimulationStartRehydratesState(t *testing.T) {
	Convey("Given a save carrying active encounters and ledgers", t, func() {
		sim := engine.New("seed")
		_ = sim.Rules.Set("localencounter", moduleState{
			Active: map[string]activeEncounter{
				"local_encounter:1:0": {RequestEventID: "1:0", EntityID: "e1", OriginSpaceID: worldstate.DefaultSpaceID},
			},
			ReturnInProgress: map[string]bool{"local_encounter:2:0": true},
			ProcessedReq:     []string{"1:0"},
			ProcessedEnd:     []string{"2:0"},
		})
		m := New(logging.NopPublisher{}, defaultTemplates())
		m.OnSimulationStart(sim)

		Convey("The active map, return-in-progress set, and both ledgers are restored", func() {
			So(len(m.active), ShouldEqual, 1)
			So(m.active["local_encounter:1:0"].EntityID, ShouldEqual, "e1")
			So(m.returnInProgress["local_encounter:2:0"], ShouldBeTrue)
			So(m.processedReq.Contains("1:0"), ShouldBeTrue)
			So(m.processedEnd.Contains("2:0"), ShouldBeTrue)
		})
	})
}
