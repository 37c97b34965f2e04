package sched

import (
	"fmt"

	"github.com/Uriopass/Egregoria-sub002/agent"
	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
)

// CommandKind discriminates a WorldCommand's payload. The building/zone
// commands are accepted and routed to a no-op zone registry since the
// zone/building system lives in the host, but their shape is preserved so
// callers can still issue them.
type CommandKind string

const (
	CmdMapBuildRoad            CommandKind = "MapBuildRoad"
	CmdMapSplitRoad            CommandKind = "MapSplitRoad"
	CmdMapRemoveRoad           CommandKind = "MapRemoveRoad"
	CmdMapRemoveIntersection   CommandKind = "MapRemoveIntersection"
	CmdMapBuildSpecialBuilding CommandKind = "MapBuildSpecialBuilding"
	CmdUpdateZone              CommandKind = "UpdateZone"
	CmdSetGameTime             CommandKind = "SetGameTime"
	CmdSpawnVehicle            CommandKind = "SpawnVehicle"
)

// WorldCommand is a pure function of the current world plus its arguments,
// applied in receipt order at the start of every tick. Every field is
// exported and JSON-encodable so commands serialise directly into the
// Replay log.
type WorldCommand struct {
	Kind CommandKind

	// MapBuildRoad / MapSplitRoad / MapRemoveRoad / MapRemoveIntersection
	FromPos geom.Vec3
	ToPos   geom.Vec3
	Road    citymap.RoadID
	Inter   citymap.IntersectionID
	Pattern citymap.LanePattern
	Segment citymap.SegmentKind
	SplitAt geom.Vec3

	// FromDerivative/ToDerivative supply the cubic-Hermite tangents for a
	// MapBuildRoad whose Segment is SegmentCurved; zero for SegmentStraight.
	// Elbow, when present, is a shorthand that derives both tangents from a
	// single bend point between the endpoints.
	FromDerivative geom.Vec3
	ToDerivative   geom.Vec3
	Elbow          *geom.Vec2

	// MapBuildSpecialBuilding / UpdateZone
	OBB          geom.OBB
	BuildingKind string
	Zone         string

	// SetGameTime
	Speed float64

	// SpawnVehicle
	VehicleKind agent.Kind
	SpawnAt     geom.Vec3
}

// Apply executes the command against the world/map, returning any
// rejection reason (never panicking). Invariant violations and malformed
// commands are refused atomically: no partial state is observable.
func (c WorldCommand) Apply(w *World, m *citymap.Map, zones ZoneRegistry, gt *GameTime) error {
	switch c.Kind {
	case CmdMapBuildRoad:
		a := m.Project(c.FromPos)
		b := m.Project(c.ToPos)
		srcID, err := ensureIntersection(m, a)
		if err != nil {
			return err
		}
		dstID, err := ensureIntersection(m, b)
		if err != nil {
			return err
		}
		segment := c.Segment
		fromDerivative, toDerivative := c.FromDerivative, c.ToDerivative
		if c.Elbow != nil {
			elbow := geom.Vec3From2(*c.Elbow, a.Pos.Z)
			segment = citymap.SegmentCurved
			fromDerivative = elbow.Sub(a.Pos)
			toDerivative = b.Pos.Sub(elbow)
		}
		_, err = m.Connect(srcID, dstID, c.Pattern, segment, fromDerivative, toDerivative)
		if err != nil {
			// Drop the endpoints this command created so a refused build
			// leaves the map as it was.
			if b.Kind != citymap.ProjectIntersection {
				_ = m.RemoveIntersection(dstID)
			}
			if a.Kind != citymap.ProjectIntersection {
				_ = m.RemoveIntersection(srcID)
			}
		}
		return err

	case CmdMapSplitRoad:
		_, err := m.SplitRoad(c.Road, c.SplitAt)
		return err

	case CmdMapRemoveRoad:
		return m.RemoveRoad(c.Road)

	case CmdMapRemoveIntersection:
		return m.RemoveIntersection(c.Inter)

	case CmdMapBuildSpecialBuilding:
		if zones != nil {
			zones.Register(c.BuildingKind, c.Zone)
		}
		return nil

	case CmdUpdateZone:
		if zones != nil {
			zones.Update(c.Zone)
		}
		return nil

	case CmdSetGameTime:
		if gt != nil {
			gt.Speed = c.Speed
		}
		return nil

	case CmdSpawnVehicle:
		w.SpawnVehicle(agent.Vehicle{
			Kind:      c.VehicleKind,
			Transform: agent.Transform{Pos: c.SpawnAt, Dir: geom.Vec2{X: 1}},
		})
		return nil

	default:
		return fmt.Errorf("sched: unknown command kind %q", c.Kind)
	}
}

func ensureIntersection(m *citymap.Map, proj citymap.MapProject) (citymap.IntersectionID, error) {
	if proj.Kind == citymap.ProjectIntersection {
		return proj.Inter, nil
	}
	return m.AddIntersection(proj.Pos), nil
}

// ZoneRegistry is the narrow interface the out-of-scope building/zone
// system would implement; commands that reference it degrade to a no-op
// when none is installed.
type ZoneRegistry interface {
	Register(kind, zone string)
	Update(zone string)
}

// GameTime tracks simulated time and the tick counter.
type GameTime struct {
	Tick  uint64
	Speed float64
}
