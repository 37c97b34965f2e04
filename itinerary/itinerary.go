// Package itinerary implements the per-agent route/local-polyline state
// machine wrapping a pathfind route, with reroute-on-failure and
// wait-for-reroute backoff.
package itinerary

import (
	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/Uriopass/Egregoria-sub002/pathfind"
)

type Kind int

const (
	KindNone Kind = iota
	KindWaitUntil
	KindSimple
	KindRoute
	KindWaitForReroute
)

const (
	objectiveOkDist  = 3.0
	terminalOkDist   = 1.5
	leadInDistance   = 3.5
	initialWaitTicks = 200
)

// Itinerary is the per-agent plan: a route over the map graph plus the
// next few meters of local polyline the agent should walk.
type Itinerary struct {
	Kind Kind

	WaitUntilTick uint64

	// Route state.
	ReversedRoute []pathfind.Traversable
	EndPos        geom.Vec3
	Cur           pathfind.Traversable
	PathKind      pathfind.PathKind

	// WaitForReroute state.
	WaitTicks int
	RerouteDest citymap.LaneID

	LocalPath []geom.Vec3
}

func None() Itinerary { return Itinerary{Kind: KindNone} }

func WaitUntil(tick uint64) Itinerary {
	return Itinerary{Kind: KindWaitUntil, WaitUntilTick: tick}
}

func Simple(path []geom.Vec3) Itinerary {
	return Itinerary{Kind: KindSimple, LocalPath: path}
}

// Route attempts to build a routed itinerary from start to end: first a
// same-lane local route, then a full pathfind.Path on failure.
func Route(m *citymap.Map, tick uint64, start pathfind.Traversable, end citymap.LaneID, startPos geom.Vec3, kind pathfind.PathKind) (Itinerary, bool) {
	if !start.IsTurn && start.Lane == end {
		endLane, ok := m.Lane(end)
		if ok {
			if poly, ok := pathfind.LocalRoute(m, kind, end, startPos, endLane.Points.Last()); ok {
				leadIn := startPos.Add(poly.FirstDir().Scale(leadInDistance))
				return Itinerary{
					Kind:        KindRoute,
					EndPos:      endLane.Points.Last(),
					Cur:         start,
					PathKind:    kind,
					RerouteDest: end,
					LocalPath:   append([]geom.Vec3{leadIn}, poly.Points()...),
				}, true
			}
		}
	}

	path, ok := pathfind.Path(m, tick, kind, start, end)
	if !ok {
		return Itinerary{}, false
	}
	if len(path) > 0 && !path[0].IsTurn && path[0].Lane == start.Lane {
		path = path[1:]
	}
	if len(path) == 0 {
		return Itinerary{}, false
	}

	reversed := make([]pathfind.Traversable, len(path))
	for i, tr := range path {
		reversed[len(path)-1-i] = tr
	}

	cur := reversed[len(reversed)-1]
	reversed = reversed[:len(reversed)-1]

	endLane, _ := m.Lane(end)
	it := Itinerary{
		Kind:          KindRoute,
		ReversedRoute: reversed,
		EndPos:        endLane.Points.Last(),
		Cur:           cur,
		PathKind:      kind,
		RerouteDest:   end,
	}
	it.fillLocalPath(m, startPos)
	return it, true
}

func WaitForReroute(kind pathfind.PathKind, dest citymap.LaneID) Itinerary {
	return Itinerary{Kind: KindWaitForReroute, PathKind: kind, RerouteDest: dest, WaitTicks: initialWaitTicks}
}

func (it *Itinerary) fillLocalPath(m *citymap.Map, fromPos geom.Vec3) {
	pts := travPoints(m, it.Cur)
	proj := pts.Project(fromPos)
	sliced := pts.Slice(proj.Distance, pts.Length())
	leadIn := fromPos.Add(proj.Tangent.Scale(leadInDistance))
	points := append([]geom.Vec3{leadIn}, sliced.Points()...)
	it.LocalPath = points
}

func travPoints(m *citymap.Map, t pathfind.Traversable) geom.Polyline3 {
	if t.IsTurn {
		td, ok := m.Turn(t.Turn)
		if ok {
			if t.Direction == pathfind.Backward {
				return td.Points.Reverse()
			}
			return td.Points
		}
		return geom.NewPolyline3()
	}
	ld, ok := m.Lane(t.Lane)
	if !ok {
		return geom.NewPolyline3()
	}
	return ld.Points
}

// geometryGone reports whether the current Traversable's underlying entity
// no longer exists (lane/turn removed mid-travel).
func geometryGone(m *citymap.Map, t pathfind.Traversable) bool {
	if t.IsTurn {
		_, ok := m.Turn(t.Turn)
		return !ok
	}
	_, ok := m.Lane(t.Lane)
	return !ok
}

// Update advances the itinerary given the agent's current position and
// tick. It returns the next target point to steer towards, or ok=false if
// there is none right now.
func (it *Itinerary) Update(m *citymap.Map, tick uint64, position geom.Vec3) (geom.Vec3, bool) {
	switch it.Kind {
	case KindNone, KindWaitUntil:
		return geom.Vec3{}, false
	case KindSimple:
		return it.updateSimple(position)
	case KindWaitForReroute:
		return it.updateWaitForReroute(m, tick, position)
	case KindRoute:
		return it.updateRoute(m, tick, position)
	default:
		return geom.Vec3{}, false
	}
}

func (it *Itinerary) updateSimple(position geom.Vec3) (geom.Vec3, bool) {
	if len(it.LocalPath) == 0 {
		return geom.Vec3{}, false
	}
	next := it.LocalPath[0]
	last := len(it.LocalPath) == 1
	dist := position.Distance(next)
	okDist := objectiveOkDist
	if last {
		okDist = terminalOkDist
	}
	if dist < okDist {
		it.LocalPath = it.LocalPath[1:]
		if len(it.LocalPath) == 0 {
			return next, true
		}
		return it.LocalPath[0], true
	}
	return next, true
}

func (it *Itinerary) updateWaitForReroute(m *citymap.Map, tick uint64, position geom.Vec3) (geom.Vec3, bool) {
	if it.WaitTicks > 0 {
		it.WaitTicks--
		return geom.Vec3{}, false
	}
	startLane, ok := pathfind.NearestLane(m, it.PathKind, position)
	if !ok {
		it.WaitTicks = initialWaitTicks
		return geom.Vec3{}, false
	}
	newIt, ok := Route(m, tick, pathfind.LaneTraversable(startLane), it.RerouteDest, position, it.PathKind)
	if !ok {
		it.WaitTicks = initialWaitTicks
		return geom.Vec3{}, false
	}
	*it = newIt
	return it.Update(m, tick, position)
}

func (it *Itinerary) updateRoute(m *citymap.Map, tick uint64, position geom.Vec3) (geom.Vec3, bool) {
	if len(it.LocalPath) > 0 {
		next := it.LocalPath[0]
		terminal := len(it.ReversedRoute) == 0 && len(it.LocalPath) == 1
		if terminal {
			if position.Distance(next) < terminalOkDist {
				it.advance(m, tick)
			}
			return next, true
		}
		if position.Distance(next) < objectiveOkDist {
			if len(it.LocalPath) > 1 {
				it.LocalPath = it.LocalPath[1:]
				return it.LocalPath[0], true
			}
			if it.canPass(m, tick) {
				it.advance(m, tick)
				return it.Update(m, tick, position)
			}
			return next, true
		}
		return next, true
	}

	if it.advance(m, tick) {
		return it.Update(m, tick, position)
	}
	return geom.Vec3{}, false
}

// canPass checks the current Traversable's traffic control. A red or orange
// signal blocks passage; a stop sign never blocks passage here because
// agent.CalcDecision's traffic envelope already forces the vehicle to a
// stop at the line (the yield itself is a ray-crossing neighbour check, not
// a temporal gate). Lanes with no control, and turns (mid-intersection),
// always permit passage.
func (it *Itinerary) canPass(m *citymap.Map, tick uint64) bool {
	if it.Cur.IsTurn {
		return true
	}
	ld, ok := m.Lane(it.Cur.Lane)
	if !ok {
		return true
	}
	if ld.Control == citymap.ControlSignal {
		return citymap.LightStateAt(ld, tick) == citymap.LightGreen
	}
	return true
}

// advance pops the next Traversable off ReversedRoute and rebuilds
// LocalPath. Returns false when the route is exhausted (agent has arrived)
// or when the popped geometry is gone, in which case *it becomes
// WaitForReroute.
func (it *Itinerary) advance(m *citymap.Map, tick uint64) bool {
	if len(it.ReversedRoute) == 0 {
		it.LocalPath = nil
		return false
	}
	next := it.ReversedRoute[len(it.ReversedRoute)-1]
	it.ReversedRoute = it.ReversedRoute[:len(it.ReversedRoute)-1]

	if geometryGone(m, next) {
		dest := it.RerouteDest
		kind := it.PathKind
		*it = WaitForReroute(kind, dest)
		return false
	}

	it.Cur = next
	pts := travPoints(m, next)
	if len(it.ReversedRoute) == 0 {
		proj := pts.Project(it.EndPos)
		tail := pts.Slice(0, proj.Distance)
		it.LocalPath = append(tail.Points(), it.EndPos)
	} else {
		it.LocalPath = pts.Points()
	}
	return true
}
