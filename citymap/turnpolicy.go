package citymap

import (
	"sort"

	"github.com/Uriopass/Egregoria-sub002/geom"
)

// regenerateTurns rebuilds every turn rooted at i from scratch: turn_policy
// emits candidate (TurnID, TurnKind) pairs, then each turn's Points are
// filled with a smooth arc between the source lane's last point and the
// destination lane's first point, tangent to both lane directions.
func (m *Map) regenerateTurns(i IntersectionID) {
	m.removeIncidentTurns(i)
	id, ok := m.inters.Get(i)
	if !ok {
		return
	}

	var incoming, outgoing []LaneID
	for _, rid := range id.Roads {
		rd, ok := m.roads.Get(rid)
		if !ok {
			continue
		}
		for _, l := range append(append([]LaneID{}, rd.LanesForward...), rd.LanesBackward...) {
			ld, ok := m.lanes.Get(l)
			if !ok {
				continue
			}
			if ld.Dst == i {
				incoming = append(incoming, l)
			}
			if ld.Src == i {
				outgoing = append(outgoing, l)
			}
		}
	}

	var generated []TurnID
	for _, src := range incoming {
		srcLane, _ := m.lanes.Get(src)
		for _, dst := range outgoing {
			dstLane, _ := m.lanes.Get(dst)
			if srcLane.Parent == dstLane.Parent {
				continue // no u-turns back onto the same road
			}
			if srcLane.Kind != dstLane.Kind {
				continue
			}
			kind := m.turnKindForPair(id, srcLane, dstLane)
			tid := TurnID{Parent: i, Src: src, Dst: dst, Bidirectional: srcLane.Kind == LaneWalking}
			pts := arcBetween(srcLane.Points.Last(), srcLane.Points.LastDir(), dstLane.Points.First(), dstLane.Points.FirstDir())
			m.turns[tid] = TurnData{Kind: kind, Points: pts}
			generated = append(generated, tid)
		}
	}

	idp := m.inters.GetMut(i)
	idp.Turns = generated
}

// turnKindForPair distinguishes a walking turn that merely rounds the
// corner between two angularly-adjacent sidewalks (TurnWalkingCorner) from
// one that crosses an intervening road (TurnCrosswalk); every other kind
// keeps its plain Normal/Rail classification.
func (m *Map) turnKindForPair(id IntersectionData, srcLane, dstLane LaneData) TurnKind {
	switch srcLane.Kind {
	case LaneRail:
		return TurnRail
	case LaneWalking:
		if roadsAdjacent(id.Roads, srcLane.Parent, dstLane.Parent) {
			return TurnWalkingCorner
		}
		return TurnCrosswalk
	default:
		return TurnNormal
	}
}

// roadsAdjacent reports whether a and b are next to each other in roads'
// angle-sorted order, including the wraparound pair.
func roadsAdjacent(roads []RoadID, a, b RoadID) bool {
	ia, ib := indexOfRoad(roads, a), indexOfRoad(roads, b)
	if ia < 0 || ib < 0 {
		return false
	}
	n := len(roads)
	diff := ia - ib
	if diff < 0 {
		diff = -diff
	}
	return diff == 1 || diff == n-1
}

func indexOfRoad(roads []RoadID, r RoadID) int {
	for i, x := range roads {
		if x == r {
			return i
		}
	}
	return -1
}

// regenerateControl assigns each road-like lane incident to i its Control
// regime from the intersection's LightPolicy/TurnPolicy: a through-road
// (<=2 roads meeting) always falls back to ControlAlways since there's
// nothing to regulate; otherwise a signalled intersection sorts its
// incoming lanes by pseudo-angle and alternates them into two signal
// groups, and a stop-sign intersection applies ControlStopSign uniformly.
func (m *Map) regenerateControl(i IntersectionID) {
	id, ok := m.inters.Get(i)
	if !ok {
		return
	}

	var incoming []LaneID
	for _, rid := range id.Roads {
		rd, ok := m.roads.Get(rid)
		if !ok {
			continue
		}
		for _, l := range append(append([]LaneID{}, rd.LanesForward...), rd.LanesBackward...) {
			ld, ok := m.lanes.Get(l)
			if ok && ld.Dst == i && ld.Kind.IsRoadLike() {
				incoming = append(incoming, l)
			}
		}
	}

	if len(id.Roads) <= 2 {
		m.setControl(incoming, ControlAlways, -1)
		return
	}

	switch {
	case id.LightPolicy == LightSignal || id.TurnPolicy == PolicySignal:
		sort.Slice(incoming, func(a, b int) bool {
			return m.laneIncomingAngle(incoming[a]) < m.laneIncomingAngle(incoming[b])
		})
		for idx, l := range incoming {
			m.setControl([]LaneID{l}, ControlSignal, idx%2)
		}
	case id.TurnPolicy == PolicyStopSign:
		m.setControl(incoming, ControlStopSign, -1)
	default:
		m.setControl(incoming, ControlAlways, -1)
	}
}

func (m *Map) setControl(lanes []LaneID, control TrafficControl, group int) {
	for _, l := range lanes {
		ld := m.lanes.GetMut(l)
		if ld == nil {
			continue
		}
		ld.Control = control
		if group >= 0 {
			ld.SignalGroup = group
		}
	}
}

// laneIncomingAngle returns the pseudo-angle of the direction a lane
// arrives from, used to sort incoming lanes around the intersection before
// alternating them into signal groups.
func (m *Map) laneIncomingAngle(l LaneID) float64 {
	ld, ok := m.lanes.Get(l)
	if !ok {
		return 0
	}
	return ld.Points.Reverse().FirstDir().XY().PseudoAngle()
}

// SetIntersectionPolicy updates i's light/turn policy and regenerates the
// interfaces, turns and lane control regime it drives.
func (m *Map) SetIntersectionPolicy(i IntersectionID, light LightPolicy, turn TurnPolicy) bool {
	id := m.inters.GetMut(i)
	if id == nil {
		return false
	}
	id.LightPolicy = light
	id.TurnPolicy = turn
	m.regenerateInterfaces(i)
	m.regenerateTurns(i)
	m.regenerateControl(i)
	return true
}

// SetRoundaboutRadius marks i as a roundabout with an authored radius and
// regenerates the interfaces, turns and control that depend on it; the
// radius then drives the radius*1.1+5 interface override.
func (m *Map) SetRoundaboutRadius(i IntersectionID, radius float64) bool {
	id := m.inters.GetMut(i)
	if id == nil {
		return false
	}
	id.TurnPolicy = PolicyRoundabout
	id.Radius = radius
	m.regenerateInterfaces(i)
	m.regenerateTurns(i)
	m.regenerateControl(i)
	return true
}

// arcBetween builds a cubic-Hermite arc from a to b, tangent to dirA/dirB,
// scaled by the endpoint distance so the curve neither overshoots nor pinches.
func arcBetween(a geom.Vec3, dirA geom.Vec3, b geom.Vec3, dirB geom.Vec3) geom.Polyline3 {
	d := a.Distance(b)
	scale := d / 3
	if scale < 1e-6 {
		return geom.NewPolyline3(a, b)
	}
	s := geom.Spline{
		From:           a,
		To:             b,
		FromDerivative: dirA.Scale(scale),
		ToDerivative:   dirB.Scale(scale),
	}
	return s.Sample(0.2)
}
