package citymap

import (
	"fmt"
	"sort"

	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/Uriopass/Egregoria-sub002/internal/slotmap"
	"github.com/Uriopass/Egregoria-sub002/spatial"
)

const minInterface = 9.0

// Map is the topological+geometric graph of intersections, roads, lanes
// and turns. Every edit leaves the graph consistent: lane parents exist,
// road lists stay angle-sorted, turns connect live lanes, and derived
// geometry is regenerated rather than patched.
type Map struct {
	inters *slotmap.Store[IntersectionData]
	roads  *slotmap.Store[RoadData]
	lanes  *slotmap.Store[LaneData]
	turns  map[TurnID]TurnData

	roadGrid  *spatial.Grid
	interGrid *spatial.Grid
	roadByH   map[spatial.Handle]RoadID
	interByH  map[spatial.Handle]IntersectionID
	roadH     map[RoadID]spatial.Handle
	interH    map[IntersectionID]spatial.Handle

	lots    map[LotID]LotData
	nextLot LotID
}

func NewMap() *Map {
	return &Map{
		inters:    slotmap.NewStore[IntersectionData](),
		roads:     slotmap.NewStore[RoadData](),
		lanes:     slotmap.NewStore[LaneData](),
		turns:     make(map[TurnID]TurnData),
		roadGrid:  spatial.NewGrid(100),
		interGrid: spatial.NewGrid(100),
		roadByH:   make(map[spatial.Handle]RoadID),
		interByH:  make(map[spatial.Handle]IntersectionID),
		roadH:     make(map[RoadID]spatial.Handle),
		interH:    make(map[IntersectionID]spatial.Handle),
		lots:      make(map[LotID]LotData),
	}
}

// AddLot attaches a building lot at pos to road r, returning its id.
func (m *Map) AddLot(r RoadID, pos geom.Vec3) (LotID, error) {
	rd := m.roads.GetMut(r)
	if rd == nil {
		return 0, fmt.Errorf("add_lot: %w", ErrNotFound)
	}
	m.nextLot++
	id := m.nextLot
	m.lots[id] = LotData{Pos: pos, Parent: r}
	rd.Lots = append(rd.Lots, id)
	return id, nil
}

// Lot returns the lot's data, if it still exists.
func (m *Map) Lot(id LotID) (LotData, bool) {
	l, ok := m.lots[id]
	return l, ok
}

func (m *Map) Intersection(id IntersectionID) (IntersectionData, bool) { return m.inters.Get(id) }
func (m *Map) Road(id RoadID) (RoadData, bool)                        { return m.roads.Get(id) }
func (m *Map) Lane(id LaneID) (LaneData, bool)                        { return m.lanes.Get(id) }
func (m *Map) Turn(id TurnID) (TurnData, bool)                        { t, ok := m.turns[id]; return t, ok }

func (m *Map) Intersections() []IntersectionID { return m.inters.Keys() }
func (m *Map) Roads() []RoadID                 { return m.roads.Keys() }
func (m *Map) Lanes() []LaneID                 { return m.lanes.Keys() }

// AddIntersection inserts an isolated node with radius = minInterface.
func (m *Map) AddIntersection(pos geom.Vec3) IntersectionID {
	id := m.inters.Insert(IntersectionData{
		Pos:    pos,
		Radius: minInterface,
	})
	h := m.interGrid.Insert(geom.NewAABB(pos.XY(), minInterface))
	m.interByH[h] = id
	m.interH[id] = h
	return id
}

// Connect creates a road between a and b, builds its lanes per pattern, and
// regenerates interfaces/turns/control for both endpoints. segment selects
// the centerline shape; when segment is SegmentCurved, derivatives may
// supply (fromDerivative, toDerivative) tangents for a cubic-Hermite curve
// (geom.Spline) — when neither derivative is supplied they default to a
// gentle bend so a curved segment never silently degenerates to a straight
// line; a single supplied derivative leaves the other at zero.
func (m *Map) Connect(a, b IntersectionID, pattern LanePattern, segment SegmentKind, derivatives ...geom.Vec3) (RoadID, error) {
	if a == b {
		return RoadID{}, ErrSameIntersection
	}
	da, ok := m.inters.Get(a)
	if !ok {
		return RoadID{}, fmt.Errorf("connect src: %w", ErrNotFound)
	}
	db, ok := m.inters.Get(b)
	if !ok {
		return RoadID{}, fmt.Errorf("connect dst: %w", ErrNotFound)
	}
	if da.Pos.Distance(db.Pos) < 1e-6 {
		return RoadID{}, ErrSelfLoopDisallowed
	}

	var fromDerivative, toDerivative geom.Vec3
	if len(derivatives) > 0 {
		fromDerivative = derivatives[0]
	}
	if len(derivatives) > 1 {
		toDerivative = derivatives[1]
	}

	width := laneWidth(pattern)
	points := buildCenterline(da.Pos, db.Pos, segment, fromDerivative, toDerivative)
	if points.Length() < 1e-6 {
		return RoadID{}, ErrZeroLength
	}

	rd := RoadData{
		Src:            a,
		Dst:            b,
		Points:         points,
		Width:          width,
		Segment:        segment,
		FromDerivative: fromDerivative,
		ToDerivative:   toDerivative,
	}
	rid := m.roads.Insert(rd)

	m.buildLanes(rid, pattern)
	m.registerRoadGrid(rid)

	m.attachRoadToIntersection(a, rid)
	m.attachRoadToIntersection(b, rid)

	m.regenerateInterfaces(a)
	m.regenerateInterfaces(b)
	m.regenerateTurns(a)
	m.regenerateTurns(b)
	m.regenerateControl(a)
	m.regenerateControl(b)
	m.regenerateLaneGeometry(rid)

	return rid, nil
}

// buildCenterline builds the road's centerline per its SegmentKind: a
// straight chord for SegmentStraight, or a cubic-Hermite curve for
// SegmentCurved. A curved segment with no caller-supplied derivatives
// still curves: it defaults to the chord direction bent by a fixed
// lateral fraction so "curved" never collapses into a disguised straight
// line.
func buildCenterline(a, b geom.Vec3, segment SegmentKind, fromDerivative, toDerivative geom.Vec3) geom.Polyline3 {
	if segment != SegmentCurved {
		return geom.NewPolyline3(a, b)
	}
	dist := a.Distance(b)
	fd, td := fromDerivative, toDerivative
	if fd.Len() < 1e-6 && td.Len() < 1e-6 {
		dir := b.Sub(a).Normalize(geom.Vec3{X: 1})
		perp := geom.Vec3From2(dir.XY().Perp(), 0)
		scale := dist / 3
		bend := perp.Scale(0.4 * scale)
		fd = dir.Scale(scale).Add(bend)
		td = dir.Scale(scale).Add(bend)
	}
	s := geom.Spline{From: a, To: b, FromDerivative: fd, ToDerivative: td}
	return s.Sample(0.2)
}

func laneWidth(p LanePattern) float64 {
	const drivingW, parkingW, sidewalkW, bikingW, railW = 3.5, 2.5, 2.0, 1.5, 3.5
	w := float64(p.NDriving)*drivingW + float64(p.NParking)*parkingW + float64(p.NBiking)*bikingW + float64(p.NRail)*railW
	if p.NSidewalk > 0 {
		w += 2 * sidewalkW
	}
	if w <= 0 {
		return minInterface
	}
	return w
}

func (m *Map) buildLanes(rid RoadID, pattern LanePattern) {
	rd, _ := m.roads.Get(rid)
	var dist float64
	mk := func(kind LaneKind, control TrafficControl, speed float64, backward bool) LaneID {
		src, dst := rd.Src, rd.Dst
		if backward {
			src, dst = dst, src
		}
		lid := m.lanes.Insert(LaneData{
			Parent:         rid,
			Src:            src,
			Dst:            dst,
			Kind:           kind,
			Control:        control,
			SpeedLimit:     speed,
			DistFromBottom: dist,
		})
		dist += kindWidth(kind)
		return lid
	}

	var forward, backward []LaneID
	for i := 0; i < pattern.NRail; i++ {
		backward = append(backward, mk(LaneRail, ControlAlways, 25, true))
	}
	for i := 0; i < pattern.NRail; i++ {
		forward = append(forward, mk(LaneRail, ControlAlways, 25, false))
	}
	if pattern.NSidewalk > 0 {
		backward = append(backward, mk(LaneWalking, ControlAlways, 1.4, true))
	}
	for i := 0; i < pattern.NParking; i++ {
		backward = append(backward, mk(LaneParking, ControlAlways, 0, true))
	}
	for i := 0; i < pattern.NBiking; i++ {
		backward = append(backward, mk(LaneBiking, ControlAlways, 7, true))
	}
	for i := 0; i < pattern.NDriving; i++ {
		backward = append(backward, mk(LaneDriving, ControlAlways, 13.9, true))
	}
	for i := 0; i < pattern.NDriving; i++ {
		forward = append(forward, mk(LaneDriving, ControlAlways, 13.9, false))
	}
	for i := 0; i < pattern.NBiking; i++ {
		forward = append(forward, mk(LaneBiking, ControlAlways, 7, false))
	}
	for i := 0; i < pattern.NParking; i++ {
		forward = append(forward, mk(LaneParking, ControlAlways, 0, false))
	}
	if pattern.NSidewalk > 0 {
		forward = append(forward, mk(LaneWalking, ControlAlways, 1.4, false))
	}

	rdp := m.roads.GetMut(rid)
	rdp.LanesBackward = backward
	rdp.LanesForward = forward
}

func kindWidth(k LaneKind) float64 {
	switch k {
	case LaneWalking:
		return 2.0
	case LaneParking:
		return 2.5
	case LaneBiking:
		return 1.5
	default:
		return 3.5
	}
}

func (m *Map) registerRoadGrid(rid RoadID) {
	rd, _ := m.roads.Get(rid)
	box := geom.AABB{Min: rd.Points.First().XY(), Max: rd.Points.First().XY()}
	for _, p := range rd.Points.Points() {
		xy := p.XY()
		if xy.X < box.Min.X {
			box.Min.X = xy.X
		}
		if xy.Y < box.Min.Y {
			box.Min.Y = xy.Y
		}
		if xy.X > box.Max.X {
			box.Max.X = xy.X
		}
		if xy.Y > box.Max.Y {
			box.Max.Y = xy.Y
		}
	}
	h := m.roadGrid.Insert(box)
	m.roadByH[h] = rid
	m.roadH[rid] = h
}

func (m *Map) attachRoadToIntersection(i IntersectionID, r RoadID) {
	id := m.inters.GetMut(i)
	if id == nil {
		return
	}
	id.Roads = append(id.Roads, r)
	m.sortRoadsByAngle(i)
}

// sortRoadsByAngle keeps roads sorted by pseudo-angle of the direction
// leaving the intersection.
func (m *Map) sortRoadsByAngle(i IntersectionID) {
	id := m.inters.GetMut(i)
	if id == nil {
		return
	}
	pos := id.Pos
	sort.Slice(id.Roads, func(a, b int) bool {
		return m.roadAngleFrom(id.Roads[a], i, pos) < m.roadAngleFrom(id.Roads[b], i, pos)
	})
}

func (m *Map) roadAngleFrom(rid RoadID, i IntersectionID, pos geom.Vec3) float64 {
	rd, ok := m.roads.Get(rid)
	if !ok {
		return 0
	}
	var dir geom.Vec3
	if rd.Src == i {
		dir = rd.Points.FirstDir()
	} else {
		dir = rd.Points.Reverse().FirstDir()
	}
	return dir.XY().PseudoAngle()
}

// removeIncidentTurns deletes any turn rooted at i.
func (m *Map) removeIncidentTurns(i IntersectionID) {
	id := m.inters.GetMut(i)
	if id == nil {
		return
	}
	for _, t := range id.Turns {
		delete(m.turns, t)
	}
	id.Turns = nil
}
