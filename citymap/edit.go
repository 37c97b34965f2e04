package citymap

import (
	"fmt"
	"sort"

	"github.com/Uriopass/Egregoria-sub002/geom"
)

// SplitRoad projects p onto road r, allocates a new intersection there,
// removes r, and inserts two roads carrying r's pattern.
func (m *Map) SplitRoad(r RoadID, p geom.Vec3) (IntersectionID, error) {
	rd, ok := m.roads.Get(r)
	if !ok {
		return IntersectionID{}, fmt.Errorf("split_road: %w", ErrNotFound)
	}
	proj := rd.Points.Project(p)
	mid := m.AddIntersection(proj.Point)

	pattern := patternFromRoad(m, r)
	segment := rd.Segment
	src, dst := rd.Src, rd.Dst
	splitTangent := splitDerivative(rd, proj.Point)

	// Capture lot data before removal; RemoveRoad drops the lots with the
	// road, and they are re-homed onto the nearer child below.
	type lotCapture struct {
		id  LotID
		pos geom.Vec3
	}
	var lots []lotCapture
	for _, l := range rd.Lots {
		if ld, ok := m.lots[l]; ok {
			lots = append(lots, lotCapture{id: l, pos: ld.Pos})
		}
	}
	m.RemoveRoad(r)

	r1, err := m.Connect(src, mid, pattern, segment, rd.FromDerivative, splitTangent)
	if err != nil {
		return IntersectionID{}, err
	}
	r2, err := m.Connect(mid, dst, pattern, segment, splitTangent, rd.ToDerivative)
	if err != nil {
		return IntersectionID{}, err
	}

	d1, _ := m.Road(r1)
	d2, _ := m.Road(r2)
	for _, l := range lots {
		target := r1
		if d2.Points.Project(l.pos).Point.Distance(l.pos) < d1.Points.Project(l.pos).Point.Distance(l.pos) {
			target = r2
		}
		m.lots[l.id] = LotData{Pos: l.pos, Parent: target}
		rp := m.roads.GetMut(target)
		rp.Lots = append(rp.Lots, l.id)
	}

	return mid, nil
}

// splitDerivative approximates the tangent a curved road's two halves
// should carry at the new split point, scaled proportionally to the
// original curve's length so the two child curves neither overshoot nor
// pinch; a straight road's derivative is unused (buildCenterline ignores it
// for SegmentStraight).
func splitDerivative(rd RoadData, splitPoint geom.Vec3) geom.Vec3 {
	if rd.Segment != SegmentCurved {
		return geom.Vec3{}
	}
	tangent := rd.Points.Project(splitPoint).Tangent
	scale := rd.Points.Length() / 6
	return tangent.Scale(scale)
}

func patternFromRoad(m *Map, r RoadID) LanePattern {
	rd, _ := m.roads.Get(r)
	var pat LanePattern
	for _, l := range append(append([]LaneID{}, rd.LanesForward...), rd.LanesBackward...) {
		ld, ok := m.lanes.Get(l)
		if !ok {
			continue
		}
		switch ld.Kind {
		case LaneDriving:
			pat.NDriving++
		case LaneParking:
			pat.NParking++
		case LaneBiking:
			pat.NBiking++
		case LaneWalking:
			pat.NSidewalk = 1
		case LaneRail:
			pat.NRail++
		}
	}
	// Forward/backward each counted separately above; halve driving count
	// since both directions were summed (a default pattern builds the same
	// count on both sides).
	if pat.NDriving > 1 {
		pat.NDriving /= 2
	}
	if pat.NParking > 1 {
		pat.NParking /= 2
	}
	if pat.NBiking > 1 {
		pat.NBiking /= 2
	}
	if pat.NRail > 1 {
		pat.NRail /= 2
	}
	if pat.NDriving == 0 && pat.NRail == 0 {
		pat.NDriving = 1
	}
	return pat
}

// RemoveRoad removes all lanes and the road itself, updating both endpoint
// intersections' roads list, interfaces and turns. An endpoint that
// becomes isolated remains (not auto-removed).
func (m *Map) RemoveRoad(r RoadID) error {
	rd, ok := m.roads.Get(r)
	if !ok {
		return fmt.Errorf("remove_road: %w", ErrNotFound)
	}
	for _, l := range append(append([]LaneID{}, rd.LanesForward...), rd.LanesBackward...) {
		m.lanes.Remove(l)
	}
	for _, l := range rd.Lots {
		delete(m.lots, l)
	}

	if h, ok := m.roadH[r]; ok {
		m.roadGrid.Remove(h)
		delete(m.roadByH, h)
		delete(m.roadH, r)
	}

	m.detachRoad(rd.Src, r)
	m.detachRoad(rd.Dst, r)
	m.roads.Remove(r)

	m.regenerateInterfaces(rd.Src)
	m.regenerateInterfaces(rd.Dst)
	m.regenerateTurns(rd.Src)
	m.regenerateTurns(rd.Dst)
	m.regenerateControl(rd.Src)
	m.regenerateControl(rd.Dst)
	return nil
}

func (m *Map) detachRoad(i IntersectionID, r RoadID) {
	id := m.inters.GetMut(i)
	if id == nil {
		return
	}
	out := id.Roads[:0]
	for _, x := range id.Roads {
		if x != r {
			out = append(out, x)
		}
	}
	id.Roads = out
}

// RemoveIntersection removes every incident road, then the node itself.
func (m *Map) RemoveIntersection(i IntersectionID) error {
	id, ok := m.inters.Get(i)
	if !ok {
		return fmt.Errorf("remove_intersection: %w", ErrNotFound)
	}
	for _, r := range append([]RoadID{}, id.Roads...) {
		_ = m.RemoveRoad(r)
	}
	if h, ok := m.interH[i]; ok {
		m.interGrid.Remove(h)
		delete(m.interByH, h)
		delete(m.interH, i)
	}
	m.inters.Remove(i)
	return nil
}

// ProjectKind discriminates what kind of entity a MapProject landed on.
// ProjectBuilding is reserved for the host's building system: the core
// never produces it itself, but commands carrying one are understood.
type ProjectKind int

const (
	ProjectGround ProjectKind = iota
	ProjectIntersection
	ProjectRoad
	ProjectBuilding
	ProjectLot
)

// MapProject is the result of projecting an arbitrary point onto the map.
type MapProject struct {
	Pos   geom.Vec3
	Kind  ProjectKind
	Inter IntersectionID
	Road  RoadID
	Lot   LotID
}

const projectTolerance = 15.0

// Project picks the nearest map entity within a small tolerance, else Ground.
func (m *Map) Project(p geom.Vec3) MapProject {
	best := MapProject{Pos: p, Kind: ProjectGround}
	bestDist := projectTolerance

	for _, h := range m.interGrid.QueryAround(p.XY(), projectTolerance) {
		iid, ok := m.interByH[h]
		if !ok {
			continue
		}
		id, ok := m.inters.Get(iid)
		if !ok {
			continue
		}
		d := id.Pos.Distance(p)
		if d < bestDist {
			bestDist = d
			best = MapProject{Pos: id.Pos, Kind: ProjectIntersection, Inter: iid}
		}
	}

	for _, h := range m.roadGrid.QueryAround(p.XY(), projectTolerance) {
		rid, ok := m.roadByH[h]
		if !ok {
			continue
		}
		rd, ok := m.roads.Get(rid)
		if !ok {
			continue
		}
		res := rd.Points.Project(p)
		d := res.Point.Distance(p)
		if d < bestDist {
			bestDist = d
			best = MapProject{Pos: res.Point, Kind: ProjectRoad, Road: rid}
		}
	}

	// Lots win over the road they front when strictly nearer; iterate in
	// ascending id order so ties resolve the same way every run.
	lotIDs := make([]LotID, 0, len(m.lots))
	for id := range m.lots {
		lotIDs = append(lotIDs, id)
	}
	sort.Slice(lotIDs, func(i, j int) bool { return lotIDs[i] < lotIDs[j] })
	for _, id := range lotIDs {
		ld := m.lots[id]
		d := ld.Pos.Distance(p)
		if d < bestDist {
			bestDist = d
			best = MapProject{Pos: ld.Pos, Kind: ProjectLot, Lot: id}
		}
	}

	return best
}
