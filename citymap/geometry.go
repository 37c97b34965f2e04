package citymap

import "github.com/Uriopass/Egregoria-sub002/geom"

// regenerateLaneGeometry recomputes every lane's Points from its parent
// road's InterfacedPoints: lanes are offset laterally by DistFromBottom
// and reversed when they run src->dst opposite the road's own direction.
func (m *Map) regenerateLaneGeometry(rid RoadID) {
	rd, ok := m.roads.Get(rid)
	if !ok {
		return
	}
	centerline := rd.InterfacedPoints()
	halfWidth := rd.Width / 2

	regen := func(lid LaneID, backward bool) {
		ld := m.lanes.GetMut(lid)
		if ld == nil {
			return
		}
		offset := ld.DistFromBottom - halfWidth
		pts := offsetPolyline(centerline, offset)
		if backward {
			pts = pts.Reverse()
		}
		ld.Points = pts
	}

	for _, l := range rd.LanesBackward {
		regen(l, true)
	}
	for _, l := range rd.LanesForward {
		regen(l, false)
	}
}

func (m *Map) regenerateAffectedLaneGeometry(roads []RoadID) {
	for _, r := range roads {
		m.regenerateLaneGeometry(r)
	}
}

// offsetPolyline shifts every point perpendicular to its local tangent by
// offset meters (positive = leftward).
func offsetPolyline(p geom.Polyline3, offset float64) geom.Polyline3 {
	pts := p.Points()
	out := make([]geom.Vec3, len(pts))
	for i, pt := range pts {
		var tangent geom.Vec3
		switch {
		case i+1 < len(pts):
			tangent = pts[i+1].Sub(pt).Normalize(geom.Vec3{X: 1})
		default:
			tangent = pt.Sub(pts[i-1]).Normalize(geom.Vec3{X: 1})
		}
		perp := tangent.XY().Perp().Normalize(geom.Vec2{X: 0, Y: 1})
		shifted := pt.XY().Add(perp.Scale(offset))
		out[i] = geom.Vec3From2(shifted, pt.Z)
	}
	return geom.NewPolyline3(out...)
}
