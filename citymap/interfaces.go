package citymap

import (
	"math"

	"github.com/Uriopass/Egregoria-sub002/geom"
)

// regenerateInterfaces recomputes SrcInterface/DstInterface for every
// road incident to i: every ordered pair of angular neighbours derives a
// minimum interface distance, and each road takes the max over all pair
// contributions and an empty baseline.
func (m *Map) regenerateInterfaces(i IntersectionID) {
	id, ok := m.inters.Get(i)
	if !ok {
		return
	}
	roads := id.Roads
	n := len(roads)
	maxInterface := minInterface

	for _, rid := range roads {
		rd, ok := m.roads.Get(rid)
		if !ok {
			continue
		}
		w := rd.Width
		best := math.Max(0.8*w, minInterface)

		if id.TurnPolicy == PolicyRoundabout {
			best = math.Max(best, id.Radius*1.1+5)
		}

		if n >= 3 {
			dir1 := m.roadAngleDir(rid, i)
			k := indexOfRoad(roads, rid)
			for _, other := range []RoadID{roads[(k+n-1)%n], roads[(k+1)%n]} {
				dir2 := m.roadAngleDir(other, i)
				ow := roadWidthOf(m, other)
				best = math.Max(best, m.pairInterface(w, ow, dir1, dir2, rid, other, i))
			}
		}

		rp := m.roads.GetMut(rid)
		if rp.Src == i {
			rp.SrcInterface = best
		} else {
			rp.DstInterface = best
		}
		maxInterface = math.Max(maxInterface, best)
	}

	// The node's radius follows its widest interface; a roundabout's
	// radius is authored (it feeds the interface override above), so it is
	// left alone.
	if id.TurnPolicy != PolicyRoundabout {
		idp := m.inters.GetMut(i)
		idp.Radius = maxInterface
		if h, ok := m.interH[i]; ok {
			m.interGrid.Update(h, geom.NewAABB(idp.Pos.XY(), maxInterface))
		}
	}

	m.regenerateAffectedLaneGeometry(roads)
}

func roadWidthOf(m *Map, rid RoadID) float64 {
	rd, _ := m.roads.Get(rid)
	return rd.Width
}

func (m *Map) roadAngleDir(rid RoadID, i IntersectionID) geom.Vec2 {
	rd, _ := m.roads.Get(rid)
	if rd.Src == i {
		return rd.Points.FirstDir().XY()
	}
	return rd.Points.Reverse().FirstDir().XY()
}

func angleBetween(a, b geom.Vec2) float64 {
	la, lb := a.Len(), b.Len()
	if la < 1e-9 || lb < 1e-9 {
		return 0
	}
	cos := a.Dot(b) / (la * lb)
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}

// pairInterface computes the minimum interface contribution from one
// ordered pair of angular neighbours: a numeric walk for near-parallel
// pairs, a closed-form sine bound otherwise.
func (m *Map) pairInterface(w1, w2 float64, dir1, dir2 geom.Vec2, r1, r2 RoadID, i IntersectionID) float64 {
	angle := angleBetween(dir1, dir2)
	const tenDeg = 10.0 * math.Pi / 180.0

	if angle < tenDeg {
		return m.numericInterface(w1, w2, r1, r2, i)
	}
	s := math.Sin(angle)
	if s < 1e-6 {
		s = 1e-6
	}
	return math.Min(50, 1.1*math.Hypot(w1/2, w2/2)/s)
}

// numericInterface walks both near-parallel roads outward from the
// intersection in 1 m steps until their centerlines have separated
// laterally beyond 0.80*(w1+w2), returning that arclength.
func (m *Map) numericInterface(w1, w2 float64, r1, r2 RoadID, i IntersectionID) float64 {
	threshold := 0.80 * (w1 + w2)
	p1 := m.roadPointsFrom(r1, i)
	p2 := m.roadPointsFrom(r2, i)
	limit := math.Min(200, math.Min(p1.Length(), p2.Length()))
	for d := 1.0; d <= limit; d++ {
		if p1.PointAt(d).Distance(p2.PointAt(d)) > threshold {
			return d
		}
	}
	return limit
}

// roadPointsFrom returns the road's centerline oriented to leave i.
func (m *Map) roadPointsFrom(r RoadID, i IntersectionID) geom.Polyline3 {
	rd, _ := m.roads.Get(r)
	if rd.Dst == i {
		return rd.Points.Reverse()
	}
	return rd.Points
}
