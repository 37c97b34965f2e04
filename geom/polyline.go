package geom

import (
	"bytes"
	"encoding/gob"
	"math"
)

// Polyline3 is an ordered, never-empty sequence of points forming the
// centerline of a road, lane or turn.
type Polyline3 struct {
	points []Vec3
}

// NewPolyline3 builds a polyline from points, which must contain at least
// one point; a degenerate caller that passes none gets the origin so the
// "never empty" invariant always holds.
func NewPolyline3(points ...Vec3) Polyline3 {
	if len(points) == 0 {
		points = []Vec3{{}}
	}
	cp := make([]Vec3, len(points))
	copy(cp, points)
	return Polyline3{points: cp}
}

func (p Polyline3) First() Vec3 { return p.points[0] }
func (p Polyline3) Last() Vec3  { return p.points[len(p.points)-1] }
func (p Polyline3) Len() int    { return len(p.points) }
func (p Polyline3) At(i int) Vec3 { return p.points[i] }

func (p Polyline3) Points() []Vec3 {
	cp := make([]Vec3, len(p.points))
	copy(cp, p.points)
	return cp
}

// Reverse returns a polyline with points in reverse order.
func (p Polyline3) Reverse() Polyline3 {
	n := len(p.points)
	out := make([]Vec3, n)
	for i, v := range p.points {
		out[n-1-i] = v
	}
	return Polyline3{points: out}
}

// Length returns the total arc length of the polyline.
func (p Polyline3) Length() float64 {
	var total float64
	for i := 1; i < len(p.points); i++ {
		total += p.points[i-1].Distance(p.points[i])
	}
	return total
}

// FirstDir returns the unit tangent at the start, or the X axis for a
// degenerate (single-point or zero-length) polyline.
func (p Polyline3) FirstDir() Vec3 {
	if len(p.points) < 2 {
		return Vec3{1, 0, 0}
	}
	return p.points[1].Sub(p.points[0]).Normalize(Vec3{1, 0, 0})
}

// LastDir returns the unit tangent at the end, or the X axis for a
// degenerate polyline.
func (p Polyline3) LastDir() Vec3 {
	n := len(p.points)
	if n < 2 {
		return Vec3{1, 0, 0}
	}
	return p.points[n-1].Sub(p.points[n-2]).Normalize(Vec3{1, 0, 0})
}

// ProjectResult is the outcome of projecting a point onto a polyline.
type ProjectResult struct {
	Point      Vec3
	SegmentIdx int
	Tangent    Vec3
	Distance   float64 // arclength from polyline start to the projection
}

// Project finds the closest point on the polyline to p, along with the
// segment index and local tangent.
func (p Polyline3) Project(pt Vec3) ProjectResult {
	best := ProjectResult{Point: p.points[0], Tangent: p.FirstDir()}
	bestDist := math.MaxFloat64
	var accLen float64
	for i := 0; i+1 < len(p.points); i++ {
		a, b := p.points[i], p.points[i+1]
		seg := b.Sub(a)
		segLen := seg.Len()
		var t float64
		if segLen > 1e-9 {
			t = pt.Sub(a).Dot3(seg) / (segLen * segLen)
		}
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		cand := a.Add(seg.Scale(t))
		d := cand.Distance(pt)
		if d < bestDist {
			bestDist = d
			best = ProjectResult{
				Point:      cand,
				SegmentIdx: i,
				Tangent:    seg.Normalize(Vec3{1, 0, 0}),
				Distance:   accLen + segLen*t,
			}
		}
		accLen += segLen
	}
	return best
}

func (v Vec3) Dot3(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Slice returns the portion of the polyline between arclength positions
// from and to (from <= to), inclusive of the projected endpoints.
func (p Polyline3) Slice(from, to float64) Polyline3 {
	if from > to {
		from, to = to, from
	}
	var out []Vec3
	var acc float64
	started := false
	for i := 0; i+1 < len(p.points); i++ {
		a, b := p.points[i], p.points[i+1]
		segLen := a.Distance(b)
		segStart, segEnd := acc, acc+segLen

		if !started && from >= segStart && from <= segEnd {
			t := 0.0
			if segLen > 1e-9 {
				t = (from - segStart) / segLen
			}
			out = append(out, a.Add(b.Sub(a).Scale(t)))
			started = true
		}
		if started && segEnd > from {
			if to <= segEnd {
				t := 1.0
				if segLen > 1e-9 {
					t = (to - segStart) / segLen
				}
				out = append(out, a.Add(b.Sub(a).Scale(t)))
				break
			}
			out = append(out, b)
		}
		acc = segEnd
	}
	if len(out) == 0 {
		out = []Vec3{p.points[0]}
	}
	return NewPolyline3(out...)
}

// SampleAlong streams points at ascending distances (monotonic, each >=0 and
// <= Length()) along the polyline, calling yield for each sample.
func (p Polyline3) SampleAlong(distances []float64, yield func(Vec3)) {
	if len(distances) == 0 {
		return
	}
	idx := 0
	var acc float64
	for i := 0; i+1 < len(p.points) && idx < len(distances); i++ {
		a, b := p.points[i], p.points[i+1]
		segLen := a.Distance(b)
		for idx < len(distances) && distances[idx] <= acc+segLen {
			t := 0.0
			if segLen > 1e-9 {
				t = (distances[idx] - acc) / segLen
			}
			yield(a.Add(b.Sub(a).Scale(t)))
			idx++
		}
		acc += segLen
	}
	for idx < len(distances) {
		yield(p.Last())
		idx++
	}
}

// PointAt returns the point at arclength d from the start, clamped to the
// polyline's ends.
func (p Polyline3) PointAt(d float64) Vec3 {
	if d <= 0 {
		return p.points[0]
	}
	var acc float64
	for i := 0; i+1 < len(p.points); i++ {
		a, b := p.points[i], p.points[i+1]
		segLen := a.Distance(b)
		if d <= acc+segLen {
			t := 0.0
			if segLen > 1e-9 {
				t = (d - acc) / segLen
			}
			return a.Add(b.Sub(a).Scale(t))
		}
		acc += segLen
	}
	return p.Last()
}

// GobEncode serialises the point list so polylines survive a save/load
// round trip despite the unexported field.
func (p Polyline3) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p.points); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Polyline3) GobDecode(data []byte) error {
	var pts []Vec3
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&pts); err != nil {
		return err
	}
	if len(pts) == 0 {
		pts = []Vec3{{}}
	}
	p.points = pts
	return nil
}
