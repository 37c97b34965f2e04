// Package geom implements the vector, polyline and spline kernel shared by
// every other package in this module.
package geom

import "math"

// Vec2 is a finite 2D vector. Construction helpers sanitise NaN/Inf inputs
// to zero so downstream geometry never has to special-case them.
type Vec2 struct {
	X, Y float64
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: sanitize(x), Y: sanitize(y)}
}

func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Dot(o Vec2) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Perp() Vec2           { return Vec2{-v.Y, v.X} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Len2() float64        { return v.X*v.X + v.Y*v.Y }

// Normalize returns the unit vector, or fallback (defaulting to the X axis)
// when the vector is degenerate.
func (v Vec2) Normalize(fallback ...Vec2) Vec2 {
	l := v.Len()
	if l < 1e-9 {
		if len(fallback) > 0 {
			return fallback[0]
		}
		return Vec2{1, 0}
	}
	return Vec2{v.X / l, v.Y / l}
}

func (v Vec2) Distance(o Vec2) float64 { return v.Sub(o).Len() }

// PseudoAngle returns a monotonic angular proxy in [-1,1) without calling
// a trig function, used to sort roads around an intersection. The diamond
// angle grows from -1 at heading +X counterclockwise through 0 at -X and
// back towards 1 just below +X again.
func (v Vec2) PseudoAngle() float64 {
	l1 := math.Abs(v.X) + math.Abs(v.Y)
	if l1 < 1e-12 {
		return 0
	}
	p := v.Y / l1
	if v.X < 0 {
		p = 2 - p
	}
	if p < 0 {
		p += 4
	}
	return p/2 - 1
}

// Vec3 is a finite 3D vector used for map/world positions.
type Vec3 struct {
	X, Y, Z float64
}

func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: sanitize(x), Y: sanitize(y), Z: sanitize(z)}
}

func (v Vec3) XY() Vec2 { return Vec2{v.X, v.Y} }

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Len() float64         { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

func (v Vec3) Normalize(fallback ...Vec3) Vec3 {
	l := v.Len()
	if l < 1e-9 {
		if len(fallback) > 0 {
			return fallback[0]
		}
		return Vec3{1, 0, 0}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Len() }

func Vec3From2(xy Vec2, z float64) Vec3 { return Vec3{xy.X, xy.Y, z} }

// AABB is an axis-aligned bounding box in the XY plane, used by the spatial
// grid and collision queries.
type AABB struct {
	Min, Max Vec2
}

func NewAABB(center Vec2, halfExtent float64) AABB {
	return AABB{
		Min: Vec2{center.X - halfExtent, center.Y - halfExtent},
		Max: Vec2{center.X + halfExtent, center.Y + halfExtent},
	}
}

func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// SegmentIntersect returns the intersection point of segments (a0,a1) and
// (b0,b1), if any, and whether one exists.
func SegmentIntersect(a0, a1, b0, b1 Vec2) (Vec2, bool) {
	r := a1.Sub(a0)
	s := b1.Sub(b0)
	denom := r.X*s.Y - r.Y*s.X
	if math.Abs(denom) < 1e-12 {
		return Vec2{}, false
	}
	qp := b0.Sub(a0)
	t := (qp.X*s.Y - qp.Y*s.X) / denom
	u := (qp.X*r.Y - qp.Y*r.X) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Vec2{}, false
	}
	return a0.Add(r.Scale(t)), true
}
