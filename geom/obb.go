package geom

import "math"

// OBB is an oriented bounding box in the XY plane: a center, a unit axis
// for the local X direction, and half-extents along the local axes.
// Special-building footprints are placed with one of these.
type OBB struct {
	Center Vec2
	Axis   Vec2 // unit direction of the local X axis
	Half   Vec2 // half-extents along (Axis, Axis.Perp())
}

// NewOBB builds an OBB, normalising the axis (falling back to +X).
func NewOBB(center Vec2, axis Vec2, halfX, halfY float64) OBB {
	return OBB{
		Center: center,
		Axis:   axis.Normalize(),
		Half:   Vec2{math.Abs(halfX), math.Abs(halfY)},
	}
}

// Corners returns the four corner points in counterclockwise order.
func (o OBB) Corners() [4]Vec2 {
	ax := o.Axis.Scale(o.Half.X)
	ay := o.Axis.Perp().Scale(o.Half.Y)
	return [4]Vec2{
		o.Center.Sub(ax).Sub(ay),
		o.Center.Add(ax).Sub(ay),
		o.Center.Add(ax).Add(ay),
		o.Center.Sub(ax).Add(ay),
	}
}

// Contains reports whether p lies inside the box.
func (o OBB) Contains(p Vec2) bool {
	d := p.Sub(o.Center)
	return math.Abs(d.Dot(o.Axis)) <= o.Half.X && math.Abs(d.Dot(o.Axis.Perp())) <= o.Half.Y
}

// ToAABB returns the smallest axis-aligned box enclosing the OBB.
func (o OBB) ToAABB() AABB {
	corners := o.Corners()
	box := AABB{Min: corners[0], Max: corners[0]}
	for _, c := range corners[1:] {
		box.Min.X = math.Min(box.Min.X, c.X)
		box.Min.Y = math.Min(box.Min.Y, c.Y)
		box.Max.X = math.Max(box.Max.X, c.X)
		box.Max.Y = math.Max(box.Max.Y, c.Y)
	}
	return box
}
