package geom

import (
	"math"
	"testing"
)

func TestVec2Normalize(t *testing.T) {
	v := Vec2{3, 4}
	n := v.Normalize()
	if math.Abs(n.Len()-1) > 1e-9 {
		t.Fatalf("expected unit length, got %v", n.Len())
	}
	degenerate := Vec2{}.Normalize(Vec2{1, 0})
	if degenerate != (Vec2{1, 0}) {
		t.Fatalf("expected fallback, got %v", degenerate)
	}
}

func TestPolylineFirstLast(t *testing.T) {
	p := NewPolyline3(Vec3{0, 0, 0}, Vec3{10, 0, 0}, Vec3{10, 10, 0})
	if p.First() != (Vec3{0, 0, 0}) {
		t.Fatalf("unexpected first: %v", p.First())
	}
	if p.Last() != (Vec3{10, 10, 0}) {
		t.Fatalf("unexpected last: %v", p.Last())
	}
	if math.Abs(p.Length()-20) > 1e-9 {
		t.Fatalf("expected length 20, got %v", p.Length())
	}
}

func TestPolylineReverse(t *testing.T) {
	p := NewPolyline3(Vec3{0, 0, 0}, Vec3{10, 0, 0})
	r := p.Reverse()
	if r.First() != p.Last() || r.Last() != p.First() {
		t.Fatalf("reverse did not swap endpoints")
	}
}

func TestPolylineProject(t *testing.T) {
	p := NewPolyline3(Vec3{0, 0, 0}, Vec3{10, 0, 0})
	res := p.Project(Vec3{5, 3, 0})
	if math.Abs(res.Point.X-5) > 1e-9 || math.Abs(res.Point.Y) > 1e-9 {
		t.Fatalf("unexpected projection: %v", res.Point)
	}
}

func TestPolylineSlice(t *testing.T) {
	p := NewPolyline3(Vec3{0, 0, 0}, Vec3{10, 0, 0}, Vec3{20, 0, 0})
	s := p.Slice(5, 15)
	if math.Abs(s.First().X-5) > 1e-9 || math.Abs(s.Last().X-15) > 1e-9 {
		t.Fatalf("unexpected slice endpoints: %v %v", s.First(), s.Last())
	}
}

func TestSplineEndpointsExact(t *testing.T) {
	s := Spline{
		From:           Vec3{0, 0, 0},
		To:             Vec3{10, 10, 0},
		FromDerivative: Vec3{5, 0, 0},
		ToDerivative:   Vec3{5, 0, 0},
	}
	poly := s.Sample(0.2)
	if poly.First() != s.From {
		t.Fatalf("expected exact start, got %v", poly.First())
	}
	if poly.Last() != s.To {
		t.Fatalf("expected exact end, got %v", poly.Last())
	}
}

func TestPseudoAngleMonotonic(t *testing.T) {
	prev := math.Inf(-1)
	for deg := 0; deg < 360; deg += 5 {
		rad := float64(deg) * math.Pi / 180
		v := Vec2{math.Cos(rad), math.Sin(rad)}
		pa := v.PseudoAngle()
		if pa < -1 || pa >= 1 {
			t.Fatalf("pseudo-angle out of [-1,1) at %d deg: %v", deg, pa)
		}
		if pa <= prev {
			t.Fatalf("pseudo-angle not strictly increasing near %d deg: %v <= %v", deg, pa, prev)
		}
		prev = pa
	}
}

func TestOBBContainsAndAABB(t *testing.T) {
	o := NewOBB(Vec2{10, 10}, Vec2{1, 1}, 4, 2)
	if !o.Contains(Vec2{10, 10}) {
		t.Fatalf("expected center inside")
	}
	if o.Contains(Vec2{20, 10}) {
		t.Fatalf("did not expect far point inside")
	}
	box := o.ToAABB()
	for _, c := range o.Corners() {
		if !box.Contains(c) {
			t.Fatalf("aabb must enclose corner %v", c)
		}
	}
}

func TestHaversineKnownDistances(t *testing.T) {
	// One degree of longitude at the equator.
	d := HaversineMeters(0, 0, 0, 1)
	if math.Abs(d-111195) > 200 {
		t.Fatalf("expected ~111195 m, got %v", d)
	}
	if HaversineMeters(10, 20, 10, 20) != 0 {
		t.Fatalf("coincident points must be 0 m apart")
	}
}
