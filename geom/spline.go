package geom

import "math"

// Spline is a cubic Hermite curve defined by two endpoints and their
// tangent derivatives. Lane/road curved segments use this to generate
// smooth centerlines.
type Spline struct {
	From, To             Vec3
	FromDerivative       Vec3
	ToDerivative         Vec3
}

func (s Spline) eval(t float64) Vec3 {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	p := s.From.Scale(h00)
	p = p.Add(s.FromDerivative.Scale(h10))
	p = p.Add(s.To.Scale(h01))
	p = p.Add(s.ToDerivative.Scale(h11))
	return p
}

func (s Spline) derivative(t float64) Vec3 {
	t2 := t * t
	dh00 := 6*t2 - 6*t
	dh10 := 3*t2 - 4*t + 1
	dh01 := -6*t2 + 6*t
	dh11 := 3*t2 - 2*t

	d := s.From.Scale(dh00)
	d = d.Add(s.FromDerivative.Scale(dh10))
	d = d.Add(s.To.Scale(dh01))
	d = d.Add(s.ToDerivative.Scale(dh11))
	return d
}

// Sample returns an adaptively-stepped polyline approximation of the curve:
// the step shrinks where curvature is high, and the first/last points are
// exactly From/To.
func (s Spline) Sample(maxAngleStep float64) Polyline3 {
	if maxAngleStep <= 0 {
		maxAngleStep = 0.2
	}
	points := []Vec3{s.From}
	t := 0.0
	prevDir := s.derivative(0).Normalize(Vec3{1, 0, 0})
	for t < 1.0 {
		// Curvature-driven step: smaller steps where direction changes fast.
		step := 0.05
		for tries := 0; tries < 8; tries++ {
			nt := t + step
			if nt > 1 {
				nt = 1
			}
			dir := s.derivative(nt).Normalize(prevDir)
			cosAngle := prevDir.Dot3(dir)
			if cosAngle > math.Cos(maxAngleStep) || nt >= 1 {
				t = nt
				prevDir = dir
				break
			}
			step *= 0.5
			if step < 1e-4 {
				t = nt
				prevDir = dir
				break
			}
		}
		points = append(points, s.eval(t))
	}
	points[len(points)-1] = s.To
	return NewPolyline3(points...)
}

// Length approximates the curve's arc length via sampling.
func (s Spline) Length() float64 {
	return s.Sample(0.2).Length()
}
