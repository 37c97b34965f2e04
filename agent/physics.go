package agent

import (
	"math"

	"github.com/Uriopass/Egregoria-sub002/geom"
)

// Step integrates the vehicle's speed and heading towards decision under
// accel/decel limits and an angular velocity bounded by
// speed/min_turn_radius, clamped to 3*approx_angle each tick.
func Step(v *Vehicle, decision Decision, dt float64) {
	if v.State == StateRoadToPark {
		stepParking(v, dt)
		return
	}

	if decision.Speed > v.Speed {
		v.Speed = math.Min(decision.Speed, v.Speed+v.Kind.Accel*dt)
	} else {
		v.Speed = math.Max(decision.Speed, v.Speed-v.Kind.Decel*dt)
	}
	if v.Speed < 0 {
		v.Speed = 0
	}

	curDir := v.Transform.Dir
	cosAngle := curDir.Dot(decision.Dir)
	if cosAngle > 1 {
		cosAngle = 1
	}
	if cosAngle < -1 {
		cosAngle = -1
	}
	approxAngle := math.Acos(cosAngle)

	maxAngVel := v.Speed / math.Max(v.Kind.MinTurnRadius, 0.1)
	maxStep := math.Min(maxAngVel*dt, 3*approxAngle)

	if approxAngle > 1e-9 {
		turnDir := crossSign(curDir, decision.Dir)
		newAngle := math.Min(maxStep, approxAngle)
		v.Transform.Dir = rotate(curDir, turnDir*newAngle)
	}

	v.Transform.Pos = v.Transform.Pos.Add(geom.Vec3From2(v.Transform.Dir.Scale(v.Speed*dt), 0))

	if v.WaitTime > 0 {
		v.WaitTime = math.Max(0, v.WaitTime-dt)
	}
}

func crossSign(a, b geom.Vec2) float64 {
	cross := a.X*b.Y - a.Y*b.X
	if cross < 0 {
		return -1
	}
	return 1
}

func rotate(v geom.Vec2, angle float64) geom.Vec2 {
	c, s := math.Cos(angle), math.Sin(angle)
	return geom.Vec2{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// stepParking advances a vehicle following a precomputed parking spline;
// at t>=1 it becomes Parked with zero speed. Vehicle holds no collider
// state, so this does not remove the vehicle from any neighbour index.
func stepParking(v *Vehicle, dt float64) {
	v.ParkT += dt / timeToPark
	if v.ParkT >= 1 {
		v.ParkT = 1
		v.State = StateParked
		v.Speed = 0
		return
	}
	if len(v.ParkSpline) == 0 {
		return
	}
	idx := int(v.ParkT * float64(len(v.ParkSpline)-1))
	if idx >= len(v.ParkSpline) {
		idx = len(v.ParkSpline) - 1
	}
	v.Transform.Pos = v.ParkSpline[idx]
}
