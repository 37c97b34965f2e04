// Package agent implements the per-tick vehicle and pedestrian decision
// core: target speed/heading from neighbour queries, traffic control, and
// a simple collision cone.
package agent

import (
	"math"

	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/Uriopass/Egregoria-sub002/internal/slotmap"
	"github.com/Uriopass/Egregoria-sub002/itinerary"
)

// State discriminates a vehicle's top-level behaviour.
type State int

const (
	StateDriving State = iota
	StateParked
	StateRoadToPark
	StatePanicking
)

// Kind holds the per-agent-class physical parameters.
type Kind struct {
	Width          float64
	Accel          float64
	Decel          float64
	CruisingSpeed  float64
	MinTurnRadius  float64
	AngAccel       float64
}

func DefaultCarKind() Kind {
	return Kind{Width: 2.0, Accel: 3.0, Decel: 9.0, CruisingSpeed: 13.9, MinTurnRadius: 6.0, AngAccel: 3.0}
}

func DefaultPedestrianKind() Kind {
	return Kind{Width: 0.5, Accel: 1.5, Decel: 1.5, CruisingSpeed: 1.4, MinTurnRadius: 0.1, AngAccel: 10}
}

// ID is the stable generational identifier for an agent, the same key
// type the World's vehicle store hands out; its 64-bit packed form is the
// gridlock tie-break flag.
type ID = slotmap.ID[Vehicle]

// Vehicle is a single simulated vehicle or pedestrian.
type Vehicle struct {
	Transform   Transform
	Kind        Kind
	It          itinerary.Itinerary
	WaitTime    float64
	Speed       float64
	AngVelocity float64
	State       State

	// RoadToPark fields.
	ParkSpline []geom.Vec3
	ParkT      float64
	ParkSpot   uint64
	ParkLane   citymap.LaneID

	PanickingSince uint64
	GridlockFlag   uint64
}

// Transform is position+heading.
type Transform struct {
	Pos geom.Vec3
	Dir geom.Vec2 // unit heading
}

// Neighbor is the information the decision core needs about another agent
// or obstacle within query range.
type Neighbor struct {
	ID       uint64
	Pos      geom.Vec3
	Dir      geom.Vec2
	Speed    float64
	Radius   float64
	OnLane   bool
}

const (
	timeToPark = 4.0

	// panicBaseTicks is the minimum gridlock recovery wait (2s at a 50ms
	// tick); panicWaitTicks adds a position-derived stagger on top so
	// gridlocked vehicles don't all resume on the same tick.
	panicBaseTicks = 40
)

// QueryRadius returns the collision-query radius for a vehicle travelling
// at speed: 12 + speed^2/(2*decel), capped at 40.
func QueryRadius(speed, decel float64) float64 {
	if decel <= 0 {
		decel = 1
	}
	r := 12 + (speed*speed)/(2*decel)
	if r > 40 {
		r = 40
	}
	return r
}

// panicWaitTicks derives a per-vehicle stagger from its position so a
// cluster of gridlocked vehicles resumes over several ticks instead of all
// at once ("wait a fractional time derived from position to shuffle
// departures").
func panicWaitTicks(v *Vehicle) uint64 {
	h := math.Mod(math.Abs(v.Transform.Pos.X*7+v.Transform.Pos.Y*13), float64(panicBaseTicks))
	return panicBaseTicks + uint64(h)
}

// Decision is the output of calc_decision: desired speed and heading.
type Decision struct {
	Speed float64
	Dir   geom.Vec2
}

// CalcDecision computes (desired_speed, desired_dir) for v given its
// neighbours and the traffic-control envelope at its current objective.
// tick drives gridlock-recovery timing: entering StatePanicking stamps
// PanickingSince, and the vehicle holds until a position-staggered wait
// (panicWaitTicks) has elapsed, so a cluster of gridlocked vehicles doesn't
// all resume simultaneously.
func CalcDecision(v *Vehicle, neighbors []Neighbor, objective geom.Vec3, hasObjective bool, control citymap.TrafficControl, lightRed, lightOrange bool, tick uint64) Decision {
	if v.State == StatePanicking {
		if tick-v.PanickingSince >= panicWaitTicks(v) {
			v.State = StateDriving
			v.GridlockFlag = 0
		} else {
			return Decision{Speed: 0, Dir: v.Transform.Dir}
		}
	}

	if v.WaitTime > 0 {
		return Decision{Speed: 0, Dir: v.Transform.Dir}
	}
	if !hasObjective {
		return Decision{Speed: 0, Dir: v.Transform.Dir}
	}

	dirToObjective := objective.Sub(v.Transform.Pos).XY().Normalize(v.Transform.Dir)
	speed := v.currentSpeed()

	frontDist, blockerID := calcFrontDist(v, neighbors, speed)

	// Two ticks running blocked by the same neighbour at a near-standstill
	// is treated as a gridlock cycle.
	if speed < 0.2 && frontDist < 1.5 && blockerID != 0 && blockerID == v.GridlockFlag {
		v.State = StatePanicking
		v.PanickingSince = tick
		v.GridlockFlag = blockerID
		return Decision{Speed: 0, Dir: v.Transform.Dir}
	}
	v.GridlockFlag = blockerID

	stopDist := speed * speed / (2 * v.Kind.Decel)

	desired := v.Kind.CruisingSpeed
	if v.Transform.Dir.Dot(dirToObjective) < 0.8 {
		desired = math.Min(desired, 6.0)
	}

	if frontDist < 0.8+stopDist {
		desired = 0
	}

	distToObjective := v.Transform.Pos.Distance(objective)
	if distToObjective < 1+stopDist {
		desired = math.Min(desired, distToObjective/(stopDist+0.01)*v.Kind.CruisingSpeed)
	}

	envelope := trafficEnvelope(control, lightRed, lightOrange, stopDist, v.Kind.Width)
	if envelope > 0 && distToObjective < envelope {
		desired = 0
	}

	return Decision{Speed: math.Max(0, desired), Dir: dirToObjective}
}

func (v *Vehicle) currentSpeed() float64 {
	return v.Speed
}

func trafficEnvelope(control citymap.TrafficControl, red, orange bool, stopDist, width float64) float64 {
	const objectiveOkDist = 3.0
	switch control {
	case citymap.ControlSignal:
		if red || orange {
			extra := math.Max(0, width/2-objectiveOkDist)
			return objectiveOkDist*1.05 + 2 + stopDist + extra
		}
		return 0
	case citymap.ControlStopSign:
		return 0.95 + stopDist
	default:
		return 0
	}
}

// calcFrontDist scans neighbours and returns the smallest of the forward
// cone distance and the ray-crossing yield distance, plus the id of the
// nearest blocking neighbour (0 if none).
func calcFrontDist(v *Vehicle, neighbors []Neighbor, speed float64) (float64, uint64) {
	best := math.MaxFloat64
	var blocker uint64
	cosThreshold := 0.85 - 0.015*math.Min(speed, 10)

	for _, n := range neighbors {
		toN := n.Pos.Sub(v.Transform.Pos).XY()
		dist := toN.Len()
		if dist < 1e-6 {
			continue
		}
		dir := toN.Normalize(v.Transform.Dir)
		cosAngle := v.Transform.Dir.Dot(dir)

		if cosAngle > cosThreshold {
			lateral := math.Abs(v.Transform.Dir.Perp().Dot(toN))
			if !n.OnLane || lateral < 3.0 {
				if dist < best {
					best = dist
					blocker = n.ID
				}
				continue
			}
		}

		if d, ok := rayCrossingYield(v, n); ok && d < best {
			best = d
			blocker = n.ID
		}
	}
	if best == math.MaxFloat64 {
		return 1e9, 0
	}
	return best, blocker
}

// rayCrossingYield implements the "who reaches the intersection first"
// test: shoot both vehicles' rays, compute parametric distances to their
// crossing point, and yield if the other arrives first after subtracting a
// reaction margin and both radii.
func rayCrossingYield(v *Vehicle, n Neighbor) (float64, bool) {
	a0 := v.Transform.Pos.XY()
	a1 := a0.Add(v.Transform.Dir.Scale(50))
	b0 := n.Pos.XY()
	b1 := b0.Add(n.Dir.Scale(50))

	cross, ok := geom.SegmentIntersect(a0, a1, b0, b1)
	if !ok {
		return 0, false
	}
	mySpeed := v.currentSpeed()
	myDist := a0.Distance(cross)
	otherDist := b0.Distance(cross)

	reactionMargin := 0.3 * mySpeed
	mine := myDist/math.Max(mySpeed, 0.5) + reactionMargin
	theirs := otherDist / math.Max(n.Speed, 0.5)

	if theirs+0.01 < mine {
		return myDist - n.Radius - v.Kind.Width/2, true
	}
	return 0, false
}

// BeginParking puts v on a precomputed parking spline into spot, recording
// the parking lane so the manoeuvre can be cancelled if that lane is
// edited away mid-park.
func BeginParking(v *Vehicle, spline []geom.Vec3, spot uint64, lane citymap.LaneID) {
	v.State = StateRoadToPark
	v.ParkSpline = spline
	v.ParkT = 0
	v.ParkSpot = spot
	v.ParkLane = lane
}

// CancelParkingIfLaneRemoved cancels an in-progress or completed parking
// manoeuvre when the parking lane no longer exists: the spot is freed, the
// spline dropped, and the vehicle re-enters Driving with a reroute-waiting
// itinerary so it finds somewhere else to go.
func CancelParkingIfLaneRemoved(v *Vehicle, m *citymap.Map) bool {
	if v.State != StateRoadToPark && v.State != StateParked {
		return false
	}
	if _, ok := m.Lane(v.ParkLane); ok {
		return false
	}
	v.State = StateDriving
	v.ParkSpline = nil
	v.ParkT = 0
	v.ParkSpot = 0
	v.ParkLane = citymap.LaneID{}
	v.It = itinerary.WaitForReroute(v.It.PathKind, v.It.RerouteDest)
	return true
}
