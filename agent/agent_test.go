package agent

import (
	"testing"

	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/Uriopass/Egregoria-sub002/itinerary"
	"github.com/stretchr/testify/assert"
)

func TestQueryRadiusCapped(t *testing.T) {
	r := QueryRadius(100, 9)
	assert.LessOrEqual(t, r, 40.0)
}

func TestCalcDecisionHoldsDuringWait(t *testing.T) {
	v := &Vehicle{Kind: DefaultCarKind(), WaitTime: 1, Transform: Transform{Dir: geom.Vec2{X: 1}}}
	d := CalcDecision(v, nil, geom.Vec3{X: 10}, true, citymap.ControlAlways, false, false, 0)
	assert.Equal(t, 0.0, d.Speed)
}

func TestCalcDecisionEntersPanickingOnRepeatedBlocker(t *testing.T) {
	v := &Vehicle{Kind: DefaultCarKind(), Transform: Transform{Dir: geom.Vec2{X: 1}}}
	blocker := []Neighbor{{ID: 7, Pos: geom.Vec3{X: 1}, Dir: geom.Vec2{X: 1}, Radius: 1}}

	CalcDecision(v, blocker, geom.Vec3{X: 10}, true, citymap.ControlAlways, false, false, 0)
	assert.Equal(t, StateDriving, v.State)
	assert.Equal(t, uint64(7), v.GridlockFlag)

	d := CalcDecision(v, blocker, geom.Vec3{X: 10}, true, citymap.ControlAlways, false, false, 1)
	assert.Equal(t, StatePanicking, v.State)
	assert.Equal(t, uint64(1), v.PanickingSince)
	assert.Equal(t, 0.0, d.Speed)
}

func TestCalcDecisionExitsPanickingAfterStagger(t *testing.T) {
	v := &Vehicle{Kind: DefaultCarKind(), State: StatePanicking, PanickingSince: 0, Transform: Transform{Dir: geom.Vec2{X: 1}}}
	wait := panicWaitTicks(v)

	d := CalcDecision(v, nil, geom.Vec3{X: 10}, true, citymap.ControlAlways, false, false, wait-1)
	assert.Equal(t, StatePanicking, v.State)
	assert.Equal(t, 0.0, d.Speed)

	CalcDecision(v, nil, geom.Vec3{X: 10}, true, citymap.ControlAlways, false, false, wait)
	assert.Equal(t, StateDriving, v.State)
}

func TestStepAccelerates(t *testing.T) {
	v := &Vehicle{Kind: DefaultCarKind(), Transform: Transform{Dir: geom.Vec2{X: 1}}}
	Step(v, Decision{Speed: 10, Dir: geom.Vec2{X: 1}}, 1.0)
	assert.Greater(t, v.Speed, 0.0)
	assert.LessOrEqual(t, v.Speed, 10.0)
}

func TestStepParkingCompletesAtT1(t *testing.T) {
	v := &Vehicle{Kind: DefaultCarKind(), State: StateRoadToPark, ParkSpline: []geom.Vec3{{}, {X: 10}}}
	for i := 0; i < 10; i++ {
		Step(v, Decision{}, 1.0)
	}
	assert.Equal(t, StateParked, v.State)
}

func TestCancelParkingFreesStateWhenLaneRemoved(t *testing.T) {
	m := citymap.NewMap()
	a := m.AddIntersection(geom.NewVec3(0, 0, 0))
	b := m.AddIntersection(geom.NewVec3(60, 0, 0))
	pattern := citymap.DefaultLanePattern()
	pattern.NParking = 1
	r, err := m.Connect(a, b, pattern, citymap.SegmentStraight)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	var parkLane citymap.LaneID
	rd, _ := m.Road(r)
	for _, l := range rd.LanesForward {
		ld, _ := m.Lane(l)
		if ld.Kind == citymap.LaneParking {
			parkLane = l
		}
	}
	if parkLane.Nil() {
		t.Fatalf("expected a parking lane")
	}

	v := &Vehicle{Kind: DefaultCarKind()}
	BeginParking(v, []geom.Vec3{{}, {X: 5}}, 17, parkLane)
	if CancelParkingIfLaneRemoved(v, m) {
		t.Fatalf("parking must survive while the lane is alive")
	}

	if err := m.RemoveRoad(r); err != nil {
		t.Fatalf("remove road: %v", err)
	}
	if !CancelParkingIfLaneRemoved(v, m) {
		t.Fatalf("expected parking cancelled after lane removal")
	}
	assert.Equal(t, StateDriving, v.State)
	assert.Equal(t, uint64(0), v.ParkSpot)
	assert.Equal(t, itinerary.KindWaitForReroute, v.It.Kind)
}

// Approaching a fixed objective under CalcDecision+Step must never move
// the vehicle further from it until the point is reached.
func TestApproachDistanceNonIncreasing(t *testing.T) {
	v := &Vehicle{Kind: DefaultCarKind(), Transform: Transform{Dir: geom.Vec2{X: 1}}}
	objective := geom.Vec3{X: 40}
	prev := v.Transform.Pos.Distance(objective)
	for i := 0; i < 200; i++ {
		d := CalcDecision(v, nil, objective, true, citymap.ControlAlways, false, false, uint64(i))
		Step(v, d, 0.05)
		cur := v.Transform.Pos.Distance(objective)
		if cur < 1.5 {
			return
		}
		assert.LessOrEqual(t, cur, prev+1e-9)
		prev = cur
	}
	t.Fatalf("vehicle never reached the objective, stopped at %.2f m", prev)
}
