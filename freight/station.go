// Package freight implements freight-station train scheduling and
// goods-company production/trading, the coarse-grained systems that call
// into pathfind and itinerary.
package freight

import (
	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/Uriopass/Egregoria-sub002/itinerary"
	"github.com/Uriopass/Egregoria-sub002/pathfind"
)

const (
	MaxTrainsPerStation = 2
	loadingWaitTicks    = 10 * 20 // 10s at a 50ms tick
	retryWaitTicks      = 10 * 20
	cargoThreshold      = 10
	cargoSubtract       = 100
)

// TrainState is a freight train's per-train state machine.
type TrainState int

const (
	TrainArriving TrainState = iota
	TrainLoading
	TrainMoving
)

type Train struct {
	State    TrainState
	WaitLeft int
	It       itinerary.Itinerary
}

// Station is a freight station with up to MaxTrainsPerStation trains.
type Station struct {
	Pos geom.Vec3
	Dir geom.Vec2

	// ExternalLane is the rail lane leading off-map to the trading
	// station; DockLane is the rail lane nearest the docking offset,
	// resolved lazily from the map when left nil.
	ExternalLane citymap.LaneID
	DockLane     citymap.LaneID

	WaitingCargo float64
	WantedCargo  float64

	Trains []*Train
}

func (s *Station) dockLane(m *citymap.Map) (citymap.LaneID, bool) {
	if !s.DockLane.Nil() {
		if _, ok := m.Lane(s.DockLane); ok {
			return s.DockLane, true
		}
	}
	lane, ok := pathfind.NearestLane(m, pathfind.Rail, s.DockingOffset())
	if ok {
		s.DockLane = lane
	}
	return lane, ok
}

// DockingOffset returns the docking point derived from the station's
// axis: 75 m along it and 40 m to its right.
func (s *Station) DockingOffset() geom.Vec3 {
	perp := s.Dir.Perp()
	offset := s.Dir.Scale(75).Sub(perp.Scale(40))
	return geom.Vec3From2(s.Pos.XY().Add(offset), s.Pos.Z)
}

// Dispatcher hands out free trains to stations that need one.
type Dispatcher interface {
	NearestFreeTrain(pos geom.Vec3) (*Train, bool)
	Release(t *Train)
}

// MaybeAssignTrain requests a train from the dispatcher when cargo exceeds
// the threshold and a slot is free.
func (s *Station) MaybeAssignTrain(disp Dispatcher, m *citymap.Map, tick uint64) {
	if s.WaitingCargo < cargoThreshold || len(s.Trains) >= MaxTrainsPerStation {
		return
	}
	tr, ok := disp.NearestFreeTrain(s.Pos)
	if !ok {
		return
	}
	dock, found := s.dockLane(m)
	if !found {
		disp.Release(tr)
		return
	}
	extLane, found := m.Lane(s.ExternalLane)
	if !found {
		disp.Release(tr)
		return
	}
	// The train arrives from the external trading station, headed for the
	// docking offset.
	it, ok := itinerary.Route(m, tick, pathfind.LaneTraversable(s.ExternalLane), dock, extLane.Points.First(), pathfind.Rail)
	if !ok {
		disp.Release(tr)
		return
	}
	tr.It = it
	tr.State = TrainArriving
	s.Trains = append(s.Trains, tr)
}

// Tick advances every train's state machine by one logical tick.
func (s *Station) Tick(disp Dispatcher, m *citymap.Map, tick uint64) {
	var remaining []*Train
	for _, tr := range s.Trains {
		keep := s.tickTrain(disp, m, tick, tr)
		if keep {
			remaining = append(remaining, tr)
		}
	}
	s.Trains = remaining
	s.MaybeAssignTrain(disp, m, tick)
}

func (s *Station) tickTrain(disp Dispatcher, m *citymap.Map, tick uint64, tr *Train) bool {
	switch tr.State {
	case TrainArriving:
		if tr.WaitLeft > 0 {
			tr.WaitLeft--
			return true
		}
		s.WaitingCargo = saturatingSub(s.WaitingCargo, cargoSubtract)
		s.WantedCargo = saturatingSub(s.WantedCargo, cargoSubtract)
		tr.State = TrainLoading
		tr.WaitLeft = loadingWaitTicks
		return true
	case TrainLoading:
		if tr.WaitLeft > 0 {
			tr.WaitLeft--
			return true
		}
		dock, found := s.dockLane(m)
		if !found {
			tr.WaitLeft = retryWaitTicks
			return true
		}
		it, ok := itinerary.Route(m, tick, pathfind.LaneTraversable(dock), s.ExternalLane, s.DockingOffset(), pathfind.Rail)
		if !ok {
			tr.WaitLeft = retryWaitTicks
			return true
		}
		tr.It = it
		tr.State = TrainMoving
		return true
	case TrainMoving:
		disp.Release(tr)
		return false
	}
	return true
}

func saturatingSub(v, amount float64) float64 {
	r := v - amount
	if r < 0 {
		return 0
	}
	return r
}
