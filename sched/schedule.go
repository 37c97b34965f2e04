package sched

import "github.com/Uriopass/Egregoria-sub002/citymap"

// System is one registered step of the tick: a closure over the world and
// resources. A system may internally parallelise over entities when
// updates are commutative (itinerary, decision, routing), but never
// retains a borrow across the tick boundary.
type System func(w *World, m *citymap.Map, res *Resources, gt *GameTime)

// SeqSchedule holds an ordered list of systems, run sequentially in
// registration order every tick.
type SeqSchedule struct {
	systems []namedSystem
	pending []WorldCommand
	replay  *Replay
	zones   ZoneRegistry
}

type namedSystem struct {
	name string
	fn   System
}

func NewSeqSchedule(replay *Replay, zones ZoneRegistry) *SeqSchedule {
	return &SeqSchedule{replay: replay, zones: zones}
}

// Register appends a system to the end of the registration order.
func (s *SeqSchedule) Register(name string, fn System) {
	s.systems = append(s.systems, namedSystem{name: name, fn: fn})
}

// PushCommand enqueues a WorldCommand to be applied at the start of the
// next tick, in the order it was received relative to other pushes.
func (s *SeqSchedule) PushCommand(cmd WorldCommand) {
	s.pending = append(s.pending, cmd)
}

// Step runs exactly one logical tick: drain pending commands, run every
// registered system once in fixed order, then advance GameTime/Tick.
func (s *SeqSchedule) Step(w *World, m *citymap.Map, res *Resources, gt *GameTime) []error {
	var errs []error
	sink := &Sink{World: w, Map: m, Zones: s.zones, Time: gt}
	for _, cmd := range s.pending {
		if err := sink.Apply(cmd); err != nil {
			errs = append(errs, err)
			continue
		}
		if s.replay != nil {
			s.replay.Record(gt.Tick, cmd)
		}
	}
	s.pending = nil

	for _, sys := range s.systems {
		sys.fn(w, m, res, gt)
	}

	gt.Tick++
	return errs
}

// Run drains ticks, one per call to ts.Tick(), until it returns false;
// this is the deterministic batch/replay entry point (no real sleeps).
func Run(ts *Timestep, steps *SeqSchedule, w *World, m *citymap.Map, res *Resources, gt *GameTime, elapsed float64) int {
	ts.PrepareFrame(elapsed)
	n := 0
	for ts.Tick() {
		steps.Step(w, m, res, gt)
		n++
	}
	return n
}
