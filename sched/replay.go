package sched

import "github.com/Uriopass/Egregoria-sub002/citymap"

// ReplayEntry is one applied (tick, WorldCommand) pair.
type ReplayEntry struct {
	Tick    uint64
	Command WorldCommand
}

// Replay is the append-only log of every applied command; loading a
// replay re-issues commands in order on a blank world to reach any target
// frame.
type Replay struct {
	Entries []ReplayEntry
}

func NewReplay() *Replay { return &Replay{} }

func (r *Replay) Record(tick uint64, cmd WorldCommand) {
	r.Entries = append(r.Entries, ReplayEntry{Tick: tick, Command: cmd})
}

// Sink bundles the state a WorldCommand needs to apply against, so replay
// playback and live command draining share one code path.
type Sink struct {
	World *World
	Map   *citymap.Map
	Zones ZoneRegistry
	Time  *GameTime
}

func (s *Sink) Apply(cmd WorldCommand) error {
	return cmd.Apply(s.World, s.Map, s.Zones, s.Time)
}

// Playback re-applies every recorded command, in order, until targetTick
// is reached (inclusive), on a blank Sink to reproduce any historical
// frame deterministically.
func Playback(r *Replay, sink *Sink, targetTick uint64) error {
	for _, e := range r.Entries {
		if e.Tick > targetTick {
			break
		}
		if err := sink.Apply(e.Command); err != nil {
			return err
		}
	}
	return nil
}
