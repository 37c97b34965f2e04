package sched

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"io"

	"github.com/Uriopass/Egregoria-sub002/agent"
	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/internal/slotmap"
)

// SaveVersion prefixes every save stream; a reader refuses mismatched
// versions rather than guessing at field order.
const SaveVersion uint32 = 1

// Simulation bundles everything a save or a catch-up snapshot carries: the
// entity store, the map, simulated time, and the command log.
type Simulation struct {
	World  *World
	Map    *citymap.Map
	Time   GameTime
	Replay *Replay
}

type simBlob struct {
	Vehicles []slotmap.Slot[agent.Vehicle]
	Time     GameTime
	Entries  []ReplayEntry
	MapBytes []byte
}

// Save writes the simulation with a 4-byte little-endian version prefix
// followed by the body in a stable field order, the same stream a joining
// peer downloads during catch-up.
func Save(w io.Writer, sim *Simulation) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], SaveVersion)
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("sched: write save version: %w", err)
	}

	var mapBuf bytes.Buffer
	if sim.Map != nil {
		if err := sim.Map.Encode(&mapBuf); err != nil {
			return err
		}
	}
	blob := simBlob{
		Vehicles: sim.World.Vehicles.Snapshot(),
		Time:     sim.Time,
		MapBytes: mapBuf.Bytes(),
	}
	if sim.Replay != nil {
		blob.Entries = sim.Replay.Entries
	}
	if err := gob.NewEncoder(w).Encode(blob); err != nil {
		return fmt.Errorf("sched: encode simulation: %w", err)
	}
	return nil
}

// Load reads back what Save wrote.
func Load(r io.Reader) (*Simulation, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("sched: read save version: %w", err)
	}
	if v := binary.LittleEndian.Uint32(hdr[:]); v != SaveVersion {
		return nil, fmt.Errorf("sched: save version %d unsupported (want %d)", v, SaveVersion)
	}

	var blob simBlob
	if err := gob.NewDecoder(r).Decode(&blob); err != nil {
		return nil, fmt.Errorf("sched: decode simulation: %w", err)
	}

	sim := &Simulation{
		World:  &World{Vehicles: slotmap.RestoreStore(blob.Vehicles)},
		Time:   blob.Time,
		Replay: &Replay{Entries: blob.Entries},
	}
	if len(blob.MapBytes) > 0 {
		m, err := citymap.DecodeMap(bytes.NewReader(blob.MapBytes))
		if err != nil {
			return nil, err
		}
		sim.Map = m
	} else {
		sim.Map = citymap.NewMap()
	}
	return sim, nil
}

// StateHashes returns one hash per state section (vehicles, map, time,
// replay), computed over the stable encoding, for the round-trip and
// lockstep-divergence checks.
func (sim *Simulation) StateHashes() (map[string]uint64, error) {
	out := make(map[string]uint64)

	hash := func(encode func(io.Writer) error) (uint64, error) {
		h := fnv.New64a()
		if err := encode(h); err != nil {
			return 0, err
		}
		return h.Sum64(), nil
	}

	var err error
	if out["vehicles"], err = hash(func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(sim.World.Vehicles.Snapshot())
	}); err != nil {
		return nil, err
	}
	if out["map"], err = hash(sim.Map.Encode); err != nil {
		return nil, err
	}
	if out["time"], err = hash(func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(sim.Time)
	}); err != nil {
		return nil, err
	}
	entries := []ReplayEntry{}
	if sim.Replay != nil {
		entries = sim.Replay.Entries
	}
	if out["replay"], err = hash(func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(entries)
	}); err != nil {
		return nil, err
	}
	return out, nil
}
