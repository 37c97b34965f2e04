package citymap

import (
	"encoding/gob"
	"fmt"
	"io"
	"sort"

	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/Uriopass/Egregoria-sub002/internal/slotmap"
)

// mapSnapshot is the stable serialised form of a Map: slot arrays preserve
// every live ID's index/generation, and the turn/lot maps are flattened
// into slices sorted by key so the byte stream is the same for equal maps.
type mapSnapshot struct {
	Inters []slotmap.Slot[IntersectionData]
	Roads  []slotmap.Slot[RoadData]
	Lanes  []slotmap.Slot[LaneData]

	Turns []savedTurn
	Lots  []savedLot

	NextLot LotID
}

type savedTurn struct {
	ID   TurnID
	Data TurnData
}

type savedLot struct {
	ID   LotID
	Data LotData
}

func turnLess(a, b TurnID) bool {
	if a.Parent.Pack() != b.Parent.Pack() {
		return a.Parent.Pack() < b.Parent.Pack()
	}
	if a.Src.Pack() != b.Src.Pack() {
		return a.Src.Pack() < b.Src.Pack()
	}
	if a.Dst.Pack() != b.Dst.Pack() {
		return a.Dst.Pack() < b.Dst.Pack()
	}
	return !a.Bidirectional && b.Bidirectional
}

// Encode writes the map in a stable field and key order.
func (m *Map) Encode(w io.Writer) error {
	snap := mapSnapshot{
		Inters:  m.inters.Snapshot(),
		Roads:   m.roads.Snapshot(),
		Lanes:   m.lanes.Snapshot(),
		NextLot: m.nextLot,
	}
	for id, data := range m.turns {
		snap.Turns = append(snap.Turns, savedTurn{ID: id, Data: data})
	}
	sort.Slice(snap.Turns, func(i, j int) bool { return turnLess(snap.Turns[i].ID, snap.Turns[j].ID) })
	for id, data := range m.lots {
		snap.Lots = append(snap.Lots, savedLot{ID: id, Data: data})
	}
	sort.Slice(snap.Lots, func(i, j int) bool { return snap.Lots[i].ID < snap.Lots[j].ID })

	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("citymap: encode map: %w", err)
	}
	return nil
}

// DecodeMap reads back what Encode wrote and rebuilds the derived spatial
// indices from the restored roads and intersections.
func DecodeMap(r io.Reader) (*Map, error) {
	var snap mapSnapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("citymap: decode map: %w", err)
	}

	m := NewMap()
	m.inters = slotmap.RestoreStore(snap.Inters)
	m.roads = slotmap.RestoreStore(snap.Roads)
	m.lanes = slotmap.RestoreStore(snap.Lanes)
	for _, t := range snap.Turns {
		m.turns[t.ID] = t.Data
	}
	for _, l := range snap.Lots {
		m.lots[l.ID] = l.Data
	}
	m.nextLot = snap.NextLot

	m.inters.Each(func(id IntersectionID, data *IntersectionData) {
		h := m.interGrid.Insert(geom.NewAABB(data.Pos.XY(), data.Radius))
		m.interByH[h] = id
		m.interH[id] = h
	})
	for _, rid := range m.roads.Keys() {
		m.registerRoadGrid(rid)
	}
	return m, nil
}
