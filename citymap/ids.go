// Package citymap implements the map graph: intersections, roads, lanes
// and turns, with an online edit API that preserves the graph's structural
// invariants and regenerates derived geometry.
package citymap

import "github.com/Uriopass/Egregoria-sub002/internal/slotmap"

// The ID aliases key off the data types the Map's slotmap stores actually
// hold, so they match what Insert/Get/Keys hand back (see Map.inters,
// Map.roads, Map.lanes in map.go).
type IntersectionID = slotmap.ID[IntersectionData]
type RoadID = slotmap.ID[RoadData]
type LaneID = slotmap.ID[LaneData]

// TurnID is a composite key: a turn is identified by its parent
// intersection, source and destination lanes, and whether it may be
// traversed in both directions.
type TurnID struct {
	Parent        IntersectionID
	Src, Dst      LaneID
	Bidirectional bool
}
