// Package pathfind implements kind-parameterised A* search over the
// citymap lane/turn graph, plus local in-lane routing.
package pathfind

import (
	"container/heap"
	"hash/fnv"
	"math"

	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
)

// PathKind discriminates which lane kinds are authorized for a traveller.
type PathKind int

const (
	Pedestrian PathKind = iota
	Vehicle
	Rail
)

// AuthorizedLaneKind reports whether a lane of the given kind may be
// traversed by this path kind.
func (k PathKind) AuthorizedLaneKind(lk citymap.LaneKind) bool {
	switch k {
	case Pedestrian:
		return lk == citymap.LaneWalking
	case Vehicle:
		return lk == citymap.LaneDriving || lk == citymap.LaneBus || lk == citymap.LaneBiking
	case Rail:
		return lk == citymap.LaneRail
	default:
		return false
	}
}

// Direction indicates whether a Traversable is walked forward (its
// natural src->dst) or backward (only legal for bidirectional turns).
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Traversable is the unit edge of the path graph: a (kind, direction) pair
// over either a lane or a turn.
type Traversable struct {
	Lane      citymap.LaneID
	Turn      citymap.TurnID
	IsTurn    bool
	Direction Direction
}

func LaneTraversable(l citymap.LaneID) Traversable { return Traversable{Lane: l} }

// referenceSpeed is used by the vehicle heuristic to convert distance into
// an estimated travel time.
const referenceSpeed = 13.9

// hash64 is a small deterministic hash used for seeded tie-breaking
// jitter.
func hash64(vals ...uint64) uint64 {
	h := fnv.New64a()
	buf := make([]byte, 8)
	for _, v := range vals {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf)
	}
	return h.Sum64()
}

func randu(h uint64) float64 {
	return float64(h%1_000_000) / 1_000_000.0
}

type openItem struct {
	lane  citymap.LaneID
	g, f  float64
	index int
}

type openQueue []*openItem

func (q openQueue) Len() int            { return len(q) }
func (q openQueue) Less(i, j int) bool   { return q[i].f < q[j].f }
func (q openQueue) Swap(i, j int)        { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *openQueue) Push(x interface{})  { it := x.(*openItem); it.index = len(*q); *q = append(*q, it) }
func (q *openQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// Path runs A* over the lane/turn graph from start (a Traversable) to the
// lane end, returning the sequence of Traversables or ok=false if
// unreachable or the start lane's kind is unauthorized.
func Path(m *citymap.Map, tick uint64, kind PathKind, start Traversable, end citymap.LaneID) ([]Traversable, bool) {
	startLane, ok := m.Lane(start.Lane)
	if !ok || !kind.AuthorizedLaneKind(startLane.Kind) {
		return nil, false
	}
	endLane, ok := m.Lane(end)
	if !ok {
		return nil, false
	}
	goalInterID := endLane.Dst

	baseRandom := hash64(uint64(start.Lane.Index()), tick)

	gScore := map[citymap.LaneID]float64{start.Lane: 0}
	cameFrom := map[citymap.LaneID]citymap.LaneID{}
	cameVia := map[citymap.LaneID]citymap.TurnID{}
	cameBackward := map[citymap.LaneID]bool{}

	pq := &openQueue{}
	heap.Init(pq)
	heap.Push(pq, &openItem{lane: start.Lane, g: 0, f: heuristic(m, kind, startLane.Dst, goalInterID)})

	visited := map[citymap.LaneID]bool{}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*openItem)
		if visited[cur.lane] {
			continue
		}
		visited[cur.lane] = true

		if cur.lane == end {
			return reconstruct(cameFrom, cameVia, cameBackward, start.Lane, end), true
		}

		curLane, ok := m.Lane(cur.lane)
		if !ok {
			continue
		}
		interID := curLane.Dst
		inter, ok := m.Intersection(interID)
		if !ok {
			continue
		}
		for _, tid := range inter.Turns {
			forward := tid.Src == cur.lane
			backward := kind == Pedestrian && tid.Bidirectional && tid.Dst == cur.lane
			if !forward && !backward {
				continue
			}
			nextLane := tid.Dst
			if backward {
				nextLane = tid.Src
			}
			nld, ok := m.Lane(nextLane)
			if !ok || !kind.AuthorizedLaneKind(nld.Kind) {
				continue
			}
			length := nld.Points.Length()
			speed := nld.SpeedLimit
			if speed <= 0 {
				speed = referenceSpeed
			}
			jitter := randu(hash64(uint64(math.Float64bits(nld.DistFromBottom)), baseRandom))
			cost := length/speed + jitter
			if kind != Vehicle {
				cost = length / 1.4
			}
			ng := cur.g + cost
			if existing, seen := gScore[nextLane]; seen && existing <= ng {
				continue
			}
			gScore[nextLane] = ng
			cameFrom[nextLane] = cur.lane
			cameVia[nextLane] = tid
			cameBackward[nextLane] = backward
			f := ng + heuristic(m, kind, nld.Dst, goalInterID)
			heap.Push(pq, &openItem{lane: nextLane, g: ng, f: f})
		}
	}
	return nil, false
}

func heuristic(m *citymap.Map, kind PathKind, from, to citymap.IntersectionID) float64 {
	fi, ok1 := m.Intersection(from)
	ti, ok2 := m.Intersection(to)
	if !ok1 || !ok2 {
		return 0
	}
	d := fi.Pos.Distance(ti.Pos)
	if kind == Pedestrian {
		return d * 1.3
	}
	return d / referenceSpeed
}

func reconstruct(cameFrom map[citymap.LaneID]citymap.LaneID, cameVia map[citymap.LaneID]citymap.TurnID, cameBackward map[citymap.LaneID]bool, start, end citymap.LaneID) []Traversable {
	var lanes []citymap.LaneID
	cur := end
	for cur != start {
		lanes = append([]citymap.LaneID{cur}, lanes...)
		prev, ok := cameFrom[cur]
		if !ok {
			break
		}
		cur = prev
	}
	lanes = append([]citymap.LaneID{start}, lanes...)

	var out []Traversable
	for i, l := range lanes {
		out = append(out, LaneTraversable(l))
		if i+1 < len(lanes) {
			if tid, ok := cameVia[lanes[i+1]]; ok {
				dir := Forward
				if cameBackward[lanes[i+1]] {
					dir = Backward
				}
				out = append(out, Traversable{Turn: tid, IsTurn: true, Direction: dir})
			}
		}
	}
	return out
}

// NearestLane returns the lane of this path kind closest to pos, scanning
// live lanes in stable key order so ties resolve identically across runs.
func NearestLane(m *citymap.Map, kind PathKind, pos geom.Vec3) (citymap.LaneID, bool) {
	var best citymap.LaneID
	bestDist := math.MaxFloat64
	found := false
	for _, lid := range m.Lanes() {
		ld, ok := m.Lane(lid)
		if !ok || !kind.AuthorizedLaneKind(ld.Kind) {
			continue
		}
		d := ld.Points.Project(pos).Point.Distance(pos)
		if d < bestDist {
			bestDist = d
			best = lid
			found = true
		}
	}
	return best, found
}

// LocalRoute projects both endpoints onto lane.Points and splices the
// slice between them; fails for vehicle paths when end is before start
// along the lane.
func LocalRoute(m *citymap.Map, kind PathKind, lane citymap.LaneID, start, end geom.Vec3) (geom.Polyline3, bool) {
	ld, ok := m.Lane(lane)
	if !ok {
		return geom.Polyline3{}, false
	}
	ps := ld.Points.Project(start)
	pe := ld.Points.Project(end)
	if kind == Vehicle && pe.Distance < ps.Distance {
		return geom.Polyline3{}, false
	}
	return ld.Points.Slice(ps.Distance, pe.Distance), true
}
