// Package spatial implements a sparse cell hash grid used for neighbour
// and range queries by the agent decision core and the map graph's
// project().
package spatial

import "github.com/Uriopass/Egregoria-sub002/geom"

// Handle identifies an object stored in the grid.
type Handle uint64

type entry struct {
	handle Handle
	aabb   geom.AABB
}

type cellID struct {
	X, Y int32
}

// Grid is a sparse cell hash map from cell id to a bucket of (handle, aabb)
// pairs. Cell size is fixed at construction.
type Grid struct {
	cellSize float64
	cells    map[cellID][]entry
	handles  map[Handle]geom.AABB
	nextID   Handle
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 50
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellID][]entry),
		handles:  make(map[Handle]geom.AABB),
	}
}

func (g *Grid) cellOf(p geom.Vec2) cellID {
	return cellID{
		X: int32(floorDiv(p.X, g.cellSize)),
		Y: int32(floorDiv(p.Y, g.cellSize)),
	}
}

func floorDiv(v, size float64) int64 {
	f := v / size
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}

func (g *Grid) cellsFor(box geom.AABB) []cellID {
	min := g.cellOf(box.Min)
	max := g.cellOf(box.Max)
	var out []cellID
	for x := min.X; x <= max.X; x++ {
		for y := min.Y; y <= max.Y; y++ {
			out = append(out, cellID{x, y})
		}
	}
	return out
}

// Insert adds an object and returns its handle.
func (g *Grid) Insert(box geom.AABB) Handle {
	g.nextID++
	h := g.nextID
	g.handles[h] = box
	for _, c := range g.cellsFor(box) {
		g.cells[c] = append(g.cells[c], entry{h, box})
	}
	return h
}

// Remove deletes an object from the grid.
func (g *Grid) Remove(h Handle) {
	box, ok := g.handles[h]
	if !ok {
		return
	}
	delete(g.handles, h)
	for _, c := range g.cellsFor(box) {
		bucket := g.cells[c]
		for i, e := range bucket {
			if e.handle == h {
				bucket[i] = bucket[len(bucket)-1]
				bucket = bucket[:len(bucket)-1]
				break
			}
		}
		if len(bucket) == 0 {
			delete(g.cells, c)
		} else {
			g.cells[c] = bucket
		}
	}
}

// Update deletes from old cells and inserts into new ones for an AABB move,
// keeping the handle identity stable.
func (g *Grid) Update(h Handle, newBox geom.AABB) {
	oldBox, ok := g.handles[h]
	if !ok {
		return
	}
	for _, c := range g.cellsFor(oldBox) {
		bucket := g.cells[c]
		for i, e := range bucket {
			if e.handle == h {
				bucket[i] = bucket[len(bucket)-1]
				bucket = bucket[:len(bucket)-1]
				break
			}
		}
		if len(bucket) == 0 {
			delete(g.cells, c)
		} else {
			g.cells[c] = bucket
		}
	}
	g.handles[h] = newBox
	for _, c := range g.cellsFor(newBox) {
		g.cells[c] = append(g.cells[c], entry{h, newBox})
	}
}

// QueryRect returns the deduplicated set of handles whose AABB intersects
// box, even when an object spans multiple cells.
func (g *Grid) QueryRect(box geom.AABB) []Handle {
	seen := make(map[Handle]struct{})
	var out []Handle
	for _, c := range g.cellsFor(box) {
		for _, e := range g.cells[c] {
			if _, dup := seen[e.handle]; dup {
				continue
			}
			if e.aabb.Intersects(box) {
				seen[e.handle] = struct{}{}
				out = append(out, e.handle)
			}
		}
	}
	return out
}

// QueryAround returns handles within radius of center.
func (g *Grid) QueryAround(center geom.Vec2, radius float64) []Handle {
	return g.QueryRect(geom.NewAABB(center, radius))
}

func (g *Grid) AABBOf(h Handle) (geom.AABB, bool) {
	box, ok := g.handles[h]
	return box, ok
}

func (g *Grid) Len() int { return len(g.handles) }
