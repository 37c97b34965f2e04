package spatial

import (
	"testing"

	"github.com/Uriopass/Egregoria-sub002/geom"
)

func TestGridInsertQuery(t *testing.T) {
	g := NewGrid(50)
	h1 := g.Insert(geom.NewAABB(geom.Vec2{X: 10, Y: 10}, 2))
	h2 := g.Insert(geom.NewAABB(geom.Vec2{X: 500, Y: 500}, 2))

	near := g.QueryAround(geom.Vec2{X: 10, Y: 10}, 5)
	foundH1, foundH2 := false, false
	for _, h := range near {
		if h == h1 {
			foundH1 = true
		}
		if h == h2 {
			foundH2 = true
		}
	}
	if !foundH1 {
		t.Fatalf("expected to find h1 nearby")
	}
	if foundH2 {
		t.Fatalf("did not expect to find h2 far away")
	}
}

func TestGridUpdateMovesCells(t *testing.T) {
	g := NewGrid(50)
	h := g.Insert(geom.NewAABB(geom.Vec2{X: 0, Y: 0}, 1))
	g.Update(h, geom.NewAABB(geom.Vec2{X: 1000, Y: 1000}, 1))

	if len(g.QueryAround(geom.Vec2{X: 0, Y: 0}, 5)) != 0 {
		t.Fatalf("expected object to have moved away from origin")
	}
	if len(g.QueryAround(geom.Vec2{X: 1000, Y: 1000}, 5)) != 1 {
		t.Fatalf("expected object at new position")
	}
}

func TestGridRemove(t *testing.T) {
	g := NewGrid(50)
	h := g.Insert(geom.NewAABB(geom.Vec2{X: 0, Y: 0}, 1))
	g.Remove(h)
	if g.Len() != 0 {
		t.Fatalf("expected grid to be empty after remove")
	}
}

func TestGridDedupMultiCell(t *testing.T) {
	g := NewGrid(10)
	g.Insert(geom.NewAABB(geom.Vec2{X: 9, Y: 9}, 5))
	found := g.QueryRect(geom.NewAABB(geom.Vec2{X: 0, Y: 0}, 20))
	if len(found) != 1 {
		t.Fatalf("expected exactly one deduplicated handle, got %d", len(found))
	}
}
