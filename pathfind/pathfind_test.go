package pathfind

import (
	"testing"

	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/stretchr/testify/require"
)

func buildGrid(t *testing.T, n int, spacing float64) (*citymap.Map, [][]citymap.IntersectionID) {
	t.Helper()
	m := citymap.NewMap()
	grid := make([][]citymap.IntersectionID, n)
	for x := 0; x < n; x++ {
		grid[x] = make([]citymap.IntersectionID, n)
		for y := 0; y < n; y++ {
			grid[x][y] = m.AddIntersection(geom.NewVec3(float64(x)*spacing, float64(y)*spacing, 0))
		}
	}
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			if x+1 < n {
				_, err := m.Connect(grid[x][y], grid[x+1][y], citymap.DefaultLanePattern(), citymap.SegmentStraight)
				require.NoError(t, err)
			}
			if y+1 < n {
				_, err := m.Connect(grid[x][y], grid[x][y+1], citymap.DefaultLanePattern(), citymap.SegmentStraight)
				require.NoError(t, err)
			}
		}
	}
	return m, grid
}

func firstDrivingLane(t *testing.T, m *citymap.Map, at citymap.IntersectionID) citymap.LaneID {
	t.Helper()
	id, ok := m.Intersection(at)
	require.True(t, ok)
	for _, rid := range id.Roads {
		rd, _ := m.Road(rid)
		for _, l := range append(append([]citymap.LaneID{}, rd.LanesForward...), rd.LanesBackward...) {
			ld, _ := m.Lane(l)
			if ld.Kind == citymap.LaneDriving && ld.Src == at {
				return l
			}
		}
	}
	t.Fatalf("no driving lane starting at intersection found")
	return citymap.LaneID{}
}

func TestPathOnGridReachesCorner(t *testing.T) {
	m, grid := buildGrid(t, 3, 100)
	start := firstDrivingLane(t, m, grid[0][0])

	// Destination lane: any driving lane ending at the opposite corner.
	id, _ := m.Intersection(grid[2][2])
	var end citymap.LaneID
	for _, rid := range id.Roads {
		rd, _ := m.Road(rid)
		for _, l := range append(append([]citymap.LaneID{}, rd.LanesForward...), rd.LanesBackward...) {
			ld, _ := m.Lane(l)
			if ld.Kind == citymap.LaneDriving && ld.Dst == grid[2][2] {
				end = l
			}
		}
	}
	require.False(t, end.Nil())

	path, ok := Path(m, 1, Vehicle, LaneTraversable(start), end)
	require.True(t, ok)
	require.NotEmpty(t, path)

	turnCount := 0
	for _, tr := range path {
		if tr.IsTurn {
			turnCount++
		}
	}
	require.Equal(t, 3, turnCount) // n=3: 2*(n-1)=4 lanes, joined by 3 turns
}

func TestPathUnreachableReturnsFalse(t *testing.T) {
	m := citymap.NewMap()
	a := m.AddIntersection(geom.NewVec3(0, 0, 0))
	b := m.AddIntersection(geom.NewVec3(50, 0, 0))
	c := m.AddIntersection(geom.NewVec3(200, 200, 0))
	d := m.AddIntersection(geom.NewVec3(250, 200, 0))
	_, err := m.Connect(a, b, citymap.DefaultLanePattern(), citymap.SegmentStraight)
	require.NoError(t, err)
	_, err = m.Connect(c, d, citymap.DefaultLanePattern(), citymap.SegmentStraight)
	require.NoError(t, err)

	start := firstDrivingLane(t, m, a)
	end := firstDrivingLane(t, m, d)

	_, ok := Path(m, 1, Vehicle, LaneTraversable(start), end)
	require.False(t, ok)
}

// Consecutive (lane, turn) pairs along a returned path must share the
// expected intersection: every turn is rooted where the lane before it
// ends and the lane after it starts.
func TestPathLaneTurnAdjacency(t *testing.T) {
	m, grid := buildGrid(t, 3, 100)
	start := firstDrivingLane(t, m, grid[0][0])
	end := firstDrivingLane(t, m, grid[2][1])

	path, ok := Path(m, 3, Vehicle, LaneTraversable(start), end)
	require.True(t, ok)

	for i := 0; i+1 < len(path); i++ {
		cur, next := path[i], path[i+1]
		switch {
		case !cur.IsTurn && next.IsTurn:
			ld, ok := m.Lane(cur.Lane)
			require.True(t, ok)
			require.Equal(t, ld.Dst, next.Turn.Parent)
			require.Equal(t, cur.Lane, next.Turn.Src)
		case cur.IsTurn && !next.IsTurn:
			ld, ok := m.Lane(next.Lane)
			require.True(t, ok)
			require.Equal(t, ld.Src, cur.Turn.Parent)
			require.Equal(t, next.Lane, cur.Turn.Dst)
		default:
			t.Fatalf("path must alternate lanes and turns at index %d", i)
		}
	}
}

func TestPathJitterIsDeterministicPerTick(t *testing.T) {
	m, grid := buildGrid(t, 3, 100)
	start := firstDrivingLane(t, m, grid[0][0])
	end := firstDrivingLane(t, m, grid[2][2])

	p1, ok1 := Path(m, 42, Vehicle, LaneTraversable(start), end)
	p2, ok2 := Path(m, 42, Vehicle, LaneTraversable(start), end)
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, p1, p2, "same tick seed must reproduce the same path")
}
