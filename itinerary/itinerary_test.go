package itinerary

import (
	"testing"

	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/Uriopass/Egregoria-sub002/pathfind"
	"github.com/stretchr/testify/require"
)

func TestSimpleItineraryAdvancesTowardPoints(t *testing.T) {
	it := Simple([]geom.Vec3{{X: 10}, {X: 20}})
	target, ok := it.Update(nil, 0, geom.Vec3{})
	require.True(t, ok)
	require.Equal(t, geom.Vec3{X: 10}, target)
}

func TestRouteItineraryReachesDestination(t *testing.T) {
	m := citymap.NewMap()
	a := m.AddIntersection(geom.NewVec3(0, 0, 0))
	b := m.AddIntersection(geom.NewVec3(100, 0, 0))
	_, err := m.Connect(a, b, citymap.DefaultLanePattern(), citymap.SegmentStraight)
	require.NoError(t, err)

	var start citymap.LaneID
	ida, _ := m.Intersection(a)
	for _, rid := range ida.Roads {
		rd, _ := m.Road(rid)
		for _, l := range append(append([]citymap.LaneID{}, rd.LanesForward...), rd.LanesBackward...) {
			ld, _ := m.Lane(l)
			if ld.Kind == citymap.LaneDriving && ld.Src == a {
				start = l
			}
		}
	}
	require.False(t, start.Nil())

	it, ok := Route(m, 1, pathfind.LaneTraversable(start), start, geom.NewVec3(0, 0, 0), pathfind.Vehicle)
	require.True(t, ok)
	require.Equal(t, KindRoute, it.Kind)
	require.NotEmpty(t, it.LocalPath)
	startLane, _ := m.Lane(start)
	last := it.LocalPath[len(it.LocalPath)-1]
	require.InDelta(t, 0, last.Distance(startLane.Points.Last()), 1e-6, "the local path must end at the destination lane's end")
}

func TestWaitForReroutePendingInitially(t *testing.T) {
	it := WaitForReroute(pathfind.Vehicle, citymap.LaneID{})
	_, ok := it.Update(citymap.NewMap(), 1, geom.Vec3{})
	require.False(t, ok)
	require.Equal(t, initialWaitTicks-1, it.WaitTicks)
}

func drivingLaneFrom(t *testing.T, m *citymap.Map, at citymap.IntersectionID) citymap.LaneID {
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
	t.Fatalf("no driving lane starting at intersection")
	return citymap.LaneID{}
}

// Removing a lane out from under an in-flight route must park the agent in
// WaitForReroute, keeping the original destination for the retry.
func TestRouteFallsBackToWaitForRerouteOnRemovedLane(t *testing.T) {
	m := citymap.NewMap()
	a := m.AddIntersection(geom.NewVec3(0, 0, 0))
	b := m.AddIntersection(geom.NewVec3(100, 0, 0))
	c := m.AddIntersection(geom.NewVec3(200, 0, 0))
	_, err := m.Connect(a, b, citymap.DefaultLanePattern(), citymap.SegmentStraight)
	require.NoError(t, err)
	r2, err := m.Connect(b, c, citymap.DefaultLanePattern(), citymap.SegmentStraight)
	require.NoError(t, err)

	start := drivingLaneFrom(t, m, a)
	end := drivingLaneFrom(t, m, b)
	endLane, _ := m.Lane(end)
	require.Equal(t, r2, endLane.Parent)

	startLane, _ := m.Lane(start)
	it, ok := Route(m, 1, pathfind.LaneTraversable(start), end, startLane.Points.First(), pathfind.Vehicle)
	require.True(t, ok)
	require.Equal(t, end, it.RerouteDest)

	require.NoError(t, m.RemoveRoad(r2))

	// Walk the itinerary until the missing geometry is hit.
	pos := startLane.Points.First()
	for i := 0; i < 500 && it.Kind == KindRoute; i++ {
		target, ok := it.Update(m, uint64(i), pos)
		if !ok {
			break
		}
		pos = target
	}
	require.Equal(t, KindWaitForReroute, it.Kind)
	require.Equal(t, end, it.RerouteDest)
}
