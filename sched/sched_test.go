package sched

import (
	"testing"

	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestepFixedDrain(t *testing.T) {
	ts := NewTimestep(0.1)
	ts.PrepareFrame(0.35)
	count := 0
	for ts.Tick() {
		count++
	}
	assert.Equal(t, 3, count)
}

func TestResourcesBorrowConflict(t *testing.T) {
	res := NewResources()
	Put(res, 42)
	_, release, err := BorrowExclusive[int](res)
	require.NoError(t, err)
	_, _, err2 := BorrowShared[int](res)
	assert.ErrorIs(t, err2, ErrBorrowConflict)
	release()
	_, release2, err3 := BorrowShared[int](res)
	require.NoError(t, err3)
	release2()
}

func TestLocalResourcesBorrowConflict(t *testing.T) {
	res := NewLocalResources()
	PutLocal(res, 42)
	_, release, err := BorrowExclusiveLocal[int](res)
	require.NoError(t, err)
	_, _, err2 := BorrowSharedLocal[int](res)
	assert.ErrorIs(t, err2, ErrBorrowConflict)
	release()
	v, release2, err3 := BorrowSharedLocal[int](res)
	require.NoError(t, err3)
	assert.Equal(t, 42, v)
	release2()
}

func TestScheduleStepDrainsCommandsThenSystems(t *testing.T) {
	m := citymap.NewMap()
	w := NewWorld()
	gt := &GameTime{}
	res := NewResources()
	replay := NewReplay()
	sched := NewSeqSchedule(replay, nil)

	ranSystem := false
	sched.Register("mark", func(w *World, m *citymap.Map, res *Resources, gt *GameTime) {
		ranSystem = true
	})

	sched.PushCommand(WorldCommand{Kind: CmdSetGameTime, Speed: 2})
	errs := sched.Step(w, m, res, gt)
	assert.Empty(t, errs)
	assert.True(t, ranSystem)
	assert.Equal(t, 2.0, gt.Speed)
	assert.Equal(t, uint64(1), gt.Tick)
	assert.Len(t, replay.Entries, 1)
}

func TestRunDrainsMultipleTicks(t *testing.T) {
	m := citymap.NewMap()
	w := NewWorld()
	gt := &GameTime{}
	res := NewResources()
	sched := NewSeqSchedule(nil, nil)
	ts := NewTimestep(0.05)

	n := Run(ts, sched, w, m, res, gt, 0.2)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(4), gt.Tick)
}

func TestApplyBuildRoadWithElbowCurves(t *testing.T) {
	m := citymap.NewMap()
	w := NewWorld()
	elbow := geom.Vec2{X: 50, Y: 40}
	cmd := WorldCommand{
		Kind:    CmdMapBuildRoad,
		FromPos: geom.NewVec3(0, 0, 0),
		ToPos:   geom.NewVec3(100, 0, 0),
		Pattern: citymap.DefaultLanePattern(),
		Elbow:   &elbow,
	}
	require.NoError(t, cmd.Apply(w, m, nil, nil))

	roads := m.Roads()
	require.Len(t, roads, 1)
	rd, ok := m.Road(roads[0])
	require.True(t, ok)
	assert.Equal(t, citymap.SegmentCurved, rd.Segment)
	straight := rd.Points.First().Distance(rd.Points.Last())
	assert.Greater(t, rd.Points.Length(), straight, "an elbow must bend the centerline")
}

func TestApplyUnknownCommandRefused(t *testing.T) {
	cmd := WorldCommand{Kind: "Nonsense"}
	assert.Error(t, cmd.Apply(NewWorld(), citymap.NewMap(), nil, nil))
}

func TestApplySpawnVehicle(t *testing.T) {
	w := NewWorld()
	cmd := WorldCommand{Kind: CmdSpawnVehicle, SpawnAt: geom.NewVec3(5, 5, 0)}
	require.NoError(t, cmd.Apply(w, citymap.NewMap(), nil, nil))
	assert.Equal(t, 1, w.Vehicles.Len())
}
