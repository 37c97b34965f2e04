package citymap

import (
	"bytes"
	"testing"

	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapEncodeDecodeRoundTrip(t *testing.T) {
	m := NewMap()
	a := m.AddIntersection(geom.NewVec3(0, 0, 0))
	b := m.AddIntersection(geom.NewVec3(100, 0, 0))
	c := m.AddIntersection(geom.NewVec3(100, 100, 0))
	r1, err := m.Connect(a, b, DefaultLanePattern(), SegmentStraight)
	require.NoError(t, err)
	_, err = m.Connect(b, c, DefaultLanePattern(), SegmentStraight)
	require.NoError(t, err)
	lot, err := m.AddLot(r1, geom.NewVec3(50, 10, 0))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))
	got, err := DecodeMap(&buf)
	require.NoError(t, err)

	assert.Equal(t, m.Intersections(), got.Intersections())
	assert.Equal(t, m.Roads(), got.Roads())
	assert.Equal(t, m.Lanes(), got.Lanes())

	rd, ok := got.Road(r1)
	require.True(t, ok)
	assert.Equal(t, a, rd.Src)
	assert.Equal(t, b, rd.Dst)
	assert.Contains(t, rd.Lots, lot)

	ib, ok := got.Intersection(b)
	require.True(t, ok)
	assert.Len(t, ib.Roads, 2)
	assert.Equal(t, len(mustInter(t, m, b).Turns), len(ib.Turns))

	// Derived indices are rebuilt: projecting near a road must hit it.
	proj := got.Project(geom.NewVec3(50, 1, 0))
	assert.Equal(t, ProjectRoad, proj.Kind)
}

func mustInter(t *testing.T, m *Map, id IntersectionID) IntersectionData {
	t.Helper()
	d, ok := m.Intersection(id)
	require.True(t, ok)
	return d
}

// Stable encoding: encoding the same map twice yields identical bytes.
func TestMapEncodeDeterministic(t *testing.T) {
	m := NewMap()
	a := m.AddIntersection(geom.NewVec3(0, 0, 0))
	b := m.AddIntersection(geom.NewVec3(80, 0, 0))
	_, err := m.Connect(a, b, DefaultLanePattern(), SegmentStraight)
	require.NoError(t, err)

	var b1, b2 bytes.Buffer
	require.NoError(t, m.Encode(&b1))
	require.NoError(t, m.Encode(&b2))
	assert.Equal(t, b1.Bytes(), b2.Bytes())
}
