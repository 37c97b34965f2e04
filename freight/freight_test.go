package freight

import (
	"testing"

	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	stock map[string]float64
	sold  map[string]float64
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{stock: map[string]float64{}, sold: map[string]float64{}}
}

func (m *fakeMarket) Available(good string) float64    { return m.stock[good] }
func (m *fakeMarket) Consume(good string, qty float64)  { m.stock[good] -= qty }
func (m *fakeMarket) Produce(good string, qty float64)  { m.stock[good] += qty }
func (m *fakeMarket) SellNearby(good string, qty float64) {
	m.stock[good] -= qty
	m.sold[good] += qty
}

func TestCompanyProducesWhenInputsAvailable(t *testing.T) {
	m := newFakeMarket()
	m.stock["wood"] = 100
	c := &Company{
		Recipe: Recipe{
			Consumption:   map[string]float64{"wood": 10},
			Production:    map[string]float64{"plank": 5},
			Complexity:    1,
			CapMultiplier: 2,
		},
		Productivity: 1,
	}
	c.Tick(m, 1.5)
	assert.Equal(t, 90.0, m.stock["wood"])
	// The produced planks are then sold nearby, which the fake market
	// records as moved from stock to sold.
	assert.Equal(t, 5.0, m.sold["plank"])
}

func TestCompanyWaitsOnInsufficientInputs(t *testing.T) {
	m := newFakeMarket()
	c := &Company{
		Recipe:       Recipe{Consumption: map[string]float64{"wood": 10}, Production: map[string]float64{"plank": 5}, Complexity: 1},
		Productivity: 1,
	}
	c.Tick(m, 10)
	assert.Equal(t, 0.0, m.stock["plank"])
}

func TestSaturatingSubNeverNegative(t *testing.T) {
	assert.Equal(t, 0.0, saturatingSub(50, 100))
	assert.Equal(t, 20.0, saturatingSub(120, 100))
}

type singleTrainPool struct {
	free []*Train
}

func (p *singleTrainPool) NearestFreeTrain(pos geom.Vec3) (*Train, bool) {
	if len(p.free) == 0 {
		return nil, false
	}
	tr := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return tr, true
}

func (p *singleTrainPool) Release(t *Train) { p.free = append(p.free, t) }

func buildRailStation(t *testing.T) (*citymap.Map, *Station) {
	t.Helper()
	m := citymap.NewMap()
	a := m.AddIntersection(geom.NewVec3(0, 0, 0))
	b := m.AddIntersection(geom.NewVec3(300, 0, 0))
	_, err := m.Connect(a, b, citymap.LanePattern{NRail: 1}, citymap.SegmentStraight)
	require.NoError(t, err)

	var rail citymap.LaneID
	for _, lid := range m.Lanes() {
		ld, ok := m.Lane(lid)
		if ok && ld.Kind == citymap.LaneRail {
			rail = lid
			break
		}
	}
	require.False(t, rail.Nil())
	return m, &Station{Pos: geom.NewVec3(150, 20, 0), Dir: geom.Vec2{X: 1}, ExternalLane: rail}
}

func TestStationRunsTrainThroughArrivalLoadDepart(t *testing.T) {
	m, s := buildRailStation(t)
	pool := &singleTrainPool{free: []*Train{{}}}
	s.WaitingCargo = 150
	s.WantedCargo = 150

	s.Tick(pool, m, 1)
	require.Len(t, s.Trains, 1, "cargo above threshold must claim a free train")
	assert.Equal(t, TrainArriving, s.Trains[0].State)

	// Arriving completes immediately (WaitLeft 0), subtracting cargo and
	// starting the loading wait.
	s.Tick(pool, m, 2)
	require.Len(t, s.Trains, 1)
	assert.Equal(t, TrainLoading, s.Trains[0].State)
	assert.Equal(t, 50.0, s.WaitingCargo)
	assert.Equal(t, 50.0, s.WantedCargo)

	for tick := uint64(3); tick < 3+loadingWaitTicks+2; tick++ {
		s.Tick(pool, m, tick)
	}
	// After loading the train departs and is returned to the dispatcher;
	// the leftover 50 cargo is above threshold so a new train is claimed.
	for _, tr := range s.Trains {
		assert.NotEqual(t, TrainMoving, tr.State, "moving trains are released, not retained")
	}
}

func TestDockingOffsetFollowsStationAxis(t *testing.T) {
	s := &Station{Pos: geom.NewVec3(0, 0, 0), Dir: geom.Vec2{X: 1}}
	d := s.DockingOffset()
	assert.InDelta(t, 75.0, d.X, 1e-9)
	assert.InDelta(t, -40.0, d.Y, 1e-9)
}
