// Command citysim-batch is the headless deterministic batch/replay driver:
// it runs a fixed-timestep simulation to completion with no wall-clock
// sleeps and no network, and prints/writes a report.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/Uriopass/Egregoria-sub002/agent"
	"github.com/Uriopass/Egregoria-sub002/citydata"
	"github.com/Uriopass/Egregoria-sub002/citymap"
	"github.com/Uriopass/Egregoria-sub002/freight"
	"github.com/Uriopass/Egregoria-sub002/geom"
	"github.com/Uriopass/Egregoria-sub002/internal/citylog"
	"github.com/Uriopass/Egregoria-sub002/itinerary"
	"github.com/Uriopass/Egregoria-sub002/pathfind"
	"github.com/Uriopass/Egregoria-sub002/sched"
	"github.com/Uriopass/Egregoria-sub002/spatial"
)

func main() {
	ticks := flag.Int("ticks", 1000, "number of logical ticks to run")
	periodMs := flag.Int("period-ms", 50, "tick period in milliseconds")
	gridSize := flag.Int("grid", 3, "NxN grid of intersections, 100m streets")
	vehicles := flag.Int("vehicles", 8, "number of vehicles to spawn")
	seed := flag.Uint64("seed", 1, "run seed for all derived randomness")
	reportPath := flag.String("report", "", "CSV report file path (optional; a directory is not accepted)")
	savePath := flag.String("save", "", "write the final simulation snapshot here (optional)")
	flag.Parse()

	logger := citylog.New("citysim-batch")
	period := float64(*periodMs) / 1000.0

	m := buildGrid(*gridSize, 100)
	w := sched.NewWorld()
	gt := &sched.GameTime{Speed: 1}
	res := sched.NewResources()
	replay := sched.NewReplay()
	schedule := sched.NewSeqSchedule(replay, nil)

	rp := sched.NewRandProvider(*seed)
	sched.Put(res, rp)

	spawnVehicles(m, w, *vehicles, gt.Tick, rp)
	station, dispatcher, company, market := buildFreight(m)

	schedule.Register("itinerary+decision+physics", func(w *sched.World, m *citymap.Map, res *sched.Resources, gt *sched.GameTime) {
		grid, handles := buildVehicleGrid(w)
		w.Vehicles.Each(func(id agent.ID, v *agent.Vehicle) {
			agent.CancelParkingIfLaneRemoved(v, m)
			objective, hasObjective := v.It.Update(m, gt.Tick, v.Transform.Pos)
			control, red, orange := laneSignal(m, v.It, gt.Tick)
			neighbors := queryNeighbors(w, grid, handles, id, v)
			decision := agent.CalcDecision(v, neighbors, objective, hasObjective, control, red, orange, gt.Tick)
			agent.Step(v, decision, period)
		})
	})

	if station != nil {
		schedule.Register("freight", func(w *sched.World, m *citymap.Map, res *sched.Resources, gt *sched.GameTime) {
			base := company.Productivity
			company.Productivity = base * citydata.TimePeriodMultiplier[periodOf(gt.Tick)]
			company.Tick(market, period)
			company.Productivity = base
			if produced := market.Available("goods"); produced > 0 {
				station.WaitingCargo += produced
				market.Consume("goods", produced)
			}
			station.Tick(dispatcher, m, gt.Tick)
		})
	}

	ts := sched.NewTimestep(period)
	n := sched.Run(ts, schedule, w, m, res, gt, float64(*ticks)*period)
	logger.Printf("ran %d ticks (requested %d)", n, *ticks)

	if *savePath != "" {
		if err := writeSnapshot(*savePath, &sched.Simulation{World: w, Map: m, Time: *gt, Replay: replay}); err != nil {
			log.Printf("save: %v", err)
		} else {
			logger.Printf("snapshot written to %s", *savePath)
		}
	}

	distances := map[uint64]float64{}
	w.Vehicles.Each(func(id agent.ID, v *agent.Vehicle) {
		distances[id.Pack()] = v.Transform.Pos.Len()
	})

	if *reportPath != "" {
		path, err := writeCSVReport(*reportPath, distances)
		if err != nil {
			log.Printf("report: %v", err)
		} else {
			logger.Printf("report written to %s", path)
		}
	}
	printConsoleReport(n, distances)
}

func buildGrid(size int, spacing float64) *citymap.Map {
	m := citymap.NewMap()
	ids := make([][]citymap.IntersectionID, size)
	for i := 0; i < size; i++ {
		ids[i] = make([]citymap.IntersectionID, size)
		for j := 0; j < size; j++ {
			ids[i][j] = m.AddIntersection(geom.NewVec3(float64(i)*spacing, float64(j)*spacing, 0))
		}
	}
	pattern := citymap.DefaultLanePattern()
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i+1 < size {
				_, _ = m.Connect(ids[i][j], ids[i+1][j], pattern, citymap.SegmentStraight)
			}
			if j+1 < size {
				_, _ = m.Connect(ids[i][j], ids[i][j+1], pattern, citymap.SegmentStraight)
			}
		}
	}
	return m
}

// buildVehicleGrid places every live vehicle's current position into a
// fresh spatial.Grid for this tick's neighbour queries.
func buildVehicleGrid(w *sched.World) (*spatial.Grid, map[spatial.Handle]agent.ID) {
	grid := spatial.NewGrid(50)
	handles := make(map[spatial.Handle]agent.ID)
	w.Vehicles.Each(func(id agent.ID, v *agent.Vehicle) {
		h := grid.Insert(geom.NewAABB(v.Transform.Pos.XY(), v.Kind.Width/2))
		handles[h] = id
	})
	return grid, handles
}

func queryNeighbors(w *sched.World, grid *spatial.Grid, handles map[spatial.Handle]agent.ID, self agent.ID, v *agent.Vehicle) []agent.Neighbor {
	radius := agent.QueryRadius(v.Speed, v.Kind.Decel)
	var out []agent.Neighbor
	for _, h := range grid.QueryAround(v.Transform.Pos.XY(), radius) {
		id, ok := handles[h]
		if !ok || id == self {
			continue
		}
		ov, ok := w.Vehicles.Get(id)
		if !ok {
			continue
		}
		out = append(out, agent.Neighbor{
			ID:     id.Pack(),
			Pos:    ov.Transform.Pos,
			Dir:    ov.Transform.Dir,
			Speed:  ov.Speed,
			Radius: ov.Kind.Width / 2,
			OnLane: true,
		})
	}
	return out
}

// laneSignal reads the traffic-control regime and, for a signalled lane,
// the live light state off the itinerary's current lane.
func laneSignal(m *citymap.Map, it itinerary.Itinerary, tick uint64) (citymap.TrafficControl, bool, bool) {
	if it.Cur.IsTurn {
		return citymap.ControlAlways, false, false
	}
	ld, ok := m.Lane(it.Cur.Lane)
	if !ok {
		return citymap.ControlAlways, false, false
	}
	if ld.Control != citymap.ControlSignal {
		return ld.Control, false, false
	}
	state := citymap.LightStateAt(ld, tick)
	return ld.Control, state == citymap.LightRed, state == citymap.LightOrange
}

// memMarket is a minimal in-memory Market: goods accumulate until the
// freight system drains them into the station's waiting cargo.
type memMarket struct {
	stock map[string]float64
}

func newMemMarket() *memMarket { return &memMarket{stock: make(map[string]float64)} }

func (mk *memMarket) Available(good string) float64    { return mk.stock[good] }
func (mk *memMarket) Consume(good string, qty float64)  { mk.stock[good] -= qty }
func (mk *memMarket) Produce(good string, qty float64)  { mk.stock[good] += qty }
func (mk *memMarket) SellNearby(good string, qty float64) {}

// trainPool is a minimal freight.Dispatcher: a fixed-size free list of
// trains, handed out to whichever station asks first.
type trainPool struct {
	free []*freight.Train
}

func (p *trainPool) NearestFreeTrain(pos geom.Vec3) (*freight.Train, bool) {
	if len(p.free) == 0 {
		return nil, false
	}
	tr := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return tr, true
}

func (p *trainPool) Release(t *freight.Train) {
	p.free = append(p.free, t)
}

// buildFreight attaches a rail spur off the first grid intersection,
// docks a Station at its end, and gives it a goods Company producing the
// cargo it ships. Returns a nil station if the grid has no intersection
// to spur off (degenerate --grid=0).
func buildFreight(m *citymap.Map) (*freight.Station, freight.Dispatcher, *freight.Company, *memMarket) {
	inters := m.Intersections()
	if len(inters) == 0 {
		return nil, nil, nil, nil
	}
	hub := inters[0]
	hubData, _ := m.Intersection(hub)

	spur := hubData.Pos.Add(geom.NewVec3(120, 120, 0))
	spurID := m.AddIntersection(spur)
	if _, err := m.Connect(hub, spurID, citymap.LanePattern{NRail: 1}, citymap.SegmentStraight); err != nil {
		return nil, nil, nil, nil
	}

	var railLane citymap.LaneID
	found := false
	for _, lid := range m.Lanes() {
		ld, ok := m.Lane(lid)
		if ok && ld.Kind == citymap.LaneRail {
			railLane = lid
			found = true
			break
		}
	}
	if !found {
		return nil, nil, nil, nil
	}

	station := &freight.Station{
		Pos:          spur,
		Dir:          geom.Vec2{X: 1},
		ExternalLane: railLane,
	}
	pool := &trainPool{}
	for i := 0; i < freight.MaxTrainsPerStation; i++ {
		pool.free = append(pool.free, &freight.Train{})
	}
	company := &freight.Company{
		Recipe: freight.Recipe{
			Production:    map[string]float64{"goods": 10},
			Complexity:    1,
			CapMultiplier: 5,
		},
		Productivity: 1,
		Workers:      2,
	}
	market := newMemMarket()
	return station, pool, company, market
}

// periodOf maps a tick to one of the six demand periods (10 simulated
// minutes each at a 50ms tick).
func periodOf(tick uint64) int {
	return int(tick/12000)%6 + 1
}

func writeSnapshot(path string, sim *sched.Simulation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return sched.Save(f, sim)
}

func spawnVehicles(m *citymap.Map, w *sched.World, n int, tick uint64, rp *sched.RandProvider) {
	lanes := m.Lanes()
	if len(lanes) == 0 {
		return
	}
	for i := 0; i < n; i++ {
		start := lanes[i%len(lanes)]
		end := lanes[rp.ForTick(tick, uint64(i)).Intn(len(lanes))]
		lane, ok := m.Lane(start)
		if !ok {
			continue
		}
		it, ok := itinerary.Route(m, tick, pathfind.LaneTraversable(start), end, lane.Points.First(), pathfind.Vehicle)
		if !ok {
			it = itinerary.None()
		}
		w.SpawnVehicle(agent.Vehicle{
			Kind:      agent.DefaultCarKind(),
			Transform: agent.Transform{Pos: lane.Points.First(), Dir: geom.Vec2{X: 1}},
			It:        it,
		})
	}
}

func writeCSVReport(reportPath string, distances map[uint64]float64) (string, error) {
	f, err := os.Create(reportPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	flags := make([]uint64, 0, len(distances))
	for flag := range distances {
		flags = append(flags, flag)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	fmt.Fprintln(f, "vehicle_flag,distance_m")
	for _, flag := range flags {
		fmt.Fprintf(f, "%d,%.2f\n", flag, distances[flag])
	}
	return reportPath, nil
}

func printConsoleReport(ticksRun int, distances map[uint64]float64) {
	fmt.Println("=== citysim-batch report ===")
	fmt.Printf("Ticks run: %d\n", ticksRun)
	fmt.Printf("Vehicles: %d\n", len(distances))
	total := 0.0
	for _, d := range distances {
		total += d
	}
	fmt.Printf("Total displacement: %.2f m\n", total)
}
