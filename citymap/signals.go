package citymap

// LightState is the instantaneous state of a ControlSignal lane.
type LightState int

const (
	LightGreen LightState = iota
	LightOrange
	LightRed
)

// CycleTicks/OrangeTicks are the fixed signal-cycle constants.
const (
	CycleTicks  = 10
	OrangeTicks = 5
)

// LightStateAt returns ld's signal state at tick, alternating by
// SignalGroup parity: one group is green-then-orange while the other is
// red, swapping every CycleTicks.
func LightStateAt(ld LaneData, tick uint64) LightState {
	phase := (tick / CycleTicks) % 2
	active := uint64(ld.SignalGroup%2) == phase
	if !active {
		return LightRed
	}
	if tick%CycleTicks >= CycleTicks-OrangeTicks {
		return LightOrange
	}
	return LightGreen
}
