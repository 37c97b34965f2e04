package sched

// Timestep implements fixed-timestep accumulation: PrepareFrame(elapsed)
// adds elapsed wall-clock time (or sim time, in headless/replay mode), in
// the same unit as Period, to the accumulator; successive Tick calls then
// return true floor(acc/Period) times in a row, so exactly one logical step
// happens per period regardless of jitter.
type Timestep struct {
	Period float64
	acc    float64
}

func NewTimestep(period float64) *Timestep {
	return &Timestep{Period: period}
}

// PrepareFrame adds elapsed time (same unit as Period) to the accumulator.
func (t *Timestep) PrepareFrame(elapsed float64) {
	t.acc += elapsed
}

// Tick consumes one period from the accumulator if enough has built up.
func (t *Timestep) Tick() bool {
	if t.acc >= t.Period {
		t.acc -= t.Period
		return true
	}
	return false
}

// PendingTicks returns how many ticks Tick() would currently yield,
// without consuming the accumulator.
func (t *Timestep) PendingTicks() int {
	if t.Period <= 0 {
		return 0
	}
	n := int(t.acc / t.Period)
	return n
}
