package worldstate

// Clock tracks the monotonic tick counter and derived calendar time.
type Clock struct {
	Tick         uint64 `json:"tick"`
	TicksPerDay  uint64 `json:"ticksPerDay"`
	EpochTick    uint64 `json:"epochTick"`
}

// NewClock constructs a clock starting at tick 0 with the given day length.
func NewClock(ticksPerDay uint64) Clock {
	if ticksPerDay == 0 {
		ticksPerDay = 240
	}
	return Clock{TicksPerDay: ticksPerDay}
}

// Day returns the derived calendar day: floor((tick - epoch_tick) / ticks_per_day).
func (c Clock) Day() uint64 {
	if c.Tick < c.EpochTick || c.TicksPerDay == 0 {
		return 0
	}
	return (c.Tick - c.EpochTick) / c.TicksPerDay
}

// TickInDay returns the remainder tick within the current calendar day.
func (c Clock) TickInDay() uint64 {
	if c.Tick < c.EpochTick || c.TicksPerDay == 0 {
		return 0
	}
	return (c.Tick - c.EpochTick) % c.TicksPerDay
}
