// Package timestamp implements the C-DNS Timestamp type: a wall-clock
// second plus a sub-second tick count whose scale is given by the
// enclosing StorageParameters.ticks_per_second.
package timestamp

// Timestamp is a (secs, ticks) pair. Ordering is lexicographic.
type Timestamp struct {
	Secs  uint64
	Ticks uint64
}

// New returns a Timestamp with the given seconds and ticks.
func New(secs, ticks uint64) Timestamp {
	return Timestamp{Secs: secs, Ticks: ticks}
}

// Compare returns -1, 0, or 1 if t is less than, equal to, or greater than other.
func (t Timestamp) Compare(other Timestamp) int {
	switch {
	case t.Secs < other.Secs:
		return -1
	case t.Secs > other.Secs:
		return 1
	case t.Ticks < other.Ticks:
		return -1
	case t.Ticks > other.Ticks:
		return 1
	default:
		return 0
	}
}

// Less reports whether t sorts before other.
func (t Timestamp) Less(other Timestamp) bool { return t.Compare(other) < 0 }

// LessOrEqual reports whether t sorts at or before other.
func (t Timestamp) LessOrEqual(other Timestamp) bool { return t.Compare(other) <= 0 }

// GetTimeOffset returns the signed tick offset from base to t:
// (t.Secs-base.Secs)*ticksPerSecond + (t.Ticks-base.Ticks).
//
// It is anti-symmetric: base.GetTimeOffset(t, tps) == -t.GetTimeOffset(base, tps).
func (t Timestamp) GetTimeOffset(base Timestamp, ticksPerSecond uint64) int64 {
	dSecs := int64(t.Secs) - int64(base.Secs)
	dTicks := int64(t.Ticks) - int64(base.Ticks)

	return dSecs*int64(ticksPerSecond) + dTicks
}

// AddTimeOffset returns t advanced by the signed tick offset, normalised so
// that 0 <= Ticks < ticksPerSecond.
func (t Timestamp) AddTimeOffset(offset int64, ticksPerSecond uint64) Timestamp {
	totalTicks := int64(t.Secs)*int64(ticksPerSecond) + int64(t.Ticks) + offset

	tps := int64(ticksPerSecond)
	secs := totalTicks / tps
	ticks := totalTicks % tps
	if ticks < 0 {
		ticks += tps
		secs--
	}

	return Timestamp{Secs: uint64(secs), Ticks: uint64(ticks)}
}
