// Package looprange normalizes a user-selected [A, B] loop region in
// seconds. The playback engine's loop enforcement and any waveform overlay
// must agree on these bounds, so the normalization lives in exactly one
// place.
package looprange

// Range is a loop window in source-time seconds with Start <= End.
type Range struct {
	Start float64
	End   float64
}

// Ordered builds a Range from two arbitrary endpoints, swapping them if
// needed so that Start <= End.
func Ordered(a, b float64) Range {
	if a > b {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

// Clamp clamps both endpoints into [0, duration] and re-orders them if
// clamping inverted the range.
func (r Range) Clamp(duration float64) Range {
	if duration < 0 {
		duration = 0
	}
	s := clamp(r.Start, 0, duration)
	e := clamp(r.End, 0, duration)
	if s > e {
		s, e = e, s
	}
	return Range{Start: s, End: e}
}

// Duration returns the window length in seconds, never negative.
func (r Range) Duration() float64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
