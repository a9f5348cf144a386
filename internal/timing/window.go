// Package timing computes 15-minute market window boundaries.
//
// Polymarket crypto up/down windows run in 15-minute intervals aligned to
// :00, :15, :30 and :45 past each hour. Everything here is a pure function
// of the instant passed in, so callers inject time.Now() at the edge.
package timing

import "time"

// WindowDuration is the fixed length of a market window.
const WindowDuration = 15 * time.Minute

// Window is a half-open interval [Start, End) of exactly 15 minutes.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WindowFor returns the window containing t, flooring the minute to the
// nearest 15-minute boundary.
func WindowFor(t time.Time) Window {
	start := t.Truncate(WindowDuration)
	return Window{Start: start, End: start.Add(WindowDuration)}
}

// NextWindow returns the window immediately after the one containing t.
func NextWindow(t time.Time) Window {
	cur := WindowFor(t)
	return Window{Start: cur.End, End: cur.End.Add(WindowDuration)}
}

// ShouldMonitor reports whether now is within leadMinutes of the end of its
// own window, i.e. now ∈ [end-lead, end).
func ShouldMonitor(now time.Time, leadMinutes int) bool {
	w := WindowFor(now)
	monitorStart := w.End.Add(-time.Duration(leadMinutes) * time.Minute)
	return !now.Before(monitorStart) && now.Before(w.End)
}

// TimeUntilMonitoringStarts returns how long until the monitoring lead time
// of the current window is reached. Zero if monitoring should already be
// underway.
func TimeUntilMonitoringStarts(now time.Time, leadMinutes int) time.Duration {
	w := WindowFor(now)
	monitorStart := w.End.Add(-time.Duration(leadMinutes) * time.Minute)
	if d := monitorStart.Sub(now); d > 0 {
		return d
	}
	return 0
}

// TimeUntilWindowEnds returns the time remaining in the current window,
// clamped to zero.
func TimeUntilWindowEnds(now time.Time) time.Duration {
	if d := WindowFor(now).End.Sub(now); d > 0 {
		return d
	}
	return 0
}
