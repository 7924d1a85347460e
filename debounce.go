// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

// Contact debounce and clock-skew tracking.

package buttonpipe

import "time"

// debouncer decides whether an interrupt is a genuine switch event or
// contact bounce. Times are measured from a baseline captured at
// startup, so the state is insulated from wall-clock adjustments
// within the limits policed by skewed.
type debouncer struct {
	window time.Duration
	guard  time.Duration
	start  time.Time
	// Last accepted event per pin, as elapsed time from start.
	last map[int]time.Duration
}

func newDebouncer(window time.Duration, start time.Time) *debouncer {
	return &debouncer{
		window: window,
		guard:  startupGuard,
		start:  start,
		last:   make(map[int]time.Duration),
	}
}

// accept reports whether an interrupt on pin at now is a genuine
// event, recording it as the last accepted event if so.
//
// Two conditions apply: the event must fall outside the bounce window
// of the previous accepted event on the pin, and it must fall outside
// the guard period at startup. The guard is needed because last
// defaults to zero, so the window alone cannot suppress a burst within
// the first window after startup. A mechanical switch fires several
// electrical transitions per actuation within milliseconds; the window
// coalesces these into one logical event.
func (d *debouncer) accept(pin int, now time.Time) bool {
	elapsed := now.Sub(d.start)
	if elapsed-d.last[pin] <= d.window || elapsed <= d.guard {
		return false
	}
	d.last[pin] = elapsed
	return true
}

// skewed reports whether the wall clock has moved too far from the
// baseline to be explained by drift or an NTP correction.
func (d *debouncer) skewed(now time.Time) bool {
	skew := now.Sub(d.start)
	if skew < 0 {
		skew = -skew
	}
	return skew > clockError
}

// rebase resets the baseline after a clock discontinuity. The cycle
// that detected the skew is discarded by the caller; nothing else is
// reset.
func (d *debouncer) rebase(now time.Time) {
	d.start = now
}
