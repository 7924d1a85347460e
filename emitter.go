// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

// Event output.

package buttonpipe

import (
	"fmt"
	"io"
)

// Emitter writes one line per accepted event to the sink.
//
// With the both-edges policy each line carries the pin number and the
// sampled state; with a single-edge policy the state is implied and
// only the pin number is written. Writes go straight to the sink with
// no buffering, as the consumer is expected to be reading live.
type Emitter struct {
	w    io.Writer
	edge Edge
}

// NewEmitter creates an Emitter writing events to w under the given
// edge policy.
func NewEmitter(w io.Writer, edge Edge) *Emitter {
	return &Emitter{w: w, edge: edge}
}

// Emit writes the event for pin at level. A write failure usually
// means the consumer has gone away; it is returned for the caller to
// escalate, not retried.
func (e *Emitter) Emit(pin int, level Level) error {
	var err error
	if e.edge == EdgeBoth {
		_, err = fmt.Fprintf(e.w, "%d %d\n", pin, levelState(level))
	} else {
		_, err = fmt.Fprintf(e.w, "%d\n", pin)
	}
	return err
}

func levelState(level Level) int {
	if level {
		return 1
	}
	return 0
}
