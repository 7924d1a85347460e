// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

// Package buttonpipe captures GPIO button presses and makes them
// available to other programs as a line-oriented event stream.
//
// The package monitors a set of GPIO pins through the sysfs GPIO
// interface, waits for value-change interrupts, debounces the raw
// transitions, and writes one line per genuine event to a sink -
// typically a named pipe read by some other program.
//
// Each line carries the pin number and, when triggering on both edges
// (the default), the new state:
//
//	17 1
//	17 0
//
// With a single-edge policy the state is implied and only the pin
// number is written.
//
// Example of use:
//
//	mon, err := buttonpipe.New(buttonpipe.Config{Pins: []int{17, 27}}, sink)
//	if err != nil {
//		...
//	}
//	defer mon.Close()
//	mon.Run(ctx)
package buttonpipe

import (
	"errors"
	"fmt"
	"time"
)

// Level represents the high (true) or low (false) logic level of a pin.
type Level bool

// Level of pin, High / Low
const (
	Low  Level = false
	High Level = true
)

// Edge selects which transitions of a pin are reported.
type Edge string

const (
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
	EdgeBoth    Edge = "both"
)

// Reports returns whether a transition to level is reported under this
// edge policy.
func (e Edge) Reports(level Level) bool {
	switch e {
	case EdgeRising:
		return level == High
	case EdgeFalling:
		return level == Low
	}
	return true
}

// MaxPins is the maximum number of pins that can be monitored at once.
const MaxPins = 20

const (
	// DefaultBounceTime is the gap below which two interrupts on the
	// same pin are treated as contact bounce.
	DefaultBounceTime = 300 * time.Millisecond

	// DefaultSettleTime is the delay between an interrupt and the
	// sample of the pin state. The sysfs value can lag the interrupt
	// by a few milliseconds.
	DefaultSettleTime = 2 * time.Millisecond

	// DefaultWaitTimeout bounds the blocking interrupt wait so the
	// loop periodically regains control and can observe cancellation.
	DefaultWaitTimeout = 3 * time.Second

	// startupGuard suppresses spurious interrupts fired while the pins
	// are still being configured after startup.
	startupGuard = time.Second

	// clockError is the discrepancy between the wall clock and the
	// baseline beyond which the clock is assumed to have been set,
	// rather than drifted. A board without a real-time clock boots
	// near the epoch and jumps decades forward when time sync
	// completes, which is easy to distinguish from NTP slew.
	clockError = 365 * 24 * time.Hour
)

var (
	// ErrNoPins indicates an empty monitored pin list.
	ErrNoPins = errors.New("no pins specified")

	// ErrTooManyPins indicates a pin list exceeding MaxPins.
	ErrTooManyPins = fmt.Errorf("more than %d pins specified", MaxPins)

	// ErrBadSample indicates a pin value that was not in the expected
	// two byte digit-plus-terminator form.
	ErrBadSample = errors.New("malformed pin value")
)

// Config is the immutable startup configuration for a Monitor.
type Config struct {
	// Pins are the numbers of the GPIO pins to monitor. Their order
	// here is the order signalled pins are processed in.
	Pins []int

	// Edge selects which transitions are reported. Defaults to
	// EdgeBoth.
	Edge Edge

	// BounceTime is the minimum gap between two accepted events on the
	// same pin. Defaults to DefaultBounceTime.
	BounceTime time.Duration

	// SettleTime is the delay between an interrupt and the sample of
	// the pin state. Defaults to DefaultSettleTime.
	SettleTime time.Duration

	// WaitTimeout bounds the blocking interrupt wait. Defaults to
	// DefaultWaitTimeout.
	WaitTimeout time.Duration

	// NoExport skips exporting and unexporting of the pins. The pins
	// must already be exported and configured by other means.
	NoExport bool
}

// Valid checks the configuration before any pin is touched.
func (c Config) Valid() error {
	if len(c.Pins) == 0 {
		return ErrNoPins
	}
	if len(c.Pins) > MaxPins {
		return ErrTooManyPins
	}
	for _, pin := range c.Pins {
		if pin < 0 {
			return fmt.Errorf("invalid pin %d", pin)
		}
	}
	switch c.Edge {
	case "", EdgeRising, EdgeFalling, EdgeBoth:
	default:
		return fmt.Errorf("invalid edge %q", c.Edge)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Edge == "" {
		c.Edge = EdgeBoth
	}
	if c.BounceTime == 0 {
		c.BounceTime = DefaultBounceTime
	}
	if c.SettleTime == 0 {
		c.SettleTime = DefaultSettleTime
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	return c
}
