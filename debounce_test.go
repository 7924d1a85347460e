// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

package buttonpipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerWindow(t *testing.T) {
	start := time.Unix(1700000000, 0)
	d := newDebouncer(300*time.Millisecond, start)
	at := func(ms int) time.Time {
		return start.Add(time.Duration(ms) * time.Millisecond)
	}

	assert.True(t, d.accept(17, at(1200)))
	assert.False(t, d.accept(17, at(1250)), "bounce within window accepted")
	assert.False(t, d.accept(17, at(1500)), "window boundary must be exclusive")
	assert.True(t, d.accept(17, at(1600)))
}

func TestDebouncerStartupGuard(t *testing.T) {
	start := time.Unix(1700000000, 0)
	d := newDebouncer(300*time.Millisecond, start)
	at := func(ms int) time.Time {
		return start.Add(time.Duration(ms) * time.Millisecond)
	}

	assert.False(t, d.accept(4, at(10)))
	assert.False(t, d.accept(4, at(500)))
	assert.False(t, d.accept(4, at(1000)), "guard boundary must be exclusive")
	assert.True(t, d.accept(4, at(1001)))
}

func TestDebouncerPerPin(t *testing.T) {
	start := time.Unix(1700000000, 0)
	d := newDebouncer(300*time.Millisecond, start)

	assert.True(t, d.accept(17, start.Add(1200*time.Millisecond)))
	assert.True(t, d.accept(27, start.Add(1250*time.Millisecond)),
		"pins must debounce independently")
}

func TestDebouncerSkew(t *testing.T) {
	start := time.Unix(1700000000, 0)
	d := newDebouncer(300*time.Millisecond, start)

	assert.False(t, d.skewed(start.Add(100*time.Hour)))
	assert.True(t, d.skewed(start.Add(400*24*time.Hour)))
	assert.True(t, d.skewed(start.Add(-400*24*time.Hour)),
		"a backwards jump is a discontinuity too")
}

func TestDebouncerRebase(t *testing.T) {
	start := time.Unix(1700000000, 0)
	d := newDebouncer(300*time.Millisecond, start)
	assert.True(t, d.accept(17, start.Add(1200*time.Millisecond)))

	jump := start.Add(400 * 24 * time.Hour)
	assert.True(t, d.skewed(jump))
	d.rebase(jump)
	assert.False(t, d.skewed(jump))

	assert.False(t, d.accept(17, jump.Add(500*time.Millisecond)),
		"startup guard must re-apply after a rebase")
	assert.True(t, d.accept(17, jump.Add(1501*time.Millisecond)))
}
