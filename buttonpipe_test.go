// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

package buttonpipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValid(t *testing.T) {
	assert.ErrorIs(t, Config{}.Valid(), ErrNoPins)
	assert.ErrorIs(t, Config{Pins: make([]int, MaxPins+1)}.Valid(), ErrTooManyPins)
	assert.Error(t, Config{Pins: []int{-1}}.Valid())
	assert.Error(t, Config{Pins: []int{17}, Edge: "sideways"}.Valid())
	assert.NoError(t, Config{Pins: []int{17, 27}}.Valid())
	assert.NoError(t, Config{Pins: []int{17}, Edge: EdgeFalling}.Valid())
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Pins: []int{17}}.withDefaults()
	assert.Equal(t, EdgeBoth, c.Edge)
	assert.Equal(t, DefaultBounceTime, c.BounceTime)
	assert.Equal(t, DefaultSettleTime, c.SettleTime)
	assert.Equal(t, DefaultWaitTimeout, c.WaitTimeout)

	c = Config{Pins: []int{17}, Edge: EdgeRising, BounceTime: 50 * time.Millisecond}.withDefaults()
	assert.Equal(t, EdgeRising, c.Edge)
	assert.Equal(t, 50*time.Millisecond, c.BounceTime)
}
