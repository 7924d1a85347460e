// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

//go:build linux

package main

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	buttonpipe "github.com/kevinboone/pi-button-pipe"
)

func TestParsePins(t *testing.T) {
	pins, err := parsePins([]string{"17", "27"})
	require.NoError(t, err)
	assert.Equal(t, []int{17, 27}, pins)
}

func TestParsePinsBad(t *testing.T) {
	for _, arg := range []string{"seventeen", "-1", "1.5", ""} {
		_, err := parsePins([]string{arg})
		assert.Error(t, err, "arg %q", arg)
	}
}

func TestParsePinsTooMany(t *testing.T) {
	args := make([]string, buttonpipe.MaxPins+1)
	for i := range args {
		args[i] = strconv.Itoa(i)
	}
	_, err := parsePins(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many pins")

	args = args[:buttonpipe.MaxPins]
	_, err = parsePins(args)
	assert.NoError(t, err)
}
