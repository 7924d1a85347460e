// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

package buttonpipe

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitBothEdges(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, EdgeBoth)
	require.NoError(t, e.Emit(17, High))
	require.NoError(t, e.Emit(17, Low))
	assert.Equal(t, "17 1\n17 0\n", buf.String())
}

func TestEmitSingleEdge(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, EdgeRising)
	require.NoError(t, e.Emit(22, High))
	assert.Equal(t, "22\n", buf.String())

	buf.Reset()
	e = NewEmitter(&buf, EdgeFalling)
	require.NoError(t, e.Emit(22, Low))
	assert.Equal(t, "22\n", buf.String())
}

func TestEmitWriteFailure(t *testing.T) {
	e := NewEmitter(failWriter{}, EdgeBoth)
	assert.Error(t, e.Emit(17, High))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestEdgeReports(t *testing.T) {
	assert.True(t, EdgeBoth.Reports(High))
	assert.True(t, EdgeBoth.Reports(Low))
	assert.True(t, EdgeRising.Reports(High))
	assert.False(t, EdgeRising.Reports(Low))
	assert.True(t, EdgeFalling.Reports(Low))
	assert.False(t, EdgeFalling.Reports(High))
}
