package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelsiege.ai/internal/protocol"
	"voxelsiege.ai/internal/sim/mathx"
)

func TestNearestTarget_SkipsInactiveAndInvulnerable(t *testing.T) {
	f := &protocol.FrameMsg{Turrets: []protocol.TurretState{
		{ID: 1, Pos: [3]float64{1, 0, 0}, Active: false},
		{ID: 2, Pos: [3]float64{2, 0, 0}, Active: true, Invulnerable: true},
		{ID: 3, Pos: [3]float64{10, 0, 0}, Active: true},
		{ID: 4, Pos: [3]float64{-20, 0, 0}, Active: true},
	}}
	p, ok := nearestTarget(mathx.V(0, 0, 0), f)
	require.True(t, ok)
	assert.Equal(t, mathx.V(10, 0, 0), p)
}

func TestNearestTarget_FallsBackToExposedCore(t *testing.T) {
	f := &protocol.FrameMsg{Core: protocol.CoreState{Present: true, Shield: true}}
	_, ok := nearestTarget(mathx.V(5, 0, 0), f)
	assert.False(t, ok)

	f.Core.Shield = false
	p, ok := nearestTarget(mathx.V(5, 0, 0), f)
	require.True(t, ok)
	assert.True(t, p.IsZero())
}

func TestPilot_AimsFromCameraAndHoldsFire(t *testing.T) {
	p := &pilot{orbit: 30, period: 60}
	f := &protocol.FrameMsg{Turrets: []protocol.TurretState{{Pos: [3]float64{0, 0, 0}, Active: true}}}

	in := p.next(f)
	require.NotNil(t, in.Player)
	require.NotNil(t, in.Aim)
	assert.Equal(t, protocol.TypeInput, in.Type)
	assert.InDelta(t, 30, in.Player[0], 1e-9)
	assert.InDelta(t, -1, in.Aim[0], 1e-9)
	assert.True(t, in.FireHeld)

	f.Player.Overheated = true
	assert.False(t, p.next(f).FireHeld)

	f.Turrets = nil
	in = p.next(f)
	assert.Nil(t, in.Aim)
	assert.False(t, in.FireHeld)
}
