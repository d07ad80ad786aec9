package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelsiege.ai/internal/protocol"
	"voxelsiege.ai/internal/sim/mathx"
)

func TestTickInput_MergeKeepsEdges(t *testing.T) {
	var in TickInput
	in.Merge(TickInput{FirePressed: true, FireHeld: true, ToolCycle: 1})
	in.Merge(TickInput{FireHeld: false, ToolCycle: 1, BrushSteps: -2})
	assert.True(t, in.FirePressed, "a press between ticks is not lost")
	assert.False(t, in.FireHeld, "held state is the latest")
	assert.Equal(t, 2, in.ToolCycle)
	assert.Equal(t, -2, in.BrushSteps)

	in.ClearEdges()
	assert.False(t, in.FirePressed)
	assert.Zero(t, in.ToolCycle)
}

func TestInputFromMsg_PartialPoseKeepsPrevious(t *testing.T) {
	prev := Pose{Player: mathx.V(0, 0, 20), Camera: mathx.V(0, 0, 25), Aim: mathx.V(0, 0, -1), OrbitRadius: 20}

	in := InputFromMsg(protocol.InputMsg{Dig: true}, prev)
	assert.Nil(t, in.Pose)
	assert.True(t, in.Dig)

	aim := [3]float64{1, 0, 0}
	in = InputFromMsg(protocol.InputMsg{Aim: &aim, OrbitRadius: 30}, prev)
	require.NotNil(t, in.Pose)
	assert.Equal(t, mathx.V(1, 0, 0), in.Pose.Aim)
	assert.Equal(t, prev.Player, in.Pose.Player)
	assert.Equal(t, 30.0, in.Pose.OrbitRadius)
}
