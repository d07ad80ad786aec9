package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/surface"
	"voxelsiege.ai/internal/sim/voxel"
)

func TestCycleTool_WrapsInSetup(t *testing.T) {
	s := newTestSession(t)
	s.cycleTool(1)
	assert.Equal(t, 1, s.tool)
	s.cycleTool(-2)
	assert.Equal(t, 8, s.tool)
	s.cycleTool(1)
	assert.Equal(t, 0, s.tool)
}

func TestCycleTool_CombatOnlyWeapons(t *testing.T) {
	s := newTestSession(t)
	placeTurret(t, s, mathx.V(0, 0, 10), "basic")
	require.NoError(t, s.EnterCombat())
	require.Equal(t, 7, s.tool)

	ev := s.Step(TickInput{ToolCycle: 1})
	assert.Equal(t, 8, s.tool)
	tool, ok := findEvent(ev, EventTool)
	require.True(t, ok)
	assert.Equal(t, "HEAVY", tool.Label)

	s.Step(TickInput{ToolCycle: 1})
	assert.Equal(t, 7, s.tool, "forward past the end lands on the first weapon")
	s.Step(TickInput{ToolCycle: -1})
	assert.Equal(t, 8, s.tool, "backward off the weapons lands on the last tool")
}

func TestAdjustBrush_ClampsAndSnaps(t *testing.T) {
	s := newTestSession(t)
	s.Step(TickInput{BrushSteps: 3, StrengthSteps: -2})
	r, st := s.Brush()
	assert.InDelta(t, 2.3, r, 1e-9)
	assert.InDelta(t, 4.0, st, 1e-9)

	s.Step(TickInput{BrushSteps: 1000, StrengthSteps: -1000})
	r, st = s.Brush()
	assert.InDelta(t, 12, r, 1e-9)
	assert.InDelta(t, 0.5, st, 1e-9)
}

func editorSession(t *testing.T) (*Session, *Pose) {
	t.Helper()
	s := newTestSession(t)
	s.field.ApplyEdit(voxel.EditOperation{Center: mathx.V(0, 0, 0), Radius: 8, Strength: 10, Dt: 1, Channel: 0, IgnoreHardness: true}, 0)
	s.Step(TickInput{})
	s.brushRadius = 6
	pose := &Pose{Player: mathx.V(0, 0, 20), Camera: mathx.V(0, 0, 25), Aim: mathx.V(0, 0, -1), OrbitRadius: 20}
	_, ok := s.surf.CastRay(pose.Camera, pose.Aim, 1000, surface.MaskAll)
	require.True(t, ok, "reticle must see the planet")
	return s, pose
}

func changedChannels(ev []Event) []int {
	var out []int
	for _, e := range ev {
		if e.Kind == EventFieldChanged {
			out = append(out, *e.Channel)
		}
	}
	return out
}

func TestEditor_DigRemovesDominantMaterial(t *testing.T) {
	s, pose := editorSession(t)
	before := s.field.ChannelDigest(0)
	ev := s.Step(TickInput{Pose: pose, Dig: true})
	assert.Equal(t, []int{0}, changedChannels(ev))
	assert.NotEqual(t, before, s.field.ChannelDigest(0))
}

func TestEditor_FillPaintsCurrentMaterial(t *testing.T) {
	s, pose := editorSession(t)
	s.cycleTool(1) // GOLD
	before := s.field.ChannelDigest(1)
	ev := s.Step(TickInput{Pose: pose, Fill: true})
	assert.Equal(t, []int{1}, changedChannels(ev))
	assert.NotEqual(t, before, s.field.ChannelDigest(1))
}

func TestEditor_PlaceTurretAtReticle(t *testing.T) {
	s, pose := editorSession(t)
	ev := s.Step(TickInput{Pose: pose, Place: true})
	assert.NotContains(t, eventKinds(ev), EventTurretPlaced, "material tool does not place")

	s.cycleTool(4) // basic turret
	require.Equal(t, ToolTurret, s.CurrentTool().Kind)
	ev = s.Step(TickInput{Pose: pose, Place: true})
	placed, ok := findEvent(ev, EventTurretPlaced)
	require.True(t, ok)
	assert.Equal(t, "basic", placed.Label)
	outer, inner := s.counts()
	assert.Equal(t, 1, outer)
	assert.Zero(t, inner)
}
