package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/pool"
	"voxelsiege.ai/internal/sim/tuning"
	"voxelsiege.ai/internal/sim/voxel"
)

func newTestSession(t testing.TB) *Session {
	t.Helper()
	cfg := tuning.Defaults()
	cfg.Field.Resolution = 20
	s, err := NewSession(Config{Seed: 1, Tuning: cfg}, nil)
	require.NoError(t, err)
	return s
}

func placeTurret(t testing.TB, s *Session, anchor mathx.Vec3, kind string) pool.Handle {
	t.Helper()
	h, err := s.PlaceTurret(anchor, anchor.Normalize(), kind)
	require.NoError(t, err)
	return h
}

func killTurret(t testing.TB, s *Session, h pool.Handle) {
	t.Helper()
	tr, ok := s.turrets.Get(h)
	require.True(t, ok)
	tr.Health = 0
}

func eventKinds(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func findEvent(events []Event, kind string) (Event, bool) {
	for _, e := range events {
		if e.Kind == kind {
			return e, true
		}
	}
	return Event{}, false
}

func TestNewSession_Defaults(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, PhaseSetup, s.Phase())
	assert.Equal(t, 100.0, s.Player().Health)
	assert.Equal(t, 50.0, s.Governor().Energy)
	assert.Len(t, s.Tools(), 9)
	assert.Equal(t, ToolMaterial, s.CurrentTool().Kind)
	assert.True(t, s.CorePresent())
	assert.Equal(t, 1.0, s.SpeedMultiplier())

	bad := tuning.Defaults()
	bad.Rewards.AccumulatorThreshold = 0
	_, err := NewSession(Config{Tuning: bad}, nil)
	assert.Error(t, err)
}

func TestPlaceTurret_ClassifiesByAnchor(t *testing.T) {
	s := newTestSession(t)
	outer := placeTurret(t, s, mathx.V(0, 0, 10), "standard")
	inner := placeTurret(t, s, mathx.V(0, 1, 0), "basic")

	o, _ := s.turrets.Get(outer)
	i, _ := s.turrets.Get(inner)
	assert.False(t, o.Inner)
	assert.Equal(t, 100.0, o.MaxHealth)
	assert.InDelta(t, 10.25, o.Pos.Z, 1e-9)
	assert.True(t, i.Inner)
	assert.Equal(t, 300.0, i.MaxHealth)
	assert.False(t, i.Dormant, "visible while editing")

	_, err := s.PlaceTurret(mathx.V(0, 0, 10), mathx.V(0, 0, 1), "laser")
	assert.ErrorIs(t, err, ErrUnknownTurret)
}

func TestCombat_EnterForcesWeaponAndHidesInner(t *testing.T) {
	s := newTestSession(t)
	placeTurret(t, s, mathx.V(0, 0, 10), "basic")
	inner := placeTurret(t, s, mathx.V(0, 1, 0), "basic")
	s.player.Health = 12

	require.NoError(t, s.EnterCombat())
	assert.Equal(t, PhaseOuter, s.Phase())
	assert.NotEmpty(t, s.RunID())
	assert.Equal(t, ToolWeapon, s.CurrentTool().Kind)
	assert.Equal(t, 100.0, s.Player().Health)
	i, _ := s.turrets.Get(inner)
	assert.True(t, i.Dormant)
	assert.True(t, s.CoreShieldUp())

	assert.ErrorIs(t, s.EnterCombat(), ErrCombatActive)
	require.NoError(t, s.ExitCombat())
	assert.Equal(t, PhaseSetup, s.Phase())
	assert.ErrorIs(t, s.ExitCombat(), ErrNotCombat)
	assert.ErrorIs(t, s.Reset(), ErrNotCombat)
}

func TestCombat_ExitRestoresBaseline(t *testing.T) {
	s := newTestSession(t)
	placeTurret(t, s, mathx.V(0, 0, 10), "basic")
	s.field.ApplyEdit(voxel.EditOperation{Center: mathx.V(0, 0, 0), Radius: 8, Strength: 10, Dt: 1, Channel: 0, IgnoreHardness: true}, 0)
	before := s.field.Digest()

	require.NoError(t, s.EnterCombat())
	s.field.ApplyEdit(voxel.EditOperation{Center: mathx.V(0, 0, 0), Radius: 8, Strength: -10, Dt: 1, Channel: 0, IgnoreHardness: true}, 0)
	for _, h := range s.turrets.Handles() {
		killTurret(t, s, h)
	}
	s.Step(TickInput{})
	require.Zero(t, s.turrets.Len())
	require.NotEqual(t, before, s.field.Digest())

	require.NoError(t, s.Reset())
	assert.Equal(t, PhaseOuter, s.Phase())
	assert.Equal(t, before, s.field.Digest())
	assert.Equal(t, 1, s.turrets.Len())
	assert.Zero(t, s.Stats().Kills)

	require.NoError(t, s.ExitCombat())
	assert.Equal(t, before, s.field.Digest())
	assert.Equal(t, 1, s.turrets.Len())
}

func TestPhase_FullEncounter(t *testing.T) {
	s := newTestSession(t)
	outer := placeTurret(t, s, mathx.V(0, 0, 10), "basic")
	placeTurret(t, s, mathx.V(0, 1, 0), "basic")
	require.NoError(t, s.EnterCombat())

	killTurret(t, s, outer)
	s.Step(TickInput{}) // reaped
	assert.Equal(t, PhaseOuter, s.Phase())
	ev := s.Step(TickInput{})
	assert.Equal(t, PhaseInner, s.Phase())
	assert.Contains(t, eventKinds(ev), EventCoreShieldRemoved)
	assert.Contains(t, eventKinds(ev), EventInnerRevealed)
	assert.False(t, s.CoreShieldUp())

	for _, h := range s.turrets.Handles() {
		tr, _ := s.turrets.Get(h)
		require.True(t, tr.Inner)
		assert.False(t, tr.Dormant)
		tr.Health = 0
	}
	s.Step(TickInput{})
	ev = s.Step(TickInput{})
	assert.Equal(t, PhaseCoreActivating, s.Phase())
	assert.Contains(t, eventKinds(ev), EventCoreActivated)

	ev = s.Step(TickInput{Pose: &Pose{Player: mathx.V(0, 0, 0.2), Camera: mathx.V(0, 0, 5), Aim: mathx.V(0, 0, -1)}})
	assert.Equal(t, PhaseVictory, s.Phase())
	out, ok := findEvent(ev, EventOutcome)
	require.True(t, ok)
	assert.Equal(t, OutcomeVictory, out.Label)
	assert.Positive(t, out.Amount)
	assert.Contains(t, eventKinds(ev), EventReleaseInput)
	assert.False(t, s.CorePresent())
	assert.Equal(t, 2, s.Stats().Kills)
}

func TestPhase_NoInnerTurretsGoesStraightToCore(t *testing.T) {
	s := newTestSession(t)
	outer := placeTurret(t, s, mathx.V(0, 0, 10), "basic")
	require.NoError(t, s.EnterCombat())
	killTurret(t, s, outer)

	s.Step(TickInput{})
	ev := s.Step(TickInput{})
	assert.Equal(t, PhaseCoreActivating, s.Phase())
	kinds := eventKinds(ev)
	assert.Contains(t, kinds, EventInnerRevealed)
	assert.Contains(t, kinds, EventCoreActivated)
}

func TestPhase_DefeatLatchesOnce(t *testing.T) {
	s := newTestSession(t)
	placeTurret(t, s, mathx.V(0, 0, 10), "basic")
	require.NoError(t, s.EnterCombat())
	s.player.Health = 0

	ev := s.Step(TickInput{})
	assert.Equal(t, PhaseDefeat, s.Phase())
	out, ok := findEvent(ev, EventOutcome)
	require.True(t, ok)
	assert.Equal(t, OutcomeDefeat, out.Label)
	assert.True(t, s.Player().Hidden)

	elapsed := s.Elapsed()
	for i := 0; i < 5; i++ {
		ev = s.Step(TickInput{FirePressed: true, Pose: &Pose{Player: mathx.V(0, 0, 3), Aim: mathx.V(0, 0, -1)}})
		_, again := findEvent(ev, EventOutcome)
		assert.False(t, again)
	}
	assert.Equal(t, PhaseDefeat, s.Phase())
	assert.Equal(t, elapsed, s.Elapsed(), "frozen after the outcome")
	assert.Zero(t, s.projectiles.Len())
	assert.Equal(t, mathx.V(0, 0, 20), s.Player().Pos, "hidden ship ignores pose")

	require.NoError(t, s.Reset())
	assert.Equal(t, PhaseOuter, s.Phase())
	assert.False(t, s.Player().Hidden)
}

func TestLevel_SaveAndLoadRefusedInCombat(t *testing.T) {
	s := newTestSession(t)
	placeTurret(t, s, mathx.V(0, 0, 10), "basic")
	lv, err := s.ExportLevel()
	require.NoError(t, err)

	require.NoError(t, s.EnterCombat())
	_, err = s.ExportLevel()
	assert.ErrorIs(t, err, ErrCombatActive)
	_, err = s.ImportLevel(lv)
	assert.ErrorIs(t, err, ErrCombatActive)
}

func TestLevel_ImportSkipsMismatchedChannel(t *testing.T) {
	s := newTestSession(t)
	cells := s.field.Cells()
	full := func(v float64) []float64 {
		out := make([]float64, cells)
		for i := range out {
			out[i] = v
		}
		return out
	}
	before := s.field.ChannelDigest(1)
	lv := snapshot.LevelV1{
		Voxels:       [][]float64{full(0.5), make([]float64, cells-3), full(-1), full(-1)},
		Turrets:      []snapshot.TurretV1{{Pos: [3]float64{0, 0, 10}, Norm: [3]float64{0, 0, 1}, Type: "standard"}},
		InnerTurrets: []snapshot.TurretV1{{Pos: [3]float64{0, 1, 0}, Norm: [3]float64{0, 1, 0}, Type: "tracking"}},
	}

	rep, err := s.ImportLevel(lv)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, rep.Loaded)
	assert.Equal(t, []int{1}, rep.Skipped)
	assert.Equal(t, 2, rep.Turrets)
	assert.Equal(t, before, s.field.ChannelDigest(1))
	outer, inner := s.counts()
	assert.Equal(t, 1, outer)
	assert.Equal(t, 1, inner)

	ev := s.Step(TickInput{})
	var changed []int
	for _, e := range ev {
		if e.Kind == EventFieldChanged {
			changed = append(changed, *e.Channel)
		}
	}
	assert.Equal(t, []int{0, 2, 3}, changed)

	out, err := s.ExportLevel()
	require.NoError(t, err)
	require.Len(t, out.Turrets, 1)
	require.Len(t, out.InnerTurrets, 1)
	assert.Equal(t, [3]float64{0, 0, 10}, out.Turrets[0].Pos)
	assert.Equal(t, "tracking", out.InnerTurrets[0].Type)
	assert.InDelta(t, 0.5, out.Voxels[0][0], 1e-6)
}

func TestLevel_UnknownTurretLeavesStateUntouched(t *testing.T) {
	s := newTestSession(t)
	placeTurret(t, s, mathx.V(0, 0, 10), "basic")
	digest := s.field.Digest()
	cells := s.field.Cells()

	_, err := s.ImportLevel(snapshot.LevelV1{
		Voxels:  [][]float64{make([]float64, cells)},
		Turrets: []snapshot.TurretV1{{Pos: [3]float64{0, 0, 10}, Norm: [3]float64{0, 0, 1}, Type: "laser"}},
	})
	assert.ErrorIs(t, err, ErrUnknownTurret)
	assert.Equal(t, digest, s.field.Digest())
	assert.Equal(t, 1, s.turrets.Len())
}
