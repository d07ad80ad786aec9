package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelsiege.ai/internal/sim/mathx"
)

func combatSession(t *testing.T, turretAt mathx.Vec3, kind string) *Session {
	t.Helper()
	s := newTestSession(t)
	placeTurret(t, s, turretAt, kind)
	require.NoError(t, s.EnterCombat())
	return s
}

func TestWeapons_LightShotDamagesTurret(t *testing.T) {
	s := combatSession(t, mathx.V(0, 0, 10), "basic")
	h := s.turrets.Handles()[0]

	ev := s.Step(TickInput{FirePressed: true})
	fired, ok := findEvent(ev, EventFired)
	require.True(t, ok)
	assert.Equal(t, "LIGHT", fired.Label)
	assert.Equal(t, 1, s.Stats().ShotsFired)
	assert.InDelta(t, 15, s.Governor().Heat, 1e-9)

	for i := 0; i < 8; i++ {
		s.Step(TickInput{})
	}
	tr, ok := s.turrets.Get(h)
	require.True(t, ok)
	assert.Equal(t, 95.0, tr.Health)
	assert.Zero(t, s.projectiles.Len())
}

func TestWeapons_HeldTriggerRespectsInterval(t *testing.T) {
	s := combatSession(t, mathx.V(10, 0, 0), "basic")
	start := time.Unix(1000, 0)
	for i := 0; i < 18; i++ {
		s.Step(TickInput{FireHeld: true, Now: start.Add(time.Duration(i) * 20 * time.Millisecond)})
	}
	// 18 ticks at 20ms span 340ms: shots at 0, 160 and 320ms.
	assert.Equal(t, 3, s.Stats().ShotsFired)
}

func TestWeapons_HeavyNeedsPressAndEnergy(t *testing.T) {
	s := combatSession(t, mathx.V(10, 0, 0), "basic")
	s.Step(TickInput{ToolCycle: 1})
	require.Equal(t, "HEAVY", s.CurrentTool().ID)

	s.Step(TickInput{FireHeld: true})
	assert.Zero(t, s.Stats().ShotsFired, "holding does not repeat heavy shots")

	for i := 0; i < 6; i++ {
		s.Step(TickInput{FirePressed: true})
	}
	assert.Equal(t, 5, s.Stats().ShotsFired)
	assert.InDelta(t, 0, s.Governor().Energy, 1e-9)
}

func TestWeapons_ShieldedTurretDeflectsFromRange(t *testing.T) {
	s := combatSession(t, mathx.V(0, 0, -2), "standard")
	h := s.turrets.Handles()[0]
	// Ship far outside the shield range, looking down at the turret.
	pose := &Pose{Player: mathx.V(0, 0, -29), Camera: mathx.V(0, 0, -29.5), Aim: mathx.V(0, 0, 1), OrbitRadius: 29}
	s.Step(TickInput{Pose: pose})
	tr, _ := s.turrets.Get(h)
	require.True(t, tr.Active)
	require.True(t, tr.Invulnerable)

	s.Step(TickInput{Pose: pose, FirePressed: true})
	var deflected bool
	for i := 0; i < 15; i++ {
		ev := s.Step(TickInput{Pose: pose})
		if _, ok := findEvent(ev, EventDeflect); ok {
			deflected = true
		}
	}
	assert.True(t, deflected)
	tr, _ = s.turrets.Get(h)
	assert.Equal(t, tr.MaxHealth, tr.Health)
}

func TestDebris_RewardPickupHeals(t *testing.T) {
	s := combatSession(t, mathx.V(10, 0, 0), "basic")
	s.player.Health = 50
	s.debris.Insert(Debris{Pos: s.player.Pos.Add(mathx.V(0.1, 0, 0)), Reward: RewardHeal, Size: 0.1, Life: 3, DamageMul: 1})

	ev := s.Step(TickInput{})
	pick, ok := findEvent(ev, EventPickup)
	require.True(t, ok)
	assert.Equal(t, "HEAL", pick.Label)
	assert.InDelta(t, 53, s.Player().Health, 1e-9)
	assert.Equal(t, 1, s.Stats().Pickups)
	assert.Zero(t, s.debris.Len())
}

func TestDebris_SpeedRewardCapsAtTopTier(t *testing.T) {
	s := combatSession(t, mathx.V(10, 0, 0), "basic")
	for i := 0; i < 6; i++ {
		s.debris.Insert(Debris{Pos: s.player.Pos, Reward: RewardSpeed, Size: 0.1, Life: 3})
		s.Step(TickInput{})
	}
	assert.Equal(t, 3, s.Player().SpeedTier)
	assert.Equal(t, 2.0, s.SpeedMultiplier())
}

func TestDebris_ContactDamagesPlayer(t *testing.T) {
	s := combatSession(t, mathx.V(10, 0, 0), "basic")
	s.debris.Insert(Debris{Pos: s.player.Pos.Add(mathx.V(0.1, 0, 0)), Size: 0.1, Life: 3, DamageMul: 1})

	ev := s.Step(TickInput{})
	dmg, ok := findEvent(ev, EventPlayerDamaged)
	require.True(t, ok)
	assert.InDelta(t, 15, dmg.Amount, 1e-9)
	assert.InDelta(t, 85, s.Player().Health, 1e-9)
	assert.InDelta(t, 15, s.Stats().DamageTaken, 1e-9)
}

func TestHostile_HitDamagesPlayer(t *testing.T) {
	s := combatSession(t, mathx.V(10, 0, 0), "basic")
	s.hostiles.Insert(HostileProjectile{
		Pos:    s.player.Pos.Add(mathx.V(0.15, 0, 0)),
		Vel:    mathx.V(-0.05, 0, 0),
		Kind:   "tracking",
		Speed:  0.05,
		Damage: 15,
	})
	s.Step(TickInput{})
	assert.InDelta(t, 85, s.Player().Health, 1e-9)
	assert.Zero(t, s.hostiles.Len())
}
