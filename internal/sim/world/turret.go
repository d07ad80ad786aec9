package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/pool"
	"voxelsiege.ai/internal/sim/surface"
)

var ErrUnknownTurret = errors.New("unknown turret type")

// PlaceTurret creates a turret on a surface point. Classification is derived
// from the anchor's distance to the world center; inner turrets placed during
// combat stay dormant until the inner ring is revealed.
func (s *Session) PlaceTurret(anchor, normal mathx.Vec3, kind string) (pool.Handle, error) {
	def, ok := s.cats.Turret(kind)
	if !ok {
		return pool.Nil, fmt.Errorf("%w: %q", ErrUnknownTurret, kind)
	}
	tc := s.cfg.Turrets
	n := normal.Normalize()
	if n.IsZero() {
		n = anchor.Normalize()
	}
	if n.IsZero() {
		n = mathx.V(0, 1, 0)
	}

	inner := anchor.Len() < tc.InnerRadius
	size, health := tc.OuterSize, tc.OuterHealth
	if inner {
		size, health = tc.InnerSize, tc.InnerHealth
	}
	pos := anchor.Add(n.Scale(size * 0.5))
	t := Turret{
		Kind:      def.ID,
		def:       def,
		Anchor:    anchor,
		Pos:       pos,
		Normal:    n,
		FirePoint: pos.Add(n.Scale(tc.FirePointOffset)),
		Inner:     inner,
		Health:    health,
		MaxHealth: health,
		Dormant:   inner && s.phase.Combat() && !s.innerRevealed,
	}
	h := s.turrets.Insert(t)
	s.emit(Event{Kind: EventTurretPlaced, Pos: posOf(pos), Target: h.ID(), Label: def.ID})
	return h, nil
}

func (s *Session) counts() (outer, inner int) {
	s.turrets.Each(func(_ pool.Handle, t *Turret) bool {
		if t.Inner {
			inner++
		} else {
			outer++
		}
		return true
	})
	return outer, inner
}

// reapTurrets removes every turret at or below zero health.
func (s *Session) reapTurrets() {
	tc := s.cfg.Turrets
	s.turrets.Each(func(h pool.Handle, t *Turret) bool {
		if t.Alive() {
			return true
		}
		pos := t.Pos
		inner := t.Inner
		s.turrets.Remove(h)

		dir := pos.Sub(s.player.Pos).Normalize()
		s.spawnDebris(pos, dir, 0, tc.DeathDebrisAmount, struckTurret, tc.DeathDebrisMinSize, tc.DeathDebrisMaxSize)
		color := colorOuterDeath
		if inner {
			color = colorInnerDeath
		}
		s.explosion(pos, color, tc.DeathParticles)
		s.emit(Event{Kind: EventTurretRemoved, Pos: posOf(pos), Target: h.ID()})
		s.stats.Kills++
		s.log.Info("turret destroyed", zap.Uint64("turret", h.ID()), zap.Bool("inner", inner), zap.Uint64("tick", s.tick))
		return true
	})
}

// stepTurrets re-evaluates exposure and shields, counts down cooldowns and fires.
func (s *Session) stepTurrets() {
	tc := s.cfg.Turrets
	s.turrets.Each(func(_ pool.Handle, t *Turret) bool {
		if !t.Interactive() {
			t.Active, t.Invulnerable = false, false
			return true
		}
		t.Active = t.Inner || s.exposed(t)
		if !t.Active {
			t.Invulnerable = false
			return true
		}
		if t.Shielded() {
			t.Invulnerable = t.Pos.Dist(s.player.Pos) > tc.ShieldRange
		}
		if t.Cooldown > 0 {
			t.Cooldown--
		} else {
			s.fireTurret(t)
		}
		return true
	})
}

// exposed requires a clear line to the player (terrain or core blocks it)
// and a terrain-free line to the camera.
func (s *Session) exposed(t *Turret) bool {
	toPlayer := s.player.Pos.Sub(t.FirePoint)
	if d := toPlayer.Len(); d > 0 {
		if _, hit := s.surf.CastRay(t.FirePoint, toPlayer.Scale(1/d), d, surface.MaskAll); hit {
			return false
		}
	}
	toCam := s.player.Camera.Sub(t.Pos)
	if d := toCam.Len(); d > 0 {
		if _, hit := s.surf.CastRay(t.Pos, toCam.Scale(1/d), d, surface.MaskTerrain); hit {
			return false
		}
	}
	return true
}

func (s *Session) fireTurret(t *Turret) {
	def := t.def
	base := s.player.Pos.Sub(t.FirePoint).Normalize()
	for i := 0; i < def.Shots; i++ {
		spread := mathx.V(s.rng.Float64()-0.5, s.rng.Float64()-0.5, s.rng.Float64()-0.5).Scale(def.Spread)
		dir := base.Add(spread).Normalize()
		s.hostiles.Insert(HostileProjectile{
			Pos:       t.FirePoint,
			Vel:       dir.Scale(def.Speed),
			Kind:      def.ID,
			Speed:     def.Speed,
			Damage:    def.BulletDamage,
			Homing:    def.Homing,
			FromInner: t.Inner,
			FadeLife:  s.cfg.Hostile.FadeLife,
		})
	}
	t.Cooldown = def.CooldownMin + s.rng.Float64()*(def.CooldownMax-def.CooldownMin)
}
