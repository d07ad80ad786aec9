package world

import (
	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/pool"
	"voxelsiege.ai/internal/sim/surface"
	"voxelsiege.ai/internal/sim/voxel"
)

// stepWeapons cools the governor and fires the selected weapon. Light shots
// repeat while the trigger is held; heavy shots need a fresh press.
func (s *Session) stepWeapons(in TickInput) {
	s.governor.Cool()
	s.cycleTool(in.ToolCycle)
	w, ok := s.currentWeapon()
	if !ok || s.player.Health <= 0 {
		return
	}
	if !in.FirePressed && !(in.FireHeld && !w.Heavy) {
		return
	}
	if !s.governor.TryFire(w, in.Now) {
		return
	}
	s.spawnProjectile(w, s.aim)
}

func (s *Session) spawnProjectile(w catalogs.WeaponDef, aim mathx.Vec3) pool.Handle {
	pc := s.cfg.Projectile
	aim = aim.Normalize()
	if aim.IsZero() {
		aim = s.player.Pos.Neg().Normalize()
	}
	spawn := s.player.Pos.Add(aim.Scale(pc.SpawnOffset))

	// Aim converges on whatever the camera ray sees first.
	target := s.player.Camera.Add(aim.Scale(pc.AimDistance))
	if hit, ok := s.surf.CastRay(s.player.Camera, aim, pc.AimDistance, surface.MaskAll); ok {
		target = hit.Point
	}
	dir := target.Sub(spawn).Normalize()
	if dir.IsZero() {
		dir = aim
	}

	s.stats.ShotsFired++
	s.emit(Event{Kind: EventFired, Pos: posOf(spawn), Color: w.Color, Label: w.ID})
	return s.projectiles.Insert(Projectile{Pos: spawn, Dir: dir, Speed: w.Speed, Life: w.LifeTicks, Weapon: w})
}

func (s *Session) stepProjectiles() {
	pc := s.cfg.Projectile
	s.projectiles.Each(func(h pool.Handle, p *Projectile) bool {
		prev := p.Pos
		p.Pos = p.Pos.Add(p.Dir.Scale(p.Speed))
		p.Life--

		// Turret proximity short-circuits the terrain test.
		if th, t, ok := s.turretNear(p.Pos); ok {
			w := p.Weapon
			if w.Heavy && w.AreaDamage > 0 {
				s.areaDamage(p.Pos, w)
			}
			s.damageTurret(th, t, w.DirectDamage, p.Pos)
			s.projectiles.Remove(h)
			return true
		}

		mask := surface.MaskTerrain
		if s.coreShieldUp {
			mask |= surface.MaskCore
		}
		if hit, ok := s.surf.CastRay(prev, p.Dir, p.Speed+pc.HitSlack, mask); ok {
			if hit.Kind == surface.KindCore {
				s.deflect(hit.Point)
			} else {
				s.impact(hit, *p)
			}
			s.projectiles.Remove(h)
			return true
		}

		if p.Life <= 0 {
			s.projectiles.Remove(h)
		}
		return true
	})
}

// impact carves the dominant material at the hit point and sprays its debris.
func (s *Session) impact(hit surface.Hit, p Projectile) {
	w := p.Weapon
	ch := s.field.DominantMaterialAt(hit.Point)
	res := s.field.ApplyEdit(voxel.EditOperation{
		Center:   hit.Point,
		Radius:   w.Radius,
		Strength: -w.Strength,
		Dt:       s.cfg.Field.ImpactDt,
		Channel:  ch,
	}, s.currentMaterial())
	s.stats.Destroyed += res.Destroyed

	s.explosion(hit.Point, w.Color, w.ParticleCount)
	s.spawnDebris(hit.Point, p.Dir, ch, res.Destroyed, struckTerrain, w.DebrisMinSize, w.DebrisMaxSize)
	if w.Heavy && w.AreaDamage > 0 {
		s.areaDamage(hit.Point, w)
	}
}

// turretNear finds the first interactive turret whose hit sphere contains p.
func (s *Session) turretNear(p mathx.Vec3) (pool.Handle, *Turret, bool) {
	tc := s.cfg.Turrets
	var (
		found pool.Handle
		ft    *Turret
	)
	s.turrets.Each(func(h pool.Handle, t *Turret) bool {
		if !t.Interactive() {
			return true
		}
		r := tc.OuterHitRadius
		if t.Inner {
			r = tc.InnerHitRadius
		}
		if p.Dist(t.Pos) < r {
			found, ft = h, t
			return false
		}
		return true
	})
	return found, ft, ft != nil
}

// damageTurret applies damage unless the turret's shield is up.
func (s *Session) damageTurret(h pool.Handle, t *Turret, amount float64, at mathx.Vec3) bool {
	if t.Invulnerable {
		s.deflect(at)
		return false
	}
	t.Health -= amount
	s.emit(Event{Kind: EventTurretDamaged, Target: h.ID(), Amount: t.Health})
	s.explosion(at, colorTurretHit, s.cfg.Projectile.TurretHitParticles)
	return true
}

// areaDamage falls off linearly to zero at the weapon's area radius.
func (s *Session) areaDamage(center mathx.Vec3, w catalogs.WeaponDef) {
	s.turrets.Each(func(h pool.Handle, t *Turret) bool {
		if !t.Interactive() || t.Invulnerable {
			return true
		}
		d := center.Dist(t.Pos)
		if d >= w.AreaRadius {
			return true
		}
		t.Health -= w.AreaDamage * (1 - d/w.AreaRadius)
		s.emit(Event{Kind: EventTurretDamaged, Target: h.ID(), Amount: t.Health})
		s.explosion(t.Pos, colorAreaDamage, s.cfg.Projectile.DeflectParticles)
		return true
	})
}
