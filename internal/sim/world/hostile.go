package world

import (
	"voxelsiege.ai/internal/sim/pool"
	"voxelsiege.ai/internal/sim/surface"
	"voxelsiege.ai/internal/sim/voxel"
)

func (s *Session) stepHostiles(dt float64) {
	hc := s.cfg.Hostile
	player := s.player.Pos

	s.hostiles.Each(func(h pool.Handle, b *HostileProjectile) bool {
		// Homing bends the heading only while far away and still roughly on target.
		if b.Homing && b.Pos.Dist(player) > hc.HomingMinDistance {
			to := player.Sub(b.Pos).Normalize()
			if b.Vel.Normalize().Dot(to) > hc.HomingMinDot {
				b.Vel = b.Vel.Lerp(to.Scale(b.Speed), hc.HomingLerp)
			}
		}

		if speed := b.Vel.Len(); speed > 0 {
			dir := b.Vel.Scale(1 / speed)
			if hit, ok := s.surf.CastRay(b.Pos, dir, speed+hc.RayLead, surface.MaskAll); ok {
				s.hostileImpact(hit, b.FromInner)
				s.hostiles.Remove(h)
				return true
			}
		}

		b.Pos = b.Pos.Add(b.Vel)
		if b.Pos.Len() > player.Len()+hc.FadeMargin {
			b.Fading = true
		}
		if b.Fading {
			b.FadeLife -= dt
			if b.FadeLife <= 0 {
				s.hostiles.Remove(h)
				return true
			}
		}

		if s.player.Health > 0 && b.Pos.Dist(player) < hc.PlayerHitRadius {
			color := colorTurretHit
			if def, ok := s.cats.Turret(b.Kind); ok && def.Color != "" {
				color = def.Color
			}
			s.explosion(player, color, s.cfg.Projectile.TurretHitParticles)
			s.damagePlayer(b.Damage)
			s.hostiles.Remove(h)
		}
		return true
	})
}

// hostileImpact: the core deflects, inner-turret fire carves the level,
// outer-turret fire is cosmetic.
func (s *Session) hostileImpact(hit surface.Hit, fromInner bool) {
	hc := s.cfg.Hostile
	if hit.Kind == surface.KindCore {
		s.deflect(hit.Point)
		return
	}
	if !fromInner {
		s.explosion(hit.Point, colorHostileHit, s.cfg.Projectile.DeflectParticles)
		return
	}
	ch := s.field.DominantMaterialAt(hit.Point)
	res := s.field.ApplyEdit(voxel.EditOperation{
		Center:   hit.Point,
		Radius:   hc.CarveRadius,
		Strength: -hc.CarveStrength,
		Dt:       s.cfg.Field.ImpactDt,
		Channel:  ch,
	}, s.currentMaterial())
	s.explosion(hit.Point, colorHostileHit, hc.ImpactParticles)
	dir := hit.Point.Sub(s.player.Pos).Normalize()
	s.spawnDebris(hit.Point, dir, ch, res.Destroyed, struckTerrain, hc.DebrisMinSize, hc.DebrisMaxSize)
}
