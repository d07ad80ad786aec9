package world

import (
	"math"

	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/pool"
	"voxelsiege.ai/internal/sim/surface"
)

// Opacity is the presentation alpha; only fading debris is translucent.
func (d *Debris) Opacity(baseLife float64) float64 {
	if !d.Fading || baseLife <= 0 {
		return 1
	}
	return mathx.Clamp(d.Life/baseLife, 0, 1)
}

func (s *Session) stepDebris(dt float64) {
	dc := s.cfg.Debris
	alive := s.player.Health > 0
	orbit := s.orbitRadius

	s.debris.Each(func(h pool.Handle, d *Debris) bool {
		if alive {
			dist := d.Pos.Dist(s.player.Pos)
			if d.Reward != RewardNone {
				if dist < dc.MagnetRadius {
					toShip := s.player.Pos.Sub(d.Pos).Normalize()
					d.Vel = d.Vel.Add(toShip.Scale(dc.MagnetPull)).Scale(dc.MagnetDamping)
					d.Life = s.cfg.Rewards.Life
				}
				if dist < dc.PickupRadius {
					s.collect(d)
					s.debris.Remove(h)
					return true
				}
			} else if dist < dc.ContactRadius+d.Size {
				dmg := d.Size * dc.ContactDamagePerSize * d.DamageMul
				s.explosion(d.Pos, colorDebrisHit, dc.ContactParticles)
				s.damagePlayer(dmg)
				s.debris.Remove(h)
				return true
			}
		}

		d.Pos = d.Pos.Add(d.Vel)
		d.Rot = d.Rot.Add(d.Spin)
		r := d.Pos.Len()
		if r > orbit {
			d.Fading = true
		}
		if d.Fading {
			d.Life -= dt
			if d.Life <= 0 {
				s.debris.Remove(h)
				return true
			}
		}
		if d.Age < dc.MaxAge {
			d.Age += dt
		}
		if d.Age > dc.AbsorbAge && r < orbit {
			speed := d.Vel.Len()
			if speed > 0 {
				if _, hit := s.surf.CastRay(d.Pos.Sub(d.Vel), d.Vel.Scale(1/speed), speed*dc.AbsorbFactor, surface.MaskAll); hit {
					s.debris.Remove(h)
				}
			}
		}
		return true
	})
}

func (s *Session) collect(d *Debris) {
	dc := s.cfg.Debris
	pc := s.cfg.Player
	switch d.Reward {
	case RewardHeal:
		s.player.Health = math.Min(pc.MaxHealth, s.player.Health+d.Size*dc.HealPerSize)
	case RewardEnergy:
		s.governor.AddEnergy(d.Size * dc.EnergyPerSize)
	case RewardSpeed:
		if s.player.SpeedTier < s.cfg.MaxSpeedTier() {
			s.player.SpeedTier++
		}
	}
	s.stats.Pickups++
	s.emit(Event{Kind: EventPickup, Pos: posOf(d.Pos), Label: string(d.Reward), Amount: d.Size})
}

func (s *Session) damagePlayer(amount float64) {
	if amount <= 0 || s.player.Health <= 0 {
		return
	}
	s.player.Health = math.Max(0, s.player.Health-amount)
	s.stats.DamageTaken += amount
	s.emit(Event{Kind: EventPlayerDamaged, Amount: amount})
}
