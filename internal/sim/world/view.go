package world

import (
	"voxelsiege.ai/internal/protocol"
	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/pool"
)

// Frame renders the presentation state. events are attached as-is.
func (s *Session) Frame(events []Event) protocol.FrameMsg {
	tool := s.CurrentTool()
	f := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            s.tick,
		Phase:           s.phase.String(),
		Elapsed:         s.elapsed,
		Player: protocol.PlayerState{
			Pos:        s.player.Pos.Array(),
			Health:     s.player.Health,
			MaxHealth:  s.cfg.Player.MaxHealth,
			Energy:     s.governor.Energy,
			Heat:       s.governor.Heat,
			Overheated: s.governor.Overheated,
			SpeedTier:  s.player.SpeedTier,
			SpeedMul:   s.SpeedMultiplier(),
			Hidden:     s.player.Hidden,
		},
		Tool:  protocol.ToolRef{Kind: tool.Kind.String(), ID: tool.ID},
		Brush: protocol.BrushState{Radius: s.brushRadius, Strength: s.strength},
		Core: protocol.CoreState{
			Present: s.corePresent,
			Shield:  s.coreShieldUp,
			Active:  s.coreActivated,
			Color:   s.CoreColor(),
			Radius:  s.cfg.Phase.CoreRadius,
		},
		Turrets:     make([]protocol.TurretState, 0, s.turrets.Len()),
		Projectiles: make([]protocol.ProjectileState, 0, s.projectiles.Len()),
		Hostiles:    make([]protocol.ProjectileState, 0, s.hostiles.Len()),
		Debris:      make([]protocol.DebrisState, 0, s.debris.Len()),
		Events:      events,
	}
	if s.corePresent && s.coreShieldUp {
		f.Core.ShieldRadius = s.cfg.Phase.CoreShieldRadius
	}
	s.turrets.Each(func(h pool.Handle, t *Turret) bool {
		f.Turrets = append(f.Turrets, protocol.TurretState{
			ID:           h.ID(),
			Kind:         t.Kind,
			Pos:          t.Pos.Array(),
			Normal:       t.Normal.Array(),
			Inner:        t.Inner,
			Health:       t.Health,
			MaxHealth:    t.MaxHealth,
			Dormant:      t.Dormant,
			Active:       t.Active,
			Invulnerable: t.Invulnerable,
		})
		return true
	})
	s.projectiles.Each(func(h pool.Handle, p *Projectile) bool {
		f.Projectiles = append(f.Projectiles, protocol.ProjectileState{ID: h.ID(), Kind: p.Weapon.ID, Pos: p.Pos.Array(), Opacity: 1})
		return true
	})
	fade := s.cfg.Hostile.FadeLife
	s.hostiles.Each(func(h pool.Handle, b *HostileProjectile) bool {
		op := 1.0
		if b.Fading && fade > 0 {
			op = mathx.Clamp(b.FadeLife/fade, 0, 1)
		}
		f.Hostiles = append(f.Hostiles, protocol.ProjectileState{ID: h.ID(), Kind: b.Kind, Pos: b.Pos.Array(), Opacity: op})
		return true
	})
	life := s.cfg.Rewards.Life
	s.debris.Each(func(h pool.Handle, d *Debris) bool {
		f.Debris = append(f.Debris, protocol.DebrisState{
			ID:       h.ID(),
			Pos:      d.Pos.Array(),
			Rot:      d.Rot.Array(),
			Size:     d.Size,
			Material: d.Material,
			Reward:   string(d.Reward),
			Opacity:  d.Opacity(life),
		})
		return true
	})
	return f
}

// Welcome describes the session to a newly connected client.
func (s *Session) Welcome() protocol.WelcomeMsg {
	mats := make([]string, len(s.cats.Materials.Defs))
	for i, m := range s.cats.Materials.Defs {
		mats[i] = m.ID
	}
	tools := make([]protocol.ToolRef, len(s.tools))
	for i, t := range s.tools {
		tools[i] = protocol.ToolRef{Kind: t.Kind.String(), ID: t.ID}
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       s.id,
		RunID:           s.runID,
		Phase:           s.phase.String(),
		Field: protocol.FieldParams{
			Resolution: s.cfg.Field.Resolution,
			WorldSize:  s.cfg.Field.WorldSize,
			Isolation:  s.cfg.Field.Isolation,
			Materials:  mats,
		},
		TickRateHz: s.cfg.TickRateHz,
		SpeedTiers: append([]float64(nil), s.cfg.Player.SpeedTierMultipliers...),
		Tools:      tools,
		Catalogs: protocol.CatalogDigests{
			Materials: s.cats.Materials.Digest,
			Weapons:   s.cats.Weapons.Digest,
			Turrets:   s.cats.Turrets.Digest,
		},
	}
}
