package world

import (
	"time"
)

// Step advances the session by one tick and returns the events it produced.
// In setup the editor runs; in combat the encounter runs in a fixed order:
// phase transitions, weapons, player shots, hostile shots, turret deaths,
// turret AI, debris, then the defeat check. A finished encounter is frozen.
func (s *Session) Step(in TickInput) []Event {
	dt := in.Dt
	if dt <= 0 {
		dt = 1 / float64(s.cfg.TickRateHz)
	}
	if in.Now.IsZero() {
		s.now = s.now.Add(time.Duration(dt * float64(time.Second)))
		in.Now = s.now
	} else {
		s.now = in.Now
	}
	if in.Pose != nil {
		s.applyPose(*in.Pose)
	}

	switch {
	case s.phase == PhaseSetup:
		s.stepEditor(in, dt)
	case s.phase.Terminal():
	default:
		s.elapsed += dt
		s.stepPhase(dt)
		if !s.phase.Terminal() {
			s.stepWeapons(in)
			s.stepProjectiles()
			s.stepHostiles(dt)
			s.reapTurrets()
			s.stepTurrets()
			s.stepDebris(dt)
			s.checkDefeat()
		}
	}

	s.flushFieldChanges()
	s.tick++
	out := s.events
	s.events = nil
	return out
}

func (s *Session) applyPose(p Pose) {
	if s.player.Hidden {
		return
	}
	s.player.Pos = p.Player
	s.player.Camera = p.Camera
	if aim := p.Aim.Normalize(); !aim.IsZero() {
		s.aim = aim
	}
	if p.OrbitRadius > 0 {
		s.orbitRadius = p.OrbitRadius
	}
}
