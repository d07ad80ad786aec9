package world

import (
	"math"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/pool"
)

func (s *Session) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	from := s.phase
	s.phase = p
	s.emit(Event{Kind: EventPhase, Label: p.String()})
	s.log.Info("phase", zap.Stringer("from", from), zap.Stringer("to", p), zap.Uint64("tick", s.tick), zap.String("run", s.runID))
}

// stepPhase evaluates encounter transitions. An empty outer ring and an
// empty inner ring can both resolve in the same tick.
func (s *Session) stepPhase(dt float64) {
	if s.phase == PhaseOuter {
		if outer, _ := s.counts(); outer == 0 {
			s.revealInner()
		}
	}
	if s.phase == PhaseInner {
		if _, inner := s.counts(); inner == 0 {
			s.activateCore()
		}
	}
	if s.phase == PhaseCoreActivating {
		s.coreGlow += dt * s.cfg.Phase.GlowRate
		if s.player.Pos.Dist(s.coreCenter) < s.cfg.Phase.VictoryRadius {
			s.victory()
		}
	}
}

func (s *Session) revealInner() {
	s.coreShieldUp = false
	s.innerRevealed = true
	s.turrets.Each(func(_ pool.Handle, t *Turret) bool {
		if t.Inner {
			t.Dormant = false
		}
		return true
	})
	s.emit(Event{Kind: EventCoreShieldRemoved, Pos: posOf(s.coreCenter)})
	s.emit(Event{Kind: EventInnerRevealed})
	s.setPhase(PhaseInner)
}

func (s *Session) activateCore() {
	s.coreActivated = true
	s.emit(Event{Kind: EventCoreActivated, Pos: posOf(s.coreCenter)})
	s.explosion(s.coreCenter, colorInnerDeath, s.cfg.Phase.CoreActivateParticles)
	s.setPhase(PhaseCoreActivating)
}

func (s *Session) victory() {
	s.emit(Event{Kind: EventOutcome, Label: OutcomeVictory, Amount: s.elapsed})
	s.emit(Event{Kind: EventReleaseInput})
	s.explosion(s.coreCenter, colorCore, s.cfg.Phase.VictoryParticles)
	s.corePresent = false
	s.syncCore()
	s.setPhase(PhaseVictory)
	s.log.Info("victory", zap.String("run", s.runID), zap.Float64("elapsed_s", s.elapsed), zap.Int("kills", s.stats.Kills))
}

// checkDefeat latches once; a finished session never re-evaluates it.
func (s *Session) checkDefeat() {
	if s.phase.Terminal() || !s.phase.Combat() || s.player.Health > 0 {
		return
	}
	s.player.Hidden = true
	s.emit(Event{Kind: EventPlayerHidden})
	s.explosion(s.player.Pos, colorPlayerDeath, s.cfg.Phase.DefeatParticles)
	s.emit(Event{Kind: EventOutcome, Label: OutcomeDefeat, Amount: s.elapsed})
	s.emit(Event{Kind: EventReleaseInput})
	s.setPhase(PhaseDefeat)
	s.log.Info("defeat", zap.String("run", s.runID), zap.Float64("elapsed_s", s.elapsed), zap.Int("kills", s.stats.Kills))
}

// CoreColor is the activated core's pulsing colour: gold to red to white.
func (s *Session) CoreColor() [3]float64 {
	if !s.coreActivated {
		return [3]float64{0, 0.53, 1}
	}
	t := (math.Sin(s.coreGlow) + 1) / 2
	if t < 0.5 {
		b := t * 2
		return [3]float64{1, 0.67 * (1 - b), 0}
	}
	b := (t - 0.5) * 2
	return [3]float64{1, b, b}
}

func (s *Session) syncCore() {
	if cs, ok := s.surf.(coreSurface); ok {
		cs.SetCore(s.coreCenter, s.cfg.Phase.CoreRadius, s.corePresent)
	}
}

// coreSurface is implemented by surface queries that model the core sphere.
type coreSurface interface {
	SetCore(center mathx.Vec3, radius float64, present bool)
}
