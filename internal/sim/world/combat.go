package world

import (
	"errors"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/sim/pool"
)

var (
	ErrCombatActive = errors.New("combat session active")
	ErrNotCombat    = errors.New("no combat session")
)

// EnterCombat captures the current level as the baseline and starts an
// encounter from it.
func (s *Session) EnterCombat() error {
	if s.phase.Combat() {
		return ErrCombatActive
	}
	lv := s.captureLevel()
	s.baseline = &lv
	s.startCombat()
	return nil
}

// ExitCombat restores the baseline level and returns to the editor.
func (s *Session) ExitCombat() error {
	if !s.phase.Combat() {
		return ErrNotCombat
	}
	if err := s.restoreBaseline(); err != nil {
		return err
	}
	s.clearEntities()
	s.player.Health = s.cfg.Player.MaxHealth
	s.player.Hidden = false
	s.corePresent, s.coreShieldUp, s.coreActivated = true, true, false
	s.innerRevealed = false
	s.syncCore()
	s.setPhase(PhaseSetup)
	s.log.Info("combat exited", zap.String("run", s.runID))
	s.runID = ""
	return nil
}

// Reset restarts the encounter from the baseline, from any combat phase
// including a finished one.
func (s *Session) Reset() error {
	if !s.phase.Combat() {
		return ErrNotCombat
	}
	if err := s.restoreBaseline(); err != nil {
		return err
	}
	s.startCombat()
	return nil
}

func (s *Session) restoreBaseline() error {
	if s.baseline == nil {
		return nil
	}
	_, err := s.applyLevel(*s.baseline)
	return err
}

func (s *Session) clearEntities() {
	s.projectiles.Clear()
	s.hostiles.Clear()
	s.debris.Clear()
}

func (s *Session) startCombat() {
	pc := s.cfg.Player
	s.runID = newRunID()
	s.clearEntities()
	s.player.Health = pc.MaxHealth
	s.player.SpeedTier = 0
	s.player.Hidden = false
	s.governor = NewWeaponGovernor(s.cfg.Governor, pc.MaxEnergy, pc.StartEnergy)
	s.rewards.Reset()
	s.stats = Stats{}
	s.elapsed = 0
	s.coreGlow = 0
	s.coreActivated = false
	s.corePresent, s.coreShieldUp = true, true
	s.innerRevealed = false
	s.syncCore()

	s.turrets.Each(func(_ pool.Handle, t *Turret) bool {
		t.Dormant = t.Inner
		t.Active, t.Invulnerable = false, false
		t.Cooldown = 0
		t.Health = t.MaxHealth
		return true
	})
	if s.CurrentTool().Kind != ToolWeapon {
		s.tool = s.firstWeaponTool()
		s.emit(Event{Kind: EventTool, Label: s.tools[s.tool].ID})
	}
	s.phase = PhaseSetup
	s.setPhase(PhaseOuter)
	outer, inner := s.counts()
	s.log.Info("combat started", zap.String("run", s.runID), zap.Int("outer", outer), zap.Int("inner", inner))
}
