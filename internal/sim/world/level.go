package world

import (
	"fmt"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/pool"
)

// LoadReport lists which density channels a load replaced.
type LoadReport struct {
	Loaded  []int `json:"loaded"`
	Skipped []int `json:"skipped"`
	Turrets int   `json:"turrets"`
}

// ExportLevel captures the editable level. Refused during combat.
func (s *Session) ExportLevel() (snapshot.LevelV1, error) {
	if s.phase.Combat() {
		return snapshot.LevelV1{}, ErrCombatActive
	}
	return s.captureLevel(), nil
}

// ImportLevel replaces the level. Turret kinds are checked before anything
// changes; channels whose length does not match the grid are skipped.
func (s *Session) ImportLevel(lv snapshot.LevelV1) (LoadReport, error) {
	if s.phase.Combat() {
		return LoadReport{}, ErrCombatActive
	}
	rep, err := s.applyLevel(lv)
	if err != nil {
		s.log.Warn("level load refused", zap.Error(err))
		return rep, err
	}
	s.log.Info("level loaded", zap.Ints("loaded", rep.Loaded), zap.Ints("skipped", rep.Skipped), zap.Int("turrets", rep.Turrets))
	return rep, nil
}

func (s *Session) captureLevel() snapshot.LevelV1 {
	raw := s.field.Export()
	lv := snapshot.LevelV1{Voxels: make([][]float64, len(raw))}
	for i, ch := range raw {
		vals := make([]float64, len(ch))
		for j, v := range ch {
			vals[j] = float64(v)
		}
		lv.Voxels[i] = vals
	}
	s.turrets.Each(func(_ pool.Handle, t *Turret) bool {
		tv := snapshot.TurretV1{Pos: t.Anchor.Array(), Norm: t.Normal.Array(), Type: t.Kind}
		if t.Inner {
			lv.InnerTurrets = append(lv.InnerTurrets, tv)
		} else {
			lv.Turrets = append(lv.Turrets, tv)
		}
		return true
	})
	return lv
}

func (s *Session) applyLevel(lv snapshot.LevelV1) (LoadReport, error) {
	all := append(append([]snapshot.TurretV1(nil), lv.Turrets...), lv.InnerTurrets...)
	for i, t := range all {
		if _, ok := s.cats.Turret(t.Type); !ok {
			return LoadReport{}, fmt.Errorf("turret %d: %w: %q", i, ErrUnknownTurret, t.Type)
		}
	}

	var rep LoadReport
	rep.Loaded, rep.Skipped = s.field.Import(lv.Voxels)
	for _, h := range s.turrets.Handles() {
		s.turrets.Remove(h)
		s.emit(Event{Kind: EventTurretRemoved, Target: h.ID()})
	}
	// Classification is re-derived from the anchor, not from which list the
	// turret came from.
	for _, t := range all {
		if _, err := s.PlaceTurret(mathx.FromArray(t.Pos), mathx.FromArray(t.Norm), t.Type); err == nil {
			rep.Turrets++
		}
	}
	return rep, nil
}
