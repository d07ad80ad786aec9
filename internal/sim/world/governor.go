package world

import (
	"math"
	"time"

	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/tuning"
)

// WeaponGovernor gates both weapon tiers. The light tier runs on heat with
// hysteresis plus a minimum interval between shots; the heavy tier spends
// energy and ignores heat and interval.
type WeaponGovernor struct {
	cfg       tuning.Governor
	maxEnergy float64

	Heat       float64   `json:"heat"`
	Overheated bool      `json:"overheated"`
	Energy     float64   `json:"energy"`
	LastFire   time.Time `json:"-"`
}

func NewWeaponGovernor(cfg tuning.Governor, maxEnergy, startEnergy float64) WeaponGovernor {
	return WeaponGovernor{cfg: cfg, maxEnergy: maxEnergy, Energy: math.Min(startEnergy, maxEnergy)}
}

// Cool runs once per tick. The overheat lockout clears only at zero heat.
func (g *WeaponGovernor) Cool() {
	if g.Heat > 0 {
		g.Heat = math.Max(0, g.Heat-g.cfg.CoolPerTick)
	}
	if g.Overheated && g.Heat == 0 {
		g.Overheated = false
	}
}

// CanFire reports whether TryFire would succeed without changing state.
func (g *WeaponGovernor) CanFire(w catalogs.WeaponDef, now time.Time) bool {
	if w.Heavy {
		return g.Energy >= g.cfg.HeavyEnergyCost
	}
	if g.Overheated {
		return false
	}
	interval := time.Duration(g.cfg.FireIntervalMs) * time.Millisecond
	return g.LastFire.IsZero() || now.Sub(g.LastFire) >= interval
}

// TryFire consumes the weapon's gating resource. A refusal is a silent false.
func (g *WeaponGovernor) TryFire(w catalogs.WeaponDef, now time.Time) bool {
	if !g.CanFire(w, now) {
		return false
	}
	if w.Heavy {
		g.Energy -= g.cfg.HeavyEnergyCost
		return true
	}
	g.LastFire = now
	g.Heat = math.Min(g.cfg.HeatMax, g.Heat+g.cfg.HeatPerShot)
	if g.Heat >= g.cfg.HeatMax {
		g.Overheated = true
	}
	return true
}

func (g *WeaponGovernor) AddEnergy(v float64) {
	g.Energy = math.Min(g.maxEnergy, g.Energy+v)
}
