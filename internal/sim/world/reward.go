package world

import (
	"math"

	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/mathx"
)

// RewardAccumulator carries fractional destruction of precious materials
// toward whole reward drops. Residues never go negative.
type RewardAccumulator struct {
	threshold float64
	residue   []float64
}

func NewRewardAccumulator(threshold float64, channels int) RewardAccumulator {
	return RewardAccumulator{threshold: threshold, residue: make([]float64, channels)}
}

// Add feeds amount into the channel's residue and returns how many rewards
// it paid for.
func (a *RewardAccumulator) Add(ch int, amount float64) int {
	if ch < 0 || ch >= len(a.residue) || !(amount > 0) || math.IsInf(amount, 0) {
		return 0
	}
	a.residue[ch] += amount
	n := 0
	for a.residue[ch] >= a.threshold {
		a.residue[ch] -= a.threshold
		n++
	}
	return n
}

func (a *RewardAccumulator) Residue(ch int) float64 {
	if ch < 0 || ch >= len(a.residue) {
		return 0
	}
	return a.residue[ch]
}

func (a *RewardAccumulator) Reset() {
	clear(a.residue)
}

type struckKind uint8

const (
	struckTerrain struckKind = iota
	struckTurret
	struckCore
)

// spawnDebris emits normal debris for a destructive impact plus any reward
// debris. A struck turret always drops one energy and one heal reward; the
// precious-material accumulator is a separate, additive path.
func (s *Session) spawnDebris(point, incoming mathx.Vec3, material int, amount float64, struck struckKind, minSize, maxSize float64) (normal, rewards int) {
	if struck == struckCore {
		return 0, 0
	}
	rc := s.cfg.Rewards
	mat := s.cats.Material(material)

	n := 0
	if amount > 0 {
		n = int(math.Floor(math.Floor(amount*rc.DebrisPerAmount) * mat.DebrisCountMul))
	}
	n = max(0, min(n, rc.MaxDebrisPerImpact))
	if struck == struckTurret {
		n = max(n, rc.MinTurretDebris)
	}
	for i := 0; i < n; i++ {
		s.debris.Insert(s.newDebris(point, incoming, material, mat, RewardNone, minSize, maxSize))
	}

	if struck == struckTurret {
		for _, k := range []RewardKind{RewardEnergy, RewardHeal} {
			ch := s.rewardMaterial[k]
			s.debris.Insert(s.newDebris(point, incoming, ch, s.cats.Material(ch), k, minSize, maxSize))
			rewards++
		}
	} else if mat.Precious {
		k := RewardKind(mat.Reward)
		for i := s.rewards.Add(material, amount); i > 0; i-- {
			s.debris.Insert(s.newDebris(point, incoming, material, mat, k, minSize, maxSize))
			rewards++
		}
	}
	return n, rewards
}

func (s *Session) newDebris(point, incoming mathx.Vec3, material int, mat catalogs.MaterialDef, reward RewardKind, minSize, maxSize float64) Debris {
	rc := s.cfg.Rewards
	dir := incoming.Neg().Add(s.jitter(rc.DirectionJitter)).Normalize()
	speed := rc.BaseSpeed + s.rng.Float64()*rc.SpeedJitter
	size := minSize + s.rng.Float64()*(maxSize-minSize)
	dmg := 1.0
	if reward == RewardNone {
		speed *= mat.MassSpeed
		dmg = mat.DamageMul
	} else {
		size *= rc.RewardSizeMul
	}
	return Debris{
		Pos:       point,
		Vel:       dir.Scale(speed),
		Spin:      s.jitter(rc.AngularJitter),
		Life:      rc.Life,
		Size:      size,
		Material:  material,
		Reward:    reward,
		DamageMul: dmg,
	}
}

// jitter returns a vector with each component uniform in [-r, r].
func (s *Session) jitter(r float64) mathx.Vec3 {
	return mathx.V((s.rng.Float64()*2-1)*r, (s.rng.Float64()*2-1)*r, (s.rng.Float64()*2-1)*r)
}
