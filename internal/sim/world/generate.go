package world

import (
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/surface"
	"voxelsiege.ai/internal/sim/voxel"
)

type LevelGenOptions struct {
	Terrain voxel.GenOptions

	OuterTurrets int
	// OuterKinds are assigned round-robin.
	OuterKinds   []string
	InnerTurrets int
	InnerKind    string
}

func DefaultLevelGenOptions(seed int64) LevelGenOptions {
	return LevelGenOptions{
		Terrain:      voxel.DefaultGenOptions(seed),
		OuterTurrets: 8,
		OuterKinds:   []string{"basic", "basic", "standard"},
		InnerTurrets: 4,
		InnerKind:    "tracking",
	}
}

// GenerateLevel replaces the level with a procedural planet: outer turrets
// sit on the crust, inner turrets ring the core. Refused during combat.
func (s *Session) GenerateLevel(opt LevelGenOptions) (LoadReport, error) {
	if s.phase.Combat() {
		return LoadReport{}, ErrCombatActive
	}
	var kinds []string
	if opt.OuterTurrets > 0 {
		kinds = append(kinds, opt.OuterKinds...)
	}
	if opt.InnerTurrets > 0 {
		kinds = append(kinds, opt.InnerKind)
	}
	for _, k := range kinds {
		if _, ok := s.cats.Turret(k); !ok {
			return LoadReport{}, fmt.Errorf("%w: %q", ErrUnknownTurret, k)
		}
	}

	for _, h := range s.turrets.Handles() {
		s.turrets.Remove(h)
		s.emit(Event{Kind: EventTurretRemoved, Target: h.ID()})
	}
	voxel.Generate(s.field, opt.Terrain)

	var rep LoadReport
	for i := 0; i < s.field.NumChannels(); i++ {
		rep.Loaded = append(rep.Loaded, i)
	}
	rng := rand.New(rand.NewSource(opt.Terrain.Seed))
	half := s.cfg.Field.WorldSize / 2

	for i, dir := range sphereDirs(opt.OuterTurrets, rng) {
		if len(opt.OuterKinds) == 0 {
			break
		}
		origin := dir.Scale(half * 0.95)
		hit, ok := s.surf.CastRay(origin, dir.Scale(-1), half, surface.MaskTerrain)
		if !ok || hit.Point.Len() < s.cfg.Turrets.InnerRadius {
			continue
		}
		if _, err := s.PlaceTurret(hit.Point, hit.Normal, opt.OuterKinds[i%len(opt.OuterKinds)]); err == nil {
			rep.Turrets++
		}
	}

	inner := s.cfg.Turrets.InnerRadius * 0.8
	for _, dir := range sphereDirs(opt.InnerTurrets, rng) {
		anchor := dir.Scale(inner)
		if hit, ok := s.surf.CastRay(mathx.Vec3{}, dir, s.cfg.Turrets.InnerRadius, surface.MaskTerrain); ok && hit.Distance > s.cfg.Phase.CoreRadius && hit.Distance < s.cfg.Turrets.InnerRadius {
			anchor = hit.Point
		}
		if _, err := s.PlaceTurret(anchor, dir.Scale(-1), opt.InnerKind); err == nil {
			rep.Turrets++
		}
	}

	s.log.Info("level generated",
		zap.Int64("seed", opt.Terrain.Seed),
		zap.Int("turrets", rep.Turrets),
		zap.String("digest", s.field.Digest()),
	)
	return rep, nil
}

// sphereDirs spreads n unit vectors over the sphere (golden spiral) under a
// random rotation about the y axis.
func sphereDirs(n int, rng *rand.Rand) []mathx.Vec3 {
	if n <= 0 {
		return nil
	}
	out := make([]mathx.Vec3, 0, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	spin := rng.Float64() * 2 * math.Pi
	for i := 0; i < n; i++ {
		y := 1 - (float64(i)+0.5)/float64(n)*2
		r := math.Sqrt(1 - y*y)
		a := golden*float64(i) + spin
		out = append(out, mathx.V(math.Cos(a)*r, y, math.Sin(a)*r))
	}
	return out
}
