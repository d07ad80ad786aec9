package voxel

import (
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/cespare/xxhash/v2"

	"voxelsiege.ai/internal/sim/mathx"
)

// GenOptions shapes a procedurally generated planet level.
type GenOptions struct {
	Seed         int64
	PlanetRadius float64
	SurfaceNoise float64
	NoiseScale   float64
	CavityRadius float64

	BaseChannel  int
	OreChannels  []int
	OrePockets   int
	OreRadiusMin float64
	OreRadiusMax float64
}

func DefaultGenOptions(seed int64) GenOptions {
	return GenOptions{
		Seed:         seed,
		PlanetRadius: 11,
		SurfaceNoise: 1.6,
		NoiseScale:   0.35,
		CavityRadius: 1.2,
		BaseChannel:  0,
		OreChannels:  []int{1, 2, 3},
		OrePockets:   28,
		OreRadiusMin: 1.2,
		OreRadiusMax: 2.6,
	}
}

type orePocket struct {
	center  mathx.Vec3
	radius  float64
	channel int
}

// Generate overwrites s with a noisy sphere of base material around a hollow
// core, seeded with ore pockets. Positive density is solid.
func Generate(s *Set, opt GenOptions) {
	rng := rand.New(rand.NewSource(opt.Seed))

	pockets := make([]orePocket, 0, opt.OrePockets)
	for i := 0; i < opt.OrePockets && len(opt.OreChannels) > 0; i++ {
		dir := mathx.V(rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()*2-1).Normalize()
		if dir.IsZero() {
			continue
		}
		depth := opt.CavityRadius + 1 + rng.Float64()*(opt.PlanetRadius-opt.CavityRadius-1)
		pockets = append(pockets, orePocket{
			center:  dir.Scale(depth),
			radius:  opt.OreRadiusMin + rng.Float64()*(opt.OreRadiusMax-opt.OreRadiusMin),
			channel: opt.OreChannels[rng.Intn(len(opt.OreChannels))],
		})
	}

	clamp := s.params.Clamp
	for _, f := range s.channels {
		f.Fill(-clamp)
	}
	base := s.channels[opt.BaseChannel]

	for z := 0; z < s.Res; z++ {
		for y := 0; y < s.Res; y++ {
			for x := 0; x < s.Res; x++ {
				p := s.ToWorld(float64(x), float64(y), float64(z))
				d := p.Len()
				if d > opt.PlanetRadius+opt.SurfaceNoise+1 {
					continue
				}
				surface := opt.PlanetRadius
				if d > 0 {
					n := octaveNoise3D(p.Normalize().Scale(opt.PlanetRadius*opt.NoiseScale), opt.Seed, 3)
					surface += (n*2 - 1) * opt.SurfaceNoise
				}
				density := math.Min(surface-d, d-opt.CavityRadius)
				base.Set(x, y, z, density)
				if density <= s.params.Isolation {
					continue
				}
				for _, pk := range pockets {
					pd := pk.radius - p.Dist(pk.center)
					if pd <= 0 {
						continue
					}
					ore := s.channels[pk.channel]
					// Ore must dominate the host rock to be the struck material.
					v := math.Min(density+0.3, pd+float64(base.At(x, y, z)))
					if v > float64(ore.At(x, y, z)) {
						ore.Set(x, y, z, v)
					}
				}
			}
		}
	}
	for i := range s.channels {
		s.notify(i)
	}
}

// octaveNoise3D returns fractal value noise in [0,1].
func octaveNoise3D(p mathx.Vec3, seed int64, octaves int) float64 {
	total, amp, norm, freq := 0.0, 1.0, 0.0, 1.0
	for o := 0; o < octaves; o++ {
		total += valueNoise3D(p.Scale(freq), seed+int64(o)*7919) * amp
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return total / norm
}

func valueNoise3D(p mathx.Vec3, seed int64) float64 {
	x0, y0, z0 := math.Floor(p.X), math.Floor(p.Y), math.Floor(p.Z)
	fx, fy, fz := smooth(p.X-x0), smooth(p.Y-y0), smooth(p.Z-z0)
	ix, iy, iz := int64(x0), int64(y0), int64(z0)
	h := func(dx, dy, dz int64) float64 { return lattice(ix+dx, iy+dy, iz+dz, seed) }
	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }

	c00 := lerp(h(0, 0, 0), h(1, 0, 0), fx)
	c10 := lerp(h(0, 1, 0), h(1, 1, 0), fx)
	c01 := lerp(h(0, 0, 1), h(1, 0, 1), fx)
	c11 := lerp(h(0, 1, 1), h(1, 1, 1), fx)
	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz)
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

func lattice(x, y, z, seed int64) float64 {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(x))
	binary.LittleEndian.PutUint64(buf[8:], uint64(y))
	binary.LittleEndian.PutUint64(buf[16:], uint64(z))
	binary.LittleEndian.PutUint64(buf[24:], uint64(seed))
	return float64(xxhash.Sum64(buf[:])>>11) / float64(1<<53)
}
