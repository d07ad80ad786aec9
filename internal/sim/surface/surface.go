// Package surface answers "where does this ray first meet a surface" for the
// combat simulation: the density iso-surface of the level and the boss core.
package surface

import (
	"math"

	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/voxel"
)

type Mask uint8

const (
	MaskTerrain Mask = 1 << iota
	MaskCore

	MaskAll = MaskTerrain | MaskCore
)

type Kind int

const (
	KindTerrain Kind = iota + 1
	KindCore
)

func (k Kind) String() string {
	switch k {
	case KindTerrain:
		return "terrain"
	case KindCore:
		return "core"
	default:
		return "none"
	}
}

type Hit struct {
	Point    mathx.Vec3
	Normal   mathx.Vec3
	Distance float64
	Kind     Kind
}

// Query is the ray-cast contract the simulation relies on. dir must be unit
// length; hits farther than maxDist are not reported.
type Query interface {
	CastRay(origin, dir mathx.Vec3, maxDist float64, mask Mask) (Hit, bool)
}

// Marcher is the reference Query: it steps through the density field and
// intersects the core sphere analytically. Terrain is double sided: a ray
// that starts inside solid reports the point where it leaves.
type Marcher struct {
	field *voxel.Set
	step  float64

	coreCenter  mathx.Vec3
	coreRadius  float64
	corePresent bool
}

func NewMarcher(field *voxel.Set) *Marcher {
	return &Marcher{
		field: field,
		step:  field.WorldSize / float64(field.Res) * 0.25,
	}
}

// SetCore places (or with present=false removes) the core sphere.
func (m *Marcher) SetCore(center mathx.Vec3, radius float64, present bool) {
	m.coreCenter, m.coreRadius, m.corePresent = center, radius, present
}

func (m *Marcher) CorePresent() bool { return m.corePresent }

func (m *Marcher) CastRay(origin, dir mathx.Vec3, maxDist float64, mask Mask) (Hit, bool) {
	dir = dir.Normalize()
	if dir.IsZero() || maxDist <= 0 {
		return Hit{}, false
	}
	var best Hit
	found := false
	if mask&MaskCore != 0 && m.corePresent {
		if t, ok := raySphere(origin, dir, m.coreCenter, m.coreRadius); ok && t <= maxDist {
			p := origin.Add(dir.Scale(t))
			best = Hit{Point: p, Normal: p.Sub(m.coreCenter).Normalize(), Distance: t, Kind: KindCore}
			found = true
			maxDist = t
		}
	}
	if mask&MaskTerrain != 0 {
		if h, ok := m.marchTerrain(origin, dir, maxDist); ok {
			return h, true
		}
	}
	return best, found
}

func (m *Marcher) marchTerrain(origin, dir mathx.Vec3, maxDist float64) (Hit, bool) {
	half := m.field.WorldSize / 2
	t0, t1, ok := rayBox(origin, dir, half)
	if !ok {
		return Hit{}, false
	}
	if t0 < 0 {
		t0 = 0
	}
	if t1 > maxDist {
		t1 = maxDist
	}
	if t0 > t1 {
		return Hit{}, false
	}

	iso := m.field.Isolation()
	prevT := t0
	prevSolid := m.field.Sample(origin.Add(dir.Scale(t0))) > iso
	for t := t0 + m.step; ; t += m.step {
		if t > t1 {
			t = t1
		}
		solid := m.field.Sample(origin.Add(dir.Scale(t))) > iso
		if solid != prevSolid {
			ht := m.refine(origin, dir, prevT, t, iso, prevSolid)
			p := origin.Add(dir.Scale(ht))
			return Hit{Point: p, Normal: m.field.Gradient(p), Distance: ht, Kind: KindTerrain}, true
		}
		prevT, prevSolid = t, solid
		if t >= t1 {
			return Hit{}, false
		}
	}
}

// refine bisects the surface crossing between a and b; startSolid is the
// state at a.
func (m *Marcher) refine(origin, dir mathx.Vec3, a, b, iso float64, startSolid bool) float64 {
	for i := 0; i < 8; i++ {
		mid := (a + b) / 2
		if (m.field.Sample(origin.Add(dir.Scale(mid))) > iso) != startSolid {
			b = mid
		} else {
			a = mid
		}
	}
	return b
}

// raySphere returns the nearest entry distance; origins inside the sphere miss.
func raySphere(origin, dir, center mathx.Vec3, radius float64) (float64, bool) {
	oc := origin.Sub(center)
	c := oc.LenSq() - radius*radius
	if c < 0 {
		return 0, false
	}
	b := oc.Dot(dir)
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		return 0, false
	}
	return t, true
}

// rayBox clips a ray to the cube [-half, half]^3.
func rayBox(origin, dir mathx.Vec3, half float64) (tmin, tmax float64, ok bool) {
	tmin, tmax = math.Inf(-1), math.Inf(1)
	o := origin.Array()
	d := dir.Array()
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < -half || o[i] > half {
				return 0, 0, false
			}
			continue
		}
		a := (-half - o[i]) / d[i]
		b := (half - o[i]) / d[i]
		if a > b {
			a, b = b, a
		}
		tmin = math.Max(tmin, a)
		tmax = math.Min(tmax, b)
	}
	return tmin, tmax, tmax >= tmin && tmax >= 0
}
