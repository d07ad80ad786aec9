package voxel

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"voxelsiege.ai/internal/sim/mathx"
)

// NoChannel marks an edit without an explicit target. Adding paints the
// current tool's channel; removing is a no-op.
const NoChannel = -1

type Params struct {
	Res           int
	WorldSize     float64
	Isolation     float64
	Clamp         float64
	EditRateScale float64
}

// FieldListener is told which channel changed after every mutating edit.
type FieldListener interface {
	FieldChanged(channel int)
}

type ListenerFunc func(channel int)

func (f ListenerFunc) FieldChanged(channel int) { f(channel) }

type EditOperation struct {
	Center         mathx.Vec3
	Radius         float64
	Strength       float64 // >0 adds, <0 removes
	Dt             float64
	Channel        int
	IgnoreHardness bool
}

type EditResult struct {
	Channel   int
	Destroyed float64
	Changed   int
}

// Set holds every material channel of the level.
type Set struct {
	Grid
	params   Params
	hardness []float64
	channels []*Field
	listener FieldListener
}

// NewSet allocates one channel per hardness entry, filled with the empty baseline.
func NewSet(p Params, hardness []float64) *Set {
	g := Grid{Res: p.Res, WorldSize: p.WorldSize}
	s := &Set{
		Grid:     g,
		params:   p,
		hardness: append([]float64(nil), hardness...),
		channels: make([]*Field, len(hardness)),
	}
	for i := range s.channels {
		s.channels[i] = NewField(g, p.Clamp)
	}
	return s
}

func (s *Set) SetListener(l FieldListener) { s.listener = l }

func (s *Set) Params() Params          { return s.params }
func (s *Set) Isolation() float64      { return s.params.Isolation }
func (s *Set) NumChannels() int        { return len(s.channels) }
func (s *Set) Channel(i int) *Field    { return s.channels[i] }
func (s *Set) ValidChannel(i int) bool { return i >= 0 && i < len(s.channels) }

func (s *Set) notify(ch int) {
	if s.listener != nil {
		s.listener.FieldChanged(ch)
	}
}

// Reset restores every channel to the empty baseline fill.
func (s *Set) Reset() {
	for i, f := range s.channels {
		f.Fill(-s.params.Clamp)
		s.notify(i)
	}
}

// ApplyEdit adds or removes density in a sphere on a single channel and
// returns the amount of solid material destroyed.
func (s *Set) ApplyEdit(op EditOperation, currentTool int) EditResult {
	adding := op.Strength > 0
	ch := op.Channel
	if ch == NoChannel {
		if !adding {
			return EditResult{Channel: NoChannel}
		}
		ch = currentTool
	}
	if !s.ValidChannel(ch) || op.Strength == 0 || op.Radius <= 0 {
		return EditResult{Channel: ch}
	}

	hardness := 1.0
	if !op.IgnoreHardness {
		hardness = s.hardness[ch]
	}
	delta := op.Strength * op.Dt * s.params.EditRateScale / hardness

	gx, gy, gz := s.ToGrid(op.Center)
	gr := s.GridRadius(op.Radius)
	r := math.Ceil(gr)
	r2 := gr * gr
	iso := s.params.Isolation
	f := s.channels[ch]

	res := EditResult{Channel: ch}
	for z := int(math.Floor(gz - r)); z <= int(math.Ceil(gz+r)); z++ {
		for y := int(math.Floor(gy - r)); y <= int(math.Ceil(gy+r)); y++ {
			for x := int(math.Floor(gx - r)); x <= int(math.Ceil(gx+r)); x++ {
				if !s.InBounds(x, y, z) {
					continue
				}
				dx, dy, dz := float64(x)-gx, float64(y)-gy, float64(z)-gz
				if dx*dx+dy*dy+dz*dz > r2 {
					continue
				}
				idx := s.Index(x, y, z)
				old := float64(f.data[idx])
				f.data[idx] = f.clampValue(old + delta)
				nv := float64(f.data[idx])
				if nv != old {
					res.Changed++
					f.sumOK = false
				}
				if !adding && old > iso {
					res.Destroyed += math.Abs(old - math.Max(iso, nv))
				}
			}
		}
	}
	if res.Changed > 0 {
		s.notify(ch)
	}
	return res
}

// DominantMaterialAt returns the channel with the highest density in the
// cell containing p. Ties and out-of-range points resolve to channel 0.
func (s *Set) DominantMaterialAt(p mathx.Vec3) int {
	x, y, z := s.CellOf(p)
	best := 0
	bestV := s.channels[0].At(x, y, z)
	for i := 1; i < len(s.channels); i++ {
		if v := s.channels[i].At(x, y, z); v > bestV {
			best, bestV = i, v
		}
	}
	return best
}

// maxAt is the largest density over all channels at a cell.
func (s *Set) maxAt(x, y, z int) float64 {
	if !s.InBounds(x, y, z) {
		return -s.params.Clamp
	}
	idx := s.Index(x, y, z)
	m := float64(s.channels[0].data[idx])
	for _, f := range s.channels[1:] {
		if v := float64(f.data[idx]); v > m {
			m = v
		}
	}
	return m
}

// Sample trilinearly interpolates the all-channel density at a world point.
func (s *Set) Sample(p mathx.Vec3) float64 {
	gx, gy, gz := s.ToGrid(p)
	// Cell values sit on integer lattice points.
	x0, y0, z0 := math.Floor(gx), math.Floor(gy), math.Floor(gz)
	fx, fy, fz := gx-x0, gy-y0, gz-z0
	ix, iy, iz := int(x0), int(y0), int(z0)

	c := func(dx, dy, dz int) float64 { return s.maxAt(ix+dx, iy+dy, iz+dz) }
	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }

	c00 := lerp(c(0, 0, 0), c(1, 0, 0), fx)
	c10 := lerp(c(0, 1, 0), c(1, 1, 0), fx)
	c01 := lerp(c(0, 0, 1), c(1, 0, 1), fx)
	c11 := lerp(c(0, 1, 1), c(1, 1, 1), fx)
	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz)
}

func (s *Set) IsSolid(p mathx.Vec3) bool { return s.Sample(p) > s.params.Isolation }

// Gradient points from solid toward empty space (the outward surface normal).
func (s *Set) Gradient(p mathx.Vec3) mathx.Vec3 {
	h := s.WorldSize / float64(s.Res) * 0.5
	dx := s.Sample(p.Add(mathx.V(h, 0, 0))) - s.Sample(p.Add(mathx.V(-h, 0, 0)))
	dy := s.Sample(p.Add(mathx.V(0, h, 0))) - s.Sample(p.Add(mathx.V(0, -h, 0)))
	dz := s.Sample(p.Add(mathx.V(0, 0, h))) - s.Sample(p.Add(mathx.V(0, 0, -h)))
	return mathx.V(-dx, -dy, -dz).Normalize()
}

// ChannelDigest hashes one channel's raw cells.
func (s *Set) ChannelDigest(ch int) uint64 { return s.channels[ch].Digest() }

// Digest hashes every channel in order.
func (s *Set) Digest() string {
	d := xxhash.New()
	var buf [8]byte
	for i := range s.channels {
		binary.LittleEndian.PutUint64(buf[:], s.ChannelDigest(i))
		_, _ = d.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], d.Sum64())
	return hex.EncodeToString(buf[:])
}

// Export copies every channel's cells.
func (s *Set) Export() [][]float32 {
	out := make([][]float32, len(s.channels))
	for i, f := range s.channels {
		out[i] = f.Values()
	}
	return out
}

// Import replaces channels whose length matches the grid; others are left
// untouched and reported in skipped.
func (s *Set) Import(chans [][]float64) (loaded, skipped []int) {
	for i, vals := range chans {
		if i >= len(s.channels) {
			skipped = append(skipped, i)
			continue
		}
		if err := s.channels[i].Replace(vals); err != nil {
			skipped = append(skipped, i)
			continue
		}
		loaded = append(loaded, i)
		s.notify(i)
	}
	return loaded, skipped
}

func (s *Set) String() string {
	return fmt.Sprintf("voxel.Set{res=%d channels=%d}", s.Res, len(s.channels))
}
