package voxel

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"voxelsiege.ai/internal/sim/mathx"
)

// Grid maps world space onto a cubic cell lattice centred on the origin.
type Grid struct {
	Res       int
	WorldSize float64
}

// ToGrid returns continuous grid coordinates for a world point.
func (g Grid) ToGrid(p mathx.Vec3) (x, y, z float64) {
	half := g.WorldSize / 2
	r := float64(g.Res)
	return (p.X/half + 1) / 2 * r, (p.Y/half + 1) / 2 * r, (p.Z/half + 1) / 2 * r
}

// ToWorld is the inverse of ToGrid.
func (g Grid) ToWorld(x, y, z float64) mathx.Vec3 {
	half := g.WorldSize / 2
	r := float64(g.Res)
	return mathx.V((x/r*2-1)*half, (y/r*2-1)*half, (z/r*2-1)*half)
}

func (g Grid) GridRadius(worldRadius float64) float64 {
	return worldRadius / g.WorldSize * float64(g.Res)
}

func (g Grid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.Res && y < g.Res && z < g.Res
}

func (g Grid) Index(x, y, z int) int { return x + y*g.Res + z*g.Res*g.Res }

func (g Grid) Cells() int { return g.Res * g.Res * g.Res }

// CellOf floors a world point to its cell coordinates.
func (g Grid) CellOf(p mathx.Vec3) (x, y, z int) {
	gx, gy, gz := g.ToGrid(p)
	return int(math.Floor(gx)), int(math.Floor(gy)), int(math.Floor(gz))
}

// Field is one material channel. Every write clamps to [-clamp, clamp].
type Field struct {
	grid  Grid
	clamp float32
	data  []float32

	// sum caches Digest until the next write.
	sum   uint64
	sumOK bool
}

func NewField(g Grid, clamp float64) *Field {
	f := &Field{grid: g, clamp: float32(clamp), data: make([]float32, g.Cells())}
	f.Fill(-clamp)
	return f
}

func (f *Field) Len() int { return len(f.data) }

// At returns the cell value, or 0 outside the grid.
func (f *Field) At(x, y, z int) float32 {
	if !f.grid.InBounds(x, y, z) {
		return 0
	}
	return f.data[f.grid.Index(x, y, z)]
}

// Set writes a clamped value; out-of-range cells are skipped.
func (f *Field) Set(x, y, z int, v float64) bool {
	if !f.grid.InBounds(x, y, z) {
		return false
	}
	f.data[f.grid.Index(x, y, z)] = f.clampValue(v)
	f.sumOK = false
	return true
}

func (f *Field) clampValue(v float64) float32 {
	if math.IsNaN(v) {
		return -f.clamp
	}
	c := float64(f.clamp)
	return float32(mathx.Clamp(v, -c, c))
}

func (f *Field) Fill(v float64) {
	cv := f.clampValue(v)
	for i := range f.data {
		f.data[i] = cv
	}
	f.sumOK = false
}

// Values returns a copy of the raw cells in index order.
func (f *Field) Values() []float32 {
	out := make([]float32, len(f.data))
	copy(out, f.data)
	return out
}

// Replace overwrites every cell from vals, clamping each one.
func (f *Field) Replace(vals []float64) error {
	if len(vals) != len(f.data) {
		return fmt.Errorf("channel length %d, want %d", len(vals), len(f.data))
	}
	for i, v := range vals {
		f.data[i] = f.clampValue(v)
	}
	f.sumOK = false
	return nil
}

// Digest hashes the raw cells. The result is cached until the next write.
func (f *Field) Digest() uint64 {
	if f.sumOK {
		return f.sum
	}
	d := xxhash.New()
	var buf [4]byte
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		_, _ = d.Write(buf[:])
	}
	f.sum, f.sumOK = d.Sum64(), true
	return f.sum
}
