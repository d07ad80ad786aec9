package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"voxelsiege.ai/internal/sim/mathx"
)

func testParams() Params {
	return Params{Res: 20, WorldSize: 20, Isolation: 0.2, Clamp: 1.1, EditRateScale: 5}
}

func newTestSet() *Set {
	return NewSet(testParams(), []float64{1.0, 0.1, 0.1, 2.0})
}

func TestGrid_WorldRoundTrip(t *testing.T) {
	g := Grid{Res: 60, WorldSize: 60}
	x, y, z := g.ToGrid(mathx.V(0, 0, 0))
	assert.Equal(t, 30.0, x)
	assert.Equal(t, 30.0, y)
	assert.Equal(t, 30.0, z)

	p := g.ToWorld(12.5, 3, 59)
	gx, gy, gz := g.ToGrid(p)
	assert.InDelta(t, 12.5, gx, 1e-9)
	assert.InDelta(t, 3.0, gy, 1e-9)
	assert.InDelta(t, 59.0, gz, 1e-9)
	assert.Equal(t, 2.0, g.GridRadius(2))
}

func TestApplyEdit_ClampsEveryCell(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newTestSet()
		op := EditOperation{
			Center:         mathx.V(rapid.Float64Range(-12, 12).Draw(t, "x"), rapid.Float64Range(-12, 12).Draw(t, "y"), rapid.Float64Range(-12, 12).Draw(t, "z")),
			Radius:         rapid.Float64Range(0.1, 8).Draw(t, "radius"),
			Strength:       rapid.Float64Range(-1e6, 1e6).Draw(t, "strength"),
			Dt:             rapid.Float64Range(0, 2).Draw(t, "dt"),
			Channel:        rapid.IntRange(NoChannel, 3).Draw(t, "channel"),
			IgnoreHardness: rapid.Bool().Draw(t, "ignore"),
		}
		res := s.ApplyEdit(op, rapid.IntRange(0, 3).Draw(t, "tool"))
		if res.Destroyed < 0 {
			t.Fatalf("negative destroyed amount %v", res.Destroyed)
		}
		for ch := 0; ch < s.NumChannels(); ch++ {
			for _, v := range s.Channel(ch).data {
				if v < -1.1 || v > 1.1 {
					t.Fatalf("channel %d value %v out of range", ch, v)
				}
			}
		}
	})
}

func TestApplyEdit_DestroyedCountsOnlyAboveIsolation(t *testing.T) {
	s := newTestSet()
	s.Channel(0).Fill(0.4)

	// delta = -0.6 * 0.1 * 5 / 1.0 = -0.3, so 0.4 -> 0.1 and only 0.2 per cell was solid.
	res := s.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 2, Strength: -0.6, Dt: 0.1, Channel: 0}, 0)
	require.Positive(t, res.Changed)
	assert.InDelta(t, 0.2*float64(res.Changed), res.Destroyed, 1e-4*float64(res.Changed))

	s2 := newTestSet()
	s2.Channel(0).Fill(1.0)
	res2 := s2.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 2, Strength: -0.6, Dt: 0.1, Channel: 0}, 0)
	assert.Equal(t, res.Changed, res2.Changed)
	assert.InDelta(t, 0.3*float64(res2.Changed), res2.Destroyed, 1e-4*float64(res2.Changed))
}

func TestApplyEdit_HardnessScalesDelta(t *testing.T) {
	s := newTestSet()
	s.Channel(3).Fill(1.0)
	s.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 0.5, Strength: -0.4, Dt: 0.1, Channel: 3}, 0)
	x, y, z := s.CellOf(mathx.V(0, 0, 0))
	// 0.4*0.1*5/2.0 = 0.1
	assert.InDelta(t, 0.9, s.Channel(3).At(x, y, z), 1e-6)

	s.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 0.5, Strength: -0.4, Dt: 0.1, Channel: 3, IgnoreHardness: true}, 0)
	assert.InDelta(t, 0.7, s.Channel(3).At(x, y, z), 1e-6)
}

func TestApplyEdit_TargetResolution(t *testing.T) {
	s := newTestSet()
	var changed []int
	s.SetListener(ListenerFunc(func(ch int) { changed = append(changed, ch) }))

	res := s.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 1, Strength: -5, Dt: 1, Channel: NoChannel}, 2)
	assert.Equal(t, NoChannel, res.Channel)
	assert.Zero(t, res.Changed)
	assert.Empty(t, changed)

	res = s.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 1, Strength: 5, Dt: 1, Channel: NoChannel}, 2)
	assert.Equal(t, 2, res.Channel)
	assert.Positive(t, res.Changed)
	assert.Equal(t, []int{2}, changed)
	assert.Equal(t, 2, s.DominantMaterialAt(mathx.V(0, 0, 0)))
}

func TestApplyEdit_OutOfRangeSkipped(t *testing.T) {
	s := newTestSet()
	res := s.ApplyEdit(EditOperation{Center: mathx.V(100, 100, 100), Radius: 3, Strength: 5, Dt: 1, Channel: 0}, 0)
	assert.Zero(t, res.Changed)

	res = s.ApplyEdit(EditOperation{Center: mathx.V(9.5, 9.5, 9.5), Radius: 3, Strength: 5, Dt: 1, Channel: 0}, 0)
	assert.Positive(t, res.Changed)
}

func TestDominantMaterialAt_TieResolvesToLowestChannel(t *testing.T) {
	s := newTestSet()
	p := mathx.V(1.2, -3.4, 2.2)
	x, y, z := s.CellOf(p)
	s.Channel(0).Set(x, y, z, 0.7)
	s.Channel(2).Set(x, y, z, 0.7)
	assert.Equal(t, 0, s.DominantMaterialAt(p))

	s.Channel(2).Set(x, y, z, 0.8)
	assert.Equal(t, 2, s.DominantMaterialAt(p))
	assert.Equal(t, 0, s.DominantMaterialAt(mathx.V(500, 0, 0)))
}

func TestImport_SkipsMismatchedChannel(t *testing.T) {
	s := newTestSet()
	s.Channel(1).Fill(0.5)
	before := s.ChannelDigest(1)

	cells := s.Cells()
	good := make([]float64, cells)
	for i := range good {
		good[i] = 9 // clamps to 1.1
	}
	loaded, skipped := s.Import([][]float64{good, make([]float64, cells-1), good})
	assert.Equal(t, []int{0, 2}, loaded)
	assert.Equal(t, []int{1}, skipped)
	assert.Equal(t, before, s.ChannelDigest(1))
	assert.InDelta(t, 1.1, s.Channel(0).At(0, 0, 0), 1e-6)
}

func TestDigest_ChangesWithContent(t *testing.T) {
	a, b := newTestSet(), newTestSet()
	assert.Equal(t, a.Digest(), b.Digest())
	b.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 1, Strength: 1, Dt: 1, Channel: 1}, 0)
	assert.NotEqual(t, a.Digest(), b.Digest())
}

func TestSample_SolidInsideFilledRegion(t *testing.T) {
	s := newTestSet()
	s.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 4, Strength: 10, Dt: 1, Channel: 0, IgnoreHardness: true}, 0)
	assert.True(t, s.IsSolid(mathx.V(0.3, 0.1, -0.2)))
	assert.False(t, s.IsSolid(mathx.V(8, 8, 8)))

	n := s.Gradient(mathx.V(4, 0, 0))
	assert.Greater(t, n.X, 0.5)
}

func TestGenerate_PlanetWithHollowCore(t *testing.T) {
	s := NewSet(Params{Res: 40, WorldSize: 40, Isolation: 0.2, Clamp: 1.1, EditRateScale: 5}, []float64{1, 0.1, 0.1, 2})
	opt := DefaultGenOptions(7)
	opt.PlanetRadius = 9
	Generate(s, opt)

	assert.True(t, s.IsSolid(mathx.V(5, 0, 0)))
	assert.False(t, s.IsSolid(mathx.V(0.5, 0, 0)))
	assert.False(t, s.IsSolid(mathx.V(17, 0, 0)))

	again := NewSet(s.Params(), []float64{1, 0.1, 0.1, 2})
	Generate(again, opt)
	assert.Equal(t, s.Digest(), again.Digest())
}

func TestChannelDigest_CachedUntilWrite(t *testing.T) {
	s := newTestSet()
	fresh := func(ch int) uint64 {
		f := s.Channel(ch)
		f.sumOK = false
		return f.Digest()
	}

	base := s.ChannelDigest(0)
	assert.True(t, s.Channel(0).sumOK)
	assert.Equal(t, base, s.ChannelDigest(0))

	writes := []struct {
		name  string
		write func()
	}{
		{"edit", func() {
			s.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 1, Strength: 1, Dt: 1, Channel: 0}, 0)
		}},
		{"set", func() { s.Channel(0).Set(1, 2, 3, 0.9) }},
		{"fill", func() { s.Channel(0).Fill(0.3) }},
		{"replace", func() { require.NoError(t, s.Channel(0).Replace(make([]float64, s.Cells()))) }},
	}
	prev := base
	for _, w := range writes {
		w.write()
		got := s.ChannelDigest(0)
		assert.NotEqual(t, prev, got, w.name)
		assert.Equal(t, fresh(0), got, w.name)
		prev = got
	}

	// An edit that changes nothing keeps the cache.
	s.ChannelDigest(1)
	s.ApplyEdit(EditOperation{Center: mathx.V(0, 0, 0), Radius: 1, Strength: -1, Dt: 1, Channel: 1}, 0)
	assert.True(t, s.Channel(1).sumOK)
}
