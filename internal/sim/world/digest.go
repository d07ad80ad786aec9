package world

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/cespare/xxhash/v2"

	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/pool"
)

// Digest hashes the gameplay state after the current tick. It changes
// whenever the field, an entity or the player does; it is not a
// cross-machine replay checksum.
func (s *Session) Digest() string {
	d := xxhash.New()
	var tmp [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		_, _ = d.Write(tmp[:])
	}
	f64 := func(v float64) { u64(math.Float64bits(v)) }
	vec := func(v mathx.Vec3) {
		f64(v.X)
		f64(v.Y)
		f64(v.Z)
	}

	u64(s.tick)
	u64(uint64(s.phase))
	vec(s.player.Pos)
	f64(s.player.Health)
	u64(uint64(s.player.SpeedTier))
	f64(s.governor.Heat)
	f64(s.governor.Energy)
	_, _ = d.WriteString(s.field.Digest())

	s.turrets.Each(func(h pool.Handle, t *Turret) bool {
		u64(h.ID())
		vec(t.Pos)
		f64(t.Health)
		return true
	})
	s.projectiles.Each(func(h pool.Handle, p *Projectile) bool {
		u64(h.ID())
		vec(p.Pos)
		return true
	})
	s.hostiles.Each(func(h pool.Handle, b *HostileProjectile) bool {
		u64(h.ID())
		vec(b.Pos)
		return true
	})
	u64(uint64(s.debris.Len()))

	binary.LittleEndian.PutUint64(tmp[:], d.Sum64())
	return hex.EncodeToString(tmp[:])
}
