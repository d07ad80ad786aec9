package main

import (
	"math"

	"voxelsiege.ai/internal/protocol"
	"voxelsiege.ai/internal/sim/mathx"
)

type pilot struct {
	orbit  float64
	period float64 // seconds per revolution
}

// next derives the INPUT for one FRAME: the ship sits on a circle in the XZ
// plane and the camera trails it outward along the same radial.
func (p *pilot) next(f *protocol.FrameMsg) protocol.InputMsg {
	angle := 0.0
	if p.period > 0 {
		angle = 2 * math.Pi * f.Elapsed / p.period
	}
	ship := mathx.V(math.Cos(angle)*p.orbit, 0, math.Sin(angle)*p.orbit)
	cam := ship.Scale(1.15)

	in := protocol.InputMsg{
		Type:            protocol.TypeInput,
		ProtocolVersion: protocol.Version,
		OrbitRadius:     p.orbit,
	}
	sa, ca := ship.Array(), cam.Array()
	in.Player, in.Camera = &sa, &ca

	target, ok := nearestTarget(ship, f)
	if !ok {
		return in
	}
	aim := target.Sub(cam).Normalize()
	if aim.IsZero() {
		return in
	}
	aa := aim.Array()
	in.Aim = &aa
	in.FireHeld = !f.Player.Overheated
	return in
}

// nearestTarget picks the closest active, vulnerable turret; with none left
// it falls back to the core while it is exposed.
func nearestTarget(from mathx.Vec3, f *protocol.FrameMsg) (mathx.Vec3, bool) {
	best, bestD := mathx.Vec3{}, math.Inf(1)
	for _, t := range f.Turrets {
		if !t.Active || t.Invulnerable {
			continue
		}
		pos := mathx.FromArray(t.Pos)
		if d := pos.Sub(from).LenSq(); d < bestD {
			best, bestD = pos, d
		}
	}
	if !math.IsInf(bestD, 1) {
		return best, true
	}
	if f.Core.Present && !f.Core.Shield {
		return mathx.Vec3{}, true
	}
	return mathx.Vec3{}, false
}
