package world

import (
	"time"

	"voxelsiege.ai/internal/protocol"
	"voxelsiege.ai/internal/sim/mathx"
)

// Pose is where the presentation layer put the ship and camera this frame.
type Pose struct {
	Player      mathx.Vec3
	Camera      mathx.Vec3
	Aim         mathx.Vec3 // unit direction of the center-screen ray
	OrbitRadius float64
}

// TickInput is everything the simulation reads from the outside in one tick.
// Held flags are level-triggered; Pressed, Place and the step counters are
// edges that apply once.
type TickInput struct {
	Now  time.Time
	Dt   float64 // seconds; 0 means one tick at the configured rate
	Pose *Pose   // nil keeps the previous pose

	FireHeld    bool
	FirePressed bool
	Dig         bool
	Fill        bool
	Place       bool

	ToolCycle     int
	BrushSteps    int
	StrengthSteps int
}

// Merge folds a later input into in: pose and held flags take the newest
// value, edges accumulate.
func (in *TickInput) Merge(next TickInput) {
	if next.Pose != nil {
		p := *next.Pose
		in.Pose = &p
	}
	if !next.Now.IsZero() {
		in.Now = next.Now
	}
	in.FireHeld = next.FireHeld
	in.Dig = next.Dig
	in.Fill = next.Fill
	in.FirePressed = in.FirePressed || next.FirePressed
	in.Place = in.Place || next.Place
	in.ToolCycle += next.ToolCycle
	in.BrushSteps += next.BrushSteps
	in.StrengthSteps += next.StrengthSteps
}

// ClearEdges drops the one-shot parts after a tick consumed them.
func (in *TickInput) ClearEdges() {
	in.FirePressed = false
	in.Place = false
	in.ToolCycle = 0
	in.BrushSteps = 0
	in.StrengthSteps = 0
}

// InputFromMsg converts a wire INPUT message. Missing vectors keep the
// previous pose component.
func InputFromMsg(m protocol.InputMsg, prev Pose) TickInput {
	in := TickInput{
		FireHeld:      m.FireHeld,
		FirePressed:   m.FirePressed,
		Dig:           m.Dig,
		Fill:          m.Fill,
		Place:         m.Place,
		ToolCycle:     m.ToolCycle,
		BrushSteps:    m.BrushSteps,
		StrengthSteps: m.StrengthSteps,
	}
	if m.Player == nil && m.Camera == nil && m.Aim == nil && m.OrbitRadius == 0 {
		return in
	}
	p := prev
	if m.Player != nil {
		p.Player = mathx.FromArray(*m.Player)
	}
	if m.Camera != nil {
		p.Camera = mathx.FromArray(*m.Camera)
	}
	if m.Aim != nil {
		p.Aim = mathx.FromArray(*m.Aim)
	}
	if m.OrbitRadius > 0 {
		p.OrbitRadius = m.OrbitRadius
	}
	in.Pose = &p
	return in
}
