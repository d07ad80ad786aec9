package world

import (
	"math"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/surface"
	"voxelsiege.ai/internal/sim/voxel"
)

type ToolKind uint8

const (
	ToolMaterial ToolKind = iota
	ToolTurret
	ToolWeapon
)

func (k ToolKind) String() string {
	switch k {
	case ToolMaterial:
		return "MATERIAL"
	case ToolTurret:
		return "TURRET"
	case ToolWeapon:
		return "WEAPON"
	default:
		return "UNKNOWN"
	}
}

type Tool struct {
	Kind    ToolKind
	ID      string
	Channel int // material tools only
}

// buildTools lists materials, then turret kinds, then weapons. Weapons must
// come last: combat cycling relies on it.
func buildTools(c *catalogs.Catalogs) []Tool {
	var out []Tool
	for i, m := range c.Materials.Defs {
		out = append(out, Tool{Kind: ToolMaterial, ID: m.ID, Channel: i})
	}
	for _, t := range c.Turrets.Defs {
		out = append(out, Tool{Kind: ToolTurret, ID: t.ID, Channel: voxel.NoChannel})
	}
	for _, w := range c.Weapons.Defs {
		out = append(out, Tool{Kind: ToolWeapon, ID: w.ID, Channel: voxel.NoChannel})
	}
	return out
}

func (s *Session) Tools() []Tool { return append([]Tool(nil), s.tools...) }

func (s *Session) CurrentTool() Tool { return s.tools[s.tool] }

func (s *Session) firstWeaponTool() int {
	for i, t := range s.tools {
		if t.Kind == ToolWeapon {
			return i
		}
	}
	return 0
}

// cycleTool moves the selection by steps, wrapping. In combat only weapons
// are selectable: stepping off the weapon block jumps to its first entry
// going forward or to the last tool going backward.
func (s *Session) cycleTool(steps int) {
	if steps == 0 {
		return
	}
	n := len(s.tools)
	dir := 1
	if steps < 0 {
		dir, steps = -1, -steps
	}
	for ; steps > 0; steps-- {
		next := (s.tool + dir + n) % n
		if s.phase.Combat() && s.tools[next].Kind != ToolWeapon {
			if dir > 0 {
				next = s.firstWeaponTool()
			} else {
				next = n - 1
			}
		}
		s.tool = next
	}
	s.emit(Event{Kind: EventTool, Label: s.tools[s.tool].ID})
}

func (s *Session) currentWeapon() (catalogs.WeaponDef, bool) {
	t := s.tools[s.tool]
	if t.Kind != ToolWeapon {
		return catalogs.WeaponDef{}, false
	}
	return s.cats.Weapon(t.ID)
}

// currentMaterial is the channel painted by untargeted additions.
func (s *Session) currentMaterial() int {
	if t := s.tools[s.tool]; t.Kind == ToolMaterial {
		return t.Channel
	}
	return 0
}

func (s *Session) Brush() (radius, strength float64) { return s.brushRadius, s.strength }

func (s *Session) adjustBrush(radiusSteps, strengthSteps int) {
	ec := s.cfg.Editor
	if radiusSteps != 0 {
		s.brushRadius = snap(mathx.Clamp(s.brushRadius+float64(radiusSteps)*ec.BrushRadiusStep, ec.BrushRadiusMin, ec.BrushRadiusMax), ec.BrushRadiusStep)
	}
	if strengthSteps != 0 {
		s.strength = snap(mathx.Clamp(s.strength+float64(strengthSteps)*ec.StrengthStep, ec.StrengthMin, ec.StrengthMax), ec.StrengthStep)
	}
}

// snap removes float drift from repeated step adjustments.
func snap(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// stepEditor applies edit-mode input: digging removes the dominant material
// ignoring hardness, filling paints the current material just in front of
// the surface, and placing drops the selected turret kind.
func (s *Session) stepEditor(in TickInput, dt float64) {
	s.cycleTool(in.ToolCycle)
	s.adjustBrush(in.BrushSteps, in.StrengthSteps)
	if !in.Dig && !in.Fill && !in.Place {
		return
	}

	aim := s.aim.Normalize()
	if aim.IsZero() {
		return
	}
	hit, ok := s.surf.CastRay(s.player.Camera, aim, s.cfg.Projectile.AimDistance, surface.MaskAll)
	if !ok {
		return
	}
	tool := s.CurrentTool()

	if in.Place && tool.Kind == ToolTurret {
		if _, err := s.PlaceTurret(hit.Point, hit.Normal, tool.ID); err != nil {
			s.log.Warn("place turret", zap.Error(err))
		}
	}
	if in.Dig && tool.Kind == ToolMaterial {
		s.field.ApplyEdit(voxel.EditOperation{
			Center:         hit.Point,
			Radius:         s.brushRadius,
			Strength:       -s.strength,
			Dt:             dt,
			Channel:        s.field.DominantMaterialAt(hit.Point),
			IgnoreHardness: true,
		}, s.currentMaterial())
	}
	if in.Fill {
		s.field.ApplyEdit(voxel.EditOperation{
			Center:         hit.Point.Sub(aim.Scale(s.cfg.Editor.FillOffset)),
			Radius:         s.brushRadius,
			Strength:       s.strength,
			Dt:             dt,
			Channel:        voxel.NoChannel,
			IgnoreHardness: true,
		}, s.currentMaterial())
	}
}
