package world

import (
	"voxelsiege.ai/internal/protocol"
	"voxelsiege.ai/internal/sim/mathx"
)

// Event kinds emitted by the session.
const (
	EventFired             = "FIRED"
	EventExplosion         = "EXPLOSION"
	EventDeflect           = "DEFLECT"
	EventFieldChanged      = "FIELD_CHANGED"
	EventTurretPlaced      = "TURRET_PLACED"
	EventTurretDamaged     = "TURRET_DAMAGED"
	EventTurretRemoved     = "TURRET_REMOVED"
	EventCoreShieldRemoved = "CORE_SHIELD_REMOVED"
	EventInnerRevealed     = "INNER_TURRETS_REVEALED"
	EventCoreActivated     = "CORE_ACTIVATED"
	EventPickup            = "PICKUP"
	EventPlayerDamaged     = "PLAYER_DAMAGED"
	EventPlayerHidden      = "PLAYER_HIDDEN"
	EventOutcome           = "OUTCOME"
	EventReleaseInput      = "RELEASE_INPUT"
	EventPhase             = "PHASE"
	EventTool              = "TOOL"
)

const (
	OutcomeVictory = "VICTORY"
	OutcomeDefeat  = "DEFEAT"
)

// Event is a presentation-facing notification. The simulation never reads
// events back; renderers, loggers and the transport consume them.
type Event = protocol.Event

const (
	colorDeflect     = "#0088ff"
	colorTurretHit   = "#ff0000"
	colorAreaDamage  = "#ff6600"
	colorOuterDeath  = "#aaaaaa"
	colorInnerDeath  = "#ffaa00"
	colorHostileHit  = "#883322"
	colorDebrisHit   = "#ff4444"
	colorCore        = "#ffffff"
	colorPlayerDeath = "#ff0000"
)

func (s *Session) emit(e Event) {
	e.Tick = s.tick
	s.events = append(s.events, e)
}

func posOf(p mathx.Vec3) *[3]float64 {
	a := p.Array()
	return &a
}

func (s *Session) explosion(p mathx.Vec3, color string, count int) {
	s.emit(Event{Kind: EventExplosion, Pos: posOf(p), Color: color, Count: count})
}

func (s *Session) deflect(p mathx.Vec3) {
	s.emit(Event{Kind: EventDeflect, Pos: posOf(p), Color: colorDeflect, Count: s.cfg.Projectile.DeflectParticles})
}

// FieldChanged implements voxel.FieldListener; changes are coalesced per
// channel and flushed once at the end of the tick.
func (s *Session) FieldChanged(channel int) {
	if channel < 0 || channel >= len(s.dirty) {
		return
	}
	s.dirty[channel] = true
}

func (s *Session) flushFieldChanges() {
	for ch, d := range s.dirty {
		if !d {
			continue
		}
		s.dirty[ch] = false
		c := ch
		s.emit(Event{Kind: EventFieldChanged, Channel: &c})
	}
}
