package world

import (
	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/mathx"
)

type Phase uint8

const (
	PhaseSetup Phase = iota
	PhaseOuter
	PhaseInner
	PhaseCoreActivating
	PhaseVictory
	PhaseDefeat
)

var phaseNames = [...]string{"SETUP", "OUTER", "INNER", "CORE_ACTIVATING", "VICTORY", "DEFEAT"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "UNKNOWN"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Combat reports whether the phase belongs to a running (or finished) combat session.
func (p Phase) Combat() bool { return p != PhaseSetup }

func (p Phase) Terminal() bool { return p == PhaseVictory || p == PhaseDefeat }

type RewardKind string

const (
	RewardNone   RewardKind = ""
	RewardEnergy RewardKind = "ENERGY"
	RewardHeal   RewardKind = "HEAL"
	RewardSpeed  RewardKind = "SPEED"
)

type Player struct {
	Pos       mathx.Vec3 `json:"pos"`
	Camera    mathx.Vec3 `json:"camera"`
	Health    float64    `json:"health"`
	SpeedTier int        `json:"speed_tier"`
	Hidden    bool       `json:"hidden,omitempty"`
}

type Turret struct {
	Kind   string
	def    catalogs.TurretDef
	Anchor mathx.Vec3
	Pos    mathx.Vec3
	Normal mathx.Vec3

	FirePoint mathx.Vec3
	Inner     bool
	Health    float64
	MaxHealth float64
	Cooldown  float64

	Dormant      bool
	Active       bool
	Invulnerable bool
}

func (t *Turret) Shielded() bool { return t.def.Shielded }
func (t *Turret) Alive() bool    { return t.Health > 0 }

// Interactive turrets can be hit and can fire.
func (t *Turret) Interactive() bool { return !t.Dormant && t.Alive() }

type Projectile struct {
	Pos    mathx.Vec3
	Dir    mathx.Vec3
	Speed  float64
	Life   int
	Weapon catalogs.WeaponDef
}

type HostileProjectile struct {
	Pos       mathx.Vec3
	Vel       mathx.Vec3
	Kind      string
	Speed     float64
	Damage    float64
	Homing    bool
	FromInner bool
	Fading    bool
	FadeLife  float64
}

type Debris struct {
	Pos  mathx.Vec3
	Vel  mathx.Vec3
	Spin mathx.Vec3
	Rot  mathx.Vec3

	Age       float64
	Life      float64
	Size      float64
	Material  int
	Reward    RewardKind
	DamageMul float64
	Fading    bool
}
