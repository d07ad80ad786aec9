package protocol

// FRAME (server -> client): the presentation state after a tick.
type FrameMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	Phase           string  `json:"phase"`
	Elapsed         float64 `json:"elapsed"`

	Player PlayerState `json:"player"`
	Tool   ToolRef     `json:"tool"`
	Brush  BrushState  `json:"brush"`
	Core   CoreState   `json:"core"`

	Turrets     []TurretState     `json:"turrets"`
	Projectiles []ProjectileState `json:"projectiles"`
	Hostiles    []ProjectileState `json:"hostiles"`
	Debris      []DebrisState     `json:"debris"`
	Events      []Event           `json:"events,omitempty"`
}

type PlayerState struct {
	Pos        [3]float64 `json:"pos"`
	Health     float64    `json:"health"`
	MaxHealth  float64    `json:"max_health"`
	Energy     float64    `json:"energy"`
	Heat       float64    `json:"heat"`
	Overheated bool       `json:"overheated"`
	SpeedTier  int        `json:"speed_tier"`
	SpeedMul   float64    `json:"speed_mul"`
	Hidden     bool       `json:"hidden,omitempty"`
}

type BrushState struct {
	Radius   float64 `json:"radius"`
	Strength float64 `json:"strength"`
}

// CoreState describes the core sphere. ShieldRadius sizes the shield bubble
// while it is up; the bubble is drawn only, shots collide with the core.
type CoreState struct {
	Present      bool       `json:"present"`
	Shield       bool       `json:"shield"`
	Active       bool       `json:"active"`
	Color        [3]float64 `json:"color"`
	Radius       float64    `json:"radius"`
	ShieldRadius float64    `json:"shield_radius,omitempty"`
}

type TurretState struct {
	ID           uint64     `json:"id,string"`
	Kind         string     `json:"kind"`
	Pos          [3]float64 `json:"pos"`
	Normal       [3]float64 `json:"normal"`
	Inner        bool       `json:"inner"`
	Health       float64    `json:"health"`
	MaxHealth    float64    `json:"max_health"`
	Dormant      bool       `json:"dormant,omitempty"`
	Active       bool       `json:"active"`
	Invulnerable bool       `json:"invulnerable,omitempty"`
}

type ProjectileState struct {
	ID      uint64     `json:"id,string"`
	Kind    string     `json:"kind"`
	Pos     [3]float64 `json:"pos"`
	Opacity float64    `json:"opacity"`
}

type DebrisState struct {
	ID       uint64     `json:"id,string"`
	Pos      [3]float64 `json:"pos"`
	Rot      [3]float64 `json:"rot"`
	Size     float64    `json:"size"`
	Material int        `json:"material"`
	Reward   string     `json:"reward,omitempty"`
	Opacity  float64    `json:"opacity"`
}

// Event is a one-shot presentation notification (explosions, phase changes,
// pickups). Only the fields relevant to Kind are set.
type Event struct {
	Tick    uint64      `json:"tick"`
	Kind    string      `json:"kind"`
	Pos     *[3]float64 `json:"pos,omitempty"`
	Color   string      `json:"color,omitempty"`
	Count   int         `json:"count,omitempty"`
	Amount  float64     `json:"amount,omitempty"`
	Target  uint64      `json:"target,string,omitempty"`
	Channel *int        `json:"channel,omitempty"`
	Label   string      `json:"label,omitempty"`
}
