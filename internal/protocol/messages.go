package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// Observers receive frames but their INPUT is ignored.
	Observer bool `json:"observer,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	RunID           string         `json:"run_id,omitempty"`
	Phase           string         `json:"phase"`
	Field           FieldParams    `json:"field"`
	TickRateHz      int            `json:"tick_rate_hz"`
	SpeedTiers      []float64      `json:"speed_tiers"`
	Tools           []ToolRef      `json:"tools"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type FieldParams struct {
	Resolution int      `json:"resolution"`
	WorldSize  float64  `json:"world_size"`
	Isolation  float64  `json:"isolation"`
	Materials  []string `json:"materials"`
}

type ToolRef struct {
	Kind string `json:"kind"` // MATERIAL, TURRET, WEAPON
	ID   string `json:"id"`
}

type CatalogDigests struct {
	Materials string `json:"materials"`
	Weapons   string `json:"weapons"`
	Turrets   string `json:"turrets"`
}

// INPUT (client -> server). Held flags are level-triggered; the *Pressed
// flags and the step counters are edges accumulated until the next tick.
type InputMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq,omitempty"`

	Player      *[3]float64 `json:"player,omitempty"`
	Camera      *[3]float64 `json:"camera,omitempty"`
	Aim         *[3]float64 `json:"aim,omitempty"`
	OrbitRadius float64     `json:"orbit_radius,omitempty"`

	FireHeld    bool `json:"fire_held,omitempty"`
	FirePressed bool `json:"fire_pressed,omitempty"`
	Dig         bool `json:"dig,omitempty"`
	Fill        bool `json:"fill,omitempty"`
	Place       bool `json:"place,omitempty"`

	ToolCycle     int `json:"tool_cycle,omitempty"`
	BrushSteps    int `json:"brush_steps,omitempty"`
	StrengthSteps int `json:"strength_steps,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
