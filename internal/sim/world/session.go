// Package world is the combat simulation: one Session owns the density
// field, every entity pool and the encounter phase, and advances them
// synchronously once per tick.
package world

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/mathx"
	"voxelsiege.ai/internal/sim/pool"
	"voxelsiege.ai/internal/sim/surface"
	"voxelsiege.ai/internal/sim/tuning"
	"voxelsiege.ai/internal/sim/voxel"
)

type Config struct {
	ID     string
	Seed   int64
	Tuning tuning.Tuning
	Logger *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "SIEGE"
	}
	if c.Tuning.TickRateHz == 0 {
		c.Tuning = tuning.Defaults()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

type Stats struct {
	ShotsFired  int     `json:"shots_fired"`
	Kills       int     `json:"kills"`
	Pickups     int     `json:"pickups"`
	DamageTaken float64 `json:"damage_taken"`
	Destroyed   float64 `json:"destroyed"`
}

// Session is the combat-session aggregate. It is not safe for concurrent
// use; World serializes access to it.
type Session struct {
	id    string
	runID string
	cfg   tuning.Tuning
	cats  *catalogs.Catalogs
	log   *zap.Logger
	rng   *rand.Rand

	field *voxel.Set
	surf  surface.Query

	tick    uint64
	now     time.Time
	elapsed float64
	phase   Phase

	player      Player
	aim         mathx.Vec3
	orbitRadius float64
	governor    WeaponGovernor
	rewards     RewardAccumulator

	rewardMaterial map[RewardKind]int

	turrets     *pool.Pool[Turret]
	projectiles *pool.Pool[Projectile]
	hostiles    *pool.Pool[HostileProjectile]
	debris      *pool.Pool[Debris]

	tools       []Tool
	tool        int
	brushRadius float64
	strength    float64

	coreCenter    mathx.Vec3
	corePresent   bool
	coreShieldUp  bool
	coreActivated bool
	coreGlow      float64
	innerRevealed bool

	// baseline is the level captured when combat started.
	baseline *snapshot.LevelV1

	stats  Stats
	events []Event
	dirty  []bool
}

func NewSession(cfg Config, cats *catalogs.Catalogs) (*Session, error) {
	cfg.applyDefaults()
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	if cats == nil {
		cats = catalogs.Defaults()
	}
	if len(cats.Materials.Defs) == 0 || len(cats.Weapons.Defs) == 0 {
		return nil, fmt.Errorf("catalogs: need at least one material and one weapon")
	}

	t := cfg.Tuning
	hardness := make([]float64, len(cats.Materials.Defs))
	for i, m := range cats.Materials.Defs {
		hardness[i] = m.Hardness
	}
	field := voxel.NewSet(voxel.Params{
		Res:           t.Field.Resolution,
		WorldSize:     t.Field.WorldSize,
		Isolation:     t.Field.Isolation,
		Clamp:         t.Field.Clamp,
		EditRateScale: t.Field.EditRateScale,
	}, hardness)

	s := &Session{
		id:             cfg.ID,
		cfg:            t,
		cats:           cats,
		log:            cfg.Logger.With(zap.String("session", cfg.ID)),
		rng:            rand.New(rand.NewSource(cfg.Seed)),
		field:          field,
		surf:           surface.NewMarcher(field),
		now:            time.Unix(0, 0),
		phase:          PhaseSetup,
		orbitRadius:    t.Player.OrbitRadius,
		governor:       NewWeaponGovernor(t.Governor, t.Player.MaxEnergy, t.Player.StartEnergy),
		rewards:        NewRewardAccumulator(t.Rewards.AccumulatorThreshold, len(hardness)),
		rewardMaterial: map[RewardKind]int{},
		turrets:        pool.New[Turret](64),
		projectiles:    pool.New[Projectile](256),
		hostiles:       pool.New[HostileProjectile](512),
		debris:         pool.New[Debris](1024),
		tools:          buildTools(cats),
		brushRadius:    t.Editor.BrushRadiusDefault,
		strength:       t.Editor.StrengthDefault,
		corePresent:    true,
		coreShieldUp:   true,
		dirty:          make([]bool, len(hardness)),
	}
	for i := len(cats.Materials.Defs) - 1; i >= 0; i-- {
		if k := RewardKind(cats.Materials.Defs[i].Reward); k != RewardNone {
			s.rewardMaterial[k] = i
		}
	}
	s.player = Player{
		Pos:    mathx.V(0, 0, t.Player.OrbitRadius),
		Camera: mathx.V(0, 0, t.Player.OrbitRadius+5),
		Health: t.Player.MaxHealth,
	}
	s.aim = mathx.V(0, 0, -1)
	field.Reset()
	field.SetListener(s)
	s.syncCore()
	return s, nil
}

// SetSurface swaps the ray-cast collaborator. The replacement is told about
// the core if it models one.
func (s *Session) SetSurface(q surface.Query) {
	s.surf = q
	s.syncCore()
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) RunID() string                { return s.runID }
func (s *Session) Tick() uint64                 { return s.tick }
func (s *Session) Phase() Phase                 { return s.phase }
func (s *Session) Elapsed() float64             { return s.elapsed }
func (s *Session) Player() Player               { return s.player }
func (s *Session) Governor() WeaponGovernor     { return s.governor }
func (s *Session) Stats() Stats                 { return s.stats }
func (s *Session) Field() *voxel.Set            { return s.field }
func (s *Session) Catalogs() *catalogs.Catalogs { return s.cats }
func (s *Session) Tuning() tuning.Tuning        { return s.cfg }
func (s *Session) CorePresent() bool            { return s.corePresent }
func (s *Session) CoreShieldUp() bool           { return s.coreShieldUp }

// Pose is the last pose applied by Step.
func (s *Session) Pose() Pose {
	return Pose{Player: s.player.Pos, Camera: s.player.Camera, Aim: s.aim, OrbitRadius: s.orbitRadius}
}

func (s *Session) SpeedMultiplier() float64 {
	m := s.cfg.Player.SpeedTierMultipliers
	tier := max(0, min(s.player.SpeedTier, len(m)-1))
	return m[tier]
}

func (s *Session) Counts() (turrets, projectiles, hostiles, debris int) {
	return s.turrets.Len(), s.projectiles.Len(), s.hostiles.Len(), s.debris.Len()
}

// newRunID is a short id stamped on every combat run.
func newRunID() string { return uuid.NewString() }
