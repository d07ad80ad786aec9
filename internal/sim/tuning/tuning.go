package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz      int `yaml:"tick_rate_hz"`
	FrameEveryTicks int `yaml:"frame_every_ticks"`

	Field      Field      `yaml:"field"`
	Player     Player     `yaml:"player"`
	Governor   Governor   `yaml:"governor"`
	Rewards    Rewards    `yaml:"rewards"`
	Debris     Debris     `yaml:"debris"`
	Projectile Projectile `yaml:"projectile"`
	Turrets    Turrets    `yaml:"turrets"`
	Hostile    Hostile    `yaml:"hostile"`
	Phase      Phase      `yaml:"phase"`
	Editor     Editor     `yaml:"editor"`
}

type Field struct {
	Resolution    int     `yaml:"resolution"`
	WorldSize     float64 `yaml:"world_size"`
	Isolation     float64 `yaml:"isolation"`
	Clamp         float64 `yaml:"clamp"`
	EditRateScale float64 `yaml:"edit_rate_scale"`
	ImpactDt      float64 `yaml:"impact_dt"`
}

type Player struct {
	MaxHealth            float64   `yaml:"max_health"`
	MaxEnergy            float64   `yaml:"max_energy"`
	StartEnergy          float64   `yaml:"start_energy"`
	SpeedTierMultipliers []float64 `yaml:"speed_tier_multipliers"`
	OrbitRadius          float64   `yaml:"orbit_radius"`
}

type Governor struct {
	HeatPerShot     float64 `yaml:"heat_per_shot"`
	HeatMax         float64 `yaml:"heat_max"`
	CoolPerTick     float64 `yaml:"cool_per_tick"`
	FireIntervalMs  int     `yaml:"fire_interval_ms"`
	HeavyEnergyCost float64 `yaml:"heavy_energy_cost"`
}

type Rewards struct {
	AccumulatorThreshold float64 `yaml:"accumulator_threshold"`
	DebrisPerAmount      float64 `yaml:"debris_per_amount"`
	MaxDebrisPerImpact   int     `yaml:"max_debris_per_impact"`
	MinTurretDebris      int     `yaml:"min_turret_debris"`
	DirectionJitter      float64 `yaml:"direction_jitter"`
	BaseSpeed            float64 `yaml:"base_speed"`
	SpeedJitter          float64 `yaml:"speed_jitter"`
	AngularJitter        float64 `yaml:"angular_jitter"`
	Life                 float64 `yaml:"life"`
	RewardSizeMul        float64 `yaml:"reward_size_mul"`
}

type Debris struct {
	MagnetRadius         float64 `yaml:"magnet_radius"`
	MagnetPull           float64 `yaml:"magnet_pull"`
	MagnetDamping        float64 `yaml:"magnet_damping"`
	PickupRadius         float64 `yaml:"pickup_radius"`
	HealPerSize          float64 `yaml:"heal_per_size"`
	EnergyPerSize        float64 `yaml:"energy_per_size"`
	ContactRadius        float64 `yaml:"contact_radius"`
	ContactDamagePerSize float64 `yaml:"contact_damage_per_size"`
	ContactParticles     int     `yaml:"contact_particles"`
	MaxAge               float64 `yaml:"max_age"`
	AbsorbAge            float64 `yaml:"absorb_age"`
	AbsorbFactor         float64 `yaml:"absorb_factor"`
}

type Projectile struct {
	SpawnOffset        float64 `yaml:"spawn_offset"`
	HitSlack           float64 `yaml:"hit_slack"`
	AimDistance        float64 `yaml:"aim_distance"`
	DeflectParticles   int     `yaml:"deflect_particles"`
	TurretHitParticles int     `yaml:"turret_hit_particles"`
}

type Turrets struct {
	InnerRadius        float64 `yaml:"inner_radius"`
	InnerSize          float64 `yaml:"inner_size"`
	OuterSize          float64 `yaml:"outer_size"`
	FirePointOffset    float64 `yaml:"fire_point_offset"`
	InnerHealth        float64 `yaml:"inner_health"`
	OuterHealth        float64 `yaml:"outer_health"`
	ShieldRange        float64 `yaml:"shield_range"`
	InnerHitRadius     float64 `yaml:"inner_hit_radius"`
	OuterHitRadius     float64 `yaml:"outer_hit_radius"`
	DeathDebrisAmount  float64 `yaml:"death_debris_amount"`
	DeathDebrisMinSize float64 `yaml:"death_debris_min_size"`
	DeathDebrisMaxSize float64 `yaml:"death_debris_max_size"`
	DeathParticles     int     `yaml:"death_particles"`
}

type Hostile struct {
	HomingMinDistance float64 `yaml:"homing_min_distance"`
	HomingMinDot      float64 `yaml:"homing_min_dot"`
	HomingLerp        float64 `yaml:"homing_lerp"`
	RayLead           float64 `yaml:"ray_lead"`
	CarveRadius       float64 `yaml:"carve_radius"`
	CarveStrength     float64 `yaml:"carve_strength"`
	DebrisMinSize     float64 `yaml:"debris_min_size"`
	DebrisMaxSize     float64 `yaml:"debris_max_size"`
	ImpactParticles   int     `yaml:"impact_particles"`
	FadeMargin        float64 `yaml:"fade_margin"`
	FadeLife          float64 `yaml:"fade_life"`
	PlayerHitRadius   float64 `yaml:"player_hit_radius"`
}

type Phase struct {
	CoreRadius            float64 `yaml:"core_radius"`
	CoreShieldRadius      float64 `yaml:"core_shield_radius"`
	VictoryRadius         float64 `yaml:"victory_radius"`
	GlowRate              float64 `yaml:"glow_rate"`
	CoreActivateParticles int     `yaml:"core_activate_particles"`
	VictoryParticles      int     `yaml:"victory_particles"`
	DefeatParticles       int     `yaml:"defeat_particles"`
}

type Editor struct {
	BrushRadiusMin     float64 `yaml:"brush_radius_min"`
	BrushRadiusMax     float64 `yaml:"brush_radius_max"`
	BrushRadiusStep    float64 `yaml:"brush_radius_step"`
	BrushRadiusDefault float64 `yaml:"brush_radius_default"`
	StrengthMin        float64 `yaml:"strength_min"`
	StrengthMax        float64 `yaml:"strength_max"`
	StrengthStep       float64 `yaml:"strength_step"`
	StrengthDefault    float64 `yaml:"strength_default"`
	FillOffset         float64 `yaml:"fill_offset"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:      60,
		FrameEveryTicks: 2,
		Field: Field{
			Resolution:    60,
			WorldSize:     60,
			Isolation:     0.2,
			Clamp:         1.1,
			EditRateScale: 5,
			ImpactDt:      0.1,
		},
		Player: Player{
			MaxHealth:            100,
			MaxEnergy:            100,
			StartEnergy:          50,
			SpeedTierMultipliers: []float64{1.0, 1.3, 1.6, 2.0},
			OrbitRadius:          20,
		},
		Governor: Governor{
			HeatPerShot:     15,
			HeatMax:         100,
			CoolPerTick:     0.3,
			FireIntervalMs:  150,
			HeavyEnergyCost: 10,
		},
		Rewards: Rewards{
			AccumulatorThreshold: 0.5,
			DebrisPerAmount:      50,
			MaxDebrisPerImpact:   100,
			MinTurretDebris:      2,
			DirectionJitter:      0.075,
			BaseSpeed:            0.04,
			SpeedJitter:          0.08,
			AngularJitter:        0.02,
			Life:                 3.0,
			RewardSizeMul:        2.0,
		},
		Debris: Debris{
			MagnetRadius:         1.0,
			MagnetPull:           0.015,
			MagnetDamping:        0.95,
			PickupRadius:         0.3,
			HealPerSize:          30,
			EnergyPerSize:        50,
			ContactRadius:        0.1,
			ContactDamagePerSize: 150,
			ContactParticles:     10,
			MaxAge:               10,
			AbsorbAge:            0.5,
			AbsorbFactor:         1.5,
		},
		Projectile: Projectile{
			SpawnOffset:        1.0,
			HitSlack:           0.1,
			AimDistance:        1000,
			DeflectParticles:   5,
			TurretHitParticles: 15,
		},
		Turrets: Turrets{
			InnerRadius:        1.5,
			InnerSize:          0.25,
			OuterSize:          0.5,
			FirePointOffset:    0.4,
			InnerHealth:        300,
			OuterHealth:        100,
			ShieldRange:        25,
			InnerHitRadius:     0.6,
			OuterHitRadius:     0.8,
			DeathDebrisAmount:  0.2,
			DeathDebrisMinSize: 0.03,
			DeathDebrisMaxSize: 0.06,
			DeathParticles:     30,
		},
		Hostile: Hostile{
			HomingMinDistance: 5.0,
			HomingMinDot:      -0.2,
			HomingLerp:        0.02,
			RayLead:           0.3,
			CarveRadius:       1.5,
			CarveStrength:     5.0,
			DebrisMinSize:     0.02,
			DebrisMaxSize:     0.05,
			ImpactParticles:   10,
			FadeMargin:        20,
			FadeLife:          1.0,
			PlayerHitRadius:   0.2,
		},
		Phase: Phase{
			CoreRadius:            0.4,
			CoreShieldRadius:      1.3,
			VictoryRadius:         0.5,
			GlowRate:              3,
			CoreActivateParticles: 200,
			VictoryParticles:      300,
			DefeatParticles:       100,
		},
		Editor: Editor{
			BrushRadiusMin:     0.5,
			BrushRadiusMax:     12,
			BrushRadiusStep:    0.1,
			BrushRadiusDefault: 2.0,
			StrengthMin:        0.5,
			StrengthMax:        20,
			StrengthStep:       0.5,
			StrengthDefault:    5.0,
			FillOffset:         0.2,
		},
	}
}

// Load reads tuning.yaml over Defaults(); keys absent from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be > 0, got %d", t.TickRateHz))
	}
	if t.Field.Resolution < 2 {
		errs = append(errs, fmt.Errorf("field.resolution must be >= 2, got %d", t.Field.Resolution))
	}
	if t.Field.WorldSize <= 0 {
		errs = append(errs, errors.New("field.world_size must be > 0"))
	}
	if t.Field.Clamp <= t.Field.Isolation {
		errs = append(errs, errors.New("field.clamp must exceed field.isolation"))
	}
	if t.Rewards.AccumulatorThreshold <= 0 {
		errs = append(errs, errors.New("rewards.accumulator_threshold must be > 0"))
	}
	if t.Governor.HeatMax <= 0 {
		errs = append(errs, errors.New("governor.heat_max must be > 0"))
	}
	if len(t.Player.SpeedTierMultipliers) == 0 {
		errs = append(errs, errors.New("player.speed_tier_multipliers must not be empty"))
	}
	if t.Phase.CoreRadius <= 0 || t.Phase.CoreShieldRadius < t.Phase.CoreRadius {
		errs = append(errs, errors.New("phase.core_shield_radius must be >= phase.core_radius > 0"))
	}
	if t.Editor.BrushRadiusMin > t.Editor.BrushRadiusMax || t.Editor.StrengthMin > t.Editor.StrengthMax {
		errs = append(errs, errors.New("editor ranges inverted"))
	}
	return errors.Join(errs...)
}

// MaxSpeedTier is the highest reachable speed tier.
func (t Tuning) MaxSpeedTier() int { return len(t.Player.SpeedTierMultipliers) - 1 }
