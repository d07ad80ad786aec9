package catalogs

import "encoding/json"

// Material channel ids used by the built-in level format.
const (
	MaterialStone   = "STONE"
	MaterialGold    = "GOLD"
	MaterialCrystal = "CRYSTAL"
	MaterialIron    = "IRON"
)

const (
	WeaponLight = "LIGHT"
	WeaponHeavy = "HEAVY"
)

const (
	TurretBasic    = "basic"
	TurretStandard = "standard"
	TurretTracking = "tracking"
)

func defaultMaterials() []MaterialDef {
	return []MaterialDef{
		{ID: MaterialStone, Hardness: 1.0, DebrisCountMul: 1.0, MassSpeed: 1.0, DamageMul: 1.0, Color: "#888888"},
		{ID: MaterialGold, Hardness: 0.1, DebrisCountMul: 0.5, Precious: true, MassSpeed: 0.8, DamageMul: 0.5, Reward: "ENERGY", Color: "#ffd700"},
		{ID: MaterialCrystal, Hardness: 0.1, DebrisCountMul: 0.5, Precious: true, MassSpeed: 1.0, DamageMul: 0.5, Reward: "HEAL", Color: "#00ffff"},
		{ID: MaterialIron, Hardness: 2.0, DebrisCountMul: 1.0, MassSpeed: 0.3, DamageMul: 3.0, Color: "#a0522d"},
	}
}

func defaultWeapons() []WeaponDef {
	return []WeaponDef{
		{
			ID: WeaponLight, Name: "Standard Shot",
			Radius: 3.0, Strength: 0.05, DirectDamage: 5,
			ParticleCount: 40, DebrisCount: 12, DebrisMinSize: 0.05, DebrisMaxSize: 0.1,
			Size: 0.1, Speed: 1.8, LifeTicks: 100, Color: "#00ffff",
		},
		{
			ID: WeaponHeavy, Name: "Heavy Shot",
			Radius: 4.5, Strength: 0.5, DirectDamage: 50, AreaDamage: 20, AreaRadius: 5.0,
			ParticleCount: 200, DebrisCount: 30, DebrisMinSize: 0.05, DebrisMaxSize: 0.1,
			Size: 0.1, Speed: 1.2, LifeTicks: 100, Heavy: true, Color: "#ff00ff",
		},
	}
}

func defaultTurrets() []TurretDef {
	return []TurretDef{
		{ID: TurretBasic, Shots: 1, Spread: 0.1, Speed: 0.05, CooldownMin: 20, CooldownMax: 50, BulletDamage: 20, Color: "#ffff00"},
		{ID: TurretStandard, Shots: 3, Spread: 0.25, Speed: 0.08, CooldownMin: 15, CooldownMax: 35, Shielded: true, BulletDamage: 20, Color: "#ff0000"},
		{ID: TurretTracking, Shots: 1, Spread: 0.3, Speed: 0.04, CooldownMin: 30, CooldownMax: 150, Homing: true, BulletDamage: 15, Color: "#0000ff"},
	}
}

// Defaults returns the built-in catalogs used when no config directory is given.
func Defaults() *Catalogs {
	var c Catalogs
	// Built-in tables always validate.
	_ = buildMaterials(defaultMaterials(), &c.Materials)
	_ = buildWeapons(defaultWeapons(), &c.Weapons)
	_ = buildTurrets(defaultTurrets(), &c.Turrets)
	c.Materials.Digest = digestOf(c.Materials.Defs)
	c.Weapons.Digest = digestOf(c.Weapons.Defs)
	c.Turrets.Digest = digestOf(c.Turrets.Defs)
	return &c
}

func digestOf(v any) string {
	b, _ := json.Marshal(v)
	return sha256Hex(b)
}
