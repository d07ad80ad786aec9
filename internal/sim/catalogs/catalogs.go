package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Catalogs struct {
	Materials MaterialCatalog
	Weapons   WeaponCatalog
	Turrets   TurretCatalog
}

// MaterialCatalog is ordered: index i is density channel i.
type MaterialCatalog struct {
	Defs   []MaterialDef
	Index  map[string]int
	Digest string
}

type MaterialDef struct {
	ID             string  `json:"id"`
	Hardness       float64 `json:"hardness"`
	DebrisCountMul float64 `json:"debris_count_mul"`
	Precious       bool    `json:"precious"`
	MassSpeed      float64 `json:"mass_speed"`
	DamageMul      float64 `json:"damage_mul"`
	Reward         string  `json:"reward,omitempty"` // ENERGY, HEAL or SPEED
	Color          string  `json:"color,omitempty"`
}

type WeaponCatalog struct {
	Defs   []WeaponDef
	Index  map[string]int
	Digest string
}

type WeaponDef struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Radius        float64 `json:"radius"`
	Strength      float64 `json:"strength"`
	DirectDamage  float64 `json:"direct_damage"`
	AreaDamage    float64 `json:"area_damage,omitempty"`
	AreaRadius    float64 `json:"area_radius,omitempty"`
	ParticleCount int     `json:"particle_count"`
	DebrisCount   int     `json:"debris_count"`
	DebrisMinSize float64 `json:"debris_min_size"`
	DebrisMaxSize float64 `json:"debris_max_size"`
	Size          float64 `json:"size"`
	Speed         float64 `json:"speed"`
	LifeTicks     int     `json:"life_ticks"`
	Heavy         bool    `json:"heavy"`
	Color         string  `json:"color,omitempty"`
}

type TurretCatalog struct {
	Defs   []TurretDef
	Index  map[string]int
	Digest string
}

type TurretDef struct {
	ID           string  `json:"id"`
	Shots        int     `json:"shots"`
	Spread       float64 `json:"spread"`
	Speed        float64 `json:"speed"`
	CooldownMin  float64 `json:"cooldown_min"`
	CooldownMax  float64 `json:"cooldown_max"`
	Shielded     bool    `json:"shielded"`
	Homing       bool    `json:"homing"`
	BulletDamage float64 `json:"bullet_damage"`
	Color        string  `json:"color,omitempty"`
}

// Material returns the definition for a channel, or a neutral stone-like def when out of range.
func (c *Catalogs) Material(ch int) MaterialDef {
	if c == nil || ch < 0 || ch >= len(c.Materials.Defs) {
		return MaterialDef{ID: "UNKNOWN", Hardness: 1, DebrisCountMul: 1, MassSpeed: 1, DamageMul: 1}
	}
	return c.Materials.Defs[ch]
}

func (c *Catalogs) Weapon(id string) (WeaponDef, bool) {
	i, ok := c.Weapons.Index[id]
	if !ok {
		return WeaponDef{}, false
	}
	return c.Weapons.Defs[i], true
}

func (c *Catalogs) Turret(id string) (TurretDef, bool) {
	i, ok := c.Turrets.Index[id]
	if !ok {
		return TurretDef{}, false
	}
	return c.Turrets.Defs[i], true
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadMaterials(filepath.Join(configDir, "materials.json"), &c.Materials); err != nil {
		return nil, err
	}
	if err := loadWeapons(filepath.Join(configDir, "weapons.json"), &c.Weapons); err != nil {
		return nil, err
	}
	if err := loadTurrets(filepath.Join(configDir, "turrets.json"), &c.Turrets); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadMaterials(path string, out *MaterialCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []MaterialDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("materials.json: %w", err)
	}
	if err := buildMaterials(defs, out); err != nil {
		return fmt.Errorf("materials.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func buildMaterials(defs []MaterialDef, out *MaterialCatalog) error {
	if len(defs) == 0 {
		return fmt.Errorf("no materials")
	}
	out.Defs = defs
	out.Index = make(map[string]int, len(defs))
	for i, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty id at %d", i)
		}
		if _, dup := out.Index[d.ID]; dup {
			return fmt.Errorf("duplicate id %s", d.ID)
		}
		// Hardness is an edit-rate divisor.
		if d.Hardness <= 0 {
			return fmt.Errorf("%s: hardness must be > 0", d.ID)
		}
		if d.DebrisCountMul < 0 || d.MassSpeed < 0 || d.DamageMul < 0 {
			return fmt.Errorf("%s: negative multiplier", d.ID)
		}
		switch d.Reward {
		case "", "ENERGY", "HEAL", "SPEED":
		default:
			return fmt.Errorf("%s: unknown reward %q", d.ID, d.Reward)
		}
		if d.Precious && d.Reward == "" {
			return fmt.Errorf("%s: precious material needs a reward", d.ID)
		}
		out.Index[d.ID] = i
	}
	return nil
}

func loadWeapons(path string, out *WeaponCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []WeaponDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("weapons.json: %w", err)
	}
	if err := buildWeapons(defs, out); err != nil {
		return fmt.Errorf("weapons.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func buildWeapons(defs []WeaponDef, out *WeaponCatalog) error {
	if len(defs) == 0 {
		return fmt.Errorf("no weapons")
	}
	out.Defs = defs
	out.Index = make(map[string]int, len(defs))
	for i, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty id at %d", i)
		}
		if _, dup := out.Index[d.ID]; dup {
			return fmt.Errorf("duplicate id %s", d.ID)
		}
		if d.Speed <= 0 || d.LifeTicks <= 0 {
			return fmt.Errorf("%s: speed and life_ticks must be > 0", d.ID)
		}
		if d.DebrisMaxSize < d.DebrisMinSize {
			return fmt.Errorf("%s: debris_max_size < debris_min_size", d.ID)
		}
		if d.AreaDamage > 0 && d.AreaRadius <= 0 {
			return fmt.Errorf("%s: area_damage needs area_radius", d.ID)
		}
		out.Index[d.ID] = i
	}
	return nil
}

func loadTurrets(path string, out *TurretCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []TurretDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("turrets.json: %w", err)
	}
	if err := buildTurrets(defs, out); err != nil {
		return fmt.Errorf("turrets.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func buildTurrets(defs []TurretDef, out *TurretCatalog) error {
	if len(defs) == 0 {
		return fmt.Errorf("no turrets")
	}
	out.Defs = defs
	out.Index = make(map[string]int, len(defs))
	for i, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty id at %d", i)
		}
		if _, dup := out.Index[d.ID]; dup {
			return fmt.Errorf("duplicate id %s", d.ID)
		}
		if d.Shots <= 0 {
			return fmt.Errorf("%s: shots must be > 0", d.ID)
		}
		if d.CooldownMax < d.CooldownMin || d.CooldownMin < 0 {
			return fmt.Errorf("%s: bad cooldown range", d.ID)
		}
		out.Index[d.ID] = i
	}
	return nil
}
