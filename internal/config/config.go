package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/engine"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/service"
)

// Server is the process configuration read from the environment. A .env
// file in the working directory is loaded first when present.
type Server struct {
	Address     string `env:"DUEL_ADDRESS" envDefault:":8080"`
	DBDriver    string `env:"DUEL_DB_DRIVER" envDefault:"sqlite"`
	DBDSN       string `env:"DUEL_DB_DSN" envDefault:"./data/duel.db"`
	CatalogPath string `env:"DUEL_CATALOG" envDefault:"./configs/items.yaml"`

	RedisAddr     string        `env:"DUEL_REDIS_ADDR"`
	RedisPassword string        `env:"DUEL_REDIS_PASSWORD"`
	SnapshotTTL   time.Duration `env:"DUEL_SNAPSHOT_TTL" envDefault:"10m"`

	JWTSecret string `env:"DUEL_JWT_SECRET,required"`

	ChoiceTimeout     time.Duration `env:"DUEL_CHOICE_TIMEOUT" envDefault:"40s"`
	SubPromptTimeout  time.Duration `env:"DUEL_SUBPROMPT_TIMEOUT" envDefault:"25s"`
	LimbPromptTimeout time.Duration `env:"DUEL_LIMB_TIMEOUT" envDefault:"20s"`
	MaxTurns          int           `env:"DUEL_MAX_TURNS" envDefault:"20"`
	LootCap           int           `env:"DUEL_LOOT_CAP" envDefault:"5"`
	LootWindow        time.Duration `env:"DUEL_LOOT_WINDOW" envDefault:"60s"`
	OrphanGrace       time.Duration `env:"DUEL_ORPHAN_GRACE" envDefault:"10m"`
	SweepInterval     time.Duration `env:"DUEL_SWEEP_INTERVAL" envDefault:"1m"`

	BaseBackpackSlots int `env:"DUEL_BACKPACK_SLOTS" envDefault:"15"`
	HealthMax         int `env:"DUEL_HEALTH_MAX" envDefault:"100"`

	FleeChance      float64 `env:"DUEL_FLEE_CHANCE" envDefault:"0.10"`
	BrokenArmChance float64 `env:"DUEL_BROKEN_ARM_CHANCE" envDefault:"0.20"`
	BurningDamage   int     `env:"DUEL_BURNING_DAMAGE" envDefault:"4"`
	BurningTurns    int     `env:"DUEL_BURNING_TURNS" envDefault:"3"`
}

// Load parses the environment into a Server and validates it.
func Load() (*Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Server) validate() error {
	var problems []string
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("DUEL_DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver))
	}
	if c.MaxTurns < 1 {
		problems = append(problems, "DUEL_MAX_TURNS must be positive")
	}
	if c.LootCap < 0 {
		problems = append(problems, "DUEL_LOOT_CAP must not be negative")
	}
	if c.BaseBackpackSlots < 1 {
		problems = append(problems, "DUEL_BACKPACK_SLOTS must be positive")
	}
	if c.HealthMax < 1 {
		problems = append(problems, "DUEL_HEALTH_MAX must be positive")
	}
	for name, d := range map[string]time.Duration{
		"DUEL_CHOICE_TIMEOUT":    c.ChoiceTimeout,
		"DUEL_SUBPROMPT_TIMEOUT": c.SubPromptTimeout,
		"DUEL_LIMB_TIMEOUT":      c.LimbPromptTimeout,
		"DUEL_LOOT_WINDOW":       c.LootWindow,
		"DUEL_SWEEP_INTERVAL":    c.SweepInterval,
	} {
		if d <= 0 {
			problems = append(problems, name+" must be positive")
		}
	}
	if c.FleeChance < 0 || c.FleeChance > 1 || c.BrokenArmChance < 0 || c.BrokenArmChance > 1 {
		problems = append(problems, "chances must be between 0 and 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Settings maps the configuration onto the duel manager settings.
func (c *Server) Settings() service.Settings {
	s := service.DefaultSettings()
	s.ChoiceTimeout = c.ChoiceTimeout
	s.SubPromptTimeout = c.SubPromptTimeout
	s.LimbPromptTimeout = c.LimbPromptTimeout
	s.MaxTurns = c.MaxTurns
	s.LootCap = c.LootCap
	s.LootWindow = c.LootWindow
	s.OrphanGrace = c.OrphanGrace
	s.Rules = engine.Rules{
		FleeChance:      c.FleeChance,
		BrokenArmChance: c.BrokenArmChance,
		BurningDamage:   c.BurningDamage,
		BurningTurns:    c.BurningTurns,
	}
	return s
}
