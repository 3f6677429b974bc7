package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects how the number of required sleepers is computed.
type Mode string

const (
	ModeFixed      Mode = "fixed"
	ModePercentage Mode = "percentage"
)

const (
	DefaultParticleType = "PORTAL"
	DefaultSoundType    = "BLOCK_PORTAL_AMBIENT"
)

// Snapshot is the immutable set of gameplay tunables. It is built once by
// Load or Parse and never mutated; reloading means building a new one.
type Snapshot struct {
	Mode                    Mode
	Percentage              float64
	FixedSleepers           int
	AnnounceEnabled         bool
	ActionBarEnabled        bool
	Effects                 EffectsConfig
	RestrictEveryOtherNight bool
	AutoUpdaterEnabled      bool
}

// EffectsConfig configures the ambient feedback played while time is skipped.
type EffectsConfig struct {
	ParticlesEnabled bool
	ParticleType     string
	ParticleCount    int
	SoundEnabled     bool
	SoundType        string
	SoundVolume      float64
	SoundPitch       float64
}

type fileConfig struct {
	SleepRequirement struct {
		Mode         string  `yaml:"mode"`
		Percentage   float64 `yaml:"percentage"`
		FixedPlayers int     `yaml:"fixed_players"`
	} `yaml:"sleep_requirement"`
	Announce struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"announce"`
	ActionBar struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"action_bar"`
	TimeSkipEffects struct {
		ParticlesEnabled bool    `yaml:"particles_enabled"`
		ParticleType     string  `yaml:"particle_type"`
		ParticleCount    int     `yaml:"particle_count"`
		SoundEnabled     bool    `yaml:"sound_enabled"`
		SoundType        string  `yaml:"sound_type"`
		SoundVolume      float64 `yaml:"sound_volume"`
		SoundPitch       float64 `yaml:"sound_pitch"`
	} `yaml:"time_skip_effects"`
	NightSkipRestriction struct {
		EveryOtherNight bool `yaml:"every_other_night"`
	} `yaml:"night_skip_restriction"`
	AutoUpdater struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"auto_updater"`
}

func defaultFileConfig() fileConfig {
	var fc fileConfig
	fc.SleepRequirement.Mode = string(ModeFixed)
	fc.SleepRequirement.Percentage = 50.0
	fc.SleepRequirement.FixedPlayers = 1
	fc.Announce.Enabled = true
	fc.ActionBar.Enabled = true
	fc.TimeSkipEffects.ParticlesEnabled = true
	fc.TimeSkipEffects.ParticleType = DefaultParticleType
	fc.TimeSkipEffects.ParticleCount = 5
	fc.TimeSkipEffects.SoundEnabled = true
	fc.TimeSkipEffects.SoundType = DefaultSoundType
	fc.TimeSkipEffects.SoundVolume = 0.5
	fc.TimeSkipEffects.SoundPitch = 1.0
	fc.NightSkipRestriction.EveryOtherNight = true
	fc.AutoUpdater.Enabled = true
	return fc
}

// Default returns the snapshot used when no config file is present.
func Default() Snapshot {
	return defaultFileConfig().snapshot()
}

// Load reads and parses a YAML config file.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a snapshot from YAML. Missing keys keep their defaults and
// every numeric field is clamped into range.
func Parse(data []byte) (Snapshot, error) {
	fc := defaultFileConfig()
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return fc.snapshot(), nil
}

func (fc fileConfig) snapshot() Snapshot {
	mode := Mode(strings.ToLower(strings.TrimSpace(fc.SleepRequirement.Mode)))
	if mode != ModePercentage {
		mode = ModeFixed
	}

	fx := fc.TimeSkipEffects
	return Snapshot{
		Mode:             mode,
		Percentage:       clamp(fc.SleepRequirement.Percentage, 1.0, 100.0),
		FixedSleepers:    max(1, fc.SleepRequirement.FixedPlayers),
		AnnounceEnabled:  fc.Announce.Enabled,
		ActionBarEnabled: fc.ActionBar.Enabled,
		Effects: EffectsConfig{
			ParticlesEnabled: fx.ParticlesEnabled,
			ParticleType:     identifier(fx.ParticleType, DefaultParticleType),
			ParticleCount:    max(1, fx.ParticleCount),
			SoundEnabled:     fx.SoundEnabled,
			SoundType:        identifier(fx.SoundType, DefaultSoundType),
			SoundVolume:      clamp(fx.SoundVolume, 0.0, 1.0),
			SoundPitch:       clamp(fx.SoundPitch, 0.5, 2.0),
		},
		RestrictEveryOtherNight: fc.NightSkipRestriction.EveryOtherNight,
		AutoUpdaterEnabled:      fc.AutoUpdater.Enabled,
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func identifier(v, fallback string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return fallback
	}
	return v
}
