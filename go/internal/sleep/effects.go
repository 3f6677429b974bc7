package sleep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/nightskip/go/internal/config"
)

var (
	ErrUnknownParticle = errors.New("unknown particle type")
	ErrUnknownSound    = errors.New("unknown sound type")
)

// Particle is a recognised particle effect identifier.
type Particle string

// Sound is a recognised sound effect identifier.
type Sound string

const (
	DefaultParticle Particle = config.DefaultParticleType
	DefaultSound    Sound    = config.DefaultSoundType
)

var particles = map[Particle]struct{}{
	"PORTAL":           {},
	"REVERSE_PORTAL":   {},
	"END_ROD":          {},
	"ENCHANT":          {},
	"CLOUD":            {},
	"FLAME":            {},
	"SOUL_FIRE_FLAME":  {},
	"HEART":            {},
	"NOTE":             {},
	"WITCH":            {},
	"GLOW":             {},
	"WAX_ON":           {},
	"WAX_OFF":          {},
	"SNOWFLAKE":        {},
	"CHERRY_LEAVES":    {},
	"TOTEM_OF_UNDYING": {},
	"DRAGON_BREATH":    {},
	"SMOKE":            {},
}

var sounds = map[Sound]struct{}{
	"BLOCK_PORTAL_AMBIENT":         {},
	"BLOCK_PORTAL_TRIGGER":         {},
	"BLOCK_BEACON_AMBIENT":         {},
	"BLOCK_AMETHYST_BLOCK_CHIME":   {},
	"BLOCK_NOTE_BLOCK_CHIME":       {},
	"BLOCK_NOTE_BLOCK_BELL":        {},
	"ENTITY_PLAYER_LEVELUP":        {},
	"ENTITY_EXPERIENCE_ORB_PICKUP": {},
	"ENTITY_ENDERMAN_TELEPORT":     {},
	"AMBIENT_CAVE":                 {},
	"MUSIC_DISC_CAT":               {},
	"ITEM_TOTEM_USE":               {},
}

// ParseParticle resolves a particle identifier, case-insensitively.
func ParseParticle(name string) (Particle, error) {
	p := Particle(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := particles[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownParticle, name)
	}
	return p, nil
}

// ParseSound resolves a sound identifier, case-insensitively.
func ParseSound(name string) (Sound, error) {
	s := Sound(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := sounds[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSound, name)
	}
	return s, nil
}
