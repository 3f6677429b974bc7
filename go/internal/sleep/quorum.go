package sleep

import (
	"math"

	"github.com/mcdev12/nightskip/go/internal/config"
)

// RequiredSleepers returns how many sleepers are needed to skip the night
// with the given number of online participants. The result is never below 1.
func RequiredSleepers(online int, cfg config.Snapshot) int {
	required := cfg.FixedSleepers
	if cfg.Mode == config.ModePercentage {
		required = int(math.Ceil(float64(online) * (cfg.Percentage / 100.0)))
	}
	return max(1, required)
}
