package sleep

import (
	"strconv"

	"github.com/mcdev12/nightskip/go/internal/config"
)

// ProgressInterval is the action bar refresh period in host ticks (one second).
const ProgressInterval = 20

// startProgress replaces any running progress notifier with a fresh one.
func (c *Coordinator) startProgress() {
	c.every(&c.progress, ProgressInterval, c.progressTick)
}

func (c *Coordinator) stopProgress() {
	if c.progress.Stop() {
		c.logger.Debug().Msg("progress notifier stopped")
	}
}

func (c *Coordinator) progressTick() {
	sleeping := c.registry.Len()
	if sleeping == 0 {
		c.stopProgress()
		return
	}

	needed := RequiredSleepers(c.host.OnlineCount(), c.cfg)
	current := min(sleeping, needed)

	msg, ok := c.msgs.Render(config.MsgSleepersNeeded, map[string]string{
		"progress": strconv.Itoa(current),
		"time":     strconv.Itoa(needed),
	})
	if !ok {
		return
	}
	c.messenger.ActionBar(msg)
}
