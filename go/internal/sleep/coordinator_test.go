package sleep

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/nightskip/go/internal/config"
	"github.com/mcdev12/nightskip/go/internal/scheduler"
)

func TestNewCoordinatorRequiresCollaborators(t *testing.T) {
	host := &fakeHost{}
	messenger := &fakeMessenger{}
	sched := scheduler.New(clockwork.NewFakeClock())

	cases := []struct {
		name      string
		host      Host
		messenger Messenger
		sched     Scheduler
		want      string
	}{
		{name: "host", messenger: messenger, sched: sched, want: "host"},
		{name: "messenger", host: host, sched: sched, want: "messenger"},
		{name: "scheduler", host: host, messenger: messenger, want: "scheduler"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCoordinator(config.Default(), tc.host, tc.messenger, tc.sched)
			if !errors.Is(err, ErrMissingCollaborator) {
				t.Fatalf("err = %v, want ErrMissingCollaborator", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}

func TestPercentageQuorumStartsSkip(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = config.ModePercentage
	cfg.Percentage = 50
	h := newHarness(t, cfg, 4, newWorld("world", 13000))

	h.coord.HandleBedEnter(newParticipant("alex"))
	if st := h.coord.Status(); st.Driver != DriverIdle || st.Required != 2 {
		t.Fatalf("status after one sleeper = %+v", st)
	}

	h.coord.HandleBedEnter(newParticipant("sam"))
	st := h.coord.Status()
	if st.Driver != DriverRunning {
		t.Fatalf("driver = %v, want running", st.Driver)
	}
	if st.Gate != GateLocked || st.CanSkip {
		t.Fatalf("gate = %v canSkip=%v, want locked", st.Gate, st.CanSkip)
	}
}

func TestNoSkipDuringDay(t *testing.T) {
	h := newHarness(t, fixedConfig(1), 1, newWorld("world", 12000))

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(5)

	if st := h.coord.Status(); st.Driver != DriverIdle {
		t.Fatalf("driver = %v, want idle", st.Driver)
	}
	if !h.coord.CanSkip() {
		t.Fatal("gate should still permit")
	}
}

func TestNonNormalWorldsIgnored(t *testing.T) {
	nether := newWorld("world_nether", 18000)
	nether.env = EnvironmentNether
	overworld := newWorld("world", 6000)
	h := newHarness(t, fixedConfig(1), 1, nether, overworld)

	h.coord.HandleBedEnter(newParticipant("alex"))

	if st := h.coord.Status(); st.Driver != DriverIdle {
		t.Fatal("nether time must not count as night")
	}
}

func TestSkipCompletesAtMorning(t *testing.T) {
	world := newWorld("world", 22000)
	h := newHarness(t, fixedConfig(1), 1, world)
	p := newParticipant("alex")
	bed := Location{World: "world", X: 1, Y: 70, Z: 2}
	p.bed = &bed

	h.coord.HandleBedEnter(p)
	h.tick(8)
	if len(h.observer.results) != 0 {
		t.Fatal("skip finished too early")
	}
	h.tick(1)

	if len(h.observer.results) != 1 {
		t.Fatalf("results = %d, want 1", len(h.observer.results))
	}
	res := h.observer.results[0]
	if res.Forced || res.Ticks != 9 {
		t.Fatalf("result = %+v, want natural after 9 ticks", res)
	}
	if len(res.Sleepers) != 1 || res.Sleepers[0].ID != p.ID() {
		t.Fatalf("sleepers = %+v", res.Sleepers)
	}
	if world.time != TargetTime || world.storm {
		t.Fatalf("world time=%d storm=%v, want dawn and clear", world.time, world.storm)
	}
	if len(h.messenger.broadcasts) != 1 || !strings.Contains(h.messenger.broadcasts[0], "night has been skipped") {
		t.Fatalf("broadcasts = %v", h.messenger.broadcasts)
	}

	st := h.coord.Status()
	if st.Sleeping != 0 || st.Driver != DriverIdle {
		t.Fatalf("status after completion = %+v", st)
	}
	if st.Gate != GateLocked {
		t.Fatal("gate should stay locked until the reset window")
	}

	want := bed.Add(0, 1, 0)
	if got := world.particles[0].at; got != want {
		t.Fatalf("particle anchor = %+v, want bed spawn %+v", got, want)
	}
	if world.particles[0].count != 5 {
		t.Fatalf("particle count = %d, want 5", world.particles[0].count)
	}

	// Only the gate checker remains scheduled.
	if h.sched.Pending() != 1 {
		t.Fatalf("pending tasks = %d, want 1", h.sched.Pending())
	}

	world.time = 13200
	h.tick(GateCheckInterval)
	if !h.coord.CanSkip() {
		t.Fatal("gate did not reopen the next night")
	}
}

func TestSkipWrapsAroundMidnight(t *testing.T) {
	world := newWorld("world", 23990)
	h := newHarness(t, fixedConfig(1), 1, world)

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(1)

	if len(h.observer.results) != 1 {
		t.Fatal("expected skip to complete after wrapping past midnight")
	}
	if world.time != TargetTime {
		t.Fatalf("time = %d, want %d", world.time, TargetTime)
	}
}

func TestDriverNeverExceedsMaxTicks(t *testing.T) {
	world := newWorld("world", 13000)
	world.frozen = true
	h := newHarness(t, fixedConfig(1), 1, world)

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(MaxTicks * 3)

	if len(h.observer.results) != 1 {
		t.Fatalf("results = %d, want 1", len(h.observer.results))
	}
	res := h.observer.results[0]
	if !res.Forced || res.Ticks != MaxTicks {
		t.Fatalf("result = %+v, want forced after %d ticks", res, MaxTicks)
	}
	if len(world.particles) != MaxTicks {
		t.Fatalf("driver fired %d times, want %d", len(world.particles), MaxTicks)
	}
	if len(world.sounds) != MaxTicks/SoundInterval+1 {
		t.Fatalf("sounds = %d, want %d", len(world.sounds), MaxTicks/SoundInterval+1)
	}
	if world.storm {
		t.Fatal("storm should be cleared on forced completion")
	}
	if h.coord.Status().Sleeping != 0 {
		t.Fatal("registry should be cleared on forced completion")
	}
	if !h.coord.gateCheckerArmed() {
		t.Fatal("tick cap path must re-arm the gate checker")
	}
}

func TestUnknownParticleFallsBackOnce(t *testing.T) {
	cfg := fixedConfig(1)
	cfg.Effects.ParticleType = "FOO"
	world := newWorld("world", 13000)
	world.frozen = true
	h := newHarness(t, cfg, 1, world)

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(10)

	if n := strings.Count(h.logs.String(), "invalid particle type"); n != 1 {
		t.Fatalf("warnings = %d, want 1\n%s", n, h.logs.String())
	}
	if len(world.particles) != 10 {
		t.Fatalf("particles = %d, want 10", len(world.particles))
	}
	for _, call := range world.particles {
		if call.particle != DefaultParticle {
			t.Fatalf("particle = %q, want %q", call.particle, DefaultParticle)
		}
	}
}

func TestUnknownSoundFallsBackOnce(t *testing.T) {
	cfg := fixedConfig(1)
	cfg.Effects.SoundType = "NOT_A_SOUND"
	world := newWorld("world", 13000)
	world.frozen = true
	h := newHarness(t, cfg, 1, world)

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(SoundInterval*2 + 1)

	if n := strings.Count(h.logs.String(), "invalid sound type"); n != 1 {
		t.Fatalf("warnings = %d, want 1", n)
	}
	if len(world.sounds) != 3 {
		t.Fatalf("sounds = %d, want 3", len(world.sounds))
	}
	for _, s := range world.sounds {
		if s != DefaultSound {
			t.Fatalf("sound = %q, want %q", s, DefaultSound)
		}
	}
}

func TestEffectsDisabled(t *testing.T) {
	cfg := fixedConfig(1)
	cfg.Effects.ParticlesEnabled = false
	cfg.Effects.SoundEnabled = false
	world := newWorld("world", 13000)
	h := newHarness(t, cfg, 1, world)

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(3)

	if len(world.particles) != 0 || len(world.sounds) != 0 {
		t.Fatalf("particles=%d sounds=%d, want none", len(world.particles), len(world.sounds))
	}
}

func TestLastSleeperLeavingStopsSkip(t *testing.T) {
	world := newWorld("world", 13000)
	h := newHarness(t, fixedConfig(1), 1, world)
	p := newParticipant("alex")

	if !h.coord.HandleBedEnter(p) {
		t.Fatal("bed entry should be accepted")
	}
	h.tick(3)
	timeBefore := world.time

	h.coord.HandleBedLeave(p)

	st := h.coord.Status()
	if st.Driver != DriverIdle || st.Sleeping != 0 {
		t.Fatalf("status = %+v, want idle and empty", st)
	}
	if h.coord.progressActive() {
		t.Fatal("progress notifier should be stopped")
	}
	if st.Gate != GateLocked {
		t.Fatal("gate should be unaffected by an aborted skip")
	}

	h.tick(5)
	if world.time != timeBefore {
		t.Fatalf("time advanced after stop: %d -> %d", timeBefore, world.time)
	}
	if len(h.observer.results) != 0 {
		t.Fatal("aborted skip must not report completion")
	}
}

func TestBedEnterBlockedWhileGateLocked(t *testing.T) {
	h := newHarness(t, fixedConfig(1), 2, newWorld("world", 13000))
	first := newParticipant("alex")
	second := newParticipant("sam")

	h.coord.HandleBedEnter(first)
	if h.coord.HandleBedEnter(second) {
		t.Fatal("second entry should be vetoed while the gate is locked")
	}

	msgs := h.messenger.sent[second.ID()]
	if len(msgs) != 1 || !strings.Contains(msgs[0], "already skipped") {
		t.Fatalf("denial messages = %v", msgs)
	}
	if h.coord.Status().Sleeping != 1 {
		t.Fatal("vetoed participant must not be registered")
	}
}

func TestRestrictionDisabledAlwaysPermits(t *testing.T) {
	cfg := fixedConfig(1)
	cfg.RestrictEveryOtherNight = false
	h := newHarness(t, cfg, 2, newWorld("world", 13000))

	h.coord.HandleBedEnter(newParticipant("alex"))
	if !h.coord.CanSkip() {
		t.Fatal("unrestricted coordinator must always permit")
	}
	if !h.coord.HandleBedEnter(newParticipant("sam")) {
		t.Fatal("second entry should be accepted")
	}

	st := h.coord.Status()
	if st.Driver != DriverRunning || st.Gate != GatePermitted {
		t.Fatalf("status = %+v", st)
	}
	// progress notifier and one driver run; the replaced run is gone.
	if h.sched.Pending() != 2 {
		t.Fatalf("pending tasks = %d, want 2", h.sched.Pending())
	}
}

func TestProgressNotifierBroadcasts(t *testing.T) {
	h := newHarness(t, fixedConfig(3), 4, newWorld("world", 6000))

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(1)
	if len(h.messenger.actionBars) != 1 {
		t.Fatalf("action bars = %d, want 1", len(h.messenger.actionBars))
	}
	if got, want := h.messenger.actionBars[0], "§eSleeping: §f1§7/§f3"; got != want {
		t.Fatalf("action bar = %q, want %q", got, want)
	}

	h.tick(ProgressInterval)
	if len(h.messenger.actionBars) != 2 {
		t.Fatalf("action bars = %d, want 2 after one interval", len(h.messenger.actionBars))
	}

	h.coord.HandleBedEnter(newParticipant("sam"))
	h.tick(1)
	if got := h.messenger.actionBars[len(h.messenger.actionBars)-1]; !strings.Contains(got, "2§7/§f3") {
		t.Fatalf("action bar = %q, want progress 2/3", got)
	}
}

func TestProgressCapsAtRequired(t *testing.T) {
	cfg := fixedConfig(1)
	cfg.RestrictEveryOtherNight = false
	h := newHarness(t, cfg, 3, newWorld("world", 6000))

	h.coord.HandleBedEnter(newParticipant("a"))
	h.coord.HandleBedEnter(newParticipant("b"))
	h.tick(1)

	if got := h.messenger.actionBars[len(h.messenger.actionBars)-1]; !strings.Contains(got, "1§7/§f1") {
		t.Fatalf("action bar = %q, want 1/1", got)
	}
}

func TestProgressDisabled(t *testing.T) {
	cfg := fixedConfig(2)
	cfg.ActionBarEnabled = false
	h := newHarness(t, cfg, 2, newWorld("world", 6000))

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(ProgressInterval * 2)

	if len(h.messenger.actionBars) != 0 {
		t.Fatalf("action bars = %v, want none", h.messenger.actionBars)
	}
}

func TestAnnounceDisabled(t *testing.T) {
	cfg := fixedConfig(1)
	cfg.AnnounceEnabled = false
	h := newHarness(t, cfg, 1, newWorld("world", 23500))

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(1)

	if len(h.observer.results) != 1 {
		t.Fatal("expected completion")
	}
	if len(h.messenger.broadcasts) != 0 {
		t.Fatalf("broadcasts = %v, want none", h.messenger.broadcasts)
	}
}

func TestHandleQuitRemovesSleeper(t *testing.T) {
	h := newHarness(t, fixedConfig(2), 2, newWorld("world", 13000))
	p := newParticipant("alex")

	h.coord.HandleBedEnter(p)
	h.coord.HandleQuit(p.ID())

	if h.coord.Status().Sleeping != 0 {
		t.Fatal("quit should remove the sleeper")
	}
}

func TestShutdownCancelsEverything(t *testing.T) {
	h := newHarness(t, fixedConfig(1), 1, newWorld("world", 13000))
	h.coord.Start()
	h.coord.HandleBedEnter(newParticipant("alex"))

	h.coord.Shutdown()

	if h.sched.Pending() != 0 {
		t.Fatalf("pending tasks = %d, want 0", h.sched.Pending())
	}
	if st := h.coord.Status(); st.Sleeping != 0 || st.Driver != DriverIdle {
		t.Fatalf("status = %+v", st)
	}
}

func TestConcurrentBedEvents(t *testing.T) {
	cfg := fixedConfig(50)
	h := newHarness(t, cfg, 100, newWorld("world", 13000))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				p := newParticipant("p")
				h.coord.HandleBedEnter(p)
				h.coord.HandleBedLeave(p)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		h.sched.Tick()
	}
	wg.Wait()

	if st := h.coord.Status(); st.Sleeping != 0 || st.Driver != DriverIdle {
		t.Fatalf("status = %+v", st)
	}
}

func TestReplacedTaskCallbacksAreIgnored(t *testing.T) {
	cfg := fixedConfig(1)
	cfg.RestrictEveryOtherNight = false
	world := newWorld("world", 13000)
	h := newHarness(t, cfg, 2, world)

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.coord.HandleBedEnter(newParticipant("sam"))

	drivers := h.sched.callbacks(1)
	notifiers := h.sched.callbacks(ProgressInterval)
	if len(drivers) != 2 || len(notifiers) != 2 {
		t.Fatalf("drivers = %d notifiers = %d, want 2 each", len(drivers), len(notifiers))
	}

	// A replaced task may still be invoked by a Tick that checked it just
	// before the replacement.
	drivers[0]()
	notifiers[0]()

	if world.time != 13000 {
		t.Fatalf("time = %d, want 13000", world.time)
	}
	if st := h.coord.Status(); st.DriverTick != 0 {
		t.Fatalf("driver tick = %d, want 0", st.DriverTick)
	}
	if len(h.messenger.actionBars) != 0 {
		t.Fatalf("action bars = %v, want none", h.messenger.actionBars)
	}

	h.tick(1)
	if world.time != 13000+TimeIncrement {
		t.Fatalf("time = %d, want %d", world.time, 13000+TimeIncrement)
	}
	if st := h.coord.Status(); st.DriverTick != 1 {
		t.Fatalf("driver tick = %d, want 1", st.DriverTick)
	}
}

func TestReplacedGateCheckerIsIgnored(t *testing.T) {
	world := newWorld("world", 23500)
	h := newHarness(t, fixedConfig(1), 1, world)
	h.coord.Start()

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(1)
	if len(h.observer.results) != 1 {
		t.Fatalf("results = %d, want 1", len(h.observer.results))
	}

	checkers := h.sched.callbacks(GateCheckInterval)
	if len(checkers) != 2 {
		t.Fatalf("checkers = %d, want 2", len(checkers))
	}

	world.time = 13500
	checkers[0]()
	if h.coord.CanSkip() {
		t.Fatal("replaced checker reopened the gate")
	}
	checkers[1]()
	if !h.coord.CanSkip() {
		t.Fatal("live checker did not reopen the gate")
	}
}

func TestEffectFailureDoesNotStopOtherWorlds(t *testing.T) {
	broken := newWorld("world", 13000)
	broken.effectErr = errors.New("chunk not loaded")
	healthy := newWorld("world_two", 13000)
	h := newHarness(t, fixedConfig(1), 1, broken, healthy)

	h.coord.HandleBedEnter(newParticipant("alex"))
	h.tick(1)

	for _, w := range []*fakeWorld{broken, healthy} {
		if w.time != 13000+TimeIncrement {
			t.Fatalf("%s time = %d, want %d", w.name, w.time, 13000+TimeIncrement)
		}
	}
	if len(healthy.particles) != 1 || len(healthy.sounds) != 1 {
		t.Fatalf("healthy world particles=%d sounds=%d, want 1 each", len(healthy.particles), len(healthy.sounds))
	}
	if n := strings.Count(h.logs.String(), "failed to play time skip effect"); n != 2 {
		t.Fatalf("effect warnings = %d, want 2\n%s", n, h.logs.String())
	}
	if st := h.coord.Status(); st.Driver != DriverRunning || st.DriverTick != 1 {
		t.Fatalf("status = %+v, want running at tick 1", st)
	}
}

func (c *Coordinator) gateCheckerArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate.checker.Active()
}

func (c *Coordinator) progressActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.Active()
}
