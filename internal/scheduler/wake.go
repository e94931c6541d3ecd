package scheduler

import (
	"context"
	"time"

	"github.com/lox/solarwall/internal/metrics"
)

// WatchdogInterval is how often missed deadlines and deferred wakes are
// checked for.
const WatchdogInterval = time.Minute

// clockJumpThreshold is the disagreement between wall and monotonic time
// treated as a clock change or a resume from suspend.
const clockJumpThreshold = 2 * time.Second

// WakeSource identifies what triggered a wake.
type WakeSource int

const (
	WakeStartup WakeSource = iota
	WakeTimer
	WakeWatchdog
	WakeResume
	WakeClockChange
	WakeManual
)

func (w WakeSource) String() string {
	switch w {
	case WakeStartup:
		return "startup"
	case WakeTimer:
		return "timer"
	case WakeWatchdog:
		return "watchdog"
	case WakeResume:
		return "resume"
	case WakeClockChange:
		return "clock_change"
	case WakeManual:
		return "manual"
	default:
		return "unknown"
	}
}

// refreshesLocation reports whether a wake from w should also refresh the
// automatic location. Resume and clock changes skip it since the network
// may not be up yet.
func (w WakeSource) refreshesLocation() bool {
	switch w {
	case WakeStartup, WakeTimer, WakeWatchdog:
		return true
	default:
		return false
	}
}

// Notify queues a wake for Run. It never blocks; a wake arriving while the
// queue is full is dropped since a pass is already queued.
func (e *Engine) Notify(src WakeSource) {
	select {
	case e.wake <- src:
	default:
		e.logger.Debug().Stringer("source", src).Msg("wake queue full, dropping")
	}
}

// HandleWakeEvent runs the wake sequence: a fullscreen check that defers the
// wake, an optional background location refresh, then a scheduler pass.
func (e *Engine) HandleWakeEvent(refreshLocation bool) error {
	settings, err := e.settings.GetSettings()
	if err != nil {
		return err
	}

	if settings.FullScreenPause && e.fullscreen != nil && e.fullscreen.Fullscreen(e.context()) {
		e.mu.Lock()
		e.pending = true
		e.mu.Unlock()
		e.logger.Debug().Msg("fullscreen application active, deferring wake")
		return nil
	}

	e.mu.Lock()
	e.pending = false
	e.mu.Unlock()

	if refreshLocation && settings.UseAutoLocation && !settings.DontUseLocation && e.locator != nil {
		e.locator.RefreshAsync(e.context())
	}

	return e.RunScheduler(false)
}

func (e *Engine) context() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

// Run owns the wake loop until ctx is done. It runs an initial pass, then
// handles queued wakes and a watchdog that replays missed deadlines,
// deferred wakes and clock jumps.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	e.logger.Info().Dur("watchdog", e.watchdog).Msg("scheduler starting")
	e.handle(WakeStartup)

	ticker := e.clock.Ticker(e.watchdog)
	defer ticker.Stop()
	defer func() {
		e.mu.Lock()
		e.stopTimer()
		e.mu.Unlock()
	}()

	prev := e.clock.Now()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("scheduler shutting down")
			return
		case src := <-e.wake:
			e.handle(src)
		case <-ticker.C:
			now := e.clock.Now()
			skew := clockSkew(prev, now)
			prev = now
			if skew > clockJumpThreshold {
				e.logger.Info().Dur("skew", skew).Msg("clock jump detected")
				e.handle(WakeClockChange)
				continue
			}
			if e.watchdogDue(now) {
				e.handle(WakeWatchdog)
			}
		}
	}
}

func (e *Engine) handle(src WakeSource) {
	metrics.WakeEventsTotal.WithLabelValues(src.String()).Inc()
	var err error
	if src == WakeStartup {
		err = e.startup()
	} else {
		err = e.HandleWakeEvent(src.refreshesLocation())
	}
	if err != nil {
		e.logger.Error().Err(err).Stringer("source", src).Msg("scheduler pass failed")
	}
}

// startup refreshes the location when configured and forces the wallpaper
// to be applied even if it already shows the selected image.
func (e *Engine) startup() error {
	settings, err := e.settings.GetSettings()
	if err != nil {
		return err
	}
	if settings.UseAutoLocation && !settings.DontUseLocation && e.locator != nil {
		e.locator.RefreshAsync(e.context())
	}
	return e.RunScheduler(true)
}

// watchdogDue reports whether a deadline was missed, a deferred wake is
// waiting or the settings changed since the last pass.
func (e *Engine) watchdogDue(now time.Time) bool {
	e.mu.Lock()
	pending, next := e.pending, e.nextUpdate
	last, have := e.lastSettings, e.haveSettings
	e.mu.Unlock()

	if pending || (!next.IsZero() && !now.Before(next)) {
		return true
	}
	settings, err := e.settings.GetSettings()
	if err != nil {
		return false
	}
	return !have || settings != last
}

// clockSkew returns how far wall-clock elapsed time between prev and now
// disagrees with monotonic elapsed time.
func clockSkew(prev, now time.Time) time.Duration {
	mono := now.Sub(prev)
	wall := now.Round(0).Sub(prev.Round(0))
	d := wall - mono
	if d < 0 {
		d = -d
	}
	return d
}
