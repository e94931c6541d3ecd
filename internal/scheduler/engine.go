// Package scheduler picks the wallpaper for the current position of the sun
// and keeps a single timer armed for the next instant the choice changes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/daysegment"
	"github.com/lox/solarwall/internal/metrics"
	"github.com/lox/solarwall/internal/models"
	"github.com/lox/solarwall/internal/scripts"
	"github.com/lox/solarwall/internal/solar"
	"github.com/lox/solarwall/internal/theme"
)

// ErrNoImages is returned when the active theme has no image in any
// segment.
var ErrNoImages = errors.New("theme has no images")

// timerTolerance is the granularity of OS timers. Shorter intervals are
// armed with the minimum positive delay.
const timerTolerance = 15600 * time.Microsecond

type SettingsStore interface {
	GetSettings() (models.Settings, error)
	SetDarkMode(enabled bool) error
}

type SolarSource interface {
	GetSolarData(date time.Time) (solar.Data, error)
}

type ThemeSource interface {
	Get(id string) (*theme.Theme, error)
}

type Applier interface {
	Apply(ctx context.Context, path string) error
}

type Hooks interface {
	Run(args scripts.Args)
}

type Shuffler interface {
	MaybeShuffle(now time.Time) (bool, error)
}

type LocationRefresher interface {
	RefreshAsync(ctx context.Context) bool
}

type FullscreenDetector interface {
	Fullscreen(ctx context.Context) bool
}

type Recorder interface {
	RecordWallpaperChange(c models.WallpaperChange) (int64, error)
}

type Engine struct {
	settings SettingsStore
	solar    SolarSource
	themes   ThemeSource
	applier  Applier
	logger   zerolog.Logger
	clock    clock.Clock
	loc      *time.Location

	hooks      Hooks
	shuffler   Shuffler
	locator    LocationRefresher
	fullscreen FullscreenDetector
	recorder   Recorder

	wake     chan WakeSource
	watchdog time.Duration

	mu            sync.Mutex
	ctx           context.Context
	timer         *clock.Timer
	nextUpdate    time.Time
	lastImagePath string
	state         State
	themeID       string
	lastRun       time.Time
	lastErr       error
	pending       bool
	lastSettings  models.Settings
	haveSettings  bool

	sunUp atomic.Bool
}

func New(settings SettingsStore, solarSource SolarSource, themes ThemeSource, applier Applier, logger zerolog.Logger) *Engine {
	return &Engine{
		settings: settings,
		solar:    solarSource,
		themes:   themes,
		applier:  applier,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		clock:    clock.New(),
		loc:      time.Local,
		wake:     make(chan WakeSource, 8),
		watchdog: WatchdogInterval,
		ctx:      context.Background(),
	}
}

func (e *Engine) SetClock(c clock.Clock) {
	e.clock = c
}

// SetLocation sets the zone that defines local days.
func (e *Engine) SetLocation(loc *time.Location) {
	e.loc = loc
}

func (e *Engine) SetHooks(h Hooks) {
	e.hooks = h
}

func (e *Engine) SetShuffler(s Shuffler) {
	e.shuffler = s
}

func (e *Engine) SetLocator(l LocationRefresher) {
	e.locator = l
}

func (e *Engine) SetFullscreenDetector(d FullscreenDetector) {
	e.fullscreen = d
}

// SetRecorder configures where applied wallpapers are recorded.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// IsSunUp reports whether the sun was up at the last completed pass.
func (e *Engine) IsSunUp() bool {
	return e.sunUp.Load()
}

var errNotReady = errors.New("not ready")

// RunScheduler recomputes the wallpaper from scratch and re-arms the timer.
// It is a no-op when location or theme settings are incomplete. force
// re-applies the wallpaper even when its path is unchanged.
func (e *Engine) RunScheduler(force bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runLocked(force)
}

func (e *Engine) runLocked(force bool) error {
	start := e.clock.Now()
	err := e.run(force)
	metrics.SchedulerRunDuration.Observe(e.clock.Since(start).Seconds())

	switch {
	case errors.Is(err, errNotReady):
		metrics.SchedulerRunsTotal.WithLabelValues("not_ready").Inc()
		e.logger.Debug().Msg("location or theme not ready")
		return nil
	case err != nil:
		metrics.SchedulerRunsTotal.WithLabelValues("error").Inc()
		e.lastErr = err
		return err
	}
	metrics.SchedulerRunsTotal.WithLabelValues("ok").Inc()
	e.lastErr = nil
	return nil
}

func (e *Engine) run(force bool) error {
	settings, err := e.settings.GetSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	e.lastSettings, e.haveSettings = settings, true
	if !settings.LocationReady() || settings.ThemeID == "" {
		return errNotReady
	}
	th, err := e.currentTheme(settings.ThemeID)
	if err != nil {
		return err
	}

	e.stopTimer()
	e.themeID = settings.ThemeID

	now := e.clock.Now().In(e.loc)
	e.lastRun = now
	data, err := e.solarData(startOfDay(now))
	if err != nil {
		return e.fail(now, err)
	}
	sunUp := data.SunUp(now)
	e.sunUp.Store(sunUp)
	if sunUp {
		metrics.SunUp.Set(1)
	} else {
		metrics.SunUp.Set(0)
	}

	if th != nil {
		if force {
			e.lastImagePath = ""
		}
		th = e.maybeShuffle(now, th)
	}

	state, err := e.selectImage(now, data, sunUp, settings.DarkMode, th)
	if err != nil {
		return e.fail(now, err)
	}

	var imageWake time.Time
	if th != nil {
		if err := e.setWallpaper(now, th, state, settings.DarkMode); err != nil {
			return e.fail(now, err)
		}
		imageWake = state.NextUpdate
	}

	if e.hooks != nil {
		args := scripts.Args{DaySegment2: state.DayNight, DaySegment4: int(state.Quarter)}
		if th != nil {
			args.ImagePath = e.lastImagePath
		}
		e.hooks.Run(args)
	}

	next, err := segmentWake(now, data, sunUp, e.solarData)
	if err != nil {
		return e.fail(now, err)
	}
	if !imageWake.IsZero() && imageWake.Before(next) {
		next = imageWake
	}
	if next.Before(now) {
		e.logger.Warn().Time("next", next).Msg("computed wake is in the past, deferring to watchdog")
		next = now.Add(e.watchdog)
	}

	e.state = state
	metrics.CurrentSegment.Set(float64(state.Segment.Index()))
	e.arm(now, next)

	e.logger.Debug().
		Stringer("segment", state.Segment).
		Int("image", state.ImageID).
		Bool("sun_up", sunUp).
		Time("next", next).
		Msg("scheduler pass complete")
	return nil
}

func (e *Engine) currentTheme(id string) (*theme.Theme, error) {
	if id == models.NoTheme {
		return nil, nil
	}
	th, err := e.themes.Get(id)
	if errors.Is(err, theme.ErrNotFound) {
		return nil, errNotReady
	}
	return th, err
}

func (e *Engine) maybeShuffle(now time.Time, th *theme.Theme) *theme.Theme {
	if e.shuffler == nil {
		return th
	}
	changed, err := e.shuffler.MaybeShuffle(now)
	if err != nil {
		e.logger.Warn().Err(err).Msg("theme shuffle failed")
		return th
	}
	if !changed {
		return th
	}
	settings, err := e.settings.GetSettings()
	if err != nil {
		e.logger.Warn().Err(err).Msg("reload settings after shuffle")
		return th
	}
	e.lastSettings = settings
	next, err := e.themes.Get(settings.ThemeID)
	if err != nil {
		e.logger.Warn().Err(err).Str("theme", settings.ThemeID).Msg("shuffled theme unavailable")
		return th
	}
	e.themeID = next.ID
	return next
}

func (e *Engine) solarData(date time.Time) (solar.Data, error) {
	return e.solar.GetSolarData(date)
}

// selectImage classifies now and picks the image inside the active window.
func (e *Engine) selectImage(now time.Time, data solar.Data, sunUp, dark bool, th *theme.Theme) (State, error) {
	seg, w, err := classify(now, data, e.solarData)
	if err != nil {
		return State{}, err
	}
	state := State{
		Segment:  seg,
		DayNight: daysegment.DayNight(sunUp),
		Quarter:  daysegment.QuarterOf(seg),
	}
	if th == nil {
		return state, nil
	}

	images := th.Images(seg)
	if dark {
		images = th.Images(daysegment.Night)
		if w, err = darkWindow(now, data, sunUp, e.solarData); err != nil {
			return State{}, err
		}
	}
	if len(images) == 0 {
		return State{}, fmt.Errorf("%w: %s", ErrNoImages, th.ID)
	}

	idx, next := interpolate(now, w, len(images))
	state.ImageID = images[idx]
	state.HasImage = true
	state.NextUpdate = next
	return state, nil
}

// setWallpaper applies the selected image unless it is already showing.
func (e *Engine) setWallpaper(now time.Time, th *theme.Theme, state State, dark bool) error {
	path := th.ImagePath(state.ImageID)
	if path == e.lastImagePath {
		return nil
	}
	if err := e.applier.Apply(e.ctx, path); err != nil {
		metrics.WallpaperApplyErrors.Inc()
		return fmt.Errorf("apply %s: %w", path, err)
	}
	e.lastImagePath = path
	metrics.WallpaperChangesTotal.WithLabelValues(th.ID).Inc()

	e.logger.Info().
		Str("theme", th.ID).
		Int("image", state.ImageID).
		Stringer("segment", state.Segment).
		Msg("wallpaper changed")

	if e.recorder != nil {
		_, err := e.recorder.RecordWallpaperChange(models.WallpaperChange{
			AppliedAt: now,
			ThemeID:   th.ID,
			ImageID:   state.ImageID,
			ImagePath: path,
			Segment:   state.Segment.String(),
			DarkMode:  dark,
		})
		if err != nil {
			e.logger.Warn().Err(err).Msg("record wallpaper change")
		}
	}
	return nil
}

// fail records a failed pass. Configuration errors leave no deadline so the
// watchdog does not retry them; anything else is retried on its next tick.
func (e *Engine) fail(now time.Time, err error) error {
	if errors.Is(err, solar.ErrInvalidConfig) || errors.Is(err, ErrNoImages) {
		e.nextUpdate = time.Time{}
		metrics.NextUpdateTimestamp.Set(0)
	} else {
		e.nextUpdate = now
	}
	return err
}

func (e *Engine) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// arm replaces any pending deadline with one at next.
func (e *Engine) arm(now, next time.Time) {
	d := next.Sub(now)
	if d < timerTolerance {
		d = time.Nanosecond
	}
	e.nextUpdate = next
	e.timer = e.clock.AfterFunc(d, func() { e.Notify(WakeTimer) })
	metrics.NextUpdateTimestamp.Set(float64(next.Unix()))
}

// ToggleDarkMode flips the dark mode setting and re-runs the scheduler. The
// flip and the pass happen under the engine lock so concurrent toggles are
// not lost.
func (e *Engine) ToggleDarkMode() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings, err := e.settings.GetSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := e.settings.SetDarkMode(!settings.DarkMode); err != nil {
		return fmt.Errorf("store dark mode: %w", err)
	}
	e.logger.Info().Bool("dark_mode", !settings.DarkMode).Msg("dark mode toggled")
	return e.runLocked(false)
}

// Status is a snapshot of the engine for display.
type Status struct {
	State         State
	ThemeID       string
	NextUpdate    time.Time
	LastImagePath string
	LastRun       time.Time
	LastError     error
	SunUp         bool
	Pending       bool
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:         e.state,
		ThemeID:       e.themeID,
		NextUpdate:    e.nextUpdate,
		LastImagePath: e.lastImagePath,
		LastRun:       e.lastRun,
		LastError:     e.lastErr,
		SunUp:         e.sunUp.Load(),
		Pending:       e.pending,
	}
}
