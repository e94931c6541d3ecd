// Package scripts runs user post-update hooks after each scheduler pass.
package scripts

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/metrics"
	"github.com/lox/solarwall/internal/models"
)

const DefaultTimeout = 30 * time.Second

// Args describe the pass that just ran.
type Args struct {
	DaySegment2 int // 0 day, 1 night
	DaySegment4 int // 0 dawn, 1 day, 2 dusk, 3 night
	ImagePath   string
}

// Env returns args as environment variables.
func (a Args) Env() []string {
	return []string{
		"SOLARWALL_DAY_SEGMENT2=" + strconv.Itoa(a.DaySegment2),
		"SOLARWALL_DAY_SEGMENT4=" + strconv.Itoa(a.DaySegment4),
		"SOLARWALL_IMAGE_PATH=" + a.ImagePath,
	}
}

type SettingsSource interface {
	GetSettings() (models.Settings, error)
}

// Runner executes every executable file in the configured scripts
// directory. Scripts run in the background; their failures are logged only.
type Runner struct {
	settings SettingsSource
	timeout  time.Duration
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

func NewRunner(settings SettingsSource, logger zerolog.Logger) *Runner {
	return &Runner{
		settings: settings,
		timeout:  DefaultTimeout,
		logger:   logger.With().Str("component", "scripts").Logger(),
	}
}

func (r *Runner) SetTimeout(d time.Duration) {
	r.timeout = d
}

func (r *Runner) Run(args Args) {
	settings, err := r.settings.GetSettings()
	if err != nil {
		r.logger.Warn().Err(err).Msg("load settings")
		return
	}
	if settings.ScriptsDir == "" {
		return
	}

	paths, err := Discover(settings.ScriptsDir)
	if err != nil {
		r.logger.Warn().Err(err).Str("dir", settings.ScriptsDir).Msg("list scripts")
		return
	}

	env := append(os.Environ(), args.Env()...)
	for _, path := range paths {
		r.wg.Add(1)
		go func(path string) {
			defer r.wg.Done()
			r.runOne(path, env)
		}(path)
	}
}

func (r *Runner) runOne(path string, env []string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path)
	cmd.Env = env
	cmd.Dir = filepath.Dir(path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		metrics.HookRunsTotal.WithLabelValues("error").Inc()
		r.logger.Warn().Err(err).Str("script", path).Bytes("output", out).Msg("script failed")
		return
	}
	metrics.HookRunsTotal.WithLabelValues("success").Inc()
	r.logger.Debug().Str("script", path).Msg("script finished")
}

// Wait blocks until every started script has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Discover returns the executable regular files in dir, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() && e.Type()&os.ModeSymlink == 0 {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}
