package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/api"
	"github.com/lox/solarwall/internal/desktop"
	"github.com/lox/solarwall/internal/geo"
	"github.com/lox/solarwall/internal/scheduler"
	"github.com/lox/solarwall/internal/scripts"
	"github.com/lox/solarwall/internal/solar"
	"github.com/lox/solarwall/internal/store"
	"github.com/lox/solarwall/internal/theme"
)

type RunCmd struct {
	Port             string `default:"8080" env:"SOLARWALL_PORT" help:"HTTP server port."`
	NoServer         bool   `help:"Disable the HTTP status server."`
	DryRun           bool   `help:"Log wallpaper changes instead of applying them."`
	WallpaperCommand string `env:"SOLARWALL_WALLPAPER_COMMAND" help:"Command that sets the wallpaper; {path}, {quoted_path} and {uri} are substituted. Overrides the stored setting."`
}

func (c *RunCmd) Run(g *Globals) error {
	logger, err := g.logger()
	if err != nil {
		return err
	}
	loc, err := g.location()
	if err != nil {
		return err
	}

	st, err := g.openStore(loc)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info().Str("db", g.DB).Msg("database migrated")

	themes, err := g.loadThemes(logger)
	if err != nil {
		logger.Warn().Err(err).Msg("some themes failed to load")
	}

	applier, err := c.applier(st, logger)
	if err != nil {
		return err
	}

	provider := solar.NewProvider(st, loc, logger)
	hooks := scripts.NewRunner(st, logger)
	defer hooks.Wait()

	engine := scheduler.New(st, provider, themes, applier, logger)
	engine.SetLocation(loc)
	engine.SetHooks(hooks)
	engine.SetShuffler(theme.NewShuffler(themes, st, loc, logger))
	engine.SetLocator(geo.New(st, logger))
	engine.SetFullscreenDetector(desktop.NewFullscreenDetector(logger))
	engine.SetRecorder(st)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go reloadOnHangup(ctx, themes, engine, logger)

	if c.NoServer {
		engine.Run(ctx)
		return nil
	}

	go engine.Run(ctx)

	server := api.NewServer(engine, st, provider, c.Port, loc, logger)
	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("shutting down")
	return nil
}

func (c *RunCmd) applier(st *store.Store, logger zerolog.Logger) (scheduler.Applier, error) {
	if c.DryRun {
		return desktop.DryRunApplier{Logger: logger}, nil
	}
	command := c.WallpaperCommand
	if command == "" {
		settings, err := st.GetSettings()
		if err != nil {
			return nil, err
		}
		command = settings.WallpaperCommand
	}
	return desktop.NewCommandApplier(command, logger)
}

type themeReloader interface {
	LoadAll() error
}

type forcedRunner interface {
	RunScheduler(force bool) error
}

// reloadOnHangup calls reload on every SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, themes themeReloader, engine forcedRunner, logger zerolog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			reload(themes, engine, logger)
		}
	}
}

// reload rescans the themes directory and forces a pass so edits to the
// selected theme's images take effect even when the image path is unchanged.
func reload(themes themeReloader, engine forcedRunner, logger zerolog.Logger) {
	if err := themes.LoadAll(); err != nil {
		logger.Warn().Err(err).Msg("some themes failed to reload")
	}
	if err := engine.RunScheduler(true); err != nil {
		logger.Error().Err(err).Msg("scheduler pass after reload failed")
	}
}
