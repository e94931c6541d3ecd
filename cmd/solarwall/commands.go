package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/daysegment"
	"github.com/lox/solarwall/internal/desktop"
	"github.com/lox/solarwall/internal/models"
	"github.com/lox/solarwall/internal/scheduler"
	"github.com/lox/solarwall/internal/solar"
	"github.com/lox/solarwall/internal/store"
	"github.com/lox/solarwall/internal/theme"
)

type StatusCmd struct{}

func (c *StatusCmd) Run(g *Globals) error {
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

	settings, err := st.GetSettings()
	if err != nil {
		return err
	}

	provider := solar.NewProvider(st, loc, logger)
	now := time.Now().In(loc)
	data, err := provider.GetSolarData(now)
	if err != nil {
		return err
	}
	fmt.Println(solar.Summary(data))

	if !settings.LocationReady() {
		fmt.Println("Location: not configured")
		return nil
	}
	if settings.ThemeID == "" {
		fmt.Println("Theme: not selected")
		return nil
	}

	themes, err := g.loadThemes(zerolog.Nop())
	if err != nil {
		logger.Debug().Err(err).Msg("some themes failed to load")
	}

	engine := scheduler.New(st, provider, themes, desktop.DryRunApplier{Logger: zerolog.Nop()}, logger)
	engine.SetLocation(loc)
	if err := engine.RunScheduler(true); err != nil {
		return err
	}

	status := engine.Status()
	if status.LastRun.IsZero() {
		fmt.Printf("Theme: %s is not installed in %s\n", settings.ThemeID, g.ThemesDir)
		return nil
	}
	if status.ThemeID == models.NoTheme {
		fmt.Println("Theme: none (hooks only)")
	} else {
		fmt.Printf("Theme: %s\n", status.ThemeID)
	}
	fmt.Printf("Segment: %s (%s)\n", status.State.Segment, status.State.Quarter)
	if status.State.HasImage {
		fmt.Printf("Image: %d (%s)\n", status.State.ImageID, status.LastImagePath)
	}
	fmt.Printf("Next update: %s\n", status.NextUpdate.In(loc).Format(time.DateTime))
	return nil
}

type SettingsCmd struct {
	Show SettingsShowCmd `cmd:"" default:"1" help:"Print every setting."`
	Set  SettingsSetCmd  `cmd:"" help:"Change one setting."`
}

type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(g *Globals) error {
	st, err := openSettingsStore(g)
	if err != nil {
		return err
	}
	defer st.Close()

	settings, err := st.GetSettings()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, key := range store.SettingKeys() {
		value, _ := store.SettingValue(settings, key)
		fmt.Fprintf(w, "%s\t%s\n", key, value)
	}
	return w.Flush()
}

type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting key."`
	Value string `arg:"" help:"New value."`
}

func (c *SettingsSetCmd) Run(g *Globals) error {
	st, err := openSettingsStore(g)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Set(c.Key, c.Value); err != nil {
		if errors.Is(err, store.ErrUnknownSetting) {
			return fmt.Errorf("%w (known keys: %v)", err, store.SettingKeys())
		}
		return err
	}
	fmt.Printf("%s = %s\n", c.Key, c.Value)
	return nil
}

func openSettingsStore(g *Globals) (*store.Store, error) {
	if _, err := g.logger(); err != nil {
		return nil, err
	}
	loc, err := g.location()
	if err != nil {
		return nil, err
	}
	return g.openStore(loc)
}

type ThemesCmd struct {
	List     ThemesListCmd     `cmd:"" default:"1" help:"List installed themes."`
	Validate ThemesValidateCmd `cmd:"" help:"Check every theme descriptor and its image files."`
}

type ThemesListCmd struct{}

func (c *ThemesListCmd) Run(g *Globals) error {
	themes, err := g.loadThemes(zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tIMAGES")
	for _, t := range themes.List() {
		fmt.Fprintf(w, "%s\t%s\t%d\n", t.ID, t.Name(), imageCount(t))
	}
	return w.Flush()
}

type ThemesValidateCmd struct{}

func (c *ThemesValidateCmd) Run(g *Globals) error {
	logger, err := g.logger()
	if err != nil {
		return err
	}

	themes, loadErr := g.loadThemes(logger)
	var result *multierror.Error
	if loadErr != nil {
		result = multierror.Append(result, loadErr)
	}
	for _, t := range themes.List() {
		if err := theme.CheckFiles(t); err != nil {
			result = multierror.Append(result, fmt.Errorf("theme %s: %w", t.ID, err))
			continue
		}
		fmt.Printf("%s: ok\n", t.ID)
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	if len(themes.List()) == 0 {
		fmt.Printf("no themes in %s\n", g.ThemesDir)
	}
	return nil
}

func imageCount(t *theme.Theme) int {
	seen := make(map[int]bool)
	for _, seg := range daysegment.All() {
		for _, id := range t.Images(seg) {
			seen[id] = true
		}
	}
	return len(seen)
}
