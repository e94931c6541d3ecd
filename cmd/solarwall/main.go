package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/solarwall/internal/logging"
	"github.com/lox/solarwall/internal/store"
	"github.com/lox/solarwall/internal/theme"
)

// Globals are shared by every command.
type Globals struct {
	EnvFile   kongdotenv.ENVFileConfig `name:"env-file" default:".env" help:"Path to a .env file with SOLARWALL_* variables."`
	DB        string                   `name:"db" default:"data/solarwall.db" env:"SOLARWALL_DB" help:"Path to SQLite database."`
	ThemesDir string                   `name:"themes-dir" default:"themes" env:"SOLARWALL_THEMES_DIR" help:"Directory containing one sub-directory per theme."`
	Timezone  string                   `name:"timezone" default:"Local" env:"SOLARWALL_TIMEZONE" help:"IANA zone that defines local days."`
	LogLevel  string                   `name:"log-level" default:"info" enum:"debug,info,warn,error" env:"SOLARWALL_LOG_LEVEL" help:"Log level."`
	LogFormat string                   `name:"log-format" default:"console" enum:"console,json" env:"SOLARWALL_LOG_FORMAT" help:"Log output format."`
}

type CLI struct {
	Globals

	Run      RunCmd      `cmd:"" default:"1" help:"Run the wallpaper scheduler and HTTP status server."`
	Status   StatusCmd   `cmd:"" help:"Print today's solar times and the current selection."`
	Settings SettingsCmd `cmd:"" help:"Show or change stored settings."`
	Themes   ThemesCmd   `cmd:"" help:"List or validate installed themes."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("solarwall"),
		kong.Description("Rotates desktop wallpapers with the position of the sun."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

func (g *Globals) logger() (zerolog.Logger, error) {
	return logging.Setup(g.LogLevel, g.LogFormat)
}

func (g *Globals) location() (*time.Location, error) {
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", g.Timezone, err)
	}
	return loc, nil
}

func (g *Globals) openStore(loc *time.Location) (*store.Store, error) {
	if dir := filepath.Dir(g.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return store.Open(g.DB, loc)
}

// loadThemes returns the catalog even when some themes fail to load.
func (g *Globals) loadThemes(logger zerolog.Logger) (*theme.Manager, error) {
	themes := theme.NewManager(g.ThemesDir, logger)
	return themes, themes.LoadAll()
}
