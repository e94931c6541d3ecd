package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/store"
)

func parse(t *testing.T, args ...string) (*kong.Context, *CLI) {
	t.Helper()
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var cli CLI
	parser, err := kong.New(&cli, kong.Name("solarwall"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := parser.Parse(append([]string{"--env-file", envFile}, args...))
	if err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return ctx, &cli
}

func TestParseDefaults(t *testing.T) {
	ctx, cli := parse(t)

	if ctx.Command() != "run" {
		t.Errorf("default command = %q, want run", ctx.Command())
	}
	if cli.Run.Port != "8080" {
		t.Errorf("port = %q", cli.Run.Port)
	}
	if cli.LogFormat != "console" || cli.LogLevel != "info" {
		t.Errorf("log = %s/%s", cli.LogLevel, cli.LogFormat)
	}
}

func TestParseRejectsUnknownLogFormat(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("solarwall"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"--log-format", "xml", "status"}); err == nil {
		t.Fatal("expected enum error")
	}
}

func TestSettingsSetCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "solarwall.db")
	ctx, cli := parse(t, "--db", db, "--timezone", "UTC", "--log-level", "error", "settings", "set", "latitude", "51.5")

	if ctx.Command() != "settings set <key> <value>" {
		t.Fatalf("command = %q", ctx.Command())
	}
	if err := ctx.Run(&cli.Globals); err != nil {
		t.Fatal(err)
	}

	st, err := store.Open(db, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	settings, err := st.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.Latitude != "51.5" {
		t.Errorf("latitude = %q", settings.Latitude)
	}
}

func TestSettingsSetUnknownKey(t *testing.T) {
	db := filepath.Join(t.TempDir(), "solarwall.db")
	ctx, cli := parse(t, "--db", db, "--timezone", "UTC", "--log-level", "error", "settings", "set", "colour", "blue")

	if err := ctx.Run(&cli.Globals); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestBadTimezone(t *testing.T) {
	g := &Globals{Timezone: "Mars/Olympus_Mons"}
	if _, err := g.location(); err == nil {
		t.Fatal("expected error")
	}
}

type fakeReloader struct {
	loads int
	order []string
}

func (f *fakeReloader) LoadAll() error {
	f.loads++
	f.order = append(f.order, "load")
	return nil
}

type fakeRunner struct {
	forced []bool
	order  *[]string
}

func (f *fakeRunner) RunScheduler(force bool) error {
	f.forced = append(f.forced, force)
	*f.order = append(*f.order, "run")
	return nil
}

func TestReloadForcesPass(t *testing.T) {
	themes := &fakeReloader{}
	engine := &fakeRunner{order: &themes.order}

	reload(themes, engine, zerolog.Nop())

	if themes.loads != 1 {
		t.Errorf("loads = %d, want 1", themes.loads)
	}
	if len(engine.forced) != 1 || !engine.forced[0] {
		t.Errorf("passes = %v, want one forced pass", engine.forced)
	}
	if len(themes.order) != 2 || themes.order[0] != "load" || themes.order[1] != "run" {
		t.Errorf("order = %v, want themes reloaded before the pass", themes.order)
	}
}
