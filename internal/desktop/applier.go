// Package desktop applies wallpapers and queries the desktop session.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ErrUnsupported is returned when no default wallpaper command exists for
// the platform.
var ErrUnsupported = errors.New("no wallpaper command for this platform")

// Template placeholders substituted in wallpaper commands.
const (
	PathToken       = "{path}"
	QuotedPathToken = "{quoted_path}"
	URIToken        = "{uri}"
)

// Applier sets the desktop wallpaper.
type Applier interface {
	Apply(ctx context.Context, path string) error
}

// DefaultCommands returns the wallpaper commands used on goos.
func DefaultCommands(goos string) ([][]string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd":
		return [][]string{
			{"gsettings", "set", "org.gnome.desktop.background", "picture-uri", URIToken},
			{"gsettings", "set", "org.gnome.desktop.background", "picture-uri-dark", URIToken},
		}, nil
	case "darwin":
		return [][]string{
			{"osascript", "-e", `tell application "System Events" to tell every desktop to set picture to ` + QuotedPathToken},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}

// CommandApplier runs external commands with the image path substituted.
type CommandApplier struct {
	commands [][]string
	logger   zerolog.Logger
}

// NewCommandApplier parses command into arguments on whitespace. An empty
// command selects the platform defaults.
func NewCommandApplier(command string, logger zerolog.Logger) (*CommandApplier, error) {
	var commands [][]string
	if strings.TrimSpace(command) == "" {
		var err error
		commands, err = DefaultCommands(runtime.GOOS)
		if err != nil {
			return nil, err
		}
	} else {
		commands = [][]string{strings.Fields(command)}
	}
	return &CommandApplier{
		commands: commands,
		logger:   logger.With().Str("component", "desktop").Logger(),
	}, nil
}

func (a *CommandApplier) Apply(ctx context.Context, path string) error {
	for _, argv := range a.commands {
		args := expand(argv, path)
		a.logger.Debug().Strs("argv", args).Msg("running wallpaper command")
		out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}

func expand(argv []string, path string) []string {
	uri := (&url.URL{Scheme: "file", Path: path}).String()
	r := strings.NewReplacer(
		QuotedPathToken, strconv.Quote(path),
		URIToken, uri,
		PathToken, path,
	)
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = r.Replace(a)
	}
	return out
}

// DryRunApplier logs wallpapers instead of applying them.
type DryRunApplier struct {
	Logger zerolog.Logger
}

func (a DryRunApplier) Apply(ctx context.Context, path string) error {
	a.Logger.Info().Str("path", path).Msg("dry run: would apply wallpaper")
	return nil
}
