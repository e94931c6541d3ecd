package desktop

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FullscreenDetector reports whether a fullscreen application is focused.
type FullscreenDetector interface {
	Fullscreen(ctx context.Context) bool
}

// NeverFullscreen is a detector for sessions that cannot be queried.
type NeverFullscreen struct{}

func (NeverFullscreen) Fullscreen(context.Context) bool { return false }

// XpropDetector queries an X11 session with xprop.
type XpropDetector struct {
	logger  zerolog.Logger
	timeout time.Duration
}

func NewXpropDetector(logger zerolog.Logger) *XpropDetector {
	return &XpropDetector{
		logger:  logger.With().Str("component", "fullscreen").Logger(),
		timeout: 2 * time.Second,
	}
}

// NewFullscreenDetector returns an xprop detector when an X display and
// xprop are available, and NeverFullscreen otherwise.
func NewFullscreenDetector(logger zerolog.Logger) FullscreenDetector {
	if os.Getenv("DISPLAY") == "" {
		return NeverFullscreen{}
	}
	if _, err := exec.LookPath("xprop"); err != nil {
		return NeverFullscreen{}
	}
	return NewXpropDetector(logger)
}

func (d *XpropDetector) Fullscreen(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW").Output()
	if err != nil {
		d.logger.Debug().Err(err).Msg("query active window")
		return false
	}
	id, ok := parseActiveWindow(out)
	if !ok {
		return false
	}

	out, err = exec.CommandContext(ctx, "xprop", "-id", id, "_NET_WM_STATE").Output()
	if err != nil {
		d.logger.Debug().Err(err).Str("window", id).Msg("query window state")
		return false
	}
	return hasFullscreenState(out)
}

// parseActiveWindow extracts the window id from
// "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00003".
func parseActiveWindow(out []byte) (string, bool) {
	line := strings.TrimSpace(string(out))
	i := strings.LastIndex(line, "#")
	if i < 0 {
		return "", false
	}
	fields := strings.Fields(line[i+1:])
	if len(fields) == 0 {
		return "", false
	}
	id := strings.TrimSuffix(fields[0], ",")
	if id == "0x0" || !strings.HasPrefix(id, "0x") {
		return "", false
	}
	return id, true
}

func hasFullscreenState(out []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "_NET_WM_STATE") {
			continue
		}
		_, atoms, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		for _, atom := range strings.Split(atoms, ",") {
			if strings.TrimSpace(atom) == "_NET_WM_STATE_FULLSCREEN" {
				return true
			}
		}
	}
	return false
}
