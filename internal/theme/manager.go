package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Manager is the catalog of installed themes.
type Manager struct {
	dir    string
	logger zerolog.Logger

	mu     sync.RWMutex
	themes map[string]*Theme
}

func NewManager(dir string, logger zerolog.Logger) *Manager {
	return &Manager{
		dir:    dir,
		logger: logger.With().Str("component", "theme").Logger(),
		themes: make(map[string]*Theme),
	}
}

// LoadAll loads every theme directory under the catalog directory. Themes
// that fail to load are skipped and their errors returned together; the
// valid ones are still available.
func (m *Manager) LoadAll() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Warn().Str("dir", m.dir).Msg("themes directory does not exist")
			return nil
		}
		return fmt.Errorf("read themes dir: %w", err)
	}

	themes := make(map[string]*Theme)
	var result *multierror.Error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		t, err := Load(filepath.Join(m.dir, e.Name()))
		if err != nil {
			m.logger.Warn().Err(err).Str("theme", e.Name()).Msg("skipping invalid theme")
			result = multierror.Append(result, err)
			continue
		}
		themes[t.ID] = t
	}

	m.mu.Lock()
	m.themes = themes
	m.mu.Unlock()

	m.logger.Info().Int("count", len(themes)).Str("dir", m.dir).Msg("themes loaded")
	return result.ErrorOrNil()
}

// Add registers t, replacing any theme with the same id.
func (m *Manager) Add(t *Theme) error {
	if err := Validate(t); err != nil {
		return fmt.Errorf("theme %s: %w", t.ID, err)
	}
	m.mu.Lock()
	m.themes[t.ID] = t
	m.mu.Unlock()
	return nil
}

func (m *Manager) Get(id string) (*Theme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.themes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// List returns the themes sorted by id.
func (m *Manager) List() []*Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Theme, 0, len(m.themes))
	for _, t := range m.themes {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// IDs returns the theme ids sorted.
func (m *Manager) IDs() []string {
	list := m.List()
	ids := make([]string, len(list))
	for i, t := range list {
		ids[i] = t.ID
	}
	return ids
}
