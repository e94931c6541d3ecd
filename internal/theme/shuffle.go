package theme

import (
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/models"
)

// ShuffleStore reads settings and records shuffled theme picks.
type ShuffleStore interface {
	GetSettings() (models.Settings, error)
	SetShuffledTheme(themeID string, at time.Time) error
}

// Shuffler switches to a different random theme once per local day when
// shuffling is enabled.
type Shuffler struct {
	catalog *Manager
	store   ShuffleStore
	loc     *time.Location
	rand    *rand.Rand
	logger  zerolog.Logger
}

func NewShuffler(catalog *Manager, store ShuffleStore, loc *time.Location, logger zerolog.Logger) *Shuffler {
	if loc == nil {
		loc = time.Local
	}
	return &Shuffler{
		catalog: catalog,
		store:   store,
		loc:     loc,
		rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		logger:  logger.With().Str("component", "shuffle").Logger(),
	}
}

// SetRand replaces the random source.
func (s *Shuffler) SetRand(r *rand.Rand) {
	s.rand = r
}

// MaybeShuffle picks a new theme if shuffling is enabled and none has been
// picked yet on now's local day. It reports whether the theme changed.
func (s *Shuffler) MaybeShuffle(now time.Time) (bool, error) {
	settings, err := s.store.GetSettings()
	if err != nil {
		return false, err
	}
	if !settings.ShuffleEnabled || settings.ThemeID == models.NoTheme {
		return false, nil
	}
	if sameDay(settings.LastShuffle.In(s.loc), now.In(s.loc)) {
		return false, nil
	}

	var candidates []string
	for _, id := range s.catalog.IDs() {
		if id != settings.ThemeID {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return false, nil
	}

	pick := candidates[s.rand.IntN(len(candidates))]
	if err := s.store.SetShuffledTheme(pick, now); err != nil {
		return false, err
	}
	s.logger.Info().Str("from", settings.ThemeID).Str("to", pick).Msg("shuffled theme")
	return true, nil
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
