package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/lox/solarwall/internal/models"
)

// ErrUnknownSetting is returned by Set for a key that is not a setting.
var ErrUnknownSetting = errors.New("unknown setting")

// Setting keys as stored in the settings table.
const (
	KeyDontUseLocation       = "dont_use_location"
	KeyLatitude              = "latitude"
	KeyLongitude             = "longitude"
	KeySunriseTime           = "sunrise_time"
	KeySunsetTime            = "sunset_time"
	KeySunriseSunsetDuration = "sunrise_sunset_duration"
	KeyDarkMode              = "dark_mode"
	KeyFullScreenPause       = "fullscreen_pause"
	KeyUseAutoLocation       = "use_auto_location"
	KeyThemeID               = "theme_id"
	KeyShuffleEnabled        = "shuffle_enabled"
	KeyLastShuffle           = "last_shuffle"
	KeyScriptsDir            = "scripts_dir"
	KeyWallpaperCommand      = "wallpaper_command"
)

type settingField struct {
	get func(*models.Settings) string
	set func(*models.Settings, string) error
}

func boolField(ptr func(*models.Settings) *bool) settingField {
	return settingField{
		get: func(s *models.Settings) string { return strconv.FormatBool(*ptr(s)) },
		set: func(s *models.Settings, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*ptr(s) = b
			return nil
		},
	}
}

func stringField(ptr func(*models.Settings) *string) settingField {
	return settingField{
		get: func(s *models.Settings) string { return *ptr(s) },
		set: func(s *models.Settings, v string) error {
			*ptr(s) = v
			return nil
		},
	}
}

var settingFields = map[string]settingField{
	KeyDontUseLocation: boolField(func(s *models.Settings) *bool { return &s.DontUseLocation }),
	KeyLatitude:        stringField(func(s *models.Settings) *string { return &s.Latitude }),
	KeyLongitude:       stringField(func(s *models.Settings) *string { return &s.Longitude }),
	KeySunriseTime:     stringField(func(s *models.Settings) *string { return &s.SunriseTime }),
	KeySunsetTime:      stringField(func(s *models.Settings) *string { return &s.SunsetTime }),
	KeySunriseSunsetDuration: {
		get: func(s *models.Settings) string { return strconv.Itoa(s.SunriseSunsetDuration) },
		set: func(s *models.Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			s.SunriseSunsetDuration = n
			return nil
		},
	},
	KeyDarkMode:        boolField(func(s *models.Settings) *bool { return &s.DarkMode }),
	KeyFullScreenPause: boolField(func(s *models.Settings) *bool { return &s.FullScreenPause }),
	KeyUseAutoLocation: boolField(func(s *models.Settings) *bool { return &s.UseAutoLocation }),
	KeyThemeID:         stringField(func(s *models.Settings) *string { return &s.ThemeID }),
	KeyShuffleEnabled:  boolField(func(s *models.Settings) *bool { return &s.ShuffleEnabled }),
	KeyLastShuffle: {
		get: func(s *models.Settings) string {
			if s.LastShuffle.IsZero() {
				return ""
			}
			return s.LastShuffle.UTC().Format(time.RFC3339)
		},
		set: func(s *models.Settings, v string) error {
			if v == "" {
				s.LastShuffle = time.Time{}
				return nil
			}
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return err
			}
			s.LastShuffle = t.UTC()
			return nil
		},
	},
	KeyScriptsDir:       stringField(func(s *models.Settings) *string { return &s.ScriptsDir }),
	KeyWallpaperCommand: stringField(func(s *models.Settings) *string { return &s.WallpaperCommand }),
}

// SettingKeys returns every setting key in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingFields))
	for k := range settingFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingValue returns the stored text form of key in s.
func SettingValue(s models.Settings, key string) (string, bool) {
	f, ok := settingFields[key]
	if !ok {
		return "", false
	}
	return f.get(&s), true
}

// GetSettings returns the stored settings layered over the defaults.
func (s *Store) GetSettings() (models.Settings, error) {
	settings := models.DefaultSettings()

	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return settings, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, err
		}
		f, ok := settingFields[key]
		if !ok {
			continue
		}
		if err := f.set(&settings, value); err != nil {
			return settings, fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return settings, rows.Err()
}

// PutSettings stores every field of settings.
func (s *Store) PutSettings(settings models.Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, key := range SettingKeys() {
		if err := upsertSetting(tx, key, settingFields[key].get(&settings)); err != nil {
			tx.Rollback()
			return fmt.Errorf("store %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Set validates and stores a single setting from its text form.
func (s *Store) Set(key, value string) error {
	f, ok := settingFields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	var probe models.Settings
	if err := f.set(&probe, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return upsertSetting(s.db, key, f.get(&probe))
}

func (s *Store) SetDarkMode(enabled bool) error {
	return upsertSetting(s.db, KeyDarkMode, strconv.FormatBool(enabled))
}

func (s *Store) SetTheme(themeID string) error {
	return upsertSetting(s.db, KeyThemeID, themeID)
}

// SetShuffledTheme records a shuffle pick and when it happened.
func (s *Store) SetShuffledTheme(themeID string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := upsertSetting(tx, KeyThemeID, themeID); err != nil {
		tx.Rollback()
		return err
	}
	if err := upsertSetting(tx, KeyLastShuffle, at.UTC().Format(time.RFC3339)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SetLocation stores coordinates in the invariant decimal format.
func (s *Store) SetLocation(lat, lon float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := upsertSetting(tx, KeyLatitude, strconv.FormatFloat(lat, 'f', -1, 64)); err != nil {
		tx.Rollback()
		return err
	}
	if err := upsertSetting(tx, KeyLongitude, strconv.FormatFloat(lon, 'f', -1, 64)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertSetting(db execer, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	return err
}
