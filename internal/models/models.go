package models

import (
	"database/sql"
	"time"
)

// NoTheme is the theme id a user selects to run hooks without changing the
// wallpaper.
const NoTheme = "none"

// Settings is the user-editable configuration read by the scheduler on every
// pass.
type Settings struct {
	// DontUseLocation switches from solar computation to the fixed
	// SunriseTime/SunsetTime schedule.
	DontUseLocation bool
	Latitude        string // decimal degrees, "." as separator
	Longitude       string
	SunriseTime     string // "15:04" local time
	SunsetTime      string
	// SunriseSunsetDuration is the length in minutes of the sunrise and sunset
	// windows in fixed-schedule mode.
	SunriseSunsetDuration int
	DarkMode              bool
	FullScreenPause       bool
	UseAutoLocation       bool
	ThemeID               string
	ShuffleEnabled        bool
	LastShuffle           time.Time
	ScriptsDir            string
	WallpaperCommand      string
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		SunriseTime:           "06:00",
		SunsetTime:            "18:00",
		SunriseSunsetDuration: 60,
		FullScreenPause:       true,
	}
}

// LocationReady reports whether enough location data is configured for the
// scheduler to compute solar times.
func (s Settings) LocationReady() bool {
	if s.DontUseLocation {
		return s.SunriseTime != "" && s.SunsetTime != ""
	}
	return s.Latitude != "" && s.Longitude != ""
}

// WallpaperChange records one applied wallpaper.
type WallpaperChange struct {
	ID        int64
	AppliedAt time.Time
	ThemeID   string
	ImageID   int
	ImagePath string
	Segment   string
	DarkMode  bool
}

// LocationLookup records one automatic geolocation refresh.
type LocationLookup struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Provider     string
	HTTPStatus   sql.NullInt64
	Latitude     sql.NullFloat64
	Longitude    sql.NullFloat64
	Success      bool
	ErrorMessage sql.NullString
}
