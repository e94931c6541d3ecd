package solar

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/daysegment"
	"github.com/lox/solarwall/internal/models"
)

// SettingsSource supplies the current user settings. It is read on every
// call, never cached.
type SettingsSource interface {
	GetSettings() (models.Settings, error)
}

// maxEventDistance bounds how far a solar event may sit from local noon
// before it is treated as not occurring.
const maxEventDistance = 24 * time.Hour

type Provider struct {
	settings SettingsSource
	calc     Calculator
	horizon  HorizonOracle
	loc      *time.Location
	logger   zerolog.Logger
}

func NewProvider(settings SettingsSource, loc *time.Location, logger zerolog.Logger) *Provider {
	if loc == nil {
		loc = time.Local
	}
	return &Provider{
		settings: settings,
		calc:     SunCalc{},
		horizon:  GoSunrise{},
		loc:      loc,
		logger:   logger.With().Str("component", "solar").Logger(),
	}
}

func (p *Provider) SetCalculator(c Calculator) {
	p.calc = c
}

// SetHorizonOracle replaces the horizon cross-check. A nil oracle disables it.
func (p *Provider) SetHorizonOracle(h HorizonOracle) {
	p.horizon = h
}

func (p *Provider) Location() *time.Location {
	return p.loc
}

// GetSolarData returns the solar timeline for the local calendar date of date.
func (p *Provider) GetSolarData(date time.Time) (Data, error) {
	s, err := p.settings.GetSettings()
	if err != nil {
		return Data{}, fmt.Errorf("load settings: %w", err)
	}

	local := date.In(p.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.loc)

	if s.DontUseLocation {
		return FixedSchedule(day, s.SunriseTime, s.SunsetTime, s.SunriseSunsetDuration)
	}

	lat, lon, err := ParseCoordinates(s.Latitude, s.Longitude)
	if err != nil {
		return Data{}, err
	}
	return p.locationData(day, lat, lon)
}

// FixedSchedule builds the four-boundary timeline of a user-entered schedule.
// The transition window is centred on each time and lasts durationMinutes.
func FixedSchedule(day time.Time, sunriseClock, sunsetClock string, durationMinutes int) (Data, error) {
	rise, err := atClock(day, sunriseClock)
	if err != nil {
		return Data{}, fmt.Errorf("%w: sunrise time: %v", ErrInvalidConfig, err)
	}
	set, err := atClock(day, sunsetClock)
	if err != nil {
		return Data{}, fmt.Errorf("%w: sunset time: %v", ErrInvalidConfig, err)
	}
	if durationMinutes < 0 {
		return Data{}, fmt.Errorf("%w: negative sunrise/sunset duration %d", ErrInvalidConfig, durationMinutes)
	}
	if !set.After(rise) {
		return Data{}, fmt.Errorf("%w: sunset %s is not after sunrise %s", ErrInvalidConfig, sunsetClock, sunriseClock)
	}

	half := time.Duration(durationMinutes) * 30 * time.Second
	times := []time.Time{rise.Add(-half), rise.Add(half), set.Add(-half), set.Add(half)}
	if !nonDecreasing(times) {
		return Data{}, fmt.Errorf("%w: %d minute transitions overlap", ErrInvalidConfig, durationMinutes)
	}

	return Data{Sunrise: rise, Sunset: set, Times: times, Fixed: true}, nil
}

func atClock(day time.Time, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var (
		t   time.Time
		err error
	)
	for _, layout := range []string{"15:04", "15:04:05"} {
		t, err = time.Parse(layout, value)
		if err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location()), nil
		}
	}
	return time.Time{}, err
}

// ParseCoordinates parses latitude and longitude strings using the invariant
// number format.
func ParseCoordinates(latitude, longitude string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latitude), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude %q", ErrInvalidConfig, latitude)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(longitude), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude %q", ErrInvalidConfig, longitude)
	}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("%w: latitude %v out of range", ErrInvalidConfig, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("%w: longitude %v out of range", ErrInvalidConfig, lon)
	}
	return lat, lon, nil
}

func (p *Provider) locationData(day time.Time, lat, lon float64) (Data, error) {
	noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, p.loc)
	events := p.calc.Events(noon.UTC(), lat, lon)

	all := daysegment.All()
	times := make([]time.Time, len(all))
	var missing []daysegment.Segment
	for i, seg := range all {
		t, ok := events[seg]
		if !ok || !plausible(t, noon) {
			missing = append(missing, seg)
			continue
		}
		times[i] = t.In(p.loc)
	}

	if len(missing) == 0 {
		if !nonDecreasing(times) {
			return Data{}, fmt.Errorf("%w: events out of order on %s", ErrSolarComputation, day.Format(time.DateOnly))
		}
		p.logger.Debug().Str("date", day.Format(time.DateOnly)).Times("times", times).Msg("solar times")
		return Data{
			Sunrise: times[daysegment.Sunrise.Index()],
			Sunset:  times[daysegment.Sunset.Index()],
			Times:   times,
		}, nil
	}

	solarNoon, ok := events[daysegment.SolarNoon]
	if !ok || !plausible(solarNoon, noon) {
		return Data{}, fmt.Errorf("%w: no solar noon on %s", ErrSolarComputation, day.Format(time.DateOnly))
	}
	solarNoon = solarNoon.In(p.loc)

	rise := times[daysegment.Sunrise.Index()]
	set := times[daysegment.Sunset.Index()]
	if (rise.IsZero() || set.IsZero()) && p.horizon != nil {
		if r, s, ok := p.horizon.RiseSet(day, lat, lon); ok {
			p.logger.Debug().Str("date", day.Format(time.DateOnly)).Msg("sunrise/sunset taken from horizon oracle")
			rise, set = r.In(p.loc), s.In(p.loc)
		}
	}

	if rise.IsZero() || set.IsZero() {
		period := PolarNight
		if p.calc.Altitude(solarNoon.UTC(), lat, lon) > 0 {
			period = PolarDay
		}
		p.logger.Debug().Str("date", day.Format(time.DateOnly)).Stringer("polar", period).Msg("polar period")
		return Data{PolarPeriod: period}, nil
	}

	// The sun still rises and sets but some twilight never ends (white
	// nights) or is never reached. Pin those boundaries so the segments
	// between them collapse to zero length.
	nadir := solarNoon.Add(-12 * time.Hour)
	if !slices.Contains(missing, daysegment.Nadir) {
		nadir = times[daysegment.Nadir.Index()]
	}
	times[daysegment.Sunrise.Index()] = rise
	times[daysegment.Sunset.Index()] = set
	for _, seg := range missing {
		switch seg {
		case daysegment.Sunrise, daysegment.Sunset:
		case daysegment.Nadir, daysegment.NightEnd, daysegment.NauticalDawn, daysegment.Dawn:
			times[seg.Index()] = nadir
		case daysegment.Dusk, daysegment.NauticalDusk, daysegment.Night:
			times[seg.Index()] = solarNoon.Add(12 * time.Hour)
		default:
			times[seg.Index()] = solarNoon
		}
	}

	if !nonDecreasing(times) {
		return Data{}, fmt.Errorf("%w: events out of order on %s", ErrSolarComputation, day.Format(time.DateOnly))
	}
	p.logger.Debug().Str("date", day.Format(time.DateOnly)).Int("pinned", len(missing)).Times("times", times).Msg("solar times")
	return Data{Sunrise: rise, Sunset: set, Times: times}, nil
}

func plausible(t, noon time.Time) bool {
	if t.IsZero() {
		return false
	}
	d := t.Sub(noon)
	return d >= -maxEventDistance && d <= maxEventDistance
}
