package solar

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/sixdouglas/suncalc"

	"github.com/lox/solarwall/internal/daysegment"
)

// Calculator computes the named solar events around an instant and the sun's
// altitude. Events that do not occur are left out of the map.
type Calculator interface {
	Events(at time.Time, lat, lon float64) map[daysegment.Segment]time.Time
	Altitude(at time.Time, lat, lon float64) float64
}

// HorizonOracle answers whether the sun crosses the horizon at all on a date.
type HorizonOracle interface {
	RiseSet(date time.Time, lat, lon float64) (rise, set time.Time, ok bool)
}

var sunCalcNames = map[daysegment.Segment]suncalc.DayTimeName{
	daysegment.Nadir:         suncalc.Nadir,
	daysegment.NightEnd:      suncalc.NightEnd,
	daysegment.NauticalDawn:  suncalc.NauticalDawn,
	daysegment.Dawn:          suncalc.Dawn,
	daysegment.Sunrise:       suncalc.Sunrise,
	daysegment.SunriseEnd:    suncalc.SunriseEnd,
	daysegment.GoldenHourEnd: suncalc.GoldenHourEnd,
	daysegment.SolarNoon:     suncalc.SolarNoon,
	daysegment.GoldenHour:    suncalc.GoldenHour,
	daysegment.SunsetStart:   suncalc.SunsetStart,
	daysegment.Sunset:        suncalc.Sunset,
	daysegment.Dusk:          suncalc.Dusk,
	daysegment.NauticalDusk:  suncalc.NauticalDusk,
	daysegment.Night:         suncalc.Night,
}

// SunCalc is the default Calculator, backed by a port of suncalc.js.
type SunCalc struct{}

func (SunCalc) Events(at time.Time, lat, lon float64) map[daysegment.Segment]time.Time {
	times := suncalc.GetTimes(at, lat, lon)
	out := make(map[daysegment.Segment]time.Time, len(sunCalcNames))
	for seg, name := range sunCalcNames {
		if dt, ok := times[name]; ok {
			out[seg] = dt.Value
		}
	}
	return out
}

func (SunCalc) Altitude(at time.Time, lat, lon float64) float64 {
	return suncalc.GetPosition(at, lat, lon).Altitude
}

// GoSunrise is the default HorizonOracle. go-sunrise returns zero times when
// the sun stays above or below the horizon all day.
type GoSunrise struct{}

func (GoSunrise) RiseSet(date time.Time, lat, lon float64) (time.Time, time.Time, bool) {
	rise, set := sunrise.SunriseSunset(lat, lon, date.Year(), date.Month(), date.Day())
	if rise.IsZero() || set.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	return rise, set, true
}
