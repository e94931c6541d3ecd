// Package solar produces the per-day solar timeline the scheduler slices into
// day segments, either from the sun's position at a location or from a fixed
// user-entered sunrise/sunset schedule.
package solar

import (
	"errors"
	"fmt"
	"time"

	"github.com/lox/solarwall/internal/daysegment"
)

var (
	// ErrInvalidConfig marks settings that cannot be used to compute solar
	// data. It is not retried.
	ErrInvalidConfig = errors.New("invalid solar configuration")
	// ErrSolarComputation marks solar event output that is inconsistent for
	// reasons other than a polar day or night.
	ErrSolarComputation = errors.New("solar computation failed")
)

// PolarPeriod is set when the sun neither rises nor sets on a date.
type PolarPeriod int

const (
	PolarNone PolarPeriod = iota
	PolarDay
	PolarNight
)

func (p PolarPeriod) String() string {
	switch p {
	case PolarDay:
		return "polar_day"
	case PolarNight:
		return "polar_night"
	default:
		return "none"
	}
}

// fixedSegments are the segments the four fixed-schedule boundaries open.
var fixedSegments = []daysegment.Segment{
	daysegment.Sunrise,
	daysegment.SolarNoon,
	daysegment.Sunset,
	daysegment.Night,
}

// Data is the solar timeline of one date. Sunrise, Sunset and Times are only
// meaningful when PolarPeriod is PolarNone.
type Data struct {
	PolarPeriod PolarPeriod
	Sunrise     time.Time
	Sunset      time.Time
	// Times are the segment boundaries in day order: 14 entries in location
	// mode, 4 in fixed-schedule mode.
	Times []time.Time
	Fixed bool
}

// Segments returns the segment each entry of Times opens.
func (d Data) Segments() []daysegment.Segment {
	if d.Fixed {
		return fixedSegments
	}
	return daysegment.All()
}

// SunUp reports whether the sun is above the horizon at t.
func (d Data) SunUp(t time.Time) bool {
	switch d.PolarPeriod {
	case PolarDay:
		return true
	case PolarNight:
		return false
	}
	return !t.Before(d.Sunrise) && t.Before(d.Sunset)
}

// ShortTimeLayout formats sunrise and sunset in Summary.
const ShortTimeLayout = "3:04 PM"

// Summary describes the day's sunrise and sunset for display.
func Summary(d Data) string {
	switch d.PolarPeriod {
	case PolarDay:
		return "Sunrise/Sunset: Up all day"
	case PolarNight:
		return "Sunrise/Sunset: Down all day"
	default:
		return fmt.Sprintf("Sunrise: %s, Sunset: %s",
			d.Sunrise.Format(ShortTimeLayout), d.Sunset.Format(ShortTimeLayout))
	}
}

func nonDecreasing(times []time.Time) bool {
	for i := 1; i < len(times); i++ {
		if times[i].Before(times[i-1]) {
			return false
		}
	}
	return true
}
