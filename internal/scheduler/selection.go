package scheduler

import (
	"time"

	"github.com/lox/solarwall/internal/daysegment"
	"github.com/lox/solarwall/internal/solar"
)

// State is the outcome of image selection for one instant.
type State struct {
	// ImageID is only meaningful when HasImage is set.
	ImageID  int
	HasImage bool
	// NextUpdate is when the selected image stops being current.
	NextUpdate time.Time
	Segment    daysegment.Segment
	DayNight   int
	Quarter    daysegment.Quarter
}

// window is a segment's active interval [start, end).
type window struct {
	start, end time.Time
}

// dayFunc returns solar data for the local day containing its argument.
type dayFunc func(date time.Time) (solar.Data, error)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func addDays(day time.Time, n int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, day.Location())
}

// currentIndex returns the index of the boundary that opened the segment
// active at now. A boundary equal to now has not opened yet. Before the
// first boundary the last segment, carried over from the previous day, is
// still active.
func currentIndex(now time.Time, times []time.Time) int {
	for i := len(times) - 1; i >= 0; i-- {
		if now.After(times[i]) {
			return i
		}
	}
	return len(times) - 1
}

// classify returns the active segment and its window.
func classify(now time.Time, data solar.Data, day dayFunc) (daysegment.Segment, window, error) {
	today := startOfDay(now)
	fullDay := window{today, addDays(today, 1)}

	switch data.PolarPeriod {
	case solar.PolarDay:
		return daysegment.SolarNoon, fullDay, nil
	case solar.PolarNight:
		return daysegment.Night, fullDay, nil
	}
	if len(data.Times) == 0 {
		return daysegment.SolarNoon, fullDay, nil
	}

	times := data.Times
	segs := data.Segments()
	last := len(times) - 1
	i := currentIndex(now, times)
	seg := segs[i]

	if i < last {
		return seg, window{times[i], times[i+1]}, nil
	}

	if !now.After(times[0]) {
		yesterday, err := day(addDays(today, -1))
		if err != nil {
			return seg, window{}, err
		}
		if s, w, ok := within(now, yesterday); ok {
			return s, w, nil
		}
		start := today
		if n := len(yesterday.Times); n > 0 {
			start = yesterday.Times[n-1]
		}
		return seg, window{start, times[0]}, nil
	}

	tomorrow, err := day(addDays(today, 1))
	if err != nil {
		return seg, window{}, err
	}
	if s, w, ok := within(now, tomorrow); ok {
		return s, w, nil
	}
	end := addDays(today, 1)
	if len(tomorrow.Times) > 0 {
		end = tomorrow.Times[0]
	}
	return seg, window{times[last], end}, nil
}

// within classifies now against a neighbouring day's timeline. Where solar
// noon is far from 12:00 local time, the next day's first boundary can fall
// before midnight, or the previous day's last one after it.
func within(now time.Time, d solar.Data) (daysegment.Segment, window, bool) {
	t := d.Times
	if d.PolarPeriod != solar.PolarNone || len(t) < 2 {
		return 0, window{}, false
	}
	if !now.After(t[0]) || now.After(t[len(t)-1]) {
		return 0, window{}, false
	}
	i := currentIndex(now, t)
	return d.Segments()[i], window{t[i], t[i+1]}, true
}

// darkWindow returns the night window used by dark mode: the sun's
// current up or down interval.
func darkWindow(now time.Time, data solar.Data, sunUp bool, day dayFunc) (window, error) {
	today := startOfDay(now)
	switch {
	case data.PolarPeriod != solar.PolarNone:
		return window{today, addDays(today, 1)}, nil
	case sunUp:
		return window{data.Sunrise, data.Sunset}, nil
	case now.Before(data.Sunrise):
		yesterday, err := day(addDays(today, -1))
		if err != nil {
			return window{}, err
		}
		start := today
		if yesterday.PolarPeriod == solar.PolarNone {
			start = yesterday.Sunset
		}
		return window{start, data.Sunrise}, nil
	default:
		tomorrow, err := day(addDays(today, 1))
		if err != nil {
			return window{}, err
		}
		end := addDays(today, 1)
		if tomorrow.PolarPeriod == solar.PolarNone {
			end = tomorrow.Sunrise
		}
		return window{data.Sunset, end}, nil
	}
}

// interpolate divides w into n equal slots and returns the slot containing
// now and the instant that slot ends.
func interpolate(now time.Time, w window, n int) (int, time.Time) {
	span := w.end.Sub(w.start)
	if n <= 1 || span <= 0 {
		return 0, w.end
	}
	slot := span / time.Duration(n)
	if slot <= 0 {
		return n - 1, w.end
	}
	idx := int(now.Sub(w.start) / slot)
	if idx < 0 {
		idx = 0
	}
	if idx >= n-1 {
		return n - 1, w.end
	}
	return idx, w.start.Add(time.Duration(idx+1) * slot)
}

// segmentWake returns the next instant the sun's up/down state can change.
func segmentWake(now time.Time, data solar.Data, sunUp bool, day dayFunc) (time.Time, error) {
	today := startOfDay(now)
	switch {
	case data.PolarPeriod != solar.PolarNone:
		return addDays(today, 1), nil
	case sunUp:
		return data.Sunset, nil
	case now.Before(data.Sunrise):
		return data.Sunrise, nil
	}
	tomorrow, err := day(addDays(today, 1))
	if err != nil {
		return time.Time{}, err
	}
	if tomorrow.PolarPeriod != solar.PolarNone {
		return addDays(today, 1), nil
	}
	return tomorrow.Sunrise, nil
}
