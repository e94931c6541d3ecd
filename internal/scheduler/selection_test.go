package scheduler

import (
	"testing"
	"time"

	"github.com/lox/solarwall/internal/daysegment"
	"github.com/lox/solarwall/internal/solar"
)

func TestInterpolate(t *testing.T) {
	start := at(6, 0)
	w := window{start, start.Add(4 * time.Hour)}

	tests := []struct {
		now      time.Time
		n        int
		wantIdx  int
		wantNext time.Time
	}{
		{at(7, 30), 4, 1, at(8, 0)},
		{at(6, 0), 4, 0, at(7, 0)},
		{at(8, 0), 4, 2, at(9, 0)},
		{at(9, 59), 4, 3, at(10, 0)},
		{at(10, 0), 4, 3, at(10, 0)},
		{at(7, 30), 1, 0, at(10, 0)},
		{at(6, 20), 3, 0, at(7, 20)},
	}
	for _, tt := range tests {
		idx, next := interpolate(tt.now, w, tt.n)
		if idx != tt.wantIdx || !next.Equal(tt.wantNext) {
			t.Errorf("interpolate(%s, n=%d) = %d, %s; want %d, %s",
				tt.now.Format("15:04"), tt.n, idx, next.Format("15:04"), tt.wantIdx, tt.wantNext.Format("15:04"))
		}
	}

	idx, next := interpolate(at(6, 0), window{at(6, 0), at(6, 0)}, 3)
	if idx != 0 || !next.Equal(at(6, 0)) {
		t.Errorf("empty window = %d, %v", idx, next)
	}
}

// hourly returns 14 boundaries an hour apart starting at 04:00.
func hourly() []time.Time {
	times := make([]time.Time, daysegment.Count)
	for i := range times {
		times[i] = at(4+i, 0)
	}
	return times
}

func TestCurrentIndexInterior(t *testing.T) {
	times := hourly()
	for i := 1; i <= 12; i++ {
		now := times[i].Add(30 * time.Minute)
		if got := currentIndex(now, times); got != i {
			t.Errorf("now %s: index %d, want %d", now.Format("15:04"), got, i)
		}
	}
}

func TestCurrentIndexBoundaryIsExclusive(t *testing.T) {
	times := hourly()
	for i := 1; i <= 12; i++ {
		if got := currentIndex(times[i], times); got != i-1 {
			t.Errorf("at boundary %d: index %d, want %d", i, got, i-1)
		}
		if got := currentIndex(times[i].Add(time.Nanosecond), times); got != i {
			t.Errorf("just after boundary %d: index %d, want %d", i, got, i)
		}
	}
	if got := currentIndex(at(3, 0), times); got != daysegment.Count-1 {
		t.Errorf("before first boundary: index %d, want last", got)
	}
}

func TestClassifyLocationDay(t *testing.T) {
	today := solar.Data{Times: hourly(), Sunrise: at(8, 0), Sunset: at(14, 0)}
	day := func(date time.Time) (solar.Data, error) {
		times := make([]time.Time, daysegment.Count)
		for i := range times {
			times[i] = date.Add(time.Duration(4+i) * time.Hour)
		}
		return solar.Data{Times: times}, nil
	}

	seg, w, err := classify(at(9, 15), today, day)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if seg != daysegment.SunriseEnd || !w.start.Equal(at(9, 0)) || !w.end.Equal(at(10, 0)) {
		t.Errorf("09:15 = %v [%v, %v)", seg, w.start, w.end)
	}

	seg, w, err = classify(at(20, 0), today, day)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if seg != daysegment.Night || !w.start.Equal(at(17, 0)) || !w.end.Equal(time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC)) {
		t.Errorf("20:00 = %v [%v, %v)", seg, w.start, w.end)
	}

	seg, w, err = classify(at(2, 0), today, day)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if seg != daysegment.Night || !w.start.Equal(time.Date(2025, 5, 31, 17, 0, 0, 0, time.UTC)) || !w.end.Equal(at(4, 0)) {
		t.Errorf("02:00 = %v [%v, %v)", seg, w.start, w.end)
	}
	if q := daysegment.QuarterOf(seg); q != daysegment.QuarterNight {
		t.Errorf("quarter = %v", q)
	}
}

func TestSegmentWakeAcrossPolarTomorrow(t *testing.T) {
	today := solar.Data{Times: hourly(), Sunrise: at(8, 0), Sunset: at(14, 0)}
	polar := func(time.Time) (solar.Data, error) {
		return solar.Data{PolarPeriod: solar.PolarNight}, nil
	}
	next, err := segmentWake(at(20, 0), today, false, polar)
	if err != nil {
		t.Fatalf("segmentWake: %v", err)
	}
	if want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

// earlyDay is a location whose solar noon falls well before 12:00, so the
// next day's nadir (23:30) comes before local midnight.
func earlyDay(date time.Time) (solar.Data, error) {
	times := make([]time.Time, daysegment.Count)
	for i := range times {
		times[i] = date.Add(-30*time.Minute + time.Duration(i)*90*time.Minute)
	}
	return solar.Data{
		Times:   times,
		Sunrise: times[daysegment.Sunrise.Index()],
		Sunset:  times[daysegment.Sunset.Index()],
	}, nil
}

// lateDay is a location whose solar noon falls well after 12:00, so the
// night boundary (00:20) comes after local midnight.
func lateDay(date time.Time) (solar.Data, error) {
	times := make([]time.Time, daysegment.Count)
	for i := range times {
		times[i] = date.Add(30*time.Minute + time.Duration(i)*110*time.Minute)
	}
	return solar.Data{
		Times:   times,
		Sunrise: times[daysegment.Sunrise.Index()],
		Sunset:  times[daysegment.Sunset.Index()],
	}, nil
}

func TestClassifyNextNadirBeforeMidnight(t *testing.T) {
	today, _ := earlyDay(at(0, 0))
	now := at(23, 50)

	seg, w, err := classify(now, today, earlyDay)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if seg != daysegment.Nadir {
		t.Errorf("segment = %v, want Nadir", seg)
	}
	if !w.start.Equal(at(23, 30)) || !w.end.Equal(time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)) {
		t.Errorf("window = [%v, %v)", w.start, w.end)
	}

	// Before the next nadir the wrapped night window is unchanged.
	seg, w, err = classify(at(22, 0), today, earlyDay)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if seg != daysegment.Night || !w.start.Equal(at(19, 0)) || !w.end.Equal(at(23, 30)) {
		t.Errorf("22:00 = %v [%v, %v)", seg, w.start, w.end)
	}
}

func TestClassifyPreviousNightAfterMidnight(t *testing.T) {
	today, _ := lateDay(at(0, 0))
	now := at(0, 10)

	seg, w, err := classify(now, today, lateDay)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if seg != daysegment.NauticalDusk {
		t.Errorf("segment = %v, want NauticalDusk", seg)
	}
	if !w.start.Equal(time.Date(2025, 5, 31, 22, 30, 0, 0, time.UTC)) || !w.end.Equal(at(0, 20)) {
		t.Errorf("window = [%v, %v)", w.start, w.end)
	}
}

func TestImageWakeNeverBeforeNow(t *testing.T) {
	for _, day := range []dayFunc{earlyDay, lateDay} {
		for m := 0; m < 24*60; m += 5 {
			now := at(0, 0).Add(time.Duration(m) * time.Minute)
			data, _ := day(startOfDay(now))
			_, w, err := classify(now, data, day)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			_, next := interpolate(now, w, 3)
			if next.Before(now) {
				t.Fatalf("at %s: image wake %s is in the past", now.Format("15:04"), next.Format("15:04"))
			}
		}
	}
}
