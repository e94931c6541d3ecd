package daysegment

// Quarter is the coarse four-way lighting period handed to post-update hooks.
type Quarter int

const (
	QuarterDawn Quarter = iota
	QuarterDay
	QuarterDusk
	QuarterNight
)

func (q Quarter) String() string {
	switch q {
	case QuarterDawn:
		return "dawn"
	case QuarterDay:
		return "day"
	case QuarterDusk:
		return "dusk"
	default:
		return "night"
	}
}

// QuarterOf classifies a segment into its quarter of the day.
func QuarterOf(s Segment) Quarter {
	switch i := s.Index(); {
	case i >= 2 && i <= 5:
		return QuarterDawn
	case i >= 6 && i <= 8:
		return QuarterDay
	case i >= 9 && i <= 12:
		return QuarterDusk
	default:
		return QuarterNight
	}
}

// DayNight is the two-way flag handed to post-update hooks: 0 while the sun
// is up, 1 otherwise.
func DayNight(sunUp bool) int {
	if sunUp {
		return 0
	}
	return 1
}
