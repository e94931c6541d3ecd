// Package daysegment defines the fixed taxonomy of solar day segments and the
// rules for mapping a segment onto a theme's images.
package daysegment

// Segment is one of the named intervals of a solar day. The numeric value is
// the segment's position in the cyclical order starting at solar midnight.
type Segment int

const (
	Nadir Segment = iota
	NightEnd
	NauticalDawn
	Dawn
	Sunrise
	SunriseEnd
	GoldenHourEnd
	SolarNoon
	GoldenHour
	SunsetStart
	Sunset
	Dusk
	NauticalDusk
	Night
)

// Count is the number of segments in a solar day.
const Count = 14

// order starts from solar midnight.
var order = [Count]Segment{
	Nadir, NightEnd, NauticalDawn, Dawn,
	Sunrise, SunriseEnd, GoldenHourEnd, SolarNoon,
	GoldenHour, SunsetStart, Sunset, Dusk,
	NauticalDusk, Night,
}

var names = [Count]string{
	"Nadir", "NightEnd", "NauticalDawn", "Dawn",
	"Sunrise", "SunriseEnd", "GoldenHourEnd", "SolarNoon",
	"GoldenHour", "SunsetStart", "Sunset", "Dusk",
	"NauticalDusk", "Night",
}

var (
	indexOf = make(map[Segment]int, Count)
	byName  = make(map[string]Segment, Count)
)

func init() {
	for i, s := range order {
		indexOf[s] = i
		byName[names[i]] = s
	}
}

// Index returns the position of s in the day order.
func (s Segment) Index() int {
	return indexOf[s]
}

// Valid reports whether s is one of the 14 segments.
func (s Segment) Valid() bool {
	_, ok := indexOf[s]
	return ok
}

func (s Segment) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return names[s.Index()]
}

// ByIndex returns the segment at position i of the day order.
func ByIndex(i int) (Segment, bool) {
	if i < 0 || i >= Count {
		return 0, false
	}
	return order[i], true
}

// ByName looks up a segment by its canonical name. Matching is case-sensitive.
func ByName(name string) (Segment, bool) {
	s, ok := byName[name]
	return s, ok
}

// All returns the segments in day order.
func All() []Segment {
	out := make([]Segment, Count)
	copy(out, order[:])
	return out
}
