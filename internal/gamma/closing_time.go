package gamma

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // event titles carry ET wall-clock times
)

// Event titles follow "[Asset] Up or Down - [Month Day], [Start]-[End] ET",
// e.g. "Bitcoin Up or Down - January 9, 8:15PM-8:30PM ET". The closing time
// is the end of the range.
var titleTimeRange = regexp.MustCompile(`(?i)(\w+)\s+(\d{1,2}),\s*(\d{1,2}):(\d{2})(AM|PM)-(\d{1,2}):(\d{2})(AM|PM)\s*ET`)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var (
	etOnce sync.Once
	etZone *time.Location
)

func eastern() *time.Location {
	etOnce.Do(func() {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.FixedZone("ET", -5*60*60)
		}
		etZone = loc
	})
	return etZone
}

// ParseClosingTime extracts the market closing time from an event title.
// The year is taken from reference. Returns nil when the title does not
// carry a parseable time range.
func ParseClosingTime(title string, reference time.Time) *time.Time {
	m := titleTimeRange.FindStringSubmatch(title)
	if m == nil {
		return nil
	}

	month, ok := monthsByName[strings.ToLower(m[1])]
	if !ok {
		return nil
	}
	day, _ := strconv.Atoi(m[2])

	startHour := to24Hour(m[3], m[5])
	endHour := to24Hour(m[6], m[8])
	endMinute, _ := strconv.Atoi(m[7])

	closing := time.Date(reference.Year(), month, day, endHour, endMinute, 0, 0, eastern())

	// A range like 11:45PM-12:00AM ends on the next day.
	if startHour > endHour {
		closing = closing.AddDate(0, 0, 1)
	}

	utc := closing.UTC()
	return &utc
}

func to24Hour(hourStr, ampm string) int {
	hour, _ := strconv.Atoi(hourStr)
	switch strings.ToUpper(ampm) {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}
