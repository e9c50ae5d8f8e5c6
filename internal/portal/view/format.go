package view

import "time"

// NA is shown for absent values.
const NA = "N/A"

// InvalidDate is shown for timestamps that cannot be parsed.
const InvalidDate = "Invalid Date"

// Local layouts are read in the display zone; a bare date is UTC midnight.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
}

// FormatDate renders an ISO-8601 timestamp as "dd/mm/yyyy, hh:mm a. m." in loc.
func FormatDate(raw string, loc *time.Location) string {
	if raw == "" {
		return NA
	}
	t, ok := parseTimestamp(raw, loc)
	if !ok {
		return InvalidDate
	}
	t = t.In(loc)
	meridiem := "a. m."
	if t.Hour() >= 12 {
		meridiem = "p. m."
	}
	return t.Format("02/01/2006, 03:04") + " " + meridiem
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}
