package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	timeOfDayRe = regexp.MustCompile(`(\d{1,2})\s*(?::(\d{2}))?\s*(am|pm|AM|PM)?\b`)
	inDaysRe    = regexp.MustCompile(`in\s+(\d+)\s+days?`)
	mentionRe   = regexp.MustCompile(`(?:with|by|from|to)\s+([A-Z][a-z]+)`)
)

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseDateTimeFromText extracts a scheduling instant from natural language
// such as "tomorrow at 3 PM", "in 2 days", or "next Monday at 11". The time
// component defaults to 16:00 when absent. Returns (zero, false) when the text
// carries no recognizable date.
func ParseDateTimeFromText(text string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(lower, "tomorrow") || strings.Contains(lower, "kal"):
		return at(now.AddDate(0, 0, 1), lower), true
	case strings.Contains(lower, "today") || strings.Contains(lower, "aaj"):
		return at(now, lower), true
	}

	if m := inDaysRe.FindStringSubmatch(lower); m != nil {
		days, _ := strconv.Atoi(m[1])
		// The day count must not be mistaken for an hour, so the time of
		// day is read from the remainder only.
		rest := inDaysRe.ReplaceAllString(lower, "")
		return at(now.AddDate(0, 0, days), rest), true
	}

	for name, wd := range weekdayNames {
		if strings.Contains(lower, name) {
			ahead := (int(wd) - int(now.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return at(now.AddDate(0, 0, ahead), lower), true
		}
	}

	return time.Time{}, false
}

// at applies a time-of-day extracted from text to the date of base, defaulting
// to 16:00.
func at(base time.Time, text string) time.Time {
	hour, minute := 16, 0
	if m := timeOfDayRe.FindStringSubmatch(text); m != nil {
		h, err := strconv.Atoi(m[1])
		if err == nil && h <= 23 {
			hour = h
			if m[2] != "" {
				minute, _ = strconv.Atoi(m[2])
			} else {
				minute = 0
			}
			switch strings.ToLower(m[3]) {
			case "pm":
				if hour < 12 {
					hour += 12
				}
			case "am":
				if hour == 12 {
					hour = 0
				}
			}
		}
	}
	return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, base.Location())
}

// ExtractMentionedName pulls a capitalized name following "with", "by",
// "from", or "to", e.g. the staff member in "schedule demo with Minesh".
func ExtractMentionedName(text string) string {
	if m := mentionRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
