package wikidata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// julianCalendar marks times recorded against the Julian calendar.
const julianCalendar = "Q1985786"

// julianShiftDays is the offset applied when mapping Julian dates onto
// the Gregorian calendar, matching the 1582 reform gap.
const julianShiftDays = 10

var timePattern = regexp.MustCompile(`^([+-])(\d{1,16})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})Z`)

var monthNames = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// formatTime renders a Wikidata time value at its stated precision.
// Julian dates in the common era are shifted onto the Gregorian
// calendar first.
func formatTime(tv timeValue) (string, error) {
	m := timePattern.FindStringSubmatch(tv.Time)
	if m == nil {
		return "", fmt.Errorf("malformed time string %q", tv.Time)
	}

	sign, yearStr := m[1], m[2]
	monthStr, dayStr := m[3], m[4]
	hourStr, minuteStr, secondStr := m[5], m[6], m[7]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", fmt.Errorf("year out of range in %q", tv.Time)
	}
	if sign == "-" {
		year = -year
	}

	// A zero month or day means the field is below the precision.
	month := 1
	if monthStr != "00" {
		month, _ = strconv.Atoi(monthStr)
	}
	day := 1
	if dayStr != "00" {
		day, _ = strconv.Atoi(dayStr)
	}

	calendar := tv.CalendarModel
	if calendar == "" {
		calendar = "http://www.wikidata.org/entity/" + julianCalendar
	}
	if strings.Contains(calendar, julianCalendar) && year > 1 && year <= 9999 {
		year, month, day, err = julianToGregorian(year, month, day)
		if err != nil {
			return "", err
		}
	}

	monthName := ""
	if month >= 1 && month <= 12 {
		monthName = monthNames[month-1]
	}
	era := "BC"
	if year > 0 {
		era = "AD"
	}

	switch tv.Precision {
	case 14:
		return fmt.Sprintf("%d %s %d %s:%s:%s", year, monthName, day, hourStr, minuteStr, secondStr), nil
	case 13:
		return fmt.Sprintf("%d %s %d %s:%s", year, monthName, day, hourStr, minuteStr), nil
	case 12:
		return fmt.Sprintf("%d %s %d %s:00", year, monthName, day, hourStr), nil
	case 11:
		return fmt.Sprintf("%d %s %d", day, monthName, year), nil
	case 10:
		return fmt.Sprintf("%s %d", monthName, year), nil
	case 9:
		return fmt.Sprintf("%d %s", abs(year), era), nil
	case 8:
		decade := floorDiv(year, 10) * 10
		return fmt.Sprintf("%ds %s", abs(decade), era), nil
	case 7:
		century := (abs(year)-1)/100 + 1
		return fmt.Sprintf("%dth century %s", century, era), nil
	case 6:
		millennium := (abs(year)-1)/1000 + 1
		return fmt.Sprintf("%dth millennium %s", millennium, era), nil
	case 5:
		return fmt.Sprintf("%d ten thousand years %s", abs(year)/10_000, era), nil
	case 4:
		return fmt.Sprintf("%d hundred thousand years %s", abs(year)/100_000, era), nil
	case 3:
		return fmt.Sprintf("%d million years %s", abs(year)/1_000_000, era), nil
	case 2:
		return fmt.Sprintf("%d tens of millions of years %s", abs(year)/10_000_000, era), nil
	case 1:
		return fmt.Sprintf("%d hundred million years %s", abs(year)/100_000_000, era), nil
	case 0:
		return fmt.Sprintf("%d billion years %s", abs(year)/1_000_000_000, era), nil
	default:
		return "", fmt.Errorf("unknown precision value %d", tv.Precision)
	}
}

// julianToGregorian shifts a valid Julian calendar date ten days
// forward onto the Gregorian calendar. Dates that do not exist in the
// Julian calendar are rejected.
func julianToGregorian(year, month, day int) (int, int, int, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components instead of failing;
	// a round-trip mismatch means the input date was invalid.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return 0, 0, 0, fmt.Errorf("invalid date %04d-%02d-%02d for Julian calendar", year, month, day)
	}
	t = t.AddDate(0, 0, julianShiftDays)
	return t.Year(), int(t.Month()), t.Day(), nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// floorDiv divides rounding toward negative infinity, so decades of
// BC years land on the correct boundary.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
