package conversation

import (
	"strconv"
	"strings"
	"time"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

// DateExtractor finds the first payment date mentioned in a Spanish utterance.
// Relative terms are resolved first, then "<day> de <month>", then weekday names,
// then a bare day of month introduced by "el" or "día".
type DateExtractor struct {
	Now      func() time.Time
	Location *time.Location
}

func NewDateExtractor(loc *time.Location) *DateExtractor {
	return &DateExtractor{Now: time.Now, Location: loc}
}

// Extract returns the resolved date spelled in words, for example
// "martes quince de abril", or domain.DateUnspecified.
func (e *DateExtractor) Extract(text string) string {
	words := strings.Fields(Fold(text))
	if len(words) == 0 {
		return domain.DateUnspecified
	}
	today := e.today()

	for _, find := range []func([]string, time.Time) (time.Time, bool){
		relativeDate, dayOfMonthDate, weekdayDate, bareDayDate,
	} {
		if d, ok := find(words, today); ok {
			return FormatDate(d)
		}
	}
	return domain.DateUnspecified
}

func (e *DateExtractor) today() time.Time {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	t := now()
	if e.Location != nil {
		t = t.In(e.Location)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func FormatDate(d time.Time) string {
	return WeekdayName(d.Weekday()) + " " + DayToWords(d.Day()) + " de " + MonthName(d.Month())
}

func relativeDate(words []string, today time.Time) (time.Time, bool) {
	for i, w := range words {
		switch w {
		case "hoy":
			return today, true
		case "pasado":
			if i+1 < len(words) && words[i+1] == "manana" {
				return today.AddDate(0, 0, 2), true
			}
		case "manana":
			// "por la mañana" is a time of day, not tomorrow
			if i > 0 && words[i-1] == "la" {
				continue
			}
			return today.AddDate(0, 0, 1), true
		}
	}
	return time.Time{}, false
}

func dayOfMonthDate(words []string, today time.Time) (time.Time, bool) {
	for i := range words {
		day, n := parseDay(words, i)
		if n == 0 || i+n+1 >= len(words) || words[i+n] != "de" {
			continue
		}
		month, ok := monthWords[words[i+n+1]]
		if !ok {
			continue
		}
		d, ok := makeDate(today.Year(), month, day, today.Location())
		if !ok {
			continue
		}
		if d.Before(today) {
			if d, ok = makeDate(today.Year()+1, month, day, today.Location()); !ok {
				continue
			}
		}
		return d, true
	}
	return time.Time{}, false
}

func weekdayDate(words []string, today time.Time) (time.Time, bool) {
	for _, w := range words {
		wd, ok := weekdayWords[w]
		if !ok {
			continue
		}
		ahead := (int(wd) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), true
	}
	return time.Time{}, false
}

func bareDayDate(words []string, today time.Time) (time.Time, bool) {
	for i, w := range words {
		if w != "el" && w != "dia" {
			continue
		}
		day, n := parseDay(words, i+1)
		if n == 0 {
			continue
		}
		year, month := today.Year(), today.Month()
		if day < today.Day() {
			month++
			if month > time.December {
				month = time.January
				year++
			}
		}
		if d, ok := makeDate(year, month, day, today.Location()); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// parseDay reads a day of month at words[i] and reports how many words it took.
func parseDay(words []string, i int) (int, int) {
	if i >= len(words) {
		return 0, 0
	}
	w := words[i]
	if n, err := strconv.Atoi(w); err == nil {
		if n >= 1 && n <= 31 {
			return n, 1
		}
		return 0, 0
	}
	if w == "treinta" && i+2 < len(words) && words[i+1] == "y" && (words[i+2] == "uno" || words[i+2] == "un") {
		return 31, 3
	}
	if n, ok := dayWords[w]; ok && n <= 31 {
		return n, 1
	}
	return 0, 0
}

// makeDate rejects days that do not exist in the month, such as 30 de febrero.
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return d, d.Day() == day && d.Month() == month
}
