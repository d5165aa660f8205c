package schedule

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// weekdayLabels maps normalised labels to 0=Sunday..6=Saturday.
var weekdayLabels = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3, "thursday": 4, "friday": 5, "saturday": 6,
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,

	"domingo": 0, "segunda": 1, "terca": 2, "quarta": 3, "quinta": 4, "sexta": 5, "sabado": 6,
	"dom": 0, "seg": 1, "ter": 2, "qua": 3, "qui": 4, "sex": 5, "sab": 6,
}

// WeekdayIndex resolves an English or Portuguese weekday label. Case, accents
// and a trailing "-feira" are ignored.
func WeekdayIndex(label string) (int, bool) {
	idx, ok := weekdayLabels[normalise(label)]
	return idx, ok
}

func normalise(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = strings.TrimSuffix(s, "-feira")
	s = strings.TrimSuffix(s, " feira")
	return strings.TrimSuffix(s, ".")
}
