package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	yearPattern      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	yearsAgoPattern  = regexp.MustCompile(`\b(\d{1,2})\s+years?\s+ago\b`)
	monthsAgoPattern = regexp.MustCompile(`\b(\d{1,2})\s+months?\s+ago\b`)
)

// ageUnknown marks items with no temporal signal.
const ageUnknown = -1

// detectAgeMonths estimates how many months old the content is from temporal
// signals in its text. Explicit 4-digit years win (latest year wins);
// otherwise relative phrases are parsed. Returns ageUnknown when no signal
// is found.
func detectAgeMonths(text string, now time.Time) int {
	lower := strings.ToLower(text)

	if latest, ok := latestPlausibleYear(lower, now); ok {
		months := (now.Year()-latest)*12 + int(now.Month()-time.January)
		if months < 0 {
			months = 0
		}
		return months
	}

	if m := yearsAgoPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n * 12
		}
	}
	if m := monthsAgoPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if strings.Contains(lower, "last year") {
		return 12
	}
	if strings.Contains(lower, "recently") || strings.Contains(lower, "this year") {
		return 6
	}

	return ageUnknown
}

// latestPlausibleYear scans for explicit 4-digit years within a plausible
// publication window and returns the latest.
func latestPlausibleYear(lower string, now time.Time) (int, bool) {
	latest := 0
	for _, match := range yearPattern.FindAllString(lower, -1) {
		year, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if year < 1990 || year > now.Year()+1 {
			continue
		}
		if year > latest {
			latest = year
		}
	}
	return latest, latest > 0
}

// recencyWeightFor buckets content age into a decay weight. Content with no
// temporal signal gets the neutral default 0.5.
func recencyWeightFor(ageMonths int) float64 {
	switch {
	case ageMonths == ageUnknown:
		return 0.5
	case ageMonths <= 12:
		return 1.0
	case ageMonths <= 36:
		return 0.6
	case ageMonths <= 60:
		return 0.3
	default:
		return 0.1
	}
}
