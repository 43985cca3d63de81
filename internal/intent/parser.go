package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultDuration is the fixed appointment length when the user only names
// a start time.
const DefaultDuration = 30 * time.Minute

// SlotCandidate is a structured scheduling request extracted from free text.
type SlotCandidate struct {
	Start       time.Time
	End         time.Time
	DisplayDate string
	DisplayTime string
}

var (
	dateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	timeRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?(?:\s*([ap])\.?\s?m\.?)?\b`)
)

// ParseSlotRequest maps raw text to a slot candidate, or nil when no
// actionable date and time pair is present. It is deterministic: identical
// text always yields an identical candidate, so redelivered webhooks
// reprocess to the same result.
//
// A date token (ISO 4-digit-year calendar date) is required; a time alone is
// not actionable. The time token is an hour with optional minutes and an
// optional am/pm marker, periods tolerated.
func ParseSlotRequest(text string) *SlotCandidate {
	dateMatch := dateRe.FindStringSubmatchIndex(text)
	if dateMatch == nil {
		return nil
	}

	year, _ := strconv.Atoi(text[dateMatch[2]:dateMatch[3]])
	month, _ := strconv.Atoi(text[dateMatch[4]:dateMatch[5]])
	day, _ := strconv.Atoi(text[dateMatch[6]:dateMatch[7]])

	// Search for the time token in the text with the date cut out, so the
	// date's own digits can never be mistaken for an hour.
	remainder := text[:dateMatch[0]] + " " + text[dateMatch[1]:]
	hour, minute, ok := parseTimeToken(remainder)
	if !ok {
		return nil
	}

	start := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components; a shifted date means the
	// input was not a real calendar date.
	if start.Year() != year || start.Month() != time.Month(month) || start.Day() != day {
		return nil
	}

	return &SlotCandidate{
		Start:       start,
		End:         start.Add(DefaultDuration),
		DisplayDate: start.Format("2006-01-02"),
		DisplayTime: start.Format("3:04 PM"),
	}
}

func parseTimeToken(text string) (hour, minute int, ok bool) {
	for _, m := range timeRe.FindAllStringSubmatch(text, -1) {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		min := 0
		if m[2] != "" {
			min, err = strconv.Atoi(m[2])
			if err != nil {
				continue
			}
		}
		meridiem := strings.ToLower(m[3])

		// A bare 1-2 digit number with neither minutes nor a meridiem is
		// just a number, not a time.
		if m[2] == "" && meridiem == "" {
			continue
		}

		switch meridiem {
		case "p":
			if h < 1 || h > 12 {
				continue
			}
			if h != 12 {
				h += 12
			}
		case "a":
			if h < 1 || h > 12 {
				continue
			}
			if h == 12 {
				h = 0
			}
		}

		if h > 23 || min > 59 {
			continue
		}
		return h, min, true
	}
	return 0, 0, false
}
