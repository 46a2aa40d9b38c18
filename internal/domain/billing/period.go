package billing

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultPeriodToken is used when a token cannot be parsed.
const DefaultPeriodToken = "1y"

var periodRe = regexp.MustCompile(`^(\d+)([ymwd])$`)

// EndDate advances start by a period token such as "1y", "3m", "2w" or "30d".
// Month and year arithmetic follows calendar rollover (Jan 31 + 1m = Mar 2/3).
// A malformed token falls back to one year instead of failing the payment.
func EndDate(start time.Time, token string) time.Time {
	n, unit, ok := parsePeriod(token)
	if !ok {
		n, unit, _ = parsePeriod(DefaultPeriodToken)
	}
	switch unit {
	case 'y':
		return start.AddDate(n, 0, 0)
	case 'm':
		return start.AddDate(0, n, 0)
	case 'w':
		return start.AddDate(0, 0, 7*n)
	default:
		return start.AddDate(0, 0, n)
	}
}

// ValidPeriodToken reports whether token is well formed.
func ValidPeriodToken(token string) bool {
	_, _, ok := parsePeriod(token)
	return ok
}

func parsePeriod(token string) (int, byte, bool) {
	m := periodRe.FindStringSubmatch(token)
	if m == nil {
		return 0, 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	return n, m[2][0], true
}
